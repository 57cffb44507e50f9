package operator

import (
	"fmt"

	"github.com/ajitpratap0/phaeton/pkg/record"
	"github.com/xrash/smetrics"
)

// DefaultThreshold is the fuzzyalign similarity cut-off when none is given.
const DefaultThreshold = 0.85

const (
	boostThreshold = 0.7
	prefixSize     = 4
)

// FuzzyAlign snaps a column to the most similar entry of a reference list.
// Values scoring below the threshold against every entry are left unchanged.
type FuzzyAlign struct {
	base
	Ref       []string
	Threshold float64
}

// NewFuzzyAlign creates a fuzzyalign operator. A zero threshold means
// DefaultThreshold.
func NewFuzzyAlign(col string, ref []string, threshold float64) *FuzzyAlign {
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	return &FuzzyAlign{
		base:      base{kind: KindFuzzyAlign, cols: []string{col}},
		Ref:       append([]string(nil), ref...),
		Threshold: threshold,
	}
}

// Check implements Operator.
func (f *FuzzyAlign) Check() []string {
	var problems []string
	if f.cols[0] == "" {
		problems = append(problems, "column is required")
	}
	if len(f.Ref) == 0 {
		problems = append(problems, "reference list is empty")
	}
	if f.Threshold <= 0 || f.Threshold > 1 {
		problems = append(problems, fmt.Sprintf("threshold %v outside (0, 1]", f.Threshold))
	}
	return problems
}

// Bind implements Operator.
func (f *FuzzyAlign) Bind(env Env) (Stage, *record.Header, error) {
	if err := checked(f); err != nil {
		return nil, nil, err
	}
	idx, err := resolve(env.Header, f.cols)
	if err != nil {
		return nil, nil, err
	}
	col := idx[0]
	ref, threshold := f.Ref, f.Threshold
	return StageFunc(func(r *record.Record) Outcome {
		v := r.Values[col]
		if v.IsEmpty() {
			return Pass()
		}
		if best, ok := Align(v.Text(), ref, threshold); ok {
			r.Values[col] = record.String(best)
		}
		return Pass()
	}), env.Header, nil
}

// Align returns the reference entry most similar to s when its score reaches
// threshold. Ties go to the earliest entry.
func Align(s string, ref []string, threshold float64) (string, bool) {
	bestIdx, bestScore := -1, -1.0
	for i, candidate := range ref {
		if score := JaroWinkler(s, candidate); score > bestScore {
			bestIdx, bestScore = i, score
		}
	}
	if bestIdx < 0 || bestScore < threshold {
		return "", false
	}
	return ref[bestIdx], true
}

// JaroWinkler returns the Jaro-Winkler similarity of a and b in [0, 1].
// The common prefix boost covers up to four bytes and applies only when the
// Jaro score exceeds 0.7.
func JaroWinkler(a, b string) float64 {
	return smetrics.JaroWinkler(a, b, boostThreshold, prefixSize)
}
