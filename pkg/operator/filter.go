package operator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ajitpratap0/phaeton/pkg/record"
)

// Match is a keep or discard predicate. A row matches when any listed
// column matches any of the values under Mode.
type Match struct {
	base
	Values []string
	Mode   MatchMode
}

// NewKeep keeps rows that match and quarantines the rest.
func NewKeep(cols []string, values []string, mode MatchMode) *Match {
	return newMatch(KindKeep, cols, values, mode)
}

// NewDiscard quarantines rows that match.
func NewDiscard(cols []string, values []string, mode MatchMode) *Match {
	return newMatch(KindDiscard, cols, values, mode)
}

func newMatch(kind Kind, cols, values []string, mode MatchMode) *Match {
	return &Match{
		base:   base{kind: kind, cols: append([]string(nil), cols...)},
		Values: append([]string(nil), values...),
		Mode:   mode,
	}
}

// Check implements Operator.
func (m *Match) Check() []string {
	var problems []string
	if len(m.cols) == 0 {
		problems = append(problems, "at least one column is required")
	}
	if len(m.Values) == 0 {
		problems = append(problems, "at least one match value is required")
	}
	if !m.Mode.Valid() {
		problems = append(problems, unknown("mode", m.Mode))
	} else if m.Mode == MatchRegex {
		for _, v := range m.Values {
			if _, err := regexp.Compile(v); err != nil {
				problems = append(problems, fmt.Sprintf("invalid regex %q: %v", v, err))
			}
		}
	}
	return problems
}

// Bind implements Operator.
func (m *Match) Bind(env Env) (Stage, *record.Header, error) {
	if err := checked(m); err != nil {
		return nil, nil, err
	}
	idx, err := resolve(env.Header, m.cols)
	if err != nil {
		return nil, nil, err
	}
	pred, err := matcher(m.Mode, m.Values)
	if err != nil {
		return nil, nil, err
	}
	keep := m.kind == KindKeep
	reason := Filtered(env.StageID)
	return StageFunc(func(r *record.Record) Outcome {
		hit := false
		for _, i := range idx {
			if pred(r.Values[i].Text()) {
				hit = true
				break
			}
		}
		if hit == keep {
			return Pass()
		}
		return Rejected(reason)
	}), env.Header, nil
}

func matcher(mode MatchMode, values []string) (func(string) bool, error) {
	var test func(s, v string) bool
	switch mode {
	case "", MatchExact:
		set := make(map[string]struct{}, len(values))
		for _, v := range values {
			set[v] = struct{}{}
		}
		return func(s string) bool {
			_, ok := set[s]
			return ok
		}, nil
	case MatchRegex:
		res := make([]*regexp.Regexp, len(values))
		for i, v := range values {
			re, err := regexp.Compile(v)
			if err != nil {
				return nil, err
			}
			res[i] = re
		}
		return func(s string) bool {
			for _, re := range res {
				if re.MatchString(s) {
					return true
				}
			}
			return false
		}, nil
	case MatchContains:
		test = strings.Contains
	case MatchStartsWith:
		test = strings.HasPrefix
	case MatchEndsWith:
		test = strings.HasSuffix
	default:
		return nil, fmt.Errorf("%s", unknown("mode", mode))
	}
	return func(s string) bool {
		for _, v := range values {
			if test(s, v) {
				return true
			}
		}
		return false
	}, nil
}

// Prune quarantines rows with an empty value in any listed column, or in
// any column at all when none are listed.
type Prune struct {
	base
}

// NewPrune creates a prune operator.
func NewPrune(cols ...string) *Prune {
	return &Prune{base: base{kind: KindPrune, cols: append([]string(nil), cols...)}}
}

// Check implements Operator.
func (p *Prune) Check() []string {
	for _, c := range p.cols {
		if c == "" {
			return []string{"column names must not be empty"}
		}
	}
	return nil
}

// Bind implements Operator.
func (p *Prune) Bind(env Env) (Stage, *record.Header, error) {
	if err := checked(p); err != nil {
		return nil, nil, err
	}
	var idx []int
	if len(p.cols) == 0 {
		idx = all(env.Header)
	} else {
		var err error
		if idx, err = resolve(env.Header, p.cols); err != nil {
			return nil, nil, err
		}
	}
	reason := Filtered(env.StageID)
	return StageFunc(func(r *record.Record) Outcome {
		for _, i := range idx {
			if r.Values[i].IsEmpty() {
				return Rejected(reason)
			}
		}
		return Pass()
	}), env.Header, nil
}
