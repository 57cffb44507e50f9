package operator

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/ajitpratap0/phaeton/pkg/record"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// EmailMask replaces the local part of an address under ScrubEmail.
const EmailMask = "****"

// Scrub normalizes a string column. Non-string values pass through.
type Scrub struct {
	base
	Mode ScrubMode
}

// NewScrub creates a scrub operator.
func NewScrub(col string, mode ScrubMode) *Scrub {
	return &Scrub{base: base{kind: KindScrub, cols: []string{col}}, Mode: mode}
}

// Column returns the target column.
func (s *Scrub) Column() string { return s.cols[0] }

// Check implements Operator.
func (s *Scrub) Check() []string {
	var problems []string
	if s.cols[0] == "" {
		problems = append(problems, "column is required")
	}
	if !s.Mode.Valid() {
		problems = append(problems, unknown("mode", s.Mode))
	}
	return problems
}

// Bind implements Operator.
func (s *Scrub) Bind(env Env) (Stage, *record.Header, error) {
	if err := checked(s); err != nil {
		return nil, nil, err
	}
	idx, err := resolve(env.Header, s.cols)
	if err != nil {
		return nil, nil, err
	}
	fn := scrubFunc(s.Mode)
	col := idx[0]
	return StageFunc(func(r *record.Record) Outcome {
		if str, ok := r.Values[col].Str(); ok {
			r.Values[col] = record.String(fn(str))
		}
		return Pass()
	}), env.Header, nil
}

func scrubFunc(mode ScrubMode) func(string) string {
	switch mode {
	case ScrubTrim:
		return strings.TrimSpace
	case ScrubLower:
		return strings.ToLower
	case ScrubUpper:
		return strings.ToUpper
	case ScrubHTML:
		return StripHTML
	case ScrubCurrency:
		return func(s string) string {
			if c, ok := CanonicalNumber(s); ok {
				return c
			}
			return s
		}
	case ScrubNumericOnly:
		return NumericOnly
	case ScrubEmail:
		return MaskEmail
	default:
		panic(fmt.Sprintf("scrub: unhandled mode %q", mode))
	}
}

// StripHTML removes tags, drops script and style bodies, and decodes entities.
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken:
			if a := tagAtom(z); a == atom.Script || a == atom.Style {
				skip++
			}
		case html.EndTagToken:
			if a := tagAtom(z); (a == atom.Script || a == atom.Style) && skip > 0 {
				skip--
			}
		}
	}
}

func tagAtom(z *html.Tokenizer) atom.Atom {
	name, _ := z.TagName()
	return atom.Lookup(name)
}

// NumericOnly keeps only decimal digits.
func NumericOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

// MaskEmail replaces the local part of an address with EmailMask. Values
// without a local part and domain pass through.
func MaskEmail(s string) string {
	t := strings.TrimSpace(s)
	at := strings.LastIndexByte(t, '@')
	if at <= 0 || at == len(t)-1 || strings.IndexFunc(t, unicode.IsSpace) >= 0 {
		return s
	}
	return EmailMask + t[at:]
}
