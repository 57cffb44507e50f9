package operator

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/ajitpratap0/phaeton/pkg/errors"
	"github.com/ajitpratap0/phaeton/pkg/record"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Headers rewrites every column name into a naming style.
type Headers struct {
	Style Style
}

// NewHeaders creates a headers operator.
func NewHeaders(style Style) *Headers { return &Headers{Style: style} }

func (h *Headers) Kind() Kind { return KindHeaders }

func (h *Headers) Stateful() bool { return false }

func (h *Headers) Columns() []string { return nil }

// Check implements Operator.
func (h *Headers) Check() []string {
	if !h.Style.Valid() {
		return []string{unknown("style", h.Style)}
	}
	return nil
}

// Derive implements Operator.
func (h *Headers) Derive(in record.Schema) (record.Schema, error) {
	return renameSchema(in, func(n string) string { return Restyle(n, h.Style) })
}

// Bind implements Operator.
func (h *Headers) Bind(env Env) (Stage, *record.Header, error) {
	if err := checked(h); err != nil {
		return nil, nil, err
	}
	out, err := renameHeader(env.Header, func(n string) string { return Restyle(n, h.Style) })
	if err != nil {
		return nil, nil, err
	}
	return relabel(out), out, nil
}

// Rename rewrites selected column names.
type Rename struct {
	Mapping map[string]string
}

// NewRename creates a rename operator. The mapping is copied.
func NewRename(mapping map[string]string) *Rename {
	m := make(map[string]string, len(mapping))
	for k, v := range mapping {
		m[k] = v
	}
	return &Rename{Mapping: m}
}

func (r *Rename) Kind() Kind { return KindRename }

func (r *Rename) Stateful() bool { return false }

// Columns returns the renamed source columns in sorted order.
func (r *Rename) Columns() []string {
	cols := make([]string, 0, len(r.Mapping))
	for k := range r.Mapping {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// Check implements Operator.
func (r *Rename) Check() []string {
	var problems []string
	if len(r.Mapping) == 0 {
		problems = append(problems, "mapping is empty")
	}
	for _, k := range r.Columns() {
		if r.Mapping[k] == "" {
			problems = append(problems, fmt.Sprintf("new name for %q is empty", k))
		}
	}
	return problems
}

func (r *Rename) apply(n string) string {
	if to, ok := r.Mapping[n]; ok {
		return to
	}
	return n
}

// Derive implements Operator.
func (r *Rename) Derive(in record.Schema) (record.Schema, error) {
	return renameSchema(in, r.apply)
}

// Bind implements Operator.
func (r *Rename) Bind(env Env) (Stage, *record.Header, error) {
	if err := checked(r); err != nil {
		return nil, nil, err
	}
	if _, err := resolve(env.Header, r.Columns()); err != nil {
		return nil, nil, err
	}
	out, err := renameHeader(env.Header, r.apply)
	if err != nil {
		return nil, nil, err
	}
	return relabel(out), out, nil
}

func relabel(out *record.Header) Stage {
	return StageFunc(func(r *record.Record) Outcome {
		r.Header = out
		return Pass()
	})
}

func renameHeader(h *record.Header, fn func(string) string) (*record.Header, error) {
	out, err := h.Rename(fn)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfiguration, "rename produces colliding column names")
	}
	return out, nil
}

func renameSchema(in record.Schema, fn func(string) string) (record.Schema, error) {
	out := record.Schema{Fields: make([]record.Field, len(in.Fields))}
	seen := make(map[string]struct{}, len(in.Fields))
	for i, f := range in.Fields {
		name := fn(f.Name)
		if _, dup := seen[name]; dup {
			return in, errors.Newf(errors.ErrorTypeConfiguration, "rename produces colliding column name %q", name)
		}
		seen[name] = struct{}{}
		out.Fields[i] = record.Field{Name: name, Type: f.Type}
	}
	return out, nil
}

// Restyle converts a column name to a naming style. Names without any
// letters or digits are returned unchanged.
func Restyle(name string, style Style) string {
	words := Words(name)
	if len(words) == 0 {
		return name
	}
	// Casers carry state and are not shared between goroutines.
	lower, upper, title := cases.Lower(language.Und), cases.Upper(language.Und), cases.Title(language.Und)
	out := make([]string, len(words))
	for i, w := range words {
		switch style {
		case StyleSnake, StyleKebab:
			out[i] = lower.String(w)
		case StyleConstant:
			out[i] = upper.String(w)
		case StylePascal:
			out[i] = title.String(w)
		case StyleCamel:
			if i == 0 {
				out[i] = lower.String(w)
			} else {
				out[i] = title.String(w)
			}
		}
	}
	switch style {
	case StyleSnake, StyleConstant:
		return strings.Join(out, "_")
	case StyleKebab:
		return strings.Join(out, "-")
	default:
		return strings.Join(out, "")
	}
}

// Words splits a name on non-alphanumeric runes and on case transitions.
// Acronyms stay whole: "HTTPServerID" splits into HTTP, Server, ID.
func Words(name string) []string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}
	rs := []rune(name)
	for i, r := range rs {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if len(cur) > 0 && unicode.IsUpper(r) {
			prev := cur[len(cur)-1]
			nextLower := i+1 < len(rs) && unicode.IsLower(rs[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return words
}
