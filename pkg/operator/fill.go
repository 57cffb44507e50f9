package operator

import (
	"github.com/ajitpratap0/phaeton/pkg/record"
)

// Fill imputes empty values, either with a constant or by carrying the last
// non-empty value of the column forward.
type Fill struct {
	base
	Value  record.Value
	Method FillMethod
}

// NewFill creates a fill operator. No columns means every column.
func NewFill(cols []string, value record.Value, method FillMethod) *Fill {
	return &Fill{
		base:   base{kind: KindFill, cols: append([]string(nil), cols...)},
		Value:  value,
		Method: method,
	}
}

// Stateful implements Operator. Only forward fill depends on stream order.
func (f *Fill) Stateful() bool { return f.Method == FillForward }

// Check implements Operator.
func (f *Fill) Check() []string {
	var problems []string
	if !f.Method.Valid() {
		problems = append(problems, unknown("method", f.Method))
	}
	if f.Method == FillFixed && f.Value.IsNull() {
		problems = append(problems, "fixed fill requires a value")
	}
	return problems
}

// Derive implements Operator.
func (f *Fill) Derive(in record.Schema) (record.Schema, error) {
	if f.Method != FillFixed {
		return in, nil
	}
	out := record.Schema{Fields: append([]record.Field(nil), in.Fields...)}
	for i, fld := range out.Fields {
		if len(f.cols) == 0 || contains(f.cols, fld.Name) {
			out.Fields[i].Type = record.Widen(fld.Type, f.Value.Kind())
		}
	}
	return out, nil
}

// Bind implements Operator. Each call starts with no carried values.
func (f *Fill) Bind(env Env) (Stage, *record.Header, error) {
	if err := checked(f); err != nil {
		return nil, nil, err
	}
	var idx []int
	if len(f.cols) == 0 {
		idx = all(env.Header)
	} else {
		var err error
		if idx, err = resolve(env.Header, f.cols); err != nil {
			return nil, nil, err
		}
	}
	if f.Method == FillFixed {
		value := f.Value
		return StageFunc(func(r *record.Record) Outcome {
			for _, i := range idx {
				if r.Values[i].IsEmpty() {
					r.Values[i] = value
				}
			}
			return Pass()
		}), env.Header, nil
	}
	return &ffillStage{idx: idx, carry: make([]record.Value, len(idx))}, env.Header, nil
}

type ffillStage struct {
	idx   []int
	carry []record.Value
}

func (s *ffillStage) Apply(r *record.Record) Outcome {
	for k, i := range s.idx {
		if r.Values[i].IsEmpty() {
			if !s.carry[k].IsNull() {
				r.Values[i] = s.carry[k]
			}
			continue
		}
		s.carry[k] = r.Values[i]
	}
	return Pass()
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
