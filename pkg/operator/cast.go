package operator

import (
	"math"
	"strconv"
	"strings"

	"github.com/ajitpratap0/phaeton/pkg/errors"
	"github.com/ajitpratap0/phaeton/pkg/record"
	"github.com/shopspring/decimal"
)

// CastOptions tunes a cast.
type CastOptions struct {
	// Clean canonicalizes money-like text before parsing numbers.
	Clean bool
	// OnError is applied to values that do not parse. Empty means quarantine.
	OnError OnError
}

// Cast converts a column to a typed value.
type Cast struct {
	base
	DType   DType
	Options CastOptions
}

// NewCast creates a cast operator.
func NewCast(col string, dtype DType, opts CastOptions) *Cast {
	return &Cast{base: base{kind: KindCast, cols: []string{col}}, DType: dtype, Options: opts}
}

// Column returns the target column.
func (c *Cast) Column() string { return c.cols[0] }

// Check implements Operator.
func (c *Cast) Check() []string {
	var problems []string
	if c.cols[0] == "" {
		problems = append(problems, "column is required")
	}
	if !c.DType.Valid() {
		problems = append(problems, unknown("dtype", c.DType))
	}
	if !c.Options.OnError.Valid() {
		problems = append(problems, unknown("on_error", c.Options.OnError))
	}
	if c.Options.Clean && (c.DType == DTypeBool || c.DType == DTypeStr) {
		problems = append(problems, "clean applies only to int and float casts")
	}
	return problems
}

// Derive implements Operator.
func (c *Cast) Derive(in record.Schema) (record.Schema, error) {
	return setType(in, c.cols[0], dtypeKind(c.DType)), nil
}

// Bind implements Operator.
func (c *Cast) Bind(env Env) (Stage, *record.Header, error) {
	if err := checked(c); err != nil {
		return nil, nil, err
	}
	idx, err := resolve(env.Header, c.cols)
	if err != nil {
		return nil, nil, err
	}
	col, name := idx[0], c.cols[0]
	dtype, clean, policy := c.DType, c.Options.Clean, c.Options.OnError
	return StageFunc(func(r *record.Record) Outcome {
		v, ok := Convert(r.Values[col], dtype, clean)
		if ok {
			r.Values[col] = v
			return Pass()
		}
		switch policy {
		case OnErrorNull:
			r.Values[col] = record.Null()
			return Pass()
		case OnErrorRaise:
			return Failed(errors.Newf(errors.ErrorTypeValue, "cannot cast %q to %s", r.Values[col].Text(), dtype).
				WithDetail("column", name).
				WithDetail("stage", env.StageID))
		default:
			return Rejected(CastFailed(name))
		}
	}), env.Header, nil
}

// Convert parses v as dtype. Null values never convert, and blank values
// convert only to str.
func Convert(v record.Value, dtype DType, clean bool) (record.Value, bool) {
	if v.IsNull() || (dtype != DTypeStr && v.IsEmpty()) {
		return record.Null(), false
	}
	switch dtype {
	case DTypeInt:
		if i, ok := v.Int64(); ok {
			return record.Int(i), true
		}
		if f, ok := v.Float64(); ok {
			if d := decimal.NewFromFloat(f); d.IsInteger() {
				return record.Int(d.IntPart()), true
			}
			return record.Null(), false
		}
		return parseInt(strings.TrimSpace(v.Text()), clean)
	case DTypeFloat:
		if f, ok := v.Float64(); ok {
			return record.Float(f), true
		}
		if i, ok := v.Int64(); ok {
			return record.Float(float64(i)), true
		}
		return parseFloat(strings.TrimSpace(v.Text()), clean)
	case DTypeBool:
		if b, ok := v.Boolean(); ok {
			return record.Bool(b), true
		}
		return parseBool(v.Text())
	case DTypeStr:
		return record.String(v.Text()), true
	}
	return record.Null(), false
}

func parseInt(s string, clean bool) (record.Value, bool) {
	if clean {
		c, ok := CanonicalNumber(s)
		if !ok {
			return record.Null(), false
		}
		d, err := decimal.NewFromString(c)
		if err != nil || !d.IsInteger() {
			return record.Null(), false
		}
		s = d.String()
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return record.Null(), false
	}
	return record.Int(i), true
}

func parseFloat(s string, clean bool) (record.Value, bool) {
	if clean {
		c, ok := CanonicalNumber(s)
		if !ok {
			return record.Null(), false
		}
		s = c
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return record.Null(), false
	}
	return record.Float(f), true
}

func parseBool(s string) (record.Value, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "y", "t":
		return record.Bool(true), true
	case "false", "0", "no", "n", "f":
		return record.Bool(false), true
	}
	return record.Null(), false
}

func dtypeKind(t DType) record.Kind {
	switch t {
	case DTypeInt:
		return record.KindInt
	case DTypeFloat:
		return record.KindFloat
	case DTypeBool:
		return record.KindBool
	default:
		return record.KindString
	}
}
