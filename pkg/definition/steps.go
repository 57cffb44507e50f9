package definition

import (
	"github.com/ajitpratap0/phaeton/pkg/errors"
	"github.com/ajitpratap0/phaeton/pkg/operator"
	"github.com/ajitpratap0/phaeton/pkg/pipeline"
	"github.com/ajitpratap0/phaeton/pkg/record"
	"github.com/mitchellh/mapstructure"
)

type scrubParams struct {
	Column string `mapstructure:"column"`
	Mode   string `mapstructure:"mode"`
}

type castParams struct {
	Column  string `mapstructure:"column"`
	DType   string `mapstructure:"dtype"`
	Clean   bool   `mapstructure:"clean"`
	OnError string `mapstructure:"on_error"`
}

type matchParams struct {
	Column  string   `mapstructure:"column"`
	Columns []string `mapstructure:"columns"`
	Value   string   `mapstructure:"value"`
	Values  []string `mapstructure:"values"`
	Mode    string   `mapstructure:"mode"`
}

type columnsParams struct {
	Column  string   `mapstructure:"column"`
	Columns []string `mapstructure:"columns"`
}

type fuzzyParams struct {
	Column    string   `mapstructure:"column"`
	Reference []string `mapstructure:"reference"`
	Threshold float64  `mapstructure:"threshold"`
}

type hashParams struct {
	Column string `mapstructure:"column"`
	Salt   string `mapstructure:"salt"`
}

type mapParams struct {
	Column  string            `mapstructure:"column"`
	Mapping map[string]string `mapstructure:"mapping"`
}

type headersParams struct {
	Style string `mapstructure:"style"`
}

type renameParams struct {
	Mapping map[string]string `mapstructure:"mapping"`
}

type fillParams struct {
	Column  string   `mapstructure:"column"`
	Columns []string `mapstructure:"columns"`
	Value   *string  `mapstructure:"value"`
	Method  string   `mapstructure:"method"`
}

type forkParams struct {
	Tag string `mapstructure:"tag"`
}

// decode fills params from a step, rejecting unknown keys.
func decode(step Step, params interface{}) error {
	var md mapstructure.Metadata
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           params,
		WeaklyTypedInput: true,
		Metadata:         &md,
	})
	if err != nil {
		return err
	}
	body := make(map[string]interface{}, len(step))
	for k, v := range step {
		if k != "op" {
			body[k] = v
		}
	}
	if err := dec.Decode(body); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfiguration, "invalid parameters")
	}
	if len(md.Unused) > 0 {
		return errors.Newf(errors.ErrorTypeConfiguration, "unknown parameters %v", md.Unused)
	}
	return nil
}

// merge folds a singular and a plural field.
func merge(one string, many []string) []string {
	if one == "" {
		return many
	}
	return append([]string{one}, many...)
}

// apply adds one step to p. Parameter values are checked later, by
// validation, so that every problem is reported together.
func apply(p *pipeline.Pipeline, step Step) (*pipeline.Pipeline, error) {
	switch step.Op() {
	case "scrub":
		var sp scrubParams
		if err := decode(step, &sp); err != nil {
			return nil, err
		}
		return p.Scrub(sp.Column, operator.ScrubMode(sp.Mode)), nil
	case "cast":
		var cp castParams
		if err := decode(step, &cp); err != nil {
			return nil, err
		}
		return p.Cast(cp.Column, operator.DType(cp.DType), operator.CastOptions{
			Clean:   cp.Clean,
			OnError: operator.OnError(cp.OnError),
		}), nil
	case "keep", "discard":
		var mp matchParams
		if err := decode(step, &mp); err != nil {
			return nil, err
		}
		cols, vals, mode := merge(mp.Column, mp.Columns), merge(mp.Value, mp.Values), operator.MatchMode(mp.Mode)
		if step.Op() == "keep" {
			return p.Keep(cols, vals, mode), nil
		}
		return p.Discard(cols, vals, mode), nil
	case "prune":
		var cp columnsParams
		if err := decode(step, &cp); err != nil {
			return nil, err
		}
		return p.Prune(merge(cp.Column, cp.Columns)...), nil
	case "fuzzyalign":
		var fp fuzzyParams
		if err := decode(step, &fp); err != nil {
			return nil, err
		}
		return p.FuzzyAlign(fp.Column, fp.Reference, fp.Threshold), nil
	case "hash":
		var hp hashParams
		if err := decode(step, &hp); err != nil {
			return nil, err
		}
		return p.Hash(hp.Column, hp.Salt), nil
	case "map":
		var mp mapParams
		if err := decode(step, &mp); err != nil {
			return nil, err
		}
		return p.Map(mp.Column, mp.Mapping), nil
	case "headers":
		var hp headersParams
		if err := decode(step, &hp); err != nil {
			return nil, err
		}
		return p.Headers(operator.Style(hp.Style)), nil
	case "rename":
		var rp renameParams
		if err := decode(step, &rp); err != nil {
			return nil, err
		}
		return p.Rename(rp.Mapping), nil
	case "dedupe":
		var cp columnsParams
		if err := decode(step, &cp); err != nil {
			return nil, err
		}
		return p.Dedupe(merge(cp.Column, cp.Columns)...), nil
	case "fill":
		var fp fillParams
		if err := decode(step, &fp); err != nil {
			return nil, err
		}
		value := record.Null()
		if fp.Value != nil {
			value = record.String(*fp.Value)
		}
		method := operator.FillMethod(fp.Method)
		if method == "" {
			method = operator.FillFixed
		}
		return p.Fill(merge(fp.Column, fp.Columns), value, method), nil
	case "fork":
		var fp forkParams
		if err := decode(step, &fp); err != nil {
			return nil, err
		}
		return p.Fork(fp.Tag), nil
	case "":
		return nil, errors.New(errors.ErrorTypeConfiguration, "step has no op")
	}
	return nil, errors.Newf(errors.ErrorTypeConfiguration, "unknown op %q", step.Op())
}
