package sink

import (
	"fmt"

	"github.com/ajitpratap0/phaeton/pkg/record"
)

// columnKinds fixes a kind per column from the first batch a typed encoder
// sees. Mixed int and float widen to float, any other mix falls back to
// string, and all-null columns are strings.
func columnKinds(h *record.Header, rows []*record.Record) []record.Kind {
	kinds := make([]record.Kind, h.Len())
	for _, r := range rows {
		for i, v := range r.Values {
			kinds[i] = record.Widen(kinds[i], v.Kind())
		}
	}
	for i, k := range kinds {
		if k == record.KindNull {
			kinds[i] = record.KindString
		}
	}
	return kinds
}

// coerce converts v to the column kind. Values that cannot be represented
// without loss are an error.
func coerce(col string, k record.Kind, v record.Value) (record.Value, error) {
	switch {
	case v.IsNull() || v.Kind() == k:
		return v, nil
	case k == record.KindString:
		return record.String(v.Text()), nil
	case k == record.KindFloat && v.Kind() == record.KindInt:
		i, _ := v.Int64()
		return record.Float(float64(i)), nil
	}
	return record.Null(), fmt.Errorf("column %q holds %s values, got %s %q", col, k, v.Kind(), v.Text())
}
