package record

import (
	"strconv"
	"strings"
)

// Field is one column of a Schema.
type Field struct {
	Name string
	Type Kind
}

// Schema is an ordered list of fields, used for validation only.
type Schema struct {
	Fields []Field
}

// SchemaFromHeader returns a schema with every column typed as string.
func SchemaFromHeader(h *Header) Schema {
	fields := make([]Field, h.Len())
	for i := 0; i < h.Len(); i++ {
		fields[i] = Field{Name: h.Name(i), Type: KindString}
	}
	return Schema{Fields: fields}
}

// Names returns the column names.
func (s Schema) Names() []string {
	out := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = f.Name
	}
	return out
}

// Lookup returns the field with the given name.
func (s Schema) Lookup(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// InferKind guesses the narrowest kind that can hold a text cell.
func InferKind(s string) Kind {
	t := strings.TrimSpace(s)
	if t == "" {
		return KindNull
	}
	if _, err := strconv.ParseInt(t, 10, 64); err == nil {
		return KindInt
	}
	if _, err := strconv.ParseFloat(t, 64); err == nil {
		return KindFloat
	}
	switch strings.ToLower(t) {
	case "true", "false":
		return KindBool
	}
	return KindString
}

// Widen returns the narrowest kind that holds both a and b.
func Widen(a, b Kind) Kind {
	switch {
	case a == b:
		return a
	case a == KindNull:
		return b
	case b == KindNull:
		return a
	case (a == KindInt && b == KindFloat) || (a == KindFloat && b == KindInt):
		return KindFloat
	default:
		return KindString
	}
}

// InferSchema samples rows and returns a schema with widened kinds per column.
// Columns with only empty samples are typed as string.
func InferSchema(h *Header, rows [][]string) Schema {
	kinds := make([]Kind, h.Len())
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(kinds); i++ {
			kinds[i] = Widen(kinds[i], InferKind(row[i]))
		}
	}
	fields := make([]Field, h.Len())
	for i := range fields {
		k := kinds[i]
		if k == KindNull {
			k = KindString
		}
		fields[i] = Field{Name: h.Name(i), Type: k}
	}
	return Schema{Fields: fields}
}
