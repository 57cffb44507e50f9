package sink

import (
	"fmt"
	"io"

	"github.com/ajitpratap0/phaeton/pkg/record"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

// ParquetEncoder writes a Parquet file with one row group per batch. Column
// types are fixed from the first batch.
type ParquetEncoder struct {
	w       io.Writer
	header  *record.Header
	kinds   []record.Kind
	pool    memory.Allocator
	schema  *arrow.Schema
	builder *array.RecordBuilder
	fw      *pqarrow.FileWriter
}

// NewParquetEncoder creates a Parquet encoder.
func NewParquetEncoder(w io.Writer) Encoder {
	return &ParquetEncoder{w: w, pool: memory.NewGoAllocator()}
}

// Begin implements Encoder.
func (e *ParquetEncoder) Begin(h *record.Header) error {
	e.header = h
	return nil
}

// Encode implements Encoder.
func (e *ParquetEncoder) Encode(rows []*record.Record) error {
	if len(rows) == 0 {
		return nil
	}
	if e.fw == nil {
		if err := e.start(columnKinds(e.header, rows)); err != nil {
			return err
		}
	}
	for _, r := range rows {
		for i, v := range r.Values {
			cv, err := coerce(e.header.Name(i), e.kinds[i], v)
			if err != nil {
				return err
			}
			appendValue(e.builder.Field(i), cv)
		}
	}
	rec := e.builder.NewRecord()
	defer rec.Release()
	if err := e.fw.Write(rec); err != nil {
		return fmt.Errorf("failed to write record batch: %w", err)
	}
	return nil
}

// Close implements Encoder.
func (e *ParquetEncoder) Close() error {
	if e.fw == nil {
		if e.header == nil {
			return nil
		}
		if err := e.start(columnKinds(e.header, nil)); err != nil {
			return err
		}
	}
	e.builder.Release()
	if err := e.fw.Close(); err != nil {
		return fmt.Errorf("failed to close Parquet writer: %w", err)
	}
	return nil
}

func (e *ParquetEncoder) start(kinds []record.Kind) error {
	fields := make([]arrow.Field, e.header.Len())
	for i := range fields {
		fields[i] = arrow.Field{Name: e.header.Name(i), Type: arrowType(kinds[i]), Nullable: true}
	}
	e.schema = arrow.NewSchema(fields, nil)
	e.builder = array.NewRecordBuilder(e.pool, e.schema)

	props := parquet.NewWriterProperties(
		parquet.WithCompression(compress.Codecs.Snappy),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithAllocator(e.pool))

	fw, err := pqarrow.NewFileWriter(e.schema, e.w, props, arrowProps)
	if err != nil {
		e.builder.Release()
		return fmt.Errorf("failed to create Parquet writer: %w", err)
	}
	e.kinds, e.fw = kinds, fw
	return nil
}

func arrowType(k record.Kind) arrow.DataType {
	switch k {
	case record.KindInt:
		return arrow.PrimitiveTypes.Int64
	case record.KindFloat:
		return arrow.PrimitiveTypes.Float64
	case record.KindBool:
		return arrow.FixedWidthTypes.Boolean
	default:
		return arrow.BinaryTypes.String
	}
}

func appendValue(b array.Builder, v record.Value) {
	if v.IsNull() {
		b.AppendNull()
		return
	}
	switch bb := b.(type) {
	case *array.Int64Builder:
		i, _ := v.Int64()
		bb.Append(i)
	case *array.Float64Builder:
		f, _ := v.Float64()
		bb.Append(f)
	case *array.BooleanBuilder:
		x, _ := v.Boolean()
		bb.Append(x)
	case *array.StringBuilder:
		bb.Append(v.Text())
	default:
		b.AppendNull()
	}
}
