package schema

import (
	"testing"

	"github.com/ajitpratap0/phaeton/pkg/errors"
	"github.com/ajitpratap0/phaeton/pkg/operator"
	"github.com/ajitpratap0/phaeton/pkg/pipeline"
	"github.com/ajitpratap0/phaeton/pkg/record"
	"github.com/ajitpratap0/phaeton/pkg/sink"
	"github.com/ajitpratap0/phaeton/pkg/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ingest(t *testing.T, cols ...string) (*pipeline.Pipeline, *record.Header) {
	t.Helper()
	src, err := source.NewMemory("input.csv", cols, nil)
	require.NoError(t, err)
	return pipeline.NewGraph().Ingest(src, "input"), record.MustHeader(cols...)
}

func TestValidateCleanPipeline(t *testing.T) {
	p, h := ingest(t, "id", "Full Name", "Amount")
	p = p.Headers(operator.StyleSnake).
		Scrub("full_name", operator.ScrubTrim).
		Cast("amount", operator.DTypeFloat, operator.CastOptions{Clean: true}).
		Rename(map[string]string{"full_name": "name"}).
		Dedupe("id", "name").
		Peek(5)

	assert.Empty(t, Validate(p, h))
}

func TestValidateMissingColumn(t *testing.T) {
	p, h := ingest(t, "id", "name")
	p = p.Cast("nonexistent_col", operator.DTypeInt, operator.CastOptions{}).Peek(1)

	ds := Validate(p, h)
	require.Len(t, ds, 1)
	assert.Equal(t, errors.ErrorTypeSchema, ds[0].Type)
	assert.Equal(t, "nonexistent_col", ds[0].Column)
	assert.Equal(t, "cast#1", ds[0].Stage)
	assert.Equal(t, "input", ds[0].Pipeline)
	assert.True(t, errors.IsType(ds.Aggregate(), errors.ErrorTypeSchema))
}

func TestValidateTracksRenames(t *testing.T) {
	p, h := ingest(t, "First Name", "city")

	// the old name is gone after restyling
	stale := p.Headers(operator.StyleSnake).Scrub("First Name", operator.ScrubLower).Peek(1)
	ds := Validate(stale, h)
	require.Len(t, ds, 1)
	assert.Equal(t, "First Name", ds[0].Column)
	assert.Equal(t, "scrub#2", ds[0].Stage)

	fresh := p.Headers(operator.StyleSnake).Scrub("first_name", operator.ScrubLower).Peek(1)
	assert.Empty(t, Validate(fresh, h))
}

func TestValidatePartialRenameKeepsValidColumns(t *testing.T) {
	p, h := ingest(t, "a", "b")
	p = p.Rename(map[string]string{"a": "x", "zz": "y"}).
		Scrub("x", operator.ScrubTrim).
		Peek(1)

	ds := Validate(p, h)
	require.Len(t, ds, 1)
	assert.Equal(t, "zz", ds[0].Column)
	assert.Equal(t, "rename#1", ds[0].Stage)
}

func TestValidateCollectsEverything(t *testing.T) {
	p, h := ingest(t, "a", "b")
	p = p.Scrub("x", operator.ScrubMode("shout")).
		Cast("y", operator.DTypeInt, operator.CastOptions{}).
		Keep([]string{"z"}, []string{"1"}, operator.MatchExact).
		Peek(1)

	ds := Validate(p, h)
	assert.ElementsMatch(t, []string{"x", "y", "z"}, ds.Columns())
	// one parameter finding on top of the three missing columns
	assert.Len(t, ds, 4)
}

func TestValidateRenameCollision(t *testing.T) {
	p, h := ingest(t, "a", "b")
	p = p.Rename(map[string]string{"a": "b"}).Peek(1)

	ds := Validate(p, h)
	require.NotEmpty(t, ds)
	assert.Equal(t, "rename#1", ds[0].Stage)
}

func TestValidateStructureIsConfiguration(t *testing.T) {
	p, h := ingest(t, "a")
	p = p.Cast("missing", operator.DTypeInt, operator.CastOptions{})

	ds := Validate(p, h)
	require.Len(t, ds, 2)
	assert.True(t, errors.IsType(ds.Aggregate(), errors.ErrorTypeConfiguration))
}

func TestValidateReasonColumnClash(t *testing.T) {
	p, h := ingest(t, "a", operator.ReasonColumn)
	p = p.Quarantine(sink.NewMemory(0)).Dump(sink.NewMemory(0))

	ds := Validate(p, h)
	require.Len(t, ds, 1)
	assert.Equal(t, operator.ReasonColumn, ds[0].Column)
	assert.Equal(t, errors.ErrorTypeConfiguration, ds[0].Type)
}

func TestCheckNeedsNoHeader(t *testing.T) {
	p, _ := ingest(t, "a")

	ok := p.Cast("anything", operator.DTypeInt, operator.CastOptions{}).Peek(1)
	assert.Empty(t, Check(ok))

	bad := p.Cast("anything", operator.DType("decimal"), operator.CastOptions{}).Peek(1)
	ds := Check(bad)
	require.Len(t, ds, 1)
	assert.Equal(t, errors.ErrorTypeSchema, ds[0].Type)
}

func TestInferFollowsForks(t *testing.T) {
	p, h := ingest(t, "Order ID", "Total")
	base := p.Headers(operator.StyleSnake)
	left := base.Fork("left").Prune("total").Peek(1)
	right := base.Fork("right").Cast("total", operator.DTypeFloat, operator.CastOptions{}).Peek(1)

	ls, ds := Infer(left, record.SchemaFromHeader(h))
	require.Empty(t, ds)
	assert.Equal(t, []string{"order_id", "total"}, ls.Names())

	rs, ds := Infer(right, record.SchemaFromHeader(h))
	require.Empty(t, ds)
	f, ok := rs.Lookup("total")
	require.True(t, ok)
	assert.Equal(t, record.KindFloat, f.Type)
}
