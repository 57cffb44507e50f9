package phaeton

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/ajitpratap0/phaeton/pkg/config"
	"github.com/ajitpratap0/phaeton/pkg/errors"
	"github.com/ajitpratap0/phaeton/pkg/operator"
	"github.com/ajitpratap0/phaeton/pkg/pipeline"
	"github.com/ajitpratap0/phaeton/pkg/record"
	"github.com/ajitpratap0/phaeton/pkg/sink"
	"github.com/ajitpratap0/phaeton/pkg/source"
	"github.com/ajitpratap0/phaeton/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T, strict bool) *Engine {
	t.Helper()
	cfg := config.NewEngineConfig()
	cfg.BatchSize = 4
	cfg.Workers = 3
	cfg.Strict = strict
	e, err := New(cfg, WithLogger(testutil.TestLogger(t)), WithRunIDs(func() string { return "test-run" }))
	require.NoError(t, err)
	return e
}

// countingSource records how often rows were requested.
type countingSource struct {
	source.Source
	opens *atomic.Int32
}

func (c countingSource) Open(ctx context.Context) (source.Reader, error) {
	c.opens.Add(1)
	return c.Source.Open(ctx)
}

func memory(t *testing.T, cols []string, rows [][]string) source.Source {
	t.Helper()
	src, err := source.NewMemory("memory", cols, rows)
	require.NoError(t, err)
	return src
}

func texts(t *testing.T, p *pipeline.Pipeline) [][]string {
	t.Helper()
	rows := p.Peeked()
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = r.Texts()
	}
	return out
}

func TestSurvivorsKeepSourceOrder(t *testing.T) {
	var data [][]string
	for i := 0; i < 97; i++ {
		data = append(data, []string{strconv.Itoa(i), strconv.Itoa(i % 4)})
	}
	e := newEngine(t, false)
	p, err := e.Ingest(memory(t, []string{"id", "group"}, data), "ordered")
	require.NoError(t, err)
	p = p.Keep([]string{"group"}, []string{"1", "3"}, operator.MatchExact).Peek(100)

	stats, err := e.Exec(testutil.TestContext(t), p)
	require.NoError(t, err)

	var want [][]string
	for _, r := range data {
		if r[1] == "1" || r[1] == "3" {
			want = append(want, r)
		}
	}
	assert.Equal(t, want, texts(t, p))
	assert.EqualValues(t, len(want), stats[0].Saved)
}

func TestEveryRowIsAccountedFor(t *testing.T) {
	rows := [][]string{
		{"1", "ada@example.com", "100"},
		{"2", "", "abc"},
		{"3", "grace@example.com", "$20"},
		{"3", "grace@example.com", "$20"},
		{"4", "linus@example.com", ""},
	}
	e := newEngine(t, false)
	base, err := e.Ingest(memory(t, []string{"id", "email", "spend"}, rows), "accounts")
	require.NoError(t, err)
	base = base.Prune("email").Cast("spend", operator.DTypeFloat, operator.CastOptions{Clean: true}).Dedupe("id")

	withSink := base.Fork("with_sink").Quarantine(sink.NewMemory(0)).Dump(sink.NewMemory(0))
	countOnly := base.Fork("count_only").Peek(10)

	stats, err := e.Exec(testutil.TestContext(t), withSink, countOnly)
	require.NoError(t, err)
	for _, st := range stats {
		assert.True(t, st.Balanced(), st.Pipeline)
		assert.EqualValues(t, 5, st.Processed)
		assert.EqualValues(t, 2, st.Saved)
		assert.EqualValues(t, 3, st.Quarantined)
		assert.EqualValues(t, 1, st.Deduped)
	}
	assert.EqualValues(t, 3, stats[0].QuarantineWritten)
	assert.Zero(t, stats[1].QuarantineWritten)
}

func TestDedupeKeepsFirstOccurrence(t *testing.T) {
	rows := [][]string{
		{"a", "1", "first"}, {"b", "1", "first"}, {"a", "1", "second"},
		{"a", "2", "first"}, {"b", "1", "second"}, {"a", "2", "second"},
	}
	e := newEngine(t, false)
	p, err := e.Ingest(memory(t, []string{"k1", "k2", "seen"}, rows), "dedupe")
	require.NoError(t, err)
	p = p.Dedupe("k1", "k2").Peek(10)

	stats, err := e.Exec(testutil.TestContext(t), p)
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"a", "1", "first"}, {"b", "1", "first"}, {"a", "2", "first"}}, texts(t, p))
	assert.EqualValues(t, 3, stats[0].Deduped)
}

func TestCurrencyCleanCast(t *testing.T) {
	e := newEngine(t, false)
	p, err := e.Ingest(memory(t, []string{"price"}, [][]string{{"Rp 5.250.000,00"}}), "rupiah")
	require.NoError(t, err)
	p = p.Scrub("price", operator.ScrubCurrency).
		Cast("price", operator.DTypeInt, operator.CastOptions{Clean: true}).
		Peek(1)

	_, err = e.Exec(testutil.TestContext(t), p)
	require.NoError(t, err)
	require.Len(t, p.Peeked(), 1)
	v, ok := p.Peeked()[0].Values[0].Int64()
	require.True(t, ok)
	assert.EqualValues(t, 5250000, v)
}

func TestFuzzyAlignment(t *testing.T) {
	e := newEngine(t, false)
	p, err := e.Ingest(memory(t, []string{"city"}, [][]string{{"Jkarta"}, {"Berlin"}, {"Minesota"}}), "cities")
	require.NoError(t, err)
	p = p.FuzzyAlign("city", []string{"Jakarta", "Minnesota"}, 0.85).Peek(5)

	stats, err := e.Exec(testutil.TestContext(t), p)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Jakarta"}, {"Berlin"}, {"Minnesota"}}, texts(t, p))
	assert.Zero(t, stats[0].Quarantined)
}

func TestForkIsolation(t *testing.T) {
	rows := [][]string{{"x", "1"}, {"x", ""}, {"y", "2"}, {"x", "3"}}
	e := newEngine(t, false)
	base, err := e.Ingest(memory(t, []string{"k", "v"}, rows), "base")
	require.NoError(t, err)
	base = base.Scrub("k", operator.ScrubUpper)

	p1 := base.Fork("p1").Dedupe("k").Peek(10)
	p2 := base.Fork("p2").Fill([]string{"v"}, record.Null(), operator.FillForward).Peek(10)
	before1, before2 := len(p1.Stages()), len(p2.Stages())

	stats, err := e.Exec(testutil.TestContext(t), p1, p2)
	require.NoError(t, err)

	assert.Len(t, p1.Stages(), before1)
	assert.Len(t, p2.Stages(), before2)
	assert.Len(t, base.Stages(), 1)

	assert.Equal(t, [][]string{{"X", "1"}, {"Y", "2"}}, texts(t, p1))
	assert.Equal(t, [][]string{{"X", "1"}, {"X", "1"}, {"Y", "2"}, {"X", "3"}}, texts(t, p2))
	assert.EqualValues(t, 2, stats[0].Deduped)
	assert.Zero(t, stats[1].Deduped)
}

func TestStrictValidationReadsNoRows(t *testing.T) {
	var opens atomic.Int32
	src := countingSource{Source: memory(t, []string{"id", "name"}, [][]string{{"1", "a"}}), opens: &opens}

	e := newEngine(t, true)
	p, err := e.Ingest(src, "strict")
	require.NoError(t, err)
	p = p.Cast("nonexistent_col", operator.DTypeInt, operator.CastOptions{}).Peek(1)

	ds := e.Validate(testutil.TestContext(t), p)
	require.Len(t, ds, 1)
	assert.Equal(t, "nonexistent_col", ds[0].Column)
	assert.True(t, errors.IsType(ds.Aggregate(), errors.ErrorTypeSchema))

	stats, err := e.Exec(testutil.TestContext(t), p)
	require.Error(t, err)
	assert.Nil(t, stats)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchema))
	assert.Equal(t, []string{"nonexistent_col"}, errors.DiagnosticsOf(err).Columns())
	assert.Zero(t, opens.Load())
	assert.False(t, p.Consumed())
}

func TestNonStrictMissingColumnFailsOnlyItsPipeline(t *testing.T) {
	e := newEngine(t, false)
	src := memory(t, []string{"id"}, [][]string{{"1"}, {"2"}})
	good, err := e.Ingest(src, "good")
	require.NoError(t, err)
	bad, err := e.Ingest(src, "bad")
	require.NoError(t, err)

	stats, err := e.Exec(testutil.TestContext(t),
		good.Peek(5),
		bad.Scrub("missing", operator.ScrubTrim).Peek(5))
	require.Error(t, err)
	require.Len(t, stats, 2)
	require.NoError(t, stats[0].Err)
	assert.EqualValues(t, 2, stats[0].Saved)
	assert.True(t, errors.IsType(stats[1].Err, errors.ErrorTypeSchema))
	assert.Zero(t, stats[1].Processed)
}

func TestExecRejectsMalformedPipelines(t *testing.T) {
	e := newEngine(t, false)
	p, err := e.Ingest(memory(t, []string{"id"}, nil), "nosink")
	require.NoError(t, err)

	_, err = e.Exec(testutil.TestContext(t), p.Scrub("id", operator.ScrubTrim))
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))

	_, err = e.Exec(testutil.TestContext(t), p.Scrub("id", operator.ScrubMode("loud")).Peek(1))
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchema))
}

func TestHandlesExecuteOnce(t *testing.T) {
	e := newEngine(t, false)
	p, err := e.Ingest(memory(t, []string{"id"}, [][]string{{"1"}}), "once")
	require.NoError(t, err)
	p = p.Peek(1)

	_, err = e.Exec(testutil.TestContext(t), p)
	require.NoError(t, err)
	assert.True(t, p.Consumed())

	_, err = e.Exec(testutil.TestContext(t), p)
	assert.True(t, errors.IsType(err, errors.ErrorTypeState))

	_, err = e.Exec(testutil.TestContext(t), p.Peek(1))
	assert.True(t, errors.IsType(err, errors.ErrorTypeState))

	q, err := e.Ingest(memory(t, []string{"id"}, nil), "twice")
	require.NoError(t, err)
	q = q.Peek(1)
	_, err = e.Exec(testutil.TestContext(t), q, q.Limit(1))
	assert.True(t, errors.IsType(err, errors.ErrorTypeState))
	assert.False(t, q.Consumed())
}

func TestIngestStrictNeedsHeader(t *testing.T) {
	e := newEngine(t, true)
	_, err := e.IngestFile("/nonexistent/input.csv", source.Dialect{})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchema))

	lenient := newEngine(t, false)
	_, err = lenient.IngestFile("/nonexistent/input.csv", source.Dialect{})
	assert.NoError(t, err)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.NewEngineConfig()
	cfg.Workers = -1
	_, err := New(cfg)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))

	e, err := New(nil, WithLogger(testutil.TestLogger(t)))
	require.NoError(t, err)
	assert.Equal(t, config.DefaultBatchSize, e.Config().GetBatchSize())
}

func ExampleEngine_Exec() {
	e, _ := New(nil)
	src, _ := source.NewMemory("people", []string{"Name", "City"}, [][]string{
		{" ada ", "Jkarta"},
		{"grace", "Minnesota"},
		{" ada ", "Jkarta"},
	})
	p, _ := e.Ingest(src, "")
	p = p.Headers(operator.StyleSnake).
		Scrub("name", operator.ScrubTrim).
		FuzzyAlign("city", []string{"Jakarta", "Minnesota"}, 0.85).
		Dedupe().
		Peek(10)

	stats, _ := e.Exec(context.Background(), p)
	for _, r := range p.Peeked() {
		fmt.Println(r.Texts())
	}
	fmt.Println(stats[0].Saved, stats[0].Deduped)
	// Output:
	// [ada Jakarta]
	// [grace Minnesota]
	// 2 1
}
