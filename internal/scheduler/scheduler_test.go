package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/ajitpratap0/phaeton/internal/engine"
	"github.com/ajitpratap0/phaeton/pkg/errors"
	"github.com/ajitpratap0/phaeton/pkg/operator"
	"github.com/ajitpratap0/phaeton/pkg/pipeline"
	"github.com/ajitpratap0/phaeton/pkg/record"
	"github.com/ajitpratap0/phaeton/pkg/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func rows(t *testing.T, name string, n int) source.Source {
	t.Helper()
	data := make([][]string, n)
	for i := range data {
		data[i] = []string{strconv.Itoa(i), strconv.Itoa(i % 3)}
	}
	src, err := source.NewMemory(name, []string{"id", "bucket"}, data)
	require.NoError(t, err)
	return src
}

func TestRunKeepsSubmissionOrder(t *testing.T) {
	g := pipeline.NewGraph()
	base := g.Ingest(rows(t, "base.csv", 300), "base")

	var jobs []*pipeline.Pipeline
	for i := 0; i < 12; i++ {
		tag := fmt.Sprintf("job-%02d", i)
		// different amounts of work so completion order shuffles
		p := base.Fork(tag).Limit(300 - i*20).Dedupe("bucket", "id").Peek(1)
		jobs = append(jobs, p)
	}

	stats := New(3, 2, zaptest.NewLogger(t), WithBatchSize(16)).Run(context.Background(), jobs)
	require.Len(t, stats, len(jobs))
	for i, st := range stats {
		require.NoError(t, st.Err)
		assert.Equal(t, fmt.Sprintf("job-%02d", i), st.Pipeline)
		assert.EqualValues(t, 300-i*20, st.Processed)
		assert.True(t, st.Balanced())
	}
}

func TestFailureIsIsolated(t *testing.T) {
	src, err := source.NewMemory("mixed.csv", []string{"n"}, [][]string{{"1"}, {"two"}, {"3"}})
	require.NoError(t, err)
	g := pipeline.NewGraph()
	base := g.Ingest(src, "mixed")

	ok := base.Fork("lenient").Cast("n", operator.DTypeInt, operator.CastOptions{}).Peek(5)
	bad := base.Fork("raising").Cast("n", operator.DTypeInt, operator.CastOptions{OnError: operator.OnErrorRaise}).Peek(5)
	nulls := base.Fork("nulling").Cast("n", operator.DTypeInt, operator.CastOptions{OnError: operator.OnErrorNull}).Peek(5)

	stats := New(2, 0, zaptest.NewLogger(t)).Run(context.Background(), []*pipeline.Pipeline{ok, bad, nulls})

	require.NoError(t, stats[0].Err)
	assert.EqualValues(t, 2, stats[0].Saved)
	assert.EqualValues(t, 1, stats[0].Quarantined)

	require.Error(t, stats[1].Err)
	assert.True(t, errors.IsType(stats[1].Err, errors.ErrorTypeValue))

	require.NoError(t, stats[2].Err)
	assert.EqualValues(t, 3, stats[2].Saved)
	assert.True(t, nulls.Peeked()[1].Values[0].IsNull())
}

type exploding struct{ operator.Fork }

func (exploding) Bind(operator.Env) (operator.Stage, *record.Header, error) {
	panic("bind exploded")
}

func TestPanicsBecomeEngineErrors(t *testing.T) {
	g := pipeline.NewGraph()
	p := g.Ingest(rows(t, "x.csv", 3), "exploding").Then(exploding{}).Peek(1)
	fine := g.Ingest(rows(t, "y.csv", 3), "fine").Peek(1)

	stats := New(1, 1, zaptest.NewLogger(t)).Run(context.Background(), []*pipeline.Pipeline{p, fine})
	require.Error(t, stats[0].Err)
	assert.True(t, errors.IsType(stats[0].Err, errors.ErrorTypeEngine))
	assert.Equal(t, "exploding", stats[0].Pipeline)
	require.NoError(t, stats[1].Err)
	assert.EqualValues(t, 3, stats[1].Processed)
}

func TestDefaults(t *testing.T) {
	s := New(0, 0, nil)
	assert.Positive(t, s.Workers())
	assert.Equal(t, 2*s.Workers(), s.maxInflight)
	assert.Equal(t, engine.DefaultBatchSize, s.batchSize)
}
