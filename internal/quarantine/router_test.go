package quarantine

import (
	"context"
	"testing"

	"github.com/ajitpratap0/phaeton/pkg/errors"
	"github.com/ajitpratap0/phaeton/pkg/operator"
	"github.com/ajitpratap0/phaeton/pkg/record"
	"github.com/ajitpratap0/phaeton/pkg/sink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entries(h *record.Header) []Entry {
	return []Entry{
		{Row: record.FromStrings(h, []string{"1", "abc"}), StageID: "cast#2", Kind: operator.KindCast, Reason: operator.CastFailed("amount")},
		{Row: record.FromStrings(h, []string{"2", ""}), StageID: "prune#3", Kind: operator.KindPrune, Reason: operator.Filtered("prune#3")},
		{Row: record.FromStrings(h, []string{"1", "abc"}), StageID: "dedupe#4", Kind: operator.KindDedupe, Reason: operator.ReasonDuplicate},
		{Row: record.FromStrings(h, []string{"3", "x"}), StageID: "cast#2", Kind: operator.KindCast, Reason: operator.CastFailed("amount")},
	}
}

func TestRouterAppendsReasonColumn(t *testing.T) {
	ctx := context.Background()
	h := record.MustHeader("id", "amount")
	mem := sink.NewMemory(0)

	r, err := NewRouter(mem, h)
	require.NoError(t, err)
	require.NoError(t, r.Open(ctx))
	require.NoError(t, r.Route(ctx, entries(h)))
	require.NoError(t, r.Close(ctx))

	assert.Equal(t, []string{"id", "amount", "_phaeton_reason"}, mem.Header().Names())
	assert.Equal(t, [][]string{
		{"1", "abc", "cast_failed:amount"},
		{"2", "", "filtered:prune#3"},
		{"1", "abc", "duplicate"},
		{"3", "x", "cast_failed:amount"},
	}, mem.Texts())
	assert.EqualValues(t, 4, r.Routed())
	assert.EqualValues(t, 4, r.Written())
	assert.True(t, r.Persistent())

	reasons := r.Reasons()
	require.Len(t, reasons, 3)
	assert.Equal(t, Reason{Reason: "cast_failed:amount", Count: 2}, reasons[0])
}

func TestRouterWithoutSinkOnlyCounts(t *testing.T) {
	ctx := context.Background()
	h := record.MustHeader("id", "amount")

	r, err := NewRouter(nil, h)
	require.NoError(t, err)
	require.NoError(t, r.Open(ctx))
	require.NoError(t, r.Route(ctx, entries(h)))
	require.NoError(t, r.Close(ctx))

	assert.False(t, r.Persistent())
	assert.EqualValues(t, 4, r.Routed())
	assert.Zero(t, r.Written())
}

func TestRouterLifecycle(t *testing.T) {
	ctx := context.Background()
	h := record.MustHeader("id")

	r, err := NewRouter(sink.NewMemory(0), h)
	require.NoError(t, err)

	err = r.Route(ctx, []Entry{{Row: record.FromStrings(h, []string{"1"}), Reason: "duplicate"}})
	assert.True(t, errors.IsType(err, errors.ErrorTypeState))

	require.NoError(t, r.Open(ctx))
	assert.True(t, errors.IsType(r.Open(ctx), errors.ErrorTypeState))
	require.NoError(t, r.Route(ctx, nil))
	require.NoError(t, r.Close(ctx))
	require.NoError(t, r.Close(ctx))
}

func TestRouterReasonColumnInSource(t *testing.T) {
	h := record.MustHeader("id", operator.ReasonColumn)

	_, err := NewRouter(sink.NewMemory(0), h)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))

	// nothing is written, so the source column does not clash
	r, err := NewRouter(nil, h)
	require.NoError(t, err)
	assert.Nil(t, r.Header())
}
