package postgres

import (
	"net/url"
	"testing"

	"github.com/ajitpratap0/phaeton/pkg/record"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTarget(t *testing.T) {
	u, err := url.Parse("postgres://etl:secret@db:5432/warehouse?sslmode=disable&table=staging.orders")
	require.NoError(t, err)

	tgt, err := ParseTarget(u)
	require.NoError(t, err)
	assert.Equal(t, pgx.Identifier{"staging", "orders"}, tgt.Table)
	assert.Equal(t, "postgres://etl:secret@db:5432/warehouse?sslmode=disable", tgt.ConnString)

	u, _ = url.Parse("postgres://db/warehouse")
	_, err = ParseTarget(u)
	assert.Error(t, err)
}

func TestRows(t *testing.T) {
	h := record.MustHeader("id", "ok")
	got := Rows([]*record.Record{record.New(h, []record.Value{record.Int(1), record.Bool(true)})})
	assert.Equal(t, [][]any{{int64(1), true}}, got)
}
