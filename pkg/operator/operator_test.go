package operator

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/ajitpratap0/phaeton/pkg/errors"
	"github.com/ajitpratap0/phaeton/pkg/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bind(t *testing.T, op Operator, h *record.Header, id string) (Stage, *record.Header) {
	t.Helper()
	st, out, err := op.Bind(Env{Header: h, StageID: id})
	require.NoError(t, err)
	return st, out
}

func row(h *record.Header, fields ...string) *record.Record {
	return record.FromStrings(h, fields)
}

func TestCanonicalNumber(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Rp 5.250.000,00", "5250000", true},
		{"$1,234.56", "1234.56", true},
		{"1.234", "1234", true},
		{"1,5", "1.5", true},
		{"€ 0,99", "0.99", true},
		{"-12.30", "-12.3", true},
		{"(1,000.00)", "-1000", true},
		{"USD 42", "42", true},
		{"n/a", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := CanonicalNumber(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCurrencyThenCastInt(t *testing.T) {
	h := record.MustHeader("price")
	scrub, _ := bind(t, NewScrub("price", ScrubCurrency), h, "scrub#1")
	cast, _ := bind(t, NewCast("price", DTypeInt, CastOptions{Clean: true}), h, "cast#2")

	r := row(h, "Rp 5.250.000,00")
	require.Equal(t, Continue, scrub.Apply(r).Verdict)
	assert.Equal(t, "5250000", r.Values[0].Text())
	require.Equal(t, Continue, cast.Apply(r).Verdict)

	got, ok := r.Values[0].Int64()
	require.True(t, ok)
	assert.Equal(t, int64(5250000), got)
}

func TestCastOnError(t *testing.T) {
	h := record.MustHeader("qty")

	t.Run("quarantine", func(t *testing.T) {
		st, _ := bind(t, NewCast("qty", DTypeInt, CastOptions{}), h, "cast#1")
		out := st.Apply(row(h, "twelve"))
		assert.Equal(t, Reject, out.Verdict)
		assert.Equal(t, "cast_failed:qty", out.Reason)
	})

	t.Run("null", func(t *testing.T) {
		st, _ := bind(t, NewCast("qty", DTypeInt, CastOptions{OnError: OnErrorNull}), h, "cast#1")
		r := row(h, "twelve")
		assert.Equal(t, Continue, st.Apply(r).Verdict)
		assert.True(t, r.Values[0].IsNull())
	})

	t.Run("raise", func(t *testing.T) {
		st, _ := bind(t, NewCast("qty", DTypeInt, CastOptions{OnError: OnErrorRaise}), h, "cast#1")
		out := st.Apply(row(h, "twelve"))
		assert.Equal(t, Fatal, out.Verdict)
		assert.True(t, errors.IsType(out.Err, errors.ErrorTypeValue))
	})

	t.Run("empty fails", func(t *testing.T) {
		st, _ := bind(t, NewCast("qty", DTypeStr, CastOptions{}), h, "cast#1")
		assert.Equal(t, Reject, st.Apply(row(h, "")).Verdict)
	})
}

func TestConvert(t *testing.T) {
	tests := []struct {
		name  string
		in    record.Value
		dtype DType
		clean bool
		want  record.Value
		ok    bool
	}{
		{"int", record.String(" 42 "), DTypeInt, false, record.Int(42), true},
		{"int rejects fraction", record.String("4.5"), DTypeInt, true, record.Null(), false},
		{"int from integral float", record.Float(3), DTypeInt, false, record.Int(3), true},
		{"float clean", record.String("$1,234.50"), DTypeFloat, true, record.Float(1234.5), true},
		{"float dirty", record.String("$1,234.50"), DTypeFloat, false, record.Null(), false},
		{"bool yes", record.String("Yes"), DTypeBool, false, record.Bool(true), true},
		{"bool f", record.String("f"), DTypeBool, false, record.Bool(false), true},
		{"bool junk", record.String("maybe"), DTypeBool, false, record.Null(), false},
		{"str from int", record.Int(7), DTypeStr, false, record.String("7"), true},
		{"null", record.Null(), DTypeStr, false, record.Null(), false},
		{"str keeps blanks", record.String("  "), DTypeStr, false, record.String("  "), true},
		{"int rejects blanks", record.String("  "), DTypeInt, true, record.Null(), false},
		{"int clean uses currency rule", record.String("12.5"), DTypeInt, true, record.Null(), false},
		{"int clean drops grouping", record.String("Rp 5.250.000,00"), DTypeInt, true, record.Int(5250000), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Convert(tt.in, tt.dtype, tt.clean)
			assert.Equal(t, tt.ok, ok)
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}
}

func TestScrubModes(t *testing.T) {
	tests := []struct {
		mode ScrubMode
		in   string
		want string
	}{
		{ScrubTrim, "  a b  ", "a b"},
		{ScrubLower, "MiXeD", "mixed"},
		{ScrubUpper, "MiXeD", "MIXED"},
		{ScrubHTML, "<p>Tom &amp; Jerry</p><script>x()</script>", "Tom & Jerry"},
		{ScrubNumericOnly, "+62 (812) 555-01", "6281255501"},
		{ScrubEmail, "john.doe@example.com", "****@example.com"},
		{ScrubEmail, "not-an-email", "not-an-email"},
		{ScrubCurrency, "no digits", "no digits"},
	}
	h := record.MustHeader("v")
	for _, tt := range tests {
		t.Run(string(tt.mode)+"/"+tt.in, func(t *testing.T) {
			st, _ := bind(t, NewScrub("v", tt.mode), h, "scrub#1")
			r := row(h, tt.in)
			assert.Equal(t, Continue, st.Apply(r).Verdict)
			assert.Equal(t, tt.want, r.Values[0].Text())
		})
	}
}

func TestScrubLeavesTypedValues(t *testing.T) {
	h := record.MustHeader("v")
	st, _ := bind(t, NewScrub("v", ScrubUpper), h, "scrub#1")
	r := record.New(h, []record.Value{record.Int(9)})
	st.Apply(r)
	assert.True(t, record.Int(9).Equal(r.Values[0]))
}

func TestMatchPredicates(t *testing.T) {
	h := record.MustHeader("city", "country")

	tests := []struct {
		name   string
		op     Operator
		fields []string
		want   Verdict
	}{
		{"keep exact hit", NewKeep([]string{"city"}, []string{"Jakarta"}, MatchExact), []string{"Jakarta", "ID"}, Continue},
		{"keep exact miss", NewKeep([]string{"city"}, []string{"Jakarta"}, ""), []string{"Bandung", "ID"}, Reject},
		{"keep any column", NewKeep([]string{"city", "country"}, []string{"ID"}, MatchExact), []string{"Bandung", "ID"}, Continue},
		{"keep contains", NewKeep([]string{"city"}, []string{"kart"}, MatchContains), []string{"Jakarta", "ID"}, Continue},
		{"keep regex", NewKeep([]string{"city"}, []string{`^J\w+a$`}, MatchRegex), []string{"Jakarta", "ID"}, Continue},
		{"keep startswith", NewKeep([]string{"city"}, []string{"Ban"}, MatchStartsWith), []string{"Bandung", "ID"}, Continue},
		{"discard endswith", NewDiscard([]string{"city"}, []string{"ung"}, MatchEndsWith), []string{"Bandung", "ID"}, Reject},
		{"discard miss", NewDiscard([]string{"city"}, []string{"Paris"}, MatchExact), []string{"Bandung", "ID"}, Continue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, _ := bind(t, tt.op, h, "keep#2")
			out := st.Apply(row(h, tt.fields...))
			assert.Equal(t, tt.want, out.Verdict)
			if tt.want == Reject {
				assert.Equal(t, "filtered:keep#2", out.Reason)
			}
		})
	}
}

func TestPrune(t *testing.T) {
	h := record.MustHeader("a", "b")

	st, _ := bind(t, NewPrune("a"), h, "prune#1")
	assert.Equal(t, Continue, st.Apply(row(h, "x", "")).Verdict)
	assert.Equal(t, Reject, st.Apply(row(h, " ", "y")).Verdict)

	anyEmpty, _ := bind(t, NewPrune(), h, "prune#1")
	assert.Equal(t, Reject, anyEmpty.Apply(row(h, "x", "")).Verdict)
	assert.Equal(t, Continue, anyEmpty.Apply(row(h, "x", "y")).Verdict)
}

func TestJaroWinkler(t *testing.T) {
	assert.InDelta(t, 0.8571, JaroWinkler("Jkarta", "Jakarta"), 0.001)
	assert.InDelta(t, 0.9611, JaroWinkler("MARTHA", "MARHTA"), 0.001)
	assert.Equal(t, 1.0, JaroWinkler("same", "same"))
	assert.Equal(t, 0.0, JaroWinkler("", "abc"))

	// no prefix boost at or below a Jaro score of 0.7
	assert.InDelta(t, 0.6667, JaroWinkler("abcdxyzw", "abcdqrst"), 0.001)
}

func TestAlignLeavesWeakMatches(t *testing.T) {
	_, ok := Align("abcdxyzw", []string{"abcdqrst"}, 0.75)
	assert.False(t, ok)

	got, ok := Align("abcdxyzw", []string{"abcdqrst"}, 0.6)
	require.True(t, ok)
	assert.Equal(t, "abcdqrst", got)
}

func TestFuzzyAlign(t *testing.T) {
	h := record.MustHeader("city")
	st, _ := bind(t, NewFuzzyAlign("city", []string{"Jakarta", "Minnesota"}, 0.85), h, "fuzzyalign#1")

	r := row(h, "Jkarta")
	st.Apply(r)
	assert.Equal(t, "Jakarta", r.Values[0].Text())

	r = row(h, "Tokyo")
	assert.Equal(t, Continue, st.Apply(r).Verdict)
	assert.Equal(t, "Tokyo", r.Values[0].Text())

	r = row(h, "")
	st.Apply(r)
	assert.Equal(t, "", r.Values[0].Text())
}

func TestAlignTieGoesToFirst(t *testing.T) {
	got, ok := Align("abc", []string{"abcx", "abcy"}, 0.5)
	require.True(t, ok)
	assert.Equal(t, "abcx", got)
}

func TestHashAndMap(t *testing.T) {
	h := record.MustHeader("email", "code")
	hash, _ := bind(t, NewHash("email", "pepper"), h, "hash#1")
	mp, _ := bind(t, NewMap("code", map[string]string{"M": "male"}), h, "map#2")

	r := row(h, "a@b.c", "M")
	hash.Apply(r)
	mp.Apply(r)

	sum := sha256.Sum256([]byte("peppera@b.c"))
	assert.Equal(t, hex.EncodeToString(sum[:]), r.Values[0].Text())
	assert.Equal(t, "male", r.Values[1].Text())

	r = row(h, "", "X")
	hash.Apply(r)
	mp.Apply(r)
	assert.Equal(t, "", r.Values[0].Text())
	assert.Equal(t, "X", r.Values[1].Text())
}

func TestWordsAndRestyle(t *testing.T) {
	assert.Equal(t, []string{"HTTP", "Server", "ID"}, Words("HTTPServerID"))
	assert.Equal(t, []string{"Order", "Date", "UTC"}, Words("Order Date (UTC)"))

	tests := []struct {
		in    string
		style Style
		want  string
	}{
		{"firstName", StyleSnake, "first_name"},
		{"Order Date", StyleCamel, "orderDate"},
		{"order_date", StylePascal, "OrderDate"},
		{"OrderDate", StyleKebab, "order-date"},
		{"order date", StyleConstant, "ORDER_DATE"},
		{"___", StyleSnake, "___"},
	}
	for _, tt := range tests {
		t.Run(tt.in+"/"+string(tt.style), func(t *testing.T) {
			assert.Equal(t, tt.want, Restyle(tt.in, tt.style))
		})
	}
}

func TestHeadersAndRenameChangeNamesOnly(t *testing.T) {
	h := record.MustHeader("First Name", "lastName")
	st, out := bind(t, NewHeaders(StyleSnake), h, "headers#1")
	assert.Equal(t, []string{"first_name", "last_name"}, out.Names())

	r := row(h, "Ada", "Lovelace")
	st.Apply(r)
	assert.Same(t, out, r.Header)
	assert.Equal(t, []string{"Ada", "Lovelace"}, r.Texts())

	_, _, err := NewRename(map[string]string{"first_name": "last_name"}).Bind(Env{Header: out})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))

	_, _, err = NewRename(map[string]string{"missing": "x"}).Bind(Env{Header: out})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchema))
}

func TestDedupeKeepsFirstAndStateIsPerBind(t *testing.T) {
	h := record.MustHeader("id", "v")
	op := NewDedupe("id")
	st, _ := bind(t, op, h, "dedupe#1")

	assert.Equal(t, Continue, st.Apply(row(h, "1", "a")).Verdict)
	assert.Equal(t, Continue, st.Apply(row(h, "2", "a")).Verdict)
	out := st.Apply(row(h, "1", "b"))
	assert.Equal(t, Reject, out.Verdict)
	assert.Equal(t, ReasonDuplicate, out.Reason)

	fresh, _ := bind(t, op, h, "dedupe#1")
	assert.Equal(t, Continue, fresh.Apply(row(h, "1", "b")).Verdict)
}

func TestDedupeWholeRow(t *testing.T) {
	h := record.MustHeader("a", "b")
	st, _ := bind(t, NewDedupe(), h, "dedupe#1")
	assert.Equal(t, Continue, st.Apply(row(h, "1", "x")).Verdict)
	assert.Equal(t, Continue, st.Apply(row(h, "1", "y")).Verdict)
	assert.Equal(t, Reject, st.Apply(row(h, "1", "x")).Verdict)
}

func TestFill(t *testing.T) {
	h := record.MustHeader("a", "b")

	fixed, _ := bind(t, NewFill([]string{"a"}, record.String("n/a"), FillFixed), h, "fill#1")
	r := row(h, "", "")
	fixed.Apply(r)
	assert.Equal(t, []string{"n/a", ""}, r.Texts())

	ffill, _ := bind(t, NewFill(nil, record.Null(), FillForward), h, "fill#1")
	rows := [][]string{{"", "1"}, {"x", ""}, {"", ""}, {"y", "2"}, {"", ""}}
	var got [][]string
	for _, f := range rows {
		r := row(h, f...)
		ffill.Apply(r)
		got = append(got, r.Texts())
	}
	assert.Equal(t, [][]string{{"", "1"}, {"x", "1"}, {"x", "1"}, {"y", "2"}, {"y", "2"}}, got)
	assert.True(t, NewFill(nil, record.Null(), FillForward).Stateful())
	assert.False(t, NewFill(nil, record.String("0"), FillFixed).Stateful())
}

func TestCheckReportsClosedSetViolations(t *testing.T) {
	assert.NotEmpty(t, NewScrub("a", "shout").Check())
	assert.NotEmpty(t, NewCast("a", "decimal", CastOptions{}).Check())
	assert.NotEmpty(t, NewKeep([]string{"a"}, []string{"("}, MatchRegex).Check())
	assert.NotEmpty(t, NewHeaders("train").Check())
	assert.NotEmpty(t, NewFill(nil, record.Null(), "mean").Check())
	assert.NotEmpty(t, NewFuzzyAlign("a", nil, 0.9).Check())
	assert.Empty(t, NewScrub("a", ScrubTrim).Check())

	_, _, err := NewScrub("a", "shout").Bind(Env{Header: record.MustHeader("a")})
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))
}
