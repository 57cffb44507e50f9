package operator

import "fmt"

// ScrubMode selects a scrub transform.
type ScrubMode string

const (
	ScrubTrim        ScrubMode = "trim"
	ScrubLower       ScrubMode = "lower"
	ScrubUpper       ScrubMode = "upper"
	ScrubHTML        ScrubMode = "html"
	ScrubCurrency    ScrubMode = "currency"
	ScrubNumericOnly ScrubMode = "numeric_only"
	ScrubEmail       ScrubMode = "email"
)

// Valid reports whether m is a known mode.
func (m ScrubMode) Valid() bool {
	switch m {
	case ScrubTrim, ScrubLower, ScrubUpper, ScrubHTML, ScrubCurrency, ScrubNumericOnly, ScrubEmail:
		return true
	}
	return false
}

// DType is a cast target type.
type DType string

const (
	DTypeInt   DType = "int"
	DTypeFloat DType = "float"
	DTypeBool  DType = "bool"
	DTypeStr   DType = "str"
)

// Valid reports whether t is a known type.
func (t DType) Valid() bool {
	switch t {
	case DTypeInt, DTypeFloat, DTypeBool, DTypeStr:
		return true
	}
	return false
}

// OnError selects what cast does with an unparsable value.
type OnError string

const (
	OnErrorQuarantine OnError = "quarantine"
	OnErrorNull       OnError = "null"
	OnErrorRaise      OnError = "raise"
)

// Valid reports whether p is a known policy. The empty policy means quarantine.
func (p OnError) Valid() bool {
	switch p {
	case "", OnErrorQuarantine, OnErrorNull, OnErrorRaise:
		return true
	}
	return false
}

// MatchMode selects how keep and discard compare values.
type MatchMode string

const (
	MatchExact      MatchMode = "exact"
	MatchContains   MatchMode = "contains"
	MatchRegex      MatchMode = "regex"
	MatchStartsWith MatchMode = "startswith"
	MatchEndsWith   MatchMode = "endswith"
)

// Valid reports whether m is a known mode. The empty mode means exact.
func (m MatchMode) Valid() bool {
	switch m {
	case "", MatchExact, MatchContains, MatchRegex, MatchStartsWith, MatchEndsWith:
		return true
	}
	return false
}

// Style is a column naming convention.
type Style string

const (
	StyleSnake    Style = "snake"
	StyleCamel    Style = "camel"
	StylePascal   Style = "pascal"
	StyleKebab    Style = "kebab"
	StyleConstant Style = "constant"
)

// Valid reports whether s is a known style.
func (s Style) Valid() bool {
	switch s {
	case StyleSnake, StyleCamel, StylePascal, StyleKebab, StyleConstant:
		return true
	}
	return false
}

// FillMethod selects how fill imputes empty values.
type FillMethod string

const (
	FillFixed   FillMethod = "fixed"
	FillForward FillMethod = "ffill"
)

// Valid reports whether m is a known method.
func (m FillMethod) Valid() bool {
	switch m {
	case FillFixed, FillForward:
		return true
	}
	return false
}

func unknown(param string, v interface{}) string {
	return fmt.Sprintf("unknown %s %q", param, v)
}
