package operator

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CanonicalNumber extracts a number from a money-like string and returns it
// in canonical form: optional '-', digits, and '.' as the decimal mark with
// trailing zeros trimmed ("Rp 5.250.000,00" -> "5250000").
//
// Currency symbols, letters and spaces are ignored. Both '.' and ',' are
// accepted as separators. The rightmost separator is the decimal mark when it
// is followed by exactly one or two digits; every other separator groups
// thousands. So "1.234" is 1234 and "1,5" is 1.5. A leading '-' or
// surrounding parentheses make the value negative.
//
// ok is false when the input has no digits.
func CanonicalNumber(s string) (string, bool) {
	first := strings.IndexFunc(s, isDigit)
	if first < 0 {
		return "", false
	}
	last := strings.LastIndexFunc(s, isDigit)
	prefix := s[:first]
	negative := strings.ContainsRune(prefix, '-') ||
		(strings.ContainsRune(prefix, '(') && strings.ContainsRune(s[last+1:], ')'))

	// Keep digits and separators of the numeric body.
	body := make([]byte, 0, last-first+1)
	for i := first; i <= last; i++ {
		c := s[i]
		if isDigitByte(c) || c == '.' || c == ',' {
			body = append(body, c)
		}
	}

	intPart, frac := string(body), ""
	if sep := strings.LastIndexAny(intPart, ".,"); sep >= 0 {
		tail := intPart[sep+1:]
		if n := len(tail); (n == 1 || n == 2) && strings.IndexAny(tail, ".,") < 0 {
			intPart, frac = intPart[:sep], tail
		}
	}
	intPart = NumericOnly(intPart)
	if intPart == "" {
		intPart = "0"
	}

	lit := intPart
	if frac != "" {
		lit += "." + frac
	}
	d, err := decimal.NewFromString(lit)
	if err != nil {
		return "", false
	}
	if negative {
		d = d.Neg()
	}
	return d.String(), true
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isDigitByte(c byte) bool { return c >= '0' && c <= '9' }
