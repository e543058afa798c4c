package service

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// symbolToCode maps currency symbols found in free text and statements to ISO codes.
var symbolToCode = map[string]string{
	"$": "USD",
	"€": "EUR",
	"£": "GBP",
	"¥": "JPY",
}

// ParseAmount parses a monetary string such as "$50", "1.234,56 €" or
// "50 EUR". It returns the decimal value plus the ISO currency code detected
// from a symbol or code, or "" when the string carries no currency marker.
func ParseAmount(s string) (decimal.Decimal, string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, "", fmt.Errorf("empty amount")
	}

	currency := ""
	for sym, code := range symbolToCode {
		if strings.Contains(s, sym) {
			currency = code
			s = strings.ReplaceAll(s, sym, "")
			break
		}
	}
	s = strings.TrimSpace(s)

	// leading or trailing ISO code, e.g. "EUR 50" / "50 eur"
	fields := strings.Fields(s)
	if len(fields) == 2 {
		if code, rest, ok := takeCurrencyCode(fields[0], fields[1]); ok {
			currency, s = code, rest
		} else if code, rest, ok := takeCurrencyCode(fields[1], fields[0]); ok {
			currency, s = code, rest
		}
	}

	value, err := parseFlexibleNumber(s)
	if err != nil {
		return decimal.Decimal{}, "", err
	}
	return value, currency, nil
}

func takeCurrencyCode(candidate, rest string) (string, string, bool) {
	if !isCurrencyCode(candidate) {
		return "", "", false
	}
	return strings.ToUpper(candidate), rest, true
}

// isCurrencyCode reports whether s has the shape of an ISO 4217 code:
// exactly three ASCII letters.
func isCurrencyCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}

// parseFlexibleNumber handles both American (1,234.56) and European
// (1.234,56) separator conventions.
func parseFlexibleNumber(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, " ", ""))
	if s == "" {
		return decimal.Decimal{}, fmt.Errorf("empty amount")
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			// European: 1.234,56
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			// American: 1,234.56
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		digitsAfter := len(s) - lastComma - 1
		if strings.Count(s, ",") == 1 && digitsAfter > 0 && digitsAfter <= 2 {
			// decimal comma: 12,34
			s = strings.Replace(s, ",", ".", 1)
		} else {
			// thousands grouping: 1,234 or 1,234,567
			s = strings.ReplaceAll(s, ",", "")
		}
	}

	value, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q", s)
	}
	return value, nil
}
