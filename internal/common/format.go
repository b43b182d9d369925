package common

import (
	"fmt"
	"strings"
)

// FormatMoney formats a float as a dollar amount with comma separators
func FormatMoney(v float64) string {
	return formatAmount(v, "$")
}

// FormatMoneyForCountry formats an amount using the currency symbol of the
// statement's ISO 3166 country code. Unknown codes fall back to "$".
func FormatMoneyForCountry(v float64, countryCode string) string {
	return formatAmount(v, countrySymbol(countryCode))
}

// FormatSignedMoney formats a dollar amount with +/- prefix
func FormatSignedMoney(v float64) string {
	if v >= 0 {
		return "+" + FormatMoney(v)
	}
	return FormatMoney(v)
}

// FormatRatio renders an income ratio (0.25) as a percentage ("25.0%").
func FormatRatio(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

func countrySymbol(countryCode string) string {
	switch strings.ToUpper(strings.TrimSpace(countryCode)) {
	case "GB", "UK":
		return "£"
	case "AU":
		return "A$"
	case "CA":
		return "CA$"
	case "IE", "DE", "FR", "ES", "IT", "NL", "PT", "BE", "AT", "FI":
		return "€"
	default:
		return "$"
	}
}

func formatAmount(v float64, sym string) string {
	negative := v < 0
	if negative {
		v = -v
	}
	whole := int64(v)
	cents := int64((v-float64(whole))*100 + 0.5)
	if cents >= 100 {
		whole++
		cents -= 100
	}

	s := fmt.Sprintf("%d", whole)
	if len(s) > 3 {
		var parts []string
		for len(s) > 3 {
			parts = append([]string{s[len(s)-3:]}, parts...)
			s = s[:len(s)-3]
		}
		parts = append([]string{s}, parts...)
		s = strings.Join(parts, ",")
	}

	if negative {
		return fmt.Sprintf("-%s%s.%02d", sym, s, cents)
	}
	return fmt.Sprintf("%s%s.%02d", sym, s, cents)
}
