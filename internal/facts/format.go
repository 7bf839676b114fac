package facts

import (
	"strconv"
	"strings"
)

var currencySymbols = map[string]string{
	"BRL": "R$",
	"USD": "US$",
	"EUR": "€",
	"MXN": "MX$",
	"GBP": "£",
	"CLP": "CLP$",
	"COP": "COP$",
	"ARS": "ARS$",
}

// CurrencySymbol returns the display symbol for an ISO code. Unknown codes
// are returned unchanged.
func CurrencySymbol(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		code = DefaultCurrency
	}
	if s, ok := currencySymbols[code]; ok {
		return s
	}
	return code
}

// FormatNumber renders v in pt-BR style with the given decimals: "." groups
// thousands and "," separates decimals. Negative decimals keep the shortest
// exact representation.
func FormatNumber(v float64, decimals int) string {
	s := strconv.FormatFloat(v, 'f', decimals, 64)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if frac != "" {
		b.WriteByte(',')
		b.WriteString(frac)
	}
	return b.String()
}

// FormatPercent renders v as "15,5%".
func FormatPercent(v float64) string {
	return FormatNumber(v, 1) + "%"
}

// FormatMultiple renders v as "3,5x".
func FormatMultiple(v float64) string {
	return FormatNumber(v, 1) + "x"
}

// FormatMoney renders an amount in millions as "R$ 12,5 MM".
func FormatMoney(v float64, currency string) string {
	return CurrencySymbol(currency) + " " + FormatNumber(v, 1) + " MM"
}
