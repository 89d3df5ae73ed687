// Package format turns raw market numbers into display strings.
// Every function here is pure.
package format

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var printer = message.NewPrinter(language.AmericanEnglish)

var symbols = map[string]string{
	"inr": "₹",
	"usd": "$",
	"eur": "€",
}

// Symbol returns the display symbol for a currency code, "$" when unknown.
func Symbol(code string) string {
	if s, ok := symbols[strings.ToLower(code)]; ok {
		return s
	}
	return "$"
}

// Number abbreviates large magnitudes: 1250000000 -> "1.25B".
func Number(n float64) string {
	d := decimal.NewFromFloat(n)
	switch {
	case n >= 1e9:
		return d.Div(decimal.New(1, 9)).StringFixed(2) + "B"
	case n >= 1e6:
		return d.Div(decimal.New(1, 6)).StringFixed(2) + "M"
	case n >= 1e3:
		return d.Div(decimal.New(1, 3)).StringFixed(2) + "K"
	}
	return d.String()
}

// Percentage renders p with two decimals: 45.678 -> "45.68%".
func Percentage(p float64) string {
	return decimal.NewFromFloat(p).StringFixed(2) + "%"
}

// Currency renders an amount en-US style with two fraction digits,
// e.g. Currency(-1234.5, "USD") -> "-$1,234.50". Codes without a known
// symbol are printed as "CHF 1,234.50".
func Currency(amount float64, code string) string {
	rounded, _ := decimal.NewFromFloat(amount).Round(2).Float64()

	sign := ""
	if rounded < 0 {
		sign = "-"
		rounded = -rounded
	}

	body := printer.Sprintf("%v", number.Decimal(rounded,
		number.MinFractionDigits(2), number.MaxFractionDigits(2)))

	if s, ok := symbols[strings.ToLower(code)]; ok {
		return sign + s + body
	}
	return sign + strings.ToUpper(code) + " " + body
}

// Price renders a grouped spot price behind a symbol. Sub-unit prices keep
// up to eight fraction digits so small caps stay readable.
func Price(amount float64, symbol string) string {
	maxDigits := 3
	if amount > -1 && amount < 1 {
		maxDigits = 8
	}

	rounded, _ := decimal.NewFromFloat(amount).Round(int32(maxDigits)).Float64()

	sign := ""
	if rounded < 0 {
		sign = "-"
		rounded = -rounded
	}

	return sign + symbol + printer.Sprintf("%v", number.Decimal(rounded,
		number.MaxFractionDigits(maxDigits)))
}

// Grouped renders an integer-like value with thousands separators.
func Grouped(n float64) string {
	return printer.Sprintf("%v", number.Decimal(n, number.MaxFractionDigits(0)))
}
