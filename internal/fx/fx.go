// Package fx converts between currencies using a static rate table.
//
// Rates are pivoted through CNY and intentionally static: the assistant
// quotes ballpark figures for trip budgeting, not tradable prices.
package fx

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// ratesToCNY maps a currency code to its value in CNY.
var ratesToCNY = map[string]float64{
	"CNY": 1.0,
	"USD": 7.2,
	"EUR": 7.8,
	"JPY": 0.048,
	"KRW": 0.0054,
	"GBP": 9.1,
	"AUD": 4.8,
	"CAD": 5.3,
}

// UnknownCurrencyError reports a code missing from the rate table.
type UnknownCurrencyError struct {
	Code string
}

func (e *UnknownCurrencyError) Error() string {
	return fmt.Sprintf("unknown currency %q (supported: %s)", e.Code, strings.Join(Currencies(), ", "))
}

// Convert exchanges amount from one currency to another, rounding to
// two decimal places. Codes are case-insensitive.
func Convert(amount float64, from, to string) (float64, error) {
	fromRate, ok := ratesToCNY[normalize(from)]
	if !ok {
		return 0, &UnknownCurrencyError{Code: from}
	}
	toRate, ok := ratesToCNY[normalize(to)]
	if !ok {
		return 0, &UnknownCurrencyError{Code: to}
	}

	cny := amount * fromRate
	return round2(cny / toRate), nil
}

// Rate returns how many CNY one unit of code is worth.
func Rate(code string) (float64, error) {
	r, ok := ratesToCNY[normalize(code)]
	if !ok {
		return 0, &UnknownCurrencyError{Code: code}
	}
	return r, nil
}

// Currencies returns the supported codes in sorted order.
func Currencies() []string {
	codes := make([]string, 0, len(ratesToCNY))
	for c := range ratesToCNY {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
