package models

import (
	"fmt"
	"time"
)

var currencySymbols = map[string]string{
	"EUR": "€",
	"USD": "$",
	"GBP": "£",
}

// FormatAmount renders a minor-unit amount for the kiosk display,
// e.g. FormatAmount(500, "EUR") == "5.00 €".
func FormatAmount(cents int64, currency string) string {
	if currency == "" {
		currency = DefaultCurrency
	}
	value := fmt.Sprintf("%.2f", float64(cents)/100)
	if sym, ok := currencySymbols[currency]; ok {
		return value + " " + sym
	}
	return value + " " + currency
}

// FormatClock renders a timestamp as a wall-clock time, or an em-dash
// placeholder when unknown.
func FormatClock(t *time.Time) string {
	if t == nil {
		return "—"
	}
	return t.Format("15:04")
}
