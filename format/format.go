// Package format provides display formatting helpers for money, dates and
// IBANs, shared between page templates.
package format

import (
	"html/template"
	"strconv"
	"time"
)

const shortIBANMin = 10

// Money formats an amount to two decimal places with an optional trailing
// currency code.
//
//	Money(12.5, "EUR") == "12.50 EUR"
//	Money(0, "") == "0.00"
func Money(val float64, currency string) string {
	s := strconv.FormatFloat(val, 'f', 2, 64)

	if currency == "" {
		return s
	}

	return s + " " + currency
}

// ShortIBAN abbreviates a long IBAN to its first four and last three
// characters. Short values are returned unchanged.
func ShortIBAN(iban string) string {
	if len(iban) <= shortIBANMin {
		return iban
	}

	return iban[:4] + "…" + iban[len(iban)-3:]
}

// Date renders an API timestamp for display, returning "-" for empty values
// and the raw string if it cannot be parsed.
func Date(iso string) string {
	if iso == "" {
		return "-"
	}

	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		// the API sends LocalDateTime values without a zone
		if t, err = time.Parse("2006-01-02T15:04:05", iso); err != nil {
			return iso
		}
	}

	return t.Format("Jan 02, 2006 15:04")
}

// FuncMap exposes the helpers to templates.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"money":     Money,
		"shortIBAN": ShortIBAN,
		"date":      Date,
	}
}
