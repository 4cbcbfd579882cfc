// Package entities registers the exchangeable facility records with the
// exchange registry. Import this package to ensure all entities are registered.
//
// Each file uses init() to register its entities; import schemas are the
// subset of export columns a user may supply, and every entity ships sample
// rows that seed its import template.
package entities

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/JonMunkholm/exchange/internal/exchange"
)

// Groups shown in the entity picker.
const (
	GroupAssets      = "Assets"
	GroupMaintenance = "Maintenance"
	GroupQuality     = "Quality"
	GroupContent     = "Content"
)

var currencyPrinter = message.NewPrinter(language.English)

// formatCurrency renders a number with two decimals and thousand separators.
// ParseNumber strips the separators again on import.
func formatCurrency(v any) string {
	f, ok := v.(float64)
	if !ok {
		return exchange.FormatValue(v)
	}
	return currencyPrinter.Sprintf("%.2f", f)
}

var errNegative = errors.New("must not be negative")

// nonNegative parses a number that must be zero or more.
var nonNegative = exchange.CoercionFunc(func(raw string) (any, error) {
	f, err := exchange.ParseNumber(raw)
	if err != nil {
		return nil, errors.New("is not a number")
	}
	if f < 0 {
		return nil, errNegative
	}
	return f, nil
})

// localeTag parses a BCP 47 language tag and returns its canonical form.
var localeTag = exchange.CoercionFunc(func(raw string) (any, error) {
	tag, err := language.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, errors.New("is not a valid language tag (e.g. en-US)")
	}
	return tag.String(), nil
})

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
