package entities

import (
	"github.com/JonMunkholm/exchange/internal/exchange"
)

func init() {
	registerTranslations()
}

func registerTranslations() {
	cols := []exchange.ColumnDefinition{
		{Key: "key", Title: "Key", Required: true, Width: 30},
		{Key: "locale", Title: "Locale", Required: true, Width: 10, Coerce: localeTag},
		{Key: "text", Title: "Text", Required: true, Width: 48},
		{Key: "context", Title: "Context", Width: 30},
	}

	exchange.Register(exchange.Entity{
		Key:    "translations",
		Label:  "Translations",
		Group:  GroupContent,
		Export: exchange.Schema{Columns: cols},
		Import: exchange.Schema{Columns: cols, UniqueBy: []string{"key", "locale"}},
		Samples: []exchange.Record{
			{"key": "equipment.status.active", "locale": "en-US", "text": "Active", "context": "Status badge"},
			{"key": "equipment.status.active", "locale": "es-MX", "text": "Activo", "context": "Status badge"},
			{"key": "request.confirm", "locale": "de-DE", "text": "Möchten Sie fortfahren, \"jetzt\"?"},
		},
	})
}
