package entities

import (
	"github.com/JonMunkholm/exchange/internal/exchange"
)

func init() {
	registerCalibrationLogs()
}

var calibrationResults = []string{"pass", "fail", "adjusted"}

func registerCalibrationLogs() {
	importCols := []exchange.ColumnDefinition{
		{Key: "asset_tag", Title: "Asset Tag", Required: true, Width: 14},
		{Key: "instrument", Title: "Instrument", Required: true, Width: 26},
		{Key: "calibration_date", Title: "Calibration Date", Required: true, Type: exchange.TypeDate},
		{Key: "next_due", Title: "Next Due", Type: exchange.TypeDate},
		{Key: "result", Title: "Result", Required: true, Allowed: calibrationResults},
		{Key: "deviation_pct", Title: "Deviation %", Type: exchange.TypeNumber},
		{Key: "technician", Title: "Technician"},
		{Key: "certificate_no", Title: "Certificate No"},
	}

	exportCols := append([]exchange.ColumnDefinition{}, importCols...)
	exportCols = append(exportCols,
		exchange.ColumnDefinition{Key: "within_tolerance", Title: "Within Tolerance", Type: exchange.TypeBoolean},
	)

	exchange.Register(exchange.Entity{
		Key:    "calibration_logs",
		Label:  "Calibration Logs",
		Group:  GroupQuality,
		Export: exchange.Schema{Columns: exportCols},
		Import: exchange.Schema{Columns: importCols, UniqueBy: []string{"certificate_no"}},
		Samples: []exchange.Record{
			{
				"asset_tag":        "EQ-2040",
				"instrument":       "Pressure gauge PG-7",
				"calibration_date": date(2024, 1, 10),
				"next_due":         date(2025, 1, 10),
				"result":           "pass",
				"deviation_pct":    0.12,
				"technician":       "J. Okafor",
				"certificate_no":   "CAL-24-0117",
			},
			{
				"asset_tag":        "EQ-2041",
				"instrument":       "Torque wrench TW-3",
				"calibration_date": date(2024, 1, 11),
				"result":           "adjusted",
				"deviation_pct":    -1.8,
			},
		},
	})
}
