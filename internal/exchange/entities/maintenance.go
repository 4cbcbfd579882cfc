package entities

import (
	"github.com/JonMunkholm/exchange/internal/exchange"
)

func init() {
	registerMaintenanceRequests()
	registerTPMActivities()
}

var (
	requestPriorities = []string{"low", "medium", "high", "critical"}
	requestTypes      = []string{"corrective", "preventive", "predictive", "inspection"}
	requestStatuses   = []string{"open", "in_progress", "on_hold", "completed", "cancelled"}
)

func registerMaintenanceRequests() {
	importCols := []exchange.ColumnDefinition{
		{Key: "title", Title: "Title", Required: true, Width: 32},
		{Key: "asset_tag", Title: "Asset Tag", Required: true, Width: 14},
		{Key: "priority", Title: "Priority", Required: true, Allowed: requestPriorities},
		{Key: "type", Title: "Type", Allowed: requestTypes},
		{Key: "requested_by", Title: "Requested By"},
		{Key: "requested_date", Title: "Requested Date", Required: true, Type: exchange.TypeDate},
		{Key: "due_date", Title: "Due Date", Type: exchange.TypeDate},
		{Key: "estimated_hours", Title: "Estimated Hours", Type: exchange.TypeNumber, Coerce: nonNegative},
		{Key: "description", Title: "Description", Width: 40},
	}

	exportCols := []exchange.ColumnDefinition{
		{Key: "request_no", Title: "Request No", Width: 14},
	}
	exportCols = append(exportCols, importCols...)
	exportCols = append(exportCols,
		exchange.ColumnDefinition{Key: "status", Title: "Status", Allowed: requestStatuses},
		exchange.ColumnDefinition{Key: "completed_at", Title: "Completed At", Type: exchange.TypeDate},
	)

	exchange.Register(exchange.Entity{
		Key:    "maintenance_requests",
		Label:  "Maintenance Requests",
		Group:  GroupMaintenance,
		Export: exchange.Schema{Columns: exportCols},
		Import: exchange.Schema{Columns: importCols},
		Samples: []exchange.Record{
			{
				"title":           "Chiller vibration above threshold",
				"asset_tag":       "EQ-1001",
				"priority":        "high",
				"type":            "corrective",
				"requested_by":    "M. Alvarez",
				"requested_date":  date(2024, 3, 4),
				"due_date":        date(2024, 3, 8),
				"estimated_hours": 6.5,
				"description":     "Inspect compressor mounts; replace \"isolator\" pads if worn",
			},
		},
	})
}

var (
	tpmPillars = []string{
		"autonomous maintenance", "planned maintenance", "focused improvement",
		"quality maintenance", "early equipment management", "training", "safety", "office tpm",
	}
	tpmFrequencies = []string{"daily", "weekly", "monthly", "quarterly", "yearly"}
)

func registerTPMActivities() {
	importCols := []exchange.ColumnDefinition{
		{Key: "asset_tag", Title: "Asset Tag", Required: true, Width: 14},
		{Key: "pillar", Title: "Pillar", Required: true, Width: 26, Allowed: tpmPillars},
		{Key: "activity", Title: "Activity", Required: true, Width: 36},
		{Key: "frequency", Title: "Frequency", Required: true, Allowed: tpmFrequencies},
		{Key: "duration_minutes", Title: "Duration (min)", Type: exchange.TypeNumber, Coerce: nonNegative},
		{Key: "owner", Title: "Owner"},
		{Key: "last_performed", Title: "Last Performed", Type: exchange.TypeDate},
	}

	exportCols := append([]exchange.ColumnDefinition{}, importCols...)
	exportCols = append(exportCols,
		exchange.ColumnDefinition{Key: "next_due", Title: "Next Due", Type: exchange.TypeDate},
		exchange.ColumnDefinition{Key: "overdue", Title: "Overdue", Type: exchange.TypeBoolean},
	)

	exchange.Register(exchange.Entity{
		Key:    "tpm_activities",
		Label:  "TPM Activities",
		Group:  GroupMaintenance,
		Export: exchange.Schema{Columns: exportCols},
		Import: exchange.Schema{Columns: importCols, UniqueBy: []string{"asset_tag", "activity"}},
		Samples: []exchange.Record{
			{
				"asset_tag":        "EQ-1001",
				"pillar":           "autonomous maintenance",
				"activity":         "Clean condenser coils",
				"frequency":        "weekly",
				"duration_minutes": 45.0,
				"owner":            "Line 2 crew",
				"last_performed":   date(2024, 2, 26),
			},
			{
				"asset_tag": "EQ-1002",
				"pillar":    "planned maintenance",
				"activity":  "Thermographic scan",
				"frequency": "quarterly",
			},
		},
	})
}
