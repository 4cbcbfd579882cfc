package entities

import (
	"github.com/JonMunkholm/exchange/internal/exchange"
)

func init() {
	registerEquipment()
}

var equipmentCategories = []string{"HVAC", "Electrical", "Plumbing", "Production", "Safety", "Other"}

var equipmentStatuses = []string{"active", "inactive", "under_maintenance", "retired"}

func equipmentImportColumns() []exchange.ColumnDefinition {
	return []exchange.ColumnDefinition{
		{Key: "asset_tag", Title: "Asset Tag", Required: true, Width: 14},
		{Key: "name", Title: "Name", Required: true, Width: 28},
		{Key: "category", Title: "Category", Required: true, Allowed: equipmentCategories},
		{Key: "location", Title: "Location", Width: 22},
		{Key: "manufacturer", Title: "Manufacturer"},
		{Key: "model", Title: "Model"},
		{Key: "serial_number", Title: "Serial Number"},
		{Key: "install_date", Title: "Install Date", Type: exchange.TypeDate},
		{Key: "purchase_cost", Title: "Purchase Cost", Type: exchange.TypeNumber, Format: formatCurrency},
		{Key: "critical", Title: "Critical", Type: exchange.TypeBoolean},
		{Key: "status", Title: "Status", Allowed: equipmentStatuses},
	}
}

func registerEquipment() {
	importCols := equipmentImportColumns()

	exportCols := append([]exchange.ColumnDefinition{}, importCols...)
	exportCols = append(exportCols,
		exchange.ColumnDefinition{Key: "last_service", Title: "Last Service", Type: exchange.TypeDate},
		exchange.ColumnDefinition{Key: "open_requests", Title: "Open Requests", Type: exchange.TypeNumber},
	)

	exchange.Register(exchange.Entity{
		Key:    "equipment",
		Label:  "Equipment",
		Group:  GroupAssets,
		Export: exchange.Schema{Columns: exportCols},
		Import: exchange.Schema{Columns: importCols, UniqueBy: []string{"asset_tag"}},
		Samples: []exchange.Record{
			{
				"asset_tag":     "EQ-1001",
				"name":          "Rooftop Chiller 1",
				"category":      "HVAC",
				"location":      "Building A, Roof",
				"manufacturer":  "Trane",
				"model":         "RTAC-200",
				"serial_number": "TR-88412",
				"install_date":  date(2019, 4, 12),
				"purchase_cost": 184500.0,
				"critical":      true,
				"status":        "active",
			},
			{
				"asset_tag": "EQ-1002",
				"name":      "Main Switchboard",
				"category":  "Electrical",
				"location":  "Building A, Basement",
				"critical":  true,
				"status":    "under_maintenance",
			},
		},
	})
}
