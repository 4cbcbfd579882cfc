package exchange

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

func noteSchema() Schema {
	return NewSchema(ColumnDefinition{Key: "note", Title: "Note"})
}

func TestSerializeCSVQuoting(t *testing.T) {
	original := "a,b\n\"c\""
	art, err := Serialize([]Record{{"note": original}}, noteSchema(), ExportOptions{})
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}

	if !bytes.HasPrefix(art.Data, utf8BOM) {
		t.Error("CSV output should start with a UTF-8 BOM")
	}
	body := string(bytes.TrimPrefix(art.Data, utf8BOM))
	want := "Note\n" + `"a,b` + "\n" + `""c"""` + "\n"
	if body != want {
		t.Errorf("body = %q, want %q", body, want)
	}

	result := ImportFromFile(context.Background(), File{Name: art.Filename, Data: art.Data}, noteSchema())
	if len(result.Errors) != 0 {
		t.Fatalf("errors = %v", result.Errors)
	}
	if got := result.Data[0]["note"]; got != original {
		t.Errorf("re-parsed = %q, want %q", got, original)
	}
}

func TestSerializeHeaderOnly(t *testing.T) {
	schema := NewSchema(
		ColumnDefinition{Key: "code", Title: "Code"},
		ColumnDefinition{Key: "qty", Title: "Quantity", Type: TypeNumber},
	)

	art, err := Serialize(nil, schema, ExportOptions{UseCRLF: true})
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	if got := string(bytes.TrimPrefix(art.Data, utf8BOM)); got != "Code,Quantity\r\n" {
		t.Errorf("body = %q", got)
	}
}

func TestSerializeCells(t *testing.T) {
	schema := NewSchema(
		ColumnDefinition{Key: "code", Title: "Code"},
		ColumnDefinition{Key: "cost", Title: "Cost", Type: TypeNumber, Format: func(v any) string {
			return "$" + FormatValue(v)
		}},
		ColumnDefinition{Key: "active", Title: "Active", Type: TypeBoolean},
		ColumnDefinition{Key: "due", Title: "Due", Type: TypeDate},
	)
	records := []Record{
		{"code": "P-1", "cost": 12.5, "active": true, "due": time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), "ignored": "x"},
		{"code": "P-2", "cost": nil},
	}

	art, err := Serialize(records, schema, ExportOptions{Delimiter: ';'})
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}

	want := "Code;Cost;Active;Due\nP-1;$12.5;true;2024-05-01\nP-2;;;\n"
	if got := string(bytes.TrimPrefix(art.Data, utf8BOM)); got != want {
		t.Errorf("body = %q, want %q", got, want)
	}
}

func TestSerializeXLSX(t *testing.T) {
	schema := NewSchema(
		ColumnDefinition{Key: "code", Title: "Code", Required: true, Width: 24},
		ColumnDefinition{Key: "qty", Title: "Qty", Type: TypeNumber},
	)
	records := []Record{{"code": "E1", "qty": 10.0}}

	art, err := Serialize(records, schema, ExportOptions{Format: FormatXLSX, Styled: true, SheetName: "Equipment/Assets"})
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	if art.Filename != "export.xlsx" {
		t.Errorf("Filename = %q", art.Filename)
	}

	f, err := excelize.OpenReader(bytes.NewReader(art.Data))
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 1 || sheets[0] != "Equipment_Assets" {
		t.Fatalf("sheets = %v", sheets)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[0][0] != "Code" || rows[1][1] != "10" {
		t.Errorf("rows = %v", rows)
	}
	width, err := f.GetColWidth(sheets[0], "A")
	if err != nil || width != 24 {
		t.Errorf("column A width = %v (%v), want 24", width, err)
	}
}

func TestSerializeInvalidSchema(t *testing.T) {
	schema := NewSchema(ColumnDefinition{Key: "a"}, ColumnDefinition{Key: "a"})
	if _, err := Serialize(nil, schema, ExportOptions{}); err == nil {
		t.Error("Serialize() should reject duplicate keys")
	}
}

func TestBuildFilename(t *testing.T) {
	fixed := func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	tests := []struct {
		name   string
		opts   ExportOptions
		format Format
		want   string
	}{
		{name: "default", opts: ExportOptions{}, format: FormatCSV, want: "export.csv"},
		{name: "extension stripped", opts: ExportOptions{Filename: "assets.csv"}, format: FormatXLSX, want: "assets.xlsx"},
		{name: "unsafe characters", opts: ExportOptions{Filename: "../Work Orders (Q1)"}, format: FormatCSV, want: "Work_Orders_Q1.csv"},
		{name: "timestamp", opts: ExportOptions{Filename: "equipment", Timestamp: true, Now: fixed}, format: FormatCSV, want: "equipment_20240102_030405.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildFilename(tt.opts, tt.format); got != tt.want {
				t.Errorf("BuildFilename() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"xlsx": FormatXLSX, ".XLSX": FormatXLSX, "excel": FormatXLSX, "csv": FormatCSV, "": FormatCSV, "pdf": FormatCSV} {
		if got := ParseFormat(in); got != want {
			t.Errorf("ParseFormat(%q) = %s, want %s", in, got, want)
		}
	}
	if !strings.HasPrefix(FormatXLSX.ContentType(), "application/vnd.openxmlformats") {
		t.Errorf("xlsx content type = %s", FormatXLSX.ContentType())
	}
}
