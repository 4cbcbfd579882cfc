package exchange

// serialize.go writes records to downloadable artifacts.
//
// Two formats are produced:
//   - CSV: UTF-8 with a leading BOM so spreadsheet apps pick the right
//     encoding, standard quoting (fields containing the delimiter, a quote or
//     a newline are quoted, embedded quotes doubled).
//   - XLSX: a single-sheet workbook built with excelize, header row = titles.

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Format identifies an artifact format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat maps a query value or extension to a Format. Unknown values fall back to CSV.
func ParseFormat(s string) Format {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".") {
	case "xlsx", "xlsm", "excel", "workbook":
		return FormatXLSX
	default:
		return FormatCSV
	}
}

// Extension returns the file extension for f, including the dot.
func (f Format) Extension() string {
	if f == FormatXLSX {
		return ".xlsx"
	}
	return ".csv"
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Default export settings.
const (
	DefaultFilename    = "export"
	DefaultSheetName   = "Data"
	DefaultColumnWidth = 18
	timestampLayout    = "20060102_150405"
	maxSheetNameLength = 31
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ExportOptions controls artifact naming and layout.
type ExportOptions struct {
	Filename  string // Base name; sanitized, extension appended
	SheetName string // Workbook sheet name (default "Data")
	Styled    bool   // Bold, filled header row in workbooks
	Format    Format // csv (default) or xlsx

	// MarkRequired appends " *" to required column titles. Parse strips it.
	MarkRequired bool

	Delimiter rune // CSV delimiter (default ',')
	UseCRLF   bool // CSV row separator

	// Timestamp appends _YYYYMMDD_HHMMSS to the filename using Now.
	Timestamp bool
	Now       func() time.Time
}

// Artifact is a serialized file ready for download.
type Artifact struct {
	Filename    string
	ContentType string
	Format      Format
	Data        []byte
}

// WriteTo implements io.WriterTo.
func (a *Artifact) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(a.Data)
	return int64(n), err
}

// requiredMarker is appended to required column titles in templates.
const requiredMarker = " *"

// Serialize renders records under schema into an artifact. An empty record
// slice still produces the header row.
func Serialize(records []Record, schema Schema, opts ExportOptions) (*Artifact, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}

	rows := make([][]any, 0, len(records))
	for _, rec := range records {
		rows = append(rows, recordCells(rec, schema))
	}

	header := schema.Titles()
	if opts.MarkRequired {
		for i, col := range schema.Columns {
			if col.Required {
				header[i] += requiredMarker
			}
		}
	}

	return render(schema, header, rows, opts)
}

// recordCells resolves the cells of one record in schema order.
// Formatted and text columns become strings; unformatted numbers stay numeric
// so workbooks get real number cells.
func recordCells(rec Record, schema Schema) []any {
	cells := make([]any, len(schema.Columns))
	for i, col := range schema.Columns {
		v, ok := rec[col.Key]
		switch {
		case !ok || v == nil:
			cells[i] = ""
		case col.Format != nil:
			cells[i] = col.Format(v)
		case col.Type == TypeNumber && isNumeric(v):
			cells[i] = v
		default:
			cells[i] = FormatValue(v)
		}
	}
	return cells
}

func isNumeric(v any) bool {
	switch v.(type) {
	case float64, float32, int, int32, int64:
		return true
	}
	return false
}

func render(schema Schema, header []string, rows [][]any, opts ExportOptions) (*Artifact, error) {
	format := opts.Format
	if format == "" {
		format = FormatCSV
	}

	var (
		data []byte
		err  error
	)
	switch format {
	case FormatCSV:
		data, err = writeCSV(header, rows, opts)
	case FormatXLSX:
		data, err = writeXLSX(schema, header, rows, opts)
	default:
		return nil, fmt.Errorf("serialize: unknown format %q", format)
	}
	if err != nil {
		return nil, err
	}

	return &Artifact{
		Filename:    BuildFilename(opts, format),
		ContentType: format.ContentType(),
		Format:      format,
		Data:        data,
	}, nil
}

func writeCSV(header []string, rows [][]any, opts ExportOptions) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)

	w := csv.NewWriter(&buf)
	if opts.Delimiter != 0 {
		w.Comma = opts.Delimiter
	}
	w.UseCRLF = opts.UseCRLF

	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}

	record := make([]string, len(header))
	for _, row := range rows {
		for i, cell := range row {
			record[i] = FormatValue(cell)
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func writeXLSX(schema Schema, header []string, rows [][]any, opts ExportOptions) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := sanitizeSheetName(opts.SheetName)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("set sheet name: %w", err)
	}

	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	for i, col := range schema.Columns {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		width := col.Width
		if width <= 0 {
			width = DefaultColumnWidth
		}
		if err := f.SetColWidth(sheet, name, name, width); err != nil {
			return nil, fmt.Errorf("set column width: %w", err)
		}
	}

	if opts.Styled {
		if err := styleHeader(f, sheet, schema); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// styleHeader applies a bold filled header, with required columns highlighted.
func styleHeader(f *excelize.File, sheet string, schema Schema) error {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	requiredStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"C65911"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("create required style: %w", err)
	}

	for i, col := range schema.Columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		style := headerStyle
		if col.Required {
			style = requiredStyle
		}
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return fmt.Errorf("style header: %w", err)
		}
	}

	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeFilename reduces name to a safe slug without extension.
func SanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	for _, ext := range []string{".csv", ".xlsx", ".xlsm", ".tsv", ".txt"} {
		if strings.HasSuffix(strings.ToLower(name), ext) {
			name = name[:len(name)-len(ext)]
			break
		}
	}
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._-")
	if name == "" {
		return DefaultFilename
	}
	return name
}

// BuildFilename produces the download name for opts in format.
func BuildFilename(opts ExportOptions, format Format) string {
	name := SanitizeFilename(opts.Filename)
	if opts.Timestamp {
		now := time.Now
		if opts.Now != nil {
			now = opts.Now
		}
		name += "_" + now().Format(timestampLayout)
	}
	return name + format.Extension()
}

func sanitizeSheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	name = strings.Trim(name, "'")
	if name == "" {
		return DefaultSheetName
	}
	if r := []rune(name); len(r) > maxSheetNameLength {
		name = string(r[:maxSheetNameLength])
	}
	return name
}
