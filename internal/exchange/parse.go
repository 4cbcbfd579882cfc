package exchange

// parse.go reads an uploaded file into raw rows.
//
// The first non-empty row is the header; every later row is mapped to the
// header labels by position. Rows whose cells are all blank are skipped, but
// row numbers always refer to the physical row in the file (header = 1 for a
// typical file, first data row = 2) so messages point at the exact
// spreadsheet row.

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ContextCheckInterval is how often (in rows) to check for context cancellation.
var ContextCheckInterval = 100

var errEmptyFile = errors.New("empty file: no header row")

var (
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// File is one uploaded file held in memory.
type File struct {
	Name string
	Data []byte
}

// Size returns the file size in bytes.
func (f File) Size() int64 {
	return int64(len(f.Data))
}

// ReadFile reads r fully into a File, failing with ErrFileTooLarge when it
// exceeds maxSize bytes. maxSize <= 0 disables the cap.
func ReadFile(name string, r io.Reader, maxSize int64) (File, error) {
	if maxSize > 0 {
		r = io.LimitReader(r, maxSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return File{}, fmt.Errorf("read %s: %w", name, err)
	}
	if maxSize > 0 && int64(len(data)) > maxSize {
		return File{}, fmt.Errorf("%w: %s exceeds %d bytes", ErrFileTooLarge, name, maxSize)
	}
	return File{Name: name, Data: data}, nil
}

// RawRow is one source row before type coercion.
type RawRow struct {
	Line   int               // 1-indexed row number in the source file
	Values map[string]string // header label -> raw cell text
	Extra  []string          // cells beyond the header width
}

// Table is the parsed content of a file.
type Table struct {
	Format  Format
	Headers []string
	Rows    []RawRow
}

// Parser reads tabular files. The zero value auto-detects everything.
type Parser struct {
	Sheet     string // Workbook sheet to read; first sheet when empty
	Delimiter rune   // Delimited-text separator; sniffed when zero
}

// Parse reads file with a zero-value Parser.
func Parse(ctx context.Context, file File) (*Table, error) {
	return Parser{}.Parse(ctx, file)
}

// DetectFormat decides how file should be read from its content and extension.
func DetectFormat(file File) (Format, error) {
	if bytes.HasPrefix(file.Data, zipMagic) {
		return FormatXLSX, nil
	}
	if bytes.HasPrefix(file.Data, oleMagic) {
		return "", &UnsupportedFormatError{Name: file.Name, Reason: "legacy .xls workbooks are not supported, save as .xlsx or .csv"}
	}

	switch strings.ToLower(filepath.Ext(file.Name)) {
	case ".csv", ".tsv", ".txt":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		// Extension says workbook but content is not a zip container.
		return FormatXLSX, nil
	case "":
		return "", &UnsupportedFormatError{Name: file.Name, Reason: "file has no extension"}
	default:
		return "", &UnsupportedFormatError{Name: file.Name, Reason: "expected .csv or .xlsx"}
	}
}

// Parse reads file into a Table.
func (p Parser) Parse(ctx context.Context, file File) (*Table, error) {
	format, err := DetectFormat(file)
	if err != nil {
		return nil, err
	}

	var records []sourceRow
	switch format {
	case FormatXLSX:
		records, err = p.readWorkbook(file)
	default:
		records, err = p.readDelimited(file)
	}
	if err != nil {
		return nil, err
	}

	return buildTable(ctx, file.Name, format, records)
}

// sourceRow is a row of cells with its physical row number.
type sourceRow struct {
	line  int
	cells []string
}

func (p Parser) readDelimited(file File) ([]sourceRow, error) {
	text, err := decodeText(file.Data)
	if err != nil {
		return nil, &CorruptFileError{Name: file.Name, Err: err}
	}

	r := csv.NewReader(bytes.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.Comma = p.Delimiter
	if r.Comma == 0 {
		r.Comma = sniffDelimiter(file.Name, text)
	}

	var (
		rows    []sourceRow
		row     int
		prevEnd int
	)
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &CorruptFileError{Name: file.Name, Err: err}
		}

		// csv.Reader drops blank lines; recover the physical row number from
		// the line the record starts on.
		start, _ := r.FieldPos(0)
		row += start - prevEnd
		last := len(rec) - 1
		endLine, _ := r.FieldPos(last)
		prevEnd = endLine + strings.Count(rec[last], "\n")

		rows = append(rows, sourceRow{line: row, cells: rec})
	}
	return rows, nil
}

// sniffDelimiter picks comma, semicolon or tab by counting unquoted
// occurrences in the first line. Ties go to comma.
func sniffDelimiter(name string, text []byte) rune {
	if strings.EqualFold(filepath.Ext(name), ".tsv") {
		return '\t'
	}

	line := text
	if i := bytes.IndexAny(text, "\r\n"); i >= 0 {
		line = text[:i]
	}

	counts := map[rune]int{}
	inQuotes := false
	for _, c := range string(line) {
		switch {
		case c == '"':
			inQuotes = !inQuotes
		case !inQuotes && (c == ',' || c == ';' || c == '\t'):
			counts[c]++
		}
	}

	best := ','
	for _, c := range []rune{';', '\t'} {
		if counts[c] > counts[best] {
			best = c
		}
	}
	return best
}

func (p Parser) readWorkbook(file File) ([]sourceRow, error) {
	f, err := excelize.OpenReader(bytes.NewReader(file.Data))
	if err != nil {
		return nil, &CorruptFileError{Name: file.Name, Err: fmt.Errorf("open workbook: %w", err)}
	}
	defer f.Close()

	sheet := p.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, &CorruptFileError{Name: file.Name, Err: errors.New("no sheets found in workbook")}
		}
		sheet = sheets[0]
	}

	// Raw values keep full float precision.
	cells, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, &CorruptFileError{Name: file.Name, Err: fmt.Errorf("read sheet %q: %w", sheet, err)}
	}

	rows := make([]sourceRow, 0, len(cells))
	for i, c := range cells {
		rows = append(rows, sourceRow{line: i + 1, cells: c})
	}
	return rows, nil
}

// buildTable maps source rows onto the header, skipping blank rows.
func buildTable(ctx context.Context, name string, format Format, records []sourceRow) (*Table, error) {
	headerAt := -1
	for i, rec := range records {
		if !isEmptyRow(rec.cells) {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return nil, &CorruptFileError{Name: name, Err: errEmptyFile}
	}

	headers := make([]string, len(records[headerAt].cells))
	for i, h := range records[headerAt].cells {
		headers[i] = NormalizeHeader(h)
	}

	table := &Table{Format: format, Headers: headers}
	for i, rec := range records[headerAt+1:] {
		if i%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if isEmptyRow(rec.cells) {
			continue
		}
		table.Rows = append(table.Rows, mapRow(rec, headers))
	}
	return table, nil
}

func mapRow(rec sourceRow, headers []string) RawRow {
	row := RawRow{Line: rec.line, Values: make(map[string]string, len(headers))}
	for i, cell := range rec.cells {
		if i >= len(headers) || headers[i] == "" {
			row.Extra = append(row.Extra, cell)
			continue
		}
		// First occurrence of a repeated header wins.
		if _, dup := row.Values[headers[i]]; dup {
			continue
		}
		row.Values[headers[i]] = cell
	}
	return row
}

// NormalizeHeader trims a header label and drops the " *" required marker
// that templates add.
func NormalizeHeader(h string) string {
	h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	return strings.TrimSpace(strings.TrimSuffix(h, requiredMarker))
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
