package exchange

// validate.go checks raw rows against a schema and builds typed records.
//
// Every column of every row is checked; a row never stops at its first
// problem, so callers get the full defect list in one pass. A row becomes a
// record only when it produced no errors at all. Errors come out in row
// order, and within a row in schema column order.

import (
	"errors"
	"fmt"
	"strings"
)

// Validation is the outcome of validating a batch of rows.
type Validation struct {
	Valid  []Record      // Records from rows with zero errors, in file order
	Lines  []int         // Source row number of each Valid record
	Errors []ImportError // All errors, row then column order
	Failed int           // Rows with at least one error
}

// Validate checks rows against schema and returns the valid records and every error.
func Validate(rows []RawRow, schema Schema) ([]Record, []ImportError) {
	v := ValidateRows(rows, schema)
	return v.Valid, v.Errors
}

// ValidateRows is Validate with row numbers and failure counts attached.
func ValidateRows(rows []RawRow, schema Schema) Validation {
	var out Validation
	seen := make(map[string]int) // unique key -> first row

	for _, row := range rows {
		rec, errs := validateRow(row, schema)

		if len(errs) == 0 && len(schema.UniqueBy) > 0 {
			if key, ok := uniqueKey(rec, schema.UniqueBy); ok {
				if first, dup := seen[key]; dup {
					errs = append(errs, ImportError{
						Row:     row.Line,
						Field:   schema.UniqueBy[0],
						Code:    CodeDuplicate,
						Message: fmt.Sprintf("duplicate %s (first seen on row %d)", uniqueLabel(schema), first),
					})
				} else {
					seen[key] = row.Line
				}
			}
		}

		if len(errs) > 0 {
			out.Errors = append(out.Errors, errs...)
			out.Failed++
			continue
		}
		out.Valid = append(out.Valid, rec)
		out.Lines = append(out.Lines, row.Line)
	}
	return out
}

// validateRow checks one row against every schema column.
func validateRow(row RawRow, schema Schema) (Record, []ImportError) {
	var errs []ImportError

	if n := countNonEmpty(row.Extra); n > 0 {
		errs = append(errs, ImportError{
			Row:     row.Line,
			Code:    CodeColumnCount,
			Message: fmt.Sprintf("row has %d value(s) outside the header columns", n),
		})
	}

	rec := make(Record, len(schema.Columns))
	for _, col := range schema.Columns {
		raw := lookupCell(row.Values, col)

		if strings.TrimSpace(raw) == "" {
			if col.Required {
				missing := &MissingRequiredFieldError{Row: row.Line, Field: col.Key, Title: col.Label()}
				errs = append(errs, ImportError{
					Row:     row.Line,
					Field:   col.Key,
					Code:    CodeRequired,
					Message: missing.Error(),
				})
			}
			rec[col.Key] = nil
			continue
		}

		value, err := coerceCell(raw, col)
		if err != nil {
			coerceErr := &TypeCoercionError{Row: row.Line, Field: col.Key, Title: col.Label(), Value: raw, Type: col.Type, Err: err}
			errs = append(errs, ImportError{
				Row:     row.Line,
				Field:   col.Key,
				Code:    coercionCode(col),
				Message: coerceErr.Error(),
			})
			continue
		}

		if len(col.Allowed) > 0 && !isAllowed(value, col.Allowed) {
			errs = append(errs, ImportError{
				Row:     row.Line,
				Field:   col.Key,
				Code:    CodeNotAllowed,
				Message: fmt.Sprintf("%s: %q must be one of: %s", col.Label(), raw, strings.Join(col.Allowed, ", ")),
			})
			continue
		}

		rec[col.Key] = value
	}

	return rec, errs
}

// coerceCell runs the custom hook when present, else the built-in strategy.
// A panicking hook is reported as a cell error rather than aborting the batch.
func coerceCell(raw string, col ColumnDefinition) (value any, err error) {
	if col.Coerce == nil {
		return coerce(raw, col.Type)
	}
	defer func() {
		if r := recover(); r != nil {
			value, err = nil, fmt.Errorf("rejected: %v", r)
		}
	}()
	value, err = col.Coerce.Coerce(raw)
	if err != nil && err.Error() == "" {
		err = errors.New("rejected")
	}
	return value, err
}

// lookupCell finds the raw text for col: by title, then key, then the
// normalized title, then case-insensitively.
func lookupCell(values map[string]string, col ColumnDefinition) string {
	label := col.Label()
	if v, ok := values[label]; ok {
		return v
	}
	if v, ok := values[col.Key]; ok {
		return v
	}
	normalized := NormalizeHeader(label)
	if v, ok := values[normalized]; ok {
		return v
	}
	for h, v := range values {
		if strings.EqualFold(h, label) || strings.EqualFold(h, col.Key) || strings.EqualFold(h, normalized) {
			return v
		}
	}
	return ""
}

func isAllowed(value any, allowed []string) bool {
	s := FormatValue(value)
	for _, a := range allowed {
		if strings.EqualFold(strings.TrimSpace(s), a) {
			return true
		}
	}
	return false
}

func uniqueKey(rec Record, keys []string) (string, bool) {
	parts := make([]string, len(keys))
	for i, k := range keys {
		s := FormatValue(rec[k])
		if s == "" {
			return "", false
		}
		parts[i] = strings.ToLower(s)
	}
	return strings.Join(parts, "\x1f"), true
}

func uniqueLabel(schema Schema) string {
	labels := make([]string, len(schema.UniqueBy))
	for i, k := range schema.UniqueBy {
		if col, ok := schema.Column(k); ok {
			labels[i] = col.Label()
		} else {
			labels[i] = k
		}
	}
	return strings.Join(labels, " + ")
}

func countNonEmpty(cells []string) int {
	n := 0
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			n++
		}
	}
	return n
}
