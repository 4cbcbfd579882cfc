package exchange

import (
	"fmt"
	"strings"
)

// DataType is the declared type of a column. The set is closed; callers that
// need anything else attach a Coercion to the column.
type DataType int

const (
	TypeString DataType = iota
	TypeNumber
	TypeBoolean
	TypeDate
)

// String returns the lowercase type name used in JSON and error messages.
func (t DataType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeNumber:
		return "number"
	case TypeBoolean:
		return "boolean"
	case TypeDate:
		return "date"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t DataType) MarshalText() ([]byte, error) {
	if t < TypeString || t > TypeDate {
		return nil, fmt.Errorf("unknown data type %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *DataType) UnmarshalText(text []byte) error {
	dt, err := ParseDataType(string(text))
	if err != nil {
		return err
	}
	*t = dt
	return nil
}

// ParseDataType converts a type name back into a DataType.
func ParseDataType(s string) (DataType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "string", "text", "":
		return TypeString, nil
	case "number", "numeric":
		return TypeNumber, nil
	case "boolean", "bool":
		return TypeBoolean, nil
	case "date":
		return TypeDate, nil
	}
	return TypeString, fmt.Errorf("unknown data type %q", s)
}

// Record is one typed business record keyed by column key.
type Record map[string]any

// Formatter turns a record value into its exported cell text.
type Formatter func(value any) string

// Coercion converts raw cell text into a typed value. Returning an error marks
// the cell invalid; the error text becomes the ImportError message.
type Coercion interface {
	Coerce(raw string) (any, error)
}

// CoercionFunc adapts a plain function to the Coercion interface.
type CoercionFunc func(raw string) (any, error)

// Coerce calls f(raw).
func (f CoercionFunc) Coerce(raw string) (any, error) {
	return f(raw)
}

// ColumnDefinition describes one field of an export or import schema.
type ColumnDefinition struct {
	Key      string   // Record key, unique within the schema
	Title    string   // Header label written to and matched in files
	Required bool     // Cell must be non-blank on import
	Type     DataType // Declared type used for built-in coercion
	Width    float64  // Optional workbook column width

	Format  Formatter // Export hook; nil uses FormatValue
	Coerce  Coercion  // Import hook; supersedes built-in coercion
	Allowed []string  // Optional case-insensitive allow-list, checked after coercion
}

// Label returns the header label, falling back to the key when no title is set.
func (c ColumnDefinition) Label() string {
	if c.Title != "" {
		return c.Title
	}
	return c.Key
}

// Schema is an ordered list of columns plus optional row-level policies.
type Schema struct {
	Columns []ColumnDefinition

	// UniqueBy lists column keys whose combined values must not repeat across
	// the valid rows of a single import.
	UniqueBy []string
}

// NewSchema builds a schema from columns.
func NewSchema(cols ...ColumnDefinition) Schema {
	return Schema{Columns: cols}
}

// Validate checks that the schema itself is usable.
func (s Schema) Validate() error {
	if len(s.Columns) == 0 {
		return fmt.Errorf("schema has no columns")
	}

	seen := make(map[string]bool, len(s.Columns))
	var errs []string
	for i, col := range s.Columns {
		if strings.TrimSpace(col.Key) == "" {
			errs = append(errs, fmt.Sprintf("column %d has an empty key", i+1))
			continue
		}
		if seen[col.Key] {
			errs = append(errs, fmt.Sprintf("duplicate column key %q", col.Key))
		}
		seen[col.Key] = true
		if col.Type < TypeString || col.Type > TypeDate {
			errs = append(errs, fmt.Sprintf("column %q has unknown data type %d", col.Key, int(col.Type)))
		}
	}
	for _, key := range s.UniqueBy {
		if !seen[key] {
			errs = append(errs, fmt.Sprintf("unique key %q is not a schema column", key))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid schema: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Keys returns column keys in declared order.
func (s Schema) Keys() []string {
	keys := make([]string, len(s.Columns))
	for i, col := range s.Columns {
		keys[i] = col.Key
	}
	return keys
}

// Titles returns header labels in declared order.
func (s Schema) Titles() []string {
	titles := make([]string, len(s.Columns))
	for i, col := range s.Columns {
		titles[i] = col.Label()
	}
	return titles
}

// Column returns the column with the given key.
func (s Schema) Column(key string) (ColumnDefinition, bool) {
	for _, col := range s.Columns {
		if col.Key == key {
			return col, true
		}
	}
	return ColumnDefinition{}, false
}

// Project returns a copy of r restricted to the schema keys.
func (s Schema) Project(r Record) Record {
	out := make(Record, len(s.Columns))
	for _, col := range s.Columns {
		if v, ok := r[col.Key]; ok {
			out[col.Key] = v
		}
	}
	return out
}
