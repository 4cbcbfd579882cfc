package exchange

// Sample limits
const (
	DefaultPreviewRows = 10
	DefaultMaxErrors   = 20
)

// RowPreview is one valid row rendered as display text.
type RowPreview struct {
	LineNumber int               `json:"lineNumber"`
	Values     map[string]string `json:"values"`
}

// Preview is what a user reviews before confirming an import.
type Preview struct {
	Token      uint64        `json:"token"`
	FileName   string        `json:"fileName"`
	Summary    Summary       `json:"summary"`
	Errors     []ImportError `json:"errors"`
	MoreErrors int           `json:"moreErrors"`
	Rows       []RowPreview  `json:"rows"`
	CanCommit  bool          `json:"canCommit"`
	FileError  string        `json:"fileError,omitempty"`
}

// BuildPreview caps result for display. Counts always reflect the full
// result; only the listed errors and sample rows are truncated.
func BuildPreview(result ImportResult, schema Schema, maxRows, maxErrors int) *Preview {
	if maxRows <= 0 {
		maxRows = DefaultPreviewRows
	}
	if maxErrors <= 0 {
		maxErrors = DefaultMaxErrors
	}

	p := &Preview{
		Summary:   result.Summary,
		Errors:    []ImportError{},
		Rows:      []RowPreview{},
		CanCommit: result.HasValidRows(),
	}

	if fe, ok := result.FileError(); ok {
		p.FileError = fe.Message
	}

	n := len(result.Errors)
	if n > maxErrors {
		p.MoreErrors = n - maxErrors
		n = maxErrors
	}
	p.Errors = append(p.Errors, result.Errors[:n]...)

	for i := 0; i < len(result.Data) && i < maxRows; i++ {
		row := RowPreview{Values: make(map[string]string, len(schema.Columns))}
		if i < len(result.Lines) {
			row.LineNumber = result.Lines[i]
		}
		for _, col := range schema.Columns {
			v := result.Data[i][col.Key]
			switch {
			case v == nil:
				row.Values[col.Key] = ""
			case col.Format != nil:
				row.Values[col.Key] = col.Format(v)
			default:
				row.Values[col.Key] = FormatValue(v)
			}
		}
		p.Rows = append(p.Rows, row)
	}

	return p
}
