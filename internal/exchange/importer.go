package exchange

import (
	"context"
	"log/slog"
	"time"
)

// Summary counts the rows of one import.
type Summary struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Failed  int `json:"failed"`
}

// ImportResult is the outcome of importing one file.
//
// Success is true only when Errors is empty. Zero rows with zero errors is a
// successful, empty import; callers decide whether that is a no-op.
type ImportResult struct {
	Data    []Record      `json:"data"`
	Lines   []int         `json:"lines,omitempty"`
	Errors  []ImportError `json:"errors"`
	Success bool          `json:"success"`
	Summary Summary       `json:"summary"`
}

// HasValidRows reports whether at least one row passed validation.
func (r ImportResult) HasValidRows() bool {
	return len(r.Data) > 0
}

// FileError returns the row-0 error when the whole file was rejected.
func (r ImportResult) FileError() (ImportError, bool) {
	if len(r.Errors) == 1 && r.Errors[0].Row == 0 {
		return r.Errors[0], true
	}
	return ImportError{}, false
}

// Importer parses and validates files. The zero value is ready to use.
type Importer struct {
	Parser Parser
	Logger *slog.Logger
}

// ImportFromFile imports file with a zero-value Importer.
func ImportFromFile(ctx context.Context, file File, schema Schema) ImportResult {
	return Importer{}.ImportFromFile(ctx, file, schema)
}

// ImportFromFile parses file and validates every row against schema.
// It never fails: file-level problems come back as a single row-0 error and
// the result has no rows.
func (im Importer) ImportFromFile(ctx context.Context, file File, schema Schema) ImportResult {
	logger := im.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("file", file.Name, "size", file.Size())
	start := time.Now()

	if err := schema.Validate(); err != nil {
		logger.Error("import schema invalid", "error", err)
		return fileFailure(ImportError{Code: CodeInvalidSchema, Message: err.Error()})
	}

	table, err := im.Parser.Parse(ctx, file)
	if err != nil {
		logger.Warn("import file rejected", "error", err)
		return fileFailure(fileLevelError(err))
	}

	v := ValidateRows(table.Rows, schema)
	result := ImportResult{
		Data:    v.Valid,
		Lines:   v.Lines,
		Errors:  v.Errors,
		Success: len(v.Errors) == 0,
		Summary: Summary{
			Total:   len(table.Rows),
			Success: len(v.Valid),
			Failed:  v.Failed,
		},
	}
	if result.Data == nil {
		result.Data = []Record{}
	}
	if result.Errors == nil {
		result.Errors = []ImportError{}
	}

	logger.Debug("import validated",
		"format", table.Format,
		"total", result.Summary.Total,
		"valid", result.Summary.Success,
		"failed", result.Summary.Failed,
		"errors", len(result.Errors),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result
}

func fileFailure(e ImportError) ImportResult {
	return ImportResult{
		Data:   []Record{},
		Errors: []ImportError{e},
	}
}
