package exchange

// errors.go defines the error taxonomy of the exchange engine.
//
// File-level errors (UnsupportedFormatError, CorruptFileError) block an entire
// import and surface as a single row-0 ImportError. Field-level errors
// (MissingRequiredFieldError, TypeCoercionError) block only their row and are
// collected exhaustively. CommitError wraps whatever the caller's completion
// handler returned and never invalidates an ImportResult.

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for errors.Is checks.
var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrCorruptFile       = errors.New("corrupt file")
	ErrFileTooLarge      = errors.New("file too large")
	ErrNoFile            = errors.New("no file selected")
	ErrStaleSelection    = errors.New("stale selection: a newer file was selected")
	ErrNothingToCommit   = errors.New("nothing to commit: no valid rows")
	ErrWorkflowClosed    = errors.New("workflow closed")
)

// Error codes carried by ImportError.Code.
const (
	CodeUnsupportedFormat = "FILE002"
	CodeCorruptFile       = "FILE003"
	CodeEmptyFile         = "FILE005"
	CodeInvalidSchema     = "FILE006"
	CodeInvalidDate       = "VAL001"
	CodeInvalidNumber     = "VAL002"
	CodeRequired          = "VAL003"
	CodeNotAllowed        = "VAL006"
	CodeInvalidBool       = "VAL007"
	CodeCustom            = "VAL008"
	CodeDuplicate         = "VAL009"
	CodeColumnCount       = "ROW001"
)

// ImportError describes one problem found during an import.
// Row 0 means the whole file; an empty Field means the whole row.
type ImportError struct {
	Row     int    `json:"row"`
	Field   string `json:"field,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func (e ImportError) Error() string {
	switch {
	case e.Row == 0:
		return e.Message
	case e.Field == "":
		return fmt.Sprintf("row %d: %s", e.Row, e.Message)
	default:
		return fmt.Sprintf("row %d, %s: %s", e.Row, e.Field, e.Message)
	}
}

// UnsupportedFormatError is returned when a file is not a recognized tabular format.
type UnsupportedFormatError struct {
	Name   string
	Reason string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unsupported file format for %q: %s", e.Name, e.Reason)
	}
	return fmt.Sprintf("unsupported file format for %q", e.Name)
}

func (e *UnsupportedFormatError) Is(target error) bool {
	return target == ErrUnsupportedFormat
}

// CorruptFileError is returned when a recognized file cannot be decoded into rows.
type CorruptFileError struct {
	Name string
	Err  error
}

func (e *CorruptFileError) Error() string {
	return fmt.Sprintf("corrupt file %q: %v", e.Name, e.Err)
}

func (e *CorruptFileError) Unwrap() error {
	return e.Err
}

func (e *CorruptFileError) Is(target error) bool {
	return target == ErrCorruptFile
}

// MissingRequiredFieldError is a required column left blank on a row.
type MissingRequiredFieldError struct {
	Row   int
	Field string
	Title string
}

func (e *MissingRequiredFieldError) Error() string {
	return e.Title + " is required"
}

// TypeCoercionError is a cell whose text could not be converted to its column type.
type TypeCoercionError struct {
	Row   int
	Field string
	Title string
	Value string
	Type  DataType
	Err   error
}

func (e *TypeCoercionError) Error() string {
	if e.Err != nil && !isBuiltinCoercionErr(e.Err) {
		return fmt.Sprintf("%s: %q %v", e.Title, e.Value, e.Err)
	}
	return fmt.Sprintf("%s: invalid %s %q (%s)", e.Title, e.Type, e.Value, typeErrorHint(e.Type))
}

func (e *TypeCoercionError) Unwrap() error {
	return e.Err
}

func isBuiltinCoercionErr(err error) bool {
	return errors.Is(err, errInvalidNumber) || errors.Is(err, errInvalidBool) || errors.Is(err, errInvalidDate)
}

// CommitError wraps a failure returned by the caller's completion handler.
// Its message is the handler's message, shown verbatim.
type CommitError struct {
	Err error
}

func (e *CommitError) Error() string {
	return e.Err.Error()
}

func (e *CommitError) Unwrap() error {
	return e.Err
}

// TransitionError reports an operation attempted in a state that does not allow it.
type TransitionError struct {
	From State
	Op   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("workflow: cannot %s while %s", e.Op, e.From)
}

// TemplateError reports sample rows that fail their own schema.
type TemplateError struct {
	Errors []ImportError
}

func (e *TemplateError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, ie := range e.Errors {
		msgs = append(msgs, ie.Error())
	}
	return "template samples fail validation: " + strings.Join(msgs, "; ")
}

// fileLevelError converts a parser failure into its row-0 ImportError.
func fileLevelError(err error) ImportError {
	code := CodeCorruptFile
	switch {
	case errors.Is(err, ErrUnsupportedFormat):
		code = CodeUnsupportedFormat
	case errors.Is(err, errEmptyFile):
		code = CodeEmptyFile
	}
	return ImportError{Row: 0, Code: code, Message: err.Error()}
}

// coercionCode picks the error code for a failed cell.
func coercionCode(col ColumnDefinition) string {
	if col.Coerce != nil {
		return CodeCustom
	}
	switch col.Type {
	case TypeNumber:
		return CodeInvalidNumber
	case TypeBoolean:
		return CodeInvalidBool
	case TypeDate:
		return CodeInvalidDate
	default:
		return CodeCustom
	}
}
