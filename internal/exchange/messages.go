package exchange

// messages.go maps technical errors to user-facing messages with codes for
// support reference. Users quote the code; support looks it up here.
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large
//	FILE002 - Unsupported format (not .csv or .xlsx)
//	FILE003 - Corrupt file (cannot be read as rows)
//	FILE004 - No file selected
//	FILE005 - Empty file (no header row)
//	FILE006 - Invalid schema (caller bug, check logs)
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Invalid date
//	VAL002 - Invalid number
//	VAL003 - Required field empty
//	VAL006 - Value not in allowed list
//	VAL007 - Invalid yes/no value
//	VAL008 - Rejected by a field-specific rule
//	VAL009 - Duplicate row key within the file
//	ROW001 - Row has values outside the header columns
//
// # Workflow Errors (FLOW001-FLOW099)
//
//	FLOW001 - Stale selection: a newer file replaced this one
//	FLOW002 - Nothing to commit: no valid rows
//	FLOW003 - Import closed
//	FLOW004 - Action not allowed in the current step
//
// # Commit Errors (COMMIT001)
//
// The completion handler's own message is shown verbatim.
//
// # Session and Rate Errors
//
//	ENT001  - Unknown record type
//	UPL003  - Import session expired or unknown
//	UPL004  - Request cancelled
//	UPL005  - Request timed out
//	RATE001 - Too many requests
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Check application logs for the original error.

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

// Typed errors are checked first, in order.
var sentinelMessages = []struct {
	target error
	msg    UserMessage
}{
	{ErrFileTooLarge, UserMessage{"File exceeds the maximum upload size", "Split the file into smaller files", "FILE001"}},
	{ErrUnsupportedFormat, UserMessage{"File format is not supported", "Save the file as .csv or .xlsx and try again", CodeUnsupportedFormat}},
	{errEmptyFile, UserMessage{"The uploaded file is empty", "Download the template and add a header row", CodeEmptyFile}},
	{ErrCorruptFile, UserMessage{"The file could not be read", "Re-save the file from your spreadsheet app and try again", CodeCorruptFile}},
	{ErrNoFile, UserMessage{"No file was selected", "Please select a file to import", "FILE004"}},
	{ErrStaleSelection, UserMessage{"A newer file was selected", "Review the preview of the latest file", "FLOW001"}},
	{ErrNothingToCommit, UserMessage{"There are no valid rows to import", "Fix the listed errors and upload the file again", "FLOW002"}},
	{ErrWorkflowClosed, UserMessage{"This import is already finished", "Start a new import", "FLOW003"}},
}

// errorPatterns match lowercase error text with strings.Contains.
// The first matching pattern wins; specific patterns come first.
var errorPatterns = []struct {
	pattern string
	msg     UserMessage
}{
	{"invalid schema", UserMessage{"This import is misconfigured", "Contact support with this code", CodeInvalidSchema}},
	{"invalid date", UserMessage{"Invalid date format detected", "Use YYYY-MM-DD, MM/DD/YYYY, or Jan 15, 2024", CodeInvalidDate}},
	{"invalid number", UserMessage{"Invalid number format detected", "Use a plain decimal number such as 1234.56", CodeInvalidNumber}},
	{"invalid boolean", UserMessage{"Invalid yes/no value", "Use yes/no, true/false, or 1/0", CodeInvalidBool}},
	{"is required", UserMessage{"Required field is empty", "Ensure all required columns have values", CodeRequired}},
	{"must be one of", UserMessage{"Value is not in the allowed list", "Check the allowed values for this field", CodeNotAllowed}},
	{"duplicate", UserMessage{"The same record appears more than once", "Remove the repeated rows", CodeDuplicate}},
	{"outside the header", UserMessage{"Row has more values than the header", "Remove extra cells or add the missing header", CodeColumnCount}},
	{"request body too large", UserMessage{"File exceeds the maximum upload size", "Split the file into smaller files", "FILE001"}},
	{"unknown entity", UserMessage{"This record type does not exist", "Pick a record type from the list", "ENT001"}},
	{"session not found", UserMessage{"Import session not found", "The import may have expired. Please start again", "UPL003"}},
	{"context canceled", UserMessage{"Request was cancelled", "Please try again", "UPL004"}},
	{"context deadline exceeded", UserMessage{"Request timed out", "Try a smaller file or check your connection", "UPL005"}},
	{"rate limit", UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Commit errors keep the completion handler's message unchanged.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var commitErr *CommitError
	if errors.As(err, &commitErr) {
		return UserMessage{
			Message: commitErr.Error(),
			Action:  "Resolve the problem and confirm the import again",
			Code:    "COMMIT001",
		}
	}

	var transErr *TransitionError
	if errors.As(err, &transErr) {
		return UserMessage{
			Message: fmt.Sprintf("Cannot %s right now", transErr.Op),
			Action:  "Refresh the import and follow the steps in order",
			Code:    "FLOW004",
		}
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.target) {
			return sm.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// MapImportError maps a row or file error from an ImportResult using its code.
func MapImportError(ie ImportError) UserMessage {
	for _, sm := range sentinelMessages {
		if sm.msg.Code == ie.Code {
			return UserMessage{Message: ie.Message, Action: sm.msg.Action, Code: ie.Code}
		}
	}
	for _, ep := range errorPatterns {
		if ep.msg.Code == ie.Code {
			return UserMessage{Message: ie.Message, Action: ep.msg.Action, Code: ie.Code}
		}
	}
	return UserMessage{Message: ie.Message, Action: defaultMessage.Action, Code: ie.Code}
}

// FormatUserError formats err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user message.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{Technical: err, User: MapError(err)}
}
