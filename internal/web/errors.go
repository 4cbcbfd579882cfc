package web

// errors.go turns handler errors into responses.
//
// Every error is logged with its technical text and the request ID, then
// mapped through exchange.MapError so the client only sees the friendly
// message, the suggested action and a support code. HTMX requests get an
// alert fragment; everything else gets JSON.

import (
	"context"
	"errors"
	"net/http"

	"github.com/JonMunkholm/exchange/internal/exchange"
	"github.com/JonMunkholm/exchange/internal/logging"
	"github.com/JonMunkholm/exchange/internal/web/templates"
)

var errUnknownEntity = errors.New("unknown entity")

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs err and writes the user-facing version of it.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	ue := exchange.NewUserError(err)
	msg := ue.User

	logger := logging.FromContext(r.Context())
	attrs := []any{"path", r.URL.Path, "status", status, "code", msg.Code, "error", ue.Technical.Error()}
	// Unmapped errors are bugs or outages even when the status is 4xx.
	if status >= http.StatusInternalServerError || !exchange.IsUserFacing(err) {
		logger.Error("request error", attrs...)
	} else {
		logger.Warn("request error", attrs...)
	}

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		_ = templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w)
		return
	}

	writeJSON(w, status, ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// statusFor picks the HTTP status for err.
func statusFor(err error) int {
	var (
		transErr  *exchange.TransitionError
		commitErr *exchange.CommitError
		sizeErr   *http.MaxBytesError
	)

	switch {
	case errors.Is(err, errSessionNotFound), errors.Is(err, errUnknownEntity):
		return http.StatusNotFound
	case errors.Is(err, exchange.ErrFileTooLarge), errors.As(err, &sizeErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrTooManyImports):
		return http.StatusTooManyRequests
	case errors.Is(err, exchange.ErrNoFile):
		return http.StatusBadRequest
	case errors.Is(err, exchange.ErrWorkflowClosed):
		return http.StatusGone
	case errors.Is(err, exchange.ErrStaleSelection), errors.As(err, &transErr):
		return http.StatusConflict
	case errors.Is(err, exchange.ErrNothingToCommit):
		return http.StatusUnprocessableEntity
	case errors.As(err, &commitErr):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// isHTMX reports whether the request came from HTMX.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
