package web

// handlers_import.go drives the two-phase import dialog over HTTP.
//
// A client opens a session for an entity, posts a file, previews it, and
// then commits or discards. Each step maps onto one exchange.Workflow
// transition; the workflow itself enforces ordering and last-selection-wins.

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/exchange/internal/exchange"
	"github.com/JonMunkholm/exchange/internal/logging"
	"github.com/JonMunkholm/exchange/internal/web/templates"
)

// multipartOverhead is allowed on top of the file size for form framing.
const multipartOverhead = 1 << 20

type sessionResponse struct {
	SessionID string            `json:"session_id"`
	Entity    string            `json:"entity"`
	Snapshot  exchange.Snapshot `json:"snapshot"`
}

// newSessionResponse describes sess. The technical last error is replaced
// by its user-facing form.
func newSessionResponse(sess *Session) sessionResponse {
	snap := sess.Workflow.Snapshot()
	snap.LastError = exchange.FormatUserError(sess.Workflow.Err())
	return sessionResponse{
		SessionID: sess.ID.String(),
		Entity:    sess.Entity.Key,
		Snapshot:  snap,
	}
}

// sessionParam resolves the {id} URL parameter.
func (s *Server) sessionParam(r *http.Request) (*Session, error) {
	return s.sessions.Get(chi.URLParam(r, "id"))
}

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	e, err := entityParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	sess := s.sessions.Open(e)
	logging.WithFields(r.Context(), "entity", e.Key, "session_id", sess.ID).Info("import session opened")
	writeJSON(w, http.StatusCreated, newSessionResponse(sess))
}

func (s *Server) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessionParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(sess))
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Remove(chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSelectFile stages the multipart "file" field. Selecting again
// replaces the previous file and invalidates its preview.
func (s *Server) handleSelectFile(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessionParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	maxSize := s.cfg.Exchange.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	part, header, err := r.FormFile("file")
	if err != nil {
		var sizeErr *http.MaxBytesError
		switch {
		case errors.As(err, &sizeErr):
			err = exchange.ErrFileTooLarge
		case errors.Is(err, http.ErrMissingFile):
			err = exchange.ErrNoFile
		}
		respondError(w, r, err)
		return
	}
	defer part.Close()

	file, err := exchange.ReadFile(header.Filename, part, maxSize)
	if err != nil {
		respondError(w, r, err)
		return
	}

	token, err := sess.Workflow.SelectFile(file)
	if err != nil {
		respondError(w, r, err)
		return
	}

	logging.WithFields(r.Context(), "entity", sess.Entity.Key, "session_id", sess.ID).Info("import file selected",
		"file", file.Name, "size", file.Size(), "token", token)
	writeJSON(w, http.StatusOK, map[string]any{
		"token":    token,
		"fileName": file.Name,
		"size":     file.Size(),
	})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessionParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var preview *exchange.Preview
	err = s.limiter.Run(r.Context(), func(ctx context.Context) error {
		var err error
		preview, err = sess.Workflow.Preview(ctx)
		return err
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = templates.PreviewPanel(sess.ID.String(), sess.Entity.Import, preview).Render(r.Context(), w)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessionParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	err = s.limiter.Run(r.Context(), sess.Workflow.Commit)
	if err != nil {
		respondError(w, r, err)
		return
	}

	rows := 0
	if result, ok := sess.Workflow.Result(); ok {
		rows = result.Summary.Success
	}
	// The workflow is closed after a successful commit.
	_ = s.sessions.Remove(sess.ID.String())
	logging.WithFields(r.Context(), "entity", sess.Entity.Key, "session_id", sess.ID).Info("import committed", "rows", rows)

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = templates.CommitDone(sess.Entity.Label, rows).Render(r.Context(), w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entity":   sess.Entity.Key,
		"imported": rows,
	})
}

func (s *Server) handleDiscard(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessionParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	if err := sess.Workflow.Discard(); err != nil {
		respondError(w, r, err)
		return
	}

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = templates.Discarded(sess.Workflow.Snapshot().FileName).Render(r.Context(), w)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(sess))
}
