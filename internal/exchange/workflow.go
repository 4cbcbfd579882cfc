package exchange

// workflow.go drives the two-phase import: select a file, preview the
// validated result, then commit only the valid rows through the caller's
// completion handler.
//
// State machine:
//
//	idle -> file-selected -> previewing -> previewed -> committing -> closed
//	                               |                        |
//	                               +--------> error <-------+
//
// Every SelectFile bumps a selection token. A preview that finishes after a
// newer selection sees a different token and its result is dropped, so the
// last selection always wins. A failed completion handler returns the
// workflow to previewed with the result intact; nothing is revalidated.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// State is a workflow state.
type State int

const (
	StateIdle State = iota
	StateFileSelected
	StatePreviewing
	StatePreviewed
	StateCommitting
	StateClosed
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFileSelected:
		return "file-selected"
	case StatePreviewing:
		return "previewing"
	case StatePreviewed:
		return "previewed"
	case StateCommitting:
		return "committing"
	case StateClosed:
		return "closed"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	for st := StateIdle; st <= StateError; st++ {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown workflow state %q", text)
}

// CompletionHandler persists the valid records of a confirmed import.
// It is the only persistence hook; the engine never stores data itself.
type CompletionHandler func(ctx context.Context, records []Record) error

// Option configures a Workflow.
type Option func(*Workflow)

// WithPreviewRows caps the sample rows shown in a preview.
func WithPreviewRows(n int) Option {
	return func(w *Workflow) { w.previewRows = n }
}

// WithMaxErrors caps the errors listed in a preview.
func WithMaxErrors(n int) Option {
	return func(w *Workflow) { w.maxErrors = n }
}

// WithLogger sets the workflow logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Workflow) { w.logger = l }
}

// WithImporter replaces the default importer.
func WithImporter(im Importer) Option {
	return func(w *Workflow) { w.importer = im }
}

// Workflow is one import dialog. It is safe for concurrent use.
type Workflow struct {
	schema   Schema
	handler  CompletionHandler
	importer Importer

	previewRows int
	maxErrors   int
	logger      *slog.Logger

	mu      sync.Mutex
	state   State
	token   uint64
	file    *File
	result  *ImportResult
	preview *Preview
	lastErr error
}

// NewWorkflow creates an idle workflow for schema.
func NewWorkflow(schema Schema, handler CompletionHandler, opts ...Option) *Workflow {
	w := &Workflow{
		schema:      schema,
		handler:     handler,
		previewRows: DefaultPreviewRows,
		maxErrors:   DefaultMaxErrors,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.importer.Logger == nil {
		w.importer.Logger = w.logger
	}
	return w
}

// SelectFile stages file and returns its selection token. Any previous
// result is cleared and any in-flight preview becomes stale.
func (w *Workflow) SelectFile(file File) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.state {
	case StateClosed:
		return 0, ErrWorkflowClosed
	case StateCommitting:
		return 0, &TransitionError{From: w.state, Op: "select file"}
	}

	w.token++
	w.file = &file
	w.result = nil
	w.preview = nil
	w.lastErr = nil
	w.state = StateFileSelected

	w.logger.Debug("import file selected", "file", file.Name, "size", file.Size(), "token", w.token)
	return w.token, nil
}

// Preview parses and validates the staged file. The returned preview carries
// the token it was computed for; if another file was selected meanwhile the
// result is discarded and ErrStaleSelection is returned.
func (w *Workflow) Preview(ctx context.Context) (*Preview, error) {
	w.mu.Lock()
	switch w.state {
	case StateClosed:
		w.mu.Unlock()
		return nil, ErrWorkflowClosed
	case StateIdle:
		w.mu.Unlock()
		return nil, ErrNoFile
	case StateFileSelected, StateError:
		if w.file == nil {
			w.mu.Unlock()
			return nil, ErrNoFile
		}
	default:
		from := w.state
		w.mu.Unlock()
		return nil, &TransitionError{From: from, Op: "preview"}
	}
	token := w.token
	file := *w.file
	w.state = StatePreviewing
	w.mu.Unlock()

	start := time.Now()
	result, err := w.runImport(ctx, file)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state == StateClosed {
		return nil, ErrWorkflowClosed
	}
	if token != w.token {
		w.logger.Debug("stale preview discarded", "file", file.Name, "token", token, "current", w.token)
		return nil, ErrStaleSelection
	}
	if err != nil {
		w.state = StateError
		w.lastErr = err
		w.logger.Error("import preview failed", "file", file.Name, "error", err)
		return nil, err
	}

	w.result = &result
	w.preview = BuildPreview(result, w.schema, w.previewRows, w.maxErrors)
	w.preview.Token = token
	w.preview.FileName = file.Name
	w.state = StatePreviewed

	w.logger.Debug("import previewed",
		"file", file.Name,
		"token", token,
		"total", result.Summary.Total,
		"valid", result.Summary.Success,
		"failed", result.Summary.Failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return w.preview, nil
}

// runImport runs the importer, turning cancellation and panics into errors.
func (w *Workflow) runImport(ctx context.Context, file File) (result ImportResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("import panicked: %v", r)
		}
	}()
	result = w.importer.ImportFromFile(ctx, file, w.schema)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ImportResult{}, ctxErr
	}
	return result, nil
}

// Commit passes the valid records of the current preview to the completion
// handler. Only validated rows are passed; failed rows are dropped. On
// handler failure the workflow returns to previewed and a *CommitError is
// returned. On success the workflow is closed.
func (w *Workflow) Commit(ctx context.Context) error {
	w.mu.Lock()
	switch w.state {
	case StateClosed:
		w.mu.Unlock()
		return ErrWorkflowClosed
	case StatePreviewed:
	default:
		from := w.state
		w.mu.Unlock()
		return &TransitionError{From: from, Op: "commit"}
	}
	if w.result == nil || !w.result.HasValidRows() {
		w.mu.Unlock()
		return ErrNothingToCommit
	}
	token := w.token
	data := make([]Record, len(w.result.Data))
	copy(data, w.result.Data)
	w.state = StateCommitting
	w.mu.Unlock()

	start := time.Now()
	err := w.runHandler(ctx, data)

	w.mu.Lock()
	defer w.mu.Unlock()

	var panicErr *handlerPanic
	switch {
	case errors.As(err, &panicErr):
		w.state = StateError
		w.lastErr = err
		w.logger.Error("import commit panicked", "token", token, "error", err)
		return err
	case err != nil:
		commitErr := &CommitError{Err: err}
		w.state = StatePreviewed
		w.lastErr = commitErr
		w.logger.Warn("import commit failed", "token", token, "rows", len(data), "error", err)
		return commitErr
	}

	w.state = StateClosed
	w.lastErr = nil
	w.logger.Debug("import committed",
		"token", token,
		"rows", len(data),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

type handlerPanic struct {
	value any
}

func (p *handlerPanic) Error() string {
	return fmt.Sprintf("completion handler panicked: %v", p.value)
}

func (w *Workflow) runHandler(ctx context.Context, data []Record) (err error) {
	if w.handler == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = &handlerPanic{value: r}
		}
	}()
	return w.handler(ctx, data)
}

// Discard drops the current preview and keeps the staged file, so the user
// can re-preview or pick another file with no stale errors carried over.
func (w *Workflow) Discard() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.state {
	case StatePreviewed, StateError:
	case StateClosed:
		return ErrWorkflowClosed
	default:
		return &TransitionError{From: w.state, Op: "discard"}
	}

	w.result = nil
	w.preview = nil
	w.lastErr = nil
	if w.file == nil {
		w.state = StateIdle
	} else {
		w.state = StateFileSelected
	}
	return nil
}

// Close ends the workflow and releases the staged file. A commit in progress
// cannot be closed.
func (w *Workflow) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state == StateCommitting {
		return &TransitionError{From: w.state, Op: "close"}
	}
	w.token++
	w.state = StateClosed
	w.file = nil
	w.result = nil
	w.preview = nil
	return nil
}

// Snapshot is a read-only view of a workflow.
type Snapshot struct {
	State     State    `json:"state"`
	Token     uint64   `json:"token"`
	FileName  string   `json:"fileName,omitempty"`
	Preview   *Preview `json:"preview,omitempty"`
	LastError string   `json:"lastError,omitempty"`
}

// Snapshot returns the current state.
func (w *Workflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := Snapshot{State: w.state, Token: w.token, Preview: w.preview}
	if w.file != nil {
		s.FileName = w.file.Name
	}
	if w.lastErr != nil {
		s.LastError = w.lastErr.Error()
	}
	return s
}

// Err returns the error behind the error state or the last failed commit.
func (w *Workflow) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}

// Result returns the last validated result, if any.
func (w *Workflow) Result() (ImportResult, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.result == nil {
		return ImportResult{}, false
	}
	return *w.result, true
}

// Schema returns the import schema.
func (w *Workflow) Schema() Schema {
	return w.schema
}
