package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/exchange/internal/config"
	"github.com/JonMunkholm/exchange/internal/exchange"
	_ "github.com/JonMunkholm/exchange/internal/exchange/entities"
	"github.com/JonMunkholm/exchange/internal/logging"
	"github.com/JonMunkholm/exchange/internal/store"
)

func TestMain(m *testing.M) {
	slog.SetDefault(slog.New(slog.DiscardHandler))
	os.Exit(m.Run())
}

const equipmentCSV = "Asset Tag,Name,Category\nEQ-9,Boiler,HVAC\nEQ-10,,Bogus\n"

func newTestServer(t *testing.T, mutate func(*config.Config)) (*Server, *store.Memory) {
	t.Helper()
	cfg, err := config.LoadFrom(func(string) string { return "" })
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if mutate != nil {
		mutate(cfg)
	}
	records := store.NewMemory()
	return NewServer(cfg, records), records
}

func do(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, url, name, data string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	if _, err := fw.Write([]byte(data)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, url, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func openSession(t *testing.T, s *Server, entity string) string {
	t.Helper()
	rec := do(s, httptest.NewRequest(http.MethodPost, "/api/import/"+entity, nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("open session status = %d, body = %s", rec.Code, rec.Body)
	}
	var resp sessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	return resp.SessionID
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body, err)
	}
	return resp
}

func TestListEntities(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := do(s, httptest.NewRequest(http.MethodGet, "/api/entities", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Groups   []string     `json:"groups"`
		Entities []entityInfo `json:"entities"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	found := false
	for _, e := range resp.Entities {
		if e.Key == "equipment" {
			found = true
			if len(e.ImportColumns) == 0 || !e.ImportColumns[0].Required {
				t.Errorf("equipment import columns = %+v", e.ImportColumns)
			}
		}
	}
	if !found {
		t.Errorf("equipment missing from %+v", resp.Entities)
	}
}

func TestTemplateDownload(t *testing.T) {
	s, _ := newTestServer(t, nil)

	tests := []struct {
		query    string
		filename string
		ctype    string
	}{
		{query: "", filename: "equipment_template.csv", ctype: "text/csv"},
		{query: "?format=xlsx", filename: "equipment_template.xlsx", ctype: "spreadsheetml"},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			rec := do(s, httptest.NewRequest(http.MethodGet, "/api/template/equipment"+tt.query, nil))
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
			}
			if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, tt.filename) {
				t.Errorf("Content-Disposition = %q, want %s", cd, tt.filename)
			}
			if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, tt.ctype) {
				t.Errorf("Content-Type = %q", ct)
			}
		})
	}
}

func TestUnknownEntity(t *testing.T) {
	s, _ := newTestServer(t, nil)

	for _, path := range []string{"/api/export/widgets", "/api/template/widgets"} {
		rec := do(s, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s status = %d, want 404", path, rec.Code)
		}
		if got := decodeError(t, rec).Code; got != "ENT001" {
			t.Errorf("%s code = %q, want ENT001", path, got)
		}
	}
}

func TestImportFlow(t *testing.T) {
	s, records := newTestServer(t, nil)
	id := openSession(t, s, "equipment")
	base := "/api/import/session/" + id

	rec := do(s, uploadRequest(t, base+"/file", "equipment.csv", equipmentCSV))
	if rec.Code != http.StatusOK {
		t.Fatalf("select file status = %d, body = %s", rec.Code, rec.Body)
	}

	rec = do(s, httptest.NewRequest(http.MethodPost, base+"/preview", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("preview status = %d, body = %s", rec.Code, rec.Body)
	}
	var preview struct {
		Summary struct {
			Total, Success, Failed int
		} `json:"summary"`
		CanCommit bool `json:"canCommit"`
		Errors    []struct {
			Row int `json:"row"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &preview); err != nil {
		t.Fatalf("decode preview: %v", err)
	}
	if preview.Summary.Total != 2 || preview.Summary.Success != 1 || preview.Summary.Failed != 1 || !preview.CanCommit {
		t.Errorf("preview = %+v", preview)
	}
	for _, e := range preview.Errors {
		if e.Row != 3 {
			t.Errorf("error on row %d, want 3", e.Row)
		}
	}

	rec = do(s, httptest.NewRequest(http.MethodPost, base+"/commit", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("commit status = %d, body = %s", rec.Code, rec.Body)
	}

	stored, _ := records.List(context.Background(), "equipment")
	if len(stored) != 1 || stored[0]["asset_tag"] != "EQ-9" {
		t.Errorf("stored = %v", stored)
	}

	rec = do(s, httptest.NewRequest(http.MethodGet, base, nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("session after commit status = %d, want 404", rec.Code)
	}

	rec = do(s, httptest.NewRequest(http.MethodGet, "/api/export/equipment", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "EQ-9,Boiler,HVAC") {
		t.Errorf("export status = %d, body = %q", rec.Code, rec.Body)
	}
}

func TestImportStepErrors(t *testing.T) {
	tests := []struct {
		name   string
		steps  func(t *testing.T, s *Server, base string) *http.Request
		mutate func(*config.Config)
		status int
		code   string
	}{
		{
			name: "preview without file",
			steps: func(t *testing.T, s *Server, base string) *http.Request {
				return httptest.NewRequest(http.MethodPost, base+"/preview", nil)
			},
			status: http.StatusBadRequest,
			code:   "FILE004",
		},
		{
			name: "commit before preview",
			steps: func(t *testing.T, s *Server, base string) *http.Request {
				do(s, uploadRequest(t, base+"/file", "e.csv", equipmentCSV))
				return httptest.NewRequest(http.MethodPost, base+"/commit", nil)
			},
			status: http.StatusConflict,
			code:   "FLOW004",
		},
		{
			name: "nothing to commit",
			steps: func(t *testing.T, s *Server, base string) *http.Request {
				do(s, uploadRequest(t, base+"/file", "e.csv", "Asset Tag,Name,Category\n,,\nEQ-1,,HVAC\n"))
				do(s, httptest.NewRequest(http.MethodPost, base+"/preview", nil))
				return httptest.NewRequest(http.MethodPost, base+"/commit", nil)
			},
			status: http.StatusUnprocessableEntity,
			code:   "FLOW002",
		},
		{
			name: "file too large",
			steps: func(t *testing.T, s *Server, base string) *http.Request {
				return uploadRequest(t, base+"/file", "e.csv", equipmentCSV)
			},
			mutate: func(c *config.Config) { c.Exchange.MaxFileSize = 10 },
			status: http.StatusRequestEntityTooLarge,
			code:   "FILE001",
		},
		{
			name: "missing file field",
			steps: func(t *testing.T, s *Server, base string) *http.Request {
				var body bytes.Buffer
				mw := multipart.NewWriter(&body)
				_ = mw.WriteField("note", "no file here")
				_ = mw.Close()
				req := httptest.NewRequest(http.MethodPost, base+"/file", &body)
				req.Header.Set("Content-Type", mw.FormDataContentType())
				return req
			},
			status: http.StatusBadRequest,
			code:   "FILE004",
		},
		{
			name: "no free job slot",
			steps: func(t *testing.T, s *Server, base string) *http.Request {
				do(s, uploadRequest(t, base+"/file", "e.csv", equipmentCSV))
				if err := s.limiter.Acquire(context.Background()); err != nil {
					t.Fatalf("Acquire() error = %v", err)
				}
				t.Cleanup(s.limiter.Release)
				return httptest.NewRequest(http.MethodPost, base+"/preview", nil)
			},
			mutate: func(c *config.Config) {
				c.Exchange.MaxConcurrent = 1
				c.Exchange.MaxWaitTime = 10 * time.Millisecond
			},
			status: http.StatusTooManyRequests,
			code:   "RATE001",
		},
		{
			name: "unknown session",
			steps: func(t *testing.T, s *Server, base string) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/api/import/session/not-a-uuid/preview", nil)
			},
			status: http.StatusNotFound,
			code:   "UPL003",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t, tt.mutate)
			base := "/api/import/session/" + openSession(t, s, "equipment")

			rec := do(s, tt.steps(t, s, base))
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d, body = %s", rec.Code, tt.status, rec.Body)
			}
			if got := decodeError(t, rec).Code; got != tt.code {
				t.Errorf("code = %q, want %q", got, tt.code)
			}
		})
	}
}

func TestPreviewHTMX(t *testing.T) {
	s, _ := newTestServer(t, nil)
	base := "/api/import/session/" + openSession(t, s, "equipment")
	do(s, uploadRequest(t, base+"/file", "equipment.csv", equipmentCSV))

	req := httptest.NewRequest(http.MethodPost, base+"/preview", nil)
	req.Header.Set("HX-Request", "true")
	rec := do(s, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	body := rec.Body.String()
	for _, want := range []string{`id="import-preview"`, "2 rows: 1 valid, 1 with errors", "Import 1 rows", "EQ-9"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q: %s", want, body)
		}
	}
}

func TestHTMXErrorFragment(t *testing.T) {
	s, _ := newTestServer(t, nil)
	base := "/api/import/session/" + openSession(t, s, "equipment")

	req := httptest.NewRequest(http.MethodPost, base+"/preview", nil)
	req.Header.Set("HX-Request", "true")
	rec := do(s, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, `role="alert"`) || !strings.Contains(body, "FILE004") {
		t.Errorf("body = %s", body)
	}
}

func TestDiscardKeepsFile(t *testing.T) {
	s, _ := newTestServer(t, nil)
	base := "/api/import/session/" + openSession(t, s, "equipment")
	do(s, uploadRequest(t, base+"/file", "equipment.csv", equipmentCSV))
	do(s, httptest.NewRequest(http.MethodPost, base+"/preview", nil))

	rec := do(s, httptest.NewRequest(http.MethodPost, base+"/discard", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("discard status = %d, body = %s", rec.Code, rec.Body)
	}
	var resp sessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Snapshot.FileName != "equipment.csv" || resp.Snapshot.Preview != nil {
		t.Errorf("snapshot = %+v", resp.Snapshot)
	}

	rec = do(s, httptest.NewRequest(http.MethodPost, base+"/preview", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("re-preview status = %d", rec.Code)
	}
}

func TestCloseSession(t *testing.T) {
	s, _ := newTestServer(t, nil)
	base := "/api/import/session/" + openSession(t, s, "equipment")

	rec := do(s, httptest.NewRequest(http.MethodDelete, base, nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("close status = %d", rec.Code)
	}
	rec = do(s, httptest.NewRequest(http.MethodGet, base, nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status after close = %d, want 404", rec.Code)
	}
}

func TestSessionResponseShowsUserFacingError(t *testing.T) {
	e, ok := exchange.Lookup("equipment")
	if !ok {
		t.Fatal("equipment not registered")
	}
	archived := func(context.Context, []exchange.Record) error {
		return errors.New("site HQ-2 is archived")
	}
	sess := &Session{
		ID:       uuid.New(),
		Entity:   e,
		Workflow: exchange.NewWorkflow(e.Import, archived, exchange.WithLogger(slog.Default())),
	}
	if _, err := sess.Workflow.SelectFile(exchange.File{Name: "e.csv", Data: []byte(equipmentCSV)}); err != nil {
		t.Fatalf("SelectFile() error = %v", err)
	}
	if _, err := sess.Workflow.Preview(context.Background()); err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	_ = sess.Workflow.Commit(context.Background())

	got := newSessionResponse(sess).Snapshot.LastError
	if !strings.HasPrefix(got, "site HQ-2 is archived (Code: COMMIT001)") {
		t.Errorf("LastError = %q", got)
	}
}

func TestRespondErrorLogLevel(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		level string
	}{
		{name: "mapped client error", err: exchange.ErrNoFile, level: "level=WARN"},
		{name: "unmapped error", err: errors.New("nil map write in handler"), level: "level=ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			prev := slog.Default()
			slog.SetDefault(logging.New(&buf, "debug", "text"))
			defer slog.SetDefault(prev)

			rec := httptest.NewRecorder()
			respondError(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil), tt.err)

			if !strings.Contains(buf.String(), tt.level) {
				t.Errorf("log = %q, want %s", buf.String(), tt.level)
			}
			if strings.Contains(rec.Body.String(), "nil map write") {
				t.Errorf("technical text leaked: %s", rec.Body)
			}
		})
	}
}
