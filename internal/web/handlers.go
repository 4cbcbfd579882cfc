package web

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/exchange/internal/exchange"
	"github.com/JonMunkholm/exchange/internal/logging"
)

type columnInfo struct {
	Key      string            `json:"key"`
	Title    string            `json:"title"`
	Required bool              `json:"required"`
	Type     exchange.DataType `json:"type"`
	Allowed  []string          `json:"allowed,omitempty"`
}

type entityInfo struct {
	Key           string       `json:"key"`
	Label         string       `json:"label"`
	Group         string       `json:"group"`
	ImportColumns []columnInfo `json:"importColumns"`
	ExportColumns []columnInfo `json:"exportColumns"`
}

func describeColumns(schema exchange.Schema) []columnInfo {
	cols := make([]columnInfo, len(schema.Columns))
	for i, c := range schema.Columns {
		cols[i] = columnInfo{
			Key:      c.Key,
			Title:    c.Label(),
			Required: c.Required,
			Type:     c.Type,
			Allowed:  c.Allowed,
		}
	}
	return cols
}

// entityParam resolves the {entity} URL parameter.
func entityParam(r *http.Request) (exchange.Entity, error) {
	key := chi.URLParam(r, "entity")
	e, ok := exchange.Lookup(key)
	if !ok {
		return exchange.Entity{}, fmt.Errorf("%w: %q", errUnknownEntity, key)
	}
	return e, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStatus reports open sessions and job slot usage.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": s.sessions.Len(),
		"jobs":     s.limiter.Status(),
	})
}

func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	entities := exchange.Entities()
	out := make([]entityInfo, len(entities))
	for i, e := range entities {
		out[i] = entityInfo{
			Key:           e.Key,
			Label:         e.Label,
			Group:         e.Group,
			ImportColumns: describeColumns(e.Import),
			ExportColumns: describeColumns(e.Export),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"groups":   exchange.Groups(),
		"entities": out,
	})
}

// exportOptions reads ?format= and applies the configured CSV layout.
func (s *Server) exportOptions(r *http.Request, filename string) exchange.ExportOptions {
	return exchange.ExportOptions{
		Filename:  filename,
		SheetName: filename,
		Styled:    true,
		Format:    exchange.ParseFormat(r.URL.Query().Get("format")),
		Delimiter: s.cfg.Exchange.DelimiterRune(),
		UseCRLF:   s.cfg.Exchange.UseCRLF,
	}
}

// handleExport downloads every stored record of an entity.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	e, err := entityParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	records, err := s.records.List(r.Context(), e.Key)
	if err != nil {
		respondError(w, r, fmt.Errorf("list %s: %w", e.Key, err))
		return
	}

	opts := s.exportOptions(r, e.Key)
	opts.Timestamp = true
	art, err := exchange.Serialize(records, e.Export, opts)
	if err != nil {
		respondError(w, r, err)
		return
	}

	logging.WithFields(r.Context(), "entity", e.Key).Info("export served",
		"rows", len(records), "format", art.Format, "bytes", len(art.Data))
	writeArtifact(w, art)
}

// handleTemplate downloads the import template of an entity.
func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	e, err := entityParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	art, err := exchange.CreateTemplate(e.Import, e.Samples, s.exportOptions(r, e.Key+"_template"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeArtifact(w, art)
}

func writeArtifact(w http.ResponseWriter, art *exchange.Artifact) {
	w.Header().Set("Content-Type", art.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", art.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(art.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = art.WriteTo(w)
}
