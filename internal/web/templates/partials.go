// Package templates holds the HTMX fragments the import dialog swaps in.
package templates

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/exchange/internal/exchange"
)

// ErrorAlert renders a dismissible error box.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<div class="alert alert-error" role="alert">`)
		fmt.Fprintf(&b, `<p class="alert-message">%s</p>`, templ.EscapeString(message))
		if action != "" {
			fmt.Fprintf(&b, `<p class="alert-action">%s</p>`, templ.EscapeString(action))
		}
		fmt.Fprintf(&b, `<p class="alert-code">Code: %s</p>`, templ.EscapeString(code))
		b.WriteString(`</div>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

// PreviewPanel renders the preview step: counts, the first valid rows, the
// capped error list and the commit button when there is something to
// commit.
func PreviewPanel(sessionID string, schema exchange.Schema, p *exchange.Preview) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<section class="import-preview" id="import-preview">`)
		fmt.Fprintf(&b, `<h3>%s</h3>`, templ.EscapeString(p.FileName))

		if p.FileError != "" {
			fmt.Fprintf(&b, `<p class="file-error">%s</p></section>`, templ.EscapeString(p.FileError))
			_, err := io.WriteString(w, b.String())
			return err
		}

		fmt.Fprintf(&b, `<p class="summary">%d rows: %d valid, %d with errors</p>`,
			p.Summary.Total, p.Summary.Success, p.Summary.Failed)

		if len(p.Rows) > 0 {
			writeRows(&b, schema, p.Rows)
		}
		if len(p.Errors) > 0 {
			writeErrors(&b, p.Errors, p.MoreErrors)
		}

		if p.CanCommit {
			fmt.Fprintf(&b, `<button class="btn btn-primary" hx-post="/api/import/session/%s/commit" hx-target="#import-preview" hx-swap="outerHTML">Import %d rows</button>`,
				templ.EscapeString(sessionID), p.Summary.Success)
		}
		fmt.Fprintf(&b, `<button class="btn" hx-post="/api/import/session/%s/discard" hx-target="#import-preview" hx-swap="outerHTML">Discard</button>`,
			templ.EscapeString(sessionID))
		b.WriteString(`</section>`)

		_, err := io.WriteString(w, b.String())
		return err
	})
}

func writeRows(b *strings.Builder, schema exchange.Schema, rows []exchange.RowPreview) {
	b.WriteString(`<table class="preview-rows"><thead><tr><th>Row</th>`)
	for _, col := range schema.Columns {
		fmt.Fprintf(b, `<th>%s</th>`, templ.EscapeString(col.Label()))
	}
	b.WriteString(`</tr></thead><tbody>`)
	for _, row := range rows {
		fmt.Fprintf(b, `<tr><td>%d</td>`, row.LineNumber)
		for _, col := range schema.Columns {
			fmt.Fprintf(b, `<td>%s</td>`, templ.EscapeString(row.Values[col.Key]))
		}
		b.WriteString(`</tr>`)
	}
	b.WriteString(`</tbody></table>`)
}

func writeErrors(b *strings.Builder, errs []exchange.ImportError, more int) {
	b.WriteString(`<ul class="preview-errors">`)
	for _, e := range errs {
		msg := exchange.MapImportError(e)
		fmt.Fprintf(b, `<li data-code="%s">%s</li>`, templ.EscapeString(msg.Code), templ.EscapeString(e.Error()))
	}
	if more > 0 {
		fmt.Fprintf(b, `<li class="more">and %s more</li>`, strconv.Itoa(more))
	}
	b.WriteString(`</ul>`)
}

// CommitDone confirms a finished import.
func CommitDone(label string, rows int) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<section class="import-done" id="import-preview"><p>Imported %d %s.</p></section>`,
			rows, templ.EscapeString(label))
		return err
	})
}

// Discarded tells the user the preview was dropped and the file is kept.
func Discarded(fileName string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<section id="import-preview"><p>Preview of %s discarded.</p></section>`,
			templ.EscapeString(fileName))
		return err
	})
}
