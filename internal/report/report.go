// Package report renders dataset profiles as terminal tables, markdown,
// standalone HTML or JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"civicprofile/domain/core"
	"civicprofile/domain/profiling"
)

// Supported output formats
const (
	FormatTable    = "table"
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
	FormatJSON     = "json"
)

// Document is one report run over one or more datasets
type Document struct {
	RunID       core.RunID                 `json:"run_id"`
	GeneratedAt time.Time                  `json:"generated_at"`
	Profiles    []profiling.DatasetProfile `json:"datasets"`
}

// Extension returns the file extension used when writing format to disk
func Extension(format string) string {
	switch format {
	case FormatMarkdown:
		return ".md"
	case FormatHTML:
		return ".html"
	case FormatJSON:
		return ".json"
	default:
		return ".txt"
	}
}

// ContentType returns the HTTP content type for format
func ContentType(format string) string {
	switch format {
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatJSON:
		return "application/json"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Render writes doc to w in the requested format
func Render(w io.Writer, format string, doc Document) error {
	switch format {
	case FormatTable:
		return renderTables(w, doc)
	case FormatMarkdown:
		_, err := io.WriteString(w, Markdown(doc))
		return err
	case FormatHTML:
		_, err := w.Write(HTML(doc))
		return err
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	default:
		return core.NewInvalidInputError("format", fmt.Sprintf("unsupported report format %q", format))
	}
}

// RenderProfile writes a single dataset profile
func RenderProfile(w io.Writer, format string, p profiling.DatasetProfile) error {
	if format == FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	}
	return Render(w, format, Document{Profiles: []profiling.DatasetProfile{p}})
}

func renderTables(w io.Writer, doc Document) error {
	if !doc.RunID.IsEmpty() {
		fmt.Fprintf(w, "Run %s (%s)\n\n", doc.RunID, doc.GeneratedAt.UTC().Format(time.RFC3339))
	}
	for _, p := range doc.Profiles {
		fmt.Fprintf(w, "%s: %d rows, %d columns\n", heading(p), p.Rows, len(p.Schema))
		for _, s := range sections(p) {
			s.table.SetTitle(s.title)
			s.table.SetOutputMirror(w)
			s.table.Render()
			fmt.Fprintln(w)
		}
	}
	return nil
}

func heading(p profiling.DatasetProfile) string {
	if p.Title != "" {
		return p.Title
	}
	return p.Dataset
}
