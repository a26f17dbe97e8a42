package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

const documentTitle = "Municipal dataset profile"

// Markdown renders doc as a markdown document with one table per section
func Markdown(doc Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", documentTitle)
	if !doc.RunID.IsEmpty() {
		fmt.Fprintf(&b, "Run `%s`, generated %s.\n\n", doc.RunID, doc.GeneratedAt.UTC().Format(time.RFC3339))
	}
	for _, p := range doc.Profiles {
		fmt.Fprintf(&b, "## %s\n\n", heading(p))
		fmt.Fprintf(&b, "%d rows, %d columns.\n\n", p.Rows, len(p.Schema))
		for _, s := range sections(p) {
			fmt.Fprintf(&b, "### %s\n\n", s.title)
			b.WriteString(s.table.RenderMarkdown())
			b.WriteString("\n\n")
		}
	}
	return b.String()
}

// HTML renders doc as a standalone HTML page. Raw HTML in labels, column
// names and titles comes from dataset contents and is dropped.
func HTML(doc Document) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{
		Title: documentTitle,
		Flags: html.CommonFlags | html.CompletePage | html.SkipHTML,
	})
	return markdown.ToHTML([]byte(Markdown(doc)), p, renderer)
}
