package output

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

// Dump is a snapshot of a dashboard page taken when extraction came up short.
type Dump struct {
	Network string
	URL     string
	HTML    string
	Taken   time.Time
}

// Markdown converts page HTML to markdown. Tables are rendered as markdown
// tables so the dashboard's stats rows stay readable.
func Markdown(html string) (string, error) {
	converter := md.NewConverter("", true, nil)

	markdown, err := converter.ConvertString(convertTablesInHTML(html))
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML to Markdown: %w", err)
	}
	return strings.TrimSpace(markdown), nil
}

// Write renders d as markdown into dir and returns the file path.
func Write(dir string, d Dump) (string, error) {
	body, err := Markdown(d.HTML)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create dump dir: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", d.Network)
	fmt.Fprintf(&sb, "- url: %s\n- taken: %s\n\n", d.URL, d.Taken.UTC().Format(time.RFC3339))
	sb.WriteString(body)
	sb.WriteString("\n")

	name := fmt.Sprintf("%s_%s.md", d.Network, d.Taken.UTC().Format("20060102T150405"))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return "", fmt.Errorf("failed to write dump: %w", err)
	}
	return path, nil
}

var tableRe = regexp.MustCompile(`(?is)<table\b[^>]*>.*?</table>`)

func convertTablesInHTML(htmlContent string) string {
	return tableRe.ReplaceAllStringFunc(htmlContent, convertHTMLTableToMarkdown)
}

// convertHTMLTableToMarkdown renders one table. The result is wrapped in <pre>
// so the markdown converter keeps the pipes and line breaks intact.
func convertHTMLTableToMarkdown(tableHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(tableHTML))
	if err != nil {
		return tableHTML
	}

	var rows [][]string
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		var cells []string
		row.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(cell.Text()))
		})
		if len(cells) > 0 {
			rows = append(rows, cells)
		}
	})
	if len(rows) == 0 {
		return ""
	}

	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		b.WriteString("|")
		for i := 0; i < width; i++ {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			b.WriteString(" " + cell + " |")
		}
		b.WriteString("\n")
	}

	writeRow(rows[0])
	sep := make([]string, width)
	for i := range sep {
		sep[i] = "---"
	}
	writeRow(sep)
	for _, r := range rows[1:] {
		writeRow(r)
	}

	return "<pre>" + escape(b.String()) + "</pre>"
}

func escape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(s)
}
