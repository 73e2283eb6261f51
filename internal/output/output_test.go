package output

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const statsHTML = `<div class="Chain"><h2>Stats</h2>
<table><tbody>
<tr><td>Implementation</td><td class="Stats-count">Nodes</td></tr>
<tr><td>Subspace Node</td><td class="Stats-count">12</td></tr>
<tr><td>Space Acres</td><td class="Stats-count">30</td></tr>
</tbody></table></div>`

func TestConvertHTMLTableToMarkdown(t *testing.T) {
	out := convertHTMLTableToMarkdown(`<table><tr><th>OS</th><th>Count</th></tr><tr><td>Linux</td><td>4</td></tr><tr><td>macOS</td></tr></table>`)
	require.Equal(t, "<pre>| OS | Count |\n| --- | --- |\n| Linux | 4 |\n| macOS |  |\n</pre>", out)
	require.Equal(t, "", convertHTMLTableToMarkdown("<table></table>"))
}

func TestMarkdownKeepsTables(t *testing.T) {
	out, err := Markdown(statsHTML)
	require.NoError(t, err)
	require.Contains(t, out, "Stats")
	require.Contains(t, out, "| Subspace Node | 12 |")
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	taken := time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)

	path, err := Write(dir, Dump{Network: "taurus", URL: "https://example.test/#list", HTML: statsHTML, Taken: taken})
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(path, "taurus_20240601T123000.md"))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(b), "# taurus\n"))
	require.Contains(t, string(b), "- taken: 2024-06-01T12:30:00Z")
}
