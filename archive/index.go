package archive

import (
	"fmt"
	"html"
	"os"
	"path/filepath"

	"github.com/microcosm-cc/bluemonday"
)

// maxDisplayURL is how many runes of a URL the index shows before eliding.
const maxDisplayURL = 100

// indexHeader is written once when the index file is created. Rows are
// appended after it; the file is intentionally never closed with </table>
// so appends stay cheap and the page still renders.
const indexHeader = `<!doctype html>
<html>
<head>
    <meta charset='utf-8'>
    <title>Tab Archive</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif; margin: 20px; }
        h1 { color: #333; }
        table { border-collapse: collapse; width: 100%; margin-top: 20px; }
        th, td { border: 1px solid #ddd; padding: 8px 12px; text-align: left; }
        th { background: #f8f9fa; font-weight: 600; }
        tr:nth-child(even) { background: #f9f9f9; }
        a { color: #0066cc; text-decoration: none; }
        a:hover { text-decoration: underline; }
        .url { color: #666; font-size: 0.9em; }
        .domain { background: #e3f2fd; padding: 2px 6px; border-radius: 3px; font-size: 0.8em; }
        .size { text-align: right; font-family: monospace; }
        .search-box { margin: 10px 0; padding: 8px; width: 300px; border: 1px solid #ddd; border-radius: 4px; }
    </style>
    <script>
        function searchTable() {
            const filter = document.getElementById('searchInput').value.toLowerCase();
            const rows = document.querySelector('table').getElementsByTagName('tr');
            for (let i = 1; i < rows.length; i++) {
                rows[i].style.display = rows[i].textContent.toLowerCase().includes(filter) ? '' : 'none';
            }
        }
    </script>
</head>
<body>
    <h1>Archived Tabs</h1>
    <input type="text" id="searchInput" class="search-box" placeholder="Search archived tabs..." onkeyup="searchTable()">
    <table>
<tr><th>Date</th><th>Title</th><th>URL</th><th>Domain</th><th>Size</th><th>PDF</th></tr>
`

// Index is the append-only HTML listing at <root>/index.html.
type Index struct {
	root   string
	path   string
	policy *bluemonday.Policy
}

// NewIndex creates an Index rooted at dir. The file itself is created on
// the first Append.
func NewIndex(dir string) *Index {
	return &Index{
		root: dir,
		path: filepath.Join(dir, "index.html"),
		// Page titles come from untrusted pages; strip everything.
		policy: bluemonday.StrictPolicy(),
	}
}

// Path returns the index file location.
func (x *Index) Path() string { return x.path }

// Append writes one archive row, creating the file with its header first
// if needed.
func (x *Index) Append(rec Record) error {
	if err := x.ensureHeader(); err != nil {
		return err
	}

	f, err := os.OpenFile(x.path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("archive: open index: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(x.row(rec)); err != nil {
		return fmt.Errorf("archive: append index row: %w", err)
	}
	return nil
}

func (x *Index) ensureHeader() error {
	if _, err := os.Stat(x.path); err == nil {
		return nil
	}
	if err := os.MkdirAll(x.root, 0o755); err != nil {
		return fmt.Errorf("archive: mkdir root: %w", err)
	}
	if err := os.WriteFile(x.path, []byte(indexHeader), 0o644); err != nil {
		return fmt.Errorf("archive: write index header: %w", err)
	}
	return nil
}

func (x *Index) row(rec Record) string {
	title := x.policy.Sanitize(rec.Title)

	displayURL := rec.URL
	if runes := []rune(displayURL); len(runes) > maxDisplayURL {
		displayURL = string(runes[:maxDisplayURL]) + "..."
	}

	pdfHref := filepath.ToSlash(rec.PDFPath)

	return fmt.Sprintf(
		"<tr>"+
			"<td>%s</td>"+
			"<td><strong>%s</strong></td>"+
			"<td><a href='%s' target='_blank' class='url'>%s</a></td>"+
			"<td><span class='domain'>%s</span></td>"+
			"<td class='size'>%s</td>"+
			"<td><a href='%s' target='_blank'>%s</a></td>"+
			"</tr>\n",
		rec.ArchivedAt.Format("2006-01-02 15:04"),
		title,
		html.EscapeString(rec.URL),
		html.EscapeString(displayURL),
		html.EscapeString(rec.Domain),
		humanSize(rec.Size),
		html.EscapeString(pdfHref),
		html.EscapeString(filepath.Base(rec.PDFPath)),
	)
}

// humanSize renders a byte count as B/KB/MB/GB with one decimal.
func humanSize(n int64) string {
	if n == 0 {
		return "0 B"
	}
	units := []string{"B", "KB", "MB", "GB"}
	size := float64(n)
	i := 0
	for size >= 1024 && i < len(units)-1 {
		size /= 1024
		i++
	}
	return fmt.Sprintf("%.1f %s", size, units[i])
}
