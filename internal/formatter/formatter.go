package formatter

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Table is a titled block of rows, usually what would have been appended to
// one sheet range.
type Table struct {
	Title  string
	Header []string
	Rows   [][]any
}

func Format(t Table, format string) (string, error) {
	switch format {
	case "text":
		return toText(t), nil
	case "csv":
		return toCSV(t)
	case "json":
		b, err := toJSON(t)
		if err != nil {
			return "", err
		}
		return string(b), nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}

func toText(t Table) string {
	w := table.NewWriter()
	w.SetStyle(table.StyleRounded)
	if t.Title != "" {
		w.SetTitle(t.Title)
	}
	if len(t.Header) > 0 {
		header := make(table.Row, len(t.Header))
		for i, h := range t.Header {
			header[i] = h
		}
		w.AppendHeader(header)
	}
	for _, r := range t.Rows {
		w.AppendRow(table.Row(r))
	}
	return w.Render()
}

func toCSV(t Table) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if len(t.Header) > 0 {
		if err := w.Write(t.Header); err != nil {
			return "", err
		}
	}
	for _, r := range t.Rows {
		record := make([]string, len(r))
		for i, v := range r {
			record[i] = fmt.Sprint(v)
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}
	w.Flush()
	return buf.String(), w.Error()
}

func toJSON(t Table) ([]byte, error) {
	type jsonTable struct {
		Range  string   `json:"range"`
		Header []string `json:"header,omitempty"`
		Rows   [][]any  `json:"rows"`
	}
	return json.Marshal(jsonTable{Range: t.Title, Header: t.Header, Rows: t.Rows})
}

// Printer writes rows to Out instead of a spreadsheet. It satisfies the
// sheet appender interface and is safe for concurrent use.
type Printer struct {
	Out    io.Writer
	Format string
	Header []string

	mu sync.Mutex
}

func (p *Printer) Append(_ context.Context, rangeName string, rows [][]any) error {
	s, err := Format(Table{Title: rangeName, Header: p.Header, Rows: rows}, p.Format)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err = fmt.Fprintln(p.Out, s)
	return err
}
