// Package report builds the spreadsheet rows.
package report

import (
	"time"

	"telesheet/internal/scraper"
)

// TimeLayout matches JavaScript's Date.toISOString, which existing sheets use.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// Missing is written for counts that could not be read.
const Missing = ""

// Header names the columns of a Row in order.
var Header = []string{
	"Timestamp",
	"Node Count",
	"Space Pledged",
	"Subspace Nodes",
	"Space Acres Nodes",
	"Linux Nodes",
	"Windows Nodes",
	"macOS Nodes",
}

// Row is one appended line for one network.
type Row struct {
	Network      string
	Timestamp    time.Time
	NodeCount    int
	SpacePledged string
	Stats        scraper.Stats
}

// NewRow refuses to build a row without a node count.
func NewRow(network string, ts time.Time, stats scraper.Stats, spacePledged string) (Row, error) {
	if stats.NodeCount == nil {
		return Row{}, scraper.ErrNoNodeCount
	}
	return Row{
		Network:      network,
		Timestamp:    ts,
		NodeCount:    *stats.NodeCount,
		SpacePledged: spacePledged,
		Stats:        stats,
	}, nil
}

func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// Values returns the cells in Header order.
func (r Row) Values() []any {
	values := []any{FormatTime(r.Timestamp), r.NodeCount, r.SpacePledged}
	for _, v := range r.Stats.Secondary() {
		if v == nil {
			values = append(values, Missing)
			continue
		}
		values = append(values, *v)
	}
	return values
}
