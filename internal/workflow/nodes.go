package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"telesheet/internal/sheet"
	"telesheet/internal/telemetry"
)

// NodeCollector gathers the nodes of one chain.
type NodeCollector interface {
	Collect(ctx context.Context) ([]telemetry.Node, error)
}

// SheetCreator can add a sheet with a header row.
type SheetCreator interface {
	EnsureSheet(ctx context.Context, title string, header []any) (bool, error)
}

// NodesRunner writes one row per telemetry node into a sheet per day.
type NodesRunner struct {
	Feed   NodeCollector
	Sheet  sheet.Appender // may also implement SheetCreator
	Prefix string         // daily sheets are named Prefix_YYYY-MM-DD; Prefix is the fallback
	Now    func() time.Time
	Log    *slog.Logger
}

// Run returns the range written to and the number of rows.
func (r *NodesRunner) Run(ctx context.Context) (string, int, error) {
	log := r.Log
	if log == nil {
		log = slog.Default()
	}
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}

	rangeName := telemetry.DailySheet(r.Prefix, now())
	if creator, ok := r.Sheet.(SheetCreator); ok {
		created, err := creator.EnsureSheet(ctx, rangeName, telemetry.Header())
		switch {
		case err != nil:
			log.Warn("failed to create daily sheet, using fallback", "sheet", rangeName, "fallback", r.Prefix, "err", err)
			rangeName = r.Prefix
		case created:
			log.Info("created daily sheet", "sheet", rangeName)
		}
	}

	nodes, err := r.Feed.Collect(ctx)
	if err != nil {
		return rangeName, 0, fmt.Errorf("failed to collect nodes: %w", err)
	}
	if len(nodes) == 0 {
		return rangeName, 0, telemetry.ErrNoNodes
	}

	ts := now()
	rows := make([][]any, 0, len(nodes))
	for _, n := range nodes {
		rows = append(rows, n.Row(ts))
	}
	if err := r.Sheet.Append(ctx, rangeName, rows); err != nil {
		return rangeName, 0, err
	}
	log.Info("node rows appended", "sheet", rangeName, "rows", len(rows))
	return rangeName, len(rows), nil
}
