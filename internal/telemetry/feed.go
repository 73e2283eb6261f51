// Package telemetry collects per-node details from a Substrate telemetry feed.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"telesheet/internal/report"
)

// ErrNoNodes is returned when the feed produced no node before the timeout.
var ErrNoNodes = errors.New("no nodes received from telemetry feed")

// Feed actions this package understands.
const (
	actionSubscribed   = 1
	actionAddedNode    = 3
	actionSubscribedTo = 13
)

// Columns names the cells of Node.Row.
var Columns = []string{"Timestamp", "Node Name", "Last Restart"}

// Header is Columns as a sheet row.
func Header() []any {
	out := make([]any, len(Columns))
	for i, c := range Columns {
		out[i] = c
	}
	return out
}

// Node is one telemetry participant.
type Node struct {
	ID          string
	Name        string
	Type        string
	Version     string
	PeerID      string
	LastRestart time.Time // zero when the feed did not report it
}

// Row renders n for the nodes sheet.
func (n Node) Row(ts time.Time) []any {
	restart := report.Missing
	if !n.LastRestart.IsZero() {
		restart = report.FormatTime(n.LastRestart)
	}
	return []any{report.FormatTime(ts), n.Name, restart}
}

// DailySheet names the sheet that holds the nodes of one UTC day.
func DailySheet(prefix string, now time.Time) string {
	return prefix + "_" + now.UTC().Format("2006-01-02")
}

// Event is the decoded content of one feed message.
type Event struct {
	Subscribed bool
	Nodes      []Node
}

// ParseMessage decodes a feed message of the form [action, ...payload].
// For node details every array in the payload is a node, so both a batch
// [3, n1, n2] and the interleaved [3, n1, 3, n2] form yield all nodes.
// Unknown actions, scalars and malformed nodes are skipped.
func ParseMessage(data []byte) (Event, error) {
	var ev Event
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return ev, fmt.Errorf("failed to decode feed message: %w", err)
	}
	if len(items) == 0 {
		return ev, nil
	}
	action, ok := actionCode(items[0])
	if !ok {
		return ev, nil
	}
	switch action {
	case actionSubscribed, actionSubscribedTo:
		ev.Subscribed = true
	case actionAddedNode:
		for _, item := range items[1:] {
			if n, ok := parseNode(item); ok {
				ev.Nodes = append(ev.Nodes, n)
			}
		}
	}
	return ev, nil
}

func actionCode(raw json.RawMessage) (int, bool) {
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	return n, err == nil
}

// parseNode reads [id, [name, type, version, _, peerId], ..., startupMs] with
// the startup time at index 7.
func parseNode(raw json.RawMessage) (Node, bool) {
	var fields []json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || len(fields) < 2 {
		return Node{}, false
	}
	id := scalar(fields[0])
	if id == "" {
		return Node{}, false
	}

	var details []json.RawMessage
	if err := json.Unmarshal(fields[1], &details); err != nil || len(details) == 0 {
		return Node{}, false
	}
	n := Node{ID: id, Name: scalar(details[0])}
	if len(details) > 1 {
		n.Type = scalar(details[1])
	}
	if len(details) > 2 {
		n.Version = scalar(details[2])
	}
	if len(details) > 4 {
		n.PeerID = scalar(details[4])
	}
	if len(fields) > 7 {
		var ms *float64
		if err := json.Unmarshal(fields[7], &ms); err == nil && ms != nil {
			n.LastRestart = time.UnixMilli(int64(*ms)).UTC()
		}
	}
	return n, true
}

// scalar returns a JSON string or number as text, anything else as "".
func scalar(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// Collector subscribes to one chain and gathers nodes until the feed goes
// quiet.
type Collector struct {
	URL     string
	ChainID string
	Quiet   time.Duration // done after this long without a new node
	Timeout time.Duration // overall limit
	Log     *slog.Logger
}

// NewCollector uses a 15 second quiet period and a 2 minute timeout.
func NewCollector(url, chainID string, log *slog.Logger) *Collector {
	return &Collector{URL: url, ChainID: chainID, Quiet: 15 * time.Second, Timeout: 2 * time.Minute, Log: log}
}

// Collect returns the nodes seen in order of first appearance. On timeout
// the nodes seen so far are returned; ErrNoNodes if there are none.
func (c *Collector) Collect(ctx context.Context) ([]Node, error) {
	log := c.Log
	if log == nil {
		log = slog.Default()
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial telemetry feed: %w", err)
	}
	defer conn.Close()
	log.Info("connected to telemetry feed", "url", c.URL)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("subscribe:"+c.ChainID)); err != nil {
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	msgs := make(chan []byte)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			select {
			case msgs <- data:
			case <-done:
				return
			}
		}
	}()

	var (
		nodes      = map[string]Node{}
		order      []string
		subscribed bool
		lastNode   = time.Now()
	)
	result := func() []Node {
		out := make([]Node, 0, len(order))
		for _, id := range order {
			out = append(out, nodes[id])
		}
		return out
	}

	timeout := time.NewTimer(c.Timeout)
	defer timeout.Stop()
	tick := time.NewTicker(c.tickInterval())
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case <-timeout.C:
			if len(order) == 0 {
				return nil, ErrNoNodes
			}
			log.Warn("telemetry timeout, using partial result", "nodes", len(order))
			return result(), nil

		case err := <-readErr:
			if len(order) == 0 {
				return nil, fmt.Errorf("failed to read telemetry feed: %w", err)
			}
			log.Warn("telemetry feed closed, using partial result", "nodes", len(order), "err", err)
			return result(), nil

		case data := <-msgs:
			ev, err := ParseMessage(data)
			if err != nil {
				log.Debug("skipping feed message", "err", err)
				continue
			}
			if ev.Subscribed && !subscribed {
				log.Info("subscription confirmed", "chain", c.ChainID)
				subscribed = true
			}
			for _, n := range ev.Nodes {
				if _, seen := nodes[n.ID]; !seen {
					order = append(order, n.ID)
				}
				nodes[n.ID] = n
				lastNode = time.Now()
			}
			if len(ev.Nodes) > 0 {
				log.Debug("nodes received", "batch", len(ev.Nodes), "total", len(order))
			}

		case <-tick.C:
		}

		if subscribed && len(order) > 0 && time.Since(lastNode) >= c.Quiet {
			log.Info("telemetry feed quiet", "nodes", len(order))
			return result(), nil
		}
	}
}

func (c *Collector) tickInterval() time.Duration {
	d := c.Quiet / 5
	if d < 10*time.Millisecond {
		d = 10 * time.Millisecond
	}
	if d > time.Second {
		d = time.Second
	}
	return d
}
