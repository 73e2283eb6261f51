// Package workflow runs the scrape, fetch and append pipeline for a set of
// networks.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"telesheet/internal/network"
	"telesheet/internal/pledge"
	"telesheet/internal/report"
	"telesheet/internal/retry"
	"telesheet/internal/sheet"
)

// Result is the outcome for one target.
type Result struct {
	Target  network.Target
	Row     *report.Row // set once appended
	Skipped bool        // throttled by MinInterval
	Err     error       // failure of the last attempt

	final bool // failed in a way no retry can fix
}

// Runner holds the collaborators of a run. Open, Pledge and Sheet are
// required.
type Runner struct {
	Open   Opener
	Pledge pledge.Fetcher
	Sheet  sheet.Appender
	Now    func() time.Time
	Log    *slog.Logger

	Policy      retry.Policy  // whole-run attempts; only unfinished targets are repeated
	Timeout     time.Duration // per attempt, zero for none
	MinInterval time.Duration // skip a target whose range was written more recently
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Runner) log() *slog.Logger {
	if r.Log != nil {
		return r.Log
	}
	return slog.Default()
}

// Run processes targets concurrently. A failing target never stops the
// others. Results are in input order; the error joins the failures that
// remained after the last attempt. Targets without a pledge fetcher are not
// retried.
func (r *Runner) Run(ctx context.Context, targets []network.Target) ([]Result, error) {
	st := &state{results: make([]Result, len(targets))}
	for i, t := range targets {
		st.results[i].Target = t
	}
	r.throttle(ctx, st)

	err := retry.Do(ctx, r.Policy, r.log(), func(ctx context.Context, attempt int) error {
		pending := st.pending()
		if len(pending) == 0 {
			return nil
		}
		r.log().Info("starting run", "attempt", attempt, "targets", len(pending))
		err := retry.WithTimeout(ctx, r.Timeout, func(ctx context.Context) error {
			return r.attempt(ctx, st, attempt, pending)
		})
		if errors.Is(err, retry.ErrTimeout) {
			st.expire(attempt, pending, err)
		}
		if err != nil && len(st.pending()) == 0 {
			return retry.Permanent(err)
		}
		return err
	})
	if ferr := st.failures(); ferr != nil {
		return st.snapshot(), ferr
	}
	return st.snapshot(), err
}

// throttle marks targets whose range already holds a recent row.
func (r *Runner) throttle(ctx context.Context, st *state) {
	if r.MinInterval <= 0 {
		return
	}
	reader, ok := r.Sheet.(sheet.TimestampReader)
	if !ok {
		return
	}
	now := r.now()
	for i := range st.results {
		t := st.results[i].Target
		last, found, err := reader.LastTimestamp(ctx, t.Range)
		if err != nil {
			r.log().Warn("failed to read last timestamp", "network", t.ID, "err", err)
			continue
		}
		if found && now.Sub(last) < r.MinInterval {
			r.log().Info("skipping recently written network", "network", t.ID, "last", last)
			st.results[i].Skipped = true
		}
	}
}

// attempt opens one session, runs every pending target on it and closes it
// exactly once.
func (r *Runner) attempt(ctx context.Context, st *state, attempt int, pending []int) (err error) {
	sess, err := r.Open(ctx)
	if err != nil {
		err = fmt.Errorf("failed to open session: %w", err)
		for _, i := range pending {
			st.finish(attempt, i, err)
		}
		return err
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			r.log().Warn("failed to close session", "err", cerr)
		}
	}()

	errs := make([]error, len(pending))
	var g errgroup.Group
	for j, i := range pending {
		j, i := j, i
		target := st.target(i)
		g.Go(func() (err error) {
			defer func() {
				if p := recover(); p != nil {
					err = fmt.Errorf("%s: panic: %v", target.ID, p)
				}
				errs[j] = err
				st.finish(attempt, i, err)
			}()
			row, err := r.process(ctx, sess, target)
			if err != nil {
				return err
			}
			st.done(i, row)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

func (r *Runner) process(ctx context.Context, sess Session, target network.Target) (report.Row, error) {
	log := r.log().With("network", target.ID)

	stats, err := sess.Scrape(ctx, target)
	if err != nil {
		return report.Row{}, fmt.Errorf("failed to scrape %s: %w", target.ID, err)
	}
	log.Info("scraped dashboard", "stats", stats)

	spacePledged, err := r.Pledge.SpacePledged(ctx, target)
	if err != nil {
		return report.Row{}, err
	}

	row, err := report.NewRow(target.ID, r.now(), stats, spacePledged)
	if err != nil {
		return report.Row{}, fmt.Errorf("%s: %w", target.ID, err)
	}
	if err := r.Sheet.Append(ctx, target.Range, [][]any{row.Values()}); err != nil {
		return report.Row{}, err
	}
	log.Info("row appended", "range", target.Range, "node_count", row.NodeCount)
	return row, nil
}

// state is shared between attempts. A timed out attempt may still be
// finishing when the next one starts, so access is locked.
type state struct {
	mu      sync.Mutex
	results []Result
	expired int // attempts up to this one have timed out
}

func (s *state) target(i int) network.Target {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results[i].Target
}

func (s *state) pending() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []int
	for i, res := range s.results {
		if res.Row == nil && !res.Skipped && !res.final {
			out = append(out, i)
		}
	}
	return out
}

func (s *state) done(i int, row report.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[i].Row = &row
	s.results[i].Err = nil
}

// finish records a failure unless the target already has a row or the
// attempt has been given up on.
func (s *state) finish(attempt, i int, err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if attempt <= s.expired || s.results[i].Row != nil {
		return
	}
	s.results[i].Err = err
	s.results[i].final = errors.Is(err, pledge.ErrNoFetcher)
}

// expire gives up on attempt; late failures from it are ignored but late
// rows are still recorded since they were written.
func (s *state) expire(attempt int, idx []int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expired = attempt
	for _, i := range idx {
		if s.results[i].Row == nil {
			s.results[i].Err = err
		}
	}
}

// failures joins the errors of targets left without a row.
func (s *state) failures() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for _, res := range s.results {
		if res.Row == nil && res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	return errors.Join(errs...)
}

func (s *state) snapshot() []Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Result(nil), s.results...)
}
