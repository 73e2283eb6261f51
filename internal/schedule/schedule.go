// Package schedule runs a job on a cron schedule until cancelled.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one scheduled run.
type Job func(ctx context.Context) error

type Scheduler struct {
	schedule cron.Schedule
	spec     string
	log      *slog.Logger
}

// New parses spec as a standard five field expression or a descriptor such
// as "@hourly" or "@every 4h".
func New(spec string, log *slog.Logger) (*Scheduler, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to parse schedule %q: %w", spec, err)
	}
	return NewWithSchedule(sched, spec, log), nil
}

func NewWithSchedule(sched cron.Schedule, spec string, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{schedule: sched, spec: spec, log: log}
}

// Run blocks until ctx is done, then waits for a job in flight to return.
// A run that is due while the previous one is still going is skipped. With
// now set the job also runs once immediately.
func (s *Scheduler) Run(ctx context.Context, now bool, job Job) error {
	logger := cronLogger{log: s.log}
	c := cron.New(cron.WithLogger(logger), cron.WithLocation(time.UTC))

	j := cron.NewChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)).Then(cron.FuncJob(func() {
		start := time.Now()
		if err := job(ctx); err != nil {
			s.log.Error("scheduled run failed", "err", err, "duration", time.Since(start))
			return
		}
		s.log.Info("scheduled run finished", "duration", time.Since(start))
	}))
	id := c.Schedule(s.schedule, j)

	c.Start()
	s.log.Info("scheduler started", "spec", s.spec, "next", c.Entry(id).Next)
	// cron does not track runs started outside its loop
	var immediate sync.WaitGroup
	if now {
		immediate.Add(1)
		go func() {
			defer immediate.Done()
			j.Run()
		}()
	}

	<-ctx.Done()
	s.log.Info("scheduler stopping")
	<-c.Stop().Done()
	immediate.Wait()
	return nil
}

type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append([]any{"err", err}, keysAndValues...)...)
}
