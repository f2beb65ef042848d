// Package schedule triggers recurring work on cron specs.
package schedule

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

type Scheduler struct {
	cron *cron.Cron
	log  *slog.Logger
}

// New returns a stopped scheduler. Specs accept the standard five fields as
// well as descriptors such as "@every 6h" or "@daily".
func New(log *slog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithLogger(cronLogger{log: log})),
		log:  log,
	}
}

// Every registers callback under spec. An empty spec registers nothing.
func (s *Scheduler) Every(spec, name string, callback func()) error {
	if spec == "" {
		s.log.Info("schedule disabled", "job", name)
		return nil
	}
	if _, err := s.cron.AddFunc(spec, callback); err != nil {
		return fmt.Errorf("schedule %s on %q: %w", name, spec, err)
	}
	s.log.Info("scheduled", "job", name, "spec", spec)
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for running callbacks or ctx, whichever
// comes first.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append(keysAndValues, "err", err)...)
}
