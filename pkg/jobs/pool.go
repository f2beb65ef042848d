package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var ErrPoolClosed = errors.New("worker pool closed")

// Message is what travels through a queue: the job to update and what to run.
type Message struct {
	JobID string `json:"job_id"`
	Kind  Kind   `json:"kind"`
}

// Processor executes one queued job and records its progress.
type Processor struct {
	jobs   *Store
	runner *Runner
	log    *slog.Logger
	now    func() time.Time
}

func NewProcessor(jobs *Store, runner *Runner, log *slog.Logger) *Processor {
	return &Processor{jobs: jobs, runner: runner, log: log, now: func() time.Time { return time.Now().UTC() }}
}

func (p *Processor) Process(ctx context.Context, m Message) {
	log := p.log.With("job_id", m.JobID, "kind", m.Kind)

	job, err := p.jobs.Get(ctx, m.JobID)
	if err != nil {
		log.Warn("job record missing, recreating", "err", err)
		job = Job{ID: m.JobID, Kind: m.Kind, CreatedAt: p.now()}
	}

	if _, err := ParseKind(string(m.Kind)); err != nil {
		job.Fail(err, p.now())
		p.save(ctx, job, log)
		return
	}

	job.Status = StatusRunning
	p.save(ctx, job, log)

	log.Info("job started")
	job.Finish(p.runner.Execute(ctx, m.Kind), p.now())
	p.save(ctx, job, log)
	log.Info("job finished", "status", job.Status, "count", job.Count)
}

func (p *Processor) save(ctx context.Context, job Job, log *slog.Logger) {
	// the outcome must be recorded even when the run was cut short
	if err := p.jobs.Save(context.WithoutCancel(ctx), job); err != nil {
		log.Error("saving job failed", "err", err)
	}
}

// Pool runs queued jobs on a fixed number of workers.
type Pool struct {
	proc *Processor
	ch   chan Message
	wg   sync.WaitGroup
	log  *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewPool starts workers that process jobs with ctx until Close.
func NewPool(ctx context.Context, proc *Processor, workers int, log *slog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{proc: proc, ch: make(chan Message, 64), log: log}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for m := range p.ch {
				p.proc.Process(ctx, m)
			}
		}()
	}
	return p
}

// Submit hands a job to the workers, waiting for buffer space if needed.
func (p *Pool) Submit(ctx context.Context, m Message) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.ch <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting jobs and waits for the accepted ones to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.ch)
	}
	p.mu.Unlock()
	p.wg.Wait()
}
