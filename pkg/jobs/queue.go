package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Queue accepts scrape requests. Enqueue returns the job id even when
// dispatching fails; the failure is then visible in the job's status.
type Queue interface {
	Enqueue(ctx context.Context, kind Kind) (string, error)
	Close() error
}

type dispatchFunc func(ctx context.Context, m Message) error

// enqueue records a queued job and dispatches it.
func enqueue(ctx context.Context, jobs *Store, kind Kind, dispatch dispatchFunc, log *slog.Logger) (string, error) {
	now := time.Now().UTC()
	job := Job{ID: uuid.NewString(), Kind: kind, Status: StatusQueued, CreatedAt: now}
	log = log.With("job_id", job.ID, "kind", kind)

	if _, err := ParseKind(string(kind)); err != nil {
		job.Fail(err, now)
		if serr := jobs.Save(ctx, job); serr != nil {
			log.Error("saving job failed", "err", serr)
		}
		return job.ID, err
	}

	if err := jobs.Save(ctx, job); err != nil {
		log.Error("saving job failed", "err", err)
		return job.ID, err
	}

	if err := dispatch(ctx, Message{JobID: job.ID, Kind: kind}); err != nil {
		log.Error("dispatching job failed", "err", err)
		job.Fail(fmt.Errorf("dispatch: %w", err), time.Now().UTC())
		if serr := jobs.Save(context.WithoutCancel(ctx), job); serr != nil {
			log.Error("saving job failed", "err", serr)
		}
		return job.ID, err
	}

	log.Info("job queued")
	return job.ID, nil
}

// LocalQueue dispatches jobs straight to an in-process worker pool.
type LocalQueue struct {
	jobs *Store
	pool *Pool
	log  *slog.Logger
}

func NewLocalQueue(jobs *Store, pool *Pool, log *slog.Logger) *LocalQueue {
	return &LocalQueue{jobs: jobs, pool: pool, log: log}
}

func (q *LocalQueue) Enqueue(ctx context.Context, kind Kind) (string, error) {
	return enqueue(ctx, q.jobs, kind, q.pool.Submit, q.log)
}

func (q *LocalQueue) Close() error {
	q.pool.Close()
	return nil
}
