package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
)

const workerGroup = "offer-workers"

// headerCarrier adapts nats.Msg headers for trace propagation.
type headerCarrier nats.Msg

func (c *headerCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *headerCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *headerCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

// NATSQueue publishes jobs on a subject. Every process subscribed with the same
// queue group competes for them, so jobs are spread across instances and each
// runs once.
type NATSQueue struct {
	nc      *nats.Conn
	subject string
	jobs    *Store
	pool    *Pool
	sub     *nats.Subscription
	log     *slog.Logger
}

// NewNATSQueue subscribes pool to subject. Malformed messages are dropped.
func NewNATSQueue(nc *nats.Conn, subject string, jobs *Store, pool *Pool, log *slog.Logger) (*NATSQueue, error) {
	q := &NATSQueue{nc: nc, subject: subject, jobs: jobs, pool: pool, log: log}

	sub, err := nc.QueueSubscribe(subject, workerGroup, func(msg *nats.Msg) {
		var m Message
		if err := json.Unmarshal(msg.Data, &m); err != nil {
			q.log.Warn("dropping malformed job message", "subject", msg.Subject, "err", err)
			return
		}
		ctx := otel.GetTextMapPropagator().Extract(context.Background(), (*headerCarrier)(msg))
		if err := q.pool.Submit(ctx, m); err != nil {
			q.log.Error("job not accepted by workers", "job_id", m.JobID, "err", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	q.sub = sub
	return q, nil
}

func (q *NATSQueue) Enqueue(ctx context.Context, kind Kind) (string, error) {
	return enqueue(ctx, q.jobs, kind, q.publish, q.log)
}

func (q *NATSQueue) publish(ctx context.Context, m Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	msg := &nats.Msg{Subject: q.subject, Data: data}
	otel.GetTextMapPropagator().Inject(ctx, (*headerCarrier)(msg))
	return q.nc.PublishMsg(msg)
}

// Close stops consuming, lets accepted jobs finish and flushes the connection.
func (q *NATSQueue) Close() error {
	err := q.sub.Drain()
	q.pool.Close()
	if ferr := q.nc.Flush(); err == nil {
		err = ferr
	}
	return err
}
