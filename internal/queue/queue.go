package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Job is the envelope pushed at reservation time and consumed by the
// processing worker. The work item row is the source of truth; the job only
// locates it.
type Job struct {
	WorkItemID  int64     `json:"work_item_id"`
	Phone       string    `json:"phone"`
	MediaURL    string    `json:"media_url"`
	ContentType string    `json:"content_type"`
	EnqueuedAt  time.Time `json:"enqueued_at"`
}

// Enqueuer pushes jobs for asynchronous processing.
type Enqueuer interface {
	Enqueue(ctx context.Context, job Job) error
}

// Consumer pops the next job. A nil job with a nil error means the poll
// window elapsed without work.
type Consumer interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*Job, error)
}

type redisQueue struct {
	client *redis.Client
	key    string
}

// NewRedisQueue builds a queue backed by a redis list. LPUSH with a blocking
// BRPOP on the other end gives FIFO delivery across any number of workers.
// The pop is destructive; a job lost between pop and completion is recovered
// from the work item table by the worker's stale-pending sweep.
func NewRedisQueue(client *redis.Client, key string) *redisQueue {
	return &redisQueue{client: client, key: key}
}

func (q *redisQueue) Enqueue(ctx context.Context, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, q.key, payload).Err()
}

func (q *redisQueue) Dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	res, err := q.client.BRPop(ctx, timeout, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	// BRPOP returns [key, value].
	if len(res) < 2 {
		return nil, nil
	}

	var job Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return nil, err
	}
	return &job, nil
}
