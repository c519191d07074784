package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/nimbuspay/gateway/pkg/metrics"
)

// Topic names. One durable queue exists per topic.
const (
	TopicPayment = "payment-processing"
	TopicWebhook = "webhook-delivery"
	TopicRefund  = "refund-processing"
)

// Job is the envelope stored in Redis. List and sorted-set members are the
// serialized envelope itself, so the job id is embedded and members are
// unique.
type Job struct {
	ID         string          `json:"id"`
	Topic      string          `json:"topic"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// Handler processes one job. A returned error marks the job failed at the
// queue level; the queue never retries on its own. Retry is a business
// decision made by re-enqueueing a new delayed job.
type Handler func(ctx context.Context, job *Job) error

// Enqueuer is the producer-side interface services depend on.
type Enqueuer interface {
	Enqueue(ctx context.Context, topic string, payload any, opts ...EnqueueOption) (string, error)
}

// Counts reports the per-topic queue depths and outcome totals.
type Counts struct {
	Waiting   int64 `json:"waiting"`
	Active    int64 `json:"active"`
	Delayed   int64 `json:"delayed"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

type enqueueOptions struct {
	delay time.Duration
}

// EnqueueOption customizes a single enqueue call.
type EnqueueOption func(*enqueueOptions)

// WithDelay makes the job eligible for dequeue only after d elapses.
func WithDelay(d time.Duration) EnqueueOption {
	return func(o *enqueueOptions) { o.delay = d }
}

// DelayOf reports the delay the given options configure. Enqueuer fakes use
// it to observe scheduling decisions.
func DelayOf(opts ...EnqueueOption) time.Duration {
	var o enqueueOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o.delay
}

// promoteScript atomically moves due jobs from the delayed sorted set to the
// waiting list. Batched to bound single-call work.
var promoteScript = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, 100)
for _, job in ipairs(due) do
  redis.call('ZREM', KEYS[1], job)
  redis.call('LPUSH', KEYS[2], job)
end
return #due
`)

// Client is a durable, Redis-backed job queue with delayed jobs and
// at-least-once delivery. Jobs wait in a list, move to a per-topic active
// list while a handler runs, and are removed on completion; a crash leaves
// them in active, from where they are requeued on the next Subscribe.
type Client struct {
	rdb             *redis.Client
	promoteInterval time.Duration
	wg              sync.WaitGroup
}

// New constructs a queue client on top of an existing Redis connection.
func New(rdb *redis.Client, promoteInterval time.Duration) *Client {
	if promoteInterval <= 0 {
		promoteInterval = time.Second
	}
	return &Client{rdb: rdb, promoteInterval: promoteInterval}
}

func waitingKey(topic string) string { return "queue:" + topic + ":waiting" }
func activeKey(topic string) string  { return "queue:" + topic + ":active" }
func delayedKey(topic string) string { return "queue:" + topic + ":delayed" }
func completedKey(topic string) string {
	return "queue:" + topic + ":completed"
}
func failedKey(topic string) string { return "queue:" + topic + ":failed" }

// Enqueue persists a job and returns its id. With WithDelay the job lands in
// the delayed set and becomes eligible once the delay elapses; otherwise it
// is immediately waiting.
func (c *Client) Enqueue(ctx context.Context, topic string, payload any, opts ...EnqueueOption) (string, error) {
	var o enqueueOptions
	for _, opt := range opts {
		opt(&o)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal job payload: %w", err)
	}
	job := Job{
		ID:         "job_" + uuid.NewString(),
		Topic:      topic,
		Payload:    body,
		EnqueuedAt: time.Now().UTC(),
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("marshal job envelope: %w", err)
	}

	if o.delay > 0 {
		readyAt := float64(time.Now().Add(o.delay).UnixMilli())
		if err := c.rdb.ZAdd(ctx, delayedKey(topic), redis.Z{Score: readyAt, Member: raw}).Err(); err != nil {
			return "", fmt.Errorf("enqueue delayed job: %w", err)
		}
	} else {
		if err := c.rdb.LPush(ctx, waitingKey(topic), raw).Err(); err != nil {
			return "", fmt.Errorf("enqueue job: %w", err)
		}
	}

	log.Debug().Str("topic", topic).Str("job_id", job.ID).Dur("delay", o.delay).Msg("Job enqueued")
	return job.ID, nil
}

// Subscribe starts a worker pool for a topic. Jobs left in the active list by
// a previous crash are requeued first (at-least-once delivery: handlers must
// tolerate redelivery). Subscribe returns immediately; Wait blocks until all
// workers have drained after ctx is canceled.
func (c *Client) Subscribe(ctx context.Context, topic string, concurrency int, handler Handler) error {
	if concurrency <= 0 {
		concurrency = 1
	}

	requeued, err := c.requeueStalled(ctx, topic)
	if err != nil {
		return fmt.Errorf("requeue stalled jobs: %w", err)
	}
	if requeued > 0 {
		log.Warn().Str("topic", topic).Int("count", requeued).Msg("Requeued stalled jobs")
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.promoteLoop(ctx, topic)
	}()

	for i := 0; i < concurrency; i++ {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.workerLoop(ctx, topic, handler)
		}()
	}

	log.Info().Str("topic", topic).Int("concurrency", concurrency).Msg("Subscribed to topic")
	return nil
}

// Wait blocks until every worker started by Subscribe has exited.
func (c *Client) Wait() {
	c.wg.Wait()
}

// Counts returns the queue depths and outcome totals for a topic.
func (c *Client) Counts(ctx context.Context, topic string) (Counts, error) {
	pipe := c.rdb.Pipeline()
	waiting := pipe.LLen(ctx, waitingKey(topic))
	active := pipe.LLen(ctx, activeKey(topic))
	delayed := pipe.ZCard(ctx, delayedKey(topic))
	completed := pipe.Get(ctx, completedKey(topic))
	failed := pipe.Get(ctx, failedKey(topic))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return Counts{}, err
	}

	counts := Counts{
		Waiting: waiting.Val(),
		Active:  active.Val(),
		Delayed: delayed.Val(),
	}
	if v, err := completed.Int64(); err == nil {
		counts.Completed = v
	}
	if v, err := failed.Int64(); err == nil {
		counts.Failed = v
	}
	return counts, nil
}

// requeueStalled moves jobs abandoned in the active list back to waiting.
func (c *Client) requeueStalled(ctx context.Context, topic string) (int, error) {
	n := 0
	for {
		err := c.rdb.LMove(ctx, activeKey(topic), waitingKey(topic), "RIGHT", "RIGHT").Err()
		if errors.Is(err, redis.Nil) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		n++
	}
}

// promoteLoop periodically moves due delayed jobs to the waiting list.
func (c *Client) promoteLoop(ctx context.Context, topic string) {
	ticker := time.NewTicker(c.promoteInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now().UnixMilli()
			keys := []string{delayedKey(topic), waitingKey(topic)}
			if err := promoteScript.Run(ctx, c.rdb, keys, now).Err(); err != nil && !errors.Is(err, redis.Nil) {
				if ctx.Err() != nil {
					return
				}
				log.Error().Err(err).Str("topic", topic).Msg("Failed to promote delayed jobs")
			}
		case <-ctx.Done():
			return
		}
	}
}

// workerLoop pulls one job at a time: waiting -> active, run handler, remove
// from active, count the outcome.
func (c *Client) workerLoop(ctx context.Context, topic string, handler Handler) {
	for {
		if ctx.Err() != nil {
			return
		}

		raw, err := c.rdb.BLMove(ctx, waitingKey(topic), activeKey(topic), "RIGHT", "LEFT", 2*time.Second).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error().Err(err).Str("topic", topic).Msg("Failed to dequeue job")
			time.Sleep(time.Second)
			continue
		}

		c.process(ctx, topic, raw, handler)
	}
}

func (c *Client) process(ctx context.Context, topic, raw string, handler Handler) {
	start := time.Now()

	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Dropping malformed job")
		c.finish(topic, raw, false)
		return
	}

	if err := handler(ctx, &job); err != nil {
		log.Error().Err(err).Str("topic", topic).Str("job_id", job.ID).Msg("Job failed")
		c.finish(topic, raw, false)
		metrics.ObserveJob(topic, "failed", time.Since(start).Seconds())
		return
	}

	c.finish(topic, raw, true)
	metrics.ObserveJob(topic, "completed", time.Since(start).Seconds())
	log.Debug().Str("topic", topic).Str("job_id", job.ID).Msg("Job completed")
}

// finish removes the job from the active list and bumps the outcome counter.
// Uses a background context so completed work is acknowledged even during
// shutdown.
func (c *Client) finish(topic, raw string, ok bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	counter := failedKey(topic)
	if ok {
		counter = completedKey(topic)
	}
	pipe := c.rdb.Pipeline()
	pipe.LRem(ctx, activeKey(topic), 1, raw)
	pipe.Incr(ctx, counter)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to acknowledge job")
	}
}
