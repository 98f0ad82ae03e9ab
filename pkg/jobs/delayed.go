package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Job represents a durable, time-delayed task. Payload carries a small
// identifier (typically an entity id), not a full record: handlers are
// expected to reload current state before acting.
type Job struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	Payload string    `json:"payload"`
	Attempt int       `json:"attempt"`
	RunAt   time.Time `json:"run_at"`
}

// Handler processes a due job.
type Handler func(context.Context, Job) error

// DelayedQueueConfig configures polling and retry behaviour.
type DelayedQueueConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxRetries   int
	RetryDelay   time.Duration
	Logger       *zap.Logger
}

// DelayedQueue is a Redis-backed delayed task dispatcher. Jobs are stored
// in a sorted set scored by their fire time, so scheduled work survives
// process restarts. A polling worker claims due members and dispatches
// them to the handler registered for the job type.
type DelayedQueue struct {
	name   string
	client *redis.Client

	pollInterval time.Duration
	batchSize    int
	maxRetries   int
	retryDelay   time.Duration
	logger       *zap.Logger

	mu       sync.Mutex
	handlers map[string]Handler
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	started  bool
}

// NewDelayedQueue builds a queue over the given Redis client. The name
// becomes part of the sorted-set key, so independent queues can share one
// Redis database.
func NewDelayedQueue(name string, client *redis.Client, cfg DelayedQueueConfig) *DelayedQueue {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &DelayedQueue{
		name:         name,
		client:       client,
		pollInterval: cfg.PollInterval,
		batchSize:    cfg.BatchSize,
		maxRetries:   cfg.MaxRetries,
		retryDelay:   cfg.RetryDelay,
		logger:       cfg.Logger,
		handlers:     make(map[string]Handler),
	}
}

func (q *DelayedQueue) key() string {
	return fmt.Sprintf("jobs:delayed:%s", q.name)
}

// Register binds a handler to a job type. Must be called before Start.
func (q *DelayedQueue) Register(jobType string, handler Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[jobType] = handler
}

// Enqueue stores a job to fire at the given time.
func (q *DelayedQueue) Enqueue(ctx context.Context, job Job, runAt time.Time) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.RunAt = runAt.UTC()

	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job %s: %w", job.ID, err)
	}

	member := redis.Z{Score: float64(job.RunAt.Unix()), Member: string(raw)}
	if err := q.client.ZAdd(ctx, q.key(), member).Err(); err != nil {
		return fmt.Errorf("enqueue job %s: %w", job.ID, err)
	}

	q.logger.Sugar().Infow("job scheduled",
		"queue", q.name, "job_id", job.ID, "type", job.Type, "run_at", job.RunAt)
	return nil
}

// Start launches the polling worker. Safe to call once.
func (q *DelayedQueue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	q.wg.Add(1)
	go q.poll()
	q.started = true
	q.logger.Sugar().Infow("delayed queue started", "queue", q.name, "poll_interval", q.pollInterval)
}

// Stop cancels the worker and waits for it to exit.
func (q *DelayedQueue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.cancel()
	q.mu.Unlock()
	q.wg.Wait()
	q.logger.Sugar().Infow("delayed queue stopped", "queue", q.name)
}

// Depth reports the number of scheduled jobs, due or not.
func (q *DelayedQueue) Depth(ctx context.Context) (int64, error) {
	return q.client.ZCard(ctx, q.key()).Result()
}

func (q *DelayedQueue) poll() {
	defer q.wg.Done()
	ticker := time.NewTicker(q.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-q.ctx.Done():
			return
		case <-ticker.C:
			q.drainDue()
		}
	}
}

func (q *DelayedQueue) drainDue() {
	now := time.Now().UTC()
	members, err := q.client.ZRangeByScore(q.ctx, q.key(), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.Unix(), 10),
		Count: int64(q.batchSize),
	}).Result()
	if err != nil {
		q.logger.Sugar().Errorw("poll delayed jobs", "queue", q.name, "error", err)
		return
	}

	for _, member := range members {
		// ZRem is the claim: a removed count of zero means another
		// worker already took the job.
		removed, err := q.client.ZRem(q.ctx, q.key(), member).Result()
		if err != nil {
			q.logger.Sugar().Errorw("claim delayed job", "queue", q.name, "error", err)
			continue
		}
		if removed == 0 {
			continue
		}

		var job Job
		if err := json.Unmarshal([]byte(member), &job); err != nil {
			q.logger.Sugar().Errorw("decode delayed job", "queue", q.name, "error", err)
			continue
		}

		q.dispatch(job)
	}
}

func (q *DelayedQueue) dispatch(job Job) {
	q.mu.Lock()
	handler, ok := q.handlers[job.Type]
	q.mu.Unlock()

	if !ok {
		q.logger.Sugar().Errorw("no handler for job type",
			"queue", q.name, "job_id", job.ID, "type", job.Type)
		return
	}

	if err := handler(q.ctx, job); err != nil {
		q.handleFailure(job, err)
		return
	}
}

func (q *DelayedQueue) handleFailure(job Job, err error) {
	job.Attempt++
	if job.Attempt > q.maxRetries {
		q.logger.Sugar().Errorw("job exceeded retries",
			"queue", q.name, "job_id", job.ID, "type", job.Type, "error", err)
		return
	}
	q.logger.Sugar().Warnw("job failed, rescheduling",
		"queue", q.name, "job_id", job.ID, "type", job.Type, "attempt", job.Attempt, "error", err)

	if enqErr := q.Enqueue(q.ctx, job, time.Now().Add(q.retryDelay)); enqErr != nil {
		q.logger.Sugar().Errorw("failed to reschedule job",
			"queue", q.name, "job_id", job.ID, "error", enqErr)
	}
}
