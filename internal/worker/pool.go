package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"kioscopos/internal/dto"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const QueueTicket = "jobs:ticket"

// ErrQueueFull is returned by LocalDispatcher when its buffer is exhausted.
var ErrQueueFull = errors.New("cola de tickets llena")

// Handoff is the printing collaborator as seen by the sale coordinator.
// Enqueueing is best effort: the sale is already committed.
type Handoff interface {
	EnqueueTicket(ctx context.Context, job dto.TicketJob) error
}

// JobHandler processes one ticket job.
type JobHandler func(ctx context.Context, job dto.TicketJob) error

// Job is the envelope stored in the Redis list.
type Job struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// ── Redis ─────────────────────────────────────────────────────────────────────

// RedisDispatcher enqueues ticket jobs into a Redis list and runs the worker
// pool that drains it via BRPOP. Jobs that keep failing go to the DLQ.
type RedisDispatcher struct {
	rdb         *redis.Client
	maxAttempts int
	backoff     time.Duration
	wg          sync.WaitGroup
}

func NewRedisDispatcher(rdb *redis.Client, maxAttempts int) *RedisDispatcher {
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	return &RedisDispatcher{rdb: rdb, maxAttempts: maxAttempts, backoff: 2 * time.Second}
}

// WithBackoff sets how long a worker sleeps after Redis fails to answer.
func (d *RedisDispatcher) WithBackoff(backoff time.Duration) *RedisDispatcher {
	if backoff > 0 {
		d.backoff = backoff
	}
	return d
}

func (d *RedisDispatcher) EnqueueTicket(ctx context.Context, job dto.TicketJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.push(ctx, Job{Type: "ticket", Payload: payload})
}

func (d *RedisDispatcher) push(ctx context.Context, job Job) error {
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, QueueTicket, encoded).Err()
}

// Start launches numWorkers goroutines. Each blocks on BRPOP, so idle workers
// cost nothing. Workers exit when ctx is cancelled; Wait blocks until they do.
func (d *RedisDispatcher) Start(ctx context.Context, numWorkers int, handle JobHandler) {
	for i := 0; i < numWorkers; i++ {
		d.wg.Add(1)
		go func(id int) {
			defer d.wg.Done()
			d.run(ctx, id, handle)
		}(i)
	}
	log.Info().Msgf("ticket worker pool started with %d workers (redis)", numWorkers)
}

func (d *RedisDispatcher) Wait() { d.wg.Wait() }

func (d *RedisDispatcher) run(ctx context.Context, id int, handle JobHandler) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("ticket worker %d shutting down", id)
			return
		default:
		}
		// Wait up to 2s then loop to check ctx.
		result, err := d.rdb.BRPop(ctx, 2*time.Second, QueueTicket).Result()
		switch {
		case errors.Is(err, redis.Nil):
			continue
		case err != nil:
			if ctx.Err() != nil {
				continue
			}
			log.Error().Err(err).Int("worker", id).Dur("backoff", d.backoff).Msg("ticket queue unreachable")
			select {
			case <-ctx.Done():
			case <-time.After(d.backoff):
			}
			continue
		case len(result) < 2:
			continue
		}
		d.process(ctx, result[1], handle)
	}
}

func (d *RedisDispatcher) process(ctx context.Context, raw string, handle JobHandler) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Err(err).Str("queue", QueueTicket).Msg("failed to unmarshal job")
		return
	}
	var ticket dto.TicketJob
	if err := json.Unmarshal(job.Payload, &ticket); err != nil {
		d.descartar(ctx, job.Payload, ticket, "payload invalido: "+err.Error(), job.Attempts)
		return
	}

	job.Attempts++
	ticket.Attempts = job.Attempts
	err := handle(ctx, ticket)
	if err == nil {
		return
	}
	if job.Attempts >= d.maxAttempts {
		d.descartar(ctx, job.Payload, ticket, err.Error(), job.Attempts)
		return
	}
	log.Warn().Err(err).Int("numero_ticket", ticket.NumeroTicket).Int("attempt", job.Attempts).Msg("ticket job failed, requeueing")
	if pushErr := d.push(ctx, job); pushErr != nil {
		log.Error().Err(pushErr).Msg("ticket requeue failed")
	}
}

// ── In-process ────────────────────────────────────────────────────────────────

// LocalDispatcher is used when Redis is not configured. Jobs live in a
// buffered channel and are lost on restart, which is acceptable for receipts.
type LocalDispatcher struct {
	jobs        chan dto.TicketJob
	maxAttempts int
	wg          sync.WaitGroup
}

func NewLocalDispatcher(buffer, maxAttempts int) *LocalDispatcher {
	if buffer < 1 {
		buffer = 64
	}
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	return &LocalDispatcher{jobs: make(chan dto.TicketJob, buffer), maxAttempts: maxAttempts}
}

// EnqueueTicket never blocks the caller.
func (d *LocalDispatcher) EnqueueTicket(_ context.Context, job dto.TicketJob) error {
	select {
	case d.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

func (d *LocalDispatcher) Start(ctx context.Context, numWorkers int, handle JobHandler) {
	for i := 0; i < numWorkers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case job := <-d.jobs:
					d.process(ctx, job, handle)
				}
			}
		}()
	}
	log.Info().Msgf("ticket worker pool started with %d workers (local)", numWorkers)
}

func (d *LocalDispatcher) Wait() { d.wg.Wait() }

func (d *LocalDispatcher) process(ctx context.Context, job dto.TicketJob, handle JobHandler) {
	var err error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		job.Attempts = attempt
		if err = handle(ctx, job); err == nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
		}
	}
	log.Error().Err(err).Int("numero_ticket", job.NumeroTicket).Int("attempts", d.maxAttempts).Msg("ticket discarded")
}
