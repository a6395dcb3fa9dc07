package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/theblitlabs/conductor-worker/internal/core/ports"
	"github.com/theblitlabs/conductor-worker/internal/telemetry"
	"github.com/theblitlabs/conductor-worker/internal/utils/workeridutil"
	"github.com/theblitlabs/conductor-worker/pkg/logger"
)

var (
	ErrInvalidPoolConfig = errors.New("invalid worker pool configuration")
	ErrPoolStopped       = errors.New("worker pool is stopped")
)

// Config holds the immutable per-pool settings.
type Config struct {
	ThreadCount     int
	PollingInterval time.Duration
	// WorkerID defaults to the host name when empty.
	WorkerID string
}

type startOptions struct {
	domain string
}

type StartOption func(*startOptions)

// WithDomain restricts polling to tasks scheduled in the given domain.
func WithDomain(domain string) StartOption {
	return func(o *startOptions) {
		o.domain = domain
	}
}

// Pool runs ThreadCount independent poll loops per started task type.
type Pool struct {
	client   ports.TaskClient
	executor *TaskExecutor
	cfg      Config

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	groups    []*errgroup.Group
	taskTypes []string
	errs      []error

	active      atomic.Int64
	pollLatency metric.Float64Histogram
}

func NewPool(client ports.TaskClient, cfg Config) (*Pool, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: task client is required", ErrInvalidPoolConfig)
	}
	if cfg.ThreadCount < 1 {
		return nil, fmt.Errorf("%w: thread count must be at least 1, got %d", ErrInvalidPoolConfig, cfg.ThreadCount)
	}
	if cfg.PollingInterval < 0 {
		return nil, fmt.Errorf("%w: polling interval must not be negative, got %s", ErrInvalidPoolConfig, cfg.PollingInterval)
	}
	if cfg.WorkerID == "" {
		cfg.WorkerID = workeridutil.GetWorkerID()
	}

	pollLatency, err := telemetry.Meter().Float64Histogram(
		"conductor_worker.poll.duration",
		metric.WithDescription("Latency of poll requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create poll latency histogram: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		client:      client,
		executor:    NewTaskExecutor(client, cfg.WorkerID),
		cfg:         cfg,
		ctx:         ctx,
		cancel:      cancel,
		pollLatency: pollLatency,
	}, nil
}

// Start spawns ThreadCount workers polling for taskType. Calls are additive:
// every call spawns its own workers, even for a task type already started.
// With blockCallerUntilExit set, Start returns only once ctx is cancelled or
// the pool is stopped; otherwise it returns right after spawning.
func (p *Pool) Start(ctx context.Context, taskType string, fn ports.ExecuteTaskFunc, blockCallerUntilExit bool, opts ...StartOption) error {
	if taskType == "" {
		return fmt.Errorf("%w: task type is required", ErrInvalidPoolConfig)
	}
	if fn == nil {
		return fmt.Errorf("%w: execute function is required", ErrInvalidPoolConfig)
	}

	var o startOptions
	for _, opt := range opts {
		opt(&o)
	}

	log := logger.WithComponent("pool")

	p.mu.Lock()
	if p.ctx.Err() != nil {
		p.mu.Unlock()
		return ErrPoolStopped
	}
	workerCtx, cancel := context.WithCancel(ctx)
	stopOnPoolCancel := context.AfterFunc(p.ctx, cancel)

	g := &errgroup.Group{}
	for i := 0; i < p.cfg.ThreadCount; i++ {
		index := i
		p.active.Add(1)
		telemetry.AddActiveWorkers(taskType, 1)

		g.Go(func() error {
			defer func() {
				p.active.Add(-1)
				telemetry.AddActiveWorkers(taskType, -1)
			}()

			if err := p.runWorker(workerCtx, index, taskType, fn, o.domain); err != nil {
				p.mu.Lock()
				p.errs = append(p.errs, err)
				p.mu.Unlock()
				return err
			}
			return nil
		})
	}
	p.groups = append(p.groups, g)
	p.taskTypes = append(p.taskTypes, taskType)
	p.mu.Unlock()

	log.Info().
		Str("task_type", taskType).
		Str("domain", o.domain).
		Dur("polling_interval", p.cfg.PollingInterval).
		Int("threads", p.cfg.ThreadCount).
		Str("worker_id", p.cfg.WorkerID).
		Msg("Polling for tasks")

	go func() {
		_ = g.Wait()
		stopOnPoolCancel()
		cancel()
	}()

	if blockCallerUntilExit {
		select {
		case <-ctx.Done():
		case <-p.ctx.Done():
		}
	}
	return nil
}

// runWorker shields the caller from a panicking client implementation.
func (p *Pool) runWorker(ctx context.Context, index int, taskType string, fn ports.ExecuteTaskFunc, domain string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker %d for %s panicked: %v", index, taskType, r)
			log := logger.WithComponent("worker")
			log.Error().Err(err).Msg("Worker stopped")
		}
	}()
	return p.pollAndExecute(ctx, index, taskType, fn, domain)
}

// pollAndExecute is the per-worker loop: sleep, poll, ack, execute. It only
// returns on cancellation (nil) or on a transport error, which stops this
// worker and leaves its siblings running.
func (p *Pool) pollAndExecute(ctx context.Context, index int, taskType string, fn ports.ExecuteTaskFunc, domain string) error {
	log := logger.WithComponent("worker").With().
		Str("task_type", taskType).
		Int("worker", index).
		Logger()

	attrs := metric.WithAttributes(attribute.String("task_type", taskType))

	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := sleepContext(ctx, p.cfg.PollingInterval); err != nil {
			return nil
		}

		start := time.Now()
		task, err := p.client.PollTask(ctx, taskType, p.cfg.WorkerID, domain)
		p.pollLatency.Record(ctx, time.Since(start).Seconds(), attrs)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			telemetry.RecordPoll(taskType, telemetry.OutcomeError)
			telemetry.RecordError("poll", "worker")
			log.Error().Err(err).Msg("Failed to poll for task, stopping worker")
			return fmt.Errorf("worker %d for %s: poll failed: %w", index, taskType, err)
		}
		if task == nil {
			telemetry.RecordPoll(taskType, telemetry.OutcomeEmpty)
			continue
		}
		telemetry.RecordPoll(taskType, telemetry.OutcomeTask)

		// Once polled, the task is acked and reported even during shutdown.
		claimCtx := context.WithoutCancel(ctx)

		acked, err := p.client.AckTask(claimCtx, task.TaskID, p.cfg.WorkerID)
		if err != nil {
			telemetry.RecordError("ack", "worker")
			log.Error().Err(err).Str("task_id", task.TaskID).Msg("Failed to acknowledge task, stopping worker")
			return fmt.Errorf("worker %d for %s: ack of task %s failed: %w", index, taskType, task.TaskID, err)
		}
		if acked {
			telemetry.RecordAck(taskType, telemetry.OutcomeAcked)
		} else {
			telemetry.RecordAck(taskType, telemetry.OutcomeNack)
			log.Warn().Str("task_id", task.TaskID).Msg("Server did not acknowledge task, executing anyway")
		}

		if err := p.executor.Execute(ctx, task, fn); err != nil {
			log.Error().Err(err).Str("task_id", task.TaskID).Msg("Failed to report task, stopping worker")
			return fmt.Errorf("worker %d for %s: %w", index, taskType, err)
		}
	}
}

// Stop cancels every worker, waits for them to exit and returns the transport
// errors of workers that died before the stop.
func (p *Pool) Stop() error {
	p.cancel()
	return p.Wait()
}

// Wait blocks until every started worker has exited.
func (p *Pool) Wait() error {
	p.mu.Lock()
	groups := append([]*errgroup.Group(nil), p.groups...)
	p.mu.Unlock()

	for _, g := range groups {
		_ = g.Wait()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return errors.Join(p.errs...)
}

func (p *Pool) WorkerID() string {
	return p.cfg.WorkerID
}

// ActiveWorkers returns the number of running poll loops across task types
func (p *Pool) ActiveWorkers() int {
	return int(p.active.Load())
}

func (p *Pool) TaskTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.taskTypes...)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
