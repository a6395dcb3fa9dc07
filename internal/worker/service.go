package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/theblitlabs/conductor-worker/internal/api"
	"github.com/theblitlabs/conductor-worker/internal/core/config"
	"github.com/theblitlabs/conductor-worker/internal/core/ports"
	"github.com/theblitlabs/conductor-worker/internal/server"
	"github.com/theblitlabs/conductor-worker/internal/telemetry"
	"github.com/theblitlabs/conductor-worker/pkg/logger"
)

var ErrNoTaskTypes = errors.New("no task types to poll")

// Service wires a Pool to its configuration, the status server and telemetry.
type Service struct {
	cfg       *config.Config
	pool      *Pool
	status    *server.Server
	shutdown  telemetry.ShutdownFunc
	startedAt time.Time
}

func NewService(cfg *config.Config) (*Service, error) {
	return NewServiceWithClient(cfg, NewHTTPTaskClient(cfg.Server.URL, cfg.Server.Timeout))
}

func NewServiceWithClient(cfg *config.Config, client ports.TaskClient) (*Service, error) {
	log := logger.WithComponent("service")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pool, err := NewPool(client, Config{
		ThreadCount:     cfg.Worker.ThreadCount,
		PollingInterval: cfg.Worker.PollingInterval,
		WorkerID:        cfg.Worker.WorkerID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}

	log.Info().
		Str("server_url", cfg.Server.URL).
		Str("worker_id", pool.WorkerID()).
		Int("threads", cfg.Worker.ThreadCount).
		Msg("Worker service initialized")

	return &Service{
		cfg:      cfg,
		pool:     pool,
		shutdown: func(context.Context) error { return nil },
	}, nil
}

// Run starts polling for every task type and blocks until ctx is cancelled or
// the service is stopped. An empty taskTypes falls back to the configured ones.
func (s *Service) Run(ctx context.Context, taskTypes []string, fn ports.ExecuteTaskFunc) error {
	log := logger.WithComponent("service")

	if len(taskTypes) == 0 {
		taskTypes = s.cfg.Worker.TaskTypes
	}
	if len(taskTypes) == 0 {
		return ErrNoTaskTypes
	}

	shutdown, err := telemetry.InitTelemetry(ctx, s.cfg.Telemetry)
	if err != nil {
		log.Warn().Err(err).Msg("Telemetry disabled")
	} else {
		s.shutdown = shutdown
	}

	s.startedAt = time.Now()
	if s.cfg.Metrics.Port > 0 {
		status := server.NewServer(s.cfg.Metrics.Port, api.NewRouter(s.pool, s.startedAt))
		if err := status.Start(); err != nil {
			return fmt.Errorf("failed to start status server: %w", err)
		}
		s.status = status
	}

	var opts []StartOption
	if s.cfg.Worker.Domain != "" {
		opts = append(opts, WithDomain(s.cfg.Worker.Domain))
	}

	last := len(taskTypes) - 1
	for i, taskType := range taskTypes {
		if err := s.pool.Start(ctx, taskType, fn, i == last, opts...); err != nil {
			return fmt.Errorf("failed to start workers for %s: %w", taskType, err)
		}
	}
	return nil
}

// Stop stops the pool, then the status server and telemetry. Errors of workers
// that died on transport failures are part of the returned error.
func (s *Service) Stop(ctx context.Context) error {
	log := logger.WithComponent("service")
	log.Info().Msg("Stopping worker service...")

	var errs []error
	if err := s.pool.Stop(); err != nil {
		errs = append(errs, err)
	}
	if s.status != nil {
		if err := s.status.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop status server: %w", err))
		}
	}
	if err := s.shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to shut down telemetry: %w", err))
	}

	log.Info().Msg("Worker service stopped")
	return errors.Join(errs...)
}

func (s *Service) Pool() *Pool {
	return s.pool
}

// StatusAddr returns the status server address, empty when it is disabled
func (s *Service) StatusAddr() string {
	if s.status == nil {
		return ""
	}
	return s.status.Addr()
}
