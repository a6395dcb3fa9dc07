package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/theblitlabs/conductor-worker/internal/core/config"
	"github.com/theblitlabs/conductor-worker/internal/utils/cliutil"
	"github.com/theblitlabs/conductor-worker/internal/utils/errorutil"
	"github.com/theblitlabs/conductor-worker/internal/worker"
	"github.com/theblitlabs/conductor-worker/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

func NewWorkerCommand() *cobra.Command {
	return cliutil.CreateCommand(cliutil.CommandConfig{
		Use:   "worker [task-type...]",
		Short: "Poll for tasks and execute them",
		Long: `Starts a pool of workers for every task type. Task types default to
WORKER_TASK_TYPES from the configuration. Runs until interrupted.`,
		Example: "  conductor-worker worker encode resize --threads 4 --interval 500ms",
		RunFunc: RunWorker,
		Flags: map[string]cliutil.Flag{
			"threads": {
				Type:        cliutil.FlagTypeInt,
				Shorthand:   "t",
				Description: "Workers per task type",
			},
			"interval": {
				Type:        cliutil.FlagTypeDuration,
				Shorthand:   "i",
				Description: "Delay before every poll",
			},
			"worker-id": {
				Type:        cliutil.FlagTypeString,
				Description: "Worker id reported to the server (defaults to the host name)",
			},
			"domain": {
				Type:        cliutil.FlagTypeString,
				Description: "Task domain to poll",
			},
			"server-url": {
				Type:        cliutil.FlagTypeString,
				Description: "Conductor API base URL",
			},
			"metrics-port": {
				Type:        cliutil.FlagTypeInt,
				Description: "Port of the health and metrics server (0 disables it)",
			},
		},
	}, logger.WithComponent("cli"))
}

// RunWorker runs the worker service with the echo work function until SIGINT
// or SIGTERM, then stops it within shutdownTimeout.
func RunWorker(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("cli")

	loaded, err := config.GetConfigManager().GetConfig()
	if err != nil {
		return errorutil.WrapError(err, "failed to load config")
	}
	cfg := *loaded
	if err := applyWorkerFlags(cmd, &cfg); err != nil {
		return err
	}

	svc, err := worker.NewService(&cfg)
	if err != nil {
		return errorutil.WrapError(err, "failed to create worker service")
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := svc.Run(ctx, args, worker.EchoTask)
	if runErr == nil {
		log.Info().Msg("Shutdown signal received, stopping workers...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	start := time.Now()
	stopErr := svc.Stop(shutdownCtx)
	errorutil.HandleError(log, stopErr, "Workers stopped with errors")
	log.Info().Dur("duration", time.Since(start)).Msg("Worker shutdown complete")

	return errors.Join(runErr, stopErr)
}

// applyWorkerFlags overrides cfg with the flags set on the command line
func applyWorkerFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	var err error
	if flags.Changed("threads") {
		if cfg.Worker.ThreadCount, err = flags.GetInt("threads"); err != nil {
			return err
		}
	}
	if flags.Changed("interval") {
		if cfg.Worker.PollingInterval, err = flags.GetDuration("interval"); err != nil {
			return err
		}
	}
	if flags.Changed("worker-id") {
		if cfg.Worker.WorkerID, err = flags.GetString("worker-id"); err != nil {
			return err
		}
	}
	if flags.Changed("domain") {
		if cfg.Worker.Domain, err = flags.GetString("domain"); err != nil {
			return err
		}
	}
	if flags.Changed("server-url") {
		if cfg.Server.URL, err = flags.GetString("server-url"); err != nil {
			return err
		}
	}
	if flags.Changed("metrics-port") {
		if cfg.Metrics.Port, err = flags.GetInt("metrics-port"); err != nil {
			return err
		}
	}
	return nil
}
