package worker

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/theblitlabs/conductor-worker/internal/core/models"
	"github.com/theblitlabs/conductor-worker/internal/core/ports"
	"github.com/theblitlabs/conductor-worker/internal/telemetry"
	"github.com/theblitlabs/conductor-worker/pkg/logger"
)

// TaskExecutor runs a work function against one task and reports the outcome.
// It holds no mutable state and may be shared by all workers of a pool.
type TaskExecutor struct {
	client   ports.TaskClient
	workerID string
}

func NewTaskExecutor(client ports.TaskClient, workerID string) *TaskExecutor {
	return &TaskExecutor{
		client:   client,
		workerID: workerID,
	}
}

// Execute invokes fn with task and submits exactly one update. A work function
// that fails, panics, or returns a nil or malformed result marks the task
// FAILED; that failure is logged and never returned. The only error returned
// is the transport error of the update call.
func (e *TaskExecutor) Execute(ctx context.Context, task *models.Task, fn ports.ExecuteTaskFunc) error {
	log := logger.WithComponent("executor")

	ctx, span := telemetry.Tracer().Start(ctx, "task.execute", trace.WithAttributes(
		attribute.String("task.id", task.TaskID),
		attribute.String("task.type", task.TaskType),
		attribute.String("worker.id", e.workerID),
	))
	defer span.End()

	start := time.Now()
	result, err := invoke(ctx, task, fn)
	if err == nil {
		err = result.Validate()
	}

	if err != nil {
		log.Error().Err(err).
			Str("task_id", task.TaskID).
			Str("task_type", task.TaskType).
			Msg("Error executing task")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		task.Status = models.TaskStatusFailed
		task.ReasonForIncompletion = err.Error()
	} else {
		task.Status = result.Status
		task.OutputData = result.Output
		task.Logs = result.Logs
	}

	duration := time.Since(start)
	telemetry.RecordTask(task.TaskType, string(task.Status), duration)
	span.SetAttributes(attribute.String("task.status", string(task.Status)))

	// The task is already claimed, so report it even if the worker is stopping.
	if err := e.client.UpdateTask(context.WithoutCancel(ctx), models.NewTaskResult(task, e.workerID)); err != nil {
		telemetry.RecordError("update", "executor")
		return fmt.Errorf("failed to update task %s: %w", task.TaskID, err)
	}

	log.Debug().
		Str("task_id", task.TaskID).
		Str("task_type", task.TaskType).
		Str("status", string(task.Status)).
		Dur("duration", duration).
		Msg("Task update submitted")

	return nil
}

func invoke(ctx context.Context, task *models.Task, fn ports.ExecuteTaskFunc) (result *models.ExecutionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task execution panicked: %v", r)
		}
	}()
	return fn(ctx, task)
}
