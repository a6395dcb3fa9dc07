package ports

import (
	"context"

	"github.com/theblitlabs/conductor-worker/internal/core/models"
)

// ExecuteTaskFunc is the user-supplied logic run against every polled task.
type ExecuteTaskFunc func(ctx context.Context, task *models.Task) (*models.ExecutionResult, error)

// TaskClient is the task side of the orchestration server API.
// Implementations must be safe for concurrent use.
type TaskClient interface {
	// PollTask returns nil, nil when no task is available.
	PollTask(ctx context.Context, taskType, workerID, domain string) (*models.Task, error)
	AckTask(ctx context.Context, taskID, workerID string) (bool, error)
	UpdateTask(ctx context.Context, result *models.TaskResult) error
}

type WorkflowClient interface {
	StartWorkflow(ctx context.Context, name string, version int, input map[string]interface{}) (string, error)
	GetWorkflow(ctx context.Context, workflowID string, includeTasks bool) (*models.Workflow, error)
	TerminateWorkflow(ctx context.Context, workflowID, reason string) error
}
