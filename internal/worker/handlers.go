package worker

import (
	"context"
	"fmt"

	"github.com/theblitlabs/conductor-worker/internal/core/models"
)

// EchoTask completes every task with its own input as output. It is the work
// function wired by the CLI when no custom logic is registered.
func EchoTask(_ context.Context, task *models.Task) (*models.ExecutionResult, error) {
	output := make(map[string]interface{}, len(task.InputData))
	for k, v := range task.InputData {
		output[k] = v
	}

	return models.NewExecutionResult(
		models.TaskStatusCompleted,
		output,
		models.NewTaskLog(task.TaskID, fmt.Sprintf("echoed %d input field(s)", len(output))),
	), nil
}
