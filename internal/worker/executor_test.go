package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/theblitlabs/conductor-worker/internal/core/models"
)

func newTestTask() *models.Task {
	return &models.Task{
		TaskID:             uuid.New().String(),
		TaskType:           "encode",
		WorkflowInstanceID: uuid.New().String(),
		Status:             models.TaskStatusInProgress,
		InputData:          map[string]interface{}{"file": "a.mp4"},
	}
}

func capturedUpdate(t *testing.T, client *MockTaskClient) *models.TaskResult {
	t.Helper()
	client.AssertNumberOfCalls(t, "UpdateTask", 1)
	result, ok := client.Calls[0].Arguments.Get(1).(*models.TaskResult)
	require.True(t, ok)
	return result
}

func TestTaskExecutor(t *testing.T) {
	t.Run("completed result is copied onto the update", func(t *testing.T) {
		client := &MockTaskClient{}
		client.On("UpdateTask", mock.Anything, mock.Anything).Return(nil)

		executor := NewTaskExecutor(client, "worker-a")
		task := newTestTask()
		logs := []models.TaskLog{models.NewTaskLog(task.TaskID, "encoded")}

		err := executor.Execute(context.Background(), task, func(ctx context.Context, task *models.Task) (*models.ExecutionResult, error) {
			return models.NewExecutionResult(models.TaskStatusCompleted, map[string]interface{}{"x": 1}, logs...), nil
		})
		require.NoError(t, err)

		update := capturedUpdate(t, client)
		assert.Equal(t, task.TaskID, update.TaskID)
		assert.Equal(t, task.WorkflowInstanceID, update.WorkflowInstanceID)
		assert.Equal(t, "worker-a", update.WorkerID)
		assert.Equal(t, models.TaskStatusCompleted, update.Status)
		assert.Equal(t, map[string]interface{}{"x": 1}, update.OutputData)
		assert.Equal(t, logs, update.Logs)
		assert.Empty(t, update.ReasonForIncompletion)

		assert.Equal(t, models.TaskStatusCompleted, task.Status)
		assert.Equal(t, map[string]interface{}{"x": 1}, task.OutputData)
	})

	t.Run("absent logs still complete", func(t *testing.T) {
		client := &MockTaskClient{}
		client.On("UpdateTask", mock.Anything, mock.Anything).Return(nil)

		err := NewTaskExecutor(client, "worker-a").Execute(context.Background(), newTestTask(),
			func(ctx context.Context, task *models.Task) (*models.ExecutionResult, error) {
				return &models.ExecutionResult{Status: models.TaskStatusCompleted, Output: map[string]interface{}{"x": 1}}, nil
			})
		require.NoError(t, err)

		update := capturedUpdate(t, client)
		assert.Equal(t, models.TaskStatusCompleted, update.Status)
		assert.Equal(t, map[string]interface{}{"x": 1}, update.OutputData)
		assert.Empty(t, update.Logs)
	})

	t.Run("nil result fails the task", func(t *testing.T) {
		client := &MockTaskClient{}
		client.On("UpdateTask", mock.Anything, mock.Anything).Return(nil)

		task := newTestTask()
		err := NewTaskExecutor(client, "worker-a").Execute(context.Background(), task,
			func(ctx context.Context, task *models.Task) (*models.ExecutionResult, error) {
				return nil, nil
			})
		require.NoError(t, err)

		update := capturedUpdate(t, client)
		assert.Equal(t, models.TaskStatusFailed, update.Status)
		assert.Nil(t, update.OutputData)
		assert.Nil(t, update.Logs)
		assert.Equal(t, models.ErrNilResult.Error(), update.ReasonForIncompletion)
	})

	t.Run("returned error fails the task without propagating", func(t *testing.T) {
		client := &MockTaskClient{}
		client.On("UpdateTask", mock.Anything, mock.Anything).Return(nil)

		task := newTestTask()
		task.OutputData = map[string]interface{}{"partial": true}
		err := NewTaskExecutor(client, "worker-a").Execute(context.Background(), task,
			func(ctx context.Context, task *models.Task) (*models.ExecutionResult, error) {
				return nil, errors.New("codec not supported")
			})
		require.NoError(t, err)

		update := capturedUpdate(t, client)
		assert.Equal(t, models.TaskStatusFailed, update.Status)
		assert.Equal(t, map[string]interface{}{"partial": true}, update.OutputData)
		assert.Contains(t, update.ReasonForIncompletion, "codec not supported")
	})

	t.Run("panic fails the task without propagating", func(t *testing.T) {
		client := &MockTaskClient{}
		client.On("UpdateTask", mock.Anything, mock.Anything).Return(nil)

		var err error
		assert.NotPanics(t, func() {
			err = NewTaskExecutor(client, "worker-a").Execute(context.Background(), newTestTask(),
				func(ctx context.Context, task *models.Task) (*models.ExecutionResult, error) {
					panic("index out of range")
				})
		})
		require.NoError(t, err)

		update := capturedUpdate(t, client)
		assert.Equal(t, models.TaskStatusFailed, update.Status)
		assert.Contains(t, update.ReasonForIncompletion, "index out of range")
	})

	t.Run("malformed result fails the task", func(t *testing.T) {
		client := &MockTaskClient{}
		client.On("UpdateTask", mock.Anything, mock.Anything).Return(nil)

		err := NewTaskExecutor(client, "worker-a").Execute(context.Background(), newTestTask(),
			func(ctx context.Context, task *models.Task) (*models.ExecutionResult, error) {
				return &models.ExecutionResult{Status: models.TaskStatusCompleted}, nil
			})
		require.NoError(t, err)

		update := capturedUpdate(t, client)
		assert.Equal(t, models.TaskStatusFailed, update.Status)
		assert.Nil(t, update.OutputData)
	})

	t.Run("update failure is returned", func(t *testing.T) {
		client := &MockTaskClient{}
		transportErr := errors.New("connection refused")
		client.On("UpdateTask", mock.Anything, mock.Anything).Return(transportErr)

		err := NewTaskExecutor(client, "worker-a").Execute(context.Background(), newTestTask(), EchoTask)
		require.Error(t, err)
		assert.ErrorIs(t, err, transportErr)
		client.AssertNumberOfCalls(t, "UpdateTask", 1)
	})

	t.Run("update is submitted after cancellation", func(t *testing.T) {
		client := &MockTaskClient{}
		client.On("UpdateTask", mock.MatchedBy(func(ctx context.Context) bool {
			return ctx.Err() == nil
		}), mock.Anything).Return(nil)

		ctx, cancel := context.WithCancel(context.Background())
		err := NewTaskExecutor(client, "worker-a").Execute(ctx, newTestTask(),
			func(ctx context.Context, task *models.Task) (*models.ExecutionResult, error) {
				cancel()
				return nil, ctx.Err()
			})
		require.NoError(t, err)
		client.AssertExpectations(t)
	})

	t.Run("independent tasks get independent updates", func(t *testing.T) {
		client := &MockTaskClient{}
		client.On("UpdateTask", mock.Anything, mock.Anything).Return(nil)

		executor := NewTaskExecutor(client, "worker-a")
		fn := func(ctx context.Context, task *models.Task) (*models.ExecutionResult, error) {
			return models.NewExecutionResult(models.TaskStatusCompleted, map[string]interface{}{"x": 1}), nil
		}

		first, second := newTestTask(), newTestTask()
		require.NoError(t, executor.Execute(context.Background(), first, fn))
		require.NoError(t, executor.Execute(context.Background(), second, fn))

		client.AssertNumberOfCalls(t, "UpdateTask", 2)
		a := client.Calls[0].Arguments.Get(1).(*models.TaskResult)
		b := client.Calls[1].Arguments.Get(1).(*models.TaskResult)

		assert.Equal(t, first.TaskID, a.TaskID)
		assert.Equal(t, second.TaskID, b.TaskID)
		assert.NotEqual(t, a.TaskID, b.TaskID)
		assert.Equal(t, models.TaskStatusCompleted, a.Status)
		assert.Equal(t, models.TaskStatusCompleted, b.Status)
		assert.Equal(t, map[string]interface{}{"x": 1}, a.OutputData)
		assert.Equal(t, map[string]interface{}{"x": 1}, b.OutputData)
	})
}
