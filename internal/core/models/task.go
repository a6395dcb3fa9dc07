package models

import (
	"errors"
	"fmt"
	"time"
)

type TaskStatus string

const (
	TaskStatusScheduled               TaskStatus = "SCHEDULED"
	TaskStatusInProgress              TaskStatus = "IN_PROGRESS"
	TaskStatusCanceled                TaskStatus = "CANCELED"
	TaskStatusFailed                  TaskStatus = "FAILED"
	TaskStatusFailedWithTerminalError TaskStatus = "FAILED_WITH_TERMINAL_ERROR"
	TaskStatusCompleted               TaskStatus = "COMPLETED"
	TaskStatusCompletedWithErrors     TaskStatus = "COMPLETED_WITH_ERRORS"
	TaskStatusTimedOut                TaskStatus = "TIMED_OUT"
	TaskStatusSkipped                 TaskStatus = "SKIPPED"
)

// IsResultStatus reports whether a worker is allowed to report s back to the server.
func (s TaskStatus) IsResultStatus() bool {
	switch s {
	case TaskStatusInProgress, TaskStatusFailed, TaskStatusFailedWithTerminalError, TaskStatusCompleted:
		return true
	}
	return false
}

var (
	ErrNilResult     = errors.New("task execution function must return a result with status and output")
	ErrMissingStatus = errors.New("execution result status is required")
	ErrMissingOutput = errors.New("execution result output is required")
)

// Task is a single unit of work handed out by the server on poll.
type Task struct {
	TaskID                string                 `json:"taskId"`
	TaskType              string                 `json:"taskType"`
	ReferenceTaskName     string                 `json:"referenceTaskName,omitempty"`
	WorkflowInstanceID    string                 `json:"workflowInstanceId,omitempty"`
	WorkflowType          string                 `json:"workflowType,omitempty"`
	Status                TaskStatus             `json:"status,omitempty"`
	InputData             map[string]interface{} `json:"inputData,omitempty"`
	OutputData            map[string]interface{} `json:"outputData,omitempty"`
	Logs                  []TaskLog              `json:"logs,omitempty"`
	WorkerID              string                 `json:"workerId,omitempty"`
	Domain                string                 `json:"domain,omitempty"`
	PollCount             int                    `json:"pollCount,omitempty"`
	RetryCount            int                    `json:"retryCount,omitempty"`
	StartTime             int64                  `json:"startTime,omitempty"`
	CallbackAfterSeconds  int64                  `json:"callbackAfterSeconds,omitempty"`
	ReasonForIncompletion string                 `json:"reasonForIncompletion,omitempty"`
}

type TaskLog struct {
	Log         string `json:"log"`
	TaskID      string `json:"taskId,omitempty"`
	CreatedTime int64  `json:"createdTime,omitempty"`
}

func NewTaskLog(taskID, msg string) TaskLog {
	return TaskLog{
		Log:         msg,
		TaskID:      taskID,
		CreatedTime: time.Now().UnixMilli(),
	}
}

// TaskResult is the body of a task update sent back to the server.
type TaskResult struct {
	WorkflowInstanceID    string                 `json:"workflowInstanceId"`
	TaskID                string                 `json:"taskId"`
	Status                TaskStatus             `json:"status"`
	OutputData            map[string]interface{} `json:"outputData,omitempty"`
	Logs                  []TaskLog              `json:"logs,omitempty"`
	WorkerID              string                 `json:"workerId,omitempty"`
	ReasonForIncompletion string                 `json:"reasonForIncompletion,omitempty"`
	CallbackAfterSeconds  int64                  `json:"callbackAfterSeconds,omitempty"`
}

func NewTaskResult(task *Task, workerID string) *TaskResult {
	return &TaskResult{
		WorkflowInstanceID:    task.WorkflowInstanceID,
		TaskID:                task.TaskID,
		Status:                task.Status,
		OutputData:            task.OutputData,
		Logs:                  task.Logs,
		WorkerID:              workerID,
		ReasonForIncompletion: task.ReasonForIncompletion,
		CallbackAfterSeconds:  task.CallbackAfterSeconds,
	}
}

// ExecutionResult is what a work function returns for one task.
// Status and Output are required, Logs is optional. Status must be one a
// worker may report (IN_PROGRESS, FAILED, FAILED_WITH_TERMINAL_ERROR or
// COMPLETED); server-side statuses such as COMPLETED_WITH_ERRORS fail
// Validate and the task is reported FAILED instead.
type ExecutionResult struct {
	Status TaskStatus
	Output map[string]interface{}
	Logs   []TaskLog
}

func NewExecutionResult(status TaskStatus, output map[string]interface{}, logs ...TaskLog) *ExecutionResult {
	return &ExecutionResult{
		Status: status,
		Output: output,
		Logs:   logs,
	}
}

// Validate checks the required fields of the result
func (r *ExecutionResult) Validate() error {
	if r == nil {
		return ErrNilResult
	}
	if r.Status == "" {
		return ErrMissingStatus
	}
	if !r.Status.IsResultStatus() {
		return fmt.Errorf("invalid execution result status %q", r.Status)
	}
	if r.Output == nil {
		return ErrMissingOutput
	}
	return nil
}
