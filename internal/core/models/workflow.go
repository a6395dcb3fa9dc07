package models

type WorkflowStatus string

const (
	WorkflowStatusRunning    WorkflowStatus = "RUNNING"
	WorkflowStatusCompleted  WorkflowStatus = "COMPLETED"
	WorkflowStatusFailed     WorkflowStatus = "FAILED"
	WorkflowStatusTimedOut   WorkflowStatus = "TIMED_OUT"
	WorkflowStatusTerminated WorkflowStatus = "TERMINATED"
	WorkflowStatusPaused     WorkflowStatus = "PAUSED"
)

type Workflow struct {
	WorkflowID            string                 `json:"workflowId"`
	WorkflowName          string                 `json:"workflowName,omitempty"`
	Version               int                    `json:"version,omitempty"`
	Status                WorkflowStatus         `json:"status"`
	Input                 map[string]interface{} `json:"input,omitempty"`
	Output                map[string]interface{} `json:"output,omitempty"`
	Tasks                 []Task                 `json:"tasks,omitempty"`
	ReasonForIncompletion string                 `json:"reasonForIncompletion,omitempty"`
	StartTime             int64                  `json:"startTime,omitempty"`
	EndTime               int64                  `json:"endTime,omitempty"`
}

func (w *Workflow) IsTerminal() bool {
	switch w.Status {
	case WorkflowStatusCompleted, WorkflowStatusFailed, WorkflowStatusTimedOut, WorkflowStatusTerminated:
		return true
	}
	return false
}
