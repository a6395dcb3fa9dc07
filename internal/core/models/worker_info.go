package models

import "time"

type WorkerStatus string

const (
	WorkerStatusStarting WorkerStatus = "starting"
	WorkerStatusOffline  WorkerStatus = "offline"
	WorkerStatusOnline   WorkerStatus = "online"
)

// WorkerInfo is the snapshot served by the health endpoint.
type WorkerInfo struct {
	WorkerID      string       `json:"worker_id"`
	Status        WorkerStatus `json:"status"`
	ActiveWorkers int          `json:"active_workers"`
	TaskTypes     []string     `json:"task_types"`
	StartedAt     time.Time    `json:"started_at"`
	Uptime        int64        `json:"uptime"`
}
