package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/theblitlabs/conductor-worker/internal/core/models"
	"github.com/theblitlabs/conductor-worker/internal/core/ports"
	"github.com/theblitlabs/conductor-worker/pkg/logger"
)

type HealthHandler struct {
	status    ports.StatusProvider
	startedAt time.Time
	now       func() time.Time
}

func NewHealthHandler(status ports.StatusProvider, startedAt time.Time) *HealthHandler {
	return &HealthHandler{
		status:    status,
		startedAt: startedAt,
		now:       time.Now,
	}
}

// GetHealth reports the worker id, the running poll loops and uptime. The
// worker is starting until its first task type is started, and offline once
// every poll loop has exited. Both answer 503.
func (h *HealthHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	active := h.status.ActiveWorkers()
	info := models.WorkerInfo{
		WorkerID:      h.status.WorkerID(),
		Status:        models.WorkerStatusOnline,
		ActiveWorkers: active,
		TaskTypes:     h.status.TaskTypes(),
		StartedAt:     h.startedAt,
		Uptime:        int64(h.now().Sub(h.startedAt).Seconds()),
	}
	if info.TaskTypes == nil {
		info.TaskTypes = []string{}
	}

	code := http.StatusOK
	switch {
	case len(info.TaskTypes) == 0:
		info.Status = models.WorkerStatusStarting
		code = http.StatusServiceUnavailable
	case active == 0:
		info.Status = models.WorkerStatusOffline
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(info); err != nil {
		log := logger.WithComponent("api")
		log.Error().Err(err).Msg("Failed to encode health response")
	}
}
