package worker

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theblitlabs/conductor-worker/internal/core/config"
	"github.com/theblitlabs/conductor-worker/internal/core/models"
)

func newTestConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{URL: "http://conductor.invalid/api", Timeout: time.Second},
		Worker: config.WorkerConfig{
			ThreadCount:     2,
			PollingInterval: testInterval,
			WorkerID:        "worker-a",
			Domain:          "staging",
			TaskTypes:       []string{"encode"},
		},
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func TestNewServiceRejectsInvalidConfig(t *testing.T) {
	cfg := newTestConfig()
	cfg.Worker.ThreadCount = 0

	_, err := NewServiceWithClient(cfg, newFakeTaskClient())
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestServiceRun(t *testing.T) {
	t.Run("requires task types", func(t *testing.T) {
		cfg := newTestConfig()
		cfg.Worker.TaskTypes = nil
		svc, err := NewServiceWithClient(cfg, newFakeTaskClient())
		require.NoError(t, err)

		assert.ErrorIs(t, svc.Run(context.Background(), nil, EchoTask), ErrNoTaskTypes)
	})

	t.Run("polls configured task types until cancelled", func(t *testing.T) {
		client := newFakeTaskClient(pollResponse{task: newTestTask()})
		svc, err := NewServiceWithClient(newTestConfig(), client)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- svc.Run(ctx, nil, EchoTask) }()

		assert.Eventually(t, func() bool { return len(client.recordedUpdates()) == 1 }, waitFor, tick)
		assert.Equal(t, 2, svc.Pool().ActiveWorkers())
		assert.Equal(t, []string{"encode"}, svc.Pool().TaskTypes())
		assert.Equal(t, "staging", client.recordedPolls()[0].domain)

		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(waitFor):
			t.Fatal("run did not return after cancellation")
		}
		assert.NoError(t, svc.Stop(context.Background()))
	})

	t.Run("explicit task types override the configured ones", func(t *testing.T) {
		client := newFakeTaskClient()
		svc, err := NewServiceWithClient(newTestConfig(), client)
		require.NoError(t, err)

		done := make(chan error, 1)
		go func() { done <- svc.Run(context.Background(), []string{"resize", "thumbnail"}, EchoTask) }()

		assert.Eventually(t, func() bool { return svc.Pool().ActiveWorkers() == 4 }, waitFor, tick)
		assert.Equal(t, []string{"resize", "thumbnail"}, svc.Pool().TaskTypes())

		require.NoError(t, svc.Stop(context.Background()))
		assert.NoError(t, <-done)
	})

	t.Run("serves health while running", func(t *testing.T) {
		cfg := newTestConfig()
		cfg.Metrics.Port = freePort(t)
		svc, err := NewServiceWithClient(cfg, newFakeTaskClient())
		require.NoError(t, err)

		done := make(chan error, 1)
		go func() { done <- svc.Run(context.Background(), nil, EchoTask) }()
		assert.Eventually(t, func() bool { return svc.Pool().ActiveWorkers() == 2 }, waitFor, tick)

		resp, err := http.Get("http://" + net.JoinHostPort("127.0.0.1", strconv.Itoa(cfg.Metrics.Port)) + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()

		var info models.WorkerInfo
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "worker-a", info.WorkerID)
		assert.Equal(t, 2, info.ActiveWorkers)

		require.NoError(t, svc.Stop(context.Background()))
		assert.NoError(t, <-done)
	})
}
