package worker

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/theblitlabs/conductor-worker/internal/core/models"
)

type MockTaskClient struct {
	mock.Mock
}

func (m *MockTaskClient) PollTask(ctx context.Context, taskType, workerID, domain string) (*models.Task, error) {
	args := m.Called(ctx, taskType, workerID, domain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Task), args.Error(1)
}

func (m *MockTaskClient) AckTask(ctx context.Context, taskID, workerID string) (bool, error) {
	args := m.Called(ctx, taskID, workerID)
	return args.Bool(0), args.Error(1)
}

func (m *MockTaskClient) UpdateTask(ctx context.Context, result *models.TaskResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

type pollResponse struct {
	task *models.Task
	err  error
}

type pollCall struct {
	taskType string
	workerID string
	domain   string
}

// fakeTaskClient serves scripted poll responses and then reports no work.
// It records every call for assertions from the test goroutine.
type fakeTaskClient struct {
	mu        sync.Mutex
	script    []pollResponse
	polls     []pollCall
	acks      []string
	updates   []*models.TaskResult
	ackResult bool
	ackErr    error
	updateErr error

	// pollGate, when set, blocks every poll until it is closed or the context ends.
	pollGate chan struct{}
	inFlight int
	maxInFl  int
}

func newFakeTaskClient(script ...pollResponse) *fakeTaskClient {
	return &fakeTaskClient{script: script, ackResult: true}
}

func (f *fakeTaskClient) PollTask(ctx context.Context, taskType, workerID, domain string) (*models.Task, error) {
	f.mu.Lock()
	f.polls = append(f.polls, pollCall{taskType: taskType, workerID: workerID, domain: domain})
	gate := f.pollGate
	f.inFlight++
	if f.inFlight > f.maxInFl {
		f.maxInFl = f.inFlight
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.script) == 0 {
		return nil, nil
	}
	next := f.script[0]
	f.script = f.script[1:]
	return next.task, next.err
}

func (f *fakeTaskClient) AckTask(_ context.Context, taskID, _ string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acks = append(f.acks, taskID)
	return f.ackResult, f.ackErr
}

func (f *fakeTaskClient) UpdateTask(_ context.Context, result *models.TaskResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, result)
	return f.updateErr
}

func (f *fakeTaskClient) pollCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.polls)
}

func (f *fakeTaskClient) maxConcurrentPolls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInFl
}

func (f *fakeTaskClient) recordedAcks() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.acks...)
}

func (f *fakeTaskClient) recordedUpdates() []*models.TaskResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*models.TaskResult(nil), f.updates...)
}

func (f *fakeTaskClient) recordedPolls() []pollCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]pollCall(nil), f.polls...)
}
