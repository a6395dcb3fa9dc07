package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/theblitlabs/conductor-worker/internal/core/models"
)

// HTTPError is returned when the server answers with an unexpected status code.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status code %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// HTTPTaskClient implements ports.TaskClient against the Conductor REST API
type HTTPTaskClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPTaskClient(baseURL string, timeout time.Duration) *HTTPTaskClient {
	return &HTTPTaskClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: newHTTPClient(timeout),
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// PollTask implements ports.TaskClient.PollTask
func (c *HTTPTaskClient) PollTask(ctx context.Context, taskType, workerID, domain string) (*models.Task, error) {
	query := url.Values{}
	query.Set("workerid", workerID)
	if domain != "" {
		query.Set("domain", domain)
	}
	endpoint := fmt.Sprintf("%s/tasks/poll/%s?%s", c.baseURL, url.PathEscape(taskType), query.Encode())

	body, status, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNoContent || len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	var task models.Task
	if err := json.Unmarshal(body, &task); err != nil {
		return nil, fmt.Errorf("failed to decode polled task: %w", err)
	}
	if task.TaskID == "" {
		return nil, nil
	}
	return &task, nil
}

// AckTask implements ports.TaskClient.AckTask
func (c *HTTPTaskClient) AckTask(ctx context.Context, taskID, workerID string) (bool, error) {
	query := url.Values{}
	query.Set("workerid", workerID)
	endpoint := fmt.Sprintf("%s/tasks/%s/ack?%s", c.baseURL, url.PathEscape(taskID), query.Encode())

	body, _, err := c.do(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return false, err
	}

	acked, err := strconv.ParseBool(strings.TrimSpace(string(body)))
	if err != nil {
		return false, fmt.Errorf("failed to decode ack response %q: %w", string(body), err)
	}
	return acked, nil
}

// UpdateTask implements ports.TaskClient.UpdateTask
func (c *HTTPTaskClient) UpdateTask(ctx context.Context, result *models.TaskResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal task result: %w", err)
	}

	_, _, err = c.do(ctx, http.MethodPost, c.baseURL+"/tasks", payload)
	return err
}

func (c *HTTPTaskClient) do(ctx context.Context, method, endpoint string, payload []byte) ([]byte, int, error) {
	return doRequest(ctx, c.httpClient, method, endpoint, payload)
}

func doRequest(ctx context.Context, client *http.Client, method, endpoint string, payload []byte) ([]byte, int, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("HTTP %s failed for %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, &HTTPError{
			Method:     method,
			URL:        endpoint,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	return body, resp.StatusCode, nil
}
