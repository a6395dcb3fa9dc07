package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/theblitlabs/conductor-worker/internal/core/models"
)

// HTTPWorkflowClient implements ports.WorkflowClient
type HTTPWorkflowClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPWorkflowClient(baseURL string, timeout time.Duration) *HTTPWorkflowClient {
	return &HTTPWorkflowClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: newHTTPClient(timeout),
	}
}

// StartWorkflow starts a workflow and returns its id. A version of 0 lets the
// server pick the latest definition.
func (c *HTTPWorkflowClient) StartWorkflow(ctx context.Context, name string, version int, input map[string]interface{}) (string, error) {
	if input == nil {
		input = map[string]interface{}{}
	}
	payload, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("failed to marshal workflow input: %w", err)
	}

	endpoint := fmt.Sprintf("%s/workflow/%s", c.baseURL, url.PathEscape(name))
	if version > 0 {
		endpoint += "?version=" + strconv.Itoa(version)
	}

	body, _, err := doRequest(ctx, c.httpClient, http.MethodPost, endpoint, payload)
	if err != nil {
		return "", err
	}
	return strings.Trim(strings.TrimSpace(string(body)), `"`), nil
}

func (c *HTTPWorkflowClient) GetWorkflow(ctx context.Context, workflowID string, includeTasks bool) (*models.Workflow, error) {
	endpoint := fmt.Sprintf("%s/workflow/%s?includeTasks=%t", c.baseURL, url.PathEscape(workflowID), includeTasks)

	body, _, err := doRequest(ctx, c.httpClient, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var wf models.Workflow
	if err := json.Unmarshal(body, &wf); err != nil {
		return nil, fmt.Errorf("failed to decode workflow: %w", err)
	}
	return &wf, nil
}

func (c *HTTPWorkflowClient) TerminateWorkflow(ctx context.Context, workflowID, reason string) error {
	endpoint := fmt.Sprintf("%s/workflow/%s", c.baseURL, url.PathEscape(workflowID))
	if reason != "" {
		endpoint += "?reason=" + url.QueryEscape(reason)
	}

	_, _, err := doRequest(ctx, c.httpClient, http.MethodDelete, endpoint, nil)
	return err
}
