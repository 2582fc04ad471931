package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"backend/internal/app/config"
)

// Жизненный цикл запуска во внешнем batch-сервисе (его собственный
// словарь статусов, не наш analysis status)
const (
	RunLifeCyclePending    = "PENDING"
	RunLifeCycleRunning    = "RUNNING"
	RunLifeCycleTerminated = "TERMINATED"

	RunResultSuccess = "SUCCESS"
)

// JobRunnerClient — клиент внешнего batch-сервиса анализа документов
// (jobs API в стиле Databricks: run-now + runs/get)
type JobRunnerClient struct {
	host       string
	token      string
	httpClient *http.Client
}

func NewJobRunnerClient(cfg config.JobRunnerConfig) *JobRunnerClient {
	return &JobRunnerClient{
		host:       cfg.Host,
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Configured проверяет что host и токен заданы
func (c *JobRunnerClient) Configured() bool {
	return c.host != "" && c.token != ""
}

type runNowRequest struct {
	JobID          int64             `json:"job_id"`
	NotebookParams map[string]string `json:"notebook_params,omitempty"`
}

type runNowResponse struct {
	RunID int64 `json:"run_id"`
}

// RunState — состояние запуска во внешнем сервисе
type RunState struct {
	LifeCycleState string `json:"life_cycle_state"`
	ResultState    string `json:"result_state"`
}

// RunStatus — ответ runs/get
type RunStatus struct {
	RunID int64    `json:"run_id"`
	State RunState `json:"state"`
}

// TriggerRun запускает задачу и возвращает run id
func (c *JobRunnerClient) TriggerRun(ctx context.Context, jobID int64, params map[string]string) (int64, error) {
	if !c.Configured() {
		return 0, fmt.Errorf("job runner credentials not configured")
	}

	body, err := json.Marshal(runNowRequest{JobID: jobID, NotebookParams: params})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/2.0/jobs/run-now", bytes.NewBuffer(body))
	if err != nil {
		return 0, err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("job runner request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("job runner API error: %d %s", resp.StatusCode, string(respBody))
	}

	var result runNowResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("failed to decode run-now response: %w", err)
	}
	if result.RunID == 0 {
		return 0, fmt.Errorf("job runner returned no run_id")
	}

	return result.RunID, nil
}

// GetRunStatus запрашивает состояние запуска по run id
func (c *JobRunnerClient) GetRunStatus(ctx context.Context, runID int64) (*RunStatus, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("job runner credentials not configured")
	}

	u := c.host + "/api/2.0/jobs/runs/get?" + url.Values{"run_id": {strconv.FormatInt(runID, 10)}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("job runner request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("job runner API error: %d %s", resp.StatusCode, string(respBody))
	}

	var status RunStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode run status: %w", err)
	}

	return &status, nil
}

func (c *JobRunnerClient) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
}
