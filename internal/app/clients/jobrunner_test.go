package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"backend/internal/app/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJobRunner(url string) *JobRunnerClient {
	return NewJobRunnerClient(config.JobRunnerConfig{Host: url, Token: "dapi-test"})
}

func TestTriggerRunReturnsRunID(t *testing.T) {
	var gotPath string
	var gotBody runNowRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.Equal(t, "Bearer dapi-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]int64{"run_id": 777})
	}))
	defer srv.Close()

	client := newTestJobRunner(srv.URL)
	runID, err := client.TriggerRun(context.Background(), 42, map[string]string{"storage_key": "proposals/1/doc.pdf"})

	require.NoError(t, err)
	assert.Equal(t, int64(777), runID)
	assert.Equal(t, "/api/2.0/jobs/run-now", gotPath)
	assert.Equal(t, int64(42), gotBody.JobID)
	assert.Equal(t, "proposals/1/doc.pdf", gotBody.NotebookParams["storage_key"])
}

func TestTriggerRunWithoutRunIDIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer srv.Close()

	client := newTestJobRunner(srv.URL)
	_, err := client.TriggerRun(context.Background(), 42, nil)
	assert.Error(t, err)
}

func TestTriggerRunAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error_code":"PERMISSION_DENIED"}`))
	}))
	defer srv.Close()

	client := newTestJobRunner(srv.URL)
	_, err := client.TriggerRun(context.Background(), 42, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestGetRunStatusParsesState(t *testing.T) {
	var gotRunID string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/2.0/jobs/runs/get", r.URL.Path)
		gotRunID = r.URL.Query().Get("run_id")
		json.NewEncoder(w).Encode(RunStatus{
			RunID: 777,
			State: RunState{LifeCycleState: RunLifeCycleTerminated, ResultState: RunResultSuccess},
		})
	}))
	defer srv.Close()

	client := newTestJobRunner(srv.URL)
	status, err := client.GetRunStatus(context.Background(), 777)

	require.NoError(t, err)
	assert.Equal(t, "777", gotRunID)
	assert.Equal(t, RunLifeCycleTerminated, status.State.LifeCycleState)
	assert.Equal(t, RunResultSuccess, status.State.ResultState)
}

func TestClientsNotConfigured(t *testing.T) {
	client := NewJobRunnerClient(config.JobRunnerConfig{})

	assert.False(t, client.Configured())

	_, err := client.TriggerRun(context.Background(), 1, nil)
	assert.Error(t, err)

	_, err = client.GetRunStatus(context.Background(), 1)
	assert.Error(t, err)
}
