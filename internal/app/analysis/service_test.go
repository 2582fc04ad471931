package analysis

import (
	"context"
	"errors"
	"testing"

	"backend/internal/app/clients"
	"backend/internal/app/config"
	"backend/internal/app/ds"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// stubStore — ProposalStore в памяти со счётчиками записей
type stubStore struct {
	proposal    *ds.Proposal
	latestDoc   *ds.ProposalDocument
	runWrites   []string
	statusSets  []string
	proposalErr error
}

func (s *stubStore) GetProposalByID(id uint) (*ds.Proposal, error) {
	if s.proposalErr != nil {
		return nil, s.proposalErr
	}
	return s.proposal, nil
}

func (s *stubStore) GetLatestDocument(proposalID uint) (*ds.ProposalDocument, error) {
	if s.latestDoc == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.latestDoc, nil
}

func (s *stubStore) SetAnalysisRun(proposalID uint, runID string) error {
	s.runWrites = append(s.runWrites, runID)
	s.proposal.AnalysisStatus = ds.AnalysisPending
	s.proposal.ExternalRunID = &runID
	return nil
}

func (s *stubStore) SetAnalysisStatus(proposalID uint, status string) error {
	s.statusSets = append(s.statusSets, status)
	s.proposal.AnalysisStatus = status
	return nil
}

// stubRunner — JobRunner со счётчиками вызовов
type stubRunner struct {
	configured  bool
	runID       int64
	triggerErr  error
	runStatus   *clients.RunStatus
	statusErr   error
	triggerHits int
	statusHits  int
}

func (r *stubRunner) Configured() bool { return r.configured }

func (r *stubRunner) TriggerRun(_ context.Context, jobID int64, params map[string]string) (int64, error) {
	r.triggerHits++
	if r.triggerErr != nil {
		return 0, r.triggerErr
	}
	return r.runID, nil
}

func (r *stubRunner) GetRunStatus(_ context.Context, runID int64) (*clients.RunStatus, error) {
	r.statusHits++
	if r.statusErr != nil {
		return nil, r.statusErr
	}
	return r.runStatus, nil
}

func newService(store *stubStore, runner *stubRunner) *Service {
	return NewService(store, runner, config.JobRunnerConfig{
		AnalysisJobID: 42,
		WebhookSecret: "s3cret",
	}, "https://example.org", "proposals-bucket", "eu-central-1")
}

func runID(v string) *string { return &v }

func TestTriggerNotConfigured(t *testing.T) {
	store := &stubStore{proposal: &ds.Proposal{ID: 1, AnalysisStatus: ds.AnalysisNone}}
	runner := &stubRunner{configured: false}

	_, err := newService(store, runner).Trigger(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Zero(t, runner.triggerHits)
}

func TestTriggerWithoutJobID(t *testing.T) {
	store := &stubStore{proposal: &ds.Proposal{ID: 1}}
	runner := &stubRunner{configured: true}

	svc := NewService(store, runner, config.JobRunnerConfig{}, "https://example.org", "b", "r")
	_, err := svc.Trigger(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestTriggerNoDocuments(t *testing.T) {
	store := &stubStore{proposal: &ds.Proposal{ID: 1, AnalysisStatus: ds.AnalysisNone}}
	runner := &stubRunner{configured: true, runID: 777}

	_, err := newService(store, runner).Trigger(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNoDocuments)
	assert.Zero(t, runner.triggerHits, "runner must not be called without documents")
}

func TestTriggerPersistsRunAndPending(t *testing.T) {
	store := &stubStore{
		proposal:  &ds.Proposal{ID: 1, AnalysisStatus: ds.AnalysisNone},
		latestDoc: &ds.ProposalDocument{StorageKey: "proposals/1/doc.pdf"},
	}
	runner := &stubRunner{configured: true, runID: 777}

	id, err := newService(store, runner).Trigger(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "777", id)
	assert.Equal(t, []string{"777"}, store.runWrites)
	assert.Equal(t, ds.AnalysisPending, store.proposal.AnalysisStatus)
}

func TestTriggerFailureLeavesStateUntouched(t *testing.T) {
	store := &stubStore{
		proposal:  &ds.Proposal{ID: 1, AnalysisStatus: ds.AnalysisNone},
		latestDoc: &ds.ProposalDocument{StorageKey: "proposals/1/doc.pdf"},
	}
	runner := &stubRunner{configured: true, triggerErr: errors.New("job runner API error: 500")}

	_, err := newService(store, runner).Trigger(context.Background(), 1)
	require.Error(t, err)
	assert.Empty(t, store.runWrites)
	assert.Equal(t, ds.AnalysisNone, store.proposal.AnalysisStatus)
}

func TestTriggerRejectsDuplicateWhileInFlight(t *testing.T) {
	for _, status := range []string{ds.AnalysisPending, ds.AnalysisRunning} {
		store := &stubStore{
			proposal:  &ds.Proposal{ID: 1, AnalysisStatus: status, ExternalRunID: runID("777")},
			latestDoc: &ds.ProposalDocument{StorageKey: "k"},
		}
		runner := &stubRunner{configured: true, runID: 888}

		_, err := newService(store, runner).Trigger(context.Background(), 1)
		assert.ErrorIs(t, err, ErrAnalysisInProgress, "status %s", status)
		assert.Zero(t, runner.triggerHits)
	}
}

func TestStatusNoneWithoutRun(t *testing.T) {
	store := &stubStore{proposal: &ds.Proposal{ID: 1}}
	runner := &stubRunner{configured: true}

	res, err := newService(store, runner).Status(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, ds.AnalysisNone, res.Status)
	assert.Zero(t, runner.statusHits)
}

func TestStatusTerminalShortCircuits(t *testing.T) {
	result := []byte(`{"score": 0.92}`)
	for _, status := range []string{ds.AnalysisCompleted, ds.AnalysisFailed} {
		store := &stubStore{proposal: &ds.Proposal{
			ID:             1,
			AnalysisStatus: status,
			ExternalRunID:  runID("777"),
			AnalysisResult: result,
		}}
		runner := &stubRunner{configured: true}

		res, err := newService(store, runner).Status(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, status, res.Status)
		assert.Equal(t, result, res.Result)
		assert.Zero(t, runner.statusHits, "terminal status must never re-query the runner")
	}
}

func TestStatusMappingTableWritesThrough(t *testing.T) {
	tests := []struct {
		name  string
		state clients.RunState
		want  string
	}{
		{"terminated success", clients.RunState{LifeCycleState: "TERMINATED", ResultState: "SUCCESS"}, ds.AnalysisCompleted},
		{"terminated failure", clients.RunState{LifeCycleState: "TERMINATED", ResultState: "FAILED"}, ds.AnalysisFailed},
		{"running", clients.RunState{LifeCycleState: "RUNNING"}, ds.AnalysisRunning},
		{"pending", clients.RunState{LifeCycleState: "PENDING"}, ds.AnalysisRunning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &stubStore{proposal: &ds.Proposal{
				ID:             1,
				AnalysisStatus: ds.AnalysisPending,
				ExternalRunID:  runID("777"),
			}}
			runner := &stubRunner{configured: true, runStatus: &clients.RunStatus{RunID: 777, State: tt.state}}

			res, err := newService(store, runner).Status(context.Background(), 1)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Status)
			assert.Equal(t, tt.state.LifeCycleState, res.ExternalState)
			assert.Equal(t, []string{tt.want}, store.statusSets, "derived status must be persisted")
		})
	}
}

func TestStatusUnchangedIsNotRewritten(t *testing.T) {
	store := &stubStore{proposal: &ds.Proposal{
		ID:             1,
		AnalysisStatus: ds.AnalysisRunning,
		ExternalRunID:  runID("777"),
	}}
	runner := &stubRunner{configured: true, runStatus: &clients.RunStatus{State: clients.RunState{LifeCycleState: "RUNNING"}}}

	res, err := newService(store, runner).Status(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, ds.AnalysisRunning, res.Status)
	assert.Empty(t, store.statusSets)
}

func TestStatusPollFailureFallsBackToStored(t *testing.T) {
	store := &stubStore{proposal: &ds.Proposal{
		ID:             1,
		AnalysisStatus: ds.AnalysisRunning,
		ExternalRunID:  runID("777"),
	}}
	runner := &stubRunner{configured: true, statusErr: errors.New("connection refused")}

	res, err := newService(store, runner).Status(context.Background(), 1)
	require.NoError(t, err, "transient poll failure must not surface")
	assert.Equal(t, ds.AnalysisRunning, res.Status)
	assert.Empty(t, store.statusSets)
}

func TestStatusRunnerUnconfiguredFallsBackToStored(t *testing.T) {
	store := &stubStore{proposal: &ds.Proposal{
		ID:             1,
		AnalysisStatus: ds.AnalysisPending,
		ExternalRunID:  runID("777"),
	}}
	runner := &stubRunner{configured: false}

	res, err := newService(store, runner).Status(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, ds.AnalysisPending, res.Status)
	assert.Zero(t, runner.statusHits)
}
