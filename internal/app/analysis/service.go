package analysis

import (
	"context"
	"errors"
	"strconv"

	"backend/internal/app/clients"
	"backend/internal/app/config"
	"backend/internal/app/ds"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	// ErrNotConfigured — внешний runner не настроен, отдаётся как 503
	ErrNotConfigured = errors.New("analysis service is not configured")
	// ErrNoDocuments — бизнес-правило: без документов анализ не запускаем
	ErrNoDocuments = errors.New("no documents uploaded for this proposal")
	// ErrAnalysisInProgress — повторный запуск при живом run отклоняем
	ErrAnalysisInProgress = errors.New("analysis is already in progress")
)

// ProposalStore — персистентность состояния анализа
type ProposalStore interface {
	GetProposalByID(id uint) (*ds.Proposal, error)
	GetLatestDocument(proposalID uint) (*ds.ProposalDocument, error)
	SetAnalysisRun(proposalID uint, runID string) error
	SetAnalysisStatus(proposalID uint, status string) error
}

// JobRunner — внешний batch-сервис
type JobRunner interface {
	Configured() bool
	TriggerRun(ctx context.Context, jobID int64, params map[string]string) (int64, error)
	GetRunStatus(ctx context.Context, runID int64) (*clients.RunStatus, error)
}

// Service двигает статус анализа заявки: trigger запускает внешний
// run, Status подтягивает его состояние. Терминальные статусы
// кэшируются и внешний сервис больше не опрашивается.
type Service struct {
	store  ProposalStore
	runner JobRunner

	jobID         int64
	webhookURL    string
	webhookSecret string
	bucket        string
	region        string
}

func NewService(store ProposalStore, runner JobRunner, cfg config.JobRunnerConfig, baseURL, bucket, region string) *Service {
	return &Service{
		store:         store,
		runner:        runner,
		jobID:         cfg.AnalysisJobID,
		webhookURL:    baseURL + "/api/webhooks/analysis",
		webhookSecret: cfg.WebhookSecret,
		bucket:        bucket,
		region:        region,
	}
}

// Trigger запускает анализ последнего загруженного документа заявки.
// При ошибке внешнего вызова состояние не меняется.
func (s *Service) Trigger(ctx context.Context, proposalID uint) (string, error) {
	if !s.runner.Configured() || s.jobID == 0 {
		return "", ErrNotConfigured
	}

	proposal, err := s.store.GetProposalByID(proposalID)
	if err != nil {
		return "", err
	}

	// Гоняться с живым run не даём: остаётся только последний
	// записанный run id, поэтому дубль отклоняем сразу
	if proposal.AnalysisStatus == ds.AnalysisPending || proposal.AnalysisStatus == ds.AnalysisRunning {
		return "", ErrAnalysisInProgress
	}

	doc, err := s.store.GetLatestDocument(proposalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNoDocuments
		}
		return "", err
	}

	runID, err := s.runner.TriggerRun(ctx, s.jobID, map[string]string{
		"storage_key":    doc.StorageKey,
		"proposal_id":    strconv.FormatUint(uint64(proposalID), 10),
		"webhook_url":    s.webhookURL,
		"webhook_secret": s.webhookSecret,
		"bucket_name":    s.bucket,
		"aws_region":     s.region,
	})
	if err != nil {
		return "", err
	}

	runIDStr := strconv.FormatInt(runID, 10)
	if err := s.store.SetAnalysisRun(proposalID, runIDStr); err != nil {
		return "", err
	}

	return runIDStr, nil
}

// StatusResult — текущее состояние анализа для ответа клиенту
type StatusResult struct {
	Status        string
	Result        []byte
	ExternalState string
}

// Status возвращает статус анализа. Терминальный статус отдаётся из
// кэша без похода во внешний сервис; иначе состояние перечитывается у
// runner и при изменении записывается (write-through). Недоступный
// runner — не ошибка: возвращаем последний известный статус.
func (s *Service) Status(ctx context.Context, proposalID uint) (*StatusResult, error) {
	proposal, err := s.store.GetProposalByID(proposalID)
	if err != nil {
		return nil, err
	}

	if proposal.ExternalRunID == nil {
		return &StatusResult{Status: ds.AnalysisNone}, nil
	}

	if proposal.AnalysisStatus == ds.AnalysisCompleted || proposal.AnalysisStatus == ds.AnalysisFailed {
		return &StatusResult{Status: proposal.AnalysisStatus, Result: proposal.AnalysisResult}, nil
	}

	stored := proposal.AnalysisStatus
	if stored == "" {
		stored = ds.AnalysisNone
	}

	if !s.runner.Configured() {
		return &StatusResult{Status: stored, Result: proposal.AnalysisResult}, nil
	}

	runID, err := strconv.ParseInt(*proposal.ExternalRunID, 10, 64)
	if err != nil {
		return nil, err
	}

	runStatus, err := s.runner.GetRunStatus(ctx, runID)
	if err != nil {
		// Транзиентный сбой опроса — не повод ронять запрос,
		// отдаём последнее известное состояние
		logrus.Warnf("analysis poll failed for proposal %d: %v", proposalID, err)
		return &StatusResult{Status: stored, Result: proposal.AnalysisResult}, nil
	}

	mapped := MapRunState(runStatus.State)
	status := stored
	if mapped != "" {
		status = mapped
	}

	if status != proposal.AnalysisStatus {
		if err := s.store.SetAnalysisStatus(proposalID, status); err != nil {
			return nil, err
		}
	}

	return &StatusResult{
		Status:        status,
		Result:        proposal.AnalysisResult,
		ExternalState: runStatus.State.LifeCycleState,
	}, nil
}

// MapRunState переводит словарь внешнего сервиса в локальный статус.
// Неизвестные состояния не двигают статус (пустая строка).
func MapRunState(state clients.RunState) string {
	switch state.LifeCycleState {
	case clients.RunLifeCycleTerminated:
		if state.ResultState == clients.RunResultSuccess {
			return ds.AnalysisCompleted
		}
		return ds.AnalysisFailed
	case clients.RunLifeCycleRunning, clients.RunLifeCyclePending:
		return ds.AnalysisRunning
	default:
		return ""
	}
}
