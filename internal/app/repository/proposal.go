package repository

import (
	"fmt"
	"time"

	"backend/internal/app/ds"
)

// CreateProposal создаёт грантовую заявку
func (r *Repository) CreateProposal(p *ds.Proposal) error {
	if p.AnalysisStatus == "" {
		p.AnalysisStatus = ds.AnalysisNone
	}
	return r.db.Create(p).Error
}

// GetProposals возвращает заявки; submittedBy != nil ограничивает
// выборку заявками партнёра (staff видит всё)
func (r *Repository) GetProposals(submittedBy *string) ([]ds.Proposal, error) {
	var proposals []ds.Proposal
	q := r.db.Order("created_at DESC")
	if submittedBy != nil {
		q = q.Where("submitted_by = ?", *submittedBy)
	}
	if err := q.Find(&proposals).Error; err != nil {
		return nil, err
	}
	return proposals, nil
}

// GetProposalByID возвращает заявку без документов
func (r *Repository) GetProposalByID(id uint) (*ds.Proposal, error) {
	var proposal ds.Proposal
	if err := r.db.First(&proposal, id).Error; err != nil {
		return nil, err
	}
	return &proposal, nil
}

// UpdateProposal частично обновляет поля заявки
func (r *Repository) UpdateProposal(id uint, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	res := r.db.Model(&ds.Proposal{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("proposal %d not found", id)
	}
	return nil
}

// ============ Документы ============

// AddDocument сохраняет метаданные загруженного документа
func (r *Repository) AddDocument(doc *ds.ProposalDocument) error {
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now()
	}
	return r.db.Create(doc).Error
}

// GetDocuments возвращает документы заявки, свежие первыми
func (r *Repository) GetDocuments(proposalID uint) ([]ds.ProposalDocument, error) {
	var docs []ds.ProposalDocument
	err := r.db.Where("proposal_id = ?", proposalID).Order("uploaded_at DESC").Find(&docs).Error
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// GetLatestDocument возвращает последний загруженный документ заявки
func (r *Repository) GetLatestDocument(proposalID uint) (*ds.ProposalDocument, error) {
	var doc ds.ProposalDocument
	err := r.db.Where("proposal_id = ?", proposalID).Order("uploaded_at DESC").First(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// GetDocumentByID возвращает документ в рамках конкретной заявки
func (r *Repository) GetDocumentByID(proposalID, docID uint) (*ds.ProposalDocument, error) {
	var doc ds.ProposalDocument
	err := r.db.Where("id = ? AND proposal_id = ?", docID, proposalID).First(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// ============ Состояние анализа ============

// SetAnalysisRun фиксирует внешний run id и переводит статус в pending
func (r *Repository) SetAnalysisRun(proposalID uint, runID string) error {
	return r.db.Model(&ds.Proposal{}).Where("id = ?", proposalID).Updates(map[string]interface{}{
		"external_run_id": runID,
		"analysis_status": ds.AnalysisPending,
	}).Error
}

// SetAnalysisStatus обновляет только статус (write-through кэш внешнего состояния)
func (r *Repository) SetAnalysisStatus(proposalID uint, status string) error {
	return r.db.Model(&ds.Proposal{}).Where("id = ?", proposalID).
		Update("analysis_status", status).Error
}

// SetAnalysisResult сохраняет итоговый payload и помечает анализ завершённым
func (r *Repository) SetAnalysisResult(proposalID uint, result []byte) error {
	return r.db.Model(&ds.Proposal{}).Where("id = ?", proposalID).Updates(map[string]interface{}{
		"analysis_result": result,
		"analysis_status": ds.AnalysisCompleted,
	}).Error
}

// ProposalStats — счётчики для публичной статистики. Заявка либо
// open (анализ не завершён), либо analyzed, сумма двух — все заявки.
func (r *Repository) ProposalStats() (open int64, analyzed int64, err error) {
	if err = r.db.Model(&ds.Proposal{}).Where("analysis_status <> ?", ds.AnalysisCompleted).Count(&open).Error; err != nil {
		return
	}
	err = r.db.Model(&ds.Proposal{}).Where("analysis_status = ?", ds.AnalysisCompleted).Count(&analyzed).Error
	return
}
