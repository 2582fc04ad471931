package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"backend/internal/app/analysis"
	"backend/internal/app/ds"
	"backend/internal/app/dto"
	"backend/internal/app/role"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Предел размера загружаемого документа
const maxDocumentSize = 20 << 20 // 20 MB

// Разрешённые типы документов для анализа
var allowedDocumentTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"text/plain":    true,
	"text/markdown": true,
}

func documentResponse(d *ds.ProposalDocument) dto.DocumentResponse {
	return dto.DocumentResponse{
		ID:          d.ID,
		Title:       d.Title,
		FileName:    d.FileName,
		StorageKey:  d.StorageKey,
		ContentType: d.ContentType,
		SizeBytes:   d.SizeBytes,
		UploadedAt:  d.UploadedAt,
	}
}

func proposalResponse(p *ds.Proposal) dto.ProposalResponse {
	resp := dto.ProposalResponse{
		ID:              p.ID,
		Title:           p.Title,
		Description:     p.Description,
		FundingBody:     p.FundingBody,
		FundingTarget:   p.FundingTarget,
		Currency:        p.Currency,
		Priority:        p.Priority,
		Deadline:        p.Deadline,
		Notes:           p.Notes,
		SubmittedBy:     p.SubmittedBy,
		SubmittedByName: p.SubmittedByName,
		AnalysisStatus:  p.AnalysisStatus,
		CreatedAt:       p.CreatedAt,
	}
	for i := range p.Documents {
		resp.Documents = append(resp.Documents, documentResponse(&p.Documents[i]))
	}
	return resp
}

// ============ ДОМЕН ЗАЯВКИ ============

// CreateProposal создание грантовой заявки
// @Summary Создание заявки
// @Description Создаёт грантовую заявку от имени текущего пользователя
// @Tags Proposals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateProposalRequest true "Данные заявки"
// @Success 201 {object} dto.ProposalResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/proposals [post]
func (h *APIHandler) CreateProposal(c *gin.Context) {
	var request dto.CreateProposalRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	userID, email, _, err := h.getUserFromContext(c)
	if err != nil {
		h.errorResponse(c, http.StatusUnauthorized, "user not authenticated")
		return
	}

	user, err := h.Repository.GetUserByID(userID)
	if err != nil {
		h.errorResponse(c, http.StatusUnauthorized, "user not found")
		return
	}

	proposal := &ds.Proposal{
		Title:           request.Title,
		Description:     request.Description,
		FundingBody:     request.FundingBody,
		FundingTarget:   request.FundingTarget,
		Notes:           request.Notes,
		SubmittedBy:     email,
		SubmittedByName: user.Name,
		AnalysisStatus:  ds.AnalysisNone,
	}
	if request.Currency != "" {
		proposal.Currency = strings.ToUpper(request.Currency)
	}
	if request.Priority != "" {
		proposal.Priority = request.Priority
	}
	if request.Deadline != nil && *request.Deadline != "" {
		deadline, err := time.Parse("2006-01-02", *request.Deadline)
		if err != nil {
			h.errorResponse(c, http.StatusBadRequest, "deadline must be in YYYY-MM-DD format")
			return
		}
		proposal.Deadline = &deadline
	}

	if err := h.Repository.CreateProposal(proposal); err != nil {
		logrus.Error("failed to create proposal: ", err)
		h.errorResponse(c, http.StatusInternalServerError, "failed to create proposal")
		return
	}

	c.JSON(http.StatusCreated, proposalResponse(proposal))
}

// GetProposals список заявок
// @Summary Список заявок
// @Description Сотрудники видят все заявки, партнёры только свои
// @Tags Proposals
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.ProposalListResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/proposals [get]
func (h *APIHandler) GetProposals(c *gin.Context) {
	_, email, userRole, err := h.getUserFromContext(c)
	if err != nil {
		h.errorResponse(c, http.StatusUnauthorized, "user not authenticated")
		return
	}

	var submittedBy *string
	if userRole != role.Staff {
		submittedBy = &email
	}

	proposals, err := h.Repository.GetProposals(submittedBy)
	if err != nil {
		logrus.Error("failed to load proposals: ", err)
		h.errorResponse(c, http.StatusInternalServerError, "failed to load proposals")
		return
	}

	resp := dto.ProposalListResponse{Proposals: make([]dto.ProposalResponse, 0, len(proposals))}
	for i := range proposals {
		resp.Proposals = append(resp.Proposals, proposalResponse(&proposals[i]))
	}
	resp.Total = len(resp.Proposals)

	c.JSON(http.StatusOK, resp)
}

// accessibleProposal загружает заявку и проверяет доступ текущего пользователя
func (h *APIHandler) accessibleProposal(c *gin.Context) (*ds.Proposal, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, "invalid proposal ID")
		return nil, false
	}

	_, email, userRole, err := h.getUserFromContext(c)
	if err != nil {
		h.errorResponse(c, http.StatusUnauthorized, "user not authenticated")
		return nil, false
	}

	proposal, err := h.Repository.GetProposalByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			h.errorResponse(c, http.StatusNotFound, "proposal not found")
		} else {
			logrus.Error("failed to load proposal: ", err)
			h.errorResponse(c, http.StatusInternalServerError, "failed to load proposal")
		}
		return nil, false
	}

	if userRole != role.Staff && proposal.SubmittedBy != email {
		h.errorResponse(c, http.StatusForbidden, "access denied")
		return nil, false
	}

	return proposal, true
}

// GetProposal одна заявка
// @Summary Получение заявки
// @Description Возвращает заявку с документами
// @Tags Proposals
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID заявки"
// @Success 200 {object} dto.ProposalResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/proposals/{id} [get]
func (h *APIHandler) GetProposal(c *gin.Context) {
	proposal, ok := h.accessibleProposal(c)
	if !ok {
		return
	}

	docs, err := h.Repository.GetDocuments(proposal.ID)
	if err != nil {
		logrus.Error("failed to load documents: ", err)
	} else {
		proposal.Documents = docs
	}

	c.JSON(http.StatusOK, proposalResponse(proposal))
}

// UpdateProposal изменение заявки
// @Summary Изменение заявки
// @Description Обновляет переданные поля заявки
// @Tags Proposals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID заявки"
// @Param request body dto.UpdateProposalRequest true "Изменяемые поля"
// @Success 200 {object} dto.ProposalResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/proposals/{id} [put]
func (h *APIHandler) UpdateProposal(c *gin.Context) {
	var request dto.UpdateProposalRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	proposal, ok := h.accessibleProposal(c)
	if !ok {
		return
	}

	fields := map[string]interface{}{}
	if request.Title != "" {
		fields["title"] = request.Title
	}
	if request.Description != "" {
		fields["description"] = request.Description
	}
	if request.FundingBody != "" {
		fields["funding_body"] = request.FundingBody
	}
	if request.FundingTarget != nil {
		fields["funding_target"] = *request.FundingTarget
	}
	if request.Priority != "" {
		fields["priority"] = request.Priority
	}
	if request.Notes != "" {
		fields["notes"] = request.Notes
	}

	if len(fields) > 0 {
		if err := h.Repository.UpdateProposal(proposal.ID, fields); err != nil {
			logrus.Error("failed to update proposal: ", err)
			h.errorResponse(c, http.StatusInternalServerError, "failed to update proposal")
			return
		}
	}

	updated, err := h.Repository.GetProposalByID(proposal.ID)
	if err != nil {
		h.errorResponse(c, http.StatusInternalServerError, "failed to load proposal")
		return
	}

	c.JSON(http.StatusOK, proposalResponse(updated))
}

// ============ ДОКУМЕНТЫ ЗАЯВКИ ============

// UploadProposalDocument загрузка документа заявки
// @Summary Загрузка документа
// @Description Загружает документ в хранилище и сохраняет метаданные
// @Tags Proposals
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID заявки"
// @Param file formData file true "Файл документа"
// @Param title formData string false "Название документа"
// @Success 201 {object} dto.DocumentResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/proposals/{id}/documents [post]
func (h *APIHandler) UploadProposalDocument(c *gin.Context) {
	proposal, ok := h.accessibleProposal(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, "file is required")
		return
	}

	if fileHeader.Size > maxDocumentSize {
		h.errorResponse(c, http.StatusBadRequest, "file is too large (max 20 MB)")
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if !allowedDocumentTypes[contentType] {
		h.errorResponse(c, http.StatusBadRequest, "unsupported document type")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.errorResponse(c, http.StatusInternalServerError, "failed to read file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.errorResponse(c, http.StatusInternalServerError, "failed to read file")
		return
	}

	storageKey, err := h.MinIOClient.UploadDocument(c.Request.Context(), proposal.ID, data, fileHeader.Filename, contentType)
	if err != nil {
		logrus.Error("failed to upload document: ", err)
		h.errorResponse(c, http.StatusInternalServerError, "failed to upload document")
		return
	}

	title := c.PostForm("title")
	if title == "" {
		title = fileHeader.Filename
	}

	size := fileHeader.Size
	doc := &ds.ProposalDocument{
		ProposalID:  proposal.ID,
		Title:       title,
		FileName:    fileHeader.Filename,
		StorageKey:  storageKey,
		ContentType: contentType,
		SizeBytes:   &size,
		UploadedAt:  time.Now(),
	}

	if err := h.Repository.AddDocument(doc); err != nil {
		logrus.Error("failed to save document metadata: ", err)
		// Метаданные не записались — файл в хранилище больше никому не нужен
		if delErr := h.MinIOClient.DeleteFile(c.Request.Context(), storageKey); delErr != nil {
			logrus.Warn("failed to clean up orphan file: ", delErr)
		}
		h.errorResponse(c, http.StatusInternalServerError, "failed to save document")
		return
	}

	c.JSON(http.StatusCreated, documentResponse(doc))
}

// GetProposalDocuments список документов заявки
// @Summary Документы заявки
// @Description Возвращает документы заявки, свежие первыми
// @Tags Proposals
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID заявки"
// @Success 200 {object} dto.DocumentListResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/proposals/{id}/documents [get]
func (h *APIHandler) GetProposalDocuments(c *gin.Context) {
	proposal, ok := h.accessibleProposal(c)
	if !ok {
		return
	}

	docs, err := h.Repository.GetDocuments(proposal.ID)
	if err != nil {
		logrus.Error("failed to load documents: ", err)
		h.errorResponse(c, http.StatusInternalServerError, "failed to load documents")
		return
	}

	resp := dto.DocumentListResponse{Documents: make([]dto.DocumentResponse, 0, len(docs))}
	for i := range docs {
		resp.Documents = append(resp.Documents, documentResponse(&docs[i]))
	}
	resp.Total = len(resp.Documents)

	c.JSON(http.StatusOK, resp)
}

// GetDocumentDownloadURL временная ссылка на скачивание
// @Summary Ссылка на скачивание
// @Description Возвращает временный presigned URL документа
// @Tags Proposals
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID заявки"
// @Param doc_id path int true "ID документа"
// @Success 200 {object} dto.DownloadURLResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/proposals/{id}/documents/{doc_id}/download [get]
func (h *APIHandler) GetDocumentDownloadURL(c *gin.Context) {
	proposal, ok := h.accessibleProposal(c)
	if !ok {
		return
	}

	docID, err := strconv.ParseUint(c.Param("doc_id"), 10, 32)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, "invalid document ID")
		return
	}

	doc, err := h.Repository.GetDocumentByID(proposal.ID, uint(docID))
	if err != nil {
		h.errorResponse(c, http.StatusNotFound, "document not found")
		return
	}

	url, err := h.MinIOClient.PresignedDownloadURL(c.Request.Context(), doc.StorageKey)
	if err != nil {
		logrus.Error("failed to generate download URL: ", err)
		h.errorResponse(c, http.StatusInternalServerError, "failed to generate download URL")
		return
	}

	c.JSON(http.StatusOK, dto.DownloadURLResponse{URL: url})
}

// ============ АНАЛИЗ ДОКУМЕНТОВ ============

// TriggerProposalAnalysis запуск анализа последнего документа
// (только для сотрудников)
// @Summary Запуск анализа
// @Description Ставит внешний batch-анализ документа в очередь
// @Tags Analysis
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID заявки"
// @Success 202 {object} dto.TriggerAnalysisResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /api/proposals/{id}/analyze [post]
func (h *APIHandler) TriggerProposalAnalysis(c *gin.Context) {
	proposal, ok := h.accessibleProposal(c)
	if !ok {
		return
	}

	runID, err := h.Analysis.Trigger(c.Request.Context(), proposal.ID)
	if err != nil {
		switch {
		case errors.Is(err, analysis.ErrNotConfigured):
			h.errorResponse(c, http.StatusServiceUnavailable, "document analysis is not configured")
		case errors.Is(err, analysis.ErrNoDocuments):
			h.errorResponse(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, analysis.ErrAnalysisInProgress):
			h.errorResponse(c, http.StatusConflict, err.Error())
		default:
			logrus.Error("failed to trigger analysis: ", err)
			h.errorResponse(c, http.StatusBadGateway, "failed to trigger analysis")
		}
		return
	}

	c.JSON(http.StatusAccepted, dto.TriggerAnalysisResponse{
		RunID:  runID,
		Status: ds.AnalysisPending,
	})
}

// GetProposalAnalysis текущий статус анализа (только для сотрудников)
// @Summary Статус анализа
// @Description Возвращает статус анализа; терминальный статус отдаётся из кэша
// @Tags Analysis
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID заявки"
// @Success 200 {object} dto.AnalysisStatusResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/proposals/{id}/analyze/status [get]
func (h *APIHandler) GetProposalAnalysis(c *gin.Context) {
	proposal, ok := h.accessibleProposal(c)
	if !ok {
		return
	}

	result, err := h.Analysis.Status(c.Request.Context(), proposal.ID)
	if err != nil {
		logrus.Error("failed to get analysis status: ", err)
		h.errorResponse(c, http.StatusInternalServerError, "failed to get analysis status")
		return
	}

	c.JSON(http.StatusOK, dto.AnalysisStatusResponse{
		Status:        result.Status,
		Result:        result.Result,
		ExternalState: result.ExternalState,
	})
}
