package handler

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"

	"backend/internal/app/dto"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// checkWebhookSecret сверяет заголовок x-webhook-secret с настроенным
// значением. Сравнение константное по времени.
func (h *APIHandler) checkWebhookSecret(c *gin.Context) bool {
	secret := h.Config.JobRunner.WebhookSecret
	if secret == "" {
		h.errorResponse(c, http.StatusServiceUnavailable, "webhooks are not configured")
		return false
	}

	got := c.GetHeader("x-webhook-secret")
	if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
		logrus.Warn("webhook called with invalid secret")
		h.errorResponse(c, http.StatusUnauthorized, "invalid webhook secret")
		return false
	}
	return true
}

// AnalysisWebhook колбэк batch-сервиса с результатом анализа
// @Summary Вебхук анализа
// @Description Принимает результат анализа и помечает заявку завершённой
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param x-webhook-secret header string true "Секрет вебхука"
// @Success 200 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /api/webhooks/analysis [post]
func (h *APIHandler) AnalysisWebhook(c *gin.Context) {
	if !h.checkWebhookSecret(c) {
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, "failed to read request body")
		return
	}

	var request dto.AnalysisWebhookRequest
	if err := json.Unmarshal(body, &request); err != nil || request.ProposalID == 0 {
		h.errorResponse(c, http.StatusBadRequest, "proposal_id is required")
		return
	}

	// Заявка должна существовать, иначе это чужой колбэк
	if _, err := h.Repository.GetProposalByID(request.ProposalID); err != nil {
		h.errorResponse(c, http.StatusNotFound, "proposal not found")
		return
	}

	// Весь payload сохраняем как результат анализа
	if err := h.Repository.SetAnalysisResult(request.ProposalID, body); err != nil {
		logrus.Error("failed to store analysis result: ", err)
		h.errorResponse(c, http.StatusInternalServerError, "failed to store analysis result")
		return
	}

	logrus.Infof("analysis result stored for proposal %d", request.ProposalID)
	h.successResponse(c, http.StatusOK, "analysis result stored", nil)
}

// CheckoutWebhook колбэк платёжного провайдера об исходе оплаты
// @Summary Вебхук оплаты
// @Description Завершает PENDING-пожертвование по исходу оплаты
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param x-webhook-secret header string true "Секрет вебхука"
// @Param request body dto.CheckoutWebhookRequest true "Исход оплаты"
// @Success 200 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /api/webhooks/checkout [post]
func (h *APIHandler) CheckoutWebhook(c *gin.Context) {
	if !h.checkWebhookSecret(c) {
		return
	}

	var request dto.CheckoutWebhookRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.Repository.CompleteDonation(request.CheckoutRef, request.Paid); err != nil {
		logrus.Error("failed to complete donation: ", err)
		h.errorResponse(c, http.StatusInternalServerError, "failed to complete donation")
		return
	}

	logrus.Infof("donation %s marked paid=%v", request.CheckoutRef, request.Paid)
	h.successResponse(c, http.StatusOK, "donation updated", nil)
}
