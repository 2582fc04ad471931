package handler

import (
	"fmt"
	"net/http"

	"backend/internal/app/analysis"
	"backend/internal/app/clients"
	"backend/internal/app/config"
	"backend/internal/app/donation"
	"backend/internal/app/dto"
	"backend/internal/app/redis"
	"backend/internal/app/repository"
	"backend/internal/app/role"
	"backend/internal/app/storage"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// APIHandler содержит обработчики для REST API
type APIHandler struct {
	Repository  *repository.Repository
	MinIOClient *storage.MinIOClient
	RedisClient *redis.Client
	Config      *config.Config
	AuthHandler *AuthHandler

	Checkout *clients.CheckoutClient
	Analysis *analysis.Service
	Intents  *donation.Store
}

func NewAPIHandler(
	r *repository.Repository,
	minioClient *storage.MinIOClient,
	redisClient *redis.Client,
	cfg *config.Config,
	authHandler *AuthHandler,
	checkout *clients.CheckoutClient,
	analysisService *analysis.Service,
	intents *donation.Store,
) *APIHandler {
	return &APIHandler{
		Repository:  r,
		MinIOClient: minioClient,
		RedisClient: redisClient,
		Config:      cfg,
		AuthHandler: authHandler,
		Checkout:    checkout,
		Analysis:    analysisService,
		Intents:     intents,
	}
}

// Получение текущего пользователя из контекста
func (h *APIHandler) getUserFromContext(c *gin.Context) (uint, string, role.Role, error) {
	userID, exists := c.Get("userID")
	if !exists {
		logrus.Warn("userID not found in context")
		return 0, "", role.Public, fmt.Errorf("user not authenticated")
	}

	userEmail, _ := c.Get("userEmail")
	email, _ := userEmail.(string)

	userRole, _ := c.Get("userRole")
	r, _ := userRole.(role.Role)

	id, ok := userID.(uint)
	if !ok {
		logrus.Errorf("getUserFromContext: invalid userID type: %T", userID)
		return 0, email, r, fmt.Errorf("invalid user ID")
	}

	return id, email, r, nil
}

// ============ Вспомогательные функции ============

func (h *APIHandler) errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, dto.ErrorResponse{
		Status:  "fail",
		Message: message,
	})
}

func (h *APIHandler) successResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	response := dto.SuccessResponse{
		Status:  "success",
		Message: message,
	}
	if data != nil {
		response.Data = data
	}
	c.JSON(statusCode, response)
}

// ============ Статистика ============

// analyzedShare — доля проанализированных заявок среди всех
func analyzedShare(open, analyzed int64) float64 {
	if open+analyzed == 0 {
		return 0
	}
	return float64(analyzed) / float64(open+analyzed)
}

// GetStats публичная сводка по донатам и заявкам
// @Summary Публичная статистика
// @Description Возвращает агрегаты по донорам, пожертвованиям и заявкам
// @Tags Stats
// @Produce json
// @Success 200 {object} dto.StatsResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/stats [get]
func (h *APIHandler) GetStats(c *gin.Context) {
	donors, donations, total, err := h.Repository.DonationStats()
	if err != nil {
		h.errorResponse(c, http.StatusInternalServerError, "failed to load donation stats")
		return
	}

	open, analyzed, err := h.Repository.ProposalStats()
	if err != nil {
		h.errorResponse(c, http.StatusInternalServerError, "failed to load proposal stats")
		return
	}

	c.JSON(http.StatusOK, dto.StatsResponse{
		Donors:        donors,
		Donations:     donations,
		TotalDonated:  total,
		OpenProposals: open,
		AnalyzedShare: analyzedShare(open, analyzed),
	})
}

// Ping проверяет работоспособность API
// @Summary Проверка работоспособности
// @Description Возвращает простой ответ для проверки работы сервера
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /ping [get]
func (h *APIHandler) Ping(c *gin.Context) {
	c.JSON(200, gin.H{"message": "pong"})
}
