package handler

import (
	"backend/internal/app/middleware"
	"backend/internal/app/role"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// RegisterAPIRoutes регистрирует все REST API маршруты с авторизацией
func (h *APIHandler) RegisterAPIRoutes(router *gin.Engine, authMiddleware *middleware.AuthMiddleware) {
	// REST API маршруты
	api := router.Group("/api")

	// ============ Пожертвования (Donations) - публичные ============
	donations := api.Group("/donations")
	{
		donations.GET("/tiers", h.GetTiers) // GET уровни пожертвования

		// Визард пожертвования, состояние живёт в Redis
		donations.POST("/intents", h.CreateIntent)
		donations.GET("/intents/:id", h.GetIntent)
		donations.PUT("/intents/:id/tier", h.SelectIntentTier)
		donations.PUT("/intents/:id/amount", h.SetIntentAmount)
		donations.PUT("/intents/:id/details", h.UpdateIntentDetails)
		donations.POST("/intents/:id/continue", h.ContinueIntent)
		donations.POST("/intents/:id/back", h.BackIntent)
		donations.POST("/intents/:id/submit", h.SubmitIntent)
	}

	// Прямой checkout без визарда (форма на сайте)
	api.POST("/checkout", h.DirectCheckout)

	// ============ Заявки (Proposals) - для пользователей портала ============
	proposals := api.Group("/proposals")
	proposals.Use(authMiddleware.WithAuthCheck(role.Partner, role.Staff))
	{
		proposals.GET("", h.GetProposals)
		proposals.POST("", h.CreateProposal)
		proposals.GET("/:id", h.GetProposal)
		proposals.PUT("/:id", h.UpdateProposal)

		// Документы
		proposals.POST("/:id/documents", h.UploadProposalDocument)
		proposals.GET("/:id/documents", h.GetProposalDocuments)
		proposals.GET("/:id/documents/:doc_id/download", h.GetDocumentDownloadURL)

		// Анализ документов — только для сотрудников
		proposals.POST("/:id/analyze", authMiddleware.WithAuthCheck(role.Staff), h.TriggerProposalAnalysis)
		proposals.GET("/:id/analyze/status", authMiddleware.WithAuthCheck(role.Staff), h.GetProposalAnalysis)
	}

	// ============ Аутентификация ============
	auth := api.Group("/auth")
	{
		// Публичные эндпоинты
		auth.POST("/login", h.AuthHandler.LoginUser)           // POST вход по паролю
		auth.POST("/magic-link", h.AuthHandler.MagicLinkLogin) // POST вход по ссылке из письма

		// Защищенные эндпоинты
		auth.GET("/profile", authMiddleware.WithAuthCheck(role.Partner, role.Staff), h.AuthHandler.GetUserProfile)
		auth.POST("/logout", authMiddleware.WithAuthCheck(role.Partner, role.Staff), h.AuthHandler.LogoutUser)

		// Только для сотрудников
		auth.POST("/invite", authMiddleware.WithAuthCheck(role.Staff), h.AuthHandler.InviteUser)
	}

	// Асинхронные колбэки (авторизация по секрету в заголовке)
	webhooks := api.Group("/webhooks")
	{
		webhooks.POST("/analysis", h.AnalysisWebhook)
		webhooks.POST("/checkout", h.CheckoutWebhook)
	}

	// Публичная статистика для главной страницы
	api.GET("/stats", h.GetStats)

	// Swagger документация
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Ping эндпоинт для проверки
	router.GET("/ping", h.Ping)
}
