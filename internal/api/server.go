package api

import (
	"context"

	"backend/internal/app/analysis"
	"backend/internal/app/clients"
	"backend/internal/app/config"
	"backend/internal/app/donation"
	"backend/internal/app/dsn"
	"backend/internal/app/handler"
	"backend/internal/app/middleware"
	"backend/internal/app/redis"
	"backend/internal/app/repository"
	"backend/internal/app/storage"
	"backend/internal/pkg"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// StartServer собирает все зависимости и запускает HTTP сервер
func StartServer() {
	logrus.Info("Starting server")

	cfg, err := config.NewConfig()
	if err != nil {
		logrus.Fatal("failed to load config: ", err)
	}

	repo, err := repository.New(dsn.FromEnv())
	if err != nil {
		logrus.Fatal("failed to init repository: ", err)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logrus.Fatal("failed to connect to redis: ", err)
	}

	minioClient, err := storage.NewMinIOClient(cfg.Minio)
	if err != nil {
		logrus.Fatal("failed to init minio client: ", err)
	}

	// Клиенты внешних сервисов
	checkoutClient := clients.NewCheckoutClient(cfg.Checkout)
	emailClient := clients.NewEmailClient(cfg.Email)
	jobRunner := clients.NewJobRunnerClient(cfg.JobRunner)

	analysisService := analysis.NewService(repo, jobRunner, cfg.JobRunner, cfg.BaseURL, minioClient.Bucket(), minioClient.Region())
	intentStore := donation.NewStore(redisClient)

	authHandler := handler.NewAuthHandler(repo, redisClient, cfg, emailClient)
	apiHandler := handler.NewAPIHandler(repo, minioClient, redisClient, cfg, authHandler, checkoutClient, analysisService, intentStore)
	authMiddleware := middleware.NewAuthMiddleware(redisClient, cfg)

	router := gin.Default()

	// CORS для фронтенда
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization", "x-webhook-secret")
	router.Use(cors.New(corsConfig))

	apiHandler.RegisterAPIRoutes(router, authMiddleware)

	app := pkg.NewApp(cfg, router)
	app.RunApp()
}
