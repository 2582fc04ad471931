package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	ServiceHost string
	ServicePort int
	BaseURL     string // внешний адрес сервиса для колбэков и ссылок в письмах
	StaffDomain string // email-домен сотрудников (например greenshillings.org)
	JWT         JWTConfig
	Redis       RedisConfig
	Minio       MinioConfig
	Checkout    CheckoutConfig
	JobRunner   JobRunnerConfig
	Email       EmailConfig
}

type JWTConfig struct {
	Token         string
	ExpiresIn     time.Duration
	SigningMethod jwt.SigningMethod
}

type RedisConfig struct {
	Host        string
	Password    string
	Port        int
	User        string
	DialTimeout time.Duration
	ReadTimeout time.Duration
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// CheckoutConfig — параметры внешнего hosted-checkout провайдера
type CheckoutConfig struct {
	APIURL string
	APIKey string
}

// JobRunnerConfig — параметры внешнего batch-сервиса анализа документов
type JobRunnerConfig struct {
	Host          string
	Token         string
	AnalysisJobID int64
	WebhookSecret string
}

type EmailConfig struct {
	APIKey string
	From   string
}

const (
	envRedisHost = "REDIS_HOST"
	envRedisPort = "REDIS_PORT"
	envRedisUser = "REDIS_USER"
	envRedisPass = "REDIS_PASSWORD"
)

func NewConfig() (*Config, error) {
	var err error

	configName := "config"
	_ = godotenv.Load()
	if os.Getenv("CONFIG_NAME") != "" {
		configName = os.Getenv("CONFIG_NAME")
	}

	viper.SetConfigName(configName)
	viper.SetConfigType("toml")
	viper.AddConfigPath("config")
	viper.AddConfigPath(".")
	viper.WatchConfig()

	err = viper.ReadInConfig()
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	err = viper.Unmarshal(cfg)
	if err != nil {
		return nil, err
	}

	// JWT секрет берём только из окружения
	cfg.JWT = JWTConfig{
		Token:         os.Getenv("JWT_SECRET"),
		ExpiresIn:     24 * time.Hour,
		SigningMethod: jwt.SigningMethodHS256,
	}
	if cfg.JWT.Token == "" {
		return nil, fmt.Errorf("JWT_SECRET is not set")
	}

	// Redis конфигурация из env
	cfg.Redis.Host = os.Getenv(envRedisHost)
	cfg.Redis.Port, err = strconv.Atoi(os.Getenv(envRedisPort))
	if err != nil {
		return nil, fmt.Errorf("redis port must be int value: %w", err)
	}
	cfg.Redis.Password = os.Getenv(envRedisPass)
	cfg.Redis.User = os.Getenv(envRedisUser)
	cfg.Redis.DialTimeout = 10 * time.Second
	cfg.Redis.ReadTimeout = 10 * time.Second

	// MinIO (хранилище документов заявок)
	cfg.Minio.Endpoint = os.Getenv("MINIO_ENDPOINT")
	cfg.Minio.AccessKey = os.Getenv("MINIO_ACCESS_KEY")
	cfg.Minio.SecretKey = os.Getenv("MINIO_SECRET_KEY")
	cfg.Minio.Bucket = os.Getenv("MINIO_BUCKET")
	cfg.Minio.Region = os.Getenv("MINIO_REGION")
	cfg.Minio.UseSSL = os.Getenv("MINIO_USE_SSL") == "true"

	// Внешний hosted-checkout
	cfg.Checkout.APIURL = os.Getenv("CHECKOUT_API_URL")
	cfg.Checkout.APIKey = os.Getenv("CHECKOUT_API_KEY")

	// Внешний batch job runner для анализа документов
	cfg.JobRunner.Host = os.Getenv("JOBRUNNER_HOST")
	cfg.JobRunner.Token = os.Getenv("JOBRUNNER_TOKEN")
	if v := os.Getenv("JOBRUNNER_ANALYSIS_JOB_ID"); v != "" {
		cfg.JobRunner.AnalysisJobID, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("JOBRUNNER_ANALYSIS_JOB_ID must be int value: %w", err)
		}
	}
	cfg.JobRunner.WebhookSecret = os.Getenv("JOBRUNNER_WEBHOOK_SECRET")

	// Транзакционные письма
	cfg.Email.APIKey = os.Getenv("EMAIL_API_KEY")
	cfg.Email.From = os.Getenv("EMAIL_FROM")

	log.Info("config parsed")

	return cfg, nil
}
