package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"backend/internal/app/config"
	"backend/internal/app/ds"
	"backend/internal/app/middleware"
	"backend/internal/app/redis"
	"backend/internal/app/role"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-secret"

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			Token:         testJWTSecret,
			ExpiresIn:     time.Hour,
			SigningMethod: jwt.SigningMethodHS256,
		},
	}
}

func testRedisClient(t *testing.T) *redis.Client {
	srv := miniredis.RunT(t)
	port, err := strconv.Atoi(srv.Port())
	require.NoError(t, err)

	client, err := redis.New(context.Background(), config.RedisConfig{Host: srv.Host(), Port: port})
	require.NoError(t, err)
	return client
}

func testRouter(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)

	cfg := testConfig()
	redisClient := testRedisClient(t)

	authHandler := NewAuthHandler(nil, redisClient, cfg, nil)
	apiHandler := &APIHandler{Config: cfg, AuthHandler: authHandler}
	authMiddleware := middleware.NewAuthMiddleware(redisClient, cfg)

	router := gin.New()
	apiHandler.RegisterAPIRoutes(router, authMiddleware)
	return router
}

func signToken(t *testing.T, userRole role.Role) string {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, ds.JWTClaims{
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: now.Add(time.Hour).Unix(),
			IssuedAt:  now.Unix(),
			Issuer:    "donations-portal",
		},
		UserID: 7,
		Email:  "user@partner.example",
		Role:   userRole,
	})

	signed, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return signed
}

func doRequest(router *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestAnalysisRoutesRequireStaff(t *testing.T) {
	router := testRouter(t)
	partnerToken := signToken(t, role.Partner)

	// Партнёр проходит групповую авторизацию заявок, но запуск и
	// статус анализа для него закрыты
	w := doRequest(router, http.MethodPost, "/api/proposals/1/analyze", partnerToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(router, http.MethodGet, "/api/proposals/1/analyze/status", partnerToken)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAnalysisRoutesRequireAuth(t *testing.T) {
	router := testRouter(t)

	w := doRequest(router, http.MethodPost, "/api/proposals/1/analyze", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(router, http.MethodGet, "/api/proposals/1/analyze/status", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAnalysisStatusRoutePath(t *testing.T) {
	router := testRouter(t)

	var found bool
	for _, r := range router.Routes() {
		if r.Method == http.MethodGet && r.Path == "/api/proposals/:id/analyze/status" {
			found = true
		}
	}
	assert.True(t, found, "analysis status must live under /analyze/status")
}
