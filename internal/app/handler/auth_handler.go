package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"backend/internal/app/clients"
	"backend/internal/app/config"
	"backend/internal/app/ds"
	"backend/internal/app/dto"
	"backend/internal/app/redis"
	"backend/internal/app/repository"
	"backend/internal/app/role"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

type AuthHandler struct {
	Repository  *repository.Repository
	RedisClient *redis.Client
	Config      *config.Config
	Email       *clients.EmailClient
}

func NewAuthHandler(r *repository.Repository, redisClient *redis.Client, cfg *config.Config, email *clients.EmailClient) *AuthHandler {
	return &AuthHandler{
		Repository:  r,
		RedisClient: redisClient,
		Config:      cfg,
		Email:       email,
	}
}

// generateMagicToken генерирует одноразовый токен для входа по ссылке
func generateMagicToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// issueJWT подписывает токен доступа для пользователя портала
func (h *AuthHandler) issueJWT(user *ds.PortalUser) (string, role.Role, error) {
	userRole := role.Classify(user.Email, user.Role, h.Config.StaffDomain)

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, ds.JWTClaims{
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: now.Add(h.Config.JWT.ExpiresIn).Unix(),
			IssuedAt:  now.Unix(),
			Issuer:    "donations-portal",
		},
		UserID: user.ID,
		Email:  user.Email,
		Role:   userRole,
	})

	accessToken, err := token.SignedString([]byte(h.Config.JWT.Token))
	if err != nil {
		return "", userRole, err
	}
	return accessToken, userRole, nil
}

// LoginUser аутентификация по email и паролю
// @Summary Вход в портал
// @Description Аутентификация пользователя портала с возвратом JWT токена
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Данные для входа"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /api/auth/login [post]
func (h *AuthHandler) LoginUser(ctx *gin.Context) {
	var request dto.LoginRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		h.errorHandler(ctx, http.StatusBadRequest, err)
		return
	}

	user, err := h.Repository.GetUserByEmail(strings.ToLower(request.Email))
	if err != nil {
		h.errorHandler(ctx, http.StatusUnauthorized, errors.New("invalid email or password"))
		return
	}

	// Учётки, приглашённые по magic-link, пароля не имеют
	if user.PasswordHash == nil {
		h.errorHandler(ctx, http.StatusUnauthorized, errors.New("this account uses magic-link sign-in"))
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(request.Password)); err != nil {
		h.errorHandler(ctx, http.StatusUnauthorized, errors.New("invalid email or password"))
		return
	}

	accessToken, userRole, err := h.issueJWT(user)
	if err != nil {
		h.errorHandler(ctx, http.StatusInternalServerError, err)
		return
	}

	if err := h.Repository.TouchLastLogin(user.ID); err != nil {
		logrus.Warn("failed to update last login: ", err)
	}

	ctx.JSON(http.StatusOK, gin.H{
		"status":     "success",
		"message":    "signed in successfully",
		"user_id":    user.ID,
		"role":       userRole.String(),
		"token":      accessToken,
		"email":      user.Email,
		"expires_in": int(h.Config.JWT.ExpiresIn.Seconds()),
		"token_type": "Bearer",
	})
}

// MagicLinkLogin вход по одноразовому токену из письма
// @Summary Вход по magic-link
// @Description Обмен одноразового токена из письма на JWT токен
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.MagicLinkRequest true "Токен из письма"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /api/auth/magic-link [post]
func (h *AuthHandler) MagicLinkLogin(ctx *gin.Context) {
	var request dto.MagicLinkRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		h.errorHandler(ctx, http.StatusBadRequest, err)
		return
	}

	user, err := h.Repository.GetUserByMagicToken(request.Token)
	if err != nil {
		h.errorHandler(ctx, http.StatusUnauthorized, errors.New("invalid or expired sign-in link"))
		return
	}

	if user.MagicLinkExpiry == nil || user.MagicLinkExpiry.Before(time.Now()) {
		h.errorHandler(ctx, http.StatusUnauthorized, errors.New("invalid or expired sign-in link"))
		return
	}

	// Токен одноразовый: гасим сразу после успешной проверки
	if err := h.Repository.ConsumeMagicToken(user.ID); err != nil {
		h.errorHandler(ctx, http.StatusInternalServerError, err)
		return
	}

	accessToken, userRole, err := h.issueJWT(user)
	if err != nil {
		h.errorHandler(ctx, http.StatusInternalServerError, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"status":     "success",
		"message":    "signed in successfully",
		"user_id":    user.ID,
		"role":       userRole.String(),
		"token":      accessToken,
		"email":      user.Email,
		"expires_in": int(h.Config.JWT.ExpiresIn.Seconds()),
		"token_type": "Bearer",
	})
}

// LogoutUser выход пользователя из системы
// @Summary Выход из портала
// @Description Завершение сеанса пользователя с добавлением токена в blacklist
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/auth/logout [post]
func (h *AuthHandler) LogoutUser(ctx *gin.Context) {
	// Получение токена из заголовка
	tokenString := ctx.GetHeader("Authorization")
	if tokenString == "" {
		h.errorHandler(ctx, http.StatusUnauthorized, errors.New("authorization header missing"))
		return
	}

	// Удаление префикса "Bearer "
	if len(tokenString) > 7 && tokenString[:7] == "Bearer " {
		tokenString = tokenString[7:]
	}

	// Парсинг токена для получения TTL
	token, err := jwt.ParseWithClaims(tokenString, &ds.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(h.Config.JWT.Token), nil
	})

	if err != nil {
		h.errorHandler(ctx, http.StatusUnauthorized, err)
		return
	}

	claims, ok := token.Claims.(*ds.JWTClaims)
	if !ok {
		h.errorHandler(ctx, http.StatusUnauthorized, errors.New("invalid token claims"))
		return
	}

	// Вычисление TTL до истечения токена
	ttl := time.Until(time.Unix(claims.ExpiresAt, 0))
	if ttl <= 0 {
		// Токен уже истек
		ctx.JSON(http.StatusOK, gin.H{
			"status":  "success",
			"message": "signed out successfully",
		})
		return
	}

	// Добавление токена в blacklist
	err = h.RedisClient.WriteJWTToBlacklist(context.Background(), tokenString, ttl)
	if err != nil {
		h.errorHandler(ctx, http.StatusInternalServerError, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "signed out successfully",
	})
}

// GetUserProfile получение профиля пользователя
// @Summary Профиль пользователя
// @Description Возвращает информацию о текущем пользователе портала
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/auth/profile [get]
func (h *AuthHandler) GetUserProfile(ctx *gin.Context) {
	// ID пользователя установлен middleware
	userID, exists := ctx.Get("userID")
	if !exists {
		h.errorHandler(ctx, http.StatusUnauthorized, errors.New("user not authenticated"))
		return
	}

	userRole, roleExists := ctx.Get("userRole")
	if !roleExists {
		h.errorHandler(ctx, http.StatusUnauthorized, errors.New("user role not found"))
		return
	}

	user, err := h.Repository.GetUserByID(userID.(uint))
	if err != nil {
		h.errorHandler(ctx, http.StatusNotFound, errors.New("user not found"))
		return
	}

	r, _ := userRole.(role.Role)
	ctx.JSON(http.StatusOK, gin.H{
		"status": "success",
		"user": dto.UserResponse{
			ID:           user.ID,
			Email:        user.Email,
			Name:         user.Name,
			Role:         r.String(),
			Organization: user.Organization,
		},
	})
}

// InviteUser приглашение партнёра в портал (только сотрудники)
// @Summary Приглашение пользователя
// @Description Создание учётки портала и отправка приглашения на email
// @Tags Authentication
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.InviteRequest true "Данные приглашения"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/auth/invite [post]
func (h *AuthHandler) InviteUser(ctx *gin.Context) {
	var request dto.InviteRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		h.errorHandler(ctx, http.StatusBadRequest, err)
		return
	}

	email := strings.ToLower(request.Email)
	exists, _ := h.Repository.UserExistsByEmail(email)
	if exists {
		h.errorHandler(ctx, http.StatusBadRequest, errors.New("a user with this email already exists"))
		return
	}

	now := time.Now()
	user := &ds.PortalUser{
		Email:        email,
		Name:         request.Name,
		Role:         "PARTNER",
		Organization: request.Organization,
		InvitedAt:    &now,
	}

	var magicToken string
	switch request.AuthMethod {
	case "password":
		if request.Password == "" {
			h.errorHandler(ctx, http.StatusBadRequest, errors.New("password is required for password auth"))
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(request.Password), bcrypt.DefaultCost)
		if err != nil {
			h.errorHandler(ctx, http.StatusInternalServerError, err)
			return
		}
		hashStr := string(hash)
		user.PasswordHash = &hashStr
	default: // magic-link
		token, err := generateMagicToken()
		if err != nil {
			h.errorHandler(ctx, http.StatusInternalServerError, err)
			return
		}
		magicToken = token
		expiry := now.Add(7 * 24 * time.Hour)
		user.MagicLinkToken = &token
		user.MagicLinkExpiry = &expiry
	}

	if err := h.Repository.CreateUser(user); err != nil {
		logrus.Error("Error creating portal user: ", err)
		h.errorHandler(ctx, http.StatusInternalServerError, errors.New("failed to create user"))
		return
	}

	// Письмо с приглашением; без настроенного email-провайдера просто молчим
	subject := "You have been invited to the partner portal"
	body := fmt.Sprintf("<p>Hello %s,</p><p>You have been invited to the partner portal.</p>", request.Name)
	if magicToken != "" {
		link := fmt.Sprintf("%s/portal/magic?token=%s", h.Config.BaseURL, magicToken)
		body += fmt.Sprintf("<p><a href=%q>Sign in with this link</a> (valid for 7 days).</p>", link)
	} else {
		body += fmt.Sprintf("<p>Sign in at %s/portal with your email and password.</p>", h.Config.BaseURL)
	}
	if err := h.Email.Send(ctx.Request.Context(), email, subject, body); err != nil {
		logrus.Warn("failed to send invite email: ", err)
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"status":  "success",
		"message": "invitation sent",
		"user": dto.UserResponse{
			ID:           user.ID,
			Email:        user.Email,
			Name:         user.Name,
			Role:         "partner",
			Organization: user.Organization,
		},
	})
}

// errorHandler централизованная обработка ошибок
func (h *AuthHandler) errorHandler(ctx *gin.Context, errorStatusCode int, err error) {
	logrus.Error(err.Error())
	ctx.JSON(errorStatusCode, gin.H{
		"status":      "error",
		"description": err.Error(),
	})
}
