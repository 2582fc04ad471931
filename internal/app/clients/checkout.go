package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"backend/internal/app/config"
)

// ErrCheckoutNotConfigured — провайдер не настроен, это не бизнес-ошибка
var ErrCheckoutNotConfigured = errors.New("checkout provider not configured")

// CheckoutClient — клиент hosted-checkout провайдера платежей
type CheckoutClient struct {
	apiURL     string
	apiKey     string
	httpClient *http.Client
}

func NewCheckoutClient(cfg config.CheckoutConfig) *CheckoutClient {
	return &CheckoutClient{
		apiURL:     cfg.APIURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *CheckoutClient) Configured() bool {
	return c.apiURL != "" && c.apiKey != ""
}

// CheckoutSessionRequest — нормализованный payload для создания сессии
type CheckoutSessionRequest struct {
	Amount           int    `json:"amount"` // целые единицы валюты
	Email            string `json:"email"`
	FullName         string `json:"fullName"`
	Phone            string `json:"phone,omitempty"`
	PreferredChannel string `json:"preferredChannel"`
	Frequency        string `json:"frequency"` // MONTHLY | ONE_TIME
	IdempotencyKey   string `json:"idempotencyKey,omitempty"`
	SuccessURL       string `json:"successUrl,omitempty"`
	CancelURL        string `json:"cancelUrl,omitempty"`
}

type checkoutSessionResponse struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

// CreateSession создаёт checkout-сессию и возвращает redirect URL.
// Ошибка провайдера возвращается с его текстом, чтобы показать её
// пользователю дословно.
func (c *CheckoutClient) CreateSession(ctx context.Context, session CheckoutSessionRequest) (string, error) {
	if !c.Configured() {
		return "", ErrCheckoutNotConfigured
	}

	body, err := json.Marshal(session)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/checkout/sessions", bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if session.IdempotencyKey != "" {
		req.Header.Set("Idempotency-Key", session.IdempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("checkout request failed: %w", err)
	}
	defer resp.Body.Close()

	var result checkoutSessionResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&result)

	if resp.StatusCode >= 300 {
		if decodeErr == nil && result.Error != "" {
			return "", errors.New(result.Error)
		}
		return "", fmt.Errorf("checkout API error: %d", resp.StatusCode)
	}

	if decodeErr != nil {
		return "", fmt.Errorf("failed to decode checkout response: %w", decodeErr)
	}
	// Любой успешный ответ без URL считается ошибкой
	if result.URL == "" {
		return "", errors.New("no checkout URL returned")
	}

	return result.URL, nil
}
