package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"backend/internal/app/config"
)

const emailAPIURL = "https://api.resend.com/emails"

// EmailClient — транзакционные письма через Resend HTTP API
type EmailClient struct {
	apiKey     string
	from       string
	httpClient *http.Client
}

func NewEmailClient(cfg config.EmailConfig) *EmailClient {
	return &EmailClient{
		apiKey:     cfg.APIKey,
		from:       cfg.From,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *EmailClient) Configured() bool {
	return c.apiKey != "" && c.from != ""
}

type emailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Send отправляет письмо; если провайдер не настроен — молча no-op,
// приглашение при этом всё равно создаётся
func (c *EmailClient) Send(ctx context.Context, to, subject, html string) error {
	if !c.Configured() {
		return nil
	}

	body, err := json.Marshal(emailRequest{
		From:    c.from,
		To:      []string{to},
		Subject: subject,
		HTML:    html,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, emailAPIURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("email request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("email API error: %d %s", resp.StatusCode, string(respBody))
	}

	return nil
}
