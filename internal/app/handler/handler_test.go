package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"backend/internal/app/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestFormatPhoneNumber(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"+255712345678", "+255712345678"},
		{"0712345678", "+255712345678"},
		{"255712345678", "+255712345678"},
		{"0712 345 678", "+255712345678"},
		{"0712-345-678", "+255712345678"},
		{"(0712) 345678", "+255712345678"},
		{"+14155550100", "+14155550100"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, formatPhoneNumber(tt.in), "input %q", tt.in)
	}
}

func TestNormalizeChannel(t *testing.T) {
	assert.Equal(t, "EMAIL", normalizeChannel(""))
	assert.Equal(t, "EMAIL", normalizeChannel("email"))
	assert.Equal(t, "SMS", normalizeChannel("sms"))
	assert.Equal(t, "WHATSAPP", normalizeChannel("WhatsApp"))
	assert.Equal(t, "ALL", normalizeChannel("all"))
	assert.Equal(t, "EMAIL", normalizeChannel("carrier pigeon"))
}

func webhookTestContext(secret string) (*APIHandler, *gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	h := &APIHandler{Config: &config.Config{
		JobRunner: config.JobRunnerConfig{WebhookSecret: secret},
	}}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/webhooks/analysis", nil)
	return h, c, w
}

func TestCheckWebhookSecret(t *testing.T) {
	t.Run("valid secret passes", func(t *testing.T) {
		h, c, _ := webhookTestContext("s3cret")
		c.Request.Header.Set("x-webhook-secret", "s3cret")
		assert.True(t, h.checkWebhookSecret(c))
	})

	t.Run("wrong secret is unauthorized", func(t *testing.T) {
		h, c, w := webhookTestContext("s3cret")
		c.Request.Header.Set("x-webhook-secret", "guess")
		assert.False(t, h.checkWebhookSecret(c))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("missing header is unauthorized", func(t *testing.T) {
		h, c, w := webhookTestContext("s3cret")
		assert.False(t, h.checkWebhookSecret(c))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unconfigured secret disables webhooks", func(t *testing.T) {
		h, c, w := webhookTestContext("")
		c.Request.Header.Set("x-webhook-secret", "")
		assert.False(t, h.checkWebhookSecret(c))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestAnalyzedShare(t *testing.T) {
	assert.Equal(t, 0.0, analyzedShare(0, 0))
	assert.Equal(t, 1.0, analyzedShare(0, 10), "all proposals analyzed must give 1.0")
	assert.Equal(t, 0.5, analyzedShare(5, 5))
	assert.Equal(t, 0.0, analyzedShare(7, 0))
	assert.Equal(t, 0.25, analyzedShare(3, 1))
}
