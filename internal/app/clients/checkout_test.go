package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"backend/internal/app/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCheckoutClient(url string) *CheckoutClient {
	return NewCheckoutClient(config.CheckoutConfig{APIURL: url, APIKey: "test-key"})
}

func TestCreateSessionSendsPayloadAndHeaders(t *testing.T) {
	var gotPath, gotAuth, gotIdempotency string
	var gotBody CheckoutSessionRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotIdempotency = r.Header.Get("Idempotency-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]string{"url": "https://pay.example/sess_42"})
	}))
	defer srv.Close()

	client := newTestCheckoutClient(srv.URL)
	url, err := client.CreateSession(context.Background(), CheckoutSessionRequest{
		Amount:         251,
		Email:          "amina@example.org",
		FullName:       "Amina Hassan",
		Frequency:      "MONTHLY",
		IdempotencyKey: "intent-1",
	})

	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/sess_42", url)
	assert.Equal(t, "/checkout/sessions", gotPath)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "intent-1", gotIdempotency)
	assert.Equal(t, 251, gotBody.Amount)
	assert.Equal(t, "MONTHLY", gotBody.Frequency)
}

func TestCreateSessionProviderErrorVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "card declined"})
	}))
	defer srv.Close()

	client := newTestCheckoutClient(srv.URL)
	_, err := client.CreateSession(context.Background(), CheckoutSessionRequest{Amount: 10, Email: "a@b.c"})

	require.Error(t, err)
	assert.EqualError(t, err, "card declined")
}

func TestCreateSessionSuccessWithoutURLIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer srv.Close()

	client := newTestCheckoutClient(srv.URL)
	_, err := client.CreateSession(context.Background(), CheckoutSessionRequest{Amount: 10, Email: "a@b.c"})

	require.Error(t, err)
	assert.EqualError(t, err, "no checkout URL returned")
}

func TestCreateSessionNotConfigured(t *testing.T) {
	client := NewCheckoutClient(config.CheckoutConfig{})
	_, err := client.CreateSession(context.Background(), CheckoutSessionRequest{Amount: 10})
	assert.ErrorIs(t, err, ErrCheckoutNotConfigured)
}
