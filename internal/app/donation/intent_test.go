package donation

import (
	"context"
	"errors"
	"testing"

	"backend/internal/app/clients"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubStarter записывает вызовы к платёжному провайдеру
type stubStarter struct {
	calls   int
	lastReq clients.CheckoutSessionRequest
	url     string
	err     error
}

func (s *stubStarter) CreateSession(_ context.Context, req clients.CheckoutSessionRequest) (string, error) {
	s.calls++
	s.lastReq = req
	if s.err != nil {
		return "", s.err
	}
	return s.url, nil
}

func TestNewIntentDefaults(t *testing.T) {
	intent := NewIntent()

	assert.Equal(t, StepSelect, intent.Step)
	assert.Equal(t, DefaultTierID, intent.TierID)
	assert.Equal(t, FrequencyMonthly, intent.Frequency)
	assert.Equal(t, "email", intent.Channel)
	assert.True(t, intent.OptIn)
	assert.Equal(t, 100, intent.Amount())
	assert.NotEmpty(t, intent.ID)
}

func TestAmountSourceIsSingular(t *testing.T) {
	intent := NewIntent()

	// своя сумма вытесняет tier
	intent.SetCustomAmount("250.7")
	assert.Empty(t, intent.TierID)
	assert.Equal(t, 251, intent.Amount())

	// выбор tier очищает свою сумму
	require.NoError(t, intent.SelectTier("systemic-reformer"))
	assert.Empty(t, intent.RawAmount)
	assert.Equal(t, 500, intent.Amount())

	// и обратно
	intent.SetCustomAmount("10")
	assert.Empty(t, intent.TierID)
	assert.Equal(t, 10, intent.Amount())
}

func TestSelectTierUnknown(t *testing.T) {
	intent := NewIntent()
	assert.ErrorIs(t, intent.SelectTier("mega-donor"), ErrUnknownTier)
}

func TestCustomAmountParsing(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{"integer", "40", 40},
		{"rounds up", "250.7", 251},
		{"rounds down", "99.2", 99},
		{"garbage keeps raw but zero amount", "abc", 0},
		{"empty falls back to nothing", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent := NewIntent()
			intent.SetCustomAmount(tt.raw)
			assert.Equal(t, tt.want, intent.Amount())
			assert.Equal(t, tt.raw, intent.RawAmount)
		})
	}
}

func TestAllocationSumsExactly(t *testing.T) {
	for _, amount := range []string{"1", "3", "7", "33", "99", "100", "101", "251", "999999"} {
		intent := NewIntent()
		intent.SetCustomAmount(amount)

		split := intent.Allocation()
		assert.Equal(t, intent.Amount(), split.Community+split.Operations+split.Advocacy,
			"allocation must sum exactly for amount %s", amount)
	}
}

func TestContinueGuards(t *testing.T) {
	intent := NewIntent()

	// без суммы вперёд нельзя
	intent.SetCustomAmount("junk")
	assert.ErrorIs(t, intent.Continue(), ErrAmountRequired)
	assert.Equal(t, StepSelect, intent.Step)

	intent.SetCustomAmount("50")
	require.NoError(t, intent.Continue())
	assert.Equal(t, StepDetails, intent.Step)

	// без контактов нельзя на confirm
	assert.ErrorIs(t, intent.Continue(), ErrDetailsRequired)

	intent.Donor = Donor{FirstName: "Asha", LastName: "Mwakyusa", Email: "asha@example.org"}
	require.NoError(t, intent.Continue())
	assert.Equal(t, StepConfirm, intent.Step)

	// continue на confirm — no-op
	require.NoError(t, intent.Continue())
	assert.Equal(t, StepConfirm, intent.Step)
}

func TestBackKeepsData(t *testing.T) {
	intent := NewIntent()
	intent.SetCustomAmount("75")
	require.NoError(t, intent.Continue())
	intent.Donor = Donor{FirstName: "Asha", LastName: "Mwakyusa", Email: "asha@example.org", Phone: "0712345678"}
	require.NoError(t, intent.Continue())

	intent.Back()
	assert.Equal(t, StepDetails, intent.Step)
	intent.Back()
	assert.Equal(t, StepSelect, intent.Step)
	intent.Back() // на select остаёмся
	assert.Equal(t, StepSelect, intent.Step)

	assert.Equal(t, "75", intent.RawAmount)
	assert.Equal(t, "asha@example.org", intent.Donor.Email)
	assert.Equal(t, "0712345678", intent.Donor.Phone)
}

func TestSubmitWithoutEmailMakesNoNetworkCall(t *testing.T) {
	starter := &stubStarter{url: "https://pay.example/sess_1"}

	intent := NewIntent()
	intent.SetCustomAmount("50")

	_, err := intent.Submit(context.Background(), starter, "", "")
	assert.ErrorIs(t, err, ErrInvalidDonation)
	assert.Zero(t, starter.calls, "local validation failure must not reach the collaborator")
}

func TestSubmitWithoutAmountMakesNoNetworkCall(t *testing.T) {
	starter := &stubStarter{url: "https://pay.example/sess_1"}

	intent := NewIntent()
	intent.SetCustomAmount("not-a-number")
	intent.Donor.Email = "asha@example.org"

	_, err := intent.Submit(context.Background(), starter, "", "")
	assert.ErrorIs(t, err, ErrInvalidDonation)
	assert.Zero(t, starter.calls)
}

func TestSubmitSurfacesProviderErrorVerbatim(t *testing.T) {
	starter := &stubStarter{err: errors.New("card country not supported")}

	intent := NewIntent()
	intent.Donor = Donor{FirstName: "Asha", LastName: "Mwakyusa", Email: "asha@example.org"}
	require.NoError(t, intent.Continue())
	require.NoError(t, intent.Continue())

	_, err := intent.Submit(context.Background(), starter, "", "")
	require.Error(t, err)
	assert.Equal(t, "card country not supported", err.Error())
	// визард остаётся на confirm, можно повторить без перенабора
	assert.Equal(t, StepConfirm, intent.Step)
	assert.Equal(t, "asha@example.org", intent.Donor.Email)
	assert.False(t, intent.Submitting)
}

func TestSubmitInFlightIsRejected(t *testing.T) {
	intent := NewIntent()
	intent.Donor.Email = "asha@example.org"
	intent.Submitting = true

	starter := &stubStarter{url: "https://pay.example/sess_1"}
	_, err := intent.Submit(context.Background(), starter, "", "")
	assert.ErrorIs(t, err, ErrSubmitInFlight)
	assert.Zero(t, starter.calls)
}

// Сквозной сценарий: дефолтный tier 100 -> своя сумма 250.7 ->
// details -> confirm -> submit -> redirect URL провайдера
func TestWizardEndToEnd(t *testing.T) {
	starter := &stubStarter{url: "https://pay.example/sess_1"}

	intent := NewIntent()
	require.Equal(t, 100, intent.Amount())
	require.Equal(t, FrequencyMonthly, intent.Frequency)

	intent.SetCustomAmount("250.7")
	require.Equal(t, 251, intent.Amount())

	require.NoError(t, intent.Continue())
	intent.Donor = Donor{FirstName: "Asha", LastName: "Mwakyusa", Email: "asha@example.org"}
	require.NoError(t, intent.Continue())
	require.Equal(t, StepConfirm, intent.Step)

	url, err := intent.Submit(context.Background(), starter, "https://example.org/donate/success", "https://example.org/donate")
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/sess_1", url)

	require.Equal(t, 1, starter.calls)
	assert.Equal(t, 251, starter.lastReq.Amount)
	assert.Equal(t, "Asha Mwakyusa", starter.lastReq.FullName)
	assert.Equal(t, "MONTHLY", starter.lastReq.Frequency)
	assert.Equal(t, "EMAIL", starter.lastReq.PreferredChannel)
	assert.Equal(t, intent.ID, starter.lastReq.IdempotencyKey)
}

func TestFullNameIsTrimmed(t *testing.T) {
	starter := &stubStarter{url: "https://pay.example/x"}

	intent := NewIntent()
	intent.Donor = Donor{FirstName: "", LastName: "Mwakyusa", Email: "asha@example.org"}

	_, err := intent.Submit(context.Background(), starter, "", "")
	require.NoError(t, err)
	assert.Equal(t, "Mwakyusa", starter.lastReq.FullName)
}

func TestAmountAboveCapIsInvalid(t *testing.T) {
	intent := NewIntent()

	intent.SetCustomAmount("1000000")
	assert.Equal(t, MaxAmount, intent.Amount())

	intent.SetCustomAmount("1000001")
	assert.Zero(t, intent.Amount())

	// экстремальный float не должен пролезать через конверсию в int
	intent.SetCustomAmount("1e300")
	assert.Zero(t, intent.Amount())
}

func TestSubmitRejectsAmountAboveCap(t *testing.T) {
	starter := &stubStarter{url: "https://pay.example/sess_1"}
	intent := NewIntent()
	intent.SetCustomAmount("5000000")
	intent.Donor = Donor{FirstName: "Amina", LastName: "Hassan", Email: "amina@example.org"}

	_, err := intent.Submit(context.Background(), starter, "", "")

	assert.ErrorIs(t, err, ErrInvalidDonation)
	assert.Zero(t, starter.calls)
}
