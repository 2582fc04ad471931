package donation

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"

	"backend/internal/app/clients"

	"github.com/google/uuid"
)

// Шаги визарда пожертвования
type Step string

const (
	StepSelect  Step = "select"
	StepDetails Step = "details"
	StepConfirm Step = "confirm"
)

const (
	FrequencyMonthly = "monthly"
	FrequencyOneTime = "one-time"
)

// MaxAmount — верхняя граница суммы одного пожертвования
const MaxAmount = 1_000_000

var (
	// ErrInvalidDonation — локальная валидация, до сети дело не доходит
	ErrInvalidDonation = errors.New("please enter a valid donation amount and email")
	// ErrSubmitInFlight — повторный сабмит при незавершённом запросе
	ErrSubmitInFlight = errors.New("submission already in progress")
	// ErrAmountRequired — переход select -> details без суммы
	ErrAmountRequired = errors.New("a positive donation amount is required")
	// ErrDetailsRequired — переход details -> confirm без имени или email
	ErrDetailsRequired = errors.New("first name, last name and email are required")
	// ErrUnknownTier — несуществующий tier id
	ErrUnknownTier = errors.New("unknown donation tier")
)

// Tier — предустановленный уровень пожертвования
type Tier struct {
	ID          string
	Name        string
	Amount      int
	Description string
	Impact      string
	Featured    bool
}

// Tiers в порядке отображения; средний выбран по умолчанию
var Tiers = []Tier{
	{
		ID:          "community-advocate",
		Name:        "Community Advocate",
		Amount:      25,
		Description: "Support the foundation of community-led work",
		Impact:      "Funds training materials for one household",
	},
	{
		ID:          "project-catalyst",
		Name:        "Project Catalyst",
		Amount:      100,
		Description: "Accelerate community-led restoration",
		Impact:      "Supports tree planting for a community cooperative",
		Featured:    true,
	},
	{
		ID:          "systemic-reformer",
		Name:        "Systemic Reformer",
		Amount:      500,
		Description: "Advance market reform",
		Impact:      "Funds policy advocacy for market reform",
	},
}

const DefaultTierID = "project-catalyst"

// TierByID ищет tier по идентификатору
func TierByID(id string) (*Tier, bool) {
	for i := range Tiers {
		if Tiers[i].ID == id {
			return &Tiers[i], true
		}
	}
	return nil, false
}

// Donor — контактные данные на шаге details
type Donor struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// Intent — состояние визарда пожертвования. Источник суммы всегда
// один: либо выбранный tier, либо своя сумма; выбор одного очищает
// другой. Живёт до редиректа на внешний checkout.
type Intent struct {
	ID         string `json:"id"`
	Step       Step   `json:"step"`
	TierID     string `json:"tier_id"`
	RawAmount  string `json:"raw_amount"` // сырой ввод, хранится как есть для редактирования
	Frequency  string `json:"frequency"`
	Donor      Donor  `json:"donor"`
	Channel    string `json:"channel"` // email, sms, whatsapp, all
	OptIn      bool   `json:"opt_in"`
	Submitting bool   `json:"submitting"`
}

// NewIntent создаёт визард с дефолтами: средний tier, monthly, opt-in
func NewIntent() *Intent {
	return &Intent{
		ID:        uuid.New().String(),
		Step:      StepSelect,
		TierID:    DefaultTierID,
		Frequency: FrequencyMonthly,
		Channel:   "email",
		OptIn:     true,
	}
}

// SelectTier выбирает tier и очищает свою сумму
func (i *Intent) SelectTier(tierID string) error {
	if _, ok := TierByID(tierID); !ok {
		return ErrUnknownTier
	}
	i.TierID = tierID
	i.RawAmount = ""
	return nil
}

// SetCustomAmount сохраняет сырой ввод и сбрасывает выбор tier.
// Нечисловой ввод остаётся в поле, но сумма при этом равна 0 и
// продолжение заблокировано.
func (i *Intent) SetCustomAmount(raw string) {
	i.RawAmount = raw
	i.TierID = ""
}

// Amount возвращает итоговую сумму: своя сумма (округлённая) имеет
// приоритет над tier; без валидного источника — 0. Суммы больше
// MaxAmount приравниваются к невалидному вводу, заодно это защищает
// конверсию float -> int от выхода за диапазон.
func (i *Intent) Amount() int {
	if i.RawAmount != "" {
		v, err := strconv.ParseFloat(strings.TrimSpace(i.RawAmount), 64)
		if err == nil && !math.IsInf(v, 0) && !math.IsNaN(v) && v <= MaxAmount {
			return int(math.Round(v))
		}
		return 0
	}
	if tier, ok := TierByID(i.TierID); ok {
		return tier.Amount
	}
	return 0
}

// Allocation — разбивка суммы по направлениям 80/15/остаток.
// Третье направление поглощает остаток округления, так что сумма
// трёх частей всегда равна Amount.
type Allocation struct {
	Community  int
	Operations int
	Advocacy   int
}

func (i *Intent) Allocation() Allocation {
	amount := i.Amount()
	community := int(math.Round(float64(amount) * 0.8))
	operations := int(math.Round(float64(amount) * 0.15))
	return Allocation{
		Community:  community,
		Operations: operations,
		Advocacy:   amount - community - operations,
	}
}

// Continue двигает визард вперёд; на confirm ничего не делает
func (i *Intent) Continue() error {
	switch i.Step {
	case StepSelect:
		if i.Amount() <= 0 {
			return ErrAmountRequired
		}
		i.Step = StepDetails
	case StepDetails:
		if i.Donor.FirstName == "" || i.Donor.LastName == "" || i.Donor.Email == "" {
			return ErrDetailsRequired
		}
		i.Step = StepConfirm
	}
	return nil
}

// Back возвращает на предыдущий шаг, введённые данные не трогает
func (i *Intent) Back() {
	switch i.Step {
	case StepConfirm:
		i.Step = StepDetails
	case StepDetails:
		i.Step = StepSelect
	}
}

// CheckoutStarter — создание сессии у платёжного провайдера
type CheckoutStarter interface {
	CreateSession(ctx context.Context, session clients.CheckoutSessionRequest) (string, error)
}

// Submit валидирует состояние и обменивает его на redirect URL
// внешнего checkout. При любой ошибке визард остаётся на confirm,
// данные не теряются. Intent id передаётся провайдеру как ключ
// идемпотентности.
func (i *Intent) Submit(ctx context.Context, starter CheckoutStarter, successURL, cancelURL string) (string, error) {
	if i.Submitting {
		return "", ErrSubmitInFlight
	}

	amount := i.Amount()
	if i.Donor.Email == "" || amount <= 0 || amount > MaxAmount {
		return "", ErrInvalidDonation
	}

	i.Submitting = true
	defer func() { i.Submitting = false }()

	frequency := "ONE_TIME"
	if i.Frequency == FrequencyMonthly {
		frequency = "MONTHLY"
	}

	url, err := starter.CreateSession(ctx, clients.CheckoutSessionRequest{
		Amount:           amount,
		Email:            i.Donor.Email,
		FullName:         strings.TrimSpace(i.Donor.FirstName + " " + i.Donor.LastName),
		Phone:            i.Donor.Phone,
		PreferredChannel: strings.ToUpper(i.Channel),
		Frequency:        frequency,
		IdempotencyKey:   i.ID,
		SuccessURL:       successURL,
		CancelURL:        cancelURL,
	})
	if err != nil {
		return "", err
	}

	return url, nil
}
