package handler

import (
	"errors"
	"math"
	"net/http"
	"strings"

	"backend/internal/app/clients"
	"backend/internal/app/donation"
	"backend/internal/app/dto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// formatPhoneNumber нормализует танзанийский номер к виду +255XXXXXXXXX
func formatPhoneNumber(phone string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' || r == '(' || r == ')' {
			return -1
		}
		return r
	}, phone)
	if cleaned == "" {
		return ""
	}
	if strings.HasPrefix(cleaned, "+") {
		return cleaned
	}
	if strings.HasPrefix(cleaned, "0") {
		return "+255" + cleaned[1:]
	}
	if strings.HasPrefix(cleaned, "255") {
		return "+" + cleaned
	}
	return cleaned
}

// normalizeChannel приводит канал связи к словарю БД
func normalizeChannel(channel string) string {
	switch strings.ToUpper(channel) {
	case "SMS":
		return "SMS"
	case "WHATSAPP":
		return "WHATSAPP"
	case "ALL":
		return "ALL"
	default:
		return "EMAIL"
	}
}

// intentResponse собирает ответ с производными полями (сумма, разбивка)
func intentResponse(i *donation.Intent) dto.IntentResponse {
	split := i.Allocation()
	return dto.IntentResponse{
		ID:        i.ID,
		Step:      string(i.Step),
		TierID:    i.TierID,
		RawAmount: i.RawAmount,
		Amount:    i.Amount(),
		Frequency: i.Frequency,
		Donor: dto.DonorFields{
			FirstName: i.Donor.FirstName,
			LastName:  i.Donor.LastName,
			Email:     i.Donor.Email,
			Phone:     i.Donor.Phone,
		},
		Channel: i.Channel,
		OptIn:   i.OptIn,
		Split: dto.AllocationResponse{
			Community:  split.Community,
			Operations: split.Operations,
			Advocacy:   split.Advocacy,
		},
	}
}

// ============ ДОМЕН ПОЖЕРТВОВАНИЯ ============

// GetTiers список уровней пожертвования
// @Summary Уровни пожертвования
// @Description Возвращает предустановленные уровни пожертвования
// @Tags Donations
// @Produce json
// @Success 200 {object} dto.TierListResponse
// @Router /api/donations/tiers [get]
func (h *APIHandler) GetTiers(c *gin.Context) {
	tiers := make([]dto.TierResponse, 0, len(donation.Tiers))
	for _, t := range donation.Tiers {
		tiers = append(tiers, dto.TierResponse{
			ID:          t.ID,
			Name:        t.Name,
			Amount:      t.Amount,
			Description: t.Description,
			Impact:      t.Impact,
			Featured:    t.Featured,
		})
	}

	c.JSON(http.StatusOK, dto.TierListResponse{Tiers: tiers, Total: len(tiers)})
}

// CreateIntent создаёт новый визард пожертвования
// @Summary Создание визарда пожертвования
// @Description Создаёт визард с дефолтными значениями и возвращает его состояние
// @Tags Donations
// @Produce json
// @Success 201 {object} dto.IntentResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/donations/intents [post]
func (h *APIHandler) CreateIntent(c *gin.Context) {
	intent, err := h.Intents.Create(c.Request.Context())
	if err != nil {
		logrus.Error("failed to create donation intent: ", err)
		h.errorResponse(c, http.StatusInternalServerError, "failed to create donation intent")
		return
	}

	c.JSON(http.StatusCreated, intentResponse(intent))
}

// loadIntent достаёт визард по id из path-параметра
func (h *APIHandler) loadIntent(c *gin.Context) (*donation.Intent, bool) {
	intent, err := h.Intents.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, donation.ErrIntentNotFound) {
			h.errorResponse(c, http.StatusNotFound, "donation intent not found or expired")
		} else {
			logrus.Error("failed to load donation intent: ", err)
			h.errorResponse(c, http.StatusInternalServerError, "failed to load donation intent")
		}
		return nil, false
	}
	return intent, true
}

// saveAndRespond сохраняет визард и возвращает его состояние
func (h *APIHandler) saveAndRespond(c *gin.Context, intent *donation.Intent) {
	if err := h.Intents.Save(c.Request.Context(), intent); err != nil {
		logrus.Error("failed to save donation intent: ", err)
		h.errorResponse(c, http.StatusInternalServerError, "failed to save donation intent")
		return
	}
	c.JSON(http.StatusOK, intentResponse(intent))
}

// GetIntent текущее состояние визарда
// @Summary Состояние визарда
// @Description Возвращает состояние визарда пожертвования
// @Tags Donations
// @Produce json
// @Param id path string true "ID визарда"
// @Success 200 {object} dto.IntentResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/donations/intents/{id} [get]
func (h *APIHandler) GetIntent(c *gin.Context) {
	intent, ok := h.loadIntent(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, intentResponse(intent))
}

// SelectIntentTier выбор уровня пожертвования
// @Summary Выбор уровня
// @Description Выбирает tier; введённая вручную сумма при этом очищается
// @Tags Donations
// @Accept json
// @Produce json
// @Param id path string true "ID визарда"
// @Param request body dto.SelectTierRequest true "Идентификатор tier"
// @Success 200 {object} dto.IntentResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/donations/intents/{id}/tier [put]
func (h *APIHandler) SelectIntentTier(c *gin.Context) {
	var request dto.SelectTierRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	intent, ok := h.loadIntent(c)
	if !ok {
		return
	}

	if err := intent.SelectTier(request.TierID); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	h.saveAndRespond(c, intent)
}

// SetIntentAmount ввод своей суммы
// @Summary Своя сумма
// @Description Сохраняет введённую сумму; выбранный tier при этом сбрасывается
// @Tags Donations
// @Accept json
// @Produce json
// @Param id path string true "ID визарда"
// @Param request body dto.CustomAmountRequest true "Сумма как строка"
// @Success 200 {object} dto.IntentResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/donations/intents/{id}/amount [put]
func (h *APIHandler) SetIntentAmount(c *gin.Context) {
	var request dto.CustomAmountRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	intent, ok := h.loadIntent(c)
	if !ok {
		return
	}

	intent.SetCustomAmount(request.Amount)
	h.saveAndRespond(c, intent)
}

// UpdateIntentDetails контактные данные и настройки
// @Summary Данные донора
// @Description Обновляет контактные данные, периодичность и канал связи
// @Tags Donations
// @Accept json
// @Produce json
// @Param id path string true "ID визарда"
// @Param request body dto.IntentDetailsRequest true "Данные донора"
// @Success 200 {object} dto.IntentResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/donations/intents/{id}/details [put]
func (h *APIHandler) UpdateIntentDetails(c *gin.Context) {
	var request dto.IntentDetailsRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	intent, ok := h.loadIntent(c)
	if !ok {
		return
	}

	if request.FirstName != "" {
		intent.Donor.FirstName = strings.TrimSpace(request.FirstName)
	}
	if request.LastName != "" {
		intent.Donor.LastName = strings.TrimSpace(request.LastName)
	}
	if request.Email != "" {
		intent.Donor.Email = strings.ToLower(strings.TrimSpace(request.Email))
	}
	if request.Phone != "" {
		intent.Donor.Phone = formatPhoneNumber(request.Phone)
	}
	if request.Frequency != "" {
		intent.Frequency = request.Frequency
	}
	if request.Channel != "" {
		intent.Channel = request.Channel
	}
	if request.OptIn != nil {
		intent.OptIn = *request.OptIn
	}

	h.saveAndRespond(c, intent)
}

// ContinueIntent переход на следующий шаг
// @Summary Следующий шаг
// @Description Двигает визард вперёд, если шаг заполнен корректно
// @Tags Donations
// @Produce json
// @Param id path string true "ID визарда"
// @Success 200 {object} dto.IntentResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/donations/intents/{id}/continue [post]
func (h *APIHandler) ContinueIntent(c *gin.Context) {
	intent, ok := h.loadIntent(c)
	if !ok {
		return
	}

	if err := intent.Continue(); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	h.saveAndRespond(c, intent)
}

// BackIntent возврат на предыдущий шаг
// @Summary Предыдущий шаг
// @Description Возвращает визард на шаг назад без потери данных
// @Tags Donations
// @Produce json
// @Param id path string true "ID визарда"
// @Success 200 {object} dto.IntentResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/donations/intents/{id}/back [post]
func (h *APIHandler) BackIntent(c *gin.Context) {
	intent, ok := h.loadIntent(c)
	if !ok {
		return
	}

	intent.Back()
	h.saveAndRespond(c, intent)
}

// SubmitIntent обмен визарда на redirect URL внешнего checkout
// @Summary Передача на оплату
// @Description Создаёт checkout-сессию у провайдера и возвращает redirect URL
// @Tags Donations
// @Produce json
// @Param id path string true "ID визарда"
// @Success 200 {object} dto.SubmitResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /api/donations/intents/{id}/submit [post]
func (h *APIHandler) SubmitIntent(c *gin.Context) {
	intent, ok := h.loadIntent(c)
	if !ok {
		return
	}

	// Распределённый замок на время запроса к провайдеру: повторный
	// клик по кнопке не породит вторую сессию
	locked, err := h.Intents.LockSubmit(c.Request.Context(), intent.ID)
	if err != nil {
		logrus.Error("failed to acquire submit lock: ", err)
		h.errorResponse(c, http.StatusInternalServerError, "failed to submit donation")
		return
	}
	if !locked {
		h.errorResponse(c, http.StatusConflict, donation.ErrSubmitInFlight.Error())
		return
	}
	defer h.Intents.UnlockSubmit(c.Request.Context(), intent.ID)

	successURL := h.Config.BaseURL + "/donate/thank-you"
	cancelURL := h.Config.BaseURL + "/donate"

	url, err := intent.Submit(c.Request.Context(), h.Checkout, successURL, cancelURL)
	if err != nil {
		switch {
		case errors.Is(err, donation.ErrInvalidDonation):
			h.errorResponse(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, donation.ErrSubmitInFlight):
			h.errorResponse(c, http.StatusConflict, err.Error())
		case errors.Is(err, clients.ErrCheckoutNotConfigured):
			h.errorResponse(c, http.StatusServiceUnavailable, "donations are temporarily unavailable")
		default:
			// Текст провайдера отдаём дословно, визард остаётся на confirm
			if saveErr := h.Intents.Save(c.Request.Context(), intent); saveErr != nil {
				logrus.Error("failed to save donation intent: ", saveErr)
			}
			h.errorResponse(c, http.StatusBadGateway, err.Error())
		}
		return
	}

	// Фиксируем донора и PENDING-пожертвование; завершение придёт вебхуком
	h.recordPendingDonation(c, intent)

	if err := h.Intents.Delete(c.Request.Context(), intent.ID); err != nil {
		logrus.Warn("failed to delete donation intent: ", err)
	}

	c.JSON(http.StatusOK, dto.SubmitResponse{URL: url})
}

// recordPendingDonation создаёт донора и PENDING-запись пожертвования
func (h *APIHandler) recordPendingDonation(c *gin.Context, intent *donation.Intent) {
	fullName := strings.TrimSpace(intent.Donor.FirstName + " " + intent.Donor.LastName)

	var phone *string
	if intent.Donor.Phone != "" {
		p := intent.Donor.Phone
		phone = &p
	}

	donor, err := h.Repository.UpsertDonor(intent.Donor.Email, fullName, phone, nil, normalizeChannel(intent.Channel))
	if err != nil {
		logrus.Error("failed to upsert donor: ", err)
		return
	}

	frequency := "ONE_TIME"
	if intent.Frequency == donation.FrequencyMonthly {
		frequency = "MONTHLY"
	}

	// intent id — он же ключ идемпотентности checkout-сессии
	if _, err := h.Repository.CreateDonation(donor.ID, float64(intent.Amount()), "USD", frequency, intent.ID); err != nil {
		logrus.Error("failed to create donation record: ", err)
	}
}

// DirectCheckout создание checkout-сессии без визарда
// @Summary Прямой checkout
// @Description Создаёт checkout-сессию напрямую по данным формы
// @Tags Donations
// @Accept json
// @Produce json
// @Param request body dto.CheckoutRequest true "Данные пожертвования"
// @Success 200 {object} dto.CheckoutResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /api/checkout [post]
func (h *APIHandler) DirectCheckout(c *gin.Context) {
	var request dto.CheckoutRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	amount := int(math.Round(request.Amount))
	if amount <= 0 || amount > donation.MaxAmount {
		h.errorResponse(c, http.StatusBadRequest, "please enter a valid donation amount and email")
		return
	}

	frequency := request.Frequency
	if frequency == "" {
		frequency = "ONE_TIME"
	}

	email := strings.ToLower(strings.TrimSpace(request.Email))
	phone := formatPhoneNumber(request.Phone)
	channel := normalizeChannel(request.PreferredChannel)
	checkoutRef := uuid.New().String()

	url, err := h.Checkout.CreateSession(c.Request.Context(), clients.CheckoutSessionRequest{
		Amount:           amount,
		Email:            email,
		FullName:         strings.TrimSpace(request.FullName),
		Phone:            phone,
		PreferredChannel: channel,
		Frequency:        frequency,
		IdempotencyKey:   checkoutRef,
	})
	if err != nil {
		if errors.Is(err, clients.ErrCheckoutNotConfigured) {
			h.errorResponse(c, http.StatusServiceUnavailable, "donations are temporarily unavailable")
			return
		}
		h.errorResponse(c, http.StatusBadGateway, err.Error())
		return
	}

	var phonePtr, whatsappPtr *string
	if phone != "" {
		phonePtr = &phone
	}
	if request.WhatsappNumber != "" {
		w := formatPhoneNumber(request.WhatsappNumber)
		whatsappPtr = &w
	}

	donor, err := h.Repository.UpsertDonor(email, strings.TrimSpace(request.FullName), phonePtr, whatsappPtr, channel)
	if err != nil {
		logrus.Error("failed to upsert donor: ", err)
	} else if _, err := h.Repository.CreateDonation(donor.ID, float64(amount), "USD", frequency, checkoutRef); err != nil {
		logrus.Error("failed to create donation record: ", err)
	}

	c.JSON(http.StatusOK, dto.CheckoutResponse{URL: url})
}
