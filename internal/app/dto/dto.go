package dto

import (
	"encoding/json"
	"time"
)

// ============ Общие структуры ============

type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type SuccessResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// ============ Пожертвования (Donation wizard) ============

type TierResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Amount      int    `json:"amount"`
	Description string `json:"description"`
	Impact      string `json:"impact"`
	Featured    bool   `json:"featured,omitempty"`
}

type TierListResponse struct {
	Tiers []TierResponse `json:"tiers"`
	Total int            `json:"total"`
}

type IntentResponse struct {
	ID        string             `json:"id"`
	Step      string             `json:"step"`
	TierID    string             `json:"tier_id,omitempty"`
	RawAmount string             `json:"raw_amount,omitempty"`
	Amount    int                `json:"amount"`
	Frequency string             `json:"frequency"`
	Donor     DonorFields        `json:"donor"`
	Channel   string             `json:"channel"`
	OptIn     bool               `json:"opt_in"`
	Split     AllocationResponse `json:"allocation"`
}

type DonorFields struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
}

// AllocationResponse — разбивка суммы 80/15/остаток
type AllocationResponse struct {
	Community  int `json:"community"`
	Operations int `json:"operations"`
	Advocacy   int `json:"advocacy"`
}

type SelectTierRequest struct {
	TierID string `json:"tier_id" binding:"required"`
}

type CustomAmountRequest struct {
	Amount string `json:"amount" binding:"required"`
}

type IntentDetailsRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Frequency string `json:"frequency" binding:"omitempty,oneof=monthly one-time"`
	Channel   string `json:"channel" binding:"omitempty,oneof=email sms whatsapp all"`
	OptIn     *bool  `json:"opt_in"`
}

type SubmitResponse struct {
	URL string `json:"url"`
}

// ============ Прямой checkout (stateless) ============

type CheckoutRequest struct {
	Amount           float64 `json:"amount" binding:"required"`
	Email            string  `json:"email" binding:"required,email"`
	FullName         string  `json:"fullName" binding:"required"`
	Phone            string  `json:"phone"`
	WhatsappNumber   string  `json:"whatsappNumber"`
	PreferredChannel string  `json:"preferredChannel" binding:"omitempty,oneof=email sms whatsapp all EMAIL SMS WHATSAPP ALL"`
	Frequency        string  `json:"frequency" binding:"omitempty,oneof=MONTHLY ONE_TIME"`
}

type CheckoutResponse struct {
	URL string `json:"url"`
}

// ============ Заявки (Proposals) ============

type CreateProposalRequest struct {
	Title         string   `json:"title" binding:"required"`
	Description   string   `json:"description"`
	FundingBody   string   `json:"funding_body"`
	FundingTarget *float64 `json:"funding_target" binding:"omitempty,gt=0"`
	Currency      string   `json:"currency"`
	Priority      string   `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
	Deadline      *string  `json:"deadline"` // 2006-01-02
	Notes         string   `json:"notes"`
}

type UpdateProposalRequest struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	FundingBody   string   `json:"funding_body"`
	FundingTarget *float64 `json:"funding_target" binding:"omitempty,gt=0"`
	Priority      string   `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
	Notes         string   `json:"notes"`
}

type ProposalResponse struct {
	ID              uint               `json:"id"`
	Title           string             `json:"title"`
	Description     string             `json:"description,omitempty"`
	FundingBody     string             `json:"funding_body,omitempty"`
	FundingTarget   *float64           `json:"funding_target,omitempty"`
	Currency        string             `json:"currency"`
	Priority        string             `json:"priority"`
	Deadline        *time.Time         `json:"deadline,omitempty"`
	Notes           string             `json:"notes,omitempty"`
	SubmittedBy     string             `json:"submitted_by"`
	SubmittedByName string             `json:"submitted_by_name"`
	AnalysisStatus  string             `json:"analysis_status"`
	CreatedAt       time.Time          `json:"created_at"`
	Documents       []DocumentResponse `json:"documents,omitempty"`
}

type ProposalListResponse struct {
	Proposals []ProposalResponse `json:"proposals"`
	Total     int                `json:"total"`
}

// ============ Документы заявок ============

type DocumentResponse struct {
	ID          uint      `json:"id"`
	Title       string    `json:"title"`
	FileName    string    `json:"file_name"`
	StorageKey  string    `json:"storage_key"`
	ContentType string    `json:"content_type"`
	SizeBytes   *int64    `json:"size_bytes,omitempty"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

type DocumentListResponse struct {
	Documents []DocumentResponse `json:"documents"`
	Total     int                `json:"total"`
}

type DownloadURLResponse struct {
	URL string `json:"url"`
}

// ============ Анализ документов ============

type TriggerAnalysisResponse struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}

type AnalysisStatusResponse struct {
	Status        string          `json:"status"`
	Result        json.RawMessage `json:"result,omitempty"`
	ExternalState string          `json:"external_state,omitempty"`
	Message       string          `json:"message,omitempty"`
}

// ============ Вебхуки ============

type AnalysisWebhookRequest struct {
	ProposalID uint `json:"proposal_id" binding:"required"`
}

type CheckoutWebhookRequest struct {
	CheckoutRef string `json:"checkout_ref" binding:"required"`
	Paid        bool   `json:"paid"`
}

// ============ Аутентификация ============

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type MagicLinkRequest struct {
	Token string `json:"token" binding:"required"`
}

type InviteRequest struct {
	Email        string `json:"email" binding:"required,email"`
	Name         string `json:"name" binding:"required"`
	Organization string `json:"organization"`
	AuthMethod   string `json:"auth_method" binding:"required,oneof=magic-link password"`
	Password     string `json:"password" binding:"omitempty,min=8"`
}

type UserResponse struct {
	ID           uint   `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	Role         string `json:"role"`
	Organization string `json:"organization,omitempty"`
}

// ============ Статистика ============

type StatsResponse struct {
	Donors        int64   `json:"donors"`
	Donations     int64   `json:"donations"`
	TotalDonated  float64 `json:"total_donated"`
	OpenProposals int64   `json:"open_proposals"`
	AnalyzedShare float64 `json:"analyzed_share"`
}
