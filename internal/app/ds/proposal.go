package ds

import "time"

// Статусы анализа документов заявки.
// Переходы только вперёд: pending -> running -> completed|failed.
const (
	AnalysisNone      = "none"
	AnalysisPending   = "pending"
	AnalysisRunning   = "running"
	AnalysisCompleted = "completed"
	AnalysisFailed    = "failed"
)

// 3. Таблица грантовых заявок (proposals)
type Proposal struct {
	ID            uint     `gorm:"primaryKey"`
	Title         string   `gorm:"type:varchar(200);not null"`
	Description   string   `gorm:"type:text"`
	FundingBody   string   `gorm:"type:varchar(200)"`
	FundingTarget *float64 `gorm:"type:decimal(12,2)"`
	Currency      string   `gorm:"type:varchar(3);default:'USD'"`
	Priority      string   `gorm:"type:varchar(20);default:'medium'"` // low, medium, high, urgent
	Deadline      *time.Time
	Notes         string `gorm:"type:text"`

	// Кто подал заявку (email пользователя портала)
	SubmittedBy     string `gorm:"type:varchar(100);index"`
	SubmittedByName string `gorm:"type:varchar(100)"`

	// Состояние асинхронного анализа: внешний run id выставляется
	// один раз на попытку, статус движется только вперёд.
	AnalysisStatus string  `gorm:"type:varchar(20);default:'none'"`
	ExternalRunID  *string `gorm:"type:varchar(40)"`
	AnalysisResult []byte  `gorm:"type:jsonb"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Documents []ProposalDocument `gorm:"foreignKey:ProposalID"`
}
