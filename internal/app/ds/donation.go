package ds

import "time"

// 2. Таблица пожертвований
type Donation struct {
	ID        uint    `gorm:"primaryKey"`
	DonorID   uint    `gorm:"not null;index"`
	Amount    float64 `gorm:"type:decimal(12,2);not null"`
	Currency  string  `gorm:"type:varchar(3);default:'USD'"`
	Status    string  `gorm:"type:varchar(20);not null;default:'PENDING'"` // PENDING, COMPLETED, FAILED
	Frequency string  `gorm:"type:varchar(10);not null"`                   // MONTHLY, ONE_TIME
	// Ссылка на сессию внешнего hosted-checkout (ключ идемпотентности)
	CheckoutRef string `gorm:"type:varchar(64);index"`
	CreatedAt   time.Time
	CompletedAt *time.Time `gorm:"default:null"`

	Donor Donor `gorm:"foreignKey:DonorID"`
}
