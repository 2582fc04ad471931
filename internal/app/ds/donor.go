package ds

import "time"

// 1. Таблица доноров — один донор на уникальный email
type Donor struct {
	ID               uint    `gorm:"primaryKey"`
	Email            string  `gorm:"type:varchar(100);unique;not null"`
	FullName         string  `gorm:"type:varchar(100);not null"`
	Phone            *string `gorm:"type:varchar(30)"`
	WhatsappNumber   *string `gorm:"type:varchar(30)"`
	PreferredChannel string  `gorm:"type:varchar(20);default:'EMAIL'"` // EMAIL, SMS, WHATSAPP, ALL
	DonationCount    int     `gorm:"type:int;default:0"`
	TotalDonated     float64 `gorm:"type:decimal(12,2);default:0"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
