package ds

import "time"

// 5. Таблица пользователей портала (сотрудники и партнёры)
type PortalUser struct {
	ID           uint    `gorm:"primaryKey"`
	Email        string  `gorm:"type:varchar(100);unique;not null"`
	Name         string  `gorm:"type:varchar(100);not null"`
	Role         string  `gorm:"type:varchar(20);not null;default:'PARTNER'"` // PARTNER, STAFF
	Organization string  `gorm:"type:varchar(100)"`
	PasswordHash *string `gorm:"type:varchar(255)"`

	// Одноразовый magic-link токен для входа без пароля
	MagicLinkToken  *string `gorm:"type:varchar(64);index"`
	MagicLinkExpiry *time.Time

	InvitedAt   *time.Time
	LastLoginAt *time.Time
	CreatedAt   time.Time
}
