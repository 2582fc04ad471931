package ds

import "time"

// 4. Таблица документов заявки (файлы лежат в MinIO, тут только метаданные)
type ProposalDocument struct {
	ID          uint   `gorm:"primaryKey"`
	ProposalID  uint   `gorm:"not null;index"`
	Title       string `gorm:"type:varchar(200);not null"`
	FileName    string `gorm:"type:varchar(200);not null"`
	StorageKey  string `gorm:"type:varchar(255);unique;not null"`
	ContentType string `gorm:"type:varchar(100)"`
	SizeBytes   *int64
	UploadedAt  time.Time `gorm:"not null"`

	Proposal Proposal `gorm:"foreignKey:ProposalID"`
}
