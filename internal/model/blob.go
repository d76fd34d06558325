package model

import (
	"time"

	"github.com/google/uuid"
)

// Blob — контентно-адресуемое содержимое. Неизменяем после создания;
// на один блоб могут ссылаться версии разных файлов (дедупликация).
type Blob struct {
	ID          uuid.UUID `gorm:"primaryKey;type:uuid"`
	SHA256      string    `gorm:"column:sha256;size:64;uniqueIndex;not null"`
	SizeBytes   int64     `gorm:"not null"`
	StoragePath string    `gorm:"not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}
