package model

import (
	"time"

	"github.com/google/uuid"
)

// FileVersion — неизменяемый снимок содержимого файла. VersionNo растёт
// монотонно с единицы без пропусков в рамках одного файла.
type FileVersion struct {
	ID         uuid.UUID `gorm:"primaryKey;type:uuid"`
	FileID     uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:uq_file_versions_file_ver"`
	VersionNo  int       `gorm:"not null;uniqueIndex:uq_file_versions_file_ver"`
	UploadedBy uuid.UUID `gorm:"type:uuid;index"`
	UploadedAt time.Time `gorm:"autoCreateTime"`
	BlobID     uuid.UUID `gorm:"type:uuid;not null;index"`
	Blob       *Blob     `gorm:"foreignKey:BlobID"`
}
