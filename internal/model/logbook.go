package model

import (
	"time"

	"github.com/google/uuid"
)

// OpType — закрытое перечисление видов операций журнала. Новые операции
// добавляют новое значение, существующие значения смысла не меняют.
type OpType string

const (
	OpLogin             OpType = "login"
	OpLogout            OpType = "logout"
	OpAutoAuth          OpType = "auto_auth"
	OpUserRegister      OpType = "user_register"
	OpRefreshToken      OpType = "refresh_token"
	OpUpload            OpType = "upload"
	OpFileUploadAttempt OpType = "file_upload_attempt"
	OpDownload          OpType = "download"
	OpListFiles         OpType = "list_files"
	OpRename            OpType = "rename"
	OpFileDelete        OpType = "file_delete"
	OpViewFileVersions  OpType = "view_file_versions"
	OpFolderCreate      OpType = "folder_create"
)

// LogEntry — запись аудита. Только добавление: записи не обновляются
// и не удаляются. Пишется в той же транзакции, что и описываемая операция.
type LogEntry struct {
	ID            int64          `gorm:"primaryKey;autoIncrement"`
	OccurredAt    time.Time      `gorm:"autoCreateTime;index"`
	OpType        OpType         `gorm:"size:32;not null;index"`
	UserID        *uuid.UUID     `gorm:"type:uuid;index"`
	SessionID     *uuid.UUID     `gorm:"type:uuid;index"`
	FileID        *uuid.UUID     `gorm:"type:uuid;index"`
	FileVersionID *uuid.UUID     `gorm:"type:uuid"`
	RemoteAddr    string         `gorm:"size:64"`
	UserAgent     string         `gorm:"size:512"`
	Details       map[string]any `gorm:"serializer:json"`
}

func (LogEntry) TableName() string { return "logbook" }
