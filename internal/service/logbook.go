package service

import (
	"context"

	"DriveKeeper/internal/model"
	"DriveKeeper/internal/repo"

	"github.com/google/uuid"
)

// ClientInfo — транспортный контекст запроса для аудита.
type ClientInfo struct {
	IP        string
	UserAgent string
}

// LogRecord — одна запись журнала до привязки к транзакции.
type LogRecord struct {
	Op            model.OpType
	UserID        *uuid.UUID
	SessionID     *uuid.UUID
	FileID        *uuid.UUID
	FileVersionID *uuid.UUID
	Details       map[string]any
}

// LogbookService пишет записи аудита в транзакцию вызывающего:
// запись фиксируется или откатывается вместе с операцией, которую описывает.
type LogbookService struct{}

func NewLogbookService() *LogbookService {
	return &LogbookService{}
}

func (s *LogbookService) Record(ctx context.Context, tx *repo.Tx, client ClientInfo, rec LogRecord) error {
	return tx.Logbook.Append(ctx, &model.LogEntry{
		OpType:        rec.Op,
		UserID:        rec.UserID,
		SessionID:     rec.SessionID,
		FileID:        rec.FileID,
		FileVersionID: rec.FileVersionID,
		RemoteAddr:    client.IP,
		UserAgent:     client.UserAgent,
		Details:       rec.Details,
	})
}
