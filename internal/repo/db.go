package repo

import (
	"errors"
	"strings"

	"DriveKeeper/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// ErrDuplicate — нормализованная ошибка нарушения уникальности.
// Репозитории переводят в неё ошибки конкретного драйвера, чтобы сервисы
// не знали про postgres/sqlite.
var ErrDuplicate = errors.New("duplicate key")

// InitDB открывает postgres и накатывает схему.
func InitDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}
	if err := AutoMigrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// AutoMigrate создаёт таблицы для всех моделей. Вынесен отдельно,
// чтобы тесты могли накатить ту же схему на sqlite.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Session{},
		&model.RefreshToken{},
		&model.Blob{},
		&model.File{},
		&model.FileVersion{},
		&model.LogEntry{},
	)
}

// isDuplicate распознаёт нарушение уникального ограничения у обоих
// драйверов (gorm-трансляция у postgres, текст ошибки у modernc sqlite).
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
