package model

import (
	"time"

	"github.com/google/uuid"
)

// FolderMimeType присваивается папкам при создании.
const FolderMimeType = "inode/directory"

// File — узел дерева: файл или папка (IsFolder). Ссылки на родителя и
// текущую версию — обычные id-колонки без gorm-ассоциаций: обходы дерева
// (хлебные крошки, каскадное удаление) делаются повторными выборками по
// ключу, а не прогулкой по указателям.
type File struct {
	ID      uuid.UUID `gorm:"primaryKey;type:uuid"`
	OwnerID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:uq_files_sibling_name"`
	Owner   *User     `gorm:"foreignKey:OwnerID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`

	Name      string `gorm:"size:512;not null;uniqueIndex:uq_files_sibling_name"`
	MimeType  string `gorm:"size:255"`
	Extension string `gorm:"size:32"`
	IsFolder  bool   `gorm:"not null;default:false"`

	// nil = корень владельца. NULL-значения не участвуют в уникальном
	// индексе, поэтому коллизии в корне дополнительно ловит проверка
	// перед вставкой.
	ParentFolderID *uuid.UUID `gorm:"type:uuid;index;uniqueIndex:uq_files_sibling_name"`

	// Для папок и файлов без версий — nil. Двигается только вперёд.
	CurrentVersionID *uuid.UUID `gorm:"type:uuid"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}
