package models

import (
	"encoding/json"
	"sort"
	"time"

	"gorm.io/datatypes"
)

// Допустимые типы файлов библиотеки.
const (
	FileTypeSTL   = "stl"
	FileTypeThree = "3mf"
	FileTypeGcode = "gcode"
)

// ValidFileType — whitelist расширений для загрузки/сканирования.
func ValidFileType(t string) bool {
	switch t {
	case FileTypeSTL, FileTypeThree, FileTypeGcode:
		return true
	}
	return false
}

// LibraryFile — файл библиотеки моделей. ID назначается БД и монотонно
// растёт, поэтому меньший ID ≈ раньше импортирован (на этом держится
// политика "keep oldest" в дедупликации).
type LibraryFile struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`

	FileName      string         `gorm:"size:255;not null" json:"file_name"`
	OriginalName  string         `gorm:"size:255" json:"original_name"`
	FileType      string         `gorm:"size:8;index" json:"file_type"`
	FileSizeBytes int64          `gorm:"index" json:"file_size_bytes"`
	ContentHash   string         `gorm:"size:64;index" json:"content_hash,omitempty"` // пусто — ещё не посчитан
	Description   string         `json:"description"`
	Tags          datatypes.JSON `json:"tags"`

	// Абсолютный путь на диске; наружу не отдаём.
	StoragePath string `gorm:"size:512;uniqueIndex" json:"-"`
}

// TagList декодирует Tags в срез строк. Пустое/битое поле — пустой срез.
func (f *LibraryFile) TagList() []string {
	if len(f.Tags) == 0 {
		return []string{}
	}
	var tags []string
	if err := json.Unmarshal(f.Tags, &tags); err != nil {
		return []string{}
	}
	return tags
}

// SetTags пишет теги как множество: дубликаты схлопываются, порядок
// канонический (сортировка), пустые строки отбрасываются.
func (f *LibraryFile) SetTags(tags []string) {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	b, _ := json.Marshal(out)
	f.Tags = datatypes.JSON(b)
}
