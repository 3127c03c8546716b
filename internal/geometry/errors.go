package geometry

import (
	"errors"
	"fmt"
)

// ErrLargeFileDeclined — пользователь отказался качать большой файл.
// Это отмена, не сбой: наружу не эскалируется как ошибка.
var ErrLargeFileDeclined = errors.New("large file download declined")

// ParseError — битая или неподдерживаемая геометрия. Ретраить бессмысленно.
type ParseError struct {
	Format string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s", e.Format, e.Reason)
}

// DownloadError — сбой получения файла. Transport=true — сеть/таймаут
// (ретраябельно), иначе — не-2xx от бэкенда.
type DownloadError struct {
	Transport bool
	Status    int
	Err       error
}

func (e *DownloadError) Error() string {
	if e.Transport {
		return fmt.Sprintf("download transport error: %v", e.Err)
	}
	return fmt.Sprintf("download failed: http %d", e.Status)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// LargeFileWarning — файл больше порога; нужен явный confirm.
type LargeFileWarning struct {
	SizeBytes int64
}

func (e *LargeFileWarning) Error() string {
	return fmt.Sprintf("file is large: %d bytes", e.SizeBytes)
}
