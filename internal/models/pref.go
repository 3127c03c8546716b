package models

import (
	"time"

	"gorm.io/datatypes"
)

// Pref — персистентная UI-настройка (активная вкладка, раскрытие AMS-панели,
// последний принтер и т.п.). Key-value, значение — произвольный JSON.
// Не смешивать с server-authoritative состоянием: потеря таблицы не ломает
// ничего, кроме удобства.
type Pref struct {
	Key       string         `gorm:"primaryKey;size:64" json:"key"`
	Value     datatypes.JSON `json:"value"`
	UpdatedAt time.Time      `json:"updated_at"`
}
