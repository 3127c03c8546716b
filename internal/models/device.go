package models

import (
	"time"

	"gorm.io/gorm"
)

// Device — зарегистрированный принтер. Персистентная часть: имя, модель,
// адрес и зашифрованный код доступа. Online/CurrentTask живут только в
// снапшоте флота (см. DeviceStatus), в БД не пишутся.
type Device struct {
	ID        uint           `gorm:"primaryKey" json:"-"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"-"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Serial         string  `gorm:"uniqueIndex;size:64;not null" json:"id"`
	Name           string  `gorm:"size:255" json:"name"`
	Model          string  `gorm:"size:255" json:"model"`
	Host           string  `gorm:"size:255" json:"host"`
	NozzleDiameter float64 `json:"nozzle_diameter"`

	// Код доступа принтера, зашифрован AES-GCM (internal/secrets).
	AccessCredentials []byte `json:"-"`
}

// DeviceStatus — элемент снапшота флота: статические поля устройства плюс
// live-состояние последнего опроса. CurrentTask == nil, когда принтер не
// печатает; поле перезаписывается целиком на каждом тике.
type DeviceStatus struct {
	Serial         string    `json:"id"`
	Name           string    `json:"name"`
	Model          string    `json:"model"`
	NozzleDiameter float64   `json:"nozzle_diameter"`
	Online         bool      `json:"online"`
	CurrentTask    *PrintJob `json:"current_task,omitempty"`
}

// PrintJob — состояние активной печати после нормализации.
// Progress всегда 0..100.
type PrintJob struct {
	Progress             int          `json:"progress"`
	LayerNum             int          `json:"layer_num"`
	TotalLayers          int          `json:"total_layers"`
	RemainingTimeMinutes int          `json:"remaining_time_minutes"`
	NozzleTemp           float64      `json:"nozzle_temp"`
	NozzleTarget         float64      `json:"nozzle_target"`
	BedTemp              float64      `json:"bed_temp"`
	BedTarget            float64      `json:"bed_target"`
	ChamberTemp          float64      `json:"chamber_temp"`
	SpeedFactor          int          `json:"speed_factor"`
	GcodeState           string       `json:"gcode_state"`
	ErrorCode            *string      `json:"error_code,omitempty"`
	AMS                  *AmsSnapshot `json:"ams,omitempty"`
}

// AmsSnapshot — состояние филамент-чейнджера. ActiveTray == nil, если
// активного лотка нет (прошивка шлёт sentinel 255).
type AmsSnapshot struct {
	ActiveTray *int   `json:"active_tray,omitempty"`
	Trays      []Tray `json:"trays"`
}

// Tray — один лоток AMS. Номера слотов уникальны в пределах снапшота.
type Tray struct {
	Slot          int     `json:"slot"`
	FilamentType  string  `json:"filament_type"`
	ColorHex      string  `json:"color_hex"`
	RemainPercent int     `json:"remain_percent"`
	Humidity      int     `json:"humidity"`
	TempC         float64 `json:"temp_c"`
}
