package fleet

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"spool/internal/models"
)

// RawTask — состояние печати в том виде, как его отдаёт прошивка.
// Прогресс приходит то долей (0..1), то процентом (0..100) — нормализация
// в normalize.go. AMS шлёт sentinel 255 вместо "нет активного лотка".
type RawTask struct {
	Progress             float64 `json:"mc_percent"`
	LayerNum             int     `json:"layer_num"`
	TotalLayers          int     `json:"total_layer_num"`
	RemainingTimeMinutes int     `json:"mc_remaining_time"`
	NozzleTemp           float64 `json:"nozzle_temper"`
	NozzleTarget         float64 `json:"nozzle_target_temper"`
	BedTemp              float64 `json:"bed_temper"`
	BedTarget            float64 `json:"bed_target_temper"`
	ChamberTemp          float64 `json:"chamber_temper"`
	SpeedFactor          int     `json:"spd_mag"`
	GcodeState           string  `json:"gcode_state"`
	ErrorCode            *string `json:"mc_print_error_code"`
	AMS                  *RawAms `json:"ams"`
}

type RawAms struct {
	ActiveTray int       `json:"tray_now"` // 255 — нет активного
	Trays      []RawTray `json:"tray"`
}

type RawTray struct {
	Slot          int     `json:"id"`
	FilamentType  string  `json:"tray_type"`
	ColorHex      string  `json:"tray_color"`
	RemainPercent int     `json:"remain"`
	Humidity      int     `json:"humidity"`
	TempC         float64 `json:"temp"`
}

// RawStatus — ответ прошивки на запрос статуса.
type RawStatus struct {
	Task *RawTask `json:"current_task"`
}

// PrinterClient — доступ к одному принтеру. Status возвращает nil-задачу,
// когда принтер не печатает; ошибка означает offline для этого тика.
type PrinterClient interface {
	Status(ctx context.Context, dev *models.Device, accessCode string) (*RawStatus, error)
	Snapshot(ctx context.Context, dev *models.Device, accessCode string, seq uint64) ([]byte, error)
}

// HTTPPrinterClient ходит в локальный HTTP API прошивки.
type HTTPPrinterClient struct {
	hc *http.Client
}

func NewHTTPPrinterClient(timeout time.Duration) *HTTPPrinterClient {
	return &HTTPPrinterClient{hc: &http.Client{Timeout: timeout}}
}

func (c *HTTPPrinterClient) Status(ctx context.Context, dev *models.Device, accessCode string) (*RawStatus, error) {
	u := fmt.Sprintf("http://%s/api/v1/status", dev.Host)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Access-Code", accessCode)

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("status %s: %w", dev.Serial, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %s: http %d", dev.Serial, resp.StatusCode)
	}

	var raw RawStatus
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("status %s: decode: %w", dev.Serial, err)
	}
	return &raw, nil
}

// Snapshot забирает кадр камеры. seq — cache-busting счётчик, монотонно
// растёт на каждый запрос.
func (c *HTTPPrinterClient) Snapshot(ctx context.Context, dev *models.Device, accessCode string, seq uint64) ([]byte, error) {
	u := fmt.Sprintf("http://%s/camera/snapshot?t=%d", dev.Host, seq)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Access-Code", accessCode)

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", dev.Serial, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("snapshot %s: http %d", dev.Serial, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
