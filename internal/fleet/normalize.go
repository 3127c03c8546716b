package fleet

import (
	"math"

	"spool/internal/models"
)

// amsNoActiveTray — sentinel прошивки "нет активного лотка".
const amsNoActiveTray = 255

// NormalizeProgress приводит прогресс к 0..100.
// Прошивки непоследовательны: часть шлёт долю 0..1, часть — процент.
// Правило: p <= 1 трактуем как долю и умножаем на 100, затем clamp и
// округление до целого.
func NormalizeProgress(p float64) int {
	if math.IsNaN(p) {
		return 0
	}
	if p <= 1 {
		p *= 100
	}
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	return int(math.Round(p))
}

// normalizeTask переводит сырой ответ прошивки в PrintJob.
// nil на входе — принтер не печатает, nil на выходе (поле current_task
// перезаписывается целиком, хвостов от прошлого тика не остаётся).
func normalizeTask(raw *RawTask) *models.PrintJob {
	if raw == nil {
		return nil
	}
	job := &models.PrintJob{
		Progress:             NormalizeProgress(raw.Progress),
		LayerNum:             raw.LayerNum,
		TotalLayers:          raw.TotalLayers,
		RemainingTimeMinutes: raw.RemainingTimeMinutes,
		NozzleTemp:           raw.NozzleTemp,
		NozzleTarget:         raw.NozzleTarget,
		BedTemp:              raw.BedTemp,
		BedTarget:            raw.BedTarget,
		ChamberTemp:          raw.ChamberTemp,
		SpeedFactor:          raw.SpeedFactor,
		GcodeState:           raw.GcodeState,
		ErrorCode:            raw.ErrorCode,
		AMS:                  normalizeAms(raw.AMS),
	}
	return job
}

// normalizeAms конвертирует AMS: sentinel 255 -> nil, дубликаты слотов
// отбрасываются (первый выигрывает) — номера слотов в снапшоте уникальны.
func normalizeAms(raw *RawAms) *models.AmsSnapshot {
	if raw == nil {
		return nil
	}
	snap := &models.AmsSnapshot{}
	if raw.ActiveTray != amsNoActiveTray {
		at := raw.ActiveTray
		snap.ActiveTray = &at
	}
	seen := make(map[int]struct{}, len(raw.Trays))
	for _, t := range raw.Trays {
		if _, dup := seen[t.Slot]; dup {
			continue
		}
		seen[t.Slot] = struct{}{}
		snap.Trays = append(snap.Trays, models.Tray{
			Slot:          t.Slot,
			FilamentType:  t.FilamentType,
			ColorHex:      t.ColorHex,
			RemainPercent: t.RemainPercent,
			Humidity:      t.Humidity,
			TempC:         t.TempC,
		})
	}
	return snap
}
