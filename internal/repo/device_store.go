package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"spool/internal/models"
	"spool/internal/secrets"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrConflict  = errors.New("already exists")
	ErrNoDB      = errors.New("database not configured")
	ErrBadSerial = errors.New("serial must not be empty")
)

type DeviceStore struct {
	db    *gorm.DB
	creds *secrets.Service
}

func NewDeviceStore(db *gorm.DB, creds *secrets.Service) *DeviceStore {
	return &DeviceStore{db: db, creds: creds}
}

type RegisterDeviceInput struct {
	Serial         string
	Name           string
	Model          string
	Host           string
	NozzleDiameter float64
	AccessCode     string // сырой код доступа; шифруется перед записью
}

// Register создаёт устройство либо обновляет существующее по serial.
// Повторная регистрация того же принтера — не ошибка: обновляем метаданные.
func (s *DeviceStore) Register(ctx context.Context, in RegisterDeviceInput) (*models.Device, bool, error) {
	if s.db == nil {
		return nil, false, ErrNoDB
	}
	serial := strings.TrimSpace(in.Serial)
	if serial == "" {
		return nil, false, ErrBadSerial
	}

	sealed, err := s.creds.Seal([]byte(in.AccessCode))
	if err != nil {
		return nil, false, err
	}

	var existing models.Device
	err = s.db.WithContext(ctx).Where(&models.Device{Serial: serial}).First(&existing).Error
	if err == nil {
		changed := false
		if in.Name != "" && existing.Name != in.Name {
			existing.Name = in.Name
			changed = true
		}
		if in.Model != "" && existing.Model != in.Model {
			existing.Model = in.Model
			changed = true
		}
		if in.Host != "" && existing.Host != in.Host {
			existing.Host = in.Host
			changed = true
		}
		if in.NozzleDiameter > 0 && existing.NozzleDiameter != in.NozzleDiameter {
			existing.NozzleDiameter = in.NozzleDiameter
			changed = true
		}
		if in.AccessCode != "" {
			existing.AccessCredentials = sealed
			changed = true
		}
		if changed {
			if err := s.db.WithContext(ctx).Save(&existing).Error; err != nil {
				return nil, false, err
			}
		}
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	d := models.Device{
		Serial:            serial,
		Name:              in.Name,
		Model:             in.Model,
		Host:              in.Host,
		NozzleDiameter:    in.NozzleDiameter,
		AccessCredentials: sealed,
	}
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now
	if err := s.db.WithContext(ctx).Create(&d).Error; err != nil {
		return nil, false, err
	}
	return &d, true, nil
}

func (s *DeviceStore) List(ctx context.Context) ([]models.Device, error) {
	if s.db == nil {
		return nil, nil
	}
	var out []models.Device
	err := s.db.WithContext(ctx).Order("id asc").Find(&out).Error
	return out, err
}

func (s *DeviceStore) GetBySerial(ctx context.Context, serial string) (*models.Device, error) {
	if s.db == nil {
		return nil, ErrNoDB
	}
	var d models.Device
	err := s.db.WithContext(ctx).Where(&models.Device{Serial: serial}).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *DeviceStore) Delete(ctx context.Context, serial string) error {
	if s.db == nil {
		return ErrNoDB
	}
	res := s.db.WithContext(ctx).Where("serial = ?", serial).Delete(&models.Device{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AccessCode возвращает расшифрованный код доступа устройства.
func (s *DeviceStore) AccessCode(d *models.Device) (string, error) {
	plain, err := s.creds.Open(d.AccessCredentials)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}
