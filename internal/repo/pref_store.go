package repo

import (
	"context"
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"spool/internal/models"
)

// PrefStore — key-value хранилище UI-настроек. Контракт: load-at-init
// (All при старте клиента), save-on-change (Put на каждое изменение).
type PrefStore struct{ db *gorm.DB }

func NewPrefStore(db *gorm.DB) *PrefStore { return &PrefStore{db: db} }

func (s *PrefStore) All(ctx context.Context) (map[string]json.RawMessage, error) {
	if s.db == nil {
		return map[string]json.RawMessage{}, nil
	}
	var rows []models.Pref
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]json.RawMessage, len(rows))
	for _, p := range rows {
		out[p.Key] = json.RawMessage(p.Value)
	}
	return out, nil
}

func (s *PrefStore) Put(ctx context.Context, key string, value json.RawMessage) error {
	if s.db == nil {
		return ErrNoDB
	}
	p := models.Pref{Key: key, Value: datatypes.JSON(value)}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&p).Error
}
