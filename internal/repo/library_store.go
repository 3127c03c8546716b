package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"spool/internal/models"
)

type LibraryStore struct{ db *gorm.DB }

func NewLibraryStore(db *gorm.DB) *LibraryStore { return &LibraryStore{db: db} }

func (s *LibraryStore) Create(ctx context.Context, f *models.LibraryFile) error {
	if s.db == nil {
		return ErrNoDB
	}
	return s.db.WithContext(ctx).Create(f).Error
}

func (s *LibraryStore) List(ctx context.Context) ([]models.LibraryFile, error) {
	if s.db == nil {
		return nil, ErrNoDB
	}
	var out []models.LibraryFile
	err := s.db.WithContext(ctx).Order("id asc").Find(&out).Error
	return out, err
}

func (s *LibraryStore) Get(ctx context.Context, id uint) (*models.LibraryFile, error) {
	if s.db == nil {
		return nil, ErrNoDB
	}
	var f models.LibraryFile
	err := s.db.WithContext(ctx).First(&f, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *LibraryStore) Save(ctx context.Context, f *models.LibraryFile) error {
	if s.db == nil {
		return ErrNoDB
	}
	return s.db.WithContext(ctx).Save(f).Error
}

// Delete — жёсткое удаление строки (файл на диске убирает сервис).
func (s *LibraryStore) Delete(ctx context.Context, id uint) error {
	if s.db == nil {
		return ErrNoDB
	}
	res := s.db.WithContext(ctx).Unscoped().Delete(&models.LibraryFile{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ExistsByPathOrHash — проверка для идемпотентного сканирования каталога:
// файл считается уже импортированным, если совпал путь или контент-хэш.
func (s *LibraryStore) ExistsByPathOrHash(ctx context.Context, path, hash string) (bool, error) {
	if s.db == nil {
		return false, ErrNoDB
	}
	var n int64
	q := s.db.WithContext(ctx).Model(&models.LibraryFile{})
	if hash != "" {
		q = q.Where("storage_path = ? OR content_hash = ?", path, hash)
	} else {
		q = q.Where("storage_path = ?", path)
	}
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *LibraryStore) Count(ctx context.Context) (int64, error) {
	if s.db == nil {
		return 0, ErrNoDB
	}
	var n int64
	err := s.db.WithContext(ctx).Model(&models.LibraryFile{}).Count(&n).Error
	return n, err
}
