package library

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"spool/internal/logs"
	"spool/internal/middleware"
	"spool/internal/models"
)

var (
	// ErrUnsupportedType — валидация на входе: файл отклоняется до любой
	// записи на диск и до любого запроса.
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrTooLarge        = errors.New("file exceeds upload limit")
)

// Store — нужный сервису срез хранилища. Реализуется repo.LibraryStore.
type Store interface {
	Create(ctx context.Context, f *models.LibraryFile) error
	List(ctx context.Context) ([]models.LibraryFile, error)
	Get(ctx context.Context, id uint) (*models.LibraryFile, error)
	Save(ctx context.Context, f *models.LibraryFile) error
	Delete(ctx context.Context, id uint) error
	ExistsByPathOrHash(ctx context.Context, path, hash string) (bool, error)
	Count(ctx context.Context) (int64, error)
}

type Service struct {
	store     Store
	root      string
	maxUpload int64
	autotag   *AutoTagClient // nil — выключено
	log       *logrus.Entry
}

func NewService(store Store, root string, maxUpload int64, autotag *AutoTagClient) *Service {
	return &Service{
		store:     store,
		root:      root,
		maxUpload: maxUpload,
		autotag:   autotag,
		log:       logs.WithComponent("library"),
	}
}

// fileTypeOf достаёт тип из расширения. Ошибка — ErrUnsupportedType.
func fileTypeOf(name string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if !models.ValidFileType(ext) {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}
	return ext, nil
}

// Upload кладёт файл на диск и регистрирует его в библиотеке.
// Контент-хэш считается на лету при записи.
func (s *Service) Upload(ctx context.Context, originalName string, r io.Reader) (*models.LibraryFile, error) {
	ftype, err := fileTypeOf(originalName)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return nil, err
	}

	stored := uuid.NewString()[:8] + "_" + filepath.Base(originalName)
	path := filepath.Join(s.root, stored)

	dst, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	h := sha256.New()
	n, err := io.Copy(dst, io.TeeReader(io.LimitReader(r, s.maxUpload+1), h))
	cerr := dst.Close()
	if err == nil {
		err = cerr
	}
	if err == nil && n > s.maxUpload {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, err
	}

	f := &models.LibraryFile{
		FileName:      stored,
		OriginalName:  filepath.Base(originalName),
		FileType:      ftype,
		FileSizeBytes: n,
		ContentHash:   hex.EncodeToString(h.Sum(nil)),
		StoragePath:   path,
	}
	f.SetTags(nil)
	if err := s.store.Create(ctx, f); err != nil {
		_ = os.Remove(path)
		return nil, err
	}
	s.bumpFileGauge(ctx)
	return f, nil
}

func (s *Service) List(ctx context.Context) ([]models.LibraryFile, error) {
	return s.store.List(ctx)
}

func (s *Service) Get(ctx context.Context, id uint) (*models.LibraryFile, error) {
	return s.store.Get(ctx, id)
}

// PatchMetadata меняет описание и/или теги. nil-поле не трогаем.
func (s *Service) PatchMetadata(ctx context.Context, id uint, description *string, tags []string) (*models.LibraryFile, error) {
	f, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if description != nil {
		f.Description = *description
	}
	if tags != nil {
		f.SetTags(tags)
	}
	if err := s.store.Save(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

// ReplaceTags — PUT-семантика: множество тегов целиком.
func (s *Service) ReplaceTags(ctx context.Context, id uint, tags []string) (*models.LibraryFile, error) {
	f, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	f.SetTags(tags)
	if err := s.store.Save(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

// AutoTag — обогащение через внешний бэкенд. Вызов долгий, ограничен
// таймаутом клиента; результат персистится.
func (s *Service) AutoTag(ctx context.Context, id uint) (*models.LibraryFile, error) {
	if s.autotag == nil {
		return nil, errors.New("auto-tag backend not configured")
	}
	f, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	sug, err := s.autotag.Suggest(ctx, f)
	if err != nil {
		return nil, err
	}
	f.Description = sug.Description
	f.SetTags(sug.Tags)
	if err := s.store.Save(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

// Delete — жёсткое удаление: строка в БД, затем best-effort файл на диске.
func (s *Service) Delete(ctx context.Context, id uint) error {
	f, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	if err := os.Remove(f.StoragePath); err != nil && !os.IsNotExist(err) {
		s.log.Warnf("delete %d: file left on disk: %v", id, err)
	}
	s.bumpFileGauge(ctx)
	return nil
}

// BulkDelete удаляет пачку. Ошибки по элементам изолируются и считаются;
// итог отдаётся одним резюме, частичный провал не глотается.
func (s *Service) BulkDelete(ctx context.Context, ids []uint) models.BatchSummary {
	var sum models.BatchSummary
	for _, id := range ids {
		if err := s.Delete(ctx, id); err != nil {
			sum.Failed++
			sum.Errors = append(sum.Errors, fmt.Sprintf("id %d: %v", id, err))
			continue
		}
		sum.Succeeded++
	}
	return sum
}

// Scan импортирует файлы из каталога библиотеки. Идемпотентен: уже
// известные по пути или хэшу файлы пропускаются.
func (s *Service) Scan(ctx context.Context) (added int, err error) {
	err = filepath.WalkDir(s.root, func(path string, d fs.DirEntry, werr error) error {
		if werr != nil {
			return werr
		}
		if d.IsDir() {
			return nil
		}
		ftype, terr := fileTypeOf(d.Name())
		if terr != nil {
			return nil // чужие файлы молча пропускаем
		}

		data, rerr := os.ReadFile(path)
		if rerr != nil {
			s.log.Warnf("scan: skip %s: %v", path, rerr)
			return nil
		}
		sum := sha256.Sum256(data)
		hash := hex.EncodeToString(sum[:])

		exists, eerr := s.store.ExistsByPathOrHash(ctx, path, hash)
		if eerr != nil {
			return eerr
		}
		if exists {
			return nil
		}

		f := &models.LibraryFile{
			FileName:      d.Name(),
			OriginalName:  d.Name(),
			FileType:      ftype,
			FileSizeBytes: int64(len(data)),
			ContentHash:   hash,
			StoragePath:   path,
		}
		f.SetTags(nil)
		if cerr := s.store.Create(ctx, f); cerr != nil {
			return cerr
		}
		added++
		return nil
	})
	if err != nil {
		return added, err
	}
	s.bumpFileGauge(ctx)
	return added, nil
}

func (s *Service) bumpFileGauge(ctx context.Context) {
	if n, err := s.store.Count(ctx); err == nil {
		middleware.LibraryFilesTotal.Set(float64(n))
	}
}
