package library

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"spool/internal/logs"
	"spool/internal/models"
	"spool/internal/repo"
)

func init() {
	logs.Init(logs.Options{Level: "error"})
}

// memStore — хранилище в памяти для тестов сервиса.
type memStore struct {
	seq   uint
	files map[uint]*models.LibraryFile
}

func newMemStore() *memStore {
	return &memStore{files: map[uint]*models.LibraryFile{}}
}

func (m *memStore) Create(_ context.Context, f *models.LibraryFile) error {
	m.seq++
	f.ID = m.seq
	cp := *f
	m.files[f.ID] = &cp
	return nil
}

func (m *memStore) List(_ context.Context) ([]models.LibraryFile, error) {
	out := make([]models.LibraryFile, 0, len(m.files))
	for id := uint(1); id <= m.seq; id++ {
		if f, ok := m.files[id]; ok {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (m *memStore) Get(_ context.Context, id uint) (*models.LibraryFile, error) {
	f, ok := m.files[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (m *memStore) Save(_ context.Context, f *models.LibraryFile) error {
	if _, ok := m.files[f.ID]; !ok {
		return repo.ErrNotFound
	}
	cp := *f
	m.files[f.ID] = &cp
	return nil
}

func (m *memStore) Delete(_ context.Context, id uint) error {
	if _, ok := m.files[id]; !ok {
		return repo.ErrNotFound
	}
	delete(m.files, id)
	return nil
}

func (m *memStore) ExistsByPathOrHash(_ context.Context, path, hash string) (bool, error) {
	for _, f := range m.files {
		if f.StoragePath == path || (hash != "" && f.ContentHash == hash) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) Count(_ context.Context) (int64, error) {
	return int64(len(m.files)), nil
}

func newTestService(t *testing.T) (*Service, *memStore) {
	t.Helper()
	store := newMemStore()
	return NewService(store, t.TempDir(), 1<<20, nil), store
}

func TestUpload(t *testing.T) {
	svc, _ := newTestService(t)

	f, err := svc.Upload(context.Background(), "benchy.stl", strings.NewReader("solid data"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if f.FileType != models.FileTypeSTL {
		t.Errorf("type = %q, want stl", f.FileType)
	}
	if f.FileSizeBytes != int64(len("solid data")) {
		t.Errorf("size = %d", f.FileSizeBytes)
	}
	if f.ContentHash == "" {
		t.Error("content hash not computed")
	}
	if _, err := os.Stat(f.StoragePath); err != nil {
		t.Errorf("stored file missing: %v", err)
	}
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	svc, store := newTestService(t)

	_, err := svc.Upload(context.Background(), "virus.exe", strings.NewReader("x"))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("err = %v, want ErrUnsupportedType", err)
	}
	// отклонение до записи: ни строки, ни файла
	if n, _ := store.Count(context.Background()); n != 0 {
		t.Errorf("rows created on rejected upload: %d", n)
	}
}

func TestUploadRejectsOversized(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, t.TempDir(), 4, nil)

	_, err := svc.Upload(context.Background(), "big.stl", strings.NewReader("12345"))
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("err = %v, want ErrTooLarge", err)
	}
	if n, _ := store.Count(context.Background()); n != 0 {
		t.Errorf("rows created on oversized upload: %d", n)
	}
}

func TestReplaceTagsSetSemantics(t *testing.T) {
	svc, _ := newTestService(t)
	f, err := svc.Upload(context.Background(), "cube.stl", strings.NewReader("x"))
	if err != nil {
		t.Fatal(err)
	}

	got, err := svc.ReplaceTags(context.Background(), f.ID, []string{"b", "a", "b", ""})
	if err != nil {
		t.Fatalf("ReplaceTags: %v", err)
	}
	tags := got.TagList()
	if len(tags) != 2 || tags[0] != "a" || tags[1] != "b" {
		t.Fatalf("tags = %v, want [a b]", tags)
	}
}

func TestPatchMetadataNilFieldsUntouched(t *testing.T) {
	svc, _ := newTestService(t)
	f, err := svc.Upload(context.Background(), "cube.stl", strings.NewReader("x"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ReplaceTags(context.Background(), f.ID, []string{"keep"}); err != nil {
		t.Fatal(err)
	}

	desc := "a cube"
	got, err := svc.PatchMetadata(context.Background(), f.ID, &desc, nil)
	if err != nil {
		t.Fatalf("PatchMetadata: %v", err)
	}
	if got.Description != "a cube" {
		t.Errorf("description = %q", got.Description)
	}
	if tags := got.TagList(); len(tags) != 1 || tags[0] != "keep" {
		t.Errorf("tags clobbered by nil patch: %v", tags)
	}
}

func TestDeleteRemovesRowAndFile(t *testing.T) {
	svc, store := newTestService(t)
	f, err := svc.Upload(context.Background(), "cube.stl", strings.NewReader("x"))
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.Delete(context.Background(), f.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(context.Background(), f.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Errorf("row still present: %v", err)
	}
	if _, err := os.Stat(f.StoragePath); !os.IsNotExist(err) {
		t.Errorf("file still on disk: %v", err)
	}
}

func TestBulkDeleteIsolatesFailures(t *testing.T) {
	svc, _ := newTestService(t)
	a, _ := svc.Upload(context.Background(), "a.stl", strings.NewReader("a"))
	b, _ := svc.Upload(context.Background(), "b.stl", strings.NewReader("b"))

	sum := svc.BulkDelete(context.Background(), []uint{a.ID, 999, b.ID})
	if sum.Succeeded != 2 || sum.Failed != 1 {
		t.Fatalf("summary = %+v, want 2 succeeded / 1 failed", sum)
	}
	if len(sum.Errors) != 1 || !strings.Contains(sum.Errors[0], "999") {
		t.Fatalf("errors = %v", sum.Errors)
	}
}

func TestScanIdempotent(t *testing.T) {
	store := newMemStore()
	root := t.TempDir()
	svc := NewService(store, root, 1<<20, nil)

	for name, data := range map[string]string{
		"benchy.stl": "solid benchy",
		"cube.3mf":   "PK cube",
		"notes.txt":  "not a model",
	} {
		if err := os.WriteFile(filepath.Join(root, name), []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	added, err := svc.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if added != 2 {
		t.Fatalf("added = %d, want 2 (txt skipped)", added)
	}

	added, err = svc.Scan(context.Background())
	if err != nil {
		t.Fatalf("second Scan: %v", err)
	}
	if added != 0 {
		t.Fatalf("second scan added %d, want 0", added)
	}
}

func TestScanSkipsKnownHashAtNewPath(t *testing.T) {
	store := newMemStore()
	root := t.TempDir()
	svc := NewService(store, root, 1<<20, nil)

	if _, err := svc.Upload(context.Background(), "benchy.stl", strings.NewReader("same bytes")); err != nil {
		t.Fatal(err)
	}
	// тот же контент под другим именем вне каталога загрузки
	if err := os.WriteFile(filepath.Join(root, "copy.stl"), []byte("same bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	added, err := svc.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if added != 0 {
		t.Fatalf("added = %d, duplicate content must be skipped", added)
	}
}
