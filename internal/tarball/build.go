package tarball

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Entry — файл будущего архива.
type Entry struct {
	Name string
	Data []byte
	Mode int64 // 0 — 0644
}

// Build собирает tar.gz из переданных файлов. Архив детерминирован:
// фиксированные таймстемпы и канонический порядок имён, так что одинаковый
// набор файлов даёт байт-в-байт одинаковый архив и sha256.
// Возвращает архив и sha256 в hex.
func Build(entries []Entry) ([]byte, string, error) {
	var buf bytes.Buffer

	gz := gzip.NewWriter(&buf)
	// детерминируем gzip-заголовок
	gz.Name = ""
	gz.Comment = ""
	gz.ModTime = time.Unix(0, 0)

	tw := tar.NewWriter(gz)

	add := func(name string, data []byte, mode int64) error {
		// sanitize path: no leading slash, clean, unix slashes
		name = strings.TrimLeft(name, "/")
		name = filepath.ToSlash(filepath.Clean(name))
		if name == "" || name == "." {
			return nil
		}
		if mode == 0 {
			mode = 0o644
		}
		hdr := &tar.Header{
			Name:    name,
			Mode:    mode,
			Size:    int64(len(data)),
			ModTime: time.Unix(0, 0), // фиксируем время в tar-заголовке
			Uid:     0, Gid: 0, Uname: "", Gname: "",
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		_, err := tw.Write(data)
		return err
	}

	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	for _, e := range sorted {
		if err := add(e.Name, e.Data, e.Mode); err != nil {
			_ = tw.Close()
			_ = gz.Close()
			return nil, "", err
		}
	}

	_ = tw.Close()
	_ = gz.Close()

	sum := sha256.Sum256(buf.Bytes())
	return buf.Bytes(), hex.EncodeToString(sum[:]), nil
}
