package geometry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// DefaultLargeFileBytes — порог "большого" файла: строго больше — качаем
// только после явного подтверждения.
const DefaultLargeFileBytes = 50 * 1024 * 1024

// ConfirmFunc спрашивает подтверждение на скачивание большого файла.
// true — качаем; false — ErrLargeFileDeclined (отмена, не ошибка).
type ConfirmFunc func(sizeBytes int64) bool

// Loader — двухфазная загрузка геометрии файла библиотеки:
//  1. fast path: GET /geometry/{id} — готовый binary mesh, парсим сразу;
//     если сервер отвечает XML/3MF (compound-формат), проваливаемся дальше;
//  2. fallback: HEAD для размера (gate по порогу), затем полный GET и
//     парсинг по типу файла.
type Loader struct {
	BaseURL    string
	HTTPClient *http.Client
	Threshold  int64       // 0 — DefaultLargeFileBytes
	Confirm    ConfirmFunc // nil — большие файлы всегда отклоняются
}

func NewLoader(baseURL string, hc *http.Client) *Loader {
	if hc == nil {
		hc = &http.Client{Timeout: 5 * time.Minute}
	}
	return &Loader{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: hc,
		Threshold:  DefaultLargeFileBytes,
	}
}

// Load отдаёт нормализованную сетку файла. ctx обрывает и fast path, и
// скачивание: закрытие вьювера = отмена запроса.
func (l *Loader) Load(ctx context.Context, fileID uint, fileType string) (*Mesh, error) {
	if m, ok, err := l.tryFastPath(ctx, fileID); err != nil {
		return nil, err
	} else if ok {
		m.Normalize()
		return m, nil
	}
	m, err := l.downloadAndParse(ctx, fileID, fileType)
	if err != nil {
		return nil, err
	}
	m.Normalize()
	return m, nil
}

// tryFastPath: (mesh, true, nil) — успех; (nil, false, nil) — фолбэк;
// ошибка — только транспорт/парсинг самого fast path.
func (l *Loader) tryFastPath(ctx context.Context, fileID uint) (*Mesh, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/api/library/geometry/%d", l.BaseURL, fileID), http.NoBody)
	if err != nil {
		return nil, false, err
	}
	resp, err := l.HTTPClient.Do(req)
	if err != nil {
		return nil, false, &DownloadError{Transport: true, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// нет готовой геометрии — не ошибка, идём в фолбэк
		return nil, false, nil
	}
	ct := resp.Header.Get("Content-Type")
	if isCompoundContentType(ct) {
		// сервер сигналит: это XML/3MF, напрямую не парсится
		return nil, false, nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, &DownloadError{Transport: true, Err: err}
	}
	m, err := ParseSTL(data)
	if err != nil {
		return nil, false, err
	}
	return m, true, nil
}

func (l *Loader) downloadAndParse(ctx context.Context, fileID uint, fileType string) (*Mesh, error) {
	u := fmt.Sprintf("%s/api/library/download/%d", l.BaseURL, fileID)

	// метаданные до скачивания: размер решает, нужен ли confirm
	head, err := http.NewRequestWithContext(ctx, http.MethodHead, u, http.NoBody)
	if err != nil {
		return nil, err
	}
	resp, err := l.HTTPClient.Do(head)
	if err != nil {
		return nil, &DownloadError{Transport: true, Err: err}
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &DownloadError{Status: resp.StatusCode}
	}

	threshold := l.Threshold
	if threshold <= 0 {
		threshold = DefaultLargeFileBytes
	}
	// строго больше порога: файл ровно в порог качаем без вопросов
	if size := resp.ContentLength; size > threshold {
		if l.Confirm == nil || !l.Confirm(size) {
			return nil, fmt.Errorf("%w: %v", ErrLargeFileDeclined, &LargeFileWarning{SizeBytes: size})
		}
	}

	get, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, err
	}
	resp, err = l.HTTPClient.Do(get)
	if err != nil {
		return nil, &DownloadError{Transport: true, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &DownloadError{Status: resp.StatusCode}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &DownloadError{Transport: true, Err: err}
	}

	switch fileType {
	case "stl":
		return ParseSTL(data)
	case "3mf":
		return Parse3MF(data)
	default:
		return nil, &ParseError{Format: fileType, Reason: "no mesh parser for file type"}
	}
}

func isCompoundContentType(ct string) bool {
	ct = strings.ToLower(ct)
	return strings.Contains(ct, "xml") || strings.Contains(ct, "3mf") || strings.Contains(ct, "zip")
}

// Session — "вьювер": держит не больше одной живой сетки. Swap отпускает
// предыдущую перед подменой, повторные загрузки не копят буферы.
type Session struct {
	mu      sync.Mutex
	current *Mesh
}

func (s *Session) Swap(m *Mesh) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.current.Release()
	}
	s.current = m
}

func (s *Session) Current() *Mesh {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Session) Close() { s.Swap(nil) }
