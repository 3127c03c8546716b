package library

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"spool/internal/models"
)

// AutoTagClient — HTTP-клиент внешнего enrichment-бэкенда. Что там за
// модель — не наше дело: чёрный ящик с таймаутом и контрактом ответа.
type AutoTagClient struct {
	url string
	hc  *http.Client
}

func NewAutoTagClient(url string, timeout time.Duration) *AutoTagClient {
	if url == "" {
		return nil
	}
	return &AutoTagClient{url: url, hc: &http.Client{Timeout: timeout}}
}

// Suggestion — контракт ответа enrichment-бэкенда.
type Suggestion struct {
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

type suggestRequest struct {
	FileName      string `json:"file_name"`
	FileType      string `json:"file_type"`
	FileSizeBytes int64  `json:"file_size_bytes"`
}

func (c *AutoTagClient) Suggest(ctx context.Context, f *models.LibraryFile) (*Suggestion, error) {
	body, err := json.Marshal(suggestRequest{
		FileName:      f.OriginalName,
		FileType:      f.FileType,
		FileSizeBytes: f.FileSizeBytes,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auto-tag backend: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auto-tag backend: http %d", resp.StatusCode)
	}

	var sug Suggestion
	if err := json.NewDecoder(resp.Body).Decode(&sug); err != nil {
		return nil, fmt.Errorf("auto-tag backend: decode: %w", err)
	}
	return &sug, nil
}
