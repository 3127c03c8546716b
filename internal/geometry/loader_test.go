package geometry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
)

// тестовый сервер: geometry отдаёт fastCT/fastBody, download — file
func loaderServer(t *testing.T, fastStatus int, fastCT string, fastBody []byte, file []byte) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/library/geometry/", func(w http.ResponseWriter, r *http.Request) {
		if fastCT != "" {
			w.Header().Set("Content-Type", fastCT)
		}
		w.WriteHeader(fastStatus)
		_, _ = w.Write(fastBody)
	})
	mux.HandleFunc("/api/library/download/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(file)))
		if r.Method == http.MethodHead {
			return
		}
		_, _ = w.Write(file)
	})
	return httptest.NewServer(mux)
}

func TestLoaderFastPath(t *testing.T) {
	stl := binarySTL([9]float32{0, 0, 0, 1, 0, 0, 0, 1, 0})
	srv := loaderServer(t, http.StatusOK, "application/octet-stream", stl, nil)
	defer srv.Close()

	m, err := NewLoader(srv.URL, srv.Client()).Load(context.Background(), 1, "stl")
	if err != nil {
		t.Fatal(err)
	}
	if m.Triangles != 1 {
		t.Errorf("expected 1 triangle, got %d", m.Triangles)
	}
}

func TestLoaderFallsBackOnCompoundContentType(t *testing.T) {
	stl := binarySTL([9]float32{0, 0, 0, 1, 0, 0, 0, 1, 0})
	srv := loaderServer(t, http.StatusOK, "model/3mf", []byte("zip-ish"), stl)
	defer srv.Close()

	m, err := NewLoader(srv.URL, srv.Client()).Load(context.Background(), 2, "stl")
	if err != nil {
		t.Fatal(err)
	}
	if m.Triangles != 1 {
		t.Error("fallback path must parse the downloaded file")
	}
}

func TestLoaderFallsBackOn404(t *testing.T) {
	stl := binarySTL([9]float32{0, 0, 0, 1, 0, 0, 0, 1, 0})
	srv := loaderServer(t, http.StatusNotFound, "", nil, stl)
	defer srv.Close()

	if _, err := NewLoader(srv.URL, srv.Client()).Load(context.Background(), 3, "stl"); err != nil {
		t.Fatalf("missing pre-extracted geometry must not fail the load: %v", err)
	}
}

func TestLoaderLargeFileGate(t *testing.T) {
	stl := binarySTL([9]float32{0, 0, 0, 1, 0, 0, 0, 1, 0})
	srv := loaderServer(t, http.StatusNotFound, "", nil, stl)
	defer srv.Close()

	l := NewLoader(srv.URL, srv.Client())

	t.Run("at threshold passes", func(t *testing.T) {
		l.Threshold = int64(len(stl)) // ровно порог — без подтверждения
		if _, err := l.Load(context.Background(), 4, "stl"); err != nil {
			t.Errorf("size == threshold must not gate: %v", err)
		}
	})

	t.Run("one over declines", func(t *testing.T) {
		l.Threshold = int64(len(stl)) - 1
		l.Confirm = nil
		_, err := l.Load(context.Background(), 4, "stl")
		if !errors.Is(err, ErrLargeFileDeclined) {
			t.Errorf("expected ErrLargeFileDeclined, got %v", err)
		}
	})

	t.Run("confirm allows", func(t *testing.T) {
		l.Threshold = int64(len(stl)) - 1
		var asked int64
		l.Confirm = func(size int64) bool { asked = size; return true }
		if _, err := l.Load(context.Background(), 4, "stl"); err != nil {
			t.Fatal(err)
		}
		if asked != int64(len(stl)) {
			t.Errorf("confirm saw size %d, want %d", asked, len(stl))
		}
	})
}

func TestLoaderBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewLoader(srv.URL, srv.Client()).Load(context.Background(), 5, "stl")
	var de *DownloadError
	if !errors.As(err, &de) || de.Transport {
		t.Errorf("expected backend DownloadError, got %v", err)
	}
	if de != nil && de.Status != http.StatusInternalServerError {
		t.Errorf("status lost: %d", de.Status)
	}
}

func TestLoaderTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // сервер уже погашен — чистый транспортный сбой

	_, err := NewLoader(srv.URL, nil).Load(context.Background(), 6, "stl")
	var de *DownloadError
	if !errors.As(err, &de) || !de.Transport {
		t.Errorf("expected transport DownloadError, got %v", err)
	}
}

func TestLoaderUnsupportedType(t *testing.T) {
	srv := loaderServer(t, http.StatusNotFound, "", nil, []byte("g0 x0"))
	defer srv.Close()

	_, err := NewLoader(srv.URL, srv.Client()).Load(context.Background(), 7, "gcode")
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Errorf("expected ParseError for gcode, got %v", err)
	}
}
