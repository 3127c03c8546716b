package tarball

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"io"
	"testing"
)

func TestBuildDeterministic(t *testing.T) {
	entries := []Entry{
		{Name: "b.stl", Data: []byte("bbb")},
		{Name: "a.stl", Data: []byte("aaa")},
	}
	first, sum1, err := Build(entries)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	// другой порядок на входе — тот же архив на выходе
	second, sum2, err := Build([]Entry{entries[1], entries[0]})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatal("archives differ between runs")
	}
	if sum1 != sum2 {
		t.Fatalf("checksums differ: %s vs %s", sum1, sum2)
	}
}

func TestBuildContents(t *testing.T) {
	archive, _, err := Build([]Entry{
		{Name: "dir/../evil.stl", Data: []byte("x")},
		{Name: "ok.gcode", Data: []byte("G28")},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	gz, err := gzip.NewReader(bytes.NewReader(archive))
	if err != nil {
		t.Fatalf("gzip: %v", err)
	}
	tr := tar.NewReader(gz)
	var names []string
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("tar: %v", err)
		}
		names = append(names, hdr.Name)
		if hdr.ModTime.Unix() != 0 {
			t.Errorf("%s: timestamp not fixed: %v", hdr.Name, hdr.ModTime)
		}
		if _, err := io.Copy(io.Discard, tr); err != nil {
			t.Fatalf("read %s: %v", hdr.Name, err)
		}
	}
	for _, n := range names {
		if n == "dir/../evil.stl" {
			t.Error("path not sanitized")
		}
	}
	if len(names) != 2 {
		t.Fatalf("entries = %v", names)
	}
}
