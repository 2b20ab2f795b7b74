package pipeline

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"frida-keeper/internal/models"

	"github.com/ulikunitz/xz"
)

func newPipeline(t *testing.T) (*Pipeline, string) {
	t.Helper()
	root := t.TempDir()
	return New(filepath.Join(root, "downloads"), filepath.Join(root, "bin", "frida-server")), root
}

func compress(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		t.Fatalf("xz writer: %v", err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("xz write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("xz close: %v", err)
	}
	return buf.Bytes()
}

func TestDownloadReportsProgress(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 100*1024)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	p, root := newPipeline(t)
	p = New(p.downloadDir, p.binaryPath, WithHTTPClient(srv.Client()))

	var events []models.DownloadProgress
	path, err := p.Download(context.Background(), srv.URL+"/assets/frida-server-1.0-android-arm64.xz", func(dp models.DownloadProgress) {
		events = append(events, dp)
	})
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if path != filepath.Join(root, "downloads", "frida-server-1.0-android-arm64.xz") {
		t.Errorf("unexpected path %s", path)
	}
	if len(events) == 0 {
		t.Fatal("expected progress events")
	}
	last := events[len(events)-1]
	if last.Percent != 100 || last.Indeterminate || last.Downloaded != int64(len(payload)) {
		t.Errorf("unexpected last progress: %+v", last)
	}
	for i := 1; i < len(events); i++ {
		if events[i].Downloaded < events[i-1].Downloaded {
			t.Fatalf("progress went backwards at %d", i)
		}
	}
}

func TestDownloadUnknownLength(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.(http.Flusher).Flush()
		_, _ = w.Write([]byte("chunked body"))
	}))
	defer srv.Close()

	p, _ := newPipeline(t)
	var last models.DownloadProgress
	if _, err := p.Download(context.Background(), srv.URL+"/file.xz", func(dp models.DownloadProgress) { last = dp }); err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if !last.Indeterminate {
		t.Errorf("expected indeterminate progress, got %+v", last)
	}
}

func TestDownloadHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	p, root := newPipeline(t)
	if _, err := p.Download(context.Background(), srv.URL+"/missing.xz", nil); !errors.Is(err, models.ErrDownload) {
		t.Fatalf("expected ErrDownload, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "downloads", "missing.xz")); !os.IsNotExist(err) {
		t.Error("no file should be left after a failed download")
	}
}

func TestExtract(t *testing.T) {
	p, root := newPipeline(t)
	archive := filepath.Join(root, "server.xz")
	if err := os.WriteFile(archive, compress(t, []byte("ELF binary")), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := p.Extract(archive); err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	got, err := os.ReadFile(p.BinaryPath())
	if err != nil || string(got) != "ELF binary" {
		t.Errorf("binary content = %q, %v", got, err)
	}
}

func TestExtractCorruptKeepsPreviousBinary(t *testing.T) {
	p, root := newPipeline(t)
	if err := os.MkdirAll(filepath.Dir(p.BinaryPath()), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p.BinaryPath(), []byte("old"), 0o755); err != nil {
		t.Fatal(err)
	}
	archive := filepath.Join(root, "bad.xz")
	if err := os.WriteFile(archive, []byte("definitely not xz"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := p.Extract(archive); !errors.Is(err, models.ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
	got, _ := os.ReadFile(p.BinaryPath())
	if string(got) != "old" {
		t.Errorf("previous binary was clobbered: %q", got)
	}
}

func TestPrepareManual(t *testing.T) {
	p, root := newPipeline(t)

	plain := filepath.Join(root, "frida-server-plain")
	if err := os.WriteFile(plain, []byte("plain"), 0o644); err != nil {
		t.Fatal(err)
	}
	var msgs []string
	if err := p.PrepareManual(plain, func(m string) { msgs = append(msgs, m) }); err != nil {
		t.Fatalf("PrepareManual(plain) failed: %v", err)
	}
	if got, _ := os.ReadFile(p.BinaryPath()); string(got) != "plain" {
		t.Errorf("binary = %q", got)
	}
	if len(msgs) == 0 {
		t.Error("expected progress messages")
	}

	packed := filepath.Join(root, "frida-server.XZ")
	if err := os.WriteFile(packed, compress(t, []byte("packed")), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := p.PrepareManual(packed, nil); err != nil {
		t.Fatalf("PrepareManual(xz) failed: %v", err)
	}
	if got, _ := os.ReadFile(p.BinaryPath()); string(got) != "packed" {
		t.Errorf("binary = %q", got)
	}

	if err := p.PrepareManual(filepath.Join(root, "nope"), nil); !errors.Is(err, models.ErrManualFileInvalid) {
		t.Errorf("expected ErrManualFileInvalid, got %v", err)
	}
}

func TestNewProgress(t *testing.T) {
	if p := NewProgress(50, 200); p.Percent != 25 || p.Indeterminate {
		t.Errorf("NewProgress(50,200) = %+v", p)
	}
	if p := NewProgress(10, -1); !p.Indeterminate {
		t.Errorf("NewProgress(10,-1) = %+v", p)
	}
}
