package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"frida-keeper/internal/models"
)

func writeScanner(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scanner.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExecDetectorScan(t *testing.T) {
	report := `{"detections":1,"maxSeverity":"HIGH","results":[` +
		`{"technique":"port_27042","detected":true,"details":"port open","severity":"HIGH"},` +
		`{"technique":"maps","detected":false,"details":"","severity":"MEDIUM"}]}`
	d := &ExecDetector{Command: writeScanner(t, "cat <<'EOF'\n"+report+"\nEOF\n")}

	summary, err := d.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if summary.TotalChecks != 2 {
		t.Errorf("TotalChecks = %d, want 2", summary.TotalChecks)
	}
	if summary.MaxSeverity != models.SeverityHigh || summary.ThreatLevel() != "High Risk" {
		t.Errorf("unexpected severity %s / %s", summary.MaxSeverity, summary.ThreatLevel())
	}
	if !summary.Results[0].Detected || summary.Results[1].Detected {
		t.Errorf("unexpected results %+v", summary.Results)
	}
}

func TestExecDetectorErrors(t *testing.T) {
	if _, err := (&ExecDetector{}).Scan(context.Background()); !errors.Is(err, ErrDetectorUnavailable) {
		t.Errorf("expected ErrDetectorUnavailable, got %v", err)
	}
	failing := &ExecDetector{Command: writeScanner(t, "echo boom >&2\nexit 3\n")}
	if _, err := failing.Scan(context.Background()); err == nil {
		t.Error("expected error from failing scanner")
	}
	garbage := &ExecDetector{Command: writeScanner(t, "echo not-json\n")}
	if _, err := garbage.Scan(context.Background()); err == nil {
		t.Error("expected decode error")
	}
}
