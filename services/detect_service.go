package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"frida-keeper/internal/config"
	"frida-keeper/internal/logger"
	"frida-keeper/internal/models"
)

var ErrDetectorUnavailable = errors.New("no detector configured")

/**
 * Runs an instrumentation detection scan and returns its findings
 */
type Detector interface {
	Scan(ctx context.Context) (*models.DetectionSummary, error)
}

/**
 * Detector backed by an external scanner printing a JSON report on stdout
 */
type ExecDetector struct {
	Command string
	Args    []string
	Timeout time.Duration
}

func NewExecDetector(cfg *config.DetectConfig) *ExecDetector {
	return &ExecDetector{
		Command: cfg.Command,
		Args:    cfg.Args,
		Timeout: cfg.Timeout,
	}
}

/**
 * Run the scanner and decode its report
 * @returns {*models.DetectionSummary, error} ErrDetectorUnavailable when no command is configured
 */
func (d *ExecDetector) Scan(ctx context.Context) (*models.DetectionSummary, error) {
	if d.Command == "" {
		return nil, ErrDetectorUnavailable
	}
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}
	start := time.Now()
	cmd := exec.CommandContext(ctx, d.Command, d.Args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		logger.Errorf("Detector '%s' failed: %v, stderr: %s", d.Command, err, stderr.String())
		return nil, fmt.Errorf("run detector: %w", err)
	}

	var summary models.DetectionSummary
	if err := json.Unmarshal(stdout.Bytes(), &summary); err != nil {
		return nil, fmt.Errorf("decode detector report: %w", err)
	}
	if summary.ScanTimeMs == 0 {
		summary.ScanTimeMs = time.Since(start).Milliseconds()
	}
	if summary.TotalChecks == 0 {
		summary.TotalChecks = len(summary.Results)
	}
	logger.Infof("Detection finished: %d/%d checks triggered, threat level %s",
		summary.Detections, summary.TotalChecks, summary.ThreatLevel())
	return &summary, nil
}
