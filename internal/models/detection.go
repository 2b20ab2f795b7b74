package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

var severityNames = []string{"LOW", "MEDIUM", "HIGH", "CRITICAL"}

func (s Severity) String() string {
	if s < SeverityLow || s > SeverityCritical {
		return "UNKNOWN"
	}
	return severityNames[s]
}

func ParseSeverity(name string) (Severity, error) {
	for i, n := range severityNames {
		if strings.EqualFold(n, name) {
			return Severity(i), nil
		}
	}
	return SeverityLow, fmt.Errorf("unknown severity: %q", name)
}

func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Severity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	v, err := ParseSeverity(name)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// DetectionResult 单项检测结果
type DetectionResult struct {
	Technique string   `json:"technique"`
	Detected  bool     `json:"detected"`
	Details   string   `json:"details"`
	Severity  Severity `json:"severity"`
	RawData   []string `json:"rawData,omitempty"`
}

// DetectionSummary 检测器返回的完整报告，只读
type DetectionSummary struct {
	TotalChecks int               `json:"totalChecks"`
	Detections  int               `json:"detections"`
	MaxSeverity Severity          `json:"maxSeverity"`
	Results     []DetectionResult `json:"results"`
	ScanTimeMs  int64             `json:"scanTimeMs"`
}

func (d DetectionSummary) ThreatLevel() string {
	switch {
	case d.Detections == 0:
		return "Clean"
	case d.MaxSeverity == SeverityCritical:
		return "Critical"
	case d.MaxSeverity == SeverityHigh:
		return "High Risk"
	case d.MaxSeverity == SeverityMedium:
		return "Medium Risk"
	default:
		return "Low Risk"
	}
}
