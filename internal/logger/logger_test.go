package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestGetLogLevelFromString(t *testing.T) {
	cases := map[string]LogLevel{
		"debug": DEBUG,
		"INFO":  INFO,
		"Warn":  WARN,
		"error": ERROR,
		"bogus": WARN,
		"":      WARN,
	}
	for in, want := range cases {
		if got := GetLogLevelFromString(in); got != want {
			t.Errorf("GetLogLevelFromString(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "warn")

	Debugf("debug %d", 1)
	Infof("info %d", 2)
	Warnf("warn %d", 3)
	Errorf("error %d", 4)

	out := buf.String()
	if strings.Contains(out, "debug 1") || strings.Contains(out, "info 2") {
		t.Errorf("messages below warn leaked: %q", out)
	}
	if !strings.Contains(out, "WARN: ") || !strings.Contains(out, "warn 3") {
		t.Errorf("warn message missing: %q", out)
	}
	if !strings.Contains(out, "ERROR: ") || !strings.Contains(out, "error 4") {
		t.Errorf("error message missing: %q", out)
	}
	if !strings.Contains(out, "logger_test.go") {
		t.Errorf("caller file not reported: %q", out)
	}
}
