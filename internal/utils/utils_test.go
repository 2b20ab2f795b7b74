package utils

import (
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iancoleman/orderedmap"
)

func TestArchFromABI(t *testing.T) {
	cases := map[string]string{
		"arm64-v8a":   "arm64",
		"armeabi-v7a": "arm",
		"x86":         "x86",
		"x86_64\n":    "x86_64",
	}
	for abi, want := range cases {
		got, ok := ArchFromABI(abi)
		if !ok || got != want {
			t.Errorf("ArchFromABI(%q) = %q, %v; want %q", abi, got, ok, want)
		}
	}
	if _, ok := ArchFromABI("mips"); ok {
		t.Error("mips should be unknown")
	}
	if HostArch() == "" {
		t.Error("HostArch should not be empty")
	}
}

func TestRenderTable(t *testing.T) {
	type row struct {
		Version string `json:"version"`
		Saved   bool   `json:"saved"`
	}
	a, err := StructToOrderedMap(row{Version: "16.5.9", Saved: true})
	if err != nil {
		t.Fatalf("StructToOrderedMap failed: %v", err)
	}
	if keys := a.Keys(); len(keys) != 2 || keys[0] != "version" || keys[1] != "saved" {
		t.Fatalf("unexpected keys: %v", keys)
	}
	b, _ := StructToOrderedMap(row{Version: "16.5.8"})
	out := RenderTable(nil)
	if out != "" {
		t.Errorf("empty list should render nothing, got %q", out)
	}
	out = RenderTable([]*orderedmap.OrderedMap{a, b})
	for _, s := range []string{"VERSION", "16.5.9", "16.5.8"} {
		if !strings.Contains(strings.ToUpper(out), strings.ToUpper(s)) {
			t.Errorf("table missing %q:\n%s", s, out)
		}
	}
}

func TestFindProcessesSelfExcluded(t *testing.T) {
	self, err := os.Executable()
	if err != nil {
		t.Skip("no executable path")
	}
	for _, pid := range FindProcesses(filepath.Base(self)) {
		if pid == os.Getpid() {
			t.Fatal("FindProcesses must skip the current process")
		}
	}
	if IsProcessRunning(0) {
		t.Error("pid 0 is never a running process")
	}
	if !IsProcessRunning(os.Getpid()) {
		t.Error("current process should be running")
	}
}

func TestCheckPortAvailable(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	if CheckPortAvailable(port) {
		t.Errorf("port %d is listened on, should not be available", port)
	}
	l.Close()
	if !CheckPortAvailable(port) {
		t.Errorf("port %d should be available after close", port)
	}
}
