package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"frida-keeper/internal/models"
	"frida-keeper/internal/privilege"
)

// propExecutor 模拟setprop/getprop/start/stop
type propExecutor struct {
	*fakeExecutor
	port string
}

func (p *propExecutor) Run(ctx context.Context, command string) privilege.Result {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.calls = append(p.calls, command)
	if command == "getprop service.adb.tcp.port" {
		return privilege.Result{Succeeded: true, Lines: []string{p.port}}
	}
	if v, ok := strings.CutPrefix(command, "setprop service.adb.tcp.port "); ok {
		p.port = v
	}
	return privilege.Result{Succeeded: true}
}

func TestAdbManagerRequiresRoot(t *testing.T) {
	env := newTestEnv(t, false)
	adb := NewAdbManager(&propExecutor{fakeExecutor: env.exec})
	if _, err := adb.Enable(context.Background()); !errors.Is(err, models.ErrRootUnavailable) {
		t.Errorf("Enable without root: %v", err)
	}
	if err := adb.Disable(context.Background()); !errors.Is(err, models.ErrRootUnavailable) {
		t.Errorf("Disable without root: %v", err)
	}
	if len(env.exec.Calls("setprop")) != 0 {
		t.Error("no property may be written without root")
	}
}

func TestAdbManagerEnableDisable(t *testing.T) {
	env := newTestEnv(t, true)
	adb := NewAdbManager(&propExecutor{fakeExecutor: env.exec})

	if st := adb.Status(context.Background()); st.Enabled {
		t.Errorf("expected disabled, got %+v", st)
	}
	st, err := adb.Enable(context.Background())
	if err != nil {
		t.Fatalf("Enable: %v", err)
	}
	if !st.Enabled || st.Port != DEFAULT_ADB_PORT {
		t.Errorf("unexpected status %+v", st)
	}
	want := []string{"getprop service.adb.tcp.port", "setprop service.adb.tcp.port 5555", "stop adbd", "start adbd"}
	calls := env.exec.Calls("")
	if len(calls) != len(want) {
		t.Fatalf("calls = %v", calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, calls[i], want[i])
		}
	}
	if st := adb.Status(context.Background()); !st.Enabled || st.Port != 5555 {
		t.Errorf("Status = %+v", st)
	}

	if err := adb.Disable(context.Background()); err != nil {
		t.Fatalf("Disable: %v", err)
	}
	if st := adb.Status(context.Background()); st.Enabled {
		t.Errorf("expected disabled after Disable, got %+v", st)
	}
}
