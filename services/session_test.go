package services

import (
	"errors"
	"strings"
	"testing"
	"time"

	"frida-keeper/internal/models"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to models.InstallStatus
		want     bool
	}{
		{models.StatusIdle, models.StatusInstalling, true},
		{models.StatusIdle, models.StatusServerStarting, true},
		{models.StatusInstalling, models.StatusSuccess, true},
		{models.StatusSuccess, models.StatusServerStarting, true},
		{models.StatusServerRunning, models.StatusServerStopped, true},
		{models.StatusServerRunning, models.StatusInstalling, true},
		{models.StatusServerStopped, models.StatusServerStarting, true},
		{models.StatusFailed, models.StatusIdle, false},
		{models.StatusFailed, models.StatusInstalling, false},
		{models.StatusIdle, models.StatusServerRunning, false},
		{models.StatusSuccess, models.StatusServerStopped, false},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func newTestSession(t *testing.T, env *testEnv) *Session {
	t.Helper()
	return NewSession(env.installer, env.server, 27042)
}

func waitStatus(t *testing.T, s *Session, want models.InstallStatus) models.SessionState {
	t.Helper()
	waitFor(t, "status "+string(want), func() bool { return s.State().Status == want })
	return s.State()
}

func TestSessionInstallThenRun(t *testing.T) {
	env := newTestEnv(t, true)
	s := newTestSession(t, env)

	if st := s.State(); st.Status != models.StatusIdle || st.Installed {
		t.Fatalf("unexpected initial state %+v", st)
	}
	if _, err := s.InstallLatest(false); err != nil {
		t.Fatalf("InstallLatest: %v", err)
	}
	st := waitStatus(t, s, models.StatusSuccess)
	if !st.Installed || st.ServerInfo != "16.2.1 (arm64)" {
		t.Errorf("install state not refreshed: %+v", st)
	}
	if st.Download.Percent != 100 {
		t.Errorf("download progress = %+v", st.Download)
	}
	if len(st.Messages) == 0 || st.CurrentMessage != st.Messages[len(st.Messages)-1] {
		t.Errorf("unexpected log %+v", st.Messages)
	}
	installMsg := st.CurrentMessage

	if _, err := s.StartServer(27042, StartOptions{}); err != nil {
		t.Fatalf("StartServer: %v", err)
	}
	st = waitStatus(t, s, models.StatusServerRunning)
	if st.Pid <= 0 || st.Port != 27042 {
		t.Errorf("unexpected running state %+v", st)
	}
	for _, m := range st.Messages {
		if m == installMsg {
			t.Error("log should be cleared when a new flow begins")
		}
	}

	if _, err := s.StopServer(); err != nil {
		t.Fatalf("StopServer: %v", err)
	}
	st = waitStatus(t, s, models.StatusServerStopped)
	if st.Pid != 0 {
		t.Errorf("pid should be cleared, got %d", st.Pid)
	}
}

func TestSessionRejectsWhileBusy(t *testing.T) {
	env := newTestEnv(t, true)
	env.gate = make(chan struct{})
	s := newTestSession(t, env)

	if _, err := s.InstallLatest(true); err != nil {
		t.Fatalf("InstallLatest: %v", err)
	}
	if _, err := s.InstallLatest(true); !errors.Is(err, models.ErrSessionBusy) {
		t.Errorf("expected ErrSessionBusy, got %v", err)
	}
	if _, err := s.StartServer(27042, StartOptions{}); !errors.Is(err, models.ErrSessionBusy) {
		t.Errorf("expected ErrSessionBusy, got %v", err)
	}
	if err := s.Reset(); !errors.Is(err, models.ErrSessionBusy) {
		t.Errorf("Reset while busy should fail, got %v", err)
	}
	close(env.gate)
	waitStatus(t, s, models.StatusSuccess)
}

func TestSessionErrorIsTerminalUntilReset(t *testing.T) {
	env := newTestEnv(t, false)
	s := newTestSession(t, env)

	if _, err := s.InstallLatest(false); err != nil {
		t.Fatalf("InstallLatest: %v", err)
	}
	st := waitStatus(t, s, models.StatusFailed)
	if !strings.HasPrefix(st.CurrentMessage, "Error: ") || !strings.Contains(st.CurrentMessage, models.ErrRootUnavailable.Error()) {
		t.Errorf("CurrentMessage = %q", st.CurrentMessage)
	}
	if _, err := s.InstallLatest(false); !errors.Is(err, models.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}

	env.exec.root = true
	if err := s.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	st = s.State()
	if st.Status != models.StatusIdle || len(st.Messages) != 0 || st.CurrentMessage != "" {
		t.Errorf("unexpected state after reset %+v", st)
	}
	if _, err := s.InstallLatest(false); err != nil {
		t.Errorf("install after reset: %v", err)
	}
	waitStatus(t, s, models.StatusSuccess)
}

func TestSessionStopWhenIdleKeepsState(t *testing.T) {
	env := newTestEnv(t, true)
	s := newTestSession(t, env)
	sub := s.Subscribe()
	defer sub.Close()

	id, err := s.StopServer()
	if err != nil {
		t.Fatalf("StopServer: %v", err)
	}
	for ev := range sub.Events() {
		if ev.FlowID == id && ev.Terminal() {
			break
		}
	}
	if st := s.State(); st.Status != models.StatusIdle || st.FlowID != "" || len(st.Messages) != 0 {
		t.Errorf("stop when idle must not change state: %+v", st)
	}
}

func TestSessionSwitchVersionRestartsServer(t *testing.T) {
	env := newTestEnv(t, true)
	env.installScript(t)
	s := newTestSession(t, env)

	if _, err := s.StartServer(27050, StartOptions{}); err != nil {
		t.Fatalf("StartServer: %v", err)
	}
	waitStatus(t, s, models.StatusServerRunning)

	if _, err := s.SwitchVersion("16.1.0", StartOptions{}); err != nil {
		t.Fatalf("SwitchVersion: %v", err)
	}
	waitFor(t, "restart after switch", func() bool {
		st := s.State()
		return st.Status == models.StatusServerRunning && st.ServerInfo == "16.1.0 (arm64)"
	})
	if st := s.State(); st.Port != 27050 {
		t.Errorf("server should come back on the same port, got %d", st.Port)
	}
}

func TestSessionSubscribeReceivesFlowEvents(t *testing.T) {
	env := newTestEnv(t, true)
	env.installScript(t)
	s := newTestSession(t, env)
	sub := s.Subscribe()

	id, err := s.InstallLatest(false)
	if err != nil {
		t.Fatalf("InstallLatest: %v", err)
	}
	var last Event
	for ev := range sub.Events() {
		if ev.FlowID != id {
			continue
		}
		last = ev
		if ev.Terminal() {
			break
		}
	}
	sub.Close()
	if last.Kind != EventSuccess {
		t.Errorf("expected success, got %+v", last)
	}
}

func TestSlowSubscriberDoesNotBlockState(t *testing.T) {
	env := newTestEnv(t, true)
	s := newTestSession(t, env)

	slow := s.Subscribe()
	for i := 0; i < cap(slow.events); i++ {
		slow.events <- Event{Kind: EventProgress}
	}

	sent := make(chan struct{})
	go func() {
		s.broadcast(Event{FlowID: "f1", Kind: EventSuccess, Message: "done"})
		close(sent)
	}()

	// 终态事件最多等1秒，期间State和日志写入不受影响
	time.Sleep(100 * time.Millisecond)
	got := make(chan models.SessionState, 1)
	go func() {
		s.appendOutput("[STDOUT] line")
		got <- s.State()
	}()
	select {
	case st := <-got:
		if st.CurrentMessage != "[STDOUT] line" {
			t.Errorf("CurrentMessage = %q", st.CurrentMessage)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("State blocked behind a slow subscriber")
	}

	select {
	case <-sent:
	case <-time.After(3 * time.Second):
		t.Fatal("broadcast did not give up on the slow subscriber")
	}
	slow.Close()
	s.broadcast(Event{FlowID: "f2", Kind: EventSuccess})
}
