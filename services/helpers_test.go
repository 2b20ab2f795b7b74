package services

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"frida-keeper/internal/config"
	"frida-keeper/internal/pipeline"
	"frida-keeper/internal/privilege"
	"frida-keeper/internal/release"
	"frida-keeper/internal/utils"

	"github.com/ulikunitz/xz"
)

// fakeExecutor 用/bin/sh代替su，root检查和pkill/getprop可控
type fakeExecutor struct {
	sh    *privilege.SuExecutor
	root  bool
	mutex sync.Mutex
	calls []string
	kill  func()
}

func (f *fakeExecutor) Run(ctx context.Context, command string) privilege.Result {
	f.mutex.Lock()
	f.calls = append(f.calls, command)
	kill := f.kill
	f.mutex.Unlock()
	switch {
	case strings.HasPrefix(command, "pkill"):
		if kill != nil {
			kill()
		}
		return privilege.Result{Succeeded: true}
	case strings.HasPrefix(command, "getprop ro.product.cpu.abi"):
		return privilege.Result{Succeeded: true, Lines: []string{"arm64-v8a"}}
	}
	return f.sh.Run(ctx, command)
}

func (f *fakeExecutor) Command(ctx context.Context, command string) *exec.Cmd {
	return f.sh.Command(ctx, command)
}

func (f *fakeExecutor) CheckRoot(ctx context.Context) bool {
	return f.root
}

func (f *fakeExecutor) Calls(prefix string) []string {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	var out []string
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

// pidFileFinder 测试用的服务脚本把自己的PID写到文件里
type pidFileFinder struct {
	path string
}

func (p pidFileFinder) FindPids(string) []int {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || !utils.IsProcessRunning(pid) {
		return nil
	}
	return []int{pid}
}

func (p pidFileFinder) kill() {
	for _, pid := range p.FindPids("") {
		utils.KillProcessGracefully(pid, 100*time.Millisecond)
	}
}

type testEnv struct {
	root      string
	cfg       config.AppConfig
	exec      *fakeExecutor
	finder    pidFileFinder
	index     *httptest.Server
	requests  int64
	arches    []string
	gate      chan struct{}
	installer *InstallManager
	server    *ProcessController
}

func serverScript(pidFile string) string {
	return fmt.Sprintf("#!/bin/sh\necho $$ > '%s'\necho \"listening on $2\"\necho 'stderr line' >&2\nexec sleep 30\n", pidFile)
}

func xzBytes(t *testing.T, data string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(data)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func releaseJSON(base, tag string, arches []string) string {
	var assets []string
	for _, arch := range arches {
		name := fmt.Sprintf("frida-server-%s-android-%s.xz", tag, arch)
		assets = append(assets, fmt.Sprintf(`{"name":%q,"browser_download_url":%q}`, name, base+"/download/"+name))
	}
	return fmt.Sprintf(`{"tag_name":%q,"name":"Frida %s","assets":[%s]}`, tag, tag, strings.Join(assets, ","))
}

func newTestEnv(t *testing.T, root bool) *testEnv {
	t.Helper()
	dir := t.TempDir()
	env := &testEnv{root: dir, arches: []string{"arm64", "arm"}}
	env.finder = pidFileFinder{path: filepath.Join(dir, "server.pid")}
	archive := xzBytes(t, serverScript(env.finder.path))

	mux := http.NewServeMux()
	mux.HandleFunc("/releases/latest", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&env.requests, 1)
		w.Write([]byte(releaseJSON(env.index.URL, "16.2.1", env.arches)))
	})
	mux.HandleFunc("/releases", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&env.requests, 1)
		w.Write([]byte("[" + releaseJSON(env.index.URL, "16.2.1", env.arches) + "," +
			releaseJSON(env.index.URL, "16.1.0", env.arches) + "]"))
	})
	mux.HandleFunc("/download/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&env.requests, 1)
		if env.gate != nil {
			<-env.gate
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(archive)))
		w.Write(archive)
	})
	env.index = httptest.NewServer(mux)
	t.Cleanup(env.index.Close)

	env.cfg = *config.Defaults()
	env.cfg.Install.Dir = filepath.Join(dir, "bin")
	env.cfg.Install.DownloadDir = filepath.Join(dir, "downloads")
	env.cfg.Install.Arch = ""
	env.cfg.Release.BaseUrl = env.index.URL
	env.cfg.Process = config.ProcessConfig{
		WorkDir:      dir,
		ListenHost:   "127.0.0.1",
		StartTimeout: 5 * time.Second,
		PollInterval: 50 * time.Millisecond,
		GracePeriod:  300 * time.Millisecond,
		LogFile:      filepath.Join(dir, "logs", "frida-server.log"),
	}

	env.exec = &fakeExecutor{sh: &privilege.SuExecutor{Shell: "/bin/sh"}, root: root, kill: env.finder.kill}
	resolver := release.NewResolver(release.WithBaseURL(env.index.URL), release.WithHTTPClient(env.index.Client()))
	pl := pipeline.NewFromConfig(&env.cfg.Install, pipeline.WithHTTPClient(env.index.Client()))
	env.server = NewProcessController(&env.cfg.Process, env.cfg.Install.BinaryPath(), env.exec, env.finder)
	env.installer = NewInstallManager(&env.cfg.Install, 50, env.exec, resolver, pl, env.server)
	t.Cleanup(func() { env.server.Terminate(context.Background()) })
	return env
}

func (e *testEnv) requestCount() int64 {
	return atomic.LoadInt64(&e.requests)
}

// installScript 不走网络直接放置一个可执行的服务脚本
func (e *testEnv) installScript(t *testing.T) {
	t.Helper()
	if err := os.MkdirAll(e.cfg.Install.Dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(e.cfg.Install.BinaryPath(), []byte(serverScript(e.finder.path)), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(e.cfg.Install.RecordPath(), []byte("16.2.1 (arm64)\n"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func collect(t *testing.T, f *Flow) []Event {
	t.Helper()
	var events []Event
	timeout := time.After(20 * time.Second)
	for {
		select {
		case ev, ok := <-f.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatalf("flow %s did not finish", f.Name)
		}
	}
}

func terminal(t *testing.T, events []Event) Event {
	t.Helper()
	if len(events) == 0 {
		t.Fatal("no events")
	}
	last := events[len(events)-1]
	if !last.Terminal() {
		t.Fatalf("last event is not terminal: %+v", last)
	}
	for _, ev := range events[:len(events)-1] {
		if ev.Terminal() {
			t.Fatalf("terminal event before the end: %+v", ev)
		}
	}
	return last
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
