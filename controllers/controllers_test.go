package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"frida-keeper/internal/config"
	"frida-keeper/internal/models"
	"frida-keeper/internal/privilege"
	"frida-keeper/services"

	"github.com/gin-gonic/gin"
)

// noRootExecutor 模拟未授权root的设备
type noRootExecutor struct{}

func (noRootExecutor) Run(ctx context.Context, command string) privilege.Result {
	return privilege.Result{ExitCode: 1}
}

func (noRootExecutor) Command(ctx context.Context, command string) *exec.Cmd {
	return exec.CommandContext(ctx, "/bin/sh", "-c", command)
}

func (noRootExecutor) CheckRoot(ctx context.Context) bool {
	return false
}

func newTestRouter(t *testing.T) (*gin.Engine, *services.Keeper) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()

	index := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"tag_name":"16.2.1","assets":[{"name":"frida-server-16.2.1-android-arm64.xz","browser_download_url":"http://invalid/x.xz"}]},` +
			`{"tag_name":"16.2.1-tools","assets":[{"name":"frida-tools.tar.gz"}]}]`))
	}))
	t.Cleanup(index.Close)

	cfg := config.Defaults()
	cfg.Install.Dir = filepath.Join(dir, "bin")
	cfg.Install.DownloadDir = filepath.Join(dir, "downloads")
	cfg.Release.BaseUrl = index.URL
	cfg.Process.WorkDir = dir
	cfg.Detect.Command = ""

	prefs, err := config.OpenPreferences(filepath.Join(dir, "preferences.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	keeper := services.NewKeeper(cfg, prefs, noRootExecutor{})
	return NewRouter(keeper, true), keeper
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var e models.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return e
}

func TestHealthz(t *testing.T) {
	router, _ := newTestRouter(t)
	w := doJSON(t, router, http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var h models.HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &h); err != nil {
		t.Fatal(err)
	}
	if h.Status != "UP" || h.Metrics.Installed || h.Metrics.SessionStatus != models.StatusIdle {
		t.Errorf("unexpected health %+v", h)
	}
}

func TestInstallWithoutRootThenReset(t *testing.T) {
	router, keeper := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, API_PREFIX+"/install/latest", nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d body %s", w.Code, w.Body.String())
	}
	var flow models.FlowResponse
	json.Unmarshal(w.Body.Bytes(), &flow)
	if flow.FlowID == "" {
		t.Error("flow id missing")
	}

	deadline := time.Now().Add(10 * time.Second)
	for keeper.Session().State().Status != models.StatusFailed {
		if time.Now().After(deadline) {
			t.Fatalf("session did not fail, state %+v", keeper.Session().State())
		}
		time.Sleep(20 * time.Millisecond)
	}

	w = doJSON(t, router, http.MethodPost, API_PREFIX+"/install/latest", nil)
	if w.Code != http.StatusConflict || decodeError(t, w).Code != "session.invalid_transition" {
		t.Errorf("expected 409 invalid transition, got %d %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodPost, API_PREFIX+"/session/reset", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("reset status = %d", w.Code)
	}
	var st models.SessionState
	json.Unmarshal(w.Body.Bytes(), &st)
	if st.Status != models.StatusIdle || len(st.Messages) != 0 {
		t.Errorf("unexpected state after reset %+v", st)
	}
}

func TestInstallVersionValidation(t *testing.T) {
	router, _ := newTestRouter(t)
	w := doJSON(t, router, http.MethodPost, API_PREFIX+"/install/version", map[string]interface{}{"force": true})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing version: status = %d", w.Code)
	}
	w = doJSON(t, router, http.MethodPost, API_PREFIX+"/install/version", models.InstallRequest{Version: "1.0.0", Save: true})
	if w.Code != http.StatusNotFound || decodeError(t, w).Code != "release.not_found" {
		t.Errorf("unknown version: got %d %s", w.Code, w.Body.String())
	}
}

func TestPreferencesEndpoints(t *testing.T) {
	router, keeper := newTestRouter(t)

	w := doJSON(t, router, http.MethodPut, API_PREFIX+"/prefs", map[string]interface{}{"serverPort": 70000})
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid port: status = %d", w.Code)
	}
	w = doJSON(t, router, http.MethodPut, API_PREFIX+"/prefs", map[string]interface{}{"serverPort": 31337, "autoStart": true})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", w.Code, w.Body.String())
	}
	if keeper.Prefs().ServerPort() != 31337 || !keeper.Prefs().AutoStartEnabled() {
		t.Error("preferences not stored")
	}
	if !keeper.Prefs().DarkTheme() {
		t.Error("untouched field must keep its value")
	}
}

func TestReleasesAndSavedVersions(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, API_PREFIX+"/releases", nil)
	var releases []models.Release
	if err := json.Unmarshal(w.Body.Bytes(), &releases); err != nil || w.Code != http.StatusOK {
		t.Fatalf("releases: %d %v", w.Code, err)
	}
	if len(releases) != 1 || releases[0].TagName != "16.2.1" {
		t.Errorf("unexpected releases %+v", releases)
	}

	w = doJSON(t, router, http.MethodPost, API_PREFIX+"/versions", models.VersionRequest{Version: "16.2.1"})
	if w.Code != http.StatusOK {
		t.Fatalf("save: %d %s", w.Code, w.Body.String())
	}
	w = doJSON(t, router, http.MethodDelete, API_PREFIX+"/versions/16.2.1", nil)
	var saved []string
	json.Unmarshal(w.Body.Bytes(), &saved)
	if w.Code != http.StatusOK || len(saved) != 0 {
		t.Errorf("remove: %d %v", w.Code, saved)
	}
}

func TestDeviceEndpointsWithoutRoot(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, API_PREFIX+"/adb/enable", nil)
	if w.Code != http.StatusForbidden || decodeError(t, w).Code != "device.root_unavailable" {
		t.Errorf("adb enable: %d %s", w.Code, w.Body.String())
	}
	w = doJSON(t, router, http.MethodPost, API_PREFIX+"/detect", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("detect: %d", w.Code)
	}
	w = doJSON(t, router, http.MethodGet, API_PREFIX+"/server", nil)
	var detail models.ProcessDetail
	json.Unmarshal(w.Body.Bytes(), &detail)
	if w.Code != http.StatusOK || detail.Pid != 0 {
		t.Errorf("server detail: %d %+v", w.Code, detail)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	doJSON(t, router, http.MethodGet, "/healthz", nil)
	w := doJSON(t, router, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte("frida_keeper_")) {
		t.Errorf("metrics: %d", w.Code)
	}
}
