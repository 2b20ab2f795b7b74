package rpc

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func tcpConfig(srv *httptest.Server) *HTTPConfig {
	return &HTTPConfig{
		Address: strings.TrimPrefix(srv.URL, "http://"),
		Network: "tcp",
		Timeout: 5 * time.Second,
		BaseURL: "http://localhost",
	}
}

func TestHTTPClientWithMockServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/frida/api/v1/session":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"idle"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/frida/api/v1/server/start":
			if r.Header.Get("Content-Type") != "application/json" {
				t.Errorf("missing content type")
			}
			body, _ := io.ReadAll(r.Body)
			var req map[string]int
			json.Unmarshal(body, &req)
			if req["port"] != 27042 {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"code":"server.bad_port","message":"bad port"}`))
				return
			}
			w.Write([]byte(`{"pid":1234}`))
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte(`{"code":"session.busy","message":"another operation is in progress"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewHTTPClient(tcpConfig(server))
	defer client.Close()

	resp, err := client.Get("/frida/api/v1/session", nil)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	var state map[string]string
	if err := resp.Decode(&state); err != nil || state["status"] != "idle" {
		t.Errorf("Decode = %v, %v", state, err)
	}

	resp, err = client.Post("/frida/api/v1/server/start", map[string]int{"port": 27042})
	if err != nil || !resp.OK() {
		t.Fatalf("Post failed: %v %+v", err, resp)
	}

	resp, err = client.Post("/frida/api/v1/server/start", map[string]int{"port": 1})
	if err != nil {
		t.Fatalf("Post failed: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest || resp.Code != "server.bad_port" || resp.Error != "bad port" {
		t.Errorf("unexpected error response: %+v", resp)
	}

	resp, err = client.Delete("/frida/api/v1/install", nil)
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := resp.Decode(&state); err == nil || err.Error() != "another operation is in progress" {
		t.Errorf("expected decode error from message, got %v", err)
	}

	resp, _ = client.Get("/missing", nil)
	if resp.StatusCode != http.StatusNotFound || resp.Error == "" {
		t.Errorf("unexpected 404 response: %+v", resp)
	}
}

func TestHTTPClientUnixSocket(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "keeper.sock")
	l, err := net.Listen("unix", sock)
	if err != nil {
		t.Skipf("unix socket unavailable: %v", err)
	}
	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true}`))
	})}
	go srv.Serve(l)
	defer srv.Close()

	client := NewHTTPClient(&HTTPConfig{Address: sock, Network: "unix", Timeout: 5 * time.Second, BaseURL: "http://localhost"})
	defer client.Close()
	resp, err := client.Get("/healthz", nil)
	if err != nil || !resp.OK() {
		t.Fatalf("Get over unix socket failed: %v %+v", err, resp)
	}
}

func TestHTTPClientNoDaemon(t *testing.T) {
	client := NewHTTPClient(&HTTPConfig{
		Address: filepath.Join(t.TempDir(), "absent.sock"),
		Network: "unix",
		Timeout: time.Second,
		BaseURL: "http://localhost",
	})
	if _, err := client.Get("/healthz", nil); err == nil {
		t.Error("expected connection error")
	}
}

func TestBuildURL(t *testing.T) {
	got, err := buildURL("http://localhost", "/frida/api/v1/releases", map[string]interface{}{"limit": 10, "all": true})
	if err != nil {
		t.Fatal(err)
	}
	if got != "http://localhost/frida/api/v1/releases?all=true&limit=10" {
		t.Errorf("buildURL = %s", got)
	}
	got, _ = buildURL("http://localhost/base/", "x", nil)
	if got != "http://localhost/base/x" {
		t.Errorf("buildURL with base path = %s", got)
	}
}
