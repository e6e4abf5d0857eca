package main

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/surface"
	"github.com/vango-dev/surface/internal/config"
	"github.com/vango-dev/surface/internal/errors"
	"github.com/vango-dev/surface/pkg/dom"
	"github.com/vango-dev/surface/pkg/metrics"
)

const mixer = `<html><body>
<input id="vol" type="range" value="10" data-range-channel="volume">
<div id="log" data-inner-html-channel="log"></div>
<div id="meter" data-style-channel="meter"></div>
</body></html>`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// execute runs the CLI in a fresh working directory.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	wd, wdErr := os.Getwd()
	if wdErr != nil {
		t.Fatal(wdErr)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writePage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "panel.html")
	if err := os.WriteFile(path, []byte(mixer), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func errorCode(err error) string {
	var se *errors.SurfaceError
	if stderrors.As(err, &se) {
		return se.Code
	}
	return ""
}

func TestParseAssignments(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		asJSON   bool
		want     []assignment
		wantCode string
	}{
		{
			name: "strings",
			args: []string{"volume=42", "room.name=Main hall", "expr=a=b"},
			want: []assignment{{"volume", "42"}, {"room.name", "Main hall"}, {"expr", "a=b"}},
		},
		{
			name: "empty value",
			args: []string{"log="},
			want: []assignment{{"log", ""}},
		},
		{
			name:   "json",
			args:   []string{"volume=42", "mute=true", `label="x"`},
			asJSON: true,
			want:   []assignment{{"volume", 42.0}, {"mute", true}, {"label", "x"}},
		},
		{
			name:     "missing equals",
			args:     []string{"volume"},
			wantCode: "S060",
		},
		{
			name:     "missing channel",
			args:     []string{"=42"},
			wantCode: "S060",
		},
		{
			name:     "bad json",
			args:     []string{"volume=loud"},
			asJSON:   true,
			wantCode: "S061",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAssignments(tt.args, tt.asJSON)
			if tt.wantCode != "" {
				if errorCode(err) != tt.wantCode {
					t.Fatalf("error = %v, want %s", err, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("assignment %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestApplyCommand(t *testing.T) {
	page := writePage(t)
	out, err := execute(t, "apply", page, "volume=42", "log=<b>hi</b>")
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	for _, want := range []string{`value="42"`, `<div id="log" data-inner-html-channel="log"><b>hi</b></div>`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s:\n%s", want, out)
		}
	}
}

func TestApplyStyle(t *testing.T) {
	page := writePage(t)
	out, err := execute(t, "apply", page, `meter={"width":"40%"}`)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if !strings.Contains(out, `style="width: 40%;"`) {
		t.Errorf("style not applied:\n%s", out)
	}

	out, err = execute(t, "apply", page, "--json", `meter={"width":"40%"}`)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if strings.Contains(out, "width") {
		t.Errorf("decoded object applied as style:\n%s", out)
	}
}

func TestApplyToFile(t *testing.T) {
	page := writePage(t)
	target := filepath.Join(t.TempDir(), "out.html")
	out, err := execute(t, "apply", page, "volume=3", "-o", target)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if out != "" {
		t.Errorf("stdout = %q, want nothing", out)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `value="3"`) {
		t.Errorf("file missing update:\n%s", data)
	}
}

func TestApplyErrors(t *testing.T) {
	page := writePage(t)
	tests := []struct {
		name string
		args []string
		code string
	}{
		{"bad assignment", []string{"apply", page, "volume"}, "S060"},
		{"missing page", []string{"apply", filepath.Join(t.TempDir(), "none.html"), "volume=1"}, "S020"},
		{"bad scheme", []string{"apply", "gopher://x/panel", "volume=1"}, "S023"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			if errorCode(err) != tt.code {
				t.Errorf("error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestScanCommand(t *testing.T) {
	page := writePage(t)
	out, err := execute(t, "scan", page)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	for _, want := range []string{"CHANNEL", "volume", "range", "input#vol", "div#meter", "3 channels, 3 bindings, 2 listeners"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestScanJSON(t *testing.T) {
	page := writePage(t)
	out, err := execute(t, "scan", page, "--json")
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	var got struct {
		Channels  []string      `json:"channels"`
		Bindings  []bindingInfo `json:"bindings"`
		Listeners int           `json:"listeners"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if strings.Join(got.Channels, ",") != "volume,log,meter" {
		t.Errorf("channels = %v", got.Channels)
	}
	if len(got.Bindings) != 3 || got.Bindings[0] != (bindingInfo{Channel: "volume", Kind: "range", Element: "input#vol"}) {
		t.Errorf("bindings = %+v", got.Bindings)
	}
}

func TestScanWithoutPage(t *testing.T) {
	_, err := execute(t, "scan")
	if errorCode(err) != "S005" {
		t.Errorf("error = %v, want S005", err)
	}
}

func TestScanUsesConfig(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "panel.html"), []byte(mixer), 0644); err != nil {
		t.Fatal(err)
	}
	cfgPath := filepath.Join(dir, "surface.yaml")
	if err := os.WriteFile(cfgPath, []byte("page: panel.html\n"), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "--config", cfgPath, "scan")
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if !strings.Contains(out, "input#vol") {
		t.Errorf("output:\n%s", out)
	}
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()
	if _, err := execute(t, "init", "panel.html", "--dir", dir); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Page != "panel.html" || cfg.Transport.Path != "/updates" {
		t.Errorf("cfg = %+v", cfg)
	}

	if _, err := execute(t, "init", "--dir", dir); err == nil {
		t.Error("init over an existing file should fail")
	}
	if _, err := execute(t, "init", "other.html", "--dir", dir, "--force"); err != nil {
		t.Errorf("init --force failed: %v", err)
	}

	if _, err := execute(t, "init", "--dir", dir, "--yaml"); err != nil {
		t.Fatalf("init --yaml failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "surface.yaml")); err != nil {
		t.Errorf("surface.yaml not written: %v", err)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version", "--short")
	if err != nil {
		t.Fatal(err)
	}
	if out != version+"\n" {
		t.Errorf("version = %q", out)
	}
}

func newTestRouter(t *testing.T) (*httptest.Server, *surface.Surface) {
	t.Helper()
	doc, err := dom.ParseString(mixer)
	if err != nil {
		t.Fatal(err)
	}
	registry := prometheus.NewRegistry()
	s := surface.New(doc, surface.Options{
		Logger:  quietLogger(),
		Metrics: metrics.New(metrics.WithRegistry(registry)),
	})
	t.Cleanup(func() { s.Close() })

	srv := httptest.NewServer(newRouter(s, registry, quietLogger()))
	t.Cleanup(srv.Close)
	return srv, s
}

func request(t *testing.T, method, url, body string) (int, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(data)
}

func TestRouter(t *testing.T) {
	srv, _ := newTestRouter(t)

	status, body := request(t, http.MethodGet, srv.URL+"/healthz", "")
	if status != http.StatusOK || !strings.Contains(body, `"connected":false`) {
		t.Errorf("healthz = %d %s", status, body)
	}

	status, _ = request(t, http.MethodPost, srv.URL+"/emulate/volume", `"42"`)
	if status != http.StatusNoContent {
		t.Errorf("emulate = %d", status)
	}
	status, body = request(t, http.MethodGet, srv.URL+"/page", "")
	if status != http.StatusOK || !strings.Contains(body, `value="42"`) {
		t.Errorf("page = %d %s", status, body)
	}

	status, body = request(t, http.MethodPost, srv.URL+"/fire", `{"selector":"#vol","event":"change","value":"7"}`)
	if status != http.StatusOK || !strings.Contains(body, `"listeners":1`) {
		t.Errorf("fire = %d %s", status, body)
	}
	_, body = request(t, http.MethodGet, srv.URL+"/page", "")
	if !strings.Contains(body, `value="7"`) {
		t.Errorf("page after fire:\n%s", body)
	}

	status, body = request(t, http.MethodGet, srv.URL+"/channels", "")
	if status != http.StatusOK || !strings.Contains(body, `"channels":["volume","log","meter"]`) {
		t.Errorf("channels = %d %s", status, body)
	}

	status, body = request(t, http.MethodGet, srv.URL+"/metrics", "")
	if status != http.StatusOK || !strings.Contains(body, "surface_interactions_total") {
		t.Errorf("metrics = %d, missing interactions counter", status)
	}
}

func TestRouterErrors(t *testing.T) {
	srv, _ := newTestRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"emulate bad json", http.MethodPost, "/emulate/volume", `{`, http.StatusBadRequest},
		{"fire no selector", http.MethodPost, "/fire", `{"event":"change"}`, http.StatusBadRequest},
		{"fire no match", http.MethodPost, "/fire", `{"selector":"#nope","event":"change"}`, http.StatusNotFound},
		{"fire bad selector", http.MethodPost, "/fire", `{"selector":"[[","event":"change"}`, http.StatusBadRequest},
		{"wrong method", http.MethodGet, "/fire", "", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := request(t, tt.method, srv.URL+tt.path, tt.body)
			if status != tt.want {
				t.Errorf("status = %d, want %d (%s)", status, tt.want, body)
			}
		})
	}
}

func TestRouterClosedSurface(t *testing.T) {
	srv, s := newTestRouter(t)
	s.Close()
	status, _ := request(t, http.MethodGet, srv.URL+"/page", "")
	if status != http.StatusServiceUnavailable {
		t.Errorf("page after close = %d, want 503", status)
	}
}
