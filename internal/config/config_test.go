package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/surface/internal/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
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

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Transport.Path != "/updates" {
		t.Errorf("Transport.Path = %q, want %q", cfg.Transport.Path, "/updates")
	}
	if time.Duration(cfg.Transport.SubscribeDelay) != time.Second {
		t.Errorf("SubscribeDelay = %v, want 1s", cfg.Transport.SubscribeDelay)
	}
	if time.Duration(cfg.Transport.ReadTimeout) != 60*time.Second {
		t.Errorf("ReadTimeout = %v, want 1m0s", cfg.Transport.ReadTimeout)
	}
	if time.Duration(cfg.Transport.ReconnectDelay) != 5*time.Second {
		t.Errorf("ReconnectDelay = %v, want 5s", cfg.Transport.ReconnectDelay)
	}
	if cfg.Transport.Reconnect {
		t.Error("Reconnect should be off by default")
	}
	if cfg.HTTP.Addr != DefaultHTTPAddr {
		t.Errorf("HTTP.Addr = %q, want %q", cfg.HTTP.Addr, DefaultHTTPAddr)
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()

	// Test loading non-existent config
	_, err := Load(tmpDir)
	if errorCode(err) != "S001" {
		t.Fatalf("Load(empty dir) error = %v, want S001", err)
	}

	writeFile(t, tmpDir, ConfigFileName, `{
  "page": "panel.html",
  "url": "https://mixer.local/panel",
  "debug": true,
  "transport": {
    "subscribeDelay": "250ms",
    "reconnect": true,
    "reconnectDelay": 2000
  },
  "http": {"addr": ":8081"}
}
`)

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Page != "panel.html" {
		t.Errorf("Page = %q", cfg.Page)
	}
	if !cfg.Debug {
		t.Error("Debug should be true")
	}
	if time.Duration(cfg.Transport.SubscribeDelay) != 250*time.Millisecond {
		t.Errorf("SubscribeDelay = %v, want 250ms", cfg.Transport.SubscribeDelay)
	}
	if time.Duration(cfg.Transport.ReconnectDelay) != 2*time.Second {
		t.Errorf("ReconnectDelay = %v, want 2s", cfg.Transport.ReconnectDelay)
	}
	// Unset fields keep their defaults.
	if cfg.Transport.Path != "/updates" {
		t.Errorf("Transport.Path = %q, want default", cfg.Transport.Path)
	}
	if time.Duration(cfg.Transport.WriteTimeout) != 10*time.Second {
		t.Errorf("WriteTimeout = %v, want default 10s", cfg.Transport.WriteTimeout)
	}
	if cfg.HTTP.Addr != ":8081" {
		t.Errorf("HTTP.Addr = %q", cfg.HTTP.Addr)
	}
	if cfg.Path() != filepath.Join(tmpDir, ConfigFileName) {
		t.Errorf("Path() = %q", cfg.Path())
	}
	if cfg.Dir() != tmpDir {
		t.Errorf("Dir() = %q, want %q", cfg.Dir(), tmpDir)
	}
}

func TestLoadYAML(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, tmpDir, "surface.yaml", `page: s3://panels/mixer.html
autoRescan: true
transport:
  readTimeout: 0s
  reconnect: true
s3:
  endpoint: http://localhost:9000
  usePathStyle: true
`)

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Page != "s3://panels/mixer.html" {
		t.Errorf("Page = %q", cfg.Page)
	}
	if !cfg.AutoRescan {
		t.Error("AutoRescan should be true")
	}
	if cfg.Transport.ReadTimeout != 0 {
		t.Errorf("ReadTimeout = %v, want 0", cfg.Transport.ReadTimeout)
	}
	if cfg.S3.Region != DefaultS3Region {
		t.Errorf("S3.Region = %q, want default for s3 pages", cfg.S3.Region)
	}
	if !cfg.S3.UsePathStyle || cfg.S3.Endpoint != "http://localhost:9000" {
		t.Errorf("S3 = %+v", cfg.S3)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestLoadPrefersJSON(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, tmpDir, ConfigFileName, `{"page": "a.html"}`)
	writeFile(t, tmpDir, "surface.yml", "page: b.html\n")

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Page != "a.html" {
		t.Errorf("Page = %q, want surface.json to win", cfg.Page)
	}
}

func TestLoadSyntaxError(t *testing.T) {
	tmpDir := t.TempDir()
	path := writeFile(t, tmpDir, ConfigFileName, "{\n  \"page\": \"panel.html\",\n  \"debug\": true,\n}\n")

	_, err := LoadFile(path)
	var se *errors.SurfaceError
	if !stderrors.As(err, &se) {
		t.Fatalf("LoadFile error = %v, want SurfaceError", err)
	}
	if se.Code != "S002" {
		t.Errorf("Code = %q, want S002", se.Code)
	}
	if se.Location == nil || se.Location.Line != 4 {
		t.Errorf("Location = %v, want line 4", se.Location)
	}
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		content  string
		wantCode string
	}{
		{
			name:     "wrong type",
			file:     ConfigFileName,
			content:  `{"debug": "yes"}`,
			wantCode: "S003",
		},
		{
			name:     "unknown field",
			file:     ConfigFileName,
			content:  `{"pgae": "panel.html"}`,
			wantCode: "S003",
		},
		{
			name:     "bad duration",
			file:     ConfigFileName,
			content:  `{"transport": {"readTimeout": "soon"}}`,
			wantCode: "S003",
		},
		{
			name:     "bad yaml duration",
			file:     "surface.yaml",
			content:  "transport:\n  readTimeout: soon\n",
			wantCode: "S002",
		},
		{
			name:     "yaml syntax",
			file:     "surface.yaml",
			content:  "page: [panel.html\n",
			wantCode: "S002",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), tt.file, tt.content)
			_, err := LoadFile(path)
			if got := errorCode(err); got != tt.wantCode {
				t.Errorf("LoadFile error = %v (code %q), want %s", err, got, tt.wantCode)
			}
		})
	}
}

func TestYAMLErrorLine(t *testing.T) {
	path := writeFile(t, t.TempDir(), "surface.yaml", "page: panel.html\ntransport:\n  readTimeout: soon\n")
	_, err := LoadFile(path)
	var se *errors.SurfaceError
	if !stderrors.As(err, &se) {
		t.Fatalf("error = %v", err)
	}
	if se.Location == nil || se.Location.Line != 3 {
		t.Errorf("Location = %v, want line 3", se.Location)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		wantCode string
	}{
		{"valid", func(c *Config) {}, ""},
		{"no page", func(c *Config) { c.Page = "" }, "S005"},
		{"negative delay", func(c *Config) { c.Transport.SubscribeDelay = -1 }, "S003"},
		{"reconnect without delay", func(c *Config) {
			c.Transport.Reconnect = true
			c.Transport.ReconnectDelay = 0
		}, "S003"},
		{"key without secret", func(c *Config) { c.S3.AccessKeyID = "AKIA" }, "S003"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			cfg.Page = "panel.html"
			tt.mutate(cfg)
			if got := errorCode(cfg.Validate()); got != tt.wantCode {
				t.Errorf("Validate() code = %q, want %q", got, tt.wantCode)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()

	for _, name := range []string{"out.json", "out.yaml"} {
		t.Run(name, func(t *testing.T) {
			cfg := New()
			cfg.Page = "panel.html"
			cfg.Transport.Reconnect = true
			cfg.Transport.SubscribeDelay = Duration(1500 * time.Millisecond)

			path := filepath.Join(tmpDir, name)
			if err := cfg.SaveTo(path); err != nil {
				t.Fatalf("SaveTo error: %v", err)
			}
			data, _ := os.ReadFile(path)
			if !strings.Contains(string(data), "1.5s") {
				t.Errorf("saved file does not contain duration string:\n%s", data)
			}

			loaded, err := LoadFile(path)
			if err != nil {
				t.Fatalf("LoadFile error: %v", err)
			}
			if loaded.Page != "panel.html" || !loaded.Transport.Reconnect {
				t.Errorf("loaded = %+v", loaded)
			}
			if loaded.Transport.SubscribeDelay != cfg.Transport.SubscribeDelay {
				t.Errorf("SubscribeDelay = %v, want %v", loaded.Transport.SubscribeDelay, cfg.Transport.SubscribeDelay)
			}
		})
	}
}

func TestSaveWithoutPath(t *testing.T) {
	if err := New().Save(); err == nil {
		t.Error("Save() without a path should fail")
	}
}

func TestPageSourceAndURL(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, tmpDir, ConfigFileName, `{"page": "pages/panel.html"}`)
	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatal(err)
	}

	if got, want := cfg.PageSource(), filepath.Join(tmpDir, "pages", "panel.html"); got != want {
		t.Errorf("PageSource() = %q, want %q", got, want)
	}
	if cfg.PageURL() != "" {
		t.Errorf("PageURL() = %q, want empty for a file page", cfg.PageURL())
	}

	cfg.Page = "http://mixer.local/panel"
	if cfg.PageSource() != "http://mixer.local/panel" {
		t.Errorf("PageSource() = %q", cfg.PageSource())
	}
	if cfg.PageURL() != "http://mixer.local/panel" {
		t.Errorf("PageURL() = %q", cfg.PageURL())
	}

	cfg.URL = "https://other.local/"
	if cfg.PageURL() != "https://other.local/" {
		t.Errorf("PageURL() = %q, want explicit url", cfg.PageURL())
	}
}

func TestTransportConfig(t *testing.T) {
	cfg := New()
	cfg.Transport.Path = "/ws"
	cfg.Transport.ReadTimeout = 0
	cfg.Transport.Reconnect = true

	tc := cfg.TransportConfig()
	if tc.Path != "/ws" || tc.ReadTimeout != 0 || !tc.Reconnect {
		t.Errorf("TransportConfig() = %+v", tc)
	}
	if tc.SubscribeDelay != time.Second {
		t.Errorf("SubscribeDelay = %v, want 1s", tc.SubscribeDelay)
	}
}

func TestFindProjectRoot(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, tmpDir, "surface.yml", "page: panel.html\n")

	nested := filepath.Join(tmpDir, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	root, err := FindProjectRoot(nested)
	if err != nil {
		t.Fatalf("FindProjectRoot error: %v", err)
	}
	want, _ := filepath.Abs(tmpDir)
	if root != want {
		t.Errorf("root = %q, want %q", root, want)
	}

	if !Exists(tmpDir) {
		t.Error("Exists should find surface.yml")
	}
	if Exists(nested) {
		t.Error("Exists should not find a config in nested dir")
	}
}
