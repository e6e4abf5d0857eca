package config

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/surface/internal/errors"
	"github.com/vango-dev/surface/pkg/transport"
)

const (
	// ConfigFileName is the name of the JSON configuration file.
	ConfigFileName = "surface.json"

	// DefaultHTTPAddr is the default address of the side-port HTTP server.
	DefaultHTTPAddr = "localhost:9090"

	// DefaultS3Region is used for s3:// pages when no region is configured.
	DefaultS3Region = "us-east-1"
)

// FileNames lists the config file names Load looks for, in order.
var FileNames = []string{ConfigFileName, "surface.yaml", "surface.yml"}

// Config represents a surface.json (or surface.yaml) file.
type Config struct {
	// Page is the control page: a file path, an http(s) URL or an
	// s3://bucket/key object.
	Page string `json:"page,omitempty" yaml:"page,omitempty"`

	// URL is the address the page is served from. The update endpoint is
	// derived from it. Defaults to Page when Page is an http(s) URL.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	Debug      bool `json:"debug,omitempty" yaml:"debug,omitempty"`
	AutoRescan bool `json:"autoRescan,omitempty" yaml:"autoRescan,omitempty"`

	Transport TransportConfig `json:"transport" yaml:"transport"`
	HTTP      HTTPConfig      `json:"http" yaml:"http"`
	S3        S3Config        `json:"s3,omitempty" yaml:"s3,omitempty"`
	Metrics   MetricsConfig   `json:"metrics,omitempty" yaml:"metrics,omitempty"`

	// Internal: path to config file (not serialized)
	configPath string
}

// TransportConfig configures the update connection.
type TransportConfig struct {
	// Path is the endpoint path joined to the page URL.
	Path           string   `json:"path" yaml:"path"`
	SubscribeDelay Duration `json:"subscribeDelay" yaml:"subscribeDelay"`
	ReadTimeout    Duration `json:"readTimeout" yaml:"readTimeout"`
	WriteTimeout   Duration `json:"writeTimeout" yaml:"writeTimeout"`
	Reconnect      bool     `json:"reconnect,omitempty" yaml:"reconnect,omitempty"`
	ReconnectDelay Duration `json:"reconnectDelay" yaml:"reconnectDelay"`
}

// HTTPConfig configures the side-port server of `surface run`.
type HTTPConfig struct {
	Addr string `json:"addr" yaml:"addr"`
}

// S3Config configures access to s3:// pages. Empty keys mean anonymous
// access.
type S3Config struct {
	Region          string `json:"region,omitempty" yaml:"region,omitempty"`
	Endpoint        string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	UsePathStyle    bool   `json:"usePathStyle,omitempty" yaml:"usePathStyle,omitempty"`
	AccessKeyID     string `json:"accessKeyId,omitempty" yaml:"accessKeyId,omitempty"`
	SecretAccessKey string `json:"secretAccessKey,omitempty" yaml:"secretAccessKey,omitempty"`
	SessionToken    string `json:"sessionToken,omitempty" yaml:"sessionToken,omitempty"`
}

// MetricsConfig configures the Prometheus collector.
type MetricsConfig struct {
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
}

// New creates a configuration with default values.
func New() *Config {
	def := transport.DefaultConfig()
	return &Config{
		Transport: TransportConfig{
			Path:           def.Path,
			SubscribeDelay: Duration(def.SubscribeDelay),
			ReadTimeout:    Duration(def.ReadTimeout),
			WriteTimeout:   Duration(def.WriteTimeout),
			Reconnect:      def.Reconnect,
			ReconnectDelay: Duration(def.ReconnectDelay),
		},
		HTTP: HTTPConfig{
			Addr: DefaultHTTPAddr,
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for surface.json, then surface.yaml and surface.yml.
func Load(dir string) (*Config, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path. Files ending
// in .yaml or .yml are read as YAML, anything else as JSON.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("S001").
				WithDetail("No " + filepath.Base(path) + " found in " + filepath.Dir(path))
		}
		return nil, errors.New("S004").Wrap(err)
	}

	cfg := New()
	if isYAML(path) {
		err = decodeYAML(path, data, cfg)
	} else {
		err = decodeJSON(path, data, cfg)
	}
	if err != nil {
		return nil, err
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

func decodeJSON(path string, data []byte, cfg *Config) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	err := dec.Decode(cfg)
	if err == nil {
		return nil
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case stderrors.As(err, &syntaxErr):
		line, col := errors.LineColumn(data, syntaxErr.Offset)
		return errors.New("S002").
			WithLocation(path, line, col).
			WithDetail(syntaxErr.Error()).
			WithSuggestion("Check that " + filepath.Base(path) + " is valid JSON")
	case stderrors.As(err, &typeErr):
		line, col := errors.LineColumn(data, typeErr.Offset)
		return errors.New("S003").
			WithLocation(path, line, col).
			WithDetail(fmt.Sprintf("%s must be a %s, not a %s", typeErr.Field, typeErr.Type, typeErr.Value))
	}
	return errors.New("S003").WithLocation(path, 1, 0).WithDetail(err.Error())
}

func decodeYAML(path string, data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	err := dec.Decode(cfg)
	if err == nil || err == io.EOF {
		return nil
	}

	se := errors.New("S002").
		WithDetail(err.Error()).
		WithSuggestion("Check that " + filepath.Base(path) + " is valid YAML")
	if line := yamlLine(err.Error()); line > 0 {
		se.WithLocation(path, line, 0)
	}
	return se
}

// yamlLine extracts the first "line N" reference from a yaml.v3 error.
func yamlLine(msg string) int {
	i := strings.Index(msg, "line ")
	if i < 0 {
		return 0
	}
	var line int
	if _, err := fmt.Sscanf(msg[i:], "line %d", &line); err != nil {
		return 0
	}
	return line
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path, as YAML or JSON
// depending on the extension.
func (c *Config) SaveTo(path string) error {
	var data []byte
	var err error
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
		// Add newline at end of file
		data = append(data, '\n')
	}
	if err != nil {
		return errors.New("S004").Wrap(err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("S004").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Transport.Path == "" {
		c.Transport.Path = transport.DefaultConfig().Path
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = DefaultHTTPAddr
	}
	if c.S3.Region == "" && strings.HasPrefix(c.Page, "s3://") {
		c.S3.Region = DefaultS3Region
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Page == "" {
		return errors.New("S005")
	}
	durations := []struct {
		name string
		d    Duration
	}{
		{"transport.subscribeDelay", c.Transport.SubscribeDelay},
		{"transport.readTimeout", c.Transport.ReadTimeout},
		{"transport.writeTimeout", c.Transport.WriteTimeout},
		{"transport.reconnectDelay", c.Transport.ReconnectDelay},
	}
	for _, f := range durations {
		if f.d < 0 {
			return errors.New("S003").
				WithDetail(f.name + " must not be negative, got " + f.d.String())
		}
	}
	if c.Transport.Reconnect && c.Transport.ReconnectDelay == 0 {
		return errors.New("S003").
			WithDetail("transport.reconnectDelay must be set when reconnect is on").
			WithSuggestion(`Set "reconnectDelay": "5s"`)
	}
	if c.S3.AccessKeyID != "" && c.S3.SecretAccessKey == "" {
		return errors.New("S003").
			WithDetail("s3.secretAccessKey is required with s3.accessKeyId")
	}
	return nil
}

// PageSource returns Page with relative file paths resolved against the
// config file's directory.
func (c *Config) PageSource() string {
	p := c.Page
	if p == "" || strings.Contains(p, "://") || filepath.IsAbs(p) || c.configPath == "" {
		return p
	}
	return filepath.Join(c.Dir(), p)
}

// PageURL returns the URL the update endpoint is derived from: URL when
// set, otherwise Page if it is an http(s) URL.
func (c *Config) PageURL() string {
	if c.URL != "" {
		return c.URL
	}
	if strings.HasPrefix(c.Page, "http://") || strings.HasPrefix(c.Page, "https://") {
		return c.Page
	}
	return ""
}

// TransportConfig converts the transport section for transport.New.
func (c *Config) TransportConfig() *transport.Config {
	tc := transport.DefaultConfig()
	tc.Path = c.Transport.Path
	tc.SubscribeDelay = time.Duration(c.Transport.SubscribeDelay)
	tc.ReadTimeout = time.Duration(c.Transport.ReadTimeout)
	tc.WriteTimeout = time.Duration(c.Transport.WriteTimeout)
	tc.Reconnect = c.Transport.Reconnect
	tc.ReconnectDelay = time.Duration(c.Transport.ReconnectDelay)
	return tc
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	for _, name := range FileNames {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing a surface config, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("S001").
				WithDetail("No surface.json or surface.yaml found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working directory.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}

	return Load(root)
}
