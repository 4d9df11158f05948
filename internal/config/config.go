package config

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vango-dev/liveroute/internal/errors"
	"github.com/vango-dev/liveroute/pkg/router"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "liveroute.json"

	// DefaultPort is the default dev server port.
	DefaultPort = 4000

	// DefaultHost is the default dev server host.
	DefaultHost = "localhost"

	// DefaultMetricsPath is the default Prometheus endpoint.
	DefaultMetricsPath = "/metrics"

	// DefaultNamespace is the default metrics namespace.
	DefaultNamespace = "liveroute"

	// DefaultMaxRedirects is the default redirect cap.
	DefaultMaxRedirects = 8
)

// Config represents the complete liveroute.json configuration.
type Config struct {
	// Name is the project name.
	Name string `json:"name,omitempty"`

	// Scenario is the scenario file used when a command gets none.
	Scenario string `json:"scenario,omitempty"`

	// Serve contains dev server configuration.
	Serve ServeConfig `json:"serve,omitempty"`

	// Metrics contains Prometheus configuration.
	Metrics MetricsConfig `json:"metrics,omitempty"`

	// Router contains router options.
	Router RouterConfig `json:"router,omitempty"`

	// Log contains logging configuration.
	Log LogConfig `json:"log,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServeConfig contains dev server settings.
type ServeConfig struct {
	// Host is the host to bind to.
	Host string `json:"host,omitempty"`

	// Port is the port to run the dev server on.
	Port int `json:"port,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	// Enabled exposes router metrics on the dev server.
	Enabled bool `json:"enabled,omitempty"`

	// Namespace is the metrics namespace.
	Namespace string `json:"namespace,omitempty"`

	// Path is the URL path of the metrics endpoint.
	Path string `json:"path,omitempty"`
}

// RouterConfig contains router options.
type RouterConfig struct {
	// Teardown is the teardown failure policy: "log" or "propagate".
	Teardown string `json:"teardown,omitempty"`

	// MaxRedirects caps consecutive redirects.
	MaxRedirects int `json:"maxRedirects,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of "debug", "info", "warn" or "error".
	Level string `json:"level,omitempty"`

	// Format is "text" or "json".
	Format string `json:"format,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Serve: ServeConfig{
			Host: DefaultHost,
			Port: DefaultPort,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: DefaultNamespace,
			Path:      DefaultMetricsPath,
		},
		Router: RouterConfig{
			Teardown:     "log",
			MaxRedirects: DefaultMaxRedirects,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for liveroute.json in the directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.CodeInvalidConfig).
				WithPath(path).
				WithDetail("No " + ConfigFileName + " found in " + filepath.Dir(path)).
				WithSuggestion("Create " + ConfigFileName + " or pass --config")
		}
		return nil, errors.New(errors.CodeInvalidConfig).WithPath(path).Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New(errors.CodeInvalidConfig).
			WithPath(path).
			WithDetail("Failed to parse " + ConfigFileName + ": " + err.Error()).
			WithSuggestion("Check that " + ConfigFileName + " is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New(errors.CodeInvalidConfig).Wrap(err)
	}

	// Add newline at end of file
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New(errors.CodeInvalidConfig).WithPath(path).Wrap(err)
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
	if c.Serve.Host == "" {
		c.Serve.Host = DefaultHost
	}
	if c.Serve.Port == 0 {
		c.Serve.Port = DefaultPort
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
	if c.Router.Teardown == "" {
		c.Router.Teardown = "log"
	}
	if c.Router.MaxRedirects == 0 {
		c.Router.MaxRedirects = DefaultMaxRedirects
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	invalid := func(detail string) *errors.Error {
		return errors.New(errors.CodeInvalidConfig).WithPath(c.configPath).WithDetail(detail)
	}

	if c.Serve.Port < 0 || c.Serve.Port > 65535 {
		return invalid("Port must be between 0 and 65535")
	}
	if _, ok := router.ParseTeardownPolicy(c.Router.Teardown); !ok {
		return invalid("Unknown teardown policy " + strconv.Quote(c.Router.Teardown)).
			WithSuggestion(`Use "log" or "propagate"`)
	}
	if c.Router.MaxRedirects < 0 {
		return invalid("maxRedirects must not be negative")
	}
	if _, ok := parseLevel(c.Log.Level); !ok {
		return invalid("Unknown log level " + strconv.Quote(c.Log.Level)).
			WithSuggestion(`Use "debug", "info", "warn" or "error"`)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return invalid("Unknown log format " + strconv.Quote(c.Log.Format))
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return invalid("Metrics path must start with /")
	}
	return nil
}

// ServeAddress returns the address string for the dev server.
func (c *Config) ServeAddress() string {
	return c.Serve.Host + ":" + strconv.Itoa(c.Serve.Port)
}

// ScenarioPath returns the absolute path of the default scenario, or ""
// if none is configured.
func (c *Config) ScenarioPath() string {
	if c.Scenario == "" {
		return ""
	}
	if filepath.IsAbs(c.Scenario) {
		return c.Scenario
	}
	return filepath.Join(c.Dir(), c.Scenario)
}

// RouterOptions returns the router options described by the configuration.
func (c *Config) RouterOptions() []router.Option {
	policy, _ := router.ParseTeardownPolicy(c.Router.Teardown)
	return []router.Option{
		router.WithTeardownPolicy(policy),
		router.WithMaxRedirects(c.Router.MaxRedirects),
	}
}

// Logger returns a slog logger writing to w at the configured level and
// format.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(c.Log.Level)
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, true
	case "", "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing liveroute.json, or an error if not found.
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
			return "", errors.New(errors.CodeInvalidConfig).
				WithDetail("No " + ConfigFileName + " found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working directory,
// falling back to defaults when no project root is found.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return New(), nil
	}

	return Load(root)
}
