package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// envConfigKey names the passphrase used to decrypt "enc:" values.
const envConfigKey = "STORYWEAVE_CONFIG_KEY"

// Config is the top-level application configuration.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Library LibraryConfig `yaml:"library"`
	UI      UIConfig      `yaml:"ui"`
	Logger  LoggerConfig  `yaml:"logger"`
	Tracer  TracerConfig  `yaml:"tracer"`
}

// APIConfig holds backend connection settings.
type APIConfig struct {
	BaseURL        string `yaml:"base_url"`
	Token          string `yaml:"token,omitempty"` // "enc:..." values are decrypted at load
	Timeout        string `yaml:"timeout"`         // duration string, per-request timeout for CRUD calls
	RequestsPerMin int    `yaml:"requests_per_min"`
	Burst          int    `yaml:"burst"`
}

// RequestTimeout returns the parsed per-request timeout.
func (c APIConfig) RequestTimeout() time.Duration {
	if d, err := time.ParseDuration(c.Timeout); err == nil && d > 0 {
		return d
	}
	return 30 * time.Second
}

// LibraryConfig holds local story cache settings.
type LibraryConfig struct {
	Path string `yaml:"path"` // sqlite file path
}

// UIConfig holds terminal UI settings.
type UIConfig struct {
	// ResetDelay is how long the complete/error phase stays visible before
	// the session auto-resets to idle. Duration string.
	ResetDelay string `yaml:"reset_delay"`
}

// PhaseResetDelay returns the parsed auto-reset delay.
func (c UIConfig) PhaseResetDelay() time.Duration {
	if d, err := time.ParseDuration(c.ResetDelay); err == nil && d > 0 {
		return d
	}
	return 4 * time.Second
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
	Output string `yaml:"output"` // stdout, stderr, or file path
}

// TracerConfig holds OpenTelemetry tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // stdout, noop
}

// Defaults returns a config populated with working defaults.
func Defaults() *Config {
	return &Config{
		API: APIConfig{
			Timeout:        "30s",
			RequestsPerMin: 120,
			Burst:          10,
		},
		Library: LibraryConfig{
			Path: filepath.Join(defaultDataDir(), "library.db"),
		},
		UI: UIConfig{
			ResetDelay: "4s",
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".storyweave"
	}
	return filepath.Join(home, ".storyweave")
}

// Load reads the YAML config at path, applies defaults and env overrides,
// decrypts "enc:" secrets when the passphrase env var is set, and validates.
// A missing file is not an error; defaults plus env overrides are used.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// fall through to env overrides
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if passphrase := os.Getenv(envConfigKey); passphrase != "" {
		if err := decryptSecrets(cfg, passphrase); err != nil {
			return nil, fmt.Errorf("decrypt secrets: %w", err)
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides lets the environment win over file values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("STORYWEAVE_API_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("STORYWEAVE_API_TOKEN"); v != "" {
		cfg.API.Token = v
	}
	if v := os.Getenv("STORYWEAVE_LOG_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
}

// decryptSecrets replaces "enc:" values with their decrypted plaintext.
func decryptSecrets(cfg *Config, passphrase string) error {
	if strings.HasPrefix(cfg.API.Token, "enc:") {
		plain, err := DecryptValue(strings.TrimPrefix(cfg.API.Token, "enc:"), passphrase)
		if err != nil {
			return fmt.Errorf("api token: %w", err)
		}
		cfg.API.Token = plain
	}
	return nil
}

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness. It returns a
// *ValidationError listing every problem found.
func Validate(cfg *Config) error {
	ve := &ValidationError{}

	if cfg.API.BaseURL == "" {
		ve.Add("api.base_url is required (or set STORYWEAVE_API_URL)")
	} else if !strings.HasPrefix(cfg.API.BaseURL, "http://") && !strings.HasPrefix(cfg.API.BaseURL, "https://") {
		ve.Add("api.base_url must start with http:// or https://, got %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != "" {
		if d, err := time.ParseDuration(cfg.API.Timeout); err != nil || d <= 0 {
			ve.Add("api.timeout must be a positive duration, got %q", cfg.API.Timeout)
		}
	}
	if cfg.API.RequestsPerMin <= 0 {
		ve.Add("api.requests_per_min must be positive, got %d", cfg.API.RequestsPerMin)
	}

	switch strings.ToLower(cfg.Logger.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		ve.Add("logger.level must be one of debug/info/warn/error, got %q", cfg.Logger.Level)
	}
	switch strings.ToLower(cfg.Logger.Format) {
	case "text", "json":
	default:
		ve.Add("logger.format must be text or json, got %q", cfg.Logger.Format)
	}

	switch cfg.Tracer.Exporter {
	case "stdout", "noop", "":
	default:
		ve.Add("tracer.exporter must be stdout or noop, got %q", cfg.Tracer.Exporter)
	}

	if cfg.UI.ResetDelay != "" {
		if d, err := time.ParseDuration(cfg.UI.ResetDelay); err != nil || d <= 0 {
			ve.Add("ui.reset_delay must be a positive duration, got %q", cfg.UI.ResetDelay)
		}
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}
