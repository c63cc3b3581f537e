package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/casualjim/codelens/provider"
	"github.com/joho/godotenv"
)

const (
	DriverMemory = "memory"
	DriverBolt   = "bolt"
	DriverSQLite = "sqlite"
	DriverNATS   = "nats"

	envPrefix = "CODELENS_"
)

// Config is the complete application configuration.
type Config struct {
	// Provider is the backend selected on start-up. Empty keeps whatever
	// selection the store holds.
	Provider string `toml:"provider"`
	// Stream selects streaming analysis by default.
	Stream   bool   `toml:"stream"`
	LogLevel string `toml:"log_level"`

	OpenAI BackendConfig `toml:"openai"`
	Gemini BackendConfig `toml:"gemini"`
	Store  StoreConfig   `toml:"store"`
	NATS   NATSConfig    `toml:"nats"`
}

type BackendConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
}

type StoreConfig struct {
	// Driver is one of memory, bolt, sqlite or nats.
	Driver string `toml:"driver"`
	// Path is the database file for the bolt and sqlite drivers.
	Path string `toml:"path"`
}

type NATSConfig struct {
	URL string `toml:"url"`
	// Bucket is the key-value bucket used by the nats store driver.
	Bucket string `toml:"bucket"`
	// Events publishes conversation events on NATS subjects.
	Events bool `toml:"events"`
}

// Dir returns the directory holding the configuration and local databases.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".codelens"
	}
	return filepath.Join(home, ".codelens")
}

// DefaultPath is the configuration file read when no path is given.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.toml")
}

func Default() *Config {
	return &Config{
		LogLevel: "info",
		Store: StoreConfig{
			Driver: DriverBolt,
			Path:   filepath.Join(Dir(), "codelens.db"),
		},
		NATS: NATSConfig{
			Bucket: "codelens",
		},
	}
}

// Load builds the configuration from the defaults, the TOML file at path,
// .env files and the environment, in that order, and validates the result.
// An empty path reads DefaultPath when it exists.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if err := cfg.LoadFile(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env file", slog.String("error", err.Error()))
	}
	cfg.ApplyEnv(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile decodes the TOML file at path over the current values.
func (c *Config) LoadFile(path string) error {
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		slog.Warn("ignoring unknown config keys", slog.String("path", path), slog.String("keys", strings.Join(keys, ", ")))
	}
	return nil
}

// ApplyEnv overrides values from environment variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	str := func(dst *string, names ...string) {
		for _, name := range names {
			if v, ok := lookup(name); ok && v != "" {
				*dst = v
				return
			}
		}
	}
	boolean := func(dst *bool, name string) {
		v, ok := lookup(name)
		if !ok || v == "" {
			return
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			slog.Warn("ignoring invalid boolean", slog.String("variable", name), slog.String("value", v))
			return
		}
		*dst = b
	}

	str(&c.Provider, envPrefix+"PROVIDER")
	boolean(&c.Stream, envPrefix+"STREAM")
	str(&c.LogLevel, envPrefix+"LOG_LEVEL")

	str(&c.OpenAI.APIKey, envPrefix+"OPENAI_API_KEY", "OPENAI_API_KEY")
	str(&c.OpenAI.BaseURL, envPrefix+"OPENAI_BASE_URL", "OPENAI_BASE_URL")
	str(&c.OpenAI.Model, envPrefix+"OPENAI_MODEL")
	str(&c.Gemini.APIKey, envPrefix+"GEMINI_API_KEY", "GEMINI_API_KEY")
	str(&c.Gemini.BaseURL, envPrefix+"GEMINI_BASE_URL", "GEMINI_API_BASE_URL")
	str(&c.Gemini.Model, envPrefix+"GEMINI_MODEL")

	str(&c.Store.Driver, envPrefix+"STORE_DRIVER")
	str(&c.Store.Path, envPrefix+"STORE_PATH")

	str(&c.NATS.URL, envPrefix+"NATS_URL", "NATS_URL")
	str(&c.NATS.Bucket, envPrefix+"NATS_BUCKET")
	boolean(&c.NATS.Events, envPrefix+"NATS_EVENTS")
}

// ValidationError reports an invalid configuration value.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate normalizes the configuration and reports every invalid value.
func (c *Config) Validate() error {
	var errs []error

	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Provider != "" {
		if _, err := provider.ParseKind(c.Provider); err != nil {
			errs = append(errs, ValidationError{"provider", fmt.Sprintf("must be one of %v", provider.Kinds())})
		}
	}

	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, ValidationError{"log_level", err.Error()})
	}

	for field, raw := range map[string]string{"openai.base_url": c.OpenAI.BaseURL, "gemini.base_url": c.Gemini.BaseURL, "nats.url": c.NATS.URL} {
		if raw == "" {
			continue
		}
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, ValidationError{field, fmt.Sprintf("invalid url %q", raw)})
		}
	}

	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	drivers := []string{DriverMemory, DriverBolt, DriverSQLite, DriverNATS}
	if !slices.Contains(drivers, c.Store.Driver) {
		errs = append(errs, ValidationError{"store.driver", fmt.Sprintf("must be one of %s", strings.Join(drivers, ", "))})
	}
	if (c.Store.Driver == DriverBolt || c.Store.Driver == DriverSQLite) && strings.TrimSpace(c.Store.Path) == "" {
		errs = append(errs, ValidationError{"store.path", "is required for the " + c.Store.Driver + " driver"})
	}
	if c.Store.Driver == DriverNATS && strings.TrimSpace(c.NATS.Bucket) == "" {
		errs = append(errs, ValidationError{"nats.bucket", "is required for the nats driver"})
	}

	return errors.Join(errs...)
}

// Credential returns the configured API key for kind.
func (c *Config) Credential(kind provider.Kind) string {
	switch kind {
	case provider.KindOpenAI:
		return c.OpenAI.APIKey
	case provider.KindGemini:
		return c.Gemini.APIKey
	default:
		return ""
	}
}

// ParseLevel converts a level name into a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}
