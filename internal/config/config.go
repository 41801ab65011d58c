package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Env is the named-value accessor modules read their host settings from.
type Env interface {
	Lookup(key string) (string, bool)
}

// OSEnv reads from the process environment.
type OSEnv struct{}

func (OSEnv) Lookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

// MapEnv is a fixed set of values, mostly useful in tests.
type MapEnv map[string]string

func (m MapEnv) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

type Config struct {
	AllskyHome string
	AllskyTmp  string
	// Binning is the AS_BIN divisor applied to explicit ROI coordinates.
	Binning      int
	CurrentImage string

	LogLevel  string
	LogFormat string

	LastRunStore string // "memory" | "sqlite"
	LastRunDB    string

	HTTPTimeout       time.Duration
	ImageFetchTimeout time.Duration

	AzureAccount string
	AzureKey     string
}

// ExtraDir is where modules publish their key/value payloads.
func (c *Config) ExtraDir() string {
	return filepath.Join(c.AllskyTmp, "extra")
}

// DebugDir is the root of the per-module debug image folders.
func (c *Config) DebugDir() string {
	return filepath.Join(c.AllskyTmp, "debug")
}

// OverlayImagesDir holds user supplied overlay assets such as masks.
func (c *Config) OverlayImagesDir() string {
	return filepath.Join(c.AllskyHome, "html", "overlay", "images")
}

// LoadEnvFile loads an optional dotenv file into the process environment.
// A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// Load builds the configuration from env with defaults.
func Load(env Env) (*Config, error) {
	home := getEnvOrDefault(env, "ALLSKY_HOME", "")
	tmpDefault := ""
	if home != "" {
		tmpDefault = filepath.Join(home, "tmp")
	}
	tmp := getEnvOrDefault(env, "ALLSKY_TMP", tmpDefault)
	if tmp == "" {
		tmp = filepath.Join(os.TempDir(), "allsky")
	}

	cfg := &Config{
		AllskyHome:        home,
		AllskyTmp:         tmp,
		Binning:           parseBinning(env),
		CurrentImage:      getEnvOrDefault(env, "CURRENT_IMAGE", filepath.Join(tmp, "image.jpg")),
		LogLevel:          strings.ToLower(getEnvOrDefault(env, "LOG_LEVEL", "info")),
		LogFormat:         strings.ToLower(getEnvOrDefault(env, "LOG_FORMAT", "json")),
		LastRunStore:      strings.ToLower(getEnvOrDefault(env, "LASTRUN_STORE", "sqlite")),
		LastRunDB:         getEnvOrDefault(env, "LASTRUN_DB", filepath.Join(tmp, "modules.db")),
		HTTPTimeout:       parseDurationOrDefault(env, "HTTP_TIMEOUT", 15*time.Second),
		ImageFetchTimeout: parseDurationOrDefault(env, "IMAGE_FETCH_TIMEOUT", 15*time.Second),
		AzureAccount:      getEnvOrDefault(env, "AZURE_STORAGE_ACCOUNT", ""),
		AzureKey:          getEnvOrDefault(env, "AZURE_STORAGE_KEY", ""),
	}

	switch cfg.LastRunStore {
	case "memory", "sqlite":
	default:
		return nil, fmt.Errorf("invalid LASTRUN_STORE: %q", cfg.LastRunStore)
	}
	switch cfg.LogFormat {
	case "json", "text":
	default:
		return nil, fmt.Errorf("invalid LOG_FORMAT: %q", cfg.LogFormat)
	}
	if (cfg.AzureAccount == "") != (cfg.AzureKey == "") {
		return nil, fmt.Errorf("AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_KEY must be set together")
	}
	return cfg, nil
}

// parseBinning never fails: an unset, garbled or non-positive AS_BIN means no binning.
func parseBinning(env Env) int {
	v, ok := env.Lookup("AS_BIN")
	if !ok {
		return 1
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func getEnvOrDefault(env Env, key, defaultValue string) string {
	if value, ok := env.Lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

func parseDurationOrDefault(env Env, key string, defaultValue time.Duration) time.Duration {
	if value, ok := env.Lookup(key); ok && value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}
