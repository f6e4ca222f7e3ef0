package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/councilhq/council/internal/provider"
)

// Config holds all configuration for the council server.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Encryption EncryptionConfig
	Pipeline   PipelineConfig
	SystemKeys SystemKeys
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

// EncryptionConfig carries the key material used to encrypt stored user API
// keys. Key is base64-encoded and must decode to exactly 32 bytes.
type EncryptionConfig struct {
	Key string
}

type PipelineConfig struct {
	BaseURL string
	Timeout time.Duration
}

// SystemKeys maps provider name to the process-wide fallback key.
// Providers without a configured env var are absent from the map.
type SystemKeys map[string]string

// Get returns the system key for a provider, if one is configured.
func (k SystemKeys) Get(providerName string) (string, bool) {
	key, ok := k[providerName]
	return key, ok
}

// Providers returns the names of providers that have a system key.
func (k SystemKeys) Providers() []string {
	names := make([]string, 0, len(k))
	for name := range k {
		names = append(names, name)
	}
	return names
}

// Load reads configuration from environment variables and returns a validated
// Config. Returns an error with a descriptive message if any required value
// is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("COUNCIL_PORT", 8080),
			Env:  envString("COUNCIL_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Encryption: EncryptionConfig{
			Key: os.Getenv("ENCRYPTION_KEY"),
		},
		Pipeline: PipelineConfig{
			BaseURL: os.Getenv("PIPELINE_BASE_URL"),
			Timeout: envDurationSecs("PIPELINE_TIMEOUT_SECS", 120*time.Second),
		},
		SystemKeys: loadSystemKeys(),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadSystemKeys reads one optional env var per catalog provider.
func loadSystemKeys() SystemKeys {
	keys := make(SystemKeys)
	for _, p := range provider.All() {
		if v := os.Getenv(p.KeyEnv); v != "" {
			keys[p.Name] = v
		}
	}
	return keys
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Encryption.Key == "" {
		return fmt.Errorf("ENCRYPTION_KEY is required")
	}
	raw, err := base64.StdEncoding.DecodeString(c.Encryption.Key)
	if err != nil {
		return fmt.Errorf("ENCRYPTION_KEY must be base64-encoded: %v", err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("ENCRYPTION_KEY must decode to 32 bytes, got %d", len(raw))
	}

	if c.Pipeline.BaseURL == "" {
		return fmt.Errorf("PIPELINE_BASE_URL is required")
	}
	if !strings.HasPrefix(c.Pipeline.BaseURL, "http://") && !strings.HasPrefix(c.Pipeline.BaseURL, "https://") {
		return fmt.Errorf("PIPELINE_BASE_URL must start with http:// or https://, got %q", c.Pipeline.BaseURL)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}
