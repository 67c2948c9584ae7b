// Package config loads the archguide configuration: a YAML file, then
// ARCHGUIDE_* environment overrides. Command-line flags are applied on top by
// the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "ARCHGUIDE_"

// Store backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// Config is the full process configuration.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Oracle  OracleConfig  `yaml:"oracle"`
	Store   StoreConfig   `yaml:"store"`
	Redis   RedisConfig   `yaml:"redis"`
	Server  ServerConfig  `yaml:"server"`
	Tactics TacticsConfig `yaml:"tactics"`

	// CorpusPath points at a YAML passage corpus for the in-memory retriever.
	CorpusPath string `yaml:"corpus_path"`

	// MaxInputSize caps a single user message, in bytes.
	MaxInputSize int `yaml:"max_input_size"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// OracleConfig selects the generation model.
type OracleConfig struct {
	Model string `yaml:"model"`

	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `yaml:"api_key_env"`

	Temperature float32 `yaml:"temperature"`
}

// APIKey resolves the key from the configured environment variable.
func (o OracleConfig) APIKey() string {
	return os.Getenv(o.APIKeyEnv)
}

// StoreConfig selects where sessions are kept.
type StoreConfig struct {
	Backend string `yaml:"backend"`
	Dir     string `yaml:"dir"`

	// EncryptionKey enables AES-GCM encryption at rest when set (32 bytes).
	EncryptionKey string `yaml:"encryption_key"`

	// MaskPII masks e-mail addresses and phone numbers before saving.
	// PIIPatterns replaces the default patterns when set.
	MaskPII     bool     `yaml:"mask_pii"`
	PIIPatterns []string `yaml:"pii_patterns"`
}

// RedisConfig configures the redis store and lock.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
	LockTTL  time.Duration `yaml:"lock_ttl"`
}

// ServerConfig configures the HTTP surfaces.
type ServerConfig struct {
	Port        int `yaml:"port"`
	MetricsPort int `yaml:"metrics_port"`
}

// TacticsConfig configures the tactic array.
type TacticsConfig struct {
	K int `yaml:"k"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Log:          LogConfig{Level: "info", Format: "text"},
		Oracle:       OracleConfig{Model: "gemini-2.5-flash", APIKeyEnv: "GEMINI_API_KEY", Temperature: 0.2},
		Store:        StoreConfig{Backend: StoreMemory, Dir: ".archguide/sessions"},
		Redis:        RedisConfig{Addr: "localhost:6379", Prefix: "archguide:session:", LockTTL: 30 * time.Second},
		Server:       ServerConfig{Port: 8080, MetricsPort: 9090},
		Tactics:      TacticsConfig{K: 3},
		MaxInputSize: 4096,
	}
}

// Load reads path over the defaults and applies environment overrides.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

type lookupFunc func(string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	var errs []error
	num := func(key string, dst *int) {
		if v, ok := lookup(EnvPrefix + key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := lookup(EnvPrefix + key); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = b
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + key); ok {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = d
		}
	}

	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)
	str("ORACLE_MODEL", &cfg.Oracle.Model)
	str("ORACLE_API_KEY_ENV", &cfg.Oracle.APIKeyEnv)
	str("STORE", &cfg.Store.Backend)
	str("STORE_DIR", &cfg.Store.Dir)
	str("ENCRYPTION_KEY", &cfg.Store.EncryptionKey)
	flag("MASK_PII", &cfg.Store.MaskPII)
	str("REDIS_ADDR", &cfg.Redis.Addr)
	str("REDIS_PASSWORD", &cfg.Redis.Password)
	num("REDIS_DB", &cfg.Redis.DB)
	str("REDIS_PREFIX", &cfg.Redis.Prefix)
	dur("REDIS_TTL", &cfg.Redis.TTL)
	dur("REDIS_LOCK_TTL", &cfg.Redis.LockTTL)
	num("PORT", &cfg.Server.Port)
	num("METRICS_PORT", &cfg.Server.MetricsPort)
	num("TACTICS_K", &cfg.Tactics.K)
	str("CORPUS", &cfg.CorpusPath)
	num("MAX_INPUT_SIZE", &cfg.MaxInputSize)

	return errors.Join(errs...)
}

// Validate checks the values that would otherwise fail late.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case StoreMemory, StoreFile, StoreRedis:
	default:
		return fmt.Errorf("invalid store.backend %q: must be one of memory, file, redis", c.Store.Backend)
	}
	if c.Tactics.K < 1 {
		return fmt.Errorf("tactics.k must be positive, got %d", c.Tactics.K)
	}
	if c.MaxInputSize < 1 {
		return fmt.Errorf("max_input_size must be positive, got %d", c.MaxInputSize)
	}
	if k := c.Store.EncryptionKey; k != "" && len(k) != 32 {
		return fmt.Errorf("store.encryption_key must be 32 bytes, got %d", len(k))
	}
	for _, p := range c.Store.PIIPatterns {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("store.pii_patterns: %w", err)
		}
	}
	return nil
}
