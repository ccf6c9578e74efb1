// Package config assembles the startup configuration: defaults, then an
// optional voyage.yaml, then variables from .env and the process environment.
// The process environment is only read, never written.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// DefaultModel is the Anthropic model used when none is configured.
const DefaultModel = "claude-sonnet-4-5"

// Config is passed to constructors at startup.
type Config struct {
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	Model           string `yaml:"model"`
	MaxTokens       int    `yaml:"max_tokens"`
	// Offline swaps the Anthropic model for the deterministic scripted one.
	Offline bool `yaml:"offline"`

	Store      string        `yaml:"store"`
	SessionDir string        `yaml:"session_dir"`
	SessionTTL time.Duration `yaml:"session_ttl"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	// EncryptionKey is the base64 form of a 32 byte AES key. Empty disables encryption.
	EncryptionKey string `yaml:"encryption_key"`
	// MaskPII masks emails and card numbers before sessions are stored.
	MaskPII bool `yaml:"mask_pii"`

	ApprovalTimeout time.Duration `yaml:"approval_timeout"`
	MaxSteps        int           `yaml:"max_steps"`
	LogLevel        string        `yaml:"log_level"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		Model:           DefaultModel,
		MaxTokens:       1024,
		Store:           StoreFile,
		SessionDir:      ".voyage/sessions",
		RedisAddr:       "localhost:6379",
		ApprovalTimeout: 10 * time.Minute,
		MaxSteps:        25,
		LogLevel:        "info",
	}
}

// Source tells Load where to look. Empty paths are skipped; missing files
// are not an error.
type Source struct {
	File    string
	EnvFile string
	// Environ defaults to os.Environ.
	Environ []string
}

// Load builds the configuration from defaults, the YAML file, the .env file
// and the environment, each layer overriding the previous one.
func Load(src Source) (Config, error) {
	cfg := Default()

	if src.File != "" {
		if err := loadFile(src.File, &cfg); err != nil {
			return Config{}, err
		}
	}

	env := map[string]string{}
	if src.EnvFile != "" {
		vars, err := godotenv.Read(src.EnvFile)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to read %s: %w", src.EnvFile, err)
		}
		for k, v := range vars {
			env[k] = v
		}
	}
	environ := src.Environ
	if environ == nil {
		environ = os.Environ()
	}
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}

	if err := applyEnv(env, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func applyEnv(env map[string]string, cfg *Config) error {
	str := func(key string, dst *string) {
		if v, ok := env[key]; ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	num := func(key string, dst *int) {
		if v, ok := env[key]; ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := env[key]; ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := env[key]; ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	str("ANTHROPIC_API_KEY", &cfg.AnthropicAPIKey)
	str("VOYAGE_MODEL", &cfg.Model)
	num("VOYAGE_MAX_TOKENS", &cfg.MaxTokens)
	flag("VOYAGE_OFFLINE", &cfg.Offline)
	str("VOYAGE_STORE", &cfg.Store)
	str("VOYAGE_SESSION_DIR", &cfg.SessionDir)
	dur("VOYAGE_SESSION_TTL", &cfg.SessionTTL)
	str("VOYAGE_REDIS_ADDR", &cfg.RedisAddr)
	str("VOYAGE_REDIS_PASSWORD", &cfg.RedisPassword)
	num("VOYAGE_REDIS_DB", &cfg.RedisDB)
	str("VOYAGE_ENCRYPTION_KEY", &cfg.EncryptionKey)
	flag("VOYAGE_MASK_PII", &cfg.MaskPII)
	dur("VOYAGE_APPROVAL_TIMEOUT", &cfg.ApprovalTimeout)
	num("VOYAGE_MAX_STEPS", &cfg.MaxSteps)
	str("VOYAGE_LOG_LEVEL", &cfg.LogLevel)

	return errors.Join(errs...)
}

// Validate checks the values that constructors cannot recover from.
func (c Config) Validate() error {
	switch c.Store {
	case StoreMemory, StoreFile, StoreRedis:
	default:
		return fmt.Errorf("unknown store %q (want memory, file or redis)", c.Store)
	}
	if c.MaxSteps <= 0 {
		return fmt.Errorf("max_steps must be positive, got %d", c.MaxSteps)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive, got %d", c.MaxTokens)
	}
	if c.EncryptionKey != "" {
		if _, err := c.Key(); err != nil {
			return err
		}
	}
	return nil
}

// Key decodes EncryptionKey. It returns nil when encryption is disabled.
func (c Config) Key() ([]byte, error) {
	if c.EncryptionKey == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(c.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("encryption key is not valid base64: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(key))
	}
	return key, nil
}
