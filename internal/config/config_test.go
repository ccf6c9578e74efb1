package config_test

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/voyage/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(config.Source{Environ: []string{}})
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
	assert.Equal(t, 10*time.Minute, cfg.ApprovalTimeout)
	assert.Equal(t, 25, cfg.MaxSteps)
}

func TestLoad_Layers(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "voyage.yaml")
	envPath := filepath.Join(dir, ".env")

	require.NoError(t, os.WriteFile(yamlPath, []byte(strings.Join([]string{
		"store: redis",
		"redis_addr: yaml:6379",
		"max_steps: 10",
		"approval_timeout: 1m",
		"log_level: debug",
	}, "\n")), 0644))
	require.NoError(t, os.WriteFile(envPath, []byte("ANTHROPIC_API_KEY=from-dotenv\nVOYAGE_MAX_STEPS=12\n"), 0644))

	cfg, err := config.Load(config.Source{
		File:    yamlPath,
		EnvFile: envPath,
		Environ: []string{"VOYAGE_MAX_STEPS=15", "VOYAGE_OFFLINE=true", "VOYAGE_MASK_PII=1"},
	})
	require.NoError(t, err)

	assert.Equal(t, config.StoreRedis, cfg.Store)
	assert.Equal(t, "yaml:6379", cfg.RedisAddr)
	assert.Equal(t, time.Minute, cfg.ApprovalTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "from-dotenv", cfg.AnthropicAPIKey)
	assert.Equal(t, 15, cfg.MaxSteps, "process environment wins over .env")
	assert.True(t, cfg.Offline)
	assert.True(t, cfg.MaskPII)
}

func TestLoad_MissingFilesAreSkipped(t *testing.T) {
	dir := t.TempDir()
	_, err := config.Load(config.Source{
		File:    filepath.Join(dir, "nope.yaml"),
		EnvFile: filepath.Join(dir, ".env"),
		Environ: []string{},
	})
	assert.NoError(t, err)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		environ []string
		want    string
	}{
		{"bad number", []string{"VOYAGE_MAX_STEPS=many"}, "VOYAGE_MAX_STEPS"},
		{"bad duration", []string{"VOYAGE_APPROVAL_TIMEOUT=soon"}, "VOYAGE_APPROVAL_TIMEOUT"},
		{"bad bool", []string{"VOYAGE_OFFLINE=maybe"}, "VOYAGE_OFFLINE"},
		{"bad store", []string{"VOYAGE_STORE=postgres"}, "unknown store"},
		{"zero steps", []string{"VOYAGE_MAX_STEPS=0"}, "max_steps"},
		{"short key", []string{"VOYAGE_ENCRYPTION_KEY=" + base64.StdEncoding.EncodeToString([]byte("short"))}, "32 bytes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(config.Source{Environ: tt.environ})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voyage.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_steps: [oops"), 0644))
	_, err := config.Load(config.Source{File: path, Environ: []string{}})
	assert.Error(t, err)
}

func TestConfig_Key(t *testing.T) {
	raw := make([]byte, 32)
	cfg := config.Default()
	cfg.EncryptionKey = base64.StdEncoding.EncodeToString(raw)

	key, err := cfg.Key()
	require.NoError(t, err)
	assert.Len(t, key, 32)

	cfg.EncryptionKey = ""
	key, err = cfg.Key()
	require.NoError(t, err)
	assert.Nil(t, key)
}
