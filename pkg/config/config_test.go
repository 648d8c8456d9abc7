package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	require.True(t, IsUnavailable(err))
	require.Equal(t, Default().ServerURL, cfg.ServerURL)
	require.Equal(t, 5*time.Minute, cfg.ProactiveInterval)
	require.Equal(t, 2*time.Second, cfg.SummarizationPollInterval)
	require.Equal(t, time.Second, cfg.RevealDelay)
}

func TestLoad_InvalidYAML(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte("server_url: [unterminated"), 0o600))

	cfg, err := Load(p)
	require.True(t, IsUnavailable(err))
	require.NotNil(t, cfg)
}

func TestLoad_MergesOverDefaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
server_url: https://chat.example.com
api_token: tok
proactive_interval: 1m
events:
  redis_enabled: true
  redis_addr: redis:6379
`), 0o600))

	cfg, err := Load(p)
	require.NoError(t, err)
	require.Equal(t, "https://chat.example.com", cfg.ServerURL)
	require.Equal(t, "tok", cfg.APIToken)
	require.Equal(t, time.Minute, cfg.ProactiveInterval)
	require.Equal(t, 2*time.Second, cfg.SummarizationPollInterval)
	require.True(t, cfg.Events.RedisEnabled)
	require.Equal(t, "redis:6379", cfg.Events.RedisAddr)
	require.NoError(t, cfg.Validate())
}

func TestSaveThenLoad(t *testing.T) {
	p := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.APIToken = "abc"
	cfg.ServerURL = "http://127.0.0.1:9000"
	require.NoError(t, Save(p, cfg))

	loaded, err := Load(p)
	require.NoError(t, err)
	require.Equal(t, "abc", loaded.APIToken)
	require.Equal(t, "http://127.0.0.1:9000", loaded.ServerURL)

	require.Error(t, Save(p, nil))
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.ServerURL = " "
	require.ErrorContains(t, cfg.Validate(), "server_url")

	cfg = Default()
	cfg.SummarizationPollInterval = 0
	require.Error(t, cfg.Validate())
}
