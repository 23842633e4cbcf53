package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"DELTA_BACKEND", "DELTA_BASE_URL", "DELTA_WAKE_WORD", "DELTA_SOCKET", "DELTA_REVERT_DELAY", "DELTA_DUCK"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, BackendRemote, cfg.Endpoint.Backend)
	assert.Equal(t, "http://localhost:5000", cfg.Endpoint.BaseURL)
	assert.Equal(t, "delta", cfg.Speech.WakeWord)
	assert.True(t, cfg.Speech.Duck)
	assert.Equal(t, "/tmp/delta.sock", cfg.Daemon.Socket)
	assert.Equal(t, 2*time.Second, cfg.Daemon.RevertDelay)
	assert.NoError(t, cfg.Validate())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DELTA_BASE_URL", "https://delta.example.com")
	t.Setenv("DELTA_REVERT_DELAY", "750ms")
	t.Setenv("DELTA_DUCK", "false")
	t.Setenv("DELTA_TIMEOUT", "not-a-duration")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://delta.example.com", cfg.Endpoint.BaseURL)
	assert.Equal(t, 750*time.Millisecond, cfg.Daemon.RevertDelay)
	assert.False(t, cfg.Speech.Duck)
	assert.Equal(t, 30*time.Second, cfg.Endpoint.Timeout)
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "delta.env")
	require.NoError(t, os.WriteFile(path, []byte("DELTA_WAKE_WORD=omega\n"), 0o600))
	t.Setenv("DELTA_WAKE_WORD", "")
	os.Unsetenv("DELTA_WAKE_WORD")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "omega", cfg.Speech.WakeWord)
}

func TestLoadMissingEnvFileIsNotFatal(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	base := func() *Config {
		return &Config{
			Endpoint: EndpointConfig{Backend: BackendRemote, BaseURL: "http://localhost"},
			Speech:   SpeechConfig{WakeWord: "delta"},
			Daemon:   DaemonConfig{Socket: "/tmp/delta.sock"},
		}
	}

	cfg := base()
	cfg.Endpoint.Backend = BackendOpenAI
	assert.Error(t, cfg.Validate())
	cfg.Endpoint.OpenAIKey = "sk-test"
	assert.NoError(t, cfg.Validate())

	cfg = base()
	cfg.Endpoint.Backend = "carrier-pigeon"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Speech.WakeWord = ""
	assert.Error(t, cfg.Validate())
}
