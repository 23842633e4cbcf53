package config

import (
	"errors"
	"fmt"
	log "log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendRemote = "remote"
	BackendOpenAI = "openai"
)

type Config struct {
	Endpoint EndpointConfig
	Speech   SpeechConfig
	Daemon   DaemonConfig
}

type EndpointConfig struct {
	Backend     string
	BaseURL     string
	Session     string
	Proxy       string
	Timeout     time.Duration
	OpenAIKey   string
	OpenAIModel string
}

type SpeechConfig struct {
	WakeWord     string
	WhisperModel string
	Language     string
	Chime        string
	Duck         bool
}

type DaemonConfig struct {
	Socket      string
	Bus         string
	LogFile     string
	RevertDelay time.Duration
}

// Load reads envFile, if present, into the process environment and builds
// the config from DELTA_* variables.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("load %s: %w", envFile, err)
			}
			log.Debug("Env file not found, using process environment", "path", envFile)
		}
	}

	cfg := &Config{
		Endpoint: EndpointConfig{
			Backend:     getEnv("DELTA_BACKEND", BackendRemote),
			BaseURL:     getEnv("DELTA_BASE_URL", "http://localhost:5000"),
			Session:     getEnv("DELTA_SESSION", ""),
			Proxy:       getEnv("DELTA_PROXY", ""),
			Timeout:     getEnvAsDuration("DELTA_TIMEOUT", 30*time.Second),
			OpenAIKey:   getEnv("OPENAI_API_KEY", ""),
			OpenAIModel: getEnv("DELTA_OPENAI_MODEL", ""),
		},
		Speech: SpeechConfig{
			WakeWord:     getEnv("DELTA_WAKE_WORD", "delta"),
			WhisperModel: getEnv("DELTA_WHISPER_MODEL", "models/ggml-base.en.bin"),
			Language:     getEnv("DELTA_LANGUAGE", "en"),
			Chime:        getEnv("DELTA_CHIME", ""),
			Duck:         getEnvAsBool("DELTA_DUCK", true),
		},
		Daemon: DaemonConfig{
			Socket:      getEnv("DELTA_SOCKET", "/tmp/delta.sock"),
			Bus:         getEnv("DELTA_BUS", ""),
			LogFile:     getEnv("DELTA_LOG_FILE", ""),
			RevertDelay: getEnvAsDuration("DELTA_REVERT_DELAY", 2*time.Second),
		},
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Endpoint.Backend {
	case BackendRemote:
		if c.Endpoint.BaseURL == "" {
			return errors.New("DELTA_BASE_URL is empty")
		}
	case BackendOpenAI:
		if c.Endpoint.OpenAIKey == "" {
			return errors.New("OPENAI_API_KEY not set")
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Endpoint.Backend)
	}
	if c.Speech.WakeWord == "" {
		return errors.New("wake word is empty")
	}
	if c.Daemon.Socket == "" {
		return errors.New("control socket path is empty")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil && value > 0 {
		return value
	}
	return fallback
}
