package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config captures the settings shelf reads from config.toml.
type Config struct {
	APIURL         string
	LogFile        string
	RequestTimeout time.Duration
	PollInterval   time.Duration // zero disables background loan refresh
}

// EnvAPIURL overrides api_url from the config file.
const EnvAPIURL = "SHELF_API_URL"

const (
	defaultConfigPath     = "~/.config/shelf/config.toml"
	defaultLogFile        = "~/.local/state/shelf/shelf.log"
	defaultAPIURL         = "http://127.0.0.1:8000"
	defaultRequestTimeout = 10 * time.Second
	minPollInterval       = 5 * time.Second
)

// DefaultPath returns the config location used when none is given.
func DefaultPath() string {
	return mustExpand(defaultConfigPath)
}

// Load locates and parses the shelf config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		APIURL:         defaultAPIURL,
		LogFile:        mustExpand(defaultLogFile),
		RequestTimeout: defaultRequestTimeout,
	}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		APIURL         string `toml:"api_url"`
		LogFile        string `toml:"log_file"`
		RequestTimeout string `toml:"request_timeout"`
		PollInterval   string `toml:"poll_interval"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.APIURL); v != "" {
		cfg.APIURL = v
	}
	if v := strings.TrimSpace(raw.LogFile); v != "" {
		cfg.LogFile = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.RequestTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("parse config: request_timeout %q is not a positive duration", v)
		}
		cfg.RequestTimeout = d
	}
	if v := strings.TrimSpace(raw.PollInterval); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return Config{}, fmt.Errorf("parse config: poll_interval %q is not a valid duration", v)
		}
		cfg.PollInterval = ClampPoll(d)
	}

	return cfg, nil
}

// ResolveAPIURL applies the override order: flag, then SHELF_API_URL, then the
// config file, then the built-in default.
func (c Config) ResolveAPIURL(flag string) string {
	if v := strings.TrimSpace(flag); v != "" {
		return v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAPIURL)); v != "" {
		return v
	}
	if v := strings.TrimSpace(c.APIURL); v != "" {
		return v
	}
	return defaultAPIURL
}

// ClampPoll raises positive intervals to the minimum; zero stays disabled.
func ClampPoll(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	if d < minPollInterval {
		return minPollInterval
	}
	return d
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return ExpandPath(defaultConfigPath)
	}
	return ExpandPath(path)
}

func mustExpand(path string) string {
	expanded, err := ExpandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

// ExpandPath resolves a leading "~" to the home directory and makes path
// absolute. A blank path is an error.
func ExpandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
