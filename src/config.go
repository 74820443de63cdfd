package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// settings is the merged configuration: file values first, then HAPPIER_*
// environment overrides. Flags applied by the command win over both.
type settings struct {
	ServerURL             string `yaml:"serverUrl"`
	Token                 string `yaml:"token"`
	DefaultAgent          string `yaml:"defaultAgent"`
	DefaultPermissionMode string `yaml:"defaultPermissionMode"`
	DefaultModel          string `yaml:"defaultModel"`
	RetryIntervalSeconds  int    `yaml:"retryIntervalSeconds"`
	KeepAliveSeconds      int    `yaml:"keepAliveSeconds"`
}

func defaultSettings() settings {
	return settings{
		ServerURL:             defaultServerURL,
		DefaultAgent:          "claude",
		DefaultPermissionMode: "default",
		RetryIntervalSeconds:  defaultRetryIntervalSeconds,
		KeepAliveSeconds:      defaultKeepAliveSeconds,
	}
}

// happierHomeDir is ~/.happier, overridable with HAPPIER_HOME for tests
// and multi-profile setups.
func happierHomeDir() (string, error) {
	if override := strings.TrimSpace(os.Getenv("HAPPIER_HOME")); override != "" {
		return override, nil
	}
	home, err := userHomeDirFn()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".happier"), nil
}

func settingsPath() (string, error) {
	dir, err := happierHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "settings.yaml"), nil
}

// loadSettings reads the settings file when present and applies env
// overrides. A missing file is not an error; a malformed one is fatal.
func loadSettings() (settings, error) {
	cfg := defaultSettings()

	path, err := settingsPath()
	if err != nil {
		return cfg, err
	}
	if fileExists(path) {
		raw, readErr := os.ReadFile(path)
		if readErr != nil {
			return cfg, readErr
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("malformed settings file %s: %w", path, err)
		}
	}

	cfg.ServerURL = getStringEnv("HAPPIER_SERVER_URL", cfg.ServerURL)
	cfg.Token = getStringEnv("HAPPIER_TOKEN", cfg.Token)
	cfg.DefaultAgent = getStringEnv("HAPPIER_AGENT", cfg.DefaultAgent)
	cfg.RetryIntervalSeconds = getIntEnv("HAPPIER_RETRY_INTERVAL_SECONDS", cfg.RetryIntervalSeconds)
	cfg.KeepAliveSeconds = getIntEnv("HAPPIER_KEEPALIVE_SECONDS", cfg.KeepAliveSeconds)

	if cfg.RetryIntervalSeconds <= 0 {
		cfg.RetryIntervalSeconds = defaultRetryIntervalSeconds
	}
	if cfg.KeepAliveSeconds <= 0 {
		cfg.KeepAliveSeconds = defaultKeepAliveSeconds
	}
	return cfg, nil
}

// machineID returns the stable per-host identifier, creating it on first
// use. The id distinguishes this CLI instance in relay session metadata.
func machineID() (string, error) {
	dir, err := happierHomeDir()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "machine-id")
	if raw, readErr := os.ReadFile(path); readErr == nil {
		id := strings.TrimSpace(string(raw))
		if id != "" {
			return id, nil
		}
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	id := uuid.NewString()
	if err := writeFileAtomic(path, []byte(id+"\n")); err != nil {
		return "", err
	}
	return id, nil
}
