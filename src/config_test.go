package app

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadSettingsDefaultsWhenFileMissing(t *testing.T) {
	t.Setenv("HAPPIER_HOME", t.TempDir())

	cfg, err := loadSettings()
	if err != nil {
		t.Fatalf("loadSettings failed: %v", err)
	}
	if cfg.ServerURL != defaultServerURL {
		t.Fatalf("serverUrl = %q, want default", cfg.ServerURL)
	}
	if cfg.DefaultAgent != "claude" || cfg.DefaultPermissionMode != "default" {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.RetryIntervalSeconds != defaultRetryIntervalSeconds {
		t.Fatalf("retryIntervalSeconds = %d", cfg.RetryIntervalSeconds)
	}
}

func TestLoadSettingsReadsFileAndEnvOverrides(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HAPPIER_HOME", home)

	content := "serverUrl: https://relay.example.com\ntoken: file-token\ndefaultAgent: codex\nretryIntervalSeconds: 9\n"
	if err := os.WriteFile(filepath.Join(home, "settings.yaml"), []byte(content), 0o600); err != nil {
		t.Fatalf("write settings: %v", err)
	}
	t.Setenv("HAPPIER_TOKEN", "env-token")

	cfg, err := loadSettings()
	if err != nil {
		t.Fatalf("loadSettings failed: %v", err)
	}
	if cfg.ServerURL != "https://relay.example.com" {
		t.Fatalf("serverUrl = %q", cfg.ServerURL)
	}
	if cfg.Token != "env-token" {
		t.Fatalf("token = %q, env must override file", cfg.Token)
	}
	if cfg.DefaultAgent != "codex" || cfg.RetryIntervalSeconds != 9 {
		t.Fatalf("merged settings = %+v", cfg)
	}
}

func TestLoadSettingsRejectsMalformedFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HAPPIER_HOME", home)

	if err := os.WriteFile(filepath.Join(home, "settings.yaml"), []byte("serverUrl: [broken\n"), 0o600); err != nil {
		t.Fatalf("write settings: %v", err)
	}
	if _, err := loadSettings(); err == nil {
		t.Fatal("expected error for malformed settings file")
	}
}

func TestLoadSettingsSanitizesNonPositiveIntervals(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HAPPIER_HOME", home)

	content := "retryIntervalSeconds: -3\nkeepAliveSeconds: 0\n"
	if err := os.WriteFile(filepath.Join(home, "settings.yaml"), []byte(content), 0o600); err != nil {
		t.Fatalf("write settings: %v", err)
	}

	cfg, err := loadSettings()
	if err != nil {
		t.Fatalf("loadSettings failed: %v", err)
	}
	if cfg.RetryIntervalSeconds != defaultRetryIntervalSeconds {
		t.Fatalf("retryIntervalSeconds = %d, want default fallback", cfg.RetryIntervalSeconds)
	}
	if cfg.KeepAliveSeconds != defaultKeepAliveSeconds {
		t.Fatalf("keepAliveSeconds = %d, want default fallback", cfg.KeepAliveSeconds)
	}
}

func TestMachineIDStableAcrossCalls(t *testing.T) {
	t.Setenv("HAPPIER_HOME", t.TempDir())

	first, err := machineID()
	if err != nil {
		t.Fatalf("machineID failed: %v", err)
	}
	if first == "" {
		t.Fatal("empty machine id")
	}
	second, err := machineID()
	if err != nil {
		t.Fatalf("machineID second call failed: %v", err)
	}
	if first != second {
		t.Fatalf("machine id changed between calls: %q vs %q", first, second)
	}
}
