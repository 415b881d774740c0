package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// noEnvFile points Load at a file that cannot exist so tests never pick up
// a developer's real .env.
func noEnvFile(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "absent.env")
}

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv(EnvProjectID, "proj-123")
	t.Setenv(EnvLocation, "us-central1")
	t.Setenv(EnvBaseURL, "https://bi.example.com")
}

func TestLoadMissingRequiredKeysNamed(t *testing.T) {
	t.Setenv(EnvProjectID, "")
	t.Setenv(EnvLocation, "")
	t.Setenv(EnvBaseURL, "")

	_, err := Load(noEnvFile(t))
	if err == nil {
		t.Fatal("expected error for missing required keys")
	}
	if !errors.Is(err, ErrMissingKey) {
		t.Errorf("error should wrap ErrMissingKey: %v", err)
	}
	for _, key := range []string{EnvProjectID, EnvLocation, EnvBaseURL} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error should name %s: %v", key, err)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load(noEnvFile(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Vertex.Model != "gemini-2.5-flash" {
		t.Errorf("model = %q", cfg.Vertex.Model)
	}
	if cfg.Session.StateFile != "auth_state.json" {
		t.Errorf("state file = %q", cfg.Session.StateFile)
	}
	if !cfg.Browser.Headless {
		t.Error("headless should default on")
	}
	if cfg.Detector.SettleDelay != 2*time.Second {
		t.Errorf("settle = %v", cfg.Detector.SettleDelay)
	}
	if cfg.Detector.MaxWait != 60*time.Second {
		t.Errorf("max wait = %v", cfg.Detector.MaxWait)
	}
	if cfg.Detector.PollInterval != 500*time.Millisecond {
		t.Errorf("poll = %v", cfg.Detector.PollInterval)
	}
	if got := cfg.Catalog(); got != filepath.Join("output", "katari.db") {
		t.Errorf("catalog = %q", got)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv(EnvModel, "gemini-2.5-pro")
	t.Setenv(EnvOutputDir, "artifacts")
	t.Setenv(EnvHeadless, "false")
	t.Setenv(EnvMaxWait, "90s")
	t.Setenv(EnvSettleDelay, "3")
	t.Setenv(EnvCatalogPath, "/tmp/elsewhere.db")

	cfg, err := Load(noEnvFile(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Vertex.Model != "gemini-2.5-pro" {
		t.Errorf("model = %q", cfg.Vertex.Model)
	}
	if cfg.Output.Dir != "artifacts" {
		t.Errorf("output dir = %q", cfg.Output.Dir)
	}
	if cfg.Browser.Headless {
		t.Error("headless override ignored")
	}
	if cfg.Detector.MaxWait != 90*time.Second {
		t.Errorf("max wait = %v", cfg.Detector.MaxWait)
	}
	if cfg.Detector.SettleDelay != 3*time.Second {
		t.Errorf("bare-seconds settle = %v", cfg.Detector.SettleDelay)
	}
	if cfg.Catalog() != "/tmp/elsewhere.db" {
		t.Errorf("catalog = %q", cfg.Catalog())
	}
}

func TestLoadReadsDotenvFile(t *testing.T) {
	// godotenv will not shadow keys present in the environment, even when
	// empty, so unset them outright. t.Setenv registers the restore.
	for _, key := range []string{EnvProjectID, EnvLocation, EnvBaseURL} {
		t.Setenv(key, "placeholder")
		os.Unsetenv(key)
	}

	envFile := filepath.Join(t.TempDir(), ".env")
	content := EnvProjectID + "=dotenv-proj\n" +
		EnvLocation + "=europe-west1\n" +
		EnvBaseURL + "=https://looker.example.com\n"
	if err := os.WriteFile(envFile, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := Load(envFile)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Vertex.ProjectID != "dotenv-proj" {
		t.Errorf("project = %q", cfg.Vertex.ProjectID)
	}
	if cfg.Vertex.Location != "europe-west1" {
		t.Errorf("location = %q", cfg.Vertex.Location)
	}
}

func TestValidateCredentialsFileMustExist(t *testing.T) {
	setRequired(t)
	t.Setenv(EnvCredentials, filepath.Join(t.TempDir(), "nope.json"))

	if _, err := Load(noEnvFile(t)); err == nil {
		t.Fatal("expected error for missing credentials file")
	}
}
