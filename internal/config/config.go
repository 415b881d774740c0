package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingKey marks required configuration absent from the environment.
// The wrapping message names every missing key.
var ErrMissingKey = errors.New("missing required configuration")

// Required environment keys.
const (
	EnvProjectID = "VERTEX_PROJECT_ID"
	EnvLocation  = "VERTEX_LOCATION"
	EnvBaseURL   = "LOOKER_BASE_URL"
)

// Optional environment keys.
const (
	EnvCredentials  = "GOOGLE_APPLICATION_CREDENTIALS"
	EnvModel        = "KATARI_MODEL"
	EnvOutputDir    = "KATARI_OUTPUT_DIR"
	EnvCatalogPath  = "KATARI_CATALOG"
	EnvAuthState    = "KATARI_AUTH_STATE"
	EnvHeadless     = "KATARI_HEADLESS"
	EnvMaxWait      = "KATARI_MAX_WAIT"
	EnvSettleDelay  = "KATARI_SETTLE_DELAY"
	EnvPollInterval = "KATARI_POLL_INTERVAL"
	EnvLogLevel     = "KATARI_LOG_LEVEL"
	EnvLogFormat    = "KATARI_LOG_FORMAT"
	EnvLogFile      = "KATARI_LOG_FILE"
)

// Config is the full runtime configuration. Flags may override individual
// fields after Load; flags beat env, env beats defaults.
type Config struct {
	Vertex   VertexConfig
	Target   TargetConfig
	Session  SessionConfig
	Browser  BrowserConfig
	Detector DetectorConfig
	Output   OutputConfig
	Log      LogConfig
}

// VertexConfig selects the generation backend.
type VertexConfig struct {
	// ProjectID selects cloud billing/quota scope.
	ProjectID string

	// Location selects the generation endpoint region.
	Location string

	// Model is the generation model name.
	Model string

	// CredentialsFile optionally overrides ambient credentials.
	CredentialsFile string
}

// TargetConfig identifies the BI application under capture.
type TargetConfig struct {
	BaseURL string
}

// SessionConfig controls persisted authentication state.
type SessionConfig struct {
	// StateFile is the opaque auth blob written after interactive login.
	StateFile string
}

// BrowserConfig controls the chromedp engine.
type BrowserConfig struct {
	Headless bool

	// NavTimeout bounds a single navigation, not dashboard readiness.
	NavTimeout time.Duration

	WindowWidth  int
	WindowHeight int
}

// DetectorConfig tunes load-completion detection.
type DetectorConfig struct {
	PollInterval time.Duration
	SettleDelay  time.Duration
	MaxWait      time.Duration
}

// OutputConfig controls artifact persistence.
type OutputConfig struct {
	Dir string

	// CatalogPath is the sqlite ledger; empty means <Dir>/katari.db.
	CatalogPath string
}

// LogConfig mirrors logging.Config.
type LogConfig struct {
	Level  string
	Format string
	File   string
}

// Default returns the baseline configuration before env and flags apply.
func Default() *Config {
	return &Config{
		Vertex: VertexConfig{
			Model: "gemini-2.5-flash",
		},
		Session: SessionConfig{
			StateFile: "auth_state.json",
		},
		Browser: BrowserConfig{
			Headless:     true,
			NavTimeout:   60 * time.Second,
			WindowWidth:  1920,
			WindowHeight: 1080,
		},
		Detector: DetectorConfig{
			PollInterval: 500 * time.Millisecond,
			SettleDelay:  2 * time.Second,
			MaxWait:      60 * time.Second,
		},
		Output: OutputConfig{
			Dir: "output",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load builds the configuration from an optional .env file plus the process
// environment and validates required keys. A missing env file is not an
// error; a missing required key is.
func Load(envFile string) (*Config, error) {
	cfg := FromEnv(envFile)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv builds the configuration without validating it. Commands that use
// only a slice of the configuration check the fields they need themselves.
func FromEnv(envFile string) *Config {
	if envFile != "" {
		_ = godotenv.Load(envFile)
	} else {
		_ = godotenv.Load()
	}

	cfg := Default()

	cfg.Vertex.ProjectID = strings.TrimSpace(os.Getenv(EnvProjectID))
	cfg.Vertex.Location = strings.TrimSpace(os.Getenv(EnvLocation))
	cfg.Vertex.Model = env(EnvModel, cfg.Vertex.Model)
	cfg.Vertex.CredentialsFile = strings.TrimSpace(os.Getenv(EnvCredentials))
	cfg.Target.BaseURL = strings.TrimSpace(os.Getenv(EnvBaseURL))

	cfg.Session.StateFile = env(EnvAuthState, cfg.Session.StateFile)
	cfg.Browser.Headless = envBool(EnvHeadless, cfg.Browser.Headless)
	cfg.Detector.MaxWait = envDuration(EnvMaxWait, cfg.Detector.MaxWait)
	cfg.Detector.SettleDelay = envDuration(EnvSettleDelay, cfg.Detector.SettleDelay)
	cfg.Detector.PollInterval = envDuration(EnvPollInterval, cfg.Detector.PollInterval)
	cfg.Output.Dir = env(EnvOutputDir, cfg.Output.Dir)
	cfg.Output.CatalogPath = env(EnvCatalogPath, cfg.Output.CatalogPath)
	cfg.Log.Level = env(EnvLogLevel, cfg.Log.Level)
	cfg.Log.Format = env(EnvLogFormat, cfg.Log.Format)
	cfg.Log.File = env(EnvLogFile, cfg.Log.File)

	return cfg
}

// Validate checks required keys and referenced files.
func (c *Config) Validate() error {
	var missing []string
	if c.Vertex.ProjectID == "" {
		missing = append(missing, EnvProjectID)
	}
	if c.Vertex.Location == "" {
		missing = append(missing, EnvLocation)
	}
	if c.Target.BaseURL == "" {
		missing = append(missing, EnvBaseURL)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingKey, strings.Join(missing, ", "))
	}

	if c.Vertex.CredentialsFile != "" {
		if _, err := os.Stat(c.Vertex.CredentialsFile); err != nil {
			return fmt.Errorf("credentials file %s: %w", c.Vertex.CredentialsFile, err)
		}
	}
	return nil
}

// Catalog returns the resolved catalog path.
func (c *Config) Catalog() string {
	if c.Output.CatalogPath != "" {
		return c.Output.CatalogPath
	}
	return filepath.Join(c.Output.Dir, "katari.db")
}

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// envDuration accepts Go duration syntax ("90s", "2m") or a bare number of
// seconds.
func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return def
}
