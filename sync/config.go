// ABOUTME: Runtime configuration for the sync engine and CLI
// ABOUTME: Loaded from PEOPLESYNC_* environment variables with XDG path defaults
package sync

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/kelseyhightower/envconfig"
)

const appName = "peoplesync"

// Cursor store backends.
const (
	CursorBackendSQLite = "sqlite"
	CursorBackendBadger = "badger"
)

// Config is passed explicitly to every component that needs it.
type Config struct {
	DBPath             string        `envconfig:"DB_PATH"`
	CursorBackend      string        `envconfig:"CURSOR_BACKEND" default:"sqlite"`
	BadgerDir          string        `envconfig:"BADGER_DIR"`
	TokenDir           string        `envconfig:"TOKEN_DIR"`
	LockDir            string        `envconfig:"LOCK_DIR"`
	PeopleEndpoint     string        `envconfig:"PEOPLE_ENDPOINT"`
	GoogleClientID     string        `envconfig:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string        `envconfig:"GOOGLE_CLIENT_SECRET"`
	RedirectURL        string        `envconfig:"REDIRECT_URL" default:"http://localhost:8080/oauth/callback"`
	SyncInterval       time.Duration `envconfig:"SYNC_INTERVAL" default:"15m"`
	MaxCursorResets    int           `envconfig:"MAX_CURSOR_RESETS" default:"3"`
	BackoffInitial     time.Duration `envconfig:"BACKOFF_INITIAL" default:"1m"`
	BackoffMax         time.Duration `envconfig:"BACKOFF_MAX" default:"6h"`
	LogLevel           string        `envconfig:"LOG_LEVEL" default:"info"`
}

// DefaultConfig returns a config with defaults applied and no environment read.
func DefaultConfig() *Config {
	cfg := &Config{
		CursorBackend:   CursorBackendSQLite,
		RedirectURL:     "http://localhost:8080/oauth/callback",
		SyncInterval:    15 * time.Minute,
		MaxCursorResets: 3,
		BackoffInitial:  time.Minute,
		BackoffMax:      6 * time.Hour,
		LogLevel:        "info",
	}
	cfg.applyPathDefaults()
	return cfg
}

// LoadConfig reads PEOPLESYNC_* variables. GOOGLE_CLIENT_ID and
// GOOGLE_CLIENT_SECRET are honored when the prefixed names are unset.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(appName, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.GoogleClientID == "" {
		cfg.GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")
	}
	if cfg.GoogleClientSecret == "" {
		cfg.GoogleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	}

	cfg.applyPathDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyPathDefaults() {
	dataDir := filepath.Join(xdg.DataHome, appName)
	if c.DBPath == "" {
		c.DBPath = filepath.Join(dataDir, "peoplesync.db")
	}
	if c.BadgerDir == "" {
		c.BadgerDir = filepath.Join(dataDir, "cursors")
	}
	if c.TokenDir == "" {
		c.TokenDir = filepath.Join(dataDir, "tokens")
	}
	if c.LockDir == "" {
		c.LockDir = filepath.Join(dataDir, "locks")
	}
}

// Validate checks values that envconfig cannot.
func (c *Config) Validate() error {
	switch c.CursorBackend {
	case CursorBackendSQLite, CursorBackendBadger:
	default:
		return fmt.Errorf("unknown cursor backend %q (want %s or %s)", c.CursorBackend, CursorBackendSQLite, CursorBackendBadger)
	}
	if c.MaxCursorResets < 1 {
		return fmt.Errorf("max cursor resets must be at least 1, got %d", c.MaxCursorResets)
	}
	if c.SyncInterval <= 0 {
		return fmt.Errorf("sync interval must be positive, got %s", c.SyncInterval)
	}
	if c.BackoffInitial <= 0 || c.BackoffMax < c.BackoffInitial {
		return fmt.Errorf("invalid backoff window %s..%s", c.BackoffInitial, c.BackoffMax)
	}
	return nil
}
