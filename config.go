package kinvex

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/kinvex/tokenstore"
)

// Config is the full client configuration. Build clones it, so a Config may be
// reused after it has been passed to the builder.
type Config struct {
	API      APIConfig
	Auth     AuthConfig
	Watchdog WatchdogConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
	App      AppConfig
}

/*
====================================
API CONFIG
====================================
*/

// APIConfig locates the Kinvex REST API.
type APIConfig struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string

	LoginPath   string
	RefreshPath string
	LogoutPath  string
}

/*
====================================
AUTH CONFIG
====================================
*/

// AuthConfig tunes the session lifecycle.
type AuthConfig struct {
	// Keys names the token store slots of the default in-memory store.
	Keys tokenstore.Keys
	// RefreshTimeout bounds one refresh exchange, independent of the caller's context.
	RefreshTimeout time.Duration
	// LoginRedirectPath is passed to the Navigator when a session ends.
	LoginRedirectPath string
}

/*
====================================
WATCHDOG CONFIG
====================================
*/

// WatchdogConfig controls the expiration watchdog.
type WatchdogConfig struct {
	Enabled          bool
	Interval         time.Duration
	WarningThreshold time.Duration
}

// AuditConfig controls asynchronous audit dispatch.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
APP CONFIG
====================================
*/

// Environment names the deployment environment.
type Environment string

const (
	// EnvDevelopment relaxes transport checks for local work.
	EnvDevelopment Environment = "development"
	// EnvTest is used by automated tests.
	EnvTest Environment = "test"
	// EnvProduction requires an https API base URL.
	EnvProduction Environment = "production"
)

// AppConfig identifies the application embedding the client.
type AppConfig struct {
	Name        string
	Version     string
	Environment Environment
}

// DefaultConfig returns the configuration of a development client talking to a
// local API.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL:     "http://localhost:8080/api",
			Timeout:     10 * time.Second,
			UserAgent:   "kinvex-go/1.0.0",
			LoginPath:   "/auth/login",
			RefreshPath: "/auth/refresh",
			LogoutPath:  "/auth/logout",
		},
		Auth: AuthConfig{
			Keys:              tokenstore.DefaultKeys(),
			RefreshTimeout:    15 * time.Second,
			LoginRedirectPath: "/login",
		},
		Watchdog: WatchdogConfig{
			Enabled:          true,
			Interval:         60 * time.Second,
			WarningThreshold: 5 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
		App: AppConfig{
			Name:        "Kinvex Inventory System",
			Version:     "1.0.0",
			Environment: EnvDevelopment,
		},
	}
}

func cloneConfig(cfg Config) Config {
	return cfg
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting in c.
func (c *Config) Validate() error {
	// API
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return errors.New("API BaseURL must be set")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return fmt.Errorf("API BaseURL is invalid: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("API BaseURL must use http or https")
	}
	if u.Host == "" {
		return errors.New("API BaseURL must include a host")
	}
	if c.API.Timeout <= 0 {
		return errors.New("API Timeout must be > 0")
	}
	for name, p := range map[string]string{
		"LoginPath":   c.API.LoginPath,
		"RefreshPath": c.API.RefreshPath,
		"LogoutPath":  c.API.LogoutPath,
	} {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("API %s must start with /", name)
		}
	}

	// Auth
	if err := c.Auth.Keys.Validate(); err != nil {
		return fmt.Errorf("Auth Keys: %w", err)
	}
	if c.Auth.RefreshTimeout <= 0 {
		return errors.New("Auth RefreshTimeout must be > 0")
	}
	if c.Auth.RefreshTimeout > 5*time.Minute {
		return errors.New("Auth RefreshTimeout must be <= 5m")
	}

	// Watchdog
	if c.Watchdog.Enabled {
		if c.Watchdog.Interval < 10*time.Millisecond {
			return errors.New("Watchdog Interval must be >= 10ms")
		}
		if c.Watchdog.WarningThreshold <= 0 {
			return errors.New("Watchdog WarningThreshold must be > 0")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when Audit is enabled")
	}

	// App
	switch c.App.Environment {
	case EnvDevelopment, EnvTest, EnvProduction:
	default:
		return fmt.Errorf("App Environment %q is not one of development, test, production", c.App.Environment)
	}

	return nil
}
