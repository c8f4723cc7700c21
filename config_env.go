package kinvex

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type envSettings struct {
	APIBaseURL        string `mapstructure:"KINVEX_API_BASE_URL"`
	APITimeout        string `mapstructure:"KINVEX_API_TIMEOUT"`
	APIUserAgent      string `mapstructure:"KINVEX_API_USER_AGENT"`
	RefreshTimeout    string `mapstructure:"KINVEX_AUTH_REFRESH_TIMEOUT"`
	WatchdogEnabled   bool   `mapstructure:"KINVEX_WATCHDOG_ENABLED"`
	WatchdogInterval  string `mapstructure:"KINVEX_WATCHDOG_INTERVAL"`
	WatchdogThreshold string `mapstructure:"KINVEX_WATCHDOG_WARNING_THRESHOLD"`
	AuditEnabled      bool   `mapstructure:"KINVEX_AUDIT_ENABLED"`
	MetricsEnabled    bool   `mapstructure:"KINVEX_METRICS_ENABLED"`
	AppName           string `mapstructure:"KINVEX_APP_NAME"`
	AppVersion        string `mapstructure:"KINVEX_APP_VERSION"`
	AppEnv            string `mapstructure:"KINVEX_APP_ENV"`
}

// LoadConfig builds a Config from DefaultConfig, the optional file at path
// (dotenv, or YAML for .yaml/.yml, with the same KINVEX_* keys) and KINVEX_*
// environment variables, in increasing precedence. A missing file is ignored. In production KINVEX_API_BASE_URL must be set explicitly.
func LoadConfig(path string) (Config, error) {
	def := DefaultConfig()
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			v.SetConfigType("yaml")
		default:
			v.SetConfigType("env")
		}
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	v.AutomaticEnv()

	v.SetDefault("KINVEX_API_BASE_URL", "")
	v.SetDefault("KINVEX_API_TIMEOUT", def.API.Timeout.String())
	v.SetDefault("KINVEX_API_USER_AGENT", def.API.UserAgent)
	v.SetDefault("KINVEX_AUTH_REFRESH_TIMEOUT", def.Auth.RefreshTimeout.String())
	v.SetDefault("KINVEX_WATCHDOG_ENABLED", def.Watchdog.Enabled)
	v.SetDefault("KINVEX_WATCHDOG_INTERVAL", def.Watchdog.Interval.String())
	v.SetDefault("KINVEX_WATCHDOG_WARNING_THRESHOLD", def.Watchdog.WarningThreshold.String())
	v.SetDefault("KINVEX_AUDIT_ENABLED", def.Audit.Enabled)
	v.SetDefault("KINVEX_METRICS_ENABLED", def.Metrics.Enabled)
	v.SetDefault("KINVEX_APP_NAME", def.App.Name)
	v.SetDefault("KINVEX_APP_VERSION", def.App.Version)
	v.SetDefault("KINVEX_APP_ENV", string(def.App.Environment))

	var env envSettings
	if err := v.Unmarshal(&env); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	cfg := def
	cfg.App.Name = env.AppName
	cfg.App.Version = env.AppVersion
	cfg.App.Environment = Environment(strings.ToLower(strings.TrimSpace(env.AppEnv)))

	baseURL := strings.TrimSpace(env.APIBaseURL)
	if baseURL == "" {
		if cfg.App.Environment == EnvProduction {
			return Config{}, errors.New("config: KINVEX_API_BASE_URL must be set when KINVEX_APP_ENV=production")
		}
		baseURL = def.API.BaseURL
	}
	cfg.API.BaseURL = strings.TrimRight(baseURL, "/")
	cfg.API.UserAgent = env.APIUserAgent
	cfg.Watchdog.Enabled = env.WatchdogEnabled
	cfg.Audit.Enabled = env.AuditEnabled
	cfg.Metrics.Enabled = env.MetricsEnabled

	var err error
	if cfg.API.Timeout, err = parseDuration("KINVEX_API_TIMEOUT", env.APITimeout); err != nil {
		return Config{}, err
	}
	if cfg.Auth.RefreshTimeout, err = parseDuration("KINVEX_AUTH_REFRESH_TIMEOUT", env.RefreshTimeout); err != nil {
		return Config{}, err
	}
	if cfg.Watchdog.Interval, err = parseDuration("KINVEX_WATCHDOG_INTERVAL", env.WatchdogInterval); err != nil {
		return Config{}, err
	}
	if cfg.Watchdog.WarningThreshold, err = parseDuration("KINVEX_WATCHDOG_WARNING_THRESHOLD", env.WatchdogThreshold); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func parseDuration(key, value string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}
