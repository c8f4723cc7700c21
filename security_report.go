package kinvex

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/kinvex/tokenstore"
)

// SecurityReport describes the security posture of a built Client.
type SecurityReport struct {
	ProductionMode     bool
	TransportEncrypted bool
	APIHost            string
	APITimeout         time.Duration
	RefreshTimeout     time.Duration
	StoreBackend       string
	StorePersistent    bool
	StoreSealed        bool
	WatchdogEnabled    bool
	WarningThreshold   time.Duration
	AuditEnabled       bool
	MetricsEnabled     bool
}

type sealedStore interface {
	Sealed() bool
}

// SecurityReport summarizes the client's configuration and token store.
func (c *Client) SecurityReport() SecurityReport {
	if c == nil {
		return SecurityReport{}
	}
	cfg := c.config

	r := SecurityReport{
		ProductionMode:   cfg.App.Environment == EnvProduction,
		APITimeout:       cfg.API.Timeout,
		RefreshTimeout:   cfg.Auth.RefreshTimeout,
		WatchdogEnabled:  cfg.Watchdog.Enabled,
		WarningThreshold: cfg.Watchdog.WarningThreshold,
		AuditEnabled:     cfg.Audit.Enabled,
		MetricsEnabled:   cfg.Metrics.Enabled,
	}
	if u, err := url.Parse(cfg.API.BaseURL); err == nil {
		r.TransportEncrypted = strings.EqualFold(u.Scheme, "https")
		r.APIHost = u.Host
	}

	switch c.store.(type) {
	case *tokenstore.MemoryStore:
		r.StoreBackend = "memory"
	case *tokenstore.FileStore:
		r.StoreBackend = "file"
		r.StorePersistent = true
	case *tokenstore.SQLiteStore:
		r.StoreBackend = "sqlite"
		r.StorePersistent = true
	case *tokenstore.RedisStore:
		r.StoreBackend = "redis"
		r.StorePersistent = true
	default:
		r.StoreBackend = fmt.Sprintf("%T", c.store)
		r.StorePersistent = true
	}
	if s, ok := c.store.(sealedStore); ok {
		r.StoreSealed = s.Sealed()
	}
	return r
}

// Warnings lists posture problems worth fixing before production use.
func (r SecurityReport) Warnings() []string {
	var out []string
	if !r.TransportEncrypted && !isLoopback(r.APIHost) {
		out = append(out, "API base URL is not https; tokens travel in cleartext")
	}
	if r.StoreBackend == "file" && !r.StoreSealed {
		out = append(out, "session file is not sealed; set a store passphrase")
	}
	if r.ProductionMode && !r.WatchdogEnabled {
		out = append(out, "expiration watchdog is disabled in production")
	}
	if r.ProductionMode && !r.AuditEnabled {
		out = append(out, "audit events are disabled in production")
	}
	return out
}

func isLoopback(host string) bool {
	h := host
	if i := strings.LastIndexByte(h, ':'); i >= 0 && !strings.HasSuffix(h, "]") {
		h = h[:i]
	}
	h = strings.Trim(h, "[]")
	return h == "localhost" || h == "::1" || strings.HasPrefix(h, "127.")
}
