package kinvex

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/kinvex/permission"
	"github.com/MrEthical07/kinvex/tokenstore"
)

// Builder assembles a Client. A Builder is single-use: configure it, call Build
// once, and discard it.
type Builder struct {
	config Config

	store      tokenstore.Store
	httpClient *http.Client
	notifier   Notifier
	navigator  Navigator
	auditSink  AuditSink
	logger     *log.Logger
	now        func() time.Time
	routes     *permission.Registry

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithBaseURL sets the API base URL, for example "https://kinvex.example.com/api".
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.API.BaseURL = baseURL
	return b
}

// WithTokenStore sets where credentials persist. The default is an in-memory
// store that does not survive the process.
func (b *Builder) WithTokenStore(store tokenstore.Store) *Builder {
	b.store = store
	return b
}

// WithHTTPClient sets the transport. Its Timeout is left alone; per-request
// deadlines come from API.Timeout.
func (b *Builder) WithHTTPClient(client *http.Client) *Builder {
	b.httpClient = client
	return b
}

// WithNotifier sets where user-facing notifications go.
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithNavigator sets who performs the redirect to login.
func (b *Builder) WithNavigator(n Navigator) *Builder {
	b.navigator = n
	return b
}

// WithAuditSink sets the audit destination and enables audit dispatch.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	if sink != nil {
		b.config.Audit.Enabled = true
	}
	return b
}

// WithLogger sets the operational logger. The default is log.Default().
func (b *Builder) WithLogger(logger *log.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides the time source used for expiry decisions.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithRoutes sets the navigation registry. It is frozen by Build.
func (b *Builder) WithRoutes(routes *permission.Registry) *Builder {
	b.routes = routes
	return b
}

// WithWatchdog replaces the expiration watchdog settings.
func (b *Builder) WithWatchdog(cfg WatchdogConfig) *Builder {
	b.config.Watchdog = cfg
	return b
}

// WithMetricsEnabled turns the in-process counters on or off.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms turns request latency histograms on or off.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a Client in the Uninitialized
// state. Call Initialize to resolve any stored session.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = log.Default()
	}
	now := b.now
	if now == nil {
		now = time.Now
	}
	notifier := b.notifier
	if notifier == nil {
		notifier = NoOpNotifier{}
	}
	navigator := b.navigator
	if navigator == nil {
		navigator = NoOpNavigator{}
	}
	store := b.store
	if store == nil {
		store = tokenstore.NewMemoryStore(cfg.Auth.Keys)
	}
	httpClient := b.httpClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	routes := b.routes
	if routes == nil {
		routes = permission.DefaultRegistry()
	}
	routes.Freeze()

	metrics := NewMetrics(cfg.Metrics)

	gateway := &Gateway{
		baseURL:        strings.TrimRight(cfg.API.BaseURL, "/"),
		http:           httpClient,
		timeout:        cfg.API.Timeout,
		userAgent:      cfg.API.UserAgent,
		paths:          cfg.API,
		store:          store,
		refreshTimeout: cfg.Auth.RefreshTimeout,
		loginRedirect:  cfg.Auth.LoginRedirectPath,
		metrics:        metrics,
		logger:         logger,
		notifier:       notifier,
		navigator:      navigator,
	}

	client := &Client{
		config:    cfg,
		gateway:   gateway,
		store:     store,
		metrics:   metrics,
		logger:    logger,
		notifier:  notifier,
		navigator: navigator,
		routes:    routes,
		now:       now,
	}
	client.auditor = newAuditDispatcher(cfg.Audit, b.auditSink, logger)
	client.watchdog = newWatchdog(client, cfg.Watchdog)

	gateway.hooks = sessionHooks{
		refreshed:   func(u *User) { client.setUser(u) },
		invalidated: func() { client.invalidated() },
	}

	b.built = true

	return client, nil
}
