package kinvex

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/MrEthical07/kinvex/jwt"
)

// WatchStatus is the outcome of one watchdog cycle.
type WatchStatus int

const (
	// WatchIdle means no access token is stored.
	WatchIdle WatchStatus = iota
	// WatchHealthy means the token expires after the warning threshold.
	WatchHealthy
	// WatchWarning means the token expires within the warning threshold.
	WatchWarning
	// WatchExpired means the token had expired and the session was ended.
	WatchExpired
	// WatchSkipped means the token could not be read or decoded this cycle.
	WatchSkipped
)

// String returns the status name.
func (s WatchStatus) String() string {
	switch s {
	case WatchIdle:
		return "idle"
	case WatchHealthy:
		return "healthy"
	case WatchWarning:
		return "warning"
	case WatchExpired:
		return "expired"
	case WatchSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// WatchResult reports what a cycle observed.
type WatchResult struct {
	Status      WatchStatus
	Remaining   time.Duration
	MinutesLeft int
	Err         error
}

// Watchdog periodically decodes the stored access token's expiry. Inside the
// warning threshold it notifies with the minutes left, and once the token has
// expired it logs the session out. Tokens that cannot be read are logged,
// counted and skipped; they never end the session.
type Watchdog struct {
	client *Client
	config WatchdogConfig

	// checkMu serializes cycles. mu guards the fields below and is never held
	// across calls into the client.
	checkMu sync.Mutex

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
	closed  bool
	warning bool
	minutes int

	wg sync.WaitGroup
}

func newWatchdog(c *Client, cfg WatchdogConfig) *Watchdog {
	return &Watchdog{client: c, config: cfg}
}

// Running reports whether the periodic loop is active.
func (w *Watchdog) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Warning reports whether a session-expiring notification is active and the
// minutes it last announced.
func (w *Watchdog) Warning() (bool, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.warning, w.minutes
}

// Start begins checking every Interval, with one check right away. It does
// nothing if the watchdog is disabled, closed or already running.
func (w *Watchdog) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.config.Enabled || w.closed || w.running {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.running = true
	w.wg.Add(1)
	go w.run(ctx)
}

func (w *Watchdog) run(ctx context.Context) {
	defer w.wg.Done()
	w.Check(ctx)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			w.Check(ctx)
		}
	}
}

// Stop ends the periodic loop without waiting for it and forgets any active
// warning. It is safe to call when not running.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopLocked()
}

func (w *Watchdog) stopLocked() {
	if w.running {
		w.cancel()
		w.cancel = nil
		w.running = false
	}
	w.warning = false
	w.minutes = 0
}

// Close stops the watchdog for good and waits for an in-progress cycle.
func (w *Watchdog) Close() {
	w.mu.Lock()
	w.closed = true
	w.stopLocked()
	w.mu.Unlock()
	w.wg.Wait()
}

// Check runs one cycle.
func (w *Watchdog) Check(ctx context.Context) WatchResult {
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		return WatchResult{Status: WatchSkipped, Err: ctx.Err()}
	}
	w.checkMu.Lock()
	defer w.checkMu.Unlock()

	c := w.client
	pair, ok, gen, err := c.gateway.snapshot(ctx)
	if err != nil {
		return w.skip(ctx, err)
	}
	if !ok || pair.AccessToken == "" {
		w.clearWarning(ctx, false)
		return WatchResult{Status: WatchIdle}
	}
	exp, err := jwt.Expiry(pair.AccessToken)
	if err != nil {
		return w.skip(ctx, err)
	}

	remaining := exp.Sub(c.now())
	switch {
	case remaining <= 0:
		c.metrics.Inc(MetricWatchdogExpired)
		c.audit(ctx, AuditWatchdogExpired, c.User(), nil, nil)
		w.clearWarning(ctx, false)
		if c.logoutIf(ctx, gen) {
			return WatchResult{Status: WatchExpired, Remaining: remaining}
		}
		// The credentials changed under us; the next cycle sees the new token.
		return WatchResult{Status: WatchSkipped, Remaining: remaining}

	case remaining <= w.config.WarningThreshold:
		minutes := int(math.Ceil(remaining.Minutes()))
		w.warn(ctx, minutes)
		return WatchResult{Status: WatchWarning, Remaining: remaining, MinutesLeft: minutes}

	default:
		w.clearWarning(ctx, true)
		return WatchResult{Status: WatchHealthy, Remaining: remaining}
	}
}

// Extend refreshes the session on the user's request and clears the expiring
// notification on success.
func (w *Watchdog) Extend(ctx context.Context) error {
	if _, err := w.client.Refresh(ctx); err != nil {
		return err
	}
	w.clearWarning(ctx, true)
	return nil
}

func (w *Watchdog) skip(ctx context.Context, err error) WatchResult {
	c := w.client
	c.metrics.Inc(MetricWatchdogDecodeFailure)
	c.logger.Printf("kinvex: watchdog: skipping cycle, access token unreadable: %v", err)
	c.audit(ctx, AuditWatchdogDecodeFailure, nil, err, nil)
	return WatchResult{Status: WatchSkipped, Err: err}
}

func (w *Watchdog) warn(ctx context.Context, minutes int) {
	w.mu.Lock()
	changed := !w.warning || w.minutes != minutes
	w.warning = true
	w.minutes = minutes
	w.mu.Unlock()
	if !changed {
		return
	}

	c := w.client
	c.metrics.Inc(MetricWatchdogWarning)
	c.audit(ctx, AuditWatchdogWarning, c.User(), nil, map[string]string{"minutes_left": strconv.Itoa(minutes)})
	c.notify(ctx, Notification{
		Kind:        NoteSessionExpiring,
		Level:       LevelWarning,
		Message:     expiringMessage(minutes),
		MinutesLeft: minutes,
	})
}

// clearWarning drops an active warning, announcing it when notify is set.
func (w *Watchdog) clearWarning(ctx context.Context, notify bool) {
	w.mu.Lock()
	active := w.warning
	w.warning = false
	w.minutes = 0
	w.mu.Unlock()
	if active && notify {
		w.client.notify(ctx, Notification{
			Kind:    NoteSessionExpiringCleared,
			Level:   LevelInfo,
			Message: "Your session has been extended.",
		})
	}
}

func expiringMessage(minutes int) string {
	if minutes == 1 {
		return "Your session expires in 1 minute."
	}
	return fmt.Sprintf("Your session expires in %d minutes.", minutes)
}
