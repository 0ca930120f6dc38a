// Package quota tracks the locally estimated YouTube Data API budget.
//
// The tracker is advisory: it adds up the declared cost of every metered call
// and never learns the provider's authoritative number. A quota error
// reported by the provider still flips it to exceeded.
package quota

import (
	"sync"
	"time"

	"github.com/yt-discovery/internal/models"
)

// DefaultDailyLimit is the YouTube Data API v3 default daily quota.
const DefaultDailyLimit = 10000

const (
	warningRatio  = 0.80
	criticalRatio = 0.95
	dateLayout    = "2006-01-02"
)

// Observer is notified with the used units after every change. It runs under
// the tracker lock and must not call back into the tracker.
type Observer func(used, limit int)

// Tracker holds the daily quota state. It is safe for concurrent use.
type Tracker struct {
	mu        sync.Mutex
	used      int
	limit     int
	exceeded  bool
	lastReset string

	loc      *time.Location
	now      func() time.Time
	observer Observer
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock replaces time.Now, used by tests to simulate date rollover.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithLocation sets the zone whose midnight resets the budget.
func WithLocation(loc *time.Location) Option {
	return func(t *Tracker) {
		if loc != nil {
			t.loc = loc
		}
	}
}

// WithObserver registers a callback for usage changes.
func WithObserver(o Observer) Option {
	return func(t *Tracker) { t.observer = o }
}

// NewTracker creates a tracker with used=0. A non-positive limit falls back
// to DefaultDailyLimit.
func NewTracker(limit int, opts ...Option) *Tracker {
	if limit <= 0 {
		limit = DefaultDailyLimit
	}
	t := &Tracker{
		limit: limit,
		loc:   time.UTC,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.lastReset = t.today()
	return t
}

// RecordUsage adds cost units to the used counter.
func (t *Tracker) RecordUsage(cost int) {
	if cost <= 0 {
		return
	}
	t.mu.Lock()
	t.resetIfNewDayLocked()
	t.used += cost
	t.notify()
	t.mu.Unlock()
}

// CanProceed reports whether another metered call may be issued. Crossing the
// limit marks the tracker exceeded until the next daily reset.
func (t *Tracker) CanProceed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.resetIfNewDayLocked()
	if t.exceeded {
		return false
	}
	if t.used >= t.limit {
		t.exceeded = true
		return false
	}
	return true
}

// MarkExceeded records a provider-reported quota error.
func (t *Tracker) MarkExceeded() {
	t.mu.Lock()
	t.resetIfNewDayLocked()
	t.exceeded = true
	t.mu.Unlock()
}

// Exceeded reports the sticky exceeded flag.
func (t *Tracker) Exceeded() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetIfNewDayLocked()
	return t.exceeded
}

// Status returns the current usage snapshot.
func (t *Tracker) Status() models.QuotaStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.resetIfNewDayLocked()

	remaining := t.limit - t.used
	if remaining < 0 {
		remaining = 0
	}
	pct := float64(t.used) / float64(t.limit) * 100

	return models.QuotaStatus{
		Used:       t.used,
		Limit:      t.limit,
		Remaining:  remaining,
		Percentage: models.Round2(pct),
		Tier:       tier(t.used, t.limit),
		Exceeded:   t.exceeded,
		ResetDate:  t.lastReset,
	}
}

func tier(used, limit int) string {
	switch {
	case float64(used) < float64(limit)*warningRatio:
		return models.QuotaHealthy
	case float64(used) < float64(limit)*criticalRatio:
		return models.QuotaWarning
	default:
		return models.QuotaCritical
	}
}

// resetIfNewDayLocked zeroes the counters once the date moves past the last
// reset. Caller must hold t.mu.
func (t *Tracker) resetIfNewDayLocked() {
	today := t.today()
	if today == t.lastReset {
		return
	}
	t.lastReset = today
	t.used = 0
	t.exceeded = false
	t.notify()
}

func (t *Tracker) today() string {
	return t.now().In(t.loc).Format(dateLayout)
}

func (t *Tracker) notify() {
	if t.observer != nil {
		t.observer(t.used, t.limit)
	}
}
