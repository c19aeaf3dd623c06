package analysis

import (
	"context"
	"sync"
	"time"

	"github.com/chanlytics/channel-analysis-go/internal/metrics"

	"go.uber.org/zap"
)

// AuditSink records reserved quota for after-the-fact inspection. Failures to
// audit never block a reservation.
type AuditSink interface {
	RecordUsage(ctx context.Context, quotaCost int, operationType string) error
}

// Ledger enforces the metadata provider's daily cost budget in-process.
// Reserve is an atomic check-and-increment: concurrent reservations cannot
// overshoot the budget. The window rolls over automatically when the current
// time crosses the provider's reset boundary.
type Ledger struct {
	mu          sync.Mutex
	limit       int
	used        int
	window      time.Duration
	windowStart time.Time

	audit AuditSink
	now   func() time.Time
	log   *zap.Logger
}

// NewLedger creates a Ledger with the given budget and accounting window.
// A window of 24h resets at UTC midnight, matching the YouTube Data API.
func NewLedger(limit int, window time.Duration, log *zap.Logger) *Ledger {
	if limit <= 0 {
		limit = 10000
	}
	if window <= 0 {
		window = 24 * time.Hour
	}
	if log == nil {
		log = zap.NewNop()
	}

	l := &Ledger{
		limit:  limit,
		window: window,
		now:    time.Now,
		log:    log,
	}
	l.windowStart = l.now().UTC().Truncate(window)
	return l
}

// SetAuditSink attaches an optional usage audit sink.
func (l *Ledger) SetAuditSink(sink AuditSink) { l.audit = sink }

// Reserve atomically reserves cost units against the current window's budget.
// On success the units are considered spent; the caller must perform the
// corresponding provider call. On failure no units are consumed and the caller
// must not contact the provider.
func (l *Ledger) Reserve(ctx context.Context, cost int, operationType string) error {
	l.mu.Lock()
	l.rollWindowLocked()

	if l.used+cost > l.limit {
		remaining := l.limit - l.used
		retryAfter := l.windowStart.Add(l.window).Sub(l.now())
		l.mu.Unlock()

		metrics.QuotaExhaustedTotal.Inc()
		l.log.Warn("quota reservation rejected",
			zap.Int("requested", cost),
			zap.Int("remaining", remaining),
			zap.String("operation", operationType),
		)
		return &QuotaError{Requested: cost, Remaining: remaining, RetryAfter: retryAfter}
	}

	l.used += cost
	used := l.used
	l.mu.Unlock()

	metrics.QuotaUnitsConsumed.Add(float64(cost))
	l.log.Debug("quota reserved",
		zap.Int("cost", cost),
		zap.Int("used", used),
		zap.Int("limit", l.limit),
		zap.String("operation", operationType),
	)

	if l.audit != nil {
		if err := l.audit.RecordUsage(ctx, cost, operationType); err != nil {
			l.log.Warn("quota audit write failed", zap.Error(err))
		}
	}

	return nil
}

// Consumed returns the units consumed in the current window.
func (l *Ledger) Consumed() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollWindowLocked()
	return l.used
}

// Remaining returns the units still available in the current window.
func (l *Ledger) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollWindowLocked()
	return l.limit - l.used
}

// Limit returns the configured budget.
func (l *Ledger) Limit() int { return l.limit }

// ResetsAt returns when the current accounting window ends.
func (l *Ledger) ResetsAt() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollWindowLocked()
	return l.windowStart.Add(l.window)
}

func (l *Ledger) rollWindowLocked() {
	now := l.now().UTC()
	if now.Sub(l.windowStart) >= l.window {
		l.windowStart = now.Truncate(l.window)
		l.used = 0
	}
}
