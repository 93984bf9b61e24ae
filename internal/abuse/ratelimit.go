package abuse

import (
	"context"
	"fmt"
	"time"
)

// RateLimitMessage is shown to buyers who hit the per-listing limit.
const RateLimitMessage = "Too many inquiries from your network. Please wait a minute and try again."

// RateWindow is the fixed window length for inquiry counters.
const RateWindow = time.Minute

// CounterStore is a shared, expiring counter. IncrWithTTL must be atomic and
// set the expiry only when it creates the key.
type CounterStore interface {
	Peek(ctx context.Context, key string) (int64, error)
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Limiter throttles successful inquiries per listing and client address.
type Limiter struct {
	store CounterStore
	limit int64
}

// NewLimiter returns a limiter allowing perMinute successful submissions per
// (listing, address) pair. A non-positive limit disables throttling.
func NewLimiter(store CounterStore, perMinute int) *Limiter {
	return &Limiter{store: store, limit: int64(perMinute)}
}

// Enabled reports whether the limiter will ever block.
func (l *Limiter) Enabled() bool {
	return l != nil && l.store != nil && l.limit > 0
}

// Limit returns the configured per-window limit.
func (l *Limiter) Limit() int64 {
	if l == nil {
		return 0
	}
	return l.limit
}

// Key builds the counter key; empty when the address is unknown.
func Key(listingID, addr string) string {
	if addr == "" {
		return ""
	}
	return fmt.Sprintf("inquiry-rate:%s:%s", listingID, addr)
}

// Check reports whether the pair has reached its limit for the current window.
// It never changes the counter. Unknown addresses are never limited.
func (l *Limiter) Check(ctx context.Context, listingID, addr string) (bool, error) {
	if !l.Enabled() {
		return false, nil
	}
	key := Key(listingID, addr)
	if key == "" {
		return false, nil
	}
	count, err := l.store.Peek(ctx, key)
	if err != nil {
		return false, fmt.Errorf("peek rate counter: %w", err)
	}
	return count >= l.limit, nil
}

// Increment records one successful submission. Call it only after the
// inquiry has been persisted.
func (l *Limiter) Increment(ctx context.Context, listingID, addr string) error {
	if !l.Enabled() {
		return nil
	}
	key := Key(listingID, addr)
	if key == "" {
		return nil
	}
	if _, err := l.store.IncrWithTTL(ctx, key, RateWindow); err != nil {
		return fmt.Errorf("increment rate counter: %w", err)
	}
	return nil
}
