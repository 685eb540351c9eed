// Package safety enforces the guard rails applied to reply actions:
// confidence thresholds and the trailing-hour send rate limit.
package safety

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/akanksha05Singh/gemini-email-agent/internal/model"
	"github.com/akanksha05Singh/gemini-email-agent/internal/store"
)

// window is the trailing period over which sends are counted.
const window = time.Hour

// RateLimiter maintains a sliding window of executed send timestamps,
// persisted through the store on every mutation. The in-memory window
// is authoritative: a failed flush is logged and swallowed, so a run
// keeps enforcing the limit even when the durable copy lags (fail-open
// on I/O error). The mutex covers in-process callers only; a single
// agent process owning the store is a precondition.
type RateLimiter struct {
	cfg    model.RateLimitConfig
	store  store.Store
	logger *zap.Logger

	mu     sync.Mutex
	window []time.Time

	// now is the clock source; replaced in tests.
	now func() time.Time
}

// NewRateLimiter creates a limiter seeded from the persisted send log.
// A read failure resets to an empty window rather than blocking all
// sends: availability over strict safety, logged for review.
func NewRateLimiter(
	ctx context.Context,
	cfg model.RateLimitConfig,
	s store.Store,
	logger *zap.Logger,
) *RateLimiter {
	r := &RateLimiter{
		cfg:    cfg,
		store:  s,
		logger: logger,
		now:    time.Now,
	}

	persisted, err := s.GetSendLog(ctx)
	if err != nil {
		logger.Warn("failed to load send log, resetting rate-limit window", zap.Error(err))
		persisted = nil
	}
	r.window = persisted

	return r
}

// CheckAllowed reports whether another send is permitted right now.
// Pruning expired timestamps and flushing the pruned window are side
// effects of every check, not only of recording. A check never consumes
// a slot; only RecordSend does.
func (r *RateLimiter) CheckAllowed(ctx context.Context) bool {
	if !r.cfg.Enabled {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.prune()
	r.flush(ctx)

	if len(r.window) >= r.cfg.MaxEmailsPerHour {
		r.logger.Warn("send rate limit reached",
			zap.Int("sends_last_hour", len(r.window)),
			zap.Int("max_emails_per_hour", r.cfg.MaxEmailsPerHour),
		)
		return false
	}
	return true
}

// RecordSend appends the current timestamp to the window and persists
// immediately. Call it only after a send actually executed.
func (r *RateLimiter) RecordSend(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.window = append(r.window, r.now())
	r.flush(ctx)
}

// prune drops timestamps older than the trailing window. Callers must
// hold the mutex.
func (r *RateLimiter) prune() {
	cutoff := r.now().Add(-window)
	kept := r.window[:0]
	for _, ts := range r.window {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	r.window = kept
}

// flush rewrites the persisted send log. Callers must hold the mutex.
func (r *RateLimiter) flush(ctx context.Context) {
	if err := r.store.ReplaceSendLog(ctx, r.window); err != nil {
		r.logger.Error("failed to persist send log", zap.Error(err))
	}
}
