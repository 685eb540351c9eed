package safety

import (
	"context"

	"go.uber.org/zap"

	"github.com/akanksha05Singh/gemini-email-agent/internal/model"
)

// Thresholds holds the confidence cutoffs for the execution-mode
// decision. The gate does not validate AutoAction >= Draft; if Draft
// exceeds AutoAction the draft band is unreachable (caller
// responsibility, warned at config load).
type Thresholds struct {
	AutoAction float64
	Draft      float64
}

// ThresholdsFromConfig extracts the gate thresholds from a SafetyConfig.
func ThresholdsFromConfig(cfg model.SafetyConfig) Thresholds {
	return Thresholds{
		AutoAction: cfg.MinConfidenceForAutoAction,
		Draft:      cfg.MinConfidenceForDraft,
	}
}

// ModeFor maps a confidence score to an execution mode. Pure and total;
// the send threshold is checked first.
func (t Thresholds) ModeFor(confidence float64) model.ExecutionMode {
	switch {
	case confidence >= t.AutoAction:
		return model.ModeSend
	case confidence >= t.Draft:
		return model.ModeDraft
	default:
		return model.ModeManual
	}
}

// SendLimiter answers whether another automatic send is currently
// permitted. Satisfied by *RateLimiter.
type SendLimiter interface {
	CheckAllowed(ctx context.Context) bool
}

// Gate is the final safety check for a proposed execution mode. It
// composes the confidence thresholds with the send rate limiter.
type Gate struct {
	thresholds Thresholds
	limiter    SendLimiter
	logger     *zap.Logger
}

// NewGate creates a Gate over the given thresholds and limiter.
func NewGate(t Thresholds, limiter SendLimiter, logger *zap.Logger) *Gate {
	return &Gate{thresholds: t, limiter: limiter, logger: logger}
}

// Validate returns the execution mode actually permitted for a reply
// action. Only a literal send proposal triggers checks:
//
//  1. if the rate limiter denies, downgrade to draft (the check itself
//     consumes no slot; an executed send does, via RecordSend);
//  2. otherwise recompute the mode from confidence and downgrade when
//     it is below the send band (to draft or manual);
//  3. otherwise send passes unchanged.
//
// Every non-send proposal is returned unchanged for all confidences: a
// rule proposing draft_reply bypasses confidence revalidation entirely.
// Drafts are never auto-sent, but they do reach the drafts mailbox
// unreviewed.
func (g *Gate) Validate(
	ctx context.Context,
	proposed model.ExecutionMode,
	confidence float64,
) model.ExecutionMode {
	if proposed != model.ModeSend {
		return proposed
	}

	if !g.limiter.CheckAllowed(ctx) {
		g.logger.Warn("downgrading to draft: rate limit reached",
			zap.Float64("confidence", confidence),
		)
		return model.ModeDraft
	}

	if safe := g.thresholds.ModeFor(confidence); safe != model.ModeSend {
		g.logger.Warn("downgrading send: confidence below auto-action threshold",
			zap.String("mode", string(safe)),
			zap.Float64("confidence", confidence),
		)
		return safe
	}

	return model.ModeSend
}
