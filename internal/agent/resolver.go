package agent

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/akanksha05Singh/gemini-email-agent/internal/mail"
	"github.com/akanksha05Singh/gemini-email-agent/internal/model"
	"github.com/akanksha05Singh/gemini-email-agent/internal/rules"
	"github.com/akanksha05Singh/gemini-email-agent/internal/safety"
)

// Resolver turns a classified email into a final list of executed (or
// simulated) actions: rule matching, safety gating for reply actions,
// and the low-confidence review fallback.
type Resolver struct {
	engine   *rules.Engine
	gate     *safety.Gate
	executor ActionExecutor
	cfg      model.SafetyConfig
	logger   *zap.Logger
}

// NewResolver creates a Resolver. The executor decides whether effects
// are live or simulated; the resolver is identical in both modes.
func NewResolver(
	engine *rules.Engine,
	gate *safety.Gate,
	executor ActionExecutor,
	cfg model.SafetyConfig,
	logger *zap.Logger,
) *Resolver {
	return &Resolver{
		engine:   engine,
		gate:     gate,
		executor: executor,
		cfg:      cfg,
		logger:   logger,
	}
}

// Resolve processes every candidate action for one classified email and
// returns the audit trail of outcomes. A returned error is batch-fatal
// (mail connectivity); the outcomes produced so far accompany it.
func (r *Resolver) Resolve(
	ctx context.Context,
	msg mail.Message,
	classification model.ClassificationResult,
) ([]model.ExecutedAction, error) {
	candidates := r.engine.Evaluate(classification)

	var outcomes []model.ExecutedAction

	for _, action := range candidates {
		switch action.Type {
		case model.ActionReply, model.ActionDraftReply:
			out, err := r.resolveReply(ctx, msg, classification, action)
			outcomes = append(outcomes, out)
			if err != nil {
				return outcomes, err
			}

		case model.ActionLabel:
			out, err := r.executor.ExecuteLabel(ctx, msg, action.Type, action.Value)
			outcomes = append(outcomes, out)
			if err != nil {
				return outcomes, err
			}

		case model.ActionArchive:
			out, err := r.executor.ExecuteArchive(ctx, msg)
			outcomes = append(outcomes, out)
			if err != nil {
				return outcomes, err
			}
		}
	}

	// Fallback: a low-confidence email where nothing executed is
	// flagged for human attention.
	if classification.ConfidenceScore < r.cfg.MinConfidenceForDraft && !anyExecuted(outcomes) {
		r.logger.Info("low confidence and no action executed, applying review label",
			zap.String("email_id", msg.MessageID),
			zap.Float64("confidence", classification.ConfidenceScore),
		)
		out, err := r.executor.ExecuteLabel(
			ctx, msg, model.ActionLabel, r.cfg.HumanInTheLoopLabel,
		)
		outcomes = append(outcomes, out)
		if err != nil {
			return outcomes, err
		}
	}

	return outcomes, nil
}

// resolveReply routes a reply-type action through the domain allowlist
// and the safety gate before handing it to the executor.
func (r *Resolver) resolveReply(
	ctx context.Context,
	msg mail.Message,
	classification model.ClassificationResult,
	action model.Action,
) (model.ExecutedAction, error) {
	if !r.senderAllowed(msg.Sender) {
		r.logger.Warn("sender domain not allowed for reply, dropping",
			zap.String("email_id", msg.MessageID),
			zap.String("sender", msg.Sender),
		)
		return model.ExecutedAction{
			Type:   action.Type,
			Mode:   model.ModeManual,
			Detail: "sender domain not in reply allowlist",
		}, nil
	}

	mode := r.gate.Validate(ctx, action.IntendedMode(), classification.ConfidenceScore)
	if mode == model.ModeManual {
		// Dropped: nothing sent or drafted, audited as not executed.
		return model.ExecutedAction{
			Type:   action.Type,
			Mode:   model.ModeManual,
			Detail: "dropped by safety gate",
		}, nil
	}

	return r.executor.ExecuteReply(ctx, msg, classification, action, mode)
}

// senderAllowed reports whether the sender's domain is covered by the
// reply allowlist. An empty list or a "*" entry allows all domains.
func (r *Resolver) senderAllowed(sender string) bool {
	allowed := r.cfg.AllowedDomainsForReply
	if len(allowed) == 0 {
		return true
	}

	at := strings.LastIndex(sender, "@")
	domain := ""
	if at >= 0 {
		domain = strings.ToLower(sender[at+1:])
	}

	for _, d := range allowed {
		if d == "*" || strings.EqualFold(d, domain) {
			return true
		}
	}
	return false
}

// anyExecuted reports whether at least one action actually executed
// (or was simulated as executed under dry run).
func anyExecuted(outcomes []model.ExecutedAction) bool {
	for _, o := range outcomes {
		if o.Executed {
			return true
		}
	}
	return false
}
