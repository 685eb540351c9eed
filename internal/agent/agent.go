package agent

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/akanksha05Singh/gemini-email-agent/internal/ai"
	"github.com/akanksha05Singh/gemini-email-agent/internal/audit"
	"github.com/akanksha05Singh/gemini-email-agent/internal/mail"
	"github.com/akanksha05Singh/gemini-email-agent/internal/model"
)

// EmailResult is the per-email outcome collected for the run summary.
type EmailResult struct {
	Subject        string
	Sender         string
	Classification model.ClassificationResult
	Actions        []model.ExecutedAction
	Status         string
}

// RunSummary aggregates the outcomes of one batch run.
type RunSummary struct {
	DryRun  bool
	Results []EmailResult
}

// Agent runs the batch: fetch unread mail, classify, resolve actions,
// audit, mark processed. Emails are processed one at a time, end to
// end; there is no parallelism and no rollback across the loop.
type Agent struct {
	transport  mail.Transport
	oracle     ai.Oracle
	resolver   *Resolver
	sink       audit.Sink
	fetchLimit int
	dryRun     bool
	logger     *zap.Logger
}

// New wires an Agent from its collaborators.
func New(
	transport mail.Transport,
	oracle ai.Oracle,
	resolver *Resolver,
	sink audit.Sink,
	fetchLimit int,
	dryRun bool,
	logger *zap.Logger,
) *Agent {
	if fetchLimit <= 0 {
		fetchLimit = 10
	}
	return &Agent{
		transport:  transport,
		oracle:     oracle,
		resolver:   resolver,
		sink:       sink,
		fetchLimit: fetchLimit,
		dryRun:     dryRun,
		logger:     logger,
	}
}

// Run processes one batch of unread emails. Per-action transport
// failures are logged and survive; connectivity failures abort the
// batch with already-written audit records left standing. Context
// cancellation stops the batch between emails.
func (a *Agent) Run(ctx context.Context) (*RunSummary, error) {
	summary := &RunSummary{DryRun: a.dryRun}

	messages, err := a.transport.FetchUnread(ctx, a.fetchLimit)
	if err != nil {
		return summary, fmt.Errorf("fetching unread emails: %w", err)
	}

	a.logger.Info("fetched unread emails", zap.Int("count", len(messages)))

	for _, msg := range messages {
		if err := ctx.Err(); err != nil {
			a.logger.Info("run interrupted", zap.Error(err))
			return summary, err
		}

		result, err := a.processEmail(ctx, msg)
		summary.Results = append(summary.Results, result)
		if err != nil {
			return summary, err
		}
	}

	return summary, nil
}

// processEmail runs one email through the pipeline. The returned error
// is batch-fatal; per-email problems end up in the result status.
func (a *Agent) processEmail(ctx context.Context, msg mail.Message) (EmailResult, error) {
	a.logger.Info("processing email",
		zap.String("email_id", msg.MessageID),
		zap.String("subject", msg.Subject),
		zap.String("sender", msg.Sender),
	)

	classification, err := a.oracle.Classify(ctx, msg.Body, msg.Sender, msg.Subject)
	if err != nil {
		// The oracle contract guarantees a usable fallback value; the
		// error is context only and routes via low confidence.
		a.logger.Warn("classification degraded to fallback",
			zap.String("email_id", msg.MessageID),
			zap.Error(err),
		)
	}

	a.logger.Info("email classified",
		zap.String("email_id", msg.MessageID),
		zap.String("intent", classification.Intent),
		zap.String("priority", classification.Priority),
		zap.Float64("confidence", classification.ConfidenceScore),
	)

	result := EmailResult{
		Subject:        msg.Subject,
		Sender:         msg.Sender,
		Classification: classification,
	}

	actions, resolveErr := a.resolver.Resolve(ctx, msg, classification)
	result.Actions = actions
	result.Status = model.AuditStatusCompleted
	if resolveErr != nil {
		result.Status = model.AuditStatusError
	}

	if err := a.sink.Record(
		ctx, msg.MessageID, msg.Subject, classification, actions, result.Status,
	); err != nil {
		// An audit write failure never aborts the batch.
		a.logger.Error("failed to write audit record",
			zap.String("email_id", msg.MessageID),
			zap.Error(err),
		)
	}

	if resolveErr != nil {
		return result, fmt.Errorf("resolving actions for %s: %w", msg.MessageID, resolveErr)
	}

	if err := a.resolver.executor.MarkProcessed(ctx, msg); err != nil {
		if mail.IsConnError(err) {
			return result, err
		}
		a.logger.Warn("failed to mark email seen",
			zap.String("email_id", msg.MessageID),
			zap.Error(err),
		)
	}

	return result, nil
}
