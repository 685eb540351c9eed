// Package agent contains the action resolver and batch runner that tie
// rule matching, safety gating, and the mail transport together.
package agent

import (
	"context"

	"go.uber.org/zap"

	"github.com/akanksha05Singh/gemini-email-agent/internal/mail"
	"github.com/akanksha05Singh/gemini-email-agent/internal/model"
)

// SendRecorder consumes one rate-limit slot for an executed send.
// Satisfied by *safety.RateLimiter.
type SendRecorder interface {
	RecordSend(ctx context.Context)
}

// ActionExecutor performs the side effects of resolved actions. Two
// implementations exist: LiveExecutor dispatches to the mail transport,
// SimulatedExecutor records markers. The resolver logic is identical in
// both modes; the executor is selected once at startup.
//
// Each method returns the audit outcome for the action. The error
// return is reserved for batch-fatal failures (mail.ConnError);
// per-action failures are embedded in the ExecutedAction and are nil
// errors.
type ActionExecutor interface {
	ExecuteReply(
		ctx context.Context,
		msg mail.Message,
		classification model.ClassificationResult,
		action model.Action,
		mode model.ExecutionMode,
	) (model.ExecutedAction, error)

	ExecuteLabel(ctx context.Context, msg mail.Message, actionType model.ActionType, label string) (model.ExecutedAction, error)

	ExecuteArchive(ctx context.Context, msg mail.Message) (model.ExecutedAction, error)

	// MarkProcessed flags the message as handled (read) after its
	// actions and audit record are complete.
	MarkProcessed(ctx context.Context, msg mail.Message) error
}

// LiveExecutor dispatches actions to the mail transport and consumes
// rate-limit slots for executed sends.
type LiveExecutor struct {
	transport mail.Transport
	recorder  SendRecorder
	logger    *zap.Logger
}

// NewLiveExecutor creates the executor used outside dry run.
func NewLiveExecutor(t mail.Transport, r SendRecorder, logger *zap.Logger) *LiveExecutor {
	return &LiveExecutor{transport: t, recorder: r, logger: logger}
}

// ExecuteReply sends or drafts the reply threaded against the original
// message. The sent text is always the oracle's suggested response; an
// empty suggestion skips the reply with a warning. Only a successful
// send consumes a rate-limit slot.
func (e *LiveExecutor) ExecuteReply(
	ctx context.Context,
	msg mail.Message,
	classification model.ClassificationResult,
	action model.Action,
	mode model.ExecutionMode,
) (model.ExecutedAction, error) {
	out := model.ExecutedAction{Type: action.Type, Mode: mode}

	if classification.SuggestedResponse == "" {
		e.logger.Warn("no suggested response, skipping reply",
			zap.String("email_id", msg.MessageID),
		)
		out.Detail = "empty suggested response"
		return out, nil
	}

	req := mail.ReplyRequest{
		To:              msg.Sender,
		Subject:         msg.Subject,
		Body:            classification.SuggestedResponse,
		InReplyToID:     msg.MessageID,
		ReferencesChain: msg.References,
	}

	if err := e.transport.SendOrDraft(ctx, req, mode); err != nil {
		if mail.IsConnError(err) {
			return out, err
		}
		e.logger.Error("reply failed",
			zap.String("email_id", msg.MessageID),
			zap.String("mode", string(mode)),
			zap.Error(err),
		)
		out.Detail = err.Error()
		return out, nil
	}

	out.Executed = true
	if mode == model.ModeSend {
		e.recorder.RecordSend(ctx)
	}

	e.logger.Info("reply executed",
		zap.String("email_id", msg.MessageID),
		zap.String("mode", string(mode)),
	)
	return out, nil
}

// ExecuteLabel applies the label via the transport.
func (e *LiveExecutor) ExecuteLabel(
	ctx context.Context,
	msg mail.Message,
	actionType model.ActionType,
	label string,
) (model.ExecutedAction, error) {
	out := model.ExecutedAction{Type: actionType, Value: label}

	if err := e.transport.ApplyLabel(ctx, msg.UID, label); err != nil {
		if mail.IsConnError(err) {
			return out, err
		}
		e.logger.Error("labeling failed",
			zap.String("email_id", msg.MessageID),
			zap.String("label", label),
			zap.Error(err),
		)
		out.Detail = err.Error()
		return out, nil
	}

	out.Executed = true
	return out, nil
}

// ExecuteArchive archives the message via the transport.
func (e *LiveExecutor) ExecuteArchive(
	ctx context.Context,
	msg mail.Message,
) (model.ExecutedAction, error) {
	out := model.ExecutedAction{Type: model.ActionArchive}

	if err := e.transport.Archive(ctx, msg.UID); err != nil {
		if mail.IsConnError(err) {
			return out, err
		}
		e.logger.Error("archive failed",
			zap.String("email_id", msg.MessageID),
			zap.Error(err),
		)
		out.Detail = err.Error()
		return out, nil
	}

	out.Executed = true
	return out, nil
}

// MarkProcessed marks the message seen so the next run skips it.
func (e *LiveExecutor) MarkProcessed(ctx context.Context, msg mail.Message) error {
	return e.transport.MarkSeen(ctx, msg.UID)
}

// SimulatedExecutor records what would have happened without touching
// the transport or the rate limiter.
type SimulatedExecutor struct {
	logger *zap.Logger
}

// NewSimulatedExecutor creates the dry-run executor.
func NewSimulatedExecutor(logger *zap.Logger) *SimulatedExecutor {
	return &SimulatedExecutor{logger: logger}
}

// ExecuteReply records a simulated reply marker. The simulation happens
// before the empty-response check a live run would make: dry run shows
// what the gate decided, not what the transport would accept.
func (e *SimulatedExecutor) ExecuteReply(
	_ context.Context,
	msg mail.Message,
	_ model.ClassificationResult,
	action model.Action,
	mode model.ExecutionMode,
) (model.ExecutedAction, error) {
	e.logger.Info("[dry run] would reply",
		zap.String("email_id", msg.MessageID),
		zap.String("mode", string(mode)),
	)
	return model.ExecutedAction{
		Type: action.Type, Mode: mode, Simulated: true, Executed: true,
	}, nil
}

// ExecuteLabel records a simulated label marker.
func (e *SimulatedExecutor) ExecuteLabel(
	_ context.Context,
	msg mail.Message,
	actionType model.ActionType,
	label string,
) (model.ExecutedAction, error) {
	e.logger.Info("[dry run] would label",
		zap.String("email_id", msg.MessageID),
		zap.String("label", label),
	)
	return model.ExecutedAction{
		Type: actionType, Value: label, Simulated: true, Executed: true,
	}, nil
}

// ExecuteArchive records a simulated archive marker.
func (e *SimulatedExecutor) ExecuteArchive(
	_ context.Context,
	msg mail.Message,
) (model.ExecutedAction, error) {
	e.logger.Info("[dry run] would archive",
		zap.String("email_id", msg.MessageID),
	)
	return model.ExecutedAction{
		Type: model.ActionArchive, Simulated: true, Executed: true,
	}, nil
}

// MarkProcessed is a no-op in dry run: messages stay unread.
func (e *SimulatedExecutor) MarkProcessed(context.Context, mail.Message) error {
	return nil
}
