// Package audit provides the append-only audit trail of processed
// emails and the decisions made for them.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/akanksha05Singh/gemini-email-agent/internal/model"
	"github.com/akanksha05Singh/gemini-email-agent/internal/store"
)

// Sink records one audit entry per processed email. Entries are
// append-only; nothing ever updates or deletes them.
type Sink interface {
	Record(
		ctx context.Context,
		emailID, subject string,
		classification model.ClassificationResult,
		actions []model.ExecutedAction,
		status string,
	) error
}

// StoreSink persists audit records through the agent store.
type StoreSink struct {
	store  store.Store
	logger *zap.Logger
}

// NewStoreSink creates an audit sink over the given store.
func NewStoreSink(s store.Store, logger *zap.Logger) *StoreSink {
	return &StoreSink{store: s, logger: logger}
}

// Record writes one audit entry. A write failure is returned to the
// caller but must not abort the batch: audit records already committed
// for prior emails remain valid regardless.
func (s *StoreSink) Record(
	ctx context.Context,
	emailID, subject string,
	classification model.ClassificationResult,
	actions []model.ExecutedAction,
	status string,
) error {
	rec := model.AuditRecord{
		ID:             uuid.NewString(),
		EmailID:        emailID,
		Subject:        subject,
		Classification: classification,
		Actions:        actions,
		Status:         status,
		CreatedAt:      time.Now(),
	}

	if err := s.store.AppendAudit(ctx, rec); err != nil {
		return err
	}

	s.logger.Debug("audit record written",
		zap.String("audit_id", rec.ID),
		zap.String("email_id", emailID),
		zap.String("status", status),
	)
	return nil
}
