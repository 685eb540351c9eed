package store

import (
	"context"
	"time"

	"github.com/akanksha05Singh/gemini-email-agent/internal/model"
)

// Store defines the persistence interface for the agent's durable
// state: the rate-limit send log and the audit log.
type Store interface {
	// GetSendLog returns the persisted send timestamps in ascending order.
	GetSendLog(ctx context.Context) ([]time.Time, error)

	// ReplaceSendLog rewrites the persisted send log in full. Called on
	// every rate-limiter check and record, so the durable copy always
	// mirrors the pruned in-memory window.
	ReplaceSendLog(ctx context.Context, timestamps []time.Time) error

	// AppendAudit writes one audit record. Records are never updated
	// or deleted.
	AppendAudit(ctx context.Context, rec model.AuditRecord) error

	// GetAuditRecords returns the most recent audit records, newest
	// first, up to limit.
	GetAuditRecords(ctx context.Context, limit int) ([]model.AuditRecord, error)
}
