package model

import "time"

// AuditRecord is one append-only audit entry, emitted once per
// processed email.
type AuditRecord struct {
	// ID is the unique identifier for this record.
	ID string `json:"id"`

	// EmailID is the Message-ID of the processed email.
	EmailID string `json:"email_id"`

	// Subject is the email subject at processing time.
	Subject string `json:"subject"`

	// Classification is the oracle result the decisions were based on.
	Classification ClassificationResult `json:"classification"`

	// Actions is the final list of executed and simulated actions.
	Actions []ExecutedAction `json:"actions"`

	// Status is the terminal status marker for the email.
	Status string `json:"status"`

	// CreatedAt is when the record was written.
	CreatedAt time.Time `json:"created_at"`
}

// Audit status markers.
const (
	AuditStatusCompleted = "completed"
	AuditStatusError     = "error"
)
