// Package mail implements the IMAP/SMTP transport the agent uses to
// fetch, answer, label, and archive messages.
package mail

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akanksha05Singh/gemini-email-agent/internal/model"
)

// Message is one unread email as fetched from the inbox, with the
// threading context needed to reply to it.
type Message struct {
	// UID is the message's IMAP UID within INBOX.
	UID uint32

	// MessageID is the RFC 5322 Message-ID header value, without
	// angle brackets.
	MessageID string

	// Subject is the decoded subject line.
	Subject string

	// Sender is the sender's address.
	Sender string

	// SenderName is the sender's display name, if any.
	SenderName string

	// Date is the message date.
	Date time.Time

	// Body is the extracted plain-text body (HTML-stripped fallback).
	Body string

	// References is the existing References header chain.
	References string
}

// ReplyRequest carries everything needed to send or draft a threaded
// reply to a message.
type ReplyRequest struct {
	To              string
	Subject         string
	Body            string
	InReplyToID     string
	ReferencesChain string
}

// Transport is the mail collaborator contract consumed by the agent
// core. All methods are blocking; per-message failures return ordinary
// errors, connectivity and authentication failures return a ConnError.
type Transport interface {
	// FetchUnread returns up to limit unread messages from the inbox,
	// most recent last. Messages are fetched with PEEK and stay unread.
	FetchUnread(ctx context.Context, limit int) ([]Message, error)

	// SendOrDraft sends the reply via SMTP (ModeSend) or appends it to
	// the drafts mailbox (ModeDraft). ModeManual is invalid here.
	SendOrDraft(ctx context.Context, req ReplyRequest, mode model.ExecutionMode) error

	// ApplyLabel files a copy of the message under the named mailbox,
	// creating it if needed.
	ApplyLabel(ctx context.Context, uid uint32, label string) error

	// Archive moves the message out of the inbox.
	Archive(ctx context.Context, uid uint32) error

	// MarkSeen flags the message as read.
	MarkSeen(ctx context.Context, uid uint32) error
}

// ConnError indicates the mail server cannot be reached or refuses the
// credentials. It aborts the batch, unlike per-message errors.
type ConnError struct {
	Op      string
	Message string
}

func (e *ConnError) Error() string {
	return fmt.Sprintf("mail connection error (%s): %s", e.Op, e.Message)
}

// IsConnError reports whether err (or any error in its chain) is a
// ConnError.
func IsConnError(err error) bool {
	var connErr *ConnError
	return errors.As(err, &connErr)
}
