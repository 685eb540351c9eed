package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/akanksha05Singh/gemini-email-agent/internal/mail"
	"github.com/akanksha05Singh/gemini-email-agent/internal/model"
)

// fakeTransport records transport calls and returns injectable errors.
type fakeTransport struct {
	unread []mail.Message

	fetchErr error
	sendErr  error
	labelErr error

	sent     []sentReply
	labels   []appliedLabel
	archived []uint32
	seen     []uint32
}

type sentReply struct {
	req  mail.ReplyRequest
	mode model.ExecutionMode
}

type appliedLabel struct {
	uid   uint32
	label string
}

func (f *fakeTransport) FetchUnread(context.Context, int) ([]mail.Message, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.unread, nil
}

func (f *fakeTransport) SendOrDraft(
	_ context.Context, req mail.ReplyRequest, mode model.ExecutionMode,
) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, sentReply{req: req, mode: mode})
	return nil
}

func (f *fakeTransport) ApplyLabel(_ context.Context, uid uint32, label string) error {
	if f.labelErr != nil {
		return f.labelErr
	}
	f.labels = append(f.labels, appliedLabel{uid: uid, label: label})
	return nil
}

func (f *fakeTransport) Archive(_ context.Context, uid uint32) error {
	f.archived = append(f.archived, uid)
	return nil
}

func (f *fakeTransport) MarkSeen(_ context.Context, uid uint32) error {
	f.seen = append(f.seen, uid)
	return nil
}

// fakeRecorder counts rate-limit slots consumed.
type fakeRecorder struct {
	records int
}

func (f *fakeRecorder) RecordSend(context.Context) { f.records++ }

// fakeLimiter is a safety.SendLimiter with a fixed answer.
type fakeLimiter struct {
	allowed bool
}

func (f *fakeLimiter) CheckAllowed(context.Context) bool { return f.allowed }

// fakeOracle returns a canned classification, optionally with the
// degraded-result error the contract allows.
type fakeOracle struct {
	result model.ClassificationResult
	err    error
}

func (f *fakeOracle) Classify(
	context.Context, string, string, string,
) (model.ClassificationResult, error) {
	if f.err != nil {
		return model.FallbackClassification("oracle error"), f.err
	}
	return f.result, nil
}

// fakeSink collects audit records in memory.
type fakeSink struct {
	records []recordedAudit
	err     error
}

type recordedAudit struct {
	emailID        string
	subject        string
	classification model.ClassificationResult
	actions        []model.ExecutedAction
	status         string
}

func (f *fakeSink) Record(
	_ context.Context,
	emailID, subject string,
	classification model.ClassificationResult,
	actions []model.ExecutedAction,
	status string,
) error {
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, recordedAudit{
		emailID:        emailID,
		subject:        subject,
		classification: classification,
		actions:        actions,
		status:         status,
	})
	return nil
}

var errTransport = errors.New("transport failure")

func connError() error {
	return fmt.Errorf("sending: %w", &mail.ConnError{Op: "dial", Message: "unreachable"})
}
