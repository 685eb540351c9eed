package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/akanksha05Singh/gemini-email-agent/internal/mail"
	"github.com/akanksha05Singh/gemini-email-agent/internal/model"
	"github.com/akanksha05Singh/gemini-email-agent/internal/rules"
	"github.com/akanksha05Singh/gemini-email-agent/internal/safety"
)

func strPtr(s string) *string { return &s }

func testSafetyConfig() model.SafetyConfig {
	return model.SafetyConfig{
		MinConfidenceForAutoAction: 0.85,
		MinConfidenceForDraft:      0.60,
		AllowedDomainsForReply:     []string{"*"},
		HumanInTheLoopLabel:        "AI_REVIEW_NEEDED",
	}
}

func testMessage() mail.Message {
	return mail.Message{
		UID:        7,
		MessageID:  "msg-1@example.com",
		Subject:    "Quarterly sync",
		Sender:     "alice@example.com",
		References: "<root@example.com>",
	}
}

// newLiveResolver wires a resolver with a live executor over fakes.
func newLiveResolver(
	t *testing.T,
	ruleList []model.Rule,
	transport *fakeTransport,
	recorder *fakeRecorder,
	allowed bool,
	cfg model.SafetyConfig,
) *Resolver {
	t.Helper()

	logger := zap.NewNop()
	gate := safety.NewGate(
		safety.ThresholdsFromConfig(cfg), &fakeLimiter{allowed: allowed}, logger,
	)
	executor := NewLiveExecutor(transport, recorder, logger)
	return NewResolver(rules.New(ruleList, logger), gate, executor, cfg, logger)
}

func TestResolveMeetingDraftReplyPassesGateUnchanged(t *testing.T) {
	// A draft_reply proposal is not a send: it bypasses both the rate
	// limit (denied here) and confidence revalidation.
	ruleList := []model.Rule{{
		Name: "meetings",
		Condition: model.RuleCondition{
			Intent:   strPtr(model.IntentMeeting),
			Priority: strPtr(model.PriorityHigh),
		},
		Actions: []model.Action{
			{Type: model.ActionLabel, Value: "Urgent-Meeting"},
			{Type: model.ActionDraftReply},
		},
	}}

	transport := &fakeTransport{}
	recorder := &fakeRecorder{}
	r := newLiveResolver(t, ruleList, transport, recorder, false, testSafetyConfig())

	classification := model.ClassificationResult{
		Intent:            model.IntentMeeting,
		Priority:          model.PriorityHigh,
		ConfidenceScore:   0.95,
		SuggestedResponse: "See you there.",
	}

	outcomes, err := r.Resolve(context.Background(), testMessage(), classification)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	assert.Equal(t, model.ActionLabel, outcomes[0].Type)
	assert.True(t, outcomes[0].Executed)
	assert.Equal(t, []appliedLabel{{uid: 7, label: "Urgent-Meeting"}}, transport.labels)

	assert.Equal(t, model.ActionDraftReply, outcomes[1].Type)
	assert.Equal(t, model.ModeDraft, outcomes[1].Mode)
	assert.True(t, outcomes[1].Executed)

	require.Len(t, transport.sent, 1)
	assert.Equal(t, model.ModeDraft, transport.sent[0].mode)
	assert.Equal(t, "msg-1@example.com", transport.sent[0].req.InReplyToID)
	assert.Equal(t, "<root@example.com>", transport.sent[0].req.ReferencesChain)

	// Drafts never consume a rate-limit slot.
	assert.Zero(t, recorder.records)
}

func TestResolveNewsletterLabelArchiveUngated(t *testing.T) {
	ruleList := []model.Rule{{
		Name:      "newsletters",
		Condition: model.RuleCondition{Intent: strPtr(model.IntentNewsletter)},
		Actions: []model.Action{
			{Type: model.ActionLabel, Value: "Newsletters"},
			{Type: model.ActionArchive},
		},
	}}

	transport := &fakeTransport{}
	r := newLiveResolver(t, ruleList, transport, &fakeRecorder{}, false, testSafetyConfig())

	outcomes, err := r.Resolve(context.Background(), testMessage(), model.ClassificationResult{
		Intent:          model.IntentNewsletter,
		ConfidenceScore: 0.99,
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	assert.True(t, outcomes[0].Executed)
	assert.True(t, outcomes[1].Executed)
	assert.Equal(t, []uint32{7}, transport.archived)
	assert.Empty(t, transport.sent)
}

func TestResolveLowConfidenceReplyDroppedWithFallback(t *testing.T) {
	ruleList := []model.Rule{{
		Name: "urgent",
		Condition: model.RuleCondition{
			Intent:   strPtr(model.IntentUrgent),
			Priority: strPtr(model.PriorityHigh),
		},
		Actions: []model.Action{{Type: model.ActionReply}},
	}}

	transport := &fakeTransport{}
	r := newLiveResolver(t, ruleList, transport, &fakeRecorder{}, true, testSafetyConfig())

	outcomes, err := r.Resolve(context.Background(), testMessage(), model.ClassificationResult{
		Intent:            model.IntentUrgent,
		Priority:          model.PriorityHigh,
		ConfidenceScore:   0.55,
		SuggestedResponse: "On it.",
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	// The reply is dropped: gate says manual at 0.55.
	assert.Equal(t, model.ModeManual, outcomes[0].Mode)
	assert.False(t, outcomes[0].Executed)
	assert.Empty(t, transport.sent)

	// Nothing executed and confidence is below the draft threshold, so
	// the review label is applied.
	assert.Equal(t, model.ActionLabel, outcomes[1].Type)
	assert.Equal(t, "AI_REVIEW_NEEDED", outcomes[1].Value)
	assert.True(t, outcomes[1].Executed)
	assert.Equal(t, []appliedLabel{{uid: 7, label: "AI_REVIEW_NEEDED"}}, transport.labels)
}

func TestResolveSpamLabelAppliedWithoutGating(t *testing.T) {
	ruleList := []model.Rule{{
		Name:      "spam",
		Condition: model.RuleCondition{Intent: strPtr(model.IntentSpam)},
		Actions:   []model.Action{{Type: model.ActionLabel, Value: "Potential-Spam"}},
	}}

	transport := &fakeTransport{}
	r := newLiveResolver(t, ruleList, transport, &fakeRecorder{}, false, testSafetyConfig())

	outcomes, err := r.Resolve(context.Background(), testMessage(), model.ClassificationResult{
		Intent:          model.IntentSpam,
		ConfidenceScore: 0.98,
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Executed)
	assert.Equal(t, []appliedLabel{{uid: 7, label: "Potential-Spam"}}, transport.labels)
}

func TestResolveConfidentReplySendsAndConsumesSlot(t *testing.T) {
	ruleList := []model.Rule{{
		Name:      "questions",
		Condition: model.RuleCondition{Intent: strPtr(model.IntentQuestion)},
		Actions:   []model.Action{{Type: model.ActionReply}},
	}}

	transport := &fakeTransport{}
	recorder := &fakeRecorder{}
	r := newLiveResolver(t, ruleList, transport, recorder, true, testSafetyConfig())

	outcomes, err := r.Resolve(context.Background(), testMessage(), model.ClassificationResult{
		Intent:            model.IntentQuestion,
		ConfidenceScore:   0.92,
		SuggestedResponse: "Yes, that works.",
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, model.ModeSend, outcomes[0].Mode)
	assert.True(t, outcomes[0].Executed)

	require.Len(t, transport.sent, 1)
	assert.Equal(t, model.ModeSend, transport.sent[0].mode)
	assert.Equal(t, 1, recorder.records)
}

func TestResolveRateLimitedSendDowngradesToDraft(t *testing.T) {
	ruleList := []model.Rule{{
		Name:      "questions",
		Condition: model.RuleCondition{Intent: strPtr(model.IntentQuestion)},
		Actions:   []model.Action{{Type: model.ActionReply}},
	}}

	transport := &fakeTransport{}
	recorder := &fakeRecorder{}
	r := newLiveResolver(t, ruleList, transport, recorder, false, testSafetyConfig())

	outcomes, err := r.Resolve(context.Background(), testMessage(), model.ClassificationResult{
		Intent:            model.IntentQuestion,
		ConfidenceScore:   0.99,
		SuggestedResponse: "Sure.",
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, model.ModeDraft, outcomes[0].Mode)

	require.Len(t, transport.sent, 1)
	assert.Equal(t, model.ModeDraft, transport.sent[0].mode)
	assert.Zero(t, recorder.records)
}

func TestResolveEmptySuggestedResponseSkipsReply(t *testing.T) {
	ruleList := []model.Rule{{
		Name:      "questions",
		Condition: model.RuleCondition{Intent: strPtr(model.IntentQuestion)},
		Actions:   []model.Action{{Type: model.ActionReply}},
	}}

	transport := &fakeTransport{}
	recorder := &fakeRecorder{}
	r := newLiveResolver(t, ruleList, transport, recorder, true, testSafetyConfig())

	outcomes, err := r.Resolve(context.Background(), testMessage(), model.ClassificationResult{
		Intent:          model.IntentQuestion,
		ConfidenceScore: 0.95,
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.False(t, outcomes[0].Executed)
	assert.Equal(t, "empty suggested response", outcomes[0].Detail)
	assert.Empty(t, transport.sent)
	assert.Zero(t, recorder.records)
}

func TestResolveTransportFailureContinuesBatch(t *testing.T) {
	ruleList := []model.Rule{{
		Name:      "questions",
		Condition: model.RuleCondition{Intent: strPtr(model.IntentQuestion)},
		Actions: []model.Action{
			{Type: model.ActionReply},
			{Type: model.ActionLabel, Value: "Questions"},
		},
	}}

	transport := &fakeTransport{sendErr: errTransport}
	r := newLiveResolver(t, ruleList, transport, &fakeRecorder{}, true, testSafetyConfig())

	outcomes, err := r.Resolve(context.Background(), testMessage(), model.ClassificationResult{
		Intent:            model.IntentQuestion,
		ConfidenceScore:   0.95,
		SuggestedResponse: "Reply text",
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	assert.False(t, outcomes[0].Executed)
	assert.Contains(t, outcomes[0].Detail, "transport failure")

	// The failed reply does not stop the label action.
	assert.True(t, outcomes[1].Executed)
}

func TestResolveConnErrorAbortsBatch(t *testing.T) {
	ruleList := []model.Rule{{
		Name:      "questions",
		Condition: model.RuleCondition{Intent: strPtr(model.IntentQuestion)},
		Actions:   []model.Action{{Type: model.ActionReply}},
	}}

	transport := &fakeTransport{sendErr: connError()}
	r := newLiveResolver(t, ruleList, transport, &fakeRecorder{}, true, testSafetyConfig())

	_, err := r.Resolve(context.Background(), testMessage(), model.ClassificationResult{
		Intent:            model.IntentQuestion,
		ConfidenceScore:   0.95,
		SuggestedResponse: "Reply text",
	})
	require.Error(t, err)
	assert.True(t, mail.IsConnError(err))
}

func TestResolveSenderOutsideAllowlistDropsReply(t *testing.T) {
	cfg := testSafetyConfig()
	cfg.AllowedDomainsForReply = []string{"trusted.example"}

	ruleList := []model.Rule{{
		Name:      "questions",
		Condition: model.RuleCondition{Intent: strPtr(model.IntentQuestion)},
		Actions: []model.Action{
			{Type: model.ActionReply},
			{Type: model.ActionLabel, Value: "Questions"},
		},
	}}

	transport := &fakeTransport{}
	r := newLiveResolver(t, ruleList, transport, &fakeRecorder{}, true, cfg)

	outcomes, err := r.Resolve(context.Background(), testMessage(), model.ClassificationResult{
		Intent:            model.IntentQuestion,
		ConfidenceScore:   0.95,
		SuggestedResponse: "Reply text",
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	assert.False(t, outcomes[0].Executed)
	assert.Contains(t, outcomes[0].Detail, "allowlist")
	assert.Empty(t, transport.sent)

	// Non-reply actions are unaffected by the allowlist.
	assert.True(t, outcomes[1].Executed)
}

func TestResolveNoFallbackWhenActionExecuted(t *testing.T) {
	ruleList := []model.Rule{{
		Name:      "catch-all label",
		Condition: model.RuleCondition{},
		Actions:   []model.Action{{Type: model.ActionLabel, Value: "Seen-By-Agent"}},
	}}

	transport := &fakeTransport{}
	r := newLiveResolver(t, ruleList, transport, &fakeRecorder{}, true, testSafetyConfig())

	outcomes, err := r.Resolve(context.Background(), testMessage(), model.ClassificationResult{
		Intent:          model.IntentOther,
		ConfidenceScore: 0.10,
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, "Seen-By-Agent", outcomes[0].Value)
}

func TestResolveDryRunSimulatesEverything(t *testing.T) {
	ruleList := []model.Rule{{
		Name:      "questions",
		Condition: model.RuleCondition{Intent: strPtr(model.IntentQuestion)},
		Actions: []model.Action{
			{Type: model.ActionReply},
			{Type: model.ActionLabel, Value: "Questions"},
			{Type: model.ActionArchive},
		},
	}}

	logger := zap.NewNop()
	cfg := testSafetyConfig()
	gate := safety.NewGate(
		safety.ThresholdsFromConfig(cfg), &fakeLimiter{allowed: true}, logger,
	)
	r := NewResolver(
		rules.New(ruleList, logger), gate, NewSimulatedExecutor(logger), cfg, logger,
	)

	outcomes, err := r.Resolve(context.Background(), testMessage(), model.ClassificationResult{
		Intent:            model.IntentQuestion,
		ConfidenceScore:   0.95,
		SuggestedResponse: "Reply text",
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	for _, o := range outcomes {
		assert.True(t, o.Simulated)
		assert.True(t, o.Executed)
	}
	assert.Equal(t, model.ModeSend, outcomes[0].Mode)
}

func TestResolveDryRunFallbackIsSimulated(t *testing.T) {
	logger := zap.NewNop()
	cfg := testSafetyConfig()
	gate := safety.NewGate(
		safety.ThresholdsFromConfig(cfg), &fakeLimiter{allowed: true}, logger,
	)
	r := NewResolver(rules.New(nil, logger), gate, NewSimulatedExecutor(logger), cfg, logger)

	outcomes, err := r.Resolve(context.Background(), testMessage(), model.ClassificationResult{
		Intent:          model.IntentOther,
		ConfidenceScore: 0.20,
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, "AI_REVIEW_NEEDED", outcomes[0].Value)
	assert.True(t, outcomes[0].Simulated)
}
