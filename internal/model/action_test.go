package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActionIsReply(t *testing.T) {
	assert.True(t, Action{Type: ActionReply}.IsReply())
	assert.True(t, Action{Type: ActionDraftReply}.IsReply())
	assert.False(t, Action{Type: ActionLabel}.IsReply())
	assert.False(t, Action{Type: ActionArchive}.IsReply())
}

func TestActionIntendedMode(t *testing.T) {
	assert.Equal(t, ModeSend, Action{Type: ActionReply}.IntendedMode())
	assert.Equal(t, ModeDraft, Action{Type: ActionDraftReply}.IntendedMode())
}

func TestFallbackClassification(t *testing.T) {
	c := FallbackClassification("parse failure")

	assert.Equal(t, IntentOther, c.Intent)
	assert.Equal(t, PriorityLow, c.Priority)
	assert.Zero(t, c.ConfidenceScore)
	assert.Empty(t, c.SuggestedResponse)
	assert.Contains(t, c.Reasoning, "parse failure")
}
