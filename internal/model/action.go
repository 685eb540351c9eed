package model

// ActionType identifies the kind of action a rule can propose.
type ActionType string

const (
	ActionReply      ActionType = "reply"
	ActionDraftReply ActionType = "draft_reply"
	ActionLabel      ActionType = "label"
	ActionArchive    ActionType = "archive"
)

// Action is a closed tagged variant over the four action kinds.
// Value and Template are per-variant payloads: Value carries the label
// name for ActionLabel; Template references a response template and is
// informational only (the sent text always comes from the oracle's
// SuggestedResponse).
type Action struct {
	Type     ActionType `mapstructure:"type" yaml:"type" json:"type"`
	Value    string     `mapstructure:"value" yaml:"value,omitempty" json:"value,omitempty"`
	Template string     `mapstructure:"template" yaml:"template,omitempty" json:"template,omitempty"`
}

// IsReply reports whether the action is one of the reply variants that
// must pass through the safety gate.
func (a Action) IsReply() bool {
	return a.Type == ActionReply || a.Type == ActionDraftReply
}

// ExecutionMode is the autonomy level granted to a reply action.
type ExecutionMode string

const (
	// ModeSend allows the reply to be sent without review.
	ModeSend ExecutionMode = "send"

	// ModeDraft saves the reply to the drafts mailbox for review.
	ModeDraft ExecutionMode = "draft"

	// ModeManual defers entirely to a human: nothing is sent or drafted.
	ModeManual ExecutionMode = "manual"
)

// IntendedMode maps a reply-type action to the execution mode it asks
// for before any safety checks.
func (a Action) IntendedMode() ExecutionMode {
	if a.Type == ActionDraftReply {
		return ModeDraft
	}
	return ModeSend
}

// ExecutedAction records the outcome of a single resolved action for
// the audit sink.
type ExecutedAction struct {
	// Type is the original action type from the matched rule.
	Type ActionType `json:"type"`

	// Value is the label name, if any.
	Value string `json:"value,omitempty"`

	// Mode is the execution mode actually applied to a reply action.
	Mode ExecutionMode `json:"mode,omitempty"`

	// Simulated marks an action that was recorded under dry run
	// instead of being dispatched.
	Simulated bool `json:"simulated,omitempty"`

	// Executed reports whether the side effect actually happened
	// (or would have, under dry run).
	Executed bool `json:"executed"`

	// Detail carries a short human-readable note, e.g. the drop or
	// failure reason when Executed is false.
	Detail string `json:"detail,omitempty"`
}
