package model

// Intent category constants reported by the oracle and matched by rules.
// The oracle is prompted to pick from this set; unknown or unparseable
// output degrades to IntentOther.
const (
	IntentMeeting    = "Meeting"
	IntentUrgent     = "Urgent"
	IntentNewsletter = "Newsletter"
	IntentSpam       = "Spam"
	IntentQuestion   = "Question"
	IntentOther      = "Other"
)

// Priority level constants reported by the oracle.
const (
	PriorityHigh   = "High"
	PriorityMedium = "Medium"
	PriorityLow    = "Low"
)

// ClassificationResult is the structured analysis of a single email as
// returned by the AI oracle. It is immutable once received; the core
// never writes to it.
type ClassificationResult struct {
	// Intent is the categorical purpose of the email (use Intent* constants).
	Intent string `json:"intent"`

	// Priority is the urgency level (use Priority* constants).
	Priority string `json:"priority"`

	// ConfidenceScore is the oracle's certainty in [0,1]. The range is
	// expected, not enforced; the safety gate treats it as-is.
	ConfidenceScore float64 `json:"confidence_score"`

	// SuggestedResponse is the reply text proposed by the oracle.
	// May be empty, in which case no reply can be sent.
	SuggestedResponse string `json:"suggested_response"`

	// Entities holds free-form extracted fields (names, dates, counts).
	// Values are whatever JSON the oracle emits; nothing downstream
	// depends on their shape.
	Entities map[string]any `json:"entities,omitempty"`

	// Reasoning is the oracle's explanation for the classification.
	Reasoning string `json:"reasoning"`
}

// FallbackClassification returns the well-formed low-confidence result
// substituted when the oracle fails. It routes every downstream decision
// to the manual/review path.
func FallbackClassification(reason string) ClassificationResult {
	return ClassificationResult{
		Intent:            IntentOther,
		Priority:          PriorityLow,
		ConfidenceScore:   0.0,
		SuggestedResponse: "",
		Entities:          map[string]any{},
		Reasoning:         reason,
	}
}
