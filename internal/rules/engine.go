// Package rules implements the rule matcher that maps a classification
// to the actions configured for it.
package rules

import (
	"go.uber.org/zap"

	"github.com/akanksha05Singh/gemini-email-agent/internal/model"
)

// Engine evaluates classifications against an ordered rule list. Rules
// are loaded once at startup and never change during a run.
type Engine struct {
	rules  []model.Rule
	logger *zap.Logger
}

// New creates an Engine over the given rules. Rule order is preserved:
// it determines the order of emitted actions.
func New(rules []model.Rule, logger *zap.Logger) *Engine {
	return &Engine{rules: rules, logger: logger}
}

// Evaluate returns the concatenated action lists of every rule whose
// condition matches the classification, in declared rule order then
// intra-rule order. Multiple rules may fire for the same email; zero
// matches yields an empty slice, not an error.
func (e *Engine) Evaluate(c model.ClassificationResult) []model.Action {
	var matched []model.Action

	for _, rule := range e.rules {
		if !conditionMatches(rule.Condition, c) {
			continue
		}
		e.logger.Info("rule matched",
			zap.String("rule", rule.Name),
			zap.String("intent", c.Intent),
			zap.String("priority", c.Priority),
		)
		matched = append(matched, rule.Actions...)
	}

	return matched
}

// conditionMatches reports whether every set condition field equals the
// corresponding classification field. Unset fields are wildcards.
func conditionMatches(cond model.RuleCondition, c model.ClassificationResult) bool {
	if cond.Intent != nil && *cond.Intent != c.Intent {
		return false
	}
	if cond.Priority != nil && *cond.Priority != c.Priority {
		return false
	}
	return true
}
