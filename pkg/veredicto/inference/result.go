package inference

import (
	"time"

	"github.com/ausentia/veredicto/pkg/veredicto/rules"
)

// TerminationReason says how a run ended.
type TerminationReason string

const (
	// TerminatedFixpoint means a full pass fired no rule and derived no
	// new fact.
	TerminatedFixpoint TerminationReason = "fixpoint"
	// TerminatedIterationCap means the pass cap was hit first. Reported,
	// not fatal: all partial results are intact.
	TerminatedIterationCap TerminationReason = "iteration_cap"
)

// Step records one rule's part in a run. Fired steps appear in firing order;
// rules that never fired follow in priority order with Fired false.
type Step struct {
	RuleID          string
	RuleName        string
	Severity        rules.Severity
	Fired           bool
	FactsReferenced []string
	ActionEffect    string
	SetFact         string // fact name, when the action derived one
	Err             string // evaluation error note, when the rule was skipped
}

// Result is the full trace of one forward-chaining run.
type Result struct {
	RunID            string
	Steps            []Step
	RulesTriggered   int
	Observations     []string
	SanctionApplied  bool
	SanctionReason   string
	RequiresApproval bool
	ApprovalReason   string
	DerivedFacts     map[string]any
	TerminatedBy     TerminationReason
	ExecutionTime    time.Duration
}

// FiredRuleIDs returns the ids of fired rules in firing order.
func (r *Result) FiredRuleIDs() []string {
	var out []string
	for _, s := range r.Steps {
		if s.Fired {
			out = append(out, s.RuleID)
		}
	}
	return out
}

// ActionsTaken returns the effect descriptions of fired rules in firing
// order.
func (r *Result) ActionsTaken() []string {
	var out []string
	for _, s := range r.Steps {
		if s.Fired {
			out = append(out, s.ActionEffect)
		}
	}
	return out
}
