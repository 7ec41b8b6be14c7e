package inference

import "github.com/ausentia/veredicto/pkg/veredicto/rules"

// Outcome is the final disposition of one absence request.
type Outcome string

const (
	OutcomeSanctioned             Outcome = "sanctioned"
	OutcomeRejected               Outcome = "rejected"
	OutcomeRequiresApproval       Outcome = "requires_approval"
	OutcomeApprovedWithConditions Outcome = "approved_with_conditions"
	OutcomeAutoApproved           Outcome = "auto_approved"
)

// RiskLevel buckets the accumulated risk points of a run.
type RiskLevel string

const (
	RiskMinimal RiskLevel = "MINIMAL"
	RiskLow     RiskLevel = "LOW"
	RiskMedium  RiskLevel = "MEDIUM"
	RiskHigh    RiskLevel = "HIGH"
)

// CriticalViolationFact is the reserved derived fact a rule sets to route a
// request into outright rejection.
const CriticalViolationFact = "critical_violation"

// Classify maps a finished run to its outcome and risk level. Pure function;
// the precedence sanctioned > rejected > requires_approval > conditional >
// auto-approved is fixed here and locked by tests, not left to rule order.
func Classify(res *Result) (Outcome, RiskLevel) {
	points := 0
	for _, s := range res.Steps {
		if !s.Fired {
			continue
		}
		switch s.Severity {
		case rules.SeverityError:
			points += 2
		case rules.SeverityWarning:
			points++
		}
	}
	if res.SanctionApplied {
		points += 2
	}
	if res.RequiresApproval {
		points++
	}

	risk := riskFor(points)

	var outcome Outcome
	switch {
	case res.SanctionApplied:
		outcome = OutcomeSanctioned
	case criticalViolation(res):
		outcome = OutcomeRejected
	case res.RequiresApproval:
		outcome = OutcomeRequiresApproval
	case risk == RiskMedium || risk == RiskHigh:
		outcome = OutcomeApprovedWithConditions
	default:
		outcome = OutcomeAutoApproved
	}
	return outcome, risk
}

func riskFor(points int) RiskLevel {
	switch {
	case points >= 5:
		return RiskHigh
	case points >= 3:
		return RiskMedium
	case points >= 1:
		return RiskLow
	default:
		return RiskMinimal
	}
}

func criticalViolation(res *Result) bool {
	switch v := res.DerivedFacts[CriticalViolationFact].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	}
	return false
}
