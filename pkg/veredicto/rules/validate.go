package rules

import (
	"fmt"

	"github.com/ausentia/veredicto/pkg/veredicto/condition"
	"github.com/ausentia/veredicto/pkg/veredicto/internalerr"
)

// DefaultAttributes are the fact names the intake flow produces, plus the
// timestamp-derived helpers the engine seeds. Conditions referencing anything
// outside this set are rejected at admission time.
var DefaultAttributes = []string{
	"motivo",
	"duracion",
	"ausencias_ultimo_mes",
	"certificate_uploaded",
	"certificate_deadline",
	"validation_status",
	"sector",
	"current_hour",
}

const maxRuleIDLength = 50

// ValidateRule checks one rule against the admission contract: id shape,
// priority range, severity enum, parsable condition over known attributes and
// whitelisted functions, and a whitelisted action. known may include derived
// fact names set by other rules in the same set.
func ValidateRule(r Rule, known map[string]struct{}) error {
	if r.ID == "" {
		return fmt.Errorf("rule id: %w", internalerr.ErrInvalidInput)
	}
	if len(r.ID) > maxRuleIDLength {
		return fmt.Errorf("rule %q: id exceeds %d characters: %w", r.ID, maxRuleIDLength, internalerr.ErrInvalidInput)
	}
	for _, c := range r.ID {
		if !isIDChar(c) {
			return fmt.Errorf("rule %q: id may contain only letters, digits, - and _: %w", r.ID, internalerr.ErrInvalidInput)
		}
	}
	if r.Priority < 1 || r.Priority > 100 {
		return fmt.Errorf("rule %q: priority must be in 1..100: %w", r.ID, internalerr.ErrInvalidInput)
	}
	if !r.Severity.Valid() {
		return fmt.Errorf("rule %q: severity must be info, warning or error: %w", r.ID, internalerr.ErrInvalidInput)
	}

	node, err := condition.Parse(r.Condition)
	if err != nil {
		return fmt.Errorf("rule %q: %w", r.ID, err)
	}
	if err := condition.Validate(node, known); err != nil {
		return fmt.Errorf("rule %q: %w", r.ID, err)
	}

	if _, err := ParseAction(r.Action); err != nil {
		return fmt.Errorf("rule %q: %w", r.ID, err)
	}
	return nil
}

func isIDChar(c rune) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '-' || c == '_':
		return true
	}
	return false
}

func attrSet(names []string) map[string]struct{} {
	out := make(map[string]struct{}, len(names))
	for _, n := range names {
		out[n] = struct{}{}
	}
	return out
}
