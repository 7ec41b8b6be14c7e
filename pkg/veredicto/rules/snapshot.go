package rules

import (
	"fmt"
	"sort"

	"github.com/ausentia/veredicto/pkg/veredicto/condition"
	"github.com/ausentia/veredicto/pkg/veredicto/internalerr"
)

// Compiled is a rule admitted into a snapshot: the authored record plus its
// pre-parsed condition AST, parsed action and referenced attribute names.
type Compiled struct {
	Rule
	AST  condition.Node
	Act  Action
	Refs []string
}

// Snapshot is an immutable, validated, priority-ordered rule set. Every
// inference run evaluates against exactly one snapshot; edits build a new one
// and swap it through a Source. Rules are never mutated in place.
type Snapshot struct {
	rules []Compiled
	byID  map[string]int
}

// NewSnapshot validates and compiles a rule set against DefaultAttributes.
// Admission fails closed: one invalid rule rejects the whole set.
func NewSnapshot(list []Rule) (*Snapshot, error) {
	return NewSnapshotWithAttributes(list, DefaultAttributes)
}

// NewSnapshotWithAttributes is NewSnapshot with a custom known-attribute set.
// Names a rule derives via set_fact are admissible in any rule's condition,
// which is what makes chained rules validate.
func NewSnapshotWithAttributes(list []Rule, attributes []string) (*Snapshot, error) {
	known := attrSet(attributes)

	// First pass: parse actions and admit derived fact names, so a condition
	// may reference a fact that another rule in the same set derives.
	compiled := make([]Compiled, 0, len(list))
	for _, r := range list {
		act, err := ParseAction(r.Action)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", r.ID, err)
		}
		if act.Verb == ActionSetFact {
			if name, ok := act.Args[0].(string); ok {
				known[name] = struct{}{}
			}
		}
		compiled = append(compiled, Compiled{Rule: r, Act: act})
	}

	byID := make(map[string]int, len(list))
	for i := range compiled {
		r := &compiled[i]
		if _, dup := byID[r.ID]; dup {
			return nil, fmt.Errorf("rule %q: %w", r.ID, internalerr.ErrDuplicate)
		}
		if err := ValidateRule(r.Rule, known); err != nil {
			return nil, err
		}
		node, err := condition.Parse(r.Condition)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", r.ID, err)
		}
		r.AST = node
		r.Refs = condition.Attributes(node)
		byID[r.ID] = i
	}

	// Lower priority fires earlier; insertion order breaks ties.
	sort.SliceStable(compiled, func(i, j int) bool {
		return compiled[i].Priority < compiled[j].Priority
	})
	byID = make(map[string]int, len(compiled))
	for i, r := range compiled {
		byID[r.ID] = i
	}

	return &Snapshot{rules: compiled, byID: byID}, nil
}

// Rules returns the compiled rules in evaluation order. The returned slice
// is a copy; the compiled rules themselves are shared and must be treated as
// read-only.
func (s *Snapshot) Rules() []Compiled {
	out := make([]Compiled, len(s.rules))
	copy(out, s.rules)
	return out
}

// Get returns the compiled rule with the given id.
func (s *Snapshot) Get(id string) (Compiled, bool) {
	if i, ok := s.byID[id]; ok {
		return s.rules[i], true
	}
	return Compiled{}, false
}

// Len returns the number of rules in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.rules)
}

// Raw returns the authored rule records in evaluation order, for
// serialization.
func (s *Snapshot) Raw() []Rule {
	out := make([]Rule, len(s.rules))
	for i, r := range s.rules {
		out[i] = r.Rule
	}
	return out
}
