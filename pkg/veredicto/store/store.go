package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"
)

// Case is one processed absence request as retained for case-based
// reasoning. Facts holds the serializable input facts; Features holds the
// numeric similarity projection computed at store time so retrieval never
// re-derives it.
type Case struct {
	ID               string
	Facts            map[string]any
	RulesApplied     []string
	ActionsTaken     []string
	Outcome          string
	Feedback         string
	ExpertValidation bool
	Features         map[string]float64
	StoredAt         time.Time
}

// NewCase builds a Case with a content-derived ID: the same facts, rules and
// actions always hash to the same ID, so reprocessing an identical request
// upserts rather than duplicates.
func NewCase(facts map[string]any, rulesApplied, actionsTaken []string, outcome string, features map[string]float64, now time.Time) Case {
	return Case{
		ID:           contentID(facts, rulesApplied, actionsTaken),
		Facts:        facts,
		RulesApplied: append([]string(nil), rulesApplied...),
		ActionsTaken: append([]string(nil), actionsTaken...),
		Outcome:      outcome,
		Features:     features,
		StoredAt:     now,
	}
}

func contentID(facts map[string]any, rulesApplied, actionsTaken []string) string {
	rules := append([]string(nil), rulesApplied...)
	actions := append([]string(nil), actionsTaken...)
	sort.Strings(rules)
	sort.Strings(actions)

	payload, _ := json.Marshal(struct {
		Facts   map[string]any `json:"facts"`
		Rules   []string       `json:"rules"`
		Actions []string       `json:"actions"`
	}{facts, rules, actions})

	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])[:12]
}

// CaseStore persists processed cases for later retrieval.
type CaseStore interface {
	Close() error

	// Append stores a case, replacing any existing case with the same ID.
	Append(ctx context.Context, c Case) error
	// Get returns a case by ID.
	Get(ctx context.Context, id string) (Case, bool, error)
	// All returns every stored case, most recent first.
	All(ctx context.Context) ([]Case, error)
	// UpdateFeedback attaches reviewer feedback to an existing case.
	UpdateFeedback(ctx context.Context, id, feedback string, expertValidation bool) error
	// Count returns the number of stored cases.
	Count(ctx context.Context) (int, error)
}
