package cbr

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ausentia/veredicto/pkg/veredicto/facts"
	"github.com/ausentia/veredicto/pkg/veredicto/store"
)

const (
	// DefaultMinSimilarity is the retrieval floor; cases scoring below it
	// are never considered similar.
	DefaultMinSimilarity = 0.3
	// DefaultTopK bounds how many similar cases feed a recommendation.
	DefaultTopK = 5
	// patternAlertThreshold flags an unusually consistent precedent set.
	patternAlertThreshold = 0.8
)

// Recommendation types.
const (
	TypeOutcomePrediction = "outcome_prediction"
	TypeActionSuggestion  = "action_suggestion"
	TypePatternAlert      = "pattern_alert"
)

// Match pairs a stored case with its similarity to the current request.
type Match struct {
	Case             store.Case
	Similarity       float64
	MatchingFeatures []string
}

// Recommendation is one piece of advice derived from similar cases.
type Recommendation struct {
	Type              string
	Suggestion        string
	Confidence        float64
	Reasoning         string
	SupportingCaseIDs []string
}

// Options configures a Recommender.
type Options struct {
	// Weights replaces DefaultWeights when non-nil.
	Weights Weights
	// MinSimilarity replaces DefaultMinSimilarity when positive.
	MinSimilarity float64
	// TopK replaces DefaultTopK when positive.
	TopK int
	// Clock anchors deadline-derived features. time.Now when nil.
	Clock func() time.Time
}

// Recommender retrieves precedents from a case store and turns them into
// recommendations for the current request.
type Recommender struct {
	cases         store.CaseStore
	weights       Weights
	minSimilarity float64
	topK          int
	clock         func() time.Time
}

// New creates a Recommender over the given case store.
func New(cases store.CaseStore, opts Options) (*Recommender, error) {
	w := opts.Weights
	if w == nil {
		w = DefaultWeights()
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	minSim := opts.MinSimilarity
	if minSim <= 0 {
		minSim = DefaultMinSimilarity
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Recommender{
		cases:         cases,
		weights:       w,
		minSimilarity: minSim,
		topK:          topK,
		clock:         clock,
	}, nil
}

// Extract projects a request onto this recommender's feature space.
func (r *Recommender) Extract(fs facts.FactSet) Vector {
	return Extract(fs, r.clock())
}

// FindSimilar returns the top matches for the request, best first. Ties on
// similarity break toward the more recently stored case.
func (r *Recommender) FindSimilar(ctx context.Context, fs facts.FactSet) ([]Match, error) {
	all, err := r.cases.All(ctx)
	if err != nil {
		return nil, err
	}
	current := r.Extract(fs)

	var matches []Match
	for _, c := range all {
		sim := Similarity(current, Vector(c.Features), r.weights)
		if sim < r.minSimilarity {
			continue
		}
		matches = append(matches, Match{
			Case:             c,
			Similarity:       sim,
			MatchingFeatures: MatchingFeatures(current, Vector(c.Features), r.weights),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if len(matches) > r.topK {
		matches = matches[:r.topK]
	}
	return matches, nil
}

// Recommend analyzes the precedents for a request. With no sufficiently
// similar case it returns no recommendations and zero confidence.
func (r *Recommender) Recommend(ctx context.Context, fs facts.FactSet) ([]Recommendation, []Match, error) {
	matches, err := r.FindSimilar(ctx, fs)
	if err != nil {
		return nil, nil, err
	}
	if len(matches) == 0 {
		return nil, nil, nil
	}

	outcome, confidence, supporting := predictOutcome(matches)

	recs := []Recommendation{{
		Type:              TypeOutcomePrediction,
		Suggestion:        fmt.Sprintf("Outcome más probable: %s", outcome),
		Confidence:        confidence,
		Reasoning:         fmt.Sprintf("Basado en %d casos similares", len(matches)),
		SupportingCaseIDs: supporting,
	}}

	if action, actionConf, ids := topAction(matches); action != "" {
		recs = append(recs, Recommendation{
			Type:              TypeActionSuggestion,
			Suggestion:        fmt.Sprintf("Acción recomendada: %s", action),
			Confidence:        actionConf,
			Reasoning:         "Acción frecuente en los casos similares",
			SupportingCaseIDs: ids,
		})
	}

	if confidence > patternAlertThreshold {
		recs = append(recs, Recommendation{
			Type:              TypePatternAlert,
			Suggestion:        "Patrón muy consistente detectado",
			Confidence:        confidence,
			Reasoning:         "Los casos similares muestran un resultado muy consistente",
			SupportingCaseIDs: supporting,
		})
	}

	return recs, matches, nil
}

// predictOutcome picks the modal outcome among the matches. Confidence is
// the mean similarity of the agreeing cases, so one near-identical precedent
// outweighs several vaguely similar ones. Ties break toward the outcome
// whose supporters are more similar on average.
func predictOutcome(matches []Match) (outcome string, confidence float64, supporting []string) {
	type tally struct {
		count  int
		simSum float64
		ids    []string
	}
	byOutcome := map[string]*tally{}
	for _, m := range matches {
		t := byOutcome[m.Case.Outcome]
		if t == nil {
			t = &tally{}
			byOutcome[m.Case.Outcome] = t
		}
		t.count++
		t.simSum += m.Similarity
		t.ids = append(t.ids, m.Case.ID)
	}

	var best *tally
	for o, t := range byOutcome {
		if best == nil {
			outcome, best = o, t
			continue
		}
		if t.count > best.count ||
			(t.count == best.count && t.simSum/float64(t.count) > best.simSum/float64(best.count)) {
			outcome, best = o, t
		}
	}
	return outcome, best.simSum / float64(best.count), best.ids
}

// topAction returns the action seen with the highest similarity-weighted
// frequency across the matches.
func topAction(matches []Match) (action string, confidence float64, supporting []string) {
	weights := map[string]float64{}
	ids := map[string][]string{}
	var totalSim float64
	for _, m := range matches {
		totalSim += m.Similarity
		for _, a := range m.Case.ActionsTaken {
			weights[a] += m.Similarity
			ids[a] = append(ids[a], m.Case.ID)
		}
	}
	if len(weights) == 0 || totalSim == 0 {
		return "", 0, nil
	}
	actions := make([]string, 0, len(weights))
	for a := range weights {
		actions = append(actions, a)
	}
	sort.Strings(actions) // deterministic tie-break
	for _, a := range actions {
		if action == "" || weights[a] > weights[action] {
			action = a
		}
	}
	return action, weights[action] / totalSim, ids[action]
}
