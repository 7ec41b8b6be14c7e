package cbr

import (
	"context"
	"testing"
	"time"

	"github.com/ausentia/veredicto/pkg/veredicto/facts"
	"github.com/ausentia/veredicto/pkg/veredicto/store"
	"github.com/ausentia/veredicto/pkg/veredicto/store/memstore"
)

func fixedNow() time.Time { return extractClock }

func storeCase(t *testing.T, s store.CaseStore, fs facts.FactSet, outcome string, actions []string, storedAt time.Time) store.Case {
	t.Helper()
	c := store.NewCase(fs.Map(), nil, actions, outcome, Extract(fs, extractClock), storedAt)
	if err := s.Append(context.Background(), c); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	return c
}

func newRecommender(t *testing.T, s store.CaseStore) *Recommender {
	t.Helper()
	r, err := New(s, Options{Clock: fixedNow})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return r
}

func TestEmptyStoreNoRecommendations(t *testing.T) {
	s := memstore.New()
	r := newRecommender(t, s)

	recs, matches, err := r.Recommend(context.Background(), artFacts(5, 1, false))
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}
	if len(recs) != 0 || len(matches) != 0 {
		t.Errorf("empty store produced recs=%v matches=%v", recs, matches)
	}
}

func TestIdenticalCaseRanksFirst(t *testing.T) {
	s := memstore.New()
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	current := artFacts(8, 2, false)
	twin := storeCase(t, s, current, "requires_approval", nil, base)
	storeCase(t, s, artFacts(2, 0, true), "auto_approved", nil, base.Add(time.Hour))

	r := newRecommender(t, s)
	matches, err := r.FindSimilar(context.Background(), current)
	if err != nil {
		t.Fatalf("FindSimilar failed: %v", err)
	}
	if len(matches) == 0 {
		t.Fatal("expected at least the identical case")
	}
	if matches[0].Case.ID != twin.ID {
		t.Errorf("first match = %s, want the identical case %s", matches[0].Case.ID, twin.ID)
	}
	if matches[0].Similarity < 0.999 {
		t.Errorf("identical case similarity = %v, want 1", matches[0].Similarity)
	}
	for i := 1; i < len(matches); i++ {
		if matches[i].Similarity > matches[i-1].Similarity {
			t.Error("matches must be sorted by similarity descending")
		}
	}
}

func TestMinSimilarityFloor(t *testing.T) {
	s := memstore.New()
	// A case with nothing in common with an ART request.
	storeCase(t, s, facts.MustNew(map[string]any{
		"motivo":               "Permiso Gremial",
		"duracion":             30,
		"ausencias_ultimo_mes": 6,
		"certificate_uploaded": true,
		"validation_status":    "pending",
		"sector":               "RH",
	}), "rejected", nil, time.Now())

	r, err := New(s, Options{Clock: fixedNow, MinSimilarity: 0.9})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	matches, err := r.FindSimilar(context.Background(), artFacts(2, 0, false))
	if err != nil {
		t.Fatalf("FindSimilar failed: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("dissimilar case passed a 0.9 floor: %+v", matches)
	}
}

func TestTopKBound(t *testing.T) {
	s := memstore.New()
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	// Eight distinct durations, so the content-derived IDs do not collapse
	// any of them into one stored case.
	for i := 0; i < 8; i++ {
		storeCase(t, s, artFacts(3+i, 1, false), "requires_approval", nil, base.Add(time.Duration(i)*time.Minute))
	}
	if n, err := s.Count(context.Background()); err != nil || n != 8 {
		t.Fatalf("stored %d cases (err %v), want 8", n, err)
	}

	r, err := New(s, Options{Clock: fixedNow, TopK: 3})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	matches, err := r.FindSimilar(context.Background(), artFacts(5, 1, false))
	if err != nil {
		t.Fatalf("FindSimilar failed: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("got %d matches, want top 3", len(matches))
	}
	if matches[0].Similarity < 0.999 {
		t.Errorf("best match similarity = %v, want the identical duration first", matches[0].Similarity)
	}
}

func TestOutcomePredictionModal(t *testing.T) {
	s := memstore.New()
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	// Two near-identical sanctioned precedents against one looser approval.
	storeCase(t, s, artFacts(12, 3, false), "sanctioned", []string{"sanción aplicada"}, base)
	storeCase(t, s, artFacts(11, 3, false), "sanctioned", []string{"sanción aplicada"}, base.Add(time.Minute))
	storeCase(t, s, artFacts(4, 1, true), "auto_approved", nil, base.Add(2*time.Minute))

	r := newRecommender(t, s)
	recs, matches, err := r.Recommend(context.Background(), artFacts(12, 3, false))
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}
	if len(matches) == 0 || len(recs) == 0 {
		t.Fatal("expected recommendations")
	}

	first := recs[0]
	if first.Type != TypeOutcomePrediction {
		t.Fatalf("first recommendation type = %s", first.Type)
	}
	if first.Suggestion != "Outcome más probable: sanctioned" {
		t.Errorf("prediction = %q", first.Suggestion)
	}
	if first.Confidence <= 0.9 {
		t.Errorf("confidence = %v, want mean similarity of the two close precedents", first.Confidence)
	}
	if len(first.SupportingCaseIDs) != 2 {
		t.Errorf("supporting cases = %v, want the two sanctioned ones", first.SupportingCaseIDs)
	}
}

func TestActionSuggestionAndPatternAlert(t *testing.T) {
	s := memstore.New()
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		storeCase(t, s, artFacts(12, 3, false), "sanctioned",
			[]string{"sanción aplicada"}, base.Add(time.Duration(i)*time.Minute))
	}

	r := newRecommender(t, s)
	recs, _, err := r.Recommend(context.Background(), artFacts(12, 3, false))
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}

	byType := map[string]Recommendation{}
	for _, rec := range recs {
		byType[rec.Type] = rec
	}
	action, ok := byType[TypeActionSuggestion]
	if !ok {
		t.Fatal("expected an action suggestion")
	}
	if action.Suggestion != "Acción recomendada: sanción aplicada" {
		t.Errorf("action suggestion = %q", action.Suggestion)
	}
	if _, ok := byType[TypePatternAlert]; !ok {
		t.Error("fully consistent precedents should raise a pattern alert")
	}
}

func TestConfidenceIsMeanOfAgreeingCases(t *testing.T) {
	s := memstore.New()
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	// One identical precedent and one vaguely similar one with the same
	// outcome: confidence is their mean similarity, not a vote share.
	current := artFacts(10, 2, false)
	storeCase(t, s, current, "requires_approval", nil, base)
	storeCase(t, s, artFacts(3, 1, false), "requires_approval", nil, base.Add(time.Minute))

	r := newRecommender(t, s)
	recs, matches, err := r.Recommend(context.Background(), current)
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}
	if len(recs) == 0 {
		t.Fatal("expected a prediction")
	}

	var sum float64
	for _, m := range matches {
		sum += m.Similarity
	}
	mean := sum / float64(len(matches))
	if diff := recs[0].Confidence - mean; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("confidence = %v, want mean similarity %v", recs[0].Confidence, mean)
	}
}
