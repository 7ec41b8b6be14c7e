package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ausentia/veredicto/pkg/veredicto/internalerr"
	"github.com/ausentia/veredicto/pkg/veredicto/store"
)

func openTestStore(t *testing.T) store.CaseStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cases.db")
	s, err := Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testCase(duracion int, outcome string, storedAt time.Time) store.Case {
	return store.NewCase(
		map[string]any{"motivo": "ART", "duracion": duracion, "certificate_uploaded": false},
		[]string{"cert_missing_critical", "excessive_duration"},
		[]string{"sanción aplicada"},
		outcome,
		map[string]float64{"motivo": 1, "duracion": float64(duracion)},
		storedAt,
	)
}

func TestRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	c := testCase(12, "sanctioned", time.Date(2024, 6, 12, 9, 0, 0, 0, time.UTC))
	require.NoError(t, s.Append(ctx, c))

	got, ok, err := s.Get(ctx, c.ID)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, "sanctioned", got.Outcome)
	assert.Equal(t, c.RulesApplied, got.RulesApplied)
	assert.Equal(t, c.ActionsTaken, got.ActionsTaken)
	assert.Equal(t, c.Features, got.Features)
	assert.True(t, got.StoredAt.Equal(c.StoredAt))
	// JSON numbers come back as float64
	assert.Equal(t, float64(12), got.Facts["duracion"])
	assert.Equal(t, false, got.Facts["certificate_uploaded"])
}

func TestGetMissing(t *testing.T) {
	s := openTestStore(t)
	_, ok, err := s.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAppendUpsertKeepsFeedback(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	c := testCase(5, "requires_approval", time.Now())
	require.NoError(t, s.Append(ctx, c))
	require.NoError(t, s.UpdateFeedback(ctx, c.ID, "revisado por RRHH", true))

	// Reprocessing the identical request must not wipe reviewer feedback.
	require.NoError(t, s.Append(ctx, c))

	got, _, err := s.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "revisado por RRHH", got.Feedback)
	assert.True(t, got.ExpertValidation)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestAllOrdering(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	for i := 1; i <= 3; i++ {
		require.NoError(t, s.Append(ctx, testCase(i, "auto_approved", base.Add(time.Duration(i)*time.Hour))))
	}

	all, err := s.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, float64(3), all[0].Facts["duracion"])
	assert.Equal(t, float64(1), all[2].Facts["duracion"])
}

func TestUpdateFeedbackMissingCase(t *testing.T) {
	s := openTestStore(t)
	err := s.UpdateFeedback(context.Background(), "missing", "x", false)
	assert.True(t, errors.Is(err, internalerr.ErrNotFound))
}

func TestReopenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cases.db")
	ctx := context.Background()

	s, err := Open(ctx, path)
	require.NoError(t, err)
	c := testCase(7, "approved_with_conditions", time.Now())
	require.NoError(t, s.Append(ctx, c))
	require.NoError(t, s.Close())

	s2, err := Open(ctx, path)
	require.NoError(t, err)
	defer s2.Close()

	got, ok, err := s2.Get(ctx, c.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "approved_with_conditions", got.Outcome)
}
