package memstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ausentia/veredicto/pkg/veredicto/internalerr"
	"github.com/ausentia/veredicto/pkg/veredicto/store"
)

func sampleCase(outcome string, storedAt time.Time) store.Case {
	return store.NewCase(
		map[string]any{"motivo": "ART", "duracion": 5},
		[]string{"cert_missing_critical"},
		[]string{"observación agregada: certificado faltante"},
		outcome,
		map[string]float64{"motivo": 1, "duracion": 5},
		storedAt,
	)
}

func TestAppendAndGet(t *testing.T) {
	s := New()
	defer s.Close()
	ctx := context.Background()

	c := sampleCase("sanctioned", time.Now())
	require.NoError(t, s.Append(ctx, c))

	got, ok, err := s.Get(ctx, c.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, c.Outcome, got.Outcome)
	assert.Equal(t, c.RulesApplied, got.RulesApplied)
	assert.Equal(t, c.Features, got.Features)

	_, ok, err = s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAppendEmptyID(t *testing.T) {
	s := New()
	err := s.Append(context.Background(), store.Case{})
	assert.True(t, errors.Is(err, internalerr.ErrInvalidInput))
}

func TestContentIDStable(t *testing.T) {
	now := time.Now()
	a := sampleCase("sanctioned", now)
	b := sampleCase("sanctioned", now.Add(time.Hour))
	assert.Equal(t, a.ID, b.ID, "same content must hash to the same id")
	assert.Len(t, a.ID, 12)

	c := store.NewCase(
		map[string]any{"motivo": "ART", "duracion": 6},
		nil, nil, "auto_approved", nil, now,
	)
	assert.NotEqual(t, a.ID, c.ID, "different facts must hash differently")
}

func TestAppendSameIDReplaces(t *testing.T) {
	s := New()
	ctx := context.Background()

	c := sampleCase("sanctioned", time.Now())
	require.NoError(t, s.Append(ctx, c))
	c.Outcome = "requires_approval"
	require.NoError(t, s.Append(ctx, c))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, _, _ := s.Get(ctx, c.ID)
	assert.Equal(t, "requires_approval", got.Outcome)
}

func TestAllMostRecentFirst(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		c := store.NewCase(
			map[string]any{"duracion": i},
			nil, nil, "auto_approved", nil,
			base.Add(time.Duration(i)*time.Hour),
		)
		require.NoError(t, s.Append(ctx, c))
	}

	all, err := s.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i].StoredAt.After(all[i-1].StoredAt), "cases must be most recent first")
	}
}

func TestUpdateFeedback(t *testing.T) {
	s := New()
	ctx := context.Background()

	c := sampleCase("sanctioned", time.Now())
	require.NoError(t, s.Append(ctx, c))

	require.NoError(t, s.UpdateFeedback(ctx, c.ID, "decisión correcta", true))
	got, _, _ := s.Get(ctx, c.ID)
	assert.Equal(t, "decisión correcta", got.Feedback)
	assert.True(t, got.ExpertValidation)

	err := s.UpdateFeedback(ctx, "missing", "x", false)
	assert.True(t, errors.Is(err, internalerr.ErrNotFound))
}

func TestReturnedCasesAreCopies(t *testing.T) {
	s := New()
	ctx := context.Background()

	c := sampleCase("sanctioned", time.Now())
	require.NoError(t, s.Append(ctx, c))

	got, _, _ := s.Get(ctx, c.ID)
	got.Facts["motivo"] = "tampered"
	got.Features["duracion"] = -1

	again, _, _ := s.Get(ctx, c.ID)
	assert.Equal(t, "ART", again.Facts["motivo"])
	assert.Equal(t, 5.0, again.Features["duracion"])
}

func TestConcurrentAppend(t *testing.T) {
	s := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := store.NewCase(
				map[string]any{"duracion": i, "worker": fmt.Sprintf("w%d", i)},
				nil, nil, "auto_approved", nil, time.Now(),
			)
			_ = s.Append(ctx, c)
		}(i)
	}
	wg.Wait()

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, n)
}
