package condition

import (
	"errors"
	"testing"
	"time"

	"github.com/ausentia/veredicto/pkg/veredicto/facts"
	"github.com/ausentia/veredicto/pkg/veredicto/internalerr"
)

func testEnv(t *testing.T, attrs map[string]any) Env {
	t.Helper()
	fs, err := facts.New(attrs)
	if err != nil {
		t.Fatalf("facts.New failed: %v", err)
	}
	return Env{Facts: fs, Now: func() time.Time {
		// A Wednesday at noon.
		return time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
	}}
}

func mustEval(t *testing.T, expr string, env Env) bool {
	t.Helper()
	n, err := Parse(expr)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", expr, err)
	}
	got, err := EvalBool(n, env)
	if err != nil {
		t.Fatalf("EvalBool(%q) failed: %v", expr, err)
	}
	return got
}

func TestEvalComparisons(t *testing.T) {
	env := testEnv(t, map[string]any{
		"motivo":               "ART",
		"duracion":             12,
		"ausencias_ultimo_mes": 3,
		"certificate_uploaded": false,
		"validation_status":    "validated",
	})

	cases := []struct {
		expr string
		want bool
	}{
		{`motivo == "ART"`, true},
		{`motivo != "ART"`, false},
		{`duracion > 10`, true},
		{`duracion >= 12`, true},
		{`duracion < 12`, false},
		{`ausencias_ultimo_mes <= 3`, true},
		{`duracion > 10.5`, true},
		{`certificate_uploaded == false`, true},
		{`not certificate_uploaded`, true},
		{`motivo in ["ART", "Permiso Gremial"]`, true},
		{`motivo not in ["Permiso Gremial"]`, true},
		{`motivo == "ART" and duracion > 10`, true},
		{`motivo == "ART" and duracion > 20`, false},
		{`duracion > 20 or ausencias_ultimo_mes >= 3`, true},
		{`not (motivo == "ART" and certificate_uploaded)`, true},
		{`validation_status == "validated" and not certificate_uploaded`, true},
	}
	for _, tc := range cases {
		if got := mustEval(t, tc.expr, env); got != tc.want {
			t.Errorf("%q = %v, want %v", tc.expr, got, tc.want)
		}
	}
}

func TestEvalMissingAttributeIsFalse(t *testing.T) {
	env := testEnv(t, map[string]any{"duracion": 5})

	cases := []string{
		`motivo == "ART"`,
		`ausencias_ultimo_mes > 0`,
		`motivo in ["ART"]`,
	}
	for _, expr := range cases {
		if got := mustEval(t, expr, env); got {
			t.Errorf("%q with missing attribute should be false", expr)
		}
	}

	// A bare missing attribute in boolean position is false, so its
	// negation is true. Matches how authors write "not certificate_uploaded"
	// against requests that never saw an upload step.
	if got := mustEval(t, `not certificate_uploaded`, env); !got {
		t.Error("negation of a missing attribute should be true")
	}
}

func TestEvalRequiredAttributeAbsent(t *testing.T) {
	fs := facts.MustNew(map[string]any{"duracion": 5})
	env := Env{Facts: fs, Required: map[string]bool{"motivo": true}}

	n, err := Parse(`motivo == "ART"`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	_, err = EvalBool(n, env)
	if !errors.Is(err, internalerr.ErrEvaluation) {
		t.Errorf("expected ErrEvaluation for required attribute, got %v", err)
	}
}

func TestEvalTypeMismatch(t *testing.T) {
	env := testEnv(t, map[string]any{"motivo": "ART", "duracion": 5})

	// Ordering a string against a number is a rule bug, not a silent false.
	n, err := Parse(`motivo > 5`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if _, err := EvalBool(n, env); !errors.Is(err, internalerr.ErrEvaluation) {
		t.Errorf("expected ErrEvaluation, got %v", err)
	}

	// Cross-type equality is simply false / true.
	if got := mustEval(t, `duracion == "5"`, env); got {
		t.Error("cross-type equality should be false")
	}
	if got := mustEval(t, `duracion != "5"`, env); !got {
		t.Error("cross-type inequality should be true")
	}
}

func TestEvalNonBooleanCondition(t *testing.T) {
	env := testEnv(t, map[string]any{"motivo": "ART"})
	n, err := Parse(`motivo and true`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if _, err := EvalBool(n, env); !errors.Is(err, internalerr.ErrEvaluation) {
		t.Errorf("expected ErrEvaluation for string in boolean position, got %v", err)
	}
}

func TestEvalTemporalFunctions(t *testing.T) {
	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC) // Wednesday
	deadline := now.Add(-48 * time.Hour)
	fs := facts.MustNew(map[string]any{"certificate_deadline": deadline})
	env := Env{Facts: fs, Now: func() time.Time { return now }}

	cases := []struct {
		expr string
		want bool
	}{
		{`hours_since(certificate_deadline) > 24`, true},
		{`hours_since(certificate_deadline) > 72`, false},
		{`days_since(certificate_deadline) == 2`, true},
		{`is_weekend()`, false},
	}
	for _, tc := range cases {
		n, err := Parse(tc.expr)
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", tc.expr, err)
		}
		got, err := EvalBool(n, env)
		if err != nil {
			t.Fatalf("EvalBool(%q) failed: %v", tc.expr, err)
		}
		if got != tc.want {
			t.Errorf("%q = %v, want %v", tc.expr, got, tc.want)
		}
	}
}

func TestEvalTemporalMissingTimestamp(t *testing.T) {
	// Missing timestamps read as overdue long ago (999), so deadline rules
	// still fire when no deadline was ever recorded.
	env := testEnv(t, map[string]any{})
	if got := mustEval(t, `hours_since(certificate_deadline) > 24`, env); !got {
		t.Error("hours_since of a missing timestamp should read as 999")
	}
	if got := mustEval(t, `days_since(certificate_deadline) == 999`, env); !got {
		t.Error("days_since of a missing timestamp should read as 999")
	}
}

func TestEvalIsWeekend(t *testing.T) {
	fs := facts.MustNew(nil)
	saturday := time.Date(2024, 5, 18, 9, 0, 0, 0, time.UTC)
	env := Env{Facts: fs, Now: func() time.Time { return saturday }}
	n, err := Parse(`is_weekend()`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	got, err := EvalBool(n, env)
	if err != nil {
		t.Fatalf("EvalBool failed: %v", err)
	}
	if !got {
		t.Error("Saturday should be a weekend")
	}
}

func TestEvalShortCircuit(t *testing.T) {
	// The right side of a short-circuited operator is never evaluated, so
	// a type error there must not surface.
	env := testEnv(t, map[string]any{"motivo": "ART", "duracion": 5})
	if got := mustEval(t, `duracion > 100 and motivo`, env); got {
		t.Error("short-circuited and should be false")
	}
	if got := mustEval(t, `duracion > 0 or motivo`, env); !got {
		t.Error("short-circuited or should be true")
	}
}

func TestEvalDerivedFactsVisible(t *testing.T) {
	fs := facts.MustNew(map[string]any{"duracion": 5})
	work := fs.Derive()
	if err := work.Set("riesgo_empleado", "alto"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	env := Env{Facts: work}
	n, err := Parse(`riesgo_empleado == "alto"`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	got, err := EvalBool(n, env)
	if err != nil {
		t.Fatalf("EvalBool failed: %v", err)
	}
	if !got {
		t.Error("derived fact should be visible through the overlay")
	}
}
