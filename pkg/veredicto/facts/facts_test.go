package facts

import (
	"testing"
	"time"
)

func TestNewNormalizesNumericTypes(t *testing.T) {
	fs, err := New(map[string]any{
		"a": int(3),
		"b": int32(4),
		"c": uint16(5),
		"d": float32(1.5),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	for name, want := range map[string]int64{"a": 3, "b": 4, "c": 5} {
		if n, ok := fs.Int(name); !ok || n != want {
			t.Errorf("Int(%q) = %d, %v; want %d", name, n, ok, want)
		}
	}
	if f, ok := fs.Float("d"); !ok || f != 1.5 {
		t.Errorf("Float(d) = %v, %v", f, ok)
	}
}

func TestNewRejectsUnsupportedTypes(t *testing.T) {
	if _, err := New(map[string]any{"bad": []string{"x"}}); err == nil {
		t.Error("slice value must be rejected")
	}
	if _, err := New(map[string]any{"bad": map[string]int{}}); err == nil {
		t.Error("map value must be rejected")
	}
}

func TestNewCopiesInput(t *testing.T) {
	in := map[string]any{"motivo": "ART"}
	fs := MustNew(in)
	in["motivo"] = "cambiado"
	if s, _ := fs.String("motivo"); s != "ART" {
		t.Errorf("FactSet saw caller mutation: %q", s)
	}
}

func TestFloatWidensIntegers(t *testing.T) {
	fs := MustNew(map[string]any{"duracion": 7})
	if f, ok := fs.Float("duracion"); !ok || f != 7 {
		t.Errorf("Float(duracion) = %v, %v", f, ok)
	}
	if _, ok := fs.Float("ausente"); ok {
		t.Error("Float on a missing attribute must report false")
	}
}

func TestNamesSorted(t *testing.T) {
	fs := MustNew(map[string]any{"b": 1, "a": 2, "c": 3})
	names := fs.Names()
	if len(names) != 3 || names[0] != "a" || names[2] != "c" {
		t.Errorf("Names() = %v", names)
	}
}

func TestDerivedOverlayShadowsBase(t *testing.T) {
	base := MustNew(map[string]any{
		"motivo":   "ART",
		"deadline": time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
	})
	d := base.Derive()

	if err := d.Set("riesgo_empleado", "alto"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := d.Set("motivo", "otro"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if v, _ := d.Get("motivo"); v != "otro" {
		t.Errorf("overlay read = %v, want shadowed value", v)
	}
	if s, _ := base.String("motivo"); s != "ART" {
		t.Errorf("base mutated to %q", s)
	}

	extra := d.Extra()
	if len(extra) != 2 || extra["riesgo_empleado"] != "alto" {
		t.Errorf("Extra() = %v", extra)
	}

	if err := d.Set("bad", struct{}{}); err == nil {
		t.Error("unsupported derived value must be rejected")
	}
}
