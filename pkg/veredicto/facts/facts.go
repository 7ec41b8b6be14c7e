package facts

import (
	"fmt"
	"sort"
	"time"
)

// FactSet is an immutable set of named scalar attributes describing one
// absence request. Supported value types are string, int64, float64, bool
// and time.Time; smaller integer and float types are widened on construction.
type FactSet struct {
	attrs map[string]any
}

// New builds a FactSet from a plain map. The input map is copied, so later
// mutations of it do not affect the FactSet.
func New(attrs map[string]any) (FactSet, error) {
	m := make(map[string]any, len(attrs))
	for name, v := range attrs {
		nv, err := normalize(v)
		if err != nil {
			return FactSet{}, fmt.Errorf("attribute %q: %w", name, err)
		}
		m[name] = nv
	}
	return FactSet{attrs: m}, nil
}

// MustNew is New for statically known inputs, typically tests.
func MustNew(attrs map[string]any) FactSet {
	fs, err := New(attrs)
	if err != nil {
		panic(err)
	}
	return fs
}

func normalize(v any) (any, error) {
	switch t := v.(type) {
	case string, int64, float64, bool, time.Time:
		return t, nil
	case int:
		return int64(t), nil
	case int8:
		return int64(t), nil
	case int16:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case uint:
		return int64(t), nil
	case uint8:
		return int64(t), nil
	case uint16:
		return int64(t), nil
	case uint32:
		return int64(t), nil
	case float32:
		return float64(t), nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// Get returns the raw value for name.
func (f FactSet) Get(name string) (any, bool) {
	v, ok := f.attrs[name]
	return v, ok
}

// Has reports whether name is present.
func (f FactSet) Has(name string) bool {
	_, ok := f.attrs[name]
	return ok
}

// String returns the string value for name.
func (f FactSet) String(name string) (string, bool) {
	s, ok := f.attrs[name].(string)
	return s, ok
}

// Int returns the integer value for name.
func (f FactSet) Int(name string) (int64, bool) {
	n, ok := f.attrs[name].(int64)
	return n, ok
}

// Float returns the numeric value for name, widening integers.
func (f FactSet) Float(name string) (float64, bool) {
	switch t := f.attrs[name].(type) {
	case float64:
		return t, true
	case int64:
		return float64(t), true
	}
	return 0, false
}

// Bool returns the boolean value for name.
func (f FactSet) Bool(name string) (bool, bool) {
	b, ok := f.attrs[name].(bool)
	return b, ok
}

// Time returns the timestamp value for name.
func (f FactSet) Time(name string) (time.Time, bool) {
	t, ok := f.attrs[name].(time.Time)
	return t, ok
}

// Names returns all attribute names in sorted order.
func (f FactSet) Names() []string {
	out := make([]string, 0, len(f.attrs))
	for name := range f.attrs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of attributes.
func (f FactSet) Len() int {
	return len(f.attrs)
}

// Map returns a copy of the underlying attributes.
func (f FactSet) Map() map[string]any {
	out := make(map[string]any, len(f.attrs))
	for name, v := range f.attrs {
		out[name] = v
	}
	return out
}

// Derive returns a mutable view layered over this FactSet. Writes land in a
// private overlay; the base FactSet is never touched.
func (f FactSet) Derive() *Derived {
	return &Derived{base: f, extra: make(map[string]any)}
}

// Derived is a FactSet extended with facts produced during an inference run.
type Derived struct {
	base  FactSet
	extra map[string]any
}

// Get looks up name in the overlay first, then the base set.
func (d *Derived) Get(name string) (any, bool) {
	if v, ok := d.extra[name]; ok {
		return v, true
	}
	return d.base.Get(name)
}

// Set records a derived fact in the overlay.
func (d *Derived) Set(name string, v any) error {
	nv, err := normalize(v)
	if err != nil {
		return fmt.Errorf("derived fact %q: %w", name, err)
	}
	d.extra[name] = nv
	return nil
}

// Extra returns a copy of the derived facts only.
func (d *Derived) Extra() map[string]any {
	out := make(map[string]any, len(d.extra))
	for name, v := range d.extra {
		out[name] = v
	}
	return out
}
