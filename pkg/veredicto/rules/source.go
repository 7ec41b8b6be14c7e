package rules

import "sync/atomic"

// Source is the shared handle the surrounding application edits through.
// Readers take a complete snapshot; writers replace it wholesale, so an edit
// landing mid-run never affects in-flight evaluations.
type Source struct {
	ptr atomic.Pointer[Snapshot]
}

// NewSource creates a source serving the given snapshot.
func NewSource(snap *Snapshot) *Source {
	s := &Source{}
	s.ptr.Store(snap)
	return s
}

// Snapshot returns the current snapshot.
func (s *Source) Snapshot() *Snapshot {
	return s.ptr.Load()
}

// Replace atomically swaps in a new snapshot.
func (s *Source) Replace(snap *Snapshot) {
	s.ptr.Store(snap)
}
