package store

// Cell holds the single current snapshot of type S.
//
// Every call to [Cell.Store] replaces the snapshot and advances the version
// counter, even when the new value is identical to the old one. The version
// lets callers tell "no fold happened" apart from "a fold produced an equal
// value".
type Cell[S any] struct {
	current S
	version uint64
}

// NewCell creates a [Cell] holding initial at version zero.
func NewCell[S any](initial S) *Cell[S] {
	return &Cell[S]{current: initial}
}

// Load returns the current snapshot.
//
// Callers must not mutate the returned value.
func (c *Cell[S]) Load() S {
	return c.current
}

// Store replaces the current snapshot with next.
func (c *Cell[S]) Store(next S) {
	c.current = next
	c.version++
}

// Version returns the number of snapshots stored since creation.
func (c *Cell[S]) Version() uint64 {
	return c.version
}
