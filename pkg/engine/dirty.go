package engine

import "sync/atomic"

// DirtyFlag records that data changed since the flag was last consumed.
// It is safe for any number of concurrent writers.
type DirtyFlag struct {
	pending atomic.Bool
}

// NewDirtyFlag returns a flag that starts out set, forcing an initial query.
func NewDirtyFlag() *DirtyFlag {
	f := &DirtyFlag{}
	f.pending.Store(true)
	return f
}

// Set marks the flag. It is idempotent.
func (f *DirtyFlag) Set() {
	f.pending.Store(true)
}

// ConsumeAndReset clears the flag and returns its previous value as a
// single atomic operation.
func (f *DirtyFlag) ConsumeAndReset() bool {
	return f.pending.Swap(false)
}

// Pending reports the current value without clearing it.
func (f *DirtyFlag) Pending() bool {
	return f.pending.Load()
}
