package domain

// MutateFunc applies a transition to the current stored state of an
// incident. It reports whether inc changed; an error aborts the update
// without writing anything.
type MutateFunc func(inc *Incident) (changed bool, err error)
