package chain

// Journaled is implemented by every piece of state that must roll back
// when a transaction reverts.
type Journaled interface {
	// Snapshot records the current state and returns a revision id.
	Snapshot() int
	// RevertToSnapshot restores the state recorded under id and drops
	// every later revision.
	RevertToSnapshot(id int)
	// Finalise discards all recorded revisions after a successful transaction.
	Finalise()
}

// Journal stores state revisions for a Journaled implementation.
type Journal[T any] struct {
	revisions []T
}

// Push records a revision and returns its id.
func (j *Journal[T]) Push(state T) int {
	j.revisions = append(j.revisions, state)
	return len(j.revisions) - 1
}

// Revert returns the revision stored under id and truncates the journal.
func (j *Journal[T]) Revert(id int) T {
	state := j.revisions[id]
	var zero T
	for i := id; i < len(j.revisions); i++ {
		j.revisions[i] = zero
	}
	j.revisions = j.revisions[:id]
	return state
}

// Reset drops every revision.
func (j *Journal[T]) Reset() {
	j.revisions = nil
}

// Len returns the number of stored revisions.
func (j *Journal[T]) Len() int {
	return len(j.revisions)
}
