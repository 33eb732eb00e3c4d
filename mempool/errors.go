package mempool

import "errors"

var (
	// ErrAlreadyExists is returned by Admit when a txid is already tracked.
	ErrAlreadyExists = errors.New("mempool: transaction already admitted")
	// ErrNotFound is returned when a txid has no mempool entry.
	ErrNotFound = errors.New("mempool: transaction not found")
	// ErrCASConflict is returned when a transition's expected from-state
	// does not match the entry's current state, signaling a concurrent
	// transition or a stale caller.
	ErrCASConflict = errors.New("mempool: compare-and-swap conflict")
	// ErrInvalidTransition is returned for a transition the lifecycle
	// table does not allow from the entry's current state.
	ErrInvalidTransition = errors.New("mempool: invalid state transition")
)
