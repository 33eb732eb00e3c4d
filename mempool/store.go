package mempool

import (
	"fmt"
	"sync"
)

// Store is the durable, status-indexed mempool trait. CompareAndSwap is
// the sole mutation primitive so every transition in the lifecycle table
// is atomic with respect to a concurrently racing transition on the same
// txid.
type Store interface {
	// Get retrieves an entry by txid.
	Get(txid [32]byte) (Entry, bool, error)

	// Admit inserts a new entry in the Initialized state. Returns
	// ErrAlreadyExists if txid is already tracked.
	Admit(entry Entry) error

	// CompareAndSwap transitions txid's entry from `from` to `to`,
	// applying mutate (if non-nil) to the entry before it is written back.
	// Returns ErrCASConflict if the entry's current state is not `from`.
	CompareAndSwap(txid [32]byte, from, to State, mutate func(*Entry)) error

	// Remove deletes an entry unconditionally (used for Invalid and
	// Attaching→Attached transitions, both of which remove the entry from
	// the mempool).
	Remove(txid [32]byte) error

	// ListByState returns every entry currently in the given state.
	ListByState(state State) ([]Entry, error)
}

// MemStore is an in-memory Store, the mock used in tests and suitable as
// a development-mode backend before a durable store is wired in.
type MemStore struct {
	mu      sync.Mutex
	entries map[[32]byte]Entry
}

// NewMemStore constructs an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{entries: make(map[[32]byte]Entry)}
}

var _ Store = (*MemStore)(nil)

// Get retrieves an entry by txid.
func (m *MemStore) Get(txid [32]byte) (Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[txid]
	return e, ok, nil
}

// Admit inserts a new entry in the Initialized state.
func (m *MemStore) Admit(entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[entry.TxID]; exists {
		return ErrAlreadyExists
	}
	entry.State = Initialized
	m.entries[entry.TxID] = entry
	return nil
}

// CompareAndSwap transitions txid's entry from `from` to `to`.
func (m *MemStore) CompareAndSwap(txid [32]byte, from, to State, mutate func(*Entry)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[txid]
	if !ok {
		return fmt.Errorf("%w: %x", ErrNotFound, txid)
	}
	if e.State != from {
		return fmt.Errorf("%w: %x is %s, wanted %s", ErrCASConflict, txid, e.State, from)
	}

	if mutate != nil {
		mutate(&e)
	}
	e.State = to
	m.entries[txid] = e
	return nil
}

// Remove deletes an entry unconditionally.
func (m *MemStore) Remove(txid [32]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[txid]; !ok {
		return fmt.Errorf("%w: %x", ErrNotFound, txid)
	}
	delete(m.entries, txid)
	return nil
}

// ListByState returns every entry currently in the given state.
func (m *MemStore) ListByState(state State) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Entry
	for _, e := range m.entries {
		if e.State == state {
			out = append(out, e)
		}
	}
	return out, nil
}
