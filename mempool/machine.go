// Package mempool implements the node's mempool state machine: the
// durable per-transaction lifecycle, from admission through attachment
// or rejection. Machine is the single owner of all transitions; callers
// never write Store directly.
package mempool

import (
	"fmt"

	"github.com/yuvprotocol/node/eventbus"
	"github.com/yuvprotocol/node/yuvtx"
)

// Machine enforces the lifecycle's transition table against a Store,
// publishing the matching eventbus.Event for every transition it accepts.
type Machine struct {
	store Store
	bus   *eventbus.Bus
}

// New constructs a Machine over store, publishing transition events on bus.
func New(store Store, bus *eventbus.Bus) *Machine {
	return &Machine{store: store, bus: bus}
}

// Admit inserts tx as a freshly seen transaction, in the Initialized
// state, and publishes TxAdmitted. Returns ErrAlreadyExists if tx.TxID is
// already tracked. The side-channel protocol data riding alongside
// tx.RawTx is persisted on the entry too, so a crash-recovered node can
// rebuild the same TokenTx without the submitter resending it.
func (m *Machine) Admit(tx *yuvtx.TokenTx) error {
	entry := Entry{
		TxID:              tx.TxID,
		RawTx:             tx.RawTx,
		Kind:              tx.Kind,
		OutputProofs:      tx.OutputProofs,
		IssueAnnouncement: tx.IssueAnnouncement,
		Announcement:      tx.Announcement,
	}
	if err := m.store.Admit(entry); err != nil {
		return err
	}
	m.bus.Publish(eventbus.Event{Kind: eventbus.TxAdmitted, TxID: tx.TxID})
	return nil
}

// MarkCheckedOK transitions Initialized -> WaitingMined once the isolated
// checker has accepted the transaction.
func (m *Machine) MarkCheckedOK(txid [32]byte) error {
	if err := m.store.CompareAndSwap(txid, Initialized, WaitingMined, nil); err != nil {
		return fmt.Errorf("mempool: MarkCheckedOK %x: %w", txid, err)
	}
	m.bus.Publish(eventbus.Event{Kind: eventbus.TxCheckedOK, TxID: txid})
	return nil
}

// MarkCheckedFail removes txid from the mempool as Invalid. reason is
// carried on the published event only; the entry itself is not retained.
func (m *Machine) MarkCheckedFail(txid [32]byte, reason string) error {
	e, ok, err := m.store.Get(txid)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("mempool: MarkCheckedFail %x: %w", txid, ErrNotFound)
	}
	if e.State != Initialized {
		return fmt.Errorf("mempool: MarkCheckedFail %x: %w", txid, ErrInvalidTransition)
	}
	if err := m.store.Remove(txid); err != nil {
		return err
	}
	m.bus.Publish(eventbus.Event{Kind: eventbus.TxInvalid, TxID: txid, Reason: reason})
	return nil
}

// MarkFirstConfirmation transitions WaitingMined -> Mined when a
// transaction receives its first Bitcoin confirmation.
func (m *Machine) MarkFirstConfirmation(txid [32]byte) error {
	if err := m.store.CompareAndSwap(txid, WaitingMined, Mined, nil); err != nil {
		return fmt.Errorf("mempool: MarkFirstConfirmation %x: %w", txid, err)
	}
	m.bus.Publish(eventbus.Event{Kind: eventbus.TxConfirmed, TxID: txid})
	return nil
}

// MarkOrphaned transitions Mined -> WaitingMined when a reorg orphans the
// block that had confirmed the transaction. A transaction already in
// WaitingMined may also be orphaned (its confirmation progress resets
// without a state change); both are
// accepted here.
func (m *Machine) MarkOrphaned(txid [32]byte) error {
	e, ok, err := m.store.Get(txid)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("mempool: MarkOrphaned %x: %w", txid, ErrNotFound)
	}
	if e.State != Mined && e.State != WaitingMined {
		return fmt.Errorf("mempool: MarkOrphaned %x: %w", txid, ErrInvalidTransition)
	}
	if err := m.store.CompareAndSwap(txid, e.State, WaitingMined, nil); err != nil {
		return fmt.Errorf("mempool: MarkOrphaned %x: %w", txid, err)
	}
	m.bus.Publish(eventbus.Event{Kind: eventbus.TxOrphaned, TxID: txid})
	return nil
}

// MarkFullConfirmation transitions Mined -> Attaching once the
// transaction's confirming block has reached the configured confirmation
// depth and it is handed to the graph attacher.
func (m *Machine) MarkFullConfirmation(txid [32]byte) error {
	if err := m.store.CompareAndSwap(txid, Mined, Attaching, nil); err != nil {
		return fmt.Errorf("mempool: MarkFullConfirmation %x: %w", txid, err)
	}
	m.bus.Publish(eventbus.Event{Kind: eventbus.TxFullyConfirmed, TxID: txid})
	return nil
}

// MarkAttached removes txid from the mempool as Attached — a
// successfully attached transaction lives on in the attached-transaction
// store, not the mempool.
func (m *Machine) MarkAttached(txid [32]byte) error {
	e, ok, err := m.store.Get(txid)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("mempool: MarkAttached %x: %w", txid, ErrNotFound)
	}
	if e.State != Attaching {
		return fmt.Errorf("mempool: MarkAttached %x: %w", txid, ErrInvalidTransition)
	}
	if err := m.store.Remove(txid); err != nil {
		return err
	}
	m.bus.Publish(eventbus.Event{Kind: eventbus.TxAttached, TxID: txid})
	return nil
}

// MarkParentsUnreachable removes txid from the mempool as Invalid after
// the graph attacher's TTL sweep gives up waiting on its parents.
func (m *Machine) MarkParentsUnreachable(txid [32]byte) error {
	e, ok, err := m.store.Get(txid)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("mempool: MarkParentsUnreachable %x: %w", txid, ErrNotFound)
	}
	if e.State != Attaching {
		return fmt.Errorf("mempool: MarkParentsUnreachable %x: %w", txid, ErrInvalidTransition)
	}
	if err := m.store.Remove(txid); err != nil {
		return err
	}
	m.bus.Publish(eventbus.Event{Kind: eventbus.ParentsUnreachable, TxID: txid, Reason: "parents unreachable before TTL"})
	return nil
}

// Purge removes txid unconditionally, regardless of its current state,
// publishing TxInvalid. Used for out-of-band eviction (e.g. RBF conflicts
// detected by the chain client) that has no fielded transition of its own.
func (m *Machine) Purge(txid [32]byte, reason string) error {
	if _, ok, err := m.store.Get(txid); err != nil {
		return err
	} else if !ok {
		return nil
	}
	if err := m.store.Remove(txid); err != nil {
		return err
	}
	m.bus.Publish(eventbus.Event{Kind: eventbus.TxInvalid, TxID: txid, Reason: reason})
	return nil
}
