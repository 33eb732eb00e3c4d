// Package attach implements the graph attacher: an incremental DAG
// builder that admits a checked transaction once every parent output it
// consumes is itself attached or is a protocol-external issuance root. The
// Q/S/D/I bookkeeping mirrors the parent-resolution walk and multimap
// shape used elsewhere in the codebase for directory child-entry
// resolution, generalized here from a single-parent tree walk to a
// multi-parent dependency graph.
package attach

import (
	"fmt"
	"sync"
	"time"

	"github.com/yuvprotocol/node/check"
	"github.com/yuvprotocol/node/eventbus"
	"github.com/yuvprotocol/node/yuvtx"
)

// Candidate is a transaction that has passed the isolated checker and is
// ready to be resolved against the attached-transaction graph.
type Candidate struct {
	TxID        [32]byte
	Tx          *yuvtx.TokenTx
	Result      *check.Result
	ParentTxIDs [][32]byte // distinct txids referenced by input proofs; empty for an issuance-like transaction
}

// IsIssuanceLike reports whether c has no token-parent inputs and can
// attach unconditionally.
func (c *Candidate) IsIssuanceLike() bool {
	return len(c.ParentTxIDs) == 0
}

// Persister performs the atomic attach-time storage effects: the
// transaction record, page index update, and any freeze/chroma/ownership
// side effects carried in Candidate.Result. IsAttached answers whether a
// txid is already durably attached.
type Persister interface {
	IsAttached(txid [32]byte) bool
	Attach(c Candidate) error
}

type pendingEntry struct {
	candidate *Candidate
	firstSeen time.Time
}

// Attacher holds the per-batch Q/S/D/I state of the graph attacher.
// It is single-goroutine-owned; callers must not call its methods
// concurrently from more than one goroutine.
type Attacher struct {
	mu sync.Mutex

	q []*Candidate                    // Q: FIFO queue of newly unblocked dependents
	s map[[32]byte]*pendingEntry      // S: txid -> waiting entry
	d map[[32]byte]map[[32]byte]bool  // D: tx -> unresolved parent txids
	in map[[32]byte]map[[32]byte]bool // I: parent txid -> dependent txids in S

	requested map[[32]byte]bool // parents for which GetData has already been emitted

	persist Persister
	bus     *eventbus.Bus
	ttl     time.Duration
}

// New constructs an Attacher. ttl bounds how long a transaction may sit in
// S before Sweep marks it ParentsUnreachable.
func New(persist Persister, bus *eventbus.Bus, ttl time.Duration) *Attacher {
	return &Attacher{
		s:         make(map[[32]byte]*pendingEntry),
		d:         make(map[[32]byte]map[[32]byte]bool),
		in:        make(map[[32]byte]map[[32]byte]bool),
		requested: make(map[[32]byte]bool),
		persist:   persist,
		bus:       bus,
		ttl:       ttl,
	}
}

// ProcessBatch runs the per-batch attach algorithm: issuance-like
// candidates attach first, then the rest resolve against currently
// attached parents; any candidate newly unblocked as a side effect drains
// through Q before ProcessBatch returns.
func (a *Attacher) ProcessBatch(now time.Time, batch []*Candidate) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	ordered := orderBatch(batch)
	for _, c := range ordered {
		if err := a.admitLocked(now, c); err != nil {
			return err
		}
	}
	return a.drainQueueLocked()
}

// orderBatch partitions a batch into issuance-like candidates first, then
// the rest, preserving arrival order within each group.
func orderBatch(batch []*Candidate) []*Candidate {
	ordered := make([]*Candidate, 0, len(batch))
	var rest []*Candidate
	for _, c := range batch {
		if c.IsIssuanceLike() {
			ordered = append(ordered, c)
		} else {
			rest = append(rest, c)
		}
	}
	return append(ordered, rest...)
}

// admitLocked implements algorithm step 1 for a single candidate.
func (a *Attacher) admitLocked(now time.Time, c *Candidate) error {
	if c.IsIssuanceLike() {
		return a.attachLocked(c)
	}

	unresolved := make(map[[32]byte]bool)
	for _, p := range c.ParentTxIDs {
		if a.persist.IsAttached(p) {
			continue
		}
		unresolved[p] = true
	}

	if len(unresolved) == 0 {
		return a.attachLocked(c)
	}

	a.d[c.TxID] = unresolved
	for p := range unresolved {
		if a.in[p] == nil {
			a.in[p] = make(map[[32]byte]bool)
		}
		a.in[p][c.TxID] = true

		if !a.requested[p] {
			a.requested[p] = true
			a.bus.Publish(eventbus.Event{Kind: eventbus.GetData, TxID: p})
		}
	}
	a.s[c.TxID] = &pendingEntry{candidate: c, firstSeen: now}
	return nil
}

// attachLocked persists c, removes it from S/D/I bookkeeping, and queues
// every dependent that c's attachment just unblocked.
func (a *Attacher) attachLocked(c *Candidate) error {
	if err := a.persist.Attach(*c); err != nil {
		return fmt.Errorf("attach: persist %x: %w", c.TxID, err)
	}

	delete(a.s, c.TxID)
	delete(a.d, c.TxID)
	delete(a.requested, c.TxID)

	dependents := a.in[c.TxID]
	delete(a.in, c.TxID)
	for dep := range dependents {
		a.q = append(a.q, &Candidate{TxID: dep})
	}

	a.bus.Publish(eventbus.Event{Kind: eventbus.TxAttached, TxID: c.TxID})
	return nil
}

// drainQueueLocked implements algorithm step 2: for each popped dependent,
// remove the just-attached parent from D; once D becomes empty, attach it
// and push its own dependents onto Q.
func (a *Attacher) drainQueueLocked() error {
	for len(a.q) > 0 {
		next := a.q[0]
		a.q = a.q[1:]

		entry, waiting := a.s[next.TxID]
		if !waiting {
			continue // already attached, or never admitted (duplicate unblock)
		}

		for parent := range a.d[next.TxID] {
			if a.persist.IsAttached(parent) {
				delete(a.d[next.TxID], parent)
			}
		}

		if len(a.d[next.TxID]) == 0 {
			if err := a.attachLocked(entry.candidate); err != nil {
				return err
			}
		}
	}
	return nil
}

// Sweep drops every S entry whose first-seen timestamp is older than ttl,
// marking it ParentsUnreachable on the event bus. Call periodically from
// the owning task's timer loop.
func (a *Attacher) Sweep(now time.Time) []Candidate {
	a.mu.Lock()
	defer a.mu.Unlock()

	var dropped []Candidate
	for txid, entry := range a.s {
		if now.Sub(entry.firstSeen) < a.ttl {
			continue
		}

		for parent := range a.d[txid] {
			if deps := a.in[parent]; deps != nil {
				delete(deps, txid)
				if len(deps) == 0 {
					delete(a.in, parent)
					delete(a.requested, parent)
				}
			}
		}
		delete(a.d, txid)
		delete(a.s, txid)

		dropped = append(dropped, *entry.candidate)
		a.bus.Publish(eventbus.Event{Kind: eventbus.ParentsUnreachable, TxID: txid, Reason: "parents unreachable before TTL"})
	}
	return dropped
}

// Pending reports the number of transactions currently waiting on at
// least one missing parent, for diagnostics and tests.
func (a *Attacher) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.s)
}
