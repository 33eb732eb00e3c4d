// Package confirm implements the confirmation tracker: a sliding window
// over the last N Bitcoin blocks that emits first- and full-confirmation
// events for tracked transactions and replays orphaned transactions back
// to WaitingMined on reorg. The chain-linkage check is a direct
// generalization of the header-chain verification idiom used elsewhere in
// the codebase for Bitcoin header chains, applied here to a window of
// already-validated block summaries rather than raw headers.
package confirm

import (
	"fmt"
	"sync"

	"github.com/yuvprotocol/node/eventbus"
	"github.com/yuvprotocol/node/log"
)

// BlockInfo is the confirmator's view of one Bitcoin block: enough to
// check chain linkage and to know which tracked transactions it contains.
// It deliberately does not carry full block contents — the chain client
// collaborator resolves TxIDs from the mempool's tracked (WaitingMined or
// Mined) entries before calling Observe.
type BlockInfo struct {
	Hash     [32]byte
	PrevHash [32]byte
	Height   uint64

	// TxIDs lists the Bitcoin txids of tracked (WaitingMined or Mined)
	// transactions this block contains.
	TxIDs [][32]byte
}

// ChainClient resolves a block by hash, used only during reorg walk-back
// to fetch ancestors of a newly reported tip that diverges from the
// tracker's window.
type ChainClient interface {
	BlockByHash(hash [32]byte) (*BlockInfo, error)
}

// BlocksStore persists the tracker's sliding window so a restarted node
// resumes confirmation tracking without re-deriving it from scratch.
// store.RecentBlocksStore satisfies this.
type BlocksStore interface {
	Load() ([]BlockInfo, error)
	Save(window []BlockInfo) error
}

// Tracker holds the sliding window RecentBlocks[0..N-1] (oldest first) and
// emits confirmation events on the given bus as the window advances.
type Tracker struct {
	mu sync.Mutex

	depth       uint32 // N: confirmations required for TxFullyConfirmed
	reorgWindow uint32 // max ancestors walked back looking for a common ancestor

	window []BlockInfo
	chain  ChainClient
	bus    *eventbus.Bus
	store  BlocksStore
}

// New constructs a Tracker. depth is the confirmation depth N;
// reorgWindow bounds how far back the tracker will walk looking for a
// common ancestor before giving up with ErrReorgTooDeep.
func New(depth, reorgWindow uint32, chain ChainClient, bus *eventbus.Bus) *Tracker {
	return &Tracker{
		depth:       depth,
		reorgWindow: reorgWindow,
		chain:       chain,
		bus:         bus,
	}
}

// LoadWindow loads a persisted window from store and binds store so every
// subsequent mutation is saved back to it. Call once at startup, before
// the chain client begins feeding blocks to Observe.
func (t *Tracker) LoadWindow(store BlocksStore) error {
	window, err := store.Load()
	if err != nil {
		return fmt.Errorf("confirm: load recent-blocks window: %w", err)
	}

	t.mu.Lock()
	t.window = window
	t.store = store
	t.mu.Unlock()
	return nil
}

// saveLocked persists the current window if a store is bound. Called with
// t.mu held, after every mutation to t.window.
func (t *Tracker) saveLocked() {
	if t.store == nil {
		return
	}
	if err := t.store.Save(t.window); err != nil {
		log.Confirm.Error().Err(err).Msg("save recent-blocks window")
	}
}

// Window returns a copy of the tracker's current block window, oldest
// first, for diagnostics and tests.
func (t *Tracker) Window() []BlockInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]BlockInfo, len(t.window))
	copy(out, t.window)
	return out
}

// Observe feeds a newly reported block to the tracker. On the normal
// path — b's PrevHash matches the current tip — it pushes b, emits first
// confirmations for b's transactions, and, once the window exceeds depth,
// pops the oldest entry and emits full confirmations for its transactions.
// On a reorg it walks b's ancestry backward against the window looking for
// a common ancestor, orphaning everything after the match.
func (t *Tracker) Observe(b BlockInfo) error {
	if b.Hash == [32]byte{} {
		return ErrNilBlock
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.window) == 0 {
		t.window = append(t.window, b)
		t.emit(eventbus.TxConfirmed, b.TxIDs)
		t.saveLocked()
		return nil
	}

	tip := t.window[len(t.window)-1]
	if b.PrevHash == tip.Hash {
		t.pushLocked(b)
		return nil
	}

	return t.reorgLocked(b)
}

// pushLocked appends b to the window, emits first confirmations, and pops
// + fully-confirms the oldest entry once the window exceeds depth.
func (t *Tracker) pushLocked(b BlockInfo) {
	t.window = append(t.window, b)
	t.emit(eventbus.TxConfirmed, b.TxIDs)

	if uint32(len(t.window)) > t.depth {
		popped := t.window[0]
		t.window = t.window[1:]
		t.emit(eventbus.TxFullyConfirmed, popped.TxIDs)
	}
	t.saveLocked()
}

// reorgLocked walks b's ancestor chain backward via the chain client,
// comparing each ancestor against the window from its second-to-last entry
// downward, until a common ancestor is found. Window entries after the
// match are orphaned; the collected ancestor chain (including b) is then
// appended in order.
func (t *Tracker) reorgLocked(b BlockInfo) error {
	// ancestors[0] is b, ancestors[k] is b's (k)-th-great-grandparent.
	ancestors := []BlockInfo{b}
	cur := b

	maxWalk := t.reorgWindow
	if maxWalk == 0 || maxWalk > uint32(len(t.window)) {
		maxWalk = uint32(len(t.window))
	}

	for i := len(t.window) - 2; i >= len(t.window)-1-int(maxWalk) && i >= 0; i-- {
		prev, err := t.chain.BlockByHash(cur.PrevHash)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnknownAncestor, err)
		}

		if prev.Hash == t.window[i].Hash {
			t.applyReorgLocked(i, ancestors)
			return nil
		}

		ancestors = append(ancestors, *prev)
		cur = *prev
	}

	return ErrReorgTooDeep
}

// applyReorgLocked orphans every window entry after matchIndex, then
// appends ancestors (oldest-ancestor-first) as the new suffix, trimming
// and fully-confirming from the front as usual.
func (t *Tracker) applyReorgLocked(matchIndex int, ancestors []BlockInfo) {
	for i := matchIndex + 1; i < len(t.window); i++ {
		t.emit(eventbus.TxOrphaned, t.window[i].TxIDs)
	}
	t.window = t.window[:matchIndex+1]

	for i := len(ancestors) - 1; i >= 0; i-- {
		t.pushLocked(ancestors[i])
	}
}

func (t *Tracker) emit(kind eventbus.Kind, txids [][32]byte) {
	if t.bus == nil {
		return
	}
	for _, id := range txids {
		t.bus.Publish(eventbus.Event{Kind: kind, TxID: id})
	}
}
