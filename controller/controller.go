// Package controller implements the thin dispatcher at the node's core: it
// admits inbound transactions into the mempool, routes checked work to
// the graph attacher as confirmations land, and answers the read-only
// queries the RPC surface exposes. It owns the mempool's in-memory
// bookkeeping (the pending-candidate table below) the same way the
// teacher's RPC client owns its connection pool: a goroutine-safe struct
// wired at startup and driven by event-bus subscriptions thereafter.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yuvprotocol/node/attach"
	"github.com/yuvprotocol/node/check"
	"github.com/yuvprotocol/node/confirm"
	"github.com/yuvprotocol/node/eventbus"
	"github.com/yuvprotocol/node/log"
	"github.com/yuvprotocol/node/mempool"
	"github.com/yuvprotocol/node/pixel"
	"github.com/yuvprotocol/node/proof"
	"github.com/yuvprotocol/node/store"
	"github.com/yuvprotocol/node/yuvtx"
)

// Status is the externally visible lifecycle stage a caller of
// getrawyuvtransaction sees, coarser than mempool.State.
type Status string

const (
	StatusNone     Status = "none"
	StatusPending  Status = "pending"
	StatusChecked  Status = "checked"
	StatusAttached Status = "attached"
)

// TxView answers getrawyuvtransaction / getlistrawyuvtransactions.
type TxView struct {
	TxID   [32]byte
	Status Status
	RawTx  []byte
}

// pendingCandidate holds the isolated-checker's derived state for a
// mempool entry that has passed its check but not yet reached the graph
// attacher, keyed by txid. This table is the part of the controller's
// mempool ownership the durable mempool.Store does not itself need to
// persist, since it is rebuilt by re-running the check on crash recovery.
type pendingCandidate struct {
	tx      *yuvtx.TokenTx
	result  *check.Result
	parents [][32]byte
}

// awaitingEntry is a transfer whose isolated check is deferred pending one
// or more parents attaching locally.
type awaitingEntry struct {
	tx      *yuvtx.TokenTx
	missing map[[32]byte]bool
}

// missingParentsError distinguishes "check deferred, a parent isn't
// attached yet" from a genuine structural failure in resolveInputProofs.
type missingParentsError struct {
	parents [][32]byte
}

func (e *missingParentsError) Error() string {
	return fmt.Sprintf("controller: %d parent(s) not yet attached", len(e.parents))
}

// Controller wires check, confirm, attach, mempool, and store together
// and exposes the methods the RPC surface calls.
type Controller struct {
	bus *eventbus.Bus

	machine    *mempool.Machine
	mempoolSt  mempool.Store
	checkDeps  check.Dependencies
	attacher   *attach.Attacher
	tracker    *confirm.Tracker
	attachedTx store.AttachedTxStore
	frozen     store.FrozenStore
	pages      store.PageIndex

	poolSize int
	checkCh  chan *yuvtx.TokenTx

	mu      sync.Mutex
	pending map[[32]byte]*pendingCandidate
	// txByID retains the full TokenTx for every transaction currently in
	// the mempool, since mempool.Entry does not carry the TokenTx itself.
	// ProvideProof and re-checks read from here; entries are removed
	// whenever a transaction leaves the mempool for any reason.
	txByID map[[32]byte]*yuvtx.TokenTx
	// awaiting holds Initialized transfers whose isolated check is
	// deferred because a consumed outpoint's parent is not yet locally
	// attached (e.g. the parent is itself still confirming). Re-queued for
	// checking as soon as every missing parent attaches; see
	// awaitingByParent for the reverse index TxAttached consults.
	awaiting         map[[32]byte]*awaitingEntry
	awaitingByParent map[[32]byte]map[[32]byte]bool

	sweepInterval time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Deps bundles the collaborators Controller wires together.
type Deps struct {
	Bus         *eventbus.Bus
	Mempool     mempool.Store
	CheckDeps   check.Dependencies
	Attacher    *attach.Attacher
	Tracker     *confirm.Tracker
	AttachedTxs store.AttachedTxStore
	Frozen      store.FrozenStore
	Pages       store.PageIndex

	PoolSize      int
	SweepInterval time.Duration
}

// New constructs a Controller. Call Start to begin processing.
func New(d Deps) *Controller {
	poolSize := d.PoolSize
	if poolSize <= 0 {
		poolSize = 4
	}
	sweep := d.SweepInterval
	if sweep <= 0 {
		sweep = time.Minute
	}
	return &Controller{
		bus:              d.Bus,
		machine:          mempool.New(d.Mempool, d.Bus),
		mempoolSt:        d.Mempool,
		checkDeps:        d.CheckDeps,
		attacher:         d.Attacher,
		tracker:          d.Tracker,
		attachedTx:       d.AttachedTxs,
		frozen:           d.Frozen,
		pages:            d.Pages,
		poolSize:         poolSize,
		checkCh:          make(chan *yuvtx.TokenTx, 256),
		pending:          make(map[[32]byte]*pendingCandidate),
		txByID:           make(map[[32]byte]*yuvtx.TokenTx),
		awaiting:         make(map[[32]byte]*awaitingEntry),
		awaitingByParent: make(map[[32]byte]map[[32]byte]bool),
		sweepInterval:    sweep,
	}
}

// Start launches the isolated-checker worker pool and the event-driven
// pipeline stages (confirmation -> attach -> mempool removal), plus the
// attacher's periodic TTL sweep. Event subscriptions are registered
// before reconcile runs its crash-recovery pass, so any attach it drives
// to completion immediately is guaranteed a live TxAttached subscriber.
// It returns immediately; cancel ctx or call Stop to shut down.
func (c *Controller) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	confirmed := c.bus.Subscribe(eventbus.TxConfirmed, 256)
	fullyConfirmed := c.bus.Subscribe(eventbus.TxFullyConfirmed, 256)
	orphaned := c.bus.Subscribe(eventbus.TxOrphaned, 256)
	attached := c.bus.Subscribe(eventbus.TxAttached, 256)
	unreachable := c.bus.Subscribe(eventbus.ParentsUnreachable, 256)

	c.wg.Add(1)
	go c.runEventLoop(ctx, confirmed, fullyConfirmed, orphaned, attached, unreachable)

	c.reconcile()

	for i := 0; i < c.poolSize; i++ {
		c.wg.Add(1)
		go c.checkWorker(ctx)
	}

	c.wg.Add(1)
	go c.runSweepLoop(ctx)
}

// Stop cancels every background goroutine and waits for them to drain.
func (c *Controller) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
}

// SubmitTransaction admits tx into the mempool and queues it for
// isolated checking. It returns quickly with whether admission
// succeeded; validation completes asynchronously. Satisfies
// sendrawyuvtransaction.
func (c *Controller) SubmitTransaction(tx *yuvtx.TokenTx, maxBurnAmount *pixel.Luma) (bool, error) {
	if maxBurnAmount != nil {
		burned := totalBurned(tx.OutputProofs)
		if burned.Cmp(*maxBurnAmount) > 0 {
			return false, fmt.Errorf("controller: burn amount %s exceeds max_burn_amount %s", burned, *maxBurnAmount)
		}
	}

	if err := c.machine.Admit(tx); err != nil {
		return false, err
	}

	c.mu.Lock()
	c.txByID[tx.TxID] = tx
	c.mu.Unlock()

	if err := c.enqueueCheck(tx); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Controller) enqueueCheck(tx *yuvtx.TokenTx) error {
	select {
	case c.checkCh <- tx:
		return nil
	default:
		return fmt.Errorf("controller: check queue full, dropping %x", tx.TxID)
	}
}

// forgetTx drops a transaction's retained TokenTx, checker output, and any
// deferred-check bookkeeping, called whenever it leaves the mempool for
// any reason.
func (c *Controller) forgetTx(txid [32]byte) {
	c.mu.Lock()
	delete(c.txByID, txid)
	delete(c.pending, txid)
	if entry, ok := c.awaiting[txid]; ok {
		for p := range entry.missing {
			delete(c.awaitingByParent[p], txid)
		}
		delete(c.awaiting, txid)
	}
	c.mu.Unlock()
}

// checkWorker consumes queued transactions and runs the isolated
// checker, resolving transfer input proofs from the attached-tx store
// first. This is the controller's fixed-size worker pool.
func (c *Controller) checkWorker(ctx context.Context) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case tx := <-c.checkCh:
			c.runCheck(tx)
		}
	}
}

func (c *Controller) runCheck(tx *yuvtx.TokenTx) {
	inputProofs, parents, err := c.resolveInputProofs(tx)
	if err != nil {
		var missing *missingParentsError
		if errors.As(err, &missing) {
			c.deferCheck(tx, missing.parents)
			return
		}
		log.Controller.Warn().Err(err).Str("txid", fmt.Sprintf("%x", tx.TxID)).Msg("resolve input proofs")
		_ = c.machine.MarkCheckedFail(tx.TxID, err.Error())
		c.forgetTx(tx.TxID)
		return
	}

	result, cerr := check.Check(tx, inputProofs, c.checkDeps)
	if cerr != nil {
		_ = c.machine.MarkCheckedFail(tx.TxID, cerr.Error())
		c.forgetTx(tx.TxID)
		return
	}

	c.mu.Lock()
	c.pending[tx.TxID] = &pendingCandidate{tx: tx, result: result, parents: parents}
	c.mu.Unlock()

	if err := c.machine.MarkCheckedOK(tx.TxID); err != nil {
		log.Controller.Warn().Err(err).Msg("mark checked ok")
	}
}

// deferCheck parks tx in the awaiting table until every txid in parents
// has attached locally, indexing it under each parent so a single
// TxAttached event can cheaply find every transaction it unblocks.
func (c *Controller) deferCheck(tx *yuvtx.TokenTx, parents [][32]byte) {
	missing := make(map[[32]byte]bool, len(parents))
	for _, p := range parents {
		missing[p] = true
	}

	c.mu.Lock()
	c.awaiting[tx.TxID] = &awaitingEntry{tx: tx, missing: missing}
	for p := range missing {
		if c.awaitingByParent[p] == nil {
			c.awaitingByParent[p] = make(map[[32]byte]bool)
		}
		c.awaitingByParent[p][tx.TxID] = true
	}
	c.mu.Unlock()

	log.Controller.Debug().Str("txid", fmt.Sprintf("%x", tx.TxID)).Int("missing_parents", len(parents)).Msg("deferring check pending parent attachment")
}

// wakeAwaiting re-queues every transaction whose last missing parent is
// attachedTxID, called from the event loop's TxAttached handler.
func (c *Controller) wakeAwaiting(attachedTxID [32]byte) {
	c.mu.Lock()
	waiters := c.awaitingByParent[attachedTxID]
	delete(c.awaitingByParent, attachedTxID)
	var ready []*yuvtx.TokenTx
	for txid := range waiters {
		entry, ok := c.awaiting[txid]
		if !ok {
			continue
		}
		delete(entry.missing, attachedTxID)
		if len(entry.missing) == 0 {
			delete(c.awaiting, txid)
			ready = append(ready, entry.tx)
		}
	}
	c.mu.Unlock()

	for _, tx := range ready {
		if err := c.enqueueCheck(tx); err != nil {
			log.Controller.Warn().Err(err).Str("txid", fmt.Sprintf("%x", tx.TxID)).Msg("re-queue deferred check")
		}
	}
}

// totalBurned sums the luma of every output proof whose inner key is the
// well-known burn-point, across chromas, for the sendrawyuvtransaction
// max_burn_amount guard.
func totalBurned(outputProofs []proof.Proof) pixel.Luma {
	total := pixel.NewLuma(0)
	for _, p := range outputProofs {
		if p.IsEmptyPixel() {
			continue
		}
		if !p.IsBurn() {
			continue
		}
		if sum, err := total.Add(p.Pixel.Luma); err == nil {
			total = sum
		}
	}
	return total
}

// resolveInputProofs resolves a Transfer's input proofs from the
// attached-tx store (the outpoint -> attached-tx output-proof map) and
// returns the distinct parent txids referenced.
func (c *Controller) resolveInputProofs(tx *yuvtx.TokenTx) ([]proof.Proof, [][32]byte, error) {
	if !tx.IsTransfer() {
		return nil, nil, nil
	}

	outpoints, err := tx.InputOutpoints()
	if err != nil {
		return nil, nil, err
	}

	inputProofs := make([]proof.Proof, len(outpoints))
	seen := make(map[[32]byte]bool)
	var parents [][32]byte
	missingSeen := make(map[[32]byte]bool)
	var missing [][32]byte
	for i, op := range outpoints {
		parent, ok, err := c.attachedTx.Get(op.TxID)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			if !missingSeen[op.TxID] {
				missingSeen[op.TxID] = true
				missing = append(missing, op.TxID)
			}
			continue
		}
		if int(op.Vout) >= len(parent.OutputProofs) {
			return nil, nil, fmt.Errorf("controller: parent %x has no output proof at vout %d", op.TxID, op.Vout)
		}
		inputProofs[i] = parent.OutputProofs[op.Vout]

		if !seen[op.TxID] {
			seen[op.TxID] = true
			parents = append(parents, op.TxID)
		}
	}
	if len(missing) > 0 {
		return nil, nil, &missingParentsError{parents: missing}
	}
	return inputProofs, parents, nil
}
