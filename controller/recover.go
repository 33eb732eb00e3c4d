package controller

import (
	"errors"
	"fmt"
	"time"

	"github.com/yuvprotocol/node/attach"
	"github.com/yuvprotocol/node/check"
	"github.com/yuvprotocol/node/log"
	"github.com/yuvprotocol/node/mempool"
)

// reconcile re-drives every mempool entry left in a non-terminal state by
// a prior run's crash: WaitingMined and Mined entries are re-checked so
// pending is populated again for onFullyConfirmed, and Attaching entries
// (whose full confirmation already happened before the crash) are
// re-submitted to the graph attacher directly. Called once at startup,
// after event subscriptions are registered and before the checker pool
// and sweep loop start pulling new work.
func (c *Controller) reconcile() {
	for _, state := range []mempool.State{mempool.WaitingMined, mempool.Mined, mempool.Attaching} {
		entries, err := c.mempoolSt.ListByState(state)
		if err != nil {
			log.Controller.Error().Err(err).Str("state", state.String()).Msg("list mempool entries for reconciliation")
			continue
		}
		for _, e := range entries {
			c.reconcileEntry(e, state)
		}
	}
}

// reconcileEntry rebuilds a single recovered entry's TokenTx and
// re-checks it. A failure here has no Initialized state to fall back
// to, so it purges the entry outright rather than calling
// machine.MarkCheckedFail.
func (c *Controller) reconcileEntry(e mempool.Entry, state mempool.State) {
	txidHex := fmt.Sprintf("%x", e.TxID)

	tx, err := e.TokenTx()
	if err != nil {
		log.Controller.Warn().Err(err).Str("txid", txidHex).Msg("reconcile: rebuild token tx")
		c.purge(e.TxID, "reconcile: rebuild token tx failed: "+err.Error())
		return
	}

	c.mu.Lock()
	c.txByID[tx.TxID] = tx
	c.mu.Unlock()

	inputProofs, parents, err := c.resolveInputProofs(tx)
	if err != nil {
		var missing *missingParentsError
		if errors.As(err, &missing) {
			log.Controller.Debug().Str("txid", txidHex).Int("missing_parents", len(missing.parents)).Msg("reconcile: deferring check pending parent attachment")
			c.deferCheck(tx, missing.parents)
			return
		}
		log.Controller.Warn().Err(err).Str("txid", txidHex).Msg("reconcile: resolve input proofs")
		c.purge(e.TxID, "reconcile: resolve input proofs failed: "+err.Error())
		return
	}

	result, cerr := check.Check(tx, inputProofs, c.checkDeps)
	if cerr != nil {
		log.Controller.Warn().Str("txid", txidHex).Str("reason", cerr.Error()).Msg("reconcile: check rejected recovered entry")
		c.purge(e.TxID, "reconcile: "+cerr.Error())
		return
	}

	c.mu.Lock()
	c.pending[tx.TxID] = &pendingCandidate{tx: tx, result: result, parents: parents}
	c.mu.Unlock()

	log.Controller.Info().Str("txid", txidHex).Str("state", state.String()).Msg("reconciled recovered mempool entry")

	if state != mempool.Attaching {
		return
	}

	candidate := &attach.Candidate{
		TxID:        tx.TxID,
		Tx:          tx,
		Result:      result,
		ParentTxIDs: parents,
	}
	if err := c.attacher.ProcessBatch(time.Now(), []*attach.Candidate{candidate}); err != nil {
		log.Controller.Error().Err(err).Str("txid", txidHex).Msg("reconcile: process attach batch")
	}
}

// purge removes a recovered entry that cannot be reconciled, regardless
// of its current state.
func (c *Controller) purge(txid [32]byte, reason string) {
	if err := c.machine.Purge(txid, reason); err != nil {
		log.Controller.Warn().Err(err).Str("txid", fmt.Sprintf("%x", txid)).Msg("reconcile: purge")
	}
	c.forgetTx(txid)
}
