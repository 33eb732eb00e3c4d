package controller

import (
	"context"
	"fmt"
	"time"

	"github.com/yuvprotocol/node/attach"
	"github.com/yuvprotocol/node/eventbus"
	"github.com/yuvprotocol/node/log"
)

// runEventLoop drives the mempool machine's transitions in response to
// the confirmation tracker's and graph attacher's events, delivered over
// channels the caller already subscribed before starting this loop (so
// a startup reconciliation pass racing this goroutine can never publish
// into an as-yet-unregistered subscriber). Each kind has its own bounded
// subscription so a slow handler for one kind cannot stall another.
func (c *Controller) runEventLoop(ctx context.Context, confirmed, fullyConfirmed, orphaned, attached, unreachable <-chan eventbus.Event) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-confirmed:
			c.onConfirmed(ev.TxID)
		case ev := <-fullyConfirmed:
			c.onFullyConfirmed(ev.TxID)
		case ev := <-orphaned:
			c.onOrphaned(ev.TxID)
		case ev := <-attached:
			c.onAttached(ev.TxID)
		case ev := <-unreachable:
			c.onParentsUnreachable(ev.TxID)
		}
	}
}

func (c *Controller) onConfirmed(txid [32]byte) {
	if err := c.machine.MarkFirstConfirmation(txid); err != nil {
		log.Controller.Debug().Err(err).Str("txid", fmt.Sprintf("%x", txid)).Msg("first confirmation")
	}
}

func (c *Controller) onOrphaned(txid [32]byte) {
	if err := c.machine.MarkOrphaned(txid); err != nil {
		log.Controller.Debug().Err(err).Str("txid", fmt.Sprintf("%x", txid)).Msg("orphaned")
	}
	// The transaction returns to WaitingMined, not out of the mempool;
	// only its checker output is stale, not its TokenTx.
	c.mu.Lock()
	delete(c.pending, txid)
	c.mu.Unlock()
}

// onFullyConfirmed builds an attach.Candidate from the checker's retained
// result and hands it to the graph attacher as a single-element batch.
// A confirmed transaction this controller never checked itself (e.g. it
// restarted mid-flight) is marked invalid rather than attached blind.
func (c *Controller) onFullyConfirmed(txid [32]byte) {
	c.mu.Lock()
	pc, ok := c.pending[txid]
	c.mu.Unlock()
	if !ok {
		log.Controller.Warn().Str("txid", fmt.Sprintf("%x", txid)).Msg("fully confirmed with no retained check result")
		_ = c.machine.Purge(txid, "no retained check result at full confirmation")
		c.forgetTx(txid)
		return
	}

	if err := c.machine.MarkFullConfirmation(txid); err != nil {
		log.Controller.Debug().Err(err).Str("txid", fmt.Sprintf("%x", txid)).Msg("full confirmation")
		return
	}

	candidate := &attach.Candidate{
		TxID:        txid,
		Tx:          pc.tx,
		Result:      pc.result,
		ParentTxIDs: pc.parents,
	}
	if err := c.attacher.ProcessBatch(time.Now(), []*attach.Candidate{candidate}); err != nil {
		log.Controller.Error().Err(err).Str("txid", fmt.Sprintf("%x", txid)).Msg("process attach batch")
	}
}

func (c *Controller) onAttached(txid [32]byte) {
	c.forgetTx(txid)
	c.wakeAwaiting(txid)

	if err := c.machine.MarkAttached(txid); err != nil {
		log.Controller.Debug().Err(err).Str("txid", fmt.Sprintf("%x", txid)).Msg("mark attached")
	}
}

func (c *Controller) onParentsUnreachable(txid [32]byte) {
	c.forgetTx(txid)

	if err := c.machine.MarkParentsUnreachable(txid); err != nil {
		log.Controller.Debug().Err(err).Str("txid", fmt.Sprintf("%x", txid)).Msg("mark parents unreachable")
	}
}

// runSweepLoop periodically drops transactions that have waited past the
// attacher's TTL for a parent that never arrived.
func (c *Controller) runSweepLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			c.attacher.Sweep(now)
		}
	}
}
