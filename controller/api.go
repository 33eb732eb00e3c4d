package controller

import (
	"fmt"

	"github.com/yuvprotocol/node/check"
	"github.com/yuvprotocol/node/mempool"
	"github.com/yuvprotocol/node/proof"
	"github.com/yuvprotocol/node/yuvtx"
)

// ProvideProof attaches a previously withheld output proof to an
// already-admitted transaction and re-queues it for checking. Satisfies
// provideyuvproof.
func (c *Controller) ProvideProof(txid [32]byte, outputProofs []proof.Proof) error {
	if _, ok, err := c.mempoolSt.Get(txid); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("controller: provide proof for unknown tx %x: %w", txid, mempool.ErrNotFound)
	}

	c.mu.Lock()
	tx, ok := c.txByID[txid]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("controller: provide proof for unknown tx %x: %w", txid, mempool.ErrNotFound)
	}
	tx.OutputProofs = outputProofs

	return c.enqueueCheck(tx)
}

// ProvideListProofs is the batch form of ProvideProof, answering
// providelistyuvproofs. It stops at the first failure.
func (c *Controller) ProvideListProofs(byTxID map[[32]byte][]proof.Proof) error {
	for txid, outputProofs := range byTxID {
		if err := c.ProvideProof(txid, outputProofs); err != nil {
			return err
		}
	}
	return nil
}

// GetTransactionStatus answers getrawyuvtransaction: the coarse lifecycle
// status of a single transaction, checked mempool first, then the
// attached-transaction store.
func (c *Controller) GetTransactionStatus(txid [32]byte) (TxView, error) {
	if entry, ok, err := c.mempoolSt.Get(txid); err != nil {
		return TxView{}, err
	} else if ok {
		status := StatusPending
		if entry.State == mempool.Mined || entry.State == mempool.Attaching {
			status = StatusChecked
		}
		return TxView{TxID: txid, Status: status, RawTx: entry.RawTx}, nil
	}

	if at, ok, err := c.attachedTx.Get(txid); err != nil {
		return TxView{}, err
	} else if ok {
		return TxView{TxID: txid, Status: StatusAttached, RawTx: at.RawTx}, nil
	}

	return TxView{TxID: txid, Status: StatusNone}, nil
}

// GetListTransactionStatus answers getlistrawyuvtransactions for a batch
// of txids in one call.
func (c *Controller) GetListTransactionStatus(txids [][32]byte) ([]TxView, error) {
	views := make([]TxView, len(txids))
	for i, id := range txids {
		v, err := c.GetTransactionStatus(id)
		if err != nil {
			return nil, err
		}
		views[i] = v
	}
	return views, nil
}

// ListTransactions answers listyuvtransactions: a single page of the
// attached-transaction history, most recently attached last within the
// page, per store.PageIndex's append order.
func (c *Controller) ListTransactions(page uint32) ([]TxView, error) {
	entries, err := c.pages.Page(page)
	if err != nil {
		return nil, err
	}

	views := make([]TxView, 0, len(entries))
	for _, e := range entries {
		at, ok, err := c.attachedTx.Get(e.TxID)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		views = append(views, TxView{TxID: e.TxID, Status: StatusAttached, RawTx: at.RawTx})
	}
	return views, nil
}

// IsOutputFrozen answers isyuvtxoutfrozen.
func (c *Controller) IsOutputFrozen(op yuvtx.Outpoint) bool {
	return c.frozen.IsFrozen(op)
}

// EmulateTransaction answers emulateyuvtransaction: it runs the isolated
// checker synchronously and returns its result without admitting tx into
// the mempool or touching any store.
func (c *Controller) EmulateTransaction(tx *yuvtx.TokenTx, inputProofs []proof.Proof) (*check.Result, *check.Error) {
	return check.Check(tx, inputProofs, c.checkDeps)
}
