package store

import (
	"fmt"

	"github.com/yuvprotocol/node/attach"
)

var _ attach.Persister = (*Persister)(nil)

// Attach composes a candidate's attach-time storage effects — any
// chroma/freeze/ownership side effect in c.Result, the page index entry,
// and finally the attached transaction record itself — as a sequence of
// independent calls against whatever ChromaStore/FrozenStore/PageIndex/
// AttachedTxStore implementations it was built with. It gives NO
// cross-store atomicity: each call below commits on its own, so a crash
// between any two of them leaves a partial update rather than rolling
// back. That is an acceptable trade for the in-memory Mem* stores this
// type exists to compose in tests and the dev-mode backend, where a
// process crash also loses the entries those stores hold. It is not
// used for the durable node: Bolt.Attach runs the same sequence of
// effects inside a single bbolt transaction instead, so a crash there
// really does leave storage unchanged.
func (p *Persister) Attach(c attach.Candidate) error {
	if p.Txs.IsAttached(c.TxID) {
		return fmt.Errorf("%w: %x", ErrDuplicate, c.TxID)
	}

	if err := p.applyResult(c); err != nil {
		return fmt.Errorf("store: apply attach effects for %x: %w", c.TxID, err)
	}

	entry := AttachedTx{TxID: c.TxID}
	if c.Tx != nil {
		entry.RawTx = c.Tx.RawTx
		entry.Kind = c.Tx.Kind
		entry.OutputProofs = c.Tx.OutputProofs
	}
	if c.Result != nil {
		entry.Result = *c.Result
	}

	if p.Pages != nil {
		if _, _, err := p.Pages.Append(PageEntry{TxID: c.TxID, Kind: entry.Kind}); err != nil {
			return fmt.Errorf("store: append page index for %x: %w", c.TxID, err)
		}
	}

	if err := p.Txs.Put(entry); err != nil {
		return fmt.Errorf("store: put attached tx %x: %w", c.TxID, err)
	}
	return nil
}

func (p *Persister) applyResult(c attach.Candidate) error {
	if c.Result == nil {
		return nil
	}
	r := c.Result

	if r.SupplyDelta != nil {
		if err := p.Chromas.IncrementSupply(r.SupplyDelta.Chroma, r.SupplyDelta.Amount); err != nil {
			return err
		}
	}
	if r.FreezeTarget != nil {
		if err := p.Frozen.Insert(*r.FreezeTarget); err != nil {
			return err
		}
	}
	if r.ChromaRegistration != nil {
		reg := r.ChromaRegistration
		if err := p.Chromas.Register(ChromaRecord{
			Chroma:      reg.Chroma,
			Name:        reg.Name,
			Symbol:      reg.Symbol,
			Decimals:    reg.Decimals,
			MaxSupply:   reg.MaxSupply,
			IsFreezable: reg.IsFreezable,
		}); err != nil {
			return err
		}
	}
	if r.OwnershipTransfer != nil {
		t := r.OwnershipTransfer
		if err := p.Chromas.UpdateIssuerKey(t.Chroma, t.NewIssuerKey); err != nil {
			return err
		}
	}
	return nil
}
