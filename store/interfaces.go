// Package store implements the node's persistence traits:
// attached-transaction records, mempool entries, chroma metadata,
// frozen outpoints, the transaction-listing page index, and the
// confirmator's recent-blocks window. Bolt is grounded directly on
// spv/boltstore.go's bucket-per-trait, gob-encoded-value design; the Mem
// types are grounded on spv/store.go's map-backed mocks.
package store

import (
	"github.com/yuvprotocol/node/check"
	"github.com/yuvprotocol/node/confirm"
	"github.com/yuvprotocol/node/pixel"
	"github.com/yuvprotocol/node/proof"
	"github.com/yuvprotocol/node/yuvtx"
)

// AttachedTx is a durably attached transaction record: enough to answer
// getrawyuvtransaction, resolve a child's input proofs, and replay the
// checker's derived side effects during recovery.
type AttachedTx struct {
	TxID         [32]byte
	RawTx        []byte
	Kind         yuvtx.Kind
	OutputProofs []proof.Proof
	Result       check.Result
}

// AttachedTxStore persists attached transaction records.
type AttachedTxStore interface {
	// IsAttached reports whether txid is already durably attached.
	IsAttached(txid [32]byte) bool

	// Put writes a single attached transaction record. Returns
	// ErrDuplicate if txid is already recorded.
	Put(entry AttachedTx) error

	// Get retrieves an attached transaction by txid.
	Get(txid [32]byte) (AttachedTx, bool, error)

	// PutBatch writes every entry atomically, used by recovery replay.
	PutBatch(entries []AttachedTx) error
}

// ChromaRecord is the persisted state of a single chroma's metadata and
// issuance.
type ChromaRecord struct {
	Chroma        pixel.Chroma
	Name          string
	Symbol        string
	Decimals      uint8
	MaxSupply     uint64
	IsFreezable   bool
	IssuerKey     []byte
	CurrentSupply uint64
}

// ChromaStore registers and mutates chroma metadata. It satisfies
// check.ChromaLookup for the isolated checker's read-only dependency.
type ChromaStore interface {
	check.ChromaLookup

	// Register inserts a new chroma's metadata. Returns ErrDuplicate if
	// the chroma is already registered.
	Register(rec ChromaRecord) error

	// UpdateIssuerKey applies a Transfer-ownership announcement.
	UpdateIssuerKey(chroma pixel.Chroma, newIssuerKey []byte) error

	// IncrementSupply applies an Issue's minted amount to the chroma's
	// running supply. Returns ErrSupplyExceedsCap if the result would
	// exceed MaxSupply. An unregistered chroma gets a new record with no
	// supply cap, freezable, holding the amount.
	IncrementSupply(chroma pixel.Chroma, amount pixel.Luma) error
}

// FrozenStore tracks frozen outpoints. It satisfies check.FrozenLookup
// for the isolated checker's read-only dependency.
type FrozenStore interface {
	check.FrozenLookup

	// Insert marks op frozen. Returns ErrAlreadyFrozen if already marked.
	Insert(op yuvtx.Outpoint) error
}

// PageEntry is a single row of the transaction-listing page index.
type PageEntry struct {
	TxID [32]byte
	Kind yuvtx.Kind
}

// PageIndex is the append-only, fixed-page-size index backing
// listyuvtransactions.
type PageIndex interface {
	// Append adds entry to the tail page, starting a new page once the
	// current tail reaches pageSize entries. Returns the page number and
	// index within that page the entry was written at.
	Append(entry PageEntry) (page uint32, index uint32, err error)

	// Page returns every entry on the given page number, in append order.
	Page(number uint32) ([]PageEntry, error)

	// PageCount returns the number of pages written so far (0 if empty).
	PageCount() (uint32, error)
}

// RecentBlocksStore persists the confirmator's sliding window so a
// restarted node can resume without re-deriving confirmation state from
// scratch.
type RecentBlocksStore interface {
	// Load returns the persisted window, oldest first. Returns an empty
	// slice, not an error, if nothing has been saved yet.
	Load() ([]confirm.BlockInfo, error)

	// Save overwrites the persisted window with window, oldest first.
	Save(window []confirm.BlockInfo) error
}

// Persister aggregates the storage traits the graph attacher's
// attach-time effects touch (the transaction record, page index, and any
// freeze/chroma/ownership side effects carried in a check.Result), and
// satisfies attach.Persister. It gives no cross-store atomicity; see its
// Attach method. Bolt composes the same effects directly, inside a
// single bbolt transaction, instead of using this type.
type Persister struct {
	Txs     AttachedTxStore
	Chromas ChromaStore
	Frozen  FrozenStore
	Pages   PageIndex
}

// IsAttached satisfies attach.Persister.
func (p *Persister) IsAttached(txid [32]byte) bool {
	return p.Txs.IsAttached(txid)
}
