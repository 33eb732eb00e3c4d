package store

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"

	"github.com/yuvprotocol/node/attach"
	"github.com/yuvprotocol/node/check"
	"github.com/yuvprotocol/node/confirm"
	"github.com/yuvprotocol/node/mempool"
	"github.com/yuvprotocol/node/pixel"
	"github.com/yuvprotocol/node/yuvtx"
)

// DefaultPageSize is the page size Bolt uses for the atomic Attach path
// when the caller does not configure one explicitly.
const DefaultPageSize = 100

var (
	bucketAttachedTxs   = []byte("attached_txs")
	bucketMempool       = []byte("mempool")
	bucketMempoolStatus = []byte("mempool_status")
	bucketChromas       = []byte("chromas")
	bucketFrozen        = []byte("frozen")
	bucketPages         = []byte("pages")
	bucketPageMeta      = []byte("page_meta")
	bucketRecentBlocks  = []byte("recent_blocks")

	allBuckets = [][]byte{
		bucketAttachedTxs, bucketMempool, bucketMempoolStatus, bucketChromas,
		bucketFrozen, bucketPages, bucketPageMeta, bucketRecentBlocks,
	}

	pageMetaKeyCount = []byte("count")
	recentBlocksKey  = []byte("window")
)

// Bolt wraps a bbolt database holding every storage trait in its own
// bucket, grounded on spv/boltstore.go's BoltStore.
type Bolt struct {
	db       *bbolt.DB
	pageSize uint32
}

var _ attach.Persister = (*Bolt)(nil)

// OpenBolt opens or creates the bbolt database at dbPath, creating the
// parent directory and every trait's bucket if necessary. pageSize
// configures the page size Attach uses when appending to the
// transaction-listing page index; 0 selects DefaultPageSize.
func OpenBolt(dbPath string, pageSize uint32) (*Bolt, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("store: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("store: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("store: create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: create buckets: %w", err)
	}

	if pageSize == 0 {
		pageSize = DefaultPageSize
	}
	return &Bolt{db: db, pageSize: pageSize}, nil
}

// Close closes the underlying database.
func (b *Bolt) Close() error { return b.db.Close() }

// AttachedTxs returns an AttachedTxStore backed by this database.
func (b *Bolt) AttachedTxs() *BoltAttachedTxStore { return &BoltAttachedTxStore{db: b.db} }

// Mempool returns a mempool.Store backed by this database.
func (b *Bolt) Mempool() *BoltMempoolStore { return &BoltMempoolStore{db: b.db} }

// Chromas returns a ChromaStore backed by this database.
func (b *Bolt) Chromas() *BoltChromaStore { return &BoltChromaStore{db: b.db} }

// Frozen returns a FrozenStore backed by this database.
func (b *Bolt) Frozen() *BoltFrozenStore { return &BoltFrozenStore{db: b.db} }

// Pages returns a PageIndex backed by this database.
func (b *Bolt) Pages(pageSize uint32) *BoltPageIndex {
	return &BoltPageIndex{db: b.db, pageSize: pageSize}
}

// RecentBlocks returns a RecentBlocksStore backed by this database.
func (b *Bolt) RecentBlocks() *BoltRecentBlocksStore { return &BoltRecentBlocksStore{db: b.db} }

// IsAttached satisfies attach.Persister.
func (b *Bolt) IsAttached(txid [32]byte) bool { return b.AttachedTxs().IsAttached(txid) }

// Attach applies a candidate's atomic attach-time storage effects — any
// chroma/freeze/ownership side effect in c.Result, the page index entry,
// and the attached transaction record itself — inside a single bbolt
// transaction. A crash or error at any point aborts the whole
// transaction, so storage is left exactly as it was before the call; it
// never lands a partial update.
func (b *Bolt) Attach(c attach.Candidate) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		attached := tx.Bucket(bucketAttachedTxs)
		if attached.Get(c.TxID[:]) != nil {
			return fmt.Errorf("%w: %x", ErrDuplicate, c.TxID)
		}

		if err := applyResultInTx(tx, c.Result); err != nil {
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

		if _, _, err := appendPageInTx(tx, b.pageSize, PageEntry{TxID: c.TxID, Kind: entry.Kind}); err != nil {
			return fmt.Errorf("store: append page index for %x: %w", c.TxID, err)
		}

		data, err := encodeGob(entry)
		if err != nil {
			return fmt.Errorf("store: encode attached tx: %w", err)
		}
		return attached.Put(c.TxID[:], data)
	})
}

// applyResultInTx applies a check.Result's storage side effects against
// an in-flight bbolt transaction.
func applyResultInTx(tx *bbolt.Tx, r *check.Result) error {
	if r == nil {
		return nil
	}
	chromas := tx.Bucket(bucketChromas)

	if r.SupplyDelta != nil {
		if err := incrementSupplyInTx(chromas, r.SupplyDelta.Chroma, r.SupplyDelta.Amount); err != nil {
			return err
		}
	}
	if r.FreezeTarget != nil {
		if err := insertFrozenInTx(tx.Bucket(bucketFrozen), *r.FreezeTarget); err != nil {
			return err
		}
	}
	if r.ChromaRegistration != nil {
		reg := r.ChromaRegistration
		rec := ChromaRecord{
			Chroma:      reg.Chroma,
			Name:        reg.Name,
			Symbol:      reg.Symbol,
			Decimals:    reg.Decimals,
			MaxSupply:   reg.MaxSupply,
			IsFreezable: reg.IsFreezable,
		}
		if err := registerChromaInTx(chromas, rec); err != nil {
			return err
		}
	}
	if r.OwnershipTransfer != nil {
		t := r.OwnershipTransfer
		if err := updateIssuerKeyInTx(chromas, t.Chroma, t.NewIssuerKey); err != nil {
			return err
		}
	}
	return nil
}

func encodeGob(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeGob(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

func u32Key(n uint32) []byte {
	k := make([]byte, 4)
	binary.BigEndian.PutUint32(k, n)
	return k
}

// ---------------------------------------------------------------------------
// BoltAttachedTxStore

// BoltAttachedTxStore persists attached transactions in bbolt.
type BoltAttachedTxStore struct{ db *bbolt.DB }

var _ AttachedTxStore = (*BoltAttachedTxStore)(nil)

// IsAttached reports whether txid is already durably attached.
func (s *BoltAttachedTxStore) IsAttached(txid [32]byte) bool {
	var found bool
	_ = s.db.View(func(tx *bbolt.Tx) error {
		found = tx.Bucket(bucketAttachedTxs).Get(txid[:]) != nil
		return nil
	})
	return found
}

// Put writes a single attached transaction record.
func (s *BoltAttachedTxStore) Put(entry AttachedTx) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketAttachedTxs)
		if b.Get(entry.TxID[:]) != nil {
			return fmt.Errorf("%w: %x", ErrDuplicate, entry.TxID)
		}
		data, err := encodeGob(entry)
		if err != nil {
			return fmt.Errorf("store: encode attached tx: %w", err)
		}
		return b.Put(entry.TxID[:], data)
	})
}

// Get retrieves an attached transaction by txid.
func (s *BoltAttachedTxStore) Get(txid [32]byte) (AttachedTx, bool, error) {
	var entry AttachedTx
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketAttachedTxs).Get(txid[:])
		if data == nil {
			return nil
		}
		found = true
		return decodeGob(data, &entry)
	})
	if err != nil {
		return AttachedTx{}, false, fmt.Errorf("store: get attached tx: %w", err)
	}
	return entry, found, nil
}

// PutBatch writes every entry atomically.
func (s *BoltAttachedTxStore) PutBatch(entries []AttachedTx) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketAttachedTxs)
		for _, e := range entries {
			data, err := encodeGob(e)
			if err != nil {
				return fmt.Errorf("store: encode attached tx batch: %w", err)
			}
			if err := b.Put(e.TxID[:], data); err != nil {
				return fmt.Errorf("store: put attached tx batch: %w", err)
			}
		}
		return nil
	})
}

// ---------------------------------------------------------------------------
// BoltMempoolStore

// BoltMempoolStore persists mempool.Entry records in bbolt, secondary-
// indexed by state for ListByState.
type BoltMempoolStore struct{ db *bbolt.DB }

var _ mempool.Store = (*BoltMempoolStore)(nil)

func mempoolStatusKey(state mempool.State, txid [32]byte) []byte {
	k := make([]byte, 1+32)
	k[0] = byte(state)
	copy(k[1:], txid[:])
	return k
}

// Get retrieves an entry by txid.
func (s *BoltMempoolStore) Get(txid [32]byte) (mempool.Entry, bool, error) {
	var e mempool.Entry
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketMempool).Get(txid[:])
		if data == nil {
			return nil
		}
		found = true
		return decodeGob(data, &e)
	})
	if err != nil {
		return mempool.Entry{}, false, fmt.Errorf("store: get mempool entry: %w", err)
	}
	return e, found, nil
}

// Admit inserts a new entry in the Initialized state.
func (s *BoltMempoolStore) Admit(entry mempool.Entry) error {
	entry.State = mempool.Initialized
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMempool)
		if b.Get(entry.TxID[:]) != nil {
			return mempool.ErrAlreadyExists
		}
		data, err := encodeGob(entry)
		if err != nil {
			return fmt.Errorf("store: encode mempool entry: %w", err)
		}
		if err := b.Put(entry.TxID[:], data); err != nil {
			return err
		}
		return tx.Bucket(bucketMempoolStatus).Put(mempoolStatusKey(entry.State, entry.TxID), []byte{})
	})
}

// CompareAndSwap transitions txid's entry from `from` to `to`.
func (s *BoltMempoolStore) CompareAndSwap(txid [32]byte, from, to mempool.State, mutate func(*mempool.Entry)) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMempool)
		data := b.Get(txid[:])
		if data == nil {
			return fmt.Errorf("%w: %x", mempool.ErrNotFound, txid)
		}
		var e mempool.Entry
		if err := decodeGob(data, &e); err != nil {
			return fmt.Errorf("store: decode mempool entry: %w", err)
		}
		if e.State != from {
			return fmt.Errorf("%w: %x is %s, wanted %s", mempool.ErrCASConflict, txid, e.State, from)
		}

		if err := tx.Bucket(bucketMempoolStatus).Delete(mempoolStatusKey(e.State, txid)); err != nil {
			return err
		}
		if mutate != nil {
			mutate(&e)
		}
		e.State = to

		newData, err := encodeGob(e)
		if err != nil {
			return fmt.Errorf("store: encode mempool entry: %w", err)
		}
		if err := b.Put(txid[:], newData); err != nil {
			return err
		}
		return tx.Bucket(bucketMempoolStatus).Put(mempoolStatusKey(to, txid), []byte{})
	})
}

// Remove deletes an entry unconditionally.
func (s *BoltMempoolStore) Remove(txid [32]byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMempool)
		data := b.Get(txid[:])
		if data == nil {
			return fmt.Errorf("%w: %x", mempool.ErrNotFound, txid)
		}
		var e mempool.Entry
		if err := decodeGob(data, &e); err != nil {
			return fmt.Errorf("store: decode mempool entry: %w", err)
		}
		if err := b.Delete(txid[:]); err != nil {
			return err
		}
		return tx.Bucket(bucketMempoolStatus).Delete(mempoolStatusKey(e.State, txid))
	})
}

// ListByState returns every entry currently in the given state.
func (s *BoltMempoolStore) ListByState(state mempool.State) ([]mempool.Entry, error) {
	var out []mempool.Entry
	err := s.db.View(func(tx *bbolt.Tx) error {
		statusBucket := tx.Bucket(bucketMempoolStatus)
		entryBucket := tx.Bucket(bucketMempool)

		prefix := []byte{byte(state)}
		c := statusBucket.Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			txid := k[1:]
			data := entryBucket.Get(txid)
			if data == nil {
				continue
			}
			var e mempool.Entry
			if err := decodeGob(data, &e); err != nil {
				return fmt.Errorf("store: decode mempool entry in list: %w", err)
			}
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: list mempool entries: %w", err)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// BoltChromaStore

// BoltChromaStore persists chroma metadata in bbolt.
type BoltChromaStore struct{ db *bbolt.DB }

var _ ChromaStore = (*BoltChromaStore)(nil)

// ChromaMetadata satisfies check.ChromaLookup.
func (s *BoltChromaStore) ChromaMetadata(chroma pixel.Chroma) (check.ChromaInfo, bool) {
	var rec ChromaRecord
	var found bool
	_ = s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketChromas).Get(chroma[:])
		if data == nil {
			return nil
		}
		found = true
		return decodeGob(data, &rec)
	})
	if !found {
		return check.ChromaInfo{}, false
	}
	return toChromaInfo(rec), true
}

// Register inserts a new chroma's metadata.
func (s *BoltChromaStore) Register(rec ChromaRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return registerChromaInTx(tx.Bucket(bucketChromas), rec)
	})
}

// UpdateIssuerKey applies a Transfer-ownership announcement.
func (s *BoltChromaStore) UpdateIssuerKey(chroma pixel.Chroma, newIssuerKey []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return updateIssuerKeyInTx(tx.Bucket(bucketChromas), chroma, newIssuerKey)
	})
}

// IncrementSupply applies an Issue's minted amount to the running supply.
func (s *BoltChromaStore) IncrementSupply(chroma pixel.Chroma, amount pixel.Luma) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return incrementSupplyInTx(tx.Bucket(bucketChromas), chroma, amount)
	})
}

func registerChromaInTx(b *bbolt.Bucket, rec ChromaRecord) error {
	if b.Get(rec.Chroma[:]) != nil {
		return fmt.Errorf("%w: chroma %x", ErrDuplicate, rec.Chroma)
	}
	data, err := encodeGob(rec)
	if err != nil {
		return fmt.Errorf("store: encode chroma record: %w", err)
	}
	return b.Put(rec.Chroma[:], data)
}

func updateIssuerKeyInTx(b *bbolt.Bucket, chroma pixel.Chroma, newIssuerKey []byte) error {
	data := b.Get(chroma[:])
	if data == nil {
		return fmt.Errorf("%w: chroma %x", ErrNotFound, chroma)
	}
	var rec ChromaRecord
	if err := decodeGob(data, &rec); err != nil {
		return fmt.Errorf("store: decode chroma record: %w", err)
	}
	rec.IssuerKey = newIssuerKey
	newData, err := encodeGob(rec)
	if err != nil {
		return fmt.Errorf("store: encode chroma record: %w", err)
	}
	return b.Put(chroma[:], newData)
}

// incrementSupplyInTx applies an Issue's minted amount to chroma's running
// supply. A chroma with no prior record is its own first issuance: it is
// created on the fly as uncapped and freezable by default, matching the
// checker's treatment of missing metadata.
func incrementSupplyInTx(b *bbolt.Bucket, chroma pixel.Chroma, amount pixel.Luma) error {
	rec := ChromaRecord{Chroma: chroma, IsFreezable: true}
	if data := b.Get(chroma[:]); data != nil {
		if err := decodeGob(data, &rec); err != nil {
			return fmt.Errorf("store: decode chroma record: %w", err)
		}
	}

	next := rec.CurrentSupply + amount.BigInt().Uint64()
	if rec.MaxSupply != 0 && next > rec.MaxSupply {
		return fmt.Errorf("%w: chroma %x", ErrSupplyExceedsCap, chroma)
	}
	rec.CurrentSupply = next

	newData, err := encodeGob(rec)
	if err != nil {
		return fmt.Errorf("store: encode chroma record: %w", err)
	}
	return b.Put(chroma[:], newData)
}

// ---------------------------------------------------------------------------
// BoltFrozenStore

// BoltFrozenStore persists frozen outpoints in bbolt.
type BoltFrozenStore struct{ db *bbolt.DB }

var _ FrozenStore = (*BoltFrozenStore)(nil)

func outpointKey(op yuvtx.Outpoint) []byte {
	k := make([]byte, 32+4)
	copy(k, op.TxID[:])
	binary.BigEndian.PutUint32(k[32:], op.Vout)
	return k
}

// IsFrozen satisfies check.FrozenLookup.
func (s *BoltFrozenStore) IsFrozen(op yuvtx.Outpoint) bool {
	var found bool
	_ = s.db.View(func(tx *bbolt.Tx) error {
		found = tx.Bucket(bucketFrozen).Get(outpointKey(op)) != nil
		return nil
	})
	return found
}

// Insert marks op frozen.
func (s *BoltFrozenStore) Insert(op yuvtx.Outpoint) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return insertFrozenInTx(tx.Bucket(bucketFrozen), op)
	})
}

// insertFrozenInTx marks op frozen against an already-open bucket, so it
// can be shared between Insert's own transaction and Bolt.Attach's.
func insertFrozenInTx(b *bbolt.Bucket, op yuvtx.Outpoint) error {
	key := outpointKey(op)
	if b.Get(key) != nil {
		return fmt.Errorf("%w: %x:%d", ErrAlreadyFrozen, op.TxID, op.Vout)
	}
	return b.Put(key, []byte{1})
}

// ---------------------------------------------------------------------------
// BoltPageIndex

// BoltPageIndex persists the transaction-listing page index in bbolt.
type BoltPageIndex struct {
	db       *bbolt.DB
	pageSize uint32
}

var _ PageIndex = (*BoltPageIndex)(nil)

type pageRow struct {
	Entries []PageEntry
}

// Append adds entry to the tail page.
func (idx *BoltPageIndex) Append(entry PageEntry) (uint32, uint32, error) {
	var page, index uint32
	err := idx.db.Update(func(tx *bbolt.Tx) error {
		var err error
		page, index, err = appendPageInTx(tx, idx.pageSize, entry)
		return err
	})
	return page, index, err
}

// appendPageInTx adds entry to the tail page against an already-open
// transaction, so it can be shared between Append's own transaction and
// Bolt.Attach's.
func appendPageInTx(tx *bbolt.Tx, pageSize uint32, entry PageEntry) (uint32, uint32, error) {
	meta := tx.Bucket(bucketPageMeta)
	pages := tx.Bucket(bucketPages)

	var page, index uint32
	count := pagesCount(meta)
	var row pageRow
	if count > 0 {
		data := pages.Get(u32Key(count - 1))
		if data != nil {
			if err := decodeGob(data, &row); err != nil {
				return 0, 0, fmt.Errorf("store: decode page: %w", err)
			}
		}
	}

	if count == 0 || uint32(len(row.Entries)) >= pageSize {
		row = pageRow{}
		page = count
		count++
	} else {
		page = count - 1
	}
	row.Entries = append(row.Entries, entry)
	index = uint32(len(row.Entries) - 1)

	data, err := encodeGob(row)
	if err != nil {
		return 0, 0, fmt.Errorf("store: encode page: %w", err)
	}
	if err := pages.Put(u32Key(page), data); err != nil {
		return 0, 0, err
	}
	if err := meta.Put(pageMetaKeyCount, u32Key(count)); err != nil {
		return 0, 0, err
	}
	return page, index, nil
}

func pagesCount(meta *bbolt.Bucket) uint32 {
	data := meta.Get(pageMetaKeyCount)
	if data == nil {
		return 0
	}
	return binary.BigEndian.Uint32(data)
}

// Page returns every entry on the given page number.
func (idx *BoltPageIndex) Page(number uint32) ([]PageEntry, error) {
	var row pageRow
	var found bool
	err := idx.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketPages).Get(u32Key(number))
		if data == nil {
			return nil
		}
		found = true
		return decodeGob(data, &row)
	})
	if err != nil {
		return nil, fmt.Errorf("store: get page: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("%w: page %d", ErrNotFound, number)
	}
	return row.Entries, nil
}

// PageCount returns the number of pages written so far.
func (idx *BoltPageIndex) PageCount() (uint32, error) {
	var count uint32
	err := idx.db.View(func(tx *bbolt.Tx) error {
		count = pagesCount(tx.Bucket(bucketPageMeta))
		return nil
	})
	return count, err
}

// ---------------------------------------------------------------------------
// BoltRecentBlocksStore

// BoltRecentBlocksStore persists the confirmator's sliding window in bbolt.
type BoltRecentBlocksStore struct{ db *bbolt.DB }

var _ RecentBlocksStore = (*BoltRecentBlocksStore)(nil)

// Load returns the persisted window, oldest first.
func (s *BoltRecentBlocksStore) Load() ([]confirm.BlockInfo, error) {
	var window []confirm.BlockInfo
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketRecentBlocks).Get(recentBlocksKey)
		if data == nil {
			return nil
		}
		return decodeGob(data, &window)
	})
	if err != nil {
		return nil, fmt.Errorf("store: load recent blocks: %w", err)
	}
	return window, nil
}

// Save overwrites the persisted window.
func (s *BoltRecentBlocksStore) Save(window []confirm.BlockInfo) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := encodeGob(window)
		if err != nil {
			return fmt.Errorf("store: encode recent blocks: %w", err)
		}
		return tx.Bucket(bucketRecentBlocks).Put(recentBlocksKey, data)
	})
}
