package store

import (
	"fmt"
	"sync"

	"github.com/yuvprotocol/node/check"
	"github.com/yuvprotocol/node/confirm"
	"github.com/yuvprotocol/node/pixel"
	"github.com/yuvprotocol/node/yuvtx"
)

// MemAttachedTxStore is an in-memory AttachedTxStore, grounded on
// spv/store.go's MemTxStore map-and-mutex shape.
type MemAttachedTxStore struct {
	mu      sync.RWMutex
	entries map[[32]byte]AttachedTx
}

// NewMemAttachedTxStore constructs an empty MemAttachedTxStore.
func NewMemAttachedTxStore() *MemAttachedTxStore {
	return &MemAttachedTxStore{entries: make(map[[32]byte]AttachedTx)}
}

var _ AttachedTxStore = (*MemAttachedTxStore)(nil)

// IsAttached reports whether txid is already durably attached.
func (s *MemAttachedTxStore) IsAttached(txid [32]byte) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[txid]
	return ok
}

// Put writes a single attached transaction record.
func (s *MemAttachedTxStore) Put(entry AttachedTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[entry.TxID]; exists {
		return fmt.Errorf("%w: %x", ErrDuplicate, entry.TxID)
	}
	s.entries[entry.TxID] = entry
	return nil
}

// Get retrieves an attached transaction by txid.
func (s *MemAttachedTxStore) Get(txid [32]byte) (AttachedTx, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[txid]
	return e, ok, nil
}

// PutBatch writes every entry atomically.
func (s *MemAttachedTxStore) PutBatch(entries []AttachedTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		s.entries[e.TxID] = e
	}
	return nil
}

// MemChromaStore is an in-memory ChromaStore.
type MemChromaStore struct {
	mu      sync.RWMutex
	records map[pixel.Chroma]ChromaRecord
}

// NewMemChromaStore constructs an empty MemChromaStore.
func NewMemChromaStore() *MemChromaStore {
	return &MemChromaStore{records: make(map[pixel.Chroma]ChromaRecord)}
}

var _ ChromaStore = (*MemChromaStore)(nil)

// ChromaMetadata satisfies check.ChromaLookup.
func (s *MemChromaStore) ChromaMetadata(chroma pixel.Chroma) (check.ChromaInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[chroma]
	if !ok {
		return check.ChromaInfo{}, false
	}
	return toChromaInfo(rec), true
}

func toChromaInfo(rec ChromaRecord) check.ChromaInfo {
	return check.ChromaInfo{
		Registered:    true,
		Name:          rec.Name,
		Symbol:        rec.Symbol,
		Decimals:      rec.Decimals,
		MaxSupply:     rec.MaxSupply,
		IsFreezable:   rec.IsFreezable,
		IssuerKey:     rec.IssuerKey,
		CurrentSupply: rec.CurrentSupply,
	}
}

// Register inserts a new chroma's metadata.
func (s *MemChromaStore) Register(rec ChromaRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[rec.Chroma]; exists {
		return fmt.Errorf("%w: chroma %x", ErrDuplicate, rec.Chroma)
	}
	s.records[rec.Chroma] = rec
	return nil
}

// UpdateIssuerKey applies a Transfer-ownership announcement.
func (s *MemChromaStore) UpdateIssuerKey(chroma pixel.Chroma, newIssuerKey []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[chroma]
	if !ok {
		return fmt.Errorf("%w: chroma %x", ErrNotFound, chroma)
	}
	rec.IssuerKey = newIssuerKey
	s.records[chroma] = rec
	return nil
}

// IncrementSupply applies an Issue's minted amount to the running supply.
// A chroma with no prior record is its own first issuance: it is created
// on the fly as uncapped and freezable by default, matching the
// checker's treatment of missing metadata.
func (s *MemChromaStore) IncrementSupply(chroma pixel.Chroma, amount pixel.Luma) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[chroma]
	if !ok {
		rec = ChromaRecord{Chroma: chroma, IsFreezable: true}
	}

	next := rec.CurrentSupply + amount.BigInt().Uint64()
	if rec.MaxSupply != 0 && next > rec.MaxSupply {
		return fmt.Errorf("%w: chroma %x", ErrSupplyExceedsCap, chroma)
	}
	rec.CurrentSupply = next
	s.records[chroma] = rec
	return nil
}

// MemFrozenStore is an in-memory FrozenStore.
type MemFrozenStore struct {
	mu     sync.RWMutex
	frozen map[yuvtx.Outpoint]bool
}

// NewMemFrozenStore constructs an empty MemFrozenStore.
func NewMemFrozenStore() *MemFrozenStore {
	return &MemFrozenStore{frozen: make(map[yuvtx.Outpoint]bool)}
}

var _ FrozenStore = (*MemFrozenStore)(nil)

// IsFrozen satisfies check.FrozenLookup.
func (s *MemFrozenStore) IsFrozen(op yuvtx.Outpoint) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frozen[op]
}

// Insert marks op frozen.
func (s *MemFrozenStore) Insert(op yuvtx.Outpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frozen[op] {
		return fmt.Errorf("%w: %x:%d", ErrAlreadyFrozen, op.TxID, op.Vout)
	}
	s.frozen[op] = true
	return nil
}

// MemPageIndex is an in-memory PageIndex.
type MemPageIndex struct {
	mu       sync.Mutex
	pageSize uint32
	pages    [][]PageEntry
}

// NewMemPageIndex constructs an empty MemPageIndex with the given page size.
func NewMemPageIndex(pageSize uint32) *MemPageIndex {
	return &MemPageIndex{pageSize: pageSize}
}

var _ PageIndex = (*MemPageIndex)(nil)

// Append adds entry to the tail page.
func (idx *MemPageIndex) Append(entry PageEntry) (uint32, uint32, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if len(idx.pages) == 0 || uint32(len(idx.pages[len(idx.pages)-1])) >= idx.pageSize {
		idx.pages = append(idx.pages, nil)
	}
	last := len(idx.pages) - 1
	idx.pages[last] = append(idx.pages[last], entry)
	return uint32(last), uint32(len(idx.pages[last]) - 1), nil
}

// Page returns every entry on the given page number.
func (idx *MemPageIndex) Page(number uint32) ([]PageEntry, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if int(number) >= len(idx.pages) {
		return nil, fmt.Errorf("%w: page %d", ErrNotFound, number)
	}
	out := make([]PageEntry, len(idx.pages[number]))
	copy(out, idx.pages[number])
	return out, nil
}

// PageCount returns the number of pages written so far.
func (idx *MemPageIndex) PageCount() (uint32, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return uint32(len(idx.pages)), nil
}

// MemRecentBlocksStore is an in-memory RecentBlocksStore.
type MemRecentBlocksStore struct {
	mu     sync.Mutex
	window []confirm.BlockInfo
}

// NewMemRecentBlocksStore constructs an empty MemRecentBlocksStore.
func NewMemRecentBlocksStore() *MemRecentBlocksStore {
	return &MemRecentBlocksStore{}
}

var _ RecentBlocksStore = (*MemRecentBlocksStore)(nil)

// Load returns the persisted window, oldest first.
func (s *MemRecentBlocksStore) Load() ([]confirm.BlockInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]confirm.BlockInfo, len(s.window))
	copy(out, s.window)
	return out, nil
}

// Save overwrites the persisted window.
func (s *MemRecentBlocksStore) Save(window []confirm.BlockInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.window = make([]confirm.BlockInfo, len(window))
	copy(s.window, window)
	return nil
}
