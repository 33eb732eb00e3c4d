package confirm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yuvprotocol/node/eventbus"
)

type fakeChain struct {
	byHash map[[32]byte]*BlockInfo
}

func (f *fakeChain) BlockByHash(hash [32]byte) (*BlockInfo, error) {
	b, ok := f.byHash[hash]
	if !ok {
		return nil, ErrUnknownAncestor
	}
	return b, nil
}

func hashOf(n byte) [32]byte {
	var h [32]byte
	h[0] = n
	return h
}

func txidOf(n byte) [32]byte {
	var h [32]byte
	h[31] = n
	return h
}

func drain(t *testing.T, ch <-chan eventbus.Event, n int) []eventbus.Event {
	t.Helper()
	var out []eventbus.Event
	for i := 0; i < n; i++ {
		select {
		case ev := <-ch:
			out = append(out, ev)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event %d/%d", i+1, n)
		}
	}
	return out
}

func TestObserve_NormalAdvanceEmitsFirstThenFullConfirmation(t *testing.T) {
	bus := eventbus.New()
	defer bus.Close()
	confirmed := bus.Subscribe(eventbus.TxConfirmed, 10)
	fully := bus.Subscribe(eventbus.TxFullyConfirmed, 10)

	tr := New(2, 2, &fakeChain{}, bus)

	require.NoError(t, tr.Observe(BlockInfo{Hash: hashOf(1), TxIDs: [][32]byte{txidOf(0xA)}}))
	ev := drain(t, confirmed, 1)
	require.Equal(t, txidOf(0xA), ev[0].TxID)

	require.NoError(t, tr.Observe(BlockInfo{Hash: hashOf(2), PrevHash: hashOf(1), TxIDs: [][32]byte{txidOf(0xB)}}))
	drain(t, confirmed, 1)

	// Third block pushes the window past depth 2, popping block 1 and
	// fully confirming its transaction.
	require.NoError(t, tr.Observe(BlockInfo{Hash: hashOf(3), PrevHash: hashOf(2), TxIDs: nil}))
	evFull := drain(t, fully, 1)
	require.Equal(t, txidOf(0xA), evFull[0].TxID)
}

func TestObserve_ReorgOrphansDivergedBlocks(t *testing.T) {
	bus := eventbus.New()
	defer bus.Close()
	orphaned := bus.Subscribe(eventbus.TxOrphaned, 10)

	chain := &fakeChain{byHash: map[[32]byte]*BlockInfo{}}
	tr := New(6, 6, chain, bus)

	require.NoError(t, tr.Observe(BlockInfo{Hash: hashOf(1)}))
	require.NoError(t, tr.Observe(BlockInfo{Hash: hashOf(2), PrevHash: hashOf(1), TxIDs: [][32]byte{txidOf(0xC)}}))
	require.NoError(t, tr.Observe(BlockInfo{Hash: hashOf(3), PrevHash: hashOf(2)}))

	// A competing block 3' claims block 2 as its parent too, so the common
	// ancestor is block 2; block 3 must be orphaned. The chain client must
	// be able to resolve block 2 by hash for the walk-back comparison.
	chain.byHash[hashOf(2)] = &BlockInfo{Hash: hashOf(2), PrevHash: hashOf(1), TxIDs: [][32]byte{txidOf(0xC)}}
	alt3 := BlockInfo{Hash: hashOf(0x30), PrevHash: hashOf(2)}
	require.NoError(t, tr.Observe(alt3))

	ev := drain(t, orphaned, 0) // block 3 carried no TxIDs, nothing to drain
	require.Empty(t, ev)

	window := tr.Window()
	require.Equal(t, hashOf(0x30), window[len(window)-1].Hash)
}

func TestObserve_ReorgDeeperThanWindowFails(t *testing.T) {
	bus := eventbus.New()
	defer bus.Close()

	chain := &fakeChain{byHash: map[[32]byte]*BlockInfo{}}
	tr := New(2, 2, chain, bus)

	require.NoError(t, tr.Observe(BlockInfo{Hash: hashOf(1)}))
	require.NoError(t, tr.Observe(BlockInfo{Hash: hashOf(2), PrevHash: hashOf(1)}))
	require.NoError(t, tr.Observe(BlockInfo{Hash: hashOf(3), PrevHash: hashOf(2)}))

	// An unrelated branch whose parent the chain client can resolve, but
	// whose ancestry never meets the window within reorg_window steps.
	chain.byHash[hashOf(0x98)] = &BlockInfo{Hash: hashOf(0x98), PrevHash: hashOf(0x97)}
	unrelated := BlockInfo{Hash: hashOf(0x99), PrevHash: hashOf(0x98)}
	err := tr.Observe(unrelated)
	require.ErrorIs(t, err, ErrReorgTooDeep)
}

func TestObserve_RejectsNilBlock(t *testing.T) {
	tr := New(6, 6, &fakeChain{}, nil)
	require.ErrorIs(t, tr.Observe(BlockInfo{}), ErrNilBlock)
}

type fakeBlocksStore struct {
	window []BlockInfo
}

func (f *fakeBlocksStore) Load() ([]BlockInfo, error) { return f.window, nil }
func (f *fakeBlocksStore) Save(window []BlockInfo) error {
	f.window = append([]BlockInfo(nil), window...)
	return nil
}

func TestLoadWindow_ResumesFromPersistedState(t *testing.T) {
	fake := &fakeBlocksStore{window: []BlockInfo{
		{Hash: hashOf(1)},
		{Hash: hashOf(2), PrevHash: hashOf(1)},
	}}

	tr := New(2, 2, &fakeChain{}, nil)
	require.NoError(t, tr.LoadWindow(fake))

	require.Equal(t, fake.window, tr.Window())
}

func TestObserve_PersistsWindowAfterEveryMutation(t *testing.T) {
	bus := eventbus.New()
	defer bus.Close()
	bus.Subscribe(eventbus.TxConfirmed, 10)
	bus.Subscribe(eventbus.TxFullyConfirmed, 10)

	fake := &fakeBlocksStore{}
	tr := New(2, 2, &fakeChain{}, bus)
	require.NoError(t, tr.LoadWindow(fake))

	require.NoError(t, tr.Observe(BlockInfo{Hash: hashOf(1)}))
	require.Equal(t, tr.Window(), fake.window)

	require.NoError(t, tr.Observe(BlockInfo{Hash: hashOf(2), PrevHash: hashOf(1)}))
	require.Equal(t, tr.Window(), fake.window)

	// Pushing past depth pops the oldest entry; the persisted copy must
	// track the trimmed window, not just grow forever.
	require.NoError(t, tr.Observe(BlockInfo{Hash: hashOf(3), PrevHash: hashOf(2)}))
	require.Len(t, fake.window, 2)
	require.Equal(t, tr.Window(), fake.window)
}
