package attach

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yuvprotocol/node/eventbus"
)

type fakePersister struct {
	attached map[[32]byte]bool
	order    [][32]byte
}

func newFakePersister() *fakePersister {
	return &fakePersister{attached: make(map[[32]byte]bool)}
}

func (f *fakePersister) IsAttached(txid [32]byte) bool { return f.attached[txid] }

func (f *fakePersister) Attach(c Candidate) error {
	f.attached[c.TxID] = true
	f.order = append(f.order, c.TxID)
	return nil
}

func txid(n byte) [32]byte {
	var id [32]byte
	id[31] = n
	return id
}

func TestProcessBatch_IssuanceAttachesImmediately(t *testing.T) {
	bus := eventbus.New()
	defer bus.Close()
	attached := bus.Subscribe(eventbus.TxAttached, 4)

	p := newFakePersister()
	a := New(p, bus, time.Hour)

	c := &Candidate{TxID: txid(1)}
	require.NoError(t, a.ProcessBatch(time.Now(), []*Candidate{c}))
	require.True(t, p.IsAttached(txid(1)))

	select {
	case ev := <-attached:
		require.Equal(t, txid(1), ev.TxID)
	case <-time.After(time.Second):
		t.Fatal("no TxAttached event")
	}
}

func TestProcessBatch_WaitsOnMissingParentThenUnblocks(t *testing.T) {
	bus := eventbus.New()
	defer bus.Close()
	getData := bus.Subscribe(eventbus.GetData, 4)

	p := newFakePersister()
	a := New(p, bus, time.Hour)

	child := &Candidate{TxID: txid(2), ParentTxIDs: [][32]byte{txid(1)}}
	require.NoError(t, a.ProcessBatch(time.Now(), []*Candidate{child}))
	require.False(t, p.IsAttached(txid(2)))
	require.Equal(t, 1, a.Pending())

	select {
	case ev := <-getData:
		require.Equal(t, txid(1), ev.TxID)
	case <-time.After(time.Second):
		t.Fatal("no GetData event for missing parent")
	}

	// Parent arrives and attaches in the next batch; the child should
	// unblock and attach within the same ProcessBatch call via Q.
	parent := &Candidate{TxID: txid(1)}
	require.NoError(t, a.ProcessBatch(time.Now(), []*Candidate{parent}))

	// The child is only re-admitted once its parent attachment pushes it
	// onto Q — simulate the controller re-delivering it after GetData once
	// more is unnecessary here since attachLocked already queues it.
	require.True(t, p.IsAttached(txid(1)))
	require.Eventually(t, func() bool { return p.IsAttached(txid(2)) }, time.Second, time.Millisecond)
	require.Equal(t, 0, a.Pending())
}

func TestProcessBatch_OrdersIssuanceBeforeDependentWithinBatch(t *testing.T) {
	bus := eventbus.New()
	defer bus.Close()
	bus.Subscribe(eventbus.GetData, 4)
	bus.Subscribe(eventbus.TxAttached, 4)

	p := newFakePersister()
	a := New(p, bus, time.Hour)

	parent := &Candidate{TxID: txid(1)}
	child := &Candidate{TxID: txid(2), ParentTxIDs: [][32]byte{txid(1)}}

	// Child listed first in the batch; issuance-like ordering must still
	// attach the parent before resolving the child within the same batch.
	require.NoError(t, a.ProcessBatch(time.Now(), []*Candidate{child, parent}))
	require.True(t, p.IsAttached(txid(1)))
	require.True(t, p.IsAttached(txid(2)))
	require.Equal(t, []([32]byte){txid(1), txid(2)}, p.order)
}

func TestSweep_DropsStaleEntriesAsParentsUnreachable(t *testing.T) {
	bus := eventbus.New()
	defer bus.Close()
	bus.Subscribe(eventbus.GetData, 4)
	unreachable := bus.Subscribe(eventbus.ParentsUnreachable, 4)

	p := newFakePersister()
	a := New(p, bus, time.Minute)

	child := &Candidate{TxID: txid(3), ParentTxIDs: [][32]byte{txid(9)}}
	start := time.Now()
	require.NoError(t, a.ProcessBatch(start, []*Candidate{child}))
	require.Equal(t, 1, a.Pending())

	dropped := a.Sweep(start.Add(2 * time.Minute))
	require.Len(t, dropped, 1)
	require.Equal(t, txid(3), dropped[0].TxID)
	require.Equal(t, 0, a.Pending())

	select {
	case ev := <-unreachable:
		require.Equal(t, txid(3), ev.TxID)
	case <-time.After(time.Second):
		t.Fatal("no ParentsUnreachable event")
	}
}
