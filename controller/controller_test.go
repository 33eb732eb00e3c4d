package controller

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stretchr/testify/require"

	"github.com/yuvprotocol/node/attach"
	"github.com/yuvprotocol/node/bulletproof"
	"github.com/yuvprotocol/node/check"
	"github.com/yuvprotocol/node/eventbus"
	"github.com/yuvprotocol/node/mempool"
	"github.com/yuvprotocol/node/pixel"
	"github.com/yuvprotocol/node/proof"
	"github.com/yuvprotocol/node/store"
	"github.com/yuvprotocol/node/yuvtx"
)

func testKey(t *testing.T, seed byte) []byte {
	t.Helper()
	priv := secp256k1.PrivKeyFromBytes(bytes.Repeat([]byte{seed}, 32))
	return priv.PubKey().SerializeCompressed()
}

func testChroma(t *testing.T, seed byte) pixel.Chroma {
	t.Helper()
	c, err := pixel.ChromaFromBytes(bytes.Repeat([]byte{seed}, pixel.ChromaSize))
	require.NoError(t, err)
	return c
}

func sigProof(chroma pixel.Chroma, luma uint64, innerKey []byte) proof.Proof {
	return proof.Proof{Tag: proof.TagSig, Pixel: pixel.NewPixel(pixel.NewLuma(luma), chroma), InnerKey: innerKey}
}

// buildTx serializes a minimal Bitcoin transaction with one input (whose
// unlocking script optionally pushes signerKey) spending sourceTXID, and
// one output per outputProof carrying that proof's derived scriptPubKey.
func buildTx(t *testing.T, sourceTXID [32]byte, signerKey []byte, outputProofs []proof.Proof) ([]byte, [32]byte) {
	t.Helper()

	unlock := &script.Script{}
	if signerKey != nil {
		require.NoError(t, unlock.AppendPushData(signerKey))
	}

	sdkTx := transaction.NewTransaction()
	sourceTXIDHash := chainhash.Hash(sourceTXID)
	sdkTx.AddInput(&transaction.TransactionInput{
		SourceTXID:       &sourceTXIDHash,
		SourceTxOutIndex: 0,
		UnlockingScript:  unlock,
	})
	for _, p := range outputProofs {
		s, _, err := proof.DeriveScript(p)
		require.NoError(t, err)
		sdkTx.AddOutput(&transaction.TransactionOutput{Satoshis: 1000, LockingScript: script.NewFromBytes(s)})
	}
	raw := sdkTx.Bytes()
	var txid [32]byte
	copy(txid[:], sdkTx.TxID().CloneBytes())
	return raw, txid
}

type harness struct {
	c       *Controller
	bus     *eventbus.Bus
	chromas store.ChromaStore
	frozen  store.FrozenStore
	txs     store.AttachedTxStore
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	bus := eventbus.New()
	t.Cleanup(bus.Close)

	chromas := store.NewMemChromaStore()
	frozen := store.NewMemFrozenStore()
	txs := store.NewMemAttachedTxStore()
	pages := store.NewMemPageIndex(50)

	persister := &store.Persister{Txs: txs, Chromas: chromas, Frozen: frozen, Pages: pages}
	attacher := attach.New(persister, bus, time.Minute)

	deps := check.Dependencies{Chroma: chromas, Frozen: frozen, RangeProofVerifier: bulletproof.StructuralVerifier{}}

	c := New(Deps{
		Bus:         bus,
		Mempool:     mempool.NewMemStore(),
		CheckDeps:   deps,
		Attacher:    attacher,
		AttachedTxs: txs,
		Frozen:      frozen,
		Pages:       pages,
		PoolSize:    2,
	})

	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)
	t.Cleanup(func() {
		cancel()
		c.Stop()
	})

	return &harness{c: c, bus: bus, chromas: chromas, frozen: frozen, txs: txs}
}

func TestController_IssueAdmitsChecksAndAttaches(t *testing.T) {
	h := newHarness(t)

	chroma := testChroma(t, 0x01)
	issuer := testKey(t, 0x02)
	require.NoError(t, h.chromas.Register(store.ChromaRecord{Chroma: chroma, Name: "Coin", Symbol: "COIN", MaxSupply: 1000, IssuerKey: issuer}))

	outProof := sigProof(chroma, 100, testKey(t, 0x03))
	raw, txid := buildTx(t, [32]byte{0xaa}, issuer, []proof.Proof{outProof})

	tx := &yuvtx.TokenTx{
		RawTx:             raw,
		TxID:              txid,
		Kind:              yuvtx.KindIssue,
		OutputProofs:      []proof.Proof{outProof},
		IssueAnnouncement: yuvtx.IssueAnnouncement{Chroma: chroma, Amount: pixel.NewLuma(100)},
	}

	ok, err := h.c.SubmitTransaction(tx, nil)
	require.NoError(t, err)
	require.True(t, ok)

	require.Eventually(t, func() bool {
		v, err := h.c.GetTransactionStatus(txid)
		return err == nil && v.Status == StatusPending
	}, time.Second, 5*time.Millisecond, "expected checked transaction to remain pending in WaitingMined")

	h.bus.Publish(eventbus.Event{Kind: eventbus.TxConfirmed, TxID: txid})
	require.Eventually(t, func() bool {
		v, err := h.c.GetTransactionStatus(txid)
		return err == nil && v.Status == StatusChecked
	}, time.Second, 5*time.Millisecond, "expected first confirmation to reach Mined")

	h.bus.Publish(eventbus.Event{Kind: eventbus.TxFullyConfirmed, TxID: txid})
	require.Eventually(t, func() bool {
		v, err := h.c.GetTransactionStatus(txid)
		return err == nil && v.Status == StatusAttached
	}, time.Second, 5*time.Millisecond, "expected full confirmation to attach the transaction")

	info, ok := h.chromas.ChromaMetadata(chroma)
	require.True(t, ok)
	require.Equal(t, uint64(100), info.CurrentSupply)
}

func TestController_FailedCheckRemovesFromMempool(t *testing.T) {
	h := newHarness(t)

	chroma := testChroma(t, 0x10)
	outProof := sigProof(chroma, 10, testKey(t, 0x11))
	// Claim a different output proof than what the tx actually commits
	// to, so key-binding fails.
	committed := sigProof(chroma, 10, testKey(t, 0x12))
	raw, txid := buildTx(t, [32]byte{0xbb}, testKey(t, 0x13), []proof.Proof{committed})

	tx := &yuvtx.TokenTx{RawTx: raw, TxID: txid, Kind: yuvtx.KindIssue, OutputProofs: []proof.Proof{outProof}}

	ok, err := h.c.SubmitTransaction(tx, nil)
	require.NoError(t, err)
	require.True(t, ok)

	require.Eventually(t, func() bool {
		v, err := h.c.GetTransactionStatus(txid)
		return err == nil && v.Status == StatusNone
	}, time.Second, 5*time.Millisecond, "expected key-binding failure to remove tx from mempool")
}

func TestController_TransferDefersUntilParentAttachesThenAttaches(t *testing.T) {
	h := newHarness(t)

	chroma := testChroma(t, 0x20)
	issuer := testKey(t, 0x21)
	require.NoError(t, h.chromas.Register(store.ChromaRecord{Chroma: chroma, Name: "Coin", Symbol: "COIN", MaxSupply: 1000, IssuerKey: issuer}))

	issueOut := sigProof(chroma, 100, testKey(t, 0x22))
	issueRaw, issueTxID := buildTx(t, [32]byte{0xcc}, issuer, []proof.Proof{issueOut})
	issueTx := &yuvtx.TokenTx{
		RawTx:             issueRaw,
		TxID:              issueTxID,
		Kind:              yuvtx.KindIssue,
		OutputProofs:      []proof.Proof{issueOut},
		IssueAnnouncement: yuvtx.IssueAnnouncement{Chroma: chroma, Amount: pixel.NewLuma(100)},
	}

	transferOut := sigProof(chroma, 100, testKey(t, 0x23))
	transferRaw, transferTxID := buildTx(t, issueTxID, testKey(t, 0x22), []proof.Proof{transferOut})
	transferTx := &yuvtx.TokenTx{
		RawTx:        transferRaw,
		TxID:         transferTxID,
		Kind:         yuvtx.KindTransfer,
		OutputProofs: []proof.Proof{transferOut},
	}

	ok, err := h.c.SubmitTransaction(transferTx, nil)
	require.NoError(t, err)
	require.True(t, ok)

	// The transfer's parent is not attached yet: it should stay
	// Initialized, parked in the awaiting table, rather than fail.
	time.Sleep(20 * time.Millisecond)
	v, err := h.c.GetTransactionStatus(transferTxID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, v.Status)

	ok, err = h.c.SubmitTransaction(issueTx, nil)
	require.NoError(t, err)
	require.True(t, ok)

	h.bus.Publish(eventbus.Event{Kind: eventbus.TxConfirmed, TxID: issueTxID})
	h.bus.Publish(eventbus.Event{Kind: eventbus.TxFullyConfirmed, TxID: issueTxID})

	require.Eventually(t, func() bool {
		v, err := h.c.GetTransactionStatus(issueTxID)
		return err == nil && v.Status == StatusAttached
	}, time.Second, 5*time.Millisecond, "expected issuance to attach")

	require.Eventually(t, func() bool {
		v, err := h.c.GetTransactionStatus(transferTxID)
		return err == nil && v.Status == StatusPending
	}, time.Second, 5*time.Millisecond, "expected deferred transfer to re-enter the check pipeline once its parent attached")

	h.bus.Publish(eventbus.Event{Kind: eventbus.TxConfirmed, TxID: transferTxID})
	h.bus.Publish(eventbus.Event{Kind: eventbus.TxFullyConfirmed, TxID: transferTxID})

	require.Eventually(t, func() bool {
		v, err := h.c.GetTransactionStatus(transferTxID)
		return err == nil && v.Status == StatusAttached
	}, time.Second, 5*time.Millisecond, "expected transfer to attach once its parent was available")
}

func TestController_IsOutputFrozenReflectsFrozenStore(t *testing.T) {
	h := newHarness(t)
	op := yuvtx.Outpoint{TxID: [32]byte{0x01}, Vout: 0}

	require.False(t, h.c.IsOutputFrozen(op))
	require.NoError(t, h.frozen.Insert(op))
	require.True(t, h.c.IsOutputFrozen(op))
}

func TestController_EmulateTransactionDoesNotMutateStores(t *testing.T) {
	h := newHarness(t)

	chroma := testChroma(t, 0x30)
	issuer := testKey(t, 0x31)
	require.NoError(t, h.chromas.Register(store.ChromaRecord{Chroma: chroma, Name: "Coin", MaxSupply: 500, IssuerKey: issuer}))

	outProof := sigProof(chroma, 50, testKey(t, 0x32))
	raw, txid := buildTx(t, [32]byte{0xdd}, issuer, []proof.Proof{outProof})
	tx := &yuvtx.TokenTx{
		RawTx:             raw,
		TxID:              txid,
		Kind:              yuvtx.KindIssue,
		OutputProofs:      []proof.Proof{outProof},
		IssueAnnouncement: yuvtx.IssueAnnouncement{Chroma: chroma, Amount: pixel.NewLuma(50)},
	}

	result, cerr := h.c.EmulateTransaction(tx, nil)
	require.Nil(t, cerr)
	require.NotNil(t, result.SupplyDelta)

	info, ok := h.chromas.ChromaMetadata(chroma)
	require.True(t, ok)
	require.Zero(t, info.CurrentSupply, "emulation must not touch persistent supply state")

	_, attached, err := h.txs.Get(txid)
	require.NoError(t, err)
	require.False(t, attached, "emulation must not persist an attached-tx record")
}

// TestController_StartReconcilesWaitingMinedEntryFromPriorRun exercises
// the startup recovery pass: a mempool entry left in WaitingMined by a
// prior run (never checked this process's lifetime) must be re-checked
// during Start so it can still reach Attached once its confirmations
// replay.
func TestController_StartReconcilesWaitingMinedEntryFromPriorRun(t *testing.T) {
	bus := eventbus.New()
	t.Cleanup(bus.Close)

	chromas := store.NewMemChromaStore()
	frozen := store.NewMemFrozenStore()
	txs := store.NewMemAttachedTxStore()
	pages := store.NewMemPageIndex(50)

	chroma := testChroma(t, 0x50)
	issuer := testKey(t, 0x51)
	require.NoError(t, chromas.Register(store.ChromaRecord{Chroma: chroma, Name: "Coin", MaxSupply: 1000, IssuerKey: issuer}))

	outProof := sigProof(chroma, 75, testKey(t, 0x52))
	raw, txid := buildTx(t, [32]byte{0xff}, issuer, []proof.Proof{outProof})

	mempoolSt := mempool.NewMemStore()
	require.NoError(t, mempoolSt.Admit(mempool.Entry{
		TxID:              txid,
		RawTx:             raw,
		Kind:              yuvtx.KindIssue,
		OutputProofs:      []proof.Proof{outProof},
		IssueAnnouncement: yuvtx.IssueAnnouncement{Chroma: chroma, Amount: pixel.NewLuma(75)},
	}))
	require.NoError(t, mempoolSt.CompareAndSwap(txid, mempool.Initialized, mempool.WaitingMined, nil))

	persister := &store.Persister{Txs: txs, Chromas: chromas, Frozen: frozen, Pages: pages}
	attacher := attach.New(persister, bus, time.Minute)
	deps := check.Dependencies{Chroma: chromas, Frozen: frozen, RangeProofVerifier: bulletproof.StructuralVerifier{}}

	c := New(Deps{
		Bus:         bus,
		Mempool:     mempoolSt,
		CheckDeps:   deps,
		Attacher:    attacher,
		AttachedTxs: txs,
		Frozen:      frozen,
		Pages:       pages,
		PoolSize:    2,
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() { cancel(); c.Stop() })
	c.Start(ctx)

	// Reconciliation must have re-checked the entry synchronously within
	// Start, before any new confirmation event arrives.
	v, err := c.GetTransactionStatus(txid)
	require.NoError(t, err)
	require.Equal(t, StatusPending, v.Status)

	bus.Publish(eventbus.Event{Kind: eventbus.TxConfirmed, TxID: txid})
	bus.Publish(eventbus.Event{Kind: eventbus.TxFullyConfirmed, TxID: txid})

	require.Eventually(t, func() bool {
		v, err := c.GetTransactionStatus(txid)
		return err == nil && v.Status == StatusAttached
	}, time.Second, 5*time.Millisecond, "expected recovered entry to attach once its recheck result was replayed")

	info, ok := chromas.ChromaMetadata(chroma)
	require.True(t, ok)
	require.Equal(t, uint64(75), info.CurrentSupply)
}

// TestController_StartPurgesUnreconcilableEntry exercises the failure arm
// of reconciliation: an entry whose recovered proof no longer satisfies
// conservation (or was corrupted) must be purged from the mempool rather
// than left stuck, since there is no Initialized state left to fall back
// to.
func TestController_StartPurgesUnreconcilableEntry(t *testing.T) {
	bus := eventbus.New()
	t.Cleanup(bus.Close)

	chromas := store.NewMemChromaStore()
	frozen := store.NewMemFrozenStore()
	txs := store.NewMemAttachedTxStore()
	pages := store.NewMemPageIndex(50)

	chroma := testChroma(t, 0x60)
	// Claim a different output proof than the raw transaction's actual
	// commitment, so key-binding fails on recheck.
	outProof := sigProof(chroma, 10, testKey(t, 0x61))
	committed := sigProof(chroma, 10, testKey(t, 0x62))
	raw, txid := buildTx(t, [32]byte{0x99}, testKey(t, 0x63), []proof.Proof{committed})

	mempoolSt := mempool.NewMemStore()
	require.NoError(t, mempoolSt.Admit(mempool.Entry{
		TxID:         txid,
		RawTx:        raw,
		Kind:         yuvtx.KindIssue,
		OutputProofs: []proof.Proof{outProof},
	}))
	require.NoError(t, mempoolSt.CompareAndSwap(txid, mempool.Initialized, mempool.WaitingMined, nil))

	persister := &store.Persister{Txs: txs, Chromas: chromas, Frozen: frozen, Pages: pages}
	attacher := attach.New(persister, bus, time.Minute)
	deps := check.Dependencies{Chroma: chromas, Frozen: frozen, RangeProofVerifier: bulletproof.StructuralVerifier{}}

	c := New(Deps{
		Bus:         bus,
		Mempool:     mempoolSt,
		CheckDeps:   deps,
		Attacher:    attacher,
		AttachedTxs: txs,
		Frozen:      frozen,
		Pages:       pages,
		PoolSize:    2,
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() { cancel(); c.Stop() })
	c.Start(ctx)

	v, err := c.GetTransactionStatus(txid)
	require.NoError(t, err)
	require.Equal(t, StatusNone, v.Status, "expected unreconcilable entry to be purged from the mempool")
}

func TestController_ProvideProofAfterFailedCheckReportsNotFound(t *testing.T) {
	h := newHarness(t)

	chroma := testChroma(t, 0x40)
	issuer := testKey(t, 0x41)
	require.NoError(t, h.chromas.Register(store.ChromaRecord{Chroma: chroma, Name: "Coin", MaxSupply: 500, IssuerKey: issuer}))

	outProof := sigProof(chroma, 20, testKey(t, 0x42))
	raw, txid := buildTx(t, [32]byte{0xee}, issuer, []proof.Proof{outProof})

	// Submit with no output proofs: the announced issuance amount has
	// nothing to sum against, so conservation fails and the first check
	// removes the transaction from the mempool.
	tx := &yuvtx.TokenTx{
		RawTx:             raw,
		TxID:              txid,
		Kind:              yuvtx.KindIssue,
		OutputProofs:      nil,
		IssueAnnouncement: yuvtx.IssueAnnouncement{Chroma: chroma, Amount: pixel.NewLuma(20)},
	}

	ok, err := h.c.SubmitTransaction(tx, nil)
	require.NoError(t, err)
	require.True(t, ok)

	require.Eventually(t, func() bool {
		v, err := h.c.GetTransactionStatus(txid)
		return err == nil && v.Status == StatusNone
	}, time.Second, 5*time.Millisecond, "expected proofless issuance to fail its first check")

	// Once removed from the mempool, a late proof has nothing to attach
	// to -- ProvideProof must report the not-found condition rather than
	// silently requeuing a transaction the mempool no longer owns.
	err = h.c.ProvideProof(txid, []proof.Proof{outProof})
	require.ErrorIs(t, err, mempool.ErrNotFound)
}
