package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yuvprotocol/node/attach"
	"github.com/yuvprotocol/node/check"
	"github.com/yuvprotocol/node/pixel"
	"github.com/yuvprotocol/node/yuvtx"
)

func newTestPersister() *Persister {
	return &Persister{
		Txs:     NewMemAttachedTxStore(),
		Chromas: NewMemChromaStore(),
		Frozen:  NewMemFrozenStore(),
		Pages:   NewMemPageIndex(10),
	}
}

func TestPersister_IssueAppliesSupplyDeltaAndRecordsTx(t *testing.T) {
	p := newTestPersister()
	require.NoError(t, p.Chromas.Register(ChromaRecord{Chroma: chroma(1), MaxSupply: 1000}))

	c := attach.Candidate{
		TxID: txid(1),
		Tx:   &yuvtx.TokenTx{Kind: yuvtx.KindIssue},
		Result: &check.Result{
			SupplyDelta: &check.SupplyDelta{Chroma: chroma(1), Amount: pixel.NewLuma(250)},
		},
	}
	require.NoError(t, p.Attach(c))
	require.True(t, p.IsAttached(txid(1)))

	info, ok := p.Chromas.ChromaMetadata(chroma(1))
	require.True(t, ok)
	require.Equal(t, uint64(250), info.CurrentSupply)

	got, ok, err := p.Txs.Get(txid(1))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, yuvtx.KindIssue, got.Kind)
}

func TestPersister_FreezeAnnouncementInsertsFrozenOutpoint(t *testing.T) {
	p := newTestPersister()
	target := yuvtx.Outpoint{TxID: txid(9), Vout: 2}

	c := attach.Candidate{
		TxID:   txid(2),
		Tx:     &yuvtx.TokenTx{Kind: yuvtx.KindAnnouncement},
		Result: &check.Result{FreezeTarget: &target},
	}
	require.NoError(t, p.Attach(c))
	require.True(t, p.Frozen.IsFrozen(target))
}

func TestPersister_ChromaRegistrationThenOwnershipTransfer(t *testing.T) {
	p := newTestPersister()

	reg := attach.Candidate{
		TxID: txid(3),
		Tx:   &yuvtx.TokenTx{Kind: yuvtx.KindAnnouncement},
		Result: &check.Result{
			ChromaRegistration: &check.ChromaRegistration{Chroma: chroma(5), Name: "Coin", MaxSupply: 1000},
		},
	}
	require.NoError(t, p.Attach(reg))

	transfer := attach.Candidate{
		TxID: txid(4),
		Tx:   &yuvtx.TokenTx{Kind: yuvtx.KindAnnouncement},
		Result: &check.Result{
			OwnershipTransfer: &check.OwnershipTransfer{Chroma: chroma(5), NewIssuerKey: []byte("new")},
		},
	}
	require.NoError(t, p.Attach(transfer))

	info, ok := p.Chromas.ChromaMetadata(chroma(5))
	require.True(t, ok)
	require.Equal(t, []byte("new"), info.IssuerKey)
}

func TestPersister_DuplicateAttachRejected(t *testing.T) {
	p := newTestPersister()
	c := attach.Candidate{TxID: txid(1), Tx: &yuvtx.TokenTx{Kind: yuvtx.KindIssue}}
	require.NoError(t, p.Attach(c))
	require.Error(t, p.Attach(c))
}
