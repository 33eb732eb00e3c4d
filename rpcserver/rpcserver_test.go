package rpcserver

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
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
	"github.com/yuvprotocol/node/controller"
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

func hexProof(t *testing.T, p proof.Proof) string {
	t.Helper()
	b, err := proof.Encode(p)
	require.NoError(t, err)
	return hex.EncodeToString(b)
}

// buildTx mirrors controller's test helper: a minimal Bitcoin transaction
// with one input spending sourceTXID and one output per outputProof
// carrying that proof's derived scriptPubKey.
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
	srv     *Server
	bus     *eventbus.Bus
	chromas store.ChromaStore
	frozen  store.FrozenStore
	url     string
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

	ctrl := controller.New(controller.Deps{
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
	ctrl.Start(ctx)
	t.Cleanup(func() {
		cancel()
		ctrl.Stop()
	})

	srv := New("127.0.0.1:0", ctrl)
	require.NoError(t, srv.Start())
	t.Cleanup(func() { _ = srv.Stop() })

	return &harness{srv: srv, bus: bus, chromas: chromas, frozen: frozen, url: fmt.Sprintf("http://%s/", srv.Addr())}
}

func rpcCall(t *testing.T, url, method string, params interface{}) Response {
	t.Helper()
	body, err := json.Marshal(Request{JSONRPC: "2.0", Method: method, Params: params, ID: 1})
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var rpcResp Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rpcResp))
	return rpcResp
}

func decodeResult(t *testing.T, resp Response, target interface{}) {
	t.Helper()
	require.Nil(t, resp.Error, "unexpected rpc error")
	data, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, target))
}

func TestRPC_SendRawIssueThenAttach(t *testing.T) {
	h := newHarness(t)

	chroma := testChroma(t, 0x01)
	issuer := testKey(t, 0x02)
	require.NoError(t, h.chromas.Register(store.ChromaRecord{Chroma: chroma, Name: "Coin", Symbol: "COIN", MaxSupply: 1000, IssuerKey: issuer}))

	outProof := sigProof(chroma, 100, testKey(t, 0x03))
	raw, txid := buildTx(t, [32]byte{0xaa}, issuer, []proof.Proof{outProof})

	params := SendRawTxParam{
		RawTx:        hex.EncodeToString(raw),
		TxType:       "issue",
		OutputProofs: []string{hexProof(t, outProof)},
		IssueChroma:  chroma.String(),
		IssueAmount:  "100",
	}
	resp := rpcCall(t, h.url, "sendrawyuvtransaction", params)
	var sendResult SendRawTxResult
	decodeResult(t, resp, &sendResult)
	require.True(t, sendResult.Accepted)
	require.Equal(t, hex.EncodeToString(txid[:]), sendResult.TxID)

	require.Eventually(t, func() bool {
		resp := rpcCall(t, h.url, "getrawyuvtransaction", TxIDParam{TxID: sendResult.TxID})
		var status TxStatusResult
		decodeResult(t, resp, &status)
		return status.Status == "pending"
	}, time.Second, 5*time.Millisecond, "expected submission to sit pending until the first confirmation")

	h.bus.Publish(eventbus.Event{Kind: eventbus.TxConfirmed, TxID: txid})
	require.Eventually(t, func() bool {
		resp := rpcCall(t, h.url, "getrawyuvtransaction", TxIDParam{TxID: sendResult.TxID})
		var status TxStatusResult
		decodeResult(t, resp, &status)
		return status.Status == "checked"
	}, time.Second, 5*time.Millisecond, "expected checker to admit the issuance")

	h.bus.Publish(eventbus.Event{Kind: eventbus.TxFullyConfirmed, TxID: txid})
	require.Eventually(t, func() bool {
		resp := rpcCall(t, h.url, "getrawyuvtransaction", TxIDParam{TxID: sendResult.TxID})
		var status TxStatusResult
		decodeResult(t, resp, &status)
		return status.Status == "attached"
	}, time.Second, 5*time.Millisecond, "expected full confirmation to attach")

	listResp := rpcCall(t, h.url, "listyuvtransactions", PageParam{Page: 0})
	var listResult TxStatusListResult
	decodeResult(t, listResp, &listResult)
	require.Len(t, listResult.Transactions, 1)
	require.Equal(t, sendResult.TxID, listResult.Transactions[0].TxID)
}

func TestRPC_SendRawTxRejectsBurnOverMax(t *testing.T) {
	h := newHarness(t)

	chroma := testChroma(t, 0x04)
	issuer := testKey(t, 0x05)
	require.NoError(t, h.chromas.Register(store.ChromaRecord{Chroma: chroma, Name: "Coin", MaxSupply: 1000, IssuerKey: issuer}))

	burnProof := proof.Proof{Tag: proof.TagSig, Pixel: pixel.NewPixel(pixel.NewLuma(500), chroma), InnerKey: pixel.BurnPoint()}
	raw, _ := buildTx(t, [32]byte{0xbb}, issuer, []proof.Proof{burnProof})

	params := SendRawTxParam{
		RawTx:         hex.EncodeToString(raw),
		TxType:        "issue",
		OutputProofs:  []string{hexProof(t, burnProof)},
		IssueChroma:   chroma.String(),
		IssueAmount:   "500",
		MaxBurnAmount: "100",
	}
	resp := rpcCall(t, h.url, "sendrawyuvtransaction", params)
	require.NotNil(t, resp.Error)
	require.Equal(t, CodeRejected, resp.Error.Code)
}

func TestRPC_EmulateTransaction(t *testing.T) {
	h := newHarness(t)

	chroma := testChroma(t, 0x06)
	issuer := testKey(t, 0x07)
	require.NoError(t, h.chromas.Register(store.ChromaRecord{Chroma: chroma, Name: "Coin", MaxSupply: 1000, IssuerKey: issuer}))

	outProof := sigProof(chroma, 50, testKey(t, 0x08))
	raw, _ := buildTx(t, [32]byte{0xcc}, issuer, []proof.Proof{outProof})

	params := EmulateParam{
		RawTx:        hex.EncodeToString(raw),
		TxType:       "issue",
		OutputProofs: []string{hexProof(t, outProof)},
		IssueChroma:  chroma.String(),
		IssueAmount:  "50",
	}
	resp := rpcCall(t, h.url, "emulateyuvtransaction", params)
	var result EmulateResult
	decodeResult(t, resp, &result)
	require.Equal(t, "valid", result.Status)

	// An unsigned issuer yields an Authorization/IssuerSigMissing rejection.
	rawUnsigned, _ := buildTx(t, [32]byte{0xcc}, nil, []proof.Proof{outProof})
	params.RawTx = hex.EncodeToString(rawUnsigned)
	resp = rpcCall(t, h.url, "emulateyuvtransaction", params)
	decodeResult(t, resp, &result)
	require.Equal(t, "invalid", result.Status)
	require.Equal(t, "Authorization", result.Category)
}

func TestRPC_IsOutputFrozen(t *testing.T) {
	h := newHarness(t)
	op := OutpointParam{TxID: hex.EncodeToString(bytes.Repeat([]byte{0x01}, 32)), Vout: 0}

	resp := rpcCall(t, h.url, "isyuvtxoutfrozen", op)
	var result FrozenResult
	decodeResult(t, resp, &result)
	require.False(t, result.Frozen)

	var txid [32]byte
	copy(txid[:], bytes.Repeat([]byte{0x01}, 32))
	require.NoError(t, h.frozen.Insert(yuvtx.Outpoint{TxID: txid, Vout: 0}))

	resp = rpcCall(t, h.url, "isyuvtxoutfrozen", op)
	decodeResult(t, resp, &result)
	require.True(t, result.Frozen)
}

func TestRPC_ProvideProofUnknownTxReturnsNotFound(t *testing.T) {
	h := newHarness(t)

	txid := hex.EncodeToString(bytes.Repeat([]byte{0x09}, 32))
	resp := rpcCall(t, h.url, "provideyuvproof", ProvideProofParam{TxID: txid, OutputProofs: nil})
	require.NotNil(t, resp.Error)
	require.Equal(t, CodeNotFound, resp.Error.Code)
}

func TestRPC_GetListRawTransactionsSkipsMissing(t *testing.T) {
	h := newHarness(t)

	chroma := testChroma(t, 0x0a)
	issuer := testKey(t, 0x0b)
	require.NoError(t, h.chromas.Register(store.ChromaRecord{Chroma: chroma, Name: "Coin", MaxSupply: 1000, IssuerKey: issuer}))

	outProof := sigProof(chroma, 10, testKey(t, 0x0c))
	raw, txid := buildTx(t, [32]byte{0xdd}, issuer, []proof.Proof{outProof})

	params := SendRawTxParam{
		RawTx:        hex.EncodeToString(raw),
		TxType:       "issue",
		OutputProofs: []string{hexProof(t, outProof)},
		IssueChroma:  chroma.String(),
		IssueAmount:  "10",
	}
	resp := rpcCall(t, h.url, "sendrawyuvtransaction", params)
	var sendResult SendRawTxResult
	decodeResult(t, resp, &sendResult)
	require.True(t, sendResult.Accepted)

	unknown := hex.EncodeToString(bytes.Repeat([]byte{0xff}, 32))
	listResp := rpcCall(t, h.url, "getlistrawyuvtransactions", TxIDListParam{TxIDs: []string{hex.EncodeToString(txid[:]), unknown}})
	var listResult TxStatusListResult
	decodeResult(t, listResp, &listResult)
	require.Len(t, listResult.Transactions, 1)
	require.Equal(t, hex.EncodeToString(txid[:]), listResult.Transactions[0].TxID)
}
