// Package yuvtx implements the token transaction: a Bitcoin transaction
// paired with a tagged tx_type carrying the token-protocol proofs and
// announcements that ride along with it.
package yuvtx

import (
	"fmt"

	"github.com/bsv-blockchain/go-sdk/transaction"

	"github.com/yuvprotocol/node/announcement"
	"github.com/yuvprotocol/node/pixel"
	"github.com/yuvprotocol/node/proof"
)

// Kind tags a TokenTx's variant.
type Kind byte

const (
	// KindIssue mints new units of a chroma.
	KindIssue Kind = 1
	// KindTransfer moves existing units between outputs.
	KindTransfer Kind = 2
	// KindAnnouncement carries chroma metadata, a freeze, or an
	// ownership transfer and mints or moves no units itself.
	KindAnnouncement Kind = 3
)

// Outpoint identifies a single Bitcoin transaction output.
type Outpoint struct {
	TxID [32]byte
	Vout uint32
}

// TokenTx is the token-protocol transaction: `(bitcoin_tx, tx_type)`.
type TokenTx struct {
	RawTx []byte
	TxID  [32]byte
	Kind  Kind

	// OutputProofs is populated for Issue and Transfer, one entry per
	// Bitcoin output (EmptyPixel for outputs that carry no tokens).
	OutputProofs []proof.Proof

	// InputProofs is populated for Transfer, one entry per consumed
	// outpoint, resolved from the attaching transaction's output proofs.
	InputProofs []proof.Proof

	// IssueAnnouncement carries the issuing chroma and amount for Issue.
	IssueAnnouncement IssueAnnouncement

	// Announcement carries the OP_RETURN payload for Announcement.
	Announcement announcement.Announcement
}

// IssueAnnouncement names the chroma and amount an Issue transaction
// mints, distinct from the three OP_RETURN Announcement variants.
type IssueAnnouncement struct {
	Chroma pixel.Chroma
	Amount pixel.Luma
}

// New builds a TokenTx from raw Bitcoin transaction bytes and the
// side-channel protocol data that rides alongside it over the wire:
// per-output proofs for Issue and Transfer, an IssueAnnouncement for
// Issue, or an OP_RETURN Announcement for Announcement. It computes TxID
// from rawTx itself rather than trusting a caller-supplied value.
func New(rawTx []byte, kind Kind, outputProofs []proof.Proof, issueAnn IssueAnnouncement, ann announcement.Announcement) (*TokenTx, error) {
	sdkTx, err := transaction.NewTransactionFromBytes(rawTx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseBitcoinTx, err)
	}

	switch kind {
	case KindIssue, KindTransfer:
		if len(outputProofs) != len(sdkTx.Outputs) {
			return nil, fmt.Errorf("%w: %d proofs for %d outputs", ErrProofCountMismatch, len(outputProofs), len(sdkTx.Outputs))
		}
	case KindAnnouncement:
		// Announcement transactions carry their payload in the OP_RETURN
		// output, not in per-output proofs.
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, kind)
	}

	var txid [32]byte
	copy(txid[:], sdkTx.TxID().CloneBytes())

	return &TokenTx{
		RawTx:             rawTx,
		TxID:              txid,
		Kind:              kind,
		OutputProofs:      outputProofs,
		IssueAnnouncement: issueAnn,
		Announcement:      ann,
	}, nil
}

// ParseBitcoinTx parses a TokenTx's raw bytes into a go-sdk Transaction,
// exposing inputs and outputs for the isolated checker.
func (t *TokenTx) ParseBitcoinTx() (*transaction.Transaction, error) {
	if len(t.RawTx) == 0 {
		return nil, ErrNilRawTx
	}
	sdkTx, err := transaction.NewTransactionFromBytes(t.RawTx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseBitcoinTx, err)
	}
	return sdkTx, nil
}

// InputOutpoints returns the outpoints this transaction's inputs consume,
// in input order.
func (t *TokenTx) InputOutpoints() ([]Outpoint, error) {
	sdkTx, err := t.ParseBitcoinTx()
	if err != nil {
		return nil, err
	}
	out := make([]Outpoint, len(sdkTx.Inputs))
	for i, in := range sdkTx.Inputs {
		var op Outpoint
		if in.SourceTXID != nil {
			copy(op.TxID[:], in.SourceTXID[:])
		}
		op.Vout = in.SourceTxOutIndex
		out[i] = op
	}
	return out, nil
}

// OutputScripts returns the raw scriptPubKey bytes of every output, in
// output order, for the isolated checker's key-binding comparison.
func (t *TokenTx) OutputScripts() ([][]byte, error) {
	sdkTx, err := t.ParseBitcoinTx()
	if err != nil {
		return nil, err
	}
	scripts := make([][]byte, len(sdkTx.Outputs))
	for i, o := range sdkTx.Outputs {
		if o.LockingScript != nil {
			scripts[i] = []byte(*o.LockingScript)
		}
	}
	return scripts, nil
}

// IsIssue reports whether t is an Issue transaction.
func (t *TokenTx) IsIssue() bool { return t.Kind == KindIssue }

// IsTransfer reports whether t is a Transfer transaction.
func (t *TokenTx) IsTransfer() bool { return t.Kind == KindTransfer }

// IsAnnouncement reports whether t is an Announcement transaction.
func (t *TokenTx) IsAnnouncement() bool { return t.Kind == KindAnnouncement }
