package mempool

import (
	"github.com/yuvprotocol/node/announcement"
	"github.com/yuvprotocol/node/proof"
	"github.com/yuvprotocol/node/yuvtx"
)

// State is a mempool entry's position in its lifecycle.
type State int

const (
	// Initialized is the state a transaction enters on admission.
	Initialized State = iota
	// WaitingMined is the state after the isolated checker accepts a
	// transaction, before its first Bitcoin confirmation.
	WaitingMined
	// Mined is the state after a transaction's first confirmation, before
	// it reaches full confirmation depth.
	Mined
	// Attaching is the state after full confirmation, while the graph
	// attacher resolves the transaction's parent ancestry.
	Attaching
)

// String renders a State for logging.
func (s State) String() string {
	switch s {
	case Initialized:
		return "Initialized"
	case WaitingMined:
		return "WaitingMined"
	case Mined:
		return "Mined"
	case Attaching:
		return "Attaching"
	default:
		return "Unknown"
	}
}

// Entry is a single mempool-tracked transaction and its current state.
type Entry struct {
	TxID  [32]byte
	State State

	// RawTx is the serialized Bitcoin transaction, preserved across every
	// transition so a crash-recovered node can resume without re-fetching it.
	RawTx []byte

	// Kind, OutputProofs, IssueAnnouncement and Announcement mirror the
	// side-channel protocol data yuvtx.New takes alongside RawTx. They are
	// carried on the entry, not just held in the controller's in-memory
	// tables, so a restarted node can rebuild the full TokenTx for any
	// entry still in flight and re-drive it through the checker or
	// attacher without waiting for the submitter to resend it.
	Kind              yuvtx.Kind
	OutputProofs      []proof.Proof
	IssueAnnouncement yuvtx.IssueAnnouncement
	Announcement      announcement.Announcement

	// InvalidReason is set only transiently, when a caller wants to log why
	// a transaction is about to be removed; the entry itself is deleted on
	// Invalid, since the entry is removed rather than transitioned there.
	InvalidReason string
}

// TokenTx rebuilds the full yuvtx.TokenTx this entry was admitted with,
// re-deriving TxID and re-validating proof counts exactly as the original
// yuvtx.New call did.
func (e Entry) TokenTx() (*yuvtx.TokenTx, error) {
	return yuvtx.New(e.RawTx, e.Kind, e.OutputProofs, e.IssueAnnouncement, e.Announcement)
}
