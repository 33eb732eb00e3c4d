package check

import (
	"github.com/bsv-blockchain/go-sdk/transaction"

	"github.com/yuvprotocol/node/announcement"
	"github.com/yuvprotocol/node/proof"
	"github.com/yuvprotocol/node/yuvtx"
)

// Check validates a token transaction in isolation: no storage writes, no
// network I/O. inputProofs must be resolved by the caller from the
// outpoint → attached-transaction output-proof map before calling Check;
// for Issue and Announcement transactions it is unused.
func Check(tx *yuvtx.TokenTx, inputProofs []proof.Proof, deps Dependencies) (*Result, *Error) {
	sdkTx, err := tx.ParseBitcoinTx()
	if err != nil {
		return nil, newError(Structural, ReasonOutputCountMismatch, "%v", err)
	}

	if len(tx.OutputProofs) > len(sdkTx.Outputs) {
		return nil, newError(Structural, ReasonOutputCountMismatch, "%d proved outputs but transaction has %d outputs", len(tx.OutputProofs), len(sdkTx.Outputs))
	}

	outputScripts := make([][]byte, len(tx.OutputProofs))
	for i := range tx.OutputProofs {
		if sdkTx.Outputs[i].LockingScript == nil {
			return nil, newError(Structural, ReasonOutputCountMismatch, "output %d has no locking script", i)
		}
		outputScripts[i] = []byte(*sdkTx.Outputs[i].LockingScript)
	}
	if cerr := checkKeyBinding(outputScripts, tx.OutputProofs); cerr != nil {
		return nil, cerr
	}

	switch tx.Kind {
	case yuvtx.KindIssue:
		return checkIssue(sdkTx, tx.OutputProofs, tx.IssueAnnouncement.Chroma, tx.IssueAnnouncement.Amount, deps)

	case yuvtx.KindTransfer:
		outpoints, oerr := tx.InputOutpoints()
		if oerr != nil {
			return nil, newError(Structural, ReasonOutputCountMismatch, "%v", oerr)
		}
		for i, op := range outpoints {
			if deps.Frozen.IsFrozen(op) {
				return nil, newError(Authorization, ReasonFrozen, "input %d spends frozen outpoint %x:%d", i, op.TxID, op.Vout)
			}
		}
		if cerr := checkTransfer(inputProofs, tx.OutputProofs, deps); cerr != nil {
			return nil, cerr
		}
		return &Result{}, nil

	case yuvtx.KindAnnouncement:
		return dispatchAnnouncement(sdkTx, tx.Announcement, deps)

	default:
		return nil, newError(Structural, ReasonOutputCountMismatch, "unknown transaction kind %d", tx.Kind)
	}
}

// dispatchAnnouncement routes a parsed Announcement to its per-variant
// rule function.
func dispatchAnnouncement(sdkTx *transaction.Transaction, a announcement.Announcement, deps Dependencies) (*Result, *Error) {
	switch a.Variant {
	case announcement.VariantChromaMetadata:
		return checkChromaMetadata(a, deps)
	case announcement.VariantFreeze:
		return checkFreeze(sdkTx, a, deps)
	case announcement.VariantTransferOwnership:
		return checkTransferOwnership(sdkTx, a, deps)
	default:
		return nil, newError(Structural, ReasonBadAnnouncement, "unrecognized announcement variant %d", a.Variant)
	}
}
