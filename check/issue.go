package check

import (
	"github.com/bsv-blockchain/go-sdk/transaction"

	"github.com/yuvprotocol/node/pixel"
	"github.com/yuvprotocol/node/proof"
)

// checkIssue applies the Issue rules: the chroma's issuer key must have
// signed the transaction (falling back to the chroma's own x-only key
// when no metadata is registered yet, since a never-registered chroma's
// issuer is itself), and the sum of output lumas for that chroma must
// equal the announced amount and respect any registered supply cap.
func checkIssue(sdkTx *transaction.Transaction, outputProofs []proof.Proof, chroma pixel.Chroma, amount pixel.Luma, deps Dependencies) (*Result, *Error) {
	// A chroma with no recorded metadata is its own first issuance: no
	// supply cap applies yet, and the chroma's own key is the issuer.
	info, _ := deps.Chroma.ChromaMetadata(chroma)
	if !authorizedAsIssuer(sdkTx, chroma, info.IssuerKey) {
		return nil, newError(Authorization, ReasonIssuerSigMissing, "no input signed by chroma %s issuer key", chroma)
	}

	sum, cerr := sumClearOutputLuma(outputProofs, chroma)
	if cerr != nil {
		return nil, cerr
	}
	if sum.Cmp(amount) != 0 {
		return nil, newError(Conservation, ReasonConservationFailed, "issued amount %s does not equal announced amount %s", sum, amount)
	}

	if info.MaxSupply != 0 {
		newTotal := info.CurrentSupply + amount.BigInt().Uint64()
		if newTotal < info.CurrentSupply || newTotal > info.MaxSupply {
			return nil, newError(Conservation, ReasonSupplyCapExceeded, "chroma %s supply cap %d exceeded", chroma, info.MaxSupply)
		}
	}

	return &Result{SupplyDelta: &SupplyDelta{Chroma: chroma, Amount: amount}}, nil
}

// sumClearOutputLuma sums the luma of every output proof matching chroma,
// excluding Bulletproof (hidden-amount) outputs from the clear sum.
func sumClearOutputLuma(outputProofs []proof.Proof, chroma pixel.Chroma) (pixel.Luma, *Error) {
	sum := pixel.NewLuma(0)
	for i, p := range outputProofs {
		px, ok := clearPixelOf(p)
		if !ok || px.Chroma != chroma || px.Luma.IsZero() {
			continue
		}
		var err error
		sum, err = sum.Add(px.Luma)
		if err != nil {
			return pixel.Luma{}, newError(Conservation, ReasonConservationFailed, "output %d: %v", i, err)
		}
	}
	return sum, nil
}

// clearPixelOf returns a proof's pixel for variants that carry a clear
// (non-hidden) amount.
func clearPixelOf(p proof.Proof) (pixel.Pixel, bool) {
	switch p.Tag {
	case proof.TagSig, proof.TagMultisig, proof.TagEmptyPixel, proof.TagLightningCommitment, proof.TagLightningHtlc:
		return p.Pixel, true
	default:
		return pixel.Pixel{}, false
	}
}
