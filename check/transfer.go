package check

import (
	"github.com/yuvprotocol/node/pixel"
	"github.com/yuvprotocol/node/proof"
)

// pixelMode distinguishes clear-amount pixels from hidden (Bulletproof)
// commitments, since conservation is checked differently for each.
type pixelMode int

const (
	modeClear pixelMode = iota
	modeHidden
)

// checkTransfer applies the Transfer rules: per-chroma conservation of
// input and output luma (clear sums, or homomorphic commitment equality
// for hidden amounts), no mixing of clear and hidden inputs within a
// single chroma, and rejection of any input whose inner key is the
// well-known burn point.
func checkTransfer(inputProofs, outputProofs []proof.Proof, deps Dependencies) *Error {
	for i, p := range inputProofs {
		if innerKeyOf(p) != nil && pixel.IsBurnPoint(innerKeyOf(p)) {
			return newError(Conservation, ReasonBurnInput, "input %d spends a burnt output", i)
		}
	}

	byChroma := groupByChroma(inputProofs, outputProofs)
	for chroma, g := range byChroma {
		if mixedWithinChroma(g) {
			return newError(Conservation, ReasonMixedPixelMode, "chroma %s mixes clear and hidden pixels", chroma)
		}

		if g.inputMode == modeHidden || g.outputMode == modeHidden {
			if err := checkHiddenConservation(chroma, g, deps); err != nil {
				return err
			}
			continue
		}

		inSum, err := sumLumas(g.inputs)
		if err != nil {
			return err
		}
		outSum, err := sumLumas(g.outputs)
		if err != nil {
			return err
		}
		if inSum.Cmp(outSum) != 0 {
			return newError(Conservation, ReasonConservationFailed, "chroma %s: input sum %s != output sum %s", chroma, inSum, outSum)
		}
	}
	return nil
}

type chromaGroup struct {
	inputs     []pixel.Pixel
	outputs    []pixel.Pixel
	inputMode  pixelMode
	outputMode pixelMode
	inputProof []proof.Proof
	outputProf []proof.Proof
}

func mixedWithinChroma(g chromaGroup) bool {
	seen := map[pixelMode]bool{}
	for _, p := range g.inputProof {
		seen[modeOf(p)] = true
	}
	for _, p := range g.outputProf {
		seen[modeOf(p)] = true
	}
	return len(seen) > 1
}

func modeOf(p proof.Proof) pixelMode {
	if p.Tag == proof.TagBulletproof {
		return modeHidden
	}
	return modeClear
}

func innerKeyOf(p proof.Proof) []byte {
	switch p.Tag {
	case proof.TagSig, proof.TagEmptyPixel, proof.TagBulletproof:
		return p.InnerKey
	case proof.TagLightningCommitment:
		return p.RevocationKey
	case proof.TagLightningHtlc:
		return p.HtlcKey
	default:
		return nil
	}
}

func groupByChroma(inputProofs, outputProofs []proof.Proof) map[pixel.Chroma]chromaGroup {
	groups := make(map[pixel.Chroma]chromaGroup)

	for _, p := range inputProofs {
		chroma, px, ok := chromaAndPixelOf(p)
		if !ok || px.IsEmpty() {
			continue
		}
		g := groups[chroma]
		g.inputs = append(g.inputs, px)
		g.inputProof = append(g.inputProof, p)
		g.inputMode = modeOf(p)
		groups[chroma] = g
	}
	for _, p := range outputProofs {
		chroma, px, ok := chromaAndPixelOf(p)
		if !ok || px.IsEmpty() {
			continue
		}
		g := groups[chroma]
		g.outputs = append(g.outputs, px)
		g.outputProf = append(g.outputProf, p)
		g.outputMode = modeOf(p)
		groups[chroma] = g
	}
	return groups
}

func chromaAndPixelOf(p proof.Proof) (pixel.Chroma, pixel.Pixel, bool) {
	switch p.Tag {
	case proof.TagSig, proof.TagMultisig, proof.TagEmptyPixel, proof.TagLightningCommitment, proof.TagLightningHtlc:
		return p.Pixel.Chroma, p.Pixel, true
	case proof.TagBulletproof:
		return p.Chroma, pixel.NewPixel(pixel.Luma{}, p.Chroma), true
	default:
		return pixel.Chroma{}, pixel.Pixel{}, false
	}
}

func sumLumas(pixels []pixel.Pixel) (pixel.Luma, *Error) {
	sum := pixel.NewLuma(0)
	for _, px := range pixels {
		var err error
		sum, err = sum.Add(px.Luma)
		if err != nil {
			return pixel.Luma{}, newError(Conservation, ReasonConservationFailed, "%v", err)
		}
	}
	return sum, nil
}

func checkHiddenConservation(chroma pixel.Chroma, g chromaGroup, deps Dependencies) *Error {
	inputCommitments, ierr := commitmentsOf(g.inputProof)
	if ierr != nil {
		return ierr
	}
	outputCommitments, oerr := commitmentsOf(g.outputProf)
	if oerr != nil {
		return oerr
	}

	for _, p := range g.outputProf {
		if p.Tag != proof.TagBulletproof {
			continue
		}
		if err := deps.RangeProofVerifier.VerifyRangeProof(p.Commitment, p.RangeProof); err != nil {
			return newError(Cryptographic, ReasonRangeProofFailed, "chroma %s: %v", chroma, err)
		}
	}

	if err := deps.RangeProofVerifier.CommitmentsEqual(inputCommitments, outputCommitments); err != nil {
		return newError(Conservation, ReasonConservationFailed, "chroma %s: %v", chroma, err)
	}
	return nil
}

func commitmentsOf(proofs []proof.Proof) ([][]byte, *Error) {
	var out [][]byte
	for i, p := range proofs {
		if p.Tag != proof.TagBulletproof {
			continue
		}
		if len(p.Commitment) == 0 {
			return nil, newError(Structural, ReasonBadAnnouncement, "proof %d: empty bulletproof commitment", i)
		}
		out = append(out, p.Commitment)
	}
	return out, nil
}
