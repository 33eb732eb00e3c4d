package pixel

import (
	"crypto/sha256"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// TweakHash computes the tweak scalar preimage H(H(H(luma)||chroma)||P)
// for a pixel committed under inner key P (33-byte compressed).
//
//	lumaHash  = SHA256(luma(16))
//	innerHash = SHA256(lumaHash || chroma(32))
//	tweak     = SHA256(innerHash || innerKeyCompressed)
func TweakHash(px Pixel, innerKeyCompressed []byte) []byte {
	inner := sha256.New()
	lumaHash := sha256.Sum256(px.Luma.Bytes())
	chromaBytes := px.Chroma.Bytes()
	inner.Write(lumaHash[:])
	inner.Write(chromaBytes)
	innerHash := inner.Sum(nil)

	outer := sha256.New()
	outer.Write(innerHash)
	outer.Write(innerKeyCompressed)
	return outer.Sum(nil)
}

// TweakedKey computes the pixel key: H(H(H(luma)||chroma)||P)·G + P, where
// P is the inner key. innerKey must be a 33-byte compressed secp256k1
// public key. Returns the tweaked key in 33-byte compressed form.
func TweakedKey(px Pixel, innerKeyCompressed []byte) ([]byte, error) {
	if len(innerKeyCompressed) == 0 {
		return nil, ErrNilInnerKey
	}

	inner, err := secp256k1.ParsePubKey(innerKeyCompressed)
	if err != nil {
		return nil, fmt.Errorf("pixel: parse inner key: %w", err)
	}

	tweak := TweakHash(px, innerKeyCompressed)

	tweaked, err := addScalarTimesG(inner, tweak)
	if err != nil {
		return nil, err
	}

	return tweaked.SerializeCompressed(), nil
}

// addScalarTimesG computes pub + tweak·G using Jacobian point arithmetic,
// the same construction btcd/dcrd use for BIP-341 Taproot output-key
// tweaking.
func addScalarTimesG(pub *secp256k1.PublicKey, tweak []byte) (*secp256k1.PublicKey, error) {
	var tweakScalar secp256k1.ModNScalar
	overflow := tweakScalar.SetByteSlice(tweak)
	if overflow {
		return nil, fmt.Errorf("pixel: tweak scalar overflows group order")
	}
	if tweakScalar.IsZero() {
		return nil, fmt.Errorf("pixel: tweak scalar is zero")
	}

	var pubJacobian secp256k1.JacobianPoint
	pub.AsJacobian(&pubJacobian)

	var tweakJacobian secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(&tweakScalar, &tweakJacobian)

	var resultJacobian secp256k1.JacobianPoint
	secp256k1.AddNonConst(&pubJacobian, &tweakJacobian, &resultJacobian)

	resultJacobian.ToAffine()
	return secp256k1.NewPublicKey(&resultJacobian.X, &resultJacobian.Y), nil
}
