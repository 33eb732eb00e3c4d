// Package bulletproof models the range-proof/commitment collaborator the
// specification calls out explicitly: hidden-amount transfers commit a
// luma value behind a Pedersen commitment, and a range proof attests the
// committed value lies in [0, 2^128) without revealing it. The actual
// range-proof algorithm lives in an external commitment library; this
// package provides the injectable Verifier seam plus the homomorphic
// commitment arithmetic the isolated checker needs to enforce per-chroma
// conservation across hidden amounts, which does not depend on bulletproof
// internals.
package bulletproof

import (
	"crypto/sha256"
	"fmt"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// generatorHSeed derives the second Pedersen generator H independently of
// G via hash-to-curve, so no party knows a scalar relating H to G.
const generatorHSeed = "yuv-bulletproof-generator-h"

var generatorH = hashToPoint(generatorHSeed)

// hashToPoint derives a valid compressed secp256k1 point deterministically
// from seed using try-and-increment: hash the seed and a counter, and
// attempt to parse the digest as an x-only coordinate with the even-y
// prefix until one lands on the curve.
func hashToPoint(seed string) []byte {
	for counter := uint32(0); ; counter++ {
		h := sha256.New()
		h.Write([]byte(seed))
		h.Write([]byte{byte(counter >> 24), byte(counter >> 16), byte(counter >> 8), byte(counter)})
		digest := h.Sum(nil)

		candidate := append([]byte{0x02}, digest...)
		if _, err := secp256k1.ParsePubKey(candidate); err == nil {
			return candidate
		}
	}
}

// GeneratorH returns the compressed bytes of the second Pedersen
// generator H, used as the blinding-factor basis.
func GeneratorH() []byte {
	out := make([]byte, len(generatorH))
	copy(out, generatorH)
	return out
}

// Commit computes a Pedersen commitment value*G + blinding*H, committing
// to value while hiding it behind the blinding factor.
func Commit(value, blinding *big.Int) ([]byte, error) {
	vG, err := scalarMultG(value)
	if err != nil {
		return nil, err
	}
	bH, err := scalarMultPoint(blinding, generatorH)
	if err != nil {
		return nil, err
	}
	sum, err := addPoints(vG, bH)
	if err != nil {
		return nil, err
	}
	return sum, nil
}

// AddCommitments sums a list of Pedersen commitments via elliptic-curve
// point addition, exploiting their additive homomorphism: the sum of
// commitments to v1..vn with blinding factors r1..rn is itself a
// commitment to Σvi with blinding Σri.
func AddCommitments(commitments [][]byte) ([]byte, error) {
	if len(commitments) == 0 {
		return nil, fmt.Errorf("%w: no commitments to sum", ErrInvalidCommitment)
	}
	sum := commitments[0]
	for _, c := range commitments[1:] {
		var err error
		sum, err = addPoints(sum, c)
		if err != nil {
			return nil, err
		}
	}
	return sum, nil
}

// CommitmentsEqual reports whether the sum of lhs equals the sum of rhs
// as elliptic-curve points, the check the isolated checker uses in place
// of a clear-amount sum when a chroma's inputs or outputs are hidden.
func CommitmentsEqual(lhs, rhs [][]byte) error {
	lhsSum, err := AddCommitments(lhs)
	if err != nil {
		return err
	}
	rhsSum, err := AddCommitments(rhs)
	if err != nil {
		return err
	}
	if !bytesEqual(lhsSum, rhsSum) {
		return ErrCommitmentMismatch
	}
	return nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func scalarMultG(k *big.Int) ([]byte, error) {
	var scalar secp256k1.ModNScalar
	scalar.SetByteSlice(normalizeScalarBytes(k))

	var result secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(&scalar, &result)
	result.ToAffine()
	return secp256k1.NewPublicKey(&result.X, &result.Y).SerializeCompressed(), nil
}

func scalarMultPoint(k *big.Int, point []byte) ([]byte, error) {
	pub, err := secp256k1.ParsePubKey(point)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCommitment, err)
	}
	var jacobian secp256k1.JacobianPoint
	pub.AsJacobian(&jacobian)

	var scalar secp256k1.ModNScalar
	scalar.SetByteSlice(normalizeScalarBytes(k))

	var result secp256k1.JacobianPoint
	secp256k1.ScalarMultNonConst(&scalar, &jacobian, &result)
	result.ToAffine()
	return secp256k1.NewPublicKey(&result.X, &result.Y).SerializeCompressed(), nil
}

func addPoints(a, b []byte) ([]byte, error) {
	pa, err := secp256k1.ParsePubKey(a)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCommitment, err)
	}
	pb, err := secp256k1.ParsePubKey(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCommitment, err)
	}

	var ja, jb, jr secp256k1.JacobianPoint
	pa.AsJacobian(&ja)
	pb.AsJacobian(&jb)
	secp256k1.AddNonConst(&ja, &jb, &jr)
	jr.ToAffine()
	return secp256k1.NewPublicKey(&jr.X, &jr.Y).SerializeCompressed(), nil
}

// curveOrder is the order of the secp256k1 base point G.
var curveOrder, _ = new(big.Int).SetString("fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141", 16)

// normalizeScalarBytes pads or truncates k to a 32-byte big-endian buffer
// suitable for ModNScalar.SetByteSlice.
func normalizeScalarBytes(k *big.Int) []byte {
	b := new(big.Int).Mod(k, curveOrder).Bytes()
	out := make([]byte, 32)
	copy(out[32-len(b):], b)
	return out
}
