package bulletproof

import "errors"

var (
	// ErrInvalidCommitment indicates a commitment does not parse as a
	// compressed secp256k1 point.
	ErrInvalidCommitment = errors.New("bulletproof: invalid commitment bytes")

	// ErrRangeProofFailed indicates a range proof failed verification
	// against its commitment.
	ErrRangeProofFailed = errors.New("bulletproof: range proof verification failed")

	// ErrCommitmentMismatch indicates a homomorphic equality check
	// between input and output commitments failed.
	ErrCommitmentMismatch = errors.New("bulletproof: commitment sums are not equal")
)
