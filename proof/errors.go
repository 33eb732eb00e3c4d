package proof

import "errors"

var (
	// ErrInvalidTag indicates a proof's variant tag byte is unrecognized.
	ErrInvalidTag = errors.New("proof: unrecognized variant tag")

	// ErrTruncated indicates a proof buffer ended before a fixed-length
	// field could be read in full.
	ErrTruncated = errors.New("proof: truncated proof bytes")

	// ErrInvalidPubKey indicates a pubkey field did not parse as a valid
	// compressed secp256k1 point.
	ErrInvalidPubKey = errors.New("proof: invalid public key bytes")

	// ErrInvalidMultisig indicates a multisig proof's k/n or pubkey count
	// is inconsistent.
	ErrInvalidMultisig = errors.New("proof: invalid multisig parameters")

	// ErrUnsupportedScript indicates DeriveScript was asked to derive a
	// script family this variant does not support.
	ErrUnsupportedScript = errors.New("proof: variant does not support this script family")
)
