package check

import (
	"github.com/yuvprotocol/node/pixel"
	"github.com/yuvprotocol/node/yuvtx"
)

// ChromaInfo is the metadata and issuance state the checker needs to
// evaluate Issue, Freeze, Chroma-metadata, and Transfer-ownership rules.
type ChromaInfo struct {
	Registered    bool
	Name          string
	Symbol        string
	Decimals      uint8
	MaxSupply     uint64
	IsFreezable   bool
	IssuerKey     []byte
	CurrentSupply uint64
}

// ChromaLookup resolves a chroma's registered metadata. Backed by the
// chroma-metadata storage trait.
type ChromaLookup interface {
	ChromaMetadata(chroma pixel.Chroma) (ChromaInfo, bool)
}

// FrozenLookup tests outpoint membership in the frozen-outpoints store.
type FrozenLookup interface {
	IsFrozen(outpoint yuvtx.Outpoint) bool
}

// Dependencies bundles the read-only lookups the checker needs. It
// performs no writes: attach-time state mutation is the graph attacher's
// responsibility, not the checker's.
type Dependencies struct {
	Chroma             ChromaLookup
	Frozen             FrozenLookup
	RangeProofVerifier RangeProofVerifier
}

// RangeProofVerifier is the narrow seam the checker needs from the
// bulletproof collaborator: verifying a single commitment's range proof
// and checking homomorphic equality across commitment sets.
type RangeProofVerifier interface {
	VerifyRangeProof(commitment, rangeProof []byte) error
	CommitmentsEqual(inputCommitments, outputCommitments [][]byte) error
}
