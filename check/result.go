package check

import (
	"github.com/yuvprotocol/node/pixel"
	"github.com/yuvprotocol/node/yuvtx"
)

// Result carries the isolated checker's verdict plus whatever derived
// state the graph attacher needs to apply the transaction's side effects
// atomically, without re-deriving them from the proofs a second time.
type Result struct {
	// SupplyDelta, if non-nil, is the amount an Issue adds to its
	// chroma's running supply.
	SupplyDelta *SupplyDelta

	// FreezeTarget, if non-nil, is the outpoint a Freeze announcement
	// marks frozen.
	FreezeTarget *yuvtx.Outpoint

	// ChromaRegistration, if non-nil, is the metadata a Chroma-metadata
	// announcement registers.
	ChromaRegistration *ChromaRegistration

	// OwnershipTransfer, if non-nil, is the issuer-key update a
	// Transfer-ownership announcement applies.
	OwnershipTransfer *OwnershipTransfer
}

// SupplyDelta names the chroma and amount an Issue contributes.
type SupplyDelta struct {
	Chroma pixel.Chroma
	Amount pixel.Luma
}

// ChromaRegistration is the metadata to register for a new chroma.
type ChromaRegistration struct {
	Chroma      pixel.Chroma
	Name        string
	Symbol      string
	Decimals    uint8
	MaxSupply   uint64
	IsFreezable bool
}

// OwnershipTransfer names the chroma and new issuer key to apply.
type OwnershipTransfer struct {
	Chroma       pixel.Chroma
	NewIssuerKey []byte
}
