// Package announcement implements the OP_RETURN wire format carrying
// chroma metadata, freeze, and ownership-transfer records.
package announcement

import "github.com/yuvprotocol/node/pixel"

// Magic is the fixed 3-byte protocol identifier prefixing every
// announcement payload.
var Magic = [3]byte{'y', 'u', 'v'}

// Variant identifies an announcement's payload layout.
type Variant byte

const (
	// VariantChromaMetadata registers a chroma's name, symbol, decimals,
	// max supply, and freezability.
	VariantChromaMetadata Variant = 0x01
	// VariantFreeze marks a target outpoint as frozen for its chroma.
	VariantFreeze Variant = 0x02
	// VariantTransferOwnership reassigns a chroma's issuer key.
	VariantTransferOwnership Variant = 0x03
)

// Announcement is a tagged sum type over the three announcement
// variants. Only the fields relevant to Variant are populated.
type Announcement struct {
	Variant Variant

	// Chroma metadata fields.
	Chroma      pixel.Chroma
	Name        string
	Symbol      string
	Decimals    uint8
	MaxSupply   uint64
	IsFreezable bool

	// Freeze fields.
	TargetTxID [32]byte
	TargetVout uint32

	// Transfer-ownership fields.
	NewIssuerPubKey []byte
}

// ChromaMetadata constructs a Chroma-metadata announcement.
func ChromaMetadata(chroma pixel.Chroma, name, symbol string, decimals uint8, maxSupply uint64, freezable bool) Announcement {
	return Announcement{
		Variant:     VariantChromaMetadata,
		Chroma:      chroma,
		Name:        name,
		Symbol:      symbol,
		Decimals:    decimals,
		MaxSupply:   maxSupply,
		IsFreezable: freezable,
	}
}

// Freeze constructs a Freeze announcement targeting a specific outpoint.
func Freeze(chroma pixel.Chroma, targetTxID [32]byte, targetVout uint32) Announcement {
	return Announcement{
		Variant:    VariantFreeze,
		Chroma:     chroma,
		TargetTxID: targetTxID,
		TargetVout: targetVout,
	}
}

// TransferOwnership constructs a Transfer-ownership announcement.
func TransferOwnership(chroma pixel.Chroma, newIssuerPubKey []byte) Announcement {
	return Announcement{
		Variant:         VariantTransferOwnership,
		Chroma:          chroma,
		NewIssuerPubKey: newIssuerPubKey,
	}
}
