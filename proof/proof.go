// Package proof implements the tagged proof sum type: per-output metadata
// sufficient to recompute a pixel's tweaked key and the scriptPubKey that
// tweaked key must derive.
package proof

import (
	"github.com/yuvprotocol/node/pixel"
)

// Tag identifies a proof variant in its serialized form.
type Tag byte

const (
	// TagSig is a single-key pixel proof.
	TagSig Tag = 0x01
	// TagMultisig is a k-of-n redeem-script pixel proof.
	TagMultisig Tag = 0x02
	// TagLightningCommitment is a Lightning commitment-transaction output.
	TagLightningCommitment Tag = 0x03
	// TagLightningHtlc is a Lightning HTLC output.
	TagLightningHtlc Tag = 0x04
	// TagEmptyPixel marks an uncolored output.
	TagEmptyPixel Tag = 0x05
	// TagBulletproof is a hidden-amount commitment plus range proof.
	TagBulletproof Tag = 0x06
)

// ScriptFamily names the Bitcoin output script family a proof derives.
type ScriptFamily int

const (
	// ScriptP2WPKH is a witness v0 pay-to-pubkey-hash output.
	ScriptP2WPKH ScriptFamily = iota
	// ScriptP2WSH is a witness v0 pay-to-script-hash output.
	ScriptP2WSH
	// ScriptP2TR is a witness v1 (Taproot) output.
	ScriptP2TR
)

// Proof is a tagged sum type carrying exactly the fields its variant needs
// to recompute a tweaked key and derive an expected scriptPubKey. Only the
// fields relevant to Tag are populated; callers must dispatch on Tag before
// reading variant-specific fields.
type Proof struct {
	Tag Tag

	// Pixel is populated for Sig, Multisig, EmptyPixel, and the Lightning
	// variants (clear-amount proofs).
	Pixel pixel.Pixel

	// InnerKey is the single inner key P for Sig, EmptyPixel, and
	// Bulletproof. The Lightning variants use RevocationKey or HtlcKey
	// below instead.
	InnerKey []byte

	// Multisig fields.
	K       uint8
	N       uint8
	PubKeys [][]byte

	// Lightning auxiliary keys, present for LightningCommitment and
	// LightningHtlc respectively.
	RevocationKey []byte
	HtlcKey       []byte
	PaymentHash   []byte

	// Bulletproof fields: a Pedersen commitment to a hidden luma value and
	// the range proof attesting it lies in [0, 2^128).
	Commitment []byte
	RangeProof []byte
	Chroma     pixel.Chroma
}

// IsEmptyPixel reports whether p is the EmptyPixel marker variant.
func (p Proof) IsEmptyPixel() bool {
	return p.Tag == TagEmptyPixel
}

// IsBurn reports whether p's inner key is the well-known burn point.
// Only meaningful for variants carrying a single InnerKey.
func (p Proof) IsBurn() bool {
	return len(p.InnerKey) > 0 && pixel.IsBurnPoint(p.InnerKey)
}
