package pixel

import "encoding/hex"

// burnPointHex is a well-known secp256k1 point with no known discrete
// logarithm (the NUMS_H point used throughout Bitcoin Taproot tooling).
// Freeze and provably-unspendable announcements tweak this point instead
// of a real issuer key, so nobody can ever produce a signature for the
// resulting output.
const burnPointHex = "0250929b74c1a04954b78b4b6035e97a5e078a5a0f28ec96d547bfee9ace803ac0"

// BurnPoint returns the compressed bytes of the well-known point used as
// the inner key for unspendable pixel commitments.
func BurnPoint() []byte {
	b, err := hex.DecodeString(burnPointHex)
	if err != nil {
		panic("pixel: invalid burn point constant: " + err.Error())
	}
	return b
}

// IsBurnPoint reports whether innerKeyCompressed is the well-known burn
// point.
func IsBurnPoint(innerKeyCompressed []byte) bool {
	burn := BurnPoint()
	if len(innerKeyCompressed) != len(burn) {
		return false
	}
	for i := range burn {
		if innerKeyCompressed[i] != burn[i] {
			return false
		}
	}
	return true
}
