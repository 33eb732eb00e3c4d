package check

import (
	"github.com/bsv-blockchain/go-sdk/transaction"

	"github.com/yuvprotocol/node/pixel"
)

// extractSignerPubKeys returns the compressed public keys pushed by an
// input's unlocking script. Bitcoin consensus already enforces that the
// signature over each input verifies against its pushed key before a
// transaction can confirm; the checker only needs to know which key
// signed, not re-verify the ECDSA math itself.
func extractSignerPubKeys(in *transaction.TransactionInput) [][]byte {
	if in.UnlockingScript == nil {
		return nil
	}
	chunks, err := in.UnlockingScript.Chunks()
	if err != nil {
		return nil
	}

	var keys [][]byte
	for _, c := range chunks {
		if len(c.Data) == 33 && (c.Data[0] == 0x02 || c.Data[0] == 0x03) {
			keys = append(keys, c.Data)
		}
	}
	return keys
}

// anyInputSignedBy reports whether any input of sdkTx carries a pushed
// public key matching wantCompressed.
func anyInputSignedBy(sdkTx *transaction.Transaction, wantCompressed []byte) bool {
	for i := range sdkTx.Inputs {
		for _, k := range extractSignerPubKeys(sdkTx.Inputs[i]) {
			if bytesEqual(k, wantCompressed) {
				return true
			}
		}
	}
	return false
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

// xOnlyMatchesCompressed reports whether a 32-byte x-only chroma
// identifier matches the x-coordinate of a 33-byte compressed public key.
func xOnlyMatchesCompressed(chromaXOnly []byte, compressed []byte) bool {
	if len(compressed) != 33 || len(chromaXOnly) != 32 {
		return false
	}
	return bytesEqual(chromaXOnly, compressed[1:])
}

// anyInputSignedByChroma reports whether any input of sdkTx carries a
// pushed public key whose x-coordinate matches chroma's own identifier,
// the fallback identity for a chroma with no recorded issuer key.
func anyInputSignedByChroma(sdkTx *transaction.Transaction, chroma pixel.Chroma) bool {
	chromaXOnly := chroma.Bytes()
	for i := range sdkTx.Inputs {
		for _, k := range extractSignerPubKeys(sdkTx.Inputs[i]) {
			if xOnlyMatchesCompressed(chromaXOnly, k) {
				return true
			}
		}
	}
	return false
}

// authorizedAsIssuer reports whether sdkTx carries a signature from the
// chroma's issuer. A chroma's recorded IssuerKey is only ever set by a
// Transfer-ownership announcement; until one occurs, the chroma's own
// x-only identity is the issuer.
func authorizedAsIssuer(sdkTx *transaction.Transaction, chroma pixel.Chroma, issuerKey []byte) bool {
	if len(issuerKey) != 0 {
		return anyInputSignedBy(sdkTx, issuerKey)
	}
	return anyInputSignedByChroma(sdkTx, chroma)
}
