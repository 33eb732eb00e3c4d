package check

import (
	"bytes"

	"github.com/yuvprotocol/node/proof"
)

// checkKeyBinding reconstructs each output proof's expected tweaked key,
// derives the scriptPubKey its script family implies, and requires a
// bit-equal match against the Bitcoin transaction's actual output
// scripts. outputScripts and outputProofs must be the same length;
// callers enforce the structural output-count check first.
func checkKeyBinding(outputScripts [][]byte, outputProofs []proof.Proof) *Error {
	for i, p := range outputProofs {
		expected, _, err := proof.DeriveScript(p)
		if err != nil {
			return newError(Structural, ReasonKeyBindingMismatch, "output %d: derive script: %v", i, err)
		}
		if !bytes.Equal(expected, outputScripts[i]) {
			return newError(Cryptographic, ReasonKeyBindingMismatch, "output %d: scriptPubKey does not match proof's tweaked key", i)
		}
	}
	return nil
}
