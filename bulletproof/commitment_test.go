package bulletproof

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommit_Deterministic(t *testing.T) {
	c1, err := Commit(big.NewInt(100), big.NewInt(7))
	require.NoError(t, err)
	c2, err := Commit(big.NewInt(100), big.NewInt(7))
	require.NoError(t, err)
	assert.Equal(t, c1, c2)
}

func TestCommit_DifferentBlindingDiverges(t *testing.T) {
	c1, err := Commit(big.NewInt(100), big.NewInt(7))
	require.NoError(t, err)
	c2, err := Commit(big.NewInt(100), big.NewInt(8))
	require.NoError(t, err)
	assert.NotEqual(t, c1, c2)
}

func TestCommitmentsEqual_HomomorphicSplit(t *testing.T) {
	// A single input of 100 split into outputs of 60 and 40 sums equal
	// under Pedersen homomorphism as long as blinding factors also sum.
	inBlind := big.NewInt(11)
	in, err := Commit(big.NewInt(100), inBlind)
	require.NoError(t, err)

	outBlind1 := big.NewInt(4)
	outBlind2 := new(big.Int).Sub(inBlind, outBlind1)
	out1, err := Commit(big.NewInt(60), outBlind1)
	require.NoError(t, err)
	out2, err := Commit(big.NewInt(40), outBlind2)
	require.NoError(t, err)

	err = CommitmentsEqual([][]byte{in}, [][]byte{out1, out2})
	assert.NoError(t, err)
}

func TestCommitmentsEqual_MismatchDetected(t *testing.T) {
	in, err := Commit(big.NewInt(100), big.NewInt(1))
	require.NoError(t, err)
	out, err := Commit(big.NewInt(99), big.NewInt(1))
	require.NoError(t, err)

	err = CommitmentsEqual([][]byte{in}, [][]byte{out})
	assert.ErrorIs(t, err, ErrCommitmentMismatch)
}

func TestGeneratorH_IsValidPoint(t *testing.T) {
	h := GeneratorH()
	_, err := AddCommitments([][]byte{h, h})
	assert.NoError(t, err)
}

func TestStructuralVerifier_VerifyRangeProof(t *testing.T) {
	v := StructuralVerifier{}
	c, err := Commit(big.NewInt(10), big.NewInt(1))
	require.NoError(t, err)

	assert.NoError(t, v.VerifyRangeProof(c, []byte("proof-bytes")))
	assert.ErrorIs(t, v.VerifyRangeProof(c, nil), ErrRangeProofFailed)
}
