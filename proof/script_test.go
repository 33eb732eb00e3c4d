package proof

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveScript_Sig(t *testing.T) {
	p := Proof{Tag: TagSig, Pixel: testPixel(t, 100, 0x02), InnerKey: testKey(0x03)}
	s, family, err := DeriveScript(p)
	require.NoError(t, err)
	assert.Equal(t, ScriptP2WPKH, family)
	assert.Equal(t, byte(0x00), s[0])
	assert.Equal(t, byte(20), s[1])
}

func TestDeriveScript_Multisig(t *testing.T) {
	p := Proof{
		Tag:     TagMultisig,
		K:       2,
		N:       2,
		PubKeys: [][]byte{testKey(0x10), testKey(0x11)},
		Pixel:   testPixel(t, 5, 0x20),
	}
	s, family, err := DeriveScript(p)
	require.NoError(t, err)
	assert.Equal(t, ScriptP2WSH, family)
	assert.Equal(t, byte(0x00), s[0])
	assert.Equal(t, byte(32), s[1])
}

func TestDeriveScript_Bulletproof(t *testing.T) {
	p := Proof{Tag: TagBulletproof, Chroma: testPixel(t, 0, 0x40).Chroma, InnerKey: testKey(0x41), Commitment: []byte("c")}
	s, family, err := DeriveScript(p)
	require.NoError(t, err)
	assert.Equal(t, ScriptP2TR, family)
	assert.Equal(t, byte(0x51), s[0])
	assert.Equal(t, byte(32), s[1])
}

func TestDeriveScript_Deterministic(t *testing.T) {
	p := Proof{Tag: TagSig, Pixel: testPixel(t, 9, 0x06), InnerKey: testKey(0x07)}
	s1, _, err := DeriveScript(p)
	require.NoError(t, err)
	s2, _, err := DeriveScript(p)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(s1, s2))
}

func TestDeriveKey_MultisigTweaksEachMember(t *testing.T) {
	p := Proof{
		Tag:     TagMultisig,
		K:       1,
		N:       2,
		PubKeys: [][]byte{testKey(0x50), testKey(0x51)},
		Pixel:   testPixel(t, 3, 0x52),
	}
	keys, err := DeriveKey(p)
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.NotEqual(t, keys[0], keys[1])
}
