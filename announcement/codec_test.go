package announcement

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuvprotocol/node/pixel"
)

func testChroma(t *testing.T, seed byte) pixel.Chroma {
	t.Helper()
	c, err := pixel.ChromaFromBytes(bytes.Repeat([]byte{seed}, pixel.ChromaSize))
	require.NoError(t, err)
	return c
}

func TestCodec_ChromaMetadataRoundTrip(t *testing.T) {
	a := ChromaMetadata(testChroma(t, 0x01), "Dollar", "USD", 2, 1_000_000, true)
	enc, err := Encode(a)
	require.NoError(t, err)
	assert.Equal(t, Magic[:], enc[:3])

	got, err := Decode(enc)
	require.NoError(t, err)
	assert.Equal(t, a.Chroma, got.Chroma)
	assert.Equal(t, "Dollar", got.Name)
	assert.Equal(t, "USD", got.Symbol)
	assert.Equal(t, uint8(2), got.Decimals)
	assert.Equal(t, uint64(1_000_000), got.MaxSupply)
	assert.True(t, got.IsFreezable)
}

func TestCodec_FreezeRoundTrip(t *testing.T) {
	var txid [32]byte
	copy(txid[:], bytes.Repeat([]byte{0xaa}, 32))
	a := Freeze(testChroma(t, 0x02), txid, 3)
	enc, err := Encode(a)
	require.NoError(t, err)

	got, err := Decode(enc)
	require.NoError(t, err)
	assert.Equal(t, txid, got.TargetTxID)
	assert.Equal(t, uint32(3), got.TargetVout)
}

func TestCodec_TransferOwnershipRoundTrip(t *testing.T) {
	newKey := bytes.Repeat([]byte{0x03}, 33)
	a := TransferOwnership(testChroma(t, 0x04), newKey)
	enc, err := Encode(a)
	require.NoError(t, err)

	got, err := Decode(enc)
	require.NoError(t, err)
	assert.Equal(t, newKey, got.NewIssuerPubKey)
}

func TestDecode_RejectsBadMagic(t *testing.T) {
	_, err := Decode([]byte{'x', 'y', 'z', 0x01})
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestDecode_RejectsUnknownVariant(t *testing.T) {
	payload := append(Magic[:], 0xff)
	_, err := Decode(payload)
	assert.ErrorIs(t, err, ErrInvalidVariant)
}

func TestEncode_RejectsOversizedName(t *testing.T) {
	a := ChromaMetadata(testChroma(t, 0x05), string(make([]byte, 256)), "SYM", 0, 0, false)
	_, err := Encode(a)
	assert.ErrorIs(t, err, ErrFieldTooLong)
}

func TestDecode_RejectsTruncatedPayload(t *testing.T) {
	payload := append(Magic[:], byte(VariantFreeze))
	_, err := Decode(payload)
	assert.ErrorIs(t, err, ErrTruncated)
}
