package announcement

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/yuvprotocol/node/pixel"
)

const compressedPubKeyLen = 33

// Encode serializes an Announcement into its OP_RETURN payload: the 3-byte
// "yuv" magic, a 1-byte variant tag, then the variant's body.
func Encode(a Announcement) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(Magic[:])
	buf.WriteByte(byte(a.Variant))

	switch a.Variant {
	case VariantChromaMetadata:
		if len(a.Name) > 255 || len(a.Symbol) > 255 {
			return nil, ErrFieldTooLong
		}
		buf.Write(a.Chroma.Bytes())
		buf.WriteByte(byte(len(a.Name)))
		buf.WriteString(a.Name)
		buf.WriteByte(byte(len(a.Symbol)))
		buf.WriteString(a.Symbol)
		buf.WriteByte(a.Decimals)
		var maxSupply [8]byte
		binary.BigEndian.PutUint64(maxSupply[:], a.MaxSupply)
		buf.Write(maxSupply[:])
		if a.IsFreezable {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}

	case VariantFreeze:
		buf.Write(a.Chroma.Bytes())
		buf.Write(a.TargetTxID[:])
		var vout [4]byte
		binary.BigEndian.PutUint32(vout[:], a.TargetVout)
		buf.Write(vout[:])

	case VariantTransferOwnership:
		if len(a.NewIssuerPubKey) != compressedPubKeyLen {
			return nil, fmt.Errorf("%w: new issuer key must be %d bytes", ErrTruncated, compressedPubKeyLen)
		}
		buf.Write(a.Chroma.Bytes())
		buf.Write(a.NewIssuerPubKey)

	default:
		return nil, ErrInvalidVariant
	}

	return buf.Bytes(), nil
}

// Decode parses an Announcement from a raw OP_RETURN payload. At most one
// announcement is expected per transaction; callers must reject any
// additional OP_RETURN output as malformed.
func Decode(data []byte) (Announcement, error) {
	if len(data) < 4 || !bytes.Equal(data[:3], Magic[:]) {
		return Announcement{}, ErrBadMagic
	}
	variant := Variant(data[3])
	r := bytes.NewReader(data[4:])

	switch variant {
	case VariantChromaMetadata:
		chroma, err := readChroma(r)
		if err != nil {
			return Announcement{}, err
		}
		name, err := readLenPrefixed(r)
		if err != nil {
			return Announcement{}, err
		}
		symbol, err := readLenPrefixed(r)
		if err != nil {
			return Announcement{}, err
		}
		decimals, err := readByte(r)
		if err != nil {
			return Announcement{}, err
		}
		maxSupplyBytes, err := readFixed(r, 8)
		if err != nil {
			return Announcement{}, err
		}
		freezableByte, err := readByte(r)
		if err != nil {
			return Announcement{}, err
		}
		return Announcement{
			Variant:     variant,
			Chroma:      chroma,
			Name:        string(name),
			Symbol:      string(symbol),
			Decimals:    decimals,
			MaxSupply:   binary.BigEndian.Uint64(maxSupplyBytes),
			IsFreezable: freezableByte != 0,
		}, nil

	case VariantFreeze:
		chroma, err := readChroma(r)
		if err != nil {
			return Announcement{}, err
		}
		targetTxID, err := readFixed(r, 32)
		if err != nil {
			return Announcement{}, err
		}
		voutBytes, err := readFixed(r, 4)
		if err != nil {
			return Announcement{}, err
		}
		var a Announcement
		a.Variant = variant
		a.Chroma = chroma
		copy(a.TargetTxID[:], targetTxID)
		a.TargetVout = binary.BigEndian.Uint32(voutBytes)
		return a, nil

	case VariantTransferOwnership:
		chroma, err := readChroma(r)
		if err != nil {
			return Announcement{}, err
		}
		newKey, err := readFixed(r, compressedPubKeyLen)
		if err != nil {
			return Announcement{}, err
		}
		return Announcement{Variant: variant, Chroma: chroma, NewIssuerPubKey: newKey}, nil

	default:
		return Announcement{}, ErrInvalidVariant
	}
}

func readChroma(r *bytes.Reader) (pixel.Chroma, error) {
	b, err := readFixed(r, pixel.ChromaSize)
	if err != nil {
		return pixel.Chroma{}, err
	}
	return pixel.ChromaFromBytes(b)
}

func readFixed(r *bytes.Reader, size int) ([]byte, error) {
	b := make([]byte, size)
	n, err := r.Read(b)
	if err != nil || n != size {
		return nil, ErrTruncated
	}
	return b, nil
}

func readByte(r *bytes.Reader) (uint8, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, ErrTruncated
	}
	return b, nil
}

func readLenPrefixed(r *bytes.Reader) ([]byte, error) {
	n, err := readByte(r)
	if err != nil {
		return nil, err
	}
	return readFixed(r, int(n))
}
