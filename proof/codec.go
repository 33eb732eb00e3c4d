package proof

import (
	"bytes"
	"fmt"

	"github.com/yuvprotocol/node/pixel"
)

const (
	compressedPubKeyLen = 33
	lumaLen             = 16
	chromaLen           = pixel.ChromaSize
	pixelLen            = lumaLen + chromaLen
	paymentHashLen      = 32
)

// Encode serializes a Proof into the compact self-describing stream:
// a 1-byte variant tag followed by the variant's fixed-layout fields.
// Senders and validators must encode identically for the tweaked-key
// check to succeed.
func Encode(p Proof) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(byte(p.Tag))

	switch p.Tag {
	case TagSig, TagEmptyPixel:
		if err := writePixel(&buf, p.Pixel); err != nil {
			return nil, err
		}
		if len(p.InnerKey) != compressedPubKeyLen {
			return nil, fmt.Errorf("%w: inner key must be %d bytes", ErrTruncated, compressedPubKeyLen)
		}
		buf.Write(p.InnerKey)

	case TagMultisig:
		if p.N == 0 || p.K == 0 || p.K > p.N || int(p.N) != len(p.PubKeys) {
			return nil, ErrInvalidMultisig
		}
		buf.WriteByte(p.K)
		buf.WriteByte(p.N)
		for _, pk := range p.PubKeys {
			if len(pk) != compressedPubKeyLen {
				return nil, fmt.Errorf("%w: multisig pubkey must be %d bytes", ErrTruncated, compressedPubKeyLen)
			}
			buf.Write(pk)
		}
		if err := writePixel(&buf, p.Pixel); err != nil {
			return nil, err
		}

	case TagLightningCommitment:
		if err := writeFixed(&buf, p.RevocationKey, compressedPubKeyLen); err != nil {
			return nil, err
		}
		if err := writePixel(&buf, p.Pixel); err != nil {
			return nil, err
		}

	case TagLightningHtlc:
		if err := writeFixed(&buf, p.HtlcKey, compressedPubKeyLen); err != nil {
			return nil, err
		}
		if err := writeFixed(&buf, p.PaymentHash, paymentHashLen); err != nil {
			return nil, err
		}
		if err := writePixel(&buf, p.Pixel); err != nil {
			return nil, err
		}

	case TagBulletproof:
		buf.Write(p.Chroma.Bytes())
		if err := writeFixed(&buf, p.InnerKey, compressedPubKeyLen); err != nil {
			return nil, err
		}
		if len(p.Commitment) == 0 {
			return nil, fmt.Errorf("%w: commitment is empty", ErrTruncated)
		}
		writeVarBytes(&buf, p.Commitment)
		writeVarBytes(&buf, p.RangeProof)

	default:
		return nil, ErrInvalidTag
	}

	return buf.Bytes(), nil
}

// Decode parses a Proof from its compact serialized form.
func Decode(data []byte) (Proof, error) {
	if len(data) < 1 {
		return Proof{}, ErrTruncated
	}
	tag := Tag(data[0])
	r := bytes.NewReader(data[1:])

	switch tag {
	case TagSig, TagEmptyPixel:
		px, err := readPixel(r)
		if err != nil {
			return Proof{}, err
		}
		inner, err := readFixed(r, compressedPubKeyLen)
		if err != nil {
			return Proof{}, err
		}
		return Proof{Tag: tag, Pixel: px, InnerKey: inner}, nil

	case TagMultisig:
		k, err := readByte(r)
		if err != nil {
			return Proof{}, err
		}
		n, err := readByte(r)
		if err != nil {
			return Proof{}, err
		}
		if n == 0 || k == 0 || k > n {
			return Proof{}, ErrInvalidMultisig
		}
		pubKeys := make([][]byte, n)
		for i := range pubKeys {
			pk, err := readFixed(r, compressedPubKeyLen)
			if err != nil {
				return Proof{}, err
			}
			pubKeys[i] = pk
		}
		px, err := readPixel(r)
		if err != nil {
			return Proof{}, err
		}
		return Proof{Tag: tag, K: k, N: n, PubKeys: pubKeys, Pixel: px}, nil

	case TagLightningCommitment:
		rev, err := readFixed(r, compressedPubKeyLen)
		if err != nil {
			return Proof{}, err
		}
		px, err := readPixel(r)
		if err != nil {
			return Proof{}, err
		}
		return Proof{Tag: tag, RevocationKey: rev, Pixel: px}, nil

	case TagLightningHtlc:
		htlc, err := readFixed(r, compressedPubKeyLen)
		if err != nil {
			return Proof{}, err
		}
		hash, err := readFixed(r, paymentHashLen)
		if err != nil {
			return Proof{}, err
		}
		px, err := readPixel(r)
		if err != nil {
			return Proof{}, err
		}
		return Proof{Tag: tag, HtlcKey: htlc, PaymentHash: hash, Pixel: px}, nil

	case TagBulletproof:
		chromaBytes, err := readFixed(r, chromaLen)
		if err != nil {
			return Proof{}, err
		}
		chroma, err := pixel.ChromaFromBytes(chromaBytes)
		if err != nil {
			return Proof{}, err
		}
		inner, err := readFixed(r, compressedPubKeyLen)
		if err != nil {
			return Proof{}, err
		}
		commitment, err := readVarBytes(r)
		if err != nil {
			return Proof{}, err
		}
		rangeProof, err := readVarBytes(r)
		if err != nil {
			return Proof{}, err
		}
		return Proof{Tag: tag, Chroma: chroma, InnerKey: inner, Commitment: commitment, RangeProof: rangeProof}, nil

	default:
		return Proof{}, ErrInvalidTag
	}
}

func writePixel(buf *bytes.Buffer, px pixel.Pixel) error {
	buf.Write(px.Luma.Bytes())
	buf.Write(px.Chroma.Bytes())
	return nil
}

func readPixel(r *bytes.Reader) (pixel.Pixel, error) {
	lumaBytes, err := readFixed(r, lumaLen)
	if err != nil {
		return pixel.Pixel{}, err
	}
	luma, err := pixel.LumaFromBytes(lumaBytes)
	if err != nil {
		return pixel.Pixel{}, err
	}
	chromaBytes, err := readFixed(r, chromaLen)
	if err != nil {
		return pixel.Pixel{}, err
	}
	chroma, err := pixel.ChromaFromBytes(chromaBytes)
	if err != nil {
		return pixel.Pixel{}, err
	}
	return pixel.NewPixel(luma, chroma), nil
}

func writeFixed(buf *bytes.Buffer, b []byte, size int) error {
	if len(b) != size {
		return fmt.Errorf("%w: expected %d bytes, got %d", ErrTruncated, size, len(b))
	}
	buf.Write(b)
	return nil
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

// writeVarBytes writes a length-prefixed byte slice: a 4-byte big-endian
// length followed by the bytes. Used for the variable-length commitment
// and range-proof fields of a Bulletproof proof.
func writeVarBytes(buf *bytes.Buffer, b []byte) {
	n := len(b)
	buf.WriteByte(byte(n >> 24))
	buf.WriteByte(byte(n >> 16))
	buf.WriteByte(byte(n >> 8))
	buf.WriteByte(byte(n))
	buf.Write(b)
}

func readVarBytes(r *bytes.Reader) ([]byte, error) {
	lenBytes, err := readFixed(r, 4)
	if err != nil {
		return nil, err
	}
	n := int(lenBytes[0])<<24 | int(lenBytes[1])<<16 | int(lenBytes[2])<<8 | int(lenBytes[3])
	if n < 0 || n > r.Len() {
		return nil, ErrTruncated
	}
	return readFixed(r, n)
}
