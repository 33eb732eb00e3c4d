package pixel

import (
	"fmt"
	"math/big"
)

// lumaBits is the width of a clear-amount luma value.
const lumaBits = 128

// lumaMax is the largest representable clear luma value (2^128 - 1).
var lumaMax = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), lumaBits), big.NewInt(1))

// Luma is a 128-bit token amount. The zero value represents zero luma.
// Hidden (committed) amounts are represented separately by a Pedersen
// commitment in the bulletproof package; Luma only carries clear amounts.
type Luma struct {
	v *big.Int
}

// NewLuma constructs a Luma from a uint64, which always fits in 128 bits.
func NewLuma(amount uint64) Luma {
	return Luma{v: new(big.Int).SetUint64(amount)}
}

// LumaFromBigInt validates and wraps a *big.Int as a Luma.
func LumaFromBigInt(v *big.Int) (Luma, error) {
	if v.Sign() < 0 {
		return Luma{}, ErrLumaNegative
	}
	if v.CmpAbs(lumaMax) > 0 {
		return Luma{}, ErrLumaOverflow
	}
	return Luma{v: new(big.Int).Set(v)}, nil
}

// LumaFromBytes decodes a big-endian 16-byte luma value.
func LumaFromBytes(b []byte) (Luma, error) {
	if len(b) != 16 {
		return Luma{}, fmt.Errorf("pixel: luma bytes must be 16, got %d", len(b))
	}
	return Luma{v: new(big.Int).SetBytes(b)}, nil
}

// Bytes encodes the luma as a big-endian 16-byte value.
func (l Luma) Bytes() []byte {
	out := make([]byte, 16)
	if l.v == nil {
		return out
	}
	b := l.v.Bytes()
	copy(out[16-len(b):], b)
	return out
}

// BigInt returns the luma's value as a *big.Int. The zero value is the
// additive identity.
func (l Luma) BigInt() *big.Int {
	if l.v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(l.v)
}

// IsZero reports whether the luma amount is zero.
func (l Luma) IsZero() bool {
	return l.v == nil || l.v.Sign() == 0
}

// Add returns l + other, erroring if the result overflows 128 bits.
func (l Luma) Add(other Luma) (Luma, error) {
	return LumaFromBigInt(new(big.Int).Add(l.BigInt(), other.BigInt()))
}

// Cmp compares l to other (-1, 0, +1).
func (l Luma) Cmp(other Luma) int {
	return l.BigInt().Cmp(other.BigInt())
}

// String renders the luma in base 10.
func (l Luma) String() string {
	return l.BigInt().String()
}

// GobEncode implements gob.GobEncoder, since v is unexported and would
// otherwise gob-encode as empty.
func (l Luma) GobEncode() ([]byte, error) {
	return l.Bytes(), nil
}

// GobDecode implements gob.GobDecoder.
func (l *Luma) GobDecode(data []byte) error {
	if len(data) == 0 {
		l.v = nil
		return nil
	}
	decoded, err := LumaFromBytes(data)
	if err != nil {
		return err
	}
	*l = decoded
	return nil
}
