package pixel

import "errors"

var (
	// ErrInvalidChroma indicates a chroma byte slice is not 32 bytes.
	ErrInvalidChroma = errors.New("pixel: chroma must be 32 bytes")

	// ErrLumaOverflow indicates a luma value exceeds the 128-bit range.
	ErrLumaOverflow = errors.New("pixel: luma exceeds 128 bits")

	// ErrLumaNegative indicates a luma value is negative.
	ErrLumaNegative = errors.New("pixel: luma must not be negative")

	// ErrNilInnerKey indicates a nil inner public key was supplied to a
	// tweak computation.
	ErrNilInnerKey = errors.New("pixel: inner key is nil")
)
