package announcement

import "errors"

var (
	// ErrBadMagic indicates the OP_RETURN payload does not start with the
	// "yuv" protocol magic.
	ErrBadMagic = errors.New("announcement: missing protocol magic")

	// ErrInvalidVariant indicates the variant tag byte is unrecognized.
	ErrInvalidVariant = errors.New("announcement: unrecognized variant tag")

	// ErrTruncated indicates the payload ended before a required field
	// could be read in full.
	ErrTruncated = errors.New("announcement: truncated payload")

	// ErrFieldTooLong indicates a length-prefixed field (name or symbol)
	// exceeds its 1-byte length limit.
	ErrFieldTooLong = errors.New("announcement: field exceeds 255 bytes")
)
