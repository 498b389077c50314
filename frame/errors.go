package frame

import "errors"

var (
	// ErrTruncated indicates that a response frame is too short to decode.
	ErrTruncated = errors.New("frame: response truncated")

	// ErrValueOutOfRange indicates that a value cannot be encoded in the
	// 4-digit hex value field, i.e. its ceiling is negative, not finite, or
	// greater than 0xFFFF.
	ErrValueOutOfRange = errors.New("frame: value out of range")

	// ErrInvalidHex indicates that a frame field holds non-hexadecimal digits.
	ErrInvalidHex = errors.New("frame: invalid hex digits")

	// ErrInvalidFrame indicates a command frame with a wrong length or markers.
	ErrInvalidFrame = errors.New("frame: invalid command frame")

	// ErrChecksumMismatch indicates that the wire checksum of a command frame
	// does not match the computed one.
	ErrChecksumMismatch = errors.New("frame: checksum mismatch")

	// ErrInvalidScale indicates a zero scale factor.
	ErrInvalidScale = errors.New("frame: invalid scale factor")
)
