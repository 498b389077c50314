package frame

import "fmt"

const (
	// ResponseStart opens a controller response.
	ResponseStart byte = '*'

	// ResponseTerminator closes a controller response.
	ResponseTerminator byte = '^'

	responseDataSize = 8
)

// EncodeResponse builds the 12-byte response a controller sends back:
// start marker, 8 hex data digits, 2 hex checksum digits over the data, and
// the '^' terminator. Only the low 16 bits are visible to DecodeResponse.
func EncodeResponse(raw uint32) []byte {
	buf := make([]byte, 0, ResponseLength)
	buf = append(buf, ResponseStart)
	buf = fmt.Appendf(buf, "%08x", raw)
	buf = fmt.Appendf(buf, "%02x", Checksum(buf[1:1+responseDataSize]))
	buf = append(buf, ResponseTerminator)

	return buf
}

// ParseCommand validates data as a command frame as a controller receives it:
// exact length, start marker, terminator and checksum.
func ParseCommand(data []byte) (CommandFrame, error) {
	var f CommandFrame
	if len(data) != Length {
		return f, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidFrame, len(data), Length)
	}

	copy(f[:], data)
	if err := f.Verify(); err != nil {
		return CommandFrame{}, err
	}

	return f, nil
}
