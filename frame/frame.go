package frame

import (
	"fmt"
	"math"
	"strconv"
)

// Frame geometry.
const (
	// Length is the size of every command frame in bytes.
	Length = 16

	// ResponseLength is the number of bytes read back for every exchange.
	// It is also the minimum response length DecodeResponse accepts.
	ResponseLength = 12

	// MaxValue is the largest raw value the 4-digit value field can carry.
	MaxValue = 0xFFFF

	// StartMarker opens every command frame.
	StartMarker byte = '*'

	// Terminator closes every command frame.
	Terminator byte = '\r'

	// DefaultAddress is the controller address used by single-drop links.
	DefaultAddress = "00"
)

const (
	addressOffset  = 1
	commandOffset  = 3
	reservedOffset = 5
	valueOffset    = 9
	valueSize      = 4
	checksumOffset = 13
	checksumSize   = 2
	terminatorPos  = 15

	// checksum covers offsets 1..12 inclusive
	checksumFrom = 1
	checksumTo   = 13

	// response digits sit at len-7 .. len-4 inclusive
	responseDigitsFromEnd = 7
)

// Command is a 2-character command code.
type Command string

// Set commands.
const (
	CmdSetTemperature           Command = "1c"
	CmdSetProportionalBandwidth Command = "1d"
	CmdSetIntegralGain          Command = "1e"
	CmdSetDerivativeGain        Command = "1f"
	CmdSetRunFlag               Command = "2d"
)

// Get commands.
const (
	CmdGetControlTemperature    Command = "01"
	CmdGetSetTemperature        Command = "03"
	CmdGetPeripheryTemperature  Command = "06"
	CmdGetProportionalBandwidth Command = "51"
	CmdGetIntegralGain          Command = "52"
	CmdGetDerivativeGain        Command = "53"
)

// Valid reports whether c is exactly two characters long.
func (c Command) Valid() bool {
	return len(c) == 2
}

// Scale is the integer divisor that converts a transmitted raw value into a
// physical quantity.
type Scale uint16

const (
	// ScaleTemperature converts 0.01 °C units.
	ScaleTemperature Scale = 100
	// ScaleProportionalBandwidth converts proportional bandwidth units.
	ScaleProportionalBandwidth Scale = 50
	// ScaleGain converts integral and derivative gain units.
	ScaleGain Scale = 100
)

// ScaledValue pairs a raw integer with its scale factor.
type ScaledValue struct {
	Raw   uint16
	Scale Scale
}

// Float returns the physical value Raw / Scale.
func (v ScaledValue) Float() float64 {
	if v.Scale == 0 {
		return float64(v.Raw)
	}

	return float64(v.Raw) / float64(v.Scale)
}

// CeilValue returns ceil(value) as a raw 16-bit field value.
//
// It returns ErrValueOutOfRange when value is not finite or its ceiling falls
// outside [0, MaxValue].
func CeilValue(value float64) (uint16, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("%w: %v", ErrValueOutOfRange, value)
	}

	c := math.Ceil(value)
	if c < 0 || c > MaxValue {
		return 0, fmt.Errorf("%w: ceil(%v)=%v not in [0, %d]", ErrValueOutOfRange, value, c, MaxValue)
	}

	return uint16(c), nil
}

// CommandFrame is a 16-byte command frame.
type CommandFrame [Length]byte

// newFrame returns an unsealed frame for cmd with every field zeroed.
func newFrame(cmd Command) CommandFrame {
	var f CommandFrame
	for i := range f {
		f[i] = '0'
	}
	f[0] = StartMarker
	copy(f[addressOffset:commandOffset], DefaultAddress)
	copy(f[commandOffset:reservedOffset], cmd)
	f[terminatorPos] = Terminator

	return f
}

// EncodeSet builds a set command frame carrying ceil(value).
//
// A ceiling of exactly 0 or 1 writes a single digit into the lowest byte of
// the value field, which is how flags such as the run flag are sent. Any other
// value is written as lowercase hex, most significant digit first and
// right-justified in the value field.
func EncodeSet(cmd Command, value float64) (CommandFrame, error) {
	raw, err := CeilValue(value)
	if err != nil {
		return CommandFrame{}, err
	}

	f := newFrame(cmd)
	last := valueOffset + valueSize - 1

	if raw == 0 || raw == 1 {
		f[last] = '0' + byte(raw)
	} else {
		digits := strconv.FormatUint(uint64(raw), 16)
		copy(f[last+1-len(digits):last+1], digits)
	}

	f.seal()

	return f, nil
}

// EncodeGet builds a query frame for cmd with a zero value field.
func EncodeGet(cmd Command) CommandFrame {
	f := newFrame(cmd)
	f.seal()

	return f
}

// Checksum returns the modulo-256 sum of data.
func Checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}

	return sum
}

// seal computes the checksum over offsets 1..12 and writes it, right-justified,
// into the checksum field. A single-digit checksum only touches the low byte.
func (f *CommandFrame) seal() {
	cs := f.Checksum()
	digits := strconv.FormatUint(uint64(cs), 16)

	end := checksumOffset + checksumSize
	copy(f[end-len(digits):end], digits)
}

// Checksum computes the frame checksum over offsets 1..12.
func (f CommandFrame) Checksum() byte {
	return Checksum(f[checksumFrom:checksumTo])
}

// WireChecksum parses the checksum field.
func (f CommandFrame) WireChecksum() (byte, error) {
	v, err := strconv.ParseUint(string(f[checksumOffset:checksumOffset+checksumSize]), 16, 8)
	if err != nil {
		return 0, fmt.Errorf("%w: checksum field %q", ErrInvalidHex, f[checksumOffset:checksumOffset+checksumSize])
	}

	return byte(v), nil
}

// Verify checks the frame markers and checksum.
func (f CommandFrame) Verify() error {
	if f[0] != StartMarker || f[terminatorPos] != Terminator {
		return fmt.Errorf("%w: bad markers %q", ErrInvalidFrame, f[:])
	}

	wire, err := f.WireChecksum()
	if err != nil {
		return err
	}

	if calc := f.Checksum(); wire != calc {
		return fmt.Errorf("%w: wire=0x%02x, computed=0x%02x", ErrChecksumMismatch, wire, calc)
	}

	return nil
}

// Address returns the 2-character address field.
func (f CommandFrame) Address() string {
	return string(f[addressOffset:commandOffset])
}

// Command returns the command code.
func (f CommandFrame) Command() Command {
	return Command(f[commandOffset:reservedOffset])
}

// RawValue parses the value field.
func (f CommandFrame) RawValue() (uint16, error) {
	v, err := strconv.ParseUint(string(f[valueOffset:valueOffset+valueSize]), 16, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: value field %q", ErrInvalidHex, f[valueOffset:valueOffset+valueSize])
	}

	return uint16(v), nil
}

// Bytes returns a copy of the frame as a byte slice.
func (f CommandFrame) Bytes() []byte {
	out := make([]byte, Length)
	copy(out, f[:])

	return out
}

// String returns the frame with the terminator escaped, for logging.
func (f CommandFrame) String() string {
	return strconv.Quote(string(f[:]))
}

// DecodeRaw extracts the unsigned magnitude from a response frame.
func DecodeRaw(resp []byte) (uint16, error) {
	if len(resp) < ResponseLength {
		return 0, fmt.Errorf("%w: got %d bytes, want at least %d", ErrTruncated, len(resp), ResponseLength)
	}

	start := len(resp) - responseDigitsFromEnd
	digits := resp[start : start+valueSize]

	v, err := strconv.ParseUint(string(digits), 16, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: response digits %q", ErrInvalidHex, digits)
	}

	return uint16(v), nil
}

// DecodeScaled extracts the raw magnitude of resp and pairs it with scale.
func DecodeScaled(resp []byte, scale Scale) (ScaledValue, error) {
	if scale == 0 {
		return ScaledValue{}, ErrInvalidScale
	}

	raw, err := DecodeRaw(resp)
	if err != nil {
		return ScaledValue{}, err
	}

	return ScaledValue{Raw: raw, Scale: scale}, nil
}

// DecodeResponse decodes resp and divides the magnitude by scale. The result
// is rounded to 4 decimal places.
func DecodeResponse(resp []byte, scale Scale) (float64, error) {
	v, err := DecodeScaled(resp, scale)
	if err != nil {
		return 0, err
	}

	return math.Round(v.Float()*1e4) / 1e4, nil
}
