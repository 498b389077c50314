package frame

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeGet_KnownFrames(t *testing.T) {
	// Reference frames sent by the controller vendor's own tooling.
	tests := []struct {
		cmd  Command
		want string
	}{
		{CmdGetControlTemperature, "*00010000000041\r"},
		{CmdGetSetTemperature, "*00030000000043\r"},
		{CmdGetPeripheryTemperature, "*00060000000046\r"},
		{CmdGetProportionalBandwidth, "*00510000000046\r"},
		{CmdGetIntegralGain, "*00520000000047\r"},
		{CmdGetDerivativeGain, "*00530000000048\r"},
	}

	for _, tt := range tests {
		t.Run(string(tt.cmd), func(t *testing.T) {
			f := EncodeGet(tt.cmd)
			assert.Equal(t, tt.want, string(f[:]))
			assert.Len(t, f.Bytes(), Length)
			require.NoError(t, f.Verify())
		})
	}
}

func TestEncodeSet_Temperature(t *testing.T) {
	// 92.5 °C at scale 100 -> 9250 -> 0x2422
	f, err := EncodeSet(CmdSetTemperature, 92.5*float64(ScaleTemperature))
	require.NoError(t, err)

	assert.Equal(t, "*001c000024227e\r", string(f[:]))
	assert.Equal(t, "2422", string(f[valueOffset:valueOffset+valueSize]))
	assert.Equal(t, "00", f.Address())
	assert.Equal(t, CmdSetTemperature, f.Command())
	assert.Equal(t, byte(0x7e), f.Checksum())

	raw, err := f.RawValue()
	require.NoError(t, err)
	assert.Equal(t, uint16(9250), raw)
	require.NoError(t, f.Verify())
}

func TestEncodeSet_CeilingNotRounding(t *testing.T) {
	tests := []struct {
		value float64
		want  uint16
	}{
		{0.1, 1},
		{1.0, 1},
		{1.01, 2},
		{15.2, 16},
		{255.0, 255},
		{255.0001, 256},
		{-0.5, 0},
		{65534.5, 65535},
	}

	for _, tt := range tests {
		f, err := EncodeSet(CmdSetTemperature, tt.value)
		require.NoError(t, err, "value %v", tt.value)

		raw, err := f.RawValue()
		require.NoError(t, err)
		assert.Equal(t, tt.want, raw, "value %v", tt.value)
	}
}

func TestEncodeSet_FlagValues(t *testing.T) {
	on, err := EncodeSet(CmdSetRunFlag, 1)
	require.NoError(t, err)
	assert.Equal(t, "0001", string(on[valueOffset:valueOffset+valueSize]))

	off, err := EncodeSet(CmdSetRunFlag, 0)
	require.NoError(t, err)
	assert.Equal(t, "0000", string(off[valueOffset:valueOffset+valueSize]))

	// reserved field is never touched
	assert.Equal(t, "0000", string(on[reservedOffset:valueOffset]))
	assert.Equal(t, "0000", string(off[reservedOffset:valueOffset]))

	require.NoError(t, on.Verify())
	require.NoError(t, off.Verify())
}

func TestEncodeSet_DigitCounts(t *testing.T) {
	tests := []struct {
		value float64
		field string
	}{
		{2, "0002"},
		{0xf, "000f"},
		{0x10, "0010"},
		{0xab, "00ab"},
		{0xabc, "0abc"},
		{0xabcd, "abcd"},
		{MaxValue, "ffff"},
	}

	for _, tt := range tests {
		f, err := EncodeSet(CmdSetIntegralGain, tt.value)
		require.NoError(t, err)
		assert.Equal(t, tt.field, string(f[valueOffset:valueOffset+valueSize]))
	}
}

func TestEncodeSet_OutOfRange(t *testing.T) {
	for _, v := range []float64{-1, -0.0001 - 1, MaxValue + 0.5, MaxValue + 1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := EncodeSet(CmdSetTemperature, v)
		require.ErrorIs(t, err, ErrValueOutOfRange, "value %v", v)
	}
}

func TestChecksum_Deterministic(t *testing.T) {
	a, err := EncodeSet(CmdSetDerivativeGain, 1234)
	require.NoError(t, err)
	b, err := EncodeSet(CmdSetDerivativeGain, 1234)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestChecksum_SingleByteFlip(t *testing.T) {
	f, err := EncodeSet(CmdSetTemperature, 4321)
	require.NoError(t, err)
	orig := f.Checksum()

	for i := checksumFrom; i < checksumTo; i++ {
		flipped := f
		flipped[i] ^= 0x01
		assert.NotEqual(t, orig, flipped.Checksum(), "offset %d", i)
		require.ErrorIs(t, flipped.Verify(), ErrChecksumMismatch, "offset %d", i)
	}
}

func TestChecksum_SingleDigitIsRightJustified(t *testing.T) {
	// Search for a value whose checksum is below 0x10.
	for v := 0; v <= MaxValue; v++ {
		f, err := EncodeSet(CmdSetTemperature, float64(v))
		require.NoError(t, err)

		if f.Checksum() < 0x10 {
			assert.Equal(t, byte('0'), f[checksumOffset], "value %d", v)
			require.NoError(t, f.Verify())

			return
		}
	}

	t.Fatal("no value with a single-digit checksum")
}

func TestDecodeResponse_Scenario(t *testing.T) {
	resp := []byte("*000003e8b1^")

	v, err := DecodeResponse(resp, ScaleTemperature)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, v, 1e-9)
}

func TestDecodeResponse_UppercaseDigits(t *testing.T) {
	v, err := DecodeResponse([]byte("*000003E8b1^"), ScaleTemperature)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, v, 1e-9)
}

func TestDecodeResponse_Scales(t *testing.T) {
	resp := EncodeResponse(1000)

	pb, err := DecodeResponse(resp, ScaleProportionalBandwidth)
	require.NoError(t, err)
	assert.InDelta(t, 20.0, pb, 1e-9)

	gain, err := DecodeResponse(resp, ScaleGain)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, gain, 1e-9)
}

func TestDecodeResponse_FourDecimals(t *testing.T) {
	// 1/3 is rounded to 4 decimal places
	v, err := DecodeResponse(EncodeResponse(1), Scale(3))
	require.NoError(t, err)
	assert.Equal(t, 0.3333, v)
}

func TestDecodeResponse_Truncated(t *testing.T) {
	for n := 0; n < ResponseLength; n++ {
		_, err := DecodeResponse(make([]byte, n), ScaleTemperature)
		require.ErrorIs(t, err, ErrTruncated, "length %d", n)
	}
}

func TestDecodeResponse_LongerFrame(t *testing.T) {
	// Digits are located relative to the end of the frame.
	resp := append([]byte("xx"), EncodeResponse(0x2422)...)

	raw, err := DecodeRaw(resp)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x2422), raw)
}

func TestDecodeResponse_InvalidHex(t *testing.T) {
	_, err := DecodeResponse([]byte("*0000zz00b1^"), ScaleTemperature)
	require.ErrorIs(t, err, ErrInvalidHex)
}

func TestDecodeResponse_ZeroScale(t *testing.T) {
	_, err := DecodeResponse(EncodeResponse(1), 0)
	require.ErrorIs(t, err, ErrInvalidScale)
}

func TestRoundTrip_AllValues(t *testing.T) {
	for v := 0; v <= MaxValue; v++ {
		f, err := EncodeSet(CmdSetTemperature, float64(v))
		require.NoError(t, err)

		raw, err := f.RawValue()
		require.NoError(t, err)

		got, err := DecodeResponse(EncodeResponse(uint32(raw)), ScaleTemperature)
		require.NoError(t, err)

		if uint16(math.Round(got*float64(ScaleTemperature))) != uint16(v) {
			t.Fatalf("round trip of %d returned %v", v, got)
		}
	}
}

func TestScaledValue_Float(t *testing.T) {
	assert.InDelta(t, 92.5, ScaledValue{Raw: 9250, Scale: ScaleTemperature}.Float(), 1e-9)
	assert.InDelta(t, 3.0, ScaledValue{Raw: 150, Scale: ScaleProportionalBandwidth}.Float(), 1e-9)
	assert.InDelta(t, 7.0, ScaledValue{Raw: 7}.Float(), 1e-9)
}
