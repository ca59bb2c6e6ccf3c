package wav

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeEmptyIsHeaderOnly(t *testing.T) {
	b := Encode(nil, 44100)
	require.Len(t, b, HeaderSize)

	h, err := ParseHeader(b)
	require.NoError(t, err)
	assert.Equal(t, uint32(36), h.ChunkSize)
	assert.Equal(t, uint32(0), h.DataSize)
}

func TestEncodeHeaderFields(t *testing.T) {
	b := Encode(make([]float32, 10), 44100)

	assert.Equal(t, "RIFF", string(b[0:4]))
	assert.Equal(t, uint32(36+20), binary.LittleEndian.Uint32(b[4:8]))
	assert.Equal(t, "WAVE", string(b[8:12]))
	assert.Equal(t, "fmt ", string(b[12:16]))
	assert.Equal(t, uint32(16), binary.LittleEndian.Uint32(b[16:20]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(b[20:22]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(b[22:24]))
	assert.Equal(t, uint32(44100), binary.LittleEndian.Uint32(b[24:28]))
	assert.Equal(t, uint32(88200), binary.LittleEndian.Uint32(b[28:32]))
	assert.Equal(t, uint16(2), binary.LittleEndian.Uint16(b[32:34]))
	assert.Equal(t, uint16(16), binary.LittleEndian.Uint16(b[34:36]))
	assert.Equal(t, "data", string(b[36:40]))
	assert.Equal(t, uint32(20), binary.LittleEndian.Uint32(b[40:44]))
}

func TestMaxSamplesFitsHeader(t *testing.T) {
	dataSize := uint64(MaxSamples) * BlockAlign
	assert.LessOrEqual(t, dataSize+HeaderSize-8, uint64(math.MaxUint32))
	assert.Greater(t, dataSize+BlockAlign+HeaderSize-8, uint64(math.MaxUint32), "one more sample would overflow")
}

func TestSizeFieldsTrackDataSize(t *testing.T) {
	for _, n := range []int{0, 1, 7, 4096, 4097} {
		b := Encode(make([]float32, n), 16000)
		h, err := ParseHeader(b)
		require.NoError(t, err)

		dataSize := uint32(len(b) - HeaderSize)
		assert.Equal(t, dataSize, h.DataSize, "n=%d", n)
		assert.Equal(t, 36+dataSize, h.ChunkSize, "n=%d", n)
		assert.Zero(t, dataSize%2, "n=%d", n)
	}
}

func TestQuantize(t *testing.T) {
	tests := []struct {
		name string
		in   float32
		want int16
	}{
		{"full scale positive", 1.0, 32767},
		{"full scale negative", -1.0, -32768},
		{"clamp above", 1.7, 32767},
		{"clamp below", -3, -32768},
		{"positive infinity", float32(math.Inf(1)), 32767},
		{"negative infinity", float32(math.Inf(-1)), -32768},
		{"zero", 0, 0},
		{"half negative", -0.5, -16384},
		{"half positive truncates", 0.5, 16383},
		{"nan", float32(math.NaN()), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Quantize(tt.in))
		})
	}
}

func TestEncodeStoresLittleEndianSamples(t *testing.T) {
	b := Encode([]float32{1, -1, 0}, 8000)

	assert.Equal(t, []byte{0xFF, 0x7F}, b[44:46])
	assert.Equal(t, []byte{0x00, 0x80}, b[46:48])
	assert.Equal(t, []byte{0x00, 0x00}, b[48:50])
}

func TestRoundTrip(t *testing.T) {
	in := make([]float32, 2048)
	for i := range in {
		in[i] = float32(math.Sin(2 * math.Pi * 440 * float64(i) / 44100))
	}

	clip, err := Decode(Encode(in, 44100))
	require.NoError(t, err)
	require.Len(t, clip.Samples, len(in))
	assert.Equal(t, uint32(44100), clip.Header.SampleRate)

	out := clip.Float32()
	for i := range in {
		assert.InDelta(t, in[i], out[i], 1.0/32767, "sample %d", i)
	}
	assert.InDelta(t, 2048.0/44100, clip.Seconds(), 1e-9)
}

func TestParseHeaderRejects(t *testing.T) {
	valid := Encode(make([]float32, 4), 44100)

	corrupt := func(f func(b []byte)) []byte {
		b := append([]byte(nil), valid...)
		f(b)
		return b
	}

	tests := []struct {
		name string
		in   []byte
		want error
	}{
		{"short", valid[:20], ErrInvalidHeader},
		{"bad magic", corrupt(func(b []byte) { copy(b[0:4], "RIFX") }), ErrInvalidHeader},
		{"wrong chunk size", corrupt(func(b []byte) { b[4]++ }), ErrInvalidHeader},
		{"stereo", corrupt(func(b []byte) { b[22] = 2 }), ErrUnsupportedFormat},
		{"float format", corrupt(func(b []byte) { b[20] = 3 }), ErrUnsupportedFormat},
		{"extended fmt", corrupt(func(b []byte) { b[16] = 18 }), ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseHeader(tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDecodeTruncated(t *testing.T) {
	b := Encode(make([]float32, 100), 44100)
	_, err := Decode(b[:len(b)-10])
	assert.ErrorIs(t, err, ErrInvalidHeader)
}
