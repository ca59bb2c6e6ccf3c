// Package wav builds and parses the mono 16-bit PCM RIFF/WAVE container the
// recognition service accepts.
package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

const (
	HeaderSize    = 44
	FormatPCM     = 1
	Channels      = 1
	BitsPerSample = 16
	BlockAlign    = Channels * BitsPerSample / 8

	fmtChunkSize = 16

	// MaxSamples is the longest clip whose RIFF chunk size still fits the
	// 32-bit header field.
	MaxSamples = (math.MaxUint32 - (HeaderSize - 8)) / BlockAlign
)

var (
	ErrInvalidHeader     = errors.New("wav: invalid header")
	ErrUnsupportedFormat = errors.New("wav: unsupported format")
)

// Header mirrors the 44-byte canonical WAV header.
type Header struct {
	ChunkSize     uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	DataSize      uint32
}

// Clip is a decoded WAV payload.
type Clip struct {
	Header  Header
	Samples []int16
}

// Duration in seconds.
func (c *Clip) Seconds() float64 {
	if c.Header.SampleRate == 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.Header.SampleRate)
}

// Float32 returns the samples rescaled to [-1, 1] using the same asymmetric
// factors Encode applies.
func (c *Clip) Float32() []float32 {
	out := make([]float32, len(c.Samples))
	for i, v := range c.Samples {
		if v < 0 {
			out[i] = float32(v) / 32768
		} else {
			out[i] = float32(v) / 32767
		}
	}
	return out
}

// Quantize converts one float sample to 16-bit linear PCM. The input is
// clamped to [-1, 1]; negatives scale by 32768 and the rest by 32767, with
// truncation toward zero. NaN encodes as silence.
func Quantize(s float32) int16 {
	v := float64(s)
	if math.IsNaN(v) {
		return 0
	}
	v = max(-1, min(1, v))
	if v < 0 {
		return int16(v * 0x8000)
	}
	return int16(v * 0x7FFF)
}

// Encode serializes samples into a complete WAV file. An empty input yields a
// header-only container. Samples past MaxSamples are dropped.
func Encode(samples []float32, sampleRate int) []byte {
	if len(samples) > MaxSamples {
		samples = samples[:MaxSamples]
	}
	dataSize := len(samples) * BlockAlign
	buf := make([]byte, HeaderSize+dataSize)

	putHeader(buf, uint32(sampleRate), uint32(dataSize))

	pos := HeaderSize
	for _, s := range samples {
		binary.LittleEndian.PutUint16(buf[pos:], uint16(Quantize(s)))
		pos += 2
	}
	return buf
}

func putHeader(buf []byte, sampleRate, dataSize uint32) {
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], 36+dataSize)
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], fmtChunkSize)
	binary.LittleEndian.PutUint16(buf[20:22], FormatPCM)
	binary.LittleEndian.PutUint16(buf[22:24], Channels)
	binary.LittleEndian.PutUint32(buf[24:28], sampleRate)
	binary.LittleEndian.PutUint32(buf[28:32], sampleRate*Channels*2)
	binary.LittleEndian.PutUint16(buf[32:34], BlockAlign)
	binary.LittleEndian.PutUint16(buf[34:36], BitsPerSample)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], dataSize)
}

// ParseHeader validates and decodes the fixed 44-byte header.
func ParseHeader(b []byte) (Header, error) {
	var h Header
	if len(b) < HeaderSize {
		return h, fmt.Errorf("%w: %d bytes", ErrInvalidHeader, len(b))
	}
	if string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		return h, fmt.Errorf("%w: missing RIFF/WAVE magic", ErrInvalidHeader)
	}
	if string(b[12:16]) != "fmt " || string(b[36:40]) != "data" {
		return h, fmt.Errorf("%w: unexpected chunk layout", ErrInvalidHeader)
	}
	if size := binary.LittleEndian.Uint32(b[16:20]); size != fmtChunkSize {
		return h, fmt.Errorf("%w: fmt chunk size %d", ErrUnsupportedFormat, size)
	}

	h = Header{
		ChunkSize:     binary.LittleEndian.Uint32(b[4:8]),
		AudioFormat:   binary.LittleEndian.Uint16(b[20:22]),
		NumChannels:   binary.LittleEndian.Uint16(b[22:24]),
		SampleRate:    binary.LittleEndian.Uint32(b[24:28]),
		ByteRate:      binary.LittleEndian.Uint32(b[28:32]),
		BlockAlign:    binary.LittleEndian.Uint16(b[32:34]),
		BitsPerSample: binary.LittleEndian.Uint16(b[34:36]),
		DataSize:      binary.LittleEndian.Uint32(b[40:44]),
	}

	if h.AudioFormat != FormatPCM || h.NumChannels != Channels || h.BitsPerSample != BitsPerSample {
		return h, fmt.Errorf("%w: format=%d channels=%d bits=%d",
			ErrUnsupportedFormat, h.AudioFormat, h.NumChannels, h.BitsPerSample)
	}
	if h.ChunkSize != 36+h.DataSize {
		return h, fmt.Errorf("%w: chunk size %d does not match data size %d", ErrInvalidHeader, h.ChunkSize, h.DataSize)
	}
	if h.DataSize%BlockAlign != 0 {
		return h, fmt.Errorf("%w: odd data size %d", ErrInvalidHeader, h.DataSize)
	}
	return h, nil
}

// Decode parses a container produced by Encode.
func Decode(b []byte) (*Clip, error) {
	h, err := ParseHeader(b)
	if err != nil {
		return nil, err
	}
	data := b[HeaderSize:]
	if uint32(len(data)) < h.DataSize {
		return nil, fmt.Errorf("%w: truncated data, have %d want %d", ErrInvalidHeader, len(data), h.DataSize)
	}

	samples := make([]int16, h.DataSize/BlockAlign)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return &Clip{Header: h, Samples: samples}, nil
}
