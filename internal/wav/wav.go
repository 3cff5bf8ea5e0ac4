// Package wav writes and reads the canonical 44-byte-header RIFF/WAVE
// container for mono 16-bit PCM.
package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

const (
	HeaderSize    = 44
	Channels      = 1
	BitsPerSample = 16
	FormatPCM     = 1

	bytesPerSample = BitsPerSample / 8
	blockAlign     = Channels * bytesPerSample
)

var ErrInvalidContainer = errors.New("invalid wav container")

// Header is the decoded form of the fixed 44-byte header.
type Header struct {
	ChunkSize     uint32
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	DataSize      uint32
}

func (h Header) SampleCount() int {
	if h.BlockAlign == 0 {
		return 0
	}
	return int(h.DataSize) / int(h.BlockAlign)
}

func (h Header) Duration() time.Duration {
	if h.SampleRate == 0 {
		return 0
	}
	return time.Duration(h.SampleCount()) * time.Second / time.Duration(h.SampleRate)
}

// Encode wraps samples in a WAV container. The sample rate is written as
// given; no range check is applied.
func Encode(samples []int16, sampleRate int) []byte {
	var buf bytes.Buffer
	buf.Grow(HeaderSize + len(samples)*bytesPerSample)

	writeHeader(&buf, len(samples)*bytesPerSample, sampleRate)
	binary.Write(&buf, binary.LittleEndian, samples)

	return buf.Bytes()
}

// EncodePCM wraps raw little-endian s16 bytes in a WAV container.
func EncodePCM(raw []byte, sampleRate int) []byte {
	var buf bytes.Buffer
	buf.Grow(HeaderSize + len(raw))

	writeHeader(&buf, len(raw), sampleRate)
	buf.Write(raw)

	return buf.Bytes()
}

func writeHeader(buf *bytes.Buffer, dataSize, sampleRate int) {
	byteRate := sampleRate * Channels * bytesPerSample

	// RIFF chunk
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	// fmt chunk
	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(FormatPCM))
	binary.Write(buf, binary.LittleEndian, uint16(Channels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(buf, binary.LittleEndian, uint16(BitsPerSample))

	// data chunk
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(dataSize))
}

// ParseHeader decodes and checks the fixed header at the start of data.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("%w: need %d header bytes, got %d", ErrInvalidContainer, HeaderSize, len(data))
	}

	for _, tag := range []struct {
		off  int
		want string
	}{{0, "RIFF"}, {8, "WAVE"}, {12, "fmt "}, {36, "data"}} {
		if got := string(data[tag.off : tag.off+4]); got != tag.want {
			return Header{}, fmt.Errorf("%w: expected %q at offset %d, got %q", ErrInvalidContainer, tag.want, tag.off, got)
		}
	}

	le := binary.LittleEndian
	h := Header{
		ChunkSize:     le.Uint32(data[4:8]),
		AudioFormat:   le.Uint16(data[20:22]),
		Channels:      le.Uint16(data[22:24]),
		SampleRate:    le.Uint32(data[24:28]),
		ByteRate:      le.Uint32(data[28:32]),
		BlockAlign:    le.Uint16(data[32:34]),
		BitsPerSample: le.Uint16(data[34:36]),
		DataSize:      le.Uint32(data[40:44]),
	}

	if fmtSize := le.Uint32(data[16:20]); fmtSize != 16 {
		return Header{}, fmt.Errorf("%w: fmt chunk size %d", ErrInvalidContainer, fmtSize)
	}
	if h.ChunkSize != 36+h.DataSize {
		return Header{}, fmt.Errorf("%w: chunk size %d does not match data size %d", ErrInvalidContainer, h.ChunkSize, h.DataSize)
	}
	return h, nil
}

// Samples decodes the PCM payload of a mono 16-bit container.
func Samples(data []byte) ([]int16, error) {
	h, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}
	if h.AudioFormat != FormatPCM || h.Channels != Channels || h.BitsPerSample != BitsPerSample {
		return nil, fmt.Errorf("%w: unsupported format %d/%dch/%dbit", ErrInvalidContainer, h.AudioFormat, h.Channels, h.BitsPerSample)
	}

	payload := data[HeaderSize:]
	if uint32(len(payload)) < h.DataSize {
		return nil, fmt.Errorf("%w: payload truncated: %d of %d bytes", ErrInvalidContainer, len(payload), h.DataSize)
	}

	samples := make([]int16, h.DataSize/bytesPerSample)
	if err := binary.Read(bytes.NewReader(payload[:h.DataSize]), binary.LittleEndian, samples); err != nil {
		return nil, fmt.Errorf("read samples: %w", err)
	}
	return samples, nil
}
