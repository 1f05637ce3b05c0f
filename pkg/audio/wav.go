// Package audio provides WAV decoding, channel downmixing, sub-clip
// extraction, and ffmpeg-based normalization for the meeting pipeline.
package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// PCM holds decoded audio samples. Multi-channel audio is interleaved.
type PCM struct {
	Samples  []float32
	Rate     int
	Channels int
}

// Duration returns the clip length in seconds.
func (p PCM) Duration() float64 {
	if p.Rate == 0 || p.Channels == 0 {
		return 0
	}
	return float64(len(p.Samples)) / float64(p.Rate) / float64(p.Channels)
}

// Mono downmixes interleaved multi-channel audio by averaging channels.
// Mono input is returned unchanged.
func (p PCM) Mono() PCM {
	if p.Channels <= 1 {
		return p
	}

	frames := len(p.Samples) / p.Channels
	mono := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < p.Channels; c++ {
			sum += p.Samples[i*p.Channels+c]
		}
		mono[i] = sum / float32(p.Channels)
	}
	return PCM{Samples: mono, Rate: p.Rate, Channels: 1}
}

// Clip extracts the [startSec, endSec) window. Bounds are clamped to the
// available audio; an inverted or out-of-range window yields empty samples.
func (p PCM) Clip(startSec, endSec float64) PCM {
	frames := len(p.Samples) / max(p.Channels, 1)
	start := int(startSec * float64(p.Rate))
	end := int(endSec * float64(p.Rate))

	if start < 0 {
		start = 0
	}
	if end > frames {
		end = frames
	}
	if start >= end {
		return PCM{Rate: p.Rate, Channels: p.Channels}
	}

	return PCM{
		Samples:  p.Samples[start*p.Channels : end*p.Channels],
		Rate:     p.Rate,
		Channels: p.Channels,
	}
}

const (
	wavFormatPCM   = 1
	wavFormatFloat = 3
)

// DecodeWAVFile decodes a RIFF/WAVE file from disk.
func DecodeWAVFile(path string) (PCM, error) {
	f, err := os.Open(path)
	if err != nil {
		return PCM{}, fmt.Errorf("failed to open wav file: %w", err)
	}
	defer f.Close()
	return DecodeWAV(f)
}

// DecodeWAV decodes a RIFF/WAVE stream. PCM16 and IEEE float32 encodings
// are supported; everything else should be normalized via ffmpeg first.
func DecodeWAV(r io.Reader) (PCM, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return PCM{}, fmt.Errorf("failed to read RIFF header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return PCM{}, fmt.Errorf("not a RIFF/WAVE stream")
	}

	var (
		format        uint16
		channels      uint16
		rate          uint32
		bitsPerSample uint16
		haveFmt       bool
	)

	for {
		var chunk [8]byte
		if _, err := io.ReadFull(r, chunk[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return PCM{}, fmt.Errorf("wav stream has no data chunk")
			}
			return PCM{}, fmt.Errorf("failed to read chunk header: %w", err)
		}
		id := string(chunk[0:4])
		size := binary.LittleEndian.Uint32(chunk[4:8])

		switch id {
		case "fmt ":
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return PCM{}, fmt.Errorf("failed to read fmt chunk: %w", err)
			}
			if size < 16 {
				return PCM{}, fmt.Errorf("fmt chunk too small: %d bytes", size)
			}
			format = binary.LittleEndian.Uint16(body[0:2])
			channels = binary.LittleEndian.Uint16(body[2:4])
			rate = binary.LittleEndian.Uint32(body[4:8])
			bitsPerSample = binary.LittleEndian.Uint16(body[14:16])
			haveFmt = true

		case "data":
			if !haveFmt {
				return PCM{}, fmt.Errorf("data chunk before fmt chunk")
			}
			if channels == 0 || rate == 0 {
				return PCM{}, fmt.Errorf("invalid wav format: channels=%d rate=%d", channels, rate)
			}
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return PCM{}, fmt.Errorf("failed to read data chunk: %w", err)
			}
			samples, err := decodeSamples(body, format, bitsPerSample)
			if err != nil {
				return PCM{}, err
			}
			return PCM{Samples: samples, Rate: int(rate), Channels: int(channels)}, nil

		default:
			// Skip unknown chunks (LIST, fact, ...). Chunks are word-aligned.
			skip := int64(size)
			if size%2 == 1 {
				skip++
			}
			if _, err := io.CopyN(io.Discard, r, skip); err != nil {
				return PCM{}, fmt.Errorf("failed to skip %s chunk: %w", id, err)
			}
		}
	}
}

func decodeSamples(data []byte, format, bits uint16) ([]float32, error) {
	switch {
	case format == wavFormatPCM && bits == 16:
		samples := make([]float32, len(data)/2)
		for i := range samples {
			v := int16(binary.LittleEndian.Uint16(data[i*2:]))
			samples[i] = float32(v) / 32768.0
		}
		return samples, nil

	case format == wavFormatFloat && bits == 32:
		samples := make([]float32, len(data)/4)
		for i := range samples {
			samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
		}
		return samples, nil

	default:
		return nil, fmt.Errorf("unsupported wav encoding: format=%d bits=%d", format, bits)
	}
}

// EncodeWAV writes samples as a PCM16 RIFF/WAVE stream. Used to ship
// segment sub-clips to the speaker encoder.
func EncodeWAV(w io.Writer, p PCM) error {
	dataSize := len(p.Samples) * 2
	channels := max(p.Channels, 1)
	byteRate := p.Rate * channels * 2

	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+dataSize))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], wavFormatPCM)
	binary.LittleEndian.PutUint16(header[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(p.Rate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(channels*2))
	binary.LittleEndian.PutUint16(header[34:36], 16)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(dataSize))

	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write wav header: %w", err)
	}

	buf := make([]byte, dataSize)
	for i, s := range p.Samples {
		v := s
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(int16(v*32767)))
	}
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("failed to write wav data: %w", err)
	}
	return nil
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
