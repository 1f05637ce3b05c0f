package audio

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := PCM{
		Samples:  []float32{0, 0.5, -0.5, 0.25, -0.25, 1, -1, 0},
		Rate:     16000,
		Channels: 1,
	}

	var buf bytes.Buffer
	require.NoError(t, EncodeWAV(&buf, in))

	out, err := DecodeWAV(&buf)
	require.NoError(t, err)

	assert.Equal(t, 16000, out.Rate)
	assert.Equal(t, 1, out.Channels)
	require.Len(t, out.Samples, len(in.Samples))
	for i := range in.Samples {
		assert.InDelta(t, in.Samples[i], out.Samples[i], 1.0/32000)
	}
}

func TestDecodeWAV_RejectsGarbage(t *testing.T) {
	_, err := DecodeWAV(bytes.NewReader([]byte("definitely not audio data")))
	assert.Error(t, err)
}

func TestDecodeWAV_SkipsUnknownChunks(t *testing.T) {
	in := PCM{Samples: []float32{0.1, 0.2}, Rate: 8000, Channels: 1}
	var buf bytes.Buffer
	require.NoError(t, EncodeWAV(&buf, in))

	// Splice a LIST chunk between the fmt and data chunks.
	raw := buf.Bytes()
	list := append([]byte("LIST"), 0x04, 0x00, 0x00, 0x00, 'I', 'N', 'F', 'O')
	spliced := append(append(append([]byte{}, raw[:36]...), list...), raw[36:]...)

	out, err := DecodeWAV(bytes.NewReader(spliced))
	require.NoError(t, err)
	assert.Len(t, out.Samples, 2)
}

func TestMono_Downmix(t *testing.T) {
	stereo := PCM{
		Samples:  []float32{1, 0, 0.5, 0.5, -1, 1},
		Rate:     16000,
		Channels: 2,
	}

	mono := stereo.Mono()
	assert.Equal(t, 1, mono.Channels)
	require.Len(t, mono.Samples, 3)
	assert.InDelta(t, 0.5, mono.Samples[0], 1e-6)
	assert.InDelta(t, 0.5, mono.Samples[1], 1e-6)
	assert.InDelta(t, 0.0, mono.Samples[2], 1e-6)
}

func TestMono_PassthroughForMono(t *testing.T) {
	in := PCM{Samples: []float32{1, 2}, Rate: 16000, Channels: 1}
	assert.Equal(t, in, in.Mono())
}

func TestClip(t *testing.T) {
	// 1 second of mono audio at 10 Hz for easy math.
	p := PCM{Samples: make([]float32, 10), Rate: 10, Channels: 1}
	for i := range p.Samples {
		p.Samples[i] = float32(i)
	}

	clip := p.Clip(0.2, 0.5)
	require.Len(t, clip.Samples, 3)
	assert.Equal(t, float32(2), clip.Samples[0])
	assert.InDelta(t, 0.3, clip.Duration(), 1e-9)

	// Clamped to available audio.
	clip = p.Clip(0.8, 5.0)
	assert.Len(t, clip.Samples, 2)

	// Inverted window is empty.
	clip = p.Clip(0.5, 0.2)
	assert.Empty(t, clip.Samples)
}

func TestDuration(t *testing.T) {
	p := PCM{Samples: make([]float32, 32000), Rate: 16000, Channels: 2}
	assert.InDelta(t, 1.0, p.Duration(), 1e-9)
}

func TestIsCanonical(t *testing.T) {
	assert.True(t, IsCanonical("meeting.wav"))
	assert.True(t, IsCanonical("MEETING.WAV"))
	assert.False(t, IsCanonical("meeting.m4a"))
}
