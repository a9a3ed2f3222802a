package audio

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"gopkg.in/hraban/opus.v2"
)

const (
	// SampleRate of decoded room audio
	SampleRate = 48000
	// Channels of decoded room audio
	Channels = 2
	// maxFrameSamples is 120ms at 48kHz, the longest Opus packet
	maxFrameSamples = 5760
)

// OpusDecoder decodes Opus payloads from a remote track to PCM
type OpusDecoder struct {
	decoder    *opus.Decoder
	sampleRate int
	channels   int
	pcm        []int16
}

// NewOpusDecoder creates a new Opus decoder
func NewOpusDecoder(sampleRate, channels int) (*OpusDecoder, error) {
	dec, err := opus.NewDecoder(sampleRate, channels)
	if err != nil {
		return nil, errors.Wrap(err, "create opus decoder")
	}

	return &OpusDecoder{
		decoder:    dec,
		sampleRate: sampleRate,
		channels:   channels,
		pcm:        make([]int16, maxFrameSamples*channels),
	}, nil
}

// Decode decodes one Opus packet to interleaved PCM int16 samples.
// The returned slice is only valid until the next call.
func (d *OpusDecoder) Decode(opusData []byte) ([]int16, error) {
	n, err := d.decoder.Decode(opusData, d.pcm)
	if err != nil {
		return nil, err
	}
	return d.pcm[:n*d.channels], nil
}

// SampleRate returns the sample rate
func (d *OpusDecoder) SampleRate() int {
	return d.sampleRate
}

// Channels returns the number of channels
func (d *OpusDecoder) Channels() int {
	return d.channels
}

// PCMBytes converts samples to little-endian PCM16
func PCMBytes(pcm []int16) []byte {
	out := make([]byte, len(pcm)*2)
	for i, sample := range pcm {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(sample))
	}
	return out
}
