package audio

import (
	"io"
	"sync"

	"github.com/pkg/errors"
)

// ErrSpeakerUnavailable is returned when the binary was built without speaker support
var ErrSpeakerUnavailable = errors.New("audio: speaker output not available (build with -tags portaudio)")

// Output receives decoded PCM (48kHz, stereo, interleaved)
type Output interface {
	WritePCM(pcm []int16) error
	Close() error
}

// Discard drops all audio
var Discard Output = discard{}

type discard struct{}

func (discard) WritePCM([]int16) error { return nil }
func (discard) Close() error           { return nil }

// WriterOutput writes little-endian PCM16 to an io.WriteCloser, e.g. a file
type WriterOutput struct {
	mu sync.Mutex
	w  io.WriteCloser
}

// NewWriterOutput wraps w
func NewWriterOutput(w io.WriteCloser) *WriterOutput {
	return &WriterOutput{w: w}
}

func (o *WriterOutput) WritePCM(pcm []int16) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, err := o.w.Write(PCMBytes(pcm)); err != nil {
		return errors.Wrap(err, "write pcm")
	}
	return nil
}

func (o *WriterOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.w.Close()
}
