//go:build portaudio

package audio

import (
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// framesPerBuffer is 20ms at 48kHz
const framesPerBuffer = 960

// Speaker plays PCM on the default output device
type Speaker struct {
	mu      sync.Mutex
	stream  *portaudio.Stream
	out     []int16
	pending []int16
	closed  bool
}

// OpenSpeaker initializes PortAudio and opens the default output stream
func OpenSpeaker() (Output, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, errors.Wrap(err, "initialize portaudio")
	}

	out := make([]int16, framesPerBuffer*Channels)
	stream, err := portaudio.OpenDefaultStream(0, Channels, float64(SampleRate), framesPerBuffer, out)
	if err != nil {
		portaudio.Terminate()
		return nil, errors.Wrap(err, "open output stream")
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, errors.Wrap(err, "start output stream")
	}

	log.Info().Str("component", "audio").Int("sample_rate", SampleRate).Msg("speaker opened")
	return &Speaker{stream: stream, out: out}, nil
}

// WritePCM buffers pcm and writes whole device buffers to the stream
func (s *Speaker) WritePCM(pcm []int16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("audio: speaker closed")
	}

	s.pending = append(s.pending, pcm...)
	for len(s.pending) >= len(s.out) {
		copy(s.out, s.pending[:len(s.out)])
		s.pending = s.pending[len(s.out):]
		if err := s.stream.Write(); err != nil {
			return errors.Wrap(err, "write output stream")
		}
	}
	return nil
}

func (s *Speaker) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	s.stream.Stop()
	err := s.stream.Close()
	portaudio.Terminate()
	return err
}
