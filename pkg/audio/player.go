// Package audio plays remote room audio on a local output.
package audio

import (
	"sync"

	"example.com/voice_agent/pkg/room"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ErrNotAudio is returned when a non-audio track is attached
var ErrNotAudio = errors.New("audio: track is not an audio track")

// Attacher starts playback of a subscribed remote track
type Attacher interface {
	Attach(sub room.Subscription) error
}

// Player decodes attached Opus tracks and writes them to an Output.
// Playback starts as soon as a track is attached.
type Player struct {
	out    Output
	mu     sync.Mutex // guards tracks and serializes writes from several tracks
	wg     sync.WaitGroup
	tracks map[string]struct{}
	closed bool
	newDec func() (*OpusDecoder, error)
}

// NewPlayer creates a player writing to out
func NewPlayer(out Output) *Player {
	if out == nil {
		out = Discard
	}
	return &Player{
		out:    out,
		tracks: make(map[string]struct{}),
		newDec: func() (*OpusDecoder, error) { return NewOpusDecoder(SampleRate, Channels) },
	}
}

// Attach starts a playback goroutine for sub. Attaching the same track twice is a no-op.
func (p *Player) Attach(sub room.Subscription) error {
	if !sub.IsAudio() {
		return ErrNotAudio
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("audio: player closed")
	}
	if _, ok := p.tracks[sub.Track.ID()]; ok {
		return nil
	}

	dec, err := p.newDec()
	if err != nil {
		return err
	}
	p.tracks[sub.Track.ID()] = struct{}{}

	log.Info().
		Str("component", "audio").
		Str("participant", sub.Participant).
		Str("track", sub.Track.ID()).
		Msg("attached remote audio")

	p.wg.Add(1)
	go p.play(sub, dec)
	return nil
}

// Playing returns the number of tracks currently being played
func (p *Player) Playing() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tracks)
}

func (p *Player) play(sub room.Subscription, dec *OpusDecoder) {
	defer p.wg.Done()
	defer func() {
		p.mu.Lock()
		delete(p.tracks, sub.Track.ID())
		p.mu.Unlock()
	}()

	for {
		pkt, err := sub.Track.ReadPacket()
		if err != nil {
			log.Debug().Err(err).
				Str("component", "audio").
				Str("track", sub.Track.ID()).
				Msg("remote audio ended")
			return
		}
		if len(pkt.Payload) == 0 {
			continue
		}

		pcm, err := dec.Decode(pkt.Payload)
		if err != nil {
			continue
		}

		p.mu.Lock()
		err = p.out.WritePCM(pcm)
		p.mu.Unlock()
		if err != nil {
			log.Warn().Err(err).Str("component", "audio").Msg("audio output write failed")
		}
	}
}

// Close waits for track playback to finish and closes the output.
// Tracks end when the room they belong to is disconnected.
func (p *Player) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.wg.Wait()
	return p.out.Close()
}
