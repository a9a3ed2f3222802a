package audio

import (
	"sync"
	"testing"
	"time"

	"example.com/voice_agent/pkg/room"
	"example.com/voice_agent/pkg/room/roomtest"
	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/require"
	"gopkg.in/hraban/opus.v2"
)

type captureOutput struct {
	mu      sync.Mutex
	samples int
	writes  int
	closed  bool
}

func (c *captureOutput) WritePCM(pcm []int16) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.samples += len(pcm)
	c.writes++
	return nil
}

func (c *captureOutput) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *captureOutput) stats() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes, c.samples
}

// silentOpusFrame encodes 20ms of stereo silence
func silentOpusFrame(t *testing.T) []byte {
	t.Helper()
	enc, err := opus.NewEncoder(SampleRate, Channels, opus.AppVoIP)
	require.NoError(t, err)
	pcm := make([]int16, 960*Channels)
	buf := make([]byte, 1024)
	n, err := enc.Encode(pcm, buf)
	require.NoError(t, err)
	return buf[:n]
}

func TestPlayerRejectsVideoTracks(t *testing.T) {
	p := NewPlayer(&captureOutput{})
	err := p.Attach(room.Subscription{Track: roomtest.NewTrack("v1", webrtc.RTPCodecTypeVideo)})
	require.ErrorIs(t, err, ErrNotAudio)
	require.Equal(t, 0, p.Playing())
}

func TestPlayerDecodesAttachedTrack(t *testing.T) {
	out := &captureOutput{}
	p := NewPlayer(out)

	track := roomtest.NewTrack("a1", webrtc.RTPCodecTypeAudio)
	require.NoError(t, p.Attach(room.Subscription{Track: track, Participant: "agent"}))
	require.NoError(t, p.Attach(room.Subscription{Track: track, Participant: "agent"}))
	require.Equal(t, 1, p.Playing())

	frame := silentOpusFrame(t)
	track.Push(frame)
	track.Push(nil)
	track.Push(frame)

	require.Eventually(t, func() bool {
		writes, _ := out.stats()
		return writes == 2
	}, time.Second, 10*time.Millisecond)

	_, samples := out.stats()
	require.Equal(t, 2*960*Channels, samples)

	track.End()
	require.NoError(t, p.Close())
	require.True(t, out.closed)
	require.Equal(t, 0, p.Playing())
}

func TestPlayerSkipsUndecodablePackets(t *testing.T) {
	out := &captureOutput{}
	p := NewPlayer(out)

	track := roomtest.NewTrack("a2", webrtc.RTPCodecTypeAudio)
	require.NoError(t, p.Attach(room.Subscription{Track: track}))

	track.Push([]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff})
	track.Push(silentOpusFrame(t))
	track.End()

	require.NoError(t, p.Close())
	writes, _ := out.stats()
	require.LessOrEqual(t, writes, 2)
	require.GreaterOrEqual(t, writes, 1)
}

func TestPlayerRejectsAttachAfterClose(t *testing.T) {
	p := NewPlayer(nil)
	require.NoError(t, p.Close())
	require.Error(t, p.Attach(room.Subscription{Track: roomtest.NewTrack("a3", webrtc.RTPCodecTypeAudio)}))
}
