// Package roomtest provides in-memory room connectors and tracks for tests.
package roomtest

import (
	"context"
	"io"
	"sync"

	"example.com/voice_agent/pkg/room"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
)

// Track is a remote track fed by the test through Push
type Track struct {
	id      string
	kind    webrtc.RTPCodecType
	packets chan *rtp.Packet
	once    sync.Once
}

// NewTrack creates a track of the given kind
func NewTrack(id string, kind webrtc.RTPCodecType) *Track {
	return &Track{
		id:      id,
		kind:    kind,
		packets: make(chan *rtp.Packet, 64),
	}
}

func (t *Track) ID() string                { return t.id }
func (t *Track) Kind() webrtc.RTPCodecType { return t.kind }

func (t *Track) Codec() string {
	if t.kind == webrtc.RTPCodecTypeAudio {
		return webrtc.MimeTypeOpus
	}
	return webrtc.MimeTypeVP8
}

// Push queues a packet with the given payload
func (t *Track) Push(payload []byte) {
	t.packets <- &rtp.Packet{
		Header:  rtp.Header{Version: 2, PayloadType: 111},
		Payload: payload,
	}
}

// End makes the next ReadPacket after the queued packets return io.EOF
func (t *Track) End() {
	t.once.Do(func() { close(t.packets) })
}

func (t *Track) ReadPacket() (*rtp.Packet, error) {
	pkt, ok := <-t.packets
	if !ok {
		return nil, io.EOF
	}
	return pkt, nil
}

// Room records disconnects
type Room struct {
	mu          sync.Mutex
	disconnects int
}

func (r *Room) Disconnect() {
	r.mu.Lock()
	r.disconnects++
	r.mu.Unlock()
}

// Disconnects returns how many times Disconnect was called
func (r *Room) Disconnects() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.disconnects
}

// Connector hands out Rooms and publishes Tracks on join
type Connector struct {
	mu sync.Mutex
	// Err fails every join when set
	Err error
	// Tracks are delivered to the handler right after a successful join
	Tracks []room.Subscription
	calls  []Call
	rooms  []*Room
}

// Call records the arguments of one Connect
type Call struct {
	URL   string
	Token string
}

func (c *Connector) Connect(ctx context.Context, url, token string, onTrack room.TrackHandler) (room.Room, error) {
	c.mu.Lock()
	c.calls = append(c.calls, Call{URL: url, Token: token})
	err := c.Err
	tracks := append([]room.Subscription(nil), c.Tracks...)
	c.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r := &Room{}
	c.mu.Lock()
	c.rooms = append(c.rooms, r)
	c.mu.Unlock()

	if onTrack != nil {
		for _, sub := range tracks {
			onTrack(sub)
		}
	}
	return r, nil
}

// Calls returns every Connect invocation so far
func (c *Connector) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.calls...)
}

// Rooms returns every room handed out so far
func (c *Connector) Rooms() []*Room {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Room(nil), c.rooms...)
}
