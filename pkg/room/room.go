// Package room defines the boundary to a real-time media room SDK.
package room

import (
	"context"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/pkg/errors"
)

// ErrNoRoom is returned when a connector produced no room handle
var ErrNoRoom = errors.New("room: connector returned no room")

// Track is a remote media track a participant published
type Track interface {
	ID() string
	Kind() webrtc.RTPCodecType
	// Codec returns the negotiated MIME type, e.g. "audio/opus"
	Codec() string
	// ReadPacket blocks until the next RTP packet arrives or the track ends
	ReadPacket() (*rtp.Packet, error)
}

// Subscription is delivered when a remote track becomes available
type Subscription struct {
	Track          Track
	PublicationSID string
	Participant    string
}

// IsAudio reports whether the subscribed track carries audio
func (s Subscription) IsAudio() bool {
	return s.Track != nil && s.Track.Kind() == webrtc.RTPCodecTypeAudio
}

// TrackHandler is called for every subscribed remote track
type TrackHandler func(sub Subscription)

// Room is a joined media room
type Room interface {
	Disconnect()
}

// Connector joins media rooms with a short-lived token
type Connector interface {
	Connect(ctx context.Context, url, token string, onTrack TrackHandler) (Room, error)
}
