package room

import (
	"context"

	lksdk "github.com/livekit/server-sdk-go/v2"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// LiveKit joins LiveKit rooms using the server SDK's participant client
type LiveKit struct{}

// NewLiveKit creates a LiveKit connector
func NewLiveKit() *LiveKit {
	return &LiveKit{}
}

type joinResult struct {
	room *lksdk.Room
	err  error
}

// Connect joins the room at url with token. A cancelled context abandons the
// join; a room that finishes joining afterwards is disconnected right away.
func (l *LiveKit) Connect(ctx context.Context, url, token string, onTrack TrackHandler) (Room, error) {
	cb := &lksdk.RoomCallback{
		ParticipantCallback: lksdk.ParticipantCallback{
			OnTrackSubscribed: func(track *webrtc.TrackRemote, publication *lksdk.RemoteTrackPublication, rp *lksdk.RemoteParticipant) {
				log.Debug().
					Str("component", "room").
					Str("participant", rp.Identity()).
					Str("track", track.ID()).
					Str("kind", track.Kind().String()).
					Msg("track subscribed")
				if onTrack == nil {
					return
				}
				onTrack(Subscription{
					Track:          &remoteTrack{track: track},
					PublicationSID: publication.SID(),
					Participant:    rp.Identity(),
				})
			},
		},
		OnDisconnected: func() {
			log.Info().Str("component", "room").Msg("room disconnected")
		},
	}

	done := make(chan joinResult, 1)
	go func() {
		r, err := lksdk.ConnectToRoomWithToken(url, token, cb)
		done <- joinResult{room: r, err: err}
	}()

	select {
	case <-ctx.Done():
		go func() {
			if res := <-done; res.room != nil {
				res.room.Disconnect()
			}
		}()
		return nil, errors.Wrap(ctx.Err(), "livekit join cancelled")
	case res := <-done:
		if res.err != nil {
			return nil, errors.Wrap(res.err, "livekit join failed")
		}
		if res.room == nil {
			return nil, ErrNoRoom
		}
		return &liveKitRoom{room: res.room}, nil
	}
}

type liveKitRoom struct {
	room *lksdk.Room
}

func (r *liveKitRoom) Disconnect() {
	r.room.Disconnect()
}

// remoteTrack adapts a pion remote track to Track
type remoteTrack struct {
	track *webrtc.TrackRemote
}

func (t *remoteTrack) ID() string                { return t.track.ID() }
func (t *remoteTrack) Kind() webrtc.RTPCodecType { return t.track.Kind() }
func (t *remoteTrack) Codec() string             { return t.track.Codec().MimeType }

func (t *remoteTrack) ReadPacket() (*rtp.Packet, error) {
	pkt, _, err := t.track.ReadRTP()
	if err != nil {
		return nil, err
	}
	return pkt, nil
}
