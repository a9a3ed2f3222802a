package room_test

import (
	"testing"

	"example.com/voice_agent/pkg/room"
	"example.com/voice_agent/pkg/room/roomtest"
	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
)

func TestSubscriptionIsAudio(t *testing.T) {
	assert.True(t, room.Subscription{Track: roomtest.NewTrack("a", webrtc.RTPCodecTypeAudio)}.IsAudio())
	assert.False(t, room.Subscription{Track: roomtest.NewTrack("v", webrtc.RTPCodecTypeVideo)}.IsAudio())
	assert.False(t, room.Subscription{}.IsAudio())
}
