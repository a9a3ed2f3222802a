package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEvent(t *testing.T) {
	tests := []struct {
		name    string
		frame   string
		want    Event
		wantErr error
	}{
		{
			name:  "thinking on",
			frame: `{"type":"thinking","thinking":true}`,
			want:  Event{Type: TypeThinking, Thinking: true},
		},
		{
			name:  "thinking off",
			frame: `{"type":"thinking","thinking":false}`,
			want:  Event{Type: TypeThinking, Thinking: false},
		},
		{
			name:  "agent transcript",
			frame: `{"type":"transcript","speaker":"agent","text":"Hello"}`,
			want:  Event{Type: TypeTranscript, Entry: Entry{Speaker: SpeakerAgent, Text: "Hello"}},
		},
		{
			name:  "user transcript echoed back",
			frame: `{"type":"transcript","speaker":"user","text":"Hi"}`,
			want:  Event{Type: TypeTranscript, Entry: Entry{Speaker: SpeakerUser, Text: "Hi"}},
		},
		{name: "not json", frame: `hello`, wantErr: ErrInvalidFrame},
		{name: "json array", frame: `[1,2]`, wantErr: ErrInvalidFrame},
		{name: "type is not a string", frame: `{"type":3}`, wantErr: ErrInvalidFrame},
		{name: "null", frame: `null`, wantErr: ErrMissingType},
		{name: "no type", frame: `{"thinking":true}`, wantErr: ErrMissingType},
		{name: "thinking without flag", frame: `{"type":"thinking"}`, wantErr: ErrMissingField},
		{name: "transcript without text", frame: `{"type":"transcript","speaker":"agent"}`, wantErr: ErrMissingField},
		{name: "transcript without speaker", frame: `{"type":"transcript","text":"x"}`, wantErr: ErrMissingField},
		{name: "unknown speaker", frame: `{"type":"transcript","speaker":"bot","text":"x"}`, wantErr: ErrUnknownSpeaker},
		{name: "unknown type", frame: `{"type":"audio_level","level":3}`, wantErr: ErrUnknownType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeEvent([]byte(tt.frame))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDropReason(t *testing.T) {
	_, err := DecodeEvent([]byte(`{`))
	assert.Equal(t, "invalid_json", dropReason(err))
	_, err = DecodeEvent([]byte(`{}`))
	assert.Equal(t, "missing_type", dropReason(err))
	_, err = DecodeEvent([]byte(`{"type":"thinking"}`))
	assert.Equal(t, "missing_field", dropReason(err))
	_, err = DecodeEvent([]byte(`{"type":"transcript","speaker":"x","text":""}`))
	assert.Equal(t, "unknown_speaker", dropReason(err))
}
