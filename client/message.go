package client

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Frame types exchanged over the event channel
const (
	TypeThinking       = "thinking"
	TypeTranscript     = "transcript"
	TypeUserTranscript = "user_transcript"
)

var (
	ErrInvalidFrame   = errors.New("frame is not a JSON object")
	ErrMissingType    = errors.New("frame has no type")
	ErrMissingField   = errors.New("frame is missing a required field")
	ErrUnknownSpeaker = errors.New("frame has an unknown speaker")
	ErrUnknownType    = errors.New("frame has an unknown type")
)

// UserTranscript is sent when the user types text for the agent
type UserTranscript struct {
	Type     string `json:"type"`
	Text     string `json:"text"`
	Room     string `json:"room"`
	Identity string `json:"identity"`
}

// inboundFrame uses pointers so absent fields can be told apart from zero values
type inboundFrame struct {
	Type     *string `json:"type"`
	Thinking *bool   `json:"thinking"`
	Speaker  *string `json:"speaker"`
	Text     *string `json:"text"`
}

// Event is a validated inbound frame
type Event struct {
	Type     string
	Thinking bool
	Entry    Entry
}

// DecodeEvent parses one inbound text frame
func DecodeEvent(data []byte) (Event, error) {
	var f inboundFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return Event{}, errors.Wrap(ErrInvalidFrame, err.Error())
	}
	if f.Type == nil || *f.Type == "" {
		return Event{}, ErrMissingType
	}

	switch *f.Type {
	case TypeThinking:
		if f.Thinking == nil {
			return Event{}, errors.Wrap(ErrMissingField, "thinking")
		}
		return Event{Type: TypeThinking, Thinking: *f.Thinking}, nil

	case TypeTranscript:
		if f.Speaker == nil {
			return Event{}, errors.Wrap(ErrMissingField, "speaker")
		}
		if f.Text == nil {
			return Event{}, errors.Wrap(ErrMissingField, "text")
		}
		speaker := Speaker(*f.Speaker)
		if !speaker.Valid() {
			return Event{}, errors.Wrap(ErrUnknownSpeaker, *f.Speaker)
		}
		return Event{Type: TypeTranscript, Entry: Entry{Speaker: speaker, Text: *f.Text}}, nil
	}

	return Event{Type: *f.Type}, errors.Wrap(ErrUnknownType, *f.Type)
}

// dropReason labels a decode error for metrics
func dropReason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidFrame):
		return "invalid_json"
	case errors.Is(err, ErrMissingType):
		return "missing_type"
	case errors.Is(err, ErrMissingField):
		return "missing_field"
	case errors.Is(err, ErrUnknownSpeaker):
		return "unknown_speaker"
	default:
		return "other"
	}
}
