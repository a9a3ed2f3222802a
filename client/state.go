package client

// Speaker identifies who produced a transcript entry
type Speaker string

const (
	SpeakerUser  Speaker = "user"
	SpeakerAgent Speaker = "agent"
)

// Valid reports whether s is a known speaker
func (s Speaker) Valid() bool {
	return s == SpeakerUser || s == SpeakerAgent
}

// Entry is one line of the conversation transcript
type Entry struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// MediaState is the media room connection axis
type MediaState int

const (
	MediaDisconnected MediaState = iota
	MediaConnecting
	MediaConnected
)

func (s MediaState) String() string {
	switch s {
	case MediaDisconnected:
		return "disconnected"
	case MediaConnecting:
		return "connecting"
	case MediaConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// SessionState is the agent session / event channel axis
type SessionState int

const (
	SessionIdle SessionState = iota
	SessionStarting
	SessionOpen
)

func (s SessionState) String() string {
	switch s {
	case SessionIdle:
		return "idle"
	case SessionStarting:
		return "starting"
	case SessionOpen:
		return "open"
	default:
		return "unknown"
	}
}

// State is a point-in-time copy of the controller's state
type State struct {
	Media      MediaState
	Session    SessionState
	Thinking   bool
	Transcript []Entry
	// Room and Identity of the open session, empty when idle
	Room     string
	Identity string
}
