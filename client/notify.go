package client

import "github.com/rs/zerolog/log"

// User-facing alert texts
const (
	AlertConnectFailed   = "Failed to connect to the media room. Check backend and env settings."
	AlertChannelNotReady = "Session not started or channel not open"
)

// Notifier shows a blocking notification to the user
type Notifier interface {
	Alert(msg string)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(msg string)

func (f NotifierFunc) Alert(msg string) { f(msg) }

type logNotifier struct{}

func (logNotifier) Alert(msg string) {
	log.Warn().Str("component", "client").Msg(msg)
}
