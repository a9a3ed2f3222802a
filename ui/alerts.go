package ui

import "github.com/rs/zerolog/log"

// Alerts is a client.Notifier that hands alerts to the UI. Alerts never block the
// caller; when the queue is full the alert is only logged.
type Alerts struct {
	ch chan string
}

func NewAlerts() *Alerts {
	return &Alerts{ch: make(chan string, 16)}
}

func (a *Alerts) Alert(msg string) {
	select {
	case a.ch <- msg:
	default:
		log.Warn().Str("component", "ui").Str("alert", msg).Msg("alert queue full, dropping")
	}
}

// C delivers queued alerts
func (a *Alerts) C() <-chan string {
	return a.ch
}
