// Package metrics records session-controller activity as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "voiceagent"

// Recorder holds the controller's collectors. A nil *Recorder records nothing.
type Recorder struct {
	connectAttempts *prometheus.CounterVec
	backendRequests *prometheus.CounterVec
	frames          *prometheus.CounterVec
	framesDropped   *prometheus.CounterVec
	thinking        prometheus.Gauge
}

// New creates a Recorder and registers its collectors with reg
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		connectAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connect_attempts_total",
			Help:      "Media room connect attempts by result.",
		}, []string{"result"}),
		backendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_total",
			Help:      "Backend HTTP requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channel_frames_total",
			Help:      "Event channel frames by direction and type.",
		}, []string{"direction", "type"}),
		framesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channel_frames_dropped_total",
			Help:      "Inbound frames dropped as malformed, by reason.",
		}, []string{"reason"}),
		thinking: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "thinking",
			Help:      "1 while the agent reports it is thinking.",
		}),
	}
	if reg != nil {
		reg.MustRegister(r.connectAttempts, r.backendRequests, r.frames, r.framesDropped, r.thinking)
	}
	return r
}

func (r *Recorder) ConnectAttempt(result string) {
	if r == nil {
		return
	}
	r.connectAttempts.WithLabelValues(result).Inc()
}

func (r *Recorder) BackendRequest(endpoint string, err error) {
	if r == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.backendRequests.WithLabelValues(endpoint, outcome).Inc()
}

func (r *Recorder) FrameReceived(frameType string) {
	if r == nil {
		return
	}
	r.frames.WithLabelValues("in", frameType).Inc()
}

func (r *Recorder) FrameSent(frameType string) {
	if r == nil {
		return
	}
	r.frames.WithLabelValues("out", frameType).Inc()
}

func (r *Recorder) FrameDropped(reason string) {
	if r == nil {
		return
	}
	r.framesDropped.WithLabelValues(reason).Inc()
}

func (r *Recorder) Thinking(on bool) {
	if r == nil {
		return
	}
	if on {
		r.thinking.Set(1)
		return
	}
	r.thinking.Set(0)
}
