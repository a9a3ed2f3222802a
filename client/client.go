// Package client implements the voice agent session controller: it joins the
// media room, starts and stops the backend agent session, keeps the transcript
// fed by the event channel and sends typed user text to the agent.
package client

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"example.com/voice_agent/pkg/audio"
	"example.com/voice_agent/pkg/metrics"
	"example.com/voice_agent/pkg/room"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrAlreadyConnected = errors.New("media room already connected or connecting")
	ErrConnectAborted   = errors.New("connect attempt aborted by disconnect")
	ErrSessionAborted   = errors.New("session start aborted by stop")
	ErrChannelNotReady  = errors.New("event channel not open")
	ErrClosed           = errors.New("client closed")
)

// Client owns one media room connection and one event channel.
// The media and session axes are independent: either may be used without the other.
type Client struct {
	ID string

	backend      *Backend
	connector    room.Connector
	attacher     audio.Attacher
	notifier     Notifier
	metrics      *metrics.Recorder
	dialer       *websocket.Dialer
	httpClient   *http.Client
	systemPrompt string
	logger       zerolog.Logger

	mu         sync.Mutex
	media      MediaState
	room       room.Room
	connectGen uint64 // bumped to invalidate an in-flight Connect
	session    SessionState
	channel    *channel
	sessionGen uint64 // bumped to invalidate an in-flight StartSession
	thinking   bool
	transcript []Entry
	closed     bool

	updates chan struct{}
}

// Option configures a Client
type Option func(*Client)

// WithConnector sets the media room connector (LiveKit by default)
func WithConnector(c room.Connector) Option {
	return func(cl *Client) { cl.connector = c }
}

// WithAttacher sets where remote audio is played (discarded by default)
func WithAttacher(a audio.Attacher) Option {
	return func(cl *Client) { cl.attacher = a }
}

// WithNotifier sets how blocking alerts reach the user (logged by default)
func WithNotifier(n Notifier) Option {
	return func(cl *Client) { cl.notifier = n }
}

// WithMetrics records activity on m
func WithMetrics(m *metrics.Recorder) Option {
	return func(cl *Client) { cl.metrics = m }
}

// WithHTTPClient sets the client used for backend requests
func WithHTTPClient(h *http.Client) Option {
	return func(cl *Client) { cl.httpClient = h }
}

// WithDialer sets the WebSocket dialer for the event channel
func WithDialer(d *websocket.Dialer) Option {
	return func(cl *Client) { cl.dialer = d }
}

// WithSystemPrompt sends prompt with every start_session request
func WithSystemPrompt(prompt string) Option {
	return func(cl *Client) { cl.systemPrompt = prompt }
}

// New creates a client for the backend at backendURL
func New(backendURL string, opts ...Option) (*Client, error) {
	c := &Client{
		ID:      uuid.NewString(),
		updates: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}

	backend, err := NewBackend(backendURL, c.httpClient)
	if err != nil {
		return nil, err
	}
	c.backend = backend

	if c.connector == nil {
		c.connector = room.NewLiveKit()
	}
	if c.attacher == nil {
		c.attacher = audio.NewPlayer(audio.Discard)
	}
	if c.notifier == nil {
		c.notifier = logNotifier{}
	}
	if c.dialer == nil {
		c.dialer = &websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	}
	c.logger = log.With().Str("component", "client").Str("client_id", c.ID).Logger()

	return c, nil
}

// Updates signals that the state changed; read Snapshot for the new state.
// Signals coalesce, so a slow reader only ever sees the latest state.
func (c *Client) Updates() <-chan struct{} {
	return c.updates
}

func (c *Client) notify() {
	select {
	case c.updates <- struct{}{}:
	default:
	}
}

// Snapshot returns a copy of the current state
func (c *Client) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := State{
		Media:      c.media,
		Session:    c.session,
		Thinking:   c.thinking,
		Transcript: append([]Entry(nil), c.transcript...),
	}
	if c.channel != nil {
		s.Room = c.channel.room
		s.Identity = c.channel.identity
	}
	return s
}

// Connect fetches a credential for identity in roomName and joins the media room.
// On failure the user is alerted and the client stays disconnected.
func (c *Client) Connect(ctx context.Context, identity, roomName string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.media != MediaDisconnected {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.media = MediaConnecting
	c.connectGen++
	gen := c.connectGen
	c.mu.Unlock()
	c.notify()

	logger := c.logger.With().Str("room", roomName).Str("identity", identity).Logger()
	logger.Info().Msg("connecting to media room")

	r, err := c.joinRoom(ctx, identity, roomName)

	c.mu.Lock()
	current := !c.closed && c.connectGen == gen && c.media == MediaConnecting
	if err != nil {
		if current {
			c.media = MediaDisconnected
		}
		c.mu.Unlock()
		c.notify()

		if !current {
			c.metrics.ConnectAttempt("aborted")
			return ErrConnectAborted
		}
		c.metrics.ConnectAttempt("error")
		logger.Error().Err(err).Msg("failed to connect media room")
		c.notifier.Alert(AlertConnectFailed)
		return err
	}
	if !current {
		c.mu.Unlock()
		r.Disconnect()
		c.metrics.ConnectAttempt("aborted")
		logger.Info().Msg("connect finished after disconnect, leaving room")
		return ErrConnectAborted
	}
	c.room = r
	c.media = MediaConnected
	c.mu.Unlock()
	c.notify()

	c.metrics.ConnectAttempt("ok")
	logger.Info().Msg("connected to media room")
	return nil
}

func (c *Client) joinRoom(ctx context.Context, identity, roomName string) (room.Room, error) {
	cred, err := c.backend.Token(ctx, identity, roomName)
	c.metrics.BackendRequest("token", err)
	if err != nil {
		return nil, errors.Wrap(err, "fetch room credential")
	}

	r, err := c.connector.Connect(ctx, cred.URL, cred.Token, c.handleTrack)
	if err != nil {
		return nil, errors.Wrap(err, "join media room")
	}
	if r == nil {
		return nil, room.ErrNoRoom
	}
	return r, nil
}

// handleTrack plays remote audio tracks; other kinds are ignored
func (c *Client) handleTrack(sub room.Subscription) {
	if !sub.IsAudio() {
		c.logger.Debug().Str("participant", sub.Participant).Msg("ignoring non-audio track")
		return
	}
	if err := c.attacher.Attach(sub); err != nil {
		c.logger.Warn().Err(err).Str("participant", sub.Participant).Msg("failed to attach remote audio")
	}
}

// Disconnect leaves the media room. Calling it while disconnected does nothing.
func (c *Client) Disconnect() {
	c.mu.Lock()
	r := c.room
	changed := c.media != MediaDisconnected
	c.room = nil
	c.media = MediaDisconnected
	c.connectGen++
	c.mu.Unlock()

	if r != nil {
		r.Disconnect()
		c.logger.Info().Msg("disconnected from media room")
	}
	if changed {
		c.notify()
	}
}

// StartSession asks the backend for an agent and opens the event channel.
// The channel is opened whatever the backend answers.
func (c *Client) StartSession(ctx context.Context, roomName, identity string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	prev := c.channel
	c.channel = nil
	c.session = SessionStarting
	c.sessionGen++
	gen := c.sessionGen
	c.mu.Unlock()
	c.notify()

	if prev != nil {
		prev.close()
	}

	logger := c.logger.With().Str("room", roomName).Str("identity", identity).Logger()

	err := c.backend.StartSession(ctx, SessionRequest{
		Room:         roomName,
		Identity:     identity,
		SystemPrompt: c.systemPrompt,
	})
	c.metrics.BackendRequest("start_session", err)
	if err != nil {
		logger.Warn().Err(err).Msg("start_session failed, opening channel anyway")
	}

	conn, err := dialChannel(ctx, c.dialer, c.backend.StreamURL())
	if err != nil {
		c.mu.Lock()
		if c.sessionGen == gen {
			c.session = SessionIdle
		}
		c.mu.Unlock()
		c.notify()
		logger.Error().Err(err).Msg("failed to open event channel")
		return errors.Wrap(err, "open event channel")
	}

	ch := &channel{conn: conn, room: roomName, identity: identity}

	c.mu.Lock()
	if c.closed || c.sessionGen != gen {
		c.mu.Unlock()
		ch.close()
		return ErrSessionAborted
	}
	c.channel = ch
	c.session = SessionOpen
	c.mu.Unlock()
	c.notify()

	logger.Info().Msg("event channel open")
	go c.readLoop(ch)
	return nil
}

// readLoop applies inbound frames in arrival order until the channel closes
func (c *Client) readLoop(ch *channel) {
	defer c.channelClosed(ch)

	for {
		msgType, data, err := ch.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn().Err(err).Msg("event channel closed unexpectedly")
			} else {
				c.logger.Debug().Err(err).Msg("event channel closed")
			}
			return
		}
		if msgType != websocket.TextMessage {
			c.metrics.FrameDropped("binary")
			c.logger.Warn().Int("message_type", msgType).Msg("dropping non-text frame")
			continue
		}
		c.handleFrame(ch, data)
	}
}

func (c *Client) handleFrame(ch *channel, data []byte) {
	ev, err := DecodeEvent(data)
	if errors.Is(err, ErrUnknownType) {
		c.metrics.FrameReceived(ev.Type)
		c.logger.Debug().Str("type", ev.Type).Msg("ignoring unknown frame type")
		return
	}
	if err != nil {
		c.metrics.FrameDropped(dropReason(err))
		c.logger.Warn().Err(err).Msg("dropping malformed frame")
		return
	}
	c.metrics.FrameReceived(ev.Type)

	c.mu.Lock()
	if c.channel != ch {
		c.mu.Unlock()
		return
	}
	switch ev.Type {
	case TypeThinking:
		c.thinking = ev.Thinking
	case TypeTranscript:
		c.transcript = append(c.transcript, ev.Entry)
	}
	c.mu.Unlock()

	if ev.Type == TypeThinking {
		c.metrics.Thinking(ev.Thinking)
	}
	c.notify()
}

// channelClosed clears the channel if it is still the current one. No reconnect.
func (c *Client) channelClosed(ch *channel) {
	ch.close()

	c.mu.Lock()
	current := c.channel == ch
	if current {
		c.channel = nil
		c.session = SessionIdle
	}
	c.mu.Unlock()

	if current {
		c.logger.Info().Msg("event channel closed by peer")
		c.notify()
	}
}

// StopSession tells the backend to release the agent, then closes the channel
// and clears the thinking flag. Backend failures are ignored.
func (c *Client) StopSession(ctx context.Context, roomName, identity string) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return
	}

	err := c.backend.StopSession(ctx, SessionRequest{Room: roomName, Identity: identity})
	c.metrics.BackendRequest("stop_session", err)
	if err != nil {
		c.logger.Debug().Err(err).Str("room", roomName).Str("identity", identity).Msg("stop_session failed")
	}

	c.mu.Lock()
	ch := c.channel
	c.channel = nil
	c.session = SessionIdle
	c.sessionGen++
	c.thinking = false
	c.mu.Unlock()

	if ch != nil {
		ch.close()
	}
	c.metrics.Thinking(false)
	c.notify()
	c.logger.Info().Str("room", roomName).Str("identity", identity).Msg("session stopped")
}

// SendUserText records text as a user entry and sends it to the agent.
// Blank text is ignored; without an open channel the user is alerted and nothing is sent.
func (c *Client) SendUserText(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	ch := c.channel
	if ch == nil || c.session != SessionOpen {
		c.mu.Unlock()
		c.notifier.Alert(AlertChannelNotReady)
		return ErrChannelNotReady
	}
	c.transcript = append(c.transcript, Entry{Speaker: SpeakerUser, Text: text})
	c.mu.Unlock()
	c.notify()

	err := ch.send(UserTranscript{
		Type:     TypeUserTranscript,
		Text:     text,
		Room:     ch.room,
		Identity: ch.identity,
	})
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to send user text")
		return errors.Wrap(err, "send user text")
	}
	c.metrics.FrameSent(TypeUserTranscript)
	return nil
}

// Close tears down the event channel and the media room without notifying the
// backend. Later calls fail with ErrClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	ch, r := c.channel, c.room
	c.channel, c.room = nil, nil
	c.media = MediaDisconnected
	c.session = SessionIdle
	c.connectGen++
	c.sessionGen++
	c.mu.Unlock()

	if ch != nil {
		ch.close()
	}
	if r != nil {
		r.Disconnect()
	}
	c.notify()
	c.logger.Info().Msg("client closed")
	return nil
}
