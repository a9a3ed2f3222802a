// Package backendtest runs an in-process agent backend for tests. It serves the
// same endpoints as the real backend and answers user text the way it does:
// thinking on, thinking off, then an agent transcript.
package backendtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Frame is a frame received on /stream
type Frame struct {
	Type     string `json:"type"`
	Text     string `json:"text"`
	Room     string `json:"room"`
	Identity string `json:"identity"`
}

type sessionKey struct {
	room     string
	identity string
}

// Server is a fake agent backend
type Server struct {
	*httptest.Server

	// Credential returned by /token. Fixed once New returns.
	Token    string
	MediaURL string

	mu            sync.RWMutex
	tokenStatus   int
	tokenBody     string
	sessionStatus int
	echo          bool
	sessions map[sessionKey]string
	requests []string
	conns    map[*conn]struct{}
	frames   []Frame
}

type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(v)
}

func (c *conn) writeRaw(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// New starts a backend that echoes user text. Close it when done.
func New() *Server {
	s := &Server{
		Token:    "test-token",
		MediaURL: "wss://media.example.test",
		echo:     true,
		sessions: make(map[sessionKey]string),
		conns:    make(map[*conn]struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", s.handleToken)
	mux.HandleFunc("/start_session", s.handleStartSession)
	mux.HandleFunc("/stop_session", s.handleStopSession)
	mux.HandleFunc("/stream", s.handleStream)
	s.Server = httptest.NewServer(mux)
	return s
}

// FailToken makes /token answer with status and no body
func (s *Server) FailToken(status int) {
	s.mu.Lock()
	s.tokenStatus = status
	s.mu.Unlock()
}

// SetTokenBody makes /token answer 200 with body verbatim
func (s *Server) SetTokenBody(body string) {
	s.mu.Lock()
	s.tokenBody = body
	s.mu.Unlock()
}

// SetSessionStatus makes /start_session and /stop_session answer with status.
// Zero restores normal handling.
func (s *Server) SetSessionStatus(status int) {
	s.mu.Lock()
	s.sessionStatus = status
	s.mu.Unlock()
}

// SessionStatus returns the forced session status, zero when unset
func (s *Server) SessionStatus() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionStatus
}

// SetEcho turns the reply to user_transcript frames on or off
func (s *Server) SetEcho(on bool) {
	s.mu.Lock()
	s.echo = on
	s.mu.Unlock()
}

func (s *Server) record(r *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, r.Method+" "+r.URL.Path)
	s.mu.Unlock()
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	s.record(r)

	s.mu.RLock()
	status, body := s.tokenStatus, s.tokenBody
	s.mu.RUnlock()

	if status != 0 {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if body != "" {
		fmt.Fprint(w, body)
		return
	}

	identity := r.URL.Query().Get("identity")
	room := r.URL.Query().Get("room")
	json.NewEncoder(w).Encode(map[string]string{
		"token": fmt.Sprintf("%s:%s:%s", s.Token, room, identity),
		"url":   s.MediaURL,
	})
}

type sessionRequest struct {
	SystemPrompt string `json:"system_prompt"`
	Room         string `json:"room"`
	Identity     string `json:"identity"`
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	s.record(r)
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if status := s.SessionStatus(); status != 0 {
		w.WriteHeader(status)
		return
	}

	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		return
	}

	s.mu.Lock()
	s.sessions[sessionKey{req.Room, req.Identity}] = req.SystemPrompt
	s.mu.Unlock()

	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleStopSession(w http.ResponseWriter, r *http.Request) {
	s.record(r)
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if status := s.SessionStatus(); status != 0 {
		w.WriteHeader(status)
		return
	}

	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		return
	}

	s.mu.Lock()
	delete(s.sessions, sessionKey{req.Room, req.Identity})
	s.mu.Unlock()

	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	s.record(r)

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &conn{ws: ws}

	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, c)
		s.mu.Unlock()
		ws.Close()
	}()

	for {
		var frame Frame
		if err := ws.ReadJSON(&frame); err != nil {
			return
		}

		s.mu.Lock()
		s.frames = append(s.frames, frame)
		s.mu.Unlock()

		s.mu.RLock()
		echo := s.echo
		prompt := s.sessions[sessionKey{frame.Room, frame.Identity}]
		s.mu.RUnlock()

		if frame.Type != "user_transcript" || !echo {
			continue
		}

		c.writeJSON(map[string]any{"type": "thinking", "thinking": true})
		c.writeJSON(map[string]any{"type": "thinking", "thinking": false})
		c.writeJSON(map[string]any{
			"type":    "transcript",
			"speaker": "agent",
			"text":    Reply(prompt, frame.Text),
		})
	}
}

// Reply is the agent answer the backend sends for text
func Reply(prompt, text string) string {
	if prompt == "" {
		prompt = "default"
	}
	return fmt.Sprintf("[Assistant (%s)]: I heard you say '%s'.", prompt, text)
}

// Push writes raw to every open /stream connection
func (s *Server) Push(raw string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.conns {
		c.writeRaw([]byte(raw))
	}
}

// CloseStreams closes every open /stream connection from the server side
func (s *Server) CloseStreams() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.conns {
		c.mu.Lock()
		c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		c.mu.Unlock()
		c.ws.Close()
	}
}

// Streams returns the number of open /stream connections
func (s *Server) Streams() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

// Frames returns every frame received on /stream
func (s *Server) Frames() []Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Frame(nil), s.frames...)
}

// Requests returns "METHOD /path" for every request served
func (s *Server) Requests() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.requests...)
}

// SessionPrompt returns the prompt stored for a started session
func (s *Server) SessionPrompt(room, identity string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.sessions[sessionKey{room, identity}]
	return p, ok
}
