package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"example.com/voice_agent/internal/backendtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBackendValidatesURL(t *testing.T) {
	_, err := NewBackend("localhost:8000", nil)
	require.Error(t, err)
	_, err = NewBackend("ftp://example.com", nil)
	require.Error(t, err)
	_, err = NewBackend("http://", nil)
	require.Error(t, err)
	_, err = NewBackend("http://localhost:8000", nil)
	require.NoError(t, err)
}

func TestBackendStreamURL(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"http://localhost:8000", "ws://localhost:8000/stream"},
		{"https://agent.example.com", "wss://agent.example.com/stream"},
		{"https://agent.example.com/api/", "wss://agent.example.com/api/stream"},
	}
	for _, tt := range tests {
		b, err := NewBackend(tt.base, nil)
		require.NoError(t, err)
		assert.Equal(t, tt.want, b.StreamURL(), tt.base)
	}
}

func TestBackendToken(t *testing.T) {
	srv := backendtest.New()
	defer srv.Close()

	b, err := NewBackend(srv.URL, nil)
	require.NoError(t, err)

	cred, err := b.Token(context.Background(), "web user", "voice-room")
	require.NoError(t, err)
	assert.Equal(t, "test-token:voice-room:web user", cred.Token)
	assert.Equal(t, srv.MediaURL, cred.URL)
}

func TestBackendTokenFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "server error", status: http.StatusInternalServerError},
		{name: "malformed json", body: `{"token":`},
		{name: "missing token", body: `{"url":"wss://media"}`, wantErr: ErrMalformedCredential},
		{name: "missing url", body: `{"token":"abc"}`, wantErr: ErrMalformedCredential},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := backendtest.New()
			defer srv.Close()
			srv.FailToken(tt.status)
			srv.SetTokenBody(tt.body)

			b, err := NewBackend(srv.URL, nil)
			require.NoError(t, err)

			_, err = b.Token(context.Background(), "u", "r")
			require.Error(t, err)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestBackendSessionRequests(t *testing.T) {
	var bodies []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		data, _ := io.ReadAll(r.Body)
		var body map[string]any
		assert.NoError(t, json.Unmarshal(data, &body))
		body["path"] = r.URL.Path
		bodies = append(bodies, body)
	}))
	defer srv.Close()

	b, err := NewBackend(srv.URL, nil)
	require.NoError(t, err)

	require.NoError(t, b.StartSession(context.Background(), SessionRequest{Room: "r", Identity: "i"}))
	require.NoError(t, b.StopSession(context.Background(), SessionRequest{Room: "r", Identity: "i"}))

	require.Len(t, bodies, 2)
	assert.Equal(t, map[string]any{"path": "/start_session", "room": "r", "identity": "i"}, bodies[0])
	assert.Equal(t, map[string]any{"path": "/stop_session", "room": "r", "identity": "i"}, bodies[1])
}

func TestBackendSessionStatusError(t *testing.T) {
	srv := backendtest.New()
	defer srv.Close()
	srv.SetSessionStatus(http.StatusServiceUnavailable)

	b, err := NewBackend(srv.URL, nil)
	require.NoError(t, err)
	require.Error(t, b.StartSession(context.Background(), SessionRequest{Room: "r", Identity: "i"}))
}
