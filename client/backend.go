package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
)

// ErrMalformedCredential is returned when /token answers without a token or url
var ErrMalformedCredential = errors.New("credential response is missing token or url")

const defaultHTTPTimeout = 15 * time.Second

// Credential is a short-lived media room credential
type Credential struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}

// SessionRequest is the body of /start_session and /stop_session
type SessionRequest struct {
	Room         string `json:"room"`
	Identity     string `json:"identity"`
	SystemPrompt string `json:"system_prompt,omitempty"`
}

// Backend calls the agent backend's HTTP endpoints
type Backend struct {
	base *url.URL
	http *http.Client
}

// NewBackend creates a backend client for an absolute http(s) base URL
func NewBackend(baseURL string, httpClient *http.Client) (*Backend, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrapf(err, "parse backend url %q", baseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("backend url %q must use http or https", baseURL)
	}
	if u.Host == "" {
		return nil, errors.Errorf("backend url %q has no host", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &Backend{base: u, http: httpClient}, nil
}

// Token fetches a media room credential for identity in room
func (b *Backend) Token(ctx context.Context, identity, room string) (Credential, error) {
	u := b.base.JoinPath("token")
	q := url.Values{}
	q.Set("identity", identity)
	q.Set("room", room)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Credential{}, errors.Wrap(err, "build token request")
	}

	resp, err := b.http.Do(req)
	if err != nil {
		return Credential{}, errors.Wrap(err, "token request failed")
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, "token"); err != nil {
		return Credential{}, err
	}

	var cred Credential
	if err := json.NewDecoder(resp.Body).Decode(&cred); err != nil {
		return Credential{}, errors.Wrap(err, "decode token response")
	}
	if cred.Token == "" || cred.URL == "" {
		return Credential{}, ErrMalformedCredential
	}
	return cred, nil
}

// StartSession asks the backend to provision an agent for the room/identity pair
func (b *Backend) StartSession(ctx context.Context, req SessionRequest) error {
	return b.post(ctx, "start_session", req)
}

// StopSession asks the backend to release the agent for the room/identity pair
func (b *Backend) StopSession(ctx context.Context, req SessionRequest) error {
	return b.post(ctx, "stop_session", req)
}

// StreamURL returns the event channel URL, ws for http backends and wss for https
func (b *Backend) StreamURL() string {
	u := b.base.JoinPath("stream")
	u.RawQuery = ""
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	return u.String()
}

func (b *Backend) post(ctx context.Context, endpoint string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrapf(err, "encode %s request", endpoint)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.base.JoinPath(endpoint).String(), bytes.NewReader(payload))
	if err != nil {
		return errors.Wrapf(err, "build %s request", endpoint)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s request failed", endpoint)
	}
	defer resp.Body.Close()

	// body is ignored but drained so the connection can be reused
	_, _ = io.Copy(io.Discard, resp.Body)
	return checkStatus(resp, endpoint)
}

func checkStatus(resp *http.Response, endpoint string) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Errorf("%s: unexpected status %d", endpoint, resp.StatusCode)
	}
	return nil
}
