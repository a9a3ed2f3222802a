package client

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

const (
	writeTimeout     = 10 * time.Second
	handshakeTimeout = 10 * time.Second
)

// channel is one open event channel and the session it was started for
type channel struct {
	conn     *websocket.Conn
	room     string
	identity string
	writeMu  sync.Mutex // gorilla allows one concurrent writer
	once     sync.Once
}

func dialChannel(ctx context.Context, dialer *websocket.Dialer, url string) (*websocket.Conn, error) {
	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", url)
	}
	return conn, nil
}

func (ch *channel) send(v any) error {
	ch.writeMu.Lock()
	defer ch.writeMu.Unlock()
	_ = ch.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return ch.conn.WriteJSON(v)
}

// close sends a close frame and closes the connection. Safe to call repeatedly.
func (ch *channel) close() {
	ch.once.Do(func() {
		_ = ch.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		_ = ch.conn.Close()
	})
}
