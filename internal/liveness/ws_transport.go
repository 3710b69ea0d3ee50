package liveness

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hqv2016/salonpulse/internal/realtime"
)

const dialTimeout = 10 * time.Second

// WSTransport dials the realtime websocket endpoint. The access token rides
// the token query parameter, matching what the upgrade handler accepts.
type WSTransport struct {
	URL    string
	Token  string
	Header http.Header
}

// Dial opens a new websocket session.
func (t *WSTransport) Dial(ctx context.Context) (Session, error) {
	if t.URL == "" {
		return nil, errors.New("liveness: endpoint url is required")
	}

	endpoint, err := url.Parse(t.URL)
	if err != nil {
		return nil, err
	}
	if t.Token != "" {
		query := endpoint.Query()
		query.Set("token", t.Token)
		endpoint.RawQuery = query.Encode()
	}

	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, resp, err := dialer.DialContext(ctx, endpoint.String(), t.Header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return &wsSession{conn: conn}, nil
}

type wsSession struct {
	conn *websocket.Conn

	// gorilla allows one concurrent writer; Send is called from both the
	// heartbeat goroutine and the supervisor.
	writeMu sync.Mutex
}

func (s *wsSession) Send(ctx context.Context, payload any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		_ = s.conn.SetWriteDeadline(deadline)
	} else {
		_ = s.conn.SetWriteDeadline(time.Now().Add(dialTimeout))
	}
	return s.conn.WriteJSON(payload)
}

func (s *wsSession) Receive(ctx context.Context) (realtime.Message, error) {
	var message realtime.Message
	if err := s.conn.ReadJSON(&message); err != nil {
		return realtime.Message{}, err
	}
	return message, nil
}

func (s *wsSession) Close() error {
	return s.conn.Close()
}
