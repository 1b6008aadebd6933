package client

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"drawspace/domain"
)

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

const (
	DefaultMaxAttempts = 8
	DefaultBaseDelay   = 500 * time.Millisecond
	DefaultMaxDelay    = 30 * time.Second
)

// session is the client side transport, abstracted for tests.
type session interface {
	Write(data []byte) error
	Read() ([]byte, error)
	Close() error
}

type wsSession struct {
	socket *websocket.Conn
}

func (s *wsSession) Write(data []byte) error {
	return s.socket.WriteMessage(websocket.TextMessage, data)
}

func (s *wsSession) Read() ([]byte, error) {
	_, p, err := s.socket.ReadMessage()
	return p, err
}

func (s *wsSession) Close() error {
	return s.socket.Close()
}

type Options struct {
	URL   string // ws:// endpoint
	Token string // bearer token, sent as a query parameter

	MaxAttempts int           // reconnect attempt budget
	BaseDelay   time.Duration // first reconnect delay, doubled each attempt
	MaxDelay    time.Duration // backoff cap
}

// Client wraps the websocket transport: it dials with the token handshake,
// dispatches inbound messages, and on a dropped connection retries with
// bounded exponential backoff, re-issuing the join handshake for every room
// it was in. Once the attempt budget is exhausted it stays disconnected; no
// further timers outlive it.
type Client struct {
	opts Options
	dial func(ctx context.Context) (session, error)

	mu     sync.Mutex
	sess   session
	state  State
	rooms  map[string]struct{}
	closed bool

	OnMessage     func(domain.WireMessage)
	OnStateChange func(State)
}

func New(opts Options) *Client {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = DefaultBaseDelay
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = DefaultMaxDelay
	}

	c := &Client{
		opts:  opts,
		rooms: make(map[string]struct{}),
	}
	c.dial = c.dialWebsocket
	return c
}

func (c *Client) dialWebsocket(ctx context.Context) (session, error) {
	u, err := url.Parse(c.opts.URL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("token", c.opts.Token)
	u.RawQuery = q.Encode()

	socket, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, err
	}
	return &wsSession{socket: socket}, nil
}

// Connect establishes the initial connection and starts the read loop.
func (c *Client) Connect(ctx context.Context) error {
	c.setState(StateConnecting)
	sess, err := c.dial(ctx)
	if err != nil {
		c.setState(StateDisconnected)
		return err
	}

	c.mu.Lock()
	c.sess = sess
	c.mu.Unlock()
	c.setState(StateConnected)

	go c.readLoop(sess)
	return nil
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Send marshals and writes one message on the live connection.
func (c *Client) Send(msg domain.WireMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	c.mu.Lock()
	sess := c.sess
	state := c.state
	c.mu.Unlock()

	if sess == nil || state != StateConnected {
		return ErrNotConnected
	}
	return sess.Write(data)
}

// JoinRoom joins and remembers the room so the handshake is re-issued after a
// reconnect.
func (c *Client) JoinRoom(roomID string) error {
	c.mu.Lock()
	c.rooms[roomID] = struct{}{}
	c.mu.Unlock()
	return c.Send(domain.WireMessage{Type: domain.TypeJoin, RoomID: roomID})
}

func (c *Client) LeaveRoom(roomID string) error {
	c.mu.Lock()
	delete(c.rooms, roomID)
	c.mu.Unlock()
	return c.Send(domain.WireMessage{Type: domain.TypeLeave, RoomID: roomID})
}

// CloseRoom requests room teardown; the server acks with room-closed and
// terminates the connection when the guard passes.
func (c *Client) CloseRoom(roomID string) error {
	return c.Send(domain.WireMessage{Type: domain.TypeRoomClosed, RoomID: roomID})
}

// Close shuts the client down permanently; no reconnection follows.
func (c *Client) Close() {
	c.mu.Lock()
	c.closed = true
	sess := c.sess
	c.sess = nil
	c.mu.Unlock()

	if sess != nil {
		sess.Close()
	}
	c.setState(StateDisconnected)
}

func (c *Client) readLoop(sess session) {
	for {
		data, err := sess.Read()
		if err != nil {
			break
		}
		var msg domain.WireMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("client: malformed message dropped", "error", err)
			continue
		}
		if c.OnMessage != nil {
			c.OnMessage(msg)
		}
	}

	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return
	}
	c.reconnect()
}

// reconnect retries with exponential backoff until the attempt budget is
// spent, then surfaces the disconnected state and schedules nothing further.
func (c *Client) reconnect() {
	c.setState(StateConnecting)

	for attempt := 1; attempt <= c.opts.MaxAttempts; attempt++ {
		time.Sleep(c.backoffDelay(attempt))

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		sess, err := c.dial(context.Background())
		if err != nil {
			slog.Debug("client: reconnect attempt failed", "attempt", attempt, "error", err)
			continue
		}

		c.mu.Lock()
		if c.closed {
			// Close raced the dial; the fresh session must not outlive it.
			c.mu.Unlock()
			sess.Close()
			return
		}
		c.sess = sess
		rooms := make([]string, 0, len(c.rooms))
		for roomID := range c.rooms {
			rooms = append(rooms, roomID)
		}
		c.mu.Unlock()
		c.setState(StateConnected)

		for _, roomID := range rooms {
			if err := c.Send(domain.WireMessage{Type: domain.TypeJoin, RoomID: roomID}); err != nil {
				slog.Warn("client: rejoin failed after reconnect", "room", roomID, "error", err)
			}
		}

		go c.readLoop(sess)
		return
	}

	slog.Warn("client: reconnect budget exhausted", "attempts", c.opts.MaxAttempts)
	c.setState(StateDisconnected)
}

func (c *Client) backoffDelay(attempt int) time.Duration {
	d := c.opts.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= c.opts.MaxDelay {
			return c.opts.MaxDelay
		}
	}
	if d > c.opts.MaxDelay {
		return c.opts.MaxDelay
	}
	return d
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	changed := c.state != s
	c.state = s
	handler := c.OnStateChange
	c.mu.Unlock()

	if changed && handler != nil {
		handler(s)
	}
}
