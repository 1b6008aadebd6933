package relay

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// NetworkSession abstracts the websocket so the relay and its tests never
// touch a real socket directly.
type NetworkSession interface {
	Close(reason string)
	Write(data []byte) error
	Read() ([]byte, error)
	Ping() error
}

type websocketSession struct {
	socket *websocket.Conn
}

func (ws *websocketSession) Write(data []byte) error {
	return ws.socket.WriteMessage(websocket.TextMessage, data)
}

func (ws *websocketSession) Ping() error {
	return ws.socket.WriteMessage(websocket.PingMessage, nil)
}

func (ws *websocketSession) Read() ([]byte, error) {
	_, p, err := ws.socket.ReadMessage()
	return p, err
}

func (ws *websocketSession) Close(reason string) {
	ws.socket.SetWriteDeadline(time.Now().Add(time.Second * 20))
	ws.socket.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason))
	ws.socket.Close()
}

// readTimeout bounds how long a connection may stay silent; each pong arms it
// again. pingInterval must stay below it or healthy peers get cut off.
const (
	readTimeout  = time.Minute
	pingInterval = 45 * time.Second
)

func NewWebsocketSession(conn *websocket.Conn) *websocketSession {
	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})
	return &websocketSession{socket: conn}
}

// Conn is one transport session. A user may hold several at once (multi-tab);
// ID is relay-assigned and unique per physical connection. The rooms set is
// guarded by the SessionRegistry's lock, never touched from outside it.
type Conn struct {
	ID       string
	UserID   string
	UserName string

	rooms     map[string]struct{}
	socket    NetworkSession
	send      chan []byte
	limiter   *rate.Limiter
	pingEvery time.Duration

	closeOnce sync.Once
}

func NewConn(id, userID, userName string, socket NetworkSession) *Conn {
	return &Conn{
		ID:        id,
		UserID:    userID,
		UserName:  userName,
		rooms:     make(map[string]struct{}),
		socket:    socket,
		send:      make(chan []byte, 256),
		limiter:   rate.NewLimiter(120, 240),
		pingEvery: pingInterval,
	}
}

// trySend queues data without blocking. A full buffer means the peer is not
// draining; the message is dropped rather than stalling the broadcast.
func (c *Conn) trySend(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// shutdown closes the send channel exactly once; WritePump then drains out.
func (c *Conn) shutdown() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

// WritePump pumps queued messages to the socket and pings on an interval so a
// half-open connection trips the peer's read deadline. It runs until the send
// channel closes or a write or ping fails.
func (c *Conn) WritePump() {
	ticker := time.NewTicker(c.pingEvery)
	defer func() {
		ticker.Stop()
		c.socket.Close("")
	}()

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.socket.Write(data); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.socket.Ping(); err != nil {
				return
			}
		}
	}
}
