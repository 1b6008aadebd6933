package relay

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"drawspace/domain"
)

// TokenVerifier proves a bearer token and yields the user id behind it.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// UserGetter resolves a verified user id to its display identity.
type UserGetter interface {
	GetUserById(ctx context.Context, id string) (domain.User, error)
}

type Handler struct {
	relay    *Relay
	registry *SessionRegistry
	verifier TokenVerifier
	users    UserGetter
	upgrader websocket.Upgrader
}

func NewHandler(relay *Relay, registry *SessionRegistry, verifier TokenVerifier, users UserGetter) *Handler {
	return &Handler{
		relay:    relay,
		registry: registry,
		verifier: verifier,
		users:    users,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// ServeWS upgrades the connection, verifies the bearer token from the query
// string, and runs the connection's pumps. A bad or missing token closes the
// socket with a policy-violation code; it is never partially accepted.
func (h *Handler) ServeWS(ctx *gin.Context) {
	socket, err := h.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		slog.Error("ws: upgrade failed", "ip", ctx.ClientIP(), "error", err)
		return
	}

	token := ctx.Query("token")
	if token == "" {
		closeWithPolicyViolation(socket, "missing-token")
		return
	}

	userID, err := h.verifier.Verify(token)
	if err != nil {
		slog.Warn("ws: token verification failed", "ip", ctx.ClientIP(), "error", err)
		closeWithPolicyViolation(socket, "invalid-token")
		return
	}

	lookupCtx, cancel := context.WithTimeout(ctx.Request.Context(), 5*time.Second)
	user, err := h.users.GetUserById(lookupCtx, userID)
	cancel()
	if err != nil {
		slog.Warn("ws: user lookup failed", "user", userID, "error", err)
		closeWithPolicyViolation(socket, "unknown-user")
		return
	}

	conn := NewConn(uuid.NewString(), user.Id, user.Username, NewWebsocketSession(socket))
	h.registry.AddConnection(conn)
	slog.Info("ws: connection accepted", "conn", conn.ID, "user", user.Id, "username", user.Username)

	go conn.WritePump()
	h.relay.ReadPump(conn)

	slog.Info("ws: connection closed", "conn", conn.ID, "user", user.Id)
}

func closeWithPolicyViolation(socket *websocket.Conn, reason string) {
	socket.SetWriteDeadline(time.Now().Add(time.Second * 5))
	socket.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason))
	socket.Close()
}
