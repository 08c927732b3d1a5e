package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"clinicflow/internal/delivery/dto"
	"clinicflow/internal/delivery/http/middleware"
	"clinicflow/internal/usecase"
	"clinicflow/internal/workspace"
	"clinicflow/pkg/response"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = wsPongWait * 9 / 10
	wsMaxMessageSize = 4096
)

// WorkspaceHandler serves the live clinic screen over a WebSocket. Each
// connection owns one workspace session.
type WorkspaceHandler struct {
	log      *logrus.Logger
	registry *workspace.Registry
	upgrader websocket.Upgrader
}

func NewWorkspaceHandler(log *logrus.Logger, registry *workspace.Registry, allowOrigin func(origin string) bool) *WorkspaceHandler {
	return &WorkspaceHandler{
		log:      log,
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return allowOrigin(r.Header.Get("Origin"))
			},
		},
	}
}

// Connect upgrades the request, opens a session and pumps it until either
// side goes away. Logout closes the socket with a normal closure.
func (h *WorkspaceHandler) Connect(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Invalid token")
		return
	}
	if !identity.User.HasClinic() {
		response.Forbidden(w, usecase.ErrClinicRequired.Error())
		return
	}
	tokenID, _ := middleware.GetTokenIDFromContext(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnf("Failed to upgrade workspace connection: %+v", err)
		return
	}

	session, err := h.registry.Open(identity, tokenID)
	if err != nil {
		h.log.Warnf("Failed to open workspace session: %+v", err)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()),
			time.Now().Add(wsWriteWait))
		conn.Close()
		return
	}

	go session.Run(context.Background())

	notices := make(chan string, 1)
	go h.writePump(conn, session, notices)
	h.readPump(conn, session, notices)

	<-session.Done()
}

// readPump forwards screen commands into the session
func (h *WorkspaceHandler) readPump(conn *websocket.Conn, session *workspace.Session, notices chan<- string) {
	defer session.Close()

	conn.SetReadLimit(wsMaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Debugf("Workspace connection for session %s ended: %v", session.ID, err)
			}
			return
		}

		var cmd dto.WorkspaceCommand
		if err := json.Unmarshal(message, &cmd); err != nil {
			notify(notices, "malformed message")
			continue
		}

		switch cmd.Action {
		case dto.WorkspaceActionLookup:
			session.Lookup(cmd.Prefix)
		case dto.WorkspaceActionSelect:
			session.SelectSuggestion(cmd.Phone)
		default:
			notify(notices, "unknown action "+cmd.Action)
		}
	}
}

// writePump is the only writer on conn
func (h *WorkspaceHandler) writePump(conn *websocket.Conn, session *workspace.Session, notices <-chan string) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case state, ok := <-session.Updates():
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
				return
			}
			if err := conn.WriteJSON(dto.WorkspaceMessage{Type: dto.WorkspaceMessageState, Data: state}); err != nil {
				session.Close()
				return
			}

		case msg := <-notices:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(dto.WorkspaceMessage{Type: dto.WorkspaceMessageError, Message: msg}); err != nil {
				session.Close()
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				session.Close()
				return
			}
		}
	}
}

func notify(notices chan<- string, msg string) {
	select {
	case notices <- msg:
	default:
	}
}
