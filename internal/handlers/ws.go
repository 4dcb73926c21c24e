package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yukikurage/kanban-board-api/internal/access"
	"github.com/yukikurage/kanban-board-api/internal/constants"
	"github.com/yukikurage/kanban-board-api/internal/database"
	"github.com/yukikurage/kanban-board-api/internal/dto"
	apierrors "github.com/yukikurage/kanban-board-api/internal/errors"
	"github.com/yukikurage/kanban-board-api/internal/middleware"
	"github.com/yukikurage/kanban-board-api/internal/realtime"
	"github.com/yukikurage/kanban-board-api/internal/services"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 54 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Session cookie auth happens before the upgrade; cross-origin pages
	// cannot read the cookie, so the origin check stays permissive.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// inboundMessage is the wire shape clients send over either socket.
type inboundMessage struct {
	Type        string `json:"type"`
	Text        string `json:"text"`
	RecipientID uint64 `json:"recipient_id,omitempty"`
}

// WSHandler serves the two persistent-connection endpoints: the per-board
// chat room and the per-user private message stream.
type WSHandler struct {
	chatService *services.ChatService
	hub         *realtime.Hub
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(chatService *services.ChatService, hub *realtime.Hub) *WSHandler {
	return &WSHandler{
		chatService: chatService,
		hub:         hub,
	}
}

// BoardChat upgrades the connection to a board chat socket. Access is
// checked against current database state before the upgrade; on accept
// the client receives the room's recent history as a single event, then
// live broadcasts.
func (h *WSHandler) BoardChat(c *gin.Context) {
	boardID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid board ID")
		return
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	ok, err := access.HasBoardAccess(database.GetDB(), userID, boardID)
	if err != nil {
		apierrors.InternalError(c, "")
		return
	}
	if !ok {
		apierrors.Forbidden(c, "")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws: upgrade board %d: %v", boardID, err)
		return
	}

	events, cancel := h.hub.Subscribe(realtime.BoardTopic(boardID))
	defer cancel()

	h.pushHistory(conn, boardID)

	done := make(chan struct{})
	go h.writeLoop(conn, events, done)

	h.readLoop(conn, func(msg inboundMessage) {
		switch msg.Type {
		case "message":
			if _, err := h.chatService.Send(boardID, userID, msg.Text); err != nil {
				log.Printf("ws: send to board %d: %v", boardID, err)
			}
		default:
			log.Printf("ws: unknown message type %q on board %d", msg.Type, boardID)
		}
	})
	close(done)
}

// PrivateMessages upgrades the connection to the caller's personal
// message stream. Outbound new_message and message_sent events arrive
// here; inbound private_message frames are persisted and delivered.
func (h *WSHandler) PrivateMessages(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws: upgrade user %d: %v", userID, err)
		return
	}

	events, cancel := h.hub.Subscribe(realtime.UserTopic(userID))
	defer cancel()

	done := make(chan struct{})
	go h.writeLoop(conn, events, done)

	h.readLoop(conn, func(msg inboundMessage) {
		switch msg.Type {
		case "private_message":
			if _, err := h.chatService.SendPrivate(userID, msg.RecipientID, msg.Text); err != nil {
				log.Printf("ws: private message from %d to %d: %v", userID, msg.RecipientID, err)
			}
		default:
			log.Printf("ws: unknown message type %q from user %d", msg.Type, userID)
		}
	})
	close(done)
}

// pushHistory sends the room's recent messages oldest first as one
// history event.
func (h *WSHandler) pushHistory(conn *websocket.Conn, boardID uint64) {
	page, err := h.chatService.History(boardID, constants.ChatHistoryLimit, 0)
	if err != nil {
		log.Printf("ws: history for board %d: %v", boardID, err)
		return
	}

	messages := make([]dto.ChatMessageDTO, len(page.Messages))
	for i := range page.Messages {
		message := page.Messages[i]
		url := ""
		if message.Attachment != nil {
			url = h.chatService.FileURL(message.Attachment)
		}
		messages[i] = dto.ToChatMessageDTO(message, url)
	}

	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := conn.WriteJSON(gin.H{"type": "history", "messages": messages}); err != nil {
		log.Printf("ws: push history for board %d: %v", boardID, err)
	}
}

// readLoop consumes inbound frames until the peer disconnects. Malformed
// payloads are logged and skipped; the connection stays open.
func (h *WSHandler) readLoop(conn *websocket.Conn, handle func(inboundMessage)) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws: read: %v", err)
			}
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("ws: malformed payload: %v", err)
			continue
		}
		handle(msg)
	}
}

// writeLoop forwards hub events to the peer and keeps the connection
// alive with pings. It exits when the subscription or connection closes.
func (h *WSHandler) writeLoop(conn *websocket.Conn, events <-chan []byte, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case payload, ok := <-events:
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
