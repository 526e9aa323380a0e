package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/newsrag/internal/chat"
	"github.com/mohammad-safakhou/newsrag/models"
)

// envelope is the wire format of the session channel: every frame carries an
// event name and an event-specific payload.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type sendMessageData struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
}

type sessionRefData struct {
	SessionID string `json:"sessionId"`
}

// WSHandler exposes the conversation orchestrator over a websocket session
// channel.
type WSHandler struct {
	orch     *chat.Orchestrator
	upgrader websocket.Upgrader
	logger   *log.Logger
}

// NewWSHandler creates the websocket handler.
func NewWSHandler(orch *chat.Orchestrator) *WSHandler {
	return &WSHandler{
		orch: orch,
		upgrader: websocket.Upgrader{
			// The channel is origin-agnostic; CORS policy lives upstream.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: log.New(log.Writer(), "[WS] ", log.LstdFlags),
	}
}

// wsConn wraps a websocket connection with a write lock (gorilla allows one
// concurrent writer) and implements chat.Emitter.
type wsConn struct {
	conn   *websocket.Conn
	logger *log.Logger
	mu     sync.Mutex
}

func (c *wsConn) emit(event string, data any) {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			c.logger.Printf("marshal %s event: %v", event, err)
			return
		}
		raw = b
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteJSON(envelope{Event: event, Data: raw}); err != nil {
		c.logger.Printf("write %s event: %v", event, err)
	}
}

func (c *wsConn) Typing(typing bool) {
	c.emit("bot_typing", map[string]bool{"typing": typing})
}

func (c *wsConn) Message(turn models.ConversationTurn) {
	c.emit("receive_message", turn)
}

func (c *wsConn) error(message string) {
	c.emit("error", map[string]string{"message": message})
}

// Serve upgrades the request and runs the session channel until the client
// disconnects. Each connection gets a fresh session id on connect.
func (h *WSHandler) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	ws := &wsConn{conn: conn, logger: h.logger}
	sessionID := uuid.NewString()
	ws.emit("session_initialized", sessionRefData{SessionID: sessionID})
	h.logger.Printf("session initialized: %s", sessionID)

	ctx := c.Request().Context()
	for {
		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Printf("read: %v", err)
			}
			return nil
		}

		switch env.Event {
		case "send_message":
			var data sendMessageData
			if err := json.Unmarshal(env.Data, &data); err != nil {
				ws.error("Invalid send_message payload")
				continue
			}
			if err := h.orch.HandleMessage(ctx, data.SessionID, data.Message, ws); err != nil {
				h.logger.Printf("process message for %s: %v", data.SessionID, err)
				if errors.Is(err, models.ErrEmptyMessage) {
					ws.error("Message cannot be empty")
				} else {
					ws.error("Failed to process message")
				}
			}

		case "get_chat_history":
			var data sessionRefData
			if err := json.Unmarshal(env.Data, &data); err != nil {
				ws.error("Invalid get_chat_history payload")
				continue
			}
			turns, err := h.orch.History(ctx, data.SessionID)
			if err != nil {
				h.logger.Printf("get history for %s: %v", data.SessionID, err)
				ws.error("Failed to get chat history")
				continue
			}
			ws.emit("chat_history", map[string]any{"turns": turns})

		case "clear_history":
			var data sessionRefData
			if err := json.Unmarshal(env.Data, &data); err != nil {
				ws.error("Invalid clear_history payload")
				continue
			}
			if err := h.orch.Clear(ctx, data.SessionID); err != nil {
				h.logger.Printf("clear history for %s: %v", data.SessionID, err)
				ws.error("Failed to clear history")
				continue
			}
			ws.emit("history_cleared", nil)

		default:
			ws.error("Unknown event: " + env.Event)
		}
	}
}
