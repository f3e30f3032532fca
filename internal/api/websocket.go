// Package api - WebSocket handler for round-by-round play
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"quizslot/internal/domain"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// WSClient represents a WebSocket client connection
type WSClient struct {
	conn      *websocket.Conn
	send      chan []byte
	sessionID string
	playerID  string
	mu        sync.Mutex
}

// HandleWebSocket handles WebSocket connections for play sessions
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	session, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	if session.Status != domain.SessionActive {
		http.Error(w, "Play session is not active", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &WSClient{
		conn:      conn,
		send:      make(chan []byte, 256),
		sessionID: session.ID,
		playerID:  session.PlayerID,
	}

	go client.writePump()
	go h.readPump(client)
}

// writePump pumps messages from the send channel to the WebSocket connection
func (c *WSClient) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)
			w.Close()

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump pumps messages from the WebSocket connection to the handler
func (h *Handler) readPump(c *WSClient) {
	defer func() {
		close(c.send)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	h.sendMessage(c, "connected", map[string]interface{}{
		"session_id": c.sessionID,
		"message":    "Connected to play session",
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket read failed", zap.Error(err))
			}
			break
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			h.sendError(c, "INVALID_MESSAGE", "Invalid message format")
			continue
		}

		h.handleWSMessage(c, &msg)
	}
}

// handleWSMessage processes incoming WebSocket messages
func (h *Handler) handleWSMessage(c *WSClient, msg *WSMessage) {
	ctx := context.Background()

	switch msg.Type {
	case "spin":
		result, err := h.game.Spin(ctx, c.sessionID)
		if err != nil {
			h.sendError(c, "SPIN_ERROR", err.Error())
			return
		}
		h.sendMessage(c, "round", result)

	case "stop":
		var payload struct {
			Reel     string `json:"reel"`
			Position int    `json:"position"`
		}
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			h.sendError(c, "INVALID_PAYLOAD", "Invalid stop payload")
			return
		}
		reelID, ok := parseReel(payload.Reel)
		if !ok {
			h.sendError(c, "INVALID_REEL", "Unknown reel: "+payload.Reel)
			return
		}
		result, err := h.game.ConfirmStop(ctx, c.sessionID, reelID, payload.Position)
		if err != nil {
			h.sendError(c, "STOP_ERROR", err.Error())
			return
		}
		h.sendMessage(c, "stopped", result)

	case "answer":
		var payload struct {
			Choice string `json:"choice"`
		}
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			h.sendError(c, "INVALID_PAYLOAD", "Invalid answer payload")
			return
		}
		result, err := h.game.Answer(ctx, c.sessionID, payload.Choice)
		if err != nil {
			h.sendError(c, "ANSWER_ERROR", err.Error())
			return
		}
		h.sendMessage(c, "judged", result)

	case "session_info":
		session, err := h.game.GetSession(ctx, c.sessionID)
		if err != nil {
			h.sendError(c, "SESSION_ERROR", "Failed to get session")
			return
		}
		h.sendMessage(c, "session_info", session)

	case "ranking":
		entries, err := h.ranking.Top(ctx, 10)
		if err != nil {
			h.sendError(c, "RANKING_ERROR", "Failed to load leaderboard")
			return
		}
		h.sendMessage(c, "ranking", entries)

	case "ping":
		h.sendMessage(c, "pong", map[string]interface{}{
			"timestamp": time.Now().Unix(),
		})

	default:
		h.sendError(c, "UNKNOWN_MESSAGE", "Unknown message type: "+msg.Type)
	}
}

// sendMessage sends a message to the client
func (h *Handler) sendMessage(c *WSClient, msgType string, payload interface{}) {
	payloadBytes, _ := json.Marshal(payload)
	msg := WSMessage{
		Type:    msgType,
		Payload: payloadBytes,
	}
	msgBytes, _ := json.Marshal(msg)

	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case c.send <- msgBytes:
	default:
		// Channel full, drop message
	}
}

// sendError sends an error message to the client
func (h *Handler) sendError(c *WSClient, code, message string) {
	h.sendMessage(c, "error", map[string]string{
		"code":    code,
		"message": message,
	})
}
