package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/brezcode/brezcode-platform-sub008/internal/services"
	"github.com/brezcode/brezcode-platform-sub008/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
)

type WSHandler struct {
	sessions services.SessionService
	engine   services.TurnEngine
	redis    *redis.Client // nil: results go straight back on the socket
	upgrader websocket.Upgrader
}

func NewWSHandler(sessions services.SessionService, engine services.TurnEngine, rdb *redis.Client) *WSHandler {
	return &WSHandler{
		sessions: sessions,
		engine:   engine,
		redis:    rdb,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origin in prod
		},
	}
}

type wsClientMsg struct {
	Type           string `json:"type"` // advance|complete
	SelectedChoice string `json:"selected_choice"`
	RequestID      string `json:"request_id"`
}

type wsErrorMsg struct {
	Type    string     `json:"type"`
	Code    utils.Code `json:"code"`
	Message string     `json:"message"`
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeText(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

func (w *wsConn) writeJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return w.writeText(b)
}

func (w *wsConn) writeErr(err error) {
	msg := wsErrorMsg{Type: "error", Code: utils.CodeOf(err), Message: "internal error"}
	var ae *utils.AppError
	if errors.As(err, &ae) {
		msg.Message = ae.Message
	}
	_ = w.writeJSON(msg)
}

// SessionWS streams session events to the client and accepts advance and
// complete frames.
func (h *WSHandler) SessionWS(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	sessionID := c.Param("session_id")
	if sessionID == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, "WSHandler.SessionWS", "missing session_id", nil))
		return
	}

	sess, err := h.sessions.Get(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	if !canAccess(c, userID, sess) {
		writeError(c, utils.E(utils.CodeForbidden, "WSHandler.SessionWS", "forbidden", nil))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response in most cases
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	var pubsub *redis.PubSub
	if h.redis != nil {
		pubsub = h.redis.Subscribe(ctx, services.SessionChannel(sessionID))
		defer pubsub.Close()
	}

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})

		for {
			_, data, rerr := conn.ReadMessage()
			if rerr != nil {
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))

			var msg wsClientMsg
			if err := json.Unmarshal(data, &msg); err != nil {
				wc.writeErr(utils.E(utils.CodeInvalidArgument, "WSHandler.SessionWS", "invalid json", err))
				continue
			}

			switch msg.Type {
			case "advance":
				updated, err := h.engine.Advance(ctx, services.AdvanceRequest{
					SessionID:      sessionID,
					SelectedChoice: msg.SelectedChoice,
					RequestID:      msg.RequestID,
				})
				if err != nil {
					wc.writeErr(err)
					continue
				}
				if pubsub == nil {
					n := len(updated.Messages)
					_ = wc.writeJSON(services.SessionEvent{
						Type:      services.EventTurnAppended,
						SessionID: sessionID,
						Messages:  updated.Messages[n-2:],
						At:        time.Now().UTC(),
					})
				}

			case "complete":
				done, err := h.sessions.Complete(ctx, sessionID)
				if err != nil {
					wc.writeErr(err)
					continue
				}
				if pubsub == nil {
					_ = wc.writeJSON(services.SessionEvent{
						Type:      services.EventSessionCompleted,
						SessionID: sessionID,
						Summary:   done.Summary,
						At:        time.Now().UTC(),
					})
				}

			default:
				wc.writeErr(utils.E(utils.CodeInvalidArgument, "WSHandler.SessionWS", "unknown message type", nil))
			}
		}
	}()

	if pubsub == nil {
		select {
		case <-readDone:
		case <-ctx.Done():
		}
		return
	}

	// Redis Pub/Sub -> WS
	ch := pubsub.Channel()
	for {
		select {
		case <-readDone:
			return
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			// forward as-is (payload is a JSON SessionEvent)
			if werr := wc.writeText([]byte(m.Payload)); werr != nil {
				return
			}
		}
	}
}
