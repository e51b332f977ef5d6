package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/luxio/internal/apierr"
	"github.com/muurk/luxio/internal/events"
	"github.com/muurk/luxio/internal/logging"
	"github.com/muurk/luxio/internal/rpc"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192

	// Responses waiting for the writer
	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The controller serves its own local UI and any LAN client.
	CheckOrigin: func(*http.Request) bool { return true },
}

type wsClient struct {
	id     string
	remote string
	conn   *websocket.Conn
	send   chan []byte
}

// handleWebSocket upgrades the connection, pushes the full state, then
// forwards every event and answers RPC requests on the same socket.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("WebSocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	c := &wsClient{
		id:     uuid.NewString(),
		remote: r.RemoteAddr,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.config.RequestTimeout)
	subID, eventsCh, state, err := s.backend.Subscribe(ctx)
	cancel()
	if err != nil {
		logging.Warn("Failed to subscribe WebSocket client",
			zap.String("remote_addr", c.remote),
			zap.Error(err),
		)
		_ = conn.Close()
		return
	}

	s.track(c)
	logging.LogConnection("websocket", c.remote, "connected")

	initial, _ := json.Marshal(events.Event{Event: events.FullState, Data: state})
	c.send <- initial

	done := make(chan struct{})
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		c.writePump(eventsCh, done)
	}()

	c.readPump(s)

	close(done)
	s.backend.Unsubscribe(subID)
	s.untrack(c)
	_ = conn.Close()
	logging.LogConnection("websocket", c.remote, "closed")
}

// readPump answers requests until the peer goes away.
func (c *wsClient) readPump(s *Server) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Debug("WebSocket read error",
					zap.String("remote_addr", c.remote),
					zap.Error(err),
				)
			}
			return
		}
		logging.LogWebSocketMessage(c.remote, "received", msgType, data)
		if msgType != websocket.TextMessage {
			continue
		}

		reply := s.answer(data)
		select {
		case c.send <- reply:
		default:
			logging.Warn("Dropping response for slow WebSocket client",
				zap.String("remote_addr", c.remote),
			)
		}
	}
}

func (s *Server) answer(data []byte) []byte {
	req, err := rpc.DecodeRequest(data)
	if err != nil {
		code := apierr.CodeInvalidRequest
		if errors.Is(err, rpc.ErrInvalidMethod) {
			code = errInvalidMethod
		}
		out, _ := json.Marshal(rpc.Response{ID: req.ID, Error: code})
		return out
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.config.RequestTimeout)
	defer cancel()

	resp, err := s.backend.Execute(ctx, req)
	if err != nil {
		resp = rpc.Response{ID: req.ID, Error: errUnavailable}
	}
	out, err := json.Marshal(resp)
	if err != nil {
		logging.Error("Failed to marshal response", zap.Error(err))
		out, _ = json.Marshal(rpc.Response{ID: req.ID, Error: apierr.CodeInternal})
	}
	return out
}

// writePump is the connection's only writer.
func (c *wsClient) writePump(eventsCh <-chan events.Event, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case data := <-c.send:
			if !c.write(websocket.TextMessage, data) {
				return
			}

		case ev, ok := <-eventsCh:
			if !ok {
				_ = c.conn.Close()
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				logging.Error("Failed to marshal event",
					zap.String("event", ev.Event),
					zap.Error(err),
				)
				continue
			}
			if !c.write(websocket.TextMessage, data) {
				return
			}

		case <-ticker.C:
			if !c.write(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *wsClient) write(msgType int, data []byte) bool {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(msgType, data); err != nil {
		logging.Debug("WebSocket write failed",
			zap.String("remote_addr", c.remote),
			zap.Error(err),
		)
		_ = c.conn.Close()
		return false
	}
	logging.LogWebSocketMessage(c.remote, "sent", msgType, data)
	return true
}
