package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/open-crosspost/scheduler-service/internal/events"
)

// maxWSMessageSize bounds inbound frames on the job-events stream, which is
// read-only from the client's perspective (pings/pongs only).
const maxWSMessageSize = 4 * 1024

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// webSocketHandler streams job-lifecycle events (spec.md §6 supplement: a
// live view over job create/update/delete/run/reactivate/complete) to
// subscribed clients.
type webSocketHandler struct {
	events eventPublisher
}

func newWebSocketHandler(events eventPublisher) *webSocketHandler {
	return &webSocketHandler{events: events}
}

func (h *webSocketHandler) serve(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		writeError(w, http.StatusServiceUnavailable, "event stream not configured")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	clientID := uuid.NewString()
	send := make(chan []byte, 64)

	h.events.Subscribe(clientID, func(e events.Event) {
		data, err := json.Marshal(e)
		if err != nil {
			slog.Error("marshal job event", "error", err)
			return
		}
		select {
		case send <- data:
		default:
			slog.Warn("job event subscriber send buffer full, dropping event", "client", clientID)
		}
	})

	go h.writePump(conn, send, clientID)
	h.readPump(conn, clientID)
}

// readPump discards inbound frames (this stream is server-to-client only)
// and exits on any read error, tearing down the subscription.
func (h *webSocketHandler) readPump(conn *websocket.Conn, clientID string) {
	defer func() {
		h.events.Unsubscribe(clientID)
		conn.Close()
	}()

	conn.SetReadLimit(maxWSMessageSize)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *webSocketHandler) writePump(conn *websocket.Conn, send chan []byte, clientID string) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-send:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
