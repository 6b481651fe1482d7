package web

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Makepad-fr/tada/internal/store/sqlitestore"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 8
)

// hub fans store notifications out to every open page. It is the HTML
// view's cross-tab invalidation signal.
type hub struct {
	log     *slog.Logger
	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

type notice struct {
	Type sqlitestore.EventType `json:"type"`
}

func newHub(log *slog.Logger) *hub {
	return &hub{log: log, clients: make(map[*client]struct{})}
}

func (h *hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// broadcast never blocks; a client that is not keeping up misses the
// notice, which only means one reload fewer.
func (h *hub) broadcast(t sqlitestore.EventType) {
	b, err := json.Marshal(notice{Type: t})
	if err != nil {
		h.log.Error("marshal notice", "err", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- b:
		default:
		}
	}
}

// writePump owns writes to the connection until send is closed.
func (c *client) writePump(log *slog.Logger) {
	t := time.NewTicker(pingPeriod)
	defer func() {
		t.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Debug("websocket write", "err", err)
				return
			}
		case <-t.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains the connection so close frames and pongs are processed.
func (c *client) readPump() {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
