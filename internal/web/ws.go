package web

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/emshotton/knobz/internal/status"
)

const (
	sendBuffer   = 64
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
)

// wsClient is one live /ws connection. Changes come from a tracker
// subscription; a slow client misses changes rather than stalling the poller.
type wsClient struct {
	conn    *websocket.Conn
	changes <-chan status.Change
	cancel  func()
	done    chan struct{}
	once    sync.Once
}

func (c *wsClient) close() {
	c.once.Do(func() {
		close(c.done)
		c.cancel()
		c.conn.Close()
	})
}

// readPump discards client messages and notices when the peer goes away.
func (c *wsClient) readPump() {
	defer c.close()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("web: websocket read error: %v", err)
			}
			return
		}
	}
}

func (c *wsClient) writePump(initial []byte) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, initial); err != nil {
		return
	}

	for {
		select {
		case ch, ok := <-c.changes:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, status.FormatChange(ch)); err != nil {
				log.Printf("web: websocket write error: %v", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			return
		}
	}
}

// handleWS upgrades the request, sends the current status, then streams
// one message per recorded change.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade: %v", err)
		return
	}

	changes, cancel := s.tracker.Subscribe(sendBuffer)
	c := &wsClient{
		conn:    conn,
		changes: changes,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.clients, c)
		s.mu.Unlock()
	}()

	go c.writePump(status.FormatJSON(s.tracker.Snapshot()))
	c.readPump()
}
