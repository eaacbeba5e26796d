package feed

import (
	"context"
	"martinbot/internal/engine"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

func (s *Server) logEntry() *logrus.Entry {
	return s.log.WithComponent("feed")
}

// Broadcast fans engine progress out to every connected client until ctx ends.
func (s *Server) Broadcast(ctx context.Context) {
	s.logEntry().Debug("Рассылка прогресса запущена.")
	for {
		select {
		case <-ctx.Done():
			s.closeAll()
			return
		case p, ok := <-s.runner.Progress():
			if !ok {
				s.closeAll()
				return
			}
			s.publish(p)
		}
	}
}

func (s *Server) publish(p engine.Progress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- p:
		default:
			s.logEntry().WithField("run_id", p.RunID).Debug("Клиент не успевает читать, сообщение пропущено.")
		}
	}
}

func (s *Server) register(conn *websocket.Conn) *client {
	c := &client{
		conn: conn,
		send: make(chan engine.Progress, s.sendBuffer),
		done: make(chan struct{}),
	}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	s.logEntry().WithField("remote", conn.RemoteAddr().String()).Info("Клиент подключён к ленте прогресса.")
	return c
}

func (s *Server) unregister(c *client) {
	s.mu.Lock()
	_, ok := s.clients[c]
	delete(s.clients, c)
	s.mu.Unlock()
	if ok {
		c.stop()
		s.logEntry().WithField("remote", c.conn.RemoteAddr().String()).Info("Клиент отключён от ленты прогресса.")
	}
}

func (s *Server) closeAll() {
	s.mu.Lock()
	clients := s.clients
	s.clients = map[*client]struct{}{}
	s.mu.Unlock()
	for c := range clients {
		c.stop()
	}
}

func (s *Server) clientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (c *client) stop() {
	c.stopOnce.Do(func() {
		close(c.done)
	})
}

func (s *Server) writeLoop(c *client) {
	defer func() {
		_ = c.conn.Close()
	}()
	for {
		select {
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(s.writeTimeout))
			return
		case p := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := c.conn.WriteJSON(p); err != nil {
				s.logEntry().WithError(err).Warn("Ошибка записи в WS.")
				s.unregister(c)
				return
			}
		}
	}
}

// readLoop only watches for the client going away.
func (s *Server) readLoop(c *client) {
	c.conn.SetReadLimit(1 << 10)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			s.unregister(c)
			return
		}
	}
}
