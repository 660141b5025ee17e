package collab

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/coder/websocket"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	maxMsgSize = 1 << 20
)

// ReadPump reads client messages until the connection fails or ctx ends.
// Menu choices go straight to a waiting ChooseAction; everything else is
// queued for the loop.
func (s *Session) ReadPump(ctx context.Context) {
	defer s.conn.Close(websocket.StatusNormalClosure, "")

	s.conn.SetReadLimit(maxMsgSize)

	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
				websocket.CloseStatus(err) == websocket.StatusGoingAway {
				return
			}
			slog.Debug("read error", "error", err, "session", s.ID)
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("invalid message", "error", err, "session", s.ID)
			s.sendError("invalid message")
			continue
		}

		msg.SessionID = s.ID
		msg.DrawingID = s.DrawingID

		if !s.route(ctx, &msg) {
			return
		}
	}
}

// route hands msg to the loop, or to ChooseAction for menu choices. It
// reports false once ctx is done.
func (s *Session) route(ctx context.Context, msg *Message) bool {
	if msg.Type == TypeMenuChoice {
		var c MenuChoicePayload
		if err := json.Unmarshal(msg.Payload, &c); err != nil {
			slog.Warn("invalid menu choice", "error", err, "session", s.ID)
			return true
		}
		select {
		case s.choices <- c:
		default:
			slog.Debug("menu choice dropped", "session", s.ID, "menu", c.MenuID)
		}
		return true
	}

	select {
	case s.inbox <- msg:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Session) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message, ok := <-s.send:
			if !ok {
				return
			}

			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := s.conn.Write(writeCtx, websocket.MessageText, message)
			cancel()
			if err != nil {
				slog.Debug("write error", "error", err, "session", s.ID)
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := s.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

// Send queues msg for the client, stamping it with the next sequence number.
// It never blocks; a full buffer drops the message.
func (s *Session) Send(msg *Message) {
	out := *msg
	out.Seq = s.seq.Add(1)
	data, err := json.Marshal(&out)
	if err != nil {
		slog.Error("marshal message", "error", err)
		return
	}

	select {
	case s.send <- data:
	default:
		slog.Warn("session send buffer full, dropping message", "session", s.ID)
	}
}
