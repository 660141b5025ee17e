package collab

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/inamate/sketchpad/internal/document"
	"github.com/inamate/sketchpad/internal/drawing"
	"github.com/inamate/sketchpad/internal/engine"
)

// DrawingStore is the part of drawing.Service a session needs.
type DrawingStore interface {
	Get(ctx context.Context, id string) (*drawing.Drawing, error)
	Save(ctx context.Context, id string, shapes []document.Record) (*drawing.Drawing, error)
}

type Options struct {
	// MenuTimeout bounds how long a session waits for a menu.choice.
	MenuTimeout time.Duration
	// HitTolerance is passed to every session's scene.
	HitTolerance float64
}

func (o Options) withDefaults() Options {
	if o.MenuTimeout <= 0 {
		o.MenuTimeout = 30 * time.Second
	}
	if o.HitTolerance <= 0 {
		o.HitTolerance = engine.DefaultHitTolerance
	}
	return o
}

// Room groups the sessions editing the same drawing.
type Room struct {
	drawingID string
	sessions  map[string]*Session // sessionID -> session
}

func NewRoom(drawingID string) *Room {
	return &Room{
		drawingID: drawingID,
		sessions:  make(map[string]*Session),
	}
}

func (r *Room) stateMessage() *Message {
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	payload, err := json.Marshal(PresenceStatePayload{Sessions: ids})
	if err != nil {
		slog.Error("marshal presence state", "error", err)
		return nil
	}
	return &Message{
		Type:      TypePresenceState,
		DrawingID: r.drawingID,
		Payload:   payload,
	}
}

// Hub tracks live sessions by drawing. Stop ends every session, and each
// one saves its unsaved changes on the way out.
type Hub struct {
	drawings DrawingStore
	opts     Options

	ctx    context.Context
	cancel context.CancelFunc
	live   sync.WaitGroup

	mu    sync.RWMutex
	rooms map[string]*Room // drawingID -> room

	register   chan *Session
	unregister chan *Session
}

func NewHub(drawings DrawingStore, opts Options) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		drawings:   drawings,
		opts:       opts.withDefaults(),
		ctx:        ctx,
		cancel:     cancel,
		rooms:      make(map[string]*Room),
		register:   make(chan *Session),
		unregister: make(chan *Session),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case s := <-h.register:
			h.addSession(s)
		case s := <-h.unregister:
			h.removeSession(s)
		case <-h.ctx.Done():
			return
		}
	}
}

// Stop ends all sessions and waits until they have saved, or until ctx
// expires.
func (h *Hub) Stop(ctx context.Context) error {
	h.mu.Lock()
	h.cancel()
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		h.live.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// acquire counts a session as live so Stop waits for it. It reports false
// once the hub is stopping.
func (h *Hub) acquire() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ctx.Err() != nil {
		return false
	}
	h.live.Add(1)
	return true
}

// join registers s. It reports false once the hub is stopping.
func (h *Hub) join(s *Session) bool {
	select {
	case h.register <- s:
		return true
	case <-h.ctx.Done():
		return false
	}
}

func (h *Hub) leave(s *Session) {
	select {
	case h.unregister <- s:
	case <-h.ctx.Done():
		h.removeSession(s)
	}
}

func (h *Hub) addSession(s *Session) {
	h.mu.Lock()
	room, ok := h.rooms[s.DrawingID]
	if !ok {
		room = NewRoom(s.DrawingID)
		h.rooms[s.DrawingID] = room
	}
	room.sessions[s.ID] = s
	msg := room.stateMessage()
	h.mu.Unlock()

	if msg != nil {
		h.broadcastToRoom(s.DrawingID, msg, "")
	}
	slog.Info("session joined", "session", s.ID, "client", s.ClientID, "drawing", s.DrawingID)
}

func (h *Hub) removeSession(s *Session) {
	h.mu.Lock()
	room, ok := h.rooms[s.DrawingID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, ok := room.sessions[s.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(room.sessions, s.ID)

	var msg *Message
	if len(room.sessions) == 0 {
		delete(h.rooms, s.DrawingID)
	} else {
		msg = room.stateMessage()
	}
	h.mu.Unlock()

	if msg != nil {
		h.broadcastToRoom(s.DrawingID, msg, "")
	}
	slog.Info("session left", "session", s.ID, "drawing", s.DrawingID)
}

func (h *Hub) broadcastToRoom(drawingID string, msg *Message, excludeSessionID string) {
	h.mu.RLock()
	room, ok := h.rooms[drawingID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	sessions := make([]*Session, 0, len(room.sessions))
	for _, s := range room.sessions {
		if s.ID != excludeSessionID {
			sessions = append(sessions, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range sessions {
		s.Send(msg)
	}
}

// SessionCount returns the number of registered sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, r := range h.rooms {
		n += len(r.sessions)
	}
	return n
}
