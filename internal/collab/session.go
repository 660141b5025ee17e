package collab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"

	"github.com/inamate/sketchpad/internal/document"
	"github.com/inamate/sketchpad/internal/drawing"
	"github.com/inamate/sketchpad/internal/engine"
	"github.com/inamate/sketchpad/internal/typeid"
)

// saveTimeout bounds the save a session makes when it ends.
const saveTimeout = 10 * time.Second

var menuActions = []string{engine.ActionDuplicate.String(), engine.ActionDelete.String()}

// Session is one websocket connection editing one drawing. The editor and
// viewport belong to the loop goroutine; the pumps only move bytes.
type Session struct {
	ID        string
	ClientID  string
	DrawingID string

	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	seq  atomic.Int64

	inbox   chan *Message
	choices chan MenuChoicePayload
	done    <-chan struct{}

	// Loop goroutine only.
	editor        *engine.Editor
	viewport      engine.Viewport
	version       int
	savedRevision uint64
	menuSeq       int64
	lastScreen    document.Point
}

func (h *Hub) NewSession(conn *websocket.Conn, drawingID, clientID string) *Session {
	s := &Session{
		ID:        typeid.NewSessionID(),
		ClientID:  clientID,
		DrawingID: drawingID,
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, 256),
		inbox:     make(chan *Message, 256),
		choices:   make(chan MenuChoicePayload, 1),
		viewport:  engine.NewViewport(),
	}
	s.editor = engine.NewEditor(s)
	s.editor.Scene().SetHitTolerance(h.opts.HitTolerance)
	return s
}

// Serve runs the session until the connection drops or the hub stops, then
// saves unsaved changes.
func (s *Session) Serve(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.hub.ctx, cancel)
	defer stop()
	s.done = ctx.Done()

	if err := s.open(ctx); err != nil {
		slog.Error("open drawing failed", "drawing", s.DrawingID, "error", err)
		s.conn.Close(websocket.StatusInternalError, "could not open drawing")
		return
	}

	if !s.hub.acquire() {
		s.conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	defer s.hub.live.Done()
	if !s.hub.join(s) {
		s.conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	defer s.hub.leave(s)

	s.greet()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.WritePump(ctx)
	}()
	go func() {
		defer wg.Done()
		defer cancel()
		s.loop(ctx)
	}()

	s.ReadPump(ctx)
	cancel()
	wg.Wait()
}

// open loads the drawing. An unknown id starts an empty scene that is
// created on first save.
func (s *Session) open(ctx context.Context) error {
	d, err := s.hub.drawings.Get(ctx, s.DrawingID)
	switch {
	case errors.Is(err, drawing.ErrNotFound):
	case err != nil:
		return err
	default:
		if err := s.editor.DeserializeScene(d.Shapes); err != nil {
			return err
		}
		s.version = d.Version
	}
	s.savedRevision = s.editor.Revision()
	return nil
}

func (s *Session) greet() {
	s.sendPayload(TypeWelcome, WelcomePayload{
		SessionID: s.ID,
		ClientID:  s.ClientID,
		DrawingID: s.DrawingID,
		Version:   s.version,
	})
	s.sendSync()
	s.sendViewport()
}

func (s *Session) loop(ctx context.Context) {
	defer s.flush()
	for {
		select {
		case msg := <-s.inbox:
			s.handle(ctx, msg)
		case <-ctx.Done():
			return
		}
	}
}

// flush drops any gesture in flight and saves unsaved changes.
func (s *Session) flush() {
	s.editor.AbortGesture()
	if !s.Dirty() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := s.save(ctx); err != nil {
		slog.Warn("unsaved changes lost", "session", s.ID, "drawing", s.DrawingID, "error", err)
	}
}

func (s *Session) handle(ctx context.Context, msg *Message) {
	switch msg.Type {
	case TypePointerDown, TypePointerMove, TypePointerUp:
		var p PointerPayload
		if !s.decode(msg, &p) {
			return
		}
		ev, err := p.event(s.viewport)
		if err != nil {
			s.sendError(err.Error())
			return
		}
		s.lastScreen = ev.Screen

		switch msg.Type {
		case TypePointerDown:
			s.editor.PointerDown(ev)
		case TypePointerMove:
			if ev.Buttons == engine.ButtonNone {
				return // hover
			}
			s.editor.PointerMove(ev)
		case TypePointerUp:
			s.editor.PointerUp(ev)
		}

	case TypeWheel:
		var p WheelPayload
		if !s.decode(msg, &p) {
			return
		}
		s.editor.Wheel(engine.WheelEvent{Delta: -p.DeltaY, Modifiers: p.Modifiers.toEngine()})

	case TypeModeSet:
		var p ModePayload
		if !s.decode(msg, &p) {
			return
		}
		m, err := engine.ParseMode(p.Mode)
		if err != nil {
			s.sendError(err.Error())
			return
		}
		s.editor.SetMode(m)

	case TypeUndo, TypeRedo:
		if s.editor.Busy() {
			s.sendError(engine.ErrGestureInProgress.Error())
			return
		}
		if msg.Type == TypeUndo {
			s.editor.Undo()
		} else {
			s.editor.Redo()
		}

	case TypeClear:
		s.editor.ClearCanvas()

	case TypeSave:
		if s.editor.Busy() {
			s.sendError(engine.ErrGestureInProgress.Error())
			return
		}
		if err := s.save(ctx); err != nil {
			s.sendError(saveErrorMessage(err))
			return
		}

	case TypeLoad:
		if !s.load(ctx, msg) {
			return
		}

	default:
		slog.Warn("unknown message type", "type", msg.Type, "session", s.ID)
		s.sendError(fmt.Sprintf("unknown message type %q", msg.Type))
		return
	}

	s.sendSync()
}

func (s *Session) save(ctx context.Context) error {
	d, err := s.hub.drawings.Save(ctx, s.DrawingID, s.editor.SerializeScene())
	if err != nil {
		return err
	}
	s.version = d.Version
	s.savedRevision = s.editor.Revision()

	msg := s.newMessage(TypeDrawingSaved, DrawingSavedPayload{
		DrawingID: s.DrawingID,
		Version:   d.Version,
		SavedBy:   s.ID,
	})
	if msg != nil {
		s.Send(msg)
		s.hub.broadcastToRoom(s.DrawingID, msg, s.ID)
	}
	slog.Info("drawing saved", "drawing", s.DrawingID, "version", d.Version, "session", s.ID)
	return nil
}

func saveErrorMessage(err error) string {
	if errors.Is(err, drawing.ErrEmptyDrawing) {
		return "nothing to save"
	}
	slog.Error("save drawing failed", "error", err)
	return "save failed"
}

func (s *Session) load(ctx context.Context, msg *Message) bool {
	var p LoadPayload
	if !s.decode(msg, &p) {
		return false
	}
	if s.editor.Busy() {
		s.sendError(engine.ErrGestureInProgress.Error())
		return false
	}

	records, version := p.Shapes, 0
	fromStore := records == nil
	if fromStore {
		d, err := s.hub.drawings.Get(ctx, s.DrawingID)
		if err != nil {
			if errors.Is(err, drawing.ErrNotFound) {
				s.sendError("drawing has not been saved yet")
			} else {
				slog.Error("load drawing failed", "drawing", s.DrawingID, "error", err)
				s.sendError("load failed")
			}
			return false
		}
		records, version = d.Shapes, d.Version
	}

	if err := s.editor.DeserializeScene(records); err != nil {
		s.sendError(err.Error())
		return false
	}
	if fromStore {
		s.version = version
		s.savedRevision = s.editor.Revision()
	}
	return true
}

// Dirty reports whether the scene changed since it was last loaded or saved.
func (s *Session) Dirty() bool {
	return s.editor.Revision() != s.savedRevision
}

// --- engine.Host ---

func (s *Session) ScrollBy(dx, dy float64) {
	s.viewport.ScrollBy(dx, dy)
	s.sendViewport()
}

func (s *Session) ScaleChanged(factor, scale float64) {
	s.viewport.Zoom(factor)
	s.sendViewport()
}

// Wheel scrolls vertically, or horizontally with shift held.
func (s *Session) Wheel(ev engine.WheelEvent) {
	if ev.Modifiers&engine.ModShift != 0 {
		s.ScrollBy(-ev.Delta, 0)
		return
	}
	s.ScrollBy(0, -ev.Delta)
}

// ChooseAction asks the client to pick from the shape menu and blocks the
// loop until the answer, the menu timeout, or the end of the session.
func (s *Session) ChooseAction(shape *document.Shape) engine.Action {
	s.menuSeq++
	id := s.menuSeq

	for drained := false; !drained; {
		select {
		case <-s.choices:
		default:
			drained = true
		}
	}

	s.sendPayload(TypeMenuRequest, MenuRequestPayload{
		MenuID:  id,
		ShapeID: shape.ID,
		Actions: menuActions,
		X:       s.lastScreen.X,
		Y:       s.lastScreen.Y,
		Bounds:  s.viewport.ToScreenRect(shape.SceneBounds()),
	})

	timer := time.NewTimer(s.hub.opts.MenuTimeout)
	defer timer.Stop()
	for {
		select {
		case c := <-s.choices:
			if c.MenuID != id {
				continue
			}
			return engine.ParseAction(c.Action)
		case <-timer.C:
			slog.Debug("menu timed out", "session", s.ID, "menu", id)
			return engine.ActionNone
		case <-s.done:
			return engine.ActionNone
		}
	}
}

// --- outbound ---

func (s *Session) newMessage(typ string, payload any) *Message {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal payload", "type", typ, "error", err)
		return nil
	}
	return &Message{Type: typ, DrawingID: s.DrawingID, Payload: data}
}

func (s *Session) sendPayload(typ string, payload any) {
	if msg := s.newMessage(typ, payload); msg != nil {
		s.Send(msg)
	}
}

func (s *Session) sendSync() {
	h := s.editor.History()
	s.sendPayload(TypeSceneSync, SceneSyncPayload{
		DrawCommands: engine.CompileDrawCommands(s.editor.Scene(), s.editor.Current()),
		Shapes:       s.editor.SerializeScene(),
		Mode:         s.editor.Mode().String(),
		Scale:        s.editor.Scale(),
		Busy:         s.editor.Busy(),
		CanUndo:      h.CanUndo(),
		CanRedo:      h.CanRedo(),
		UndoName:     h.UndoName(),
		RedoName:     h.RedoName(),
		Revision:     s.editor.Revision(),
		Dirty:        s.Dirty(),
		Bounds:       s.editor.Scene().Bounds(),
	})
}

func (s *Session) sendViewport() {
	s.sendPayload(TypeViewportUpdate, s.viewport)
}

func (s *Session) sendError(message string) {
	s.sendPayload(TypeError, ErrorPayload{Message: message})
}

// decode unmarshals the payload into v. A missing payload leaves v zero.
func (s *Session) decode(msg *Message, v any) bool {
	if len(msg.Payload) == 0 {
		return true
	}
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		slog.Warn("invalid payload", "type", msg.Type, "error", err, "session", s.ID)
		s.sendError(fmt.Sprintf("invalid %s payload", msg.Type))
		return false
	}
	return true
}
