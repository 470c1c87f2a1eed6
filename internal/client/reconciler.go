// Package client maintains a local mirror of one room's authoritative state
// and provides immediate feedback for local input. It keeps two layers that
// are only ever composited at draw time: the committed mirror, which is
// replaced wholesale by authoritative events, and the live buffer of
// in-flight strokes from self and peers. Merging the two into one list is
// exactly the divergence bug this layering exists to prevent.
package client

import (
	"log/slog"
	"sort"
	"sync"

	"syncboard/internal/board"
	"syncboard/internal/protocol"
	"syncboard/internal/render"
)

// EmitFunc forwards an intent toward the server. Sends are fire-and-forget;
// the reconciler never waits for a round-trip.
type EmitFunc func(protocol.Message)

// Reconciler mirrors one room. All methods are safe for the single
// cooperative event loop a client runs; the mutex exists because network
// delivery and local input may arrive from different goroutines here.
type Reconciler struct {
	mu   sync.Mutex
	log  *slog.Logger
	emit EmitFunc

	self    board.User
	users   map[string]board.User
	cursors map[string]board.Cursor

	committed []board.Stroke // sorted by Seq, full-list operations only
	undone    int            // count drives the redo affordance
	live      map[string]*board.Stroke

	canvas *render.Canvas
	rend   *render.Renderer

	// local in-progress stroke, also present in live
	current *board.Stroke
	tool    board.Tool
	style   board.Style
}

// New builds a reconciler drawing on the given canvas.
func New(canvas *render.Canvas, rend *render.Renderer, emit EmitFunc, log *slog.Logger) *Reconciler {
	if log == nil {
		log = slog.Default()
	}
	return &Reconciler{
		log:     log,
		emit:    emit,
		users:   make(map[string]board.User),
		cursors: make(map[string]board.Cursor),
		live:    make(map[string]*board.Stroke),
		canvas:  canvas,
		rend:    rend,
		tool:    board.ToolInk,
		style:   board.Style{Color: "#000000", Size: 3},
	}
}

// SetTool and SetStyle consume the selections the UI chrome produces.
func (r *Reconciler) SetTool(t board.Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.Valid() {
		r.tool = t
	}
}

func (r *Reconciler) SetStyle(s board.Style) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.style = s
}

// Self returns the identity assigned by the server at join.
func (r *Reconciler) Self() board.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.self
}

// Users returns the current presence list.
func (r *Reconciler) Users() []board.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]board.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Cursors returns the last known peer positions, latest-write-wins.
func (r *Reconciler) Cursors() []board.Cursor {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]board.Cursor, 0, len(r.cursors))
	for _, c := range r.cursors {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// CanUndo / CanRedo are the history affordances for the UI chrome.
func (r *Reconciler) CanUndo() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed) > 0
}

func (r *Reconciler) CanRedo() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.undone > 0
}

// Document exports the committed mirror with points in normalized form.
func (r *Reconciler) Document() board.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc := board.Document{Strokes: make([]board.Stroke, 0, len(r.committed))}
	for _, s := range r.committed {
		doc.Strokes = append(doc.Strokes, s.Clone())
	}
	return doc
}

// Apply feeds one server message into the mirror. Unknown or stale messages
// are dropped; they never corrupt the mirror.
func (r *Reconciler) Apply(msg protocol.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch msg.Type {
	case protocol.TypeInit:
		r.applyInit(msg)
	case protocol.TypeUserJoined:
		if msg.User != nil {
			r.users[msg.User.ID] = *msg.User
		}
	case protocol.TypeUserLeft:
		r.applyUserLeft(msg.UserID)
	case protocol.TypeStrokeStart:
		r.applyStart(msg)
	case protocol.TypeStrokePoints:
		r.applyPoints(msg)
	case protocol.TypeStrokeCommit:
		if msg.Stroke != nil {
			r.applyCommit(*msg.Stroke)
		}
	case protocol.TypeStrokeUndo:
		r.applyUndo(msg.StrokeID)
	case protocol.TypeStrokeRedo:
		if msg.Stroke != nil {
			r.applyRedo(*msg.Stroke)
		}
	case protocol.TypeClear:
		r.committed = nil
		r.undone = 0
		r.live = make(map[string]*board.Stroke)
		r.current = nil
		r.replay()
	case protocol.TypeCursor:
		r.cursors[msg.UserID] = board.Cursor{
			UserID: msg.UserID, Name: msg.Name, Color: msg.Color, X: msg.X, Y: msg.Y,
		}
	default:
		r.log.Debug("reconciler: ignoring message", "type", msg.Type)
	}
}

func (r *Reconciler) applyInit(msg protocol.Message) {
	if msg.User != nil {
		r.self = *msg.User
	}
	r.users = make(map[string]board.User, len(msg.Users))
	for _, u := range msg.Users {
		r.users[u.ID] = u
	}
	r.committed = make([]board.Stroke, len(msg.Strokes))
	copy(r.committed, msg.Strokes)
	sort.SliceStable(r.committed, func(i, j int) bool { return r.committed[i].Seq < r.committed[j].Seq })
	r.undone = 0
	r.live = make(map[string]*board.Stroke)
	r.current = nil
	r.replay()
}

func (r *Reconciler) applyUserLeft(id string) {
	delete(r.users, id)
	delete(r.cursors, id)
	changed := false
	for sid, s := range r.live {
		if s.AuthorID == id {
			delete(r.live, sid)
			changed = true
		}
	}
	if changed {
		// Abandoned previews must disappear, which only a full composite does.
		r.replay()
	}
}

// applyStart opens a live entry for a peer stroke. The server may echo our
// own start back; both the already-open check and the committed check make
// that idempotent.
func (r *Reconciler) applyStart(msg protocol.Message) {
	if _, ok := r.live[msg.StrokeID]; ok {
		return
	}
	if r.indexOf(msg.StrokeID) >= 0 {
		return
	}
	s := msg.LiveStroke(msg.UserID)
	r.live[msg.StrokeID] = &s
}

// applyPoints grows a peer's live stroke. Streaming strokes paint only the
// new segments; shape previews must erase and redraw their region, and the
// only structural way to do that is a full composite.
func (r *Reconciler) applyPoints(msg protocol.Message) {
	s, ok := r.live[msg.StrokeID]
	if !ok {
		return // points before start: protocol error, dropped
	}
	if r.current != nil && s.ID == r.current.ID {
		return // our own echo; the optimistic path already painted these
	}
	if s.Tool.Streaming() {
		prev := len(s.Points)
		s.Points = append(s.Points, msg.Points...)
		for i := prev; i < len(s.Points); i++ {
			if i == 0 {
				continue
			}
			r.rend.DrawSegment(r.canvas, *s, s.Points[i-1], s.Points[i])
		}
	} else {
		s.Points = msg.Points
		r.replay()
	}
}

// applyCommit moves a stroke from the live buffer into the committed mirror.
// Duplicate commits (the author's optimistic path may already have painted
// it, and fan-out includes the sender) insert nothing.
func (r *Reconciler) applyCommit(s board.Stroke) {
	delete(r.live, s.ID)
	if r.current != nil && r.current.ID == s.ID {
		r.current = nil
	}
	if r.indexOf(s.ID) >= 0 {
		return
	}
	i := sort.Search(len(r.committed), func(i int) bool { return r.committed[i].Seq > s.Seq })
	r.committed = append(r.committed, board.Stroke{})
	copy(r.committed[i+1:], r.committed[i:])
	r.committed[i] = s
	r.undone = 0
	r.replay()
}

func (r *Reconciler) applyUndo(strokeID string) {
	i := r.indexOf(strokeID)
	if i < 0 {
		return
	}
	r.committed = append(r.committed[:i], r.committed[i+1:]...)
	r.undone++
	r.replay()
}

func (r *Reconciler) applyRedo(s board.Stroke) {
	if r.indexOf(s.ID) >= 0 {
		return
	}
	i := sort.Search(len(r.committed), func(i int) bool { return r.committed[i].Seq > s.Seq })
	r.committed = append(r.committed, board.Stroke{})
	copy(r.committed[i+1:], r.committed[i:])
	r.committed[i] = s
	if r.undone > 0 {
		r.undone--
	}
	r.replay()
}

// RequestUndo, RequestRedo and RequestClear forward history intents. Nothing
// changes locally until the authoritative broadcast comes back.
func (r *Reconciler) RequestUndo() { r.send(protocol.Message{Type: protocol.TypeUndo}) }
func (r *Reconciler) RequestRedo() { r.send(protocol.Message{Type: protocol.TypeRedo}) }
func (r *Reconciler) RequestClear() {
	r.send(protocol.Message{Type: protocol.TypeClear})
}

// Resize swaps in a surface of the new dimensions and replays everything
// against it; normalized geometry makes the strokes land proportionally.
func (r *Reconciler) Resize(w, h int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.canvas = render.NewCanvas(w, h)
	r.replay()
}

// Canvas returns the current drawing surface.
func (r *Reconciler) Canvas() *render.Canvas {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.canvas
}

// replay is the single source-of-truth redraw path: clear, committed strokes
// in seq order, then live previews composited on top. Callers hold the lock.
func (r *Reconciler) replay() {
	r.canvas.Clear()
	for _, s := range r.committed {
		if err := r.rend.Draw(r.canvas, s); err != nil {
			r.log.Debug("reconciler: skipping unrenderable stroke", "stroke", s.ID, "err", err)
		}
	}
	ids := make([]string, 0, len(r.live))
	for id := range r.live {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if err := r.rend.DrawLive(r.canvas, *r.live[id]); err != nil {
			r.log.Debug("reconciler: skipping unrenderable live stroke", "stroke", id, "err", err)
		}
	}
}

func (r *Reconciler) indexOf(id string) int {
	for i, s := range r.committed {
		if s.ID == id {
			return i
		}
	}
	return -1
}

func (r *Reconciler) send(msg protocol.Message) {
	if r.emit != nil {
		r.emit(msg)
	}
}
