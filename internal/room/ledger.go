package room

import (
	"sort"
	"sync"

	"syncboard/internal/board"
	"syncboard/internal/geom"
)

// Presence is what the room knows about a connected participant.
type Presence struct {
	Name  string
	Color string
}

// Ledger is the sole authority over stroke order and undo/redo for one room.
// Every mutation goes through the mutex, so no two commits can ever observe
// the same sequence number. Cross-room ledgers are fully independent.
type Ledger struct {
	mu        sync.Mutex
	committed []board.Stroke // always sorted by Seq
	undone    []board.Stroke // stack, most recent undo last
	live      map[string]*board.Stroke
	presence  map[string]Presence
	order     []string // presence ids in join order, for snapshot stability
	nextSeq   uint64
}

// NewLedger returns an empty room.
func NewLedger() *Ledger {
	return &Ledger{
		live:     make(map[string]*board.Stroke),
		presence: make(map[string]Presence),
	}
}

// Join registers a participant. Re-joining with the same id replaces the
// previous presence entry.
func (l *Ledger) Join(id string, p Presence) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.presence[id]; !ok {
		l.order = append(l.order, id)
	}
	l.presence[id] = p
}

// Leave drops the participant's presence and abandons any live strokes they
// authored. Committed history is untouched.
func (l *Ledger) Leave(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.presence, id)
	for i, pid := range l.order {
		if pid == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	for sid, s := range l.live {
		if s.AuthorID == id {
			delete(l.live, sid)
		}
	}
}

// OpenLive registers an in-progress stroke. The server buffers live geometry
// itself rather than trusting the author's final snapshot, so a lossy client
// can only corrupt its own stroke, never room history. Duplicate ids are
// rejected: a stroke id is unique for its lifetime, and an undone stroke is
// still alive because a redo can bring it back.
func (l *Ledger) OpenLive(s board.Stroke) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.live[s.ID]; ok {
		return false
	}
	if l.idTaken(s.ID) {
		return false
	}
	c := s.Clone()
	c.Seq = 0
	l.live[s.ID] = &c
	return true
}

// AppendLive adds points to a live stroke. Shape and placement tools replace
// their live end rather than growing without bound.
func (l *Ledger) AppendLive(id string, pts []geom.Point) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.live[id]
	if !ok {
		return false
	}
	if s.Tool.Streaming() {
		s.Points = append(s.Points, pts...)
	} else {
		s.Points = pts
	}
	return true
}

// Commit finalizes the live stroke with the given id: it receives the next
// sequence number, joins committed history, and invalidates the redo stack
// (new work wins over old history, regardless of author). Committing an
// unknown id is a no-op.
func (l *Ledger) Commit(id string) (board.Stroke, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.live[id]
	if !ok {
		return board.Stroke{}, false
	}
	delete(l.live, id)
	l.nextSeq++
	s.Seq = l.nextSeq
	l.committed = append(l.committed, *s)
	l.undone = nil
	return s.Clone(), true
}

// Undo removes the highest-seq committed stroke and parks it on the undone
// stack. Author-agnostic: any participant may undo any author's last stroke.
func (l *Ledger) Undo() (board.Stroke, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.committed) == 0 {
		return board.Stroke{}, false
	}
	last := l.committed[len(l.committed)-1]
	l.committed = l.committed[:len(l.committed)-1]
	l.undone = append(l.undone, last)
	return last.Clone(), true
}

// Redo re-commits the most recently undone stroke, keeping its original seq.
// Restoring the original position preserves z-order against strokes drawn
// after the original but before the undo. Seq values are never reused, so
// nextSeq does not move.
func (l *Ledger) Redo() (board.Stroke, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.undone) == 0 {
		return board.Stroke{}, false
	}
	s := l.undone[len(l.undone)-1]
	l.undone = l.undone[:len(l.undone)-1]
	i := sort.Search(len(l.committed), func(i int) bool { return l.committed[i].Seq > s.Seq })
	l.committed = append(l.committed, board.Stroke{})
	copy(l.committed[i+1:], l.committed[i:])
	l.committed[i] = s
	return s.Clone(), true
}

// Clear resets stroke state: committed, undone and live all empty. Presence
// is not touched; clearing a board does not kick anyone out of the room.
// Sequence numbers keep counting so ids from before the clear stay dead.
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.committed = nil
	l.undone = nil
	l.live = make(map[string]*board.Stroke)
}

// Snapshot returns a consistent point-in-time copy of committed history and
// presence for a newly joining participant. Live strokes are deliberately
// absent: a late joiner picks peers up at their next commit.
func (l *Ledger) Snapshot() ([]board.Stroke, []board.User) {
	l.mu.Lock()
	defer l.mu.Unlock()
	strokes := make([]board.Stroke, 0, len(l.committed))
	for _, s := range l.committed {
		strokes = append(strokes, s.Clone())
	}
	users := make([]board.User, 0, len(l.order))
	for _, id := range l.order {
		p := l.presence[id]
		users = append(users, board.User{ID: id, Name: p.Name, Color: p.Color})
	}
	return strokes, users
}

// Empty reports whether the room holds no participants. The hub garbage
// collects empty rooms.
func (l *Ledger) Empty() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.presence) == 0
}

// CanUndo / CanRedo drive history affordances.
func (l *Ledger) CanUndo() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.committed) > 0
}

func (l *Ledger) CanRedo() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.undone) > 0
}

// idTaken reports whether the id belongs to committed history or to an
// undone stroke awaiting a possible redo.
func (l *Ledger) idTaken(id string) bool {
	for _, s := range l.committed {
		if s.ID == id {
			return true
		}
	}
	for _, s := range l.undone {
		if s.ID == id {
			return true
		}
	}
	return false
}
