// Package server is the authoritative side of the sync engine: a hub of
// rooms, each owning one ledger, and a session per websocket connection
// translating wire intents into ledger mutations and fan-out.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"syncboard/internal/board"
	"syncboard/internal/protocol"
	"syncboard/internal/room"
)

const defaultSendBuffer = 64

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The board is joined by link on a trusted LAN; no origin policy here.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Hub owns all rooms. Rooms are created on first join and garbage collected
// when the last participant leaves; their ledgers are fully independent.
type Hub struct {
	log        *slog.Logger
	sendBuffer int

	mu    sync.Mutex
	rooms map[string]*roomState
}

type roomState struct {
	ledger   *room.Ledger
	sessions map[string]*Session // participant id → session
	joins    uint64              // monotone join counter for color assignment
}

// NewHub creates an empty hub.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{log: log, sendBuffer: defaultSendBuffer, rooms: make(map[string]*roomState)}
}

// SetSendBuffer overrides the per-connection queue length for new sessions.
func (h *Hub) SetSendBuffer(n int) {
	if n > 0 {
		h.sendBuffer = n
	}
}

// Routes attaches the hub's HTTP surface to a router.
func (h *Hub) Routes(r *mux.Router) {
	r.HandleFunc("/ws", h.handleWS)
	r.Methods(http.MethodGet).Path("/healthz").HandlerFunc(h.handleHealthz)
	r.Methods(http.MethodGet).Path("/rooms/{room}/export").HandlerFunc(h.handleExport)
}

// handleWS upgrades the connection and runs the session until it drops.
func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	s := newSession(h, conn)
	go s.writeLoop()
	s.readLoop()
}

func (h *Hub) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleExport serves the room's committed history as a portable document,
// points in normalized form. Unknown rooms export as empty documents.
func (h *Hub) handleExport(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["room"]
	doc := board.Document{Strokes: []board.Stroke{}}

	h.mu.Lock()
	rs := h.rooms[name]
	h.mu.Unlock()
	if rs != nil {
		doc.Strokes, _ = rs.ledger.Snapshot()
	}

	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		h.log.Warn("export encode failed", "room", name, "err", err)
	}
}

// join allocates a participant in the room and enqueues the snapshot reply.
// Registration, snapshot, and the init enqueue all happen under h.mu, the
// same lock broadcast enqueues under. That ordering is load-bearing: a
// commit fanned out after the snapshot was taken must land in this session's
// queue after the init frame, otherwise the wholesale init replace would
// silently drop it on this client.
func (h *Hub) join(s *Session, name, roomName string) {
	h.mu.Lock()
	rs, ok := h.rooms[roomName]
	if !ok {
		rs = &roomState{ledger: room.NewLedger(), sessions: make(map[string]*Session)}
		h.rooms[roomName] = rs
		h.log.Info("room created", "room", roomName)
	}
	user := board.User{ID: uuid.NewString(), Name: name, Color: colorFor(rs.joins)}
	rs.joins++
	rs.ledger.Join(user.ID, room.Presence{Name: user.Name, Color: user.Color})
	strokes, users := rs.ledger.Snapshot()
	s.user = user
	s.roomName = roomName
	rs.sessions[user.ID] = s
	s.enqueue(protocol.Message{
		Type:    protocol.TypeInit,
		User:    &user,
		Users:   users,
		Strokes: strokes,
	}, false)
	h.mu.Unlock()

	h.broadcast(roomName, protocol.Message{Type: protocol.TypeUserJoined, User: &user}, user.ID, false)
	h.log.Info("user joined", "room", roomName, "user", user.ID, "name", name)
}

// leave tears down the participant: presence and live strokes go, committed
// history stays, the rest of the room hears user:left.
func (h *Hub) leave(s *Session) {
	if s.roomName == "" {
		return
	}
	h.mu.Lock()
	rs := h.rooms[s.roomName]
	if rs != nil {
		delete(rs.sessions, s.user.ID)
	}
	h.mu.Unlock()
	if rs == nil {
		return
	}

	rs.ledger.Leave(s.user.ID)
	h.broadcast(s.roomName, protocol.Message{Type: protocol.TypeUserLeft, UserID: s.user.ID}, s.user.ID, false)
	h.log.Info("user left", "room", s.roomName, "user", s.user.ID)

	if rs.ledger.Empty() {
		h.mu.Lock()
		if cur := h.rooms[s.roomName]; cur == rs && len(rs.sessions) == 0 {
			delete(h.rooms, s.roomName)
			h.log.Info("room closed", "room", s.roomName)
		}
		h.mu.Unlock()
	}
}

// ledgerFor returns the room's ledger, or nil when the room is gone.
func (h *Hub) ledgerFor(roomName string) *room.Ledger {
	h.mu.Lock()
	defer h.mu.Unlock()
	if rs := h.rooms[roomName]; rs != nil {
		return rs.ledger
	}
	return nil
}

// broadcast fans a message out to the room. except skips one participant
// (usually the sender). Droppable frames (cursors) are discarded when a
// receiver's queue is full; authoritative frames disconnect receivers that
// cannot keep up, because a client that misses ledger traffic can only be
// repaired by a fresh snapshot.
//
// Enqueueing stays under h.mu so fan-out serializes against join's
// snapshot-then-init sequence; enqueue never blocks, so holding the lock
// across it is safe.
func (h *Hub) broadcast(roomName string, msg protocol.Message, except string, droppable bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rs := h.rooms[roomName]
	if rs == nil {
		return
	}
	for id, sess := range rs.sessions {
		if id == except {
			continue
		}
		sess.enqueue(msg, droppable)
	}
}
