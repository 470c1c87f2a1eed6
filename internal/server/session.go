package server

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"syncboard/internal/board"
	"syncboard/internal/protocol"
)

// sessionState is the per-connection lifecycle. Intents other than join are
// only honored in stateJoined; everything else is dropped.
type sessionState int

const (
	stateConnecting sessionState = iota
	stateJoined
	stateDisconnected
)

// Session is the per-connection gateway between wire intents and the room
// ledger. The read loop is the only goroutine touching session state; the
// write loop drains the send queue.
type Session struct {
	hub   *Hub
	conn  *websocket.Conn
	log   *slog.Logger
	state sessionState

	user     board.User
	roomName string

	send      chan protocol.Message
	done      chan struct{}
	closeOnce sync.Once
}

func newSession(h *Hub, conn *websocket.Conn) *Session {
	return &Session{
		hub:  h,
		conn: conn,
		log:  h.log.With("remote", conn.RemoteAddr().String()),
		send: make(chan protocol.Message, h.sendBuffer),
		done: make(chan struct{}),
	}
}

// enqueue queues an outbound frame. Cursor relays are droppable: when the
// queue is full they vanish, which is their contract. Authoritative frames
// that do not fit kill the connection instead; the client reconnects into a
// fresh snapshot rather than silently diverging.
func (s *Session) enqueue(msg protocol.Message, droppable bool) {
	select {
	case s.send <- msg:
	default:
		if droppable {
			return
		}
		s.log.Warn("slow consumer, dropping connection", "user", s.user.ID)
		s.close()
	}
}

func (s *Session) close() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *Session) writeLoop() {
	defer s.conn.Close()
	for {
		select {
		case <-s.done:
			return
		case msg := <-s.send:
			if err := s.conn.WriteJSON(msg); err != nil {
				s.log.Debug("write failed", "err", err)
				s.close()
				return
			}
		}
	}
}

// readLoop pumps intents until the transport drops, then runs teardown.
// Transport closure is how disconnects are detected; there is no leave
// message.
func (s *Session) readLoop() {
	defer func() {
		s.state = stateDisconnected
		s.close()
		s.hub.leave(s)
		_ = s.conn.Close()
	}()

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.log.Debug("connection closed", "err", err)
			return
		}
		msg, err := protocol.Decode(data)
		if err != nil {
			// Malformed intents are dropped, never fatal, and never allowed
			// to touch seq ordering.
			s.log.Debug("dropping malformed intent", "err", err)
			continue
		}
		s.handle(msg)
	}
}

func (s *Session) handle(msg protocol.Message) {
	if s.state == stateConnecting {
		if msg.Type == protocol.TypeJoin {
			s.hub.join(s, msg.Name, msg.Room)
			s.state = stateJoined
		}
		return
	}
	if s.state != stateJoined {
		return
	}

	ledger := s.hub.ledgerFor(s.roomName)
	if ledger == nil {
		return
	}

	switch msg.Type {
	case protocol.TypeStrokeStart:
		stroke := msg.LiveStroke(s.user.ID)
		if err := stroke.Validate(); err != nil {
			s.log.Debug("dropping stroke:start", "err", err)
			return
		}
		if !ledger.OpenLive(stroke) {
			s.log.Debug("dropping stroke:start for taken id", "stroke", msg.StrokeID)
			return
		}
		relay := msg
		relay.UserID = s.user.ID
		s.hub.broadcast(s.roomName, relay, s.user.ID, false)

	case protocol.TypeStrokePoints:
		// Buffered server-side for the eventual commit, fanned out for live
		// preview, never persisted in the ledger itself.
		if !ledger.AppendLive(msg.StrokeID, msg.Points) {
			return // points before start, or after commit: dropped
		}
		relay := msg
		relay.UserID = s.user.ID
		s.hub.broadcast(s.roomName, relay, s.user.ID, false)

	case protocol.TypeStrokeEnd:
		stroke, ok := ledger.Commit(msg.StrokeID)
		if !ok {
			return // unknown id is a no-op
		}
		// Sender included: the commit carries the authoritative seq, and the
		// reconciler's duplicate guard makes the echo idempotent.
		s.hub.broadcast(s.roomName, protocol.Message{Type: protocol.TypeStrokeCommit, Stroke: &stroke}, "", false)

	case protocol.TypeUndo:
		if undone, ok := ledger.Undo(); ok {
			s.hub.broadcast(s.roomName, protocol.Message{Type: protocol.TypeStrokeUndo, StrokeID: undone.ID}, "", false)
		}

	case protocol.TypeRedo:
		if redone, ok := ledger.Redo(); ok {
			s.hub.broadcast(s.roomName, protocol.Message{Type: protocol.TypeStrokeRedo, Stroke: &redone}, "", false)
		}

	case protocol.TypeClear:
		ledger.Clear()
		s.hub.broadcast(s.roomName, protocol.Message{Type: protocol.TypeClear}, "", false)

	case protocol.TypeCursorMove:
		s.hub.broadcast(s.roomName, protocol.Message{
			Type:   protocol.TypeCursor,
			UserID: s.user.ID,
			Name:   s.user.Name,
			Color:  s.user.Color,
			X:      msg.X,
			Y:      msg.Y,
		}, s.user.ID, true)

	case protocol.TypeJoin:
		// already joined; repeated joins are dropped
	}
}
