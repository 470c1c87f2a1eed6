// Package protocol is the wire catalogue shared by server and client. One
// flat JSON message shape carries every intent and broadcast; unused fields
// stay off the wire via omitempty, the way the board protocol has always
// been framed.
package protocol

import (
	"encoding/json"
	"fmt"

	"syncboard/internal/board"
	"syncboard/internal/geom"
)

type Type string

const (
	// Client → server.
	TypeJoin         Type = "join"
	TypeStrokeStart  Type = "stroke:start"
	TypeStrokePoints Type = "stroke:points"
	TypeStrokeEnd    Type = "stroke:end"
	TypeUndo         Type = "undo"
	TypeRedo         Type = "redo"
	TypeClear        Type = "clear"
	TypeCursorMove   Type = "cursor:move"

	// Server → client.
	TypeInit         Type = "init"
	TypeUserJoined   Type = "user:joined"
	TypeUserLeft     Type = "user:left"
	TypeStrokeCommit Type = "stroke:commit"
	TypeStrokeUndo   Type = "stroke:undo"
	TypeStrokeRedo   Type = "stroke:redo"
	TypeCursor       Type = "cursor"
)

// Message is the wire envelope. Which fields are meaningful depends on Type;
// Validate enforces the per-type requirements for inbound intents.
type Message struct {
	Type Type `json:"type"`

	// join / presence
	Name string `json:"name,omitempty"`
	Room string `json:"room,omitempty"`

	// init
	User    *board.User    `json:"user,omitempty"`
	Users   []board.User   `json:"users,omitempty"`
	Strokes []board.Stroke `json:"strokes,omitempty"`

	// presence + cursor relay
	UserID string `json:"userId,omitempty"`
	Color  string `json:"color,omitempty"`

	// stroke lifecycle
	StrokeID string          `json:"strokeId,omitempty"`
	Tool     board.Tool      `json:"tool,omitempty"`
	Size     float64         `json:"size,omitempty"`
	Text     string          `json:"text,omitempty"`
	Image    *board.ImageRef `json:"image,omitempty"`
	Points   []geom.Point    `json:"points,omitempty"`
	Stroke   *board.Stroke   `json:"stroke,omitempty"`

	// cursor position; no omitempty, an edge position of 0 is legitimate
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Decode parses and validates an inbound client intent.
func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}
	if err := m.Validate(); err != nil {
		return Message{}, err
	}
	return m, nil
}

// Validate checks the fields an intent of this type must carry. Broadcasts
// built by the server are constructed, not validated.
func (m Message) Validate() error {
	switch m.Type {
	case TypeJoin:
		if m.Name == "" || m.Room == "" {
			return fmt.Errorf("join: name and room are required")
		}
	case TypeStrokeStart:
		if m.StrokeID == "" {
			return fmt.Errorf("stroke:start: missing strokeId")
		}
		if !m.Tool.Valid() {
			return fmt.Errorf("stroke:start: unknown tool %q", m.Tool)
		}
		if m.Tool == board.ToolImage && m.Image == nil {
			return fmt.Errorf("stroke:start: image tool without image payload")
		}
	case TypeStrokePoints:
		if m.StrokeID == "" {
			return fmt.Errorf("stroke:points: missing strokeId")
		}
		if len(m.Points) == 0 {
			return fmt.Errorf("stroke:points: empty batch")
		}
		for _, p := range m.Points {
			if !p.Valid() {
				return fmt.Errorf("stroke:points: point (%v, %v) outside unit square", p.X, p.Y)
			}
		}
	case TypeStrokeEnd:
		if m.StrokeID == "" {
			return fmt.Errorf("stroke:end: missing strokeId")
		}
	case TypeCursorMove:
		if !(geom.Point{X: m.X, Y: m.Y}).Valid() {
			return fmt.Errorf("cursor:move: position outside unit square")
		}
	case TypeUndo, TypeRedo, TypeClear:
		// no payload
	case TypeInit, TypeUserJoined, TypeUserLeft, TypeStrokeCommit, TypeStrokeUndo, TypeStrokeRedo, TypeCursor:
		// server-originated; nothing to check on the inbound path
	default:
		return fmt.Errorf("unknown message type %q", m.Type)
	}
	return nil
}

// LiveStroke builds the stroke a stroke:start intent describes, attributed
// to the sending participant.
func (m Message) LiveStroke(authorID string) board.Stroke {
	return board.Stroke{
		ID:       m.StrokeID,
		AuthorID: authorID,
		Tool:     m.Tool,
		Style:    board.Style{Color: m.Color, Size: m.Size},
		Text:     m.Text,
		Image:    m.Image,
		Points:   m.Points,
	}
}
