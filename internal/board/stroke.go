package board

import (
	"fmt"

	"github.com/google/uuid"

	"syncboard/internal/geom"
)

// Tool is the closed set of drawable variants. The renderer dispatches over
// it exhaustively and rejects anything outside the set.
type Tool string

const (
	ToolInk       Tool = "ink"
	ToolEraser    Tool = "eraser"
	ToolLine      Tool = "line"
	ToolRectangle Tool = "rectangle"
	ToolEllipse   Tool = "ellipse"
	ToolText      Tool = "text"
	ToolImage     Tool = "image"
)

// Valid reports whether t is a known tool.
func (t Tool) Valid() bool {
	switch t {
	case ToolInk, ToolEraser, ToolLine, ToolRectangle, ToolEllipse, ToolText, ToolImage:
		return true
	}
	return false
}

// Streaming tools accumulate points continuously while the pointer is down.
func (t Tool) Streaming() bool {
	return t == ToolInk || t == ToolEraser
}

// Shape tools hold exactly two points: the anchor and the live end.
func (t Tool) Shape() bool {
	return t == ToolLine || t == ToolRectangle || t == ToolEllipse
}

// Style is the captured stroke appearance. Size is the nominal width in
// client pixels at capture time; the renderer rescales it against the current
// canvas, so unlike point geometry it is not normalized.
type Style struct {
	Color string  `json:"color"`
	Size  float64 `json:"size"`
}

// ImageRef is an opaque content handle plus the intrinsic display dimensions
// captured when the image was placed. Decoding happens at render time.
type ImageRef struct {
	Src    string  `json:"src"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Stroke is the atomic unit of room history. Seq is zero until the ledger
// commits the stroke; committed order is Seq ascending.
type Stroke struct {
	ID       string       `json:"id"`
	AuthorID string       `json:"authorId"`
	Tool     Tool         `json:"tool"`
	Style    Style        `json:"style"`
	Text     string       `json:"text,omitempty"`
	Image    *ImageRef    `json:"image,omitempty"`
	Points   []geom.Point `json:"points"`
	Seq      uint64       `json:"seq,omitempty"`
}

// NewID returns a stroke identifier unique within the room for the stroke's
// lifetime. Authoring clients call this, not the server.
func NewID() string {
	return uuid.NewString()
}

// Clone returns a deep copy so ledger internals never alias caller slices.
func (s Stroke) Clone() Stroke {
	c := s
	c.Points = make([]geom.Point, len(s.Points))
	copy(c.Points, s.Points)
	if s.Image != nil {
		img := *s.Image
		c.Image = &img
	}
	return c
}

// Validate checks the invariants a stroke must satisfy before it is allowed
// anywhere near the ledger.
func (s Stroke) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("stroke has no id")
	}
	if !s.Tool.Valid() {
		return fmt.Errorf("unknown tool %q", s.Tool)
	}
	for _, p := range s.Points {
		if !p.Valid() {
			return fmt.Errorf("stroke %s: point (%v, %v) outside unit square", s.ID, p.X, p.Y)
		}
	}
	if s.Tool == ToolImage && s.Image == nil {
		return fmt.Errorf("stroke %s: image tool without image payload", s.ID)
	}
	return nil
}

// User is a room participant as seen by everyone else.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Cursor is an ephemeral pointer position. It is never part of room history;
// each update supersedes the previous one.
type Cursor struct {
	UserID string  `json:"userId"`
	Name   string  `json:"name"`
	Color  string  `json:"color"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// Document is the portable serialization of a board: committed strokes with
// points left in normalized form, suitable for export/import round-trips.
type Document struct {
	Strokes []Stroke `json:"strokes"`
}
