package client

import (
	"syncboard/internal/board"
	"syncboard/internal/geom"
	"syncboard/internal/protocol"
)

// Local input. Coordinates arrive in device pixels relative to the canvas
// and are normalized at this boundary, so nothing past here ever sees an
// unclamped point.
//
// Streaming tools (ink, eraser) paint ahead optimistically: the author never
// waits for a server round-trip to see their own ink. Shape tools keep two
// point slots and re-composite a preview on every move. Text commits at
// placement; image allows drag-to-reposition before release.

// PointerDown starts a stroke with the currently selected tool. Text and
// image are placement tools with their own entry points; a bare pointer
// press while one is selected starts nothing.
func (r *Reconciler) PointerDown(px, py float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != nil {
		return
	}
	if !r.tool.Streaming() && !r.tool.Shape() {
		return
	}
	w, h := r.canvas.Size()
	p := geom.Normalize(px, py, float64(w), float64(h))

	s := board.Stroke{
		ID:       board.NewID(),
		AuthorID: r.self.ID,
		Tool:     r.tool,
		Style:    r.style,
		Points:   []geom.Point{p},
	}
	if s.Tool.Shape() {
		s.Points = []geom.Point{p, p}
	}
	r.current = &s
	r.live[s.ID] = &s

	r.send(protocol.Message{
		Type:     protocol.TypeStrokeStart,
		StrokeID: s.ID,
		Tool:     s.Tool,
		Color:    s.Style.Color,
		Size:     s.Style.Size,
	})
	r.send(protocol.Message{Type: protocol.TypeStrokePoints, StrokeID: s.ID, Points: s.Points})
}

// PointerMove extends the current stroke.
func (r *Reconciler) PointerMove(px, py float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return
	}
	w, h := r.canvas.Size()
	p := geom.Normalize(px, py, float64(w), float64(h))
	s := r.current

	switch {
	case s.Tool.Streaming():
		prev := s.Points[len(s.Points)-1]
		s.Points = append(s.Points, p)
		r.rend.DrawSegment(r.canvas, *s, prev, p)
		r.send(protocol.Message{Type: protocol.TypeStrokePoints, StrokeID: s.ID, Points: []geom.Point{p}})
	case s.Tool.Shape():
		s.Points[1] = p
		r.replay()
		r.send(protocol.Message{Type: protocol.TypeStrokePoints, StrokeID: s.ID, Points: s.Points})
	case s.Tool == board.ToolImage:
		// drag-to-reposition before release
		s.Points[0] = p
		r.replay()
		r.send(protocol.Message{Type: protocol.TypeStrokePoints, StrokeID: s.ID, Points: s.Points})
	}
}

// PointerUp requests the commit. The live entry stays painted until the
// authoritative stroke:commit returns.
func (r *Reconciler) PointerUp() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return
	}
	id := r.current.ID
	r.current = nil
	r.send(protocol.Message{Type: protocol.TypeStrokeEnd, StrokeID: id})
}

// Cancel abandons the in-progress stroke without committing, for pointer
// sequences that end abnormally. Silent: no ledger trace, no intent.
func (r *Reconciler) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return
	}
	delete(r.live, r.current.ID)
	r.current = nil
	r.replay()
}

// PlaceText captures a single point and runs the whole start/points/end
// sequence at once; text has no dragging phase.
func (r *Reconciler) PlaceText(px, py float64, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if text == "" {
		return
	}
	w, h := r.canvas.Size()
	p := geom.Normalize(px, py, float64(w), float64(h))
	s := board.Stroke{
		ID:       board.NewID(),
		AuthorID: r.self.ID,
		Tool:     board.ToolText,
		Style:    r.style,
		Text:     text,
		Points:   []geom.Point{p},
	}
	r.live[s.ID] = &s
	r.replay()

	r.send(protocol.Message{
		Type:     protocol.TypeStrokeStart,
		StrokeID: s.ID,
		Tool:     board.ToolText,
		Color:    s.Style.Color,
		Size:     s.Style.Size,
		Text:     text,
	})
	r.send(protocol.Message{Type: protocol.TypeStrokePoints, StrokeID: s.ID, Points: s.Points})
	r.send(protocol.Message{Type: protocol.TypeStrokeEnd, StrokeID: s.ID})
}

// PlaceImage opens an image stroke at the given position; the pointer may
// drag it around until PointerUp commits the placement.
func (r *Reconciler) PlaceImage(px, py float64, ref board.ImageRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != nil {
		return
	}
	w, h := r.canvas.Size()
	p := geom.Normalize(px, py, float64(w), float64(h))
	s := board.Stroke{
		ID:       board.NewID(),
		AuthorID: r.self.ID,
		Tool:     board.ToolImage,
		Style:    r.style,
		Image:    &ref,
		Points:   []geom.Point{p},
	}
	r.current = &s
	r.live[s.ID] = &s
	r.replay()

	r.send(protocol.Message{
		Type:     protocol.TypeStrokeStart,
		StrokeID: s.ID,
		Tool:     board.ToolImage,
		Color:    s.Style.Color,
		Size:     s.Style.Size,
		Image:    &ref,
	})
	r.send(protocol.Message{Type: protocol.TypeStrokePoints, StrokeID: s.ID, Points: s.Points})
}
