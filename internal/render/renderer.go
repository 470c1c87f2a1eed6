// Package render turns committed and live strokes into pixels. Every client
// must converge on identical output for the same seq-ordered stroke list, so
// everything here is deterministic: fixed reference width, fixed font, fixed
// dash pattern, no dependence on arrival order.
package render

import (
	"fmt"
	"math"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"

	"syncboard/internal/board"
	"syncboard/internal/geom"
)

// DefaultRefWidth is the canvas width at which style.Size maps 1:1 to pixels.
// Strokes rendered on wider or narrower canvases scale proportionally.
const DefaultRefWidth = 1280.0

// fontSizePerBrushUnit maps style.Size to a glyph height for the text tool.
const fontSizePerBrushUnit = 8.0

var dashPattern = []float64{6, 4}

// Renderer draws strokes onto a Canvas, dispatching over the closed tool set.
type Renderer struct {
	RefWidth float64
	images   *ImageCache

	fontMu sync.Mutex
	fonts  map[int]font.Face
	parsed *sfnt.Font
}

// NewRenderer builds a renderer. src may be nil when image strokes are not
// expected; they then render as no-ops.
func NewRenderer(src ImageSource) *Renderer {
	return &Renderer{
		RefWidth: DefaultRefWidth,
		images:   NewImageCache(src),
		fonts:    make(map[int]font.Face),
	}
}

// Draw renders a committed stroke. Committed erases are continuous
// subtractive strokes with no dash affordance.
func (r *Renderer) Draw(c *Canvas, s board.Stroke) error {
	return r.draw(c, s, false)
}

// DrawLive renders an in-progress stroke. Only the eraser differs from the
// committed form: it additionally shows a dashed outline so the erase is
// visible while it happens.
func (r *Renderer) DrawLive(c *Canvas, s board.Stroke) error {
	return r.draw(c, s, true)
}

// DrawSegment paints one new ink/eraser segment. The incremental live path
// for streaming tools: only the delta is painted, never a full redraw.
func (r *Renderer) DrawSegment(c *Canvas, s board.Stroke, from, to geom.Point) {
	if !s.Tool.Streaming() {
		return
	}
	w, h := float64(c.w), float64(c.h)
	r.strokeStyle(c, s)
	x1, y1 := from.Scale(w, h)
	x2, y2 := to.Scale(w, h)
	c.dc.DrawLine(x1, y1, x2, y2)
	c.dc.Stroke()
}

func (r *Renderer) draw(c *Canvas, s board.Stroke, live bool) error {
	switch s.Tool {
	case board.ToolInk:
		r.drawPath(c, s)
	case board.ToolEraser:
		r.drawPath(c, s)
		if live {
			r.drawEraserOutline(c, s)
		}
	case board.ToolLine:
		r.drawLine(c, s)
	case board.ToolRectangle, board.ToolEllipse:
		r.drawShape(c, s)
	case board.ToolText:
		r.drawText(c, s)
	case board.ToolImage:
		r.drawImage(c, s)
	default:
		return fmt.Errorf("render: unknown tool %q", s.Tool)
	}
	return nil
}

// scale converts a capture-time pixel measure to this canvas.
func (r *Renderer) scale(c *Canvas) float64 {
	return float64(c.w) / r.RefWidth
}

func (r *Renderer) lineWidth(c *Canvas, s board.Stroke) float64 {
	size := s.Style.Size
	if size <= 0 {
		size = 2
	}
	return size * r.scale(c)
}

// strokeStyle configures color, width, and the round caps/joins that make
// consecutive ink segments meet seamlessly.
func (r *Renderer) strokeStyle(c *Canvas, s board.Stroke) {
	if s.Tool == board.ToolEraser {
		c.dc.SetColor(c.background)
	} else {
		c.dc.SetHexColor(colorOf(s))
	}
	c.dc.SetLineWidth(r.lineWidth(c, s))
	c.dc.SetLineCapRound()
	c.dc.SetLineJoinRound()
}

func (r *Renderer) drawPath(c *Canvas, s board.Stroke) {
	if len(s.Points) == 0 {
		return
	}
	w, h := float64(c.w), float64(c.h)
	r.strokeStyle(c, s)
	if len(s.Points) == 1 {
		// A tap leaves a dot.
		x, y := s.Points[0].Scale(w, h)
		c.dc.DrawCircle(x, y, r.lineWidth(c, s)/2)
		c.dc.Fill()
		return
	}
	x, y := s.Points[0].Scale(w, h)
	c.dc.MoveTo(x, y)
	for _, p := range s.Points[1:] {
		x, y = p.Scale(w, h)
		c.dc.LineTo(x, y)
	}
	c.dc.Stroke()
}

// drawEraserOutline is the live-preview affordance only: a thin dashed trace
// of the erase path. It never appears in committed replay.
func (r *Renderer) drawEraserOutline(c *Canvas, s board.Stroke) {
	if len(s.Points) < 2 {
		return
	}
	w, h := float64(c.w), float64(c.h)
	c.dc.SetHexColor("#888888")
	c.dc.SetLineWidth(1)
	c.dc.SetDash(dashPattern...)
	x, y := s.Points[0].Scale(w, h)
	c.dc.MoveTo(x, y)
	for _, p := range s.Points[1:] {
		x, y = p.Scale(w, h)
		c.dc.LineTo(x, y)
	}
	c.dc.Stroke()
	c.dc.SetDash()
}

func (r *Renderer) drawLine(c *Canvas, s board.Stroke) {
	if len(s.Points) < 2 {
		return
	}
	w, h := float64(c.w), float64(c.h)
	r.strokeStyle(c, s)
	x1, y1 := s.Points[0].Scale(w, h)
	x2, y2 := s.Points[1].Scale(w, h)
	c.dc.DrawLine(x1, y1, x2, y2)
	c.dc.Stroke()
}

// drawShape strokes the outline of the bounding box spanned by the two
// points. Min/max per axis, so drag direction never matters.
func (r *Renderer) drawShape(c *Canvas, s board.Stroke) {
	if len(s.Points) < 2 {
		return
	}
	w, h := float64(c.w), float64(c.h)
	x1, y1 := s.Points[0].Scale(w, h)
	x2, y2 := s.Points[1].Scale(w, h)
	minX, maxX := math.Min(x1, x2), math.Max(x1, x2)
	minY, maxY := math.Min(y1, y2), math.Max(y1, y2)

	r.strokeStyle(c, s)
	switch s.Tool {
	case board.ToolRectangle:
		c.dc.DrawRectangle(minX, minY, maxX-minX, maxY-minY)
	case board.ToolEllipse:
		c.dc.DrawEllipse((minX+maxX)/2, (minY+maxY)/2, (maxX-minX)/2, (maxY-minY)/2)
	}
	c.dc.Stroke()
}

func (r *Renderer) drawText(c *Canvas, s board.Stroke) {
	if len(s.Points) == 0 || s.Text == "" {
		return
	}
	size := s.Style.Size
	if size <= 0 {
		size = 2
	}
	face, err := r.face(size * fontSizePerBrushUnit * r.scale(c))
	if err != nil {
		return
	}
	w, h := float64(c.w), float64(c.h)
	x, y := s.Points[0].Scale(w, h)
	c.dc.SetFontFace(face)
	c.dc.SetHexColor(colorOf(s))
	// ax=0, ay=1 anchors the glyph box at its top-left corner.
	c.dc.DrawStringAnchored(s.Text, x, y, 0, 1)
}

// drawImage composites the decoded bitmap at its stored intrinsic display
// size, anchored at the stroke's single point. A handle that fails to
// resolve renders nothing, but the stroke itself stays in the ledger so a
// later replay can retry the decode.
func (r *Renderer) drawImage(c *Canvas, s board.Stroke) {
	if len(s.Points) == 0 || s.Image == nil {
		return
	}
	img, ok := r.images.Get(s.Image.Src)
	if !ok {
		return
	}
	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return
	}
	k := r.scale(c)
	w, h := float64(c.w), float64(c.h)
	x, y := s.Points[0].Scale(w, h)
	sx := s.Image.Width * k / float64(bounds.Dx())
	sy := s.Image.Height * k / float64(bounds.Dy())

	c.dc.Push()
	c.dc.Translate(x, y)
	c.dc.Scale(sx, sy)
	c.dc.DrawImage(img, 0, 0)
	c.dc.Pop()
}

// face returns a cached font face for the given pixel size.
func (r *Renderer) face(size float64) (font.Face, error) {
	key := int(math.Round(size))
	if key < 4 {
		key = 4
	}
	r.fontMu.Lock()
	defer r.fontMu.Unlock()
	if f, ok := r.fonts[key]; ok {
		return f, nil
	}
	if r.parsed == nil {
		f, err := opentype.Parse(goregular.TTF)
		if err != nil {
			return nil, fmt.Errorf("parse font: %w", err)
		}
		r.parsed = f
	}
	face, err := opentype.NewFace(r.parsed, &opentype.FaceOptions{
		Size:    float64(key),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("build font face: %w", err)
	}
	r.fonts[key] = face
	return face, nil
}

func colorOf(s board.Stroke) string {
	if s.Style.Color == "" {
		return "#000000"
	}
	return s.Style.Color
}
