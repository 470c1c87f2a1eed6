package render

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"
)

// Canvas is the raster drawing surface strokes are replayed onto. The
// background color matters because erasing is subtractive: an eraser stroke
// paints the background back.
type Canvas struct {
	dc         *gg.Context
	w, h       int
	background color.Color
}

// NewCanvas returns a w×h surface cleared to white.
func NewCanvas(w, h int) *Canvas {
	c := &Canvas{dc: gg.NewContext(w, h), w: w, h: h, background: color.White}
	c.Clear()
	return c
}

// Clear wipes the surface back to the background color. Replays always start
// here; structural events never patch pixels in place.
func (c *Canvas) Clear() {
	c.dc.SetColor(c.background)
	c.dc.Clear()
}

// Size returns the surface dimensions in pixels.
func (c *Canvas) Size() (int, int) {
	return c.w, c.h
}

// Image exposes the rendered pixels.
func (c *Canvas) Image() image.Image {
	return c.dc.Image()
}
