package render

import (
	"fmt"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"syncboard/internal/board"
	"syncboard/internal/geom"
)

func ink(id string, pts ...geom.Point) board.Stroke {
	return board.Stroke{
		ID: id, AuthorID: "a", Tool: board.ToolInk,
		Style: board.Style{Color: "#ff0000", Size: 4}, Points: pts,
	}
}

func pixels(c *Canvas) []byte {
	img := c.Image().(*image.RGBA)
	out := make([]byte, len(img.Pix))
	copy(out, img.Pix)
	return out
}

func TestReplayIsDeterministic(t *testing.T) {
	strokes := []board.Stroke{
		ink("s1", geom.Point{X: 0.1, Y: 0.1}, geom.Point{X: 0.5, Y: 0.5}, geom.Point{X: 0.9, Y: 0.2}),
		{ID: "s2", Tool: board.ToolRectangle, Style: board.Style{Color: "#0000ff", Size: 2},
			Points: []geom.Point{{X: 0.2, Y: 0.2}, {X: 0.8, Y: 0.8}}},
		{ID: "s3", Tool: board.ToolText, Style: board.Style{Color: "#000000", Size: 3},
			Text: "hello", Points: []geom.Point{{X: 0.3, Y: 0.4}}},
	}

	a, b := NewCanvas(640, 480), NewCanvas(640, 480)
	ra, rb := NewRenderer(nil), NewRenderer(nil)
	for _, s := range strokes {
		require.NoError(t, ra.Draw(a, s))
		require.NoError(t, rb.Draw(b, s))
	}
	assert.Equal(t, pixels(a), pixels(b), "same stroke list must produce identical pixels")
}

func TestShapeDragDirectionIrrelevant(t *testing.T) {
	fwd := board.Stroke{ID: "f", Tool: board.ToolEllipse, Style: board.Style{Color: "#00aa00", Size: 2},
		Points: []geom.Point{{X: 0.2, Y: 0.3}, {X: 0.7, Y: 0.8}}}
	rev := fwd
	rev.Points = []geom.Point{{X: 0.7, Y: 0.8}, {X: 0.2, Y: 0.3}}

	a, b := NewCanvas(400, 300), NewCanvas(400, 300)
	r := NewRenderer(nil)
	require.NoError(t, r.Draw(a, fwd))
	require.NoError(t, r.Draw(b, rev))
	assert.Equal(t, pixels(a), pixels(b))
}

func TestEraserSubtractsToBackground(t *testing.T) {
	c := NewCanvas(200, 200)
	r := NewRenderer(nil)
	line := []geom.Point{{X: 0.1, Y: 0.5}, {X: 0.9, Y: 0.5}}

	require.NoError(t, r.Draw(c, ink("s1", line...)))
	mid := c.Image().(*image.RGBA).RGBAAt(100, 100)
	require.NotEqual(t, color.RGBA{255, 255, 255, 255}, mid, "ink must have painted the midpoint")

	erase := board.Stroke{ID: "e1", Tool: board.ToolEraser, Style: board.Style{Size: 10}, Points: line}
	require.NoError(t, r.Draw(c, erase))
	mid = c.Image().(*image.RGBA).RGBAAt(100, 100)
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, mid, "eraser paints the background back")
}

func TestCommittedEraserHasNoDash(t *testing.T) {
	// The dashed trace is a live affordance; committed replay of the same
	// eraser stroke on a blank canvas must leave the canvas blank.
	c := NewCanvas(200, 200)
	r := NewRenderer(nil)
	erase := board.Stroke{ID: "e1", Tool: board.ToolEraser, Style: board.Style{Size: 10},
		Points: []geom.Point{{X: 0.1, Y: 0.5}, {X: 0.9, Y: 0.5}}}
	require.NoError(t, r.Draw(c, erase))
	assert.Equal(t, pixels(NewCanvas(200, 200)), pixels(c))

	live := NewCanvas(200, 200)
	require.NoError(t, r.DrawLive(live, erase))
	assert.NotEqual(t, pixels(NewCanvas(200, 200)), pixels(live), "live erase shows the dashed outline")
}

func TestUnknownToolIsAnError(t *testing.T) {
	c := NewCanvas(100, 100)
	r := NewRenderer(nil)
	err := r.Draw(c, board.Stroke{ID: "x", Tool: board.Tool("spray")})
	assert.Error(t, err)
}

type countingSource struct {
	resolves int
	fail     bool
}

func (s *countingSource) Resolve(string) (image.Image, error) {
	s.resolves++
	if s.fail {
		return nil, fmt.Errorf("decode failed")
	}
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = 0x7f
	}
	return img, nil
}

func TestImageCacheDecodesOnce(t *testing.T) {
	src := &countingSource{}
	r := NewRenderer(src)
	c := NewCanvas(300, 300)
	s := board.Stroke{ID: "i1", Tool: board.ToolImage,
		Image:  &board.ImageRef{Src: "pic-1", Width: 64, Height: 64},
		Points: []geom.Point{{X: 0.1, Y: 0.1}}}

	require.NoError(t, r.Draw(c, s))
	require.NoError(t, r.Draw(c, s))
	require.NoError(t, r.Draw(c, s))
	assert.Equal(t, 1, src.resolves, "repeated replays must not re-decode")
}

func TestImageDecodeFailureIsRetriable(t *testing.T) {
	src := &countingSource{fail: true}
	r := NewRenderer(src)
	c := NewCanvas(300, 300)
	s := board.Stroke{ID: "i1", Tool: board.ToolImage,
		Image:  &board.ImageRef{Src: "pic-1", Width: 64, Height: 64},
		Points: []geom.Point{{X: 0.1, Y: 0.1}}}

	blank := pixels(c)
	require.NoError(t, r.Draw(c, s), "a bad handle renders as a visual no-op, not an error")
	assert.Equal(t, blank, pixels(c))

	src.fail = false
	require.NoError(t, r.Draw(c, s))
	assert.Equal(t, 2, src.resolves, "failure was not cached, decode retried")
	assert.NotEqual(t, blank, pixels(c))
}

func TestStrokeWidthScalesWithCanvas(t *testing.T) {
	// A size-4 stroke on a RefWidth canvas paints 4px wide; the same stroke
	// on a half-width canvas covers proportionally less.
	wide := NewCanvas(int(DefaultRefWidth), 720)
	narrow := NewCanvas(int(DefaultRefWidth)/2, 360)
	r := NewRenderer(nil)
	s := ink("s1", geom.Point{X: 0.25, Y: 0.5}, geom.Point{X: 0.75, Y: 0.5})
	require.NoError(t, r.Draw(wide, s))
	require.NoError(t, r.Draw(narrow, s))

	count := func(c *Canvas) int {
		img := c.Image().(*image.RGBA)
		n := 0
		b := img.Bounds()
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				if img.RGBAAt(x, y) != (color.RGBA{255, 255, 255, 255}) {
					n++
				}
			}
		}
		return n
	}
	assert.Greater(t, count(wide), 2*count(narrow), "painted area shrinks faster than linearly on the smaller canvas")
}
