package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"syncboard/internal/board"
	"syncboard/internal/geom"
)

func TestDecodeRejectsMalformedIntents(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"garbage", `{`},
		{"unknown type", `{"type":"stroke:teleport"}`},
		{"join without room", `{"type":"join","name":"ann"}`},
		{"start without id", `{"type":"stroke:start","tool":"ink"}`},
		{"start with unknown tool", `{"type":"stroke:start","strokeId":"s1","tool":"crayon"}`},
		{"image start without payload", `{"type":"stroke:start","strokeId":"s1","tool":"image"}`},
		{"points without batch", `{"type":"stroke:points","strokeId":"s1"}`},
		{"points out of range", `{"type":"stroke:points","strokeId":"s1","points":[{"x":1.5,"y":0.2}]}`},
		{"end without id", `{"type":"stroke:end"}`},
		{"cursor out of range", `{"type":"cursor:move","x":-0.2,"y":0.5}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.raw))
			assert.Error(t, err)
		})
	}
}

func TestDecodeAcceptsWellFormedIntents(t *testing.T) {
	for _, raw := range []string{
		`{"type":"join","name":"ann","room":"lobby"}`,
		`{"type":"stroke:start","strokeId":"s1","tool":"ink","color":"#222222","size":3}`,
		`{"type":"stroke:points","strokeId":"s1","points":[{"x":0,"y":1}]}`,
		`{"type":"stroke:end","strokeId":"s1"}`,
		`{"type":"undo"}`,
		`{"type":"redo"}`,
		`{"type":"clear"}`,
		`{"type":"cursor:move","x":0.25,"y":0.75}`,
	} {
		_, err := Decode([]byte(raw))
		assert.NoError(t, err, raw)
	}
}

func TestLiveStrokeAttributesAuthor(t *testing.T) {
	m, err := Decode([]byte(`{"type":"stroke:start","strokeId":"s1","tool":"text","color":"#000000","size":18,"text":"hello"}`))
	require.NoError(t, err)

	s := m.LiveStroke("u42")
	assert.Equal(t, "u42", s.AuthorID)
	assert.Equal(t, board.ToolText, s.Tool)
	assert.Equal(t, "hello", s.Text)
	assert.Equal(t, 18.0, s.Style.Size)
	assert.NoError(t, s.Validate())
}

func TestCursorZeroPositionIsOnWire(t *testing.T) {
	// x/y must not use omitempty: a cursor parked at the origin still moves.
	m, err := Decode([]byte(`{"type":"cursor:move","x":0,"y":0}`))
	require.NoError(t, err)
	assert.True(t, (geom.Point{X: m.X, Y: m.Y}).Valid())
}
