package export

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"syncboard/internal/board"
	"syncboard/internal/geom"
)

func sampleDoc() board.Document {
	return board.Document{Strokes: []board.Stroke{
		{
			ID: "s1", AuthorID: "u1", Tool: board.ToolInk,
			Style:  board.Style{Color: "#e74c3c", Size: 3},
			Points: []geom.Point{{X: 0.1, Y: 0.2}, {X: 0.5, Y: 0.5}, {X: 0.9, Y: 0.1}},
			Seq:    1,
		},
		{
			ID: "s2", AuthorID: "u2", Tool: board.ToolText,
			Style: board.Style{Color: "#000000", Size: 4}, Text: "note",
			Points: []geom.Point{{X: 0.3, Y: 0.7}},
			Seq:    2,
		},
	}}
}

func TestJSONRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleDoc()))

	got, err := ReadJSON(&buf)
	require.NoError(t, err)
	assert.Equal(t, sampleDoc(), got, "normalized points survive the round-trip untouched")
}

func TestReadJSONRejectsInvalidStrokes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{{`},
		{"unknown tool", `{"strokes":[{"id":"x","tool":"spray","points":[]}]}`},
		{"unclamped point", `{"strokes":[{"id":"x","tool":"ink","points":[{"x":2,"y":0}]}]}`},
		{"missing id", `{"strokes":[{"tool":"ink","points":[]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadJSON(bytes.NewReader([]byte(tt.raw)))
			assert.Error(t, err)
		})
	}
}

func TestWritePDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.pdf")
	require.NoError(t, WritePDF(path, sampleDoc()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
