package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"syncboard/internal/geom"
)

func TestToolPredicates(t *testing.T) {
	assert.True(t, ToolInk.Streaming())
	assert.True(t, ToolEraser.Streaming())
	assert.True(t, ToolLine.Shape())
	assert.True(t, ToolRectangle.Shape())
	assert.True(t, ToolEllipse.Shape())
	assert.False(t, ToolText.Streaming())
	assert.False(t, ToolImage.Shape())
	assert.False(t, Tool("spray").Valid())
}

func TestValidate(t *testing.T) {
	ok := Stroke{ID: "s1", Tool: ToolInk, Points: []geom.Point{{X: 0.5, Y: 0.5}}}
	assert.NoError(t, ok.Validate())

	assert.Error(t, Stroke{Tool: ToolInk}.Validate(), "missing id")
	assert.Error(t, Stroke{ID: "s1", Tool: Tool("spray")}.Validate(), "unknown tool")
	assert.Error(t, Stroke{ID: "s1", Tool: ToolImage}.Validate(), "image without payload")
	assert.Error(t, Stroke{ID: "s1", Tool: ToolInk,
		Points: []geom.Point{{X: 1.2, Y: 0}}}.Validate(), "unclamped point")
}

func TestCloneDoesNotAlias(t *testing.T) {
	s := Stroke{
		ID: "s1", Tool: ToolImage,
		Image:  &ImageRef{Src: "pic", Width: 10, Height: 10},
		Points: []geom.Point{{X: 0.1, Y: 0.1}},
	}
	c := s.Clone()
	require.Equal(t, s, c)

	c.Points[0].X = 0.9
	c.Image.Src = "other"
	assert.Equal(t, 0.1, s.Points[0].X)
	assert.Equal(t, "pic", s.Image.Src)
}

func TestNewIDIsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewID()
		require.NotEmpty(t, id)
		require.False(t, seen[id])
		seen[id] = true
	}
}
