package client

import (
	"context"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"syncboard/internal/board"
	"syncboard/internal/geom"
	"syncboard/internal/protocol"
	"syncboard/internal/render"
)

func newTestReconciler(emit EmitFunc) *Reconciler {
	return New(render.NewCanvas(320, 240), render.NewRenderer(nil), emit, nil)
}

func pixelsOf(r *Reconciler) []byte {
	img := r.Canvas().Image().(*image.RGBA)
	out := make([]byte, len(img.Pix))
	copy(out, img.Pix)
	return out
}

func committed(t *testing.T, r *Reconciler) []board.Stroke {
	t.Helper()
	return r.Document().Strokes
}

func inkStroke(id string, seq uint64) board.Stroke {
	return board.Stroke{
		ID: id, AuthorID: "peer", Tool: board.ToolInk,
		Style:  board.Style{Color: "#cc0000", Size: 3},
		Points: []geom.Point{{X: 0.1, Y: 0.2}, {X: 0.4, Y: 0.5}, {X: 0.8, Y: 0.3}},
		Seq:    seq,
	}
}

func commitMsg(s board.Stroke) protocol.Message {
	return protocol.Message{Type: protocol.TypeStrokeCommit, Stroke: &s}
}

func TestConvergenceAcrossReplayEngines(t *testing.T) {
	// Two independent mirrors fed the same seq-bearing events, with live
	// traffic interleaved differently, end element-for-element identical.
	a := newTestReconciler(nil)
	b := newTestReconciler(nil)

	s1, s2 := inkStroke("s1", 1), inkStroke("s2", 2)

	// a sees live traffic before the commits
	a.Apply(protocol.Message{Type: protocol.TypeStrokeStart, StrokeID: "s1", UserID: "peer", Tool: board.ToolInk, Color: "#cc0000", Size: 3})
	a.Apply(protocol.Message{Type: protocol.TypeStrokePoints, StrokeID: "s1", Points: s1.Points})
	a.Apply(commitMsg(s1))
	a.Apply(commitMsg(s2))

	// b receives the commits only, in the same seq order
	b.Apply(commitMsg(s1))
	b.Apply(commitMsg(s2))

	assert.Equal(t, committed(t, a), committed(t, b))
	assert.Equal(t, pixelsOf(a), pixelsOf(b), "replay keyed by seq must converge on identical pixels")
}

func TestDuplicateCommitIsGuarded(t *testing.T) {
	r := newTestReconciler(nil)
	s := inkStroke("s1", 1)
	r.Apply(commitMsg(s))
	r.Apply(commitMsg(s))
	assert.Len(t, committed(t, r), 1)
}

func TestOwnCommitEchoAfterOptimisticPath(t *testing.T) {
	var sent []protocol.Message
	r := newTestReconciler(func(m protocol.Message) { sent = append(sent, m) })
	r.Apply(protocol.Message{Type: protocol.TypeInit, User: &board.User{ID: "me", Name: "ann", Color: "#e74c3c"}})

	r.PointerDown(10, 10)
	r.PointerMove(50, 60)
	r.PointerMove(90, 40)
	r.PointerUp()

	require.NotEmpty(t, sent)
	assert.Equal(t, protocol.TypeStrokeStart, sent[0].Type)
	assert.Equal(t, protocol.TypeStrokeEnd, sent[len(sent)-1].Type)
	id := sent[0].StrokeID

	// The server commits our stroke and fans it out, sender included.
	s := inkStroke(id, 1)
	s.AuthorID = "me"
	r.Apply(commitMsg(s))
	r.Apply(commitMsg(s))
	assert.Len(t, committed(t, r), 1)
}

func TestInitSnapshotReplayMatchesOriginal(t *testing.T) {
	// Client A drew s1; client B joins later and gets it via init.
	a := newTestReconciler(nil)
	s1 := inkStroke("s1", 1)
	a.Apply(commitMsg(s1))

	b := newTestReconciler(nil)
	b.Apply(protocol.Message{
		Type:    protocol.TypeInit,
		User:    &board.User{ID: "b"},
		Users:   []board.User{{ID: "a"}, {ID: "b"}},
		Strokes: []board.Stroke{s1},
	})

	assert.Equal(t, committed(t, a), committed(t, b))
	assert.Equal(t, pixelsOf(a), pixelsOf(b))
}

func TestUndoRedoClearDriveFullReplay(t *testing.T) {
	r := newTestReconciler(nil)
	s1, s2 := inkStroke("s1", 1), inkStroke("s2", 2)
	s2.Points = []geom.Point{{X: 0.6, Y: 0.6}, {X: 0.9, Y: 0.9}}
	r.Apply(commitMsg(s1))
	onlyS1 := pixelsOf(r)
	r.Apply(commitMsg(s2))

	r.Apply(protocol.Message{Type: protocol.TypeStrokeUndo, StrokeID: "s2"})
	assert.Equal(t, []board.Stroke{s1}, committed(t, r))
	assert.Equal(t, onlyS1, pixelsOf(r), "undo replays without the undone stroke")
	assert.True(t, r.CanRedo())

	r.Apply(protocol.Message{Type: protocol.TypeStrokeRedo, Stroke: &s2})
	assert.Equal(t, []board.Stroke{s1, s2}, committed(t, r))
	assert.False(t, r.CanRedo())

	r.Apply(protocol.Message{Type: protocol.TypeClear})
	assert.Empty(t, committed(t, r))
	assert.Equal(t, pixelsOf(newTestReconciler(nil)), pixelsOf(r), "clear leaves a blank surface")
}

func TestRedoInsertsAtOriginalSeqPosition(t *testing.T) {
	r := newTestReconciler(nil)
	s1, s2, s3 := inkStroke("s1", 1), inkStroke("s2", 2), inkStroke("s3", 3)
	r.Apply(commitMsg(s1))
	r.Apply(commitMsg(s3))
	r.Apply(protocol.Message{Type: protocol.TypeStrokeRedo, Stroke: &s2})

	got := committed(t, r)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"s1", "s2", "s3"}, []string{got[0].ID, got[1].ID, got[2].ID})
}

func TestPointsBeforeStartAreDropped(t *testing.T) {
	r := newTestReconciler(nil)
	before := pixelsOf(r)
	r.Apply(protocol.Message{Type: protocol.TypeStrokePoints, StrokeID: "ghost",
		Points: []geom.Point{{X: 0.5, Y: 0.5}}})
	assert.Equal(t, before, pixelsOf(r))
}

func TestPeerLeaveAbandonsTheirLiveStroke(t *testing.T) {
	r := newTestReconciler(nil)
	blank := pixelsOf(r)
	r.Apply(protocol.Message{Type: protocol.TypeUserJoined, User: &board.User{ID: "peer"}})
	r.Apply(protocol.Message{Type: protocol.TypeStrokeStart, StrokeID: "s1", UserID: "peer",
		Tool: board.ToolInk, Color: "#cc0000", Size: 3})
	r.Apply(protocol.Message{Type: protocol.TypeStrokePoints, StrokeID: "s1",
		Points: []geom.Point{{X: 0.1, Y: 0.1}, {X: 0.9, Y: 0.9}}})
	require.NotEqual(t, blank, pixelsOf(r))

	r.Apply(protocol.Message{Type: protocol.TypeUserLeft, UserID: "peer"})
	assert.Equal(t, blank, pixelsOf(r), "abandoned preview leaves no trace")
	assert.Empty(t, committed(t, r))
}

func TestShapePreviewComposite(t *testing.T) {
	var sent []protocol.Message
	r := newTestReconciler(func(m protocol.Message) { sent = append(sent, m) })
	r.Apply(protocol.Message{Type: protocol.TypeInit, User: &board.User{ID: "me"}})
	r.SetTool(board.ToolRectangle)

	r.PointerDown(40, 40)
	r.PointerMove(200, 100)
	mid := pixelsOf(r)
	r.PointerMove(120, 80)
	assert.NotEqual(t, mid, pixelsOf(r), "shape preview erases and redraws, not accumulates")

	// the outbound batches always carry both slots
	for _, m := range sent {
		if m.Type == protocol.TypeStrokePoints {
			assert.Len(t, m.Points, 2)
		}
	}
}

func TestPointerDownIgnoresPlacementTools(t *testing.T) {
	// Text and image go through PlaceText/PlaceImage; a pointer press with
	// one selected must not open a payload-less stroke the server would
	// reject, leaving a live entry nothing will ever evict.
	var sent []protocol.Message
	r := newTestReconciler(func(m protocol.Message) { sent = append(sent, m) })
	r.Apply(protocol.Message{Type: protocol.TypeInit, User: &board.User{ID: "me"}})
	blank := pixelsOf(r)

	for _, tool := range []board.Tool{board.ToolText, board.ToolImage} {
		r.SetTool(tool)
		r.PointerDown(50, 50)
		r.PointerMove(80, 80)
		r.PointerUp()
	}

	assert.Empty(t, sent)
	assert.Equal(t, blank, pixelsOf(r))
	assert.Empty(t, committed(t, r))
}

func TestCursorLatestWins(t *testing.T) {
	r := newTestReconciler(nil)
	r.Apply(protocol.Message{Type: protocol.TypeCursor, UserID: "peer", Name: "bob", X: 0.1, Y: 0.1})
	r.Apply(protocol.Message{Type: protocol.TypeCursor, UserID: "peer", Name: "bob", X: 0.7, Y: 0.9})
	cs := r.Cursors()
	require.Len(t, cs, 1)
	assert.Equal(t, 0.7, cs[0].X)
	assert.Equal(t, 0.9, cs[0].Y)
}

func TestCursorOutboxDropsStalePositions(t *testing.T) {
	emitted := make(chan protocol.Message, 16)
	o := NewCursorOutbox(func(m protocol.Message) { emitted <- m }, 1000)

	// Flood positions with no consumer running: only the newest survives.
	for i := 0; i < 100; i++ {
		o.Move(geom.Point{X: float64(i) / 100, Y: 0.5})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go o.Run(ctx)

	select {
	case m := <-emitted:
		assert.Equal(t, 0.99, m.X)
	case <-time.After(time.Second):
		t.Fatal("no cursor update emitted")
	}
}
