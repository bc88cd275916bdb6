package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kj-111/remarkable-backup/rm"
)

// fakeCanvas records every call for assertion, standing in for a real
// Canvas implementation so the renderer's traversal logic can be tested in
// isolation.
type fakeCanvas struct {
	viewBox    [4]float64
	background string
	groups     []string
	hidden     []bool
	paths      []pathCall
}

type pathCall struct {
	d                    string
	stroke               string
	width, opacity       float32
	lineCap, lineJoin    string
	fill                 string
}

func (f *fakeCanvas) BeginGroup(id string, dataName string, hidden bool) error {
	f.groups = append(f.groups, id)
	f.hidden = append(f.hidden, hidden)
	return nil
}
func (f *fakeCanvas) EndGroup() error { return nil }
func (f *fakeCanvas) EmitPath(d string, stroke string, width float32, opacity float32, lineCap, lineJoin, fill string) error {
	f.paths = append(f.paths, pathCall{d, stroke, width, opacity, lineCap, lineJoin, fill})
	return nil
}
func (f *fakeCanvas) SetViewBox(x, y, w, h float64) error {
	f.viewBox = [4]float64{x, y, w, h}
	return nil
}
func (f *fakeCanvas) SetBackground(color string) error {
	f.background = color
	return nil
}

func TestRenderDocumentSkipsErasersAndEmitsGroups(t *testing.T) {
	doc := &rm.Document{
		Layers: []rm.Layer{
			{
				Name:    "Layer 1",
				Visible: true,
				Strokes: []rm.Stroke{
					{
						Pen:   rm.NewPenRef(int32(rm.PenFineliner)),
						Color: rm.NewColorRef(int32(rm.ColorBlack)),
						Points: []rm.Point{
							{X: 0, Y: 0, Width: 16},
							{X: 100, Y: 200, Width: 16},
							{X: 200, Y: 400, Width: 16},
						},
						ThicknessScale: 1.0,
					},
					{
						Pen:   rm.NewPenRef(int32(rm.PenEraser)),
						Color: rm.NewColorRef(int32(rm.ColorBlack)),
						Points: []rm.Point{
							{X: 0, Y: 0}, {X: 1, Y: 1},
						},
					},
				},
			},
		},
	}

	canvas := &fakeCanvas{}
	r := NewRenderer(canvas)
	err := r.RenderDocument(doc, PageSize{Width: 595, Height: 842})
	require.NoError(t, err)

	assert.Equal(t, [4]float64{0, 0, 595, 842}, canvas.viewBox)
	assert.Equal(t, "#ffffff", canvas.background)
	assert.Equal(t, []string{"layer-0"}, canvas.groups)
	assert.Equal(t, []bool{false}, canvas.hidden)

	require.Len(t, canvas.paths, 1, "eraser stroke must not reach the canvas")
	p := canvas.paths[0]
	assert.Equal(t, "#000000", p.stroke)
	assert.InDelta(t, 1.2687, p.width, 1e-3)
	assert.Equal(t, float32(1.0), p.opacity)
	assert.Equal(t, "round", p.lineCap)
	assert.Equal(t, "round", p.lineJoin)
	assert.Equal(t, "none", p.fill)
}

func TestRenderDocumentMarksHiddenLayers(t *testing.T) {
	doc := &rm.Document{
		Layers: []rm.Layer{
			{Name: "Layer 1", Visible: false},
		},
	}
	canvas := &fakeCanvas{}
	require.NoError(t, NewRenderer(canvas).RenderDocument(doc, DefaultPageSize))
	assert.Equal(t, []bool{true}, canvas.hidden)
}

func TestStrokeWidthFallbackWhenWidthsAllZero(t *testing.T) {
	stroke := rm.Stroke{
		Pen:            rm.NewPenRef(int32(rm.PenFineliner)),
		ThicknessScale: 2.0,
		Points:         []rm.Point{{X: 0, Y: 0, Width: 0}, {X: 1, Y: 1, Width: 0}},
	}
	w := strokeWidth(stroke)
	assert.InDelta(t, 0.8*2.0/Scale, w, 1e-9)
}

func TestStrokeWidthFloorsAtHalf(t *testing.T) {
	stroke := rm.Stroke{
		Pen:    rm.NewPenRef(int32(rm.PenFineliner)),
		Points: []rm.Point{{X: 0, Y: 0, Width: 1}},
	}
	assert.Equal(t, 0.5, strokeWidth(stroke))
}

func TestNewTransformMatchesDefaultOffset(t *testing.T) {
	tr := NewTransform(595)
	assert.InDelta(t, 937.951389, tr.XOffset, 1e-3)
}
