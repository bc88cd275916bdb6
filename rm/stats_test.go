package rm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeStatsCountsAndUnknowns(t *testing.T) {
	doc := &Document{
		Layers: []Layer{
			{
				Name: "Layer 1",
				Strokes: []Stroke{
					{Pen: NewPenRef(int32(PenFineliner)), Color: NewColorRef(int32(ColorBlack)), Points: []Point{{}, {}}},
					{Pen: NewPenRef(99), Color: NewColorRef(int32(ColorBlue)), Points: []Point{{}}},
					{Pen: NewPenRef(99), Color: NewColorRef(50), Points: []Point{{}, {}, {}}},
				},
			},
		},
	}

	stats := ComputeStats(doc)
	assert.Equal(t, 1, stats.LayerCount)
	assert.Equal(t, 3, stats.StrokeCount)
	assert.Equal(t, 6, stats.PointCount)
	assert.Equal(t, 1, stats.ByPen["Fineliner"])
	assert.Equal(t, 2, stats.ByPen["unknown:99"])
	assert.Equal(t, 1, stats.ByColor["Black"])
	assert.Equal(t, 1, stats.ByColor["Blue"])
	assert.Equal(t, 1, stats.ByColor["unknown:50"])
	assert.ElementsMatch(t, []int32{99}, stats.UnknownPens)
	assert.ElementsMatch(t, []int32{50}, stats.UnknownColors)
}
