package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPathSinglePointIsDot(t *testing.T) {
	d := BuildPath([]Vec{{1.5, 2.5}})
	assert.Equal(t, "M 1.50 2.50 l 0.10 0.10", d)
}

func TestBuildPathTwoPointsIsStraightLine(t *testing.T) {
	d := BuildPath([]Vec{{0, 0}, {10, 20}})
	assert.Equal(t, "M 0.00 0.00 L 10.00 20.00", d)
}

func TestBuildPathThreePointsWorkedExample(t *testing.T) {
	// Mirrors the documented worked example: device points (0,0), (100,200),
	// (200,400) transformed onto a 595-wide page.
	transform := NewTransform(595)
	points := []Vec{
		transform.Apply(0, 0),
		transform.Apply(100, 200),
		transform.Apply(200, 400),
	}
	d := BuildPath(points)
	assert.Equal(t, "M 297.50 0.00 L 313.36 31.72 Q 329.22 63.44 360.94 126.87", d)
}

func TestBuildPathFourPointsHasOneIntermediateCurve(t *testing.T) {
	points := []Vec{{0, 0}, {10, 0}, {20, 0}, {30, 0}}
	d := BuildPath(points)
	assert.Equal(t, "M 0.00 0.00 L 5.00 0.00 Q 10.00 0.00 15.00 0.00 Q 20.00 0.00 30.00 0.00", d)
}

func TestBuildPathEmpty(t *testing.T) {
	assert.Equal(t, "", BuildPath(nil))
}

func TestFormatCoordTwoDecimals(t *testing.T) {
	assert.Equal(t, "3.14", formatCoord(3.14159))
	assert.Equal(t, "-0.50", formatCoord(-0.5))
	assert.Equal(t, "0.00", formatCoord(0))
}
