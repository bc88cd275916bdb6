package render

import (
	"fmt"
	"strconv"
	"strings"
)

// Vec is a point in output space.
type Vec struct {
	X, Y float64
}

func mid(a, b Vec) Vec {
	return Vec{(a.X + b.X) / 2, (a.Y + b.Y) / 2}
}

// formatCoord renders a coordinate with exactly 2 fractional digits.
func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// BuildPath turns an ordered list of already-transformed output-space
// points into path command data, following the piecewise quadratic
// smoothing rule: 1 point is a degenerate dot, 2 points a straight line,
// and 3+ points smooth through segment midpoints with the raw samples as
// control points.
func BuildPath(points []Vec) string {
	var b strings.Builder

	switch len(points) {
	case 0:
		return ""
	case 1:
		p := points[0]
		b.WriteString("M ")
		b.WriteString(formatCoord(p.X))
		b.WriteByte(' ')
		b.WriteString(formatCoord(p.Y))
		b.WriteString(" l 0.10 0.10")
		return b.String()
	case 2:
		b.WriteString("M ")
		writePoint(&b, points[0])
		b.WriteString(" L ")
		writePoint(&b, points[1])
		return b.String()
	}

	n := len(points)
	b.WriteString("M ")
	writePoint(&b, points[0])

	b.WriteString(" L ")
	writePoint(&b, mid(points[0], points[1]))

	for i := 2; i <= n-2; i++ {
		b.WriteString(" Q ")
		writePoint(&b, points[i-1])
		b.WriteByte(' ')
		writePoint(&b, mid(points[i-1], points[i]))
	}

	b.WriteString(" Q ")
	writePoint(&b, points[n-2])
	b.WriteByte(' ')
	writePoint(&b, points[n-1])

	return b.String()
}

func writePoint(b *strings.Builder, p Vec) {
	b.WriteString(formatCoord(p.X))
	b.WriteByte(' ')
	b.WriteString(formatCoord(p.Y))
}

// pathTokenizer walks a BuildPath-produced command string op by op, shared
// by every Canvas implementation that must translate M/L/l/Q into its own
// drawing calls.
type pathTokenizer struct {
	fields []string
	i      int
	op     string
	err    error
}

func newPathTokenizer(d string) *pathTokenizer {
	return &pathTokenizer{fields: strings.Fields(d)}
}

// next advances to the next operator; false at end of input or on error.
func (t *pathTokenizer) next() bool {
	if t.err != nil || t.i >= len(t.fields) {
		return false
	}
	t.op = t.fields[t.i]
	t.i++
	return true
}

func (t *pathTokenizer) nextFloat() float64 {
	if t.err != nil {
		return 0
	}
	if t.i >= len(t.fields) {
		t.err = fmt.Errorf("render: path data ended mid-operand after %q", t.op)
		return 0
	}
	v, err := strconv.ParseFloat(t.fields[t.i], 64)
	t.i++
	if err != nil {
		t.err = fmt.Errorf("render: bad path operand %q: %w", t.fields[t.i-1], err)
	}
	return v
}

func (t *pathTokenizer) point() Vec {
	x := t.nextFloat()
	y := t.nextFloat()
	return Vec{x, y}
}

func (t *pathTokenizer) pair() (float64, float64) {
	x := t.nextFloat()
	y := t.nextFloat()
	return x, y
}
