// Package rm parses the reMarkable v6 ".lines" tagged-block container into
// a Document: a small, in-memory model of layers, strokes, and points. It
// discards everything the source format carries beyond stroke geometry —
// text, CRDT genealogy, tombstones — by design; see spec.md §1 Non-goals.
package rm

// Point is one pen sample in device space: millimeter-ish units, origin at
// page-top-centre, x growing right (may be negative), y growing down.
// Exactly 14 bytes on disk: two float32s, two uint16s, two uint8s.
type Point struct {
	X         float32
	Y         float32
	Speed     uint16
	Width     uint16 // raw pen-width hint, not output pixels
	Direction uint8
	Pressure  uint8
}

// Pen enumerates the recognised pen/brush variants. Holes in the numbering
// are deliberate — they mirror gaps in the device's own tool ids.
type Pen int32

const (
	PenPaintbrush        Pen = 0
	PenPencil            Pen = 1
	PenBallpoint         Pen = 2
	PenMarker            Pen = 3
	PenFineliner         Pen = 4
	PenHighlighter       Pen = 5
	PenEraser            Pen = 6
	PenMechanicalPencil  Pen = 7
	PenEraserArea        Pen = 8
	PenPaintbrush2       Pen = 12
	PenMechanicalPencil2 Pen = 13
	PenPencil2           Pen = 14
	PenBallpoint2        Pen = 15
	PenMarker2           Pen = 16
	PenFineliner2        Pen = 17
	PenHighlighter2      Pen = 18
	PenCaligraphy        Pen = 21
	PenShader            Pen = 23
)

var knownPens = map[Pen]struct{}{
	PenPaintbrush: {}, PenPencil: {}, PenBallpoint: {}, PenMarker: {},
	PenFineliner: {}, PenHighlighter: {}, PenEraser: {}, PenMechanicalPencil: {},
	PenEraserArea: {}, PenPaintbrush2: {}, PenMechanicalPencil2: {}, PenPencil2: {},
	PenBallpoint2: {}, PenMarker2: {}, PenFineliner2: {}, PenHighlighter2: {},
	PenCaligraphy: {}, PenShader: {},
}

// PenRef is the "pen | unrecognized numeric id" tagged sum of spec.md §9:
// there is no parent/child relationship between the known and unknown
// arms, so every consumer must branch on Known explicitly.
type PenRef struct {
	Known bool
	Value Pen   // meaningful only when Known
	Raw   int32 // always the numeric id as read from the file
}

// NewPenRef classifies a raw tool id into a PenRef.
func NewPenRef(raw int32) PenRef {
	if _, ok := knownPens[Pen(raw)]; ok {
		return PenRef{Known: true, Value: Pen(raw), Raw: raw}
	}
	return PenRef{Raw: raw}
}

// IsEraser reports whether this pen is one of the eraser variants. Unknown
// pens are never erasers.
func (p PenRef) IsEraser() bool {
	return p.Known && (p.Value == PenEraser || p.Value == PenEraserArea)
}

// Color enumerates the recognised color variants.
type Color int32

const (
	ColorBlack       Color = 0
	ColorGray        Color = 1
	ColorWhite       Color = 2
	ColorYellow      Color = 3
	ColorGreen       Color = 4
	ColorPink        Color = 5
	ColorBlue        Color = 6
	ColorRed         Color = 7
	ColorGrayOverlap Color = 8
	ColorHighlight   Color = 9
	ColorGreen2      Color = 10
	ColorCyan        Color = 11
	ColorMagenta     Color = 12
	ColorYellow2     Color = 13
)

var knownColors = map[Color]struct{}{
	ColorBlack: {}, ColorGray: {}, ColorWhite: {}, ColorYellow: {}, ColorGreen: {},
	ColorPink: {}, ColorBlue: {}, ColorRed: {}, ColorGrayOverlap: {}, ColorHighlight: {},
	ColorGreen2: {}, ColorCyan: {}, ColorMagenta: {}, ColorYellow2: {},
}

// ColorRef is the "color | unrecognized numeric id" tagged sum.
type ColorRef struct {
	Known bool
	Value Color
	Raw   int32
}

// NewColorRef classifies a raw color id into a ColorRef.
func NewColorRef(raw int32) ColorRef {
	if _, ok := knownColors[Color(raw)]; ok {
		return ColorRef{Known: true, Value: Color(raw), Raw: raw}
	}
	return ColorRef{Raw: raw}
}

// Stroke is one continuous pen trace. A Stroke kept in a Document always
// has at least one point; strokes with zero points are dropped at parse
// time (spec.md §3 invariants).
type Stroke struct {
	Pen            PenRef
	Color          ColorRef
	ThicknessScale float64
	Points         []Point
}

// Layer is a painter's-algorithm-ordered group of strokes: later strokes in
// Strokes paint over earlier ones at the same position.
type Layer struct {
	Name    string
	Visible bool
	Strokes []Stroke
}

// Document is the parsed result of one input file: a non-empty ordered
// list of layers. It is produced once, consumed by the renderer, and never
// mutated afterward.
type Document struct {
	Layers []Layer
}

// defaultLayerName is used for the single synthetic layer every Document
// produced by Parse/ParseFile carries, since the v6 format this decoder
// targets does not itself encode layer boundaries for LineItem blocks.
const defaultLayerName = "Layer 1"
