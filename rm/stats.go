package rm

import "fmt"

// Stats summarizes a parsed Document's stroke population, used by the
// --analyze mode to print a one-shot inventory of a file without
// rendering it.
type Stats struct {
	LayerCount    int
	StrokeCount   int
	PointCount    int
	ByPen         map[string]int // known pen name, or "unknown:<id>"
	ByColor       map[string]int // known color name, or "unknown:<id>"
	UnknownPens   []int32
	UnknownColors []int32
}

var penNames = map[Pen]string{
	PenPaintbrush: "Paintbrush", PenPencil: "Pencil", PenBallpoint: "Ballpoint",
	PenMarker: "Marker", PenFineliner: "Fineliner", PenHighlighter: "Highlighter",
	PenEraser: "Eraser", PenMechanicalPencil: "MechanicalPencil", PenEraserArea: "EraserArea",
	PenPaintbrush2: "Paintbrush2", PenMechanicalPencil2: "MechanicalPencil2", PenPencil2: "Pencil2",
	PenBallpoint2: "Ballpoint2", PenMarker2: "Marker2", PenFineliner2: "Fineliner2",
	PenHighlighter2: "Highlighter2", PenCaligraphy: "Caligraphy", PenShader: "Shader",
}

var colorNames = map[Color]string{
	ColorBlack: "Black", ColorGray: "Gray", ColorWhite: "White", ColorYellow: "Yellow",
	ColorGreen: "Green", ColorPink: "Pink", ColorBlue: "Blue", ColorRed: "Red",
	ColorGrayOverlap: "GrayOverlap", ColorHighlight: "Highlight", ColorGreen2: "Green2",
	ColorCyan: "Cyan", ColorMagenta: "Magenta", ColorYellow2: "Yellow2",
}

// ComputeStats walks every layer and stroke of doc once and tallies counts.
func ComputeStats(doc *Document) Stats {
	s := Stats{
		LayerCount: len(doc.Layers),
		ByPen:      map[string]int{},
		ByColor:    map[string]int{},
	}
	seenUnknownPen := map[int32]bool{}
	seenUnknownColor := map[int32]bool{}

	for _, layer := range doc.Layers {
		for _, stroke := range layer.Strokes {
			s.StrokeCount++
			s.PointCount += len(stroke.Points)

			if stroke.Pen.Known {
				s.ByPen[penNames[stroke.Pen.Value]]++
			} else {
				s.ByPen[unknownKey(stroke.Pen.Raw)]++
				if !seenUnknownPen[stroke.Pen.Raw] {
					seenUnknownPen[stroke.Pen.Raw] = true
					s.UnknownPens = append(s.UnknownPens, stroke.Pen.Raw)
				}
			}

			if stroke.Color.Known {
				s.ByColor[colorNames[stroke.Color.Value]]++
			} else {
				s.ByColor[unknownKey(stroke.Color.Raw)]++
				if !seenUnknownColor[stroke.Color.Raw] {
					seenUnknownColor[stroke.Color.Raw] = true
					s.UnknownColors = append(s.UnknownColors, stroke.Color.Raw)
				}
			}
		}
	}
	return s
}

func unknownKey(raw int32) string {
	return fmt.Sprintf("unknown:%d", raw)
}
