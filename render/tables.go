// Package render maps a parsed rm.Document onto an abstract vector Canvas,
// applying pen/color semantics and the device-space to output-space
// coordinate transform.
package render

import "github.com/kj-111/remarkable-backup/rm"

// RGB is a stroke color in 8-bit channels.
type RGB struct {
	R, G, B uint8
}

// Hex renders the color as a "#RRGGBB" string, the form the Canvas contract
// expects for emit_path's stroke color.
func (c RGB) Hex() string {
	const hexDigits = "0123456789abcdef"
	b := make([]byte, 7)
	b[0] = '#'
	put := func(i int, v uint8) {
		b[i] = hexDigits[v>>4]
		b[i+1] = hexDigits[v&0xF]
	}
	put(1, c.R)
	put(3, c.G)
	put(5, c.B)
	return string(b)
}

// colorTable holds the authoritative RGB value for every known color id.
var colorTable = map[rm.Color]RGB{
	rm.ColorBlack:       {0, 0, 0},
	rm.ColorGray:        {125, 125, 125},
	rm.ColorWhite:       {255, 255, 255},
	rm.ColorYellow:      {255, 235, 59},
	rm.ColorGreen:       {76, 175, 80},
	rm.ColorPink:        {233, 30, 99},
	rm.ColorBlue:        {48, 74, 224},
	rm.ColorRed:         {244, 67, 54},
	rm.ColorGrayOverlap: {158, 158, 158},
	rm.ColorHighlight:   {255, 235, 59},
	rm.ColorGreen2:      {139, 195, 74},
	rm.ColorCyan:        {0, 188, 212},
	rm.ColorMagenta:     {156, 39, 176},
	rm.ColorYellow2:     {255, 193, 7},
}

// defaultColor is used for unknown color ids (spec: "renderer treats them as
// pen=generic, color=black").
var defaultColor = RGB{0, 0, 0}

// ColorOf resolves a ColorRef to its RGB value, defaulting unknown ids to
// black.
func ColorOf(ref rm.ColorRef) RGB {
	if ref.Known {
		if rgb, ok := colorTable[ref.Value]; ok {
			return rgb
		}
	}
	return defaultColor
}

// baseWidthTable holds the pre-scale output-unit base width for every known
// pen. The "_2" variants inherit their base type's width.
var baseWidthTable = map[rm.Pen]float64{
	rm.PenPaintbrush:        3.0,
	rm.PenPencil:            1.5,
	rm.PenBallpoint:         1.2,
	rm.PenMarker:            4.0,
	rm.PenFineliner:         0.8,
	rm.PenHighlighter:       12.0,
	rm.PenEraser:            5.0,
	rm.PenMechanicalPencil:  0.6,
	rm.PenEraserArea:        5.0,
	rm.PenPaintbrush2:       3.0,
	rm.PenMechanicalPencil2: 0.6,
	rm.PenPencil2:           1.5,
	rm.PenBallpoint2:        1.2,
	rm.PenMarker2:           4.0,
	rm.PenFineliner2:        0.8,
	rm.PenHighlighter2:      12.0,
	rm.PenCaligraphy:        2.5,
	rm.PenShader:            8.0,
}

// defaultBaseWidth backs the fallback width formula for unrecognized pens.
const defaultBaseWidth = 1.0

// BaseWidthOf returns a pen's pre-scale base width, or defaultBaseWidth for
// unknown pens.
func BaseWidthOf(ref rm.PenRef) float64 {
	if ref.Known {
		if w, ok := baseWidthTable[ref.Value]; ok {
			return w
		}
	}
	return defaultBaseWidth
}

// transparentPens is the "transparency set": pens rendered at reduced
// opacity to approximate the tablet's highlighter/shader ink.
var transparentPens = map[rm.Pen]struct{}{
	rm.PenHighlighter:  {},
	rm.PenHighlighter2: {},
	rm.PenShader:       {},
}

// transparentOpacity is the fixed opacity applied to every pen in
// transparentPens.
const transparentOpacity = 0.4

// OpacityOf returns a pen's stroke opacity.
func OpacityOf(ref rm.PenRef) float64 {
	if ref.Known {
		if _, ok := transparentPens[ref.Value]; ok {
			return transparentOpacity
		}
	}
	return 1.0
}
