package render

import (
	"fmt"

	"github.com/kj-111/remarkable-backup/rm"
)

// Scale is the device-space to output-space ratio: the tablet samples at
// roughly 227 dpi, output units are points at 72 dpi.
const Scale = 227.0 / 72.0

// defaultPageWidth/defaultPageHeight back the page-layout oracle's fallback
// dimensions when a document has no registered page size.
const (
	defaultPageWidth  = 595.0
	defaultPageHeight = 842.0
)

// DeviceWidth and DeviceHeight are the tablet's native device-space canvas
// size. The renderer does not use them: a page with no known size is
// rendered at DefaultPageSize.
const (
	DeviceWidth  = 1404.0
	DeviceHeight = 1872.0
)

// Transform maps device-space points to output-space Vecs for one page.
type Transform struct {
	XOffset float64
}

// NewTransform derives a Transform from a target output page width: per
// spec, x_offset = (pageWidth/2) * Scale.
func NewTransform(pageWidth float64) Transform {
	return Transform{XOffset: (pageWidth / 2) * Scale}
}

// Apply maps one device-space point into output space.
func (t Transform) Apply(x, y float32) Vec {
	return Vec{
		X: (float64(x) + t.XOffset) / Scale,
		Y: float64(y) / Scale,
	}
}

// PageSize is a target page's output-space dimensions, as supplied by a
// page-layout oracle.
type PageSize struct {
	Width, Height float64
}

// DefaultPageSize is used whenever the oracle has no entry for a page.
var DefaultPageSize = PageSize{Width: defaultPageWidth, Height: defaultPageHeight}

// Renderer drives one Document onto one Canvas.
type Renderer struct {
	Canvas Canvas
}

// NewRenderer constructs a Renderer targeting the given Canvas.
func NewRenderer(c Canvas) *Renderer {
	return &Renderer{Canvas: c}
}

// RenderDocument paints every layer and stroke of doc onto the renderer's
// Canvas, using page to compute the coordinate transform and view box.
// Erasers are excluded; strokes with zero points cannot occur (rm.Parse
// never keeps one), but are defensively skipped here too since Renderer
// does not otherwise control how a Document was constructed.
func (r *Renderer) RenderDocument(doc *rm.Document, page PageSize) error {
	if err := r.Canvas.SetViewBox(0, 0, page.Width, page.Height); err != nil {
		return fmt.Errorf("render: set view box: %w", err)
	}
	if err := r.Canvas.SetBackground("#ffffff"); err != nil {
		return fmt.Errorf("render: set background: %w", err)
	}

	transform := NewTransform(page.Width)

	for i, layer := range doc.Layers {
		groupID := fmt.Sprintf("layer-%d", i)
		if err := r.Canvas.BeginGroup(groupID, layer.Name, !layer.Visible); err != nil {
			return fmt.Errorf("render: begin group %s: %w", groupID, err)
		}

		for _, stroke := range layer.Strokes {
			if stroke.Pen.IsEraser() {
				continue
			}
			if len(stroke.Points) == 0 {
				continue
			}
			if err := r.renderStroke(stroke, transform); err != nil {
				return fmt.Errorf("render: stroke in %s: %w", groupID, err)
			}
		}

		if err := r.Canvas.EndGroup(); err != nil {
			return fmt.Errorf("render: end group %s: %w", groupID, err)
		}
	}
	return nil
}

func (r *Renderer) renderStroke(stroke rm.Stroke, transform Transform) error {
	points := make([]Vec, len(stroke.Points))
	for i, p := range stroke.Points {
		points[i] = transform.Apply(p.X, p.Y)
	}

	d := BuildPath(points)
	color := ColorOf(stroke.Color).Hex()
	width := strokeWidth(stroke)
	opacity := OpacityOf(stroke.Pen)

	return r.Canvas.EmitPath(d, color, float32(width), float32(opacity), "round", "round", "none")
}

// strokeWidth implements the width formula: the mean raw width hint across
// a stroke's points, scaled down to output units, floored at 0.5; if every
// point's width hint is zero (a pen that never recorded pressure-derived
// width), fall back to the bare pen's base width scaled by thickness_scale,
// unfloored.
func strokeWidth(stroke rm.Stroke) float64 {
	var sum uint64
	for _, p := range stroke.Points {
		sum += uint64(p.Width)
	}
	if sum > 0 {
		mean := float64(sum) / float64(len(stroke.Points))
		w := mean / Scale / 4.0
		if w < 0.5 {
			return 0.5
		}
		return w
	}
	return BaseWidthOf(stroke.Pen) * stroke.ThicknessScale / Scale
}
