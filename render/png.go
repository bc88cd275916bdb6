package render

import (
	"bytes"
	"fmt"
	"image/png"
	"io"

	"github.com/tdewolff/canvas/renderers"

	"github.com/nfnt/resize"
)

// PNGCanvas rasterizes strokes with tdewolff/canvas, the way the teacher's
// image export renders a page to PNG: a canvas.Canvas sized in output
// points, a canvas.Context doing the actual path drawing, and the PNG
// renderer producing final bytes.
type PNGCanvas struct {
	rasterCanvas
}

// NewPNGCanvas constructs a PNGCanvas; SetViewBox determines the pixel
// canvas size in output points (1 output unit == 1 point, matching the
// teacher's 72-dpi PNG convention).
func NewPNGCanvas() *PNGCanvas {
	return &PNGCanvas{}
}

func (p *PNGCanvas) SetViewBox(x, y, w, h float64) error { return p.setViewBox(x, y, w, h) }
func (p *PNGCanvas) SetBackground(colorHex string) error { return p.setBackground(colorHex) }

func (p *PNGCanvas) BeginGroup(id string, dataName string, hidden bool) error {
	// tdewolff/canvas has no concept of a hidden/visible group, and the
	// hidden flag is ignored here: the renderer still calls EmitPath for a
	// hidden layer's strokes, and they are drawn like any other. PDFCanvas
	// shares this drawing core and ignores the flag the same way.
	return nil
}

func (p *PNGCanvas) EndGroup() error { return nil }

func (p *PNGCanvas) EmitPath(d string, stroke string, width float32, opacity float32, lineCap, lineJoin, fill string) error {
	return p.emitPath(d, stroke, width, opacity, lineCap, lineJoin)
}

// WriteTo renders the accumulated canvas as PNG to w.
func (p *PNGCanvas) WriteTo(w io.Writer) error {
	if p.c == nil {
		return fmt.Errorf("render: WriteTo called before SetViewBox")
	}
	return p.c.Write(w, renderers.PNG())
}

// WriteThumbnail renders a downscaled PNG thumbnail no wider than maxWidth
// pixels. The full-size page is rendered once via the canvas library's own
// PNG renderer, decoded back into an image.Image, then downscaled with
// nfnt/resize's Lanczos3 filter — higher quality than the canvas library's
// own rasterizer would give at a steep downscale ratio.
func (p *PNGCanvas) WriteThumbnail(w io.Writer, maxWidth uint) error {
	if p.c == nil {
		return fmt.Errorf("render: WriteThumbnail called before SetViewBox")
	}

	var full bytes.Buffer
	if err := p.WriteTo(&full); err != nil {
		return err
	}
	img, err := png.Decode(&full)
	if err != nil {
		return fmt.Errorf("render: decode rendered page: %w", err)
	}
	if uint(img.Bounds().Dx()) <= maxWidth {
		_, err := w.Write(full.Bytes())
		return err
	}

	thumb := resize.Resize(maxWidth, 0, img, resize.Lanczos3)
	return png.Encode(w, thumb)
}
