package render

import (
	"fmt"
	"io"

	"github.com/tdewolff/canvas/renderers"
)

// PDFCanvas renders strokes onto a brand-new PDF page, grounded on the
// teacher's ConvertToPDF (canvas.New + renderers.PDF()). Unlike
// PDFOverlayCanvas, which draws onto an existing page of an existing file,
// PDFCanvas is for documents with no sidecar PDF at all — a plain
// reMarkable notebook rather than an annotated import.
type PDFCanvas struct {
	rasterCanvas
}

// NewPDFCanvas constructs a PDFCanvas.
func NewPDFCanvas() *PDFCanvas {
	return &PDFCanvas{}
}

func (p *PDFCanvas) SetViewBox(x, y, w, h float64) error { return p.setViewBox(x, y, w, h) }
func (p *PDFCanvas) SetBackground(colorHex string) error { return p.setBackground(colorHex) }

func (p *PDFCanvas) BeginGroup(id string, dataName string, hidden bool) error { return nil }
func (p *PDFCanvas) EndGroup() error                                         { return nil }

func (p *PDFCanvas) EmitPath(d string, stroke string, width float32, opacity float32, lineCap, lineJoin, fill string) error {
	return p.emitPath(d, stroke, width, opacity, lineCap, lineJoin)
}

// WriteTo renders the accumulated canvas as a single-page PDF to w.
func (p *PDFCanvas) WriteTo(w io.Writer) error {
	if p.c == nil {
		return fmt.Errorf("render: WriteTo called before SetViewBox")
	}
	return p.c.Write(w, renderers.PDF())
}
