package render

import (
	"fmt"
	"image/color"

	tdcanvas "github.com/tdewolff/canvas"
)

// rasterCanvas is the tdewolff/canvas drawing core shared by PNGCanvas
// (rasterizes to PNG) and PDFCanvas (renders a brand-new PDF page, for
// documents with no sidecar PDF to overlay onto). Both differ only in
// which renderers.* writer they hand the finished canvas.Canvas to.
type rasterCanvas struct {
	c      *tdcanvas.Canvas
	ctx    *tdcanvas.Context
	width  float64
	height float64
}

func (p *rasterCanvas) setViewBox(x, y, w, h float64) error {
	p.width, p.height = w, h
	p.c = tdcanvas.New(w, h)
	p.ctx = tdcanvas.NewContext(p.c)
	return nil
}

func (p *rasterCanvas) setBackground(colorHex string) error {
	if p.ctx == nil {
		return fmt.Errorf("render: SetBackground called before SetViewBox")
	}
	r, g, b, err := parseHexColor(colorHex)
	if err != nil {
		return err
	}
	p.ctx.SetFillColor(color.RGBA{uint8(r * 255), uint8(g * 255), uint8(b * 255), 255})
	p.ctx.MoveTo(0, 0)
	p.ctx.LineTo(p.width, 0)
	p.ctx.LineTo(p.width, p.height)
	p.ctx.LineTo(0, p.height)
	p.ctx.Close()
	p.ctx.Fill()
	return nil
}

func (p *rasterCanvas) emitPath(d string, stroke string, width float32, opacity float32, lineCap, lineJoin string) error {
	if p.ctx == nil {
		return fmt.Errorf("render: EmitPath called before SetViewBox")
	}
	r, g, b, err := parseHexColor(stroke)
	if err != nil {
		return err
	}
	alpha := uint8(opacity * 255)
	p.ctx.SetStrokeColor(color.RGBA{uint8(r * 255), uint8(g * 255), uint8(b * 255), alpha})
	p.ctx.SetStrokeWidth(float64(width))
	if lineCap == "round" {
		p.ctx.SetStrokeCapper(tdcanvas.RoundCap)
	} else {
		p.ctx.SetStrokeCapper(tdcanvas.ButtCap)
	}
	if lineJoin == "round" {
		p.ctx.SetStrokeJoiner(tdcanvas.RoundJoin)
	} else {
		p.ctx.SetStrokeJoiner(tdcanvas.MiterJoin)
	}

	if err := p.drawPath(d); err != nil {
		return err
	}
	p.ctx.Stroke()
	return nil
}

func (p *rasterCanvas) drawPath(d string) error {
	// Reuses the overlay canvas's path-data tokenizer semantics (M/L/l/Q),
	// translating into canvas.Context calls instead of PDF operators.
	tok := newPathTokenizer(d)
	var cur Vec
	for tok.next() {
		switch tok.op {
		case "M":
			cur = tok.point()
			p.ctx.MoveTo(cur.X, p.height-cur.Y)
		case "L":
			cur = tok.point()
			p.ctx.LineTo(cur.X, p.height-cur.Y)
		case "l":
			dx, dy := tok.pair()
			cur = Vec{cur.X + dx, cur.Y + dy}
			p.ctx.LineTo(cur.X, p.height-cur.Y)
		case "Q":
			ctrl := tok.point()
			end := tok.point()
			p.ctx.QuadTo(ctrl.X, p.height-ctrl.Y, end.X, p.height-end.Y)
			cur = end
		default:
			return fmt.Errorf("render: unknown path op %q", tok.op)
		}
	}
	return tok.err
}
