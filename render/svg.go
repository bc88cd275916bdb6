package render

import (
	"bytes"
	"fmt"
)

// SVGCanvas accumulates <svg><g><path/></g></svg> markup in memory. It
// follows the teacher's hand-built-string-buffer approach rather than an
// XML encoder, since path `d` attributes are themselves hand-formatted
// command strings, not struct-shaped data.
type SVGCanvas struct {
	buf        bytes.Buffer
	width      float64
	height     float64
	viewBox    [4]float64
	background string
	open       bool
}

// NewSVGCanvas constructs an SVGCanvas; SetViewBox determines the eventual
// width/height attributes.
func NewSVGCanvas() *SVGCanvas {
	return &SVGCanvas{}
}

func (c *SVGCanvas) SetViewBox(x, y, w, h float64) error {
	c.viewBox = [4]float64{x, y, w, h}
	c.width, c.height = w, h
	return nil
}

func (c *SVGCanvas) SetBackground(color string) error {
	c.background = color
	return nil
}

func (c *SVGCanvas) BeginGroup(id string, dataName string, hidden bool) error {
	if !c.open {
		c.writeHeader()
	}
	fmt.Fprintf(&c.buf, `  <g id="%s"`, id)
	if dataName != "" {
		fmt.Fprintf(&c.buf, ` data-name="%s"`, escapeAttr(dataName))
	}
	if hidden {
		c.buf.WriteString(` visibility="hidden"`)
	}
	c.buf.WriteString(">\n")
	return nil
}

func (c *SVGCanvas) EndGroup() error {
	c.buf.WriteString("  </g>\n")
	return nil
}

func (c *SVGCanvas) EmitPath(d string, stroke string, width float32, opacity float32, lineCap, lineJoin, fill string) error {
	fmt.Fprintf(&c.buf,
		`    <path d="%s" stroke="%s" stroke-width="%.2f" stroke-opacity="%.2f" `+
			`stroke-linecap="%s" stroke-linejoin="%s" fill="%s"/>`+"\n",
		d, stroke, width, opacity, lineCap, lineJoin, fill)
	return nil
}

func (c *SVGCanvas) writeHeader() {
	c.open = true
	c.buf.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="no"?>` + "\n")
	fmt.Fprintf(&c.buf, `<svg xmlns="http://www.w3.org/2000/svg" width="%.2f" height="%.2f" viewBox="%.2f %.2f %.2f %.2f">`+"\n",
		c.width, c.height, c.viewBox[0], c.viewBox[1], c.viewBox[2], c.viewBox[3])
	if c.background != "" {
		fmt.Fprintf(&c.buf, `  <rect x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="%s" stroke="none"/>`+"\n",
			c.viewBox[0], c.viewBox[1], c.viewBox[2], c.viewBox[3], c.background)
	}
}

// Bytes returns the finished SVG document. The caller must have matched
// every BeginGroup with an EndGroup before calling this.
func (c *SVGCanvas) Bytes() []byte {
	var out bytes.Buffer
	out.Write(c.buf.Bytes())
	out.WriteString("</svg>")
	return out.Bytes()
}

// String is a convenience wrapper around Bytes.
func (c *SVGCanvas) String() string { return string(c.Bytes()) }

func escapeAttr(s string) string {
	var b bytes.Buffer
	for _, r := range s {
		switch r {
		case '&':
			b.WriteString("&amp;")
		case '"':
			b.WriteString("&quot;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
