package render

// Canvas is the abstract drawing surface the renderer targets. Concrete
// implementations (SVGCanvas, PDFOverlayCanvas, PDFCanvas, PNGCanvas) never appear in
// this file — it exists so the renderer can be unit-tested against a fake
// and so new output formats don't require touching the traversal logic.
type Canvas interface {
	// BeginGroup opens a named group corresponding to one Document layer.
	// dataName is an optional human-readable label; hidden marks a layer
	// that is present but not visible (suppressed at render time, still
	// emitted per the layer-grouping rule).
	BeginGroup(id string, dataName string, hidden bool) error

	// EndGroup closes the most recently opened group.
	EndGroup() error

	// EmitPath draws one stroke's path. d is path command data in the
	// vocabulary of BuildPath (M/L/l/Q). stroke is a "#RRGGBB" color.
	EmitPath(d string, stroke string, width float32, opacity float32, lineCap, lineJoin, fill string) error

	// SetViewBox declares the output coordinate box.
	SetViewBox(x, y, w, h float64) error

	// SetBackground fills the page background.
	SetBackground(color string) error
}
