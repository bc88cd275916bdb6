// Package batch drives the pleasantly-parallel per-file export described in
// spec.md §5: one worker per document, no state shared across workers, each
// worker owning its own parser, Document, and Canvas instances.
package batch

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/kj-111/remarkable-backup/layout"
	"github.com/kj-111/remarkable-backup/render"
	"github.com/kj-111/remarkable-backup/rm"
)

// Result summarizes one document's export.
type Result struct {
	DocID      string
	Name       string
	OutputPath string
	Pages      int
	Strokes    int
	Overlaid   bool // true if drawn onto an existing sidecar PDF, false if rendered fresh
}

// exportDocument renders every page of one document to outputPath, either by
// overlaying its sidecar PDF (when present) or by rendering brand-new pages
// and merging them. It owns every resource it touches — no state is shared
// with any other concurrently-running call.
func exportDocument(backupDir string, oracle *layout.SidecarOracle, doc layout.DocumentInfo, outputPath string) (Result, error) {
	res := Result{DocID: doc.ID, Name: doc.Name, OutputPath: outputPath}

	pageOrder, err := oracle.PageOrder(doc.ID)
	if err != nil {
		return res, errors.Wrap(err, "batch: page order")
	}
	if len(pageOrder) == 0 {
		return res, errors.New("batch: document has no pages")
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return res, errors.Wrap(err, "batch: create output directory")
	}

	sidecarPDF := filepath.Join(backupDir, doc.ID+".pdf")
	if _, err := os.Stat(sidecarPDF); err == nil {
		n, strokes, err := exportOverlay(backupDir, oracle, doc.ID, sidecarPDF, outputPath, pageOrder)
		res.Pages, res.Strokes, res.Overlaid = n, strokes, true
		return res, err
	}

	n, strokes, err := exportFresh(backupDir, oracle, doc.ID, outputPath, pageOrder)
	res.Pages, res.Strokes = n, strokes
	return res, err
}

// exportOverlay draws every page's strokes onto a copy of the document's
// sidecar PDF, one render.PDFOverlayCanvas per page, committing after each
// page (the overlay canvas re-reads its target file on every Open).
func exportOverlay(backupDir string, oracle *layout.SidecarOracle, docID, sidecarPDF, outputPath string, pageOrder []string) (int, int, error) {
	if err := copyFile(sidecarPDF, outputPath); err != nil {
		return 0, 0, errors.Wrap(err, "batch: stage sidecar pdf")
	}

	pages := 0
	strokes := 0
	for i, pageID := range pageOrder {
		rmPath := filepath.Join(backupDir, docID, pageID+".rm")
		document, ok, err := parsePage(rmPath)
		if err != nil {
			return pages, strokes, err
		}
		if !ok {
			continue
		}

		pageSize, ok := oracle.PageSize(docID, pageID)
		if !ok {
			pageSize = render.DefaultPageSize
		}

		canvas, err := render.OpenPDFOverlay(outputPath, i+1)
		if err != nil {
			return pages, strokes, errors.Wrapf(err, "batch: open overlay for page %d", i+1)
		}
		renderer := render.NewRenderer(canvas)
		if err := renderer.RenderDocument(document, pageSize); err != nil {
			return pages, strokes, errors.Wrapf(err, "batch: render page %d", i+1)
		}
		if err := canvas.Close(outputPath); err != nil {
			return pages, strokes, errors.Wrapf(err, "batch: commit page %d", i+1)
		}

		pages++
		strokes += countStrokes(document)
	}
	return pages, strokes, nil
}

// exportFresh renders every page onto a brand-new render.PDFCanvas (no
// sidecar PDF to draw over) and merges the resulting single-page files into
// outputPath in page order.
func exportFresh(backupDir string, oracle *layout.SidecarOracle, docID, outputPath string, pageOrder []string) (int, int, error) {
	var tempPaths []string
	defer func() {
		for _, p := range tempPaths {
			os.Remove(p)
		}
	}()

	pages := 0
	strokes := 0
	for i, pageID := range pageOrder {
		rmPath := filepath.Join(backupDir, docID, pageID+".rm")
		document, ok, err := parsePage(rmPath)
		if err != nil {
			return pages, strokes, err
		}
		if !ok {
			continue
		}

		pageSize, ok := oracle.PageSize(docID, pageID)
		if !ok {
			pageSize = render.DefaultPageSize
		}

		canvas := render.NewPDFCanvas()
		renderer := render.NewRenderer(canvas)
		if err := renderer.RenderDocument(document, pageSize); err != nil {
			return pages, strokes, errors.Wrapf(err, "batch: render page %d", i+1)
		}

		tmp, err := os.CreateTemp("", fmt.Sprintf("rmlines-page-%d-*.pdf", i))
		if err != nil {
			return pages, strokes, errors.Wrap(err, "batch: create temp page file")
		}
		if err := canvas.WriteTo(tmp); err != nil {
			tmp.Close()
			return pages, strokes, errors.Wrapf(err, "batch: write page %d", i+1)
		}
		tmp.Close()
		tempPaths = append(tempPaths, tmp.Name())

		pages++
		strokes += countStrokes(document)
	}

	if len(tempPaths) == 0 {
		return 0, 0, errors.New("batch: no renderable pages")
	}
	if err := mergePDFs(tempPaths, outputPath); err != nil {
		return pages, strokes, err
	}
	return pages, strokes, nil
}

// parsePage parses one .rm page file. A missing file is not an error — it
// simply means this page contributes nothing, matching the teacher's
// `if _, err := os.Stat(rmFile); err != nil { continue }` tolerance.
func parsePage(rmPath string) (*rm.Document, bool, error) {
	if _, err := os.Stat(rmPath); err != nil {
		return nil, false, nil
	}
	doc, err := rm.ParseFile(rmPath, rm.Options{})
	if err != nil {
		return nil, false, errors.Wrapf(err, "batch: parse %s", rmPath)
	}
	return doc, true, nil
}

func countStrokes(doc *rm.Document) int {
	n := 0
	for _, layer := range doc.Layers {
		n += len(layer.Strokes)
	}
	return n
}
