package rm

import (
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/kj-111/remarkable-backup/internal/bitstream"
	"github.com/kj-111/remarkable-backup/internal/tagged"
)

// Block types recognised at the top level (spec.md §4.B). Only LineItem
// contributes strokes; everything else is skipped by seeking past it.
const (
	blockMigrationInfo = 0x00
	blockSceneTree     = 0x01
	blockTreeNode      = 0x02
	blockGlyphItem     = 0x03
	blockGroupItem     = 0x04
	blockLineItem      = 0x05
	blockTextItem      = 0x06
	blockRootText      = 0x07
	blockTombstoneItem = 0x08
	blockAuthorIds     = 0x09
	blockPageInfo      = 0x0A
	blockSceneInfo     = 0x0D
)

// itemTypeLine is the only scene-item payload type this decoder materializes.
const itemTypeLine = 0x03

// pointSize is the on-disk size of one Point: two float32s, two uint16s,
// two uint8s.
const pointSize = 14

// Diagnostic describes one recoverable event encountered while parsing, for
// verbose callers (spec.md §7: "Verbose callers may receive a per-block
// diagnostic stream").
type Diagnostic struct {
	Offset int64
	Detail string
}

// Options controls optional parser behavior.
type Options struct {
	// OnDiagnostic, if set, is called for every recoverable block-level
	// error (tag mismatch, truncated payload, nonzero reserved header byte,
	// and so on). A LineItem skipped without error (a tombstone, a missing
	// value subblock, or an item type other than line) is not reported.
	// Parsing always continues regardless of what this callback does.
	OnDiagnostic func(Diagnostic)
}

// ParseFile opens path and parses it as a v6 .lines file.
func ParseFile(path string, opts Options) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "rm: open file")
	}
	defer f.Close()
	return Parse(f, opts)
}

// Parse decodes a v6 .lines document from a seekable source.
//
// A malformed header is fatal (ErrBadHeader, wrapped). Truncation between
// block headers is normal termination: Parse returns the Document built so
// far with a nil error. A malformed block body never fails the whole
// parse — the partial stroke is discarded, the cursor is forced to that
// block's end, and parsing continues with the next block.
func Parse(src io.ReadSeeker, opts Options) (*Document, error) {
	bs := bitstream.New(src)
	if err := tagged.ReadFileHeader(bs); err != nil {
		return nil, errors.Wrap(err, "rm: file header")
	}

	tr := tagged.NewReader(bs)
	doc := &Document{Layers: []Layer{{Name: defaultLayerName, Visible: true}}}

	for {
		pos, err := tr.Tell()
		if err != nil {
			return doc, nil
		}

		hdr, err := tagged.ReadBlockHeader(bs)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return doc, nil
			}
			if !errors.Is(err, tagged.ErrReservedByteNonZero) {
				// Any other header-field error is truncation mid-header:
				// normal termination, same as EOF.
				return doc, nil
			}
			// Reserved byte was nonzero: hdr is still fully populated, so
			// treat this exactly like a malformed block body — diagnose,
			// skip to block_end, keep going.
			diag(opts, tr, "block header: "+err.Error())
		}

		headerEnd := pos + 8
		blockEnd := headerEnd + int64(hdr.Length)

		if err == nil && hdr.BlockType == blockLineItem {
			if stroke, ok := parseLineItemBlock(tr, blockEnd, opts); ok {
				layer := &doc.Layers[0]
				layer.Strokes = append(layer.Strokes, stroke)
			}
		}

		// Block-skip discipline (spec.md §9): never trust the body-level
		// cursor, always seek absolutely to the declared block end.
		if err := tr.Seek(blockEnd); err != nil {
			return doc, nil
		}
	}
}

func diag(opts Options, tr *tagged.Reader, detail string) {
	if opts.OnDiagnostic == nil {
		return
	}
	pos, _ := tr.Tell()
	opts.OnDiagnostic(Diagnostic{Offset: pos, Detail: detail})
}

// parseLineItemBlock reads one LineItem block's scene-item envelope and, if
// it is a live (non-tombstone) line, its payload. Every failure path
// returns (Stroke{}, false); the caller always reseeks to blockEnd
// regardless of what this function consumed.
func parseLineItemBlock(tr *tagged.Reader, blockEnd int64, opts Options) (Stroke, bool) {
	pop := tr.PushBound(blockEnd)
	defer pop()

	if _, err := tr.ReadId(1); err != nil { // parent id, discarded
		diag(opts, tr, "parent id: "+err.Error())
		return Stroke{}, false
	}
	if _, err := tr.ReadId(2); err != nil { // item id, discarded
		diag(opts, tr, "item id: "+err.Error())
		return Stroke{}, false
	}
	if _, err := tr.ReadId(3); err != nil { // left sibling id, discarded
		diag(opts, tr, "left id: "+err.Error())
		return Stroke{}, false
	}
	if _, err := tr.ReadId(4); err != nil { // right sibling id, discarded
		diag(opts, tr, "right id: "+err.Error())
		return Stroke{}, false
	}

	deletedLength, err := tr.ReadInt(5)
	if err != nil {
		diag(opts, tr, "deleted_length: "+err.Error())
		return Stroke{}, false
	}
	if deletedLength != 0 {
		// Tombstone: logically deleted, contributes nothing.
		return Stroke{}, false
	}

	if !tr.HasSubblock(6) {
		return Stroke{}, false
	}
	valueLength, err := tr.ReadSubblock(6)
	if err != nil {
		diag(opts, tr, "value subblock: "+err.Error())
		return Stroke{}, false
	}
	subStart, _ := tr.Tell()
	subEnd := subStart + int64(valueLength)
	popSub := tr.PushBound(subEnd)
	defer popSub()

	itemType, err := tr.Raw().ReadU8()
	if err != nil {
		diag(opts, tr, "item_type: "+err.Error())
		return Stroke{}, false
	}
	if itemType != itemTypeLine {
		return Stroke{}, false
	}

	stroke, err := parseLineData(tr)
	if err != nil {
		diag(opts, tr, "line payload: "+err.Error())
		return Stroke{}, false
	}
	if len(stroke.Points) == 0 {
		return Stroke{}, false
	}
	return stroke, true
}

// parseLineData reads the Line payload fields inside the value subblock
// (spec.md §4.C).
func parseLineData(tr *tagged.Reader) (Stroke, error) {
	toolID, err := tr.ReadInt(1)
	if err != nil {
		return Stroke{}, errors.Wrap(err, "tool_id")
	}
	colorID, err := tr.ReadInt(2)
	if err != nil {
		return Stroke{}, errors.Wrap(err, "color_id")
	}
	thicknessScale, err := tr.ReadDouble(3)
	if err != nil {
		return Stroke{}, errors.Wrap(err, "thickness_scale")
	}
	if _, err := tr.ReadFloat(4); err != nil { // starting_length, discarded
		return Stroke{}, errors.Wrap(err, "starting_length")
	}

	pointsLength, err := tr.ReadSubblock(5)
	if err != nil {
		return Stroke{}, errors.Wrap(err, "points subblock")
	}
	numPoints := int(pointsLength) / pointSize
	// A nonzero remainder is a format error per spec.md §4.C; we tolerate
	// it rather than failing the whole stroke, since the caller always
	// reseeks to the enclosing block's end regardless of what we read here.

	points := make([]Point, 0, numPoints)
	raw := tr.Raw()
	for i := 0; i < numPoints; i++ {
		p, err := readPoint(raw)
		if err != nil {
			return Stroke{}, errors.Wrap(err, "point")
		}
		points = append(points, p)
	}

	// Index 6 (timestamp id) is discarded and, per spec.md §4.C, may or may
	// not be present; since the caller always reseeks to the block's end
	// afterward, there is no need to consume it here.

	return Stroke{
		Pen:            NewPenRef(toolID),
		Color:          NewColorRef(colorID),
		ThicknessScale: thicknessScale,
		Points:         points,
	}, nil
}

func readPoint(r *bitstream.Reader) (Point, error) {
	var p Point
	var err error
	if p.X, err = r.ReadF32(); err != nil {
		return p, err
	}
	if p.Y, err = r.ReadF32(); err != nil {
		return p, err
	}
	if p.Speed, err = r.ReadU16(); err != nil {
		return p, err
	}
	if p.Width, err = r.ReadU16(); err != nil {
		return p, err
	}
	if p.Direction, err = r.ReadU8(); err != nil {
		return p, err
	}
	if p.Pressure, err = r.ReadU8(); err != nil {
		return p, err
	}
	return p, nil
}
