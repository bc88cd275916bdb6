// Package tagged implements the v6 "tagged block" container protocol: a
// self-describing field/subblock framing layered on top of package
// bitstream. Every field and nested block is prefixed by a tag varuint
// encoding (index, type); see the file-level constants for the recognised
// types.
package tagged

import (
	"io"
	"math"

	"github.com/pkg/errors"

	"github.com/kj-111/remarkable-backup/internal/bitstream"
)

// Tag payload types. The lower 4 bits of a tag varuint select one of these;
// the upper bits are the field index.
const (
	Byte1   = 0x1 // 1 byte: u8 or bool
	Byte4   = 0x4 // 4 bytes: u32 or f32
	Byte8   = 0x8 // 8 bytes: f64
	Length4 = 0xC // u32 byte-length prefix, then that many bytes of content
	Id      = 0xF // CrdtId
)

// HeaderSize is the fixed width of the v6 file header.
const HeaderSize = 44

// Header is the literal ASCII header (padded with spaces to HeaderSize)
// every v6 .lines file must begin with.
const Header = "reMarkable .lines file, version=6           "

// ErrBadHeader is returned when the first HeaderSize bytes of a file do not
// match Header exactly.
var ErrBadHeader = errors.New("tagged: bad file header")

// ErrBadSubblockLength flags a subblock whose declared byte length is
// inconsistent with its expected element size (e.g. a points subblock
// whose length isn't a multiple of 14). Callers may tolerate this by
// seeking past the block rather than treating it as fatal.
var ErrBadSubblockLength = errors.New("tagged: bad subblock length")

// ErrReservedByteNonZero flags a block header whose reserved byte (the
// single byte following the length field) was nonzero. The source format
// never validates this byte, but this decoder does: the rest of the header
// (and hence the block's length, needed to skip its body) is still fully
// populated when this error is returned, so callers can treat it the same
// as any other malformed-block-body error — log it and seek to block_end.
var ErrReservedByteNonZero = errors.New("tagged: reserved byte after block length is nonzero")

// TagMismatchError reports an expect_tag failure: the tag actually present
// did not carry the expected (index, type) pair.
type TagMismatchError struct {
	ExpectedIndex int
	ExpectedType  byte
	GotIndex      int
	GotType       byte
	Pos           int64
}

func (e *TagMismatchError) Error() string {
	return errors.Errorf(
		"tagged: tag mismatch at offset %d: expected index=%d type=0x%x, got index=%d type=0x%x",
		e.Pos, e.ExpectedIndex, e.ExpectedType, e.GotIndex, e.GotType,
	).Error()
}

// BlockHeader is the 8-byte header that precedes every top-level block's
// payload.
type BlockHeader struct {
	Length         uint32
	MinVersion     byte
	CurrentVersion byte
	BlockType      byte
}

// Reader drives the tagged-block protocol over a single seekable
// bitstream.Reader. Unlike re-slicing each block into its own sub-reader,
// Reader stays on one continuous stream and tracks an optional block-end
// bound, so callers can always recover from a malformed block body by
// seeking the shared stream back to that bound.
type Reader struct {
	bs       *bitstream.Reader
	blockEnd int64 // absolute offset; -1 means unbounded
}

// NewReader wraps bs for tagged-block decoding.
func NewReader(bs *bitstream.Reader) *Reader {
	return &Reader{bs: bs, blockEnd: -1}
}

// Tell returns the current absolute stream offset.
func (r *Reader) Tell() (int64, error) { return r.bs.Tell() }

// Seek moves the shared stream to an absolute offset, discarding any
// partially-consumed block state. This is the block-skip-recovery
// primitive: callers always seek absolutely rather than trusting their own
// notion of how much of a block body they've read.
func (r *Reader) Seek(abs int64) error { return r.bs.Seek(abs) }

// BytesRemaining returns how many bytes remain before the current block
// bound, or math.MaxInt64 if no bound is active.
func (r *Reader) BytesRemaining() int64 {
	if r.blockEnd < 0 {
		return math.MaxInt64
	}
	pos, err := r.Tell()
	if err != nil {
		return 0
	}
	rem := r.blockEnd - pos
	if rem < 0 {
		return 0
	}
	return rem
}

// PushBound sets the active block-end bound to end and returns a function
// that restores the previous bound. Callers should defer the returned
// function when entering a block or subblock scope.
func (r *Reader) PushBound(end int64) func() {
	prev := r.blockEnd
	r.blockEnd = end
	return func() { r.blockEnd = prev }
}

// BlockEnd returns the currently active bound, or -1 if unbounded.
func (r *Reader) BlockEnd() int64 { return r.blockEnd }

// Raw exposes the underlying bitstream.Reader for payloads that are not
// individually tagged, such as the flat array of Points inside a line's
// points subblock, or a subblock's leading item_type byte.
func (r *Reader) Raw() *bitstream.Reader { return r.bs }

// mark is the scoped save/restore cursor sentinel described in spec.md §9:
// it captures the stream position on entry and restores it unless
// explicitly committed.
type mark struct {
	r         *Reader
	pos       int64
	committed bool
}

func (r *Reader) save() (*mark, error) {
	pos, err := r.Tell()
	if err != nil {
		return nil, err
	}
	return &mark{r: r, pos: pos}, nil
}

func (m *mark) commit() { m.committed = true }

func (m *mark) restore() error {
	if m.committed {
		return nil
	}
	return m.r.Seek(m.pos)
}

// readTag reads the next tag varuint and splits it into (index, type).
func (r *Reader) readTag() (index int, typ byte, err error) {
	v, err := r.bs.ReadVaruint()
	if err != nil {
		return 0, 0, err
	}
	return int(v >> 4), byte(v & 0x0F), nil
}

// ExpectTag reads the next tag; if it does not carry (index, typ), the
// cursor is rewound to the tag's start and a *TagMismatchError is returned.
func (r *Reader) ExpectTag(index int, typ byte) error {
	m, err := r.save()
	if err != nil {
		return err
	}
	gotIndex, gotType, err := r.readTag()
	if err != nil {
		_ = m.restore()
		return errors.Wrap(err, "tagged: expect_tag")
	}
	if gotIndex != index || gotType != typ {
		_ = m.restore()
		return &TagMismatchError{
			ExpectedIndex: index, ExpectedType: typ,
			GotIndex: gotIndex, GotType: gotType,
			Pos: m.pos,
		}
	}
	m.commit()
	return nil
}

// CheckTag is pure lookahead: it never advances the cursor. It returns
// false at the current block bound or on any read failure.
func (r *Reader) CheckTag(index int, typ byte) bool {
	if r.BytesRemaining() <= 0 {
		return false
	}
	m, err := r.save()
	if err != nil {
		return false
	}
	defer m.restore()

	gotIndex, gotType, err := r.readTag()
	if err != nil {
		return false
	}
	return gotIndex == index && gotType == typ
}

// ReadBool expects a Byte1 tag at index and reads its boolean payload.
func (r *Reader) ReadBool(index int) (bool, error) {
	if err := r.ExpectTag(index, Byte1); err != nil {
		return false, err
	}
	return r.bs.ReadBool()
}

// ReadByte expects a Byte1 tag at index and reads its u8 payload.
func (r *Reader) ReadByte(index int) (uint8, error) {
	if err := r.ExpectTag(index, Byte1); err != nil {
		return 0, err
	}
	return r.bs.ReadU8()
}

// ReadInt expects a Byte4 tag at index and reads its 4-byte payload as a
// signed 32-bit integer.
func (r *Reader) ReadInt(index int) (int32, error) {
	if err := r.ExpectTag(index, Byte4); err != nil {
		return 0, err
	}
	v, err := r.bs.ReadU32()
	if err != nil {
		return 0, err
	}
	return int32(v), nil
}

// ReadFloat expects a Byte4 tag at index and reads its f32 payload.
func (r *Reader) ReadFloat(index int) (float32, error) {
	if err := r.ExpectTag(index, Byte4); err != nil {
		return 0, err
	}
	return r.bs.ReadF32()
}

// ReadDouble expects a Byte8 tag at index and reads its f64 payload.
func (r *Reader) ReadDouble(index int) (float64, error) {
	if err := r.ExpectTag(index, Byte8); err != nil {
		return 0, err
	}
	return r.bs.ReadF64()
}

// ReadId expects an Id tag at index and reads its CrdtId payload.
func (r *Reader) ReadId(index int) (bitstream.CrdtId, error) {
	if err := r.ExpectTag(index, Id); err != nil {
		return bitstream.CrdtId{}, err
	}
	return r.bs.ReadCrdtId()
}

// ReadSubblock expects a Length4 tag at index and returns the declared
// byte length of the nested content that follows. The caller is
// responsible for bounding its own sub-reads against that length.
func (r *Reader) ReadSubblock(index int) (uint32, error) {
	if err := r.ExpectTag(index, Length4); err != nil {
		return 0, err
	}
	return r.bs.ReadU32()
}

// HasSubblock is the lookahead variant of ReadSubblock.
func (r *Reader) HasSubblock(index int) bool {
	return r.CheckTag(index, Length4)
}

// ReadFileHeader consumes and validates the 44-byte file header.
func ReadFileHeader(bs *bitstream.Reader) error {
	b, err := bs.ReadExact(HeaderSize)
	if err != nil {
		return errors.Wrap(err, "tagged: read file header")
	}
	if string(b) != Header {
		return ErrBadHeader
	}
	return nil
}

// ReadBlockHeader reads the 8-byte top-level block header. EOF while
// reading the length or the reserved byte (whether before the first byte
// or partway through the length) is the normal end-of-file signal and is
// returned as io.EOF, so callers can distinguish it from a malformed block
// body with errors.Is. EOF while reading min_version, current_version or
// block_type is returned as the wrapped bitstream error (wrapping
// io.ErrUnexpectedEOF), not as io.EOF.
//
// A nonzero reserved byte does not abort the read: the remaining header
// fields (and so hdr.Length, which the caller needs to skip the block's
// body regardless) are still populated, and ErrReservedByteNonZero is
// returned alongside a fully usable hdr — the recorded open-question
// decision (spec.md §9) to validate this byte rather than silently ignore
// it, without making it fatal for the whole file.
func ReadBlockHeader(bs *bitstream.Reader) (BlockHeader, error) {
	var hdr BlockHeader

	length, err := bs.ReadU32()
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return hdr, io.EOF
		}
		return hdr, err
	}
	hdr.Length = length

	reserved, err := bs.ReadU8()
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return hdr, io.EOF
		}
		return hdr, errors.Wrap(err, "tagged: block header reserved byte")
	}
	if hdr.MinVersion, err = bs.ReadU8(); err != nil {
		return hdr, errors.Wrap(err, "tagged: block header min_version")
	}
	if hdr.CurrentVersion, err = bs.ReadU8(); err != nil {
		return hdr, errors.Wrap(err, "tagged: block header current_version")
	}
	if hdr.BlockType, err = bs.ReadU8(); err != nil {
		return hdr, errors.Wrap(err, "tagged: block header block_type")
	}
	if reserved != 0 {
		return hdr, ErrReservedByteNonZero
	}
	return hdr, nil
}
