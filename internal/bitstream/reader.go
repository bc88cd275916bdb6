// Package bitstream decodes the byte-level primitives used by the
// reMarkable v6 .lines container: fixed-width little-endian integers,
// LEB128 varuints, and CRDT identifiers, all read from a seekable source.
package bitstream

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"
)

// ErrUnexpectedEOF is returned (wrapped) whenever a typed read cannot be
// satisfied because the underlying source ran out of bytes.
var ErrUnexpectedEOF = io.ErrUnexpectedEOF

// maxVarintBytes bounds how many bytes a varuint may span before it is
// treated as malformed rather than merely long. 10 bytes is exactly enough
// for a full 64-bit value with LEB128's 7-bits-per-byte encoding (9 bytes
// carry only 63 bits).
const maxVarintBytes = 10

// Reader wraps a seekable little-endian byte source and exposes the typed
// reads the tagged-block protocol is built on.
type Reader struct {
	src io.ReadSeeker
}

// New wraps src for primitive reads.
func New(src io.ReadSeeker) *Reader {
	return &Reader{src: src}
}

// Tell returns the current absolute offset into the source.
func (r *Reader) Tell() (int64, error) {
	return r.src.Seek(0, io.SeekCurrent)
}

// Seek moves the cursor to an absolute offset.
func (r *Reader) Seek(abs int64) error {
	_, err := r.src.Seek(abs, io.SeekStart)
	return errors.Wrap(err, "bitstream: seek")
}

// ReadExact reads exactly n bytes or fails with a wrapped ErrUnexpectedEOF.
func (r *Reader) ReadExact(n int) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.src, buf); err != nil {
		pos, _ := r.Tell()
		return nil, errors.Wrapf(ErrUnexpectedEOF, "bitstream: read %d bytes at offset %d: %v", n, pos, err)
	}
	return buf, nil
}

// ReadBool reads a single byte as a boolean (nonzero == true).
func (r *Reader) ReadBool() (bool, error) {
	b, err := r.ReadU8()
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

// ReadU8 reads a single unsigned byte.
func (r *Reader) ReadU8() (uint8, error) {
	b, err := r.ReadExact(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadU16 reads a little-endian uint16.
func (r *Reader) ReadU16() (uint16, error) {
	b, err := r.ReadExact(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadU32 reads a little-endian uint32.
func (r *Reader) ReadU32() (uint32, error) {
	b, err := r.ReadExact(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadF32 reads a little-endian IEEE-754 single-precision float.
func (r *Reader) ReadF32() (float32, error) {
	b, err := r.ReadExact(4)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b)), nil
}

// ReadF64 reads a little-endian IEEE-754 double-precision float.
func (r *Reader) ReadF64() (float64, error) {
	b, err := r.ReadExact(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

// ReadVaruint decodes an unsigned LEB128 varint: 7 bits per byte, low byte
// first, top bit of each byte signals continuation. Sequences longer than
// maxVarintBytes without a terminating byte are rejected.
func (r *Reader) ReadVaruint() (uint64, error) {
	var result uint64
	var shift uint
	for i := 0; i < maxVarintBytes; i++ {
		b, err := r.ReadU8()
		if err != nil {
			return 0, errors.Wrap(err, "bitstream: varuint")
		}
		result |= uint64(b&0x7F) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
	}
	return 0, errors.New("bitstream: varuint exceeds 10 bytes without terminator")
}

// CrdtId is a u8/varuint identifier pair. Its contents are opaque to the
// decoder; it is only read to advance the cursor correctly.
type CrdtId struct {
	Part1 uint8
	Part2 uint64
}

// ReadCrdtId reads a CrdtId (u8 followed by a varuint).
func (r *Reader) ReadCrdtId() (CrdtId, error) {
	part1, err := r.ReadU8()
	if err != nil {
		return CrdtId{}, errors.Wrap(err, "bitstream: crdt id part1")
	}
	part2, err := r.ReadVaruint()
	if err != nil {
		return CrdtId{}, errors.Wrap(err, "bitstream: crdt id part2")
	}
	return CrdtId{Part1: part1, Part2: part2}, nil
}
