package tagged

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kj-111/remarkable-backup/internal/bitstream"
)

func encodeVaruint(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			break
		}
	}
	return out
}

func writeTag(buf *bytes.Buffer, index int, typ byte) {
	buf.Write(encodeVaruint(uint64(index)<<4 | uint64(typ)))
}

func newTaggedReader(b []byte) *Reader {
	return NewReader(bitstream.New(bytes.NewReader(b)))
}

func TestReadFileHeaderOK(t *testing.T) {
	r := bitstream.New(bytes.NewReader([]byte(Header)))
	require.NoError(t, ReadFileHeader(r))
}

func TestReadFileHeaderMismatch(t *testing.T) {
	bad := bytes.Repeat([]byte{0}, HeaderSize)
	r := bitstream.New(bytes.NewReader(bad))
	err := ReadFileHeader(r)
	require.ErrorIs(t, err, ErrBadHeader)
}

func TestReadBlockHeaderNormalEOF(t *testing.T) {
	r := bitstream.New(bytes.NewReader(nil))
	_, err := ReadBlockHeader(r)
	require.ErrorIs(t, err, io.EOF)
}

func TestReadBlockHeaderTruncatedIsStillEOF(t *testing.T) {
	r := bitstream.New(bytes.NewReader([]byte{0x0A, 0x00, 0x00}))
	_, err := ReadBlockHeader(r)
	require.ErrorIs(t, err, io.EOF)
}

func TestReadBlockHeaderFields(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint32(10)) // length
	buf.WriteByte(0)                                     // reserved
	buf.WriteByte(1)                                     // min_version
	buf.WriteByte(2)                                     // current_version
	buf.WriteByte(0x05)                                  // block_type

	r := bitstream.New(bytes.NewReader(buf.Bytes()))
	hdr, err := ReadBlockHeader(r)
	require.NoError(t, err)
	assert.EqualValues(t, 10, hdr.Length)
	assert.EqualValues(t, 1, hdr.MinVersion)
	assert.EqualValues(t, 2, hdr.CurrentVersion)
	assert.EqualValues(t, 0x05, hdr.BlockType)
}

func TestExpectTagMatchAdvances(t *testing.T) {
	var buf bytes.Buffer
	writeTag(&buf, 3, Byte1)
	buf.WriteByte(0x42)

	r := newTaggedReader(buf.Bytes())
	require.NoError(t, r.ExpectTag(3, Byte1))
	v, err := r.bs.ReadU8()
	require.NoError(t, err)
	assert.EqualValues(t, 0x42, v)
}

func TestExpectTagMismatchRewinds(t *testing.T) {
	var buf bytes.Buffer
	writeTag(&buf, 3, Byte1)
	buf.WriteByte(0x42)

	r := newTaggedReader(buf.Bytes())
	startPos, _ := r.Tell()

	err := r.ExpectTag(5, Byte4)
	require.Error(t, err)
	var mismatch *TagMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 5, mismatch.ExpectedIndex)
	assert.Equal(t, 3, mismatch.GotIndex)

	pos, _ := r.Tell()
	assert.Equal(t, startPos, pos, "cursor must rewind to tag start on mismatch")
}

func TestCheckTagNeverAdvances(t *testing.T) {
	var buf bytes.Buffer
	writeTag(&buf, 6, Length4)
	binary.Write(&buf, binary.LittleEndian, uint32(0))

	r := newTaggedReader(buf.Bytes())
	startPos, _ := r.Tell()

	assert.True(t, r.CheckTag(6, Length4))
	pos, _ := r.Tell()
	assert.Equal(t, startPos, pos)

	assert.False(t, r.CheckTag(6, Byte1))
	pos, _ = r.Tell()
	assert.Equal(t, startPos, pos)
}

func TestCheckTagFalseAtBlockEnd(t *testing.T) {
	var buf bytes.Buffer
	writeTag(&buf, 1, Byte1)
	buf.WriteByte(1)

	r := newTaggedReader(buf.Bytes())
	pos, _ := r.Tell()
	pop := r.PushBound(pos) // zero bytes remaining
	defer pop()

	assert.False(t, r.CheckTag(1, Byte1))
}

func TestReadIntFloatDoubleId(t *testing.T) {
	var buf bytes.Buffer
	writeTag(&buf, 1, Byte4)
	binary.Write(&buf, binary.LittleEndian, int32(-7))
	writeTag(&buf, 2, Byte4)
	binary.Write(&buf, binary.LittleEndian, float32(1.5))
	writeTag(&buf, 3, Byte8)
	binary.Write(&buf, binary.LittleEndian, float64(2.25))
	writeTag(&buf, 4, Id)
	buf.WriteByte(9)
	buf.Write(encodeVaruint(300))

	r := newTaggedReader(buf.Bytes())

	i, err := r.ReadInt(1)
	require.NoError(t, err)
	assert.EqualValues(t, -7, i)

	f, err := r.ReadFloat(2)
	require.NoError(t, err)
	assert.EqualValues(t, 1.5, f)

	d, err := r.ReadDouble(3)
	require.NoError(t, err)
	assert.EqualValues(t, 2.25, d)

	id, err := r.ReadId(4)
	require.NoError(t, err)
	assert.EqualValues(t, 9, id.Part1)
	assert.EqualValues(t, 300, id.Part2)
}

func TestReadSubblockAndHasSubblock(t *testing.T) {
	var buf bytes.Buffer
	writeTag(&buf, 5, Length4)
	binary.Write(&buf, binary.LittleEndian, uint32(42))
	buf.Write(make([]byte, 42))

	r := newTaggedReader(buf.Bytes())
	assert.True(t, r.HasSubblock(5))

	length, err := r.ReadSubblock(5)
	require.NoError(t, err)
	assert.EqualValues(t, 42, length)
}

func TestBytesRemainingUnboundedIsMax(t *testing.T) {
	r := newTaggedReader(nil)
	assert.Equal(t, int64(1<<62), min64(r.BytesRemaining(), 1<<62))
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
