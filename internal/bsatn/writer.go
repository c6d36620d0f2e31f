package bsatn

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"unicode/utf8"
)

// Writer encodes values into BSATN's little-endian, tagless-primitive wire
// format. It wraps an io.Writer and accumulates the first error encountered,
// matching the teacher library's accumulating-writer idiom: callers chain
// Put* calls and check Error() once at the end instead of threading an
// error return through every call.
type Writer struct {
	w            io.Writer
	err          error
	bytesWritten int
}

// NewWriter wraps w. A *bytes.Buffer is the common case.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Bytes returns the accumulated bytes if the underlying writer is a
// *bytes.Buffer and no error occurred.
func (w *Writer) Bytes() []byte {
	if w.err != nil {
		return nil
	}
	if bb, ok := w.w.(*bytes.Buffer); ok {
		return bb.Bytes()
	}
	return nil
}

// Error returns the first error encountered while writing, if any.
func (w *Writer) Error() error { return w.err }

// BytesWritten returns the number of bytes successfully written so far.
func (w *Writer) BytesWritten() int { return w.bytesWritten }

func (w *Writer) recordError(err error) {
	if w.err == nil && err != nil {
		w.err = err
	}
}

func (w *Writer) write(p []byte) {
	if w.err != nil {
		return
	}
	n, err := w.w.Write(p)
	w.bytesWritten += n
	w.recordError(err)
}

// PutBool writes one byte: 0 or 1.
func (w *Writer) PutBool(v bool) {
	if v {
		w.write([]byte{1})
	} else {
		w.write([]byte{0})
	}
}

// PutU8 / PutI8 write a single raw byte, no tag.
func (w *Writer) PutU8(v uint8) { w.write([]byte{v}) }
func (w *Writer) PutI8(v int8)  { w.write([]byte{byte(v)}) }

func (w *Writer) PutU16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.write(b[:])
}
func (w *Writer) PutI16(v int16) { w.PutU16(uint16(v)) }

func (w *Writer) PutU32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.write(b[:])
}
func (w *Writer) PutI32(v int32) { w.PutU32(uint32(v)) }

func (w *Writer) PutU64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.write(b[:])
}
func (w *Writer) PutI64(v int64) { w.PutU64(uint64(v)) }

// PutU128 / PutI128 write 16 raw little-endian bytes.
func (w *Writer) PutU128(v [16]byte) { w.write(v[:]) }
func (w *Writer) PutI128(v [16]byte) { w.write(v[:]) }

// PutU256 / PutI256 write 32 raw little-endian bytes.
func (w *Writer) PutU256(v [32]byte) { w.write(v[:]) }
func (w *Writer) PutI256(v [32]byte) { w.write(v[:]) }

func (w *Writer) PutF32(v float32) {
	if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
		w.recordError(ErrInvalidTag)
		return
	}
	w.PutU32(math.Float32bits(v))
}

func (w *Writer) PutF64(v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		w.recordError(ErrInvalidTag)
		return
	}
	w.PutU64(math.Float64bits(v))
}

// PutSeqHeader writes the u32 little-endian count prefix shared by String,
// Bytes, and Array framing.
func (w *Writer) PutSeqHeader(n uint32) { w.PutU32(n) }

// PutString writes a u32 length prefix followed by the raw UTF-8 bytes.
func (w *Writer) PutString(s string) {
	if !utf8.ValidString(s) {
		w.recordError(ErrInvalidUtf8)
		return
	}
	b := []byte(s)
	w.PutSeqHeader(uint32(len(b)))
	w.write(b)
}

// PutBytes writes a u32 length prefix followed by the raw bytes.
func (w *Writer) PutBytes(b []byte) {
	w.PutSeqHeader(uint32(len(b)))
	w.write(b)
}

// PutSumTag writes the one-byte variant-index tag that precedes every Sum
// payload (Option included).
func (w *Writer) PutSumTag(index uint8) { w.write([]byte{index}) }

// PutOptionSome / PutOptionNone use the canonical Option convention from
// spec §4.1: variant 0 = "some" (payload follows), variant 1 = "none"
// (unit payload, nothing follows).
func (w *Writer) PutOptionSome() { w.PutSumTag(0) }
func (w *Writer) PutOptionNone() { w.PutSumTag(1) }

// PutNamePresent / PutNameAbsent encode the descriptor-only Option<String>
// used for field/variant names: tag 0 = present (name follows), tag 1 =
// absent. Numerically identical to PutOptionSome/PutOptionNone — the two
// conventions were only ever apparently contradictory; both agree 0 means
// "value present". Kept as separate named methods so a call site documents
// which Option it is writing rather than leaving that to a comment.
func (w *Writer) PutNamePresent(name string) {
	w.PutSumTag(0)
	w.PutString(name)
}
func (w *Writer) PutNameAbsent() { w.PutSumTag(1) }
