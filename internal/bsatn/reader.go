package bsatn

import (
	"encoding/binary"
	"io"
	"math"
)

// Reader decodes BSATN bytes. It wraps an io.Reader, tracks bytes consumed,
// enforces the configured length/recursion caps, and — like Writer —
// accumulates the first error. A decoder built on Reader either returns a
// value having advanced exactly the framed number of bytes, or it records
// an error, after which every further read fails. A failed read is not
// rolled back: bytes already taken from the underlying io.Reader (a length
// prefix, or the part of a short read that arrived) stay consumed and are
// counted in BytesRead.
type Reader struct {
	r         io.Reader
	bytesRead int
	err       error
	cap       Cap
	depth     int
}

// NewReader wraps r using the default caps.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r, cap: DefaultCap()}
}

// NewReaderWithCap wraps r using an explicit Cap.
func NewReaderWithCap(r io.Reader, c Cap) *Reader {
	return &Reader{r: r, cap: c}
}

// Error returns the first error encountered while reading, if any.
func (r *Reader) Error() error { return r.err }

// BytesRead returns the number of bytes consumed from the underlying reader
// so far, including any bytes of a short read that ended in an error.
func (r *Reader) BytesRead() int { return r.bytesRead }

func (r *Reader) recordError(err error) {
	if r.err == nil && err != nil {
		r.err = err
	}
}

// Fail records err as the terminal error for this Reader. Exported so
// higher layers (satypes, moduledef, dispatch) can report schema-level
// decode failures — an out-of-range sum tag, an unresolved type-id — using
// the same first-error-wins accounting as the low-level I/O errors.
func (r *Reader) Fail(err error) { r.recordError(err) }

func (r *Reader) readFull(p []byte) error {
	if r.err != nil {
		return r.err
	}
	n, err := io.ReadFull(r.r, p)
	r.bytesRead += n
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			err = ErrEof
		}
		r.recordError(err)
		return err
	}
	return nil
}

// EnterComposite increments the recursion-depth counter for a nested
// Product/Sum and returns a func to decrement it again; callers defer the
// returned func. Exceeding MaxRecursionDepth is recorded as an error and
// returned instead of a no-op closure.
func (r *Reader) EnterComposite() (func(), error) {
	if r.err != nil {
		return func() {}, r.err
	}
	r.depth++
	if r.depth > r.cap.MaxRecursionDepth {
		r.recordError(ErrRecursionTooDeep)
		return func() {}, r.err
	}
	return func() { r.depth-- }, nil
}

func (r *Reader) GetBool() (bool, error) {
	var b [1]byte
	if err := r.readFull(b[:]); err != nil {
		return false, err
	}
	switch b[0] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		r.recordError(ErrInvalidTag)
		return false, ErrInvalidTag
	}
}

func (r *Reader) GetU8() (uint8, error) {
	var b [1]byte
	if err := r.readFull(b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) GetI8() (int8, error) {
	v, err := r.GetU8()
	return int8(v), err
}

func (r *Reader) GetU16() (uint16, error) {
	var b [2]byte
	if err := r.readFull(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}

func (r *Reader) GetI16() (int16, error) {
	v, err := r.GetU16()
	return int16(v), err
}

func (r *Reader) GetU32() (uint32, error) {
	var b [4]byte
	if err := r.readFull(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func (r *Reader) GetI32() (int32, error) {
	v, err := r.GetU32()
	return int32(v), err
}

func (r *Reader) GetU64() (uint64, error) {
	var b [8]byte
	if err := r.readFull(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

func (r *Reader) GetI64() (int64, error) {
	v, err := r.GetU64()
	return int64(v), err
}

func (r *Reader) GetU128() ([16]byte, error) {
	var b [16]byte
	err := r.readFull(b[:])
	return b, err
}
func (r *Reader) GetI128() ([16]byte, error) { return r.GetU128() }

func (r *Reader) GetU256() ([32]byte, error) {
	var b [32]byte
	err := r.readFull(b[:])
	return b, err
}
func (r *Reader) GetI256() ([32]byte, error) { return r.GetU256() }

func (r *Reader) GetF32() (float32, error) {
	bits, err := r.GetU32()
	if err != nil {
		return 0, err
	}
	v := math.Float32frombits(bits)
	if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
		r.recordError(ErrInvalidTag)
		return 0, ErrInvalidTag
	}
	return v, nil
}

func (r *Reader) GetF64() (float64, error) {
	bits, err := r.GetU64()
	if err != nil {
		return 0, err
	}
	v := math.Float64frombits(bits)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		r.recordError(ErrInvalidTag)
		return 0, ErrInvalidTag
	}
	return v, nil
}

// GetSeqHeader reads the u32 count prefix shared by String/Bytes/Array and
// checks it against the configured MaxSequenceLength.
func (r *Reader) GetSeqHeader() (uint32, error) {
	n, err := r.GetU32()
	if err != nil {
		return 0, err
	}
	if n > r.cap.MaxSequenceLength {
		r.recordError(ErrBadLength)
		return 0, ErrBadLength
	}
	return n, nil
}

func (r *Reader) GetString() (string, error) {
	n, err := r.GetSeqHeader()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	buf := make([]byte, n)
	if err := r.readFull(buf); err != nil {
		return "", err
	}
	if !validUTF8(buf) {
		r.recordError(ErrInvalidUtf8)
		return "", ErrInvalidUtf8
	}
	return string(buf), nil
}

func (r *Reader) GetBytes() ([]byte, error) {
	n, err := r.GetSeqHeader()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return []byte{}, nil
	}
	buf := make([]byte, n)
	if err := r.readFull(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// GetSumTag reads the one-byte variant-index tag preceding a Sum payload.
func (r *Reader) GetSumTag() (uint8, error) {
	return r.GetU8()
}
