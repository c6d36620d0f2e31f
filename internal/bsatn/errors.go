package bsatn

import "errors"

// Error taxonomy from the wire-format contract: a decoder either returns a
// value and advances exactly the bytes the framing dictates, or fails and
// leaves the Reader in a terminal error state. These are the only failure
// modes the codec itself produces. Bytes read before a failure are not
// given back (see Reader).
var (
	ErrEof           = errors.New("bsatn: unexpected end of input")
	ErrInvalidTag    = errors.New("bsatn: invalid tag byte")
	ErrInvalidUtf8   = errors.New("bsatn: invalid utf-8 string")
	ErrTrailingBytes = errors.New("bsatn: trailing bytes after decode")
	ErrBadLength     = errors.New("bsatn: length prefix exceeds configured cap")
	ErrRecursionTooDeep = errors.New("bsatn: nested product/sum exceeds max recursion depth")
)
