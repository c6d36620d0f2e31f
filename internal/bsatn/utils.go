package bsatn

import (
	"bytes"
	"unicode/utf8"
)

func validUTF8(b []byte) bool { return utf8.Valid(b) }

// Marshal encodes v, returning the full byte slice or the first error v's
// EncodeBSATN recorded.
func Marshal(v Value) ([]byte, error) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	v.EncodeBSATN(w)
	if w.Error() != nil {
		return nil, w.Error()
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes b into v using the default caps, then requires that the
// whole input was consumed (TrailingBytes otherwise).
func Unmarshal(b []byte, v Value) error {
	return UnmarshalWithCap(b, v, DefaultCap())
}

// UnmarshalWithCap is Unmarshal with explicit sequence/recursion caps.
func UnmarshalWithCap(b []byte, v Value, c Cap) error {
	r := NewReaderWithCap(bytes.NewReader(b), c)
	v.DecodeBSATN(r)
	if r.Error() != nil {
		return r.Error()
	}
	if r.BytesRead() != len(b) {
		return ErrTrailingBytes
	}
	return nil
}
