package bsatn

// Value is implemented by every type that knows how to read and write its
// own BSATN encoding. Generated row/type code implements this directly
// instead of going through reflection, because the wire format is
// positional (declaration order, no field names) and reflection over
// struct tags cannot reconstruct that order reliably once fields are
// reordered or embedded.
//
// EncodeBSATN/DecodeBSATN never return an error directly; they record it on
// the Writer/Reader (the accumulating-error idiom used throughout this
// package) so a chain of nested calls doesn't need per-call error checks.
type Value interface {
	EncodeBSATN(w *Writer)
	DecodeBSATN(r *Reader)
}
