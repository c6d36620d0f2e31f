package bsatn

// Wrapper types so primitives satisfy Value directly — handy for tests and
// for building ad hoc Product/Sum values without a generated struct.

type Bool bool

func (v Bool) EncodeBSATN(w *Writer) { w.PutBool(bool(v)) }
func (v *Bool) DecodeBSATN(r *Reader) {
	b, err := r.GetBool()
	if err == nil {
		*v = Bool(b)
	}
}

type U8 uint8

func (v U8) EncodeBSATN(w *Writer) { w.PutU8(uint8(v)) }
func (v *U8) DecodeBSATN(r *Reader) {
	b, err := r.GetU8()
	if err == nil {
		*v = U8(b)
	}
}

type I8 int8

func (v I8) EncodeBSATN(w *Writer) { w.PutI8(int8(v)) }
func (v *I8) DecodeBSATN(r *Reader) {
	b, err := r.GetI8()
	if err == nil {
		*v = I8(b)
	}
}

type U16 uint16

func (v U16) EncodeBSATN(w *Writer) { w.PutU16(uint16(v)) }
func (v *U16) DecodeBSATN(r *Reader) {
	b, err := r.GetU16()
	if err == nil {
		*v = U16(b)
	}
}

type I16 int16

func (v I16) EncodeBSATN(w *Writer) { w.PutI16(int16(v)) }
func (v *I16) DecodeBSATN(r *Reader) {
	b, err := r.GetI16()
	if err == nil {
		*v = I16(b)
	}
}

type U32 uint32

func (v U32) EncodeBSATN(w *Writer) { w.PutU32(uint32(v)) }
func (v *U32) DecodeBSATN(r *Reader) {
	b, err := r.GetU32()
	if err == nil {
		*v = U32(b)
	}
}

type I32 int32

func (v I32) EncodeBSATN(w *Writer) { w.PutI32(int32(v)) }
func (v *I32) DecodeBSATN(r *Reader) {
	b, err := r.GetI32()
	if err == nil {
		*v = I32(b)
	}
}

type U64 uint64

func (v U64) EncodeBSATN(w *Writer) { w.PutU64(uint64(v)) }
func (v *U64) DecodeBSATN(r *Reader) {
	b, err := r.GetU64()
	if err == nil {
		*v = U64(b)
	}
}

type I64 int64

func (v I64) EncodeBSATN(w *Writer) { w.PutI64(int64(v)) }
func (v *I64) DecodeBSATN(r *Reader) {
	b, err := r.GetI64()
	if err == nil {
		*v = I64(b)
	}
}

type F32 float32

func (v F32) EncodeBSATN(w *Writer) { w.PutF32(float32(v)) }
func (v *F32) DecodeBSATN(r *Reader) {
	b, err := r.GetF32()
	if err == nil {
		*v = F32(b)
	}
}

type F64 float64

func (v F64) EncodeBSATN(w *Writer) { w.PutF64(float64(v)) }
func (v *F64) DecodeBSATN(r *Reader) {
	b, err := r.GetF64()
	if err == nil {
		*v = F64(b)
	}
}

type String string

func (v String) EncodeBSATN(w *Writer) { w.PutString(string(v)) }
func (v *String) DecodeBSATN(r *Reader) {
	s, err := r.GetString()
	if err == nil {
		*v = String(s)
	}
}

type Bytes []byte

func (v Bytes) EncodeBSATN(w *Writer) { w.PutBytes(v) }
func (v *Bytes) DecodeBSATN(r *Reader) {
	b, err := r.GetBytes()
	if err == nil {
		*v = b
	}
}
