// Package satypes implements the algebraic type model and typespace: the
// in-memory representation of AlgebraicType and the ordered vector that
// assigns stable type-ids to every composite shape crossing the guest/host
// boundary.
package satypes

import "github.com/clockworklabs/spacetimedb-go-bindings/internal/bsatn"

// Kind is the tag numbering used when an AlgebraicType value is itself
// BSATN-encoded (it is self-describing — the module descriptor IS a tree of
// these). The ordering is part of the wire contract: Ref=0 .. F64=19.
type Kind uint8

const (
	KindRef Kind = iota
	KindSum
	KindProduct
	KindArray
	KindString
	KindBool
	KindI8
	KindU8
	KindI16
	KindU16
	KindI32
	KindU32
	KindI64
	KindU64
	KindI128
	KindU128
	KindI256
	KindU256
	KindF32
	KindF64
)

// TypeID is the 0-based index of an entry in a Typespace.
type TypeID uint32

// AlgebraicType is the union described in spec §3. Only the field matching
// Kind is meaningful; the rest are zero.
type AlgebraicType struct {
	Kind    Kind
	Ref     TypeID
	Sum     *SumType
	Product *ProductType
	Array   *ArrayType
}

// SumVariant is one arm of a tagged union: optional name, payload type-id.
type SumVariant struct {
	Name *string
	Type TypeID
}

// SumType is an ordered sequence of variants — tagged unions, enums, and
// the canonical two-variant Option.
type SumType struct {
	Variants []SumVariant
}

// ProductElement is one field of a struct/tuple: optional name, type-id.
type ProductElement struct {
	Name *string
	Type TypeID
}

// ProductType is an ordered sequence of elements. The empty product is the
// unit type, reserved by convention at type-id 0 of every typespace.
type ProductType struct {
	Elements []ProductElement
}

// ArrayType is a homogeneous sequence of a single element type.
type ArrayType struct {
	Elem TypeID
}

// Constructors for the unit (payload-less) kinds.
func RefType(id TypeID) AlgebraicType { return AlgebraicType{Kind: KindRef, Ref: id} }
func StringType() AlgebraicType       { return AlgebraicType{Kind: KindString} }
func BoolType() AlgebraicType         { return AlgebraicType{Kind: KindBool} }
func I8Type() AlgebraicType           { return AlgebraicType{Kind: KindI8} }
func U8Type() AlgebraicType           { return AlgebraicType{Kind: KindU8} }
func I16Type() AlgebraicType          { return AlgebraicType{Kind: KindI16} }
func U16Type() AlgebraicType          { return AlgebraicType{Kind: KindU16} }
func I32Type() AlgebraicType          { return AlgebraicType{Kind: KindI32} }
func U32Type() AlgebraicType          { return AlgebraicType{Kind: KindU32} }
func I64Type() AlgebraicType          { return AlgebraicType{Kind: KindI64} }
func U64Type() AlgebraicType          { return AlgebraicType{Kind: KindU64} }
func I128Type() AlgebraicType         { return AlgebraicType{Kind: KindI128} }
func U128Type() AlgebraicType         { return AlgebraicType{Kind: KindU128} }
func I256Type() AlgebraicType         { return AlgebraicType{Kind: KindI256} }
func U256Type() AlgebraicType         { return AlgebraicType{Kind: KindU256} }
func F32Type() AlgebraicType          { return AlgebraicType{Kind: KindF32} }
func F64Type() AlgebraicType          { return AlgebraicType{Kind: KindF64} }

func ArrayTypeOf(elem TypeID) AlgebraicType {
	return AlgebraicType{Kind: KindArray, Array: &ArrayType{Elem: elem}}
}

func ProductTypeOf(elems ...ProductElement) AlgebraicType {
	return AlgebraicType{Kind: KindProduct, Product: &ProductType{Elements: elems}}
}

func SumTypeOf(variants ...SumVariant) AlgebraicType {
	return AlgebraicType{Kind: KindSum, Sum: &SumType{Variants: variants}}
}

// NamedElement builds a ProductElement/SumVariant with a present name.
func NamedElement(name string, t TypeID) ProductElement {
	n := name
	return ProductElement{Name: &n, Type: t}
}

func UnnamedElement(t TypeID) ProductElement { return ProductElement{Type: t} }

func NamedVariant(name string, t TypeID) SumVariant {
	n := name
	return SumVariant{Name: &n, Type: t}
}

// OptionOf builds the canonical two-variant Sum: variant 0 "some" carrying
// inner, variant 1 "none" carrying unit. unitRef must be the type-id of the
// empty Product (unit) in the same typespace — conventionally TypeID(0).
func OptionOf(inner TypeID, unitRef TypeID) AlgebraicType {
	return SumTypeOf(NamedVariant("some", inner), NamedVariant("none", unitRef))
}

// SumOfUnitVariants builds a payload-less enum: a Sum whose variants all
// carry unitRef, one per name, in declaration order. The wire shape is a
// real Sum — variant index is the 1-byte tag, payload is the (empty) unit
// Product — per spec §4.2's rule that an encoder must never shortcut Sum
// framing just because every variant happens to be unit. Grounded in the
// teacher's internal/bsatn/enum.go Variant{Index, Value} idiom, generalized
// from an ad hoc (index, interface{}) pair to a properly typed AlgebraicType
// built from this package's Sum/Product constructors.
func SumOfUnitVariants(unitRef TypeID, names ...string) AlgebraicType {
	variants := make([]SumVariant, len(names))
	for i, name := range names {
		variants[i] = NamedVariant(name, unitRef)
	}
	return SumTypeOf(variants...)
}

// SmallestUintFor returns the narrowest unsigned integer width, in bits,
// that can hold a discriminant in [0, n). This never affects the wire
// format — Sum variants are always framed as spec §4.2 describes — it only
// sizes the in-memory discriminant a generated dispatch table uses to pick
// a variant quickly, e.g. a byte-wide jump table instead of a four-byte one.
func SmallestUintFor(n int) int {
	switch {
	case n <= 1<<8:
		return 8
	case n <= 1<<16:
		return 16
	default:
		return 32
	}
}

// EncodeBSATN writes the self-description of at per spec §4.1/§6: a Sum tag
// (the Kind) followed by the payload for Ref/Sum/Product/Array, or nothing
// for the sixteen unit kinds.
func (at AlgebraicType) EncodeBSATN(w *bsatn.Writer) {
	w.PutSumTag(uint8(at.Kind))
	switch at.Kind {
	case KindRef:
		w.PutU32(uint32(at.Ref))
	case KindSum:
		encodeSumType(w, at.Sum)
	case KindProduct:
		encodeProductType(w, at.Product)
	case KindArray:
		w.PutU32(uint32(at.Array.Elem))
	default:
		// unit kinds: no payload
	}
}

func encodeSumType(w *bsatn.Writer, st *SumType) {
	w.PutSeqHeader(uint32(len(st.Variants)))
	for _, v := range st.Variants {
		if v.Name != nil {
			w.PutNamePresent(*v.Name)
		} else {
			w.PutNameAbsent()
		}
		w.PutU32(uint32(v.Type))
	}
}

func encodeProductType(w *bsatn.Writer, pt *ProductType) {
	w.PutSeqHeader(uint32(len(pt.Elements)))
	for _, e := range pt.Elements {
		if e.Name != nil {
			w.PutNamePresent(*e.Name)
		} else {
			w.PutNameAbsent()
		}
		w.PutU32(uint32(e.Type))
	}
}

// EncodeProductFields writes pt's element count + name-tagged elements
// inline, with no leading Sum tag — the framing a descriptor field that is
// itself structurally a Product (not a type-id reference to one) uses, per
// spec §6 item 4. Exported for moduledef's reducer-params field, which
// embeds a Product directly rather than storing a Ref to one.
func EncodeProductFields(w *bsatn.Writer, pt *ProductType) {
	encodeProductType(w, pt)
}

// DecodeBSATN reads a self-description previously written by EncodeBSATN.
func (at *AlgebraicType) DecodeBSATN(r *bsatn.Reader) {
	tag, err := r.GetSumTag()
	if err != nil {
		return
	}
	at.Kind = Kind(tag)
	switch at.Kind {
	case KindRef:
		v, err := r.GetU32()
		if err != nil {
			return
		}
		at.Ref = TypeID(v)
	case KindSum:
		st, ok := decodeSumType(r)
		if !ok {
			return
		}
		at.Sum = st
	case KindProduct:
		pt, ok := decodeProductType(r)
		if !ok {
			return
		}
		at.Product = pt
	case KindArray:
		v, err := r.GetU32()
		if err != nil {
			return
		}
		at.Array = &ArrayType{Elem: TypeID(v)}
	default:
		if at.Kind > KindF64 {
			r.Fail(bsatn.ErrInvalidTag)
		}
	}
}

func decodeSumType(r *bsatn.Reader) (*SumType, bool) {
	leave, err := r.EnterComposite()
	defer leave()
	if err != nil {
		return nil, false
	}
	n, err := r.GetSeqHeader()
	if err != nil {
		return nil, false
	}
	variants := make([]SumVariant, 0, n)
	for i := uint32(0); i < n; i++ {
		name, ok := decodeOptionName(r)
		if !ok {
			return nil, false
		}
		tid, err := r.GetU32()
		if err != nil {
			return nil, false
		}
		variants = append(variants, SumVariant{Name: name, Type: TypeID(tid)})
	}
	return &SumType{Variants: variants}, true
}

func decodeProductType(r *bsatn.Reader) (*ProductType, bool) {
	leave, err := r.EnterComposite()
	defer leave()
	if err != nil {
		return nil, false
	}
	n, err := r.GetSeqHeader()
	if err != nil {
		return nil, false
	}
	elems := make([]ProductElement, 0, n)
	for i := uint32(0); i < n; i++ {
		name, ok := decodeOptionName(r)
		if !ok {
			return nil, false
		}
		tid, err := r.GetU32()
		if err != nil {
			return nil, false
		}
		elems = append(elems, ProductElement{Name: name, Type: TypeID(tid)})
	}
	return &ProductType{Elements: elems}, true
}

func decodeOptionName(r *bsatn.Reader) (*string, bool) {
	tag, err := r.GetSumTag()
	if err != nil {
		return nil, false
	}
	if tag == 0 {
		s, err := r.GetString()
		if err != nil {
			return nil, false
		}
		return &s, true
	}
	return nil, true
}
