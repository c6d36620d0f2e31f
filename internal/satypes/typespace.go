package satypes

import "github.com/clockworklabs/spacetimedb-go-bindings/internal/bsatn"

// Typespace is the ordered, append-only vector of AlgebraicType described in
// spec §3: the index of an entry is its type-id, stable for the life of a
// module descriptor. Entry 0 is reserved for unit by convention — NewTypespace
// registers it automatically.
//
// Grounded in the teacher's internal/bsatn/metadata.go triple-index registry
// (by Go type, by SATS name, by ref-id), narrowed down to the one job a
// typespace actually has: assign and dedupe type-ids.
type Typespace struct {
	types      []AlgebraicType
	named      map[string]TypeID
	namedOrder []string
	customOrd  map[string]bool
}

// NewTypespace returns a Typespace with the unit Product pre-registered at
// type-id 0.
func NewTypespace() *Typespace {
	ts := &Typespace{
		named:     make(map[string]TypeID),
		customOrd: make(map[string]bool),
	}
	ts.types = append(ts.types, ProductTypeOf()) // unit at id 0
	return ts
}

// UnitTypeID is the conventional type-id of the empty Product.
func (ts *Typespace) UnitTypeID() TypeID { return 0 }

// Register appends t and returns its new type-id. Monotonic: ids are never
// reused, and Register never looks for an existing structurally-equal entry
// (duplicate detection is optional per spec §4.2; this implementation
// doesn't perform it, so semantics don't depend on whether it does).
func (ts *Typespace) Register(t AlgebraicType) TypeID {
	id := TypeID(len(ts.types))
	ts.types = append(ts.types, t)
	return id
}

// RegisterNamed is idempotent: calling it twice with the same scopedName
// returns the original type-id without creating a second typespace entry,
// regardless of whether t differs between calls.
func (ts *Typespace) RegisterNamed(scopedName string, t AlgebraicType, customOrdering bool) TypeID {
	if id, ok := ts.named[scopedName]; ok {
		return id
	}
	id := ts.Register(t)
	ts.named[scopedName] = id
	ts.namedOrder = append(ts.namedOrder, scopedName)
	ts.customOrd[scopedName] = customOrdering
	return id
}

// Lookup returns the type registered at id, or false if id is out of range.
func (ts *Typespace) Lookup(id TypeID) (AlgebraicType, bool) {
	if int(id) >= len(ts.types) {
		return AlgebraicType{}, false
	}
	return ts.types[id], true
}

// ResolveName returns the type-id bound to scopedName, if any.
func (ts *Typespace) ResolveName(scopedName string) (TypeID, bool) {
	id, ok := ts.named[scopedName]
	return id, ok
}

// Len returns the number of entries, including the reserved unit at id 0.
func (ts *Typespace) Len() int { return len(ts.types) }

// NamedType pairs a scoped name with its type-id and custom-ordering flag,
// in first-registration order — this is what the descriptor emits to drive
// client code generation.
type NamedType struct {
	ScopedName     string
	Type           TypeID
	CustomOrdering bool
}

// NamedTypes returns every named binding in registration order.
func (ts *Typespace) NamedTypes() []NamedType {
	out := make([]NamedType, 0, len(ts.namedOrder))
	for _, name := range ts.namedOrder {
		out = append(out, NamedType{
			ScopedName:     name,
			Type:           ts.named[name],
			CustomOrdering: ts.customOrd[name],
		})
	}
	return out
}

// EncodeBSATN writes a u32 count followed by each entry's self-description,
// per spec §6 item 2.
func (ts *Typespace) EncodeBSATN(w *bsatn.Writer) {
	w.PutSeqHeader(uint32(len(ts.types)))
	for _, t := range ts.types {
		t.EncodeBSATN(w)
	}
}

// DecodeBSATN reads a typespace written by EncodeBSATN. Named bindings are
// not part of this framing (they have their own section, see moduledef) so
// a round-tripped Typespace has no named entries until the caller replays
// them from the named-types section.
func (ts *Typespace) DecodeBSATN(r *bsatn.Reader) {
	n, err := r.GetSeqHeader()
	if err != nil {
		return
	}
	ts.types = make([]AlgebraicType, 0, n)
	ts.named = make(map[string]TypeID)
	ts.customOrd = make(map[string]bool)
	for i := uint32(0); i < n; i++ {
		var at AlgebraicType
		at.DecodeBSATN(r)
		if r.Error() != nil {
			return
		}
		ts.types = append(ts.types, at)
	}
}
