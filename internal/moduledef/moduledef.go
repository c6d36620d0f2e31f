// Package moduledef implements the module-definition registry: the
// process-wide collector of table, reducer, and row-level-security
// registrations that assembles the ModuleDef::V9 descriptor the host reads
// via describe.
package moduledef

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	"github.com/clockworklabs/spacetimedb-go-bindings/internal/bsatn"
	"github.com/clockworklabs/spacetimedb-go-bindings/internal/satypes"
)

// TableType distinguishes user-created tables from host-system tables.
type TableType uint8

const (
	TableTypeUser   TableType = 0
	TableTypeSystem TableType = 1
)

// TableAccess controls whether a table is visible to every client or only
// to reducers running as the table's owner.
type TableAccess uint8

const (
	TableAccessPublic  TableAccess = 0
	TableAccessPrivate TableAccess = 1
)

// LifecycleTag identifies a reducer that the host invokes on a module
// event rather than on explicit client request. Numbering follows spec §6,
// the canonical resolution of the inconsistency in the upstream source —
// NOT the teacher's own reducers.LifecycleType (Init, Update, Connect,
// Disconnect), which used a different order and an extra "Update" member.
type LifecycleTag uint8

const (
	LifecycleInit               LifecycleTag = 0
	LifecycleClientConnected    LifecycleTag = 1
	LifecycleClientDisconnected LifecycleTag = 2
	LifecycleScheduled          LifecycleTag = 3
)

// IndexAlgorithm is a variant payload of column indexes. BTree is the only
// algorithm the module bindings surface; the teacher's internal/db/indexes.go
// speculatively modeled Hash/Gin/Gist/Bitmap/RTree as well, none of which
// the host ABI this package targets actually exposes.
type IndexAlgorithm struct {
	Columns []uint32
}

func (a IndexAlgorithm) encodeBSATN(w *bsatn.Writer) {
	w.PutSumTag(0) // variant 0: btree, the only algorithm defined
	w.PutSeqHeader(uint32(len(a.Columns)))
	for _, c := range a.Columns {
		w.PutU32(c)
	}
}

// ConstraintKind is a variant payload; Unique is the only kind the runtime
// enforces today. The taxonomy is extensible to Check/ForeignKey per
// spec §3, so the tag numbering leaves room without claiming to implement
// arms that don't exist yet.
type ConstraintKind struct {
	UniqueColumns []uint32
}

func (c ConstraintKind) encodeBSATN(w *bsatn.Writer) {
	w.PutSumTag(0) // variant 0: unique
	w.PutSeqHeader(uint32(len(c.UniqueColumns)))
	for _, col := range c.UniqueColumns {
		w.PutU32(col)
	}
}

type IndexDef struct {
	Name      *string
	Algorithm IndexAlgorithm
}

type ConstraintDef struct {
	Name *string
	Kind ConstraintKind
}

// SequenceDef describes an auto-increment column. Min/Max are optional per
// spec §3; Name is optional per the descriptor field list in spec §4.3 —
// this implementation honors both by making all three optional rather than
// picking one section over the other.
type SequenceDef struct {
	Column      uint32
	Start       int64
	Increment   int64
	MinValue    *int64
	MaxValue    *int64
	Name        *string
}

type ScheduleDef struct {
	ReducerName       string
	ScheduleAtColumn  uint32
}

// TableDef is a table's full schema as the descriptor will present it.
type TableDef struct {
	Name            string
	ProductTypeRef  satypes.TypeID
	PrimaryKey      []uint32
	Indexes         []IndexDef
	Constraints     []ConstraintDef
	Sequences       []SequenceDef
	Schedule        *ScheduleDef
	TableType       TableType
	TableAccess     TableAccess
}

// ReducerHandler is the Go function a registered reducer invokes. Argument
// decoding and error translation happen in internal/dispatch; the registry
// only stores the handler opaquely.
type ReducerHandler func(ctx interface{}, args *bsatn.Reader) error

type ReducerDef struct {
	Name       string
	ParamsType satypes.TypeID
	Lifecycle  *LifecycleTag
	Handler    ReducerHandler
}

type ReducerID uint32

// Registry is the process-wide collector described in spec §4.3. Grounded
// in the teacher's pkg/spacetimedb/schema/registry.go TableRegistry (mutex,
// name/id maps, idempotent-registration guard) and reducers/framework.go's
// bookkeeping, merged into one: the teacher kept tables and reducers in two
// separate registries in two separate packages, but the descriptor needs
// them assembled together, so this registry owns both.
type Registry struct {
	mu sync.Mutex

	typespace *satypes.Typespace

	tables     []TableDef
	tableNames map[string]int // name -> index into tables

	reducers     []ReducerDef
	reducerNames map[string]int
	haveInit     bool
	haveConnect  bool
	haveDisconn  bool

	rls []string

	describeOnce sync.Once
	descriptor   []byte
	describeErr  error
}

// NewRegistry returns an empty registry bound to typespace. Production code
// uses the package-level Default(); tests construct their own to avoid
// cross-test pollution of global state.
func NewRegistry(typespace *satypes.Typespace) *Registry {
	return &Registry{
		typespace:    typespace,
		tableNames:   make(map[string]int),
		reducerNames: make(map[string]int),
	}
}

var defaultMu sync.Mutex
var defaultRegistry *Registry

// Default returns the process-wide registry, constructing it against a
// fresh Typespace on first use. Static initializers in generated/handwritten
// module code call RegisterTable/RegisterReducer against this instance
// during program start-up, before the host ever calls describe.
func Default() *Registry {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultRegistry == nil {
		defaultRegistry = NewRegistry(satypes.NewTypespace())
	}
	return defaultRegistry
}

// Typespace returns the typespace backing this registry's composite types.
func (r *Registry) Typespace() *satypes.Typespace { return r.typespace }

// RegisterTable validates and appends a table definition. The row product
// must already exist in the typespace and every column index referenced by
// key/index/constraint/sequence must be within the product's element count
// (spec §3 invariant). Duplicate names are NOT rejected here — spec §4.3
// says that failure surfaces at describe time, not registration time.
func (r *Registry) RegisterTable(t TableDef) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	at, ok := r.typespace.Lookup(t.ProductTypeRef)
	if !ok || at.Kind != satypes.KindProduct {
		return fmt.Errorf("moduledef: table %q: product_type_ref %d is not a Product in the typespace", t.Name, t.ProductTypeRef)
	}
	width := uint32(len(at.Product.Elements))

	checkRange := func(cols []uint32, what string) error {
		for _, c := range cols {
			if c >= width {
				return fmt.Errorf("moduledef: table %q: %s column index %d out of range for %d-element row", t.Name, what, c, width)
			}
		}
		return nil
	}
	if err := checkRange(t.PrimaryKey, "primary key"); err != nil {
		return err
	}
	for _, ix := range t.Indexes {
		if err := checkRange(ix.Algorithm.Columns, "index"); err != nil {
			return err
		}
	}
	for _, c := range t.Constraints {
		if err := checkRange(c.Kind.UniqueColumns, "constraint"); err != nil {
			return err
		}
	}
	for _, s := range t.Sequences {
		if err := checkRange([]uint32{s.Column}, "sequence"); err != nil {
			return err
		}
	}
	if t.Schedule != nil {
		if err := checkRange([]uint32{t.Schedule.ScheduleAtColumn}, "schedule"); err != nil {
			return err
		}
	}

	// Duplicate names are NOT rejected here — spec §4.3 says that failure
	// surfaces at describe time, not registration time; see the recheck in
	// encodeDescriptor. tableNames only records the first registration's
	// index; it is not used to reject here.
	if _, dup := r.tableNames[t.Name]; !dup {
		r.tableNames[t.Name] = len(r.tables)
	}
	r.tables = append(r.tables, t)
	return nil
}

// RegisterReducer appends a reducer. Init/ClientConnected/ClientDisconnected
// are enforced at most once each; reducer id is the position in the ordered
// vector, assigned here at registration time per spec §4.3.
func (r *Registry) RegisterReducer(name string, paramsType satypes.TypeID, handler ReducerHandler, lifecycle *LifecycleTag) (ReducerID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.reducerNames[name]; dup {
		return 0, fmt.Errorf("moduledef: reducer %q already registered", name)
	}

	if lifecycle != nil {
		switch *lifecycle {
		case LifecycleInit:
			if r.haveInit {
				return 0, fmt.Errorf("moduledef: a second Init reducer (%q) was registered", name)
			}
			r.haveInit = true
		case LifecycleClientConnected:
			if r.haveConnect {
				return 0, fmt.Errorf("moduledef: a second ClientConnected reducer (%q) was registered", name)
			}
			r.haveConnect = true
		case LifecycleClientDisconnected:
			if r.haveDisconn {
				return 0, fmt.Errorf("moduledef: a second ClientDisconnected reducer (%q) was registered", name)
			}
			r.haveDisconn = true
		}
	}

	id := ReducerID(len(r.reducers))
	r.reducerNames[name] = len(r.reducers)
	r.reducers = append(r.reducers, ReducerDef{
		Name:       name,
		ParamsType: paramsType,
		Lifecycle:  lifecycle,
		Handler:    handler,
	})
	return id, nil
}

// RegisterRowLevelSecurity appends a row-level-security SQL filter string.
func (r *Registry) RegisterRowLevelSecurity(sql string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rls = append(r.rls, sql)
}

// ReducerByID returns the reducer registered at id, if any.
func (r *Registry) ReducerByID(id uint32) (ReducerDef, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if int(id) >= len(r.reducers) {
		return ReducerDef{}, false
	}
	return r.reducers[int(id)], true
}

// Describe lazily builds the ModuleDef::V9 descriptor and returns its BSATN
// encoding, per spec §4.3: version tag, typespace, tables, reducers, named
// types, misc exports, row-level-security — each u32-count-prefixed.
func (r *Registry) Describe() ([]byte, error) {
	r.describeOnce.Do(func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.descriptor, r.describeErr = r.encodeDescriptor()
	})
	return r.descriptor, r.describeErr
}

func (r *Registry) encodeDescriptor() ([]byte, error) {
	// A duplicate table name is a hard error captured at describe time
	// (spec §4.3), not at RegisterTable time — RegisterTable only validates
	// a single table's own shape.
	seen := make(map[string]bool, len(r.tables))
	for _, t := range r.tables {
		if seen[t.Name] {
			return nil, fmt.Errorf("moduledef: duplicate table name %q at describe time", t.Name)
		}
		seen[t.Name] = true
	}

	var buf bytes.Buffer
	w := bsatn.NewWriter(&buf)

	w.PutU8(1) // version tag: 1 denotes ModuleDef::V9

	r.typespace.EncodeBSATN(w)

	w.PutSeqHeader(uint32(len(r.tables)))
	for _, t := range r.tables {
		encodeTableDef(w, t)
	}

	w.PutSeqHeader(uint32(len(r.reducers)))
	for _, rd := range r.reducers {
		if err := r.encodeReducerDef(w, rd); err != nil {
			return nil, err
		}
	}

	named := r.typespace.NamedTypes()
	w.PutSeqHeader(uint32(len(named)))
	for _, n := range named {
		w.PutString(n.ScopedName)
		w.PutU32(uint32(n.Type))
		w.PutBool(n.CustomOrdering)
	}

	// Misc exports: reserved for future export kinds (raw SQL views,
	// scheduled-job descriptors beyond what ScheduleDef already covers).
	// Nothing in this module registers any, so the section is always
	// empty; kept as an explicit framed section so the byte layout matches
	// spec §4.3 exactly.
	w.PutSeqHeader(0)

	w.PutSeqHeader(uint32(len(r.rls)))
	for _, sql := range r.rls {
		w.PutString(sql)
	}

	if w.Error() != nil {
		return nil, w.Error()
	}
	return buf.Bytes(), nil
}

func encodeTableDef(w *bsatn.Writer, t TableDef) {
	w.PutString(t.Name)
	w.PutU32(uint32(t.ProductTypeRef))

	w.PutSeqHeader(uint32(len(t.PrimaryKey)))
	for _, c := range t.PrimaryKey {
		w.PutU32(c)
	}

	w.PutSeqHeader(uint32(len(t.Indexes)))
	for _, ix := range t.Indexes {
		putOptionalName(w, ix.Name)
		ix.Algorithm.encodeBSATN(w)
	}

	w.PutSeqHeader(uint32(len(t.Constraints)))
	for _, c := range t.Constraints {
		putOptionalName(w, c.Name)
		c.Kind.encodeBSATN(w)
	}

	w.PutSeqHeader(uint32(len(t.Sequences)))
	for _, s := range t.Sequences {
		w.PutU32(s.Column)
		w.PutI64(s.Start)
		w.PutI64(s.Increment)
		putOptionalI64(w, s.MinValue)
		putOptionalI64(w, s.MaxValue)
		putOptionalName(w, s.Name)
	}

	if t.Schedule != nil {
		w.PutOptionSome()
		w.PutString(t.Schedule.ReducerName)
		w.PutU32(t.Schedule.ScheduleAtColumn)
	} else {
		w.PutOptionNone()
	}

	w.PutU8(uint8(t.TableType))
	w.PutU8(uint8(t.TableAccess))
}

// encodeReducerDef writes a reducer's name, its params as an inline Product
// (element count + name-tagged elements, not a type-id reference to one —
// spec §6 item 4, confirmed against original_source/bindings-cpp/library/
// src/internal/Module.cpp's reducerDef.params: ProductType{} field), and its
// optional lifecycle tag.
func (r *Registry) encodeReducerDef(w *bsatn.Writer, rd ReducerDef) error {
	w.PutString(rd.Name)

	at, ok := r.typespace.Lookup(rd.ParamsType)
	if !ok || at.Kind != satypes.KindProduct {
		return fmt.Errorf("moduledef: reducer %q: params_type_ref %d is not a Product in the typespace", rd.Name, rd.ParamsType)
	}
	satypes.EncodeProductFields(w, at.Product)

	if rd.Lifecycle != nil {
		w.PutOptionSome()
		w.PutU8(uint8(*rd.Lifecycle))
	} else {
		w.PutOptionNone()
	}
	return nil
}

func putOptionalName(w *bsatn.Writer, name *string) {
	if name != nil {
		w.PutNamePresent(*name)
	} else {
		w.PutNameAbsent()
	}
}

func putOptionalI64(w *bsatn.Writer, v *int64) {
	if v != nil {
		w.PutOptionSome()
		w.PutI64(*v)
	} else {
		w.PutOptionNone()
	}
}

// TableNames returns every registered table name in registration order,
// for diagnostics.
func (r *Registry) TableNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.tables))
	for i, t := range r.tables {
		out[i] = t.Name
	}
	return out
}

// ReducerNamesSorted returns every registered reducer name sorted
// alphabetically, for display purposes only — dispatch always looks
// reducers up by id, never by this ordering.
func (r *Registry) ReducerNamesSorted() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.reducers))
	for _, rd := range r.reducers {
		out = append(out, rd.Name)
	}
	sort.Strings(out)
	return out
}
