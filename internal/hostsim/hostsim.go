// Package hostsim is a pure-Go, in-memory implementation of abi.Host. It
// lets internal/dispatch and internal/table run (and be tested) without a
// real host — the same role the teacher's internal/db package plays for
// its own in-memory mode, narrowed to exactly the host calls spec §4.5
// names: table/index lookup by name, insert, equality delete, btree scan,
// range delete, buffered row iteration, bytes source/sink streaming,
// console_log, and identity.
//
// cmd/spacetimedb-sim wires this same type in as the wazero host module so
// a real compiled .wasm guest can run against it outside of SpacetimeDB
// itself.
package hostsim

import (
	"encoding/binary"
	"fmt"
	"sort"
	"sync"

	"github.com/clockworklabs/spacetimedb-go-bindings/internal/abi"
)

// row is a stored, BSATN-encoded value plus the index key bytes an index
// needs to sort and range-scan it. Key extraction is done by the keyOf
// func the setup code passes to CreateIndex; hostsim compares the
// resulting key bytes with compareKeys, which special-cases the fixed
// 1/2/4/8-byte widths BSATN uses for little-endian integers so a btree over
// a numeric column sorts numerically rather than byte-lexicographically
// (spec §4.4/§8 scenario 7's "index order" guarantee) — plain byte
// comparison is only correct for variable-length keys (strings/bytes),
// where it falls back to lexicographic order.
type row struct {
	key   []byte // the index key bytes, BSATN-encoded, used for ordering
	value []byte // the full row, BSATN-encoded
}

type table struct {
	id      abi.TableID
	name    string
	rows    []row // primary storage; unordered, insertion order
	indexes []*index
}

type index struct {
	id      abi.IndexID
	name    string
	table   *table
	unique  bool
	keyOf   func(rowValue []byte) []byte
}

// Host is the in-memory host simulator. Zero value is not usable; use New.
type Host struct {
	mu sync.Mutex

	tables      map[abi.TableID]*table
	tablesByName map[string]*table
	nextTableID abi.TableID

	indexes      map[abi.IndexID]*index
	indexesByName map[string]*index
	nextIndexID  abi.IndexID

	iters     map[abi.RowIterID][][]byte
	nextIter  abi.RowIterID

	sources    map[abi.BytesSourceID][]byte
	sourcePos  map[abi.BytesSourceID]int
	nextSource abi.BytesSourceID

	sinks     map[abi.BytesSinkID]*[]byte
	nextSink  abi.BytesSinkID

	logs     []abi.LogRecord
	identity [32]byte
}

// New returns an empty simulator. identity is returned verbatim from
// Identity().
func New(identity [32]byte) *Host {
	return &Host{
		tables:        make(map[abi.TableID]*table),
		tablesByName:  make(map[string]*table),
		nextTableID:   1, // 0 is reserved/invalid, matching the teacher's INVALID convention
		indexes:       make(map[abi.IndexID]*index),
		indexesByName: make(map[string]*index),
		nextIndexID:   1,
		iters:         make(map[abi.RowIterID][][]byte),
		nextIter:      1,
		sources:       make(map[abi.BytesSourceID][]byte),
		sourcePos:     make(map[abi.BytesSourceID]int),
		nextSource:    1,
		sinks:         make(map[abi.BytesSinkID]*[]byte),
		nextSink:      1,
		identity:      identity,
	}
}

// CreateTable registers a table under name, for use by simulator setup
// code (cmd/spacetimedb-sim, or a test's fixture) — not part of abi.Host,
// since the real host creates tables at module install time, not through
// a guest-callable import.
func (h *Host) CreateTable(name string) abi.TableID {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextTableID
	h.nextTableID++
	t := &table{id: id, name: name}
	h.tables[id] = t
	h.tablesByName[name] = t
	return id
}

// CreateIndex registers a btree index over table, keyed by keyOf.
func (h *Host) CreateIndex(table abi.TableID, name string, unique bool, keyOf func([]byte) []byte) (abi.IndexID, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.tables[table]
	if !ok {
		return 0, abi.ErrNoSuchTable
	}
	id := h.nextIndexID
	h.nextIndexID++
	ix := &index{id: id, name: name, table: t, unique: unique, keyOf: keyOf}
	h.indexes[id] = ix
	h.indexesByName[name] = ix
	t.indexes = append(t.indexes, ix)
	return id, nil
}

func (h *Host) TableIDFromName(name string) (abi.TableID, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.tablesByName[name]
	if !ok {
		return 0, abi.ErrNoSuchTable
	}
	return t.id, nil
}

func (h *Host) IndexIDFromName(name string) (abi.IndexID, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ix, ok := h.indexesByName[name]
	if !ok {
		return 0, abi.ErrNoSuchIndex
	}
	return ix.id, nil
}

func (h *Host) TableRowCount(id abi.TableID) (uint64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.tables[id]
	if !ok {
		return 0, abi.ErrNoSuchTable
	}
	return uint64(len(t.rows)), nil
}

func (h *Host) DatastoreInsertBSATN(id abi.TableID, rowBytes []byte) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.tables[id]
	if !ok {
		return nil, abi.ErrNoSuchTable
	}
	for _, ix := range t.indexes {
		if !ix.unique {
			continue
		}
		key := ix.keyOf(rowBytes)
		for _, r := range t.rows {
			if bytesEqual(ix.keyOf(r.value), key) {
				return nil, abi.ErrUniqueConstraintViolation
			}
		}
	}
	t.rows = append(t.rows, row{value: rowBytes})
	return rowBytes, nil
}

func (h *Host) DatastoreDeleteAllByEqBSATN(id abi.TableID, value []byte) (uint32, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.tables[id]
	if !ok {
		return 0, abi.ErrNoSuchTable
	}
	var kept []row
	var removed uint32
	for _, r := range t.rows {
		if bytesEqual(r.value, value) {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	t.rows = kept
	return removed, nil
}

// matchesRange reports whether key falls between start and end honoring the
// Inclusive/Exclusive/Unbounded kind of each side. start/end are the bound
// values without their wire BoundKind tag byte — scanRange peels the tag
// off (peelBoundTag) before calling this.
func matchesRange(key, prefix []byte, startKind abi.BoundKind, start []byte, endKind abi.BoundKind, end []byte) bool {
	if len(prefix) > 0 && (len(key) < len(prefix) || !bytesEqual(key[:len(prefix)], prefix)) {
		return false
	}
	if startKind != abi.BoundUnbounded {
		cmp := compareKeys(key, start)
		if startKind == abi.BoundInclusive && cmp < 0 {
			return false
		}
		if startKind == abi.BoundExclusive && cmp <= 0 {
			return false
		}
	}
	if endKind != abi.BoundUnbounded {
		cmp := compareKeys(key, end)
		if endKind == abi.BoundInclusive && cmp > 0 {
			return false
		}
		if endKind == abi.BoundExclusive && cmp >= 0 {
			return false
		}
	}
	return true
}

func (h *Host) scanRange(id abi.IndexID, prefix, start, end []byte) ([][]byte, error) {
	ix, ok := h.indexes[id]
	if !ok {
		return nil, abi.ErrNoSuchIndex
	}
	startKind, startVal := peelBoundTag(start)
	endKind, endVal := peelBoundTag(end)

	var matched []row
	for _, r := range ix.table.rows {
		key := ix.keyOf(r.value)
		if matchesRange(key, prefix, startKind, startVal, endKind, endVal) {
			matched = append(matched, row{key: key, value: r.value})
		}
	}
	sort.Slice(matched, func(i, j int) bool { return compareKeys(matched[i].key, matched[j].key) < 0 })

	out := make([][]byte, len(matched))
	for i, r := range matched {
		out[i] = r.value
	}
	return out, nil
}

// peelBoundTag strips the leading one-byte BoundKind from a wire-encoded
// bound; Unbounded bounds carry no trailing value.
func peelBoundTag(b []byte) (abi.BoundKind, []byte) {
	if len(b) == 0 {
		return abi.BoundUnbounded, nil
	}
	kind := abi.BoundKind(b[0])
	if kind == abi.BoundUnbounded {
		return kind, nil
	}
	return kind, b[1:]
}

func (h *Host) DatastoreBTreeScanBSATN(id abi.IndexID, prefix, start, end []byte) (abi.RowIterID, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rows, err := h.scanRange(id, prefix, start, end)
	if err != nil {
		return 0, err
	}
	iterID := h.nextIter
	h.nextIter++
	h.iters[iterID] = rows
	return iterID, nil
}

func (h *Host) DatastoreDeleteByBTreeScanBSATN(id abi.IndexID, prefix, start, end []byte) (uint32, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rows, err := h.scanRange(id, prefix, start, end)
	if err != nil {
		return 0, err
	}
	ix := h.indexes[id]
	toRemove := make(map[string]bool, len(rows))
	for _, v := range rows {
		toRemove[string(v)] = true
	}
	var kept []row
	for _, r := range ix.table.rows {
		if toRemove[string(r.value)] {
			continue
		}
		kept = append(kept, r)
	}
	ix.table.rows = kept
	return uint32(len(rows)), nil
}

func (h *Host) RowIterBSATNAdvance(iter abi.RowIterID, buf []byte) (int, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rows, ok := h.iters[iter]
	if !ok {
		return 0, false, abi.ErrNoSuchIter
	}
	if len(rows) == 0 {
		delete(h.iters, iter)
		return 0, true, nil
	}
	n := 0
	consumed := 0
	for _, r := range rows {
		if n+len(r) > len(buf) {
			if consumed == 0 {
				return 0, false, abi.ErrBufferTooSmall
			}
			break
		}
		copy(buf[n:], r)
		n += len(r)
		consumed++
	}
	h.iters[iter] = rows[consumed:]
	return n, false, nil
}

func (h *Host) RowIterBSATNClose(iter abi.RowIterID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.iters, iter)
}

// NewBytesSource registers data as a readable source, for feeding reducer
// arguments in during a simulated call_by_id.
func (h *Host) NewBytesSource(data []byte) abi.BytesSourceID {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextSource
	h.nextSource++
	h.sources[id] = data
	h.sourcePos[id] = 0
	return id
}

func (h *Host) BytesSourceRead(source abi.BytesSourceID, buf []byte) (int, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	data, ok := h.sources[source]
	if !ok {
		return 0, false, fmt.Errorf("hostsim: unknown bytes source %d", source)
	}
	pos := h.sourcePos[source]
	if pos >= len(data) {
		return 0, true, nil
	}
	n := copy(buf, data[pos:])
	h.sourcePos[source] = pos + n
	return n, false, nil
}

// NewBytesSink registers a writable sink and returns its id; the caller
// reads the accumulated bytes back out with SinkBytes after the call.
func (h *Host) NewBytesSink() abi.BytesSinkID {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextSink
	h.nextSink++
	buf := []byte{}
	h.sinks[id] = &buf
	return id
}

func (h *Host) SinkBytes(sink abi.BytesSinkID) []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	if b, ok := h.sinks[sink]; ok {
		return *b
	}
	return nil
}

func (h *Host) BytesSinkWrite(sink abi.BytesSinkID, buf []byte) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	b, ok := h.sinks[sink]
	if !ok {
		return 0, fmt.Errorf("hostsim: unknown bytes sink %d", sink)
	}
	*b = append(*b, buf...)
	return len(buf), nil
}

func (h *Host) ConsoleLog(rec abi.LogRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.logs = append(h.logs, rec)
}

// Logs returns every ConsoleLog call recorded so far, for test assertions.
func (h *Host) Logs() []abi.LogRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]abi.LogRecord, len(h.logs))
	copy(out, h.logs)
	return out
}

func (h *Host) Identity() [32]byte { return h.identity }

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// compareKeys orders two index key byte strings. BSATN encodes fixed-width
// integers (u8/i8, u16/i16, u32/i32, u64/i64) little-endian with no tag byte,
// so a plain byte-lexicographic compare gets the ordering backwards for any
// value whose most significant byte isn't first (u32 256 = 00 01 00 00 would
// sort before u32 2 = 02 00 00 00). When both keys share one of those widths,
// decode them as unsigned little-endian integers and compare numerically;
// otherwise (strings, bytes, or mismatched widths) fall back to lexicographic
// comparison, which is the correct order for variable-length keys.
func compareKeys(a, b []byte) int {
	if len(a) == len(b) {
		switch len(a) {
		case 1:
			return compareUint64(uint64(a[0]), uint64(b[0]))
		case 2:
			return compareUint64(uint64(binary.LittleEndian.Uint16(a)), uint64(binary.LittleEndian.Uint16(b)))
		case 4:
			return compareUint64(uint64(binary.LittleEndian.Uint32(a)), uint64(binary.LittleEndian.Uint32(b)))
		case 8:
			return compareUint64(binary.LittleEndian.Uint64(a), binary.LittleEndian.Uint64(b))
		}
	}
	return compareBytes(a, b)
}

func compareUint64(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareBytes(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

var _ abi.Host = (*Host)(nil)
