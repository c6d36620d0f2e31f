// Package table is the generated-style typed database surface spec §4.4
// names: per declared table, Insert/DeleteByValue/Iter/Count, and per
// index set Filter/FilterRange/DeleteRange (Find/Delete for unique sets).
// Table ids are resolved once by name through the host and cached.
//
// Grounded in the teacher's internal/db/tables.go (typed accessor shape)
// and internal/db/iteration.go (buffered, grow-and-retry iterator), with
// internal/db/indexes.go's speculative multi-algorithm IndexManager
// narrowed to the one algorithm (btree) this package's Bound/Range type
// actually drives.
package table

import (
	"bytes"

	"github.com/clockworklabs/spacetimedb-go-bindings/internal/abi"
	"github.com/clockworklabs/spacetimedb-go-bindings/internal/bsatn"
)

// Bound is one endpoint of a range scan: Inclusive(v), Exclusive(v), or
// Unbounded. v is a BSATN-encodable key fragment (typically the column
// value, or a tuple of leading columns for a composite index).
type Bound struct {
	kind  abi.BoundKind
	value bsatn.Value
}

func Inclusive(v bsatn.Value) Bound { return Bound{kind: abi.BoundInclusive, value: v} }
func Exclusive(v bsatn.Value) Bound { return Bound{kind: abi.BoundExclusive, value: v} }
func Unbounded() Bound              { return Bound{kind: abi.BoundUnbounded} }

// encode writes the one-byte BoundKind tag followed by the BSATN-encoded
// value (omitted for Unbounded), per spec §4.4's index-scan protocol.
func (b Bound) encode() []byte {
	var buf bytes.Buffer
	w := bsatn.NewWriter(&buf)
	w.PutU8(uint8(b.kind))
	if b.kind != abi.BoundUnbounded && b.value != nil {
		b.value.EncodeBSATN(w)
	}
	return buf.Bytes()
}

// Range is a half-open-or-closed scan window: [Start, End] with per-side
// inclusivity as encoded in each Bound.
type Range struct {
	Start Bound
	End   Bound
}

// readChunkSize is the initial buffer size for RowIter.Advance; it grows on
// BufferTooSmall per spec §4.4's buffered-iteration contract.
const readChunkSize = 8 << 10 // 8 KiB

// RowIter is a lazy, single-pass, chunked scan over BSATN-encoded rows.
// Grounded in the teacher's internal/db/iteration.go buffered reader.
type RowIter struct {
	host    abi.Host
	id      abi.RowIterID
	buf     []byte
	pending []byte // undecoded tail bytes left over from the last Advance
	done    bool
}

func newRowIter(host abi.Host, id abi.RowIterID) *RowIter {
	return &RowIter{host: host, id: id, buf: make([]byte, readChunkSize)}
}

// Close releases the iterator's host-side resources. Safe to call more
// than once and safe to call on an already-exhausted iterator.
func (it *RowIter) Close() {
	if it == nil || it.done {
		return
	}
	it.host.RowIterBSATNClose(it.id)
	it.done = true
}

// fill requests more bytes from the host, growing the buffer on
// BufferTooSmall and retrying, per spec §4.4.
func (it *RowIter) fill() (bool, error) {
	for {
		n, exhausted, err := it.host.RowIterBSATNAdvance(it.id, it.buf)
		if err == abi.ErrBufferTooSmall {
			it.buf = make([]byte, len(it.buf)*2)
			continue
		}
		if err != nil {
			return false, err
		}
		it.pending = append(it.pending, it.buf[:n]...)
		return exhausted, nil
	}
}

// Next decodes the next row into dst (a pointer to a bsatn.Value), reusing
// bytes already buffered before asking the host for more. Returns false
// (with a nil error) once the iterator is exhausted.
func (it *RowIter) Next(dst bsatn.Value) (bool, error) {
	for {
		if len(it.pending) > 0 {
			r := bsatn.NewReader(bytes.NewReader(it.pending))
			dst.DecodeBSATN(r)
			if err := r.Error(); err != nil {
				return false, err
			}
			it.pending = it.pending[r.BytesRead():]
			return true, nil
		}
		if it.done {
			return false, nil
		}
		exhausted, err := it.fill()
		if err != nil {
			return false, err
		}
		if exhausted && len(it.pending) == 0 {
			it.done = true
			return false, nil
		}
		if exhausted {
			it.done = true
		}
	}
}

// ForEach drains the iterator, calling fn for every row, and always closes
// the iterator on the way out — success, early return from fn, or error.
// This is the "never hand back an iterator the caller must remember to
// close" idiom spec §5 asks for.
func ForEach(it *RowIter, newRow func() bsatn.Value, fn func(bsatn.Value) (keepGoing bool, err error)) error {
	defer it.Close()
	for {
		row := newRow()
		ok, err := it.Next(row)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		cont, err := fn(row)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
}

// Table is the typed per-table handle generated (or handwritten) module
// code builds against. It resolves and caches its table id from the host
// on first use, per spec §4.4's "table ids are resolved once from the
// table name via the host and cached".
type Table struct {
	host abi.Host
	name string
	id   abi.TableID
	have bool
}

// NewTable returns a handle for the named table, bound to host. The id
// lookup is deferred to first use (ID()), not performed here.
func NewTable(host abi.Host, name string) *Table {
	return &Table{host: host, name: name}
}

// ID resolves and caches the table's host-assigned id.
func (t *Table) ID() (abi.TableID, error) {
	if t.have {
		return t.id, nil
	}
	id, err := t.host.TableIDFromName(t.name)
	if err != nil {
		return 0, err
	}
	t.id = id
	t.have = true
	return id, nil
}

func encodeRow(v bsatn.Value) []byte {
	var buf bytes.Buffer
	w := bsatn.NewWriter(&buf)
	v.EncodeBSATN(w)
	return buf.Bytes()
}

// Insert stores row and returns it back as rewritten by the host
// (auto-increment/default columns populated), decoded into dst.
func (t *Table) Insert(row bsatn.Value, dst bsatn.Value) error {
	id, err := t.ID()
	if err != nil {
		return err
	}
	out, err := t.host.DatastoreInsertBSATN(id, encodeRow(row))
	if err != nil {
		return err
	}
	r := bsatn.NewReader(bytes.NewReader(out))
	dst.DecodeBSATN(r)
	return r.Error()
}

// DeleteByValue removes every row structurally equal to row, reporting
// whether any row was removed.
func (t *Table) DeleteByValue(row bsatn.Value) (bool, error) {
	id, err := t.ID()
	if err != nil {
		return false, err
	}
	n, err := t.host.DatastoreDeleteAllByEqBSATN(id, encodeRow(row))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Count returns the table's current row count.
func (t *Table) Count() (uint64, error) {
	id, err := t.ID()
	if err != nil {
		return 0, err
	}
	return t.host.TableRowCount(id)
}

// Iter opens a full, unfiltered, single-pass scan over the table via its
// primary btree index (index 0 by convention — generated code binds the
// real id).
func (t *Table) Iter(primaryIndex abi.IndexID) (*RowIter, error) {
	return t.scan(primaryIndex, nil, Unbounded(), Unbounded())
}

func (t *Table) scan(ix abi.IndexID, prefix bsatn.Value, start, end Bound) (*RowIter, error) {
	var prefixBytes []byte
	if prefix != nil {
		prefixBytes = encodeRow(prefix)
	}
	id, err := t.host.DatastoreBTreeScanBSATN(ix, prefixBytes, start.encode(), end.encode())
	if err != nil {
		return nil, err
	}
	return newRowIter(t.host, id), nil
}

// Index is the per-index-set typed accessor: Filter/FilterRange/DeleteRange
// for any index, plus Find/Delete for unique indexes (constructed with
// Unique: true).
type Index struct {
	host   abi.Host
	table  *Table
	id     abi.IndexID
	unique bool
}

func NewIndex(host abi.Host, t *Table, id abi.IndexID, unique bool) *Index {
	return &Index{host: host, table: t, id: id, unique: unique}
}

// Filter returns every row whose indexed key equals key.
func (ix *Index) Filter(key bsatn.Value) (*RowIter, error) {
	return ix.table.scan(ix.id, key, Unbounded(), Unbounded())
}

// FilterRange returns every row whose indexed key falls within r.
func (ix *Index) FilterRange(r Range) (*RowIter, error) {
	return ix.table.scan(ix.id, nil, r.Start, r.End)
}

// DeleteRange removes every row whose indexed key falls within r,
// returning the count removed.
func (ix *Index) DeleteRange(r Range) (uint32, error) {
	return ix.host.DatastoreDeleteByBTreeScanBSATN(ix.id, nil, r.Start.encode(), r.End.encode())
}

// Find looks up the single row with the given unique key, if any.
func (ix *Index) Find(key bsatn.Value, dst bsatn.Value) (bool, error) {
	it, err := ix.Filter(key)
	if err != nil {
		return false, err
	}
	defer it.Close()
	return it.Next(dst)
}

// Delete removes the single row with the given unique key, reporting
// whether a row was removed.
func (ix *Index) Delete(key bsatn.Value) (bool, error) {
	n, err := ix.DeleteRange(Range{Start: Inclusive(key), End: Inclusive(key)})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
