// Package abi defines the L1 host ABI surface: the imported host functions
// a guest module calls, the opaque handle types and error codes they share,
// and the Host interface that lets internal/dispatch and internal/table run
// against either a real WASM import (wasm_import.go, build-tag gated) or
// internal/hostsim's pure-Go double.
package abi

import "fmt"

// TableID and IndexID are host-assigned handles, resolved once by name and
// cached by the caller — grounded in the teacher's internal/types/types.go
// TableID/IndexID wrapper-struct idiom.
type TableID uint32
type IndexID uint32

// RowIterID is the opaque handle returned by a scan; Invalid marks an
// iterator that has been closed or was never valid.
type RowIterID uint32

const InvalidRowIter RowIterID = 0

// BytesSourceID / BytesSinkID are opaque streaming handles for argument
// decoding (source) and descriptor/error reporting (sink).
type BytesSourceID uint32
type BytesSinkID uint32

// Errno is the numeric error code returned by fallible host calls. Numbering
// follows spec §4.5/§4.4; it deliberately does not reuse the teacher's
// internal/types/types.go constants, several of which (ErrWrongIndexAlgo,
// ErrMemoryExhausted, ErrOutOfBounds) have no corresponding host call in
// this ABI surface.
type Errno uint16

const (
	ErrnoOK                    Errno = 0
	ErrNoSuchTable             Errno = 1
	ErrNoSuchIndex             Errno = 2
	ErrNoSuchIter              Errno = 3
	ErrBufferTooSmall          Errno = 4
	ErrNotInTransaction        Errno = 5
	ErrUniqueConstraintViolation Errno = 6
	ErrBsatnDecodeError        Errno = 7
)

func (e Errno) Error() string {
	switch e {
	case ErrnoOK:
		return "ok"
	case ErrNoSuchTable:
		return "no such table"
	case ErrNoSuchIndex:
		return "no such index"
	case ErrNoSuchIter:
		return "no such iterator"
	case ErrBufferTooSmall:
		return "buffer too small"
	case ErrNotInTransaction:
		return "not in transaction"
	case ErrUniqueConstraintViolation:
		return "unique constraint violation"
	case ErrBsatnDecodeError:
		return "bsatn decode error"
	default:
		return fmt.Sprintf("errno(%d)", uint16(e))
	}
}

// Exhausted is the sentinel i16 returned by row_iter_bsatn_advance and
// bytes_source_read when the logical stream has no more data — spec §4.5:
// "negative: Exhausted=-1 or error".
const Exhausted int16 = -1

// LogLevel mirrors the host's console_log severity levels, spec §9: Error=0,
// Warn=1, Info=2, Debug=3, Trace=4. This is the REVERSE severity order of
// the teacher's internal/types/types.go LogLevel (Trace=0 .. Fatal=5) —
// a deliberate correction, not an oversight.
type LogLevel uint8

const (
	LogLevelError LogLevel = 0
	LogLevelWarn  LogLevel = 1
	LogLevelInfo  LogLevel = 2
	LogLevelDebug LogLevel = 3
	LogLevelTrace LogLevel = 4
)

func (l LogLevel) String() string {
	switch l {
	case LogLevelError:
		return "ERROR"
	case LogLevelWarn:
		return "WARN"
	case LogLevelInfo:
		return "INFO"
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelTrace:
		return "TRACE"
	default:
		return fmt.Sprintf("LEVEL(%d)", uint8(l))
	}
}

// BoundKind tags a range endpoint per spec §4.4's index-scan protocol: a
// one-byte kind (0=Inclusive, 1=Exclusive, 2=Unbounded) followed by the
// BSATN-encoded value when the kind is not Unbounded.
type BoundKind uint8

const (
	BoundInclusive BoundKind = 0
	BoundExclusive BoundKind = 1
	BoundUnbounded BoundKind = 2
)

// LogRecord is the payload of a console_log call.
type LogRecord struct {
	Level  LogLevel
	Target string
	File   string
	Line   uint32
	Msg    string
}

// Host is the full set of host-imported operations a guest module needs,
// spec §4.5. internal/hostsim implements it in pure Go for tests and the
// simulator CLI; wasm_import.go implements it (build-tag gated) over real
// //go:wasmimport declarations when compiled as an actual WASM guest.
type Host interface {
	TableIDFromName(name string) (TableID, error)
	// IndexIDFromName resolves a named index to its host-assigned id, the
	// same way TableIDFromName resolves a table. A generated module looks
	// this up once, at the same point it resolves its table ids, and
	// caches the result — spec §4.5.
	IndexIDFromName(name string) (IndexID, error)
	TableRowCount(table TableID) (uint64, error)

	// DatastoreInsertBSATN inserts row (already BSATN-encoded) and returns
	// the row as rewritten by the host (auto-increment/default columns
	// filled in).
	DatastoreInsertBSATN(table TableID, row []byte) ([]byte, error)
	// DatastoreDeleteAllByEqBSATN deletes every row equal to value,
	// returning the count removed.
	DatastoreDeleteAllByEqBSATN(table TableID, value []byte) (uint32, error)

	// DatastoreBTreeScanBSATN opens an iterator over index scoped by the
	// given prefix and start/end bound pair, each bound BSATN-encoded with a
	// leading BoundKind byte (Inclusive, Exclusive or Unbounded) per spec §4.4.
	DatastoreBTreeScanBSATN(index IndexID, prefix []byte, start, end []byte) (RowIterID, error)
	// DatastoreDeleteByBTreeScanBSATN deletes every row in the given range
	// without materializing an iterator, returning the count removed.
	DatastoreDeleteByBTreeScanBSATN(index IndexID, prefix []byte, start, end []byte) (uint32, error)

	// RowIterBSATNAdvance fills buf with zero or more BSATN-encoded rows.
	// Returns the Exhausted sentinel once the iterator is drained; the
	// caller keeps calling until it sees Exhausted.
	RowIterBSATNAdvance(iter RowIterID, buf []byte) (n int, exhausted bool, err error)
	RowIterBSATNClose(iter RowIterID)

	// BytesSourceRead streams argument bytes into buf; exhausted reports
	// the logical end of stream per spec §4.4's bytes-source protocol.
	BytesSourceRead(source BytesSourceID, buf []byte) (n int, exhausted bool, err error)
	// BytesSinkWrite may accept fewer bytes than offered; callers loop.
	BytesSinkWrite(sink BytesSinkID, buf []byte) (n int, err error)

	ConsoleLog(rec LogRecord)
	Identity() [32]byte
}
