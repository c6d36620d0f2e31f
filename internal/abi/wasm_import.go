//go:build wasip1 && spacetimedb_guest

package abi

import "unsafe"

// wasmHost is the Host implementation used when this package is actually
// compiled as a WASM guest module (GOOS=wasip1, build tag spacetimedb_guest
// set by the module's own build). It is a thin, allocation-light adapter
// over the //go:wasmimport declarations below — every method does exactly
// the pointer/length marshaling spec §4.5 describes and nothing else.
//
// Grounded in the teacher's internal/types/types.go native-function-variable
// pattern (tableIdFromName, rowIterBsatnAdvance as package-level vars meant
// to be satisfied by the real host); here those become genuine
// go:wasmimport declarations instead of no-op stand-ins, since this package
// is allowed to actually compile for wasip1.
type wasmHost struct{}

// WasmHost is the Host backed by real host imports. Construct this only
// when building the guest binary itself.
func WasmHost() Host { return wasmHost{} }

//go:wasmimport spacetime_10.0 table_id_from_name
func hostTableIDFromName(namePtr unsafe.Pointer, nameLen uint32, outID unsafe.Pointer) uint16

//go:wasmimport spacetime_10.0 index_id_from_name
func hostIndexIDFromName(namePtr unsafe.Pointer, nameLen uint32, outID unsafe.Pointer) uint16

//go:wasmimport spacetime_10.0 table_row_count
func hostTableRowCount(tableID uint32, outCount unsafe.Pointer) uint16

//go:wasmimport spacetime_10.0 datastore_insert_bsatn
func hostDatastoreInsertBSATN(tableID uint32, rowPtr unsafe.Pointer, rowLenInOut unsafe.Pointer) uint16

//go:wasmimport spacetime_10.0 datastore_delete_all_by_eq_bsatn
func hostDatastoreDeleteAllByEqBSATN(tableID uint32, valuePtr unsafe.Pointer, valueLen uint32, outCount unsafe.Pointer) uint16

//go:wasmimport spacetime_10.0 datastore_btree_scan_bsatn
func hostDatastoreBTreeScanBSATN(indexID uint32, prefixPtr unsafe.Pointer, prefixLen uint32, startPtr unsafe.Pointer, startLen uint32, endPtr unsafe.Pointer, endLen uint32, outIter unsafe.Pointer) int16

//go:wasmimport spacetime_10.0 datastore_delete_by_btree_scan_bsatn
func hostDatastoreDeleteByBTreeScanBSATN(indexID uint32, prefixPtr unsafe.Pointer, prefixLen uint32, startPtr unsafe.Pointer, startLen uint32, endPtr unsafe.Pointer, endLen uint32, outCount unsafe.Pointer) int16

//go:wasmimport spacetime_10.0 row_iter_bsatn_advance
func hostRowIterBSATNAdvance(iter uint32, bufPtr unsafe.Pointer, bufLenInOut unsafe.Pointer) int16

//go:wasmimport spacetime_10.0 row_iter_bsatn_close
func hostRowIterBSATNClose(iter uint32)

//go:wasmimport spacetime_10.0 bytes_source_read
func hostBytesSourceRead(source uint32, bufPtr unsafe.Pointer, bufLenInOut unsafe.Pointer) int16

//go:wasmimport spacetime_10.0 bytes_sink_write
func hostBytesSinkWrite(sink uint32, bufPtr unsafe.Pointer, bufLenInOut unsafe.Pointer) uint16

//go:wasmimport spacetime_10.0 console_log
func hostConsoleLog(level uint8, targetPtr unsafe.Pointer, targetLen uint32, filePtr unsafe.Pointer, fileLen uint32, line uint32, msgPtr unsafe.Pointer, msgLen uint32)

//go:wasmimport spacetime_10.0 identity
func hostIdentity(outPtr unsafe.Pointer)

func errnoFrom(code uint16) error {
	if code == uint16(ErrnoOK) {
		return nil
	}
	return Errno(code)
}

func (wasmHost) TableIDFromName(name string) (TableID, error) {
	b := []byte(name)
	var out uint32
	var namePtr unsafe.Pointer
	if len(b) > 0 {
		namePtr = unsafe.Pointer(&b[0])
	}
	code := hostTableIDFromName(namePtr, uint32(len(b)), unsafe.Pointer(&out))
	if err := errnoFrom(code); err != nil {
		return 0, err
	}
	return TableID(out), nil
}

func (wasmHost) IndexIDFromName(name string) (IndexID, error) {
	b := []byte(name)
	var out uint32
	var namePtr unsafe.Pointer
	if len(b) > 0 {
		namePtr = unsafe.Pointer(&b[0])
	}
	code := hostIndexIDFromName(namePtr, uint32(len(b)), unsafe.Pointer(&out))
	if err := errnoFrom(code); err != nil {
		return 0, err
	}
	return IndexID(out), nil
}

func (wasmHost) TableRowCount(table TableID) (uint64, error) {
	var out uint64
	code := hostTableRowCount(uint32(table), unsafe.Pointer(&out))
	if err := errnoFrom(code); err != nil {
		return 0, err
	}
	return out, nil
}

func (wasmHost) DatastoreInsertBSATN(table TableID, row []byte) ([]byte, error) {
	buf := make([]byte, len(row), len(row)+64) // host may grow the row in place
	copy(buf, row)
	n := uint32(len(buf))
	var rowPtr unsafe.Pointer
	if len(buf) > 0 {
		rowPtr = unsafe.Pointer(&buf[0])
	}
	code := hostDatastoreInsertBSATN(uint32(table), rowPtr, unsafe.Pointer(&n))
	if err := errnoFrom(code); err != nil {
		return nil, err
	}
	return buf[:n], nil
}

func (wasmHost) DatastoreDeleteAllByEqBSATN(table TableID, value []byte) (uint32, error) {
	var out uint32
	var valPtr unsafe.Pointer
	if len(value) > 0 {
		valPtr = unsafe.Pointer(&value[0])
	}
	code := hostDatastoreDeleteAllByEqBSATN(uint32(table), valPtr, uint32(len(value)), unsafe.Pointer(&out))
	if err := errnoFrom(code); err != nil {
		return 0, err
	}
	return out, nil
}

func boundPtrLen(b []byte) (unsafe.Pointer, uint32) {
	if len(b) == 0 {
		return nil, 0
	}
	return unsafe.Pointer(&b[0]), uint32(len(b))
}

func (wasmHost) DatastoreBTreeScanBSATN(index IndexID, prefix, start, end []byte) (RowIterID, error) {
	pp, pl := boundPtrLen(prefix)
	sp, sl := boundPtrLen(start)
	ep, el := boundPtrLen(end)
	var out uint32
	ret := hostDatastoreBTreeScanBSATN(uint32(index), pp, pl, sp, sl, ep, el, unsafe.Pointer(&out))
	if ret < 0 {
		return 0, errnoFrom(uint16(-ret))
	}
	return RowIterID(out), nil
}

func (wasmHost) DatastoreDeleteByBTreeScanBSATN(index IndexID, prefix, start, end []byte) (uint32, error) {
	pp, pl := boundPtrLen(prefix)
	sp, sl := boundPtrLen(start)
	ep, el := boundPtrLen(end)
	var out uint32
	ret := hostDatastoreDeleteByBTreeScanBSATN(uint32(index), pp, pl, sp, sl, ep, el, unsafe.Pointer(&out))
	if ret < 0 {
		return 0, errnoFrom(uint16(-ret))
	}
	return out, nil
}

func (wasmHost) RowIterBSATNAdvance(iter RowIterID, buf []byte) (int, bool, error) {
	n := uint32(len(buf))
	var bufPtr unsafe.Pointer
	if len(buf) > 0 {
		bufPtr = unsafe.Pointer(&buf[0])
	}
	ret := hostRowIterBSATNAdvance(uint32(iter), bufPtr, unsafe.Pointer(&n))
	if ret == int16(Exhausted) {
		return int(n), true, nil
	}
	if ret < 0 {
		return 0, false, errnoFrom(uint16(-ret))
	}
	return int(n), false, nil
}

func (wasmHost) RowIterBSATNClose(iter RowIterID) {
	hostRowIterBSATNClose(uint32(iter))
}

func (wasmHost) BytesSourceRead(source BytesSourceID, buf []byte) (int, bool, error) {
	n := uint32(len(buf))
	var bufPtr unsafe.Pointer
	if len(buf) > 0 {
		bufPtr = unsafe.Pointer(&buf[0])
	}
	ret := hostBytesSourceRead(uint32(source), bufPtr, unsafe.Pointer(&n))
	if ret == int16(Exhausted) {
		return int(n), true, nil
	}
	if ret < 0 {
		return 0, false, errnoFrom(uint16(-ret))
	}
	return int(n), false, nil
}

func (wasmHost) BytesSinkWrite(sink BytesSinkID, buf []byte) (int, error) {
	n := uint32(len(buf))
	var bufPtr unsafe.Pointer
	if len(buf) > 0 {
		bufPtr = unsafe.Pointer(&buf[0])
	}
	code := hostBytesSinkWrite(uint32(sink), bufPtr, unsafe.Pointer(&n))
	if err := errnoFrom(code); err != nil {
		return 0, err
	}
	return int(n), nil
}

func (wasmHost) ConsoleLog(rec LogRecord) {
	target := []byte(rec.Target)
	file := []byte(rec.File)
	msg := []byte(rec.Msg)
	var targetPtr, filePtr, msgPtr unsafe.Pointer
	if len(target) > 0 {
		targetPtr = unsafe.Pointer(&target[0])
	}
	if len(file) > 0 {
		filePtr = unsafe.Pointer(&file[0])
	}
	if len(msg) > 0 {
		msgPtr = unsafe.Pointer(&msg[0])
	}
	hostConsoleLog(uint8(rec.Level), targetPtr, uint32(len(target)), filePtr, uint32(len(file)), rec.Line, msgPtr, uint32(len(msg)))
}

func (wasmHost) Identity() [32]byte {
	var out [32]byte
	hostIdentity(unsafe.Pointer(&out[0]))
	return out
}
