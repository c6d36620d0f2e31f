// Command spacetimedb-sim is a host simulator for SpacetimeDB Go modules:
// it loads a compiled WASM guest, registers internal/hostsim as the
// spacetime_10.0 host module using wazero, and drives the two guest exports
// spec §4.4 names (describe, call_by_id) from the command line.
//
// This is ambient developer tooling, not something the spec asks a guest
// module to link against — it exists so a module built against this
// library's abi.Host can be exercised without a real SpacetimeDB server.
// Grounded in the teacher's internal/wasm/spacetime.go host-module-builder
// wiring, repurposed from "host code the teacher's own tests exercise" into
// a standalone CLI, since this package can't produce compiled .wasm guest
// fixtures to run through `go test` here.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/clockworklabs/spacetimedb-go-bindings/internal/abi"
	"github.com/clockworklabs/spacetimedb-go-bindings/internal/hostsim"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "spacetimedb-sim: failed to initialize logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if len(os.Args) < 3 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	wasmPath := os.Args[2]

	switch cmd {
	case "describe":
		if err := runDescribe(logger, wasmPath); err != nil {
			logger.Fatal("describe failed", zap.Error(err))
		}
	case "call":
		if len(os.Args) < 4 {
			usage()
			os.Exit(2)
		}
		if err := runCall(logger, wasmPath, os.Args[3]); err != nil {
			logger.Fatal("call failed", zap.Error(err))
		}
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage:")
	fmt.Fprintln(os.Stderr, "  spacetimedb-sim describe <module.wasm>")
	fmt.Fprintln(os.Stderr, "  spacetimedb-sim call <module.wasm> <reducer-id>")
}

func runDescribe(logger *zap.Logger, wasmPath string) error {
	ctx := context.Background()
	wasmBytes, err := os.ReadFile(wasmPath)
	if err != nil {
		return fmt.Errorf("reading module: %w", err)
	}

	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		return fmt.Errorf("instantiating wasi: %w", err)
	}

	host := hostsim.New([32]byte{})
	sim := newSimModule(host, logger)
	if err := sim.register(ctx, rt); err != nil {
		return fmt.Errorf("registering host module: %w", err)
	}

	mod, err := rt.Instantiate(ctx, wasmBytes)
	if err != nil {
		return fmt.Errorf("instantiating guest: %w", err)
	}
	defer mod.Close(ctx)

	describeFn := mod.ExportedFunction("__describe_module__")
	if describeFn == nil {
		return fmt.Errorf("guest module does not export __describe_module__")
	}

	sinkID := host.NewBytesSink()
	if _, err := describeFn.Call(ctx, uint64(sinkID)); err != nil {
		return fmt.Errorf("calling __describe_module__: %w", err)
	}

	payload := host.SinkBytes(sinkID)
	logger.Info("module descriptor", zap.Int("bytes", len(payload)))
	fmt.Println(hex.EncodeToString(payload))
	return nil
}

func runCall(logger *zap.Logger, wasmPath, reducerID string) error {
	ctx := context.Background()
	wasmBytes, err := os.ReadFile(wasmPath)
	if err != nil {
		return fmt.Errorf("reading module: %w", err)
	}

	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		return fmt.Errorf("instantiating wasi: %w", err)
	}

	host := hostsim.New([32]byte{})
	sim := newSimModule(host, logger)
	if err := sim.register(ctx, rt); err != nil {
		return fmt.Errorf("registering host module: %w", err)
	}

	mod, err := rt.Instantiate(ctx, wasmBytes)
	if err != nil {
		return fmt.Errorf("instantiating guest: %w", err)
	}
	defer mod.Close(ctx)

	callFn := mod.ExportedFunction("__call_reducer__")
	if callFn == nil {
		return fmt.Errorf("guest module does not export __call_reducer__")
	}

	var id uint32
	if _, err := fmt.Sscanf(reducerID, "%d", &id); err != nil {
		return fmt.Errorf("parsing reducer id %q: %w", reducerID, err)
	}

	argsSource := host.NewBytesSource(nil)
	errSink := host.NewBytesSink()

	logger.Info("calling reducer", zap.Uint32("id", id))
	// id, sender (4 x u64), connection id (2 x u64), timestamp, args, error sink.
	results, err := callFn.Call(ctx, uint64(id), 0, 0, 0, 0, 0, 0, 0, uint64(argsSource), uint64(errSink))
	if err != nil {
		return fmt.Errorf("calling __call_reducer__: %w", err)
	}
	ret := int16(results[0])
	if ret != 0 {
		logger.Warn("reducer failed", zap.Int16("code", ret), zap.ByteString("message", host.SinkBytes(errSink)))
		return nil
	}
	logger.Info("reducer succeeded")
	return nil
}

// simModule adapts hostsim.Host's Go method calls to wazero's WASM-memory
// calling convention: every exported function reads its pointer/length
// arguments out of guest linear memory and writes results back the same
// way, mirroring the teacher's internal/wasm/spacetime.go stack-based host
// functions but through wazero's typed WithFunc builder instead of the raw
// stack-slice API, since this is new code rather than an adaptation of a
// specific teacher function body.
type simModule struct {
	host   *hostsim.Host
	logger *zap.Logger
}

func newSimModule(host *hostsim.Host, logger *zap.Logger) *simModule {
	return &simModule{host: host, logger: logger}
}

func (s *simModule) register(ctx context.Context, rt wazero.Runtime) error {
	b := rt.NewHostModuleBuilder("spacetime_10.0")

	b.NewFunctionBuilder().WithFunc(s.tableIDFromName).Export("table_id_from_name")
	b.NewFunctionBuilder().WithFunc(s.indexIDFromName).Export("index_id_from_name")
	b.NewFunctionBuilder().WithFunc(s.tableRowCount).Export("table_row_count")
	b.NewFunctionBuilder().WithFunc(s.datastoreInsertBSATN).Export("datastore_insert_bsatn")
	b.NewFunctionBuilder().WithFunc(s.datastoreDeleteAllByEqBSATN).Export("datastore_delete_all_by_eq_bsatn")
	b.NewFunctionBuilder().WithFunc(s.datastoreBTreeScanBSATN).Export("datastore_btree_scan_bsatn")
	b.NewFunctionBuilder().WithFunc(s.datastoreDeleteByBTreeScanBSATN).Export("datastore_delete_by_btree_scan_bsatn")
	b.NewFunctionBuilder().WithFunc(s.rowIterBSATNAdvance).Export("row_iter_bsatn_advance")
	b.NewFunctionBuilder().WithFunc(s.rowIterBSATNClose).Export("row_iter_bsatn_close")
	b.NewFunctionBuilder().WithFunc(s.bytesSourceRead).Export("bytes_source_read")
	b.NewFunctionBuilder().WithFunc(s.bytesSinkWrite).Export("bytes_sink_write")
	b.NewFunctionBuilder().WithFunc(s.consoleLog).Export("console_log")
	b.NewFunctionBuilder().WithFunc(s.identity).Export("identity")

	_, err := b.Instantiate(ctx)
	return err
}

func readMem(mod api.Module, ptr, size uint32) ([]byte, bool) {
	return mod.Memory().Read(ptr, size)
}

func (s *simModule) tableIDFromName(ctx context.Context, mod api.Module, namePtr, nameLen, outPtr uint32) uint32 {
	name, ok := readMem(mod, namePtr, nameLen)
	if !ok {
		return uint32(abi.ErrBsatnDecodeError)
	}
	id, err := s.host.TableIDFromName(string(name))
	if err != nil {
		if e, ok := err.(abi.Errno); ok {
			return uint32(e)
		}
		return uint32(abi.ErrNoSuchTable)
	}
	mod.Memory().WriteUint32Le(outPtr, uint32(id))
	return 0
}

func (s *simModule) indexIDFromName(ctx context.Context, mod api.Module, namePtr, nameLen, outPtr uint32) uint32 {
	name, ok := readMem(mod, namePtr, nameLen)
	if !ok {
		return uint32(abi.ErrBsatnDecodeError)
	}
	id, err := s.host.IndexIDFromName(string(name))
	if err != nil {
		if e, ok := err.(abi.Errno); ok {
			return uint32(e)
		}
		return uint32(abi.ErrNoSuchIndex)
	}
	mod.Memory().WriteUint32Le(outPtr, uint32(id))
	return 0
}

func (s *simModule) tableRowCount(ctx context.Context, mod api.Module, tableID, outPtr uint32) uint32 {
	n, err := s.host.TableRowCount(abi.TableID(tableID))
	if err != nil {
		return uint32(abi.ErrNoSuchTable)
	}
	mod.Memory().WriteUint64Le(outPtr, n)
	return 0
}

func (s *simModule) datastoreInsertBSATN(ctx context.Context, mod api.Module, tableID, rowPtr, rowLenPtr uint32) uint32 {
	rowLen, _ := mod.Memory().ReadUint32Le(rowLenPtr)
	row, ok := readMem(mod, rowPtr, rowLen)
	if !ok {
		return uint32(abi.ErrBsatnDecodeError)
	}
	out, err := s.host.DatastoreInsertBSATN(abi.TableID(tableID), row)
	if err != nil {
		if e, ok := err.(abi.Errno); ok {
			return uint32(e)
		}
		return uint32(abi.ErrNoSuchTable)
	}
	mod.Memory().Write(rowPtr, out)
	mod.Memory().WriteUint32Le(rowLenPtr, uint32(len(out)))
	return 0
}

func (s *simModule) datastoreDeleteAllByEqBSATN(ctx context.Context, mod api.Module, tableID, valuePtr, valueLen, outPtr uint32) uint32 {
	value, ok := readMem(mod, valuePtr, valueLen)
	if !ok {
		return uint32(abi.ErrBsatnDecodeError)
	}
	n, err := s.host.DatastoreDeleteAllByEqBSATN(abi.TableID(tableID), value)
	if err != nil {
		if e, ok := err.(abi.Errno); ok {
			return uint32(e)
		}
		return uint32(abi.ErrNoSuchTable)
	}
	mod.Memory().WriteUint32Le(outPtr, n)
	return 0
}

func (s *simModule) datastoreBTreeScanBSATN(ctx context.Context, mod api.Module, indexID, prefixPtr, prefixLen, startPtr, startLen, endPtr, endLen, outPtr uint32) int32 {
	prefix, _ := readMem(mod, prefixPtr, prefixLen)
	start, _ := readMem(mod, startPtr, startLen)
	end, _ := readMem(mod, endPtr, endLen)
	iter, err := s.host.DatastoreBTreeScanBSATN(abi.IndexID(indexID), prefix, start, end)
	if err != nil {
		if e, ok := err.(abi.Errno); ok {
			return -int32(e)
		}
		return -int32(abi.ErrNoSuchIndex)
	}
	mod.Memory().WriteUint32Le(outPtr, uint32(iter))
	return 0
}

func (s *simModule) datastoreDeleteByBTreeScanBSATN(ctx context.Context, mod api.Module, indexID, prefixPtr, prefixLen, startPtr, startLen, endPtr, endLen, outPtr uint32) int32 {
	prefix, _ := readMem(mod, prefixPtr, prefixLen)
	start, _ := readMem(mod, startPtr, startLen)
	end, _ := readMem(mod, endPtr, endLen)
	n, err := s.host.DatastoreDeleteByBTreeScanBSATN(abi.IndexID(indexID), prefix, start, end)
	if err != nil {
		if e, ok := err.(abi.Errno); ok {
			return -int32(e)
		}
		return -int32(abi.ErrNoSuchIndex)
	}
	mod.Memory().WriteUint32Le(outPtr, n)
	return 0
}

func (s *simModule) rowIterBSATNAdvance(ctx context.Context, mod api.Module, iter, bufPtr, bufLenPtr uint32) int32 {
	bufLen, _ := mod.Memory().ReadUint32Le(bufLenPtr)
	buf := make([]byte, bufLen)
	n, exhausted, err := s.host.RowIterBSATNAdvance(abi.RowIterID(iter), buf)
	if err != nil {
		if e, ok := err.(abi.Errno); ok {
			return -int32(e)
		}
		return -int32(abi.ErrNoSuchIter)
	}
	mod.Memory().Write(bufPtr, buf[:n])
	mod.Memory().WriteUint32Le(bufLenPtr, uint32(n))
	if exhausted {
		return int32(abi.Exhausted)
	}
	return 0
}

func (s *simModule) rowIterBSATNClose(ctx context.Context, iter uint32) {
	s.host.RowIterBSATNClose(abi.RowIterID(iter))
}

func (s *simModule) bytesSourceRead(ctx context.Context, mod api.Module, source, bufPtr, bufLenPtr uint32) int32 {
	bufLen, _ := mod.Memory().ReadUint32Le(bufLenPtr)
	buf := make([]byte, bufLen)
	n, exhausted, err := s.host.BytesSourceRead(abi.BytesSourceID(source), buf)
	if err != nil {
		return -3
	}
	mod.Memory().Write(bufPtr, buf[:n])
	mod.Memory().WriteUint32Le(bufLenPtr, uint32(n))
	if exhausted {
		return int32(abi.Exhausted)
	}
	return 0
}

func (s *simModule) bytesSinkWrite(ctx context.Context, mod api.Module, sink, bufPtr, bufLenPtr uint32) uint32 {
	bufLen, _ := mod.Memory().ReadUint32Le(bufLenPtr)
	data, ok := readMem(mod, bufPtr, bufLen)
	if !ok {
		return uint32(abi.ErrBsatnDecodeError)
	}
	n, err := s.host.BytesSinkWrite(abi.BytesSinkID(sink), data)
	if err != nil {
		return uint32(abi.ErrBsatnDecodeError)
	}
	mod.Memory().WriteUint32Le(bufLenPtr, uint32(n))
	return 0
}

func (s *simModule) consoleLog(ctx context.Context, mod api.Module, level, targetPtr, targetLen, filePtr, fileLen, line, msgPtr, msgLen uint32) {
	target, _ := readMem(mod, targetPtr, targetLen)
	file, _ := readMem(mod, filePtr, fileLen)
	msg, _ := readMem(mod, msgPtr, msgLen)
	rec := abi.LogRecord{
		Level:  abi.LogLevel(level),
		Target: string(target),
		File:   string(file),
		Line:   line,
		Msg:    string(msg),
	}
	s.host.ConsoleLog(rec)
	s.logger.Info("guest log",
		zap.String("level", rec.Level.String()),
		zap.String("target", rec.Target),
		zap.String("file", rec.File),
		zap.Uint32("line", rec.Line),
		zap.String("msg", rec.Msg),
	)
}

func (s *simModule) identity(ctx context.Context, mod api.Module, outPtr uint32) {
	id := s.host.Identity()
	mod.Memory().Write(outPtr, id[:])
}
