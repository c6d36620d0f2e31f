// Package dispatch implements the two guest-exported entry points — describe
// and call_by_id — and the per-invocation Context object spec §4.4 defines.
// Grounded in the teacher's pkg/spacetimedb/reducers/framework.go
// (ReducerContext/ReducerResult shape, lifecycle naming convention) with the
// lifecycle numbering corrected per spec §6 and the state machine rewritten
// to match spec §4.4's Decoding/Running/Succeeded/Failed contract, which the
// teacher's framework never modeled at all (it had no dispatch loop, only
// the context and result value types).
package dispatch

import (
	"bytes"
	"math/rand/v2"

	"github.com/clockworklabs/spacetimedb-go-bindings/internal/abi"
	"github.com/clockworklabs/spacetimedb-go-bindings/internal/bsatn"
	"github.com/clockworklabs/spacetimedb-go-bindings/internal/moduledef"
	"github.com/clockworklabs/spacetimedb-go-bindings/internal/satypes"
)

// NoSuchReducer is the message written to the error sink when call_by_id
// is given an id with no matching registration.
const NoSuchReducer = "No such reducer"

// Context is what every reducer handler receives: sender identity, an
// optional connection id (nil when the module invoked itself — both-zero
// on the wire), the call timestamp, a deterministic PRNG seeded from
// timestamp+identity, and the database handle.
type Context struct {
	Sender       satypes.Identity
	ConnectionID *satypes.ConnectionID
	Timestamp    satypes.Timestamp

	rng  *rand.Rand
	Host abi.Host
}

// Rand returns the per-call deterministic random source. Re-seeded once
// per Context from the sender identity and timestamp — not cryptographic,
// just reproducible given the same (sender, timestamp) pair, per spec
// §4.4's "the host may seed from timestamp+identity".
func (c *Context) Rand() *rand.Rand { return c.rng }

func newContext(sender [4]uint64, conn [2]uint64, tsMicros uint64, host abi.Host) *Context {
	var idBytes [32]byte
	for i, w := range sender {
		putU64LE(idBytes[i*8:], w)
	}
	ctx := &Context{
		Sender:    satypes.NewIdentity(idBytes),
		Timestamp: satypes.NewTimestamp(int64(tsMicros)),
		Host:      host,
	}
	if conn != ([2]uint64{}) {
		var connBytes [16]byte
		putU64LE(connBytes[0:], conn[0])
		putU64LE(connBytes[8:], conn[1])
		cid := satypes.NewConnectionID(connBytes)
		ctx.ConnectionID = &cid
	}
	seed1 := tsMicros
	seed2 := uint64(0)
	for i := 0; i < 4; i++ {
		seed2 ^= sender[i]
	}
	ctx.rng = rand.New(rand.NewPCG(seed1, seed2))
	return ctx
}

func putU64LE(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

// Describe streams the registry's descriptor into sink, tolerating short
// writes and looping until fully consumed — spec §4.4's single-shot export.
// Grounded in the teacher's internal/wasm bytes-sink-write loop pattern,
// adapted from the host side (the teacher tests the import) to the guest
// side (this is the module calling out through it).
func Describe(reg *moduledef.Registry, host abi.Host, sink abi.BytesSinkID) error {
	payload, err := reg.Describe()
	if err != nil {
		return err
	}
	for len(payload) > 0 {
		n, err := host.BytesSinkWrite(sink, payload)
		if err != nil {
			return err
		}
		payload = payload[n:]
	}
	return nil
}

// CallByID runs the state machine of spec §4.4: Decoding -> Running ->
// Succeeded (return 0, host commits) or Failed (return non-zero, host
// rolls back and reads the message from errs). Unknown id writes
// NoSuchReducer to errs and returns a negative sentinel. Any panic
// during Running is recovered, converted to a short UTF-8 message, and
// reported as Failed — it never propagates to the host.
func CallByID(reg *moduledef.Registry, host abi.Host, id uint32, sender [4]uint64, conn [2]uint64, tsMicros uint64, args abi.BytesSourceID, errs abi.BytesSinkID) int16 {
	rd, ok := reg.ReducerByID(id)
	if !ok {
		writeAll(host, errs, []byte(NoSuchReducer))
		return -1
	}

	// Decoding: drain the args source fully into a buffer, then decode
	// against a Reader so a TrailingBytes check can run after the handler
	// consumes its declared parameters.
	raw, err := drainSource(host, args)
	if err != nil {
		writeAll(host, errs, []byte(err.Error()))
		return -1
	}
	reader := bsatn.NewReader(bytes.NewReader(raw))

	ctx := newContext(sender, conn, tsMicros, host)

	result := runReducer(rd, ctx, reader)
	if result != nil {
		writeAll(host, errs, []byte(result.Error()))
		return 1
	}
	if reader.BytesRead() != len(raw) {
		writeAll(host, errs, []byte(bsatn.ErrTrailingBytes.Error()))
		return 1
	}
	return 0
}

// runReducer executes the handler with panic recovery, converting any
// recovered value into an error exactly like a normal Failed return —
// spec §4.4 forbids letting a panic propagate into the host.
func runReducer(rd moduledef.ReducerDef, ctx *Context, args *bsatn.Reader) (failure error) {
	defer func() {
		if p := recover(); p != nil {
			failure = reducerError{msg: panicMessage(p)}
		}
	}()
	if err := rd.Handler(ctx, args); err != nil {
		return reducerError{msg: err.Error()}
	}
	if err := args.Error(); err != nil {
		return reducerError{msg: err.Error()}
	}
	return nil
}

type reducerError struct{ msg string }

func (e reducerError) Error() string { return e.msg }

func panicMessage(p interface{}) string {
	if err, ok := p.(error); ok {
		return err.Error()
	}
	if s, ok := p.(string); ok {
		return s
	}
	return "reducer panicked"
}

func drainSource(host abi.Host, source abi.BytesSourceID) ([]byte, error) {
	var out []byte
	buf := make([]byte, 4096)
	for {
		n, exhausted, err := host.BytesSourceRead(source, buf)
		if err != nil {
			return nil, err
		}
		out = append(out, buf[:n]...)
		if exhausted {
			return out, nil
		}
	}
}

func writeAll(host abi.Host, sink abi.BytesSinkID, data []byte) {
	for len(data) > 0 {
		n, err := host.BytesSinkWrite(sink, data)
		if err != nil || n == 0 {
			return
		}
		data = data[n:]
	}
}
