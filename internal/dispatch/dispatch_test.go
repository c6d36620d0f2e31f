package dispatch_test

import (
	"bytes"
	"testing"

	"github.com/clockworklabs/spacetimedb-go-bindings/internal/abi"
	"github.com/clockworklabs/spacetimedb-go-bindings/internal/bsatn"
	"github.com/clockworklabs/spacetimedb-go-bindings/internal/dispatch"
	"github.com/clockworklabs/spacetimedb-go-bindings/internal/hostsim"
	"github.com/clockworklabs/spacetimedb-go-bindings/internal/moduledef"
	"github.com/clockworklabs/spacetimedb-go-bindings/internal/satypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keyOfU32Row(v []byte) []byte { return v[:4] }

// TestReducerDispatchHappyPath is spec §8 scenario 5: call_by_id(0, ...,
// args=source("Alice"|30)) runs the add handler, which inserts a person
// row and returns 0.
func TestReducerDispatchHappyPath(t *testing.T) {
	ts := satypes.NewTypespace()
	reg := moduledef.NewRegistry(ts)

	argsType := ts.RegisterNamed("test.AddArgs", satypes.ProductTypeOf(
		satypes.NamedElement("name", ts.Register(satypes.StringType())),
		satypes.NamedElement("age", ts.Register(satypes.U8Type())),
	), false)

	var insertedName string
	var insertedAge uint8
	handler := func(ctx interface{}, args *bsatn.Reader) error {
		name, _ := args.GetString()
		age, _ := args.GetU8()
		insertedName, insertedAge = name, age

		dctx := ctx.(*dispatch.Context)
		row := bytesRow(name, age)
		_, err := dctx.Host.DatastoreInsertBSATN(personTableID(t, dctx.Host), row)
		return err
	}
	id, err := reg.RegisterReducer("add", argsType, handler, nil)
	require.NoError(t, err)
	assert.Equal(t, moduledef.ReducerID(0), id)

	host := hostsim.New([32]byte{})
	host.CreateTable("person")

	var argBuf bytes.Buffer
	w := bsatn.NewWriter(&argBuf)
	w.PutString("Alice")
	w.PutU8(30)
	argsSource := host.NewBytesSource(argBuf.Bytes())
	errSink := host.NewBytesSink()

	ret := dispatch.CallByID(reg, host, 0, [4]uint64{1, 2, 3, 4}, [2]uint64{}, 1000, argsSource, errSink)
	assert.Equal(t, int16(0), ret)
	assert.Equal(t, "Alice", insertedName)
	assert.Equal(t, uint8(30), insertedAge)

	count, err := host.TableRowCount(personTableID(t, host))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestCallByIDUnknownReducer(t *testing.T) {
	ts := satypes.NewTypespace()
	reg := moduledef.NewRegistry(ts)
	host := hostsim.New([32]byte{})

	errSink := host.NewBytesSink()
	argsSource := host.NewBytesSource(nil)
	ret := dispatch.CallByID(reg, host, 42, [4]uint64{}, [2]uint64{}, 0, argsSource, errSink)
	assert.Equal(t, int16(-1), ret)
	assert.Equal(t, dispatch.NoSuchReducer, string(host.SinkBytes(errSink)))
}

func TestCallByIDRecoversPanics(t *testing.T) {
	ts := satypes.NewTypespace()
	reg := moduledef.NewRegistry(ts)
	_, err := reg.RegisterReducer("boom", ts.UnitTypeID(), func(ctx interface{}, args *bsatn.Reader) error {
		panic("kaboom")
	}, nil)
	require.NoError(t, err)

	host := hostsim.New([32]byte{})
	errSink := host.NewBytesSink()
	argsSource := host.NewBytesSource(nil)

	ret := dispatch.CallByID(reg, host, 0, [4]uint64{}, [2]uint64{}, 0, argsSource, errSink)
	assert.Equal(t, int16(1), ret)
	assert.Equal(t, "kaboom", string(host.SinkBytes(errSink)))
}

func TestCallByIDPropagatesHandlerError(t *testing.T) {
	ts := satypes.NewTypespace()
	reg := moduledef.NewRegistry(ts)
	_, err := reg.RegisterReducer("fails", ts.UnitTypeID(), func(ctx interface{}, args *bsatn.Reader) error {
		return assert.AnError
	}, nil)
	require.NoError(t, err)

	host := hostsim.New([32]byte{})
	errSink := host.NewBytesSink()
	argsSource := host.NewBytesSource(nil)

	ret := dispatch.CallByID(reg, host, 0, [4]uint64{}, [2]uint64{}, 0, argsSource, errSink)
	assert.Equal(t, int16(1), ret)
	assert.NotEmpty(t, host.SinkBytes(errSink))
}

func TestContextConnectionIDNilWhenZero(t *testing.T) {
	ts := satypes.NewTypespace()
	reg := moduledef.NewRegistry(ts)
	var sawConn bool
	var connWasNil bool
	_, err := reg.RegisterReducer("check", ts.UnitTypeID(), func(ctx interface{}, args *bsatn.Reader) error {
		dctx := ctx.(*dispatch.Context)
		sawConn = true
		connWasNil = dctx.ConnectionID == nil
		return nil
	}, nil)
	require.NoError(t, err)

	host := hostsim.New([32]byte{})
	errSink := host.NewBytesSink()
	argsSource := host.NewBytesSource(nil)
	ret := dispatch.CallByID(reg, host, 0, [4]uint64{9, 9, 9, 9}, [2]uint64{}, 5, argsSource, errSink)
	assert.Equal(t, int16(0), ret)
	assert.True(t, sawConn)
	assert.True(t, connWasNil)
}

func personTableID(t *testing.T, host abi.Host) abi.TableID {
	t.Helper()
	id, err := host.TableIDFromName("person")
	require.NoError(t, err)
	return id
}

func bytesRow(name string, age uint8) []byte {
	var buf bytes.Buffer
	w := bsatn.NewWriter(&buf)
	w.PutString(name)
	w.PutU8(age)
	return buf.Bytes()
}
