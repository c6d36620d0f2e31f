package satypes_test

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/clockworklabs/spacetimedb-go-bindings/internal/bsatn"
	"github.com/clockworklabs/spacetimedb-go-bindings/internal/satypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypespaceUnitAtZero(t *testing.T) {
	ts := satypes.NewTypespace()
	assert.Equal(t, 1, ts.Len())
	unit, ok := ts.Lookup(ts.UnitTypeID())
	require.True(t, ok)
	assert.Equal(t, satypes.KindProduct, unit.Kind)
	assert.Empty(t, unit.Product.Elements)
}

func TestRegisterIsMonotonic(t *testing.T) {
	ts := satypes.NewTypespace()
	a := ts.Register(satypes.U32Type())
	b := ts.Register(satypes.StringType())
	c := ts.Register(satypes.BoolType())
	assert.Less(t, a, b)
	assert.Less(t, b, c)
}

func TestSumOfUnitVariantsFramesAsRealSum(t *testing.T) {
	ts := satypes.NewTypespace()
	unit := ts.UnitTypeID()
	color := ts.Register(satypes.SumOfUnitVariants(unit, "red", "green", "blue"))

	got, ok := ts.Lookup(color)
	require.True(t, ok)
	require.Equal(t, satypes.KindSum, got.Kind)
	require.Len(t, got.Sum.Variants, 3)
	for i, name := range []string{"red", "green", "blue"} {
		require.NotNil(t, got.Sum.Variants[i].Name)
		assert.Equal(t, name, *got.Sum.Variants[i].Name)
		assert.Equal(t, unit, got.Sum.Variants[i].Type)
	}
}

func TestSmallestUintForPicksNarrowestWidth(t *testing.T) {
	assert.Equal(t, 8, satypes.SmallestUintFor(1))
	assert.Equal(t, 8, satypes.SmallestUintFor(256))
	assert.Equal(t, 16, satypes.SmallestUintFor(257))
	assert.Equal(t, 16, satypes.SmallestUintFor(65536))
	assert.Equal(t, 32, satypes.SmallestUintFor(65537))
}

func TestRegisterNamedIsIdempotent(t *testing.T) {
	ts := satypes.NewTypespace()
	id1 := ts.RegisterNamed("pkg.Foo", satypes.U32Type(), false)
	lenAfterFirst := ts.Len()
	id2 := ts.RegisterNamed("pkg.Foo", satypes.StringType(), false) // different type, same name
	assert.Equal(t, id1, id2)
	assert.Equal(t, lenAfterFirst, ts.Len(), "a second RegisterNamed with the same name must not grow the typespace")
}

func TestTypespaceRoundTrip(t *testing.T) {
	ts := satypes.NewTypespace()
	ts.Register(satypes.U32Type())
	ts.Register(satypes.StringType())
	id := ts.Register(satypes.ProductTypeOf(
		satypes.NamedElement("a", 1),
		satypes.UnnamedElement(2),
	))
	_ = id

	var buf bytes.Buffer
	w := bsatn.NewWriter(&buf)
	ts.EncodeBSATN(w)
	require.NoError(t, w.Error())

	decoded := satypes.NewTypespace()
	r := bsatn.NewReader(bytes.NewReader(buf.Bytes()))
	decoded.DecodeBSATN(r)
	require.NoError(t, r.Error())
	assert.Equal(t, ts.Len(), decoded.Len())

	orig, _ := ts.Lookup(3)
	got, _ := decoded.Lookup(3)
	assert.Equal(t, orig.Kind, got.Kind)
	assert.Equal(t, orig.Product.Elements, got.Product.Elements)
}

func TestAlgebraicTypeEncodeDecodeRoundTrip(t *testing.T) {
	cases := []satypes.AlgebraicType{
		satypes.U32Type(),
		satypes.StringType(),
		satypes.BoolType(),
		satypes.RefType(7),
		satypes.ArrayTypeOf(3),
		satypes.ProductTypeOf(satypes.NamedElement("x", 1), satypes.NamedElement("y", 2)),
		satypes.SumTypeOf(satypes.NamedVariant("ok", 1), satypes.NamedVariant("err", 2)),
		satypes.OptionOf(5, 0),
	}
	for _, at := range cases {
		var buf bytes.Buffer
		w := bsatn.NewWriter(&buf)
		at.EncodeBSATN(w)
		require.NoError(t, w.Error())

		var decoded satypes.AlgebraicType
		r := bsatn.NewReader(bytes.NewReader(buf.Bytes()))
		decoded.DecodeBSATN(r)
		require.NoError(t, r.Error())
		assert.Equal(t, at.Kind, decoded.Kind)
	}
}

func TestAlgebraicTypeDecodeRejectsOutOfRangeKind(t *testing.T) {
	// Kind 255 is well past KindF64 (19); the decoder must record an error,
	// not silently accept an unknown variant.
	raw := []byte{255}
	var at satypes.AlgebraicType
	r := bsatn.NewReader(bytes.NewReader(raw))
	at.DecodeBSATN(r)
	assert.ErrorIs(t, r.Error(), bsatn.ErrInvalidTag)
}

func TestIdentityRoundTrip(t *testing.T) {
	var raw [32]byte
	for i := range raw {
		raw[i] = byte(i)
	}
	id := satypes.NewIdentity(raw)
	assert.False(t, id.IsZero())

	var buf bytes.Buffer
	w := bsatn.NewWriter(&buf)
	id.EncodeBSATN(w)
	require.NoError(t, w.Error())
	assert.Len(t, buf.Bytes(), 32)

	var decoded satypes.Identity
	r := bsatn.NewReader(bytes.NewReader(buf.Bytes()))
	decoded.DecodeBSATN(r)
	require.NoError(t, r.Error())
	assert.Equal(t, id, decoded)
}

func TestConnectionIDZeroMeansModuleCall(t *testing.T) {
	var zero [16]byte
	cid := satypes.NewConnectionID(zero)
	assert.True(t, cid.IsZero())
}

func TestScheduleAtRoundTrip(t *testing.T) {
	cases := []satypes.ScheduleAt{
		satypes.NewScheduleAtInterval(satypes.NewTimeDuration(1_000_000)),
		satypes.NewScheduleAtTime(satypes.NewTimestamp(42)),
	}
	for _, s := range cases {
		var buf bytes.Buffer
		w := bsatn.NewWriter(&buf)
		s.EncodeBSATN(w)
		require.NoError(t, w.Error())

		var decoded satypes.ScheduleAt
		r := bsatn.NewReader(bytes.NewReader(buf.Bytes()))
		decoded.DecodeBSATN(r)
		require.NoError(t, r.Error())
		assert.Equal(t, s, decoded)
	}
}

func TestUint128BigIntInterop(t *testing.T) {
	var raw [16]byte
	raw[0] = 0xFF // little-endian: value 255
	v := satypes.NewUint128(raw)
	assert.Equal(t, "255", v.Big().String())

	back := satypes.Uint128FromBig(v.Big())
	assert.True(t, v.Equal(back))
}

func TestUint256BigIntInterop(t *testing.T) {
	x, ok := new(big.Int).SetString("340282366920938463463374607431768211456", 10) // 2^128
	require.True(t, ok)
	v := satypes.Uint256FromBig(x)
	assert.Equal(t, "340282366920938463463374607431768211456", v.Big().String())
}
