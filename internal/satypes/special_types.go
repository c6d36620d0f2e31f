package satypes

import (
	"fmt"
	"math/big"
	"time"

	"github.com/clockworklabs/spacetimedb-go-bindings/internal/bsatn"
)

// Sentinel field names that mark a single-field Product as one of the four
// special types spec §3 names. The host/clients recognize a Product by
// this exact field name, not by any out-of-band tag.
const (
	FieldIdentity         = "__identity__"
	FieldConnectionID      = "__connection_id__"
	FieldTimestampMicros   = "__timestamp_micros_since_unix_epoch__"
	FieldTimeDurationMicros = "__time_duration_micros__"
)

// IdentityAlgebraicType builds the single-field Product {__identity__: U256}.
func IdentityAlgebraicType(u256Ref TypeID) AlgebraicType {
	return ProductTypeOf(NamedElement(FieldIdentity, u256Ref))
}

// ConnectionIDAlgebraicType builds the single-field Product
// {__connection_id__: U128}.
func ConnectionIDAlgebraicType(u128Ref TypeID) AlgebraicType {
	return ProductTypeOf(NamedElement(FieldConnectionID, u128Ref))
}

// TimestampAlgebraicType builds {__timestamp_micros_since_unix_epoch__: I64}.
func TimestampAlgebraicType(i64Ref TypeID) AlgebraicType {
	return ProductTypeOf(NamedElement(FieldTimestampMicros, i64Ref))
}

// TimeDurationAlgebraicType builds {__time_duration_micros__: I64}.
func TimeDurationAlgebraicType(i64Ref TypeID) AlgebraicType {
	return ProductTypeOf(NamedElement(FieldTimeDurationMicros, i64Ref))
}

// Identity is the caller's 32-byte persistent identity (spec §3: U256
// payload). The teacher's pkg/spacetimedb/types/core.go Identity was a
// 16-byte array; corrected to 32 bytes here to match the real protocol.
type Identity struct {
	bytes [32]byte
}

func NewIdentity(b [32]byte) Identity { return Identity{bytes: b} }
func (i Identity) Bytes() [32]byte    { return i.bytes }
func (i Identity) IsZero() bool       { return i.bytes == [32]byte{} }
func (i Identity) String() string     { return fmt.Sprintf("Identity(%x)", i.bytes) }

func (i Identity) EncodeBSATN(w *bsatn.Writer) { w.PutU256(i.bytes) }
func (i *Identity) DecodeBSATN(r *bsatn.Reader) {
	b, err := r.GetU256()
	if err == nil {
		i.bytes = b
	}
}

// ConnectionID is the ephemeral 16-byte session handle (spec §3: U128
// payload). Absent entirely from the teacher's core types.
type ConnectionID struct {
	bytes [16]byte
}

func NewConnectionID(b [16]byte) ConnectionID { return ConnectionID{bytes: b} }
func (c ConnectionID) Bytes() [16]byte        { return c.bytes }
func (c ConnectionID) IsZero() bool           { return c.bytes == [16]byte{} }
func (c ConnectionID) String() string         { return fmt.Sprintf("ConnectionID(%x)", c.bytes) }

func (c ConnectionID) EncodeBSATN(w *bsatn.Writer) { w.PutU128(c.bytes) }
func (c *ConnectionID) DecodeBSATN(r *bsatn.Reader) {
	b, err := r.GetU128()
	if err == nil {
		c.bytes = b
	}
}

// Timestamp is wall-clock microseconds since the Unix epoch (spec §3: I64).
type Timestamp struct {
	Micros int64
}

func NewTimestamp(micros int64) Timestamp           { return Timestamp{Micros: micros} }
func NewTimestampFromTime(t time.Time) Timestamp    { return Timestamp{Micros: t.UnixMicro()} }
func (t Timestamp) ToTime() time.Time               { return time.UnixMicro(t.Micros) }
func (t Timestamp) String() string                  { return t.ToTime().UTC().Format(time.RFC3339Nano) }
func (t Timestamp) Add(d TimeDuration) Timestamp     { return Timestamp{Micros: t.Micros + d.Micros} }
func (t Timestamp) Sub(o Timestamp) TimeDuration      { return TimeDuration{Micros: t.Micros - o.Micros} }

func (t Timestamp) EncodeBSATN(w *bsatn.Writer) { w.PutI64(t.Micros) }
func (t *Timestamp) DecodeBSATN(r *bsatn.Reader) {
	v, err := r.GetI64()
	if err == nil {
		t.Micros = v
	}
}

// TimeDuration is a signed microsecond duration (spec §3: I64).
type TimeDuration struct {
	Micros int64
}

func NewTimeDuration(micros int64) TimeDuration { return TimeDuration{Micros: micros} }
func NewTimeDurationFromDuration(d time.Duration) TimeDuration {
	return TimeDuration{Micros: d.Microseconds()}
}
func (d TimeDuration) ToDuration() time.Duration { return time.Duration(d.Micros) * time.Microsecond }

func (d TimeDuration) EncodeBSATN(w *bsatn.Writer) { w.PutI64(d.Micros) }
func (d *TimeDuration) DecodeBSATN(r *bsatn.Reader) {
	v, err := r.GetI64()
	if err == nil {
		d.Micros = v
	}
}

// ScheduleAt is the Sum over {Interval(TimeDuration), Time(Timestamp)} that
// a scheduled table's schedule-at column holds (spec §3).
type ScheduleAt struct {
	IsInterval bool
	Interval   TimeDuration
	Time       Timestamp
}

func NewScheduleAtInterval(d TimeDuration) ScheduleAt { return ScheduleAt{IsInterval: true, Interval: d} }
func NewScheduleAtTime(t Timestamp) ScheduleAt        { return ScheduleAt{IsInterval: false, Time: t} }

func (s ScheduleAt) EncodeBSATN(w *bsatn.Writer) {
	if s.IsInterval {
		w.PutSumTag(0)
		s.Interval.EncodeBSATN(w)
	} else {
		w.PutSumTag(1)
		s.Time.EncodeBSATN(w)
	}
}

func (s *ScheduleAt) DecodeBSATN(r *bsatn.Reader) {
	tag, err := r.GetSumTag()
	if err != nil {
		return
	}
	switch tag {
	case 0:
		s.IsInterval = true
		s.Interval.DecodeBSATN(r)
	case 1:
		s.IsInterval = false
		s.Time.DecodeBSATN(r)
	default:
		r.Fail(bsatn.ErrInvalidTag)
	}
}

// Int128 / Uint128 / Int256 / Uint256 are little-endian fixed-width
// representations — spec §9 resolves the "placeholder 128/256-bit integer
// types" open question by picking exactly this: a byte array plus only the
// construction/inspection helpers the codec needs, backed by math/big only
// at the edges (never on the hot encode/decode path).

type Uint128 struct{ b [16]byte }
type Int128 struct{ b [16]byte }
type Uint256 struct{ b [32]byte }
type Int256 struct{ b [32]byte }

func NewUint128(b [16]byte) Uint128 { return Uint128{b: b} }
func (v Uint128) Bytes() [16]byte   { return v.b }
func (v Uint128) Equal(o Uint128) bool { return v.b == o.b }
func (v Uint128) Big() *big.Int {
	rev := reverse(v.b[:])
	return new(big.Int).SetBytes(rev)
}
func Uint128FromBig(x *big.Int) Uint128 {
	var out [16]byte
	copy(out[:], leftPadReversed(x.Bytes(), 16))
	return Uint128{b: out}
}
func (v Uint128) EncodeBSATN(w *bsatn.Writer) { w.PutU128(v.b) }
func (v *Uint128) DecodeBSATN(r *bsatn.Reader) {
	b, err := r.GetU128()
	if err == nil {
		v.b = b
	}
}

func NewInt128(b [16]byte) Int128    { return Int128{b: b} }
func (v Int128) Bytes() [16]byte     { return v.b }
func (v Int128) Equal(o Int128) bool { return v.b == o.b }
func (v Int128) EncodeBSATN(w *bsatn.Writer) { w.PutI128(v.b) }
func (v *Int128) DecodeBSATN(r *bsatn.Reader) {
	b, err := r.GetI128()
	if err == nil {
		v.b = b
	}
}

func NewUint256(b [32]byte) Uint256    { return Uint256{b: b} }
func (v Uint256) Bytes() [32]byte      { return v.b }
func (v Uint256) Equal(o Uint256) bool { return v.b == o.b }
func (v Uint256) Big() *big.Int {
	return new(big.Int).SetBytes(reverse(v.b[:]))
}
func Uint256FromBig(x *big.Int) Uint256 {
	var out [32]byte
	copy(out[:], leftPadReversed(x.Bytes(), 32))
	return Uint256{b: out}
}
func (v Uint256) EncodeBSATN(w *bsatn.Writer) { w.PutU256(v.b) }
func (v *Uint256) DecodeBSATN(r *bsatn.Reader) {
	b, err := r.GetU256()
	if err == nil {
		v.b = b
	}
}

func NewInt256(b [32]byte) Int256    { return Int256{b: b} }
func (v Int256) Bytes() [32]byte     { return v.b }
func (v Int256) Equal(o Int256) bool { return v.b == o.b }
func (v Int256) EncodeBSATN(w *bsatn.Writer) { w.PutI256(v.b) }
func (v *Int256) DecodeBSATN(r *bsatn.Reader) {
	b, err := r.GetI256()
	if err == nil {
		v.b = b
	}
}

// reverse returns a big-endian copy of a little-endian byte slice (and
// vice versa) for interop with math/big, which is big-endian only.
func reverse(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}

// leftPadReversed takes a big-endian magnitude (as produced by
// (*big.Int).Bytes) and returns it little-endian, zero-padded to width.
func leftPadReversed(beMagnitude []byte, width int) []byte {
	padded := make([]byte, width)
	if len(beMagnitude) > width {
		beMagnitude = beMagnitude[len(beMagnitude)-width:]
	}
	copy(padded[width-len(beMagnitude):], beMagnitude)
	return reverse(padded)
}
