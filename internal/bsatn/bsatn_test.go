package bsatn_test

import (
	"bytes"
	"math"
	"testing"

	"github.com/clockworklabs/spacetimedb-go-bindings/internal/bsatn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// person is a hand-rolled bsatn.Value mirroring the spec's Product encoding
// scenario: {id: u32, name: string, age: u8}.
type person struct {
	ID   uint32
	Name string
	Age  uint8
}

func (p person) EncodeBSATN(w *bsatn.Writer) {
	w.PutU32(p.ID)
	w.PutString(p.Name)
	w.PutU8(p.Age)
}

func (p *person) DecodeBSATN(r *bsatn.Reader) {
	p.ID, _ = r.GetU32()
	p.Name, _ = r.GetString()
	p.Age, _ = r.GetU8()
}

func TestPrimitivesRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := bsatn.NewWriter(&buf)
	w.PutU32(0x12345678)
	w.PutString("Hi")
	require.NoError(t, w.Error())
	assert.Equal(t, []byte{
		0x78, 0x56, 0x34, 0x12,
		0x02, 0x00, 0x00, 0x00, 0x48, 0x69,
	}, buf.Bytes())

	r := bsatn.NewReader(bytes.NewReader(buf.Bytes()))
	u, err := r.GetU32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x12345678), u)
	s, err := r.GetString()
	require.NoError(t, err)
	assert.Equal(t, "Hi", s)
}

func TestOptionFraming(t *testing.T) {
	t.Run("none", func(t *testing.T) {
		var buf bytes.Buffer
		w := bsatn.NewWriter(&buf)
		w.PutOptionNone()
		assert.Equal(t, []byte{0x01}, buf.Bytes())
	})
	t.Run("some", func(t *testing.T) {
		var buf bytes.Buffer
		w := bsatn.NewWriter(&buf)
		w.PutOptionSome()
		w.PutU8(5)
		assert.Equal(t, []byte{0x00, 0x05}, buf.Bytes())
	})
	t.Run("name present/absent use the same 0/1 convention", func(t *testing.T) {
		var present, absent bytes.Buffer
		wp := bsatn.NewWriter(&present)
		wp.PutNamePresent("x")
		wa := bsatn.NewWriter(&absent)
		wa.PutNameAbsent()
		assert.Equal(t, uint8(0x00), present.Bytes()[0])
		assert.Equal(t, []byte{0x01}, absent.Bytes())
	})
}

func TestProductEncoding(t *testing.T) {
	p := person{ID: 1, Name: "Alice", Age: 30}
	var buf bytes.Buffer
	w := bsatn.NewWriter(&buf)
	p.EncodeBSATN(w)
	require.NoError(t, w.Error())

	want := []byte{
		0x01, 0x00, 0x00, 0x00, // id = 1
		0x05, 0x00, 0x00, 0x00, 0x41, 0x6C, 0x69, 0x63, 0x65, // name = "Alice"
		0x1E, // age = 30
	}
	require.Len(t, want, 14)
	assert.Equal(t, want, buf.Bytes())

	var decoded person
	r := bsatn.NewReader(bytes.NewReader(buf.Bytes()))
	decoded.DecodeBSATN(r)
	require.NoError(t, r.Error())
	assert.Equal(t, p, decoded)
}

func TestDecoderNeverOverAdvancesOnFailure(t *testing.T) {
	// A truncated string length prefix: claims 10 bytes, supplies 2.
	raw := []byte{0x0A, 0x00, 0x00, 0x00, 0x41, 0x42}
	r := bsatn.NewReader(bytes.NewReader(raw))
	_, err := r.GetString()
	require.Error(t, err)
	// The reader is now in a failed state; further reads are no-ops, not
	// partial successes.
	_, err2 := r.GetU8()
	assert.Error(t, err2)
}

func TestWriterRejectsNonUTF8Strings(t *testing.T) {
	var buf bytes.Buffer
	w := bsatn.NewWriter(&buf)
	w.PutString(string([]byte{0xff, 0xfe}))
	assert.ErrorIs(t, w.Error(), bsatn.ErrInvalidUtf8)
}

func TestWriterRejectsNaNAndInf(t *testing.T) {
	var buf bytes.Buffer
	w := bsatn.NewWriter(&buf)
	w.PutF64(1.0)
	w.PutF64(0)
	require.NoError(t, w.Error())

	w.PutF64(math.NaN())
	assert.ErrorIs(t, w.Error(), bsatn.ErrInvalidTag)

	var infBuf bytes.Buffer
	wi := bsatn.NewWriter(&infBuf)
	wi.PutF32(float32(math.Inf(1)))
	assert.ErrorIs(t, wi.Error(), bsatn.ErrInvalidTag)
}

func TestBytesRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := bsatn.NewWriter(&buf)
	payload := []byte{0xde, 0xad, 0xbe, 0xef}
	w.PutBytes(payload)
	require.NoError(t, w.Error())

	r := bsatn.NewReader(bytes.NewReader(buf.Bytes()))
	got, err := r.GetBytes()
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}
