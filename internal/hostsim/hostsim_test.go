package hostsim_test

import (
	"bytes"
	"testing"

	"github.com/clockworklabs/spacetimedb-go-bindings/internal/abi"
	"github.com/clockworklabs/spacetimedb-go-bindings/internal/bsatn"
	"github.com/clockworklabs/spacetimedb-go-bindings/internal/hostsim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeU32Row(key uint32, label string) []byte {
	var buf bytes.Buffer
	w := bsatn.NewWriter(&buf)
	w.PutU32(key)
	w.PutString(label)
	return buf.Bytes()
}

func keyOfU32Row(v []byte) []byte { return v[:4] }

// TestUniqueConstraintRejection is spec §8 scenario 6.
func TestUniqueConstraintRejection(t *testing.T) {
	h := hostsim.New([32]byte{})
	tbl := h.CreateTable("unique_table")
	_, err := h.CreateIndex(tbl, "by_key", true, keyOfU32Row)
	require.NoError(t, err)

	_, err = h.DatastoreInsertBSATN(tbl, encodeU32Row(1, "a"))
	require.NoError(t, err)

	_, err = h.DatastoreInsertBSATN(tbl, encodeU32Row(1, "b"))
	assert.ErrorIs(t, err, abi.ErrUniqueConstraintViolation)
}

// TestRangeScanAndDelete is spec §8 scenario 7.
func TestRangeScanAndDelete(t *testing.T) {
	h := hostsim.New([32]byte{})
	tbl := h.CreateTable("item")
	ix, err := h.CreateIndex(tbl, "by_key", false, keyOfU32Row)
	require.NoError(t, err)

	for _, k := range []uint32{1, 2, 3, 5, 8, 13} {
		_, err := h.DatastoreInsertBSATN(tbl, encodeU32Row(k, "x"))
		require.NoError(t, err)
	}

	start := boundBytes(abi.BoundInclusive, 2)
	end := boundBytes(abi.BoundExclusive, 8)

	iter, err := h.DatastoreBTreeScanBSATN(ix, nil, start, end)
	require.NoError(t, err)

	var keys []uint32
	buf := make([]byte, 4096)
	for {
		n, exhausted, err := h.RowIterBSATNAdvance(iter, buf)
		require.NoError(t, err)
		r := bsatn.NewReader(bytes.NewReader(buf[:n]))
		for r.Error() == nil {
			k, kerr := r.GetU32()
			if kerr != nil {
				break
			}
			_, _ = r.GetString()
			keys = append(keys, k)
		}
		if exhausted {
			break
		}
	}
	assert.Equal(t, []uint32{2, 3, 5}, keys)

	count, err := h.DatastoreDeleteByBTreeScanBSATN(ix, nil, start, end)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), count)

	remaining, err := h.TableRowCount(tbl)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), remaining)
}

func boundBytes(kind abi.BoundKind, key uint32) []byte {
	var buf bytes.Buffer
	w := bsatn.NewWriter(&buf)
	w.PutU8(uint8(kind))
	w.PutU32(key)
	return buf.Bytes()
}

// TestIteratorExhaustion is spec §8 scenario 8.
func TestIteratorExhaustion(t *testing.T) {
	t.Run("empty table", func(t *testing.T) {
		h := hostsim.New([32]byte{})
		tbl := h.CreateTable("empty")
		ix, err := h.CreateIndex(tbl, "by_key", false, keyOfU32Row)
		require.NoError(t, err)

		iter, err := h.DatastoreBTreeScanBSATN(ix, nil, nil, nil)
		require.NoError(t, err)

		n, exhausted, err := h.RowIterBSATNAdvance(iter, make([]byte, 64))
		require.NoError(t, err)
		assert.Equal(t, 0, n)
		assert.True(t, exhausted)
	})

	t.Run("ten rows then exhausted", func(t *testing.T) {
		h := hostsim.New([32]byte{})
		tbl := h.CreateTable("ten")
		ix, err := h.CreateIndex(tbl, "by_key", false, keyOfU32Row)
		require.NoError(t, err)
		for i := uint32(0); i < 10; i++ {
			_, err := h.DatastoreInsertBSATN(tbl, encodeU32Row(i, "row"))
			require.NoError(t, err)
		}

		iter, err := h.DatastoreBTreeScanBSATN(ix, nil, nil, nil)
		require.NoError(t, err)

		total := 0
		buf := make([]byte, 4096)
		for {
			n, exhausted, err := h.RowIterBSATNAdvance(iter, buf)
			require.NoError(t, err)
			r := bsatn.NewReader(bytes.NewReader(buf[:n]))
			for r.Error() == nil {
				if _, kerr := r.GetU32(); kerr != nil {
					break
				}
				if _, serr := r.GetString(); serr != nil {
					break
				}
				total++
			}
			if exhausted {
				break
			}
		}
		assert.Equal(t, 10, total)
	})
}

func TestBytesSourceSinkRoundTrip(t *testing.T) {
	h := hostsim.New([32]byte{})
	src := h.NewBytesSource([]byte("hello world"))
	var got []byte
	buf := make([]byte, 4)
	for {
		n, exhausted, err := h.BytesSourceRead(src, buf)
		require.NoError(t, err)
		got = append(got, buf[:n]...)
		if exhausted {
			break
		}
	}
	assert.Equal(t, "hello world", string(got))

	sink := h.NewBytesSink()
	n, err := h.BytesSinkWrite(sink, []byte("reply"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "reply", string(h.SinkBytes(sink)))
}

func TestTableIDFromNameUnknown(t *testing.T) {
	h := hostsim.New([32]byte{})
	_, err := h.TableIDFromName("nope")
	assert.ErrorIs(t, err, abi.ErrNoSuchTable)
}

func TestIndexIDFromName(t *testing.T) {
	h := hostsim.New([32]byte{})
	tbl := h.CreateTable("item")
	want, err := h.CreateIndex(tbl, "by_key", false, keyOfU32Row)
	require.NoError(t, err)

	got, err := h.IndexIDFromName("by_key")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = h.IndexIDFromName("nope")
	assert.ErrorIs(t, err, abi.ErrNoSuchIndex)
}
