package table_test

import (
	"testing"

	"github.com/clockworklabs/spacetimedb-go-bindings/internal/bsatn"
	"github.com/clockworklabs/spacetimedb-go-bindings/internal/hostsim"
	"github.com/clockworklabs/spacetimedb-go-bindings/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// item is a minimal bsatn.Value used to drive internal/table against
// internal/hostsim.
type item struct {
	Key   uint32
	Label string
}

func (it item) EncodeBSATN(w *bsatn.Writer) {
	w.PutU32(it.Key)
	w.PutString(it.Label)
}

func (it *item) DecodeBSATN(r *bsatn.Reader) {
	it.Key, _ = r.GetU32()
	it.Label, _ = r.GetString()
}

func keyOf(v []byte) []byte { return v[:4] }

func newItemTable(t *testing.T) (*hostsim.Host, *table.Table, *table.Index) {
	t.Helper()
	host := hostsim.New([32]byte{})
	tblID := host.CreateTable("item")
	ixID, err := host.CreateIndex(tblID, "by_key", false, keyOf)
	require.NoError(t, err)

	tbl := table.NewTable(host, "item")
	ix := table.NewIndex(host, tbl, ixID, false)
	return host, tbl, ix
}

func TestTableInsertAndCount(t *testing.T) {
	_, tbl, _ := newItemTable(t)

	var out item
	require.NoError(t, tbl.Insert(&item{Key: 1, Label: "a"}, &out))
	assert.Equal(t, uint32(1), out.Key)

	count, err := tbl.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestTableIDIsResolvedOnceAndCached(t *testing.T) {
	host := hostsim.New([32]byte{})
	host.CreateTable("item")
	tbl := table.NewTable(host, "item")

	id1, err := tbl.ID()
	require.NoError(t, err)
	id2, err := tbl.ID()
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
}

func TestTableDeleteByValue(t *testing.T) {
	_, tbl, _ := newItemTable(t)
	var out item
	require.NoError(t, tbl.Insert(&item{Key: 1, Label: "a"}, &out))

	deleted, err := tbl.DeleteByValue(&item{Key: 1, Label: "a"})
	require.NoError(t, err)
	assert.True(t, deleted)

	count, err := tbl.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestIndexFilterRangeAndDeleteRange(t *testing.T) {
	_, tbl, ix := newItemTable(t)
	for _, k := range []uint32{1, 2, 3, 5, 8, 13} {
		var out item
		require.NoError(t, tbl.Insert(&item{Key: k, Label: "x"}, &out))
	}

	var u32Lo, u32Hi bsatn.U32 = 2, 8
	it, err := ix.FilterRange(table.Range{
		Start: table.Inclusive(&u32Lo),
		End:   table.Exclusive(&u32Hi),
	})
	require.NoError(t, err)

	var keys []uint32
	err = table.ForEach(it, func() bsatn.Value { return new(item) }, func(v bsatn.Value) (bool, error) {
		keys = append(keys, v.(*item).Key)
		return true, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []uint32{2, 3, 5}, keys)

	removed, err := ix.DeleteRange(table.Range{
		Start: table.Inclusive(&u32Lo),
		End:   table.Exclusive(&u32Hi),
	})
	require.NoError(t, err)
	assert.Equal(t, uint32(3), removed)

	count, err := tbl.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)
}

// TestIteratorExhaustion exercises spec §8 scenario 8 through the typed
// table API rather than hostsim directly.
func TestIteratorExhaustion(t *testing.T) {
	t.Run("empty table", func(t *testing.T) {
		_, tbl, ix := newItemTable(t)
		_ = tbl
		it, err := ix.Filter(func() bsatn.Value { u := bsatn.U32(0); return &u }())
		require.NoError(t, err)
		var count int
		err = table.ForEach(it, func() bsatn.Value { return new(item) }, func(v bsatn.Value) (bool, error) {
			count++
			return true, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})

	t.Run("ten rows then exhausted", func(t *testing.T) {
		_, tbl, ix := newItemTable(t)
		for i := uint32(0); i < 10; i++ {
			var out item
			require.NoError(t, tbl.Insert(&item{Key: i, Label: "r"}, &out))
		}
		it, err := ix.FilterRange(table.Range{Start: table.Unbounded(), End: table.Unbounded()})
		require.NoError(t, err)
		var count int
		err = table.ForEach(it, func() bsatn.Value { return new(item) }, func(v bsatn.Value) (bool, error) {
			count++
			return true, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 10, count)
	})
}
