package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coolan2013/xapian/internal/keycodec"
	"github.com/coolan2013/xapian/internal/sstable"
	"github.com/coolan2013/xapian/internal/storage"
)

func Test_DocidKeyed_ConcatenatesInputsInOrderWithOffset(t *testing.T) {
	in1 := buildPostlistTable(t, "d1.table", [][2][]byte{
		{keycodec.EncodeDocidKeyedKey(1, nil), []byte("one")},
		{keycodec.EncodeDocidKeyedKey(2, nil), []byte("two")},
	})
	in2 := buildPostlistTable(t, "d2.table", [][2][]byte{
		{keycodec.EncodeDocidKeyedKey(1, nil), []byte("three")},
	})

	outFS := storage.NewMemFS()
	out, err := sstable.NewWriter(outFS, "out.table", sstable.WriterOptions{})
	require.NoError(t, err)
	require.NoError(t, DocidKeyed(out, []*sstable.Reader{in1, in2}, []uint64{0, 2}))
	require.NoError(t, out.FlushDB())
	outReader, err := out.Commit(nil, 0)
	require.NoError(t, err)

	var dids []uint64
	var values []string
	for {
		key, value, _, ok, err := outReader.ReadItem()
		require.NoError(t, err)
		if !ok {
			break
		}
		did, _, err := keycodec.SplitDocidKeyedKey(key)
		require.NoError(t, err)
		dids = append(dids, did)
		values = append(values, string(value))
	}
	assert.Equal(t, []uint64{1, 2, 3}, dids)
	assert.Equal(t, []string{"one", "two", "three"}, values)
}
