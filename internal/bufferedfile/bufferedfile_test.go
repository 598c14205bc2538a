package bufferedfile

import (
	"io"
	"testing"

	"github.com/coolan2013/xapian/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_RoundTrip_WriteFlushRewindRead(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		bufSize int
	}{
		{name: "smaller than buffer", payload: []byte("hello sstable"), bufSize: 4096},
		{name: "exact buffer size", payload: make([]byte, 16), bufSize: 16},
		{name: "larger than buffer, bypasses it", payload: make([]byte, 10_000), bufSize: 128},
		{name: "many small writes spanning several flushes", payload: nil, bufSize: 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := storage.NewMemFS()
			f, err := Open(fs, "table", false, WithBufferSize(tt.bufSize))
			require.NoError(t, err)

			payload := tt.payload
			if payload == nil {
				for i := 0; i < 100; i++ {
					require.NoError(t, f.WriteByte(byte(i)))
				}
				payload = make([]byte, 100)
				for i := range payload {
					payload[i] = byte(i)
				}
			} else {
				_, err = f.Write(payload)
				require.NoError(t, err)
			}

			require.NoError(t, f.Flush())
			require.NoError(t, f.Rewind())

			got := make([]byte, len(payload))
			require.NoError(t, f.ReadFull(got))
			assert.Equal(t, payload, got)

			_, err = f.ReadByte()
			assert.ErrorIs(t, err, io.EOF)

			require.NoError(t, f.Close())
		})
	}
}

func Test_GetPos_ConsistentAcrossRewind(t *testing.T) {
	fs := storage.NewMemFS()
	f, err := Open(fs, "table", false, WithBufferSize(8))
	require.NoError(t, err)

	payload := []byte("0123456789abcdef")
	for _, b := range payload {
		posBefore := f.GetPos()
		require.NoError(t, f.WriteByte(b))
		assert.Equal(t, posBefore+1, f.GetPos())
	}

	require.NoError(t, f.Rewind())
	for i := range payload {
		posBefore := f.GetPos()
		b, err := f.ReadByte()
		require.NoError(t, err)
		assert.Equal(t, payload[i], b)
		assert.Equal(t, posBefore+1, f.GetPos())
	}
}

func Test_Empty(t *testing.T) {
	fs := storage.NewMemFS()
	f, err := Open(fs, "table", false)
	require.NoError(t, err)

	empty, err := f.Empty()
	require.NoError(t, err)
	assert.True(t, empty)

	require.NoError(t, f.WriteByte('x'))
	empty, err = f.Empty()
	require.NoError(t, err)
	assert.False(t, empty)
}

func Test_ReadFull_ShortReadIsAnError(t *testing.T) {
	fs := storage.NewMemFS()
	f, err := Open(fs, "table", false)
	require.NoError(t, err)
	_, err = f.Write([]byte("short"))
	require.NoError(t, err)
	require.NoError(t, f.Rewind())

	buf := make([]byte, 100)
	err = f.ReadFull(buf)
	assert.Error(t, err)
}
