package varint_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coolan2013/xapian/internal/varint"
)

func Test_PackUint_RoundTrips(t *testing.T) {
	for _, v := range []uint64{0, 1, 127, 128, 300, 1 << 40, ^uint64(0)} {
		buf := varint.PackUint(nil, v)
		got, n := varint.UnpackUint(buf)
		require.Greater(t, n, 0)
		assert.Equal(t, v, got)
		assert.Equal(t, len(buf), n)
	}
}

func Test_PackUint_MalformedReportsZeroOrNegativeN(t *testing.T) {
	_, n := varint.UnpackUint([]byte{0x80, 0x80})
	assert.LessOrEqual(t, n, 0)
}

func Test_PackUintPreservingSort_RoundTrips(t *testing.T) {
	for _, v := range []uint64{0, 1, 255, 256, 1 << 32, ^uint64(0)} {
		buf := varint.PackUintPreservingSort(nil, v)
		got, n := varint.UnpackUintPreservingSort(buf)
		require.Equal(t, len(buf), n)
		assert.Equal(t, v, got)
	}
}

func Test_PackUintPreservingSort_StripsLeadingZeroBytes(t *testing.T) {
	small := varint.PackUintPreservingSort(nil, 1)
	assert.Equal(t, []byte{1, 1}, small)

	zero := varint.PackUintPreservingSort(nil, 0)
	assert.Equal(t, []byte{0}, zero)
}

// Test_PackUintPreservingSort_ByteOrderMatchesNumericOrder is the property
// the whole scheme exists for: concatenating two encoded values into a key
// must sort the same way the numbers themselves do.
func Test_PackUintPreservingSort_ByteOrderMatchesNumericOrder(t *testing.T) {
	values := []uint64{0, 1, 2, 254, 255, 256, 65535, 65536, 1 << 40}
	for i := 1; i < len(values); i++ {
		lo := varint.PackUintPreservingSort(nil, values[i-1])
		hi := varint.PackUintPreservingSort(nil, values[i])
		assert.Negative(t, compareBytes(lo, hi), "encoding of %d should sort before %d", values[i-1], values[i])
	}
}

func compareBytes(a, b []byte) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return int(a[i]) - int(b[i])
		}
	}
	return len(a) - len(b)
}

func Test_PackUintPreservingSort_TruncatedInputIsMalformed(t *testing.T) {
	buf := varint.PackUintPreservingSort(nil, 1<<32)
	_, n := varint.UnpackUintPreservingSort(buf[:len(buf)-1])
	assert.Equal(t, 0, n)
}

func Test_PackString_RoundTrips(t *testing.T) {
	for _, s := range [][]byte{nil, []byte(""), []byte("hello"), []byte{0x00, 0x01, 0xFF}} {
		buf := varint.PackString(nil, s)
		got, n := varint.UnpackString(buf)
		require.Greater(t, n, 0)
		// nil and "" encode to the same bytes, so only the content can
		// round-trip, not the nil-ness of the slice.
		assert.Equal(t, string(s), string(got))
	}
}

func Test_PackString_TruncatedInputIsMalformed(t *testing.T) {
	buf := varint.PackString(nil, []byte("hello"))
	_, n := varint.UnpackString(buf[:len(buf)-1])
	assert.LessOrEqual(t, n, 0)
}

func Test_PackStringPreservingSort_RoundTrips(t *testing.T) {
	for _, s := range [][]byte{nil, []byte(""), []byte("hello"), []byte{0x00, 0x01, 0xFF}, []byte{0x00, 0x00}} {
		buf := varint.PackStringPreservingSort(nil, s)
		got, n := varint.UnpackStringPreservingSort(buf)
		require.Equal(t, len(buf), n)
		// nil and "" encode to the same bytes, so only the content can
		// round-trip, not the nil-ness of the slice.
		assert.Equal(t, string(s), string(got))
	}
}

func Test_PackStringPreservingSort_EscapesEmbeddedZeroByte(t *testing.T) {
	buf := varint.PackStringPreservingSort(nil, []byte{0x00})
	assert.Equal(t, []byte{0x00, 0xFF, 0x00, 0x00}, buf)
}

func Test_PackStringPreservingSort_IsNeverAPrefixOfAnotherEncoding(t *testing.T) {
	// The encoding of "cat" is not a prefix of the encoding of the longer
	// string "cats" (the 0x00 0x00 terminator guarantees this), while it
	// stays the exact leading part of "cat" followed by a trailing field.
	catKey := varint.PackStringPreservingSort(nil, []byte("cat"))
	catsKey := varint.PackStringPreservingSort(nil, []byte("cats"))
	catWithTrailing := varint.PackStringPreservingSort(nil, []byte("cat"))
	catWithTrailing = varint.PackUintPreservingSort(catWithTrailing, 5)
	assert.NotEqual(t, catKey, catsKey[:len(catKey)])
	assert.Equal(t, catKey, catWithTrailing[:len(catKey)])
}

func Test_PackStringPreservingSort_ByteOrderMatchesLexicalOrder(t *testing.T) {
	words := []string{"apple", "banana", "cat", "dog"}
	for i := 1; i < len(words); i++ {
		lo := varint.PackStringPreservingSort(nil, []byte(words[i-1]))
		hi := varint.PackStringPreservingSort(nil, []byte(words[i]))
		assert.Negative(t, compareBytes(lo, hi))
	}
}

func Test_PackStringPreservingSort_MissingTerminatorIsMalformed(t *testing.T) {
	_, n := varint.UnpackStringPreservingSort([]byte("no terminator here"))
	assert.Equal(t, 0, n)
}

func Test_CorruptIfZero(t *testing.T) {
	assert.NoError(t, varint.CorruptIfZero(1))
	assert.Error(t, varint.CorruptIfZero(0))
	assert.Error(t, varint.CorruptIfZero(-1))
}
