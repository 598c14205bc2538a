// Package keycodec classifies and (de)codes the postlist table's key
// namespaces, per spec.md §3's "Key namespaces in the postings table" table.
package keycodec

import (
	"bytes"

	"github.com/coolan2013/xapian/internal/varint"
	"github.com/coolan2013/xapian/internal/xerrors"
)

// Class identifies which of the five key classes a postlist-table key
// belongs to: one of the four reserved "00 xx" namespaces, or an ordinary
// postings key.
type Class int

const (
	ClassPostings Class = iota
	ClassUserMetadata
	ClassValueStats
	ClassValueChunk
	ClassDocLenChunk
)

var (
	prefixUserMetadata = []byte{0x00, 0xC0}
	prefixValueStats   = []byte{0x00, 0xD0}
	prefixValueChunk   = []byte{0x00, 0xD8}
	prefixDocLenChunk  = []byte{0x00, 0xE0}
)

func hasPrefix(key, prefix []byte) bool {
	return len(key) >= len(prefix) && bytes.Equal(key[:len(prefix)], prefix)
}

// Classify returns the semantic class of a postlist-table key.
func Classify(key []byte) Class {
	switch {
	case hasPrefix(key, prefixUserMetadata):
		return ClassUserMetadata
	case hasPrefix(key, prefixValueStats):
		return ClassValueStats
	case hasPrefix(key, prefixValueChunk):
		return ClassValueChunk
	case hasPrefix(key, prefixDocLenChunk):
		return ClassDocLenChunk
	default:
		return ClassPostings
	}
}

// EncodeValueChunkKey builds a "00 D8 slot did" key for a value-slot chunk.
func EncodeValueChunkKey(slot uint64, did uint64) []byte {
	key := append([]byte{}, prefixValueChunk...)
	key = varint.PackUint(key, slot)
	key = varint.PackUintPreservingSort(key, did)
	return key
}

// DecodeValueChunkKey extracts the slot number and document id from a
// "00 D8 slot did" key.
func DecodeValueChunkKey(key []byte) (slot uint64, did uint64, err error) {
	if !hasPrefix(key, prefixValueChunk) {
		return 0, 0, xerrors.ErrDatabaseCorrupt
	}
	rest := key[len(prefixValueChunk):]
	s, n := varint.UnpackUint(rest)
	if n <= 0 {
		return 0, 0, xerrors.ErrDatabaseCorrupt
	}
	rest = rest[n:]
	d, m := varint.UnpackUintPreservingSort(rest)
	if m <= 0 {
		return 0, 0, xerrors.ErrDatabaseCorrupt
	}
	return s, d, nil
}

// WithValueChunkDid re-encodes a "00 D8 slot did" key with did shifted to
// newDid, preserving the slot.
func WithValueChunkDid(slot uint64, newDid uint64) []byte {
	return EncodeValueChunkKey(slot, newDid)
}

// DocLenChunkPrefix returns the bare "00 E0" prefix, i.e. the initial
// doclen chunk's key.
func DocLenChunkPrefix() []byte {
	return append([]byte{}, prefixDocLenChunk...)
}

// IsDocLenChunkKey reports whether key belongs to the doclen-chunk class.
func IsDocLenChunkKey(key []byte) bool {
	return hasPrefix(key, prefixDocLenChunk)
}

// EncodeInitialPostingsKey builds the initial-chunk key for a term: just
// pack_string_preserving_sort(term), with no trailing document id.
func EncodeInitialPostingsKey(term []byte) []byte {
	return varint.PackStringPreservingSort(nil, term)
}

// EncodePostingsKey builds a non-initial postings chunk key for a term:
// pack_string_preserving_sort(term) followed by
// pack_uint_preserving_sort(firstDid).
func EncodePostingsKey(term []byte, firstDid uint64) []byte {
	key := varint.PackStringPreservingSort(nil, term)
	return varint.PackUintPreservingSort(key, firstDid)
}

// EncodeDocLenChunkKey builds a non-initial doclen chunk key: "00 E0"
// followed by pack_uint_preserving_sort(firstDid).
func EncodeDocLenChunkKey(firstDid uint64) []byte {
	key := DocLenChunkPrefix()
	return varint.PackUintPreservingSort(key, firstDid)
}

// SplitPostingsKey decodes a postings-table key of class ClassPostings or
// ClassDocLenChunk into its term (empty for doclen keys) and, if present,
// its trailing document id. hasDid is false for an initial chunk key.
func SplitPostingsKey(key []byte) (term []byte, did uint64, hasDid bool, err error) {
	if IsDocLenChunkKey(key) {
		rest := key[len(prefixDocLenChunk):]
		if len(rest) == 0 {
			return nil, 0, false, nil
		}
		d, n := varint.UnpackUintPreservingSort(rest)
		if n <= 0 || n != len(rest) {
			return nil, 0, false, xerrors.ErrDatabaseCorrupt
		}
		return nil, d, true, nil
	}

	t, n := varint.UnpackStringPreservingSort(key)
	if n <= 0 {
		return nil, 0, false, xerrors.ErrDatabaseCorrupt
	}
	rest := key[n:]
	if len(rest) == 0 {
		return t, 0, false, nil
	}
	d, m := varint.UnpackUintPreservingSort(rest)
	if m <= 0 || m != len(rest) {
		return nil, 0, false, xerrors.ErrDatabaseCorrupt
	}
	return t, d, true, nil
}

// SplitDocidKeyedKey decodes a docdata/termlist-table key: a leading
// pack_uint_preserving_sort(did) followed by arbitrary trailing bytes
// (normally none; some auxiliary rows carry a trailing term name).
func SplitDocidKeyedKey(key []byte) (did uint64, trailing []byte, err error) {
	d, n := varint.UnpackUintPreservingSort(key)
	if n <= 0 {
		return 0, nil, xerrors.ErrDatabaseCorrupt
	}
	return d, key[n:], nil
}

// EncodeDocidKeyedKey builds a docdata/termlist-table key from a document id
// and its trailing bytes.
func EncodeDocidKeyedKey(did uint64, trailing []byte) []byte {
	key := varint.PackUintPreservingSort(nil, did)
	return append(key, trailing...)
}
