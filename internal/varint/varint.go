// Package varint implements the two integer/string wire encodings spec.md
// §6 requires: a plain little-endian 7-bit varint (pack_uint) and a
// length-prefixed big-endian form whose byte-wise order matches numeric
// order (pack_uint_preserving_sort), plus the matching string encoding.
package varint

import (
	"encoding/binary"

	"github.com/coolan2013/xapian/internal/xerrors"
)

// PackUint appends v to dst using the same little-endian, 7-bits-per-byte,
// high-bit-continuation encoding as encoding/binary's Uvarint — the shape
// spec.md §6 calls pack_uint. go-sstable/block/physical_block.go encodes
// BlockHandle offsets/lengths this exact way via binary.PutUvarint.
func PackUint(dst []byte, v uint64) []byte {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], v)
	return append(dst, buf[:n]...)
}

// UnpackUint reads a pack_uint-encoded value from the front of buf,
// returning the value and the number of bytes consumed. n <= 0 indicates a
// malformed (non-terminating) varint.
func UnpackUint(buf []byte) (v uint64, n int) {
	return binary.Uvarint(buf)
}

// PackUintPreservingSort appends v to dst in a length-prefixed, big-endian
// form: one length byte (0-8) giving the count of significant bytes that
// follow, then those bytes with leading zero bytes stripped. Two encoded
// values compare byte-wise in the same order as the numbers they encode,
// which lets keys built by concatenating multiple packed fields sort
// correctly — the property spec.md §6 calls "preserving sort".
func PackUintPreservingSort(dst []byte, v uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	i := 0
	for i < 8 && buf[i] == 0 {
		i++
	}
	n := 8 - i
	dst = append(dst, byte(n))
	return append(dst, buf[i:]...)
}

// UnpackUintPreservingSort reads a PackUintPreservingSort-encoded value from
// the front of buf, returning the value and the number of bytes consumed.
// n == 0 indicates malformed input.
func UnpackUintPreservingSort(buf []byte) (v uint64, n int) {
	if len(buf) == 0 {
		return 0, 0
	}
	length := int(buf[0])
	if length > 8 || len(buf) < 1+length {
		return 0, 0
	}
	var tmp [8]byte
	copy(tmp[8-length:], buf[1:1+length])
	return binary.BigEndian.Uint64(tmp[:]), 1 + length
}

// PackString appends s to dst as a plain pack_uint length prefix followed
// by its bytes — the tag-payload counterpart to PackStringPreservingSort,
// used where the string doesn't need to sort (e.g. inside a value-stats
// tag) and so needs no escaping.
func PackString(dst []byte, s []byte) []byte {
	dst = PackUint(dst, uint64(len(s)))
	return append(dst, s...)
}

// UnpackString reads a PackString-encoded string from the front of buf,
// returning the decoded bytes and the number of bytes consumed. n <= 0
// indicates malformed input.
func UnpackString(buf []byte) (s []byte, n int) {
	length, ln := UnpackUint(buf)
	if ln <= 0 || ln+int(length) > len(buf) {
		return nil, 0
	}
	return buf[ln : ln+int(length)], ln + int(length)
}

// PackStringPreservingSort appends s to dst in an escaped, terminated form
// whose concatenation with trailing fields (e.g. a following
// PackUintPreservingSort-encoded docid) sorts correctly: every 0x00 byte in
// s is escaped as 0x00 0xFF, and the encoded string is terminated with
// 0x00 0x00 so no string's encoding is ever a byte-wise prefix of another
// string's encoding. The form carries no length prefix.
func PackStringPreservingSort(dst []byte, s []byte) []byte {
	for _, b := range s {
		if b == 0x00 {
			dst = append(dst, 0x00, 0xFF)
		} else {
			dst = append(dst, b)
		}
	}
	return append(dst, 0x00, 0x00)
}

// UnpackStringPreservingSort reads a PackStringPreservingSort-encoded string
// from the front of buf, returning the decoded bytes and the number of
// bytes consumed from buf. n == 0 indicates the terminator was never found.
func UnpackStringPreservingSort(buf []byte) (s []byte, n int) {
	for i := 0; i+1 < len(buf); {
		if buf[i] == 0x00 {
			if buf[i+1] == 0x00 {
				return s, i + 2
			}
			if buf[i+1] == 0xFF {
				s = append(s, 0x00)
				i += 2
				continue
			}
			return nil, 0
		}
		s = append(s, buf[i])
		i++
	}
	return nil, 0
}

// CorruptIfZero turns a zero byte-count from one of the Unpack functions
// above into ErrDatabaseCorrupt, the convention every cursor in this module
// uses when a key or tag fails to decode.
func CorruptIfZero(n int) error {
	if n <= 0 {
		return xerrors.ErrDatabaseCorrupt
	}
	return nil
}
