package sstable

import (
	"github.com/coolan2013/xapian/internal/bufferedfile"
	"github.com/coolan2013/xapian/internal/varint"
	"github.com/coolan2013/xapian/internal/xerrors"
)

// maxKeyLen is the largest key this format can prefix-compress: reuse_len
// and suffix_len are each a single byte, so a key longer than 255 bytes
// cannot be expressed (spec.md §3).
const maxKeyLen = 255

// writeKey emits reuse_len, suffix_len, and the unshared suffix of key
// against prevKey, the prefix-compression scheme both data records and
// sparse index entries use.
func writeKey(f *bufferedfile.File, prevKey, key []byte) error {
	if len(key) == 0 || len(key) > maxKeyLen {
		return xerrors.ErrInvalidArgument
	}
	shared := 0
	max := len(prevKey)
	if len(key) < max {
		max = len(key)
	}
	for shared < max && prevKey[shared] == key[shared] {
		shared++
	}
	suffix := key[shared:]
	if err := f.WriteByte(byte(shared)); err != nil {
		return err
	}
	if err := f.WriteByte(byte(len(suffix))); err != nil {
		return err
	}
	if len(suffix) == 0 {
		return nil
	}
	_, err := f.Write(suffix)
	return err
}

// readKey reconstructs the next key by splicing prevKey[:reuse_len] with the
// stored suffix, per the "read_item" algorithm in spec.md §4.2.
func readKey(f *bufferedfile.File, prevKey []byte) ([]byte, error) {
	reuseLen, err := f.ReadByte()
	if err != nil {
		return nil, err
	}
	suffixLenByte, err := f.ReadByte()
	if err != nil {
		return nil, xerrors.ErrDatabaseCorrupt
	}
	suffixLen := int(suffixLenByte)
	if int(reuseLen) > len(prevKey) {
		return nil, xerrors.ErrDatabaseCorrupt
	}
	key := make([]byte, int(reuseLen)+suffixLen)
	copy(key, prevKey[:reuseLen])
	if suffixLen > 0 {
		if err := f.ReadFull(key[reuseLen:]); err != nil {
			return nil, xerrors.ErrDatabaseCorrupt
		}
	}
	if len(key) == 0 || len(key) > maxKeyLen {
		return nil, xerrors.ErrDatabaseCorrupt
	}
	return key, nil
}

// writeValue emits the varint-encoded (value_len<<1)|compressed header
// followed by the value bytes.
func writeValue(f *bufferedfile.File, value []byte, compressed bool) error {
	header := uint64(len(value)) << 1
	if compressed {
		header |= 1
	}
	buf := varint.PackUint(nil, header)
	if _, err := f.Write(buf); err != nil {
		return err
	}
	if len(value) == 0 {
		return nil
	}
	_, err := f.Write(value)
	return err
}

// readValue decodes a writeValue-encoded value.
func readValue(f *bufferedfile.File) (value []byte, compressed bool, err error) {
	header, err := readUvarint(f)
	if err != nil {
		return nil, false, xerrors.ErrDatabaseCorrupt
	}
	compressed = header&1 != 0
	length := header >> 1
	value = make([]byte, length)
	if length > 0 {
		if err := f.ReadFull(value); err != nil {
			return nil, false, xerrors.ErrDatabaseCorrupt
		}
	}
	return value, compressed, nil
}

// readUvarint reads a pack_uint-encoded varint one byte at a time from f,
// since BufferedFile only exposes byte-at-a-time reads in this format (no
// lookahead buffer to hand to encoding/binary.Uvarint).
func readUvarint(f *bufferedfile.File) (uint64, error) {
	var v uint64
	var shift uint
	for {
		b, err := f.ReadByte()
		if err != nil {
			return 0, err
		}
		if b < 0x80 {
			v |= uint64(b) << shift
			return v, nil
		}
		v |= uint64(b&0x7f) << shift
		shift += 7
		if shift >= 64 {
			return 0, xerrors.ErrDatabaseCorrupt
		}
	}
}
