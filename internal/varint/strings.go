package varint

import "github.com/coolan2013/xapian/internal/xerrors"

// PrefixCompressedWriter builds a spelling "dictionary word" tag: a sorted
// stream of strings, each stored as a shared-prefix length against the
// previous word plus the unshared suffix, matching the prefix-compression
// scheme the SSTable format itself uses for keys (spec.md §3).
type PrefixCompressedWriter struct {
	buf  []byte
	last []byte
}

// Append adds the next word to the stream. Words must be appended in
// ascending order; duplicates should be skipped by the caller.
func (w *PrefixCompressedWriter) Append(word []byte) {
	shared := 0
	for shared < len(word) && shared < len(w.last) && word[shared] == w.last[shared] {
		shared++
	}
	w.buf = PackUint(w.buf, uint64(shared))
	w.buf = PackUint(w.buf, uint64(len(word)-shared))
	w.buf = append(w.buf, word[shared:]...)
	w.last = append(w.last[:0], word...)
}

// Bytes returns the encoded stream.
func (w *PrefixCompressedWriter) Bytes() []byte { return w.buf }

// PrefixCompressedIterator walks a PrefixCompressedWriter-encoded stream one
// word at a time.
type PrefixCompressedIterator struct {
	buf     []byte
	pos     int
	cur     []byte
	atEnd   bool
}

// NewPrefixCompressedIterator creates an iterator over buf and advances it
// to the first word.
func NewPrefixCompressedIterator(buf []byte) (*PrefixCompressedIterator, error) {
	it := &PrefixCompressedIterator{buf: buf}
	if err := it.Next(); err != nil {
		return nil, err
	}
	return it, nil
}

// Next decodes the following word. It is a no-op once the iterator is
// exhausted (check AtEnd first).
func (it *PrefixCompressedIterator) Next() error {
	if it.pos >= len(it.buf) {
		it.atEnd = true
		it.cur = nil
		return nil
	}
	shared, n := UnpackUint(it.buf[it.pos:])
	if err := CorruptIfZero(n); err != nil && it.pos != 0 {
		return err
	}
	it.pos += n
	suffixLen, m := UnpackUint(it.buf[it.pos:])
	if err := CorruptIfZero(m); err != nil {
		return err
	}
	it.pos += m
	if it.pos+int(suffixLen) > len(it.buf) {
		return xerrors.ErrDatabaseCorrupt
	}
	word := make([]byte, int(shared)+int(suffixLen))
	copy(word, it.cur[:shared])
	copy(word[shared:], it.buf[it.pos:it.pos+int(suffixLen)])
	it.pos += int(suffixLen)
	it.cur = word
	return nil
}

// Current returns the word the iterator currently points at.
func (it *PrefixCompressedIterator) Current() []byte { return it.cur }

// AtEnd reports whether the iterator has been exhausted.
func (it *PrefixCompressedIterator) AtEnd() bool { return it.atEnd }

// magicXOR obscures the byte-length prefix synonyms are stored with so a
// zero-length synonym entry (which can't occur) doesn't collide with other
// reserved encodings; the exact value is arbitrary and only needs to be
// self-consistent within this module (see DESIGN.md).
const magicXOR = 0x55

// ByteLengthWriter builds a synonym tag: a sequence of
// byte(len(word) XOR magicXOR) || word entries.
type ByteLengthWriter struct {
	buf []byte
}

// Append adds word to the stream. Words longer than 255 bytes cannot be
// represented and are truncated-safe callers must enforce the SSTable key
// size cap upstream.
func (w *ByteLengthWriter) Append(word []byte) {
	w.buf = append(w.buf, byte(len(word))^magicXOR)
	w.buf = append(w.buf, word...)
}

// Bytes returns the encoded stream.
func (w *ByteLengthWriter) Bytes() []byte { return w.buf }

// ByteLengthIterator walks a ByteLengthWriter-encoded stream one word at a
// time.
type ByteLengthIterator struct {
	buf   []byte
	pos   int
	cur   []byte
	atEnd bool
}

// NewByteLengthIterator creates an iterator over buf and advances it to the
// first word.
func NewByteLengthIterator(buf []byte) (*ByteLengthIterator, error) {
	it := &ByteLengthIterator{buf: buf}
	if err := it.Next(); err != nil {
		return nil, err
	}
	return it, nil
}

// Next decodes the following word.
func (it *ByteLengthIterator) Next() error {
	if it.pos >= len(it.buf) {
		it.atEnd = true
		it.cur = nil
		return nil
	}
	length := int(it.buf[it.pos] ^ magicXOR)
	it.pos++
	if it.pos+length > len(it.buf) {
		return xerrors.ErrDatabaseCorrupt
	}
	it.cur = it.buf[it.pos : it.pos+length]
	it.pos += length
	return nil
}

// Current returns the word the iterator currently points at.
func (it *ByteLengthIterator) Current() []byte { return it.cur }

// AtEnd reports whether the iterator has been exhausted.
func (it *ByteLengthIterator) AtEnd() bool { return it.atEnd }
