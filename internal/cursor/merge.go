package cursor

import (
	"github.com/coolan2013/xapian/internal/sstable"
)

// Decompressor decodes a compressed tag in place. The production
// implementation wraps whichever codec the table was written with
// (internal/compress); tests may use a no-op.
type Decompressor interface {
	Decompress(tag []byte) ([]byte, error)
}

// MergeCursor is the simplest cursor shape: raw (key, tag) passthrough with
// no document-id rewriting, since the spelling and synonym tables are
// global vocabulary structures with no per-document identity. spec.md §4.3
// exposes CurrentKey/CurrentTag/CurrentCompressed plus a ReadTag that
// optionally decompresses.
type MergeCursor struct {
	base
	dec Decompressor
}

// NewMergeCursor wraps r, decompressing tags through dec in ReadTag. Unlike
// the other cursor constructors it takes no document-id offset — these
// tables carry no document ids to shift.
func NewMergeCursor(r *sstable.Reader, dec Decompressor) *MergeCursor {
	c := &MergeCursor{base: newBase(r, 0), dec: dec}
	return c
}

// Next advances the cursor. It returns false once the input is exhausted.
func (c *MergeCursor) Next() (bool, error) {
	return c.advance()
}

// CurrentKey returns the raw key of the entry Next last produced.
func (c *MergeCursor) CurrentKey() []byte { return c.cur.key }

// CurrentTag returns the raw, possibly still-compressed tag.
func (c *MergeCursor) CurrentTag() []byte { return c.cur.tag }

// CurrentCompressed reports whether CurrentTag is compressed.
func (c *MergeCursor) CurrentCompressed() bool { return c.cur.compressed }

// ReadTag returns the tag as stored when it is not compressed, when
// keepCompressed is true (letting a passthrough-only caller avoid paying for
// a decompress/recompress round trip it doesn't need), or when the cursor
// has no Decompressor; otherwise it returns the decompressed tag.
func (c *MergeCursor) ReadTag(keepCompressed bool) ([]byte, error) {
	if !c.cur.compressed || keepCompressed {
		return c.cur.tag, nil
	}
	if c.dec == nil {
		return c.cur.tag, nil
	}
	return c.dec.Decompress(c.cur.tag)
}

// HeapKey returns the byte key the merge heap orders this cursor by.
func (c *MergeCursor) HeapKey() []byte { return c.cur.key }

// HeapTiebreak returns the secondary ordering key used to break ties between
// cursors that share the same HeapKey.
func (c *MergeCursor) HeapTiebreak() uint64 { return 0 }
