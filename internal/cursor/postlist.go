package cursor

import (
	"github.com/coolan2013/xapian/internal/keycodec"
	"github.com/coolan2013/xapian/internal/sstable"
	"github.com/coolan2013/xapian/internal/varint"
	"github.com/coolan2013/xapian/internal/xerrors"
)

// PostlistCursor iterates postings-table entries, per spec.md §4.3. On each
// Next it classifies the raw key and, for postings/doclen entries, rewrites
// the cursor into uniform non-initial-chunk form: Key becomes the bare term
// (or doclen) prefix with no trailing document id, and Tf/Cf/FirstDid are
// split out as separate fields — mirroring honey_compact.cc's
// PostlistCursor::next(), which is the ground truth this package follows
// where spec.md's prose description was ambiguous (see DESIGN.md).
type PostlistCursor struct {
	base

	Key      []byte
	Tag      []byte
	FirstDid uint64
	Tf       uint64
	Cf       uint64
	Class    keycodec.Class
}

// NewPostlistCursor wraps r, shifting every embedded document id it exposes
// by offset.
func NewPostlistCursor(r *sstable.Reader, offset uint64) *PostlistCursor {
	return &PostlistCursor{base: newBase(r, offset)}
}

// Next advances the cursor. It returns false once the input is exhausted.
func (c *PostlistCursor) Next() (bool, error) {
	ok, err := c.advance()
	if err != nil || !ok {
		return false, err
	}

	key, tag := c.cur.key, c.cur.tag
	c.Tf, c.Cf, c.FirstDid = 0, 0, 0

	switch keycodec.Classify(key) {
	case keycodec.ClassUserMetadata, keycodec.ClassValueStats:
		c.Key, c.Tag, c.Class = key, tag, keycodec.Classify(key)
		return true, nil
	case keycodec.ClassValueChunk:
		slot, did, err := keycodec.DecodeValueChunkKey(key)
		if err != nil {
			return false, err
		}
		c.Key = keycodec.EncodeValueChunkKey(slot, did+c.offset)
		c.Tag = tag
		c.Class = keycodec.ClassValueChunk
		return true, nil
	}

	term, did, hasDid, err := keycodec.SplitPostingsKey(key)
	if err != nil {
		return false, err
	}
	isDocLen := keycodec.IsDocLenChunkKey(key)

	if !hasDid {
		// Initial chunk: the tag header carries (tf, cf, firstdid-1).
		tf, n1 := varint.UnpackUint(tag)
		if n1 <= 0 {
			return false, xerrors.ErrDatabaseCorrupt
		}
		rest := tag[n1:]
		cf, n2 := varint.UnpackUint(rest)
		if n2 <= 0 {
			return false, xerrors.ErrDatabaseCorrupt
		}
		rest = rest[n2:]
		firstdidMinus1, n3 := varint.UnpackUint(rest)
		if n3 <= 0 {
			return false, xerrors.ErrDatabaseCorrupt
		}
		c.Tf, c.Cf, c.FirstDid = tf, cf, firstdidMinus1+1
		c.Tag = rest[n3:]
		if isDocLen {
			c.Key = keycodec.DocLenChunkPrefix()
		} else {
			c.Key = keycodec.EncodeInitialPostingsKey(term)
		}
	} else {
		// Non-initial chunk: the did lives in the key; the tag is just the
		// payload.
		c.FirstDid = did
		c.Tag = tag
		if isDocLen {
			c.Key = keycodec.DocLenChunkPrefix()
		} else {
			c.Key = keycodec.EncodeInitialPostingsKey(term)
		}
	}
	c.FirstDid += c.offset
	if isDocLen {
		c.Class = keycodec.ClassDocLenChunk
	} else {
		c.Class = keycodec.ClassPostings
	}
	return true, nil
}

// HeapKey returns the byte key the merge heap orders this cursor by.
func (c *PostlistCursor) HeapKey() []byte { return c.Key }

// HeapTiebreak returns the secondary ordering key used to break ties between
// cursors that share the same HeapKey.
func (c *PostlistCursor) HeapTiebreak() uint64 { return c.FirstDid }
