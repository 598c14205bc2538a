package cursor

import (
	"github.com/coolan2013/xapian/internal/keycodec"
	"github.com/coolan2013/xapian/internal/sstable"
	"github.com/coolan2013/xapian/internal/xerrors"
)

// PositionCursor iterates position-table entries, which are keyed like a
// postings non-initial chunk (term followed by a document id) but never
// have an "initial chunk" shape and carry no tf/cf header — spec.md §4.3
// calls this cursor "analogous, simpler" to PostlistCursor. Next re-encodes
// Key with the document id shifted by offset baked back in, since the
// merge_positions kernel is a plain heap passthrough with no separate
// firstdid field to consult.
type PositionCursor struct {
	base

	Key []byte
	Tag []byte
}

// NewPositionCursor wraps r, shifting every embedded document id by offset.
func NewPositionCursor(r *sstable.Reader, offset uint64) *PositionCursor {
	return &PositionCursor{base: newBase(r, offset)}
}

// Next advances the cursor. It returns false once the input is exhausted.
func (c *PositionCursor) Next() (bool, error) {
	ok, err := c.advance()
	if err != nil || !ok {
		return false, err
	}
	term, did, hasDid, err := keycodec.SplitPostingsKey(c.cur.key)
	if err != nil {
		return false, err
	}
	if !hasDid {
		return false, xerrors.ErrDatabaseCorrupt
	}
	c.Key = keycodec.EncodePostingsKey(term, did+c.offset)
	c.Tag = c.cur.tag
	return true, nil
}

// HeapKey returns the byte key the merge heap orders this cursor by.
func (c *PositionCursor) HeapKey() []byte { return c.Key }

// HeapTiebreak returns the secondary ordering key used to break ties between
// cursors that share the same HeapKey.
func (c *PositionCursor) HeapTiebreak() uint64 { return 0 }
