package cursor

import (
	"github.com/coolan2013/xapian/internal/keycodec"
	"github.com/coolan2013/xapian/internal/sstable"
)

// DocidKeyedCursor iterates docdata/termlist-table entries, which are keyed
// purely by document id with an optional trailing suffix, per
// merge_docid_keyed in spec.md §4.4. Since entries within one input are
// already in ascending did order and offsets are monotone with input
// order, no heap is needed across the output — the driver copies each
// input through in turn.
type DocidKeyedCursor struct {
	base

	Key        []byte
	Tag        []byte
	Compressed bool
}

// NewDocidKeyedCursor wraps r, shifting every document id by offset.
func NewDocidKeyedCursor(r *sstable.Reader, offset uint64) *DocidKeyedCursor {
	return &DocidKeyedCursor{base: newBase(r, offset)}
}

// Next advances the cursor. It returns false once the input is exhausted.
func (c *DocidKeyedCursor) Next() (bool, error) {
	ok, err := c.advance()
	if err != nil || !ok {
		return false, err
	}
	if c.offset == 0 {
		c.Key = c.cur.key
	} else {
		did, trailing, err := keycodec.SplitDocidKeyedKey(c.cur.key)
		if err != nil {
			return false, err
		}
		c.Key = keycodec.EncodeDocidKeyedKey(did+c.offset, trailing)
	}
	c.Tag = c.cur.tag
	c.Compressed = c.cur.compressed
	return true, nil
}
