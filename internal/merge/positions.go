package merge

import (
	"github.com/coolan2013/xapian/internal/cursor"
	"github.com/coolan2013/xapian/internal/sstable"
)

// Positions runs merge_positions: a plain heap passthrough. Position
// cursors have already rebuilt their key with the shifted document id
// baked in, so there is nothing left to do but pop smallest-first and copy.
func Positions(out *sstable.Writer, inputs []*sstable.Reader, offsets []uint64) error {
	cursors := make([]*cursor.PositionCursor, 0, len(inputs))
	for i, r := range inputs {
		c := cursor.NewPositionCursor(r, offsets[i])
		ok, err := c.Next()
		if err != nil {
			return err
		}
		if ok {
			cursors = append(cursors, c)
		}
	}
	h := newCursorHeap(cursors)

	for h.Len() > 0 {
		c := h.pop()
		if err := out.Add(c.Key, c.Tag, false); err != nil {
			return err
		}
		ok, err := c.Next()
		if err != nil {
			return err
		}
		if ok {
			h.push(c)
		}
	}
	return nil
}
