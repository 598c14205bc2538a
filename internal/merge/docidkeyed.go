package merge

import (
	"github.com/coolan2013/xapian/internal/cursor"
	"github.com/coolan2013/xapian/internal/sstable"
)

// DocidKeyed runs merge_docid_keyed, used for the docdata and termlist
// tables. Each input's entries are already in ascending document-id order
// and offsets are monotone with input order, so inputs are copied through
// one at a time in order — no heap needed, unlike every other kernel in
// this package.
func DocidKeyed(out *sstable.Writer, inputs []*sstable.Reader, offsets []uint64) error {
	for i, r := range inputs {
		c := cursor.NewDocidKeyedCursor(r, offsets[i])
		for {
			ok, err := c.Next()
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			if err := out.Add(c.Key, c.Tag, c.Compressed); err != nil {
				return err
			}
		}
	}
	return nil
}
