package merge

import (
	"github.com/coolan2013/xapian/internal/cursor"
	"github.com/coolan2013/xapian/internal/sstable"
	"github.com/coolan2013/xapian/internal/varint"
)

// Synonyms runs merge_synonyms. A key held by only one input is copied
// through untouched, compression and all, exactly as Spellings does; a key
// held by more than one is decoded, unioned, and re-encoded.
func Synonyms(out *sstable.Writer, inputs []*sstable.Reader, dec cursor.Decompressor) error {
	cursors := make([]*cursor.MergeCursor, 0, len(inputs))
	for _, r := range inputs {
		c := cursor.NewMergeCursor(r, dec)
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
		first := h.pop()
		key := append([]byte{}, first.CurrentKey()...)
		group := []*cursor.MergeCursor{first}
		for h.Len() > 0 && compareKeys(h.items[0].HeapKey(), key) == 0 {
			group = append(group, h.pop())
		}

		if len(group) == 1 {
			c := group[0]
			if err := out.Add(key, c.CurrentTag(), c.CurrentCompressed()); err != nil {
				return err
			}
		} else if err := mergeSynonymWords(out, key, group); err != nil {
			return err
		}

		for _, c := range group {
			ok, err := c.Next()
			if err != nil {
				return err
			}
			if ok {
				h.push(c)
			}
		}
	}
	return nil
}

func mergeSynonymWords(out *sstable.Writer, key []byte, group []*cursor.MergeCursor) error {
	iters := make([]*varint.ByteLengthIterator, 0, len(group))
	for _, c := range group {
		tag, err := c.ReadTag(false)
		if err != nil {
			return err
		}
		it, err := varint.NewByteLengthIterator(tag)
		if err != nil {
			return err
		}
		iters = append(iters, it)
	}

	var w varint.ByteLengthWriter
	var last []byte
	first := true
	for {
		minIdx := -1
		for i, it := range iters {
			if it.AtEnd() {
				continue
			}
			if minIdx == -1 || compareKeys(it.Current(), iters[minIdx].Current()) < 0 {
				minIdx = i
			}
		}
		if minIdx == -1 {
			break
		}
		word := iters[minIdx].Current()
		if first || compareKeys(word, last) != 0 {
			w.Append(word)
			last = append(last[:0], word...)
			first = false
		}
		if err := iters[minIdx].Next(); err != nil {
			return err
		}
	}
	return out.Add(key, w.Bytes(), false)
}
