// Package cursor implements the per-table typed cursors spec.md §4.3
// describes: each decodes one logical entry at a time from an input
// SSTable, optionally renumbering embedded document ids by a per-input
// offset. All cursor kinds are backed by the same concrete provider, a
// committed sstable.Reader — this module has only one physical on-disk
// table format, so the "native index table vs. fresh SSTable" distinction
// spec.md §9 draws collapses to a single implementation here (see
// DESIGN.md).
package cursor

import "github.com/coolan2013/xapian/internal/sstable"

// rawEntry is one undecoded (key, tag, compressed) triple read straight off
// an sstable.Reader, before any table-specific reinterpretation.
type rawEntry struct {
	key        []byte
	tag        []byte
	compressed bool
}

// base advances a sstable.Reader and buffers the most recently read raw
// entry; every cursor kind embeds it.
type base struct {
	r      *sstable.Reader
	offset uint64
	cur    rawEntry
	done   bool
}

func newBase(r *sstable.Reader, offset uint64) base {
	return base{r: r, offset: offset}
}

// advance reads the next raw entry. It returns false once the underlying
// table is exhausted.
func (b *base) advance() (bool, error) {
	key, value, compressed, ok, err := b.r.ReadItem()
	if err != nil {
		return false, err
	}
	if !ok {
		b.done = true
		return false, nil
	}
	b.cur = rawEntry{key: key, tag: value, compressed: compressed}
	return true, nil
}

// Close releases the underlying table.
func (b *base) Close() error { return b.r.Close() }
