package sstable

import (
	"github.com/coolan2013/xapian/internal/bufferedfile"
	"github.com/coolan2013/xapian/internal/varint"
)

// indexBlockSize is the tuning parameter controlling how often a sparse
// index entry is emitted: one entry per 1KiB boundary crossed in the data
// region (spec.md §4.2).
const indexBlockSize = 1024

// indexEntry is one sparse-index record: the key at a block boundary and
// the file offset its record starts at.
type indexEntry struct {
	key    []byte
	offset int64
}

// indexAccumulator buffers sparse-index entries in memory as a table is
// written, following the "block = −1 ... cur_block ≠ block" algorithm in
// spec.md §4.2.
type indexAccumulator struct {
	block   int64
	lastKey []byte
	entries []indexEntry
}

func newIndexAccumulator() *indexAccumulator {
	return &indexAccumulator{block: -1}
}

// observe is called once per Add, after the record has been written, with
// the record's starting offset and key.
func (ia *indexAccumulator) observe(pos int64, key []byte) {
	curBlock := pos / indexBlockSize
	if curBlock == ia.block {
		return
	}
	ia.entries = append(ia.entries, indexEntry{key: append([]byte{}, key...), offset: pos})
	ia.block = curBlock
	ia.lastKey = key
}

// flush writes all accumulated entries to f, prefix-compressed against one
// another the same way data records are, and returns the offset the index
// started at.
func (ia *indexAccumulator) flush(f *bufferedfile.File) (int64, error) {
	rootOffset := f.GetPos()
	var prevKey []byte
	for _, e := range ia.entries {
		if err := writeKey(f, prevKey, e.key); err != nil {
			return 0, err
		}
		if _, err := f.Write(varint.PackUint(nil, uint64(e.offset))); err != nil {
			return 0, err
		}
		prevKey = e.key
	}
	return rootOffset, nil
}
