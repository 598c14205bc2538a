package sstable

import (
	"io"

	"github.com/coolan2013/xapian/internal/bufferedfile"
)

// IndexEntry is a decoded sparse-index record.
type IndexEntry struct {
	Key    []byte
	Offset int64
}

// ReadIndex decodes every entry in the sparse index region, which starts at
// info.RootOffset and runs to end-of-file. Compaction itself never needs
// this — cursors only read data records sequentially — but it is the only
// way to verify the index spec.md §4.2 mandates was actually written
// correctly, so tests exercise it directly.
func ReadIndex(f *bufferedfile.File, info RootInfo) ([]IndexEntry, error) {
	for f.GetPos() < info.RootOffset {
		if _, err := f.ReadByte(); err != nil {
			return nil, err
		}
	}
	var entries []IndexEntry
	var prevKey []byte
	for {
		key, err := readKey(f, prevKey)
		if err == io.EOF {
			break
		}
		if err != nil {
			return entries, err
		}
		offset, err := readUvarint(f)
		if err != nil {
			return entries, err
		}
		entries = append(entries, IndexEntry{Key: key, Offset: int64(offset)})
		prevKey = key
	}
	return entries, nil
}
