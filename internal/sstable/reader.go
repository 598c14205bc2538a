package sstable

import (
	"io"

	"github.com/coolan2013/xapian/internal/bufferedfile"
	"github.com/coolan2013/xapian/internal/storage"
	"github.com/coolan2013/xapian/internal/xerrors"
)

// Reader sequentially decodes the data records of a committed SSTable.
// Compaction never seeks through the sparse index: every cursor built on a
// Reader scans start to finish exactly once.
type Reader struct {
	f       *bufferedfile.File
	root    RootInfo
	prevKey []byte
	read    int64
}

// OpenReader opens an existing, previously-committed table for sequential
// reading. root must be the RootInfo that table's Writer published.
func OpenReader(fs storage.FS, path string, root RootInfo) (*Reader, error) {
	f, err := bufferedfile.Open(fs, path, true)
	if err != nil {
		return nil, xerrors.ErrIO
	}
	return &Reader{f: f, root: root}, nil
}

// RootInfo returns the table's published RootInfo.
func (r *Reader) RootInfo() RootInfo { return r.root }

// ReadItem advances by one record, reconstructing the key from the previous
// key plus the stored suffix. It returns ok=false once every data record
// has been consumed (i.e. once the data region up to RootOffset is
// exhausted); the sparse index trailer is never visited.
func (r *Reader) ReadItem() (key, value []byte, compressed bool, ok bool, err error) {
	if r.read >= r.root.NumEntries {
		return nil, nil, false, false, nil
	}
	key, err = readKey(r.f, r.prevKey)
	if err != nil {
		if err == io.EOF {
			return nil, nil, false, false, xerrors.ErrDatabaseCorrupt
		}
		return nil, nil, false, false, err
	}
	value, compressed, err = readValue(r.f)
	if err != nil {
		return nil, nil, false, false, err
	}
	r.prevKey = append(r.prevKey[:0], key...)
	r.read++
	return key, value, compressed, true, nil
}

// ReadIndex decodes the table's sparse index. See the package-level
// ReadIndex function for why the compaction core itself never calls this.
func (r *Reader) ReadIndex() ([]IndexEntry, error) {
	return ReadIndex(r.f, r.root)
}

// Close releases the underlying file descriptor.
func (r *Reader) Close() error { return r.f.Close() }
