// Package versionfile implements the small external collaborator spec.md §6
// calls the "version file": the record of every table's RootInfo plus the
// compacted database's last document id, serialised to a temp file and
// atomically installed once every destination table has been synced
// (spec.md §4.6's final step). Its on-disk form is a flat, hand-rolled
// binary layout in the manner of go-sstable/row_block/footer.go's
// Serialise, rather than a general-purpose marshaller — there's exactly one
// producer and one consumer of this format and no corpus example reaches
// for a serialization library for a case this narrow.
package versionfile

import (
	"encoding/binary"
	"sync"

	"github.com/coolan2013/xapian/internal/sstable"
	"github.com/coolan2013/xapian/internal/xerrors"
)

var errCorruptVersionFile = xerrors.ErrDatabaseCorrupt

// TableKind enumerates the six parallel tables the driver iterates, in the
// fixed order spec.md §4.6 mandates.
type TableKind int

const (
	Postlist TableKind = iota
	DocData
	Termlist
	Position
	Spelling
	Synonym
	numKinds
)

var kindNames = [numKinds]string{"postlist", "docdata", "termlist", "position", "spelling", "synonym"}

// String returns the table kind's file base name.
func (k TableKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Kinds returns the six kinds in driver order.
func Kinds() []TableKind {
	return []TableKind{Postlist, DocData, Termlist, Position, Spelling, Synonym}
}

// Lazy reports whether this table kind is allowed to be entirely absent
// from the destination when every input lacks it. Postlist and termlist are
// the two tables a database cannot function without, so they are always
// written — even empty — while docdata, position, spelling and synonym are
// genuinely optional subsystems the original only creates on demand.
func (k TableKind) Lazy() bool {
	return k != Postlist && k != Termlist
}

// magic identifies this format when a single-file destination is reopened,
// so an all-empty, padded database is not mistaken for a stub (spec.md §6,
// §8 scenario 6).
var magic = [4]byte{'X', 'C', 'V', '1'}

// File accumulates the RootInfo published by each table's Writer.Commit,
// plus the compacted database's last document id, and serialises them on
// demand.
type File struct {
	mu       sync.Mutex
	revision int
	roots    [numKinds]sstable.RootInfo
	present  [numKinds]bool
	base     [numKinds]int64
	lastDid  uint64
}

// New returns an empty version file ready to receive RootInfo from each
// table kind as it commits.
func New() *File {
	return &File{}
}

// ForTable returns a sstable.RootInfoRecorder that, when a table's Writer
// commits, records its RootInfo under kind.
func (f *File) ForTable(kind TableKind) sstable.RootInfoRecorder {
	return tableRecorder{f: f, kind: kind}
}

type tableRecorder struct {
	f    *File
	kind TableKind
}

func (t tableRecorder) SetRootInfo(revision int, info sstable.RootInfo) error {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()
	t.f.revision = revision
	t.f.roots[t.kind] = info
	t.f.present[t.kind] = true
	return nil
}

// RootInfo returns the RootInfo recorded for kind and whether that table was
// ever committed (an absent optional table, e.g. a suppressed termlist,
// never commits).
func (f *File) RootInfo(kind TableKind) (sstable.RootInfo, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.roots[kind], f.present[kind]
}

// SetTableBase records where kind's table begins inside a single-file
// destination (spec.md §8 scenario 6): the byte offset a reader must add to
// every offset RootInfo reports for that table. Multi-file destinations
// never call this and every base stays zero.
func (f *File) SetTableBase(kind TableKind, offset int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.base[kind] = offset
}

// TableBase returns the base offset recorded for kind.
func (f *File) TableBase(kind TableKind) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.base[kind]
}

// SetLastDocid records the compacted database's highest document id.
func (f *File) SetLastDocid(did uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastDid = did
}

// Serialize renders the version file's fixed binary layout: magic, revision,
// last docid, then for each of the six kinds a presence byte and (if
// present) the table's base offset followed by
// RootOffset/NumEntries/LevelCount/BlockSize/Sequential.
func (f *File) Serialize() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()

	buf := make([]byte, 0, 256)
	buf = append(buf, magic[:]...)
	buf = appendUvarint(buf, uint64(f.revision))
	buf = appendUvarint(buf, f.lastDid)
	for k := TableKind(0); k < numKinds; k++ {
		if !f.present[k] {
			buf = append(buf, 0)
			continue
		}
		buf = append(buf, 1)
		buf = appendUvarint(buf, uint64(f.base[k]))
		info := f.roots[k]
		buf = appendUvarint(buf, uint64(info.RootOffset))
		buf = appendUvarint(buf, uint64(info.NumEntries))
		buf = appendUvarint(buf, uint64(info.LevelCount))
		buf = appendUvarint(buf, uint64(info.BlockSize))
		seq := byte(0)
		if info.Sequential {
			seq = 1
		}
		buf = append(buf, seq)
	}
	return buf
}

func appendUvarint(dst []byte, v uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(dst, tmp[:n]...)
}

// Parse decodes a previously Serialize'd version file.
func Parse(buf []byte) (*File, error) {
	f := New()
	if len(buf) < 4 || string(buf[:4]) != string(magic[:]) {
		return nil, errCorruptVersionFile
	}
	buf = buf[4:]
	rev, n := binary.Uvarint(buf)
	if n <= 0 {
		return nil, errCorruptVersionFile
	}
	buf = buf[n:]
	f.revision = int(rev)

	lastDid, n := binary.Uvarint(buf)
	if n <= 0 {
		return nil, errCorruptVersionFile
	}
	buf = buf[n:]
	f.lastDid = lastDid

	for k := TableKind(0); k < numKinds; k++ {
		if len(buf) == 0 {
			return nil, errCorruptVersionFile
		}
		present := buf[0]
		buf = buf[1:]
		if present == 0 {
			continue
		}
		var info sstable.RootInfo
		var v uint64
		v, n = binary.Uvarint(buf)
		if n <= 0 {
			return nil, errCorruptVersionFile
		}
		f.base[k] = int64(v)
		buf = buf[n:]

		v, n = binary.Uvarint(buf)
		if n <= 0 {
			return nil, errCorruptVersionFile
		}
		info.RootOffset = int64(v)
		buf = buf[n:]

		v, n = binary.Uvarint(buf)
		if n <= 0 {
			return nil, errCorruptVersionFile
		}
		info.NumEntries = int64(v)
		buf = buf[n:]

		v, n = binary.Uvarint(buf)
		if n <= 0 {
			return nil, errCorruptVersionFile
		}
		info.LevelCount = int(v)
		buf = buf[n:]

		v, n = binary.Uvarint(buf)
		if n <= 0 {
			return nil, errCorruptVersionFile
		}
		info.BlockSize = int(v)
		buf = buf[n:]

		if len(buf) == 0 {
			return nil, errCorruptVersionFile
		}
		info.Sequential = buf[0] != 0
		buf = buf[1:]

		f.roots[k] = info
		f.present[k] = true
	}
	return f, nil
}

// LastDocid returns the recorded last document id.
func (f *File) LastDocid() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastDid
}
