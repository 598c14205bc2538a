package compactor

import (
	"github.com/coolan2013/xapian/internal/compress"
	"github.com/coolan2013/xapian/internal/observer"
	"github.com/coolan2013/xapian/internal/storage"
)

// CompactionLevel mirrors Xapian::Compactor::compaction_level: how
// aggressively the destination tables are built. honey_compact.cc's own
// handling of FULL/FULLER (set_full_compaction/set_max_item_size, lines
// ~1582-1583) calls into Writer methods that are themselves empty no-ops,
// so here too the level only changes what's recorded on the Writer, not
// the bytes it produces.
type CompactionLevel int

const (
	Standard CompactionLevel = iota
	Full
	Fuller
)

// maxItemSize returns the Writer's MaxItemSize setting for this level: 1
// for FULLER, 0 (unset) otherwise.
func (l CompactionLevel) maxItemSize() int {
	if l == Fuller {
		return 1
	}
	return 0
}

// fullCompaction reports whether this level should set the Writer's
// FullCompaction flag: true for anything other than STANDARD.
func (l CompactionLevel) fullCompaction() bool { return l != Standard }

// SourceDB names one database to fold into the destination, along with the
// document-id offset every entry it contributes must be shifted by so the
// merged result has no colliding document ids (spec.md §4.5/§8 scenario 4).
type SourceDB struct {
	Dir    string
	Offset uint64
}

// Options configures one compaction run.
type Options struct {
	FS      storage.FS
	Sources []SourceDB

	// DestDir is a directory holding one table file per kind. Mutually
	// exclusive with DestFile.
	DestDir string
	// DestFile names a single file all six tables (and the version footer)
	// are packed into back to back, padded to BlockSize when every table
	// the run produces turns out empty (spec.md §8 scenario 6). Mutually
	// exclusive with DestDir.
	DestFile string

	// Multipass cascades inputs through intermediate temp tables two (or,
	// for an odd remainder, three) at a time instead of opening every input
	// table at once, bounding the number of file descriptors and heap
	// entries a single merge pass holds open (spec.md §4.5).
	Multipass bool
	// MultipassThreshold is the input count above which Multipass actually
	// kicks in. Zero selects the default of 3.
	MultipassThreshold int

	// BlockSize is kept when it is a power of two in
	// [sstable.GlassMinBlockSize, sstable.GlassMaxBlockSize] and replaced by
	// sstable.GlassDefaultBlockSize otherwise (sstable.ClampBlockSize), by every
	// call site that consumes it: sstable.NewWriter and the single-file
	// empty-padding path in driver.go.
	BlockSize int
	// CompactionLevel selects how aggressively the destination tables are
	// built (spec.md §6's compaction_level). Zero value is Standard.
	CompactionLevel CompactionLevel
	// Codec names the compression algorithm the source databases' spelling
	// and synonym tags are compressed under, so the merge kernels can
	// decompress a compressed tag before summing word frequencies or
	// unioning candidate lists (spec.md §4.5). All sources in one
	// compaction run are assumed to share a codec, matching the original:
	// a database doesn't mix compression algorithms across its own tags.
	// Zero value is compress.None (tags are read as already-plain bytes).
	Codec    compress.Codec
	Observer observer.Observer
}

func (o Options) multipassThreshold() int {
	if o.MultipassThreshold > 0 {
		return o.MultipassThreshold
	}
	return 3
}

func (o Options) singleFile() bool { return o.DestFile != "" }

func (o Options) observer() observer.Observer {
	if o.Observer != nil {
		return o.Observer
	}
	return observer.Noop{}
}
