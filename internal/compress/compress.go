// Package compress wraps the compression codecs a table's tags may be
// stored under. The compaction core never recompresses a tag it can copy
// verbatim (spec.md §4.5: "already-compressed chunks are copied verbatim"),
// so these implementations only need to decompress — used by the spelling
// merge kernel when it must sum word frequencies that happen to be stored
// compressed.
package compress

import (
	"encoding/binary"
	"fmt"

	"github.com/DataDog/zstd"
	"github.com/golang/snappy"

	"github.com/coolan2013/xapian/internal/xerrors"
)

// Codec identifies which algorithm a tag was compressed with.
type Codec int

const (
	None Codec = iota
	Snappy
	Zstd
)

// Decompressor decompresses a tag compressed under one fixed codec.
type Decompressor interface {
	Decompress(compressed []byte) ([]byte, error)
}

// New returns the Decompressor for codec.
func New(codec Codec) Decompressor {
	switch codec {
	case Snappy:
		return snappyDecompressor{}
	case Zstd:
		return zstdDecompressor{}
	default:
		return noneDecompressor{}
	}
}

type noneDecompressor struct{}

func (noneDecompressor) Decompress(compressed []byte) ([]byte, error) { return compressed, nil }

type snappyDecompressor struct{}

func (snappyDecompressor) Decompress(compressed []byte) ([]byte, error) {
	n, err := snappy.DecodedLen(compressed)
	if err != nil {
		return nil, xerrors.ErrDatabaseCorrupt
	}
	buf := make([]byte, n)
	res, err := snappy.Decode(buf, compressed)
	if err != nil {
		return nil, xerrors.ErrDatabaseCorrupt
	}
	return res, nil
}

// zstdDecompressor expects its input prefixed with a pack_uint-encoded
// decompressed length, the same convention go-sstable/compression/zstd.go
// uses to avoid a second allocation for the decompressed size.
type zstdDecompressor struct{}

func (zstdDecompressor) Decompress(compressed []byte) ([]byte, error) {
	decodedLen, n := binary.Uvarint(compressed)
	if n <= 0 {
		return nil, xerrors.ErrDatabaseCorrupt
	}
	compressed = compressed[n:]
	if len(compressed) == 0 {
		return nil, fmt.Errorf("%w: compress: empty zstd payload", xerrors.ErrDatabaseCorrupt)
	}
	buf := make([]byte, decodedLen)
	ctx := zstd.NewCtx()
	if _, err := ctx.DecompressInto(buf, compressed); err != nil {
		return nil, xerrors.ErrDatabaseCorrupt
	}
	return buf, nil
}
