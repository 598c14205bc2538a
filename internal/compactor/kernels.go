package compactor

import (
	"github.com/coolan2013/xapian/internal/cursor"
	"github.com/coolan2013/xapian/internal/merge"
	"github.com/coolan2013/xapian/internal/observer"
	"github.com/coolan2013/xapian/internal/sstable"
)

// tableInput pairs an open input table with the document-id offset its
// entries must be shifted by before landing in the merged output.
type tableInput struct {
	reader *sstable.Reader
	offset uint64
}

func readers(ins []tableInput) []*sstable.Reader {
	out := make([]*sstable.Reader, len(ins))
	for i, in := range ins {
		out[i] = in.reader
	}
	return out
}

func offsets(ins []tableInput) []uint64 {
	out := make([]uint64, len(ins))
	for i, in := range ins {
		out[i] = in.offset
	}
	return out
}

// kernel is the uniform shape every per-kind merge function in this package
// is adapted to, so the driver and the multipass cascade can dispatch on
// table kind without knowing each kernel's native signature.
type kernel func(out *sstable.Writer, ins []tableInput) error

func postlistKernel(obs observer.Observer) kernel {
	return func(out *sstable.Writer, ins []tableInput) error {
		return merge.Postlists(out, readers(ins), offsets(ins), obs)
	}
}

func positionKernel() kernel {
	return func(out *sstable.Writer, ins []tableInput) error {
		return merge.Positions(out, readers(ins), offsets(ins))
	}
}

func docidKeyedKernel() kernel {
	return func(out *sstable.Writer, ins []tableInput) error {
		return merge.DocidKeyed(out, readers(ins), offsets(ins))
	}
}

func spellingKernel(dec cursor.Decompressor) kernel {
	return func(out *sstable.Writer, ins []tableInput) error {
		return merge.Spellings(out, readers(ins), dec)
	}
}

func synonymKernel(dec cursor.Decompressor) kernel {
	return func(out *sstable.Writer, ins []tableInput) error {
		return merge.Synonyms(out, readers(ins), dec)
	}
}
