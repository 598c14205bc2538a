package compactor

import (
	"fmt"
	"path/filepath"

	"github.com/coolan2013/xapian/internal/sstable"
	"github.com/coolan2013/xapian/internal/storage"
)

// groupInput extends tableInput with enough bookkeeping to let the cascade
// close and delete its own intermediate temp tables without touching a
// caller's original source tables.
type groupInput struct {
	tableInput
	path   string
	isTemp bool
}

// cascade repeatedly folds ins down two (or, for an odd remainder, three) at
// a time into temporary tables until at most threshold remain, the pass
// structure spec.md §4.5 describes for bounding how many input tables (and
// heap entries) a single merge call holds open at once. Every temp table it
// creates is named tmp<pass>_<group>.<kind> inside tmpDir and removed again
// once the pass that consumed it completes.
func cascade(fs storage.FS, tmpDir, kind string, blockSize, threshold int, k kernel, ins []groupInput) ([]groupInput, error) {
	pass := 0
	for len(ins) > threshold {
		groups := groupPairs(ins)
		next := make([]groupInput, 0, len(groups))
		for gi, group := range groups {
			path := filepath.Join(tmpDir, fmt.Sprintf("tmp%d_%d.%s", pass, gi, kind))
			w, err := sstable.NewWriter(fs, path, sstable.WriterOptions{BlockSize: blockSize})
			if err != nil {
				return nil, err
			}
			plain := make([]tableInput, len(group))
			for i, g := range group {
				plain[i] = g.tableInput
			}
			if err := k(w, plain); err != nil {
				_ = w.Close()
				return nil, err
			}
			if err := w.FlushDB(); err != nil {
				return nil, err
			}
			r, err := w.Commit(nil, 0)
			if err != nil {
				return nil, err
			}

			for _, g := range group {
				if err := g.reader.Close(); err != nil {
					return nil, err
				}
				if g.isTemp {
					if err := fs.Remove(g.path); err != nil {
						return nil, err
					}
				}
			}

			next = append(next, groupInput{
				tableInput: tableInput{reader: r, offset: 0},
				path:       path,
				isTemp:     true,
			})
		}
		ins = next
		pass++
	}
	return ins, nil
}

// groupPairs splits ins into groups of two, folding a lone trailing input
// into a group of three rather than leaving a group of one (which the
// "odd remainder gets three" rule exists specifically to avoid — a
// singleton group would be a pointless copy pass).
func groupPairs(ins []groupInput) [][]groupInput {
	n := len(ins)
	var groups [][]groupInput
	i := 0
	for i < n {
		remaining := n - i
		switch {
		case remaining == 3:
			groups = append(groups, ins[i:i+3])
			i += 3
		case remaining >= 2:
			groups = append(groups, ins[i:i+2])
			i += 2
		default:
			groups = append(groups, ins[i:i+1])
			i++
		}
	}
	return groups
}
