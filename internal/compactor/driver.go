// Package compactor implements the top-level merge driver spec.md §4.6
// describes: for every table kind, gather the matching table from each
// source database, offset its document ids, fold the inputs through the
// right merge kernel (internal/merge), and install the result either as a
// directory of table files or packed into a single destination file.
package compactor

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/coolan2013/xapian/internal/compress"
	"github.com/coolan2013/xapian/internal/cursor"
	"github.com/coolan2013/xapian/internal/lock"
	"github.com/coolan2013/xapian/internal/observer"
	"github.com/coolan2013/xapian/internal/sstable"
	"github.com/coolan2013/xapian/internal/storage"
	"github.com/coolan2013/xapian/internal/versionfile"
)

// Driver runs one compaction. It holds no state between runs; build a new
// one per call to Compact if you need to compact again.
type Driver struct {
	opts Options
	dec  cursor.Decompressor
}

// New returns a Driver configured by opts. opts.FS must be set.
func New(opts Options) *Driver {
	return &Driver{opts: opts, dec: compress.New(opts.Codec)}
}

func (d *Driver) fs() storage.FS { return d.opts.FS }

// Compact runs the merge to completion: one destination table per
// non-suppressed kind, plus an atomically-installed version file recording
// every table's RootInfo and the merged database's last document id.
func (d *Driver) Compact(ctx context.Context) error {
	dirLock := d.dirLock()
	if err := dirLock.AcquireCtx(ctx); err != nil {
		return err
	}
	defer dirLock.ReleaseCtx(ctx)

	sourceVersions := make([]*versionfile.File, len(d.opts.Sources))
	for i, src := range d.opts.Sources {
		vf, err := d.readSourceVersion(src.Dir)
		if err != nil {
			return err
		}
		sourceVersions[i] = vf
	}

	vf := versionfile.New()
	var lastDid uint64
	for i, src := range d.opts.Sources {
		if last := sourceVersions[i].LastDocid() + src.Offset; last > lastDid {
			lastDid = last
		}
	}
	vf.SetLastDocid(lastDid)

	tmpDir := d.tmpDir()
	obs := d.opts.observer()

	var singleFileOut storage.Writable
	var cumulative int64
	if d.opts.singleFile() {
		w, err := d.fs().Create(d.opts.DestFile)
		if err != nil {
			return err
		}
		singleFileOut = w
		defer func() {
			_ = singleFileOut.Close()
		}()
	}

	for _, kind := range versionfile.Kinds() {
		if err := ctx.Err(); err != nil {
			return err
		}

		ins, err := d.gatherInputs(kind, sourceVersions)
		if err != nil {
			return err
		}
		if len(ins) == 0 && kind.Lazy() {
			zap.L().Info("suppressing empty table", zap.String("table", kind.String()))
			continue
		}
		// A termlist carried by only some sources can't be merged into a
		// meaningful whole (the sources missing it would silently lose
		// their terms), so the output termlist is suppressed entirely
		// rather than merged partially.
		if kind == versionfile.Termlist && len(ins) > 0 && len(ins) < len(sourceVersions) {
			zap.L().Info("suppressing partial termlist", zap.String("table", kind.String()))
			if err := closeInputs(d.fs(), ins); err != nil {
				return err
			}
			continue
		}

		var inSize int64
		for _, in := range ins {
			inSize += in.reader.RootInfo().RootOffset
		}

		threshold := d.opts.multipassThreshold()
		if d.opts.Multipass && len(ins) > threshold {
			ins, err = cascade(d.fs(), tmpDir, kind.String(), d.opts.BlockSize, threshold, d.kernelFor(kind, obs), ins)
			if err != nil {
				return err
			}
		}

		obs.SetStatus(kind.String(), "merging")

		var outSize int64
		if d.opts.singleFile() {
			n, err := d.writeTableIntoSingleFile(kind, ins, vf, singleFileOut, cumulative)
			if err != nil {
				return err
			}
			cumulative += n
			outSize = n
		} else {
			n, err := d.writeTableToDestDir(kind, ins, vf)
			if err != nil {
				return err
			}
			outSize = n
		}
		obs.SetStatus(kind.String(), formatSizeChange(inSize, outSize))
	}

	if d.opts.singleFile() {
		payload := vf.Serialize()
		// An all-empty compaction writes zero table bytes, which would
		// otherwise leave nothing ahead of the version region and risk the
		// file being mistaken for a stub on reopen; pad with nulls first so
		// the total comes out to at least one block (spec.md §8 scenario 6).
		if cumulative == 0 {
			bs := sstable.ClampBlockSize(d.opts.BlockSize)
			if padLen := int64(bs) - int64(len(payload)); padLen > 0 {
				if _, err := singleFileOut.Write(make([]byte, padLen)); err != nil {
					return err
				}
			}
		}
		if _, err := singleFileOut.Write(payload); err != nil {
			return err
		}
		return singleFileOut.Sync()
	}

	versionPath := filepath.Join(d.opts.DestDir, "version")
	return vf.WriteAndInstall(d.fs(), versionPath)
}

// dirLock returns the flock(2)-backed lock on DestDir when the destination
// lives on the local filesystem, and a no-op lock in single-file mode or
// on any other storage.FS (such as the in-memory one), which has no on-disk
// directory to lock.
func (d *Driver) dirLock() lock.DirLock {
	if d.opts.singleFile() || d.opts.FS != storage.NewLocalFS() {
		return lock.NewNoopDirLock()
	}
	return lock.NewFlockDirLock(d.opts.DestDir)
}

// writerOptions derives a destination table's WriterOptions from the
// configured compaction level, matching honey_compact.cc's
// set_max_item_size(1)-iff-FULLER / set_full_compaction-iff-not-STANDARD
// calls (lines ~1582-1583).
func (d *Driver) writerOptions() sstable.WriterOptions {
	return sstable.WriterOptions{
		BlockSize:      d.opts.BlockSize,
		MaxItemSize:    d.opts.CompactionLevel.maxItemSize(),
		FullCompaction: d.opts.CompactionLevel.fullCompaction(),
	}
}

func (d *Driver) tmpDir() string {
	if d.opts.singleFile() {
		return filepath.Dir(d.opts.DestFile)
	}
	return d.opts.DestDir
}

func (d *Driver) readSourceVersion(dir string) (*versionfile.File, error) {
	r, err := d.fs().Open(filepath.Join(dir, "version"))
	if err != nil {
		return versionfile.New(), nil
	}
	defer r.Close()
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return versionfile.Parse(buf)
}

// gatherInputs opens the kind table from every source that has a non-empty
// one, shifted by that source's configured document-id offset.
func (d *Driver) gatherInputs(kind versionfile.TableKind, sourceVersions []*versionfile.File) ([]groupInput, error) {
	var ins []groupInput
	for i, src := range d.opts.Sources {
		root, ok := sourceVersions[i].RootInfo(kind)
		if !ok || root.NumEntries == 0 {
			continue
		}
		path := filepath.Join(src.Dir, kind.String()+".table")
		r, err := sstable.OpenReader(d.fs(), path, root)
		if err != nil {
			return nil, err
		}
		ins = append(ins, groupInput{
			tableInput: tableInput{reader: r, offset: d.opts.Sources[i].Offset},
			path:       path,
			isTemp:     false,
		})
	}
	return ins, nil
}

func (d *Driver) kernelFor(kind versionfile.TableKind, obs observer.Observer) kernel {
	switch kind {
	case versionfile.Postlist:
		return postlistKernel(obs)
	case versionfile.DocData, versionfile.Termlist:
		return docidKeyedKernel()
	case versionfile.Position:
		return positionKernel()
	case versionfile.Spelling:
		return spellingKernel(d.dec)
	case versionfile.Synonym:
		return synonymKernel(d.dec)
	default:
		panic(fmt.Sprintf("compactor: unhandled table kind %v", kind))
	}
}

func (d *Driver) writeTableToDestDir(kind versionfile.TableKind, ins []groupInput, vf *versionfile.File) (int64, error) {
	path := filepath.Join(d.opts.DestDir, kind.String()+".table")
	w, err := sstable.NewWriter(d.fs(), path, d.writerOptions())
	if err != nil {
		return 0, err
	}
	plain := make([]tableInput, len(ins))
	for i, in := range ins {
		plain[i] = in.tableInput
	}
	if err := d.kernelFor(kind, d.opts.observer())(w, plain); err != nil {
		_ = w.Close()
		return 0, err
	}
	if err := closeInputs(d.fs(), ins); err != nil {
		return 0, err
	}
	if err := w.FlushDB(); err != nil {
		return 0, err
	}
	r, err := w.Commit(vf.ForTable(kind), 1)
	if err != nil {
		return 0, err
	}
	if err := w.Sync(); err != nil {
		return 0, err
	}
	outSize := r.RootInfo().RootOffset
	return outSize, r.Close()
}

// writeTableIntoSingleFile runs the kind's merge into its own temp table,
// then streams the temp table's bytes into out starting at baseOffset and
// records that offset so a later reader can locate it, before deleting the
// temp table.
func (d *Driver) writeTableIntoSingleFile(kind versionfile.TableKind, ins []groupInput, vf *versionfile.File, out storage.Writable, baseOffset int64) (int64, error) {
	tmpPath := filepath.Join(d.tmpDir(), "."+kind.String()+".tmp")
	w, err := sstable.NewWriter(d.fs(), tmpPath, d.writerOptions())
	if err != nil {
		return 0, err
	}
	plain := make([]tableInput, len(ins))
	for i, in := range ins {
		plain[i] = in.tableInput
	}
	if err := d.kernelFor(kind, d.opts.observer())(w, plain); err != nil {
		_ = w.Close()
		return 0, err
	}
	if err := closeInputs(d.fs(), ins); err != nil {
		return 0, err
	}
	if err := w.FlushDB(); err != nil {
		return 0, err
	}
	r, err := w.Commit(vf.ForTable(kind), 1)
	if err != nil {
		return 0, err
	}
	if err := w.Sync(); err != nil {
		return 0, err
	}
	vf.SetTableBase(kind, baseOffset)

	raw, err := d.fs().Open(tmpPath)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, raw)
	_ = raw.Close()
	_ = r.Close()
	if err != nil {
		return 0, err
	}
	if err := d.fs().Remove(tmpPath); err != nil {
		return 0, err
	}
	return n, nil
}

// formatSizeChange renders the same three size-change classifications the
// original reports per table: unchanged, reduced by some percentage, or
// (when document-id offsetting and duplicate elimination nets out negative)
// increased by some percentage.
func formatSizeChange(inSize, outSize int64) string {
	if inSize == 0 {
		if outSize == 0 {
			return "empty"
		}
		return fmt.Sprintf("created, %d bytes", outSize)
	}
	if inSize == outSize {
		return "size unchanged"
	}
	pct := float64(inSize-outSize) / float64(inSize) * 100
	if pct >= 0 {
		return fmt.Sprintf("reduced by %.1f%%", pct)
	}
	return fmt.Sprintf("INCREASED by %.1f%%", -pct)
}

// closeInputs closes every reader in ins, deleting the underlying file for
// any that are this driver's own temp tables (originals belonging to a
// source database are left untouched).
func closeInputs(fs storage.FS, ins []groupInput) error {
	for _, in := range ins {
		if err := in.reader.Close(); err != nil {
			return err
		}
		if in.isTemp {
			if err := fs.Remove(in.path); err != nil {
				return err
			}
		}
	}
	return nil
}
