package compactor_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coolan2013/xapian/internal/compactor"
	"github.com/coolan2013/xapian/internal/keycodec"
	"github.com/coolan2013/xapian/internal/observer"
	"github.com/coolan2013/xapian/internal/sstable"
	"github.com/coolan2013/xapian/internal/storage"
	"github.com/coolan2013/xapian/internal/varint"
	"github.com/coolan2013/xapian/internal/versionfile"
)

type rawEntry struct {
	key, value []byte
}

// buildSourceDB writes a minimal source database under dir: one table per
// non-empty entry of tables, plus a version file recording each table's
// RootInfo and lastDid.
func buildSourceDB(t *testing.T, fs storage.FS, dir string, lastDid uint64, tables map[versionfile.TableKind][]rawEntry) {
	t.Helper()
	vf := versionfile.New()
	vf.SetLastDocid(lastDid)
	for kind, entries := range tables {
		path := filepath.Join(dir, kind.String()+".table")
		w, err := sstable.NewWriter(fs, path, sstable.WriterOptions{})
		require.NoError(t, err)
		for _, e := range entries {
			require.NoError(t, w.Add(e.key, e.value, false))
		}
		require.NoError(t, w.FlushDB())
		r, err := w.Commit(vf.ForTable(kind), 1)
		require.NoError(t, err)
		require.NoError(t, r.Close())
	}
	require.NoError(t, vf.WriteAndInstall(fs, filepath.Join(dir, "version")))
}

func readDestVersion(t *testing.T, fs storage.FS, dir string) *versionfile.File {
	t.Helper()
	r, err := fs.Open(filepath.Join(dir, "version"))
	require.NoError(t, err)
	defer r.Close()
	buf := make([]byte, 0, 256)
	tmp := make([]byte, 256)
	for {
		n, err := r.Read(tmp)
		buf = append(buf, tmp[:n]...)
		if err != nil {
			break
		}
	}
	vf, err := versionfile.Parse(buf)
	require.NoError(t, err)
	return vf
}

func openDestTable(t *testing.T, fs storage.FS, dir string, kind versionfile.TableKind, vf *versionfile.File) *sstable.Reader {
	t.Helper()
	root, ok := vf.RootInfo(kind)
	require.True(t, ok)
	r, err := sstable.OpenReader(fs, filepath.Join(dir, kind.String()+".table"), root)
	require.NoError(t, err)
	return r
}

func readAll(t *testing.T, r *sstable.Reader) []rawEntry {
	t.Helper()
	var out []rawEntry
	for {
		key, value, _, ok, err := r.ReadItem()
		require.NoError(t, err)
		if !ok {
			break
		}
		out = append(out, rawEntry{key: append([]byte{}, key...), value: append([]byte{}, value...)})
	}
	return out
}

func initialPosting(term string, tf, cf, firstdid uint64, payload string) rawEntry {
	key := keycodec.EncodeInitialPostingsKey([]byte(term))
	tag := varint.PackUint(nil, tf)
	tag = varint.PackUint(tag, cf)
	tag = varint.PackUint(tag, firstdid-1)
	tag = append(tag, '1')
	tag = append(tag, payload...)
	return rawEntry{key: key, value: tag}
}

func Test_Compact_EmptySources_StillCreatesPostlistAndTermlist(t *testing.T) {
	fs := storage.NewMemFS()
	buildSourceDB(t, fs, "src1", 0, nil)

	d := compactor.New(compactor.Options{
		FS:      fs,
		Sources: []compactor.SourceDB{{Dir: "src1"}},
		DestDir: "dest",
	})
	require.NoError(t, d.Compact(context.Background()))

	vf := readDestVersion(t, fs, "dest")
	_, postlistPresent := vf.RootInfo(versionfile.Postlist)
	_, termlistPresent := vf.RootInfo(versionfile.Termlist)
	assert.True(t, postlistPresent)
	assert.True(t, termlistPresent)

	_, docdataPresent := vf.RootInfo(versionfile.DocData)
	_, positionPresent := vf.RootInfo(versionfile.Position)
	assert.False(t, docdataPresent)
	assert.False(t, positionPresent)
}

func Test_Compact_PartialTermlist_IsSuppressedEntirely(t *testing.T) {
	fs := storage.NewMemFS()
	buildSourceDB(t, fs, "src1", 1, map[versionfile.TableKind][]rawEntry{
		versionfile.Termlist: {{key: keycodec.EncodeDocidKeyedKey(1, nil), value: []byte("t1")}},
	})
	buildSourceDB(t, fs, "src2", 1, nil)

	d := compactor.New(compactor.Options{
		FS: fs,
		Sources: []compactor.SourceDB{
			{Dir: "src1"}, {Dir: "src2"},
		},
		DestDir: "dest",
	})
	require.NoError(t, d.Compact(context.Background()))

	vf := readDestVersion(t, fs, "dest")
	_, termlistPresent := vf.RootInfo(versionfile.Termlist)
	assert.False(t, termlistPresent)

	_, postlistPresent := vf.RootInfo(versionfile.Postlist)
	assert.True(t, postlistPresent)
}

func Test_Compact_MetadataDedup_NoObserver_FirstByHeapOrderWins(t *testing.T) {
	fs := storage.NewMemFS()
	metaKey := append([]byte{0x00, 0xC0}, []byte("stem_lang")...)

	buildSourceDB(t, fs, "src1", 0, map[versionfile.TableKind][]rawEntry{
		versionfile.Postlist: {{key: metaKey, value: []byte("en")}},
	})
	buildSourceDB(t, fs, "src2", 0, map[versionfile.TableKind][]rawEntry{
		versionfile.Postlist: {{key: metaKey, value: []byte("fr")}},
	})

	d := compactor.New(compactor.Options{
		FS: fs,
		Sources: []compactor.SourceDB{
			{Dir: "src1"}, {Dir: "src2"},
		},
		DestDir: "dest",
	})
	require.NoError(t, d.Compact(context.Background()))

	vf := readDestVersion(t, fs, "dest")
	r := openDestTable(t, fs, "dest", versionfile.Postlist, vf)
	entries := readAll(t, r)
	require.Len(t, entries, 1)
	assert.Equal(t, []byte("en"), entries[0].value)
}

func Test_Compact_MetadataResolver_CustomObserverWins(t *testing.T) {
	fs := storage.NewMemFS()
	metaKey := append([]byte{0x00, 0xC0}, []byte("stem_lang")...)

	buildSourceDB(t, fs, "src1", 0, map[versionfile.TableKind][]rawEntry{
		versionfile.Postlist: {{key: metaKey, value: []byte("en")}},
	})
	buildSourceDB(t, fs, "src2", 0, map[versionfile.TableKind][]rawEntry{
		versionfile.Postlist: {{key: metaKey, value: []byte("fr")}},
	})

	obs := resolverObserver{resolve: func(key []byte, tags [][]byte) []byte {
		return tags[len(tags)-1]
	}}

	d := compactor.New(compactor.Options{
		FS: fs,
		Sources: []compactor.SourceDB{
			{Dir: "src1"}, {Dir: "src2"},
		},
		DestDir:  "dest",
		Observer: obs,
	})
	require.NoError(t, d.Compact(context.Background()))

	vf := readDestVersion(t, fs, "dest")
	r := openDestTable(t, fs, "dest", versionfile.Postlist, vf)
	entries := readAll(t, r)
	require.Len(t, entries, 1)
	assert.Equal(t, []byte("fr"), entries[0].value)
}

func Test_Compact_PostingsOffset_ShiftsDocumentIdsAcrossSources(t *testing.T) {
	fs := storage.NewMemFS()
	buildSourceDB(t, fs, "src1", 5, map[versionfile.TableKind][]rawEntry{
		versionfile.Postlist: {initialPosting("cat", 1, 1, 3, "a")},
	})
	buildSourceDB(t, fs, "src2", 2, map[versionfile.TableKind][]rawEntry{
		versionfile.Postlist: {initialPosting("dog", 1, 1, 1, "b")},
	})

	d := compactor.New(compactor.Options{
		FS: fs,
		Sources: []compactor.SourceDB{
			{Dir: "src1", Offset: 0},
			{Dir: "src2", Offset: 10},
		},
		DestDir: "dest",
	})
	require.NoError(t, d.Compact(context.Background()))

	vf := readDestVersion(t, fs, "dest")
	assert.Equal(t, uint64(12), vf.LastDocid())

	r := openDestTable(t, fs, "dest", versionfile.Postlist, vf)
	entries := readAll(t, r)
	require.Len(t, entries, 2)

	assert.Equal(t, keycodec.EncodeInitialPostingsKey([]byte("cat")), entries[0].key)
	assert.Equal(t, uint64(3), unpackFirstDid(t, entries[0].value))

	assert.Equal(t, keycodec.EncodeInitialPostingsKey([]byte("dog")), entries[1].key)
	assert.Equal(t, uint64(11), unpackFirstDid(t, entries[1].value))
}

func unpackFirstDid(t *testing.T, tag []byte) uint64 {
	t.Helper()
	_, n1 := varint.UnpackUint(tag)
	require.Greater(t, n1, 0)
	rest := tag[n1:]
	_, n2 := varint.UnpackUint(rest)
	require.Greater(t, n2, 0)
	rest = rest[n2:]
	firstdidMinus1, n3 := varint.UnpackUint(rest)
	require.Greater(t, n3, 0)
	return firstdidMinus1 + 1
}

func Test_Compact_SingleFileDestination_EmptyDatabasePadsToBlockSize(t *testing.T) {
	fs := storage.NewMemFS()
	buildSourceDB(t, fs, "src1", 0, nil)

	d := compactor.New(compactor.Options{
		FS:        fs,
		Sources:   []compactor.SourceDB{{Dir: "src1"}},
		DestFile:  "dest.single",
		BlockSize: 4096,
	})
	err := d.Compact(context.Background())
	require.NoError(t, err)

	r, err := fs.Open("dest.single")
	require.NoError(t, err)
	defer r.Close()
	size, err := r.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(4096), size)
}

// Test_Compact_SingleFileDestination_InvalidBlockSizeDefaults confirms an
// invalid BlockSize (here, not a power of two) falls back to
// sstable.GlassDefaultBlockSize for the empty-database padding length,
// instead of passing the invalid value straight through.
func Test_Compact_SingleFileDestination_InvalidBlockSizeDefaults(t *testing.T) {
	fs := storage.NewMemFS()
	buildSourceDB(t, fs, "src1", 0, nil)

	d := compactor.New(compactor.Options{
		FS:        fs,
		Sources:   []compactor.SourceDB{{Dir: "src1"}},
		DestFile:  "dest.single",
		BlockSize: 3000,
	})
	err := d.Compact(context.Background())
	require.NoError(t, err)

	r, err := fs.Open("dest.single")
	require.NoError(t, err)
	defer r.Close()
	size, err := r.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(sstable.GlassDefaultBlockSize), size)
}

type resolverObserver struct {
	resolve func(key []byte, tags [][]byte) []byte
}

func (resolverObserver) SetStatus(string, string) {}
func (o resolverObserver) ResolveDuplicateMetadata(key []byte, tags [][]byte) []byte {
	return o.resolve(key, tags)
}

var _ observer.Observer = resolverObserver{}
