package compactor_test

import (
	"context"
	"testing"

	"github.com/go-faker/faker/v4"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/coolan2013/xapian/internal/compactor"
	"github.com/coolan2013/xapian/internal/keycodec"
	"github.com/coolan2013/xapian/internal/storage"
	"github.com/coolan2013/xapian/internal/versionfile"
)

// CompactionSuite runs the driver end to end across every table kind at
// once, the way go-sstable/functional/on_mem_test.go's WalSuite exercises a
// writer/reader pair with generated fixtures rather than hand-picked bytes.
type CompactionSuite struct {
	suite.Suite
	fs storage.FS
}

func (s *CompactionSuite) SetupTest() {
	s.fs = storage.NewMemFS()
}

// randomPayload generates fixture bytes the way
// go-sstable/integration/utils.go's randomQuote does, via faker's sentence
// tag, standing in for a real docdata/position record's opaque content.
func randomPayload(t *testing.T) []byte {
	t.Helper()
	fixture := struct {
		Sentence string `faker:"sentence"`
	}{}
	require.NoError(t, faker.FakeData(&fixture))
	return []byte(fixture.Sentence)
}

func (s *CompactionSuite) Test_MultiTableMerge_AcrossTwoSources() {
	t := s.T()
	terms := []string{"apple", "banana", "cherry"}

	docdataSrc1 := map[uint64][]byte{1: randomPayload(t), 2: randomPayload(t), 3: randomPayload(t)}
	docdataSrc2 := map[uint64][]byte{1: randomPayload(t), 2: randomPayload(t)}

	src1 := map[versionfile.TableKind][]rawEntry{
		versionfile.Postlist: {
			initialPosting(terms[0], 1, 1, 1, "p"),
			initialPosting(terms[1], 1, 1, 2, "p"),
		},
		versionfile.DocData: docdataEntries(docdataSrc1),
		versionfile.Termlist: {
			{key: keycodec.EncodeDocidKeyedKey(1, nil), value: []byte("t1")},
			{key: keycodec.EncodeDocidKeyedKey(2, nil), value: []byte("t2")},
			{key: keycodec.EncodeDocidKeyedKey(3, nil), value: []byte("t3")},
		},
		versionfile.Position: {
			{key: keycodec.EncodePostingsKey([]byte(terms[0]), 1), value: []byte("pos")},
			{key: keycodec.EncodePostingsKey([]byte(terms[1]), 2), value: []byte("pos")},
		},
	}
	src2 := map[versionfile.TableKind][]rawEntry{
		versionfile.Postlist: {
			initialPosting(terms[2], 1, 1, 1, "p"),
		},
		versionfile.DocData: docdataEntries(docdataSrc2),
		versionfile.Termlist: {
			{key: keycodec.EncodeDocidKeyedKey(1, nil), value: []byte("u1")},
			{key: keycodec.EncodeDocidKeyedKey(2, nil), value: []byte("u2")},
		},
		versionfile.Position: {
			{key: keycodec.EncodePostingsKey([]byte(terms[2]), 1), value: []byte("pos")},
		},
	}

	buildSourceDB(t, s.fs, "src1", 3, src1)
	buildSourceDB(t, s.fs, "src2", 2, src2)

	d := compactor.New(compactor.Options{
		FS: s.fs,
		Sources: []compactor.SourceDB{
			{Dir: "src1", Offset: 0},
			{Dir: "src2", Offset: 3},
		},
		DestDir: "dest",
	})
	require.NoError(t, d.Compact(context.Background()))

	vf := readDestVersion(t, s.fs, "dest")
	require.Equal(t, uint64(5), vf.LastDocid())

	docdata := readAll(t, openDestTable(t, s.fs, "dest", versionfile.DocData, vf))
	require.Len(t, docdata, 5)
	for i, e := range docdata {
		did, _, err := keycodec.SplitDocidKeyedKey(e.key)
		require.NoError(t, err)
		require.Equal(t, uint64(i+1), did)
	}

	termlist := readAll(t, openDestTable(t, s.fs, "dest", versionfile.Termlist, vf))
	require.Len(t, termlist, 5)
	wantValues := []string{"t1", "t2", "t3", "u1", "u2"}
	for i, e := range termlist {
		require.Equal(t, wantValues[i], string(e.value))
	}

	postlist := readAll(t, openDestTable(t, s.fs, "dest", versionfile.Postlist, vf))
	require.Len(t, postlist, 3)

	position := readAll(t, openDestTable(t, s.fs, "dest", versionfile.Position, vf))
	require.Len(t, position, 3)
	var shiftedDids []uint64
	for _, e := range position {
		_, did, _, err := keycodec.SplitPostingsKey(e.key)
		require.NoError(t, err)
		shiftedDids = append(shiftedDids, did)
	}
	require.Contains(t, shiftedDids, uint64(4))
}

func docdataEntries(byDid map[uint64][]byte) []rawEntry {
	var out []rawEntry
	for did := uint64(1); did <= uint64(len(byDid)); did++ {
		out = append(out, rawEntry{key: keycodec.EncodeDocidKeyedKey(did, nil), value: byDid[did]})
	}
	return out
}

func TestCompactionSuite(t *testing.T) {
	suite.Run(t, new(CompactionSuite))
}
