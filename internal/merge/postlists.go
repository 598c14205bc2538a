package merge

import (
	"github.com/coolan2013/xapian/internal/cursor"
	"github.com/coolan2013/xapian/internal/keycodec"
	"github.com/coolan2013/xapian/internal/observer"
	"github.com/coolan2013/xapian/internal/sstable"
	"github.com/coolan2013/xapian/internal/varint"
	"github.com/coolan2013/xapian/internal/xerrors"
)

// Postlists runs the four-phase merge spec.md §4.4 describes over the
// postlist table: user-metadata dedup, value-stats accumulation,
// value-chunk passthrough, and postings/doclen chunk re-coalescing. The
// four phases are not four separate loops — the key namespaces happen to
// sort in exactly that order (the "00 C0"/"00 D0"/"00 D8"/"00 E0" prefixes
// are numerically ascending and every real term's first byte sorts after
// them) — so one heap-driven pass naturally visits them in order, just as
// merge_postlists does in honey_compact.cc.
func Postlists(out *sstable.Writer, inputs []*sstable.Reader, offsets []uint64, obs observer.Observer) error {
	if obs == nil {
		obs = observer.Noop{}
	}
	cursors := make([]*cursor.PostlistCursor, 0, len(inputs))
	for i, r := range inputs {
		c := cursor.NewPostlistCursor(r, offsets[i])
		ok, err := c.Next()
		if err != nil {
			return err
		}
		if ok {
			cursors = append(cursors, c)
		}
	}
	h := newCursorHeap(cursors)

	var (
		pendingKey   []byte
		pendingClass keycodec.Class
		metaTags     [][]byte
		statsFreq    uint64
		statsLB, statsUB []byte
		statsSeen    bool
		postingChunks []postingChunk
	)

	flush := func() error {
		if pendingKey == nil {
			return nil
		}
		switch pendingClass {
		case keycodec.ClassUserMetadata:
			tag := metaTags[0]
			if len(metaTags) > 1 {
				tag = obs.ResolveDuplicateMetadata(pendingKey, metaTags)
			}
			if err := out.Add(pendingKey, tag, false); err != nil {
				return err
			}
		case keycodec.ClassValueStats:
			if err := out.Add(pendingKey, encodeValueStats(statsFreq, statsLB, statsUB), false); err != nil {
				return err
			}
		case keycodec.ClassPostings, keycodec.ClassDocLenChunk:
			if err := flushPostingChunks(out, pendingKey, postingChunks); err != nil {
				return err
			}
		}
		metaTags = nil
		statsFreq, statsLB, statsUB, statsSeen = 0, nil, nil, false
		postingChunks = nil
		return nil
	}

	for h.Len() > 0 {
		c := h.pop()
		key := c.Key
		class := c.Class

		if pendingKey != nil && (compareKeys(key, pendingKey) != 0 || class != pendingClass) {
			if err := flush(); err != nil {
				return err
			}
		}
		pendingKey, pendingClass = append([]byte{}, key...), class

		switch class {
		case keycodec.ClassUserMetadata:
			metaTags = append(metaTags, append([]byte{}, c.Tag...))
		case keycodec.ClassValueStats:
			freq, lb, ub, err := decodeValueStats(c.Tag)
			if err != nil {
				return err
			}
			statsFreq += freq
			if !statsSeen || compareKeys(lb, statsLB) < 0 {
				statsLB = lb
			}
			if !statsSeen || compareKeys(ub, statsUB) > 0 {
				statsUB = ub
			}
			statsSeen = true
		case keycodec.ClassValueChunk:
			if err := out.Add(c.Key, c.Tag, false); err != nil {
				return err
			}
			pendingKey = nil
		case keycodec.ClassPostings, keycodec.ClassDocLenChunk:
			postingChunks = append(postingChunks, postingChunk{
				firstdid: c.FirstDid,
				tf:       c.Tf,
				cf:       c.Cf,
				tag:      append([]byte{}, c.Tag...),
			})
		}

		ok, err := c.Next()
		if err != nil {
			return err
		}
		if ok {
			h.push(c)
		}
	}
	return flush()
}

type postingChunk struct {
	firstdid uint64
	tf, cf   uint64
	tag      []byte
}

// flushPostingChunks implements spec.md §4.4 phase 4: sum tf/cf across every
// chunk collected for this term (or doclen bucket), emit an initial-chunk
// record, and re-key the remaining chunks with freshly synthesised postings
// keys, rewriting each chunk's leading continuation byte.
func flushPostingChunks(out *sstable.Writer, bareKey []byte, chunks []postingChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	// The heap pops equal-key cursors in ascending FirstDid order (see
	// cursorHeap.Less), so chunks arrive sorted whenever each input's own
	// chunks ascend; sorting here keeps the emitted order correct even if
	// they do not, the way the real merge accumulates "tags.push_back" then
	// processes them once the key boundary is known.
	sortPostingChunksByFirstDid(chunks)

	var totalTf, totalCf uint64
	for _, c := range chunks {
		totalTf += c.tf
		totalCf += c.cf
	}

	isDocLen := keycodec.IsDocLenChunkKey(bareKey)

	for i, c := range chunks {
		last := i == len(chunks)-1
		cont := byte('0')
		if last {
			cont = '1'
		}
		if len(c.tag) == 0 {
			return xerrors.ErrDatabaseCorrupt
		}
		payload := append([]byte{cont}, c.tag[1:]...)

		if i == 0 {
			header := varint.PackUint(nil, totalTf)
			header = varint.PackUint(header, totalCf)
			header = varint.PackUint(header, c.firstdid-1)
			if err := out.Add(bareKey, append(header, payload...), false); err != nil {
				return err
			}
			continue
		}
		var key []byte
		if isDocLen {
			key = keycodec.EncodeDocLenChunkKey(c.firstdid)
		} else {
			key = append(append([]byte{}, bareKey...), varint.PackUintPreservingSort(nil, c.firstdid)...)
		}
		if err := out.Add(key, payload, false); err != nil {
			return err
		}
	}
	return nil
}

func sortPostingChunksByFirstDid(chunks []postingChunk) {
	for i := 1; i < len(chunks); i++ {
		for j := i; j > 0 && chunks[j-1].firstdid > chunks[j].firstdid; j-- {
			chunks[j-1], chunks[j] = chunks[j], chunks[j-1]
		}
	}
}

// encodeValueStats matches honey_compact.cc's encode_valuestats: freq,
// then lbound length-prefixed, then ubound's raw bytes with no length
// prefix of its own — eliding it entirely when the bounds are equal, since
// there's nothing left over for UnpackString to claim as ubound.
func encodeValueStats(freq uint64, lb, ub []byte) []byte {
	buf := varint.PackUint(nil, freq)
	buf = varint.PackString(buf, lb)
	if compareKeys(lb, ub) != 0 {
		buf = append(buf, ub...)
	}
	return buf
}

func decodeValueStats(tag []byte) (freq uint64, lb, ub []byte, err error) {
	freq, n := varint.UnpackUint(tag)
	if n <= 0 {
		return 0, nil, nil, xerrors.ErrDatabaseCorrupt
	}
	rest := tag[n:]
	lb, m := varint.UnpackString(rest)
	if m <= 0 {
		return 0, nil, nil, xerrors.ErrRangeError
	}
	rest = rest[m:]
	if len(rest) == 0 {
		ub = lb
	} else {
		ub = rest
	}
	return freq, lb, ub, nil
}
