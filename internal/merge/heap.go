// Package merge implements the k-way merge kernels spec.md §4.4 specifies:
// postings, value-stats/value-chunk/user-metadata (all folded into
// merge_postlists), spellings, synonyms, positions, and docid-keyed tables.
// Every kernel but merge_docid_keyed is driven by a min-heap of cursors
// ordered by the (key, firstdid) predicate spec.md §4.3 describes: byte-wise
// key comparison first, then each cursor's HeapTiebreak. PostlistCursor's
// Key no longer carries the document id, so its tiebreak is FirstDid; the
// other cursors return 0.
package merge

import "container/heap"

// keyer is any cursor exposing the (key, firstdid) tuple the heap orders it
// by, per the PostlistCursorGt comparator in honey_compact.cc: primarily by
// key, and by firstdid to break ties between chunks of the same term.
// Cursor kinds with nothing to break ties with (position, merge) return 0.
type keyer interface {
	HeapKey() []byte
	HeapTiebreak() uint64
}

// cursorHeap is a min-heap of cursors of a single concrete type, each still
// holding a valid "current" entry. The heap owns its cursors exclusively —
// popping one and failing to push it back (because its Next returned false)
// drops it for good, matching spec.md §9's "heap of owned cursors" note.
type cursorHeap[T keyer] struct {
	items []T
}

func (h *cursorHeap[T]) Len() int { return len(h.items) }
func (h *cursorHeap[T]) Less(i, j int) bool {
	c := compareKeys(h.items[i].HeapKey(), h.items[j].HeapKey())
	if c != 0 {
		return c < 0
	}
	return h.items[i].HeapTiebreak() < h.items[j].HeapTiebreak()
}
func (h *cursorHeap[T]) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *cursorHeap[T]) Push(x any)    { h.items = append(h.items, x.(T)) }
func (h *cursorHeap[T]) Pop() any {
	n := len(h.items)
	item := h.items[n-1]
	h.items = h.items[:n-1]
	return item
}

func compareKeys(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// newCursorHeap builds a ready-to-pop heap from cursors that already hold a
// valid current entry (callers advance each cursor once before calling
// this, dropping any that were empty to begin with).
func newCursorHeap[T keyer](items []T) *cursorHeap[T] {
	h := &cursorHeap[T]{items: items}
	heap.Init(h)
	return h
}

func (h *cursorHeap[T]) push(item T) { heap.Push(h, item) }
func (h *cursorHeap[T]) pop() T      { return heap.Pop(h).(T) }
