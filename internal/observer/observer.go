// Package observer defines the compactor callback spec.md §6 describes: an
// optional object receiving progress updates and resolving user-metadata
// conflicts. Per the "Compactor callback polymorphism" design note in
// spec.md §9, it is expressed as a plain interface with a no-op default
// value rather than a nil-checked callback pointer at every call site.
package observer

// Observer receives progress notifications during a compaction and
// resolves duplicate user-metadata keys deterministically.
type Observer interface {
	// SetStatus reports progress for one table, e.g. "postlist" /
	// "reduced by 12.0%".
	SetStatus(tableName, message string)
	// ResolveDuplicateMetadata is called when more than one input supplies
	// the same user-metadata key. tags holds the colliding tags in the order
	// the merge heap pops them, which for equal keys is not necessarily
	// input order. The returned value is emitted verbatim.
	ResolveDuplicateMetadata(key []byte, tags [][]byte) []byte
}

// Noop is the default Observer: it reports no progress and resolves
// metadata collisions by keeping the first tag, matching spec.md §8
// scenario 2 ("no compactor ... output tag is first by heap order").
type Noop struct{}

func (Noop) SetStatus(tableName, message string) {}

func (Noop) ResolveDuplicateMetadata(key []byte, tags [][]byte) []byte {
	return tags[0]
}

var _ Observer = Noop{}
