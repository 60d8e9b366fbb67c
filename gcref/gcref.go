// Package gcref implements the reachable blob-key index persist's ownership
// model needs: a key is unreferenced once no live rollup and no diff chain
// reachable from a live rollup contains it. It walks a shard's rollup
// history and trace to build a compact reachable-set of blob keys,
// fingerprinted to uint64 and tracked in a github.com/dgraph-io/sroar
// roaring bitmap — the same structure the teacher's posting lists use for
// large integer sets, applied here to the GC-reachability set instead of
// document postings.
//
// The index is a pure, synchronous, in-memory structure: it never deletes
// anything from blob storage itself, only answers IsLive/Sweep for the CaS
// layer (out of this module's scope) to act on.
package gcref

import (
	"github.com/dgraph-io/ristretto/z"
	"github.com/dgraph-io/sroar"

	"github.com/persistdb/persist/frontier"
	"github.com/persistdb/persist/id"
	"github.com/persistdb/persist/state"
)

// Index is the reachable-set of blob keys for one shard, as of the State
// snapshot it was built from.
type Index struct {
	live *sroar.Bitmap
}

// New builds an empty Index.
func New() *Index {
	return &Index{live: sroar.NewBitmap()}
}

// fingerprint hashes a blob-storage path fragment down to the uint64 the
// bitmap tracks, via the same MemHash the wire decode cache uses to key
// rollup bytes (both are content fingerprints, not cryptographic digests).
func fingerprint(key string) uint64 {
	return z.MemHash([]byte(key))
}

// Build walks collections' rollup history and trace batches, marking every
// referenced PartialRollupKey and PartialBatchKey live. This is the
// reachable set as of a single State snapshot; a caller tracking a diff
// chain reachable from a live rollup folds multiple Build results together
// with Merge.
func Build[T frontier.TimeStamp](c state.Collections[T]) *Index {
	ix := New()
	for _, r := range c.Rollups {
		ix.AddRollupKey(r.Key)
	}
	for _, b := range c.Trace.Batches() {
		for _, p := range b.Parts {
			ix.AddBatchKey(p.Key)
		}
	}
	return ix
}

// AddRollupKey marks a rollup snapshot's blob key as live.
func (ix *Index) AddRollupKey(k id.PartialRollupKey) {
	ix.live.Set(fingerprint(string(k)))
}

// AddBatchKey marks a batch part's blob key as live.
func (ix *Index) AddBatchKey(k id.PartialBatchKey) {
	ix.live.Set(fingerprint(string(k)))
}

// Merge folds other's reachable set into ix in place, for combining the
// live set of a rollup with the live sets of every diff reachable from it.
func (ix *Index) Merge(other *Index) {
	ix.live.Or(other.live)
}

// IsLive reports whether key is reachable from any rollup or batch this
// index was built from.
func (ix *Index) IsLive(key string) bool {
	return ix.live.Contains(fingerprint(key))
}

// Sweep returns the subset of candidates no longer reachable — the set the
// CaS layer's garbage collector may safely delete from blob storage.
func (ix *Index) Sweep(candidates []string) []string {
	var dead []string
	for _, c := range candidates {
		if !ix.IsLive(c) {
			dead = append(dead, c)
		}
	}
	return dead
}

// Size reports the number of distinct blob-key fingerprints currently
// tracked as live, for the persist_gc_index_size gauge.
func (ix *Index) Size() int {
	return int(ix.live.GetCardinality())
}
