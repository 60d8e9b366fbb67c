// Package batch models the hollow batch: durable batch metadata (a time
// Description plus references to blob-stored parts) without the payload
// itself, which lives in blob storage.
package batch

import (
	"github.com/persistdb/persist/frontier"
	"github.com/persistdb/persist/id"
)

// Part is one blob-stored chunk of a batch's data, referenced by a partial
// key the blob collaborator resolves against its own prefix.
type Part struct {
	Key               id.PartialBatchKey
	EncodedSizeBytes uint64
}

// HollowBatch is batch metadata without the payload: a Description, its
// ordered parts, the total row count, and run boundaries used to order
// compaction.
//
// Equality is structural over all fields including Parts; two batches with
// the same Description and row count but different part lists are not
// equal, since the wire-encoded Spine set is keyed by (lower, upper, since)
// for dedup purposes but the decoder must still preserve each batch's exact
// part list.
type HollowBatch[T frontier.TimeStamp] struct {
	Desc frontier.Description[T]
	Parts []Part
	Len   uint64
	// Runs holds ordered indices into Parts marking run boundaries; a run
	// is a maximal sorted sub-sequence of parts consolidated together.
	Runs []int
}

// New builds a HollowBatch from its fields, performing no validation; the
// trace package checks each batch's since against the trace's own since at
// push time.
func New[T frontier.TimeStamp](desc frontier.Description[T], parts []Part, length uint64, runs []int) HollowBatch[T] {
	return HollowBatch[T]{Desc: desc, Parts: parts, Len: length, Runs: runs}
}

// Equal reports structural equality, including part order and run
// boundaries, matching the spec's "equality of hollow batches is
// structural over all fields including parts."
func (b HollowBatch[T]) Equal(o HollowBatch[T]) bool {
	if !b.Desc.Lower.Equal(o.Desc.Lower) || !b.Desc.Upper.Equal(o.Desc.Upper) || !b.Desc.Since.Equal(o.Desc.Since) {
		return false
	}
	if b.Len != o.Len || len(b.Parts) != len(o.Parts) || len(b.Runs) != len(o.Runs) {
		return false
	}
	for i := range b.Parts {
		if b.Parts[i] != o.Parts[i] {
			return false
		}
	}
	for i := range b.Runs {
		if b.Runs[i] != o.Runs[i] {
			return false
		}
	}
	return true
}

// DedupKey returns the triple persist uses to key the spine's set-like
// container; the wire-encoded list still preserves insertion order for
// reproducibility, but duplicate detection is keyed on bounds alone.
type DedupKey struct {
	Lower, Upper, Since string
}

// MapHollowBatch converts a HollowBatch over A into one over B via f,
// leaving the part list, row count and run boundaries untouched (they
// don't depend on T).
func MapHollowBatch[A frontier.TimeStamp, B frontier.TimeStamp](b HollowBatch[A], f func(A) B) HollowBatch[B] {
	return HollowBatch[B]{
		Desc: frontier.Description[B]{
			Lower: frontier.MapAntichain(b.Desc.Lower, f),
			Upper: frontier.MapAntichain(b.Desc.Upper, f),
			Since: frontier.MapAntichain(b.Desc.Since, f),
		},
		Parts: b.Parts,
		Len:   b.Len,
		Runs:  b.Runs,
	}
}

// Key computes b's DedupKey from its Description's three antichain
// fingerprints.
func (b HollowBatch[T]) Key() DedupKey {
	return DedupKey{
		Lower: b.Desc.Lower.Fingerprint(),
		Upper: b.Desc.Upper.Fingerprint(),
		Since: b.Desc.Since.Fingerprint(),
	}
}
