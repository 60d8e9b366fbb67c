// Package diff implements StateDiff, the compact, order-preserving delta
// between two sequence numbers of the same shard, expressed as per-field
// insert/update/delete tuples over State's maps and scalars.
package diff

import (
	"github.com/Masterminds/semver/v3"

	"github.com/persistdb/persist/batch"
	"github.com/persistdb/persist/errs"
	"github.com/persistdb/persist/frontier"
	"github.com/persistdb/persist/id"
	"github.com/persistdb/persist/state"
	"github.com/persistdb/persist/trace"
)

// Type is one of Insert, Update or Delete, carried alongside each Delta.
type Type int

const (
	Insert Type = iota
	Update
	Delete
)

func (t Type) String() string {
	switch t {
	case Insert:
		return "insert"
	case Update:
		return "update"
	case Delete:
		return "delete"
	default:
		return "unknown"
	}
}

// Delta is one entry of a field's delta list: for Insert, only New is
// meaningful; for Delete, only Old; for Update, both.
type Delta[K any, V any] struct {
	Type Type
	Key  K
	Old  V
	New  V
}

// unit is the key type used by scalar fields, which carry no real key.
type unit = struct{}

// StateDiff is the delta between two adjacent (or not, if the receiver
// applied to a follower's stale state, which Apply rejects) sequence
// numbers of one shard's State.
type StateDiff[T frontier.TimeStamp] struct {
	ApplierVersion  *semver.Version
	SeqnoFrom       state.SeqNo
	SeqnoTo         state.SeqNo
	WalltimeMs      uint64
	LatestRollupKey id.PartialRollupKey

	Hostname        []Delta[unit, string]
	LastGCReq       []Delta[unit, state.SeqNo]
	Rollups         []Delta[state.SeqNo, id.PartialRollupKey]
	LeasedReaders   []Delta[id.LeasedReaderID, state.LeasedReaderState[T]]
	CriticalReaders []Delta[id.CriticalReaderID, state.CriticalReaderState[T]]
	Writers         []Delta[id.WriterID, state.WriterState[T]]
	Since           []Delta[unit, frontier.Antichain[T]]
	Spine           []Delta[batch.HollowBatch[T], unit]
}

// Validate enforces the encode-time invariants on a StateDiff: scalar
// fields (hostname, last_gc_req, since) carry at most one delta each. The
// canonical field order (hostname, last_gc_req, rollups, leased_readers,
// critical_readers, writers, since, spine) is a stability aid the wire
// encoder follows, never a correctness requirement the decoder checks.
func (d StateDiff[T]) Validate() error {
	if len(d.Hostname) > 1 {
		return errs.NewInvalidPersistState("hostname field carries %d deltas, scalar fields allow at most 1", len(d.Hostname))
	}
	if len(d.LastGCReq) > 1 {
		return errs.NewInvalidPersistState("last_gc_req field carries %d deltas, scalar fields allow at most 1", len(d.LastGCReq))
	}
	if len(d.Since) > 1 {
		return errs.NewInvalidPersistState("since field carries %d deltas, scalar fields allow at most 1", len(d.Since))
	}
	return nil
}

// Compute builds the StateDiff describing how `to` was reached from
// `from`. Both must share the same shard and timestamp codec; the caller
// is responsible for that (Compute does not re-check shard identity).
func Compute[T frontier.TimeStamp](from, to state.TypedState[T]) StateDiff[T] {
	d := StateDiff[T]{
		ApplierVersion: to.State.ApplierVersion,
		SeqnoFrom:      from.State.Seqno,
		SeqnoTo:        to.State.Seqno,
		WalltimeMs:     to.State.WalltimeMs,
	}
	if r, ok := to.State.Collections.LatestRollup(); ok {
		d.LatestRollupKey = r.Key
	}

	if from.State.Hostname != to.State.Hostname {
		d.Hostname = append(d.Hostname, Delta[unit, string]{Type: Update, Old: from.State.Hostname, New: to.State.Hostname})
	}
	if from.State.Collections.LastGCReq != to.State.Collections.LastGCReq {
		d.LastGCReq = append(d.LastGCReq, Delta[unit, state.SeqNo]{
			Type: Update, Old: from.State.Collections.LastGCReq, New: to.State.Collections.LastGCReq,
		})
	}
	if !from.State.Collections.Trace.Since().Equal(to.State.Collections.Trace.Since()) {
		d.Since = append(d.Since, Delta[unit, frontier.Antichain[T]]{
			Type: Update, Old: from.State.Collections.Trace.Since(), New: to.State.Collections.Trace.Since(),
		})
	}

	d.Rollups = diffRollups(from.State.Collections.Rollups, to.State.Collections.Rollups)
	d.LeasedReaders = diffMap(from.State.Collections.LeasedReaders, to.State.Collections.LeasedReaders, leasedReaderEqual[T])
	d.CriticalReaders = diffMap(from.State.Collections.CriticalReaders, to.State.Collections.CriticalReaders, criticalReaderEqual[T])
	d.Writers = diffMap(from.State.Collections.Writers, to.State.Collections.Writers, writerEqual[T])
	d.Spine = diffSpine(from.State.Collections.Trace.Batches(), to.State.Collections.Trace.Batches())

	return d
}

func diffRollups(from, to []state.RollupEntry) []Delta[state.SeqNo, id.PartialRollupKey] {
	fromM := make(map[state.SeqNo]id.PartialRollupKey, len(from))
	for _, r := range from {
		fromM[r.SeqNo] = r.Key
	}
	toM := make(map[state.SeqNo]id.PartialRollupKey, len(to))
	for _, r := range to {
		toM[r.SeqNo] = r.Key
	}
	return diffMap(fromM, toM, func(a, b id.PartialRollupKey) bool { return a == b })
}

func diffMap[K comparable, V any](from, to map[K]V, equal func(a, b V) bool) []Delta[K, V] {
	var out []Delta[K, V]
	for k, fv := range from {
		if tv, ok := to[k]; ok {
			if !equal(fv, tv) {
				out = append(out, Delta[K, V]{Type: Update, Key: k, Old: fv, New: tv})
			}
		} else {
			out = append(out, Delta[K, V]{Type: Delete, Key: k, Old: fv})
		}
	}
	for k, tv := range to {
		if _, ok := from[k]; !ok {
			out = append(out, Delta[K, V]{Type: Insert, Key: k, New: tv})
		}
	}
	return out
}

func diffSpine[T frontier.TimeStamp](from, to []batch.HollowBatch[T]) []Delta[batch.HollowBatch[T], unit] {
	fromM := make(map[batch.DedupKey]batch.HollowBatch[T], len(from))
	for _, b := range from {
		fromM[b.Key()] = b
	}
	toM := make(map[batch.DedupKey]batch.HollowBatch[T], len(to))
	for _, b := range to {
		toM[b.Key()] = b
	}
	var out []Delta[batch.HollowBatch[T], unit]
	for k, b := range fromM {
		if _, ok := toM[k]; !ok {
			out = append(out, Delta[batch.HollowBatch[T], unit]{Type: Delete, Key: b})
		}
	}
	for k, b := range toM {
		if _, ok := fromM[k]; !ok {
			out = append(out, Delta[batch.HollowBatch[T], unit]{Type: Insert, Key: b})
		}
	}
	return out
}

// Apply applies the deltas in d to a copy of current and returns the State
// at d.SeqnoTo; current itself is left unmodified. Application is explicitly non-commutative: a diff may only
// be applied to the exact state it was computed from, so Apply
// rejects any current whose seqno does not equal d.SeqnoFrom without
// inspecting the rest of the diff.
func Apply[T frontier.TimeStamp](current state.TypedState[T], d StateDiff[T]) (state.TypedState[T], error) {
	if current.State.Seqno != d.SeqnoFrom {
		return state.TypedState[T]{}, errs.NewInvalidPersistState(
			"cannot apply diff from seqno %d to state at seqno %d", d.SeqnoFrom, current.State.Seqno)
	}
	if err := d.Validate(); err != nil {
		return state.TypedState[T]{}, err
	}

	next := current.State

	if len(d.Hostname) == 1 {
		next.Hostname = d.Hostname[0].New
	}
	if len(d.LastGCReq) == 1 {
		next.Collections.LastGCReq = d.LastGCReq[0].New
	}

	rollups := append([]state.RollupEntry(nil), next.Collections.Rollups...)
	for _, delta := range d.Rollups {
		rollups = applyMapDelta(rollups, delta, func(e state.RollupEntry) state.SeqNo { return e.SeqNo },
			func(k state.SeqNo, v id.PartialRollupKey) state.RollupEntry { return state.RollupEntry{SeqNo: k, Key: v} })
	}
	next.Collections.Rollups = rollups

	leasedReaders := cloneMap(next.Collections.LeasedReaders)
	for _, delta := range d.LeasedReaders {
		applyMapEntry(leasedReaders, delta)
	}
	next.Collections.LeasedReaders = leasedReaders

	criticalReaders := cloneMap(next.Collections.CriticalReaders)
	for _, delta := range d.CriticalReaders {
		applyMapEntry(criticalReaders, delta)
	}
	next.Collections.CriticalReaders = criticalReaders

	writers := cloneMap(next.Collections.Writers)
	for _, delta := range d.Writers {
		applyMapEntry(writers, delta)
	}
	next.Collections.Writers = writers

	since := next.Collections.Trace.Since()
	if len(d.Since) == 1 {
		since = d.Since[0].New
	}

	batches := append([]batch.HollowBatch[T](nil), next.Collections.Trace.Batches()...)
	for _, delta := range d.Spine {
		switch delta.Type {
		case Insert:
			batches = append(batches, delta.Key)
		case Delete:
			dk := delta.Key.Key()
			for i, b := range batches {
				if b.Key() == dk {
					batches = append(batches[:i], batches[i+1:]...)
					break
				}
			}
		}
	}
	newTrace, err := trace.Rehydrate(since, batches, 0, nil)
	if err != nil {
		return state.TypedState[T]{}, err
	}
	next.Collections.Trace = newTrace

	next.Seqno = d.SeqnoTo
	next.WalltimeMs = d.WalltimeMs
	if d.ApplierVersion != nil {
		next.ApplierVersion = d.ApplierVersion
	}

	return state.TypedState[T]{State: next, Codecs: current.Codecs}, nil
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func applyMapEntry[K comparable, V any](m map[K]V, delta Delta[K, V]) {
	switch delta.Type {
	case Insert, Update:
		m[delta.Key] = delta.New
	case Delete:
		delete(m, delta.Key)
	}
}

// applyMapDelta applies a single delta to a slice-backed collection keyed
// by keyOf, used for the rollups history which persist represents as an
// ordered slice rather than a map.
func applyMapDelta[E any, K comparable, V any](entries []E, delta Delta[K, V], keyOf func(E) K, build func(K, V) E) []E {
	switch delta.Type {
	case Insert:
		return append(entries, build(delta.Key, delta.New))
	case Update:
		for i, e := range entries {
			if keyOf(e) == delta.Key {
				entries[i] = build(delta.Key, delta.New)
				return entries
			}
		}
		return append(entries, build(delta.Key, delta.New))
	case Delete:
		for i, e := range entries {
			if keyOf(e) == delta.Key {
				return append(entries[:i], entries[i+1:]...)
			}
		}
	}
	return entries
}

func leasedReaderEqual[T frontier.TimeStamp](a, b state.LeasedReaderState[T]) bool {
	return a.Seqno == b.Seqno && a.Since.Equal(b.Since) && a.LastHeartbeatMs == b.LastHeartbeatMs &&
		a.LeaseDurationMs == b.LeaseDurationMs && a.Debug == b.Debug
}

func criticalReaderEqual[T frontier.TimeStamp](a, b state.CriticalReaderState[T]) bool {
	return a.Since.Equal(b.Since) && a.Opaque == b.Opaque && a.OpaqueCodec == b.OpaqueCodec && a.Debug == b.Debug
}

func writerEqual[T frontier.TimeStamp](a, b state.WriterState[T]) bool {
	return a.LastHeartbeatMs == b.LastHeartbeatMs && a.LeaseDurationMs == b.LeaseDurationMs &&
		a.MostRecentWriteToken == b.MostRecentWriteToken && a.MostRecentWriteUpper.Equal(b.MostRecentWriteUpper) &&
		a.Debug == b.Debug
}
