// Package trace rebuilds and maintains the ordered log of hollow batches
// forming a shard's spine, enforcing frontier monotonicity as batches are
// pushed.
package trace

import (
	"github.com/persistdb/persist/batch"
	"github.com/persistdb/persist/errs"
	"github.com/persistdb/persist/frontier"
)

// MergeReq describes compaction work a push_batch call may trigger. The
// planner that actually schedules merges lives outside this module (the
// compaction/merge planner is explicitly out of scope); a MergeReq here is
// informational only and is typically discarded by the caller.
type MergeReq[T frontier.TimeStamp] struct {
	Inputs []batch.HollowBatch[T]
}

// Trace is the set of hollow batches forming a shard's log, plus its own
// compaction watermark `since`. It is a *set* (no duplicate batches, keyed
// on bounds) but the ordered list is preserved for reproducible wire
// encoding.
type Trace[T frontier.TimeStamp] struct {
	since   frontier.Antichain[T]
	batches []batch.HollowBatch[T]
	seen    map[batch.DedupKey]struct{}
}

// New builds an empty trace with the given since frontier (the first step
// of rehydration: initialize an empty trace, then downgrade its since to
// the rollup's recorded since).
func New[T frontier.TimeStamp](since frontier.Antichain[T]) *Trace[T] {
	return &Trace[T]{
		since: since,
		seen:  make(map[batch.DedupKey]struct{}),
	}
}

// Since returns the trace's own compaction watermark.
func (t *Trace[T]) Since() frontier.Antichain[T] { return t.since }

// Batches returns the trace's batches in push order. Callers must not
// mutate the returned slice.
func (t *Trace[T]) Batches() []batch.HollowBatch[T] { return t.batches }

// PushBatch appends b to the trace, enforcing that no contained batch has
// a since frontier less than the trace's own. It returns any merge
// requests the push triggers; this implementation never schedules merges
// itself, consistent with a deliberately minimal spine — it always
// returns nil, leaving merge planning entirely to another process.
func (t *Trace[T]) PushBatch(b batch.HollowBatch[T]) ([]MergeReq[T], error) {
	if b.Desc.Since.Less(t.since) {
		return nil, errs.NewInvalidPersistState(
			"batch since %v is behind trace since %v", b.Desc.Since.Elements(), t.since.Elements())
	}
	key := b.Key()
	if _, dup := t.seen[key]; dup {
		return nil, nil
	}
	t.seen[key] = struct{}{}
	t.batches = append(t.batches, b)
	return nil, nil
}

// NewUnchecked builds a trace from already-decoded batches without
// enforcing the since-monotonicity invariant. It exists solely for the wire
// layer to materialize an UntypedState's trace straight off the bytes,
// before a timestamp codec is known and real ordering can be evaluated;
// Map re-validates under the timestamp's real order once T is known.
func NewUnchecked[T frontier.TimeStamp](since frontier.Antichain[T], batches []batch.HollowBatch[T]) *Trace[T] {
	t := New(since)
	for _, b := range batches {
		t.batches = append(t.batches, b)
		t.seen[b.Key()] = struct{}{}
	}
	return t
}

// Map converts a trace over A into a trace over B via f, re-validating the
// since-monotonicity invariant under B's real partial order. This is how
// persist turns an UntypedState's raw trace into a fully typed one once
// the timestamp codec has been checked — it is where rehydration's
// monotonicity enforcement actually bites, since no T-dependent ordering
// can be evaluated before that point. reportEvery/onProgress mirror
// Rehydrate's progress reporting (every reportEvery batches pushed); pass
// 0/nil to disable reporting.
func Map[A frontier.TimeStamp, B frontier.TimeStamp](t *Trace[A], f func(A) B, reportEvery int, onProgress func(pushed int)) (*Trace[B], error) {
	since := frontier.MapAntichain(t.since, f)
	out := New(since)
	for i, b := range t.batches {
		mapped := batch.MapHollowBatch(b, f)
		if _, err := out.PushBatch(mapped); err != nil {
			return nil, errs.NewInvalidPersistState("rehydrating trace: batch %d: %s", i, err.Error())
		}
		if reportEvery > 0 && onProgress != nil && (i+1)%reportEvery == 0 {
			onProgress(i + 1)
		}
	}
	return out, nil
}

// Rehydrate rebuilds a trace from a deserialized rollup's since frontier
// and ordered batch list. reportEvery, if > 0, invokes onProgress every
// reportEvery batches pushed.
func Rehydrate[T frontier.TimeStamp](
	since frontier.Antichain[T],
	batches []batch.HollowBatch[T],
	reportEvery int,
	onProgress func(pushed int),
) (*Trace[T], error) {
	t := New(since)
	for i, b := range batches {
		if _, err := t.PushBatch(b); err != nil {
			return nil, errs.NewInvalidPersistState(
				"rehydrating trace: batch %d: %s", i, err.Error())
		}
		if reportEvery > 0 && onProgress != nil && (i+1)%reportEvery == 0 {
			onProgress(i + 1)
		}
	}
	return t, nil
}
