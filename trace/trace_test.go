package trace

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/persistdb/persist/batch"
	"github.com/persistdb/persist/frontier"
)

func u64desc(lower, upper, since uint64) frontier.Description[frontier.U64] {
	return frontier.NewDescription(
		frontier.New[frontier.U64](frontier.U64(lower)),
		frontier.New[frontier.U64](frontier.U64(upper)),
		frontier.New[frontier.U64](frontier.U64(since)),
	)
}

func TestPushBatchRejectsBehindTraceSince(t *testing.T) {
	tr := New(frontier.New[frontier.U64](5))
	_, err := tr.PushBatch(batch.New(u64desc(0, 10, 2), nil, 0, nil))
	require.Error(t, err)
}

func TestPushBatchAcceptsAtOrAheadOfSince(t *testing.T) {
	tr := New(frontier.New[frontier.U64](5))
	_, err := tr.PushBatch(batch.New(u64desc(0, 10, 5), nil, 0, nil))
	require.NoError(t, err)
	require.Len(t, tr.Batches(), 1)
}

func TestPushBatchDedupesByBounds(t *testing.T) {
	tr := New(frontier.Empty[frontier.U64]())
	b := batch.New(u64desc(0, 10, 0), nil, 0, nil)
	_, err := tr.PushBatch(b)
	require.NoError(t, err)
	_, err = tr.PushBatch(b)
	require.NoError(t, err)
	require.Len(t, tr.Batches(), 1)
}

func TestRehydrateEnforcesMonotonicity(t *testing.T) {
	batches := []batch.HollowBatch[frontier.U64]{
		batch.New(u64desc(0, 10, 5), nil, 0, nil),
		batch.New(u64desc(10, 20, 2), nil, 0, nil), // since went backwards
	}
	_, err := Rehydrate(frontier.New[frontier.U64](0), batches, 0, nil)
	require.Error(t, err)
}

func TestRehydrateReportsProgressEveryN(t *testing.T) {
	var batches []batch.HollowBatch[frontier.U64]
	for i := uint64(0); i < 5; i++ {
		batches = append(batches, batch.New(u64desc(i, i+1, 0), nil, 0, nil))
	}
	var progress []int
	tr, err := Rehydrate(frontier.Empty[frontier.U64](), batches, 2, func(n int) { progress = append(progress, n) })
	require.NoError(t, err)
	require.Len(t, tr.Batches(), 5)
	require.Equal(t, []int{2, 4}, progress)
}

func TestMapRevalidatesMonotonicityUnderRealOrder(t *testing.T) {
	// Map a valid U64 trace through the identity function: every batch is
	// re-pushed under the target order and the batches and since survive.
	since := frontier.Empty[frontier.U64]()
	raw := New(since)
	b1 := batch.New(u64desc(0, 10, 0), nil, 0, nil)
	_, err := raw.PushBatch(b1)
	require.NoError(t, err)

	mapped, err := Map(raw, func(u frontier.U64) frontier.U64 { return u }, 0, nil)
	require.NoError(t, err)
	require.Equal(t, raw.Batches(), mapped.Batches())
	require.True(t, raw.Since().Equal(mapped.Since()))
}

func TestMapReportsProgress(t *testing.T) {
	since := frontier.Empty[frontier.U64]()
	raw := NewUnchecked(since, []batch.HollowBatch[frontier.U64]{
		batch.New(u64desc(0, 1, 0), nil, 0, nil),
		batch.New(u64desc(1, 2, 0), nil, 0, nil),
	})
	var calls int
	_, err := Map(raw, func(u frontier.U64) frontier.U64 { return u }, 1, func(int) { calls++ })
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}
