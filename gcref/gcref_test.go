package gcref

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/persistdb/persist/batch"
	"github.com/persistdb/persist/frontier"
	"github.com/persistdb/persist/id"
	"github.com/persistdb/persist/state"
)

func TestBuildMarksRolloupsAndBatchPartsLive(t *testing.T) {
	c := state.NewCollections[frontier.U64](frontier.Empty[frontier.U64]())
	c.Rollups = []state.RollupEntry{{SeqNo: 0, Key: "rollup-a"}}
	desc := frontier.NewDescription(
		frontier.New[frontier.U64](frontier.U64(0)),
		frontier.New[frontier.U64](frontier.U64(10)),
		frontier.New[frontier.U64](frontier.U64(0)),
	)
	b := batch.New(desc, []batch.Part{{Key: id.PartialBatchKey("part-a")}}, 1, nil)
	_, err := c.Trace.PushBatch(b)
	require.NoError(t, err)

	ix := Build(c)
	require.True(t, ix.IsLive("rollup-a"))
	require.True(t, ix.IsLive("part-a"))
	require.False(t, ix.IsLive("part-orphan"))
}

func TestSweepReturnsUnreachableSubset(t *testing.T) {
	ix := New()
	ix.AddBatchKey(id.PartialBatchKey("live"))

	dead := ix.Sweep([]string{"live", "dead-1", "dead-2"})
	require.ElementsMatch(t, []string{"dead-1", "dead-2"}, dead)
}

func TestMergeCombinesReachableSets(t *testing.T) {
	a := New()
	a.AddBatchKey("a")
	b := New()
	b.AddBatchKey("b")
	a.Merge(b)
	require.True(t, a.IsLive("a"))
	require.True(t, a.IsLive("b"))
	require.Equal(t, 2, a.Size())
}
