package diff

import (
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/require"

	"github.com/persistdb/persist/frontier"
	"github.com/persistdb/persist/id"
	"github.com/persistdb/persist/state"
)

func newTyped(t *testing.T) state.TypedState[frontier.U64] {
	t.Helper()
	shard := id.NewShardID()
	s := state.New[frontier.U64](semver.MustParse("2.0.0"), shard, 1000, "host-a")
	return state.TypedState[frontier.U64]{State: s, Codecs: state.CodecNames{Key: "()", Val: "()", Ts: "u64", Diff: "i64"}}
}

func TestComputeThenApplyReproducesTarget(t *testing.T) {
	from := newTyped(t)

	to := from
	to.State.Hostname = "host-b"
	to.State.Seqno = from.State.Seqno + 1
	to.State.WalltimeMs = 2000
	to.State.Collections.LastGCReq = 3
	rid := id.NewLeasedReaderID()
	to.State.Collections.LeasedReaders = map[id.LeasedReaderID]state.LeasedReaderState[frontier.U64]{
		rid: {Seqno: 0, Since: frontier.Empty[frontier.U64](), LastHeartbeatMs: 10, LeaseDurationMs: 60000},
	}

	d := Compute(from, to)
	require.NoError(t, d.Validate())
	require.Equal(t, from.State.Seqno, d.SeqnoFrom)
	require.Equal(t, to.State.Seqno, d.SeqnoTo)

	applied, err := Apply(from, d)
	require.NoError(t, err)
	require.Equal(t, to.State.Hostname, applied.State.Hostname)
	require.Equal(t, to.State.Seqno, applied.State.Seqno)
	require.Equal(t, to.State.WalltimeMs, applied.State.WalltimeMs)
	require.Equal(t, to.State.Collections.LastGCReq, applied.State.Collections.LastGCReq)
	require.Len(t, applied.State.Collections.LeasedReaders, 1)
	require.Contains(t, applied.State.Collections.LeasedReaders, rid)
}

func TestApplyRejectsStaleSeqno(t *testing.T) {
	from := newTyped(t)
	to := from
	to.State.Seqno = from.State.Seqno + 1
	d := Compute(from, to)

	applied, err := Apply(from, d)
	require.NoError(t, err)

	// Applying the same diff again is non-commutative: seqno_from no
	// longer matches applied's seqno.
	_, err = Apply(applied, d)
	require.Error(t, err)
}

func TestComposition(t *testing.T) {
	a := newTyped(t)
	b := a
	b.State.Seqno = a.State.Seqno + 1
	b.State.Hostname = "host-b"
	c := b
	c.State.Seqno = b.State.Seqno + 1
	c.State.Collections.LastGCReq = 9

	d1 := Compute(a, b)
	d2 := Compute(b, c)

	viaDiffs, err := Apply(a, d1)
	require.NoError(t, err)
	viaDiffs, err = Apply(viaDiffs, d2)
	require.NoError(t, err)

	require.Equal(t, c.State.Hostname, viaDiffs.State.Hostname)
	require.Equal(t, c.State.Seqno, viaDiffs.State.Seqno)
	require.Equal(t, c.State.Collections.LastGCReq, viaDiffs.State.Collections.LastGCReq)
}

func TestValidateRejectsMultipleScalarDeltas(t *testing.T) {
	d := StateDiff[frontier.U64]{
		Hostname: []Delta[unit, string]{{Type: Update}, {Type: Update}},
	}
	require.Error(t, d.Validate())
}

func TestDiffRollupsInsertAndDelete(t *testing.T) {
	from := newTyped(t)
	from.State.Collections.Rollups = []state.RollupEntry{{SeqNo: 0, Key: "r0"}}
	to := from
	to.State.Seqno = from.State.Seqno + 1
	to.State.Collections.Rollups = []state.RollupEntry{{SeqNo: 1, Key: "r1"}}

	d := Compute(from, to)
	require.Len(t, d.Rollups, 2) // delete r0, insert r1

	applied, err := Apply(from, d)
	require.NoError(t, err)
	require.ElementsMatch(t, to.State.Collections.Rollups, applied.State.Collections.Rollups)
}
