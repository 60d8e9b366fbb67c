package wire

import (
	"fmt"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/require"

	"github.com/persistdb/persist/batch"
	stdiff "github.com/persistdb/persist/diff"
	"github.com/persistdb/persist/frontier"
	"github.com/persistdb/persist/id"
	"github.com/persistdb/persist/metrics"
	"github.com/persistdb/persist/state"
)

func noHalt(format string, args ...any) {}

func u64(v uint64) frontier.U64 { return frontier.U64(v) }

func testState(t *testing.T) (state.State[frontier.U64], id.ShardID) {
	t.Helper()
	shard := id.NewShardID()
	s := state.New[frontier.U64](semver.MustParse("2.0.0"), shard, 1234, "host-a")
	s.Collections.Rollups = []state.RollupEntry{{SeqNo: 0, Key: "rollup-0"}}
	s.Collections.LastGCReq = 1

	rid := id.NewLeasedReaderID()
	s.Collections.LeasedReaders[rid] = state.LeasedReaderState[frontier.U64]{
		Seqno: 0, Since: frontier.New[frontier.U64](u64(0)), LastHeartbeatMs: 10, LeaseDurationMs: 5000,
		Debug: state.DebugInfo{Hostname: "h", Purpose: "reading"},
	}
	cid := id.NewCriticalReaderID()
	s.Collections.CriticalReaders[cid] = state.CriticalReaderState[frontier.U64]{
		Since: frontier.New[frontier.U64](u64(0)), Opaque: [8]byte{1, 2, 3}, OpaqueCodec: "seq",
	}
	wid := id.NewWriterID()
	s.Collections.Writers[wid] = state.WriterState[frontier.U64]{
		LastHeartbeatMs: 20, LeaseDurationMs: 6000,
		MostRecentWriteToken: id.NewIdempotencyToken(),
		MostRecentWriteUpper: frontier.New[frontier.U64](u64(5)),
	}
	desc := frontier.NewDescription(frontier.New[frontier.U64](u64(0)), frontier.New[frontier.U64](u64(10)), frontier.New[frontier.U64](u64(0)))
	b := batch.New(desc, []batch.Part{{Key: "part-a", EncodedSizeBytes: 100}}, 5, []int{0})
	_, err := s.Collections.Trace.PushBatch(b)
	require.NoError(t, err)

	return s, shard
}

func TestEncodeDecodeStateRoundTrip(t *testing.T) {
	s, shard := testState(t)
	codecs := state.CodecNames{Key: "()", Val: "()", Ts: "u64", Diff: "i64"}

	body := EncodeState(s, codecs, nil)
	untyped, err := DecodeState(body, semver.MustParse("3.0.0"), 60000, noHalt, nil)
	require.NoError(t, err)
	require.Equal(t, codecs, untyped.Codecs)

	typed, err := state.CheckCodecs(untyped, shard, codecs, func(r state.RawTS) frontier.U64 { return frontier.DecodeU64(r) }, state.RehydrateOpts{})
	require.NoError(t, err)

	require.Equal(t, s.Hostname, typed.State.Hostname)
	require.Equal(t, s.Seqno, typed.State.Seqno)
	require.Equal(t, s.WalltimeMs, typed.State.WalltimeMs)
	require.Equal(t, s.Collections.Rollups, typed.State.Collections.Rollups)
	require.Equal(t, s.Collections.LastGCReq, typed.State.Collections.LastGCReq)
	require.Len(t, typed.State.Collections.LeasedReaders, 1)
	require.Len(t, typed.State.Collections.CriticalReaders, 1)
	require.Len(t, typed.State.Collections.Writers, 1)
	require.Len(t, typed.State.Collections.Trace.Batches(), 1)
	require.True(t, s.Collections.Trace.Batches()[0].Equal(typed.State.Collections.Trace.Batches()[0]))
}

func TestDecodeStateRejectsCodecMismatch(t *testing.T) {
	s, shard := testState(t)
	codecs := state.CodecNames{Key: "()", Val: "()", Ts: "u64", Diff: "i64"}
	body := EncodeState(s, codecs, nil)
	untyped, err := DecodeState(body, semver.MustParse("3.0.0"), 60000, noHalt, nil)
	require.NoError(t, err)

	alien := state.CodecNames{Key: "alien", Val: "()", Ts: "u64", Diff: "i64"}
	_, err = state.CheckCodecs(untyped, shard, alien, func(r state.RawTS) frontier.U64 { return frontier.DecodeU64(r) }, state.RehydrateOpts{})
	require.Error(t, err)
}

func TestVersionGateHaltsOnFutureApplierVersionRollup(t *testing.T) {
	s, _ := testState(t)
	s.ApplierVersion = semver.MustParse("5.0.0")
	codecs := state.CodecNames{Key: "()", Val: "()", Ts: "u64", Diff: "i64"}
	body := EncodeState(s, codecs, nil)

	var haltMsg string
	halt := func(format string, args ...any) { haltMsg = fmt.Sprintf(format, args...) }
	_, err := DecodeState(body, semver.MustParse("1.0.0"), 60000, halt, nil)
	require.NoError(t, err) // halt is injected, not a real process exit
	require.Contains(t, haltMsg, "received persist state from the future")
}

func TestVersionGateAcceptsBackwardCompatRollup(t *testing.T) {
	s, _ := testState(t)
	codecs := state.CodecNames{Key: "()", Val: "()", Ts: "u64", Diff: "i64"}
	body := EncodeState(s, codecs, nil)

	halted := false
	halt := func(format string, args ...any) { halted = true }
	_, err := DecodeState(body, semver.MustParse("9.0.0"), 60000, halt, nil)
	require.NoError(t, err)
	require.False(t, halted)
}

func TestMigrationEmptyApplierVersionDecodesAsZero(t *testing.T) {
	s, _ := testState(t)
	s.ApplierVersion = nil
	codecs := state.CodecNames{Key: "()", Val: "()", Ts: "u64", Diff: "i64"}

	w := newWriter()
	w.str(fieldRollupApplierVersion, "")
	w.str(fieldRollupShardID, s.ShardID.String())
	w.varint(fieldRollupSeqno, uint64(s.Seqno))
	w.varint(fieldRollupWalltimeMs, s.WalltimeMs)
	w.str(fieldRollupHostname, s.Hostname)
	w.str(fieldRollupKeyCodec, codecs.Key)
	w.str(fieldRollupValCodec, codecs.Val)
	w.str(fieldRollupTsCodec, codecs.Ts)
	w.str(fieldRollupDiffCodec, codecs.Diff)
	w.message(fieldRollupTraceSince, encodeAntichain(frontier.Empty[rawT]()))

	reg := metrics.New(nil)
	untyped, err := DecodeState(w.Bytes(), semver.MustParse("3.0.0"), 60000, noHalt, reg)
	require.NoError(t, err)
	require.True(t, untyped.ApplierVersion().Equal(semver.MustParse("0.0.0")))
}

func TestMigrationHollowBatchDeprecatedKeys(t *testing.T) {
	ctx := &decodeCtx{metrics: metrics.New(nil)}
	w := newWriter()
	w.message(fieldBatchDesc, encodeDescription(frontier.NewDescription(
		frontier.Empty[rawT](), frontier.Empty[rawT](), frontier.Empty[rawT]())))
	w.message(fieldBatchParts, encodePart(batch.Part{Key: "a", EncodedSizeBytes: 5}))
	w.str(fieldBatchDeprecatedKeys, "b")

	b, err := decodeHollowBatch(w.Bytes(), ctx)
	require.NoError(t, err)
	require.Equal(t, []batch.Part{{Key: "a", EncodedSizeBytes: 5}, {Key: "b", EncodedSizeBytes: 0}}, b.Parts)
}

func TestMigrationLeaseDurationAndDebugDefaults(t *testing.T) {
	rid := id.NewLeasedReaderID()
	w := newWriter()
	w.str(fieldLeasedReaderID, rid.String())
	w.varint(fieldLeasedReaderSeqno, 0)
	w.message(fieldLeasedReaderSince, encodeAntichain(frontier.Empty[rawT]()))
	w.varint(fieldLeasedReaderLastHeartbeatMs, 100)
	// lease_duration_ms and debug both absent.

	ctx := &decodeCtx{metrics: metrics.New(nil), defaultLeaseMs: 60000}
	_, st, err := decodeLeasedReader(w.Bytes(), ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(60000), st.LeaseDurationMs)
	require.Equal(t, state.DebugInfo{}, st.Debug)
}

func TestMigrationWriterTokenAndUpperDefaults(t *testing.T) {
	wid := id.NewWriterID()
	w := newWriter()
	w.str(fieldWriterID, wid.String())
	w.varint(fieldWriterLastHeartbeatMs, 5)
	w.varint(fieldWriterLeaseDurationMs, 7000)
	w.str(fieldWriterMostRecentWriteToken, "")
	// most_recent_write_upper absent.

	ctx := &decodeCtx{metrics: metrics.New(nil)}
	_, st, err := decodeWriter(w.Bytes(), ctx)
	require.NoError(t, err)
	require.Equal(t, id.SentinelIdempotencyToken().Bytes(), st.MostRecentWriteToken.Bytes())
	require.True(t, st.MostRecentWriteUpper.Equal(frontier.New[rawT](rawT{})))
}

func TestEncodeDecodeDiffRoundTrip(t *testing.T) {
	rid := id.NewLeasedReaderID()
	bdesc := frontier.NewDescription(frontier.New[rawT](rawT{}), frontier.New[rawT](rawT{1}), frontier.New[rawT](rawT{}))
	hb := batch.New(bdesc, []batch.Part{{Key: "p", EncodedSizeBytes: 1}}, 1, nil)

	d := stdiff.StateDiff[rawT]{
		ApplierVersion:  semver.MustParse("2.0.0"),
		SeqnoFrom:       3,
		SeqnoTo:         4,
		WalltimeMs:      999,
		LatestRollupKey: "rollup-k",
		Hostname:        []stdiff.Delta[struct{}, string]{{Type: stdiff.Update, Old: "a", New: "b"}},
		LastGCReq:       []stdiff.Delta[struct{}, state.SeqNo]{{Type: stdiff.Insert, New: 7}},
		Since:           []stdiff.Delta[struct{}, frontier.Antichain[rawT]]{{Type: stdiff.Update, Old: frontier.Empty[rawT](), New: frontier.New[rawT](rawT{1})}},
		LeasedReaders: []stdiff.Delta[id.LeasedReaderID, state.LeasedReaderState[rawT]]{
			{Type: stdiff.Insert, Key: rid, New: state.LeasedReaderState[rawT]{Seqno: 0, Since: frontier.Empty[rawT](), LastHeartbeatMs: 1, LeaseDurationMs: 2}},
		},
		Spine: []stdiff.Delta[batch.HollowBatch[rawT], struct{}]{{Type: stdiff.Insert, Key: hb}},
	}

	body := EncodeDiff(d, metrics.New(nil))
	got, err := DecodeDiff(body, semver.MustParse("3.0.0"), noHalt, &decodeCtx{metrics: metrics.New(nil)})
	require.NoError(t, err)

	require.Equal(t, d.SeqnoFrom, got.SeqnoFrom)
	require.Equal(t, d.SeqnoTo, got.SeqnoTo)
	require.Equal(t, d.WalltimeMs, got.WalltimeMs)
	require.Equal(t, d.LatestRollupKey, got.LatestRollupKey)
	require.Equal(t, d.Hostname, got.Hostname)
	require.Equal(t, d.LastGCReq, got.LastGCReq)
	require.Len(t, got.LeasedReaders, 1)
	require.Equal(t, rid, got.LeasedReaders[0].Key)
	require.Len(t, got.Spine, 1)
	require.True(t, hb.Equal(got.Spine[0].Key))
}
