package state

import (
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/require"

	"github.com/persistdb/persist/frontier"
	"github.com/persistdb/persist/id"
)

func wantCodecs() CodecNames {
	return CodecNames{Key: "()", Val: "()", Ts: "u64", Diff: "i64"}
}

func TestCheckCodecsSucceedsOnMatch(t *testing.T) {
	shard := id.NewShardID()
	u := UntypedState{
		State:  New[RawTS](semver.MustParse("2.0.0"), shard, 0, ""),
		Codecs: wantCodecs(),
	}
	typed, err := CheckCodecs(u, shard, wantCodecs(), func(r RawTS) frontier.U64 { return frontier.DecodeU64(r) }, RehydrateOpts{})
	require.NoError(t, err)
	require.Equal(t, shard, typed.State.ShardID)
}

func TestCheckCodecsRejectsMismatch(t *testing.T) {
	shard := id.NewShardID()
	u := UntypedState{
		State:  New[RawTS](semver.MustParse("2.0.0"), shard, 0, ""),
		Codecs: CodecNames{Key: "()", Val: "()", Ts: "mz_repr", Diff: "i64"},
	}
	_, err := CheckCodecs(u, shard, wantCodecs(), func(r RawTS) frontier.U64 { return frontier.DecodeU64(r) }, RehydrateOpts{})
	require.Error(t, err)
}

func TestCheckCodecsRejectsShardMismatch(t *testing.T) {
	shard := id.NewShardID()
	other := id.NewShardID()
	u := UntypedState{
		State:  New[RawTS](semver.MustParse("2.0.0"), shard, 0, ""),
		Codecs: wantCodecs(),
	}
	_, err := CheckCodecs(u, other, wantCodecs(), func(r RawTS) frontier.U64 { return frontier.DecodeU64(r) }, RehydrateOpts{})
	require.Error(t, err)
}

func TestCheckTsCodec(t *testing.T) {
	u := UntypedState{Codecs: wantCodecs()}
	require.NoError(t, u.CheckTsCodec("u64"))
	require.Error(t, u.CheckTsCodec("mz_repr"))
}

func TestNewStateHasEmptyCollections(t *testing.T) {
	shard := id.NewShardID()
	s := New[frontier.U64](semver.MustParse("2.0.0"), shard, 5, "h")
	require.Equal(t, SeqNo(0), s.Seqno)
	require.Empty(t, s.Collections.Rollups)
	require.Empty(t, s.Collections.LeasedReaders)
	require.True(t, s.Collections.Trace.Since().IsEmpty())
}
