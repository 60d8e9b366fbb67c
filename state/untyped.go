package state

import (
	"github.com/Masterminds/semver/v3"

	"github.com/persistdb/persist/errs"
	"github.com/persistdb/persist/frontier"
	"github.com/persistdb/persist/id"
)

// UntypedState is a State decoded off the wire whose timestamp-valued
// fields have not yet been validated against a concrete T: every antichain
// element is still a RawTS. No T-dependent field may be treated as
// meaningfully ordered until CheckCodecs (or CheckTsCodec, for the weaker
// metadata-only variant) succeeds.
type UntypedState struct {
	State  State[RawTS]
	Codecs CodecNames
}

// ShardID returns the decoded shard id, valid without any codec check.
func (u UntypedState) ShardID() id.ShardID { return u.State.ShardID }

// Seqno returns the decoded sequence number, valid without any codec
// check: seqno is T-independent.
func (u UntypedState) Seqno() SeqNo { return u.State.Seqno }

// ApplierVersion returns the decoded applier version.
func (u UntypedState) ApplierVersion() *semver.Version { return u.State.ApplierVersion }

// CheckTsCodec verifies only that the stored timestamp codec name matches
// want, for callers that intend to read metadata (seqno, hostname, rollup
// history) but not decode T-dependent payloads.
func (u UntypedState) CheckTsCodec(want string) error {
	if u.Codecs.Ts != want {
		return &errs.CodecMismatchT{Requested: want, Actual: u.Codecs.Ts}
	}
	return nil
}

// RehydrateOpts controls the trace-rehydration progress reporting performed
// while CheckCodecs re-validates the trace's since-monotonicity invariant
// under the real T. The zero value disables reporting.
type RehydrateOpts struct {
	ReportEvery int
	OnProgress  func(pushed int)
}

// CheckCodecs asserts the stored shard id equals shardID, then compares
// all four codec-name strings against want; on success it materializes a
// TypedState[T] by decoding every RawTS in the collections through
// tsDecode, rehydrating the trace under T's real partial order. Any codec
// mismatch returns *errs.CodecMismatch without consulting tsDecode.
func CheckCodecs[T frontier.TimeStamp](u UntypedState, shardID id.ShardID, want CodecNames, tsDecode func(RawTS) T, opts RehydrateOpts) (TypedState[T], error) {
	if u.State.ShardID.Bytes() != shardID.Bytes() {
		return TypedState[T]{}, errs.NewInvalidPersistState(
			"check_codecs shard mismatch: requested %s, actual %s", shardID, u.State.ShardID)
	}
	if u.Codecs != want {
		return TypedState[T]{}, &errs.CodecMismatch{Requested: toTuple(want), Actual: toTuple(u.Codecs)}
	}
	collections, err := mapCollections(u.State.Collections, tsDecode, opts.ReportEvery, opts.OnProgress)
	if err != nil {
		return TypedState[T]{}, err
	}
	return TypedState[T]{
		State: State[T]{
			ApplierVersion: u.State.ApplierVersion,
			ShardID:        u.State.ShardID,
			Seqno:          u.State.Seqno,
			WalltimeMs:     u.State.WalltimeMs,
			Hostname:       u.State.Hostname,
			Collections:    collections,
		},
		Codecs: u.Codecs,
	}, nil
}

func toTuple(c CodecNames) errs.CodecTuple {
	return errs.CodecTuple{Key: c.Key, Val: c.Val, Ts: c.Ts, Diff: c.Diff}
}
