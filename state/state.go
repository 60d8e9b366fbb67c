package state

import (
	"github.com/Masterminds/semver/v3"

	"github.com/persistdb/persist/frontier"
	"github.com/persistdb/persist/id"
)

// State is the authoritative per-shard record: the applier version that
// produced it, the shard it belongs to, its sequence number, wall-clock
// time of last mutation, the hostname that wrote it, and its collections
// (rollup history, leases, GC watermark, trace).
type State[T frontier.TimeStamp] struct {
	ApplierVersion *semver.Version
	ShardID        id.ShardID
	Seqno          SeqNo
	WalltimeMs     uint64
	Hostname       string
	Collections    Collections[T]
}

// New creates shard-init state at SeqNo 0 with empty collections and the
// given build version as applier_version.
func New[T frontier.TimeStamp](buildVersion *semver.Version, shardID id.ShardID, nowMs uint64, hostname string) State[T] {
	return State[T]{
		ApplierVersion: buildVersion,
		ShardID:        shardID,
		Seqno:          0,
		WalltimeMs:     nowMs,
		Hostname:       hostname,
		Collections:    NewCollections[T](frontier.Empty[T]()),
	}
}

// CodecNames is the (key, value, timestamp, diff) codec-name tuple
// attached to a shard's state; any mismatch between two deployments is a
// schema fingerprint violation the codec gate must catch.
type CodecNames struct {
	Key, Val, Ts, Diff string
}
