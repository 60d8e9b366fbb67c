// Package id implements the typed opaque identifiers used throughout
// persist: shards, leased readers, critical readers, writers and
// idempotency tokens. Every identifier stringifies as a single-character
// domain prefix followed by a canonical hyphenated, lower-case UUID.
package id

import (
	"github.com/google/uuid"

	"github.com/persistdb/persist/errs"
)

// Kind is the one-character domain prefix attached to a stringified
// identifier.
type Kind byte

const (
	KindShard           Kind = 's'
	KindLeasedReader     Kind = 'r'
	KindCriticalReader   Kind = 'c'
	KindWriter           Kind = 'w'
	KindIdempotencyToken Kind = 'i'
)

// ID is a 128-bit UUID carrying a domain Kind. Equality is by raw bytes;
// ordering is lexicographic on bytes, matching the teacher's convention of
// comparing fixed-width keys byte-for-byte rather than through a derived
// comparator.
type ID struct {
	kind Kind
	u    uuid.UUID
}

// New mints a fresh random identifier of the given kind.
func New(kind Kind) ID {
	return ID{kind: kind, u: uuid.New()}
}

// FromBytes builds an identifier from raw 16-byte UUID bytes, without
// generating a new random value. Used by tests and by the idempotency
// sentinel.
func FromBytes(kind Kind, b [16]byte) ID {
	return ID{kind: kind, u: uuid.UUID(b)}
}

// Kind reports the identifier's domain.
func (i ID) Kind() Kind { return i.kind }

// Bytes returns the raw 16 UUID bytes, for byte-wise equality/ordering.
func (i ID) Bytes() [16]byte { return i.u }

// String encodes the identifier as prefix + canonical UUID, e.g.
// "s0b47b9f0-1a22-4c8e-9c2a-7f6b0e9a1234".
func (i ID) String() string {
	return string(i.kind) + i.u.String()
}

// Less reports whether i sorts before other, comparing raw bytes.
func (i ID) Less(other ID) bool {
	ib, ob := i.u, other.u
	for k := range ib {
		if ib[k] != ob[k] {
			return ib[k] < ob[k]
		}
	}
	return false
}

// Decode parses a stringified identifier of the expected kind. It fails
// with errs.InvalidShardID (reused for all ID kinds) if the prefix is
// missing, doesn't match kind, or the remainder isn't a valid UUID.
func Decode(kind Kind, s string) (ID, error) {
	if len(s) < 1 || Kind(s[0]) != kind {
		return ID{}, errs.NewInvalidShardID(s, "missing or mismatched id prefix")
	}
	u, err := uuid.Parse(s[1:])
	if err != nil {
		return ID{}, errs.NewInvalidShardID(s, "malformed uuid body")
	}
	return ID{kind: kind, u: u}, nil
}

// ShardID, LeasedReaderID, CriticalReaderID, WriterID and
// IdempotencyToken are thin, kind-pinned wrappers so callers cannot pass a
// writer id where a shard id is expected at compile time, even though the
// underlying encode/decode logic is shared.
type (
	ShardID          struct{ ID }
	LeasedReaderID   struct{ ID }
	CriticalReaderID struct{ ID }
	WriterID         struct{ ID }
	IdempotencyToken struct{ ID }
)

func NewShardID() ShardID                   { return ShardID{New(KindShard)} }
func NewLeasedReaderID() LeasedReaderID     { return LeasedReaderID{New(KindLeasedReader)} }
func NewCriticalReaderID() CriticalReaderID { return CriticalReaderID{New(KindCriticalReader)} }
func NewWriterID() WriterID                 { return WriterID{New(KindWriter)} }
func NewIdempotencyToken() IdempotencyToken { return IdempotencyToken{New(KindIdempotencyToken)} }

func DecodeShardID(s string) (ShardID, error) {
	i, err := Decode(KindShard, s)
	return ShardID{i}, err
}

func DecodeLeasedReaderID(s string) (LeasedReaderID, error) {
	i, err := Decode(KindLeasedReader, s)
	return LeasedReaderID{i}, err
}

func DecodeCriticalReaderID(s string) (CriticalReaderID, error) {
	i, err := Decode(KindCriticalReader, s)
	return CriticalReaderID{i}, err
}

func DecodeWriterID(s string) (WriterID, error) {
	i, err := Decode(KindWriter, s)
	return WriterID{i}, err
}

func DecodeIdempotencyToken(s string) (IdempotencyToken, error) {
	i, err := Decode(KindIdempotencyToken, s)
	return IdempotencyToken{i}, err
}

// sentinelTokenBytes is the fixed all-zeros UUID reserved as "unknown prior
// write". No real write may ever generate it; uuid.New() draws from
// version-4 space and will practically never collide with the zero value.
var sentinelTokenBytes [16]byte

// SentinelIdempotencyToken is the fixed value synthesized by the
// most_recent_write_token migration when a writer record's token is empty.
func SentinelIdempotencyToken() IdempotencyToken {
	return IdempotencyToken{FromBytes(KindIdempotencyToken, sentinelTokenBytes)}
}

// PartialBatchKey is a path fragment identifying a batch part in blob
// storage; it is not an absolute location, so the blob layer can prepend a
// shard-scoped prefix without rewriting state.
type PartialBatchKey string

// PartialRollupKey is the blob-storage path fragment for a rollup snapshot.
type PartialRollupKey string
