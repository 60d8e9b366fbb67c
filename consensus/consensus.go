// Package consensus declares the linearizable key-value store persist's
// core treats as an external collaborator: the CaS retry loop,
// compaction, and blob storage all live outside this module's scope, but
// the core is exercised against this interface in tests via
// internal/testdb.
package consensus

import "context"

// VersionedData is one (seqno, bytes) pair recorded against a consensus
// key: the encoded State or StateDiff, plus the sequence number the
// consensus store assigned it.
type VersionedData struct {
	SeqNo uint64
	Data  []byte
}

// Store is the consensus collaborator's full interface: Get the latest
// record, CompareAndSet a new one contingent on the caller having observed
// the expected prior sequence number, and Scan the ordered history from a
// point.
type Store interface {
	// Get returns the most recent VersionedData recorded under key, or
	// ErrNotFound if nothing has ever been written.
	Get(ctx context.Context, key string) (VersionedData, error)

	// CompareAndSet writes newData under key iff the store's current
	// sequence number for key equals expectedSeqNo (0 if key has never been
	// written). Returns ErrCasMismatch, naming the actual sequence number,
	// on failure; the caller is expected to re-read and retry.
	CompareAndSet(ctx context.Context, key string, expectedSeqNo uint64, newData VersionedData) error

	// Scan returns every VersionedData recorded under key with SeqNo >=
	// from, in ascending sequence order.
	Scan(ctx context.Context, key string, from uint64) ([]VersionedData, error)
}

// ErrNotFound is returned by Get when key has never been written.
type ErrNotFound struct{ Key string }

func (e *ErrNotFound) Error() string { return "consensus: no data for key " + e.Key }

// ErrCasMismatch is returned by CompareAndSet when the caller's expected
// sequence number is stale.
type ErrCasMismatch struct {
	Key      string
	Expected uint64
	Actual   uint64
}

func (e *ErrCasMismatch) Error() string {
	return "consensus: cas mismatch on " + e.Key
}
