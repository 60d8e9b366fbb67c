// Package blob declares the content-addressed object store persist treats
// as an external collaborator: batch part payloads and rollup snapshots
// are referenced by PartialBatchKey/PartialRollupKey, but this module
// never reads or writes them directly.
package blob

import "context"

// Store is the blob collaborator's interface: Get a previously-written
// path, or Set one. Paths are caller-chosen (the blob layer typically
// prepends a shard-scoped prefix to the partial keys persist's State
// carries); this module never constructs a full path itself.
type Store interface {
	Get(ctx context.Context, path string) ([]byte, error)
	Set(ctx context.Context, path string, data []byte) error
}

// ErrNotFound is returned by Get when path has never been written.
type ErrNotFound struct{ Path string }

func (e *ErrNotFound) Error() string { return "blob: no data at path " + e.Path }
