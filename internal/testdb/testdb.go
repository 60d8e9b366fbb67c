// Package testdb provides in-memory consensus and blob collaborator test
// doubles built on github.com/dgraph-io/badger/v3, the teacher's own
// embedded LSM storage engine. Neither type participates in persist's
// production decode/encode path (consensus and blob storage are external
// collaborators, out of this module's scope); they exist so this module's
// round-trip, composition, and rehydration properties can be exercised
// end to end in tests without standing up a real cluster.
package testdb

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/dgraph-io/badger/v3"

	"github.com/persistdb/persist/blob"
	"github.com/persistdb/persist/consensus"
)

// MemConsensus is an in-memory consensus.Store backed by a badger instance
// opened in pure in-memory mode (WithInMemory(true)), so tests pay no disk
// I/O but still exercise real LSM put/get/iterate code paths rather than a
// bare map.
type MemConsensus struct {
	db *badger.DB
	mu sync.Mutex
}

// NewMemConsensus opens a fresh in-memory badger instance for one test's
// consensus store. Callers must Close it when done.
func NewMemConsensus() (*MemConsensus, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &MemConsensus{db: db}, nil
}

// Close releases the underlying badger instance.
func (m *MemConsensus) Close() error { return m.db.Close() }

func latestKey(key string) []byte  { return []byte("latest/" + key) }
func logKey(key string, seqNo uint64) []byte {
	b := make([]byte, len("log/")+len(key)+1+8)
	n := copy(b, "log/"+key+"/")
	binary.BigEndian.PutUint64(b[n:], seqNo)
	return b[:n+8]
}
func logPrefix(key string) []byte { return []byte("log/" + key + "/") }

func encodeVersioned(v consensus.VersionedData) []byte {
	b := make([]byte, 8+len(v.Data))
	binary.BigEndian.PutUint64(b, v.SeqNo)
	copy(b[8:], v.Data)
	return b
}

func decodeVersioned(b []byte) consensus.VersionedData {
	return consensus.VersionedData{
		SeqNo: binary.BigEndian.Uint64(b[:8]),
		Data:  append([]byte(nil), b[8:]...),
	}
}

// Get returns the most recent VersionedData recorded under key.
func (m *MemConsensus) Get(_ context.Context, key string) (consensus.VersionedData, error) {
	var out consensus.VersionedData
	err := m.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(latestKey(key))
		if err == badger.ErrKeyNotFound {
			return &consensus.ErrNotFound{Key: key}
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			out = decodeVersioned(val)
			return nil
		})
	})
	return out, err
}

// CompareAndSet writes newData under key iff the store's current sequence
// number equals expectedSeqNo, appending newData to key's version log and
// advancing its latest pointer atomically within one badger transaction.
// The in-process mutex serializes CaS attempts the way a real consensus
// store's single linearization point would.
func (m *MemConsensus) CompareAndSet(_ context.Context, key string, expectedSeqNo uint64, newData consensus.VersionedData) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.db.Update(func(txn *badger.Txn) error {
		var actual uint64
		item, err := txn.Get(latestKey(key))
		switch err {
		case nil:
			if verr := item.Value(func(val []byte) error {
				actual = binary.BigEndian.Uint64(val[:8])
				return nil
			}); verr != nil {
				return verr
			}
		case badger.ErrKeyNotFound:
			actual = 0
		default:
			return err
		}
		if actual != expectedSeqNo {
			return &consensus.ErrCasMismatch{Key: key, Expected: expectedSeqNo, Actual: actual}
		}
		encoded := encodeVersioned(newData)
		if err := txn.Set(latestKey(key), encoded); err != nil {
			return err
		}
		return txn.Set(logKey(key, newData.SeqNo), encoded)
	})
}

// Scan returns every VersionedData recorded under key with SeqNo >= from,
// in ascending sequence order (guaranteed by badger's lexicographic
// iteration over the big-endian seqno suffix).
func (m *MemConsensus) Scan(_ context.Context, key string, from uint64) ([]consensus.VersionedData, error) {
	var out []consensus.VersionedData
	err := m.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := logPrefix(key)
		for it.Seek(logKey(key, from)); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			if err := item.Value(func(val []byte) error {
				out = append(out, decodeVersioned(val))
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	return out, err
}

// MemBlob is an in-memory blob.Store backed by the same badger engine.
type MemBlob struct {
	db *badger.DB
}

// NewMemBlob opens a fresh in-memory badger instance for one test's blob
// store.
func NewMemBlob() (*MemBlob, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &MemBlob{db: db}, nil
}

// Close releases the underlying badger instance.
func (b *MemBlob) Close() error { return b.db.Close() }

// Get returns the bytes previously Set at path.
func (b *MemBlob) Get(_ context.Context, path string) ([]byte, error) {
	var out []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(path))
		if err == badger.ErrKeyNotFound {
			return &blob.ErrNotFound{Path: path}
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			out = append([]byte(nil), val...)
			return nil
		})
	})
	return out, err
}

// Set stores data at path, overwriting any previous value.
func (b *MemBlob) Set(_ context.Context, path string, data []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(path), data)
	})
}

var (
	_ consensus.Store = (*MemConsensus)(nil)
	_ blob.Store      = (*MemBlob)(nil)
)
