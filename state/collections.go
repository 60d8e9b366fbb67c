package state

import (
	"github.com/persistdb/persist/frontier"
	"github.com/persistdb/persist/id"
	"github.com/persistdb/persist/trace"
)

// SeqNo is the 64-bit monotone sequence number: one per successful CaS
// against the consensus store.
type SeqNo uint64

// Less reports whether s precedes other.
func (s SeqNo) Less(other SeqNo) bool { return s < other }

// RollupEntry is one entry of the rollups history: the blob location of a
// full snapshot taken at SeqNo.
type RollupEntry struct {
	SeqNo SeqNo
	Key   id.PartialRollupKey
}

// Collections is the mutable heart of a shard's State: its rollup history,
// GC watermark, reader/writer lease tables and the ordered batch trace.
type Collections[T frontier.TimeStamp] struct {
	// Rollups is the seqno -> rollup-key history, ordered by SeqNo and
	// unique on both SeqNo and Key.
	Rollups []RollupEntry

	// LastGCReq is the most recently requested GC watermark seqno.
	LastGCReq SeqNo

	LeasedReaders   map[id.LeasedReaderID]LeasedReaderState[T]
	CriticalReaders map[id.CriticalReaderID]CriticalReaderState[T]
	Writers         map[id.WriterID]WriterState[T]

	Trace *trace.Trace[T]
}

// NewCollections builds an empty Collections with the given trace since.
func NewCollections[T frontier.TimeStamp](since frontier.Antichain[T]) Collections[T] {
	return Collections[T]{
		LeasedReaders:   make(map[id.LeasedReaderID]LeasedReaderState[T]),
		CriticalReaders: make(map[id.CriticalReaderID]CriticalReaderState[T]),
		Writers:         make(map[id.WriterID]WriterState[T]),
		Trace:           trace.New(since),
	}
}

// LatestRollup returns the most recent rollup entry, if any.
func (c Collections[T]) LatestRollup() (RollupEntry, bool) {
	if len(c.Rollups) == 0 {
		return RollupEntry{}, false
	}
	latest := c.Rollups[0]
	for _, r := range c.Rollups[1:] {
		if latest.SeqNo.Less(r.SeqNo) {
			latest = r
		}
	}
	return latest, true
}
