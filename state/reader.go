package state

import (
	"github.com/persistdb/persist/frontier"
	"github.com/persistdb/persist/id"
)

// DebugInfo is free-form, human-facing context attached to readers and
// writers: the hostname that created them and why.
type DebugInfo struct {
	Hostname string
	Purpose  string
}

// LeasedReaderState tracks a reader holding a time-bounded seqno pin:
// losing the lease (no heartbeat within LeaseDurationMs) drops the pin and
// lets the GC watermark advance past it.
type LeasedReaderState[T frontier.TimeStamp] struct {
	Seqno            SeqNo
	Since            frontier.Antichain[T]
	LastHeartbeatMs  uint64
	LeaseDurationMs  uint64
	Debug            DebugInfo
}

// Expired reports whether the lease has lapsed as of nowMs.
func (r LeasedReaderState[T]) Expired(nowMs uint64) bool {
	return nowMs > r.LastHeartbeatMs+r.LeaseDurationMs
}

// CriticalReaderState tracks a reader with no lease: the caller fences
// updates itself by presenting the last Opaque value it observed, via its
// own codec (identified by OpaqueCodec).
type CriticalReaderState[T frontier.TimeStamp] struct {
	Since       frontier.Antichain[T]
	Opaque      [8]byte
	OpaqueCodec string
	Debug       DebugInfo
}

// WriterState tracks a write lease: its heartbeat, the idempotency token
// and upper frontier of its most recent write (for write deduplication on
// retry), and debug info.
type WriterState[T frontier.TimeStamp] struct {
	LastHeartbeatMs      uint64
	LeaseDurationMs      uint64
	MostRecentWriteToken id.IdempotencyToken
	MostRecentWriteUpper frontier.Antichain[T]
	Debug                DebugInfo
}
