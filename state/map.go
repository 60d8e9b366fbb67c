package state

import (
	"github.com/persistdb/persist/frontier"
	"github.com/persistdb/persist/id"
	"github.com/persistdb/persist/trace"
)

// mapCollections converts Collections over A into Collections over B via
// f, re-validating the trace's since-monotonicity invariant under B's real
// partial order (trace.Map). This is the core of CheckCodecs: it is the
// single place an UntypedState's raw bytes become a fully typed State.
func mapCollections[A, B frontier.TimeStamp](c Collections[A], f func(A) B, reportEvery int, onProgress func(int)) (Collections[B], error) {
	out := Collections[B]{
		LastGCReq:       c.LastGCReq,
		Rollups:         append([]RollupEntry(nil), c.Rollups...),
		LeasedReaders:   make(map[id.LeasedReaderID]LeasedReaderState[B], len(c.LeasedReaders)),
		CriticalReaders: make(map[id.CriticalReaderID]CriticalReaderState[B], len(c.CriticalReaders)),
		Writers:         make(map[id.WriterID]WriterState[B], len(c.Writers)),
	}
	for k, v := range c.LeasedReaders {
		out.LeasedReaders[k] = LeasedReaderState[B]{
			Seqno:           v.Seqno,
			Since:           frontier.MapAntichain(v.Since, f),
			LastHeartbeatMs: v.LastHeartbeatMs,
			LeaseDurationMs: v.LeaseDurationMs,
			Debug:           v.Debug,
		}
	}
	for k, v := range c.CriticalReaders {
		out.CriticalReaders[k] = CriticalReaderState[B]{
			Since:       frontier.MapAntichain(v.Since, f),
			Opaque:      v.Opaque,
			OpaqueCodec: v.OpaqueCodec,
			Debug:       v.Debug,
		}
	}
	for k, v := range c.Writers {
		out.Writers[k] = WriterState[B]{
			LastHeartbeatMs:      v.LastHeartbeatMs,
			LeaseDurationMs:      v.LeaseDurationMs,
			MostRecentWriteToken: v.MostRecentWriteToken,
			MostRecentWriteUpper: frontier.MapAntichain(v.MostRecentWriteUpper, f),
			Debug:                v.Debug,
		}
	}
	mappedTrace, err := trace.Map(c.Trace, f, reportEvery, onProgress)
	if err != nil {
		return Collections[B]{}, err
	}
	out.Trace = mappedTrace
	return out, nil
}
