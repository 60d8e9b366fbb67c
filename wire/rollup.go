package wire

import (
	"github.com/Masterminds/semver/v3"

	"github.com/persistdb/persist/batch"
	"github.com/persistdb/persist/frontier"
	"github.com/persistdb/persist/id"
	"github.com/persistdb/persist/metrics"
	"github.com/persistdb/persist/state"
	"github.com/persistdb/persist/trace"
	pversion "github.com/persistdb/persist/version"
)

// ProtoStateRollup field numbers. New fields must take new numbers and
// default sensibly on absence, so old readers tolerate a rollup written by
// a newer applier.
const (
	fieldRollupApplierVersion   = 1
	fieldRollupShardID          = 2
	fieldRollupSeqno            = 3
	fieldRollupWalltimeMs       = 4
	fieldRollupHostname         = 5
	fieldRollupKeyCodec         = 6
	fieldRollupValCodec         = 7
	fieldRollupTsCodec          = 8
	fieldRollupDiffCodec        = 9
	fieldRollupRollups          = 10
	fieldRollupLastGCReq        = 11
	fieldRollupLeasedReaders    = 12
	fieldRollupCriticalReaders  = 13
	fieldRollupWriters          = 14
	fieldRollupTraceSince       = 15
	fieldRollupTraceBatches     = 16
)

const (
	fieldRollupEntrySeqno = 1
	fieldRollupEntryKey   = 2
)

func encodeRollupEntry(e state.RollupEntry) []byte {
	w := newWriter()
	w.varint(fieldRollupEntrySeqno, uint64(e.SeqNo))
	w.str(fieldRollupEntryKey, string(e.Key))
	return w.Bytes()
}

func decodeRollupEntry(body []byte) (state.RollupEntry, error) {
	r := newReader(body)
	var e state.RollupEntry
	for {
		field, wt, ok := r.next()
		if !ok {
			break
		}
		switch {
		case field == fieldRollupEntrySeqno && wt == wireVarint:
			v, err := r.varint()
			if err != nil {
				return e, err
			}
			e.SeqNo = state.SeqNo(v)
		case field == fieldRollupEntryKey && wt == wireBytes:
			s, err := r.str()
			if err != nil {
				return e, err
			}
			e.Key = id.PartialRollupKey(s)
		default:
			if err := r.skip(wt); err != nil {
				return e, err
			}
		}
	}
	return e, nil
}

// EncodeState marshals a fully typed State (plus the codec names it was
// produced with) to the ProtoStateRollup wire shape. metricsReg, if
// non-nil, records the encode call.
func EncodeState[T frontier.TimeStamp](s state.State[T], codecs state.CodecNames, metricsReg *metrics.Registry) []byte {
	if metricsReg != nil {
		metricsReg.EncodeCalls.WithLabelValues("rollup").Inc()
	}
	toRaw := func(t T) rawT { return rawT(t.Encode()) }

	w := newWriter()
	av := ""
	if s.ApplierVersion != nil {
		av = s.ApplierVersion.String()
	}
	w.str(fieldRollupApplierVersion, av)
	w.str(fieldRollupShardID, s.ShardID.String())
	w.varint(fieldRollupSeqno, uint64(s.Seqno))
	w.varint(fieldRollupWalltimeMs, s.WalltimeMs)
	w.str(fieldRollupHostname, s.Hostname)
	w.str(fieldRollupKeyCodec, codecs.Key)
	w.str(fieldRollupValCodec, codecs.Val)
	w.str(fieldRollupTsCodec, codecs.Ts)
	w.str(fieldRollupDiffCodec, codecs.Diff)

	for _, r := range s.Collections.Rollups {
		w.message(fieldRollupRollups, encodeRollupEntry(r))
	}
	w.varint(fieldRollupLastGCReq, uint64(s.Collections.LastGCReq))
	for rid, rs := range s.Collections.LeasedReaders {
		w.message(fieldRollupLeasedReaders, encodeLeasedReader(rid, mapLeasedReader(rs, toRaw)))
	}
	for rid, rs := range s.Collections.CriticalReaders {
		w.message(fieldRollupCriticalReaders, encodeCriticalReader(rid, mapCriticalReader(rs, toRaw)))
	}
	for wid, ws := range s.Collections.Writers {
		w.message(fieldRollupWriters, encodeWriter(wid, mapWriter(ws, toRaw)))
	}
	w.message(fieldRollupTraceSince, encodeAntichain(frontier.MapAntichain(s.Collections.Trace.Since(), toRaw)))
	for _, b := range s.Collections.Trace.Batches() {
		w.message(fieldRollupTraceBatches, encodeHollowBatch(batch.MapHollowBatch(b, toRaw)))
	}
	return w.Bytes()
}

// DecodeState parses a ProtoStateRollup wire record into an UntypedState,
// applying every legacy-field migration and enforcing the applier-version
// gate against buildVersion (halting the process, via halt, if the
// decoded applier_version is from the future). defaultLeaseMs is the
// platform default read-lease duration synthesized for a leased reader
// missing lease_duration_ms; metricsReg, if non-nil, records migration
// hits. DecodeState does not count the decode call itself; Decode does.
func DecodeState(body []byte, buildVersion *semver.Version, defaultLeaseMs uint64, halt pversion.HaltFunc, metricsReg *metrics.Registry) (state.UntypedState, error) {
	ctx := &decodeCtx{metrics: metricsReg, defaultLeaseMs: defaultLeaseMs}
	r := newReader(body)

	var applierVersionStr string
	var shardIDStr, hostname string
	var seqno uint64
	var walltimeMs uint64
	var codecs state.CodecNames
	var rollups []state.RollupEntry
	var lastGCReq uint64
	leasedReaders := make(map[id.LeasedReaderID]state.LeasedReaderState[rawT])
	criticalReaders := make(map[id.CriticalReaderID]state.CriticalReaderState[rawT])
	writers := make(map[id.WriterID]state.WriterState[rawT])
	var traceSince frontier.Antichain[rawT]
	var traceBatches []batch.HollowBatch[rawT]

	for {
		field, wt, ok := r.next()
		if !ok {
			break
		}
		var err error
		switch {
		case field == fieldRollupApplierVersion && wt == wireBytes:
			applierVersionStr, err = r.str()
		case field == fieldRollupShardID && wt == wireBytes:
			shardIDStr, err = r.str()
		case field == fieldRollupSeqno && wt == wireVarint:
			seqno, err = r.varint()
		case field == fieldRollupWalltimeMs && wt == wireVarint:
			walltimeMs, err = r.varint()
		case field == fieldRollupHostname && wt == wireBytes:
			hostname, err = r.str()
		case field == fieldRollupKeyCodec && wt == wireBytes:
			codecs.Key, err = r.str()
		case field == fieldRollupValCodec && wt == wireBytes:
			codecs.Val, err = r.str()
		case field == fieldRollupTsCodec && wt == wireBytes:
			codecs.Ts, err = r.str()
		case field == fieldRollupDiffCodec && wt == wireBytes:
			codecs.Diff, err = r.str()
		case field == fieldRollupRollups && wt == wireBytes:
			var b []byte
			if b, err = r.bytes(); err == nil {
				var e state.RollupEntry
				if e, err = decodeRollupEntry(b); err == nil {
					rollups = append(rollups, e)
				}
			}
		case field == fieldRollupLastGCReq && wt == wireVarint:
			lastGCReq, err = r.varint()
		case field == fieldRollupLeasedReaders && wt == wireBytes:
			var b []byte
			if b, err = r.bytes(); err == nil {
				var rid id.LeasedReaderID
				var rs state.LeasedReaderState[rawT]
				if rid, rs, err = decodeLeasedReader(b, ctx); err == nil {
					leasedReaders[rid] = rs
				}
			}
		case field == fieldRollupCriticalReaders && wt == wireBytes:
			var b []byte
			if b, err = r.bytes(); err == nil {
				var rid id.CriticalReaderID
				var rs state.CriticalReaderState[rawT]
				if rid, rs, err = decodeCriticalReader(b, ctx); err == nil {
					criticalReaders[rid] = rs
				}
			}
		case field == fieldRollupWriters && wt == wireBytes:
			var b []byte
			if b, err = r.bytes(); err == nil {
				var wid id.WriterID
				var ws state.WriterState[rawT]
				if wid, ws, err = decodeWriter(b, ctx); err == nil {
					writers[wid] = ws
				}
			}
		case field == fieldRollupTraceSince && wt == wireBytes:
			var b []byte
			if b, err = r.bytes(); err == nil {
				traceSince, err = decodeAntichain(b)
			}
		case field == fieldRollupTraceBatches && wt == wireBytes:
			var b []byte
			if b, err = r.bytes(); err == nil {
				var hb batch.HollowBatch[rawT]
				if hb, err = decodeHollowBatch(b, ctx); err == nil {
					traceBatches = append(traceBatches, hb)
				}
			}
		default:
			err = r.skip(wt)
		}
		if err != nil {
			return state.UntypedState{}, err
		}
	}

	applierVersion, err := pversion.Parse(applierVersionStr)
	if err != nil {
		return state.UntypedState{}, err
	}
	if applierVersionStr == "" {
		ctx.migrated("applier_version")
	}
	pversion.Check(buildVersion, applierVersion, halt)

	shardID, err := id.DecodeShardID(shardIDStr)
	if err != nil {
		return state.UntypedState{}, err
	}

	return state.UntypedState{
		State: state.State[rawT]{
			ApplierVersion: applierVersion,
			ShardID:        shardID,
			Seqno:          state.SeqNo(seqno),
			WalltimeMs:     walltimeMs,
			Hostname:       hostname,
			Collections: state.Collections[rawT]{
				Rollups:         rollups,
				LastGCReq:       state.SeqNo(lastGCReq),
				LeasedReaders:   leasedReaders,
				CriticalReaders: criticalReaders,
				Writers:         writers,
				Trace:           trace.NewUnchecked(traceSince, traceBatches),
			},
		},
		Codecs: codecs,
	}, nil
}

func mapLeasedReader[A, B frontier.TimeStamp](r state.LeasedReaderState[A], f func(A) B) state.LeasedReaderState[B] {
	return state.LeasedReaderState[B]{
		Seqno:           r.Seqno,
		Since:           frontier.MapAntichain(r.Since, f),
		LastHeartbeatMs: r.LastHeartbeatMs,
		LeaseDurationMs: r.LeaseDurationMs,
		Debug:           r.Debug,
	}
}

func mapCriticalReader[A, B frontier.TimeStamp](r state.CriticalReaderState[A], f func(A) B) state.CriticalReaderState[B] {
	return state.CriticalReaderState[B]{
		Since:       frontier.MapAntichain(r.Since, f),
		Opaque:      r.Opaque,
		OpaqueCodec: r.OpaqueCodec,
		Debug:       r.Debug,
	}
}

func mapWriter[A, B frontier.TimeStamp](w state.WriterState[A], f func(A) B) state.WriterState[B] {
	return state.WriterState[B]{
		LastHeartbeatMs:      w.LastHeartbeatMs,
		LeaseDurationMs:      w.LeaseDurationMs,
		MostRecentWriteToken: w.MostRecentWriteToken,
		MostRecentWriteUpper: frontier.MapAntichain(w.MostRecentWriteUpper, f),
		Debug:                w.Debug,
	}
}
