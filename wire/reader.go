package wire

import (
	"github.com/persistdb/persist/id"
	"github.com/persistdb/persist/state"
)

// DebugInfo message field numbers.
const (
	fieldDebugHostname = 1
	fieldDebugPurpose  = 2
)

func encodeDebugInfo(d state.DebugInfo) []byte {
	w := newWriter()
	w.str(fieldDebugHostname, d.Hostname)
	w.str(fieldDebugPurpose, d.Purpose)
	return w.Bytes()
}

func decodeDebugInfo(body []byte) (state.DebugInfo, error) {
	r := newReader(body)
	var d state.DebugInfo
	for {
		field, wt, ok := r.next()
		if !ok {
			break
		}
		switch {
		case field == fieldDebugHostname && wt == wireBytes:
			s, err := r.str()
			if err != nil {
				return d, err
			}
			d.Hostname = s
		case field == fieldDebugPurpose && wt == wireBytes:
			s, err := r.str()
			if err != nil {
				return d, err
			}
			d.Purpose = s
		default:
			if err := r.skip(wt); err != nil {
				return d, err
			}
		}
	}
	return d, nil
}

// LeasedReader message field numbers.
const (
	fieldLeasedReaderID              = 1
	fieldLeasedReaderSeqno           = 2
	fieldLeasedReaderSince           = 3
	fieldLeasedReaderLastHeartbeatMs = 4
	fieldLeasedReaderLeaseDurationMs = 5
	fieldLeasedReaderDebug           = 6
)

func encodeLeasedReader(rid id.LeasedReaderID, r state.LeasedReaderState[rawT]) []byte {
	w := newWriter()
	w.str(fieldLeasedReaderID, rid.String())
	w.varint(fieldLeasedReaderSeqno, uint64(r.Seqno))
	w.message(fieldLeasedReaderSince, encodeAntichain(r.Since))
	w.varint(fieldLeasedReaderLastHeartbeatMs, r.LastHeartbeatMs)
	w.varint(fieldLeasedReaderLeaseDurationMs, r.LeaseDurationMs)
	w.message(fieldLeasedReaderDebug, encodeDebugInfo(r.Debug))
	return w.Bytes()
}

// decodeLeasedReader applies two migrations: lease_duration_ms absent/0
// synthesizes defaultLeaseMs (the platform default read-lease duration),
// and an absent debug message synthesizes an empty DebugInfo.
func decodeLeasedReader(body []byte, ctx *decodeCtx) (id.LeasedReaderID, state.LeasedReaderState[rawT], error) {
	rd := newReader(body)
	var rid id.LeasedReaderID
	var st state.LeasedReaderState[rawT]
	haveDebug := false
	for {
		field, wt, ok := rd.next()
		if !ok {
			break
		}
		switch {
		case field == fieldLeasedReaderID && wt == wireBytes:
			s, err := rd.str()
			if err != nil {
				return rid, st, err
			}
			if rid, err = id.DecodeLeasedReaderID(s); err != nil {
				return rid, st, err
			}
		case field == fieldLeasedReaderSeqno && wt == wireVarint:
			v, err := rd.varint()
			if err != nil {
				return rid, st, err
			}
			st.Seqno = state.SeqNo(v)
		case field == fieldLeasedReaderSince && wt == wireBytes:
			b, err := rd.bytes()
			if err != nil {
				return rid, st, err
			}
			if st.Since, err = decodeAntichain(b); err != nil {
				return rid, st, err
			}
		case field == fieldLeasedReaderLastHeartbeatMs && wt == wireVarint:
			v, err := rd.varint()
			if err != nil {
				return rid, st, err
			}
			st.LastHeartbeatMs = v
		case field == fieldLeasedReaderLeaseDurationMs && wt == wireVarint:
			v, err := rd.varint()
			if err != nil {
				return rid, st, err
			}
			st.LeaseDurationMs = v
		case field == fieldLeasedReaderDebug && wt == wireBytes:
			b, err := rd.bytes()
			if err != nil {
				return rid, st, err
			}
			if st.Debug, err = decodeDebugInfo(b); err != nil {
				return rid, st, err
			}
			haveDebug = true
		default:
			if err := rd.skip(wt); err != nil {
				return rid, st, err
			}
		}
	}
	if st.LeaseDurationMs == 0 {
		ctx.migrated("leased_reader.lease_duration_ms")
		st.LeaseDurationMs = ctx.defaultLeaseMs
	}
	if !haveDebug {
		ctx.migrated("leased_reader.debug")
		st.Debug = state.DebugInfo{}
	}
	return rid, st, nil
}

// CriticalReader message field numbers.
const (
	fieldCriticalReaderID          = 1
	fieldCriticalReaderSince       = 2
	fieldCriticalReaderOpaque      = 3
	fieldCriticalReaderOpaqueCodec = 4
	fieldCriticalReaderDebug       = 5
)

func encodeCriticalReader(rid id.CriticalReaderID, r state.CriticalReaderState[rawT]) []byte {
	w := newWriter()
	w.str(fieldCriticalReaderID, rid.String())
	w.message(fieldCriticalReaderSince, encodeAntichain(r.Since))
	w.bytes(fieldCriticalReaderOpaque, r.Opaque[:])
	w.str(fieldCriticalReaderOpaqueCodec, r.OpaqueCodec)
	w.message(fieldCriticalReaderDebug, encodeDebugInfo(r.Debug))
	return w.Bytes()
}

func decodeCriticalReader(body []byte, ctx *decodeCtx) (id.CriticalReaderID, state.CriticalReaderState[rawT], error) {
	rd := newReader(body)
	var rid id.CriticalReaderID
	var st state.CriticalReaderState[rawT]
	haveDebug := false
	for {
		field, wt, ok := rd.next()
		if !ok {
			break
		}
		switch {
		case field == fieldCriticalReaderID && wt == wireBytes:
			s, err := rd.str()
			if err != nil {
				return rid, st, err
			}
			if rid, err = id.DecodeCriticalReaderID(s); err != nil {
				return rid, st, err
			}
		case field == fieldCriticalReaderSince && wt == wireBytes:
			b, err := rd.bytes()
			if err != nil {
				return rid, st, err
			}
			if st.Since, err = decodeAntichain(b); err != nil {
				return rid, st, err
			}
		case field == fieldCriticalReaderOpaque && wt == wireBytes:
			b, err := rd.bytes()
			if err != nil {
				return rid, st, err
			}
			copy(st.Opaque[:], b)
		case field == fieldCriticalReaderOpaqueCodec && wt == wireBytes:
			s, err := rd.str()
			if err != nil {
				return rid, st, err
			}
			st.OpaqueCodec = s
		case field == fieldCriticalReaderDebug && wt == wireBytes:
			b, err := rd.bytes()
			if err != nil {
				return rid, st, err
			}
			if st.Debug, err = decodeDebugInfo(b); err != nil {
				return rid, st, err
			}
			haveDebug = true
		default:
			if err := rd.skip(wt); err != nil {
				return rid, st, err
			}
		}
	}
	if !haveDebug {
		ctx.migrated("critical_reader.debug")
		st.Debug = state.DebugInfo{}
	}
	return rid, st, nil
}

// Writer message field numbers.
const (
	fieldWriterID                   = 1
	fieldWriterLastHeartbeatMs      = 2
	fieldWriterLeaseDurationMs      = 3
	fieldWriterMostRecentWriteToken = 4
	fieldWriterMostRecentWriteUpper = 5
	fieldWriterDebug                = 6
)

func encodeWriter(wid id.WriterID, w2 state.WriterState[rawT]) []byte {
	w := newWriter()
	w.str(fieldWriterID, wid.String())
	w.varint(fieldWriterLastHeartbeatMs, w2.LastHeartbeatMs)
	w.varint(fieldWriterLeaseDurationMs, w2.LeaseDurationMs)
	w.str(fieldWriterMostRecentWriteToken, w2.MostRecentWriteToken.String())
	w.message(fieldWriterMostRecentWriteUpper, encodeAntichain(w2.MostRecentWriteUpper))
	w.message(fieldWriterDebug, encodeDebugInfo(w2.Debug))
	return w.Bytes()
}

// decodeWriter applies the migrations for writers: an empty
// most_recent_write_token synthesizes id.SentinelIdempotencyToken(), and an
// absent most_recent_write_upper synthesizes Antichain{T::minimum()} (here,
// the all-zero RawTS, which state.CheckCodecs later maps through the real
// T's minimum once the timestamp codec is known — callers using U64 as T
// rely on frontier.MinU64.Encode() being the all-zero pattern too).
func decodeWriter(body []byte, ctx *decodeCtx) (id.WriterID, state.WriterState[rawT], error) {
	rd := newReader(body)
	var wid id.WriterID
	var st state.WriterState[rawT]
	var tokenStr string
	haveUpper := false
	for {
		field, wt, ok := rd.next()
		if !ok {
			break
		}
		switch {
		case field == fieldWriterID && wt == wireBytes:
			s, err := rd.str()
			if err != nil {
				return wid, st, err
			}
			if wid, err = id.DecodeWriterID(s); err != nil {
				return wid, st, err
			}
		case field == fieldWriterLastHeartbeatMs && wt == wireVarint:
			v, err := rd.varint()
			if err != nil {
				return wid, st, err
			}
			st.LastHeartbeatMs = v
		case field == fieldWriterLeaseDurationMs && wt == wireVarint:
			v, err := rd.varint()
			if err != nil {
				return wid, st, err
			}
			st.LeaseDurationMs = v
		case field == fieldWriterMostRecentWriteToken && wt == wireBytes:
			s, err := rd.str()
			if err != nil {
				return wid, st, err
			}
			tokenStr = s
		case field == fieldWriterMostRecentWriteUpper && wt == wireBytes:
			b, err := rd.bytes()
			if err != nil {
				return wid, st, err
			}
			if st.MostRecentWriteUpper, err = decodeAntichain(b); err != nil {
				return wid, st, err
			}
			haveUpper = true
		case field == fieldWriterDebug && wt == wireBytes:
			b, err := rd.bytes()
			if err != nil {
				return wid, st, err
			}
			if st.Debug, err = decodeDebugInfo(b); err != nil {
				return wid, st, err
			}
		default:
			if err := rd.skip(wt); err != nil {
				return wid, st, err
			}
		}
	}
	if st.LeaseDurationMs == 0 {
		st.LeaseDurationMs = ctx.defaultLeaseMs
	}
	if tokenStr == "" {
		ctx.migrated("writer.most_recent_write_token")
		st.MostRecentWriteToken = id.SentinelIdempotencyToken()
	} else {
		tok, err := id.DecodeIdempotencyToken(tokenStr)
		if err != nil {
			return wid, st, err
		}
		st.MostRecentWriteToken = tok
	}
	if !haveUpper {
		ctx.migrated("writer.most_recent_write_upper")
		st.MostRecentWriteUpper = frontierMinimum()
	}
	return wid, st, nil
}
