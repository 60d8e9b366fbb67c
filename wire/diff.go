package wire

import (
	"encoding/binary"

	"github.com/Masterminds/semver/v3"

	"github.com/persistdb/persist/batch"
	stdiff "github.com/persistdb/persist/diff"
	"github.com/persistdb/persist/errs"
	"github.com/persistdb/persist/frontier"
	"github.com/persistdb/persist/id"
	"github.com/persistdb/persist/metrics"
	"github.com/persistdb/persist/state"
	pversion "github.com/persistdb/persist/version"
)

// FieldTag identifies which State field a StateDiff delta targets: a fixed
// set of cases bound to concrete key/value codecs at compile time here,
// rather than a runtime type table.
type FieldTag int

// Canonical field order: a stability aid for the encoder, never a
// correctness requirement the decoder relies on.
const (
	FieldHostname FieldTag = iota
	FieldLastGCReq
	FieldRollups
	FieldLeasedReaders
	FieldCriticalReaders
	FieldWriters
	FieldSince
	FieldSpine
)

// ProtoStateDiff field numbers.
const (
	fieldDiffApplierVersion  = 1
	fieldDiffSeqnoFrom       = 2
	fieldDiffSeqnoTo         = 3
	fieldDiffWalltimeMs      = 4
	fieldDiffLatestRollupKey = 5
	fieldDiffFields          = 6
	fieldDiffDiffTypes       = 7
	fieldDiffData            = 8
)

func encodeU64(v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return b[:]
}

func decodeU64(b []byte) uint64 {
	var buf [8]byte
	copy(buf[:], b)
	return binary.LittleEndian.Uint64(buf[:])
}

// EncodeDiff marshals a StateDiff to the ProtoStateDiff wire shape: scalar
// header fields plus a parallel-array body (fields, diff_types, data),
// walked in canonical field order. metricsReg, if non-nil, records the
// encode call.
func EncodeDiff(d stdiff.StateDiff[rawT], metricsReg *metrics.Registry) []byte {
	if metricsReg != nil {
		metricsReg.EncodeCalls.WithLabelValues("diff").Inc()
	}
	var fields, diffTypes []uint64
	var data [][]byte

	push := func(tag FieldTag, dt stdiff.Type, chunks ...[]byte) {
		fields = append(fields, uint64(tag))
		diffTypes = append(diffTypes, uint64(dt))
		data = append(data, chunks...)
	}

	for _, dl := range d.Hostname {
		switch dl.Type {
		case stdiff.Insert:
			push(FieldHostname, dl.Type, []byte(dl.New))
		case stdiff.Delete:
			push(FieldHostname, dl.Type, []byte(dl.Old))
		case stdiff.Update:
			push(FieldHostname, dl.Type, []byte(dl.Old), []byte(dl.New))
		}
	}
	for _, dl := range d.LastGCReq {
		switch dl.Type {
		case stdiff.Insert:
			push(FieldLastGCReq, dl.Type, encodeU64(uint64(dl.New)))
		case stdiff.Delete:
			push(FieldLastGCReq, dl.Type, encodeU64(uint64(dl.Old)))
		case stdiff.Update:
			push(FieldLastGCReq, dl.Type, encodeU64(uint64(dl.Old)), encodeU64(uint64(dl.New)))
		}
	}
	for _, dl := range d.Rollups {
		switch dl.Type {
		case stdiff.Insert:
			push(FieldRollups, dl.Type, encodeRollupEntry(state.RollupEntry{SeqNo: dl.Key, Key: dl.New}))
		case stdiff.Delete:
			push(FieldRollups, dl.Type, encodeRollupEntry(state.RollupEntry{SeqNo: dl.Key, Key: dl.Old}))
		case stdiff.Update:
			push(FieldRollups, dl.Type,
				encodeRollupEntry(state.RollupEntry{SeqNo: dl.Key, Key: dl.Old}),
				encodeRollupEntry(state.RollupEntry{SeqNo: dl.Key, Key: dl.New}))
		}
	}
	for _, dl := range d.LeasedReaders {
		switch dl.Type {
		case stdiff.Insert:
			push(FieldLeasedReaders, dl.Type, encodeLeasedReader(dl.Key, dl.New))
		case stdiff.Delete:
			push(FieldLeasedReaders, dl.Type, encodeLeasedReader(dl.Key, dl.Old))
		case stdiff.Update:
			push(FieldLeasedReaders, dl.Type, encodeLeasedReader(dl.Key, dl.Old), encodeLeasedReader(dl.Key, dl.New))
		}
	}
	for _, dl := range d.CriticalReaders {
		switch dl.Type {
		case stdiff.Insert:
			push(FieldCriticalReaders, dl.Type, encodeCriticalReader(dl.Key, dl.New))
		case stdiff.Delete:
			push(FieldCriticalReaders, dl.Type, encodeCriticalReader(dl.Key, dl.Old))
		case stdiff.Update:
			push(FieldCriticalReaders, dl.Type, encodeCriticalReader(dl.Key, dl.Old), encodeCriticalReader(dl.Key, dl.New))
		}
	}
	for _, dl := range d.Writers {
		switch dl.Type {
		case stdiff.Insert:
			push(FieldWriters, dl.Type, encodeWriter(dl.Key, dl.New))
		case stdiff.Delete:
			push(FieldWriters, dl.Type, encodeWriter(dl.Key, dl.Old))
		case stdiff.Update:
			push(FieldWriters, dl.Type, encodeWriter(dl.Key, dl.Old), encodeWriter(dl.Key, dl.New))
		}
	}
	for _, dl := range d.Since {
		switch dl.Type {
		case stdiff.Insert:
			push(FieldSince, dl.Type, encodeAntichain(dl.New))
		case stdiff.Delete:
			push(FieldSince, dl.Type, encodeAntichain(dl.Old))
		case stdiff.Update:
			push(FieldSince, dl.Type, encodeAntichain(dl.Old), encodeAntichain(dl.New))
		}
	}
	for _, dl := range d.Spine {
		// Only Insert/Delete are meaningful for the set-valued spine.
		push(FieldSpine, dl.Type, encodeHollowBatch(dl.Key))
	}

	w := newWriter()
	av := ""
	if d.ApplierVersion != nil {
		av = d.ApplierVersion.String()
	}
	w.str(fieldDiffApplierVersion, av)
	w.varint(fieldDiffSeqnoFrom, uint64(d.SeqnoFrom))
	w.varint(fieldDiffSeqnoTo, uint64(d.SeqnoTo))
	w.varint(fieldDiffWalltimeMs, d.WalltimeMs)
	w.str(fieldDiffLatestRollupKey, string(d.LatestRollupKey))
	for _, f := range fields {
		w.varint(fieldDiffFields, f)
	}
	for _, t := range diffTypes {
		w.varint(fieldDiffDiffTypes, t)
	}
	for _, chunk := range data {
		w.bytes(fieldDiffData, chunk)
	}
	return w.Bytes()
}

// DecodeDiff parses a ProtoStateDiff wire record, applying the applier
// version gate exactly as DecodeState does, then replaying the
// parallel-array body back into a StateDiff[RawTS].
func DecodeDiff(body []byte, buildVersion *semver.Version, halt pversion.HaltFunc, ctx *decodeCtx) (stdiff.StateDiff[rawT], error) {
	r := newReader(body)

	var d stdiff.StateDiff[rawT]
	var applierVersionStr string
	var fields, diffTypes []uint64
	var data [][]byte

	for {
		field, wt, ok := r.next()
		if !ok {
			break
		}
		var err error
		switch {
		case field == fieldDiffApplierVersion && wt == wireBytes:
			applierVersionStr, err = r.str()
		case field == fieldDiffSeqnoFrom && wt == wireVarint:
			var v uint64
			v, err = r.varint()
			d.SeqnoFrom = state.SeqNo(v)
		case field == fieldDiffSeqnoTo && wt == wireVarint:
			var v uint64
			v, err = r.varint()
			d.SeqnoTo = state.SeqNo(v)
		case field == fieldDiffWalltimeMs && wt == wireVarint:
			d.WalltimeMs, err = r.varint()
		case field == fieldDiffLatestRollupKey && wt == wireBytes:
			var s string
			s, err = r.str()
			d.LatestRollupKey = id.PartialRollupKey(s)
		case field == fieldDiffFields && wt == wireVarint:
			var v uint64
			v, err = r.varint()
			fields = append(fields, v)
		case field == fieldDiffDiffTypes && wt == wireVarint:
			var v uint64
			v, err = r.varint()
			diffTypes = append(diffTypes, v)
		case field == fieldDiffData && wt == wireBytes:
			var b []byte
			b, err = r.bytes()
			data = append(data, b)
		default:
			err = r.skip(wt)
		}
		if err != nil {
			return d, err
		}
	}

	applierVersion, err := pversion.Parse(applierVersionStr)
	if err != nil {
		return d, err
	}
	pversion.Check(buildVersion, applierVersion, halt)
	d.ApplierVersion = applierVersion

	if len(fields) != len(diffTypes) {
		return d, errs.NewInvalidPersistState(
			"state diff fields/diff_types length mismatch: %d vs %d", len(fields), len(diffTypes))
	}

	ptr := 0
	take := func(n int) ([][]byte, error) {
		if ptr+n > len(data) {
			return nil, errs.NewInvalidPersistState(
				"state diff data array exhausted: need %d chunks at offset %d, have %d", n, ptr, len(data))
		}
		chunks := data[ptr : ptr+n]
		ptr += n
		return chunks, nil
	}

	for i := range fields {
		tag := FieldTag(fields[i])
		dt := stdiff.Type(diffTypes[i])
		n := 1
		if dt == stdiff.Update {
			n = 2
		}
		chunks, err := take(n)
		if err != nil {
			return d, err
		}
		if err := applyDiffChunk(&d, tag, dt, chunks, ctx); err != nil {
			return d, err
		}
	}
	if ptr != len(data) {
		return d, errs.NewInvalidPersistState(
			"state diff data array has %d unconsumed trailing chunks", len(data)-ptr)
	}
	return d, nil
}

// scalarDelta builds a Delta[unit,V] from one (Insert/Delete) or two
// (Update) already-decoded scalar values, per the wire body's
// chunk-consumption contract.
func scalarDelta[V any](dt stdiff.Type, vs []V) stdiff.Delta[struct{}, V] {
	switch dt {
	case stdiff.Insert:
		return stdiff.Delta[struct{}, V]{Type: dt, New: vs[0]}
	case stdiff.Delete:
		return stdiff.Delta[struct{}, V]{Type: dt, Old: vs[0]}
	default:
		return stdiff.Delta[struct{}, V]{Type: dt, Old: vs[0], New: vs[1]}
	}
}

func applyDiffChunk(d *stdiff.StateDiff[rawT], tag FieldTag, dt stdiff.Type, chunks [][]byte, ctx *decodeCtx) error {
	switch tag {
	case FieldHostname:
		vs := make([]string, len(chunks))
		for i, c := range chunks {
			vs[i] = string(c)
		}
		d.Hostname = append(d.Hostname, scalarDelta(dt, vs))

	case FieldLastGCReq:
		vs := make([]state.SeqNo, len(chunks))
		for i, c := range chunks {
			vs[i] = state.SeqNo(decodeU64(c))
		}
		d.LastGCReq = append(d.LastGCReq, scalarDelta(dt, vs))

	case FieldSince:
		vs := make([]frontier.Antichain[rawT], len(chunks))
		for i, c := range chunks {
			a, err := decodeAntichain(c)
			if err != nil {
				return err
			}
			vs[i] = a
		}
		d.Since = append(d.Since, scalarDelta(dt, vs))

	case FieldRollups:
		entries := make([]state.RollupEntry, len(chunks))
		for i, c := range chunks {
			e, err := decodeRollupEntry(c)
			if err != nil {
				return err
			}
			entries[i] = e
		}
		delta := stdiff.Delta[state.SeqNo, id.PartialRollupKey]{Type: dt, Key: entries[0].SeqNo}
		if dt == stdiff.Insert {
			delta.New = entries[0].Key
		} else if dt == stdiff.Delete {
			delta.Old = entries[0].Key
		} else {
			delta.Old, delta.New = entries[0].Key, entries[1].Key
		}
		d.Rollups = append(d.Rollups, delta)

	case FieldLeasedReaders:
		var firstID id.LeasedReaderID
		vals := make([]state.LeasedReaderState[rawT], len(chunks))
		for i, c := range chunks {
			rid, rs, err := decodeLeasedReader(c, ctx)
			if err != nil {
				return err
			}
			firstID, vals[i] = rid, rs
		}
		delta := stdiff.Delta[id.LeasedReaderID, state.LeasedReaderState[rawT]]{Type: dt, Key: firstID}
		if dt == stdiff.Insert {
			delta.New = vals[0]
		} else if dt == stdiff.Delete {
			delta.Old = vals[0]
		} else {
			delta.Old, delta.New = vals[0], vals[1]
		}
		d.LeasedReaders = append(d.LeasedReaders, delta)

	case FieldCriticalReaders:
		var firstID id.CriticalReaderID
		vals := make([]state.CriticalReaderState[rawT], len(chunks))
		for i, c := range chunks {
			rid, rs, err := decodeCriticalReader(c, ctx)
			if err != nil {
				return err
			}
			firstID, vals[i] = rid, rs
		}
		delta := stdiff.Delta[id.CriticalReaderID, state.CriticalReaderState[rawT]]{Type: dt, Key: firstID}
		if dt == stdiff.Insert {
			delta.New = vals[0]
		} else if dt == stdiff.Delete {
			delta.Old = vals[0]
		} else {
			delta.Old, delta.New = vals[0], vals[1]
		}
		d.CriticalReaders = append(d.CriticalReaders, delta)

	case FieldWriters:
		var firstID id.WriterID
		vals := make([]state.WriterState[rawT], len(chunks))
		for i, c := range chunks {
			wid, ws, err := decodeWriter(c, ctx)
			if err != nil {
				return err
			}
			firstID, vals[i] = wid, ws
		}
		delta := stdiff.Delta[id.WriterID, state.WriterState[rawT]]{Type: dt, Key: firstID}
		if dt == stdiff.Insert {
			delta.New = vals[0]
		} else if dt == stdiff.Delete {
			delta.Old = vals[0]
		} else {
			delta.Old, delta.New = vals[0], vals[1]
		}
		d.Writers = append(d.Writers, delta)

	case FieldSpine:
		b, err := decodeHollowBatch(chunks[0], ctx)
		if err != nil {
			return err
		}
		d.Spine = append(d.Spine, stdiff.Delta[batch.HollowBatch[rawT], struct{}]{Type: dt, Key: b})

	default:
		// Unknown field tag: discarded, consistent with the wire format's
		// unknown-field tolerance (the applier-version gate is what protects
		// against silently losing data this way).
	}
	return nil
}
