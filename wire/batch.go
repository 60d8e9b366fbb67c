package wire

import (
	"github.com/persistdb/persist/batch"
	"github.com/persistdb/persist/id"
)

// Part message field numbers.
const (
	fieldPartKey              = 1
	fieldPartEncodedSizeBytes = 2
)

func encodePart(p batch.Part) []byte {
	w := newWriter()
	w.str(fieldPartKey, string(p.Key))
	w.varint(fieldPartEncodedSizeBytes, p.EncodedSizeBytes)
	return w.Bytes()
}

func decodePart(body []byte) (batch.Part, error) {
	r := newReader(body)
	var p batch.Part
	for {
		field, wt, ok := r.next()
		if !ok {
			break
		}
		switch {
		case field == fieldPartKey && wt == wireBytes:
			s, err := r.str()
			if err != nil {
				return p, err
			}
			p.Key = id.PartialBatchKey(s)
		case field == fieldPartEncodedSizeBytes && wt == wireVarint:
			v, err := r.varint()
			if err != nil {
				return p, err
			}
			p.EncodedSizeBytes = v
		default:
			if err := r.skip(wt); err != nil {
				return p, err
			}
		}
	}
	return p, nil
}

// HollowBatch message field numbers. fieldDeprecatedKeys is the legacy
// shape the migration upgrades: older writers recorded only bare blob keys
// with no size information.
const (
	fieldBatchDesc           = 1
	fieldBatchParts          = 2
	fieldBatchLen            = 3
	fieldBatchRuns           = 4
	fieldBatchDeprecatedKeys = 5
)

func encodeHollowBatch(b batch.HollowBatch[rawT]) []byte {
	w := newWriter()
	w.message(fieldBatchDesc, encodeDescription(b.Desc))
	for _, p := range b.Parts {
		w.message(fieldBatchParts, encodePart(p))
	}
	w.varint(fieldBatchLen, b.Len)
	for _, run := range b.Runs {
		w.varint(fieldBatchRuns, uint64(run))
	}
	return w.Bytes()
}

// decodeHollowBatch applies the hollow-batch-parts migration:
// deprecated_keys, if present, are appended as additional parts with
// encoded_size_bytes = 0, after whatever real parts the record already
// carries. Runs are kept exactly as recorded; the appended parts are not
// added to any run (scenario 3: parts=[("a",5)], deprecated_keys=["b"] decodes to
// parts=[("a",5),("b",0)] in that order).
func decodeHollowBatch(body []byte, ctx *decodeCtx) (batch.HollowBatch[rawT], error) {
	r := newReader(body)
	var b batch.HollowBatch[rawT]
	var deprecatedKeys []string
	for {
		field, wt, ok := r.next()
		if !ok {
			break
		}
		switch {
		case field == fieldBatchDesc && wt == wireBytes:
			bb, err := r.bytes()
			if err != nil {
				return b, err
			}
			if b.Desc, err = decodeDescription(bb); err != nil {
				return b, err
			}
		case field == fieldBatchParts && wt == wireBytes:
			bb, err := r.bytes()
			if err != nil {
				return b, err
			}
			p, err := decodePart(bb)
			if err != nil {
				return b, err
			}
			b.Parts = append(b.Parts, p)
		case field == fieldBatchLen && wt == wireVarint:
			v, err := r.varint()
			if err != nil {
				return b, err
			}
			b.Len = v
		case field == fieldBatchRuns && wt == wireVarint:
			v, err := r.varint()
			if err != nil {
				return b, err
			}
			b.Runs = append(b.Runs, int(v))
		case field == fieldBatchDeprecatedKeys && wt == wireBytes:
			s, err := r.str()
			if err != nil {
				return b, err
			}
			deprecatedKeys = append(deprecatedKeys, s)
		default:
			if err := r.skip(wt); err != nil {
				return b, err
			}
		}
	}
	if len(deprecatedKeys) > 0 {
		ctx.migrated("hollow_batch.parts")
		for _, k := range deprecatedKeys {
			b.Parts = append(b.Parts, batch.Part{Key: id.PartialBatchKey(k), EncodedSizeBytes: 0})
		}
	}
	return b, nil
}
