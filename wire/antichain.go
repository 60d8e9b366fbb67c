package wire

import (
	"github.com/persistdb/persist/frontier"
	"github.com/persistdb/persist/state"
)

// Antichain field numbers: a repeated bytes field of 8-byte elements.
const fieldAntichainElement = 1

// encodeAntichain writes a's elements verbatim as repeated 8-byte fields;
// decodeAntichain reads them back unchanged. The signed 64-bit
// reinterpretation happens in the timestamp type's own Encode and its
// inverse (frontier.U64.Encode / frontier.DecodeU64), not here.
func encodeAntichain(a frontier.Antichain[state.RawTS]) []byte {
	w := newWriter()
	for _, e := range a.Elements() {
		w.bytes(fieldAntichainElement, e[:])
	}
	return w.Bytes()
}

func decodeAntichain(body []byte) (frontier.Antichain[state.RawTS], error) {
	r := newReader(body)
	out := frontier.Antichain[state.RawTS]{}
	for {
		field, wt, ok := r.next()
		if !ok {
			break
		}
		if field != fieldAntichainElement || wt != wireBytes {
			if err := r.skip(wt); err != nil {
				return out, err
			}
			continue
		}
		b, err := r.bytes()
		if err != nil {
			return out, err
		}
		var ts state.RawTS
		copy(ts[:], b)
		out.Insert(ts)
	}
	return out, nil
}

// frontierMinimum builds the antichain {T::minimum()} synthesized by the
// migration for an absent most_recent_write_upper: the all-zero RawTS,
// which state.CheckCodecs maps through the deployment's real T once its
// timestamp codec is known (e.g. frontier.MinU64 also encodes to all-zero
// bytes, so the migration default round-trips correctly for the bundled
// U64 timestamp).
func frontierMinimum() frontier.Antichain[state.RawTS] {
	return frontier.New[state.RawTS](state.RawTS{})
}

// Description field numbers.
const (
	fieldDescLower = 1
	fieldDescUpper = 2
	fieldDescSince = 3
)

func encodeDescription(d frontier.Description[state.RawTS]) []byte {
	w := newWriter()
	w.message(fieldDescLower, encodeAntichain(d.Lower))
	w.message(fieldDescUpper, encodeAntichain(d.Upper))
	w.message(fieldDescSince, encodeAntichain(d.Since))
	return w.Bytes()
}

func decodeDescription(body []byte) (frontier.Description[state.RawTS], error) {
	r := newReader(body)
	var d frontier.Description[state.RawTS]
	for {
		field, wt, ok := r.next()
		if !ok {
			break
		}
		switch {
		case field == fieldDescLower && wt == wireBytes:
			b, err := r.bytes()
			if err != nil {
				return d, err
			}
			if d.Lower, err = decodeAntichain(b); err != nil {
				return d, err
			}
		case field == fieldDescUpper && wt == wireBytes:
			b, err := r.bytes()
			if err != nil {
				return d, err
			}
			if d.Upper, err = decodeAntichain(b); err != nil {
				return d, err
			}
		case field == fieldDescSince && wt == wireBytes:
			b, err := r.bytes()
			if err != nil {
				return d, err
			}
			if d.Since, err = decodeAntichain(b); err != nil {
				return d, err
			}
		default:
			if err := r.skip(wt); err != nil {
				return d, err
			}
		}
	}
	return d, nil
}
