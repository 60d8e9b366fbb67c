// Package wire implements the framed, gogoproto-shaped binary encoding of
// state and state-diffs: a stream of (field_number<<3 | wire_type, payload)
// tags, matching the shape the teacher's generated pb package produces
// (pb.PostingList.Marshal/Unmarshal), but hand-written here — no protoc is
// run by this module — using github.com/gogo/protobuf/proto's
// EncodeVarint/DecodeVarint helpers rather than a generated .pb.go. Field
// numbers are stable across versions; unknown fields are discarded on
// decode, which is why the applier-version gate (package version) exists.
package wire

import (
	"github.com/gogo/protobuf/proto"

	"github.com/persistdb/persist/errs"
)

const (
	wireVarint = 0
	wireBytes  = 2
)

func tag(field int, wireType int) uint64 {
	return uint64(field)<<3 | uint64(wireType)
}

// writer accumulates a message body as a plain byte slice, appending
// varint-tagged fields the same way a generated Marshal method would.
type writer struct {
	buf []byte
}

func newWriter() *writer {
	return &writer{}
}

func (w *writer) putVarint(v uint64) {
	w.buf = append(w.buf, proto.EncodeVarint(v)...)
}

func (w *writer) varint(field int, v uint64) {
	w.putVarint(tag(field, wireVarint))
	w.putVarint(v)
}

func (w *writer) bytes(field int, b []byte) {
	w.putVarint(tag(field, wireBytes))
	w.putVarint(uint64(len(b)))
	w.buf = append(w.buf, b...)
}

func (w *writer) str(field int, s string) {
	w.bytes(field, []byte(s))
}

// message writes a length-delimited embedded message whose body was built
// by a nested writer.
func (w *writer) message(field int, body []byte) {
	w.bytes(field, body)
}

func (w *writer) Bytes() []byte { return w.buf }

// reader scans a message body tag-by-tag, matching the generated
// Unmarshal loop's shape: read a tag, switch on field number, decode the
// payload according to the wire type, ignore anything unrecognized.
type reader struct {
	buf []byte
}

func newReader(b []byte) *reader {
	return &reader{buf: b}
}

func (r *reader) getVarint() (uint64, error) {
	v, n := proto.DecodeVarint(r.buf)
	if n == 0 {
		return 0, errs.NewInvalidPersistState("truncated varint")
	}
	r.buf = r.buf[n:]
	return v, nil
}

// next returns the next field number and wire type, and false once the
// message body is exhausted.
func (r *reader) next() (field int, wireType int, ok bool) {
	if len(r.buf) == 0 {
		return 0, 0, false
	}
	t, err := r.getVarint()
	if err != nil {
		return 0, 0, false
	}
	return int(t >> 3), int(t & 7), true
}

func (r *reader) varint() (uint64, error) {
	return r.getVarint()
}

func (r *reader) bytes() ([]byte, error) {
	n, err := r.getVarint()
	if err != nil {
		return nil, err
	}
	if uint64(len(r.buf)) < n {
		return nil, errs.NewInvalidPersistState("truncated length-delimited field: want %d have %d", n, len(r.buf))
	}
	b := r.buf[:n]
	r.buf = r.buf[n:]
	return b, nil
}

func (r *reader) str() (string, error) {
	b, err := r.bytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// skip discards a field's payload by wire type, for forward-compatible
// unknown-field tolerance: unknown fields encountered during decode are
// discarded.
func (r *reader) skip(wireType int) error {
	switch wireType {
	case wireVarint:
		_, err := r.getVarint()
		return err
	case wireBytes:
		_, err := r.bytes()
		return err
	default:
		return errs.NewInvalidPersistState("unsupported wire type %d", wireType)
	}
}
