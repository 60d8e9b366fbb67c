package frontier

import "encoding/binary"

// U64 is the concrete, totally-ordered TimeStamp implementation persist
// ships out of the box: a 64-bit unsigned logical timestamp, the common
// case for deployments that don't need a lattice-structured time domain.
type U64 uint64

// MinU64 is U64's minimum element, used by the migration default for
// most_recent_write_upper.
const MinU64 U64 = 0

func (t U64) LessEqual(other any) bool {
	return t <= other.(U64)
}

func (t U64) Less(other any) bool {
	return t < other.(U64)
}

// Encode reinterprets the unsigned value as signed 64-bit little-endian
// bytes, matching the wire format's reserved signed-varint space for
// timestamps. The reinterpretation is lossless for the 8-byte width and is
// undone symmetrically by DecodeU64.
func (t U64) Encode() [8]byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(int64(t)))
	return buf
}

// DecodeU64 is the inverse of U64.Encode.
func DecodeU64(buf [8]byte) U64 {
	signed := int64(binary.LittleEndian.Uint64(buf[:]))
	return U64(uint64(signed))
}
