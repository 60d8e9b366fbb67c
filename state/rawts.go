package state

// RawTS is the placeholder timestamp representation used by UntypedState:
// the raw 8 bytes a wire-decoded antichain element carries, before the
// timestamp codec is known and the bytes can be interpreted under T's real
// partial order. Two distinct RawTS values are treated as incomparable —
// UntypedState must never claim an ordering it hasn't validated.
type RawTS [8]byte

// LessEqual implements frontier.TimeStamp with the only relation UntypedState
// can assert without a codec: equality.
func (r RawTS) LessEqual(other any) bool {
	return r == other.(RawTS)
}

// Encode returns r verbatim; RawTS already is the 8-byte wire
// representation.
func (r RawTS) Encode() [8]byte { return r }
