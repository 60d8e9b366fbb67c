package state

import "github.com/persistdb/persist/frontier"

// TypedState is a State<T> together with the codec names it was produced
// with — the typed view handed back once CheckCodecs has succeeded.
type TypedState[T frontier.TimeStamp] struct {
	State  State[T]
	Codecs CodecNames
}

