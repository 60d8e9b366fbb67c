// Package errs holds the recoverable error taxonomy shared by every persist
// component: identifier decoding, semver parsing, structural state
// invariants and the codec gate. Fatal (process-halting) conditions are not
// modeled as errors — see package version.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// InvalidShardID is returned whenever a stringly-encoded identifier fails
// prefix-plus-UUID validation. It is reused for every ID kind (shard,
// leased reader, critical reader, writer, idempotency token); the wrapping
// caller knows which domain it decoded.
type InvalidShardID struct {
	Raw string
}

func (e *InvalidShardID) Error() string {
	return fmt.Sprintf("invalid persist id: %q", e.Raw)
}

// NewInvalidShardID wraps a raw string that failed decode, with a caller
// supplied reason for the stack trace pkg/errors attaches.
func NewInvalidShardID(raw, reason string) error {
	return errors.Wrap(&InvalidShardID{Raw: raw}, reason)
}

// InvalidSemverVersion is returned when an applier_version string does not
// parse as a semantic version.
type InvalidSemverVersion struct {
	Raw string
}

func (e *InvalidSemverVersion) Error() string {
	return fmt.Sprintf("invalid applier version: %q", e.Raw)
}

// NewInvalidSemverVersion wraps a raw applier_version string that failed to
// parse as a semantic version, attaching the underlying parse error for
// context and a stack trace.
func NewInvalidSemverVersion(raw string, cause error) error {
	return errors.Wrap(&InvalidSemverVersion{Raw: raw}, cause.Error())
}

// InvalidPersistState is returned when a structural invariant of State or
// StateDiff is violated: a missing required sub-message, a since-frontier
// monotonicity failure, or a field-diff array length mismatch.
type InvalidPersistState struct {
	Msg string
}

func (e *InvalidPersistState) Error() string {
	return "invalid persist state: " + e.Msg
}

// NewInvalidPersistState builds an InvalidPersistState with a formatted
// message and attaches a stack trace.
func NewInvalidPersistState(format string, args ...any) error {
	return errors.WithStack(&InvalidPersistState{Msg: fmt.Sprintf(format, args...)})
}

// CodecMismatch reports that one of the four codec-name strings (key,
// value, timestamp, diff) did not match between a requested and an actual
// tuple.
type CodecMismatch struct {
	Requested, Actual CodecTuple
}

// CodecTuple is the (key, val, ts, diff) codec-name tuple carried on State.
type CodecTuple struct {
	Key, Val, Ts, Diff string
}

func (e *CodecMismatch) Error() string {
	return fmt.Sprintf("persist codec mismatch: requested %+v, actual %+v", e.Requested, e.Actual)
}

// CodecMismatchT is the weaker timestamp-only variant used by
// check_ts_codec, when the caller intends to read metadata but not decode
// payloads.
type CodecMismatchT struct {
	Requested, Actual string
}

func (e *CodecMismatchT) Error() string {
	return fmt.Sprintf("persist timestamp codec mismatch: requested %q, actual %q", e.Requested, e.Actual)
}
