package wire

import (
	"github.com/dgraph-io/ristretto"
	"github.com/dgraph-io/ristretto/z"

	"github.com/persistdb/persist/config"
	stdiff "github.com/persistdb/persist/diff"
	"github.com/persistdb/persist/metrics"
	"github.com/persistdb/persist/state"
)

// ApplyEncodedDiffs is the exposed interface's
// `UntypedState::apply_encoded_diffs`: a silent no-op, touching neither u
// nor returning an error, when u's stored timestamp codec does not equal
// wantTsCodec — an alien shard's diffs must never be allowed to corrupt an
// unvalidated in-memory state, and the caller's subsequent check_codecs
// will surface the mismatch on its own.
// Diffs are applied in order; apply is not commutative, so the first diff
// whose seqno_from does not match u's current seqno fails the whole call,
// leaving u unchanged at the state it had on entry to this call.
func ApplyEncodedDiffs(u *state.UntypedState, wantTsCodec string, diffs [][]byte, cfg config.Config, halt haltFunc, metricsReg *metrics.Registry) error {
	if u.Codecs.Ts != wantTsCodec {
		return nil
	}
	ctx := &decodeCtx{metrics: metricsReg, defaultLeaseMs: uint64(cfg.DefaultReadLeaseDuration.Milliseconds())}
	current := state.TypedState[rawT]{State: u.State, Codecs: u.Codecs}
	for _, body := range diffs {
		if metricsReg != nil {
			metricsReg.DecodeCalls.WithLabelValues("diff").Inc()
		}
		d, err := DecodeDiff(body, cfg.BuildVersion, halt, ctx)
		if err != nil {
			return err
		}
		current, err = stdiff.Apply(current, d)
		if err != nil {
			return err
		}
	}
	u.State = current.State
	return nil
}

// Cache is the decode memoization cache: rollup bytes are content-addressed
// by a 64-bit fingerprint (ristretto/z.MemHash) and cached via
// github.com/dgraph-io/ristretto — the teacher's own lCache — so repeated
// decode-then-check_codecs calls for the same rollup bytes skip
// re-parsing. A nil *Cache disables memoization; correctness never depends
// on a hit.
type Cache struct {
	inner *ristretto.Cache
}

// NewCache builds a Cache sized for maxItems decoded rollups.
func NewCache(maxItems int64) (*Cache, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxItems * 10,
		MaxCost:     maxItems,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{inner: c}, nil
}

func (c *Cache) get(b []byte) (state.UntypedState, bool) {
	if c == nil || c.inner == nil {
		return state.UntypedState{}, false
	}
	v, ok := c.inner.Get(z.MemHash(b))
	if !ok {
		return state.UntypedState{}, false
	}
	return v.(state.UntypedState), true
}

func (c *Cache) set(b []byte, u state.UntypedState) {
	if c == nil || c.inner == nil {
		return
	}
	c.inner.Set(z.MemHash(b), u, 1)
}

// Decode is the exposed interface's `UntypedState::decode`: it enforces
// the applier-version gate (halting via halt, or version.DefaultHalt if
// halt is nil) and consults cache before re-parsing. metricsReg,
// if non-nil, counts decode calls and cache hits/misses.
func Decode(body []byte, cfg config.Config, halt haltFunc, cache *Cache, metricsReg *metrics.Registry) (state.UntypedState, error) {
	if metricsReg != nil {
		metricsReg.DecodeCalls.WithLabelValues("rollup").Inc()
	}
	if u, ok := cache.get(body); ok {
		if metricsReg != nil {
			metricsReg.DecodeCacheHits.Inc()
		}
		return u, nil
	}
	if metricsReg != nil {
		metricsReg.DecodeCacheMisses.Inc()
	}
	leaseMs := uint64(cfg.DefaultReadLeaseDuration.Milliseconds())
	u, err := DecodeState(body, cfg.BuildVersion, leaseMs, halt, metricsReg)
	if err != nil {
		return state.UntypedState{}, err
	}
	cache.set(body, u)
	return u, nil
}

// DecodeDiffBytes is the exposed interface's `StateDiff::decode`.
func DecodeDiffBytes(body []byte, cfg config.Config, halt haltFunc, metricsReg *metrics.Registry) (stdiff.StateDiff[rawT], error) {
	if metricsReg != nil {
		metricsReg.DecodeCalls.WithLabelValues("diff").Inc()
	}
	ctx := &decodeCtx{metrics: metricsReg, defaultLeaseMs: uint64(cfg.DefaultReadLeaseDuration.Milliseconds())}
	return DecodeDiff(body, cfg.BuildVersion, halt, ctx)
}

// haltFunc mirrors version.HaltFunc without importing package version in
// this file's signature surface (both resolve to the same underlying
// function type).
type haltFunc = func(format string, args ...any)
