package wire

import (
	"github.com/persistdb/persist/metrics"
	"github.com/persistdb/persist/state"
)

// rawT is the unvalidated wire-level timestamp representation every decode
// in this package produces; a codec check (state.CheckCodecs) later maps
// it onto the deployment's real T.
type rawT = state.RawTS

// decodeCtx threads the optional metrics registry through a decode call
// tree so every migration site can report a hit without every leaf
// decoder needing its own registry parameter plumbed by the caller.
type decodeCtx struct {
	metrics        *metrics.Registry
	defaultLeaseMs uint64
}

func (c *decodeCtx) migrated(field string) {
	if c == nil || c.metrics == nil {
		return
	}
	c.metrics.MigrationApplied.WithLabelValues(field).Inc()
}
