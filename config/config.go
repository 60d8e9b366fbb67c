// Package config holds the process-wide tunables the codec and trace
// packages need but cannot hardcode: the running build's own version (for
// the applier-version gate), default lease durations synthesized by the
// legacy-field migrations, the rehydration progress-report cadence, and
// the clock collaborator.
package config

import (
	"time"

	"github.com/Masterminds/semver/v3"
)

// DefaultReadLeaseDurationMs is the platform default read-lease duration
// the migration synthesizes for a leased reader whose wire record carries
// lease_duration_ms absent or 0. 60 seconds, matching the teacher's
// lease-renewal cadence conventions elsewhere in the stack.
const DefaultReadLeaseDurationMs = uint64(60_000)

// DefaultWriterLeaseDurationMs is the default write-lease duration that
// Default puts into Config.DefaultWriterLeaseDuration.
const DefaultWriterLeaseDurationMs = uint64(60_000)

// DefaultRehydrateReportEvery is how often (in batches pushed) trace
// rehydration reports progress: every 1,000 batches.
const DefaultRehydrateReportEvery = 1000

// Config bundles the tunables threaded through decode, migration and
// rehydration.
type Config struct {
	// BuildVersion is this process's own applier version, compared against
	// every decoded applier_version by the version gate.
	BuildVersion *semver.Version

	// DefaultReadLeaseDuration is substituted for an absent/zero
	// lease_duration_ms on a leased reader.
	DefaultReadLeaseDuration time.Duration

	// DefaultWriterLeaseDuration is the default write-lease duration. The
	// wire decoders do not read it: a writer record with an absent/zero
	// lease_duration_ms gets DefaultReadLeaseDuration instead.
	DefaultWriterLeaseDuration time.Duration

	// RehydrateReportEvery is the batch-count cadence for trace
	// rehydration progress callbacks; 0 disables reporting.
	RehydrateReportEvery int

	// Now returns the current wall-clock time; the sole clock
	// collaborator the core consumes.
	Now func() time.Time
}

// Default builds a Config with the package defaults and buildVersion as
// the process's applier version.
func Default(buildVersion *semver.Version) Config {
	return Config{
		BuildVersion:               buildVersion,
		DefaultReadLeaseDuration:   time.Duration(DefaultReadLeaseDurationMs) * time.Millisecond,
		DefaultWriterLeaseDuration: time.Duration(DefaultWriterLeaseDurationMs) * time.Millisecond,
		RehydrateReportEvery:       DefaultRehydrateReportEvery,
		Now:                        time.Now,
	}
}

// NowMs returns the current wall-clock time in milliseconds, the unit
// every heartbeat and walltime_ms field on State uses.
func (c Config) NowMs() uint64 {
	return uint64(c.Now().UnixMilli())
}
