// Package version implements the applier-version gate: the declarative
// check that a process refuses to decode state or a diff written by a
// newer applier than itself, because it cannot know whether it would
// silently drop fields on re-encode and permanently lose state after the
// next CaS.
package version

import (
	"github.com/Masterminds/semver/v3"
	"github.com/golang/glog"

	"github.com/persistdb/persist/errs"
)

// Zero is the version an empty applier_version string decodes as.
// Backward compatibility is infinite: Zero is always accepted by Check.
var Zero = semver.MustParse("0.0.0")

// Parse parses an applier_version wire string, treating the empty string
// as Zero rather than a parse error.
func Parse(raw string) (*semver.Version, error) {
	if raw == "" {
		return Zero, nil
	}
	v, err := semver.NewVersion(raw)
	if err != nil {
		return nil, errs.NewInvalidSemverVersion(raw, err)
	}
	return v, nil
}

// HaltFunc is the abrupt-halt primitive the applier-version gate invokes when
// the decoded applier_version is from the future. It is injectable so
// tests can substitute a non-exiting recorder instead of actually
// terminating the process; the production default logs via glog and exits
// with a non-zero status, matching the teacher's glog.Fatalf convention
// (posting/mvcc.go logs then lets glog's Fatal path os.Exit).
type HaltFunc func(format string, args ...any)

// DefaultHalt logs the diagnostic at FATAL and terminates the process. It
// does not return.
func DefaultHalt(format string, args ...any) {
	glog.Fatalf(format, args...)
}

// Check compares the running process's buildVersion against a decoded
// applier_version. If buildVersion is older, it invokes halt with a
// diagnostic of the exact form the spec requires ("<build_version>
// received persist state from the future <applier_version>") and does not
// return to the caller in the production configuration. Forward
// compatibility is zero: any applier_version strictly greater than
// buildVersion halts, even by a patch version.
func Check(buildVersion, applierVersion *semver.Version, halt HaltFunc) {
	if applierVersion.GreaterThan(buildVersion) {
		if halt == nil {
			halt = DefaultHalt
		}
		halt("%s received persist state from the future %s", buildVersion, applierVersion)
	}
}
