package version

import (
	"fmt"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/require"
)

func TestParseEmptyIsZero(t *testing.T) {
	v, err := Parse("")
	require.NoError(t, err)
	require.True(t, v.Equal(Zero))
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse("not-a-version")
	require.Error(t, err)
}

func TestCheckAcceptsBackwardCompat(t *testing.T) {
	halted := false
	halt := func(format string, args ...any) { halted = true }
	build := semver.MustParse("3.0.0")
	applier := semver.MustParse("2.0.0")
	Check(build, applier, halt)
	require.False(t, halted)
}

func TestCheckAcceptsEqual(t *testing.T) {
	halted := false
	halt := func(format string, args ...any) { halted = true }
	v := semver.MustParse("2.0.0")
	Check(v, v, halt)
	require.False(t, halted)
}

func TestCheckHaltsOnFutureApplierVersion(t *testing.T) {
	var msg string
	halt := func(format string, args ...any) { msg = fmt.Sprintf(format, args...) }
	build := semver.MustParse("1.0.0")
	applier := semver.MustParse("3.0.0")
	Check(build, applier, halt)
	require.Contains(t, msg, "1.0.0")
	require.Contains(t, msg, "3.0.0")
	require.Contains(t, msg, "received persist state from the future")
}

func TestCheckHaltsEvenOnPatchDifference(t *testing.T) {
	halted := false
	halt := func(format string, args ...any) { halted = true }
	Check(semver.MustParse("2.0.0"), semver.MustParse("2.0.1"), halt)
	require.True(t, halted)
}
