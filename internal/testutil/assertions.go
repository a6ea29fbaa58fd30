package testutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// AssertRendered checks that the run succeeded and its output contains every
// fragment, in order.
func AssertRendered(t *testing.T, result *HarnessResult, fragments ...string) {
	t.Helper()

	require.NoError(t, result.Err)
	rest := result.Output
	for _, f := range fragments {
		i := strings.Index(rest, f)
		require.GreaterOrEqual(t, i, 0, "expected %q in output (in order), got:\n%s", f, result.Output)
		rest = rest[i+len(f):]
	}
}

// AssertLogged checks the log output for a message substring.
func AssertLogged(t *testing.T, result *HarnessResult, substring string) {
	t.Helper()

	require.True(t,
		strings.Contains(result.LogOutput, substring),
		"expected log output to contain %q", substring,
	)
}
