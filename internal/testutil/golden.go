package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// updateEnv names the variable that rewrites golden files instead of
// comparing against them.
const updateEnv = "GOLDEN_UPDATE"

// GoldenPath returns testdata/<name>.golden relative to the test's package.
func GoldenPath(name string) string {
	return filepath.Join("testdata", name+".golden")
}

// GoldenString compares CLI output against testdata/<name>.golden.
// Line endings are normalized so checkouts with CRLF still match.
func GoldenString(t *testing.T, name string, got string) {
	t.Helper()

	path := GoldenPath(name)
	if os.Getenv(updateEnv) != "" {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(got), 0o644))
		return
	}

	want, err := os.ReadFile(path)
	require.NoError(t, err, "missing golden file %s (run with %s=1)", path, updateEnv)

	assert.Equal(t, normalizeNewlines(string(want)), normalizeNewlines(got), "output mismatch for %s", name)
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}
