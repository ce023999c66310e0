package osutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCgroupLimit(t *testing.T) {
	limit, ok := parseCgroupLimit("536870912\n")
	assert.True(t, ok)
	assert.EqualValues(t, 536870912, limit)

	for _, raw := range []string{"max\n", "9223372036854771712", "0", "garbage"} {
		_, ok := parseCgroupLimit(raw)
		assert.False(t, ok, raw)
	}
}

func TestTotalMemory(t *testing.T) {
	dir := t.TempDir()
	v2 := filepath.Join(dir, "memory.max")
	v1 := filepath.Join(dir, "memory.limit_in_bytes")
	missing := filepath.Join(dir, "missing")

	assert.EqualValues(t, 4096, totalMemory(4096, []string{missing}))

	require.NoError(t, os.WriteFile(v1, []byte("1024\n"), 0o600))
	assert.EqualValues(t, 1024, totalMemory(4096, []string{missing, v1}))

	require.NoError(t, os.WriteFile(v2, []byte("max\n"), 0o600))
	assert.EqualValues(t, 4096, totalMemory(4096, []string{v2, v1}))

	require.NoError(t, os.WriteFile(v2, []byte("2048\n"), 0o600))
	assert.EqualValues(t, 2048, totalMemory(4096, []string{v2, v1}))

	assert.EqualValues(t, 1000, totalMemory(1000, []string{v2}))
}
