//go:build unix

package lock

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLock_Exclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sweeper.lock")
	first := NewFileLock(path)
	second := NewFileLock(path)

	ok, err := first.TryLock()
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = first.TryLock()
	require.NoError(t, err)
	assert.True(t, ok, "re-locking by the holder succeeds")

	ok, err = second.TryLock()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, first.Unlock())

	ok, err = second.TryLock()
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, second.Unlock())
	assert.NoError(t, second.Unlock())
}
