package lockfile_test

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"btrsnap/src/lockfile"
)

func TestAcquireAndRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "btrsnap.lock")

	lock, err := lockfile.Acquire(path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), strings.TrimSpace(string(data)))

	require.NoError(t, lock.Release())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestSecondAcquireFailsFast(t *testing.T) {
	path := filepath.Join(t.TempDir(), "btrsnap.lock")

	lock, err := lockfile.Acquire(path)
	require.NoError(t, err)
	defer lock.Release()

	_, err = lockfile.Acquire(path)
	require.ErrorIs(t, err, lockfile.ErrLocked)
}

func TestAcquireAfterRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "btrsnap.lock")

	lock, err := lockfile.Acquire(path)
	require.NoError(t, err)
	require.NoError(t, lock.Release())

	again, err := lockfile.Acquire(path)
	require.NoError(t, err)
	require.NoError(t, again.Release())
}
