package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"codeberg.org/mutker/opratectl/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndRemove(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")

	require.NoError(t, Write(dir))

	data, err := os.ReadFile(Path(dir))
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(data))

	// Rewriting our own PID is not a conflict.
	require.NoError(t, Write(dir))

	require.NoError(t, Remove(dir))
	_, err = os.Stat(Path(dir))
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, Remove(dir))
}

func TestWriteReplacesStaleFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(Path(dir), []byte("garbage"), 0o600))

	require.NoError(t, Write(dir))

	data, err := os.ReadFile(Path(dir))
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(data))
}

func TestWriteDetectsRunningProcess(t *testing.T) {
	dir := t.TempDir()
	// The parent of the test binary is alive for the duration of the test.
	require.NoError(t, os.WriteFile(Path(dir), []byte(strconv.Itoa(os.Getppid())), 0o600))

	err := Write(dir)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrAlreadyRunning))
}

func TestPathDefaultsToTempDir(t *testing.T) {
	assert.Equal(t, filepath.Join(os.TempDir(), "opratectl.pid"), Path(""))
}
