package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/mwantia/gocatalog/pkg/db/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFile_NeverReplacesExistingTarget(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "data.bin")
	require.NoError(t, os.WriteFile(target, []byte("original"), 0o644))

	_, _, err := writeFile(target, strings.NewReader("replacement"))
	require.Error(t, err)
	assert.True(t, store.IsConflict(err))
	assert.Equal(t, "original", readFile(t, target))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must be removed")
}

func TestWriteFile_CreatesTarget(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "data.bin")

	hash, size, err := writeFile(target, strings.NewReader("hello"))
	require.NoError(t, err)
	assert.EqualValues(t, 5, size)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", hash)
	assert.Equal(t, "hello", readFile(t, target))
}

func TestPathLocks_SerializeSamePath(t *testing.T) {
	locks := newPathLocks()

	var (
		wait    sync.WaitGroup
		active  int
		maximum int
		mutex   sync.Mutex
	)
	for range 8 {
		wait.Add(1)
		go func() {
			defer wait.Done()
			unlock := locks.lock("/library/a.txt")
			defer unlock()

			mutex.Lock()
			active++
			maximum = max(maximum, active)
			mutex.Unlock()

			mutex.Lock()
			active--
			mutex.Unlock()
		}()
	}
	wait.Wait()

	assert.Equal(t, 1, maximum)
	assert.Empty(t, locks.held)
}
