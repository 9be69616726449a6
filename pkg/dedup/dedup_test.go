package dedup

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mwantia/gocatalog/pkg/db/models"
	"github.com/mwantia/gocatalog/pkg/db/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sha256("hello")
const helloHash = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"

func TestHashReader(t *testing.T) {
	hash, size, err := HashReader(bytes.NewBufferString("hello"))
	require.NoError(t, err)
	assert.Equal(t, helloHash, hash)
	assert.EqualValues(t, 5, size)
}

func TestHashFileAndCopy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hello.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	hash, size, err := HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, helloHash, hash)
	assert.EqualValues(t, 5, size)

	var copied bytes.Buffer
	hash, _, err = CopyAndHash(&copied, bytes.NewBufferString("hello"))
	require.NoError(t, err)
	assert.Equal(t, helloHash, hash)
	assert.Equal(t, "hello", copied.String())

	_, _, err = HashFile(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func openDetector(t *testing.T) (*Detector, *store.Repositories) {
	t.Helper()

	s, err := store.Open(context.Background(), store.SQLiteConfig{
		Path: filepath.Join(t.TempDir(), "catalog.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
	})

	repos := store.NewRepositories(s.DB(), nil)
	return NewDetector(repos.Files), repos
}

func createWithHash(t *testing.T, repos *store.Repositories, name, hash string) uint {
	t.Helper()

	id, err := repos.Files.Create(context.Background(), &models.File{
		Path: "/library/" + name,
		Name: name,
		Hash: hash,
	})
	require.NoError(t, err)
	return id
}

func TestDetector_CheckDuplicate(t *testing.T) {
	ctx := context.Background()
	detector, repos := openDetector(t)

	a := createWithHash(t, repos, "a.fbx", helloHash)
	b := createWithHash(t, repos, "b.fbx", helloHash)
	createWithHash(t, repos, "c.fbx", "other")

	duplicates, err := detector.CheckDuplicate(ctx, helloHash, 0)
	require.NoError(t, err)
	assert.Len(t, duplicates, 2)

	duplicates, err = detector.CheckDuplicate(ctx, helloHash, a)
	require.NoError(t, err)
	require.Len(t, duplicates, 1)
	assert.Equal(t, b, duplicates[0].ID)

	duplicates, err = detector.CheckDuplicate(ctx, "unknown", 0)
	require.NoError(t, err)
	assert.Empty(t, duplicates)
}

func TestDetector_Groups(t *testing.T) {
	detector, repos := openDetector(t)

	createWithHash(t, repos, "a.fbx", "pair")
	createWithHash(t, repos, "b.fbx", "pair")
	createWithHash(t, repos, "c.fbx", "triple")
	createWithHash(t, repos, "d.fbx", "triple")
	createWithHash(t, repos, "e.fbx", "triple")
	createWithHash(t, repos, "f.fbx", "unique")
	createWithHash(t, repos, "g.fbx", "")
	createWithHash(t, repos, "h.fbx", "")

	groups, err := detector.Groups(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Len(t, groups[0], 3)
	assert.Equal(t, "triple", groups[0][0].Hash)
	assert.Len(t, groups[1], 2)
	assert.Equal(t, "pair", groups[1][0].Hash)
}
