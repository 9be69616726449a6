package catalog

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/mwantia/gocatalog/pkg/db/models"
	"github.com/mwantia/gocatalog/pkg/db/store"
	"github.com/mwantia/gocatalog/pkg/ingest"
	"github.com/mwantia/gocatalog/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (*Service, *store.SQLiteStore, string) {
	t.Helper()

	s, err := store.Open(context.Background(), store.SQLiteConfig{
		Path: filepath.Join(t.TempDir(), "catalog.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
	})

	root := filepath.Join(t.TempDir(), "library")
	svc, err := New(s, log.NewNopLogger(), Options{
		Root:    root,
		Workers: 2,
	})
	require.NoError(t, err)
	return svc, s, root
}

func writeZip(t *testing.T, name string, files map[string]string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	out, err := os.Create(path)
	require.NoError(t, err)
	defer out.Close()

	writer := zip.NewWriter(out)
	for entry, content := range files {
		w, err := writer.CreateHeader(&zip.FileHeader{
			Name:     entry,
			Method:   zip.Deflate,
			Modified: time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC),
		})
		require.NoError(t, err)
		_, err = io.WriteString(w, content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return path
}

func assertUsageConsistent(t *testing.T, s *store.SQLiteStore) {
	t.Helper()

	var drifted int64
	err := s.DB().Raw(`SELECT COUNT(*) FROM tags
		WHERE usage_count <> (SELECT COUNT(*) FROM file_tags WHERE file_tags.tag_id = tags.id)`).
		Scan(&drifted).Error
	require.NoError(t, err)
	assert.Zero(t, drifted, "usage counters drifted from file_tags")

	var dangling int64
	err = s.DB().Raw(`SELECT COUNT(*) FROM file_tags
		WHERE file_id NOT IN (SELECT id FROM files) OR tag_id NOT IN (SELECT id FROM tags)`).
		Scan(&dangling).Error
	require.NoError(t, err)
	assert.Zero(t, dangling, "file_tags reference missing rows")
}

func ingestZip(t *testing.T, svc *Service, name, url string, tags []string, files map[string]string) ingest.Result {
	t.Helper()

	result := svc.Ingest(context.Background(), ingest.Request{
		ArchivePath:    writeZip(t, name, files),
		MarketplaceURL: url,
		Tags:           tags,
	})
	require.True(t, result.Success, result.Message)
	return result
}

func TestNew_RequiresRoot(t *testing.T) {
	_, s, _ := newService(t)

	_, err := New(s, log.NewNopLogger(), Options{})
	assert.Error(t, err)
}

func TestService_IngestThenReconcileIsClean(t *testing.T) {
	ctx := context.Background()
	svc, s, root := newService(t)

	result := ingestZip(t, svc, "outfit.zip", "https://atelier.booth.pm/items/100", []string{"outfit"}, map[string]string{
		"outfit.fbx":        "mesh",
		"textures/main.png": "texture",
	})
	assert.Equal(t, 2, result.Registered)
	assert.Equal(t, filepath.Join(root, "atelier", "product_100"), result.Destination)

	sync, err := svc.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sync.TotalFiles)
	assert.Empty(t, sync.MissingFiles)
	assert.Zero(t, sync.OrphanedFilesCount)
	assert.Zero(t, sync.UpdatedFilesCount)

	last, err := svc.LastSync(ctx)
	require.NoError(t, err)
	assert.Equal(t, sync.RunID, last.ID)
	assertUsageConsistent(t, s)
}

func TestService_DeleteFile(t *testing.T) {
	ctx := context.Background()
	svc, s, _ := newService(t)

	result := ingestZip(t, svc, "pair.zip", "", []string{"pair"}, map[string]string{
		"a.txt": "a",
		"b.txt": "b",
	})
	first, second := result.Entries[0], result.Entries[1]

	deleted, err := svc.DeleteFile(ctx, first.FileID, true)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.NoFileExists(t, first.FilePath)

	deleted, err = svc.DeleteFile(ctx, second.FileID, false)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.FileExists(t, second.FilePath)

	deleted, err = svc.DeleteFile(ctx, second.FileID, false)
	require.NoError(t, err)
	assert.False(t, deleted)

	tags, err := svc.ListTags(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, tags, "tag must disappear with its last file")

	sync, err := svc.Reconcile(ctx)
	require.NoError(t, err)
	assert.Zero(t, sync.TotalFiles)
	assert.Equal(t, 1, sync.OrphanedFilesCount)
	assertUsageConsistent(t, s)
}

func TestService_SyncCleanup(t *testing.T) {
	ctx := context.Background()
	svc, s, _ := newService(t)

	result := ingestZip(t, svc, "cleanup.zip", "", []string{"shared"}, map[string]string{
		"keep.txt": "keep",
		"lost.txt": "lost",
	})
	var kept, lost ingest.EntryResult
	for _, entry := range result.Entries {
		if entry.EntryPath == "lost.txt" {
			lost = entry
		} else {
			kept = entry
		}
	}
	_, err := svc.LinkTag(ctx, lost.FileID, "only-lost", "")
	require.NoError(t, err)
	require.NoError(t, os.Remove(lost.FilePath))

	sync, err := svc.Reconcile(ctx)
	require.NoError(t, err)
	require.Len(t, sync.MissingFiles, 1)
	assert.Equal(t, lost.FileID, sync.MissingFiles[0].ID)

	ids := []uint{sync.MissingFiles[0].ID}
	removed, err := svc.RemoveMissing(ctx, ids)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	removed, err = svc.RemoveMissing(ctx, ids)
	require.NoError(t, err)
	assert.Zero(t, removed)

	tags, err := svc.ListTags(ctx, true)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "shared", tags[0].Name)
	assert.EqualValues(t, 1, tags[0].UsageCount)

	file, err := svc.GetFile(ctx, kept.FileID)
	require.NoError(t, err)
	assert.Len(t, file.Tags, 1)
	assertUsageConsistent(t, s)
}

func TestService_TagOperations(t *testing.T) {
	ctx := context.Background()
	svc, s, _ := newService(t)

	result := ingestZip(t, svc, "tags.zip", "", nil, map[string]string{
		"a.txt": "a",
		"b.txt": "b",
		"c.txt": "c",
	})
	ids := []uint{result.Entries[0].FileID, result.Entries[1].FileID, result.Entries[2].FileID}

	linked, err := svc.LinkTag(ctx, ids[0], "favorite", "")
	require.NoError(t, err)
	assert.True(t, linked)

	batch, err := svc.BatchLinkTag(ctx, ids, "favorite", "")
	require.NoError(t, err)
	assert.Equal(t, store.BatchLinkResult{Linked: 2, Skipped: 1}, batch)

	tags, err := svc.ListTags(ctx, false)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.EqualValues(t, 3, tags[0].UsageCount)
	assert.Equal(t, store.DefaultTagColor, tags[0].Color)

	found, err := svc.SearchByTags(ctx, []string{"favorite"})
	require.NoError(t, err)
	assert.Len(t, found, 3)

	unlinked, err := svc.UnlinkTag(ctx, ids[0], "favorite")
	require.NoError(t, err)
	assert.True(t, unlinked)

	unbatch, err := svc.BatchUnlinkTag(ctx, ids, "favorite")
	require.NoError(t, err)
	assert.Equal(t, store.BatchUnlinkResult{Unlinked: 2, Skipped: 1}, unbatch)

	tags, err = svc.ListTags(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, tags)

	_, err = svc.CreateTag(ctx, "manual", "#123456", nil, nil)
	require.NoError(t, err)
	tags, err = svc.ListTags(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, tags)
	tags, err = svc.ListTags(ctx, true)
	require.NoError(t, err)
	assert.Len(t, tags, 1)

	deleted, err := svc.BatchDeleteFiles(ctx, ids[:2])
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	files, err := svc.ListFiles(ctx)
	require.NoError(t, err)
	assert.Len(t, files, 1)
	assertUsageConsistent(t, s)
}

func TestService_CreateTagWithParent(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	parent, err := svc.CreateTag(ctx, "avatars", "", nil, nil)
	require.NoError(t, err)
	assert.Nil(t, parent.ParentID)

	category := "base"
	child, err := svc.CreateTag(ctx, "manuka", "#00FF00", &category, &parent.ID)
	require.NoError(t, err)
	require.NotNil(t, child.ParentID)
	assert.Equal(t, parent.ID, *child.ParentID)
	assert.Equal(t, "base", *child.Category)

	missing := uint(4242)
	_, err = svc.CreateTag(ctx, "stray", "", nil, &missing)
	assert.True(t, store.IsNotFound(err))
}

func TestService_SearchAndMarketplaceURL(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	result := ingestZip(t, svc, "search.zip", "https://dressmaker.booth.pm/items/55", []string{"dress"}, map[string]string{
		"gown.fbx": "gown",
	})
	id := result.Entries[0].FileID

	found, err := svc.SearchByText(ctx, "DRESSMAKER")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, id, found[0].File.ID)

	found, err = svc.Search(ctx, store.Query{Text: "gown", Tags: []string{"dress"}})
	require.NoError(t, err)
	assert.Len(t, found, 1)

	invalid := "https://example.com/items/1"
	assert.True(t, store.IsValidation(svc.UpdateMarketplaceURL(ctx, id, &invalid)))

	require.NoError(t, svc.UpdateMarketplaceURL(ctx, id, nil))
	file, err := svc.GetFile(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, file.File.MarketplaceURL)
	assert.Equal(t, "dressmaker", file.File.ShopName)
}

func TestService_Duplicates(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	ingestZip(t, svc, "one.zip", "", nil, map[string]string{"a.txt": "identical"})
	second := ingestZip(t, svc, "two.zip", "", nil, map[string]string{"b.txt": "identical", "c.txt": "unique"})
	assert.True(t, second.HasDuplicates)

	groups, err := svc.Duplicates(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Len(t, groups[0], 2)
}

func TestService_RecountTags(t *testing.T) {
	ctx := context.Background()
	svc, s, _ := newService(t)

	ingestZip(t, svc, "recount.zip", "", []string{"counted"}, map[string]string{"a.txt": "a"})
	require.NoError(t, s.DB().Model(&models.Tag{}).Where("name = ?", "counted").Update("usage_count", 9).Error)

	corrected, err := svc.RecountTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, corrected)
	assertUsageConsistent(t, s)
}
