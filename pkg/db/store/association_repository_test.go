package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssociationRepository_LinkIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, repos := openTestStore(t)
	fileID := createFile(t, repos, "outfit.unitypackage")

	tag, err := repos.Tags.GetOrCreate(ctx, "outfit", "")
	require.NoError(t, err)

	linked, err := repos.Associations.Link(ctx, fileID, tag.ID)
	require.NoError(t, err)
	assert.True(t, linked)

	linked, err = repos.Associations.Link(ctx, fileID, tag.ID)
	require.NoError(t, err)
	assert.False(t, linked)

	stored, err := repos.Tags.Get(ctx, tag.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stored.UsageCount)
	assertUsageConsistent(t, s)
}

func TestAssociationRepository_LinkUnknownRecords(t *testing.T) {
	ctx := context.Background()
	_, repos := openTestStore(t)
	fileID := createFile(t, repos, "shoes.fbx")

	tag, err := repos.Tags.GetOrCreate(ctx, "shoes", "")
	require.NoError(t, err)

	_, err = repos.Associations.Link(ctx, 9999, tag.ID)
	assert.True(t, IsNotFound(err))

	_, err = repos.Associations.Link(ctx, fileID, 9999)
	assert.True(t, IsNotFound(err))

	_, err = repos.Associations.LinkByName(ctx, 9999, "never-created", "")
	assert.True(t, IsNotFound(err))
	_, err = repos.Tags.FindByName(ctx, "never-created")
	assert.True(t, IsNotFound(err))
}

func TestAssociationRepository_UnlinkLastDeletesTag(t *testing.T) {
	ctx := context.Background()
	s, repos := openTestStore(t)
	a := createFile(t, repos, "a.fbx")
	b := createFile(t, repos, "b.fbx")

	for _, id := range []uint{a, b} {
		_, err := repos.Associations.LinkByName(ctx, id, "shared", "")
		require.NoError(t, err)
	}
	tag, err := repos.Tags.FindByName(ctx, "shared")
	require.NoError(t, err)
	assert.EqualValues(t, 2, tag.UsageCount)

	unlinked, err := repos.Associations.Unlink(ctx, a, tag.ID)
	require.NoError(t, err)
	assert.True(t, unlinked)

	tag, err = repos.Tags.Get(ctx, tag.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, tag.UsageCount)

	unlinked, err = repos.Associations.UnlinkByName(ctx, b, "shared")
	require.NoError(t, err)
	assert.True(t, unlinked)

	_, err = repos.Tags.Get(ctx, tag.ID)
	assert.True(t, IsNotFound(err))
	assertUsageConsistent(t, s)
}

func TestAssociationRepository_UnlinkIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, repos := openTestStore(t)
	a := createFile(t, repos, "a.fbx")
	b := createFile(t, repos, "b.fbx")

	_, err := repos.Associations.LinkByName(ctx, a, "kept", "")
	require.NoError(t, err)
	tag, err := repos.Tags.FindByName(ctx, "kept")
	require.NoError(t, err)

	unlinked, err := repos.Associations.Unlink(ctx, b, tag.ID)
	require.NoError(t, err)
	assert.False(t, unlinked)

	unlinked, err = repos.Associations.UnlinkByName(ctx, a, "missing")
	require.NoError(t, err)
	assert.False(t, unlinked)

	tag, err = repos.Tags.Get(ctx, tag.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, tag.UsageCount)
	assertUsageConsistent(t, s)
}

func TestAssociationRepository_BatchLinkSkipsLinkedFiles(t *testing.T) {
	ctx := context.Background()
	s, repos := openTestStore(t)
	a := createFile(t, repos, "a.png")
	b := createFile(t, repos, "b.png")
	c := createFile(t, repos, "c.png")

	_, err := repos.Associations.LinkByName(ctx, a, "batch", "")
	require.NoError(t, err)

	result, err := repos.Associations.BatchLink(ctx, []uint{a, b, c, c}, "batch", "")
	require.NoError(t, err)
	assert.Equal(t, BatchLinkResult{Linked: 2, Skipped: 1}, result)

	tag, err := repos.Tags.FindByName(ctx, "batch")
	require.NoError(t, err)
	assert.EqualValues(t, 3, tag.UsageCount)
	assertUsageConsistent(t, s)
}

func TestAssociationRepository_BatchLinkUnknownFileAborts(t *testing.T) {
	ctx := context.Background()
	s, repos := openTestStore(t)
	a := createFile(t, repos, "a.png")

	_, err := repos.Associations.BatchLink(ctx, []uint{a, 9999}, "aborted", "")
	assert.True(t, IsNotFound(err))

	_, err = repos.Tags.FindByName(ctx, "aborted")
	assert.True(t, IsNotFound(err))

	tags, err := repos.Associations.ListTagsForFile(ctx, a)
	require.NoError(t, err)
	assert.Empty(t, tags)
	assertUsageConsistent(t, s)
}

func TestAssociationRepository_BatchLinkRejectsInvalidName(t *testing.T) {
	_, repos := openTestStore(t)
	a := createFile(t, repos, "a.png")

	_, err := repos.Associations.BatchLink(context.Background(), []uint{a}, " ", "")
	assert.True(t, IsValidation(err))
}

func TestAssociationRepository_BatchUnlink(t *testing.T) {
	ctx := context.Background()
	s, repos := openTestStore(t)
	a := createFile(t, repos, "a.png")
	b := createFile(t, repos, "b.png")
	c := createFile(t, repos, "c.png")

	_, err := repos.Associations.BatchLink(ctx, []uint{a, b}, "temp", "")
	require.NoError(t, err)

	result, err := repos.Associations.BatchUnlink(ctx, []uint{a, b, c}, "temp")
	require.NoError(t, err)
	assert.Equal(t, BatchUnlinkResult{Unlinked: 2, Skipped: 1}, result)

	_, err = repos.Tags.FindByName(ctx, "temp")
	assert.True(t, IsNotFound(err))

	result, err = repos.Associations.BatchUnlink(ctx, []uint{a, b}, "temp")
	require.NoError(t, err)
	assert.Equal(t, BatchUnlinkResult{Skipped: 2}, result)
	assertUsageConsistent(t, s)
}

func TestAssociationRepository_TagsForFiles(t *testing.T) {
	ctx := context.Background()
	_, repos := openTestStore(t)
	a := createFile(t, repos, "a.png")
	b := createFile(t, repos, "b.png")
	c := createFile(t, repos, "c.png")

	for _, name := range []string{"zeta", "alpha"} {
		_, err := repos.Associations.LinkByName(ctx, a, name, "")
		require.NoError(t, err)
	}
	_, err := repos.Associations.LinkByName(ctx, b, "alpha", "")
	require.NoError(t, err)

	tags, err := repos.Associations.TagsForFiles(ctx, []uint{a, b, c})
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, tagNames(tags[a]))
	assert.Equal(t, []string{"alpha"}, tagNames(tags[b]))
	assert.Empty(t, tags[c])

	single, err := repos.Associations.ListTagsForFile(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, tagNames(single))
}
