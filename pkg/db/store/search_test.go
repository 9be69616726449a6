package store

import (
	"context"
	"testing"

	"github.com/mwantia/gocatalog/pkg/db/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedSearchFixture(t *testing.T, repos *Repositories) (red, blue, green uint) {
	t.Helper()
	ctx := context.Background()

	red = createSearchFile(t, repos, "red_dress.fbx", "Atelier", "Summer Dress")
	blue = createSearchFile(t, repos, "blue_dress.fbx", "atelier", "Winter Coat")
	green = createSearchFile(t, repos, "100%_green.png", "Other", "Texture Pack")

	for fileID, names := range map[uint][]string{
		red:   {"dress", "red"},
		blue:  {"dress", "blue"},
		green: {"texture"},
	} {
		for _, name := range names {
			_, err := repos.Associations.LinkByName(ctx, fileID, name, "")
			require.NoError(t, err)
		}
	}
	return red, blue, green
}

func createSearchFile(t *testing.T, repos *Repositories, name, shop, product string) uint {
	t.Helper()

	id, err := repos.Files.Create(context.Background(), &models.File{
		Path:        "/library/" + shop + "/" + product + "/" + name,
		Name:        name,
		ShopName:    shop,
		ProductName: product,
	})
	require.NoError(t, err)
	return id
}

func fileIDs(results []models.FileWithTags) []uint {
	ids := make([]uint, 0, len(results))
	for _, result := range results {
		ids = append(ids, result.File.ID)
	}
	return ids
}

func TestSearchEngine_ByTagsRequiresAll(t *testing.T) {
	ctx := context.Background()
	_, repos := openTestStore(t)
	red, blue, _ := seedSearchFixture(t, repos)

	results, err := repos.Search.SearchByTags(ctx, []string{"dress"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{red, blue}, fileIDs(results))

	results, err = repos.Search.SearchByTags(ctx, []string{"dress", "red", "dress"})
	require.NoError(t, err)
	require.Equal(t, []uint{red}, fileIDs(results))
	assert.Equal(t, []string{"dress", "red"}, tagNames(results[0].Tags))

	results, err = repos.Search.SearchByTags(ctx, []string{"dress", "unknown"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchEngine_ByTextIsCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	_, repos := openTestStore(t)
	red, blue, green := seedSearchFixture(t, repos)

	results, err := repos.Search.SearchByText(ctx, "ATELIER")
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{red, blue}, fileIDs(results))

	results, err = repos.Search.SearchByText(ctx, "coat")
	require.NoError(t, err)
	assert.Equal(t, []uint{blue}, fileIDs(results))

	results, err = repos.Search.SearchByText(ctx, "  ")
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{red, blue, green}, fileIDs(results))
}

func TestSearchEngine_ByTextEscapesWildcards(t *testing.T) {
	ctx := context.Background()
	_, repos := openTestStore(t)
	_, _, green := seedSearchFixture(t, repos)

	results, err := repos.Search.SearchByText(ctx, "100%_")
	require.NoError(t, err)
	assert.Equal(t, []uint{green}, fileIDs(results))

	results, err = repos.Search.SearchByText(ctx, "_dress")
	require.NoError(t, err)
	assert.Len(t, results, 2)

	results, err = repos.Search.SearchByText(ctx, "%")
	require.NoError(t, err)
	assert.Equal(t, []uint{green}, fileIDs(results))
}

func TestSearchEngine_CombinedQuery(t *testing.T) {
	ctx := context.Background()
	_, repos := openTestStore(t)
	_, blue, _ := seedSearchFixture(t, repos)

	results, err := repos.Search.Search(ctx, Query{Text: "winter", Tags: []string{"dress"}})
	require.NoError(t, err)
	assert.Equal(t, []uint{blue}, fileIDs(results))

	results, err = repos.Search.Search(ctx, Query{Text: "winter", Tags: []string{"red"}})
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = repos.Search.Search(ctx, Query{})
	require.NoError(t, err)
	assert.Len(t, results, 3)
	for _, result := range results {
		assert.NotNil(t, result.Tags)
	}
}

func TestFileRepository_SearchByText(t *testing.T) {
	_, repos := openTestStore(t)
	red, _, _ := seedSearchFixture(t, repos)

	files, err := repos.Files.SearchByText(context.Background(), "summer")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, red, files[0].ID)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\%\_off\\`, escapeLike(`50%_off\`))
	assert.Equal(t, []string{"a", "b"}, uniqueNames([]string{" a", "", "b", "a"}))
}
