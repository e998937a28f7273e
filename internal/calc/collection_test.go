package calc

import (
	"testing"

	"partsync/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedCollectionPath(t *testing.T, db *gorm.DB) (*models.ShopifyCollection, *models.ShopifyCollection, *models.ShopifyCollection) {
	t.Helper()

	root := models.ShopifyCollection{Title: "stale root"}
	require.NoError(t, db.Create(&root).Error)
	branch := models.ShopifyCollection{Title: "stale branch", ParentID: &root.ID}
	require.NoError(t, db.Create(&branch).Error)
	leaf := models.ShopifyCollection{Title: "stale leaf", ParentID: &branch.ID}
	require.NoError(t, db.Create(&leaf).Error)

	require.NoError(t, db.Create(&models.SemaCategory{CategoryID: 1, Name: "Air & Fuel"}).Error)
	require.NoError(t, db.Create(&models.SemaCategory{CategoryID: 2, Name: "Intakes"}).Error)
	require.NoError(t, db.Create(&models.SemaCategory{CategoryID: 3, Name: "Cold Air Kits"}).Error)

	require.NoError(t, db.Create(&models.CategoryPath{
		RootCategoryID: 1, BranchCategoryID: 2, LeafCategoryID: 3,
		RootCollectionID: &root.ID, BranchCollectionID: &branch.ID, LeafCollectionID: &leaf.ID,
	}).Error)

	return &root, &branch, &leaf
}

func TestCollectionTitleByLevel(t *testing.T) {
	db := testDB(t)
	root, branch, leaf := seedCollectionPath(t, db)

	cases := []struct {
		collection *models.ShopifyCollection
		level      int
		want       string
	}{
		{root, 1, "Air & Fuel"},
		{branch, 2, "Air & Fuel // Intakes"},
		{leaf, 3, "Air & Fuel // Intakes // Cold Air Kits"},
	}
	for _, tc := range cases {
		cc, err := LoadCollection(db, tc.collection.ID)
		require.NoError(t, err)
		assert.Equal(t, tc.level, cc.Level)

		f := cc.Title()
		require.NotNil(t, f.Result, "level %d", tc.level)
		assert.Equal(t, tc.want, *f.Result)
	}
}

func TestCollectionTitleCustomChoice(t *testing.T) {
	db := testDB(t)
	collection := models.ShopifyCollection{Title: "whatever"}
	require.NoError(t, db.Create(&collection).Error)

	cc, err := LoadCollection(db, collection.ID)
	require.NoError(t, err)

	// Off every path, the default path-derived title has no opinion.
	f := cc.Title()
	assert.Nil(t, f.Result)
	assert.True(t, f.Match())

	cc.Settings.TitleChoice = SourceCustom
	cc.Settings.TitleCustom = "Featured"
	f = cc.Title()
	require.NotNil(t, f.Result)
	assert.Equal(t, "Featured", *f.Result)
}

func TestCollectionApplyWritesTitleAndTags(t *testing.T) {
	db := testDB(t)
	_, _, leaf := seedCollectionPath(t, db)

	cc, err := LoadCollection(db, leaf.ID)
	require.NoError(t, err)
	cc.Settings.TagsChoices = []string{TagSourceCollection, "custom_tag:featured"}

	changes, err := cc.Apply()
	require.NoError(t, err)
	require.Len(t, changes, 3)

	var reloaded models.ShopifyCollection
	require.NoError(t, db.Preload("Tags").First(&reloaded, "id = ?", leaf.ID).Error)
	assert.Equal(t, "Air & Fuel // Intakes // Cold Air Kits", reloaded.Title)
	require.Len(t, reloaded.Tags, 2)

	// Re-applying is a no-op.
	cc, err = LoadCollection(db, leaf.ID)
	require.NoError(t, err)
	cc.Settings.TagsChoices = []string{TagSourceCollection, "custom_tag:featured"}
	changes, err = cc.Apply()
	require.NoError(t, err)
	assert.Empty(t, changes)
}
