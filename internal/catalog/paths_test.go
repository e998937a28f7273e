package catalog

import (
	"context"
	"testing"

	"partsync/internal/logger"
	"partsync/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedCategoryTriple(t *testing.T, db *gorm.DB) {
	t.Helper()

	root := models.SemaCategory{CategoryID: 1, Name: "Air & Fuel"}
	branch := models.SemaCategory{CategoryID: 2, Name: "Intakes"}
	leaf := models.SemaCategory{CategoryID: 3, Name: "Cold Air Kits"}
	require.NoError(t, db.Create(&root).Error)
	require.NoError(t, db.Create(&branch).Error)
	require.NoError(t, db.Create(&leaf).Error)
	require.NoError(t, db.Model(&branch).Association("Parents").Append(&root))
	require.NoError(t, db.Model(&leaf).Association("Parents").Append(&branch))

	product := models.SemaProduct{ProductID: 10, PartNumber: "PN1", IsRelevant: true}
	require.NoError(t, db.Create(&product).Error)
	require.NoError(t, db.Model(&product).Association("Categories").Append(&root, &branch, &leaf))
}

func TestBuildPathsCreatesCollectionTree(t *testing.T) {
	db := testDB(t)
	seedCategoryTriple(t, db)

	builder := &PathBuilder{DB: db, Logger: logger.New("error")}
	msgs := builder.BuildPaths(context.Background())

	require.Len(t, msgs, 1)
	assert.Equal(t, "Success: Category Path 1/2/3 created", msgs[0])

	var path models.CategoryPath
	require.NoError(t, db.First(&path, "leaf_category_id = ?", 3).Error)
	assert.Equal(t, 1, path.RootCategoryID)
	assert.Equal(t, 2, path.BranchCategoryID)
	require.NotNil(t, path.LeafCollectionID)

	var root, branch, leaf models.ShopifyCollection
	require.NoError(t, db.First(&root, "id = ?", path.RootCollectionID).Error)
	require.NoError(t, db.First(&branch, "id = ?", path.BranchCollectionID).Error)
	require.NoError(t, db.First(&leaf, "id = ?", path.LeafCollectionID).Error)

	assert.Equal(t, "Air & Fuel", root.Title)
	assert.Nil(t, root.ParentID)
	assert.Equal(t, "Air & Fuel // Intakes", branch.Title)
	require.NotNil(t, branch.ParentID)
	assert.Equal(t, root.ID, *branch.ParentID)
	assert.Equal(t, "Air & Fuel // Intakes // Cold Air Kits", leaf.Title)
	require.NotNil(t, leaf.ParentID)
	assert.Equal(t, branch.ID, *leaf.ParentID)
}

func TestBuildPathsIsIdempotent(t *testing.T) {
	db := testDB(t)
	seedCategoryTriple(t, db)

	builder := &PathBuilder{DB: db, Logger: logger.New("error")}
	builder.BuildPaths(context.Background())
	msgs := builder.BuildPaths(context.Background())

	require.Len(t, msgs, 1)
	assert.Equal(t, "Info: Category Path, everything up-to-date", msgs[0])

	var collections int64
	require.NoError(t, db.Model(&models.ShopifyCollection{}).Count(&collections).Error)
	assert.Equal(t, int64(3), collections)
}

func TestBuildPathsRejectsIncompleteTriples(t *testing.T) {
	db := testDB(t)
	category := models.SemaCategory{CategoryID: 1, Name: "Orphan"}
	require.NoError(t, db.Create(&category).Error)
	product := models.SemaProduct{ProductID: 10, PartNumber: "PN1", IsRelevant: true}
	require.NoError(t, db.Create(&product).Error)
	require.NoError(t, db.Model(&product).Association("Categories").Append(&category))

	builder := &PathBuilder{DB: db, Logger: logger.New("error")}
	msgs := builder.BuildPaths(context.Background())

	require.Len(t, msgs, 1)
	assert.Equal(t, "Error: Category Path 10 :: PN1, 1 categories, need 3", msgs[0])
}
