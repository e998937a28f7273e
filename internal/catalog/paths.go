package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"partsync/internal/logger"
	"partsync/internal/models"
	"partsync/internal/sync"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PathBuilder materializes the (root, branch, leaf) category triples of
// publishable products into category paths and builds the matching
// three-level collection tree.
type PathBuilder struct {
	DB     *gorm.DB
	Logger *logger.Logger
}

// BuildPaths walks every relevant product's category triple and creates
// the missing paths and collections.
func (b *PathBuilder) BuildPaths(ctx context.Context) []string {
	var products []models.SemaProduct
	err := b.DB.Preload("Categories").Where("is_relevant = ?", true).Find(&products).Error
	if err != nil {
		return []string{sync.ErrorMsg("Category Path", err)}
	}

	var msgs []string
	for i := range products {
		product := &products[i]
		msg, err := b.buildPath(product)
		if err != nil {
			msgs = append(msgs, sync.RecordErrorMsg("Category Path", product.String(), err))
			continue
		}
		if msg != "" {
			msgs = append(msgs, msg)
		}
	}

	if len(msgs) == 0 {
		msgs = append(msgs, sync.AllUpToDateMsg("Category Path"))
	}
	return msgs
}

func (b *PathBuilder) buildPath(product *models.SemaProduct) (string, error) {
	if len(product.Categories) != 3 {
		return "", fmt.Errorf("%d categories, need 3", len(product.Categories))
	}

	var root, branch, leaf *models.SemaCategory
	for i := range product.Categories {
		category := &product.Categories[i]
		level, err := b.categoryLevel(category)
		if err != nil {
			return "", err
		}
		switch level {
		case "1":
			root = category
		case "2":
			branch = category
		case "3":
			leaf = category
		default:
			return "", fmt.Errorf("category %s has no level", category.String())
		}
	}
	if root == nil || branch == nil || leaf == nil {
		return "", fmt.Errorf("categories do not form a root/branch/leaf triple")
	}

	var path models.CategoryPath
	err := b.DB.First(&path,
		"root_category_id = ? AND branch_category_id = ? AND leaf_category_id = ?",
		root.CategoryID, branch.CategoryID, leaf.CategoryID).Error
	if err == nil {
		return "", b.ensureCollections(&path, root, branch, leaf)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	path = models.CategoryPath{
		RootCategoryID:   root.CategoryID,
		BranchCategoryID: branch.CategoryID,
		LeafCategoryID:   leaf.CategoryID,
	}
	if err := b.DB.Create(&path).Error; err != nil {
		return "", err
	}
	if err := b.ensureCollections(&path, root, branch, leaf); err != nil {
		return "", err
	}
	return sync.CreatedMsg("Category Path", path.String()), nil
}

// categoryLevel derives the category's tree level from its parent and
// child link counts.
func (b *PathBuilder) categoryLevel(category *models.SemaCategory) (string, error) {
	var parents, children int64
	err := b.DB.Table("sema_category_parents").
		Where("category_id = ?", category.CategoryID).Count(&parents).Error
	if err != nil {
		return "", err
	}
	err = b.DB.Table("sema_category_parents").
		Where("parent_id = ?", category.CategoryID).Count(&children).Error
	if err != nil {
		return "", err
	}
	return models.CategoryLevel(parents > 0, children > 0), nil
}

// ensureCollections gets or creates the three collections of a path and
// records their ids on it. Titles join the category names with " // "
// down to the collection's level.
func (b *PathBuilder) ensureCollections(path *models.CategoryPath, root, branch, leaf *models.SemaCategory) error {
	rootCollection, err := b.getOrCreateCollection(root.Name, nil)
	if err != nil {
		return err
	}
	branchTitle := strings.Join([]string{root.Name, branch.Name}, " // ")
	branchCollection, err := b.getOrCreateCollection(branchTitle, &rootCollection.ID)
	if err != nil {
		return err
	}
	leafTitle := strings.Join([]string{root.Name, branch.Name, leaf.Name}, " // ")
	leafCollection, err := b.getOrCreateCollection(leafTitle, &branchCollection.ID)
	if err != nil {
		return err
	}

	changed := false
	if path.RootCollectionID == nil || *path.RootCollectionID != rootCollection.ID {
		path.RootCollectionID = &rootCollection.ID
		changed = true
	}
	if path.BranchCollectionID == nil || *path.BranchCollectionID != branchCollection.ID {
		path.BranchCollectionID = &branchCollection.ID
		changed = true
	}
	if path.LeafCollectionID == nil || *path.LeafCollectionID != leafCollection.ID {
		path.LeafCollectionID = &leafCollection.ID
		changed = true
	}
	if !changed {
		return nil
	}
	return b.DB.Save(path).Error
}

func (b *PathBuilder) getOrCreateCollection(title string, parentID *uuid.UUID) (*models.ShopifyCollection, error) {
	var collection models.ShopifyCollection
	query := b.DB.Where("title = ?", title)
	if parentID == nil {
		query = query.Where("parent_id IS NULL")
	} else {
		query = query.Where("parent_id = ?", *parentID)
	}
	err := query.First(&collection).Error
	if err == nil {
		return &collection, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	collection = models.ShopifyCollection{Title: title, ParentID: parentID}
	if err := b.DB.Create(&collection).Error; err != nil {
		return nil, err
	}
	return &collection, nil
}
