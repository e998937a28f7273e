package calc

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"partsync/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CollectionCalc computes the output fields of one storefront collection
// from its category path position.
type CollectionCalc struct {
	DB *gorm.DB

	Collection *models.ShopifyCollection
	Settings   *models.CollectionCalculator
	Path       *models.CategoryPath
	// Level is the collection's depth on its path: 1 root, 2 branch, 3 leaf.
	Level int
}

// LoadCollection assembles the calculation context for one collection.
func LoadCollection(db *gorm.DB, collectionID uuid.UUID) (*CollectionCalc, error) {
	var collection models.ShopifyCollection
	err := db.Preload("Tags").Preload("Calculator").
		First(&collection, "id = ?", collectionID).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load collection: %w", err)
	}
	if collection.Calculator == nil {
		collection.Calculator = &models.CollectionCalculator{CollectionID2: collection.ID}
		if err := db.Create(collection.Calculator).Error; err != nil {
			return nil, fmt.Errorf("failed to create calculator: %w", err)
		}
		if err := db.First(collection.Calculator, "id = ?", collection.Calculator.ID).Error; err != nil {
			return nil, err
		}
	}

	cc := &CollectionCalc{DB: db, Collection: &collection, Settings: collection.Calculator}

	var path models.CategoryPath
	err = db.Preload("RootCategory").Preload("BranchCategory").Preload("LeafCategory").
		Where("root_collection_id = ? OR branch_collection_id = ? OR leaf_collection_id = ?",
			collection.ID, collection.ID, collection.ID).
		First(&path).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return cc, nil
		}
		return nil, err
	}
	cc.Path = &path
	switch {
	case path.RootCollectionID != nil && *path.RootCollectionID == collection.ID:
		cc.Level = 1
	case path.BranchCollectionID != nil && *path.BranchCollectionID == collection.ID:
		cc.Level = 2
	case path.LeafCollectionID != nil && *path.LeafCollectionID == collection.ID:
		cc.Level = 3
	}
	return cc, nil
}

// Title computes the collection title. Path-derived titles join the
// category names down to the collection's level with " // ".
func (cc *CollectionCalc) Title() Field {
	f := Field{Name: "title", Current: cc.Collection.Title}
	switch cc.Settings.TitleChoice {
	case SourceCategoryPath:
		f.Result = optional(cc.pathTitle())
	case SourceCustom:
		f.Result = optional(cc.Settings.TitleCustom)
	}
	return f
}

func (cc *CollectionCalc) pathTitle() string {
	if cc.Path == nil || cc.Level == 0 {
		return ""
	}
	var names []string
	if cc.Path.RootCategory != nil {
		names = append(names, cc.Path.RootCategory.Name)
	}
	if cc.Level >= 2 && cc.Path.BranchCategory != nil {
		names = append(names, cc.Path.BranchCategory.Name)
	}
	if cc.Level >= 3 && cc.Path.LeafCategory != nil {
		names = append(names, cc.Path.LeafCategory.Name)
	}
	if len(names) < cc.Level {
		return ""
	}
	return strings.Join(names, " // ")
}

// Tags computes the desired tag set: the title-derived tag plus any custom
// entries, sorted and deduped.
func (cc *CollectionCalc) Tags() []string {
	seen := make(map[string]bool)
	var tags []string
	add := func(tag string) {
		if tag == "" || seen[tag] {
			return
		}
		seen[tag] = true
		tags = append(tags, tag)
	}

	for _, choice := range cc.Settings.TagsChoices {
		switch {
		case choice == TagSourceCollection:
			add(cc.pathTitle())
		case strings.HasPrefix(choice, tagSourceCustom):
			add(strings.TrimPrefix(choice, tagSourceCustom))
		}
	}
	sort.Strings(tags)
	return tags
}

// Apply writes the title when mismatched and adds missing tags. Tags are
// never removed.
func (cc *CollectionCalc) Apply() ([]Change, error) {
	var changes []Change

	if f := cc.Title(); !f.Match() {
		changes = append(changes, Change{Field: f.Name, Old: f.Current, New: *f.Result})
		cc.Collection.Title = *f.Result
		if err := cc.DB.Save(cc.Collection).Error; err != nil {
			return nil, err
		}
	}

	current := make(map[string]bool, len(cc.Collection.Tags))
	for i := range cc.Collection.Tags {
		current[cc.Collection.Tags[i].Name] = true
	}
	for _, name := range cc.Tags() {
		if current[name] {
			continue
		}
		var tag models.ShopifyTag
		err := cc.DB.Where(models.ShopifyTag{Name: name}).FirstOrCreate(&tag).Error
		if err != nil {
			return nil, err
		}
		if err := cc.DB.Model(cc.Collection).Association("Tags").Append(&tag); err != nil {
			return nil, err
		}
		changes = append(changes, Change{Field: "tags", Old: "", New: name})
	}
	return changes, nil
}
