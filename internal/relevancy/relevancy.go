package relevancy

import (
	"fmt"

	"partsync/internal/models"

	"gorm.io/gorm"
)

// Calculator evaluates the per-entity publication eligibility rules. Every
// check returns the boolean verdict plus the list of unmet conditions for
// operator diagnostics. Nothing here mutates state.
type Calculator struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *Calculator {
	return &Calculator{DB: db}
}

// requiredCategoryCount is the full root/branch/leaf path a publishable
// product must sit on.
const requiredCategoryCount = 3

func (c *Calculator) Brand(brand *models.SemaBrand) (bool, []string) {
	var errs []string
	if !brand.IsAuthorized {
		errs = append(errs, "brand is unauthorized")
	}
	return len(errs) == 0, errs
}

func (c *Calculator) Dataset(dataset *models.SemaDataset) (bool, []string) {
	var errs []string
	if !dataset.IsAuthorized {
		errs = append(errs, "dataset is unauthorized")
	}

	brand := dataset.Brand
	if brand == nil {
		var loaded models.SemaBrand
		if err := c.DB.First(&loaded, "brand_id = ?", dataset.BrandID).Error; err != nil {
			errs = append(errs, fmt.Sprintf("brand %s missing", dataset.BrandID))
			return false, errs
		}
		brand = &loaded
	}
	if !brand.IsRelevant {
		errs = append(errs, "brand is irrelevant")
	}
	return len(errs) == 0, errs
}

func (c *Calculator) BaseVehicle(baseVehicle *models.SemaBaseVehicle) (bool, []string) {
	var errs []string
	if !baseVehicle.IsAuthorized {
		errs = append(errs, "base vehicle is unauthorized")
	}
	return len(errs) == 0, errs
}

// Vehicle requires a relevant base vehicle, so relevance can never hold on
// a leaf whose ancestry was dropped upstream.
func (c *Calculator) Vehicle(vehicle *models.SemaVehicle) (bool, []string) {
	var errs []string
	if !vehicle.IsAuthorized {
		errs = append(errs, "vehicle is unauthorized")
	}

	baseVehicle := vehicle.BaseVehicle
	if baseVehicle == nil {
		var loaded models.SemaBaseVehicle
		if err := c.DB.First(&loaded, "base_vehicle_id = ?", vehicle.BaseVehicleID).Error; err != nil {
			errs = append(errs, fmt.Sprintf("base vehicle %d missing", vehicle.BaseVehicleID))
			return false, errs
		}
		baseVehicle = &loaded
	}
	if !baseVehicle.IsRelevant {
		errs = append(errs, "base vehicle is irrelevant")
	}
	return len(errs) == 0, errs
}

func (c *Calculator) Category(category *models.SemaCategory) (bool, []string) {
	var errs []string
	if !category.IsAuthorized {
		errs = append(errs, "category is unauthorized")
	}
	return len(errs) == 0, errs
}

// SemaProduct checks the completeness a storefront listing needs: a
// relevant dataset, fitment, rendered content, the full category path and
// both description and image attributes. Products without fitment of their
// own inherit the dataset's vehicles.
func (c *Calculator) SemaProduct(product *models.SemaProduct) (bool, []string) {
	var errs []string
	if !product.IsAuthorized {
		errs = append(errs, "product is unauthorized")
	}

	var dataset models.SemaDataset
	if err := c.DB.First(&dataset, "dataset_id = ?", product.DatasetID).Error; err != nil {
		errs = append(errs, fmt.Sprintf("dataset %d missing", product.DatasetID))
		return false, errs
	}
	if !dataset.IsRelevant {
		errs = append(errs, "dataset is irrelevant")
	}

	vehicles, err := c.productVehicles(product, &dataset)
	if err != nil {
		errs = append(errs, err.Error())
	} else if !anyRelevantVehicle(vehicles) {
		errs = append(errs, "no relevant vehicles")
	}

	if product.HTML == "" {
		errs = append(errs, "no product html")
	}

	var categoryCount int64
	err = c.DB.Table("sema_product_categories").
		Where("sema_product_product_id = ?", product.ProductID).
		Count(&categoryCount).Error
	if err != nil {
		errs = append(errs, err.Error())
	} else if categoryCount != requiredCategoryCount {
		errs = append(errs, fmt.Sprintf("%d categories, need %d", categoryCount, requiredCategoryCount))
	}

	attributes := product.PiesAttributes
	if attributes == nil {
		if err := c.DB.Where("product_id = ?", product.ProductID).Find(&attributes).Error; err != nil {
			errs = append(errs, err.Error())
			return false, errs
		}
	}
	hasDescription, hasAsset := false, false
	for i := range attributes {
		if attributes[i].IsDescription() {
			hasDescription = true
		}
		if attributes[i].IsDigitalAsset() {
			hasAsset = true
		}
	}
	if !hasDescription {
		errs = append(errs, "no description attributes")
	}
	if !hasAsset {
		errs = append(errs, "no digital asset attributes")
	}

	return len(errs) == 0, errs
}

// PremierProduct checks the pricing-side completeness: a known vendor,
// stock in the primary warehouse, a Canadian cost and a primary image.
func (c *Calculator) PremierProduct(product *models.PremierProduct) (bool, []string) {
	var errs []string

	var vendor models.Vendor
	err := c.DB.First(&vendor, "premier_manufacturer = ?", product.Manufacturer).Error
	if err != nil {
		errs = append(errs, fmt.Sprintf("no vendor for manufacturer %q", product.Manufacturer))
	}

	if product.InventoryAB <= 0 {
		errs = append(errs, "no stock in primary warehouse")
	}
	if !product.CostCAD.IsPositive() {
		errs = append(errs, "no CAD cost")
	}
	if product.PrimaryImage == "" {
		errs = append(errs, "no primary image")
	}
	return len(errs) == 0, errs
}

// Item requires both linked sides to be relevant.
func (c *Calculator) Item(item *models.Item) (bool, []string) {
	var errs []string

	if item.PremierProductID == nil {
		errs = append(errs, "no premier product linked")
	} else {
		var premier models.PremierProduct
		err := c.DB.First(&premier, "premier_part_number = ?", *item.PremierProductID).Error
		if err != nil {
			errs = append(errs, fmt.Sprintf("premier product %s missing", *item.PremierProductID))
		} else if ok, sub := c.PremierProduct(&premier); !ok {
			errs = append(errs, sub...)
		}
	}

	if item.SemaProductID == nil {
		errs = append(errs, "no sema product linked")
	} else {
		var product models.SemaProduct
		err := c.DB.First(&product, "product_id = ?", *item.SemaProductID).Error
		if err != nil {
			errs = append(errs, fmt.Sprintf("sema product %d missing", *item.SemaProductID))
		} else if ok, sub := c.SemaProduct(&product); !ok {
			errs = append(errs, sub...)
		}
	}

	return len(errs) == 0, errs
}

func (c *Calculator) productVehicles(product *models.SemaProduct, dataset *models.SemaDataset) ([]models.SemaVehicle, error) {
	var vehicles []models.SemaVehicle
	err := c.DB.Model(product).Association("Vehicles").Find(&vehicles)
	if err != nil {
		return nil, err
	}
	if len(vehicles) > 0 {
		return vehicles, nil
	}
	// Fall back to the dataset-level fitment.
	err = c.DB.Model(dataset).Association("Vehicles").Find(&vehicles)
	if err != nil {
		return nil, err
	}
	return vehicles, nil
}

func anyRelevantVehicle(vehicles []models.SemaVehicle) bool {
	for i := range vehicles {
		if vehicles[i].IsRelevant {
			return true
		}
	}
	return false
}
