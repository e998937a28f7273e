package relevancy

import (
	"context"
	"strconv"

	"partsync/internal/logger"
	"partsync/internal/models"
	"partsync/internal/sync"

	"gorm.io/gorm"
)

// Marker applies the Calculator verdicts to the stored relevancy flags.
// The Calculator itself never mutates state; this is the write side that
// makes its verdicts visible to the category-path builder and the entity
// filters.
type Marker struct {
	DB     *gorm.DB
	Calc   *Calculator
	Logger *logger.Logger
}

func NewMarker(db *gorm.DB, log *logger.Logger) *Marker {
	return &Marker{DB: db, Calc: New(db), Logger: log}
}

// MarkAll runs every marking pass in dependency order, so datasets see the
// brand flags written just before them, vehicles the base vehicle flags,
// and products the dataset and vehicle flags.
func (m *Marker) MarkAll(ctx context.Context) []string {
	var msgs []string
	msgs = append(msgs, m.MarkBrands(ctx)...)
	msgs = append(msgs, m.MarkDatasets(ctx)...)
	msgs = append(msgs, m.MarkBaseVehicles(ctx)...)
	msgs = append(msgs, m.MarkVehicles(ctx)...)
	msgs = append(msgs, m.MarkCategories(ctx)...)
	msgs = append(msgs, m.MarkSemaProducts(ctx)...)
	msgs = append(msgs, m.MarkPremierProducts(ctx)...)
	msgs = append(msgs, m.MarkItems(ctx)...)
	return msgs
}

// setFlag persists the verdict when it differs from the stored flag and
// returns the delta message, or "" when the row was already current.
func (m *Marker) setFlag(label, display string, flag *bool, verdict bool, obj interface{}) (string, error) {
	if *flag == verdict {
		return "", nil
	}
	old := *flag
	*flag = verdict
	if err := m.DB.Save(obj).Error; err != nil {
		return "", err
	}
	return sync.UpdatedMsg(label, display, []sync.Delta{{
		Field: "is_relevant",
		Old:   strconv.FormatBool(old),
		New:   strconv.FormatBool(verdict),
	}}), nil
}

func finish(label string, msgs []string) []string {
	if len(msgs) == 0 {
		msgs = append(msgs, sync.AllUpToDateMsg(label))
	}
	return msgs
}

func (m *Marker) MarkBrands(ctx context.Context) []string {
	const label = "SEMA Brand"
	var brands []models.SemaBrand
	if err := m.DB.Find(&brands).Error; err != nil {
		return []string{sync.ErrorMsg(label, err)}
	}
	var msgs []string
	for i := range brands {
		brand := &brands[i]
		verdict, _ := m.Calc.Brand(brand)
		msg, err := m.setFlag(label, brand.String(), &brand.IsRelevant, verdict, brand)
		if err != nil {
			msgs = append(msgs, sync.RecordErrorMsg(label, brand.String(), err))
			continue
		}
		if msg != "" {
			msgs = append(msgs, msg)
		}
	}
	return finish(label, msgs)
}

func (m *Marker) MarkDatasets(ctx context.Context) []string {
	const label = "SEMA Dataset"
	var datasets []models.SemaDataset
	if err := m.DB.Find(&datasets).Error; err != nil {
		return []string{sync.ErrorMsg(label, err)}
	}
	var msgs []string
	for i := range datasets {
		dataset := &datasets[i]
		verdict, _ := m.Calc.Dataset(dataset)
		msg, err := m.setFlag(label, dataset.String(), &dataset.IsRelevant, verdict, dataset)
		if err != nil {
			msgs = append(msgs, sync.RecordErrorMsg(label, dataset.String(), err))
			continue
		}
		if msg != "" {
			msgs = append(msgs, msg)
		}
	}
	return finish(label, msgs)
}

func (m *Marker) MarkBaseVehicles(ctx context.Context) []string {
	const label = "SEMA Base Vehicle"
	var baseVehicles []models.SemaBaseVehicle
	if err := m.DB.Find(&baseVehicles).Error; err != nil {
		return []string{sync.ErrorMsg(label, err)}
	}
	var msgs []string
	for i := range baseVehicles {
		baseVehicle := &baseVehicles[i]
		verdict, _ := m.Calc.BaseVehicle(baseVehicle)
		msg, err := m.setFlag(label, baseVehicle.String(), &baseVehicle.IsRelevant, verdict, baseVehicle)
		if err != nil {
			msgs = append(msgs, sync.RecordErrorMsg(label, baseVehicle.String(), err))
			continue
		}
		if msg != "" {
			msgs = append(msgs, msg)
		}
	}
	return finish(label, msgs)
}

func (m *Marker) MarkVehicles(ctx context.Context) []string {
	const label = "SEMA Vehicle"
	var vehicles []models.SemaVehicle
	if err := m.DB.Find(&vehicles).Error; err != nil {
		return []string{sync.ErrorMsg(label, err)}
	}
	var msgs []string
	for i := range vehicles {
		vehicle := &vehicles[i]
		verdict, _ := m.Calc.Vehicle(vehicle)
		msg, err := m.setFlag(label, vehicle.String(), &vehicle.IsRelevant, verdict, vehicle)
		if err != nil {
			msgs = append(msgs, sync.RecordErrorMsg(label, vehicle.String(), err))
			continue
		}
		if msg != "" {
			msgs = append(msgs, msg)
		}
	}
	return finish(label, msgs)
}

func (m *Marker) MarkCategories(ctx context.Context) []string {
	const label = "SEMA Category"
	var categories []models.SemaCategory
	if err := m.DB.Find(&categories).Error; err != nil {
		return []string{sync.ErrorMsg(label, err)}
	}
	var msgs []string
	for i := range categories {
		category := &categories[i]
		verdict, _ := m.Calc.Category(category)
		msg, err := m.setFlag(label, category.String(), &category.IsRelevant, verdict, category)
		if err != nil {
			msgs = append(msgs, sync.RecordErrorMsg(label, category.String(), err))
			continue
		}
		if msg != "" {
			msgs = append(msgs, msg)
		}
	}
	return finish(label, msgs)
}

func (m *Marker) MarkSemaProducts(ctx context.Context) []string {
	const label = "SEMA Product"
	var products []models.SemaProduct
	if err := m.DB.Find(&products).Error; err != nil {
		return []string{sync.ErrorMsg(label, err)}
	}
	var msgs []string
	for i := range products {
		product := &products[i]
		verdict, _ := m.Calc.SemaProduct(product)
		msg, err := m.setFlag(label, product.String(), &product.IsRelevant, verdict, product)
		if err != nil {
			msgs = append(msgs, sync.RecordErrorMsg(label, product.String(), err))
			continue
		}
		if msg != "" {
			msgs = append(msgs, msg)
		}
	}
	return finish(label, msgs)
}

func (m *Marker) MarkPremierProducts(ctx context.Context) []string {
	const label = "Premier Product"
	var products []models.PremierProduct
	if err := m.DB.Find(&products).Error; err != nil {
		return []string{sync.ErrorMsg(label, err)}
	}
	var msgs []string
	for i := range products {
		product := &products[i]
		verdict, _ := m.Calc.PremierProduct(product)
		msg, err := m.setFlag(label, product.String(), &product.IsRelevant, verdict, product)
		if err != nil {
			msgs = append(msgs, sync.RecordErrorMsg(label, product.String(), err))
			continue
		}
		if msg != "" {
			msgs = append(msgs, msg)
		}
	}
	return finish(label, msgs)
}

func (m *Marker) MarkItems(ctx context.Context) []string {
	const label = "Item"
	var items []models.Item
	if err := m.DB.Find(&items).Error; err != nil {
		return []string{sync.ErrorMsg(label, err)}
	}
	var msgs []string
	for i := range items {
		item := &items[i]
		verdict, _ := m.Calc.Item(item)
		msg, err := m.setFlag(label, item.String(), &item.IsRelevant, verdict, item)
		if err != nil {
			msgs = append(msgs, sync.RecordErrorMsg(label, item.String(), err))
			continue
		}
		if msg != "" {
			msgs = append(msgs, msg)
		}
	}
	return finish(label, msgs)
}
