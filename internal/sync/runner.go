package sync

import (
	"context"
	"fmt"

	"partsync/internal/logger"
	"partsync/internal/services/sema"

	"gorm.io/gorm"
)

// Run modes. Sync is the default: import-and-update followed by
// unauthorize against the same fetch pass.
const (
	ModeImportNew       = "import_new"
	ModeImportAndUpdate = "import_and_update"
	ModeUnauthorize     = "unauthorize"
	ModeSync            = "sync"
)

// Runner wires the reconciliation engine to every entity's source/store
// pair plus the enrichment passes, and exposes them by entity name for
// the API and the worker.
type Runner struct {
	DB       *gorm.DB
	Engine   *Engine
	Sema     *sema.Client
	Premier  *PremierUpdater
	Linker   *VehicleLinker
	Enricher *ProductEnricher
	Logger   *logger.Logger
}

func NewRunner(db *gorm.DB, semaClient *sema.Client, premierClient PremierAPI, chunkSize int, log *logger.Logger) *Runner {
	return &Runner{
		DB:       db,
		Engine:   NewEngine(log),
		Sema:     semaClient,
		Premier:  &PremierUpdater{Client: premierClient, DB: db, ChunkSize: chunkSize, Logger: log},
		Linker:   &VehicleLinker{Client: semaClient, DB: db, Logger: log},
		Enricher: &ProductEnricher{Client: semaClient, DB: db, Logger: log},
		Logger:   log,
	}
}

type entityPair struct {
	source Source
	store  Store
}

func (r *Runner) pair(entity string) (entityPair, bool) {
	switch entity {
	case "brand":
		return entityPair{&BrandSource{Client: r.Sema}, &BrandStore{DB: r.DB}}, true
	case "dataset":
		return entityPair{&DatasetSource{Client: r.Sema}, &DatasetStore{DB: r.DB}}, true
	case "year":
		return entityPair{&YearSource{Client: r.Sema}, &YearStore{DB: r.DB}}, true
	case "make":
		return entityPair{&MakeSource{Client: r.Sema}, &MakeStore{DB: r.DB}}, true
	case "model":
		return entityPair{&ModelSource{Client: r.Sema}, &ModelStore{DB: r.DB}}, true
	case "submodel":
		return entityPair{&SubmodelSource{Client: r.Sema}, &SubmodelStore{DB: r.DB}}, true
	case "make_year":
		return entityPair{&MakeYearSource{Client: r.Sema, DB: r.DB}, &MakeYearStore{DB: r.DB}}, true
	case "base_vehicle":
		return entityPair{&BaseVehicleSource{Client: r.Sema, DB: r.DB}, &BaseVehicleStore{DB: r.DB}}, true
	case "vehicle":
		return entityPair{&VehicleSource{Client: r.Sema, DB: r.DB}, &VehicleStore{DB: r.DB}}, true
	case "engine":
		return entityPair{&EngineSource{Client: r.Sema, DB: r.DB}, &EngineStore{DB: r.DB}}, true
	case "category":
		return entityPair{&CategorySource{Client: r.Sema, DB: r.DB}, &CategoryStore{DB: r.DB}}, true
	case "product":
		return entityPair{&ProductSource{Client: r.Sema, DB: r.DB}, &ProductStore{DB: r.DB}}, true
	}
	return entityPair{}, false
}

// RunEntity runs one entity's reconciliation pass, or one of the named
// enrichment passes (which ignore the mode).
func (r *Runner) RunEntity(ctx context.Context, entity, mode string) ([]string, error) {
	switch entity {
	case "premier_inventory":
		return r.Premier.UpdateInventory(ctx), nil
	case "premier_pricing":
		return r.Premier.UpdatePricing(ctx), nil
	case "dataset_vehicles":
		return r.Linker.UpdateDatasetVehicles(ctx), nil
	case "product_vehicles":
		return r.Linker.UpdateProductVehicles(ctx), nil
	case "product_categories":
		return r.Enricher.UpdateProductCategories(ctx), nil
	case "product_html":
		return r.Enricher.UpdateProductHTML(ctx), nil
	}

	pair, ok := r.pair(entity)
	if !ok {
		return nil, fmt.Errorf("unknown entity %q", entity)
	}

	switch mode {
	case ModeImportNew:
		return r.Engine.ImportNew(ctx, pair.source, pair.store), nil
	case ModeImportAndUpdate:
		return r.Engine.ImportAndUpdate(ctx, pair.source, pair.store), nil
	case ModeUnauthorize:
		return r.Engine.Unauthorize(ctx, pair.source, pair.store), nil
	case ModeSync, "":
		return r.Engine.Sync(ctx, pair.source, pair.store), nil
	}
	return nil, fmt.Errorf("unknown mode %q", mode)
}

// Entities lists the entity names RunEntity accepts, in dependency order.
func (r *Runner) Entities() []string {
	return []string{
		"brand", "dataset", "year", "make", "model", "submodel",
		"make_year", "base_vehicle", "vehicle", "engine",
		"category", "product",
		"dataset_vehicles", "product_vehicles", "product_categories", "product_html",
		"premier_inventory", "premier_pricing",
	}
}

func (r *Runner) entityStage(name string, deps ...string) Stage {
	return Stage{
		Name:      name,
		DependsOn: deps,
		Run: func(ctx context.Context) []string {
			msgs, err := r.RunEntity(ctx, name, ModeSync)
			if err != nil {
				return []string{ErrorMsg(name, err)}
			}
			return msgs
		},
	}
}

// Pipeline assembles the full sync run: the vehicle hierarchy top-down,
// then catalog content, then the per-product enrichment passes, with the
// Premier refreshes independent of the SEMA chain.
func (r *Runner) Pipeline() *Pipeline {
	return NewPipeline(r.Logger,
		r.entityStage("brand"),
		r.entityStage("dataset", "brand"),
		r.entityStage("year", "dataset"),
		r.entityStage("make", "dataset"),
		r.entityStage("model", "dataset"),
		r.entityStage("submodel", "dataset"),
		r.entityStage("make_year", "year", "make"),
		r.entityStage("base_vehicle", "make_year", "model"),
		r.entityStage("vehicle", "base_vehicle", "submodel"),
		r.entityStage("engine", "vehicle"),
		r.entityStage("category", "dataset"),
		r.entityStage("product", "dataset"),
		r.entityStage("dataset_vehicles", "dataset", "vehicle"),
		r.entityStage("product_vehicles", "product", "vehicle"),
		r.entityStage("product_categories", "product", "category"),
		r.entityStage("product_html", "product"),
		r.entityStage("premier_inventory"),
		r.entityStage("premier_pricing"),
	)
}

// RunFull runs the whole pipeline once.
func (r *Runner) RunFull(ctx context.Context) ([]string, error) {
	return r.Pipeline().Run(ctx)
}
