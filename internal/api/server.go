package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"partsync/internal/api/handlers"
	"partsync/internal/api/middleware"
	"partsync/internal/catalog"
	"partsync/internal/config"
	"partsync/internal/database"
	"partsync/internal/logger"
	"partsync/internal/outbound"
	"partsync/internal/relevancy"
	"partsync/internal/services/premier"
	"partsync/internal/services/sema"
	"partsync/internal/services/shopify"
	"partsync/internal/sync"

	"github.com/gin-gonic/gin"
	"github.com/segmentio/kafka-go"
)

type Server struct {
	config *config.Config
	logger *logger.Logger
	db     *database.Database
	router *gin.Engine
	server *http.Server
}

func New(cfg *config.Config, log *logger.Logger, db *database.Database) *Server {
	// Set Gin mode
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS())

	// Upstream clients
	semaClient := sema.NewClient(cfg.SemaBaseURL, cfg.SemaUsername, cfg.SemaPassword, log)
	premierClient := premier.NewClient(cfg.PremierBaseURL, cfg.PremierAPIKey, log)
	shopifyClient := shopify.NewClient(cfg.ShopifyShopDomain, cfg.ShopifyAccessToken, log)

	runner := sync.NewRunner(db.DB, semaClient, premierClient, cfg.PremierChunkSize, log)
	outboundEngine := outbound.NewEngine(shopifyClient, db.DB, log)
	linker := &catalog.Linker{DB: db.DB, Logger: log}
	pathBuilder := &catalog.PathBuilder{DB: db.DB, Logger: log}
	marker := relevancy.NewMarker(db.DB, log)

	var writer *kafka.Writer
	if cfg.KafkaBrokers != "" {
		writer = &kafka.Writer{
			Addr:     kafka.TCP(cfg.KafkaBrokers),
			Topic:    "sync-jobs",
			Balancer: &kafka.LeastBytes{},
		}
	}

	// Initialize handlers
	syncHandler := handlers.NewSyncHandler(runner, writer, log)
	entityHandler := handlers.NewEntityHandler(db.DB, log)
	calculatorHandler := handlers.NewCalculatorHandler(db.DB, log)
	outboundHandler := handlers.NewOutboundHandler(outboundEngine, log)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Routes
	v1 := router.Group("/api/v1")
	{
		// Sync triggers
		syncRoutes := v1.Group("/sync")
		{
			syncRoutes.GET("/entities", syncHandler.ListEntities)
			syncRoutes.POST("", syncHandler.RunFull)
			syncRoutes.POST("/jobs", syncHandler.Enqueue)
			syncRoutes.POST("/:entity", syncHandler.RunEntity)
		}

		// Catalog linkage
		catalogRoutes := v1.Group("/catalog")
		{
			catalogRoutes.POST("/items", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"messages": linker.LinkItems(c.Request.Context())})
			})
			catalogRoutes.POST("/paths", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"messages": pathBuilder.BuildPaths(c.Request.Context())})
			})
			catalogRoutes.GET("/items", entityHandler.ListItems)
			catalogRoutes.GET("/vendors", entityHandler.ListVendors)
		}

		// Relevancy flags: apply the calculator verdicts to the stored
		// is_relevant flags the path builder and entity filters read.
		v1.POST("/relevancy/apply", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"messages": marker.MarkAll(c.Request.Context())})
		})

		// Entities and relevancy diagnostics
		premierRoutes := v1.Group("/premier")
		{
			premierRoutes.GET("/products", entityHandler.ListPremierProducts)
			premierRoutes.GET("/products/:id/relevancy", entityHandler.PremierRelevancy)
		}
		semaRoutes := v1.Group("/sema")
		{
			semaRoutes.GET("/products", entityHandler.ListSemaProducts)
			semaRoutes.GET("/products/:id/relevancy", entityHandler.SemaRelevancy)
		}

		// Field calculators
		calculators := v1.Group("/calculators")
		{
			calculators.GET("/products/:id", calculatorHandler.GetProduct)
			calculators.PUT("/products/:id/choices", calculatorHandler.UpdateChoice)
			calculators.POST("/products/:id/apply", calculatorHandler.Apply)
		}

		// Storefront push/pull
		storefront := v1.Group("/shopify")
		{
			storefront.POST("/products/:id/create", outboundHandler.CreateProduct)
			storefront.POST("/products/:id/update", outboundHandler.UpdateProduct)
			storefront.POST("/products/:id/pull", outboundHandler.PullProduct)
			storefront.POST("/collections/:id/create", outboundHandler.CreateCollection)
			storefront.POST("/collections/:id/update", outboundHandler.UpdateCollection)
			storefront.POST("/collections/:id/pull", outboundHandler.PullCollection)
		}
	}

	return &Server{
		config: cfg,
		logger: log,
		db:     db,
		router: router,
	}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%s", s.config.APIHost, s.config.APIPort)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting server on " + addr)
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	return s.server.Shutdown(ctx)
}

// GetRouter returns the Gin router for serverless deployments.
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}
