package handler

import (
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
)

var (
	db      *sql.DB
	dbMutex sync.Mutex
)

// initDB initializes the database connection
func initDB() error {
	dbMutex.Lock()
	defer dbMutex.Unlock()

	if db != nil {
		return nil // Already initialized
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return fmt.Errorf("DATABASE_URL not set")
	}

	var err error
	db, err = sql.Open("postgres", databaseURL)
	if err != nil {
		return err
	}

	// Test the connection
	if err = db.Ping(); err != nil {
		return err
	}
	return nil
}

// Handler is the main entry point for serverless deployments. It serves
// the read-only status surface; sync runs live in the worker.
func Handler(w http.ResponseWriter, r *http.Request) {
	// Initialize database connection
	if err := initDB(); err != nil {
		http.Error(w, fmt.Sprintf("Database initialization failed: %v", err), http.StatusInternalServerError)
		return
	}

	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Add CORS middleware
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Health check endpoint
	router.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "Partsync API is running",
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	api := router.Group("/api/v1")
	{
		// Catalog status: row counts per entity
		api.GET("/status", func(c *gin.Context) {
			counts := map[string]int{}
			tables := []string{
				"sema_brands", "sema_datasets", "sema_years", "sema_makes",
				"sema_models", "sema_submodels", "sema_base_vehicles",
				"sema_vehicles", "sema_categories", "sema_products",
				"premier_products", "items", "shopify_products", "shopify_collections",
			}
			for _, table := range tables {
				var n int
				if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
					continue // table missing until the first migration
				}
				counts[table] = n
			}
			c.JSON(http.StatusOK, gin.H{"counts": counts})
		})

		// Relevant products ready for publication
		api.GET("/publishable", func(c *gin.Context) {
			rows, err := db.Query(`
				SELECT premier_part_number, manufacturer, description, cost_cad
				FROM premier_products
				WHERE is_relevant = true
				ORDER BY premier_part_number
				LIMIT 100
			`)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query products"})
				return
			}
			defer rows.Close()

			var products []map[string]interface{}
			for rows.Next() {
				var number, manufacturer, description string
				var cost float64
				if err := rows.Scan(&number, &manufacturer, &description, &cost); err != nil {
					continue
				}
				products = append(products, map[string]interface{}{
					"premier_part_number": number,
					"manufacturer":        manufacturer,
					"description":         description,
					"cost_cad":            cost,
				})
			}
			c.JSON(http.StatusOK, gin.H{"products": products, "total": len(products)})
		})

		// Linked items
		api.GET("/items", func(c *gin.Context) {
			rows, err := db.Query(`
				SELECT id, premier_product_id, sema_product_id, is_relevant
				FROM items
				ORDER BY id
				LIMIT 100
			`)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query items"})
				return
			}
			defer rows.Close()

			var items []map[string]interface{}
			for rows.Next() {
				var id string
				var premierID sql.NullString
				var semaID sql.NullInt64
				var relevant bool
				if err := rows.Scan(&id, &premierID, &semaID, &relevant); err != nil {
					continue
				}
				item := map[string]interface{}{"id": id, "is_relevant": relevant}
				if premierID.Valid {
					item["premier_product_id"] = premierID.String
				}
				if semaID.Valid {
					item["sema_product_id"] = semaID.Int64
				}
				items = append(items, item)
			}
			c.JSON(http.StatusOK, gin.H{"items": items, "total": len(items)})
		})

		// Sync freshness: authorized row counts per side
		api.GET("/freshness", func(c *gin.Context) {
			var premierCount, semaCount int
			db.QueryRow("SELECT COUNT(*) FROM premier_products").Scan(&premierCount)
			db.QueryRow("SELECT COUNT(*) FROM sema_products WHERE is_authorized = true").Scan(&semaCount)
			c.JSON(http.StatusOK, gin.H{
				"premier_products": premierCount,
				"authorized_sema":  semaCount,
				"checked_at":       time.Now().UTC(),
			})
		})
	}

	// Serve the request
	router.ServeHTTP(w, r)
}
