package handlers

import (
	"net/http"
	"strconv"

	"partsync/internal/logger"
	"partsync/internal/models"
	"partsync/internal/relevancy"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// EntityHandler serves read access to the imported catalog plus the
// relevancy diagnostics.
type EntityHandler struct {
	db        *gorm.DB
	relevancy *relevancy.Calculator
	logger    *logger.Logger
}

func NewEntityHandler(db *gorm.DB, logger *logger.Logger) *EntityHandler {
	return &EntityHandler{db: db, relevancy: relevancy.New(db), logger: logger}
}

func (h *EntityHandler) ListPremierProducts(c *gin.Context) {
	var products []models.PremierProduct
	query := h.db.Order("premier_part_number")
	if c.Query("relevant") == "true" {
		query = query.Where("is_relevant = ?", true)
	}
	if err := query.Limit(limit(c)).Offset(offset(c)).Find(&products).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *EntityHandler) ListSemaProducts(c *gin.Context) {
	var products []models.SemaProduct
	query := h.db.Order("product_id")
	if c.Query("relevant") == "true" {
		query = query.Where("is_relevant = ?", true)
	}
	if err := query.Limit(limit(c)).Offset(offset(c)).Find(&products).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *EntityHandler) ListItems(c *gin.Context) {
	var items []models.Item
	err := h.db.Preload("PremierProduct").Preload("SemaProduct").
		Limit(limit(c)).Offset(offset(c)).Find(&items).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *EntityHandler) ListVendors(c *gin.Context) {
	var vendors []models.Vendor
	if err := h.db.Order("premier_manufacturer").Find(&vendors).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"vendors": vendors})
}

// PremierRelevancy reports the eligibility verdict and the unmet
// conditions for one Premier product.
func (h *EntityHandler) PremierRelevancy(c *gin.Context) {
	var product models.PremierProduct
	err := h.db.First(&product, "premier_part_number = ?", c.Param("id")).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}
	ok, errs := h.relevancy.PremierProduct(&product)
	c.JSON(http.StatusOK, gin.H{"relevant": ok, "errors": errs})
}

// SemaRelevancy reports the eligibility verdict and the unmet conditions
// for one SEMA product.
func (h *EntityHandler) SemaRelevancy(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad product id"})
		return
	}
	var product models.SemaProduct
	err = h.db.Preload("PiesAttributes").First(&product, "product_id = ?", id).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}
	ok, errs := h.relevancy.SemaProduct(&product)
	c.JSON(http.StatusOK, gin.H{"relevant": ok, "errors": errs})
}

func limit(c *gin.Context) int {
	n, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || n <= 0 || n > 500 {
		return 50
	}
	return n
}

func offset(c *gin.Context) int {
	n, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
