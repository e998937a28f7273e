package handlers

import (
	"net/http"

	"partsync/internal/calc"
	"partsync/internal/logger"
	"partsync/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CalculatorHandler serves the per-product field calculators: inspect the
// computed fields, update the stored choices and apply the results.
type CalculatorHandler struct {
	db     *gorm.DB
	logger *logger.Logger
}

func NewCalculatorHandler(db *gorm.DB, logger *logger.Logger) *CalculatorHandler {
	return &CalculatorHandler{db: db, logger: logger}
}

type fieldView struct {
	Name    string  `json:"name"`
	Result  *string `json:"result"`
	Current string  `json:"current"`
	Match   bool    `json:"match"`
}

// GetProduct returns every computed field of a product calculator.
func (h *CalculatorHandler) GetProduct(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad product id"})
		return
	}
	pc, err := calc.LoadProduct(h.db, id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	var fields []fieldView
	for _, f := range pc.Fields() {
		fields = append(fields, fieldView{Name: f.Name, Result: f.Result, Current: f.Current, Match: f.Match()})
	}
	c.JSON(http.StatusOK, gin.H{
		"fields":     fields,
		"tags":       pc.Tags(),
		"metafields": pc.Metafields(),
		"images":     pc.Images(),
		"settings":   pc.Settings,
	})
}

type choiceUpdate struct {
	Field  string `json:"field" binding:"required"`
	Choice string `json:"choice" binding:"required"`
}

// UpdateChoice updates one stored choice after validating it against the
// field's enumeration.
func (h *CalculatorHandler) UpdateChoice(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad product id"})
		return
	}

	var update choiceUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := calc.ValidateChoice(update.Field, update.Choice); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var settings models.ProductCalculator
	err = h.db.First(&settings, "shopify_product_id = ?", id).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "calculator not found"})
		return
	}

	switch update.Field {
	case "title":
		settings.TitleChoice = update.Choice
	case "body_html":
		settings.BodyHTMLChoice = update.Choice
	case "vendor":
		settings.VendorChoice = update.Choice
	case "price_base":
		settings.PriceBaseChoice = update.Choice
	case "price_markup":
		settings.PriceMarkupChoice = update.Choice
	case "sku":
		settings.SKUChoice = update.Choice
	case "barcode":
		settings.BarcodeChoice = update.Choice
	case "weight":
		settings.WeightChoice = update.Choice
	case "images":
		settings.ImagesChoice = update.Choice
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "field has no stored choice"})
		return
	}

	if err := h.db.Save(&settings).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

// Apply writes every mismatched computed field to the local mirror.
func (h *CalculatorHandler) Apply(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad product id"})
		return
	}
	pc, err := calc.LoadProduct(h.db, id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	changes, err := pc.Apply()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"changes": changes})
}
