package handlers

import (
	"net/http"

	"partsync/internal/logger"
	"partsync/internal/outbound"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OutboundHandler serves the storefront push/pull operations.
type OutboundHandler struct {
	engine *outbound.Engine
	logger *logger.Logger
}

func NewOutboundHandler(engine *outbound.Engine, logger *logger.Logger) *OutboundHandler {
	return &OutboundHandler{engine: engine, logger: logger}
}

func (h *OutboundHandler) run(c *gin.Context, op func(uuid.UUID) (string, error)) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad id"})
		return
	}
	msg, err := op(id)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

func (h *OutboundHandler) CreateProduct(c *gin.Context) {
	h.run(c, h.engine.CreateRemoteProduct)
}

func (h *OutboundHandler) UpdateProduct(c *gin.Context) {
	h.run(c, h.engine.UpdateRemoteProduct)
}

func (h *OutboundHandler) PullProduct(c *gin.Context) {
	h.run(c, h.engine.PullAndReconcileProduct)
}

func (h *OutboundHandler) CreateCollection(c *gin.Context) {
	h.run(c, h.engine.CreateRemoteCollection)
}

func (h *OutboundHandler) UpdateCollection(c *gin.Context) {
	h.run(c, h.engine.UpdateRemoteCollection)
}

func (h *OutboundHandler) PullCollection(c *gin.Context) {
	h.run(c, h.engine.PullAndReconcileCollection)
}
