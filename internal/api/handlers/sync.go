package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"partsync/internal/logger"
	"partsync/internal/sync"

	"github.com/gin-gonic/gin"
	"github.com/segmentio/kafka-go"
)

// SyncJob is the message shape enqueued for the worker.
type SyncJob struct {
	Entity    string    `json:"entity"`
	Mode      string    `json:"mode"`
	Timestamp time.Time `json:"timestamp"`
}

type SyncHandler struct {
	runner *sync.Runner
	writer *kafka.Writer
	logger *logger.Logger
}

// NewSyncHandler builds the sync trigger handler. The writer may be nil
// when no broker is configured; async triggers then fail with 503.
func NewSyncHandler(runner *sync.Runner, writer *kafka.Writer, logger *logger.Logger) *SyncHandler {
	return &SyncHandler{runner: runner, writer: writer, logger: logger}
}

// ListEntities returns the entity names a sync can target.
func (h *SyncHandler) ListEntities(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"entities": h.runner.Entities()})
}

// RunEntity runs one entity's pass inline and returns its messages.
func (h *SyncHandler) RunEntity(c *gin.Context) {
	entity := c.Param("entity")
	mode := c.DefaultQuery("mode", sync.ModeSync)

	msgs, err := h.runner.RunEntity(c.Request.Context(), entity, mode)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"entity":   entity,
		"mode":     mode,
		"messages": msgs,
		"errors":   countErrors(msgs),
	})
}

// RunFull runs the whole pipeline inline. Long-running; the async enqueue
// is the operational path, this one exists for small datasets and tests.
func (h *SyncHandler) RunFull(c *gin.Context) {
	msgs, err := h.runner.RunFull(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"messages": msgs,
		"errors":   countErrors(msgs),
	})
}

// Enqueue publishes a sync job for the worker.
func (h *SyncHandler) Enqueue(c *gin.Context) {
	if h.writer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no job broker configured"})
		return
	}

	var job SyncJob
	if err := c.ShouldBindJSON(&job); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	job.Timestamp = time.Now().UTC()

	value, err := json.Marshal(job)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()
	err = h.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(job.Entity),
		Value: value,
	})
	if err != nil {
		h.logger.Error("Failed to enqueue sync job: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"enqueued": job})
}

func countErrors(msgs []string) int {
	n := 0
	for _, msg := range msgs {
		if sync.IsErrorMsg(msg) {
			n++
		}
	}
	return n
}
