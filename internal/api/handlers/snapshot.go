package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"energy-billing/internal/model"
	"energy-billing/internal/options"
)

// Instance is the runtime the snapshot endpoints act on
type Instance interface {
	Snapshot() model.Snapshot
	Update(ctx context.Context) (model.Snapshot, error)
	ApplyOptions(ctx context.Context, doc options.Document) (model.Snapshot, error)
	Subscribe(fn func(model.Snapshot)) (unsubscribe func())
}

// eventBuffer is how many snapshots a slow SSE client may fall behind before
// older ones are dropped
const eventBuffer = 8

// SnapshotHandler serves the published values of one instance
type SnapshotHandler struct {
	inst Instance
	log  zerolog.Logger
}

// NewSnapshotHandler creates a new snapshot handler
func NewSnapshotHandler(inst Instance, log zerolog.Logger) *SnapshotHandler {
	return &SnapshotHandler{inst: inst, log: log}
}

// GetSnapshot handles GET /api/v1/snapshot
func (h *SnapshotHandler) GetSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, h.inst.Snapshot())
}

// Refresh handles POST /api/v1/refresh
func (h *SnapshotHandler) Refresh(c *gin.Context) {
	snap, err := h.inst.Update(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "UPDATE_FAILED", err.Error())
		return
	}
	c.JSON(http.StatusOK, snap)
}

// ApplyOptions handles POST /api/v1/options. The document is applied once and
// never stored.
func (h *SnapshotHandler) ApplyOptions(c *gin.Context) {
	var doc options.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if doc.IsZero() {
		respondError(c, http.StatusBadRequest, "EMPTY_OPTIONS", "no one-shot value or interval given")
		return
	}

	snap, err := h.inst.ApplyOptions(c.Request.Context(), doc)
	switch {
	case errors.Is(err, options.ErrInterval):
		respondError(c, http.StatusBadRequest, "INVALID_INTERVAL", err.Error())
		return
	case err != nil:
		respondError(c, http.StatusInternalServerError, "UPDATE_FAILED", err.Error())
		return
	}
	h.log.Info().Msg("one-shot options applied over http")
	c.JSON(http.StatusOK, snap)
}

// Events handles GET /api/v1/events: the current snapshot, then one event per
// update cycle until the client goes away.
func (h *SnapshotHandler) Events(c *gin.Context) {
	ch := make(chan model.Snapshot, eventBuffer)
	unsubscribe := h.inst.Subscribe(func(s model.Snapshot) {
		select {
		case ch <- s:
		default:
		}
	})
	defer unsubscribe()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("snapshot", h.inst.Snapshot())
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case s := <-ch:
			c.SSEvent("snapshot", s)
			return true
		}
	})
}
