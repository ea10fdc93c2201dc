package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/anonimouzmkt/calendar-server/internal/repository"
	syncer "github.com/anonimouzmkt/calendar-server/internal/sync"
)

type SyncHandler struct {
	Orchestrator *syncer.Orchestrator
	Store        repository.Store
	Logger       *zap.Logger
}

func (h *SyncHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/sync")
	group.POST("/run", h.runCycle)
	group.GET("/runs", h.listRuns)
}

// @Summary Trigger a sync cycle
// @Tags sync
// @Success 200 {object} apiResponse
// @Failure 409 {object} apiResponse
// @Router /api/v1/sync/run [post]
func (h *SyncHandler) runCycle(c *gin.Context) {
	if h.Orchestrator == nil {
		Error(c, http.StatusInternalServerError, "orchestrator unavailable", nil)
		return
	}
	if h.Orchestrator.Running() {
		Error(c, http.StatusConflict, "sync cycle already in flight", nil)
		return
	}
	result, err := h.Orchestrator.RunCycle(c.Request.Context())
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("manual sync cycle failed", zap.Error(err))
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if result.Skipped {
		Error(c, http.StatusConflict, "sync cycle already in flight", nil)
		return
	}
	Ok(c, result, nil)
}

// @Summary List recent sync cycles
// @Tags sync
// @Param limit query int false "max rows"
// @Success 200 {object} apiResponse
// @Router /api/v1/sync/runs [get]
func (h *SyncHandler) listRuns(c *gin.Context) {
	if h.Store == nil {
		Error(c, http.StatusInternalServerError, "store unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 20)
	runs, err := h.Store.ListSyncRuns(c.Request.Context(), limit)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, runs, nil)
}
