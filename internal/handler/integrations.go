package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/anonimouzmkt/calendar-server/internal/models"
	"github.com/anonimouzmkt/calendar-server/internal/repository"
)

type IntegrationHandler struct {
	Store repository.Store
}

func (h *IntegrationHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/integrations")
	group.GET("", h.listIntegrations)
	group.GET("/:id", h.getIntegration)
}

// @Summary List integrations
// @Tags integrations
// @Param tenant_id query string false "tenant id"
// @Param status query string false "connected|error|disabled"
// @Param limit query int false "page size"
// @Param offset query int false "offset"
// @Success 200 {object} apiResponse
// @Router /api/v1/integrations [get]
func (h *IntegrationHandler) listIntegrations(c *gin.Context) {
	if h.Store == nil {
		Error(c, http.StatusInternalServerError, "store unavailable", nil)
		return
	}
	var statusPtr *models.IntegrationStatus
	if raw := strQueryPtr(c, "status"); raw != nil {
		status := models.IntegrationStatus(*raw)
		statusPtr = &status
	}
	items, err := h.Store.ListIntegrations(c.Request.Context(), repository.ListIntegrationsParams{
		Limit:    intQuery(c, "limit", 100),
		Offset:   intQuery(c, "offset", 0),
		TenantID: strQueryPtr(c, "tenant_id"),
		Status:   statusPtr,
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, sanitizeIntegrations(items), nil)
}

// @Summary Get one integration
// @Tags integrations
// @Param id path string true "integration id"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/v1/integrations/{id} [get]
func (h *IntegrationHandler) getIntegration(c *gin.Context) {
	if h.Store == nil {
		Error(c, http.StatusInternalServerError, "store unavailable", nil)
		return
	}
	item, err := h.Store.GetIntegration(c.Request.Context(), c.Param("id"))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "integration not found", nil)
		return
	}
	sanitized := sanitizeIntegrations([]models.Integration{*item})
	Ok(c, sanitized[0], nil)
}

// Credentials never leave the service through the admin API.
func sanitizeIntegrations(items []models.Integration) []models.Integration {
	out := make([]models.Integration, len(items))
	for i, item := range items {
		item.ClientSecret = ""
		item.AccessToken = ""
		item.RefreshToken = nil
		out[i] = item
	}
	return out
}
