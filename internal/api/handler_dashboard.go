package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetDashboard serves the packer summary, fetching only when the cached
// snapshot has expired.
func (h *Handler) GetDashboard(c *gin.Context) {
	if err := h.dashboard.Mount(c.Request.Context()); err != nil {
		h.fail(c, err, h.dashboard.View())
		return
	}
	c.JSON(http.StatusOK, h.dashboard.View())
}

// RefreshDashboard refetches every packer.
func (h *Handler) RefreshDashboard(c *gin.Context) {
	if err := h.dashboard.Refresh(c.Request.Context()); err != nil {
		h.fail(c, err, h.dashboard.View())
		return
	}
	c.JSON(http.StatusOK, h.dashboard.View())
}

// GetPackers lists the configured packer names.
func (h *Handler) GetPackers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"packers": h.dashboard.Equipment()})
}
