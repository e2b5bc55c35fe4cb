package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"instrupro-backend/internal/controller"
	"instrupro-backend/internal/model"
	"instrupro-backend/internal/mw"
)

type addCalibrationRequest struct {
	Measurements []model.Measurement `json:"measurements"`
}

// GetHistory shows the cached history of a packer without fetching.
func (h *Handler) GetHistory(c *gin.Context) {
	v, err := h.history.View(c.Param("equipment"))
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, v)
}

// FetchHistory loads a packer's history unless it is cached already.
func (h *Handler) FetchHistory(c *gin.Context) {
	v, err := h.history.Fetch(c.Request.Context(), c.Param("equipment"))
	if err != nil {
		h.fail(c, err, v)
		return
	}
	c.JSON(http.StatusOK, v)
}

// RefreshHistory reloads a packer's history from the store.
func (h *Handler) RefreshHistory(c *gin.Context) {
	v, err := h.history.Refresh(c.Request.Context(), c.Param("equipment"))
	if err != nil {
		h.fail(c, err, v)
		return
	}
	c.JSON(http.StatusOK, v)
}

// ClearHistoryCache drops a packer's cached history.
func (h *Handler) ClearHistoryCache(c *gin.Context) {
	if err := h.history.ClearCache(c.Param("equipment")); err != nil {
		h.fail(c, err, nil)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddCalibration records a calibration session for a packer.
func (h *Handler) AddCalibration(c *gin.Context) {
	var req addCalibrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, fmt.Errorf("%w: %v", controller.ErrValidation, err), nil)
		return
	}
	session, err := h.history.AddCalibration(c.Request.Context(), mw.PrincipalFrom(c), c.Param("equipment"), req.Measurements)
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	v, _ := h.history.View(c.Param("equipment"))
	c.JSON(http.StatusCreated, gin.H{"session": session, "history": v})
}

func sessionIndex(c *gin.Context) (int, error) {
	i, err := strconv.Atoi(c.Param("index"))
	if err != nil || i < 0 {
		return 0, fmt.Errorf("%w: invalid session index %q", controller.ErrValidation, c.Param("index"))
	}
	return i, nil
}

// GetSessionDetail returns one listed session with classified rows.
func (h *Handler) GetSessionDetail(c *gin.Context) {
	i, err := sessionIndex(c)
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	d, err := h.history.Detail(c.Param("equipment"), i)
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, d)
}

// GetSessionSheet returns the printable calibration sheet of a session.
func (h *Handler) GetSessionSheet(c *gin.Context) {
	i, err := sessionIndex(c)
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	s, err := h.history.Sheet(c.Param("equipment"), i)
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, s)
}
