package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"instrupro-backend/internal/controller"
	"instrupro-backend/internal/model"
	"instrupro-backend/internal/mw"
)

func listQuery(c *gin.Context) controller.Query {
	return controller.Query{
		Status: model.PLCStatus(c.Query("status")),
		Search: c.Query("q"),
		Order:  controller.ParseOrder(c.Query("order")),
	}
}

// ListRequests returns the filtered PLC request list, loading it on first
// use.
func (h *Handler) ListRequests(c *gin.Context) {
	if err := h.requests.Mount(c.Request.Context()); err != nil {
		h.fail(c, err, h.requests.List(listQuery(c)))
		return
	}
	c.JSON(http.StatusOK, h.requests.List(listQuery(c)))
}

// RefreshRequests reloads every PLC request.
func (h *Handler) RefreshRequests(c *gin.Context) {
	if err := h.requests.Refresh(c.Request.Context()); err != nil {
		h.fail(c, err, h.requests.List(listQuery(c)))
		return
	}
	c.JSON(http.StatusOK, h.requests.List(listQuery(c)))
}

func bindInput(c *gin.Context) (controller.RequestInput, error) {
	var in controller.RequestInput
	if err := c.ShouldBindJSON(&in); err != nil {
		return in, fmt.Errorf("%w: %v", controller.ErrValidation, err)
	}
	return in, nil
}

// CreateRequest files a new PLC request.
func (h *Handler) CreateRequest(c *gin.Context) {
	in, err := bindInput(c)
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	id, err := h.requests.Create(c.Request.Context(), mw.PrincipalFrom(c), in)
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id, "list": h.requests.List(controller.Query{})})
}

// UpdateRequest edits a PLC request.
func (h *Handler) UpdateRequest(c *gin.Context) {
	in, err := bindInput(c)
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	if err := h.requests.Update(c.Request.Context(), mw.PrincipalFrom(c), c.Param("id"), in); err != nil {
		h.fail(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, h.requests.List(controller.Query{}))
}

// CancelRequest cancels an active PLC request.
func (h *Handler) CancelRequest(c *gin.Context) {
	if err := h.requests.Cancel(c.Request.Context(), mw.PrincipalFrom(c), c.Param("id")); err != nil {
		h.fail(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, h.requests.List(controller.Query{}))
}
