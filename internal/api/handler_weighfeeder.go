package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"instrupro-backend/internal/controller"
)

// GetWeighFeeder returns every tag with its derived values.
func (h *Handler) GetWeighFeeder(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rows": h.weighFeeder.Rows()})
}

// EditWeighFeeder applies typed readings to one tag.
func (h *Handler) EditWeighFeeder(c *gin.Context) {
	var edit controller.TagEdit
	if err := c.ShouldBindJSON(&edit); err != nil {
		h.fail(c, fmt.Errorf("%w: %v", controller.ErrValidation, err), nil)
		return
	}
	row, err := h.weighFeeder.Edit(c.Param("code"), edit)
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, row)
}

// SetWeighFeederField applies one typed value to a single reading field.
func (h *Handler) SetWeighFeederField(c *gin.Context) {
	var body struct {
		Value *string `json:"value" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		h.fail(c, fmt.Errorf("%w: %v", controller.ErrValidation, err), nil)
		return
	}
	row, err := h.weighFeeder.SetField(c.Param("code"), c.Param("field"), *body.Value)
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, row)
}

// ResetWeighFeeder clears every reading.
func (h *Handler) ResetWeighFeeder(c *gin.Context) {
	h.weighFeeder.Reset()
	c.JSON(http.StatusOK, gin.H{"rows": h.weighFeeder.Rows()})
}

// SubmitWeighFeeder posts the defined errors to the spreadsheet webhook.
func (h *Handler) SubmitWeighFeeder(c *gin.Context) {
	report, err := h.weighFeeder.Submit(c.Request.Context())
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, report)
}
