package api

import (
	"errors"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"instrupro-backend/internal/controller"
	"instrupro-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	dashboard   *controller.Dashboard
	history     *controller.History
	requests    *controller.Requests
	weighFeeder *controller.WeighFeeder
	subs        store.SubscriptionStore
	webpush     *webpush.Options
	log         *zap.Logger
}

// Deps are the controllers and stores served by the API.
type Deps struct {
	Dashboard     *controller.Dashboard
	History       *controller.History
	Requests      *controller.Requests
	WeighFeeder   *controller.WeighFeeder
	Subscriptions store.SubscriptionStore
	WebPush       *webpush.Options
	Logger        *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(d Deps) *Handler {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		dashboard:   d.Dashboard,
		history:     d.History,
		requests:    d.Requests,
		weighFeeder: d.WeighFeeder,
		subs:        d.Subscriptions,
		webpush:     d.WebPush,
		log:         log.Named("api"),
	}
}

// statusOf maps controller errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, controller.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, controller.ErrUnknownEquipment), errors.Is(err, controller.ErrNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, controller.ErrAlreadyCancelled):
		return http.StatusConflict
	case errors.Is(err, controller.ErrRemote):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as {"error": msg}. A non-nil view is attached so clients
// keep rendering the previous data.
func (h *Handler) fail(c *gin.Context, err error, view any) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		h.log.Warn("Request failed", zap.String("path", c.FullPath()), zap.Int("status", status), zap.Error(err))
	}
	body := gin.H{"error": err.Error()}
	if view != nil {
		body["view"] = view
	}
	c.AbortWithStatusJSON(status, body)
}
