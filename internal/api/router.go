package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"instrupro-backend/config"
	"instrupro-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg config.ServerConfig, auth *mw.Authenticator, d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(d.Logger))
	if cfg.RequestIPHeader != "" {
		r.TrustedPlatform = cfg.RequestIPHeader
	}

	handler := NewHandler(d)
	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst, d.Logger)

	api := r.Group("/api")
	api.Use(rateLimiter)
	// The VAPID key is public; browsers fetch it before signing in.
	api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)

	authed := api.Group("")
	authed.Use(mw.Auth(auth, d.Logger))
	{
		authed.GET("/dashboard", handler.GetDashboard)
		authed.POST("/dashboard/refresh", handler.RefreshDashboard)

		authed.GET("/packers", handler.GetPackers)
		authed.GET("/packers/:equipment/history", handler.GetHistory)
		authed.POST("/packers/:equipment/history/fetch", handler.FetchHistory)
		authed.POST("/packers/:equipment/history/refresh", handler.RefreshHistory)
		authed.DELETE("/packers/:equipment/history/cache", handler.ClearHistoryCache)
		authed.GET("/packers/:equipment/history/:index", handler.GetSessionDetail)
		authed.GET("/packers/:equipment/history/:index/sheet", handler.GetSessionSheet)
		authed.POST("/packers/:equipment/calibrations", handler.AddCalibration)

		authed.GET("/plc-requests", handler.ListRequests)
		authed.POST("/plc-requests", handler.CreateRequest)
		authed.POST("/plc-requests/refresh", handler.RefreshRequests)
		authed.PUT("/plc-requests/:id", handler.UpdateRequest)
		authed.POST("/plc-requests/:id/cancel", handler.CancelRequest)

		authed.GET("/weigh-feeder", handler.GetWeighFeeder)
		authed.PUT("/weigh-feeder/:code", handler.EditWeighFeeder)
		authed.PUT("/weigh-feeder/:code/:field", handler.SetWeighFeederField)
		authed.POST("/weigh-feeder/submit", handler.SubmitWeighFeeder)
		authed.POST("/weigh-feeder/reset", handler.ResetWeighFeeder)

		authed.GET("/subscriptions", handler.GetSubscription)
		authed.PUT("/subscriptions", handler.PutSubscription)
		authed.DELETE("/subscriptions", handler.DeleteSubscription)
	}

	return r
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("http")
	return func(c *gin.Context) {
		c.Next()
		log.Debug("Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.String("ip", c.ClientIP()))
	}
}
