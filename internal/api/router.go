package api

import (
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"gupio-parking-backend/internal/metrics"
	"gupio-parking-backend/internal/mw"
	"gupio-parking-backend/internal/parking"
)

// RouterOptions configure the HTTP surface.
type RouterOptions struct {
	RateLimit   rate.Limit
	RateBurst   int
	CacheTTL    time.Duration
	CORSOrigins []string
	Metrics     *metrics.Metrics
	MetricsPath string
}

// NewRouter creates and configures a new Gin router. It panics if the custom
// binding rules cannot be registered; call RegisterValidators first to handle
// that error.
func NewRouter(svc *parking.Service, tokens mw.TokenParser, db *gorm.DB, webpushOptions *webpush.Options, opts RouterOptions) *gin.Engine {
	if err := RegisterValidators(); err != nil {
		panic(err)
	}

	r := gin.Default()
	r.Use(mw.RequestID())
	r.Use(cors.New(corsConfig(opts.CORSOrigins)))
	if opts.Metrics != nil {
		r.Use(mw.Metrics(opts.Metrics))
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(opts.Metrics.Handler()))
	}

	handler := NewHandler(svc, db, webpushOptions)

	if opts.RateLimit <= 0 {
		opts.RateLimit = rate.Limit(10)
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 5
	}
	rateLimiter := mw.RateLimiter(mw.NewIPRateLimiter(opts.RateLimit, opts.RateBurst, 10*time.Minute))

	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Second
	}
	cacheStore := cache.New(opts.CacheTTL, 2*opts.CacheTTL)
	caching := mw.Cache(cacheStore, opts.CacheTTL)

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	api := r.Group("/api")
	api.Use(rateLimiter, mw.FlushOnWrite(cacheStore))
	{
		api.POST("/auth/login", handler.Login)
		api.POST("/auth/otp/verify", handler.VerifyOTP)
		api.POST("/auth/otp/back", handler.BackFromOTP)
		api.POST("/auth/password-reset", handler.ResetPassword)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)

		authed := api.Group("")
		authed.Use(mw.Authenticate(tokens, svc))
		{
			authed.POST("/auth/logout", handler.Logout)

			authed.GET("/state", handler.GetState)
			authed.GET("/dashboard", caching, handler.GetDashboard)

			authed.GET("/slots", caching, handler.ListSlots)
			authed.GET("/slots/:slot_id", handler.GetSlot)
			authed.POST("/slots/:slot_id/select", handler.SelectSlot)
			authed.POST("/slots/reinitialize", handler.ReinitializeSlots)
			authed.POST("/slots/recount", handler.RecountSlots)
			authed.PATCH("/ui", handler.UpdateUI)

			authed.GET("/bookings", handler.ListBookings)
			authed.POST("/bookings", handler.CreateBooking)
			authed.DELETE("/bookings/:slot_id", handler.DeleteBooking)
			authed.GET("/bookings/history", handler.GetHistory)
			authed.POST("/reminder/respond", handler.RespondToReminder)

			authed.GET("/subscriptions", handler.GetSubscriptions)
			authed.PUT("/subscriptions", handler.PutSubscription)
			authed.DELETE("/subscriptions", handler.DeleteSubscription)
		}
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", mw.RequestIDHeader},
		ExposeHeaders:    []string{mw.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
