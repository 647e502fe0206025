package httpapi

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rbravo-mcr/reservas-api/internal/addon"
	"github.com/rbravo-mcr/reservas-api/internal/httpapi/middleware"
	"github.com/rbravo-mcr/reservas-api/internal/reservation"
	"github.com/rbravo-mcr/reservas-api/internal/telemetry"
)

// RouterConfig bundles the knobs NewRouter needs from config.Config without
// importing that package directly, keeping httpapi decoupled from the
// process bootstrap (cmd/api wires the two together).
type RouterConfig struct {
	ServiceName           string
	ForceHTTPS            bool
	DefaultPerMinute      int
	ReservationsPerMinute int
}

// NewRouter builds the gin engine for C11: tracing and rate-limit/HTTPS
// middleware, then the three routes spec.md §6 names. Grounded on
// backend-booking's main.go route-group wiring.
func NewRouter(cfg RouterConfig, reservations *reservation.Service, catalog addon.Catalog, rdb *redis.Client) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(telemetry.TracingMiddleware(cfg.ServiceName))
	router.Use(middleware.HTTPSEnforcer(cfg.ForceHTTPS))
	router.Use(middleware.RateLimit(middleware.RateLimitConfig{
		DefaultPerMinute:      cfg.DefaultPerMinute,
		ReservationsPerMinute: cfg.ReservationsPerMinute,
	}, rdb))

	reservationHandler := NewReservationHandler(reservations)
	addonHandler := NewAddonHandler(catalog)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", Health)
		v1.POST("/reservations", reservationHandler.Create)
		v1.GET("/addons", addonHandler.List)
	}

	return router
}
