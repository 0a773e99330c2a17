package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/pitchey/ndagate/internal/app"
	iauth "github.com/pitchey/ndagate/internal/auth"
	"github.com/pitchey/ndagate/internal/handlers"
	"github.com/pitchey/ndagate/internal/middleware"
	"github.com/pitchey/ndagate/internal/realtime"
	"github.com/pitchey/ndagate/internal/services"
)

// Dependencies are the collaborators the router wires into handlers.
type Dependencies struct {
	DB            *gorm.DB
	JWT           *iauth.JWTService
	Engine        *services.Engine
	Notifications *services.NotificationService
	Hub           *realtime.Hub
	Config        *app.Config
	RateStore     middleware.RateStore
}

// NewRouter builds the Gin engine, wires middleware and registers every route.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if deps.DB == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if deps.JWT == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("nda engine must be provided")
	}
	if deps.Config == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	cfg := deps.Config

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.NoRoute(middleware.NotFoundHandler)

	registerHealthRoutes(r, deps.DB)
	registerMetricsRoutes(r, cfg)

	api := r.Group("/api")
	api.Use(middleware.Auth(deps.JWT))
	if cfg.RateLimit.Enabled {
		api.Use(middleware.RateLimit(deps.RateStore, cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}

	ndaHandler, err := handlers.NewNDAHandler(deps.Engine)
	if err != nil {
		return nil, err
	}
	registerNDARoutes(api, ndaHandler, handlers.NewRealtimeHandler(deps.Hub))

	if deps.Notifications != nil {
		notificationHandler, err := handlers.NewNotificationHandler(deps.Notifications)
		if err != nil {
			return nil, err
		}
		registerNotificationRoutes(api, notificationHandler)
	}

	return r, nil
}
