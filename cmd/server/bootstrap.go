package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pitchey/ndagate/internal/api"
	"github.com/pitchey/ndagate/internal/app"
	"github.com/pitchey/ndagate/internal/app/maintenance"
	iauth "github.com/pitchey/ndagate/internal/auth"
	"github.com/pitchey/ndagate/internal/cache"
	"github.com/pitchey/ndagate/internal/database"
	"github.com/pitchey/ndagate/internal/middleware"
	"github.com/pitchey/ndagate/internal/realtime"
	"github.com/pitchey/ndagate/internal/services"
	"github.com/pitchey/ndagate/pkg/logger"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB            *gorm.DB
	Hub           *realtime.Hub
	Notifications *services.NotificationService
	Engine        *services.Engine
	Scheduler     *maintenance.Scheduler
	Router        *gin.Engine
}

// bootstrapRuntime initialises the database, the NDA engine, background jobs and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mod
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	stack.Hub = realtime.NewHub()
	stack.Notifications, err = services.NewNotificationService(stack.DB, stack.Hub)
	if err != nil {
		return nil, fmt.Errorf("initialise notification service: %w", err)
	}

	engineCfg, err := cfg.NDA.EngineConfig()
	if err != nil {
		return nil, err
	}
	stack.Engine, err = services.NewEngine(services.EngineDeps{
		DB:       stack.DB,
		Notifier: stack.Notifications,
		Config:   engineCfg,
	})
	if err != nil {
		return nil, fmt.Errorf("initialise nda engine: %w", err)
	}

	// Grants are a projection of NDA state; reconcile before serving.
	grants, err := stack.Engine.Grants.Rebuild(ctx)
	if err != nil {
		return nil, fmt.Errorf("rebuild access grants: %w", err)
	}
	log.Info("access grants rebuilt", zap.Int("grants", grants))

	rateStore, counters, err := rateLimitStore(cfg.RateLimit, stack.DB)
	if err != nil {
		return nil, err
	}

	mcfg := cfg.Maintenance
	jobs := []maintenance.Option{
		maintenance.WithSweepSchedule(mcfg.SweepSchedule),
		maintenance.WithSweepTimeout(mcfg.SweepTimeout),
		maintenance.WithNotifications(stack.Notifications, mcfg.NotificationSchedule, mcfg.NotificationRetentionDays),
		maintenance.WithGrantRebuild(stack.Engine.Grants, ""),
	}
	if counters != nil {
		jobs = append(jobs, maintenance.WithCounterPurge(counters, ""))
	}
	stack.Scheduler = maintenance.NewScheduler(stack.Engine.Sweeper, jobs...)
	if err := stack.Scheduler.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	stack.Router, err = api.NewRouter(api.Dependencies{
		DB:            stack.DB,
		JWT:           jwtSvc,
		Engine:        stack.Engine,
		Notifications: stack.Notifications,
		Hub:           stack.Hub,
		Config:        cfg,
		RateStore:     rateStore,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Scheduler != nil {
		select {
		case <-s.Scheduler.Stop().Done():
		case <-ctx.Done():
		}
		s.Scheduler = nil
	}

	if s.DB != nil {
		if err := database.Close(s.DB); err != nil {
			log.Warn("failed to close database", zap.Error(err))
		}
		s.DB = nil
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.DatabaseOpenConfig()
	db, err := database.OpenAndMigrate(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}

// rateLimitStore picks the counter backend. The database store is returned
// alongside so its expired windows can be purged.
func rateLimitStore(cfg app.RateLimitConfig, db *gorm.DB) (middleware.RateStore, *cache.CounterStore, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Store)) {
	case "", "memory":
		return middleware.NewMemoryRateStore(), nil, nil
	case "database":
		counters := cache.NewCounterStore(db)
		return middleware.NewDatabaseRateStore(counters), counters, nil
	default:
		return nil, nil, fmt.Errorf("unsupported rate limit store %q", cfg.Store)
	}
}
