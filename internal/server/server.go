// Package server boots the HTTP and gRPC surfaces: config, database,
// cache, storage, queue workers, middleware stack, routes.
package server

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/kgyan/makola/app/graphql"
	"github.com/kgyan/makola/app/jobs"
	"github.com/kgyan/makola/app/models"
	"github.com/kgyan/makola/app/routes"
	"github.com/kgyan/makola/config"
	"github.com/kgyan/makola/pkg/cache"
	"github.com/kgyan/makola/pkg/database"
	grpcserver "github.com/kgyan/makola/pkg/grpc"
	"github.com/kgyan/makola/pkg/logger"
	"github.com/kgyan/makola/pkg/metrics"
	"github.com/kgyan/makola/pkg/middleware"
	"github.com/kgyan/makola/pkg/orm"
	"github.com/kgyan/makola/pkg/queue"
	"github.com/kgyan/makola/pkg/rbac"
	"github.com/kgyan/makola/pkg/reqid"
	"github.com/kgyan/makola/pkg/router"
	"github.com/kgyan/makola/pkg/schedule"
	"github.com/kgyan/makola/pkg/session"
	"github.com/kgyan/makola/pkg/storage"
)

const shutdownTimeout = 15 * time.Second

// ormCache bridges pkg/cache to the orm.Cacher interface; neither package
// imports the other.
type ormCache struct{}

func (c *ormCache) Get(key string, dest interface{}) bool { return cache.Get(key, dest) }
func (c *ormCache) Set(key string, value interface{}, ttl time.Duration) error {
	return cache.Set(key, value, ttl)
}

// Boot loads config and connects every backing service. Redis being down
// is tolerated; the database being down is not.
func Boot() error {
	if err := config.Load(); err != nil {
		return err
	}
	if err := database.Connect(); err != nil {
		return err
	}
	if err := cache.Connect(); err != nil {
		logger.Warn("redis unavailable, caching and sessions degraded", "error", err)
	}
	storage.Connect()

	orm.CacheStore = &ormCache{}
	queue.UseDB(database.DB)
	if cache.RDB != nil {
		queue.SetDriver(queue.NewRedisDriver(cache.RDB))
	}
	jobs.RegisterAll()

	return database.DB.AutoMigrate(
		&models.User{},
		&models.Market{}, &models.Vendor{}, &models.Shopper{},
		&models.Order{}, &models.OrderItem{},
		&models.ShopperJob{},
		&models.Payment{},
		&models.RoleAssignment{}, &models.RoleAuditEntry{},
		&models.Dispute{}, &models.SubstitutionRequest{},
	)
}

// Handler builds the HTTP handler with the global middleware stack.
// Outermost to innermost: metrics, recovery, request id, logger, session,
// CORS, rate limit.
func Handler() http.Handler {
	r := router.New()

	r.Use(metrics.Middleware())
	r.Use(middleware.Recovery)
	r.Use(reqid.Middleware())
	r.Use(middleware.Logger)
	r.Use(session.Middleware(session.DefaultOptions()))
	r.Use(middleware.CORS(middleware.DefaultCORSOptions()))
	r.Use(middleware.RateLimit(200, time.Minute))

	r.Get("/metrics", "metrics", metrics.Handler())
	r.Get("/healthz", "health", func(w http.ResponseWriter, req *http.Request) {
		if err := database.Ping(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("database unreachable")) //nolint:errcheck
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok")) //nolint:errcheck
	})
	r.Post("/graphql", "graphql", graphql.Handler(), middleware.Auth, rbac.HasRole(models.RoleAdmin))

	routes.RegisterAPI(r)
	return r.Handler()
}

// refreshGauges recounts the pool-size gauges from the store. Cheap enough
// to run every minute; counters cover the per-write signals.
func refreshGauges() {
	var n int64
	if err := database.DB.Model(&models.Order{}).
		Where("status NOT IN ?", []models.OrderStatus{
			models.OrderCompleted, models.OrderCancelled, models.OrderDisputed,
		}).Count(&n).Error; err == nil {
		metrics.LiveOrders.Set(float64(n))
	}
	if err := database.DB.Model(&models.ShopperJob{}).
		Where("shopper_id IS NULL AND status = ?", models.JobAvailable).
		Count(&n).Error; err == nil {
		metrics.AvailableJobs.Set(float64(n))
	}
	if err := database.DB.Model(&models.Payment{}).
		Where("status IN ?", []models.PaymentStatus{
			models.PaymentPending, models.PaymentProcessing,
		}).Count(&n).Error; err == nil {
		metrics.OpenPayments.Set(float64(n))
	}
}

// Start boots everything and serves until SIGINT/SIGTERM, then drains.
func Start() error {
	if err := Boot(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	queue.StartWorkers(ctx, 5)

	schedule.EveryMinute().Name("metrics.gauges").WithoutOverlapping().Run(refreshGauges)
	schedule.Start(ctx)

	grpcserver.SetReadiness(database.Ping)
	grpcSrv, _, err := grpcserver.Start(config.GRPCPort())
	if err != nil {
		return err
	}
	defer grpcserver.Stop(grpcSrv)

	httpSrv := &http.Server{
		Addr:              ":" + config.AppPort(),
		Handler:           Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", "addr", httpSrv.Addr, "env", config.AppEnv())
		if serr := httpSrv.ListenAndServe(); !errors.Is(serr, http.ErrServerClosed) {
			errCh <- serr
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
