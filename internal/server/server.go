package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"gorm.io/gorm"

	"github.com/aegisshield/case-dashboard/internal/auth"
	"github.com/aegisshield/case-dashboard/internal/cache"
	"github.com/aegisshield/case-dashboard/internal/config"
	"github.com/aegisshield/case-dashboard/internal/events"
	"github.com/aegisshield/case-dashboard/internal/handlers"
	"github.com/aegisshield/case-dashboard/internal/metrics"
	"github.com/aegisshield/case-dashboard/internal/middleware"
	"github.com/aegisshield/case-dashboard/internal/realtime"
	"github.com/aegisshield/case-dashboard/internal/scheduler"
	"github.com/aegisshield/case-dashboard/internal/source"
	"github.com/aegisshield/case-dashboard/internal/views"
	"github.com/aegisshield/case-dashboard/internal/workingset"
)

// ServiceName is the gRPC health service name and the reported service
const ServiceName = "case-dashboard"

// Server represents the case dashboard server
type Server struct {
	config  *config.Config
	logger  *zap.Logger
	version string
	loc     *time.Location

	// Infrastructure
	metrics *metrics.Collector
	redis   *redis.Client
	db      *gorm.DB

	// Working set and its refresh triggers
	store     *workingset.Store
	scheduler *scheduler.Scheduler
	consumer  *events.Consumer
	hub       *realtime.Hub

	viewRepo views.Repository
	authSvc  *auth.Service

	// Handlers
	reportHandler *handlers.ReportHandler
	viewHandler   *handlers.ViewHandler
	healthHandler *handlers.HealthHandler

	// HTTP and gRPC servers
	router     *gin.Engine
	httpServer *http.Server
	grpcServer *grpc.Server

	// Health server
	healthServer *health.Server

	cancelHub context.CancelFunc
}

// New creates a new server instance
func New(cfg *config.Config, logger *zap.Logger, version string) *Server {
	return &Server{
		config:  cfg,
		logger:  logger.Named("server"),
		version: version,
		loc:     cfg.Dashboard.Location(),
	}
}

// Initialize sets up the server components
func (s *Server) Initialize() error {
	s.logger.Info("Initializing case dashboard server")

	s.metrics = metrics.NewCollector()

	if err := s.initWorkingSet(); err != nil {
		return errors.Wrap(err, "failed to initialize working set")
	}

	if err := s.initViews(); err != nil {
		return errors.Wrap(err, "failed to initialize saved views")
	}

	if err := s.initRefreshTriggers(); err != nil {
		return errors.Wrap(err, "failed to initialize refresh triggers")
	}

	s.authSvc = auth.NewService(s.config.Security)
	s.initHandlers()

	// Initialize health server
	s.healthServer = health.NewServer()
	s.healthServer.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	s.store.OnRefresh(func(workingset.Snapshot) {
		s.healthServer.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	})

	if err := s.initHTTPServer(); err != nil {
		return errors.Wrap(err, "failed to initialize HTTP server")
	}

	if err := s.initGRPCServer(); err != nil {
		return errors.Wrap(err, "failed to initialize gRPC server")
	}

	s.logger.Info("Server initialized successfully")
	return nil
}

// initWorkingSet wires the upstream client, the payload cache and the store
func (s *Server) initWorkingSet() error {
	var payloadCache cache.PayloadCache = cache.Noop{}
	if s.config.Redis.Enabled {
		s.redis = cache.NewRedisClient(s.config.Redis)
		payloadCache = cache.NewRedisCache(s.redis, s.config.Redis.CacheKey, s.config.Redis.CacheTTL, s.logger)
		s.logger.Info("Redis payload cache enabled", zap.String("addr", s.config.Redis.Addr()))
	}

	client := source.NewClient(s.config.Source, s.logger)
	s.store = workingset.NewStore(client, payloadCache, s.metrics, s.loc, s.logger)
	return nil
}

func (s *Server) initViews() error {
	if !s.config.Database.Enabled {
		s.logger.Info("Database disabled, saved views are kept in memory")
		s.viewRepo = views.NewMemoryRepository()
		return nil
	}

	db, err := views.Open(s.config.Database, s.config.Debug)
	if err != nil {
		return err
	}
	s.db = db
	s.viewRepo = views.NewGormRepository(db, s.logger)
	return nil
}

func (s *Server) initRefreshTriggers() error {
	sched, err := scheduler.NewScheduler(s.config.Dashboard.RefreshSchedule, s.config.Source.Timeout, s.loc, s.store, s.logger)
	if err != nil {
		return err
	}
	s.scheduler = sched

	if s.config.Kafka.Enabled {
		reader := events.NewReader(s.config.Kafka, s.logger)
		s.consumer = events.NewConsumer(reader, s.store, s.metrics, s.config.Kafka.ReadTimeout, s.logger)
	}

	if s.config.RealTime.Enabled {
		s.hub = realtime.NewHub(s.config.RealTime, s.loc, s.metrics, s.logger)
		s.store.OnRefresh(s.hub.PublishSnapshot)
	}
	return nil
}

// initHandlers initializes all handler instances
func (s *Server) initHandlers() {
	s.reportHandler = handlers.NewReportHandler(s.store, s.config.Dashboard, s.loc, s.metrics, s.logger)
	s.viewHandler = handlers.NewViewHandler(s.viewRepo, s.reportHandler, s.logger)

	checks := map[string]handlers.Checker{}
	if s.redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return s.redis.Ping(ctx).Err()
		}
	}
	if s.db != nil {
		checks["database"] = func(ctx context.Context) error {
			sqlDB, err := s.db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	}
	s.healthHandler = handlers.NewHealthHandler(s.store.Loaded, checks, s.version, s.logger)
}

// initHTTPServer initializes the HTTP server with Gin
func (s *Server) initHTTPServer() error {
	if s.config.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else if s.config.Debug {
		gin.SetMode(gin.DebugMode)
	}

	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.CORSMiddleware())
	s.router.Use(middleware.RequestIDMiddleware())
	s.router.Use(middleware.LoggingMiddleware(s.logger))
	if s.config.Metrics.Enabled {
		s.router.Use(middleware.MetricsMiddleware(s.metrics))
	}

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:           fmt.Sprintf(":%d", s.config.Server.HTTPPort),
		Handler:        s.router,
		ReadTimeout:    s.config.Server.ReadTimeout,
		WriteTimeout:   s.config.Server.WriteTimeout,
		IdleTimeout:    s.config.Server.IdleTimeout,
		MaxHeaderBytes: s.config.Server.MaxHeaderBytes,
	}

	s.logger.Info("HTTP server initialized", zap.Int("port", s.config.Server.HTTPPort))
	return nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthHandler.Health)
	s.router.GET("/health/ready", s.healthHandler.Ready)
	s.router.GET("/health/live", s.healthHandler.Live)

	if s.config.Metrics.Enabled {
		s.router.GET(s.config.Metrics.Path, gin.WrapH(s.metrics.Handler()))
	}

	v1 := s.router.Group("/api/v1")
	v1.Use(middleware.AuthMiddleware(s.authSvc, s.config.Security.AuthEnabled))
	{
		reports := v1.Group("/reports")
		{
			reports.GET("", s.reportHandler.ListReports)
			reports.GET("/stats", s.reportHandler.GetStats)
			reports.GET("/timeseries", s.reportHandler.GetTimeSeries)
			reports.POST("/refresh", middleware.RequireRole(auth.RoleAdmin, auth.RoleAnalyst), s.reportHandler.Refresh)
			reports.GET("/:id", s.reportHandler.GetReport)
		}

		v1.GET("/categories", s.reportHandler.ListCategories)
		v1.GET("/statuses", s.reportHandler.ListStatuses)

		savedViews := v1.Group("/views")
		{
			savedViews.POST("", s.viewHandler.CreateView)
			savedViews.GET("", s.viewHandler.ListViews)
			savedViews.GET("/:id", s.viewHandler.GetView)
			savedViews.PUT("/:id", s.viewHandler.UpdateView)
			savedViews.DELETE("/:id", s.viewHandler.DeleteView)
			savedViews.GET("/:id/reports", s.viewHandler.RunView)
			savedViews.GET("/:id/timeseries", s.viewHandler.RunViewTimeSeries)
		}

		if s.hub != nil {
			v1.GET("/realtime/ws", s.hub.HandleWebSocket)
		}
	}
}

// initGRPCServer initializes the gRPC server
func (s *Server) initGRPCServer() error {
	opts := []grpc.ServerOption{
		grpc.MaxRecvMsgSize(1024 * 1024 * 4), // 4MB
		grpc.MaxSendMsgSize(1024 * 1024 * 4), // 4MB
	}

	s.grpcServer = grpc.NewServer(opts...)
	grpc_health_v1.RegisterHealthServer(s.grpcServer, s.healthServer)

	if s.config.Debug {
		reflection.Register(s.grpcServer)
	}

	s.logger.Info("gRPC server initialized", zap.Int("port", s.config.Server.GRPCPort))
	return nil
}

// Router returns the HTTP handler tree
func (s *Server) Router() http.Handler {
	return s.router
}

// Start loads the working set, starts the refresh triggers and serves HTTP
// and gRPC until ctx is cancelled or a listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting case dashboard server")

	if s.hub != nil {
		var hubCtx context.Context
		hubCtx, s.cancelHub = context.WithCancel(context.Background())
		go s.hub.Run(hubCtx)
	}

	// A failed first load is not fatal: the scheduler retries and readiness
	// stays down until a refresh succeeds.
	if _, err := s.store.Refresh(ctx, workingset.OriginStartup, false); err != nil {
		s.logger.Warn("Initial working set load failed", zap.Error(err))
	}

	s.scheduler.Start()
	if s.consumer != nil {
		s.consumer.Start(ctx)
	}

	errCh := make(chan error, 2)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.Server.GRPCPort))
	if err != nil {
		s.Shutdown()
		return errors.Wrap(err, "failed to listen for gRPC")
	}
	go func() {
		s.logger.Info("gRPC server listening", zap.String("address", lis.Addr().String()))
		if err := s.grpcServer.Serve(lis); err != nil {
			errCh <- errors.Wrap(err, "failed to serve gRPC")
		}
	}()

	go func() {
		s.logger.Info("HTTP server listening", zap.String("address", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- errors.Wrap(err, "failed to start HTTP server")
		}
	}()

	s.healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	s.logger.Info("Case dashboard server started successfully")

	select {
	case <-ctx.Done():
		return s.Shutdown()
	case err := <-errCh:
		s.Shutdown()
		return err
	}
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown() error {
	s.logger.Info("Shutting down case dashboard server")

	s.healthServer.Shutdown()

	s.scheduler.Stop()
	if s.consumer != nil {
		if err := s.consumer.Stop(); err != nil {
			s.logger.Error("Failed to close Kafka reader", zap.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("Failed to shutdown HTTP server gracefully", zap.Error(err))
	}
	s.grpcServer.GracefulStop()

	if s.cancelHub != nil {
		s.cancelHub()
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close Redis client", zap.Error(err))
		}
	}
	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				s.logger.Error("Failed to close database connection", zap.Error(err))
			}
		}
	}

	s.logger.Info("Case dashboard server shutdown completed")
	return nil
}
