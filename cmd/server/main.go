package main

import (
	"alcyxob/gym-scheduler/internal/api" // Import API package
	"alcyxob/gym-scheduler/internal/config"
	"alcyxob/gym-scheduler/internal/events"
	"alcyxob/gym-scheduler/internal/logging"
	"alcyxob/gym-scheduler/internal/repository/memory"
	"alcyxob/gym-scheduler/internal/repository/mongo"
	"alcyxob/gym-scheduler/internal/service"
	"alcyxob/gym-scheduler/internal/storage"
	"alcyxob/gym-scheduler/internal/tracing"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
)

// @title Gym Scheduler API
// @version 1.0
// @description Schedule requests, multi-day workout plans and trainer slot bookings.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// run owns every resource; returning unwinds their deferred cleanup.
func run() error {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}

	logger := logging.Setup(cfg.Tracing.ServiceName, cfg.Log.Level)
	logger.Info("starting gym scheduler", "address", cfg.Server.Address, "database", cfg.Database.Driver)

	// --- Tracing ---
	shutdownTracing, err := tracing.Init(context.Background(), cfg.Tracing)
	if err != nil {
		return fmt.Errorf("could not initialize tracing: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			slog.Error("failed to flush traces", "error", err)
		}
	}()

	// --- Repositories ---
	repos, closeDB, err := openRepositories(cfg.Database)
	if err != nil {
		return fmt.Errorf("could not open database: %w", err)
	}
	defer closeDB()

	// --- Event Publisher ---
	var publisher events.EventPublisher = events.NoopPublisher{}
	if cfg.NATS.URL != "" {
		natsPublisher, nc, err := events.NewNatsPublisher(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
		if err != nil {
			return fmt.Errorf("could not connect to NATS: %w", err)
		}
		defer nc.Close()
		publisher = natsPublisher
		slog.Info("publishing domain events", "url", cfg.NATS.URL, "prefix", cfg.NATS.SubjectPrefix)
	}

	// --- Initialize Storage ---
	var images storage.ImageStore = storage.NoopImageStore{}
	if cfg.S3.BucketName != "" {
		images, err = storage.NewS3ImageStore(context.Background(), cfg.S3)
		if err != nil {
			return fmt.Errorf("failed to initialize S3 image store: %w", err)
		}
	}

	// --- Initialize Services ---
	opts := service.DefaultOptions()
	opts.BuildRequiresApproval = cfg.Scheduling.BuildRequiresApproval
	opts.MaxPlanDays = cfg.Scheduling.MaxPlanDays

	ledger := service.NewAvailabilityLedger(repos)
	services := api.Services{
		Intake:  service.NewRequestService(repos, publisher, opts),
		Builder: service.NewPlanBuilder(repos, publisher, opts),
		Booking: service.NewBookingService(repos, ledger, publisher),
		Ledger:  ledger,
		Status:  service.NewStatusController(repos, ledger, publisher, opts),
		Query:   service.NewQueryService(repos, images, cfg.S3.URLExpiry),
	}

	// --- Initialize Gin Engine ---
	if logging.ParseLevel(cfg.Log.Level) > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	api.SetupRoutes(router, cfg.JWT.Secret, services)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	return serve(server, quit, 5*time.Second)
}

// serve runs server until a signal arrives on quit or listening fails. A
// listen failure is returned to the caller instead of exiting in place.
func serve(server *http.Server, quit <-chan os.Signal, grace time.Duration) error {
	serverErr := make(chan error, 1)
	go func() {
		slog.Info("server listening", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err, ok := <-serverErr:
		if ok {
			return fmt.Errorf("ListenAndServe error: %w", err)
		}
		return nil
	case <-quit:
	}
	slog.Info("shutting down server")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), grace)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
	slog.Info("server exiting")
	return nil
}

// openRepositories wires the configured store. The returned func releases it.
func openRepositories(cfg config.DatabaseConfig) (service.Repositories, func(), error) {
	if cfg.Driver == config.DriverMemory {
		slog.Warn("using the in-memory store, data is lost on restart")
		store := memory.NewStore()
		return service.Repositories{
			Tx:        store,
			Users:     memory.NewUserRepository(store),
			Workouts:  memory.NewWorkoutRepository(store),
			Requests:  memory.NewScheduleRequestRepository(store),
			Plans:     memory.NewWorkoutPlanRepository(store),
			Scheduled: memory.NewScheduledWorkoutRepository(store),
			Slots:     memory.NewAvailabilityRepository(store),
		}, func() {}, nil
	}

	dbClient, err := mongo.ConnectDB(cfg.URI)
	if err != nil {
		return service.Repositories{}, nil, err
	}
	appDB := dbClient.Database(cfg.Name)
	slog.Info("database connection established", "database", cfg.Name)

	// Run index creation in the background
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		mongo.EnsureIndexes(ctx, appDB)
		slog.Info("index creation process completed")
	}()

	closeDB := func() {
		slog.Info("disconnecting MongoDB")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			slog.Error("failed to disconnect MongoDB", "error", err)
		}
	}
	return service.Repositories{
		Tx:        mongo.NewTransactor(dbClient),
		Users:     mongo.NewMongoUserRepository(appDB),
		Workouts:  mongo.NewMongoWorkoutRepository(appDB),
		Requests:  mongo.NewMongoScheduleRequestRepository(appDB),
		Plans:     mongo.NewMongoWorkoutPlanRepository(appDB),
		Scheduled: mongo.NewMongoScheduledWorkoutRepository(appDB),
		Slots:     mongo.NewMongoAvailabilityRepository(appDB),
	}, closeDB, nil
}
