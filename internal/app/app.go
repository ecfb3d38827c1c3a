package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihandler "github.com/univocity/trader-replay/api"
	"github.com/univocity/trader-replay/internal/backfill"
	"github.com/univocity/trader-replay/internal/candleagg"
	"github.com/univocity/trader-replay/internal/config"
	"github.com/univocity/trader-replay/internal/notify"
	"github.com/univocity/trader-replay/internal/push"
	"github.com/univocity/trader-replay/internal/simulation"
	"github.com/univocity/trader-replay/internal/store"
	"github.com/univocity/trader-replay/internal/telemetry"
)

// App wires the candle store, backfill/ingestion pipeline,
// SimulationDriver and HTTP surface together, grounded on the
// teacher's App/NewApp/Init/Run lifecycle.
type App struct {
	Config      config.Config
	Logger      *zap.Logger
	DB          *pgxpool.Pool
	NC          *nats.Conn
	JS          nats.JetStreamContext
	Store       *store.PostgresStore
	Filler      *backfill.Filler
	Driver      *simulation.Driver
	PushGateway *push.PushGateway
	HTTPServer  *http.Server
}

// NewApp loads configuration and sets up structured logging.
func NewApp() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	telemetry.Init(false)

	return &App{
		Config: cfg,
		Logger: telemetry.Logger,
	}, nil
}

// Init connects every external collaborator: Postgres, NATS, and the
// simulation driver / push gateway built on top of them.
func (a *App) Init(ctx context.Context) error {
	dbPool, err := pgxpool.Connect(ctx, a.Config.DBDSN)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	a.DB = dbPool

	if err := a.initDatabase(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	nc, js, err := notify.Connect(a.Config.NatsURL, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	a.NC = nc
	a.JS = js

	a.Store = store.NewPostgresStore(dbPool)
	a.Filler = backfill.NewFiller(dbPool)
	a.Driver = simulation.NewDriver(a.Store, a.Config.WorkerPoolSize)
	a.PushGateway = push.NewPushGateway(js, a.Logger)

	return nil
}

// Run starts the ingestion pipeline and the HTTP server, then blocks
// until a shutdown signal arrives.
func (a *App) Run(ctx context.Context) error {
	aggregator := candleagg.NewAggregator(a.JS, a.Logger, a.Filler)
	if err := aggregator.Run(ctx); err != nil {
		return fmt.Errorf("failed to start candle aggregator: %w", err)
	}

	a.startIngestionWorker(ctx)

	a.HTTPServer = &http.Server{
		Addr:    ":" + a.Config.Port,
		Handler: a.setupRouter(),
	}

	go func() {
		a.Logger.Info("starting http server", zap.String("port", a.Config.Port))
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	return a.waitForShutdown()
}

// waitForShutdown handles graceful shutdown signals. The candle store
// caches are cleared here, once, at process exit (spec.md §3,
// Lifecycle — "Candle store caches are cleared at driver shutdown").
func (a *App) waitForShutdown() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	a.Logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.HTTPServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.Driver.Shutdown()
	a.NC.Close()
	a.DB.Close()

	return nil
}

func (a *App) initDatabase(ctx context.Context) error {
	sqlFile := "scripts/init.sql"
	content, err := os.ReadFile(sqlFile)
	if err != nil {
		return fmt.Errorf("failed to read init script: %w", err)
	}

	_, err = a.DB.Exec(ctx, string(content))
	if err != nil {
		return fmt.Errorf("failed to execute init script: %w", err)
	}

	a.Logger.Info("database initialized successfully")
	return nil
}

// setupRouter configures the Gin router (spec.md §13): read-only
// status/report/health/metrics routes stay public, the sweep-trigger
// endpoint sits behind bcrypt auth, matching the teacher's split
// between public and protected route groups.
func (a *App) setupRouter() *gin.Engine {
	r := gin.Default()

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	apiHandler := apihandler.NewHandler(a.DB, a.Driver, a.Logger)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/register", apiHandler.Register)
		v1.POST("/login", apiHandler.Login)
		v1.GET("/simulations/:id", apiHandler.GetSimulation)
	}

	protected := r.Group("/api/v1")
	protected.Use(apihandler.AuthMiddleware())
	{
		protected.POST("/simulations", apiHandler.RunSimulation)
	}

	r.GET("/ws", func(c *gin.Context) {
		a.PushGateway.ServeHTTP(c.Writer, c.Request)
	})

	return r
}
