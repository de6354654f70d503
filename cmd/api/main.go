package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sourcegraph/conc"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"babyfood-store/internal/cache"
	"babyfood-store/internal/cart"
	"babyfood-store/internal/checkout"
	"babyfood-store/internal/config"
	"babyfood-store/internal/database"
	"babyfood-store/internal/handlers"
	"babyfood-store/internal/money"
	"babyfood-store/internal/observability"
	"babyfood-store/internal/repository"
	"babyfood-store/internal/routes"
	"babyfood-store/internal/storage"
	"babyfood-store/internal/telemetry"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg := config.LoadConfig()

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	switch {
	case cfg.EnvFileErr != nil:
		logger.Warn("error loading .env file", zap.Error(cfg.EnvFileErr))
	case cfg.EnvFile:
		logger.Info(".env file loaded")
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var mongoClient *mongo.Client
	if cfg.MongoURI != "" {
		client, err := database.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return fmt.Errorf("connect mongo: %w", err)
		}
		mongoClient = client
		defer func() { _ = mongoClient.Disconnect(context.Background()) }()
	}

	products, err := newProductSource(ctx, cfg, mongoClient)
	if err != nil {
		return err
	}

	cartStorage, closeStorage, err := newCartStorage(ctx, cfg, mongoClient)
	if err != nil {
		return err
	}
	defer closeStorage()

	metrics, err := telemetry.NewCartMetrics()
	if err != nil {
		logger.Warn("cart metrics disabled", zap.Error(err))
		metrics = nil
	}

	registry := cart.NewRegistry(cart.Options{
		Storage:         cartStorage,
		Logger:          logger.Named("cart"),
		Metrics:         metrics,
		MaxLineQuantity: cfg.CartMaxLineQuantity,
		IdleTimeout:     cfg.CartIdleTimeout,
	})

	productCache := cache.New(cfg.CatalogCacheTTL, 5*time.Minute)
	defer productCache.Close()

	formatter := money.NewFormatter(cfg.Currency, language.English)
	catalog := handlers.NewCatalog(products, productCache, cfg.CatalogCacheTTL)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(
		observability.RequestLogger(logger, uuid.NewString),
		observability.Recovery(logger),
	)
	routes.RegisterRoutes(router, routes.Deps{
		Products:      handlers.NewProductHandler(products, catalog, formatter),
		Cart:          handlers.NewCartHandler(registry, catalog, formatter, checkout.NewLogHandoff(logger.Named("checkout"), "")),
		Limiter:       handlers.NewRateLimiter(cfg.CartRateLimit, cfg.CartRateBurst),
		SecureCookies: cfg.SecureCookies,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// las peticiones heredan ctx para que los streams SSE terminen al apagar
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	var wg conc.WaitGroup
	wg.Go(func() {
		registry.RunEviction(ctx, cfg.CartIdleTimeout/2, logger.Named("cart"))
	})

	serveErr := make(chan error, 1)
	wg.Go(func() {
		logger.Info("server running", zap.String("port", cfg.Port), zap.String("cart_backend", cfg.CartBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	})

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-serveErr:
		logger.Error("server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown incomplete", zap.Error(err))
		_ = srv.Close()
	}
	wg.Wait()

	if err := registry.Close(shutdownCtx); err != nil {
		return fmt.Errorf("flush carts: %w", err)
	}
	logger.Info("carts flushed")
	return nil
}

func newProductSource(ctx context.Context, cfg *config.Config, client *mongo.Client) (repository.ProductSource, error) {
	if cfg.CatalogSeedFile != "" {
		repo, err := repository.LoadSeedFile(cfg.CatalogSeedFile)
		if err != nil {
			return nil, fmt.Errorf("load catalog seed: %w", err)
		}
		return repo, nil
	}
	if client == nil {
		return nil, errors.New("either CATALOG_SEED_FILE or MONGO_URI must be set")
	}
	repo := repository.NewProductRepository(client.Database(cfg.MongoDB).Collection("products"))
	if err := repo.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("ensure product indexes: %w", err)
	}
	return repo, nil
}

func newCartStorage(ctx context.Context, cfg *config.Config, client *mongo.Client) (storage.Storage, func(), error) {
	noop := func() {}
	switch cfg.CartBackend {
	case config.BackendMemory:
		return storage.NewMemoryStorage(), noop, nil
	case config.BackendFile:
		fs, err := storage.NewFileStorage(cfg.CartDir)
		if err != nil {
			return nil, noop, err
		}
		return fs, noop, nil
	case config.BackendMongo:
		if client == nil {
			return nil, noop, errors.New("CART_BACKEND=mongo requires MONGO_URI")
		}
		return storage.NewMongoStorage(client.Database(cfg.MongoDB).Collection("carts")), noop, nil
	case config.BackendPostgres:
		if cfg.PostgresDSN == "" {
			return nil, noop, errors.New("CART_BACKEND=postgres requires POSTGRES_DSN")
		}
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, noop, fmt.Errorf("connect postgres: %w", err)
		}
		pg := storage.NewPostgresStorage(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, noop, fmt.Errorf("ensure cart schema: %w", err)
		}
		return pg, pool.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown CART_BACKEND %q", cfg.CartBackend)
	}
}
