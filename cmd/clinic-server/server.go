package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/clinicrx/clinic/internal/config"
	"github.com/clinicrx/clinic/internal/domain/catalog"
	"github.com/clinicrx/clinic/internal/domain/dashboard"
	"github.com/clinicrx/clinic/internal/domain/identity"
	"github.com/clinicrx/clinic/internal/domain/prescription"
	"github.com/clinicrx/clinic/internal/domain/rxtemplate"
	"github.com/clinicrx/clinic/internal/platform/auth"
	"github.com/clinicrx/clinic/internal/platform/cache"
	"github.com/clinicrx/clinic/internal/platform/db"
	"github.com/clinicrx/clinic/internal/platform/middleware"
	"github.com/clinicrx/clinic/internal/platform/openapi"
	"github.com/clinicrx/clinic/internal/platform/telemetry"
)

const (
	tokenIssuer = "clinic-server"
	apiVersion  = "1.0.0"
)

func newLogger(env string, w io.Writer) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: w}).With().Timestamp().Logger()
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

// resolveSigningKey returns the token signing key. In development an unset
// key is replaced by a random one, which invalidates tokens on restart.
func resolveSigningKey(cfg *config.Config) ([]byte, bool, error) {
	if cfg.AuthSigningKey != "" {
		return []byte(cfg.AuthSigningKey), false, nil
	}
	if !cfg.IsDev() {
		return nil, false, errors.New("AUTH_SIGNING_KEY is required outside development")
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, false, fmt.Errorf("generate signing key: %w", err)
	}
	return key, true, nil
}

// newCacheStore connects to Redis when REDIS_URL is set and otherwise falls
// back to an in-process store. The returned func releases the store.
func newCacheStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (cache.Store, func(), error) {
	if cfg.RedisURL != "" {
		rs, err := cache.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info().Msg("catalog cache: redis")
		return rs, func() { _ = rs.Close() }, nil
	}
	ms := cache.NewMemoryStore()
	cleanupCtx, cancel := context.WithCancel(ctx)
	ms.StartCleanup(cleanupCtx, time.Minute)
	logger.Info().Msg("catalog cache: in-memory")
	return ms, cancel, nil
}

// app holds the wired services of one server process.
type app struct {
	catalog       *catalog.Service
	identity      *identity.Service
	prescriptions *prescription.Service
	templates     *rxtemplate.Service
	dashboard     *dashboard.Service
}

func newApp(pool *pgxpool.Pool, cfg *config.Config, logger zerolog.Logger, metrics *telemetry.Metrics, store cache.Store, signingKey []byte) *app {
	txRunner := db.NewTxRunner(pool)

	catalogSvc := catalog.NewService(catalog.NewMedicineRepoPG(pool), catalog.NewLabTestRepoPG(pool), logger)
	catalogSvc.SetCache(store, cfg.CatalogCacheTTL)
	catalogSvc.SetMetrics(metrics)
	catalogSvc.SetTxRunner(txRunner)

	identitySvc := identity.NewService(identity.NewPatientRepoPG(pool), identity.NewUserRepoPG(pool),
		identity.NewDoctorRepoPG(pool), logger)
	identitySvc.SetTxRunner(txRunner)
	identitySvc.SetMetrics(metrics)
	identitySvc.SetTokenIssuer(auth.NewTokenIssuer(tokenIssuer, signingKey, cfg.AuthTokenTTL))

	tplSvc := rxtemplate.NewService(rxtemplate.NewRepoPG(pool), catalogSvc, logger)
	tplSvc.SetTxRunner(txRunner)

	rxSvc := prescription.NewService(prescription.NewRepoPG(pool), identitySvc, identitySvc, catalogSvc, logger)
	rxSvc.SetTxRunner(txRunner)
	rxSvc.SetMetrics(metrics)
	rxSvc.SetTemplateSource(tplSvc)
	rxSvc.SetDiagnosisLimit(cfg.DiagnosisSuggestionLimit)

	return &app{
		catalog:       catalogSvc,
		identity:      identitySvc,
		prescriptions: rxSvc,
		templates:     tplSvc,
		dashboard:     dashboard.NewService(identitySvc, rxSvc, catalogSvc),
	}
}

// newRouter builds the echo instance with middleware and routes. The pool is
// only touched when requests arrive.
func newRouter(pool *pgxpool.Pool, cfg *config.Config, logger zerolog.Logger, metrics *telemetry.Metrics, a *app, signingKey []byte) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", db.ClinicHeader},
	}))
	e.Use(echomw.BodyLimit("1M"))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	e.Use(metrics.Middleware())

	jwtCfg := auth.JWTConfig{Issuer: tokenIssuer, SigningKey: signingKey, Skipper: auth.AuthSkipper}
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware(jwtCfg))
	} else {
		e.Use(auth.JWTMiddleware(jwtCfg))
	}

	// Every route but the infra endpoints is limited, the anonymous login and
	// lookups included. The limiter runs before a connection is acquired.
	rl := middleware.DefaultRateLimitConfig()
	if cfg.RateLimitRPS > 0 {
		rl.RequestsPerSecond = cfg.RateLimitRPS
	}
	if cfg.RateLimitBurst > 0 {
		rl.BurstSize = cfg.RateLimitBurst
	}
	rl.Skipper = auth.InfraSkipper
	e.Use(middleware.RateLimit(rl))

	// after auth: the clinic comes from the token when there is one
	selectable := auth.ClinicSelectable
	if cfg.IsDev() {
		selectable = func(echo.Context) bool { return true }
	}
	e.Use(db.ClinicMiddleware(pool, cfg.DefaultClinic, auth.InfraSkipper, selectable))

	catalogH := catalog.NewHandler(a.catalog)
	identityH := identity.NewHandler(a.identity)
	rxH := prescription.NewHandler(a.prescriptions)
	tplH := rxtemplate.NewHandler(a.templates)

	public := e.Group("/api")
	catalogH.RegisterPublicRoutes(public)
	identityH.RegisterPublicRoutes(public)
	tplH.RegisterPublicRoutes(public)

	apiV1 := e.Group("/api/v1")
	catalogH.RegisterRoutes(apiV1)
	identityH.RegisterRoutes(apiV1)
	rxH.RegisterRoutes(apiV1)
	tplH.RegisterRoutes(apiV1)
	dashboard.NewHandler(a.dashboard).RegisterRoutes(apiV1)

	rxH.RegisterPrintRoutes(e.Group(""))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(pool, cfg.DefaultClinic))
	e.GET("/metrics", metrics.Handler())

	openapi.NewGenerator(e.Routes, apiVersion, "/", auth.IsPublicPath).RegisterRoutes(public)

	return e
}

func runServer() error {
	logger := newLogger(os.Getenv("ENV"), os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	signingKey, generated, err := resolveSigningKey(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to resolve signing key")
	}
	if generated {
		logger.Warn().Msg("AUTH_SIGNING_KEY not set, using a random key; tokens will not survive a restart")
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	metrics := telemetry.NewMetrics()
	metrics.RegisterPool(pool)

	store, closeStore, err := newCacheStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to cache")
	}
	defer closeStore()

	a := newApp(pool, cfg, logger, metrics, store, signingKey)
	e := newRouter(pool, cfg, logger, metrics, a, signingKey)

	addr := ":" + cfg.Port
	go func() {
		logger.Info().Str("addr", addr).Bool("tls", cfg.TLSEnabled).Str("env", cfg.Env).Msg("starting server")
		var err error
		if cfg.TLSEnabled {
			err = e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = e.Start(addr)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
