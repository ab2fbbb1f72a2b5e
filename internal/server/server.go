package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lestrrat-go/jwx/v3/jwk"

	"github.com/clearance-networks/cnd-service/internal/cnd/handlers"
	"github.com/clearance-networks/cnd-service/internal/cnd/store"
	"github.com/clearance-networks/cnd-service/internal/config"
	"github.com/clearance-networks/cnd-service/internal/crypto"
	"github.com/clearance-networks/cnd-service/internal/entity"
	"github.com/clearance-networks/cnd-service/internal/issuance"
	"github.com/clearance-networks/cnd-service/internal/render"
	commonhandlers "github.com/clearance-networks/cnd-service/internal/server/handlers"
	"github.com/clearance-networks/cnd-service/internal/server/middleware"
	"github.com/clearance-networks/cnd-service/internal/signing"
	"github.com/clearance-networks/cnd-service/internal/validation"
	"github.com/clearance-networks/cnd-service/internal/version"
)

type Server struct {
	pool   *pgxpool.Pool
	config *config.ServerEnvironment
	logger *slog.Logger
	router *chi.Mux

	entities entity.Store
	records  store.Store

	coordinator *issuance.Coordinator
	gateway     *validation.Gateway
	workers     *signing.WorkerPool
	jwkSet      jwk.Set
}

// NewServer wires the issuance pipeline on top of postgres-backed stores.
func NewServer(pool *pgxpool.Pool, cfg *config.ServerEnvironment, logger *slog.Logger) (*Server, error) {
	return newServer(pool, entity.NewPostgresStore(pool), store.NewPostgresStore(pool), cfg, logger)
}

// NewServerWithStores wires the issuance pipeline on caller-supplied stores.
// Tests use this with the in-memory implementations.
func NewServerWithStores(entities entity.Store, records store.Store, cfg *config.ServerEnvironment, logger *slog.Logger) (*Server, error) {
	return newServer(nil, entities, records, cfg, logger)
}

func newServer(pool *pgxpool.Pool, entities entity.Store, records store.Store, cfg *config.ServerEnvironment, logger *slog.Logger) (*Server, error) {
	server := &Server{
		pool:     pool,
		config:   cfg,
		logger:   logger,
		router:   chi.NewRouter(),
		entities: entities,
		records:  records,
	}

	keyProvider, err := signing.NewFileKeyProvider(cfg.SigningKeyPath)
	if err != nil {
		return nil, err
	}

	key, keyID, err := keyProvider.SigningKey()
	if err != nil {
		return nil, err
	}
	jwkSet, err := crypto.PublicJWKSet(key, keyID)
	if err != nil {
		return nil, fmt.Errorf("failed to build JWK set: %w", err)
	}
	server.jwkSet = jwkSet

	signer := signing.NewJWSSigner(keyProvider, cfg.SignerIdentity)
	server.workers = signing.NewWorkerPool(records, signer, logger,
		cfg.SigningWorkers, cfg.SigningQueueSize, cfg.SigningTimeout)

	server.coordinator = issuance.NewCoordinator(
		entities,
		records,
		issuance.NewRandomCodeGenerator(),
		render.NewCanonicalJSONRenderer(),
		server.workers,
		issuance.Options{
			Validity:          cfg.CertificateValidity,
			Window:            cfg.FingerprintWindow,
			Threshold:         cfg.MaxAttemptsPerWindow,
			CodeMaxRetries:    cfg.CodeMaxRetries,
			ValidationBaseURL: cfg.ValidationBaseURL,
		},
	)
	server.gateway = validation.NewGateway(records, entities)

	server.setupMiddleware()
	server.registerRoutes()

	return server, nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.RequestLogging(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(chimiddleware.Timeout(s.config.WriteTimeout))
	s.router.Use(middleware.SecurityHeaders(s.config.Environment))
	s.router.Use(middleware.RateLimit(s.config.RateLimitRPS, s.config.RateLimitBurst))
	s.router.Use(middleware.RequestSizeLimit(s.config.MaxRequestBytes))
}

func (s *Server) registerRoutes() {
	s.router.Get("/health/live", commonhandlers.HandleHealth)
	s.router.Get("/ready", commonhandlers.HandleReadiness(s.pinger()))
	s.router.Get("/version", commonhandlers.HandleVersion(version.Get().Version, version.Get().BuildDate))
	s.router.Get("/.well-known/jwks.json", commonhandlers.HandleJWKS(s.jwkSet))

	issueHandler := handlers.NewIssueHandler(s.coordinator)
	validateHandler := handlers.NewValidateHandler(s.gateway)
	downloadHandler := handlers.NewDownloadHandler(s.gateway)
	verifyHashHandler := handlers.NewVerifyHashHandler(s.gateway)

	s.router.Route("/api/cnd", func(r chi.Router) {
		r.Post("/issue/{unitID}", issueHandler.HandleIssue)
		r.Get("/validate/{code}", validateHandler.HandleValidate)
		r.Get("/download/{code}", downloadHandler.HandleDownload)
		r.Post("/verify-hash/{code}", verifyHashHandler.HandleVerifyHash)
	})

	s.router.Route("/admin", func(r chi.Router) {
		r.Post("/condominiums", commonhandlers.HandleCreateCondominium(s.entities))
		r.Get("/condominiums/{condominiumID}", commonhandlers.HandleGetCondominium(s.entities))
		r.Post("/units", commonhandlers.HandleCreateUnit(s.entities))
		r.Get("/units/{unitID}", commonhandlers.HandleGetUnit(s.entities))
		r.Put("/units/{unitID}/status", commonhandlers.HandleSetUnitStatus(s.entities))
		r.Post("/units/{unitID}/debts", commonhandlers.HandleAddDebt(s.entities))
		r.Get("/units/{unitID}/debts", commonhandlers.HandleListDebts(s.entities))
		r.Post("/debts/{debtID}/settle", commonhandlers.HandleSettleDebt(s.entities))
	})
}

// pinger returns the readiness probe target. Without a pool (in-memory mode)
// readiness degrades to liveness.
func (s *Server) pinger() commonhandlers.Pinger {
	if s.pool == nil {
		return nil
	}
	return s.pool
}

// Router exposes the configured router for in-process tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start runs the HTTP server and the signing workers until ctx is cancelled,
// then shuts both down. Workers stop after the HTTP server so in-flight
// requests can still enqueue.
func (s *Server) Start(ctx context.Context) error {
	serverAddr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	s.workers.Start(workerCtx)

	httpServer := &http.Server{
		Addr:         serverAddr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("service listening",
			slog.String("environment", s.config.Environment),
			slog.String("address", serverAddr))

		err := httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			serverErrors <- fmt.Errorf("server failed to start: %w", err)
		}
	}()

	select {
	case err := <-serverErrors:
		stopWorkers()
		return err
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), s.config.ServerShutdownTimeout)
	defer shutdownCancel()

	s.logger.Info("shutting down HTTP server")

	err := httpServer.Shutdown(shutdownCtx)

	stopWorkers()
	s.workers.Wait()
	s.logger.Info("signing workers stopped")

	if err != nil {
		s.logger.Warn("HTTP server shutdown error",
			slog.String("error", err.Error()))
		return fmt.Errorf("HTTP server shutdown failed: %w", err)
	}

	s.logger.Info("HTTP server shutdown complete")
	return nil
}

// StartWorkers launches just the signing workers. In-process tests use this
// together with Router instead of Start.
func (s *Server) StartWorkers(ctx context.Context) {
	s.workers.Start(ctx)
}

func (s *Server) DatabaseShutdown() {
	if s.pool != nil {
		s.pool.Close()
		s.logger.Info("database connection closed")
	}
}
