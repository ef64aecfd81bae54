package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quoth-dev/quoth-mcp/internal/activity"
	"github.com/quoth-dev/quoth-mcp/internal/agentbus"
	"github.com/quoth-dev/quoth-mcp/internal/analytics"
	"github.com/quoth-dev/quoth-mcp/internal/auth"
	"github.com/quoth-dev/quoth-mcp/internal/config"
	"github.com/quoth-dev/quoth-mcp/internal/embedding"
	"github.com/quoth-dev/quoth-mcp/internal/indexer"
	"github.com/quoth-dev/quoth-mcp/internal/mcp"
	"github.com/quoth-dev/quoth-mcp/internal/proposal"
	"github.com/quoth-dev/quoth-mcp/internal/providers"
	"github.com/quoth-dev/quoth-mcp/internal/reranker"
	"github.com/quoth-dev/quoth-mcp/internal/repository"
	"github.com/quoth-dev/quoth-mcp/internal/retrieval"
	"github.com/quoth-dev/quoth-mcp/internal/session"
	"github.com/quoth-dev/quoth-mcp/internal/store"
	"github.com/quoth-dev/quoth-mcp/internal/tier"
	"github.com/quoth-dev/quoth-mcp/internal/transport"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	root := &cobra.Command{
		Use:   "quoth-server",
		Short: "quoth is a multi-tenant MCP documentation server",
	}
	root.AddCommand(serveCmd(logger))
	root.AddCommand(migrateCmd(logger))

	if err := root.Execute(); err != nil {
		logger.Fatal("quoth-server exited with error", zap.Error(err))
	}
}

func migrateCmd(logger *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := config.Load()
			if err != nil {
				return err
			}
			db, err := pgxpool.New(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect to postgres: %w", err)
			}
			defer db.Close()

			if err := store.Migrate(cmd.Context(), db); err != nil {
				return fmt.Errorf("apply schema: %w", err)
			}
			logger.Info("schema applied")
			return nil
		},
	}
}

func serveCmd(logger *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "run the MCP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), logger)
		},
	}
}

func run(ctx context.Context, logger *zap.Logger) error {
	cfg, usedDefaultBusSecret, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if usedDefaultBusSecret {
		logger.Warn("BUS_SIGNING_SECRET not set, using insecure development default")
	}

	db, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer db.Close()

	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	logger.Info("connected to postgres")

	repoStore := repository.NewStore(db)

	var identity providers.IdentityProvider
	if cfg.IdentityProviderURL != "" {
		identity = providers.NewHTTPIdentityProvider(cfg.IdentityProviderURL, cfg.IdentityProviderServiceKey, 5*time.Second)
		logger.Info("external identity provider configured", zap.String("url", cfg.IdentityProviderURL))
	} else {
		logger.Info("no external identity provider configured, internal API keys only")
	}
	verifier := auth.New(cfg.JWTSecret, cfg.AppURL, identity)

	textBackend := providers.NewHTTPEmbeddingBackend(cfg.EmbeddingProviderURL, cfg.EmbeddingProviderKey, "text-embed", cfg.EmbeddingDimension, cfg.EmbedTimeout)
	codeBackend := providers.NewHTTPEmbeddingBackend(cfg.EmbeddingProviderURL, cfg.EmbeddingProviderKey, "code-embed", cfg.EmbeddingDimension, cfg.EmbedTimeout)
	embedGateway := embedding.NewGateway(textBackend, codeBackend)

	var rerankBackend providers.Reranker
	if cfg.RerankEnabled() {
		rerankBackend = providers.NewHTTPReranker(cfg.RAGWorkerURL, cfg.RerankerProviderKey, cfg.RerankTimeout)
		logger.Info("reranker configured")
	} else {
		logger.Info("reranker not configured, search results are vector-only")
	}
	rerankGateway := reranker.NewGateway(rerankBackend)

	meter := tier.New(repoStore.Projects)
	sessions := session.New(cfg.SessionTTL)
	pipeline := retrieval.New(repoStore, embedGateway, rerankGateway, meter)
	ix := indexer.New(repoStore, embedGateway, logger, cfg.ChunkEmbedSpacing)
	proposals := proposal.New(repoStore, ix, cfg.BusSigningSecret)
	bus := agentbus.New(repoStore, cfg.BusSigningSecret)
	analyticsEngine := analytics.New(repoStore)
	activityLog := activity.New(repoStore.Activity, logger)

	registry := mcp.New(repoStore, sessions, pipeline, ix, proposals, bus, meter, analyticsEngine, activityLog, logger)

	srv := transport.New(registry, verifier, sessions, logger, transport.Config{
		CORSOrigins:  cfg.CORSOrigins,
		RateLimitRPS: cfg.RateLimitRPS,
	})

	reapStop := make(chan struct{})
	go sessions.RunReaper(cfg.ReaperPeriod, reapStop)

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("quoth listening", zap.Int("port", cfg.HTTPPort))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP listen error", zap.Error(err))
		}
	}()

	<-serveCtx.Done()
	logger.Info("shutting down quoth...")
	close(reapStop)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", zap.Error(err))
	}

	logger.Info("quoth stopped")
	return nil
}
