package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/boddenberg/creditline/internal/config"
	"github.com/boddenberg/creditline/internal/domain"
	"github.com/boddenberg/creditline/internal/handler"
	"github.com/boddenberg/creditline/internal/infra/observability"
	"github.com/boddenberg/creditline/internal/infra/resilience"
	"github.com/boddenberg/creditline/internal/ledger"
	"github.com/boddenberg/creditline/internal/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func serveCmd(ctx context.Context) *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the account over HTTP",
		Long: `Open the account described by CREDIT_LIMIT, APR and OPENING_DATE and
serve it over HTTP until SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// --- Load .env file (for local development) ---
			_ = config.LoadDotEnv(envFile)
			return serve(ctx, config.Load())
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("credit_limit", cfg.CreditLimit),
		zap.String("apr", cfg.APR),
		zap.String("opening_date", cfg.OpeningDate),
		zap.Int("max_concurrency", cfg.MaxConcurrency),
		zap.Bool("auth_enabled", cfg.JWTSecret != ""),
		zap.Duration("shutdown_timeout", cfg.ShutdownTimeout),
	)

	// --- Tracing ---
	shutdownTracer, err := observability.InitTracer(cfg.OTLPEndpoint, "creditline")
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer shutdownTracer(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Account ---
	limit, apr, err := cfg.AccountTerms()
	if err != nil {
		return err
	}
	if cfg.OpeningDate == "" {
		return &domain.ErrValidation{Field: "OPENING_DATE", Message: "required"}
	}
	opened, err := ledger.ParseDate(cfg.OpeningDate)
	if err != nil {
		return err
	}
	account := ledger.NewAccount(limit, apr, opened)
	logger.Info("account opened",
		zap.String("opening_date", ledger.FormatDate(account.OpenedOn())),
		zap.String("daily_rate", account.DailyRate().String()),
	)

	// --- Services ---
	ledgerSvc := service.NewLedgerService(account, metrics, logger)

	// --- Router ---
	guard := handler.NewTokenGuard(cfg.JWTSecret)
	if guard == nil {
		logger.Warn("JWT_SECRET not set, mutating routes are unauthenticated")
	}
	router := handler.NewRouter(ledgerSvc, guard, resilience.NewBulkhead(cfg.MaxConcurrency), metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("server shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		return err
	}
	logger.Info("server stopped")
	return nil
}
