package main

import (
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
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pushkarkumarvats/DIG-7/internal/config"
	"github.com/pushkarkumarvats/DIG-7/internal/database"
	apperrors "github.com/pushkarkumarvats/DIG-7/internal/errors"
	"github.com/pushkarkumarvats/DIG-7/internal/monitoring"
	"github.com/pushkarkumarvats/DIG-7/internal/prediction"
	"github.com/pushkarkumarvats/DIG-7/internal/ratelimit"
	"github.com/pushkarkumarvats/DIG-7/internal/resilience"
	"github.com/pushkarkumarvats/DIG-7/internal/scoring"
	"github.com/pushkarkumarvats/DIG-7/internal/security"
	"github.com/pushkarkumarvats/DIG-7/internal/server"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.New()

	root := &cobra.Command{
		Use:          "vendor-scoring",
		Short:        "Vendor scoring and recommendation API",
		SilenceUsage: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			// Values already in the environment take precedence over .env.
			config.LoadDotEnv()
		},
	}

	flags := root.PersistentFlags()
	flags.Int("port", 8080, "HTTP port")
	flags.String("data-dir", "./data", "directory holding the vendor database")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("ml-api-url", prediction.DefaultConfig().BaseURL, "base URL of the prediction service")
	flags.Bool("demo", false, "allow anonymous API access and demo sign-in")
	flags.String("redis-addr", "", "Redis address for distributed rate limiting")

	bindings := map[string]string{
		config.KeyPort:      "port",
		config.KeyDataDir:   "data-dir",
		config.KeyLogLevel:  "log-level",
		config.KeyMLAPIURL:  "ml-api-url",
		config.KeyDemoMode:  "demo",
		config.KeyRedisAddr: "redis-addr",
	}
	for key, flag := range bindings {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}

	serveCmd := newServeCmd(v)
	// Running the binary without a subcommand serves the API.
	root.RunE = serveCmd.RunE
	root.AddCommand(serveCmd, newSeedCmd(v))
	return root
}

func newServeCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			setupLogging(cfg.LogLevel)
			return serve(cmd.Context(), cfg)
		},
	}
}

func newSeedCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert demo vendors into an empty database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			setupLogging(cfg.LogLevel)

			db, err := database.NewDB(cfg.DataDir)
			if err != nil {
				return err
			}
			defer apperrors.SafeClose(db, "database")

			n, err := database.NewRepository(db).Seed(cmd.Context(), scoring.NewCalculator(scoring.DefaultWeights()))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d vendors\n", n)
			return nil
		},
	}
}

func setupLogging(level string) {
	lvl := monitoring.ParseLevel(level)
	slog.SetDefault(slog.New(monitoring.NewHandler(os.Stdout, lvl)))
	if lvl > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDB(cfg.DataDir)
	if err != nil {
		return err
	}
	defer apperrors.SafeClose(db, "database")
	repo := database.NewRepository(db)

	calc := scoring.NewCalculator(scoring.DefaultWeights())
	metrics := monitoring.NewMetrics()
	logger := monitoring.NewLogger()
	degradation := resilience.NewDegradationManager(resilience.DefaultDegradationConfig())
	breakers := resilience.NewCircuitBreakerRegistry()

	gateway := prediction.NewGateway(cfg.Prediction, calc,
		prediction.WithLogger(logger),
		prediction.WithMetrics(metrics),
		prediction.WithDegradation(degradation),
		prediction.WithBreakers(breakers))
	defer apperrors.SafeClose(gateway, "prediction gateway")

	redisClient, err := ratelimit.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		slog.Warn("Redis unavailable, rate limiting in memory", "addr", cfg.Redis.Addr, "error", err)
	}
	defer apperrors.SafeClose(redisClient, "redis")

	limiter := ratelimit.NewRateLimiter(redisClient, cfg.RateLimit, metrics)
	defer limiter.Close()

	srv := server.New(server.Deps{
		Config:      cfg,
		Repo:        repo,
		Gateway:     gateway,
		Limiter:     limiter,
		Redis:       redisClient,
		Degradation: degradation,
		Breakers:    breakers,
		Issuer:      security.NewTokenIssuer(cfg.JWTSecret, cfg.TokenIssuer, cfg.TokenTTL),
		Metrics:     metrics,
		Logger:      logger,
	})
	defer srv.Close()

	go degradation.StartHealthChecks(ctx)

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "addr", cfg.Addr(), "demo_mode", cfg.DemoMode, "oracle", cfg.Prediction.BaseURL)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
	}
	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	degradation.GracefulShutdown()

	slog.Info("Server exited")
	return nil
}
