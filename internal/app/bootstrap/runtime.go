package bootstrap

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

	cacheadapter "github.com/terraregistry/auth-service/internal/adapters/cache"
	emailadapter "github.com/terraregistry/auth-service/internal/adapters/email"
	httpadapter "github.com/terraregistry/auth-service/internal/adapters/http"
	"github.com/terraregistry/auth-service/internal/adapters/maintenance"
	"github.com/terraregistry/auth-service/internal/adapters/memory"
	"github.com/terraregistry/auth-service/internal/adapters/postgres"
	"github.com/terraregistry/auth-service/internal/adapters/security"
	"github.com/terraregistry/auth-service/internal/application"
	"github.com/terraregistry/auth-service/internal/domain"
	"github.com/terraregistry/auth-service/internal/ports"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server
	cleanup    *maintenance.CleanupWorker
	cleanupFn  func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	logger.Info("bootstrapping registry auth service", "http_port", cfg.HTTPPort)

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	sqlDB, err := pool.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	redisClient, err := cacheadapter.Connect(ctx, cfg.RedisURL)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	repos := postgres.NewRepositories(pool)

	tokens, err := security.NewJWTCodec(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	if err != nil {
		_ = sqlDB.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init jwt codec: %w", err)
	}

	walletAuth, err := security.NewCardanoAuthenticator(cfg.CardanoNetwork, cfg.AllowMockSignatures)
	if err != nil {
		_ = sqlDB.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init wallet authenticator: %w", err)
	}
	if cfg.AllowMockSignatures {
		logger.Warn("mock wallet signatures enabled; do not use in production")
	}

	challenges := memory.NewChallengeRegistry(cfg.ChallengeTTL, cfg.ChallengeSweepInterval)

	var sender ports.EmailSender
	switch cfg.EmailTransport {
	case "smtp":
		sender = emailadapter.NewSMTPSender(emailadapter.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.EmailFrom,
			FromName: cfg.EmailFromName,
			BaseURL:  cfg.PublicBaseURL,
		})
	default:
		sender = emailadapter.NewNoopSender()
	}

	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			DefaultRole:                          domain.Role(cfg.DefaultRole),
			FailedLoginThreshold:                 cfg.FailedThreshold,
			LockoutDuration:                      cfg.LockoutDuration,
			VerificationTokenTTL:                 cfg.VerificationTokenTTL,
			ResetTokenTTL:                        cfg.ResetTokenTTL,
			RegisterRateLimitIPThreshold:         cfg.RegisterRateLimitIPThreshold,
			RegisterRateLimitIdentifierThreshold: cfg.RegisterRateLimitIdentifierThreshold,
			RegisterRateLimitWindow:              cfg.RegisterRateLimitWindow,
		},
		Users:       repos.Users,
		Sessions:    repos.Sessions,
		EmailTokens: repos.EmailTokens,
		ResetTokens: repos.ResetTokens,
		Wallets:     repos.Wallets,
		Challenges:  challenges,
		WalletAuth:  walletAuth,
		Hasher:      security.NewBcryptHasher(cfg.BcryptCost),
		Tokens:      tokens,
		Email:       sender,
		Rates:       cacheadapter.NewRedisRateLimitStore(redisClient),
	})

	handler := httpadapter.NewHandler(svc)
	router := httpadapter.NewRouter(handler)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	cleanup := maintenance.NewCleanupWorker(
		logger,
		repos.Sessions,
		repos.EmailTokens,
		repos.ResetTokens,
		cfg.CleanupInterval,
		cfg.SessionInactiveAge,
	)

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpServer,
		cleanup:    cleanup,
		cleanupFn: func(ctx context.Context) {
			challenges.Close()
			_ = redisClient.Close()
			_ = sqlDB.Close()
		},
	}, nil
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		r.logger.Info("http server started", "addr", r.httpServer.Addr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case err := <-errCh:
		r.logger.Error("server failure", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.cleanupFn(shutdownCtx)
	return nil
}

func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r.logger.Info("cleanup worker started")
	err := r.cleanup.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.cleanupFn(shutdownCtx)
	return nil
}
