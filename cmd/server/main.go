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

	"codejudge/internal/archive"
	codejudgeconfig "codejudge/internal/config"
	"codejudge/internal/dispatcher"
	"codejudge/internal/execution"
	"codejudge/internal/grading"
	"codejudge/internal/httpapi"
	"codejudge/internal/identity"
	"codejudge/internal/repository"
	"codejudge/internal/sandbox"
	"codejudge/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultShutdownTimeout = 10 * time.Second

func main() {
	cfg, err := codejudgeconfig.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Service: "codejudge"}); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	repo, closeRepo, err := buildRepository(cfg)
	if err != nil {
		logger.Error(ctx, "init repository failed", zap.Error(err))
		os.Exit(1)
	}
	defer closeRepo()

	transport, err := sandbox.NewLocalTransport(cfg.SandboxRoot)
	if err != nil {
		logger.Error(ctx, "init sandbox transport failed", zap.Error(err))
		os.Exit(1)
	}
	gateway := sandbox.NewGateway(transport, sandbox.Config{RetryCopyIn: true})
	engine := execution.New(gateway, execution.Config{
		TimeLimitSeconds: cfg.TimeLimitSeconds,
	})

	pipeline := grading.New(engine, repo)
	dispatcherCfg := dispatcher.Config{
		PoolSize:             cfg.PoolSize,
		TimeLimitSeconds:     cfg.TimeLimitSeconds,
		CompileBudgetSeconds: 6,
		GracePeriodSeconds:   cfg.GracePeriodSeconds,
	}
	disp := dispatcher.New(engine, pipeline, dispatcherCfg)

	if cfg.UsesArchiver() {
		archiver, err := archive.New(archive.Config{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			UseSSL:    cfg.MinIOUseSSL,
			Bucket:    cfg.MinIOBucket,
		})
		if err != nil {
			logger.Warn(ctx, "source archiver disabled", zap.Error(err))
		} else {
			disp = disp.WithArchiver(archiver)
		}
	}

	ident := identity.NewIdentity(cfg.JWTSecret)
	creds := identity.NewCredentials()

	gin.SetMode(gin.ReleaseMode)
	server := httpapi.New(disp, repo, ident, creds, httpapi.Config{AllowedOrigins: cfg.CORSOrigins})

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	listener, err := net.Listen("tcp", httpServer.Addr)
	if err != nil {
		logger.Error(ctx, "init http listener failed", zap.Error(err))
		os.Exit(1)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "codejudge http server started", zap.String("addr", httpServer.Addr))
		errCh <- httpServer.Serve(listener)
	}()

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "http server stopped", zap.Error(err))
		}
	case <-shutdownCtx.Done():
		logger.Info(ctx, "shutdown signal received")
	}

	shutdown, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdown); err != nil {
		logger.Error(ctx, "http server shutdown failed", zap.Error(err))
	}
}

// buildRepository wires the in-memory adapter when no MySQL DSN is
// configured, or MySQL optionally fronted by the Redis read-through cache
// otherwise.
func buildRepository(cfg *codejudgeconfig.Config) (repository.Repository, func(), error) {
	if !cfg.UsesMySQL() {
		return repository.NewMemory(), func() {}, nil
	}

	mysqlRepo, err := repository.NewMySQL(repository.DefaultMySQLConfig(cfg.MySQLDSN))
	if err != nil {
		return nil, nil, fmt.Errorf("init mysql repository: %w", err)
	}

	var repo repository.Repository = mysqlRepo
	closeFn := func() { _ = mysqlRepo.Close() }

	if cfg.RedisAddr != "" {
		redisCfg := repository.DefaultRedisConfig(cfg.RedisAddr)
		redisCfg.Password = cfg.RedisPassword
		rdb := repository.NewRedisClient(redisCfg)
		repo = repository.NewCachedRepository(mysqlRepo, rdb, 30*time.Second)
		closeFn = func() {
			_ = mysqlRepo.Close()
			_ = rdb.Close()
		}
	}

	return repo, closeFn, nil
}
