package main

import (
	"context"
	"flag"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/params"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/supp-dex/instance-api/internal/adapter"
	"github.com/supp-dex/instance-api/internal/api/middleware"
	"github.com/supp-dex/instance-api/internal/api/rest"
	"github.com/supp-dex/instance-api/internal/api/server"
	"github.com/supp-dex/instance-api/internal/chain"
	"github.com/supp-dex/instance-api/internal/config"
	"github.com/supp-dex/instance-api/internal/deployment"
	"github.com/supp-dex/instance-api/internal/domain"
	"github.com/supp-dex/instance-api/internal/logger"
	"github.com/supp-dex/instance-api/internal/ratelimit"
	"github.com/supp-dex/instance-api/internal/session"
	"github.com/supp-dex/instance-api/internal/store"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadAPIConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "instance-api",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting instance API")

	// Parse the checker verification key; without it the flag endpoints cannot
	// be protected, so refuse to start
	verifyKey, err := middleware.ParseVerifyKey(cfg.Auth.JWTPublicKey)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to parse JWT verification key", zap.Error(err))
	}

	// Parse the deployer key used to fund session wallets
	deployerKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.Chain.DeployerPrivateKey, "0x"))
	if err != nil {
		logger.FatalCtx(ctx, "Failed to parse deployer private key", zap.Error(err))
	}

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err))
	}
	if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
		logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
	}
	if err := store.Migrate(db); err != nil {
		logger.FatalCtx(ctx, "Failed to migrate database", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Connected to database", zap.String("host", cfg.Database.Host))

	flagStore := store.NewPGStore(db)

	// Connect to the chain node
	clock := adapter.NewClock()
	eth, err := adapter.NewEthClientDialer().Dial(ctx, cfg.Chain.RPCURL)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to dial chain node", zap.Error(err), zap.String("rpc_url", cfg.Chain.RPCURL))
	}
	chainID, err := eth.ChainID(ctx)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to get chain ID", zap.Error(err))
	}
	chainClient, err := chain.NewClient(chain.Config{
		ChainID:             chainID,
		ConfirmTimeout:      cfg.Chain.ConfirmTimeout,
		ReceiptPollInterval: cfg.Chain.ReceiptPollInterval,
	}, eth, clock, deployerKey)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create chain client", zap.Error(err))
	}
	defer chainClient.Close()
	logger.InfoCtx(ctx, "Connected to chain node",
		zap.String("rpc_url", cfg.Chain.RPCURL),
		zap.String("chain_id", chainID.String()),
	)

	// Load the deployment descriptor and refuse to serve against a stale one
	loader := deployment.NewLoader(adapter.NewFileSystem(), adapter.NewJSON())
	record, err := loader.Load(cfg.Chain.DeploymentPath)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to load deployment descriptor", zap.Error(err))
	}
	if err := deployment.NewVerifier(chainClient).Verify(ctx, record); err != nil {
		logger.FatalCtx(ctx, "Deployment verification failed", zap.Error(err))
	}

	// Session table, wallet provisioner, rate limiter
	sessions := session.NewManager(session.NewMemoryStore(cfg.Session.MaxSessions, cfg.Session.TTL), clock)
	fundAmount := new(big.Int).Mul(big.NewInt(cfg.Chain.FundAmountETH), big.NewInt(params.Ether))
	provisioner := session.NewProvisioner(chainClient, fundAmount)
	limiter := ratelimit.NewFixedWindow(ratelimit.Config{
		Max:     cfg.RateLimit.Max,
		Window:  cfg.RateLimit.Window,
		MaxKeys: cfg.RateLimit.MaxKeys,
	}, clock)

	funder := domain.Funder{
		Address:    chainClient.DeployerAddress(),
		PrivateKey: cfg.Chain.DeployerPrivateKey,
	}
	handler := rest.NewHandler(flagStore, chainClient, provisioner, record, funder)

	// Create and start server
	srv := server.New(server.Config{
		Debug:        cfg.Debug,
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
		StaticDir:    cfg.Server.StaticDir,
		Auth: middleware.AuthConfig{
			VerifyKey: verifyKey,
			Issuer:    cfg.Auth.Issuer,
			Audience:  cfg.Auth.Audience,
		},
	}, handler, sessions, limiter)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("component", "server"))
		cancel()
	}

	// Create shutdown context with timeout (don't use canceled ctx)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.FatalCtx(shutdownCtx, "Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Instance API stopped")
}
