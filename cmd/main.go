package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rxtech-lab/amm-proxy/internal/api"
	"github.com/rxtech-lab/amm-proxy/internal/config"
	"github.com/rxtech-lab/amm-proxy/internal/logging"
	"github.com/rxtech-lab/amm-proxy/internal/services"
	"go.uber.org/zap"
)

// Build information (set via ldflags)
var (
	Version    = "dev"
	CommitHash = "unknown"
	BuildTime  = "unknown"
)

func main() {
	var configPath = flag.String("config", "config.yaml", "Path to configuration file")
	var showVersion = flag.Bool("version", false, "Show version information")
	flag.Parse()

	// Optional .env for local development
	_ = godotenv.Load()

	logger, err := logging.New()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	if *showVersion {
		logger.Info("amm-proxy",
			zap.String("version", Version),
			zap.String("commit", CommitHash),
			zap.String("built", BuildTime),
		)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	var dbService services.DBService
	switch cfg.Database.Driver {
	case "postgres":
		dbService, err = services.NewPostgresDBService(cfg.Database.DSN)
	default:
		dbService, err = services.NewSqliteDBService(cfg.Database.DSN)
	}
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	db := dbService.GetDB()
	poolService := services.NewHTTPPoolService(cfg.Pool.Endpoint, cfg.Pool.Timeout)
	proxyService := services.NewProxyService(db, poolService, logger)
	configService := services.NewConfigService(db)
	bondingService := services.NewBondingService(db)

	server := api.NewAPIServer(logger, configService, proxyService, bondingService, poolService, cfg.Callback.JWTSecret)

	go func() {
		if err := server.Start(cfg.Server.Port); err != nil {
			logger.Fatal("api server stopped", zap.Error(err))
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	logger.Info("shutting down")
	if err := server.Shutdown(); err != nil {
		logger.Error("error shutting down api server", zap.Error(err))
	}
}
