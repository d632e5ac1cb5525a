package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aegisshield/case-dashboard/internal/config"
	"github.com/aegisshield/case-dashboard/internal/server"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the configuration file")
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	// Initialize logger
	logger, level := initLogger()
	defer logger.Sync()

	logger.Info("Starting Case Dashboard Service", zap.String("version", version))

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	if err := level.UnmarshalText([]byte(cfg.Logging.Level)); err != nil {
		logger.Warn("Invalid logging level, keeping default", zap.String("level", cfg.Logging.Level))
	}

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Environment),
		zap.Bool("debug", cfg.Debug),
		zap.String("timezone", cfg.Dashboard.Timezone))

	// Initialize server
	srv := server.New(cfg, logger, version)
	if err := srv.Initialize(); err != nil {
		logger.Fatal("Failed to initialize server", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("Case Dashboard Service stopped")
}

// initLogger initializes the zap logger. The returned level can be changed
// once the configuration is known.
func initLogger() (*zap.Logger, zap.AtomicLevel) {
	var config zap.Config

	env := os.Getenv("ENVIRONMENT")
	if env == "production" {
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	} else {
		config = zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	logger, err := config.Build()
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	return logger, config.Level
}
