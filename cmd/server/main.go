package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"loan-risk/internal/api"
	"loan-risk/internal/config"
)

func main() {
	cfg, err := config.Load(os.Getenv("LOAN_RISK_CONFIG"))
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	logrus.SetLevel(cfg.Level())

	if dir := filepath.Dir(cfg.DBPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logrus.Fatalf("create data directory: %v", err)
		}
	}

	server, err := api.NewServer(api.Config{
		DBPath:          cfg.DBPath,
		SilentDB:        cfg.SilentDB,
		AllowedOrigins:  cfg.AllowedOrigins,
		PredictConfig:   cfg.Predict.ClientConfig(),
		FallbackBaseURL: cfg.Predict.FallbackBaseURL,
		Retention:       cfg.Retention,
	})
	if err != nil {
		logrus.Fatalf("create server: %v", err)
	}
	defer func() {
		if cerr := server.Close(); cerr != nil {
			logrus.WithError(cerr).Warn("close database")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	server.StartRetention(ctx, 0)

	router, err := server.Router()
	if err != nil {
		logrus.Fatalf("configure router: %v", err)
	}

	logrus.WithFields(logrus.Fields{
		"port":    cfg.Port,
		"db":      cfg.DBPath,
		"origins": strings.Join(cfg.AllowedOrigins, ","),
		"predict": cfg.Predict.BaseURL,
	}).Info("starting loan-risk server")
	if err := router.Run(":" + cfg.Port); err != nil {
		logrus.Fatalf("server exited: %v", err)
	}
}
