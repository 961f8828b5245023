package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"circles-credit-backend/internal/app"
	"circles-credit-backend/internal/config"
	"circles-credit-backend/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.NewLogger(config.LogConfig{Level: "info", Format: "json"}).Error("startup failed", "err", err)
		os.Exit(1)
	}
	log := logging.NewLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("startup failed", "err", err)
		os.Exit(1)
	}

	e := a.NewServer()
	addr := ":" + cfg.App.Port
	go func() {
		log.Info("listening", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", "err", err)
	}
	if err := a.Close(shutdownCtx); err != nil {
		log.Error("close", "err", err)
	}
}
