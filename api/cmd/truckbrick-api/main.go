package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"truckbrick/api/internal/bootstrap"
	"truckbrick/api/internal/config"
	"truckbrick/api/internal/handle"
	"truckbrick/api/internal/httpserver"
	"truckbrick/api/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config", zap.Error(err))
	}

	zl := logger.New(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = zl.Sync() }()
	log := logger.NewZapAdapter(zl)

	engines := bootstrap.Engines(cfg)
	pipe, err := bootstrap.Pipeline(cfg, engines, log)
	if err != nil {
		zl.Fatal("pipeline", zap.Error(err))
	}

	mux := httpserver.NewMux("ok")
	handle.New(pipe, engines, log).Register(mux)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("truckbrick api starting", map[string]interface{}{
		"engines": engines.Available(), "default": cfg.DefaultEngine, "render": pipe.CanRender(),
	})
	if err := httpserver.Serve(ctx, ":"+cfg.Port, mux, log); err != nil {
		zl.Fatal("http server", zap.Error(err))
	}
}
