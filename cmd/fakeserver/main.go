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

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dgnsrekt/plurk-comet/internal/config"
	"github.com/dgnsrekt/plurk-comet/internal/fakeplurk"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Setup logger
	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	// Load config
	cfg, err := config.LoadServerConfig()
	if err != nil {
		logger.Error("failed to load config", zap.Error(err))
		return 1
	}

	logger.Info("configuration loaded",
		zap.String("port", cfg.Port),
		zap.String("channelPrefix", cfg.ChannelPrefix),
		zap.Duration("hold", cfg.Hold),
		zap.Duration("demoInterval", cfg.DemoInterval),
		zap.Duration("channelTTL", cfg.ChannelTTL),
		zap.Int64("userID", cfg.UserID),
	)

	hub := fakeplurk.NewHub(cfg.ChannelPrefix, logger)
	demo := fakeplurk.NewDemo(hub, cfg.DemoInterval, logger)
	srv := fakeplurk.NewServer(hub, cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	// Setup HTTP server. WriteTimeout must outlast the long-poll hold, and
	// held polls end with gctx so shutdown does not wait for them.
	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      fakeplurk.NewRouter(srv, logger),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.Hold + 30*time.Second,
		BaseContext:  func(net.Listener) context.Context { return gctx },
	}

	g.Go(func() error {
		hub.Run(gctx, cfg.ChannelTTL)
		return nil
	})

	if cfg.DemoInterval > 0 {
		g.Go(func() error {
			demo.Run(gctx)
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("starting server", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server...")

		// Graceful HTTP server shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		return 1
	}

	logger.Info("server stopped")
	return 0
}
