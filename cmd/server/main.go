package main

import (
	"context"
	"errors"
	"net"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/lunamoth/driftwood/internal/config"
	"github.com/lunamoth/driftwood/internal/logger"
	"github.com/lunamoth/driftwood/internal/server"
	"github.com/lunamoth/driftwood/internal/store"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	defer log.Sync() //nolint:errcheck

	log.Info("Driftwood starting",
		zap.String("port", cfg.Server.Port),
		zap.Bool("snapshots", cfg.Snapshot.Enabled),
	)

	db := store.New()

	// a snapshot file that exists but cannot be loaded refuses startup
	engine, err := server.NewEngine(db, cfg, log)
	if err != nil {
		log.Fatal("cant initialize engine", zap.Error(err))
	}

	address := net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		log.Fatal("listener error", zap.Error(err))
	}
	log.Info("listening on", zap.String("address", address))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					return
				}
				log.Error("Accept error", zap.Error(err))
				continue
			}

			wg.Add(1)
			go func() {
				defer wg.Done()
				server.HandleConnection(conn, engine, log)
			}()
		}
	}()

	<-ctx.Done()

	log.Info("Shutting down...")

	// stop accepting first, let in-flight commands finish, then the final
	// save runs inside Shutdown
	listener.Close() //nolint:errcheck

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("All connections closed gracefully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timed out, forcing exit", zap.Duration("timeout", shutdownTimeout))
	}

	engine.Shutdown()

	log.Info("Driftwood stopped")
}
