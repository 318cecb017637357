package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ignite/waitlist-api/internal/api"
	"github.com/ignite/waitlist-api/internal/config"
	"github.com/ignite/waitlist-api/internal/mailer"
	"github.com/ignite/waitlist-api/internal/pkg/logger"
	"github.com/ignite/waitlist-api/internal/repository"
	"github.com/ignite/waitlist-api/internal/service/subscription"
)

// shutdownTimeout bounds both draining HTTP requests and waiting for
// in-flight confirmation emails.
const shutdownTimeout = 15 * time.Second

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		logger.Error("failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Log.Level))
	logger.SetRedactPII(cfg.Log.RedactEnabled())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	l, err := net.Listen("tcp", cfg.Server.Addr())
	if err != nil {
		logger.Error("failed to listen", "addr", cfg.Server.Addr(), "error", err)
		os.Exit(1)
	}

	if err := run(ctx, cfg, l); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// run serves on l until ctx is cancelled, then drains requests and pending
// confirmation emails.
func run(ctx context.Context, cfg *config.Config, l net.Listener) error {
	store, conn := openStore(ctx, cfg.Database)
	if conn != nil {
		defer func() {
			if err := conn.Close(); err != nil {
				logger.Warn("store close failed", "error", err)
			}
		}()
	}

	notifier, err := mailer.New(ctx, cfg)
	if err != nil {
		return err
	}
	logger.Info("notifier ready", "provider", cfg.Notifier.Provider)

	svc := subscription.NewService(store, notifier,
		subscription.WithNotifyTimeout(cfg.Notifier.Timeout()))

	var pinger api.Pinger
	if conn != nil {
		pinger = conn
	}
	server := api.NewServer(cfg.Server, api.NewHandlers(svc), api.NewHealthChecker(pinger))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting server", "addr", l.Addr().String())
		if err := server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "error", err)
		}
		if err := svc.Wait(shutdownCtx); err != nil {
			logger.Warn("abandoning pending confirmation emails", "error", err)
		}
		return nil
	})
	return g.Wait()
}

// openStore connects the configured backend. Failures are logged and the
// server keeps running: data endpoints then answer 500 until restart. The
// second return is nil when there is no connection to ping or close.
func openStore(ctx context.Context, cfg config.DatabaseConfig) (subscription.Store, repository.Store) {
	st, err := repository.Open(ctx, cfg)
	if err != nil {
		logger.Error("subscriber store unavailable", "error", err)
		return subscription.UnavailableStore{Cause: err}, nil
	}

	backend, _ := repository.Backend(cfg.URI)
	if err := st.Ping(ctx); err != nil {
		logger.Error("subscriber store ping failed", "backend", backend, "error", err)
		return st, st
	}
	if err := st.EnsureSchema(ctx); err != nil {
		// Create retries this before the first insert.
		logger.Error("subscriber store schema setup failed", "backend", backend, "error", err)
		return st, st
	}
	logger.Info("subscriber store connected", "backend", backend, "database", cfg.Name)
	return st, st
}
