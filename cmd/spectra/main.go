// Command spectra serves the scan API.
// Usage: go run ./cmd/spectra [-config spectra.yaml] [-addr :8000] [-store sqlite] [-verbose]
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/raysh454/spectra/internal/app"
	"github.com/raysh454/spectra/internal/cli"
	"github.com/raysh454/spectra/internal/logging"
	"github.com/raysh454/spectra/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "spectra: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	args, err := cli.ParseArgs(os.Args[1:])
	if err != nil {
		return err
	}

	cfg, err := app.LoadConfig(args.ConfigPath)
	if err != nil {
		return err
	}
	cfg.ApplyArgs(args)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.NewLogger(os.Stdout, cfg.Log.Level, "spectra")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.NewApplication(ctx, cfg, args, logger)
	if err != nil {
		return err
	}

	srv, err := server.NewServer(server.Config{
		ListenAddr:  cfg.Server.ListenAddr,
		ReadTimeout: cfg.Server.ReadTimeout,
		Logger:      logger.With(logging.Field{Key: "module", Value: "server"}),
	}, a.Orch)
	if err != nil {
		_ = a.Shutdown(context.Background())
		return err
	}
	httpSrv := srv.HTTPServer()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", logging.Field{Key: "addr", Value: httpSrv.Addr})
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		httpErr := httpSrv.Shutdown(shutdownCtx)
		appErr := a.Shutdown(shutdownCtx)
		return errors.Join(httpErr, appErr)
	})

	return g.Wait()
}
