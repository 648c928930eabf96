// Command httpd is the thin HTTP host for the engine: POST /query runs
// one statement and returns the §6 result shape; GET /debug/ws streams
// StatementExecuted telemetry. Outside the engine's CORE per
// SPEC_FULL.md §4.K — it only calls engine.Execute.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"

	"github.com/vinaxue/cs5510-project3/internal/config"
	"github.com/vinaxue/cs5510-project3/internal/telemetry"
	"github.com/vinaxue/cs5510-project3/pkg/engine"
)

func main() {
	var opts config.Flags
	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(1)
	}
	cfg, err := config.Resolve(opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	zapCfg := zap.NewProductionConfig()
	if err := zapCfg.Level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, err := zapCfg.Build()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	tel := telemetry.NewRegistry()
	eng, err := engine.Open(cfg.DataDir, log, tel)
	if err != nil {
		log.Fatal("failed to open engine", zap.Error(err))
	}
	defer eng.Close()

	h := &handlers{eng: eng, tel: tel, log: log}
	srv := &http.Server{Addr: cfg.Addr, Handler: setupRoutes(h)}

	go func() {
		log.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn("graceful shutdown failed", zap.Error(err))
	}
}
