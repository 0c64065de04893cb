package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/maestro-sh/maestro"
)

func newServeCmd(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the orchestrator daemon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(flags.ConfigPath)
		},
	}
}

func runServe(configPath string) error {
	cfg, err := maestro.LoadConfig(configPath)
	if err != nil {
		return err
	}

	cons := maestro.NewConsole(os.Stdout)
	log := maestro.NewConsoleLogger(cons, slog.LevelInfo)

	var hist maestro.HistorySink
	if cfg.HistoryPath != "" {
		hist, err = maestro.NewSQLiteHistory(cfg.HistoryPath)
		if err != nil {
			return err
		}
		defer func() { _ = hist.Close() }()
	}

	orch := maestro.NewOrchestrator(maestro.OrchestratorOptions{
		Config:  cfg,
		Console: cons,
		Logger:  log,
		History: hist,
	})
	orch.StartMonitoring()

	srv := orch.NewServer(cfg.Listen, hist)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	log.Info("orchestrator API listening", "addr", cfg.Listen)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		orch.StopAll()
		orch.StopMonitoring()
		return err
	case sig := <-sigCh:
		log.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	orch.StopAll()
	orch.StopMonitoring()
	log.Info("shutdown complete")
	return nil
}
