package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/michaelbrown/envop/internal/environ"
	"github.com/michaelbrown/envop/internal/metrics"
	"github.com/michaelbrown/envop/internal/server"
)

var portFlag int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the envop HTTP server",
	Long: `Start the envop HTTP server with REST API and WebSocket support.

Operator endpoints live under /api/{env} where env is local or sandbox.
The command journal is under /api/history, Prometheus metrics at /metrics.

Examples:
  envop serve
  envop serve --port 9090`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&portFlag, "port", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logrus.SetLevel(max(logrus.GetLevel(), logrus.InfoLevel))

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	} else {
		logrus.Info("command journal disabled")
	}

	m := metrics.NewCollector()
	envs := server.NewEnvironmentPool(func(name string) (*environ.Environment, error) {
		return environ.Open(cfg, name, store, m)
	})

	// Determine port
	port := cfg.Server.Port
	if portFlag > 0 {
		port = portFlag
	}

	srv := server.New(envs, store, m)

	// Graceful shutdown on SIGINT/SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-sigCh
		if err := srv.Shutdown(context.Background()); err != nil {
			logrus.WithError(err).Warn("shutdown")
		}
	}()

	if err := srv.Start(port); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving: %w", err)
	}
	<-done
	return nil
}
