package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"msqc/adapters/history"
	"msqc/internal/config"
	"msqc/internal/serve"
)

var (
	flagServeDir  string
	flagServeAddr string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a generated report directory over HTTP",
	Long: `Serves the report bundle as static files and exposes score and run
history as JSON under /api. Prometheus metrics are available at /metrics.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&flagServeDir, "dir", "d", "", "report directory to serve (required)")
	serveCmd.Flags().StringVarP(&flagServeAddr, "addr", "a", "", "listen address (default from config, :8700)")
	_ = serveCmd.MarkFlagRequired("dir")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(filepath.Join(flagServeDir, config.File))
	if err != nil {
		return err
	}
	if err := initLogger(cfg.Logging); err != nil {
		return err
	}

	addr := flagServeAddr
	if addr == "" {
		addr = cfg.Serve.Addr
	}

	opts := []serve.Option{serve.WithLogger(logger)}
	if cfg.History.Enabled {
		dbPath := cfg.HistoryPath(flagServeDir)
		if _, err := os.Stat(dbPath); err == nil {
			store, err := history.Open(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()
			opts = append(opts, serve.WithHistory(store))
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		logger.Infow("shutdown signal received")
		cancel()
	}()

	logger.Infow("serving reports", "dir", flagServeDir, "addr", addr)
	return serve.New(flagServeDir, addr, opts...).Run(ctx)
}
