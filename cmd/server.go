package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/brk3/ghcal/internal/logger"
	"github.com/brk3/ghcal/internal/server"
	"github.com/brk3/ghcal/internal/storage/bolt"
)

const shutdownTimeout = 10 * time.Second

var listenAddr string

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if listenAddr != "" {
			cfg.ListenAddr = listenAddr
		}
		return startServer(cmd.Context())
	},
}

func init() {
	serverCmd.Flags().StringVar(&listenAddr, "listen", "", "listen address (overrides listen_addr)")
	rootCmd.AddCommand(serverCmd)
}

func startServer(ctx context.Context) error {
	store, err := bolt.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	srv, err := server.New(cfg, store, nil)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "addr", cfg.ListenAddr, "auth_enabled", cfg.AuthEnabled, "db", cfg.DBPath)
		errc <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}
