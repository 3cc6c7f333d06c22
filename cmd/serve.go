package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Taichi-iskw/yt-vocab/cmd/vocab"
	"github.com/Taichi-iskw/yt-vocab/internal/api"
	"github.com/Taichi-iskw/yt-vocab/internal/logger"
)

// serveCmd serves the registry over HTTP
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the vocabulary registry over HTTP",
	Long:  `Start a read-only JSON API over the configured store (words, cached segments and notes).`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cache, cfg, cleanup, err := vocab.NewServiceFactory().CreateService(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		log := logger.New(logger.WithLevel(cfg.LogLevel), logger.WithFormat(cfg.LogFormat))
		srv := &http.Server{
			Addr:              addr,
			Handler:           api.NewRouter(&api.App{Vocab: cache, Log: log}),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.WithField("addr", addr).Info("listening")
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server failed: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().String("addr", "127.0.0.1:8080", "Address to listen on")
	rootCmd.AddCommand(serveCmd)
}
