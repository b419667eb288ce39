package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yargnad/The-Crystalizer/internal/api"
	"github.com/yargnad/The-Crystalizer/internal/controller"
	"github.com/yargnad/The-Crystalizer/internal/scrape"
	"github.com/yargnad/The-Crystalizer/internal/store"
)

func serveCmd() *cobra.Command {
	var addr string
	var ephemeral bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the workflow over loopback HTTP for a browser front end",
		Long: `Expose the Crystalizer state and operations as a small JSON API on
listen_addr (default 127.0.0.1:8765). A browser content script can POST its
scrape results to /api/v1/scrape; GET /api/v1/state returns everything.

With --ephemeral state lives in memory only and nothing is archived.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ephemeral {
				cfg, log, err := loadConfig()
				if err != nil {
					return err
				}
				defer log.Sync()

				ctrl := controller.New(controller.Options{
					KV:        store.NewMemory(),
					Scraper:   scrape.New(cfg, log),
					Platforms: cfg.Platforms,
					DriveURL:  cfg.DriveURL,
					Logger:    log,
				})
				if _, err := ctrl.Init(ctx); err != nil {
					return err
				}
				if addr == "" {
					addr = cfg.ListenAddr
				}
				return serve(ctx, api.NewServer(addr, ctrl, log), log)
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()
			if addr == "" {
				addr = a.cfg.ListenAddr
			}
			return serve(ctx, api.NewServer(addr, a.ctrl, a.log), a.log)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default listen_addr)")
	cmd.Flags().BoolVar(&ephemeral, "ephemeral", false, "Keep state in memory only")

	return cmd
}

func serve(ctx context.Context, srv *api.Server, log *zap.Logger) error {
	err := srv.Start(ctx)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	if err == nil {
		log.Info("API server stopped")
	}
	return err
}
