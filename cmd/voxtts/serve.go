package main

import (
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/go-voxcore/internal/server"
	"github.com/example/go-voxcore/internal/session"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the synthesis HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			eng, mgr, err := newEngine(cfg)
			if err != nil {
				return err
			}
			defer mgr.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if len(cfg.Engine.PreloadStyles) > 0 {
				styles := make([]session.StyleID, len(cfg.Engine.PreloadStyles))
				for i, id := range cfg.Engine.PreloadStyles {
					styles[i] = session.StyleID(id)
				}
				if err := mgr.Preload(ctx, styles...); err != nil {
					return err
				}
			}

			h := server.NewHandler(eng, eng,
				server.WithWorkers(cfg.Server.Workers),
				server.WithRequestTimeout(cfg.Server.RequestTimeout),
				server.WithDefaultParams(prosodyFromConfig(cfg.Engine)),
			)

			slog.Info("serving synthesis API", "addr", cfg.Server.ListenAddr)

			return server.New(cfg.Server.ListenAddr, h).Start(ctx)
		},
	}

	return cmd
}
