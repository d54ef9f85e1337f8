package command

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/castellan/castellan/internal/app"
	"github.com/castellan/castellan/internal/sec"
	"github.com/castellan/castellan/internal/server"
)

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "serve the authentication and protected resource API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (runErr error) {
			cfg, logger, store, err := loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			defer func() {
				if err := store.Close(); err != nil {
					runErr = errors.Join(runErr, err)
				}
			}()

			grp, ctx := errgroup.WithContext(cmd.Context())

			codec := sec.NewTokenCodec(cfg.Secret(), cfg.TokenTTL())
			login := sec.NewLoginService(store, codec)
			appServer := app.New(cfg, logger, store, login)

			listener, err := server.Listen(ctx, cfg.ListenAddress)
			if err != nil {
				return err
			}

			srv := &http.Server{Handler: appServer} //nolint:gosec // Serve() sets timeouts

			logger.InfoContext(ctx,
				"starting API server...",
				slog.String("address", cfg.ListenAddress),
				slog.Duration("token_ttl", cfg.TokenTTL()),
			)
			server.Serve(ctx, grp, srv, listener, server.ShutdownTimeout)
			return grp.Wait()
		},
	}
}
