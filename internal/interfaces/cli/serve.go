package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/deepkalilabs/marimo-cosmic/internal/infrastructure/logging"
	"github.com/deepkalilabs/marimo-cosmic/internal/infrastructure/server"
)

const shutdownTimeout = 10 * time.Second

func (a *app) serveCommand() *cobra.Command {
	var addr, basePath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local kernel endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("addr") {
				addr = a.cfg.Addr
			}
			if !cmd.Flags().Changed("base-path") {
				basePath = a.cfg.BasePath
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ks := server.NewKernelServer(
				server.WithBasePath(basePath),
				server.WithLogger(a.logger.Named("kernel")),
			)

			errCh := make(chan error, 1)
			go func() {
				errCh <- ks.Start(addr)
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			a.logger.Info("shutting down kernel server", logging.Fields{"addr": addr})
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return ks.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (env COSMIC_ADDR, default :2718)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "path prefix for the endpoints (env COSMIC_BASE_PATH)")
	return cmd
}
