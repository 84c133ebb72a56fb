package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// shutdownTimeout bounds how long in-flight API requests may finish during a
// graceful stop.
const shutdownTimeout = 10 * time.Second

// newServeCmd creates and configures the 'serve' subcommand, which exposes
// the read-only ops API over the recorded scrape runs.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serves the read-only ops API",
		Long: `Starts the HTTP API that reports scrape run status out of Postgres,
along with health, readiness and Prometheus metrics endpoints. The server
runs until interrupted.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			logger := appInstance.GetLogger()

			srv := &http.Server{
				Addr:              appInstance.GetConfig().API.ListenAddr,
				Handler:           appInstance.NewAPIServer().Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("API server listening", zap.String("addr", srv.Addr))
				errCh <- srv.ListenAndServe()
			}()

			select {
			case <-cmd.Context().Done():
				ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := srv.Shutdown(ctx); err != nil {
					return fmt.Errorf("shutdown api server: %w", err)
				}
				logger.Info("API server stopped.")
				return nil
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("serve api: %w", err)
				}
				return nil
			}
		},
	}

	return cmd
}
