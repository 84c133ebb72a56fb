package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newRunCmd creates and configures the 'run' subcommand, which drains the
// pending directory queue through the scrape pipeline.
func newRunCmd() *cobra.Command {
	var (
		limit   int
		visible bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Processes pending companies from the directory queue",
		Long: `Pulls pending entries from the directory queue in Postgres and scrapes
each company page in turn, recording per-run counters that the serve command
exposes. The run stops when the queue drains, the limit is reached, or the
process is interrupted.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			logger := appInstance.GetLogger()

			sess, err := appInstance.NewBrowserSession(visible)
			if err != nil {
				return err
			}
			defer closeSession(sess, logger)

			runner := appInstance.NewRunner(appInstance.NewPipeline(sess), appInstance.GetDirectoryQueue())

			summary, err := runner.Run(cmd.Context(), limit)
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("run queue: %w", err)
			}

			logger.Info("Run command finished.",
				zap.String("run_id", summary.RunID.String()),
				zap.Int("processed", summary.Processed),
				zap.Int("failed", summary.Failed),
				zap.Int("vessels_inserted", summary.Inserted),
				zap.Int("vessels_updated", summary.Updated))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum entries to attempt, 0 means drain the queue")
	cmd.Flags().BoolVar(&visible, "visible", false, "run the browser with a visible window")

	return cmd
}
