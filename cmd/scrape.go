package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	queueMemory "github.com/sajidahmed66/company-vessels/internal/queue/memory"
)

// newScrapeCmd creates and configures the 'scrape' subcommand, which processes
// a single company page end to end. It is the quickest way to verify a site
// profile against one known company before draining a whole directory queue.
func newScrapeCmd() *cobra.Command {
	var (
		rawURL  string
		visible bool
	)

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrapes one company page and its fleet",
		Long: `Establishes a browser session, loads the given company page, replays the
fleet-data endpoint from inside it, and upserts the company and its vessels
into Postgres.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			logger := appInstance.GetLogger()

			target := appInstance.GetSite()
			if !target.IsCompanyURL(rawURL) {
				return fmt.Errorf("not a company page on %s: %s", target.Host(), rawURL)
			}

			sess, err := appInstance.NewBrowserSession(visible)
			if err != nil {
				return err
			}
			defer closeSession(sess, logger)

			queue := queueMemory.NewQueue(rawURL)
			runner := appInstance.NewRunner(appInstance.NewPipeline(sess), queue)

			summary, err := runner.Run(cmd.Context(), 1)
			if err != nil {
				return fmt.Errorf("scrape company: %w", err)
			}
			if summary.Failed > 0 {
				return errors.New("scrape company: page could not be processed, see run log")
			}

			logger.Info("Scrape command finished.",
				zap.String("run_id", summary.RunID.String()),
				zap.Int("vessels_inserted", summary.Inserted),
				zap.Int("vessels_updated", summary.Updated))
			return nil
		},
	}

	cmd.Flags().StringVar(&rawURL, "url", "", "company page URL to scrape")
	cmd.Flags().BoolVar(&visible, "visible", false, "run the browser with a visible window")
	_ = cmd.MarkFlagRequired("url")

	return cmd
}
