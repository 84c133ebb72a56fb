package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newDirectoryCmd creates and configures the 'directory' subcommand, which
// harvests country listing pages into the pending queue without touching the
// browser at all. The listing markup is server-rendered, so a plain Colly
// collector is enough here.
func newDirectoryCmd() *cobra.Command {
	var countries []string

	cmd := &cobra.Command{
		Use:   "directory",
		Short: "Harvests company listings into the directory queue",
		Long: `Walks the paginated company listings for the given countries and upserts
every discovered company URL into the directory queue as pending work for the
run command.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			logger := appInstance.GetLogger()

			if len(countries) == 0 {
				countries = appInstance.GetConfig().Directory.Countries
			}
			if len(countries) == 0 {
				return errors.New("no countries to harvest: pass --countries or set directory.countries")
			}

			added, err := appInstance.NewHarvester().Harvest(cmd.Context(), countries)
			logger.Info("Directory command finished.",
				zap.Int("entries_added", added),
				zap.Strings("countries", countries))
			if err != nil {
				return fmt.Errorf("harvest directory: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&countries, "countries", nil,
		"country slugs to harvest, e.g. --countries turkey,greece")

	return cmd
}
