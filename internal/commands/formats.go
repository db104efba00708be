package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/tally-dev/tally/internal/config"
)

func newFormatsCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "formats",
		Short: "List configured statement formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			printFormats(cfg)
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "tally.yaml", "pipeline configuration file")

	return cmd
}

func printFormats(cfg *config.Config) {
	for _, f := range cfg.Formats {
		fmt.Printf("%s (source: %s, dates: %s, sign: %s)\n", f.Name, f.SourceName(), f.DateLayout, f.Sign)

		fields := make([]string, 0, len(f.Columns))
		for field := range f.Columns {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		for _, field := range fields {
			fmt.Printf("  %-18s %q\n", field, f.Columns[field])
		}
	}
}
