package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tally-dev/tally/internal/category"
	"github.com/tally-dev/tally/internal/config"
	"github.com/tally-dev/tally/internal/ingest"
	"github.com/tally-dev/tally/internal/logger"
	"github.com/tally-dev/tally/internal/store"
)

func newImportCommand() *cobra.Command {
	var (
		user       string
		format     string
		configPath string
		migrations string
		dryRun     bool
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "import <statement.csv>",
		Short: "Import a bank statement export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, args[0], user, format, configPath, migrations, dryRun, logLevel)
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "user id to import for (required)")
	_ = cmd.MarkFlagRequired("user")
	cmd.Flags().StringVar(&format, "format", "", "format hint, skips auto-detection")
	cmd.Flags().StringVar(&configPath, "config", "tally.yaml", "pipeline configuration file")
	cmd.Flags().StringVar(&migrations, "migrations", "migrations", "schema migrations directory")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "run the pipeline without persisting")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "debug, info, warn, or error")

	return cmd
}

func runImport(cmd *cobra.Command, path, user, format, configPath, migrations string, dryRun bool, logLevel string) error {
	log := logger.New(logger.Config{Level: logLevel, Pretty: true})

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	var st store.Store
	if dryRun {
		st = store.NewMemory()
	} else {
		pg, err := store.Open(config.LoadDB().DSN(), log)
		if err != nil {
			return err
		}
		defer pg.Close()

		if _, err := os.Stat(migrations); err == nil {
			if err := pg.Migrate(migrations); err != nil {
				return err
			}
		}
		st = pg
	}

	pipeline, err := ingest.New(cfg, st, category.NewRuleResolver(cfg.Categories), log)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening statement: %w", err)
	}
	defer f.Close()

	result, batch, err := pipeline.Run(cmd.Context(), user, f, filepath.Base(path), format)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	if dryRun {
		fmt.Printf("[dry run] %s\n", result.Message)
	} else {
		fmt.Println(result.Message)
	}
	for _, o := range batch.RowErrors() {
		fmt.Printf("  row %d skipped: %s\n", o.Row, o.Reason)
	}
	return nil
}
