package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/magefree/mage-deckbuilder-go/internal/catalog/pgcatalog"
)

var (
	catalogDSN    string
	importBatch   int
	importReplace bool
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the Postgres card catalog",
}

var migrateCmd = &cobra.Command{
	Use:       "migrate <up|down|version>",
	Short:     "Apply or inspect catalog schema migrations",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"up", "down", "version"},
	RunE:      runMigrate,
}

var importCmd = &cobra.Command{
	Use:   "import <cards.csv>",
	Short: "Import cards from a CSV export into the catalog",
	Long: `Migrates the schema up, then upserts every card in the CSV file in
batches. Rows with too few columns are counted and skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	catalogCmd.PersistentFlags().StringVar(&catalogDSN, "dsn", "", "postgres DSN (default from config)")
	importCmd.Flags().IntVar(&importBatch, "batch-size", pgcatalog.DefaultBatchSize, "cards per transaction")
	importCmd.Flags().BoolVar(&importReplace, "replace", false, "truncate the catalog before importing")

	catalogCmd.AddCommand(migrateCmd)
	catalogCmd.AddCommand(importCmd)
}

func dsn() string {
	if catalogDSN != "" {
		return catalogDSN
	}
	return cfg.Catalog.Postgres.DSN
}

func runMigrate(cmd *cobra.Command, args []string) error {
	m, err := pgcatalog.NewMigrator(dsn())
	if err != nil {
		return err
	}
	defer m.Close()

	out := cmd.OutOrStdout()
	switch args[0] {
	case "up":
		if err := m.Up(); err != nil {
			return err
		}
	case "down":
		if err := m.Down(); err != nil {
			return err
		}
	case "version":
	default:
		return fmt.Errorf("unknown migrate action %q", args[0])
	}

	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	if version == 0 {
		fmt.Fprintln(out, "no migrations applied")
		return nil
	}
	fmt.Fprintf(out, "schema version %d (dirty: %t)\n", version, dirty)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	defer f.Close()

	parsed, err := pgcatalog.ParseCSV(f)
	if err != nil {
		return err
	}
	if parsed.Skipped > 0 {
		logger.Warn("skipped short csv rows", zap.Int("skipped", parsed.Skipped))
	}

	m, err := pgcatalog.NewMigrator(dsn())
	if err != nil {
		return err
	}
	err = m.Up()
	m.Close()
	if err != nil {
		return err
	}

	pgCfg := cfg.Catalog.Postgres
	pgCfg.DSN = dsn()
	store, err := pgcatalog.Open(ctx, pgCfg, logger.Named("pgcatalog"))
	if err != nil {
		return err
	}
	defer store.Close()

	if importReplace {
		if err := store.Truncate(ctx); err != nil {
			return err
		}
	}

	stats, err := store.Import(ctx, parsed.Cards, importBatch)
	if err != nil {
		return err
	}
	total, err := store.Count(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "imported %d cards (%d failed, %d rows skipped) in %s; catalog holds %d\n",
		stats.Imported, stats.Failed, parsed.Skipped, stats.Duration.Round(time.Millisecond), total)
	return nil
}
