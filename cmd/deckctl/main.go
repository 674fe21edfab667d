// deckctl is the command line companion to the deck builder server: it
// classifies gesture scripts, replays recorded sessions, searches and
// imports the card catalog, and renders deck charts.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/magefree/mage-deckbuilder-go/internal/app"
	"github.com/magefree/mage-deckbuilder-go/internal/config"
)

var (
	// Global flags
	configPath string
	verbose    bool

	// Set in PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "deckctl",
	Short: "Deck builder tooling",
	Long: `deckctl works with the same configuration as the deck builder server.

Gesture scripts, session recordings and the card catalog can all be
inspected from here without running the server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if verbose {
			loaded.Logging.Level = "debug"
		}
		logger, err = app.NewLogger(loaded.Logging)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		cfg = loaded
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config/config.yaml", "path to configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(chartCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
