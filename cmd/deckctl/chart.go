package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/magefree/mage-deckbuilder-go/internal/chart"
)

var (
	chartOut   string
	chartTitle string
	chartTheme string
)

var chartCmd = &cobra.Command{
	Use:   "chart <recording>",
	Short: "Render the mana curve and colours of a recorded deck",
	Long: `Replays a recording and writes an HTML page with the deck's mana
curve and colour breakdown.`,
	Args: cobra.ExactArgs(1),
	RunE: runChart,
}

func init() {
	chartCmd.Flags().StringVarP(&chartOut, "output", "o", "deck.html", "output HTML file")
	chartCmd.Flags().StringVar(&chartTitle, "title", "", "chart title (default: session id)")
	chartCmd.Flags().StringVar(&chartTheme, "theme", chart.DefaultConfig().Theme, "echarts theme")
}

func runChart(cmd *cobra.Command, args []string) error {
	result, rec, err := playFile(args[0])
	if err != nil {
		return err
	}
	defer result.Session.Close()

	ccfg := chart.DefaultConfig()
	ccfg.Theme = chartTheme
	ccfg.Title = chartTitle
	if ccfg.Title == "" {
		ccfg.Title = rec.SessionID
	}

	stats := result.Session.Stats()
	if err := chart.RenderFile(chartOut, stats, ccfg); err != nil {
		return err
	}
	logger.Info("rendered deck chart", zap.String("path", chartOut), zap.Int("deck_count", stats.DeckCount))
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", chartOut)
	return nil
}
