package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/magefree/mage-deckbuilder-go/internal/builder"
	"github.com/magefree/mage-deckbuilder-go/internal/deck"
	"github.com/magefree/mage-deckbuilder-go/internal/replay"
)

var replayFormat string

var replayCmd = &cobra.Command{
	Use:   "replay <recording>",
	Short: "Replay a recorded session and print the resulting deck",
	Args:  cobra.ExactArgs(1),
	RunE:  runReplay,
}

func init() {
	replayCmd.Flags().StringVarP(&replayFormat, "format", "f", string(deck.FormatArena), "decklist format (arena, plaintext)")
}

func runReplay(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(replayFormat)
	if err != nil {
		return err
	}

	result, rec, err := playFile(args[0])
	if err != nil {
		return err
	}
	defer result.Session.Close()

	return writeReplay(cmd.OutOrStdout(), rec, result, format)
}

func playFile(path string) (*replay.Result, *replay.Recording, error) {
	rec, err := replay.LoadFromFile(path)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("replaying recording",
		zap.String("session_id", rec.SessionID),
		zap.Int("step_count", rec.Size()),
	)

	result, err := replay.Play(rec,
		builder.WithLogger(logger.Named("replay")),
		builder.WithGestureConfig(cfg.Gesture),
	)
	if err != nil {
		return nil, nil, err
	}
	return result, rec, nil
}

func parseFormat(s string) (deck.ExportFormat, error) {
	switch f := deck.ExportFormat(s); f {
	case deck.FormatArena, deck.FormatPlainText:
		return f, nil
	default:
		return "", fmt.Errorf("invalid export format %q", s)
	}
}

func writeReplay(w io.Writer, rec *replay.Recording, result *replay.Result, format deck.ExportFormat) error {
	changed := 0
	for _, u := range result.Updates {
		if u.Changed() {
			changed++
		}
	}
	stats := result.Session.Stats()
	fmt.Fprintf(w, "session %s: %d steps, %d inputs changed zones\n", rec.SessionID, rec.Size(), changed)
	fmt.Fprintf(w, "deck %d, sideboard %d, unique %d, lands %d\n\n",
		stats.DeckCount, stats.SideboardCount, stats.UniqueCards, stats.LandCount)

	list, err := result.Session.Export(&deck.ExportOptions{Format: format, IncludeHeaders: true})
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, list)
	return err
}
