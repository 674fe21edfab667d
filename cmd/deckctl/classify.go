package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/magefree/mage-deckbuilder-go/internal/card"
	"github.com/magefree/mage-deckbuilder-go/internal/gesture"
)

var classifyJSON bool

var classifyCmd = &cobra.Command{
	Use:   "classify <script.yaml>",
	Short: "Run a gesture script through the classifier",
	Long: `Reads a YAML gesture script and prints what each input resolved to.
Thresholds come from the script's config block, falling back to the
gesture section of the configuration file. Use "-" to read stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().BoolVar(&classifyJSON, "json", false, "print results as JSON")
}

func runClassify(cmd *cobra.Command, args []string) error {
	r, closeFn, err := openInput(args[0])
	if err != nil {
		return err
	}
	defer closeFn()

	script, err := gesture.ParseScript(r)
	if err != nil {
		return err
	}
	gcfg := script.ConfigOr(cfg.Gesture)
	logger.Debug("classifying gesture script",
		zap.String("script", args[0]),
		zap.Int("inputs", len(script.Inputs)),
		zap.Duration("hold_delay", gcfg.HoldDelay),
	)

	results, err := gesture.Classify(gcfg, script.Resolve(time.Unix(0, 0)))
	if err != nil {
		return err
	}
	return writeResults(cmd.OutOrStdout(), results, classifyJSON)
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return f, func() { _ = f.Close() }, nil
}

func writeResults(w io.Writer, results []gesture.Result, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	if len(results) == 0 {
		_, err := fmt.Fprintln(w, "no gestures")
		return err
	}
	for i, r := range results {
		line := fmt.Sprintf("%d. %s %s", i+1, r.Outcome, r.Target.ID)
		if r.From != card.ZoneNone {
			line += " from " + string(r.From)
		}
		if r.To != card.ZoneNone {
			line += " to " + string(r.To)
		}
		if r.Modifier {
			line += " (modifier)"
		}
		if len(r.Payload) > 1 {
			ids := make([]string, 0, len(r.Payload))
			for _, c := range r.Payload {
				ids = append(ids, card.SelectionID(c))
			}
			line += " [" + strings.Join(ids, ", ") + "]"
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
