package deck

import (
	"fmt"
	"strings"

	"github.com/magefree/mage-deckbuilder-go/internal/card"
)

// ExportFormat represents the decklist text format.
type ExportFormat string

const (
	FormatArena     ExportFormat = "arena"     // 4 Lightning Bolt (M10) 146
	FormatPlainText ExportFormat = "plaintext" // 4x Lightning Bolt
)

// ExportOptions controls decklist export.
type ExportOptions struct {
	Format         ExportFormat
	IncludeHeaders bool
}

// Export renders the deck and sideboard as decklist text.
func (z *Zones) Export(options *ExportOptions) (string, error) {
	if options == nil {
		options = &ExportOptions{Format: FormatArena, IncludeHeaders: true}
	}

	var line func(Entry) string
	switch options.Format {
	case FormatArena:
		line = arenaLine
	case FormatPlainText:
		line = func(e Entry) string { return fmt.Sprintf("%dx %s", e.Quantity, e.Name) }
	default:
		return "", fmt.Errorf("unsupported export format: %s", options.Format)
	}

	var sb strings.Builder
	if options.IncludeHeaders {
		sb.WriteString("Deck\n")
	}
	for _, e := range z.Entries(card.ZoneDeck) {
		sb.WriteString(line(e))
		sb.WriteString("\n")
	}

	sideboard := z.Entries(card.ZoneSideboard)
	if len(sideboard) > 0 {
		sb.WriteString("\n")
		if options.IncludeHeaders {
			sb.WriteString("Sideboard\n")
		}
		for _, e := range sideboard {
			sb.WriteString(line(e))
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}

func arenaLine(e Entry) string {
	line := fmt.Sprintf("%d %s", e.Quantity, e.Name)
	if e.SetCode != "" && e.CollectorNumber != "" {
		line += fmt.Sprintf(" (%s) %s", strings.ToUpper(e.SetCode), e.CollectorNumber)
	}
	return line
}
