// Package chart renders deck statistics as interactive HTML charts.
package chart

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/magefree/mage-deckbuilder-go/internal/deck"
)

// Config holds chart presentation settings.
type Config struct {
	Title  string
	Width  string // e.g. "900px"
	Height string
	Theme  string
}

// DefaultConfig returns the default chart settings.
func DefaultConfig() Config {
	return Config{
		Title:  "Deck",
		Width:  "900px",
		Height: "400px",
		Theme:  "light",
	}
}

// colorNames maps color codes to legend names, in WUBRG order.
var colorNames = []struct{ code, name string }{
	{"W", "White"},
	{"U", "Blue"},
	{"B", "Black"},
	{"R", "Red"},
	{"G", "Green"},
	{"C", "Colorless"},
}

var colorHex = map[string]string{
	"W": "#F8E7B9",
	"U": "#3E8EDE",
	"B": "#4A4A4A",
	"R": "#E05A3A",
	"G": "#3BA272",
	"C": "#B0B0B0",
}

// CurveLabels returns the x axis labels of the mana curve.
func CurveLabels() []string {
	labels := make([]string, deck.CurveBuckets)
	for i := range labels {
		labels[i] = strconv.Itoa(i)
	}
	labels[deck.CurveBuckets-1] += "+"
	return labels
}

func initOpts(cfg Config) charts.GlobalOpts {
	return charts.WithInitializationOpts(opts.Initialization{
		Width:  cfg.Width,
		Height: cfg.Height,
		Theme:  cfg.Theme,
	})
}

// ManaCurve builds a bar chart of non-land cards by mana value.
func ManaCurve(stats deck.Stats, cfg Config) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		initOpts(cfg),
		charts.WithTitleOpts(opts.Title{
			Title:    cfg.Title + " mana curve",
			Subtitle: fmt.Sprintf("%d cards, %d lands", stats.DeckCount, stats.LandCount),
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(false),
		}),
	)

	data := make([]opts.BarData, len(stats.ManaCurve))
	for i, n := range stats.ManaCurve {
		data[i] = opts.BarData{Value: n}
	}
	bar.SetXAxis(CurveLabels()).
		AddSeries("Cards", data).
		SetSeriesOptions(
			charts.WithLabelOpts(opts.Label{
				Show:     opts.Bool(true),
				Position: "top",
			}),
		)
	return bar
}

// Colors builds a pie chart of color symbols among non-land cards. Colors
// with no cards are left out.
func Colors(stats deck.Stats, cfg Config) *charts.Pie {
	pie := charts.NewPie()
	pie.SetGlobalOptions(
		initOpts(cfg),
		charts.WithTitleOpts(opts.Title{Title: cfg.Title + " colors"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	data := make([]opts.PieData, 0, len(colorNames))
	palette := make(opts.Colors, 0, len(colorNames))
	for _, c := range colorNames {
		if n := stats.Colors[c.code]; n > 0 {
			data = append(data, opts.PieData{Name: c.name, Value: n})
			palette = append(palette, colorHex[c.code])
		}
	}
	for _, code := range unknownColors(stats.Colors) {
		data = append(data, opts.PieData{Name: code, Value: stats.Colors[code]})
	}
	if len(palette) > 0 {
		pie.SetGlobalOptions(charts.WithColorsOpts(palette))
	}
	pie.AddSeries("Colors", data)
	return pie
}

func unknownColors(counts map[string]int) []string {
	known := make(map[string]bool, len(colorNames))
	for _, c := range colorNames {
		known[c.code] = true
	}
	var codes []string
	for code, n := range counts {
		if !known[code] && n > 0 {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	return codes
}

// Render writes an HTML page with the mana curve and color charts.
func Render(w io.Writer, stats deck.Stats, cfg Config) error {
	page := components.NewPage()
	page.PageTitle = cfg.Title
	page.AddCharts(ManaCurve(stats, cfg), Colors(stats, cfg))
	if err := page.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

// RenderFile writes the chart page to path.
func RenderFile(path string, stats deck.Stats, cfg Config) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create chart file: %w", err)
	}
	defer f.Close()

	return Render(f, stats, cfg)
}
