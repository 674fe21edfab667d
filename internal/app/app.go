// Package app wires configuration into the shared runtime pieces used by
// the server and the command line tool.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/magefree/mage-deckbuilder-go/internal/builder"
	"github.com/magefree/mage-deckbuilder-go/internal/card"
	"github.com/magefree/mage-deckbuilder-go/internal/catalog"
	"github.com/magefree/mage-deckbuilder-go/internal/catalog/pgcatalog"
	"github.com/magefree/mage-deckbuilder-go/internal/catalog/scryfall"
	"github.com/magefree/mage-deckbuilder-go/internal/config"
	"github.com/magefree/mage-deckbuilder-go/internal/deck"
	"github.com/magefree/mage-deckbuilder-go/internal/replay"
)

// NewLogger builds the zap logger described by cfg.
func NewLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}

// LoadCards reads a JSON array of catalog cards.
func LoadCards(path string) ([]card.CatalogCard, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read card file: %w", err)
	}
	var cards []card.CatalogCard
	if err := json.Unmarshal(data, &cards); err != nil {
		return nil, fmt.Errorf("failed to parse card file %s: %w", path, err)
	}
	return cards, nil
}

// OpenSource opens the catalog provider selected in cfg. The returned close
// func releases its resources and is never nil.
func OpenSource(ctx context.Context, cfg config.CatalogConfig, logger *zap.Logger) (catalog.Source, func(), error) {
	noop := func() {}
	switch cfg.Provider {
	case config.ProviderMemory:
		var cards []card.CatalogCard
		if cfg.MemoryFile != "" {
			loaded, err := LoadCards(cfg.MemoryFile)
			if err != nil {
				return nil, noop, err
			}
			cards = loaded
		}
		logger.Info("using in-memory catalog", zap.Int("cards", len(cards)))
		return catalog.NewMemory(cards), noop, nil

	case config.ProviderScryfall:
		logger.Info("using scryfall catalog", zap.String("base_url", cfg.Scryfall.BaseURL))
		return scryfall.NewClient(cfg.Scryfall, logger.Named("scryfall")), noop, nil

	case config.ProviderPostgres:
		store, err := pgcatalog.Open(ctx, cfg.Postgres, logger.Named("pgcatalog"))
		if err != nil {
			return nil, noop, err
		}
		return store, store.Close, nil

	default:
		return nil, noop, fmt.Errorf("invalid catalog provider %q", cfg.Provider)
	}
}

// SessionOptions returns the builder options every session gets under cfg.
// Gesture thresholds are owned by the manager so they can be reloaded.
func SessionOptions(cfg *config.Config, source catalog.Source, recorder *replay.Recorder) []builder.Option {
	opts := []builder.Option{
		builder.WithZoneOptions(deck.WithMaxCopies(cfg.Deck.MaxCopies)),
	}
	if source != nil {
		opts = append(opts, builder.WithSource(source, cfg.Catalog.SearchDebounce))
	}
	if recorder != nil {
		opts = append(opts, builder.WithRecorder(recorder))
	}
	return opts
}
