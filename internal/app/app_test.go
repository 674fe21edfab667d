package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/magefree/mage-deckbuilder-go/internal/builder"
	"github.com/magefree/mage-deckbuilder-go/internal/card"
	"github.com/magefree/mage-deckbuilder-go/internal/catalog"
	"github.com/magefree/mage-deckbuilder-go/internal/catalog/scryfall"
	"github.com/magefree/mage-deckbuilder-go/internal/config"
)

func TestNewLogger(t *testing.T) {
	for _, cfg := range []config.LoggingConfig{
		{Level: "debug", Format: "console"},
		{Level: "warn", Format: "json"},
		{Level: "bogus"},
	} {
		logger, err := NewLogger(cfg)
		require.NoError(t, err)
		assert.NotNil(t, logger)
	}

	logger, err := NewLogger(config.LoggingConfig{Level: "error", Format: "json"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.WarnLevel))
}

func TestOpenMemorySource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"id": "bolt", "name": "Lightning Bolt", "type_line": "Instant", "cmc": 1},
		{"id": "plains", "name": "Plains", "type_line": "Basic Land — Plains"}
	]`), 0o644))

	src, closeFn, err := OpenSource(context.Background(), config.CatalogConfig{Provider: config.ProviderMemory, MemoryFile: path}, zap.NewNop())
	require.NoError(t, err)
	defer closeFn()

	page, err := src.Search(context.Background(), catalog.Query{Text: "bolt"})
	require.NoError(t, err)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "Lightning Bolt", page.Results[0].Name)
}

func TestOpenScryfallSource(t *testing.T) {
	src, closeFn, err := OpenSource(context.Background(), config.CatalogConfig{Provider: config.ProviderScryfall}, zap.NewNop())
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &scryfall.Client{}, src)
}

func TestOpenSourceErrors(t *testing.T) {
	_, closeFn, err := OpenSource(context.Background(), config.CatalogConfig{Provider: "ftp"}, zap.NewNop())
	assert.Error(t, err)
	assert.NotNil(t, closeFn)

	_, _, err = OpenSource(context.Background(), config.CatalogConfig{Provider: config.ProviderMemory, MemoryFile: "/nonexistent/cards.json"}, zap.NewNop())
	assert.Error(t, err)
}

func TestSessionOptionsApplyMaxCopies(t *testing.T) {
	cfg := &config.Config{Deck: config.DeckConfig{MaxCopies: 1}}
	s := builder.NewSession(SessionOptions(cfg, nil, nil)...)
	defer s.Close()

	s.SetCollection(catalog.Page{Results: []card.CatalogCard{{ID: "bolt", Name: "Lightning Bolt", TypeLine: "Instant"}}})
	_, err := s.Apply(builder.Input{Kind: builder.InputContextMenu, Zone: card.ZoneCollection, ID: "bolt"})
	require.NoError(t, err)
	update, err := s.Apply(builder.Input{Kind: builder.InputMenuAction, Action: "fill_deck"})
	require.NoError(t, err)
	assert.Equal(t, 1, update.Affected)
}
