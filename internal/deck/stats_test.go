package deck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magefree/mage-deckbuilder-go/internal/card"
)

func TestEntriesGroupByCard(t *testing.T) {
	z := newTestZones()
	z.Add(bolt(), card.ZoneDeck, 2)
	z.Add(plains(), card.ZoneDeck, 3)
	z.Add(bolt(), card.ZoneDeck, 1)

	entries := z.Entries(card.ZoneDeck)
	require.Len(t, entries, 2)
	assert.Equal(t, "bolt", entries[0].CardID)
	assert.Equal(t, 3, entries[0].Quantity)
	assert.Len(t, entries[0].InstanceIDs, 3)
	assert.Equal(t, "plains", entries[1].CardID)
	assert.Equal(t, 3, entries[1].Quantity)
	assert.Nil(t, z.Entries(card.ZoneCollection))
}

func TestStats(t *testing.T) {
	z := newTestZones()
	z.Add(bolt(), card.ZoneDeck, 4)
	z.Add(plains(), card.ZoneDeck, 10)
	z.Add(card.FromCatalog(card.CatalogCard{ID: "emrakul", Name: "Emrakul", TypeLine: "Legendary Creature", CMC: 15}), card.ZoneDeck, 1)
	z.Add(card.FromCatalog(card.CatalogCard{ID: "ornithopter", Name: "Ornithopter", TypeLine: "Artifact Creature", CMC: 0}), card.ZoneSideboard, 2)

	s := z.Stats()
	assert.Equal(t, 15, s.DeckCount)
	assert.Equal(t, 2, s.SideboardCount)
	assert.Equal(t, 4, s.UniqueCards)
	assert.Equal(t, 10, s.LandCount)
	assert.Equal(t, 4, s.ManaCurve[1])
	assert.Equal(t, 1, s.ManaCurve[CurveBuckets-1])
	assert.Equal(t, 4, s.Colors["R"])
	assert.Equal(t, 1, s.Colors["C"])
}

func TestExportArena(t *testing.T) {
	z := newTestZones()
	z.Add(bolt(), card.ZoneDeck, 4)
	z.Add(plains(), card.ZoneSideboard, 2)

	out, err := z.Export(nil)
	require.NoError(t, err)
	assert.Equal(t, "Deck\n4 Lightning Bolt (M10) 146\n\nSideboard\n2 Plains (M10) 230\n", out)
}

func TestExportPlainText(t *testing.T) {
	z := newTestZones()
	z.Add(bolt(), card.ZoneDeck, 2)

	out, err := z.Export(&ExportOptions{Format: FormatPlainText})
	require.NoError(t, err)
	assert.Equal(t, "2x Lightning Bolt\n", out)

	_, err = z.Export(&ExportOptions{Format: "mtgo"})
	assert.Error(t, err)
}
