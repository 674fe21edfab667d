package builder

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/magefree/mage-deckbuilder-go/internal/card"
	"github.com/magefree/mage-deckbuilder-go/internal/catalog"
	"github.com/magefree/mage-deckbuilder-go/internal/deck"
	"github.com/magefree/mage-deckbuilder-go/internal/gesture"
	"github.com/magefree/mage-deckbuilder-go/internal/menu"
	"github.com/magefree/mage-deckbuilder-go/internal/selection"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func ms(n int) time.Time {
	return t0.Add(time.Duration(n) * time.Millisecond)
}

var testCards = []card.CatalogCard{
	{ID: "bolt", Name: "Lightning Bolt", TypeLine: "Instant", CMC: 1, Colors: []string{"R"}, Rarity: "common", SetCode: "m10", CollectorNumber: "146"},
	{ID: "counterspell", Name: "Counterspell", TypeLine: "Instant", CMC: 2, Colors: []string{"U"}, Rarity: "common", SetCode: "mh2", CollectorNumber: "267"},
	{ID: "plains", Name: "Plains", TypeLine: "Basic Land — Plains", Rarity: "common", SetCode: "m10", CollectorNumber: "230"},
	{ID: "serra", Name: "Serra Angel", TypeLine: "Creature — Angel", CMC: 5, Colors: []string{"W"}, Rarity: "uncommon", SetCode: "m10", CollectorNumber: "36"},
}

type recorded struct {
	mu     sync.Mutex
	inputs []Input
}

func (r *recorded) Record(_ string, in Input) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inputs = append(r.inputs, in)
}

func (r *recorded) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inputs)
}

func pageOf(cards ...card.CatalogCard) catalog.Page {
	return catalog.Page{Results: cards, TotalCount: len(cards)}
}

func newTestSession(t *testing.T, opts ...Option) *Session {
	t.Helper()
	s := NewSession(opts...)
	t.Cleanup(s.Close)
	s.SetCollection(pageOf(testCards...))
	return s
}

func apply(t *testing.T, s *Session, in Input) Update {
	t.Helper()
	update, err := s.Apply(in)
	require.NoError(t, err)
	return update
}

func nativeDoubleClick(at time.Time, zone card.Zone, id string) Input {
	return Input{Kind: InputDoubleClick, At: at, Zone: zone, ID: id}
}

func clickAt(t *testing.T, s *Session, at time.Time, zone card.Zone, id string, modifier bool) Update {
	t.Helper()
	apply(t, s, Input{Kind: InputPointerDown, At: at, Zone: zone, ID: id, Modifier: modifier})
	return apply(t, s, Input{Kind: InputPointerUp, At: at.Add(40 * time.Millisecond)})
}

func cardIDs(instances []card.DeckInstance) []string {
	ids := make([]string, 0, len(instances))
	for _, inst := range instances {
		ids = append(ids, inst.CardID)
	}
	return ids
}

func instanceIDs(instances []card.DeckInstance) []string {
	ids := make([]string, 0, len(instances))
	for _, inst := range instances {
		ids = append(ids, inst.InstanceID)
	}
	return ids
}

func TestDoubleClickAddsUpToCap(t *testing.T) {
	s := newTestSession(t)

	moved := 0
	for i := 0; i < 5; i++ {
		update := apply(t, s, nativeDoubleClick(ms(i*200), card.ZoneCollection, "bolt"))
		require.Equal(t, gesture.OutcomeDoubleClick, update.Outcome)
		require.Len(t, update.Transfers, 1)
		moved += update.Transfers[0].Moved
	}

	assert.Equal(t, 4, moved)
	state := s.Snapshot()
	assert.Len(t, state.Deck, 4)
	assert.Equal(t, 4, state.Stats.DeckCount)
}

func TestDragAddsUpToCap(t *testing.T) {
	s := newTestSession(t)

	moved := 0
	for i := 0; i < 5; i++ {
		base := i * 1000
		apply(t, s, Input{Kind: InputPointerDown, At: ms(base), Zone: card.ZoneCollection, ID: "bolt"})
		update := apply(t, s, Input{Kind: InputTick, At: ms(base + 150)})
		require.Equal(t, gesture.OutcomeDragStart, update.Outcome, "drag %d", i+1)
		apply(t, s, Input{Kind: InputZoneEnter, At: ms(base + 200), Zone: card.ZoneDeck})
		update = apply(t, s, Input{Kind: InputPointerUp, At: ms(base + 300)})
		require.Equal(t, gesture.OutcomeDrop, update.Outcome, "drag %d", i+1)
		require.Len(t, update.Transfers, 1)
		moved += update.Transfers[0].Moved
	}

	assert.Equal(t, 4, moved)
	assert.Len(t, s.Snapshot().Deck, 4)
}

func TestPressDoubleClickBurstTransfersOnce(t *testing.T) {
	s := newTestSession(t)

	clickAt(t, s, ms(0), card.ZoneCollection, "bolt", false)
	update := apply(t, s, Input{Kind: InputPointerDown, At: ms(200), Zone: card.ZoneCollection, ID: "bolt"})
	require.Equal(t, gesture.OutcomeDoubleClick, update.Outcome)
	apply(t, s, Input{Kind: InputPointerUp, At: ms(220)})

	for _, in := range []Input{
		{Kind: InputPointerDown, At: ms(230), Zone: card.ZoneCollection, ID: "bolt"},
		{Kind: InputPointerUp, At: ms(240)},
		nativeDoubleClick(ms(245), card.ZoneCollection, "bolt"),
	} {
		update = apply(t, s, in)
		assert.Equal(t, gesture.OutcomeNone, update.Outcome, "%s at %s", in.Kind, in.At.Sub(t0))
	}
	assert.Len(t, s.Snapshot().Deck, 1)
}

func TestBasicLandsHaveNoCap(t *testing.T) {
	s := newTestSession(t)

	for i := 0; i < 10; i++ {
		update := apply(t, s, nativeDoubleClick(ms(i*200), card.ZoneCollection, "plains"))
		require.True(t, update.Changed(), "add %d", i+1)
	}
	assert.Len(t, s.Snapshot().Deck, 10)
}

func TestClickThenModifierClickSelectsBoth(t *testing.T) {
	s := newTestSession(t)

	update := clickAt(t, s, ms(0), card.ZoneCollection, "bolt", false)
	assert.Equal(t, gesture.OutcomeClick, update.Outcome)
	clickAt(t, s, ms(1000), card.ZoneCollection, "counterspell", true)

	sel := s.Snapshot().Selection
	assert.Equal(t, selection.ModeMultiple, sel.Mode)
	assert.Equal(t, selection.TargetCard, sel.Target)
	assert.ElementsMatch(t, []string{"bolt", "counterspell"}, sel.CardIDs)
	assert.False(t, update.Changed())
}

func TestPlainClickReplacesSelection(t *testing.T) {
	s := newTestSession(t)

	clickAt(t, s, ms(0), card.ZoneCollection, "bolt", false)
	clickAt(t, s, ms(1000), card.ZoneCollection, "counterspell", false)

	sel := s.Snapshot().Selection
	assert.Equal(t, selection.ModeSingle, sel.Mode)
	assert.Equal(t, []string{"counterspell"}, sel.CardIDs)
}

func TestPressDoubleClickTransfers(t *testing.T) {
	s := newTestSession(t)

	clickAt(t, s, ms(0), card.ZoneCollection, "serra", false)
	update := apply(t, s, Input{Kind: InputPointerDown, At: ms(200), Zone: card.ZoneCollection, ID: "serra"})

	assert.Equal(t, gesture.OutcomeDoubleClick, update.Outcome)
	assert.Equal(t, []string{"serra"}, cardIDs(s.Snapshot().Deck))
}

func TestDragSelectionToSideboardKeepsIdentity(t *testing.T) {
	s := newTestSession(t)
	for i, id := range []string{"bolt", "counterspell", "serra"} {
		apply(t, s, nativeDoubleClick(ms(i*200), card.ZoneCollection, id))
	}
	before := s.Snapshot().Deck
	require.Len(t, before, 3)

	for _, inst := range before {
		apply(t, s, Input{Kind: InputSelect, Zone: card.ZoneDeck, ID: inst.InstanceID, Modifier: true, At: ms(1000)})
	}
	require.Equal(t, 3, len(s.Snapshot().Selection.InstanceIDs))

	apply(t, s, Input{Kind: InputPointerDown, At: ms(2000), Zone: card.ZoneDeck, ID: before[0].InstanceID})
	update := apply(t, s, Input{Kind: InputTick, At: ms(2150)})
	require.Equal(t, gesture.OutcomeDragStart, update.Outcome)
	assert.Len(t, s.Snapshot().Drag.Payload, 3)

	apply(t, s, Input{Kind: InputZoneEnter, At: ms(2200), Zone: card.ZoneSideboard})
	update = apply(t, s, Input{Kind: InputPointerUp, At: ms(2300)})
	require.Equal(t, gesture.OutcomeDrop, update.Outcome)
	assert.Len(t, update.Transfers, 3)

	state := s.Snapshot()
	assert.Empty(t, state.Deck)
	assert.ElementsMatch(t, instanceIDs(before), instanceIDs(state.Sideboard))
	assert.ElementsMatch(t, cardIDs(before), cardIDs(state.Sideboard))
	assert.Empty(t, state.Selection.InstanceIDs)
	assert.Equal(t, gesture.DragState{}, state.Drag)
}

func TestNativeDoubleClickBurstTransfersOnce(t *testing.T) {
	s := newTestSession(t)

	first := apply(t, s, nativeDoubleClick(ms(0), card.ZoneCollection, "bolt"))
	second := apply(t, s, nativeDoubleClick(ms(50), card.ZoneCollection, "bolt"))

	assert.Equal(t, gesture.OutcomeDoubleClick, first.Outcome)
	assert.Equal(t, gesture.OutcomeNone, second.Outcome)
	assert.Len(t, s.Snapshot().Deck, 1)
}

func TestEscapeMidDragChangesNothing(t *testing.T) {
	s := newTestSession(t)
	apply(t, s, Input{Kind: InputSelect, Zone: card.ZoneCollection, ID: "bolt"})
	apply(t, s, Input{Kind: InputSelect, Zone: card.ZoneCollection, ID: "serra", Modifier: true})

	apply(t, s, Input{Kind: InputPointerDown, At: ms(0), Zone: card.ZoneCollection, ID: "serra"})
	update := apply(t, s, Input{Kind: InputTick, At: ms(150)})
	require.Equal(t, gesture.OutcomeDragStart, update.Outcome)
	require.Len(t, update.Transfers, 0)
	apply(t, s, Input{Kind: InputZoneEnter, At: ms(200), Zone: card.ZoneDeck})

	update = apply(t, s, Input{Kind: InputKeyDown, At: ms(250), Key: gesture.KeyEscape})
	assert.Equal(t, gesture.OutcomeCancel, update.Outcome)
	assert.False(t, update.Changed())

	update = apply(t, s, Input{Kind: InputPointerUp, At: ms(300)})
	assert.Equal(t, gesture.OutcomeNone, update.Outcome)

	state := s.Snapshot()
	assert.Empty(t, state.Deck)
	assert.Empty(t, state.Sideboard)
	assert.Equal(t, gesture.StateIdle, state.Gesture)
	assert.Equal(t, gesture.DragState{}, state.Drag)
	assert.ElementsMatch(t, []string{"bolt", "serra"}, state.Selection.CardIDs)
}

func TestDoubleClickDeckRemovesAndClearsSelection(t *testing.T) {
	s := newTestSession(t)
	apply(t, s, nativeDoubleClick(ms(0), card.ZoneCollection, "bolt"))
	inst := s.Snapshot().Deck[0]

	apply(t, s, Input{Kind: InputSelect, Zone: card.ZoneDeck, ID: inst.InstanceID})
	update := apply(t, s, nativeDoubleClick(ms(500), card.ZoneDeck, inst.InstanceID))

	require.Len(t, update.Transfers, 1)
	assert.Equal(t, card.ZoneCollection, update.Transfers[0].To)
	state := s.Snapshot()
	assert.Empty(t, state.Deck)
	assert.Empty(t, state.Selection.InstanceIDs)
}

func TestDoubleClickSideboardMovesToDeck(t *testing.T) {
	s := newTestSession(t)
	now := time.Now()
	s.LoadDeck(nil, []card.DeckInstance{card.NewInstance(card.FromCatalog(testCards[0]), card.ZoneSideboard, now)})
	inst := s.Snapshot().Sideboard[0]

	apply(t, s, nativeDoubleClick(ms(0), card.ZoneSideboard, inst.InstanceID))

	state := s.Snapshot()
	require.Len(t, state.Deck, 1)
	assert.Equal(t, inst.InstanceID, state.Deck[0].InstanceID)
	assert.Empty(t, state.Sideboard)
}

func TestContextMenuAction(t *testing.T) {
	s := newTestSession(t)

	update := apply(t, s, Input{Kind: InputContextMenu, Zone: card.ZoneCollection, ID: "bolt"})
	require.NotNil(t, update.Menu)
	_, ok := update.Menu.Find(menu.ActionFillDeck)
	require.True(t, ok)

	update = apply(t, s, Input{Kind: InputMenuAction, Action: menu.ActionFillDeck})
	assert.Equal(t, 4, update.Affected)
	assert.True(t, update.Changed())
	assert.Len(t, s.Snapshot().Deck, 4)

	_, err := s.Apply(Input{Kind: InputMenuAction, Action: menu.ActionFillDeck})
	assert.ErrorIs(t, err, ErrNoMenu)
}

func TestMenuRemoveAllClearsSelection(t *testing.T) {
	s := newTestSession(t)
	for i := 0; i < 3; i++ {
		apply(t, s, nativeDoubleClick(ms(i*200), card.ZoneCollection, "bolt"))
	}
	inst := s.Snapshot().Deck[0]
	apply(t, s, Input{Kind: InputSelect, Zone: card.ZoneDeck, ID: inst.InstanceID})

	apply(t, s, Input{Kind: InputContextMenu, Zone: card.ZoneDeck, ID: inst.InstanceID})
	update := apply(t, s, Input{Kind: InputMenuAction, Action: menu.ActionRemoveAll})

	assert.Equal(t, 3, update.Affected)
	state := s.Snapshot()
	assert.Empty(t, state.Deck)
	assert.Empty(t, state.Selection.InstanceIDs)
	assert.Empty(t, state.Selection.CardIDs)
}

func TestTransfersFromCollectionClearSelection(t *testing.T) {
	s := newTestSession(t)

	clickAt(t, s, ms(0), card.ZoneCollection, "bolt", false)
	require.Equal(t, []string{"bolt"}, s.Snapshot().Selection.CardIDs)
	update := apply(t, s, Input{Kind: InputPointerDown, At: ms(200), Zone: card.ZoneCollection, ID: "bolt"})
	require.Equal(t, gesture.OutcomeDoubleClick, update.Outcome)

	state := s.Snapshot()
	assert.Equal(t, []string{"bolt"}, cardIDs(state.Deck))
	assert.Empty(t, state.Selection.CardIDs)
	assert.Empty(t, state.Selection.InstanceIDs)

	apply(t, s, Input{Kind: InputSelect, Zone: card.ZoneCollection, ID: "serra"})
	apply(t, s, Input{Kind: InputContextMenu, Zone: card.ZoneCollection, ID: "serra"})
	update = apply(t, s, Input{Kind: InputMenuAction, Action: menu.ActionAddToDeck})
	require.Equal(t, 1, update.Affected)

	state = s.Snapshot()
	assert.Equal(t, []string{"bolt", "serra"}, cardIDs(state.Deck))
	assert.Empty(t, state.Selection.CardIDs)
}

func TestTransferClosesOpenMenu(t *testing.T) {
	s := newTestSession(t)

	apply(t, s, Input{Kind: InputContextMenu, Zone: card.ZoneCollection, ID: "bolt"})
	update := apply(t, s, nativeDoubleClick(ms(0), card.ZoneCollection, "bolt"))
	require.True(t, update.Changed())

	_, err := s.Apply(Input{Kind: InputMenuAction, Action: menu.ActionFillDeck})
	assert.ErrorIs(t, err, ErrNoMenu)
	assert.Len(t, s.Snapshot().Deck, 1)

	apply(t, s, Input{Kind: InputContextMenu, Zone: card.ZoneCollection, ID: "bolt"})
	apply(t, s, Input{Kind: InputSelect, Zone: card.ZoneCollection, ID: "serra"})
	update = apply(t, s, Input{Kind: InputMenuAction, Action: menu.ActionFillDeck})
	assert.Equal(t, 3, update.Affected)
}

func TestSetViewClearsSelectionAndHover(t *testing.T) {
	s := newTestSession(t)
	apply(t, s, nativeDoubleClick(ms(0), card.ZoneCollection, "bolt"))
	inst := s.Snapshot().Deck[0]
	apply(t, s, Input{Kind: InputSelect, Zone: card.ZoneDeck, ID: inst.InstanceID})

	apply(t, s, Input{Kind: InputSetView, Zone: card.ZoneSideboard})

	state := s.Snapshot()
	assert.Equal(t, card.ZoneSideboard, state.View)
	assert.Empty(t, state.Selection.InstanceIDs)

	_, err := s.Apply(Input{Kind: InputSetView, Zone: card.ZoneCollection})
	assert.Error(t, err)
}

func TestSetViewMidDragFallsBackToLastValidZone(t *testing.T) {
	s := newTestSession(t)

	apply(t, s, Input{Kind: InputPointerDown, At: ms(0), Zone: card.ZoneCollection, ID: "bolt"})
	apply(t, s, Input{Kind: InputTick, At: ms(150)})
	apply(t, s, Input{Kind: InputZoneEnter, At: ms(200), Zone: card.ZoneSideboard})
	apply(t, s, Input{Kind: InputSetView, At: ms(250), Zone: card.ZoneSideboard})
	update := apply(t, s, Input{Kind: InputPointerUp, At: ms(300)})

	assert.Equal(t, gesture.OutcomeDrop, update.Outcome)
	assert.Equal(t, []string{"bolt"}, cardIDs(s.Snapshot().Sideboard))
}

func TestUnknownCardIsNotRecorded(t *testing.T) {
	rec := &recorded{}
	s := newTestSession(t, WithRecorder(rec))

	_, err := s.Apply(Input{Kind: InputPointerDown, At: ms(0), Zone: card.ZoneCollection, ID: "missing"})
	assert.ErrorIs(t, err, ErrUnknownCard)
	_, err = s.Apply(Input{Kind: "wave"})
	assert.ErrorIs(t, err, ErrUnknownInput)
	assert.Zero(t, rec.count())

	apply(t, s, Input{Kind: InputClearSelection})
	assert.Equal(t, 1, rec.count())
}

func TestSetCollectionClearsSelection(t *testing.T) {
	s := newTestSession(t)
	apply(t, s, Input{Kind: InputSelect, Zone: card.ZoneCollection, ID: "bolt"})

	s.SetCollection(catalog.Page{Results: testCards[:1], TotalCount: 1})

	state := s.Snapshot()
	assert.Empty(t, state.Selection.CardIDs)
	assert.Len(t, state.Collection, 1)
}

func TestSearchInstallsResults(t *testing.T) {
	s := newTestSession(t, WithSource(catalog.NewMemory(testCards), 10*time.Millisecond))

	page, err := s.Search(context.Background(), catalog.Query{Text: "angel"})
	require.NoError(t, err)
	require.Len(t, page.Results, 1)

	state := s.Snapshot()
	assert.Equal(t, []card.CatalogCard{testCards[3]}, state.Collection)
	assert.Equal(t, "angel", state.Query.Text)
}

func TestSearchWithoutSource(t *testing.T) {
	s := newTestSession(t)
	_, err := s.Search(context.Background(), catalog.Query{})
	assert.ErrorIs(t, err, ErrNoSource)
}

func TestLoadLegacyExpandsQuantities(t *testing.T) {
	s := newTestSession(t)
	s.LoadLegacy(
		[]card.LegacyDeckCard{{CatalogCard: testCards[0], Quantity: 3}},
		[]card.LegacyDeckCard{{CatalogCard: testCards[1], Quantity: 2}},
	)

	state := s.Snapshot()
	assert.Len(t, state.Deck, 3)
	assert.Len(t, state.Sideboard, 2)
	assert.Equal(t, 3, state.Stats.DeckCount)
}

func TestMaxCopiesOption(t *testing.T) {
	s := newTestSession(t, WithZoneOptions(deck.WithMaxCopies(1)))

	apply(t, s, nativeDoubleClick(ms(0), card.ZoneCollection, "bolt"))
	update := apply(t, s, nativeDoubleClick(ms(200), card.ZoneCollection, "bolt"))

	assert.False(t, update.Changed())
	assert.Len(t, s.Snapshot().Deck, 1)
}

func TestHoldDeadline(t *testing.T) {
	s := newTestSession(t)
	_, ok := s.HoldDeadline()
	assert.False(t, ok)

	apply(t, s, Input{Kind: InputPointerDown, At: ms(0), Zone: card.ZoneCollection, ID: "bolt"})
	deadline, ok := s.HoldDeadline()
	require.True(t, ok)
	assert.Equal(t, ms(150), deadline)
}

func TestExportAfterTransfers(t *testing.T) {
	s := newTestSession(t)
	for i := 0; i < 2; i++ {
		apply(t, s, nativeDoubleClick(ms(i*200), card.ZoneCollection, "bolt"))
	}

	out, err := s.Export(&deck.ExportOptions{Format: deck.FormatPlainText})
	require.NoError(t, err)
	assert.Contains(t, out, "2x Lightning Bolt")
}
