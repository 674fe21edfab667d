package deck

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magefree/mage-deckbuilder-go/internal/card"
)

// stepClock returns a clock that advances one millisecond per call.
func stepClock() func() time.Time {
	t := time.Unix(1700000000, 0)
	return func() time.Time {
		t = t.Add(time.Millisecond)
		return t
	}
}

func newTestZones(opts ...Option) *Zones {
	return NewZones(append([]Option{WithClock(stepClock())}, opts...)...)
}

func bolt() card.Card {
	return card.FromCatalog(card.CatalogCard{
		ID: "bolt", Name: "Lightning Bolt", TypeLine: "Instant", CMC: 1,
		Colors: []string{"R"}, SetCode: "m10", CollectorNumber: "146",
	})
}

func plains() card.Card {
	return card.FromCatalog(card.CatalogCard{
		ID: "plains", Name: "Plains", TypeLine: "Basic Land — Plains", SetCode: "m10", CollectorNumber: "230",
	})
}

func TestAddCapsAtFourCopies(t *testing.T) {
	z := newTestZones()

	for i := 0; i < 5; i++ {
		z.Transfer(bolt(), card.ZoneCollection, card.ZoneDeck)
	}

	assert.Equal(t, 4, z.CountInZone(card.ZoneDeck, "bolt"))
	res := z.Transfer(bolt(), card.ZoneCollection, card.ZoneDeck)
	assert.False(t, res.Applied())
}

func TestAddCapSpansDeckAndSideboard(t *testing.T) {
	z := newTestZones()

	assert.Equal(t, 3, z.Add(bolt(), card.ZoneDeck, 3))
	assert.Equal(t, 1, z.Add(bolt(), card.ZoneSideboard, 3))
	assert.Equal(t, 0, z.Add(bolt(), card.ZoneSideboard, 1))
	assert.Equal(t, 4, z.CountTotal("bolt"))
	assert.True(t, z.AtCap(bolt()))
}

func TestBasicLandsAreUnlimited(t *testing.T) {
	z := newTestZones()

	for i := 0; i < 10; i++ {
		res := z.Transfer(plains(), card.ZoneCollection, card.ZoneDeck)
		require.True(t, res.Applied())
	}
	assert.Equal(t, 10, z.CountInZone(card.ZoneDeck, "plains"))
	assert.Equal(t, Unlimited, z.MaxAllowed(plains()))
	assert.False(t, z.AtCap(plains()))
}

func TestAddNonPositiveAndUnknownZone(t *testing.T) {
	z := newTestZones()
	assert.Equal(t, 0, z.Add(bolt(), card.ZoneDeck, 0))
	assert.Equal(t, 0, z.Add(bolt(), card.ZoneDeck, -2))
	assert.Equal(t, 0, z.Add(bolt(), card.ZoneCollection, 1))
	assert.Empty(t, z.Deck())
}

func TestCustomMaxCopies(t *testing.T) {
	z := newTestZones(WithMaxCopies(1))
	assert.Equal(t, 1, z.Add(bolt(), card.ZoneDeck, 4))
}

func TestRemoveInstancesOldestFirstAndSaturating(t *testing.T) {
	z := newTestZones()
	z.Add(bolt(), card.ZoneDeck, 3)
	deck := z.Deck()

	assert.Equal(t, 1, z.RemoveInstances(card.ZoneDeck, "bolt", 1))
	remaining := z.Deck()
	require.Len(t, remaining, 2)
	assert.Equal(t, deck[1].InstanceID, remaining[0].InstanceID)
	assert.Equal(t, deck[2].InstanceID, remaining[1].InstanceID)

	assert.Equal(t, 2, z.RemoveInstances(card.ZoneDeck, "bolt", 10))
	assert.Empty(t, z.Deck())
	assert.Equal(t, 0, z.RemoveInstances(card.ZoneDeck, "bolt", 1))
}

func TestRemoveInstancesUsesAddedAtNotListOrder(t *testing.T) {
	z := newTestZones()
	base := time.Unix(1700000000, 0)
	newer := card.NewInstance(bolt(), card.ZoneDeck, base.Add(time.Hour))
	older := card.NewInstance(bolt(), card.ZoneDeck, base)
	z.Load([]card.DeckInstance{newer, older}, nil)

	z.RemoveInstances(card.ZoneDeck, "bolt", 1)
	left := z.Deck()
	require.Len(t, left, 1)
	assert.Equal(t, newer.InstanceID, left[0].InstanceID)
}

func TestMoveRoundTripPreservesIdentity(t *testing.T) {
	z := newTestZones()
	z.Add(bolt(), card.ZoneDeck, 2)
	inst := z.Deck()[0]

	res := z.Transfer(card.FromInstance(inst), card.ZoneDeck, card.ZoneSideboard)
	require.True(t, res.Applied())
	moved, ok := z.Find(card.ZoneSideboard, inst.InstanceID)
	require.True(t, ok)
	assert.Equal(t, card.ZoneSideboard, moved.Zone)
	assert.Equal(t, inst.AddedAt, moved.AddedAt)
	assert.Equal(t, 2, z.CountTotal("bolt"))

	res = z.Transfer(card.FromInstance(moved), card.ZoneSideboard, card.ZoneDeck)
	require.True(t, res.Applied())
	back, ok := z.Find(card.ZoneDeck, inst.InstanceID)
	require.True(t, ok)
	assert.Equal(t, inst.InstanceID, back.InstanceID)
	assert.Equal(t, inst.AddedAt, back.AddedAt)
	assert.Equal(t, 2, z.CountInZone(card.ZoneDeck, "bolt"))
	assert.Equal(t, 0, z.CountInZone(card.ZoneSideboard, "bolt"))
}

func TestTransferToCollectionRemovesInstance(t *testing.T) {
	z := newTestZones()
	z.Add(bolt(), card.ZoneSideboard, 2)
	inst := z.Sideboard()[1]

	res := z.Transfer(card.FromInstance(inst), card.ZoneSideboard, card.ZoneCollection)
	assert.True(t, res.Applied())
	_, ok := z.Find(card.ZoneSideboard, inst.InstanceID)
	assert.False(t, ok)
	assert.Equal(t, 1, z.CountInZone(card.ZoneSideboard, "bolt"))
}

func TestTransferSameZoneIsNoop(t *testing.T) {
	z := newTestZones()
	z.Add(bolt(), card.ZoneDeck, 1)
	res := z.Transfer(card.FromInstance(z.Deck()[0]), card.ZoneDeck, card.ZoneDeck)
	assert.False(t, res.Applied())
	assert.Len(t, z.Deck(), 1)
}

func TestTransferStaleInstanceIsNoop(t *testing.T) {
	z := newTestZones()
	z.Add(bolt(), card.ZoneDeck, 1)
	stale := card.NewInstance(bolt(), card.ZoneDeck, time.Unix(1, 0))

	res := z.Transfer(card.FromInstance(stale), card.ZoneDeck, card.ZoneSideboard)
	assert.False(t, res.Applied())
	assert.Len(t, z.Deck(), 1)
}

func TestTransferAllIsPerCard(t *testing.T) {
	z := newTestZones()
	z.Add(bolt(), card.ZoneDeck, 3)
	payload := []card.Card{bolt(), plains(), bolt()}

	results := z.TransferAll(payload, card.ZoneCollection, card.ZoneSideboard)
	require.Len(t, results, 3)
	assert.True(t, results[0].Applied())
	assert.True(t, results[1].Applied())
	assert.False(t, results[2].Applied())
	assert.Equal(t, 4, z.CountTotal("bolt"))
}

func TestFillTo(t *testing.T) {
	z := newTestZones()
	z.Add(bolt(), card.ZoneSideboard, 1)

	assert.Equal(t, 3, z.FillTo(bolt(), card.ZoneDeck, 4))
	assert.Equal(t, 0, z.FillTo(bolt(), card.ZoneDeck, 4))
	assert.Equal(t, 4, z.FillTo(plains(), card.ZoneDeck, 4))
}

func TestQuantityInvariantUnderRandomOperations(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	z := newTestZones()
	cards := []card.Card{bolt(), plains(), card.FromCatalog(card.CatalogCard{ID: "counterspell", Name: "Counterspell", TypeLine: "Instant"})}
	zones := []card.Zone{card.ZoneCollection, card.ZoneDeck, card.ZoneSideboard}

	for i := 0; i < 500; i++ {
		from := zones[rng.Intn(3)]
		to := zones[rng.Intn(3)]
		c := cards[rng.Intn(len(cards))]
		if from.Owned() {
			list := z.Instances(from)
			if len(list) == 0 {
				continue
			}
			c = card.FromInstance(list[rng.Intn(len(list))])
		}
		z.Transfer(c, from, to)

		for _, id := range []string{"bolt", "counterspell"} {
			require.LessOrEqual(t, z.CountTotal(id), 4)
		}
	}
}

func TestEventsPublished(t *testing.T) {
	bus := NewEventBus()
	var events []Event
	bus.Subscribe(func(e Event) { events = append(events, e) })
	capped := 0
	bus.SubscribeTyped(EventAddCapped, func(e Event) { capped += e.Amount })

	z := newTestZones(WithEventBus(bus))
	z.Add(bolt(), card.ZoneDeck, 5)
	inst := z.Deck()[0]
	z.MoveInstance(inst.InstanceID, card.ZoneDeck, card.ZoneSideboard)
	z.RemoveInstance(card.ZoneSideboard, inst.InstanceID)

	assert.Equal(t, 1, capped)
	types := make([]EventType, 0, len(events))
	for _, e := range events {
		types = append(types, e.Type)
	}
	assert.Equal(t, []EventType{
		EventAddCapped,
		EventInstanceAdded, EventInstanceAdded, EventInstanceAdded, EventInstanceAdded,
		EventZoneChange,
		EventInstanceRemoved,
	}, types)
	for _, e := range events[1:] {
		assert.Equal(t, 1, e.Amount, e.Type)
	}
}

func TestEventBusUnsubscribe(t *testing.T) {
	bus := NewEventBus()
	count := 0
	h1 := bus.Subscribe(func(Event) { count++ })
	h2 := bus.SubscribeTyped(EventZoneChange, func(Event) { count++ })
	assert.Equal(t, -1, bus.Subscribe(nil))

	bus.Publish(Event{Type: EventZoneChange})
	assert.Equal(t, 2, count)

	bus.Unsubscribe(h1)
	bus.Unsubscribe(h2)
	bus.Publish(Event{Type: EventZoneChange})
	assert.Equal(t, 2, count)
}

func TestClear(t *testing.T) {
	z := newTestZones()
	z.Add(bolt(), card.ZoneDeck, 2)
	z.Add(plains(), card.ZoneSideboard, 2)
	z.Clear()
	assert.Empty(t, z.Deck())
	assert.Empty(t, z.Sideboard())
}

func TestWithInstanceIDs(t *testing.T) {
	n := 0
	z := newTestZones(WithInstanceIDs(func(cardID string, zone card.Zone, _ time.Time) string {
		n++
		return fmt.Sprintf("%s/%s/%d", cardID, zone, n)
	}))

	z.Add(bolt(), card.ZoneDeck, 2)
	require.Len(t, z.Deck(), 2)
	assert.Equal(t, "bolt/deck/1", z.Deck()[0].InstanceID)
	assert.Equal(t, "bolt/deck/2", z.Deck()[1].InstanceID)
}

func TestEventBusOrderAndSelfUnsubscribe(t *testing.T) {
	bus := NewEventBus()
	var order []string
	var once int
	once = bus.Subscribe(func(Event) {
		order = append(order, "once")
		bus.Unsubscribe(once)
	})
	bus.SubscribeTyped(EventInstanceAdded, func(Event) { order = append(order, "added") })
	bus.Subscribe(func(Event) { order = append(order, "all") })

	bus.Publish(Event{Type: EventInstanceAdded})
	bus.Publish(Event{Type: EventInstanceRemoved})
	assert.Equal(t, []string{"once", "added", "all", "all"}, order)

	var nilBus *EventBus
	assert.NotPanics(t, func() { nilBus.Publish(Event{Type: EventZoneChange}) })
}
