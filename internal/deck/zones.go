package deck

import (
	"math"
	"sort"
	"time"

	"github.com/magefree/mage-deckbuilder-go/internal/card"
)

const (
	// DefaultMaxCopies is the per-card limit across deck and sideboard.
	DefaultMaxCopies = 4
	// Unlimited is the cap reported for basic lands.
	Unlimited = math.MaxInt
)

// Option configures Zones.
type Option func(*Zones)

// WithClock overrides the timestamp source used when minting instances.
func WithClock(now func() time.Time) Option {
	return func(z *Zones) { z.now = now }
}

// WithMaxCopies overrides the per-card copy limit.
func WithMaxCopies(n int) Option {
	return func(z *Zones) {
		if n > 0 {
			z.maxCopies = n
		}
	}
}

// WithInstanceIDs overrides how instance ids are minted. Replays use it to
// reproduce the ids of a recorded session.
func WithInstanceIDs(mint func(cardID string, zone card.Zone, at time.Time) string) Option {
	return func(z *Zones) { z.mint = mint }
}

// WithEventBus attaches a bus that receives every mutation.
func WithEventBus(bus *EventBus) Option {
	return func(z *Zones) { z.bus = bus }
}

// Zones owns the deck and sideboard instance lists. The collection zone is
// external and never stored here. Zones is not safe for concurrent use; the
// owning session serializes access.
type Zones struct {
	deck      []card.DeckInstance
	sideboard []card.DeckInstance
	maxCopies int
	now       func() time.Time
	mint      func(cardID string, zone card.Zone, at time.Time) string
	bus       *EventBus
}

// NewZones creates empty deck and sideboard lists.
func NewZones(opts ...Option) *Zones {
	z := &Zones{
		deck:      make([]card.DeckInstance, 0),
		sideboard: make([]card.DeckInstance, 0),
		maxCopies: DefaultMaxCopies,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(z)
	}
	return z
}

// Load replaces both lists, normalizing each instance's zone field.
func (z *Zones) Load(deck, sideboard []card.DeckInstance) {
	z.deck = make([]card.DeckInstance, 0, len(deck))
	for _, inst := range deck {
		z.deck = append(z.deck, inst.WithZone(card.ZoneDeck))
	}
	z.sideboard = make([]card.DeckInstance, 0, len(sideboard))
	for _, inst := range sideboard {
		z.sideboard = append(z.sideboard, inst.WithZone(card.ZoneSideboard))
	}
}

// Deck returns a copy of the deck list in insertion order.
func (z *Zones) Deck() []card.DeckInstance {
	return append([]card.DeckInstance(nil), z.deck...)
}

// Sideboard returns a copy of the sideboard list in insertion order.
func (z *Zones) Sideboard() []card.DeckInstance {
	return append([]card.DeckInstance(nil), z.sideboard...)
}

// Instances returns a copy of the given owned zone.
func (z *Zones) Instances(zone card.Zone) []card.DeckInstance {
	switch zone {
	case card.ZoneDeck:
		return z.Deck()
	case card.ZoneSideboard:
		return z.Sideboard()
	default:
		return nil
	}
}

// Find returns the instance with the given id in an owned zone.
func (z *Zones) Find(zone card.Zone, instanceID string) (card.DeckInstance, bool) {
	list := z.list(zone)
	if list == nil {
		return card.DeckInstance{}, false
	}
	for _, inst := range *list {
		if inst.InstanceID == instanceID {
			return inst, true
		}
	}
	return card.DeckInstance{}, false
}

func (z *Zones) list(zone card.Zone) *[]card.DeckInstance {
	switch zone {
	case card.ZoneDeck:
		return &z.deck
	case card.ZoneSideboard:
		return &z.sideboard
	default:
		return nil
	}
}

// CountInZone counts instances of cardID in an owned zone.
func (z *Zones) CountInZone(zone card.Zone, cardID string) int {
	list := z.list(zone)
	if list == nil {
		return 0
	}
	count := 0
	for _, inst := range *list {
		if inst.CardID == cardID {
			count++
		}
	}
	return count
}

// CountTotal counts instances of cardID across deck and sideboard.
func (z *Zones) CountTotal(cardID string) int {
	return z.CountInZone(card.ZoneDeck, cardID) + z.CountInZone(card.ZoneSideboard, cardID)
}

// MaxAllowed returns the copy cap for c: Unlimited for basic lands.
func (z *Zones) MaxAllowed(c card.Card) int {
	if card.IsBasicLand(c) {
		return Unlimited
	}
	return z.maxCopies
}

// Remaining returns how many more copies of c may be added.
func (z *Zones) Remaining(c card.Card) int {
	limit := z.MaxAllowed(c)
	if limit == Unlimited {
		return Unlimited
	}
	return max(0, limit-z.CountTotal(card.CardID(c)))
}

// AtCap reports whether no more copies of c may be added.
func (z *Zones) AtCap(c card.Card) bool {
	return z.Remaining(c) == 0
}

// Add mints up to quantity new instances of c in an owned zone. The amount
// actually added is min(quantity, remaining) clamped to zero; the cap is
// never an error.
func (z *Zones) Add(c card.Card, zone card.Zone, quantity int) int {
	list := z.list(zone)
	if list == nil || quantity <= 0 {
		return 0
	}

	allowed := min(quantity, z.Remaining(c))
	if allowed < quantity {
		z.bus.Publish(Event{
			Type:      EventAddCapped,
			CardID:    card.CardID(c),
			To:        zone,
			Amount:    quantity - allowed,
			Timestamp: z.now(),
		})
	}

	for i := 0; i < allowed; i++ {
		at := z.now()
		inst := card.NewInstance(c, zone, at)
		if z.mint != nil {
			inst.InstanceID = z.mint(inst.CardID, zone, at)
		}
		*list = append(*list, inst)
		z.bus.Publish(Event{
			Type:       EventInstanceAdded,
			InstanceID: inst.InstanceID,
			CardID:     inst.CardID,
			To:         zone,
			Amount:     1,
			Timestamp:  at,
		})
	}
	return allowed
}

// RemoveInstances removes the oldest quantity instances of cardID from an
// owned zone. Removing more than exist removes everything available.
func (z *Zones) RemoveInstances(zone card.Zone, cardID string, quantity int) int {
	list := z.list(zone)
	if list == nil || quantity <= 0 {
		return 0
	}

	doomed := make(map[string]bool)
	for _, inst := range oldestFirst(*list, cardID) {
		if len(doomed) == quantity {
			break
		}
		doomed[inst.InstanceID] = true
	}
	return z.removeWhere(zone, func(inst card.DeckInstance) bool { return doomed[inst.InstanceID] })
}

// RemoveInstance removes a single instance by id.
func (z *Zones) RemoveInstance(zone card.Zone, instanceID string) bool {
	if z.list(zone) == nil {
		return false
	}
	return z.removeWhere(zone, func(inst card.DeckInstance) bool { return inst.InstanceID == instanceID }) == 1
}

func (z *Zones) removeWhere(zone card.Zone, match func(card.DeckInstance) bool) int {
	list := z.list(zone)
	kept := (*list)[:0]
	removed := make([]card.DeckInstance, 0)
	for _, inst := range *list {
		if match(inst) {
			removed = append(removed, inst)
			continue
		}
		kept = append(kept, inst)
	}
	*list = kept

	now := z.now()
	for _, inst := range removed {
		z.bus.Publish(Event{
			Type:       EventInstanceRemoved,
			InstanceID: inst.InstanceID,
			CardID:     inst.CardID,
			From:       zone,
			Amount:     1,
			Timestamp:  now,
		})
	}
	return len(removed)
}

// MoveInstance relocates one instance between deck and sideboard. The
// instance keeps its id and AddedAt.
func (z *Zones) MoveInstance(instanceID string, from, to card.Zone) bool {
	src, dst := z.list(from), z.list(to)
	if src == nil || dst == nil || from == to {
		return false
	}
	for i, inst := range *src {
		if inst.InstanceID != instanceID {
			continue
		}
		*src = append((*src)[:i], (*src)[i+1:]...)
		*dst = append(*dst, inst.WithZone(to))
		z.bus.Publish(Event{
			Type:       EventZoneChange,
			InstanceID: inst.InstanceID,
			CardID:     inst.CardID,
			From:       from,
			To:         to,
			Amount:     1,
			Timestamp:  z.now(),
		})
		return true
	}
	return false
}

// MoveCopies moves up to quantity of the oldest copies of cardID between
// deck and sideboard and returns how many moved.
func (z *Zones) MoveCopies(cardID string, from, to card.Zone, quantity int) int {
	src := z.list(from)
	if src == nil || z.list(to) == nil || from == to {
		return 0
	}
	moved := 0
	for _, inst := range oldestFirst(*src, cardID) {
		if moved == quantity {
			break
		}
		if z.MoveInstance(inst.InstanceID, from, to) {
			moved++
		}
	}
	return moved
}

// Clear empties both owned zones.
func (z *Zones) Clear() {
	for _, zone := range []card.Zone{card.ZoneDeck, card.ZoneSideboard} {
		z.removeWhere(zone, func(card.DeckInstance) bool { return true })
	}
}

func oldestFirst(list []card.DeckInstance, cardID string) []card.DeckInstance {
	matches := make([]card.DeckInstance, 0)
	for _, inst := range list {
		if inst.CardID == cardID {
			matches = append(matches, inst)
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].AddedAt.Before(matches[j].AddedAt)
	})
	return matches
}
