package card

import (
	"fmt"
	"time"
)

// Zone identifies where a card lives in the builder.
type Zone string

const (
	ZoneNone       Zone = ""
	ZoneCollection Zone = "collection"
	ZoneDeck       Zone = "deck"
	ZoneSideboard  Zone = "sideboard"
)

// Owned reports whether the zone is an owned list of instances.
// The collection is the live search result set and owns nothing.
func (z Zone) Owned() bool {
	return z == ZoneDeck || z == ZoneSideboard
}

// Valid reports whether z is one of the three builder zones.
func (z Zone) Valid() bool {
	switch z {
	case ZoneCollection, ZoneDeck, ZoneSideboard:
		return true
	default:
		return false
	}
}

// Other returns the opposite owned zone (deck <-> sideboard).
func (z Zone) Other() Zone {
	switch z {
	case ZoneDeck:
		return ZoneSideboard
	case ZoneSideboard:
		return ZoneDeck
	default:
		return ZoneNone
	}
}

func (z Zone) String() string {
	if z == ZoneNone {
		return "none"
	}
	return string(z)
}

// Kind is the discriminant of the Card union.
type Kind string

const (
	KindCatalog  Kind = "catalog"
	KindLegacy   Kind = "legacy"
	KindInstance Kind = "instance"
)

// Face is one face of a multi-faced card.
type Face struct {
	Name       string   `json:"name"`
	ManaCost   string   `json:"mana_cost,omitempty"`
	TypeLine   string   `json:"type_line"`
	OracleText string   `json:"oracle_text,omitempty"`
	Colors     []string `json:"colors,omitempty"`
	Power      string   `json:"power,omitempty"`
	Toughness  string   `json:"toughness,omitempty"`
	Loyalty    string   `json:"loyalty,omitempty"`
	ImageURI   string   `json:"image_uri,omitempty"`
}

// CatalogCard is an immutable record returned by the search service.
type CatalogCard struct {
	ID              string   `json:"id"`
	OracleID        string   `json:"oracle_id"`
	Name            string   `json:"name"`
	ManaCost        string   `json:"mana_cost,omitempty"`
	CMC             float64  `json:"cmc"`
	TypeLine        string   `json:"type_line"`
	OracleText      string   `json:"oracle_text,omitempty"`
	Colors          []string `json:"colors,omitempty"`
	ColorIdentity   []string `json:"color_identity,omitempty"`
	Rarity          string   `json:"rarity"`
	SetCode         string   `json:"set"`
	CollectorNumber string   `json:"collector_number,omitempty"`
	Power           string   `json:"power,omitempty"`
	Toughness       string   `json:"toughness,omitempty"`
	Loyalty         string   `json:"loyalty,omitempty"`
	ImageURI        string   `json:"image_uri,omitempty"`
	Faces           []Face   `json:"card_faces,omitempty"`
}

// LegacyDeckCard is the deprecated quantity-carrying deck entry.
type LegacyDeckCard struct {
	CatalogCard
	Quantity    int `json:"quantity"`
	MaxQuantity int `json:"max_quantity"`
}

// DeckInstance is one physical copy placed in the deck or sideboard.
type DeckInstance struct {
	InstanceID      string    `json:"instance_id"`
	CardID          string    `json:"card_id"`
	Zone            Zone      `json:"zone"`
	AddedAt         time.Time `json:"added_at"`
	Name            string    `json:"name"`
	ManaCost        string    `json:"mana_cost,omitempty"`
	CMC             float64   `json:"cmc"`
	TypeLine        string    `json:"type_line"`
	Colors          []string  `json:"colors,omitempty"`
	Rarity          string    `json:"rarity"`
	SetCode         string    `json:"set"`
	CollectorNumber string    `json:"collector_number,omitempty"`
	Power           string    `json:"power,omitempty"`
	Toughness       string    `json:"toughness,omitempty"`
	Loyalty         string    `json:"loyalty,omitempty"`
	ImageURI        string    `json:"image_uri,omitempty"`
	Faces           []Face    `json:"card_faces,omitempty"`
}

// Card is the tagged union over the three card shapes. Exactly one of the
// pointers matching Kind is set.
type Card struct {
	Kind     Kind            `json:"kind"`
	Catalog  *CatalogCard    `json:"catalog,omitempty"`
	Legacy   *LegacyDeckCard `json:"legacy,omitempty"`
	Instance *DeckInstance   `json:"instance,omitempty"`
}

// FromCatalog wraps a catalog card.
func FromCatalog(c CatalogCard) Card {
	return Card{Kind: KindCatalog, Catalog: &c}
}

// FromLegacy wraps a legacy deck card.
func FromLegacy(c LegacyDeckCard) Card {
	return Card{Kind: KindLegacy, Legacy: &c}
}

// FromInstance wraps a deck instance.
func FromInstance(inst DeckInstance) Card {
	return Card{Kind: KindInstance, Instance: &inst}
}

// mustMatch panics when the discriminant and payload disagree.
func (c Card) mustMatch() {
	switch c.Kind {
	case KindCatalog:
		if c.Catalog != nil {
			return
		}
	case KindLegacy:
		if c.Legacy != nil {
			return
		}
	case KindInstance:
		if c.Instance != nil {
			return
		}
	}
	panic(fmt.Sprintf("card: malformed card (kind %q)", c.Kind))
}

// CardID returns the catalog identity used for grouping and quantity checks.
func CardID(c Card) string {
	c.mustMatch()
	switch c.Kind {
	case KindInstance:
		return c.Instance.CardID
	case KindLegacy:
		return c.Legacy.ID
	default:
		return c.Catalog.ID
	}
}

// SelectionID returns the key used for selection membership. Each physical
// copy is independently selectable.
func SelectionID(c Card) string {
	c.mustMatch()
	switch c.Kind {
	case KindInstance:
		return c.Instance.InstanceID
	case KindLegacy:
		return c.Legacy.ID
	default:
		return c.Catalog.ID
	}
}

// Name returns the display name of any card shape.
func Name(c Card) string {
	c.mustMatch()
	switch c.Kind {
	case KindInstance:
		return c.Instance.Name
	case KindLegacy:
		return c.Legacy.Name
	default:
		return c.Catalog.Name
	}
}

// TypeLine returns the type line of any card shape.
func TypeLine(c Card) string {
	c.mustMatch()
	switch c.Kind {
	case KindInstance:
		return c.Instance.TypeLine
	case KindLegacy:
		return c.Legacy.TypeLine
	default:
		return c.Catalog.TypeLine
	}
}

// IsInstance reports whether c is a deck instance.
func (c Card) IsInstance() bool {
	return c.Kind == KindInstance
}

// Zone returns the zone of an instance, or the collection for catalog and
// legacy shapes.
func (c Card) Zone() Zone {
	if c.Kind == KindInstance && c.Instance != nil {
		return c.Instance.Zone
	}
	return ZoneCollection
}
