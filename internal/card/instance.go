package card

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var basicLandNames = map[string]bool{
	"Plains":   true,
	"Island":   true,
	"Swamp":    true,
	"Mountain": true,
	"Forest":   true,
	"Wastes":   true,
}

var snowBasicLandNames = map[string]bool{
	"Snow-Covered Plains":   true,
	"Snow-Covered Island":   true,
	"Snow-Covered Swamp":    true,
	"Snow-Covered Mountain": true,
	"Snow-Covered Forest":   true,
}

var basicLandMarkers = []string{"Basic Land", "Basic Snow Land"}

// IsBasicLand reports whether c may be included in unlimited copies.
func IsBasicLand(c Card) bool {
	return IsBasicLandName(Name(c), TypeLine(c))
}

// IsBasicLandName applies the basic land check to a raw name and type line.
func IsBasicLandName(name, typeLine string) bool {
	if basicLandNames[name] || snowBasicLandNames[name] {
		return true
	}
	for _, marker := range basicLandMarkers {
		if strings.Contains(typeLine, marker) {
			return true
		}
	}
	return false
}

// NewInstanceID mints an instance id from the card id, zone and timestamp
// plus a random suffix.
func NewInstanceID(cardID string, zone Zone, at time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("%s-%s-%d-%s", cardID, zone, at.UnixMilli(), suffix)
}

// NewInstance builds a fresh deck instance of a catalog or legacy card.
// The source is never mutated; slices are copied.
func NewInstance(c Card, zone Zone, at time.Time) DeckInstance {
	c.mustMatch()
	var src *CatalogCard
	switch c.Kind {
	case KindCatalog:
		src = c.Catalog
	case KindLegacy:
		src = &c.Legacy.CatalogCard
	case KindInstance:
		inst := cloneInstance(*c.Instance)
		inst.InstanceID = NewInstanceID(inst.CardID, zone, at)
		inst.Zone = zone
		inst.AddedAt = at
		return inst
	}

	return DeckInstance{
		InstanceID:      NewInstanceID(src.ID, zone, at),
		CardID:          src.ID,
		Zone:            zone,
		AddedAt:         at,
		Name:            src.Name,
		ManaCost:        src.ManaCost,
		CMC:             src.CMC,
		TypeLine:        src.TypeLine,
		Colors:          cloneStrings(src.Colors),
		Rarity:          src.Rarity,
		SetCode:         src.SetCode,
		CollectorNumber: src.CollectorNumber,
		Power:           src.Power,
		Toughness:       src.Toughness,
		Loyalty:         src.Loyalty,
		ImageURI:        src.ImageURI,
		Faces:           cloneFaces(src.Faces),
	}
}

// ExpandLegacy converts legacy quantity entries into one instance per copy.
// Each copy gets its own timestamp step so that oldest-first removal stays
// stable.
func ExpandLegacy(cards []LegacyDeckCard, zone Zone, at time.Time) []DeckInstance {
	out := make([]DeckInstance, 0, len(cards))
	step := 0
	for _, lc := range cards {
		for i := 0; i < lc.Quantity; i++ {
			out = append(out, NewInstance(FromLegacy(lc), zone, at.Add(time.Duration(step)*time.Millisecond)))
			step++
		}
	}
	return out
}

// WithZone returns a copy of the instance relocated to zone. Identity and
// AddedAt are preserved.
func (d DeckInstance) WithZone(zone Zone) DeckInstance {
	cp := cloneInstance(d)
	cp.Zone = zone
	return cp
}

func cloneInstance(d DeckInstance) DeckInstance {
	d.Colors = cloneStrings(d.Colors)
	d.Faces = cloneFaces(d.Faces)
	return d
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneFaces(in []Face) []Face {
	if in == nil {
		return nil
	}
	out := make([]Face, len(in))
	for i, f := range in {
		f.Colors = cloneStrings(f.Colors)
		out[i] = f
	}
	return out
}
