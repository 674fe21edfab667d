package deck

import (
	"strings"
	"time"

	"github.com/magefree/mage-deckbuilder-go/internal/card"
)

// Entry is a group of instances sharing one card id.
type Entry struct {
	CardID          string    `json:"card_id"`
	Name            string    `json:"name"`
	TypeLine        string    `json:"type_line"`
	ManaCost        string    `json:"mana_cost,omitempty"`
	CMC             float64   `json:"cmc"`
	SetCode         string    `json:"set"`
	CollectorNumber string    `json:"collector_number,omitempty"`
	Quantity        int       `json:"quantity"`
	InstanceIDs     []string  `json:"instance_ids"`
	FirstAdded      time.Time `json:"first_added"`
}

// Entries groups an owned zone by card id in order of first appearance.
func (z *Zones) Entries(zone card.Zone) []Entry {
	list := z.list(zone)
	if list == nil {
		return nil
	}

	index := make(map[string]int)
	entries := make([]Entry, 0)
	for _, inst := range *list {
		i, ok := index[inst.CardID]
		if !ok {
			index[inst.CardID] = len(entries)
			entries = append(entries, Entry{
				CardID:          inst.CardID,
				Name:            inst.Name,
				TypeLine:        inst.TypeLine,
				ManaCost:        inst.ManaCost,
				CMC:             inst.CMC,
				SetCode:         inst.SetCode,
				CollectorNumber: inst.CollectorNumber,
				FirstAdded:      inst.AddedAt,
			})
			i = len(entries) - 1
		}
		e := &entries[i]
		e.Quantity++
		e.InstanceIDs = append(e.InstanceIDs, inst.InstanceID)
		if inst.AddedAt.Before(e.FirstAdded) {
			e.FirstAdded = inst.AddedAt
		}
	}
	return entries
}

// CurveBuckets is the number of mana curve columns; the last one is 7+.
const CurveBuckets = 8

// Stats summarizes the owned zones.
type Stats struct {
	DeckCount      int               `json:"deck_count"`
	SideboardCount int               `json:"sideboard_count"`
	UniqueCards    int               `json:"unique_cards"`
	LandCount      int               `json:"land_count"`
	ManaCurve      [CurveBuckets]int `json:"mana_curve"`
	Colors         map[string]int    `json:"colors"`
}

// Stats computes deck statistics. The mana curve and colour counts cover
// non-land cards in the deck only.
func (z *Zones) Stats() Stats {
	s := Stats{
		DeckCount:      len(z.deck),
		SideboardCount: len(z.sideboard),
		Colors:         make(map[string]int),
	}

	unique := make(map[string]bool)
	for _, inst := range z.deck {
		unique[inst.CardID] = true
		if isLand(inst.TypeLine) {
			s.LandCount++
			continue
		}
		bucket := int(inst.CMC)
		if bucket >= CurveBuckets {
			bucket = CurveBuckets - 1
		}
		if bucket < 0 {
			bucket = 0
		}
		s.ManaCurve[bucket]++
		if len(inst.Colors) == 0 {
			s.Colors["C"]++
		}
		for _, color := range inst.Colors {
			s.Colors[color]++
		}
	}
	for _, inst := range z.sideboard {
		unique[inst.CardID] = true
	}
	s.UniqueCards = len(unique)
	return s
}

func isLand(typeLine string) bool {
	front, _, _ := strings.Cut(typeLine, "//")
	return strings.Contains(front, "Land")
}
