package deck

import (
	"github.com/magefree/mage-deckbuilder-go/internal/card"
)

// TransferResult reports what a single-card transfer did.
type TransferResult struct {
	CardID string
	From   card.Zone
	To     card.Zone
	Moved  int
}

// Applied reports whether any copy changed zone.
func (r TransferResult) Applied() bool {
	return r.Moved > 0
}

// Transfer moves one card of a committed gesture from one zone to another.
//
//   - collection -> deck|sideboard mints a new instance if the cap allows.
//   - deck <-> sideboard relocates the instance, preserving its identity.
//   - deck|sideboard -> collection removes the instance.
//
// Same-zone or unknown-zone transfers are no-ops. Each call stands alone;
// a multi-card payload is applied card by card by the caller.
func (z *Zones) Transfer(c card.Card, from, to card.Zone) TransferResult {
	result := TransferResult{CardID: card.CardID(c), From: from, To: to}
	if from == to || !from.Valid() || !to.Valid() {
		return result
	}

	switch {
	case from == card.ZoneCollection:
		result.Moved = z.Add(c, to, 1)

	case to == card.ZoneCollection:
		if c.IsInstance() {
			if z.RemoveInstance(from, c.Instance.InstanceID) {
				result.Moved = 1
			}
		} else {
			result.Moved = z.RemoveInstances(from, result.CardID, 1)
		}

	default:
		if c.IsInstance() {
			if z.MoveInstance(c.Instance.InstanceID, from, to) {
				result.Moved = 1
			}
		} else {
			result.Moved = z.MoveCopies(result.CardID, from, to, 1)
		}
	}
	return result
}

// TransferAll applies Transfer to each card in order and returns the
// per-card results. Cards that cannot move are skipped; earlier cards stay
// applied.
func (z *Zones) TransferAll(cards []card.Card, from, to card.Zone) []TransferResult {
	results := make([]TransferResult, 0, len(cards))
	for _, c := range cards {
		results = append(results, z.Transfer(c, from, to))
	}
	return results
}

// FillTo adds copies of c to zone until the zone holds target copies or the
// cap is reached. It returns the number added.
func (z *Zones) FillTo(c card.Card, zone card.Zone, target int) int {
	need := target - z.CountInZone(zone, card.CardID(c))
	if need <= 0 {
		return 0
	}
	return z.Add(c, zone, need)
}
