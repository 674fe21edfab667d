package menu

import (
	"errors"
	"fmt"

	"github.com/magefree/mage-deckbuilder-go/internal/card"
	"github.com/magefree/mage-deckbuilder-go/internal/deck"
)

var (
	// ErrUnknownAction is returned when running an id the menu does not hold.
	ErrUnknownAction = errors.New("unknown menu action")
	// ErrActionDisabled is returned when running a disabled action.
	ErrActionDisabled = errors.New("menu action disabled")
)

// FillTarget is the copy count "fill" actions top a zone up to.
const FillTarget = deck.DefaultMaxCopies

// ActionID identifies a menu entry.
type ActionID string

const (
	ActionAddToDeck      ActionID = "add_to_deck"
	ActionFillDeck       ActionID = "fill_deck"
	ActionAddToSideboard ActionID = "add_to_sideboard"
	ActionFillSideboard  ActionID = "fill_sideboard"
	ActionAddMore        ActionID = "add_more"
	ActionRemoveOne      ActionID = "remove_one"
	ActionRemoveAll      ActionID = "remove_all"
	ActionMoveOne        ActionID = "move_one"
	ActionMoveAll        ActionID = "move_all"
)

// Action is one context menu entry. Separator asks the view to draw a
// divider above the entry.
type Action struct {
	ID        ActionID   `json:"id"`
	Label     string     `json:"label"`
	Disabled  bool       `json:"disabled"`
	Separator bool       `json:"separator,omitempty"`
	Handler   func() int `json:"-"`
}

// Zones is the zone state the builder reads and the handlers mutate.
// *deck.Zones implements it.
type Zones interface {
	CountInZone(zone card.Zone, cardID string) int
	Remaining(c card.Card) int
	Add(c card.Card, zone card.Zone, quantity int) int
	FillTo(c card.Card, zone card.Zone, target int) int
	RemoveInstances(zone card.Zone, cardID string, quantity int) int
	MoveCopies(cardID string, from, to card.Zone, quantity int) int
	Transfer(c card.Card, from, to card.Zone) deck.TransferResult
}

// Request describes a right-click.
type Request struct {
	Target   card.Card
	Zone     card.Zone
	Selected []card.Card
}

// Menu is a built action list for one target.
type Menu struct {
	Zone    card.Zone `json:"zone"`
	Title   string    `json:"title"`
	Multi   bool      `json:"multi"`
	Cards   int       `json:"cards"`
	Actions []Action  `json:"actions"`
}

// Find returns the action with the given id.
func (m Menu) Find(id ActionID) (Action, bool) {
	for _, a := range m.Actions {
		if a.ID == id {
			return a, true
		}
	}
	return Action{}, false
}

// Run invokes an action's handler and returns the number of copies it
// affected.
func (m Menu) Run(id ActionID) (int, error) {
	a, ok := m.Find(id)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownAction, id)
	}
	if a.Disabled {
		return 0, fmt.Errorf("%w: %s", ErrActionDisabled, id)
	}
	if a.Handler == nil {
		return 0, nil
	}
	return a.Handler(), nil
}

// Build derives the context menu for a right-clicked card. It never mutates
// zones; the returned handlers do.
//
// When the target belongs to a selection of more than one card in the same
// zone, the actions apply to every selected card, quantities are shown as
// totals and the all-copies variants are left out.
func Build(req Request, zones Zones) Menu {
	cards := subjects(req)
	m := Menu{
		Zone:  req.Zone,
		Multi: len(cards) > 1,
		Cards: len(cards),
	}
	if m.Multi {
		m.Title = fmt.Sprintf("%d selected cards", len(cards))
	} else {
		m.Title = card.Name(req.Target)
	}

	switch req.Zone {
	case card.ZoneCollection:
		m.Actions = collectionActions(cards, zones)
	case card.ZoneDeck, card.ZoneSideboard:
		m.Actions = ownedActions(cards, req.Zone, zones, m.Multi)
	}
	return m
}

// subjects returns the cards a menu acts on: the selection when the target
// is part of a multi-card selection in the same zone, otherwise the target.
func subjects(req Request) []card.Card {
	targetID := card.SelectionID(req.Target)
	inZone := make([]card.Card, 0, len(req.Selected))
	found := false
	for _, c := range req.Selected {
		if c.Zone() != req.Zone {
			continue
		}
		if card.SelectionID(c) == targetID {
			found = true
		}
		inZone = append(inZone, c)
	}
	if found && len(inZone) > 1 {
		return inZone
	}
	return []card.Card{req.Target}
}

func collectionActions(cards []card.Card, zones Zones) []Action {
	actions := make([]Action, 0, 4)
	for i, zone := range []card.Zone{card.ZoneDeck, card.ZoneSideboard} {
		addID, fillID := ActionAddToDeck, ActionFillDeck
		if zone == card.ZoneSideboard {
			addID, fillID = ActionAddToSideboard, ActionFillSideboard
		}

		canAdd, canFill := false, false
		for _, c := range cards {
			if zones.Remaining(c) > 0 {
				canAdd = true
				if zones.CountInZone(zone, card.CardID(c)) < FillTarget {
					canFill = true
				}
			}
		}

		addLabel := fmt.Sprintf("Add 1 to %s", zone)
		fillLabel := fmt.Sprintf("Fill %s to %d", zone, FillTarget)
		if len(cards) > 1 {
			addLabel = fmt.Sprintf("Add 1 of each to %s (%d cards)", zone, len(cards))
			fillLabel = fmt.Sprintf("Fill %s to %d of each (%d cards)", zone, FillTarget, len(cards))
		} else {
			in := zones.CountInZone(zone, card.CardID(cards[0]))
			addLabel = fmt.Sprintf("Add 1 to %s (%d in %s)", zone, in, zone)
		}

		actions = append(actions,
			Action{
				ID:        addID,
				Label:     addLabel,
				Disabled:  !canAdd,
				Separator: i > 0,
				Handler: func() int {
					return each(cards, func(c card.Card) int { return zones.Add(c, zone, 1) })
				},
			},
			Action{
				ID:       fillID,
				Label:    fillLabel,
				Disabled: !canFill,
				Handler: func() int {
					return each(cards, func(c card.Card) int { return zones.FillTo(c, zone, FillTarget) })
				},
			},
		)
	}
	return actions
}

func ownedActions(cards []card.Card, zone card.Zone, zones Zones, multi bool) []Action {
	other := zone.Other()

	present, addable, total := 0, 0, 0
	for _, c := range cards {
		n := zones.CountInZone(zone, card.CardID(c))
		total += n
		if n > 0 {
			present++
		}
		if zones.Remaining(c) > 0 {
			addable++
		}
	}

	actions := make([]Action, 0, 5)
	if multi {
		actions = append(actions,
			Action{
				ID:       ActionAddMore,
				Label:    fmt.Sprintf("Add 1 more of each (%d cards, %d in %s)", len(cards), total, zone),
				Disabled: addable == 0,
				Handler: func() int {
					return each(cards, func(c card.Card) int { return zones.Add(c, zone, 1) })
				},
			},
			Action{
				ID:       ActionRemoveOne,
				Label:    fmt.Sprintf("Remove 1 of each (%d cards)", len(cards)),
				Disabled: present == 0,
				Handler: func() int {
					return each(cards, func(c card.Card) int { return zones.Transfer(c, zone, card.ZoneCollection).Moved })
				},
			},
			Action{
				ID:        ActionMoveOne,
				Label:     fmt.Sprintf("Move 1 of each to %s (%d cards)", other, len(cards)),
				Disabled:  present == 0,
				Separator: true,
				Handler: func() int {
					return each(cards, func(c card.Card) int { return zones.Transfer(c, zone, other).Moved })
				},
			},
		)
		return actions
	}

	c := cards[0]
	id := card.CardID(c)
	actions = append(actions,
		Action{
			ID:       ActionAddMore,
			Label:    fmt.Sprintf("Add 1 more (%d in %s)", total, zone),
			Disabled: addable == 0,
			Handler:  func() int { return zones.Add(c, zone, 1) },
		},
		Action{
			ID:       ActionRemoveOne,
			Label:    "Remove 1",
			Disabled: total == 0,
			Handler:  func() int { return zones.Transfer(c, zone, card.ZoneCollection).Moved },
		},
		Action{
			ID:       ActionRemoveAll,
			Label:    fmt.Sprintf("Remove all copies (%d)", total),
			Disabled: total == 0,
			Handler: func() int {
				return zones.RemoveInstances(zone, id, zones.CountInZone(zone, id))
			},
		},
		Action{
			ID:        ActionMoveOne,
			Label:     fmt.Sprintf("Move 1 to %s", other),
			Disabled:  total == 0,
			Separator: true,
			Handler:   func() int { return zones.Transfer(c, zone, other).Moved },
		},
		Action{
			ID:       ActionMoveAll,
			Label:    fmt.Sprintf("Move all copies to %s (%d)", other, total),
			Disabled: total == 0,
			Handler: func() int {
				return zones.MoveCopies(id, zone, other, zones.CountInZone(zone, id))
			},
		},
	)
	return actions
}

func each(cards []card.Card, fn func(card.Card) int) int {
	n := 0
	for _, c := range cards {
		n += fn(c)
	}
	return n
}
