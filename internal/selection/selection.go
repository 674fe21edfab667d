package selection

import (
	"github.com/magefree/mage-deckbuilder-go/internal/card"
)

// Mode is the current selection mode.
type Mode string

const (
	ModeSingle   Mode = "single"
	ModeMultiple Mode = "multiple"
)

// Target is the selection axis: catalog cards or deck instances.
type Target string

const (
	TargetNone     Target = ""
	TargetCard     Target = "card"
	TargetInstance Target = "instance"
)

// TargetOf returns the axis a card belongs to.
func TargetOf(c card.Card) Target {
	if c.IsInstance() {
		return TargetInstance
	}
	return TargetCard
}

// set is an insertion-ordered id set with the selected objects alongside.
type set struct {
	order   []string
	objects map[string]card.Card
}

func newSet() *set {
	return &set{objects: make(map[string]card.Card)}
}

func (s *set) has(id string) bool {
	_, ok := s.objects[id]
	return ok
}

func (s *set) add(id string, obj card.Card) {
	if s.has(id) {
		return
	}
	s.order = append(s.order, id)
	s.objects[id] = obj
}

func (s *set) remove(id string) {
	if !s.has(id) {
		return
	}
	delete(s.objects, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *set) clear() {
	s.order = nil
	s.objects = make(map[string]card.Card)
}

func (s *set) size() int {
	return len(s.order)
}

// Engine tracks selected catalog cards and selected instances. The two sets
// are mutually exclusive: selecting on one axis empties the other.
type Engine struct {
	cards     *set
	instances *set
	active    Target
	mode      Mode
}

// New creates an empty selection engine in single mode.
func New() *Engine {
	return &Engine{
		cards:     newSet(),
		instances: newSet(),
		mode:      ModeSingle,
	}
}

func (e *Engine) setFor(target Target) *set {
	if target == TargetInstance {
		return e.instances
	}
	return e.cards
}

// Select applies a click on obj. With multi held, or while already in
// multiple mode, membership of id is toggled; otherwise the active set is
// replaced with {id}. The other axis is always cleared.
func (e *Engine) Select(id string, obj card.Card, multi bool) {
	target := TargetOf(obj)
	other := TargetCard
	if target == TargetCard {
		other = TargetInstance
	}
	e.setFor(other).clear()

	active := e.setFor(target)
	if multi || e.mode == ModeMultiple {
		if active.has(id) {
			active.remove(id)
		} else {
			active.add(id, obj)
		}
	} else {
		active.clear()
		active.add(id, obj)
	}

	e.active = target
	e.deriveMode()
}

// SelectCard selects obj under its own selection id.
func (e *Engine) SelectCard(obj card.Card, multi bool) {
	e.Select(card.SelectionID(obj), obj, multi)
}

// Deselect removes id from whichever set holds it.
func (e *Engine) Deselect(id string) {
	e.cards.remove(id)
	e.instances.remove(id)
	e.deriveMode()
}

// Prune drops selected instances for which keep returns false.
func (e *Engine) Prune(keep func(card.Card) bool) {
	for _, s := range []*set{e.cards, e.instances} {
		for _, id := range append([]string(nil), s.order...) {
			if !keep(s.objects[id]) {
				s.remove(id)
			}
		}
	}
	e.deriveMode()
}

func (e *Engine) deriveMode() {
	if e.setFor(e.active).size() > 1 {
		e.mode = ModeMultiple
	} else {
		e.mode = ModeSingle
	}
	if e.cards.size() == 0 && e.instances.size() == 0 {
		e.active = TargetNone
	}
}

// IsSelected checks membership across both sets.
func (e *Engine) IsSelected(id string) bool {
	return e.cards.has(id) || e.instances.has(id)
}

// Clear empties both sets and resets to single mode.
func (e *Engine) Clear() {
	e.cards.clear()
	e.instances.clear()
	e.active = TargetNone
	e.mode = ModeSingle
}

// Mode returns the current selection mode.
func (e *Engine) Mode() Mode {
	return e.mode
}

// Active returns the axis holding the selection.
func (e *Engine) Active() Target {
	return e.active
}

// Count returns the number of selected items.
func (e *Engine) Count() int {
	return e.cards.size() + e.instances.size()
}

// CardIDs returns selected catalog card ids in selection order.
func (e *Engine) CardIDs() []string {
	return append([]string(nil), e.cards.order...)
}

// InstanceIDs returns selected instance ids in selection order.
func (e *Engine) InstanceIDs() []string {
	return append([]string(nil), e.instances.order...)
}

// Selected returns the selected objects in selection order.
func (e *Engine) Selected() []card.Card {
	s := e.setFor(e.active)
	out := make([]card.Card, 0, s.size())
	for _, id := range s.order {
		out = append(out, s.objects[id])
	}
	return out
}

// Object returns the selected object stored for id.
func (e *Engine) Object(id string) (card.Card, bool) {
	if obj, ok := e.cards.objects[id]; ok {
		return obj, true
	}
	obj, ok := e.instances.objects[id]
	return obj, ok
}

// Snapshot is a read-only view of the selection for rendering.
type Snapshot struct {
	Mode        Mode     `json:"mode"`
	Target      Target   `json:"target"`
	CardIDs     []string `json:"card_ids"`
	InstanceIDs []string `json:"instance_ids"`
}

// Snapshot captures the current selection.
func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		Mode:        e.mode,
		Target:      e.active,
		CardIDs:     e.CardIDs(),
		InstanceIDs: e.InstanceIDs(),
	}
}
