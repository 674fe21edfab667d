package builder

import (
	"time"

	"github.com/magefree/mage-deckbuilder-go/internal/card"
	"github.com/magefree/mage-deckbuilder-go/internal/gesture"
	"github.com/magefree/mage-deckbuilder-go/internal/menu"
)

// InputKind names a session input.
type InputKind string

const (
	InputPointerDown    InputKind = "pointer_down"
	InputPointerMove    InputKind = "pointer_move"
	InputPointerUp      InputKind = "pointer_up"
	InputTick           InputKind = "tick"
	InputDoubleClick    InputKind = "double_click"
	InputKeyDown        InputKind = "key_down"
	InputZoneEnter      InputKind = "zone_enter"
	InputZoneLeave      InputKind = "zone_leave"
	InputSelect         InputKind = "select"
	InputClearSelection InputKind = "clear_selection"
	InputContextMenu    InputKind = "context_menu"
	InputMenuAction     InputKind = "menu_action"
	InputSetView        InputKind = "set_view"
)

// Input is one serializable view event. Cards are referenced by selection
// id (catalog id in the collection, instance id in deck and sideboard) and
// resolved against session state when applied.
type Input struct {
	Kind     InputKind     `json:"kind" yaml:"kind"`
	At       time.Time     `json:"at" yaml:"at"`
	Pos      gesture.Point `json:"pos,omitempty" yaml:"pos,omitempty"`
	Button   int           `json:"button,omitempty" yaml:"button,omitempty"`
	Modifier bool          `json:"modifier,omitempty" yaml:"modifier,omitempty"`
	Zone     card.Zone     `json:"zone,omitempty" yaml:"zone,omitempty"`
	ID       string        `json:"id,omitempty" yaml:"id,omitempty"`
	Key      string        `json:"key,omitempty" yaml:"key,omitempty"`
	Action   menu.ActionID `json:"action,omitempty" yaml:"action,omitempty"`
}

// Update reports what an input did.
type Update struct {
	Outcome   gesture.Outcome   `json:"outcome,omitempty"`
	Transfers []TransferSummary `json:"transfers,omitempty"`
	Menu      *menu.Menu        `json:"menu,omitempty"`
	Affected  int               `json:"affected,omitempty"`
}

// TransferSummary is the wire form of one per-card transfer.
type TransferSummary struct {
	CardID string    `json:"card_id"`
	From   card.Zone `json:"from"`
	To     card.Zone `json:"to"`
	Moved  int       `json:"moved"`
}

// Changed reports whether the input mutated zones.
func (u Update) Changed() bool {
	if u.Affected > 0 {
		return true
	}
	for _, t := range u.Transfers {
		if t.Moved > 0 {
			return true
		}
	}
	return false
}
