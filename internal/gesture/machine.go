package gesture

import (
	"math"
	"time"

	"github.com/magefree/mage-deckbuilder-go/internal/card"
)

// State is the drag state machine state.
type State string

const (
	StateIdle     State = "idle"
	StateArmed    State = "armed"
	StateDragging State = "dragging"
)

// ButtonPrimary is the only button that arms a gesture.
const ButtonPrimary = 0

// KeyEscape cancels an active drag.
const KeyEscape = "Escape"

// Point is a pointer position in view pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) distance(o Point) float64 {
	return math.Hypot(p.X-o.X, p.Y-o.Y)
}

// Target is the card under the pointer when a gesture begins.
type Target struct {
	ID   string    `json:"id"`
	Zone card.Zone `json:"zone"`
	Card card.Card `json:"card"`
}

// TargetFor builds a target keyed by the card's selection id.
func TargetFor(c card.Card) Target {
	return Target{ID: card.SelectionID(c), Zone: c.Zone(), Card: c}
}

// Outcome is what an input resolved to.
type Outcome string

const (
	OutcomeNone        Outcome = "none"
	OutcomeClick       Outcome = "click"
	OutcomeDoubleClick Outcome = "double_click"
	OutcomeDragStart   Outcome = "drag_start"
	OutcomeDrop        Outcome = "drop"    // committed transfer
	OutcomeDiscard     Outcome = "discard" // released with no valid zone
	OutcomeCancel      Outcome = "cancel"  // escape during a drag
)

// Result is returned by every machine input.
type Result struct {
	Outcome  Outcome     `json:"outcome"`
	Target   Target      `json:"target"`
	Modifier bool        `json:"modifier,omitempty"`
	Payload  []card.Card `json:"payload,omitempty"`
	From     card.Zone   `json:"from,omitempty"`
	To       card.Zone   `json:"to,omitempty"`
}

var none = Result{Outcome: OutcomeNone}

// DragState is the ephemeral state of an active drag. The zero value is the
// idle baseline.
type DragState struct {
	Active                bool        `json:"active"`
	Payload               []card.Card `json:"payload,omitempty"`
	Origin                card.Zone   `json:"origin,omitempty"`
	Pointer               Point       `json:"pointer"`
	HoverZone             card.Zone   `json:"hover_zone,omitempty"`
	CanDrop               bool        `json:"can_drop"`
	LastValidZone         card.Zone   `json:"last_valid_zone,omitempty"`
	SuppressTextSelection bool        `json:"suppress_text_selection"`
}

// PayloadFunc resolves the cards carried by a drag that starts on target.
type PayloadFunc func(target Target) []card.Card

// Machine classifies pointer input into clicks, double-clicks and drags.
//
// The hold timer is an input like any other: the host calls Tick once the
// deadline reported by HoldDeadline has passed. Given the same input
// sequence the machine always produces the same results.
type Machine struct {
	cfg     Config
	payload PayloadFunc

	state         State
	pressAt       time.Time
	pressPos      Point
	lastPos       Point
	pressTarget   Target
	pressModifier bool

	drag DragState

	lastClickKey  string
	lastClickAt   time.Time
	lastDoubleAt  time.Time
	suppressUntil time.Time
}

// NewMachine creates an idle machine. A nil payload func drags only the
// pressed card.
func NewMachine(cfg Config, payload PayloadFunc) *Machine {
	return &Machine{
		cfg:     cfg.withDefaults(),
		payload: payload,
		state:   StateIdle,
	}
}

// SetConfig replaces the thresholds. An in-flight gesture keeps running
// under the new values.
func (m *Machine) SetConfig(cfg Config) {
	m.cfg = cfg.withDefaults()
}

// Config returns the active thresholds.
func (m *Machine) Config() Config {
	return m.cfg
}

// State returns the current machine state.
func (m *Machine) State() State {
	return m.state
}

// Drag returns a copy of the drag state.
func (m *Machine) Drag() DragState {
	d := m.drag
	d.Payload = append([]card.Card(nil), m.drag.Payload...)
	if len(d.Payload) == 0 {
		d.Payload = nil
	}
	return d
}

// HoldDeadline reports when the hold timer fires for an armed press.
func (m *Machine) HoldDeadline() (time.Time, bool) {
	if m.state != StateArmed {
		return time.Time{}, false
	}
	return m.pressAt.Add(m.cfg.HoldDelay), true
}

// PointerDown arms a gesture on target, or resolves a double-click.
// Presses during a drag are ignored.
func (m *Machine) PointerDown(at time.Time, pos Point, button int, modifier bool, target Target) Result {
	if m.state == StateDragging || button != ButtonPrimary {
		return none
	}
	m.state = StateIdle

	if m.isDoubleClick(target.ID, at) {
		return m.doubleClick(target, at)
	}
	if at.Before(m.suppressUntil) {
		return none
	}

	m.state = StateArmed
	m.pressAt = at
	m.pressPos = pos
	m.lastPos = pos
	m.pressTarget = target
	m.pressModifier = modifier
	return none
}

// DoubleClick handles a native double-click notification. It shares the
// debounce window with press-detected double-clicks, so a single physical
// double-click reported twice acts once.
func (m *Machine) DoubleClick(at time.Time, target Target) Result {
	if m.state == StateDragging {
		return none
	}
	if m.debounced(at) {
		return none
	}
	m.state = StateIdle
	return m.doubleClick(target, at)
}

func (m *Machine) debounced(at time.Time) bool {
	return !m.lastDoubleAt.IsZero() && at.Sub(m.lastDoubleAt) < m.cfg.DoubleClickDebounce
}

func (m *Machine) isDoubleClick(key string, at time.Time) bool {
	if m.debounced(at) {
		return false
	}
	if key != "" && key == m.lastClickKey && !m.lastClickAt.IsZero() && at.Sub(m.lastClickAt) <= m.cfg.DoubleClickWindow {
		return true
	}
	m.lastClickKey = key
	m.lastClickAt = at
	return false
}

func (m *Machine) doubleClick(target Target, at time.Time) Result {
	m.lastDoubleAt = at
	m.lastClickKey = ""
	m.lastClickAt = time.Time{}
	m.suppressUntil = at.Add(m.cfg.DragSuppression)
	return Result{Outcome: OutcomeDoubleClick, Target: target, From: target.Zone}
}

// PointerMove updates the preview during a drag, or starts one when an
// armed press has held long enough and moved past the threshold.
func (m *Machine) PointerMove(at time.Time, pos Point) Result {
	switch m.state {
	case StateArmed:
		m.lastPos = pos
		if pos.distance(m.pressPos) > m.cfg.MoveThreshold && at.Sub(m.pressAt) >= m.cfg.HoldDelay {
			return m.startDrag(pos)
		}
	case StateDragging:
		m.drag.Pointer = pos
	}
	return none
}

// Tick fires the hold timer. It starts a drag when an armed press has been
// held for HoldDelay.
func (m *Machine) Tick(now time.Time) Result {
	if m.state != StateArmed || now.Sub(m.pressAt) < m.cfg.HoldDelay {
		return none
	}
	return m.startDrag(m.lastPos)
}

func (m *Machine) startDrag(pos Point) Result {
	payload := []card.Card{m.pressTarget.Card}
	if m.payload != nil {
		if resolved := m.payload(m.pressTarget); len(resolved) > 0 {
			payload = resolved
		}
	}

	m.state = StateDragging
	m.drag = DragState{
		Active:                true,
		Payload:               payload,
		Origin:                m.pressTarget.Zone,
		Pointer:               pos,
		SuppressTextSelection: true,
	}
	return Result{
		Outcome: OutcomeDragStart,
		Target:  m.pressTarget,
		Payload: append([]card.Card(nil), payload...),
		From:    m.pressTarget.Zone,
	}
}

// PointerUp resolves an armed press as a click, or commits a drag. A drag
// commits only onto a zone that accepts it; the last valid hovered zone
// stands in when the live hover was reset just before release.
func (m *Machine) PointerUp(at time.Time, pos Point) Result {
	switch m.state {
	case StateArmed:
		target, modifier := m.pressTarget, m.pressModifier
		m.reset()
		return Result{Outcome: OutcomeClick, Target: target, Modifier: modifier, From: target.Zone}

	case StateDragging:
		m.drag.Pointer = pos
		zone := m.drag.HoverZone
		if zone == card.ZoneNone {
			zone = m.drag.LastValidZone
		}
		result := Result{
			Outcome: OutcomeDiscard,
			Target:  m.pressTarget,
			Payload: m.drag.Payload,
			From:    m.drag.Origin,
		}
		if zone != card.ZoneNone && m.canDrop(zone) {
			result.Outcome = OutcomeDrop
			result.To = zone
		}
		m.reset()
		return result
	}
	return none
}

// EnterZone records the drop zone under the pointer.
func (m *Machine) EnterZone(zone card.Zone) {
	if m.state != StateDragging {
		return
	}
	m.drag.HoverZone = zone
	m.drag.CanDrop = m.canDrop(zone)
	if m.drag.CanDrop {
		m.drag.LastValidZone = zone
	}
}

// LeaveZone clears the hovered zone if it is the one being left.
func (m *Machine) LeaveZone(zone card.Zone) {
	if m.state != StateDragging || m.drag.HoverZone != zone {
		return
	}
	m.drag.HoverZone = card.ZoneNone
	m.drag.CanDrop = false
}

// ResetHover drops the live hover zone, as when the view switches under an
// active drag. The last valid zone is kept.
func (m *Machine) ResetHover() {
	m.drag.HoverZone = card.ZoneNone
	m.drag.CanDrop = false
}

// KeyDown handles keyboard input. Escape cancels a drag or an armed press.
func (m *Machine) KeyDown(key string) Result {
	if key != KeyEscape {
		return none
	}
	switch m.state {
	case StateDragging:
		result := Result{Outcome: OutcomeCancel, Target: m.pressTarget, Payload: m.drag.Payload, From: m.drag.Origin}
		m.reset()
		return result
	case StateArmed:
		m.reset()
	}
	return none
}

// Cancel aborts any gesture in progress.
func (m *Machine) Cancel() {
	m.reset()
}

// canDrop forbids dropping into the zone the drag came from.
func (m *Machine) canDrop(zone card.Zone) bool {
	return zone.Valid() && zone != m.drag.Origin
}

func (m *Machine) reset() {
	m.state = StateIdle
	m.pressAt = time.Time{}
	m.pressPos = Point{}
	m.lastPos = Point{}
	m.pressTarget = Target{}
	m.pressModifier = false
	m.drag = DragState{}
}
