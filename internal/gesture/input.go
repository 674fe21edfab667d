package gesture

import (
	"fmt"
	"time"

	"github.com/magefree/mage-deckbuilder-go/internal/card"
)

// InputKind names one raw input to the machine.
type InputKind string

const (
	InputDown        InputKind = "down"
	InputMove        InputKind = "move"
	InputUp          InputKind = "up"
	InputTick        InputKind = "tick"
	InputKey         InputKind = "key"
	InputEnter       InputKind = "enter"
	InputLeave       InputKind = "leave"
	InputDoubleClick InputKind = "dblclick"
)

// Input is one timestamped event in a gesture stream.
type Input struct {
	Kind     InputKind `json:"kind" yaml:"kind"`
	At       time.Time `json:"at" yaml:"-"`
	Pos      Point     `json:"pos" yaml:"pos"`
	Button   int       `json:"button,omitempty" yaml:"button,omitempty"`
	Modifier bool      `json:"modifier,omitempty" yaml:"modifier,omitempty"`
	Target   Target    `json:"target" yaml:"-"`
	Zone     card.Zone `json:"zone,omitempty" yaml:"zone,omitempty"`
	Key      string    `json:"key,omitempty" yaml:"key,omitempty"`
}

// Apply dispatches an input to the matching machine method.
func (m *Machine) Apply(in Input) (Result, error) {
	switch in.Kind {
	case InputDown:
		return m.PointerDown(in.At, in.Pos, in.Button, in.Modifier, in.Target), nil
	case InputMove:
		return m.PointerMove(in.At, in.Pos), nil
	case InputUp:
		return m.PointerUp(in.At, in.Pos), nil
	case InputTick:
		return m.Tick(in.At), nil
	case InputKey:
		return m.KeyDown(in.Key), nil
	case InputEnter:
		m.EnterZone(in.Zone)
		return none, nil
	case InputLeave:
		m.LeaveZone(in.Zone)
		return none, nil
	case InputDoubleClick:
		return m.DoubleClick(in.At, in.Target), nil
	default:
		return none, fmt.Errorf("unknown input kind %q", in.Kind)
	}
}

// Classify runs inputs through a fresh machine and returns the outcomes
// that were not OutcomeNone, in order.
func Classify(cfg Config, inputs []Input) ([]Result, error) {
	m := NewMachine(cfg, nil)
	results := make([]Result, 0)
	for i, in := range inputs {
		res, err := m.Apply(in)
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		if res.Outcome != OutcomeNone {
			results = append(results, res)
		}
	}
	return results, nil
}
