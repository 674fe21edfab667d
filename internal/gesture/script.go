package gesture

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/magefree/mage-deckbuilder-go/internal/card"
)

// Script is a YAML description of an input stream, used to replay and
// tune gestures offline:
//
//	config:
//	  hold_delay: 150ms
//	inputs:
//	  - {t: 0, kind: down, card: bolt, from: collection}
//	  - {t: 200, kind: tick}
//	  - {t: 220, kind: enter, zone: deck}
//	  - {t: 260, kind: up}
type Script struct {
	Config *Config       `yaml:"config,omitempty"`
	Inputs []ScriptInput `yaml:"inputs"`
}

// ScriptInput is an Input with a millisecond offset and a card reference
// in place of the resolved target.
type ScriptInput struct {
	Input `yaml:",inline"`
	T     int64     `yaml:"t"`
	Card  string    `yaml:"card,omitempty"`
	From  card.Zone `yaml:"from,omitempty"`
}

// ParseScript decodes a script.
func ParseScript(r io.Reader) (Script, error) {
	var s Script
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return Script{}, fmt.Errorf("failed to parse gesture script: %w", err)
	}
	for i, in := range s.Inputs {
		if in.T < 0 {
			return Script{}, fmt.Errorf("input %d: negative offset %d", i, in.T)
		}
		if i > 0 && in.T < s.Inputs[i-1].T {
			return Script{}, fmt.Errorf("input %d: offset %d goes back in time", i, in.T)
		}
	}
	return s, nil
}

// Resolve turns the script into machine inputs starting at start. Cards are
// stand-ins named by their id: collection cards become catalog cards and
// owned-zone cards become instances.
func (s Script) Resolve(start time.Time) []Input {
	inputs := make([]Input, 0, len(s.Inputs))
	for _, si := range s.Inputs {
		in := si.Input
		in.At = start.Add(time.Duration(si.T) * time.Millisecond)
		if si.Card != "" {
			in.Target = TargetFor(standIn(si.Card, si.From))
		}
		inputs = append(inputs, in)
	}
	return inputs
}

// ConfigOr returns the script's config, or fallback when it has none.
func (s Script) ConfigOr(fallback Config) Config {
	if s.Config == nil {
		return fallback
	}
	return s.Config.withDefaults()
}

func standIn(id string, zone card.Zone) card.Card {
	if zone.Owned() {
		return card.FromInstance(card.DeckInstance{InstanceID: id, CardID: id, Name: id, Zone: zone})
	}
	return card.FromCatalog(card.CatalogCard{ID: id, Name: id})
}
