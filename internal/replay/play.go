package replay

import (
	"fmt"
	"time"

	"github.com/magefree/mage-deckbuilder-go/internal/builder"
	"github.com/magefree/mage-deckbuilder-go/internal/card"
	"github.com/magefree/mage-deckbuilder-go/internal/catalog"
	"github.com/magefree/mage-deckbuilder-go/internal/deck"
)

// Result is the outcome of playing a recording back.
type Result struct {
	Session *builder.Session
	Updates []builder.Update
}

// mintQueue hands out recorded instance ids in order and falls back to
// fresh ids once exhausted.
type mintQueue struct {
	ids []string
}

func (q *mintQueue) next(cardID string, zone card.Zone, at time.Time) string {
	if len(q.ids) == 0 {
		return card.NewInstanceID(cardID, zone, at)
	}
	id := q.ids[0]
	q.ids = q.ids[1:]
	return id
}

// Play rebuilds a session from rec's baseline and applies every step in
// order. Instance ids minted during playback match the recorded ones, so
// inputs that reference them resolve.
func Play(rec *Recording, opts ...builder.Option) (*Result, error) {
	queue := &mintQueue{ids: rec.copyMinted()}
	all := append([]builder.Option{
		builder.WithID(rec.SessionID),
		builder.WithZoneOptions(deck.WithInstanceIDs(queue.next)),
	}, opts...)
	session := builder.NewSession(all...)

	base := rec.Baseline
	session.LoadDeck(base.Deck, base.Sideboard)
	session.SetCollection(catalog.Page{Results: base.Collection, TotalCount: base.TotalCount, HasMore: base.HasMore})

	result := &Result{Session: session, Updates: make([]builder.Update, 0, rec.Size())}
	for i, step := range rec.copySteps() {
		switch step.Kind {
		case StepInput:
			update, err := session.Apply(step.Input)
			if err != nil {
				session.Close()
				return nil, fmt.Errorf("step %d (%s): %w", i, step.Input.Kind, err)
			}
			result.Updates = append(result.Updates, update)
		case StepCollection:
			session.SetCollection(catalog.Page{Results: step.Collection, TotalCount: step.TotalCount, HasMore: step.HasMore})
		case StepLoad:
			session.LoadDeck(step.Deck, step.Sideboard)
		default:
			session.Close()
			return nil, fmt.Errorf("step %d: unknown step kind %q", i, step.Kind)
		}
	}
	return result, nil
}
