// Package builder owns the deck builder state for one user: the owned
// zones, the collection results, the selection and the gesture machine.
// Every mutation goes through a Session so there is a single source of
// truth at event-handling time.
package builder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/magefree/mage-deckbuilder-go/internal/card"
	"github.com/magefree/mage-deckbuilder-go/internal/catalog"
	"github.com/magefree/mage-deckbuilder-go/internal/deck"
	"github.com/magefree/mage-deckbuilder-go/internal/gesture"
	"github.com/magefree/mage-deckbuilder-go/internal/menu"
	"github.com/magefree/mage-deckbuilder-go/internal/selection"
)

var (
	// ErrUnknownCard is returned when an input references a card the
	// session does not hold.
	ErrUnknownCard = errors.New("unknown card")
	// ErrNoMenu is returned when a menu action arrives with no open menu.
	ErrNoMenu = errors.New("no context menu open")
	// ErrUnknownInput is returned for an unrecognised input kind.
	ErrUnknownInput = errors.New("unknown input kind")
	// ErrNoSource is returned by Search when no catalog source is set.
	ErrNoSource = errors.New("no catalog source configured")
)

// Recorder receives every successfully applied input.
type Recorder interface {
	Record(sessionID string, in Input)
}

// StateRecorder is implemented by recorders that also track state installed
// outside of inputs, so a recording can be played back exactly.
type StateRecorder interface {
	RecordCollection(sessionID string, page catalog.Page)
	RecordLoad(sessionID string, deck, sideboard []card.DeckInstance)
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithGestureConfig sets the gesture thresholds.
func WithGestureConfig(cfg gesture.Config) Option {
	return func(s *Session) { s.gestureCfg = cfg }
}

// WithZoneOptions passes options through to the owned zones.
func WithZoneOptions(opts ...deck.Option) Option {
	return func(s *Session) { s.zoneOpts = append(s.zoneOpts, opts...) }
}

// WithSource sets the catalog source searches are debounced against.
func WithSource(source catalog.Source, delay time.Duration) Option {
	return func(s *Session) {
		s.source = source
		s.searchDelay = delay
	}
}

// WithRecorder records every applied input.
func WithRecorder(r Recorder) Option {
	return func(s *Session) { s.recorder = r }
}

// WithID fixes the session id instead of generating one.
func WithID(id string) Option {
	return func(s *Session) { s.ID = id }
}

// Session is one deck building workspace.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu         sync.Mutex
	zones      *deck.Zones
	bus        *deck.EventBus
	selection  *selection.Engine
	machine    *gesture.Machine
	collection []card.CatalogCard
	total      int
	hasMore    bool
	lastQuery  catalog.Query
	view       card.Zone
	openMenu   *menu.Menu
	lastActive time.Time
	mutations  int
	inputAt    time.Time

	gestureCfg  gesture.Config
	zoneOpts    []deck.Option
	source      catalog.Source
	searchDelay time.Duration
	searcher    *catalog.Debouncer
	recorder    Recorder
	logger      *zap.Logger
}

// NewSession creates an empty session.
func NewSession(opts ...Option) *Session {
	s := &Session{
		CreatedAt:  time.Now(),
		view:       card.ZoneDeck,
		collection: make([]card.CatalogCard, 0),
		gestureCfg: gesture.DefaultConfig(),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.ID == "" {
		s.ID = newSessionID()
	}
	s.lastActive = s.CreatedAt
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	s.logger = s.logger.With(zap.String("session_id", s.ID))

	s.bus = deck.NewEventBus()
	s.bus.Subscribe(s.onZoneEvent)
	s.zones = deck.NewZones(append([]deck.Option{deck.WithEventBus(s.bus), deck.WithClock(s.now)}, s.zoneOpts...)...)
	s.selection = selection.New()
	s.machine = gesture.NewMachine(s.gestureCfg, s.dragPayload)
	if s.source != nil {
		s.searcher = catalog.NewDebouncer(s.source, s.searchDelay, s.logger)
	}
	return s
}

// now stamps new instances with the time of the input that created them.
func (s *Session) now() time.Time {
	if !s.inputAt.IsZero() {
		return s.inputAt
	}
	return time.Now()
}

func (s *Session) onZoneEvent(e deck.Event) {
	s.mutations++
	if e.Type == deck.EventAddCapped {
		s.logger.Debug("Add capped",
			zap.String("card_id", e.CardID),
			zap.String("zone", e.To.String()),
			zap.Int("dropped", e.Amount))
	}
}

// Events exposes the zone event bus. Listeners run synchronously under the
// session lock and must not call back into the session.
func (s *Session) Events() *deck.EventBus {
	return s.bus
}

// SetGestureConfig replaces the gesture thresholds.
func (s *Session) SetGestureConfig(cfg gesture.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gestureCfg = cfg
	s.machine.SetConfig(cfg)
}

// LastActive returns when the session last handled an input.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// LoadDeck replaces the owned zones and clears selection.
func (s *Session) LoadDeck(deckList, sideboard []card.DeckInstance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zones.Load(deckList, sideboard)
	if sr, ok := s.recorder.(StateRecorder); ok {
		sr.RecordLoad(s.ID, deckList, sideboard)
	}
	s.machine.Cancel()
	s.selection.Clear()
	s.openMenu = nil
	s.logger.Info("Deck loaded",
		zap.Int("deck", len(deckList)),
		zap.Int("sideboard", len(sideboard)))
}

// LoadLegacy loads quantity-carrying deck entries by expanding each into
// individual instances.
func (s *Session) LoadLegacy(deckList, sideboard []card.LegacyDeckCard) {
	now := time.Now()
	s.LoadDeck(
		card.ExpandLegacy(deckList, card.ZoneDeck, now),
		card.ExpandLegacy(sideboard, card.ZoneSideboard, now),
	)
}

// SetCollection replaces the collection results. A new result set is a
// filter change, so selection is cleared.
func (s *Session) SetCollection(page catalog.Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setCollectionLocked(page)
}

func (s *Session) setCollectionLocked(page catalog.Page) {
	s.collection = append([]card.CatalogCard(nil), page.Results...)
	s.total = page.TotalCount
	s.hasMore = page.HasMore
	s.selection.Clear()
	if sr, ok := s.recorder.(StateRecorder); ok {
		sr.RecordCollection(s.ID, page)
	}
	if s.openMenu != nil && s.openMenu.Zone == card.ZoneCollection {
		s.openMenu = nil
	}
}

// Search runs a debounced catalog query and installs the results. A query
// superseded by a newer one returns catalog.ErrSuperseded and leaves the
// collection untouched.
func (s *Session) Search(ctx context.Context, q catalog.Query) (catalog.Page, error) {
	if s.searcher == nil {
		return catalog.Page{}, ErrNoSource
	}
	page, err := s.searcher.Search(ctx, q)
	if err != nil {
		return catalog.Page{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastQuery = q
	s.setCollectionLocked(page)
	return page, nil
}

// Close stops any pending search.
func (s *Session) Close() {
	if s.searcher != nil {
		s.searcher.Stop()
	}
}

// HoldDeadline reports when the host should deliver a tick input.
func (s *Session) HoldDeadline() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.HoldDeadline()
}

// Apply handles one view input.
func (s *Session) Apply(in Input) (Update, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.inputAt = in.At
	update, err := s.apply(in)
	s.inputAt = time.Time{}
	if err != nil {
		return Update{}, err
	}
	s.lastActive = in.At
	if s.lastActive.IsZero() {
		s.lastActive = time.Now()
	}
	if s.recorder != nil {
		s.recorder.Record(s.ID, in)
	}
	return update, nil
}

func (s *Session) apply(in Input) (Update, error) {
	switch in.Kind {
	case InputPointerDown:
		target, err := s.target(in.Zone, in.ID)
		if err != nil {
			return Update{}, err
		}
		return s.handle(s.machine.PointerDown(in.At, in.Pos, in.Button, in.Modifier, target)), nil

	case InputPointerMove:
		return s.handle(s.machine.PointerMove(in.At, in.Pos)), nil

	case InputPointerUp:
		return s.handle(s.machine.PointerUp(in.At, in.Pos)), nil

	case InputTick:
		return s.handle(s.machine.Tick(in.At)), nil

	case InputDoubleClick:
		target, err := s.target(in.Zone, in.ID)
		if err != nil {
			return Update{}, err
		}
		return s.handle(s.machine.DoubleClick(in.At, target)), nil

	case InputKeyDown:
		return s.handle(s.machine.KeyDown(in.Key)), nil

	case InputZoneEnter:
		s.machine.EnterZone(in.Zone)
		return Update{}, nil

	case InputZoneLeave:
		s.machine.LeaveZone(in.Zone)
		return Update{}, nil

	case InputSelect:
		c, err := s.resolve(in.Zone, in.ID)
		if err != nil {
			return Update{}, err
		}
		s.selection.Select(card.SelectionID(c), c, in.Modifier)
		return Update{}, nil

	case InputClearSelection:
		s.selection.Clear()
		return Update{}, nil

	case InputContextMenu:
		c, err := s.resolve(in.Zone, in.ID)
		if err != nil {
			return Update{}, err
		}
		m := menu.Build(menu.Request{Target: c, Zone: in.Zone, Selected: s.selection.Selected()}, s.zones)
		s.openMenu = &m
		return Update{Menu: &m}, nil

	case InputMenuAction:
		return s.runAction(in.Action)

	case InputSetView:
		return Update{}, s.setView(in.Zone)

	default:
		return Update{}, fmt.Errorf("%w: %q", ErrUnknownInput, in.Kind)
	}
}

// handle applies a gesture outcome to zones and selection.
func (s *Session) handle(res gesture.Result) Update {
	update := Update{Outcome: res.Outcome}

	switch res.Outcome {
	case gesture.OutcomeClick:
		s.selection.Select(res.Target.ID, res.Target.Card, res.Modifier)

	case gesture.OutcomeDoubleClick:
		to := doubleClickDestination(res.Target.Zone)
		if to == card.ZoneNone {
			break
		}
		r := s.zones.Transfer(res.Target.Card, res.Target.Zone, to)
		update.Transfers = []TransferSummary{summarize(r)}
		s.selection.Clear()
		s.logger.Debug("Double-click transfer",
			zap.String("card_id", r.CardID),
			zap.String("from", r.From.String()),
			zap.String("to", r.To.String()),
			zap.Int("moved", r.Moved))

	case gesture.OutcomeDrop:
		results := s.zones.TransferAll(res.Payload, res.From, res.To)
		update.Transfers = make([]TransferSummary, 0, len(results))
		for _, r := range results {
			update.Transfers = append(update.Transfers, summarize(r))
		}
		s.selection.Clear()
		s.logger.Debug("Drop committed",
			zap.String("from", res.From.String()),
			zap.String("to", res.To.String()),
			zap.Int("cards", len(res.Payload)))

	case gesture.OutcomeDiscard, gesture.OutcomeCancel:
		s.logger.Debug("Drag ended without transfer",
			zap.String("outcome", string(res.Outcome)),
			zap.String("from", res.From.String()))
	}

	// An open menu's counts and disabled flags describe the old zones.
	if update.Changed() {
		s.openMenu = nil
	}
	return update
}

// doubleClickDestination maps the zone a card was double-clicked in to the
// zone it moves to.
func doubleClickDestination(from card.Zone) card.Zone {
	switch from {
	case card.ZoneCollection:
		return card.ZoneDeck
	case card.ZoneDeck:
		return card.ZoneCollection
	case card.ZoneSideboard:
		return card.ZoneDeck
	default:
		return card.ZoneNone
	}
}

func summarize(r deck.TransferResult) TransferSummary {
	return TransferSummary{CardID: r.CardID, From: r.From, To: r.To, Moved: r.Moved}
}

// dragPayload carries the whole selection when the drag starts on one of
// several selected cards in the same zone.
func (s *Session) dragPayload(target gesture.Target) []card.Card {
	if s.selection.Count() < 2 || !s.selection.IsSelected(target.ID) {
		return nil
	}
	payload := make([]card.Card, 0, s.selection.Count())
	for _, c := range s.selection.Selected() {
		if c.Zone() == target.Zone {
			payload = append(payload, c)
		}
	}
	return payload
}

func (s *Session) runAction(id menu.ActionID) (Update, error) {
	if s.openMenu == nil {
		return Update{}, ErrNoMenu
	}
	m := *s.openMenu
	n, err := m.Run(id)
	if err != nil {
		return Update{}, err
	}
	s.openMenu = nil
	s.selection.Clear()
	s.logger.Debug("Menu action",
		zap.String("action", string(id)),
		zap.Int("affected", n))
	return Update{Affected: n}, nil
}

func (s *Session) setView(zone card.Zone) error {
	if !zone.Owned() {
		return fmt.Errorf("cannot show %s as the zone view", zone)
	}
	if zone != s.view {
		s.view = zone
		s.selection.Clear()
	}
	s.machine.ResetHover()
	return nil
}

func (s *Session) target(zone card.Zone, id string) (gesture.Target, error) {
	c, err := s.resolve(zone, id)
	if err != nil {
		return gesture.Target{}, err
	}
	return gesture.TargetFor(c), nil
}

// resolve finds the card a view input refers to.
func (s *Session) resolve(zone card.Zone, id string) (card.Card, error) {
	switch zone {
	case card.ZoneCollection:
		for _, c := range s.collection {
			if c.ID == id {
				return card.FromCatalog(c), nil
			}
		}
	case card.ZoneDeck, card.ZoneSideboard:
		if inst, ok := s.zones.Find(zone, id); ok {
			return card.FromInstance(inst), nil
		}
	}
	return card.Card{}, fmt.Errorf("%w: %s in %s", ErrUnknownCard, id, zone)
}

// State is a consistent snapshot of the session for the view layer.
type State struct {
	ID          string              `json:"id"`
	View        card.Zone           `json:"view"`
	Deck        []card.DeckInstance `json:"deck"`
	Sideboard   []card.DeckInstance `json:"sideboard"`
	Collection  []card.CatalogCard  `json:"collection"`
	TotalCount  int                 `json:"total_count"`
	HasMore     bool                `json:"has_more"`
	Query       catalog.Query       `json:"query"`
	Selection   selection.Snapshot  `json:"selection"`
	Gesture     gesture.State       `json:"gesture"`
	Drag        gesture.DragState   `json:"drag"`
	Stats       deck.Stats          `json:"stats"`
	DeckEntries []deck.Entry        `json:"deck_entries"`
	SideEntries []deck.Entry        `json:"sideboard_entries"`
	Mutations   int                 `json:"mutations"`
}

// Snapshot returns the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		ID:          s.ID,
		View:        s.view,
		Deck:        s.zones.Deck(),
		Sideboard:   s.zones.Sideboard(),
		Collection:  append([]card.CatalogCard(nil), s.collection...),
		TotalCount:  s.total,
		HasMore:     s.hasMore,
		Query:       s.lastQuery,
		Selection:   s.selection.Snapshot(),
		Gesture:     s.machine.State(),
		Drag:        s.machine.Drag(),
		Stats:       s.zones.Stats(),
		DeckEntries: s.zones.Entries(card.ZoneDeck),
		SideEntries: s.zones.Entries(card.ZoneSideboard),
		Mutations:   s.mutations,
	}
}

// Export renders the current deck as a decklist.
func (s *Session) Export(opts *deck.ExportOptions) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.zones.Export(opts)
}

// Stats returns the current deck statistics.
func (s *Session) Stats() deck.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.zones.Stats()
}
