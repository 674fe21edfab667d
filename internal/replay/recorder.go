package replay

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/magefree/mage-deckbuilder-go/internal/builder"
	"github.com/magefree/mage-deckbuilder-go/internal/card"
	"github.com/magefree/mage-deckbuilder-go/internal/catalog"
	"github.com/magefree/mage-deckbuilder-go/internal/deck"
)

// Recorder collects recordings for sessions that have recording enabled.
// Install it on sessions with builder.WithRecorder.
type Recorder struct {
	logger     *zap.Logger
	mu         sync.RWMutex
	recordings map[string]*Recording // sessionID -> Recording
	enabled    map[string]bool
	handles    map[string]subscription
	saveDir    string
}

type subscription struct {
	bus    *deck.EventBus
	handle int
}

// NewRecorder creates a recorder that saves into saveDir.
func NewRecorder(logger *zap.Logger, saveDir string) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		logger:     logger,
		recordings: make(map[string]*Recording),
		enabled:    make(map[string]bool),
		handles:    make(map[string]subscription),
		saveDir:    saveDir,
	}
}

// StartRecording begins recording session from its current state.
func (rr *Recorder) StartRecording(session *builder.Session) {
	rec := NewRecording(session.ID, BaselineOf(session.Snapshot()))
	bus := session.Events()
	handle := bus.SubscribeTyped(deck.EventInstanceAdded, func(e deck.Event) {
		rec.addMinted(e.InstanceID)
	})

	rr.mu.Lock()
	if old, ok := rr.handles[session.ID]; ok {
		old.bus.Unsubscribe(old.handle)
	}
	rr.recordings[session.ID] = rec
	rr.enabled[session.ID] = true
	rr.handles[session.ID] = subscription{bus: bus, handle: handle}
	rr.mu.Unlock()

	rr.logger.Info("started session recording", zap.String("session_id", session.ID))
}

// StopRecording pauses recording for a session. The recording is kept.
func (rr *Recorder) StopRecording(sessionID string) {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	rr.enabled[sessionID] = false
	rr.unsubscribeLocked(sessionID)

	rr.logger.Info("stopped session recording", zap.String("session_id", sessionID))
}

func (rr *Recorder) unsubscribeLocked(sessionID string) {
	if sub, ok := rr.handles[sessionID]; ok {
		sub.bus.Unsubscribe(sub.handle)
		delete(rr.handles, sessionID)
	}
}

func (rr *Recorder) active(sessionID string) *Recording {
	rr.mu.RLock()
	defer rr.mu.RUnlock()
	if !rr.enabled[sessionID] {
		return nil
	}
	return rr.recordings[sessionID]
}

// Record appends an applied input.
func (rr *Recorder) Record(sessionID string, in builder.Input) {
	rec := rr.active(sessionID)
	if rec == nil {
		return
	}
	rec.Append(Step{Kind: StepInput, Input: in})

	rr.logger.Debug("recorded input",
		zap.String("session_id", sessionID),
		zap.String("kind", string(in.Kind)),
		zap.Int("step_count", rec.Size()),
	)
}

// RecordCollection appends a collection change.
func (rr *Recorder) RecordCollection(sessionID string, page catalog.Page) {
	rec := rr.active(sessionID)
	if rec == nil {
		return
	}
	rec.Append(Step{
		Kind:       StepCollection,
		Collection: append([]card.CatalogCard(nil), page.Results...),
		TotalCount: page.TotalCount,
		HasMore:    page.HasMore,
	})
}

// RecordLoad appends a deck load.
func (rr *Recorder) RecordLoad(sessionID string, deckList, sideboard []card.DeckInstance) {
	rec := rr.active(sessionID)
	if rec == nil {
		return
	}
	rec.Append(Step{
		Kind:      StepLoad,
		Deck:      append([]card.DeckInstance(nil), deckList...),
		Sideboard: append([]card.DeckInstance(nil), sideboard...),
	})
}

// GetRecording returns the in-memory recording for a session.
func (rr *Recorder) GetRecording(sessionID string) (*Recording, bool) {
	rr.mu.RLock()
	defer rr.mu.RUnlock()

	rec, ok := rr.recordings[sessionID]
	return rec, ok
}

// SaveRecording writes a recording to disk and drops it from memory.
func (rr *Recorder) SaveRecording(sessionID string) (string, error) {
	rr.mu.Lock()
	rec, exists := rr.recordings[sessionID]
	if !exists {
		rr.mu.Unlock()
		return "", fmt.Errorf("no recording found for session %s", sessionID)
	}
	delete(rr.recordings, sessionID)
	delete(rr.enabled, sessionID)
	rr.unsubscribeLocked(sessionID)
	rr.mu.Unlock()

	path, err := rec.SaveToFile(rr.saveDir)
	if err != nil {
		return "", fmt.Errorf("failed to save recording: %w", err)
	}

	rr.logger.Info("saved recording to disk",
		zap.String("session_id", sessionID),
		zap.Int("step_count", rec.Size()),
		zap.String("path", path),
	)
	return path, nil
}

// LoadRecording reads a saved recording from the save directory.
func (rr *Recorder) LoadRecording(sessionID string) (*Recording, error) {
	rec, err := LoadFromFile(Path(rr.saveDir, sessionID))
	if err != nil {
		return nil, err
	}

	rr.logger.Info("loaded recording from disk",
		zap.String("session_id", sessionID),
		zap.Int("step_count", rec.Size()),
	)
	return rec, nil
}

// ClearRecording drops a recording without saving it.
func (rr *Recorder) ClearRecording(sessionID string) {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	delete(rr.recordings, sessionID)
	delete(rr.enabled, sessionID)
	rr.unsubscribeLocked(sessionID)
}

// IsRecording reports whether a session is being recorded.
func (rr *Recorder) IsRecording(sessionID string) bool {
	rr.mu.RLock()
	defer rr.mu.RUnlock()
	return rr.enabled[sessionID]
}

// SaveDir returns the directory recordings are saved in.
func (rr *Recorder) SaveDir() string {
	return rr.saveDir
}
