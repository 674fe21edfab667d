// Package replay records builder sessions as input streams and plays them
// back against a fresh session.
package replay

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/magefree/mage-deckbuilder-go/internal/builder"
	"github.com/magefree/mage-deckbuilder-go/internal/card"
)

// Version is the on-disk format version.
const Version = 1

// FileExt is appended to the session id to name a recording file.
const FileExt = ".replay"

// StepKind names what a recorded step did.
type StepKind string

const (
	StepInput      StepKind = "input"
	StepCollection StepKind = "collection"
	StepLoad       StepKind = "load"
)

// Step is one recorded change to a session.
type Step struct {
	Kind       StepKind
	Input      builder.Input
	Collection []card.CatalogCard
	TotalCount int
	HasMore    bool
	Deck       []card.DeckInstance
	Sideboard  []card.DeckInstance
}

// Baseline is the session state a recording starts from.
type Baseline struct {
	Collection []card.CatalogCard
	TotalCount int
	HasMore    bool
	Deck       []card.DeckInstance
	Sideboard  []card.DeckInstance
}

// Recording is an ordered list of steps with a playback cursor.
type Recording struct {
	SessionID string
	Baseline  Baseline
	Steps     []Step
	// Minted holds instance ids in the order the session created them.
	Minted       []string
	CurrentIndex int
	mu           sync.RWMutex
}

// NewRecording creates an empty recording.
func NewRecording(sessionID string, baseline Baseline) *Recording {
	return &Recording{
		SessionID: sessionID,
		Baseline:  baseline,
		Steps:     make([]Step, 0),
		Minted:    make([]string, 0),
	}
}

// BaselineOf captures the parts of a session state a recording starts from.
func BaselineOf(state builder.State) Baseline {
	return Baseline{
		Collection: state.Collection,
		TotalCount: state.TotalCount,
		HasMore:    state.HasMore,
		Deck:       state.Deck,
		Sideboard:  state.Sideboard,
	}
}

// Append adds a step.
func (r *Recording) Append(step Step) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Steps = append(r.Steps, step)
}

func (r *Recording) addMinted(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Minted = append(r.Minted, id)
}

// Start rewinds the cursor.
func (r *Recording) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.CurrentIndex = 0
}

// Next returns the step at the cursor and advances it.
func (r *Recording) Next() (Step, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.CurrentIndex < len(r.Steps) {
		step := r.Steps[r.CurrentIndex]
		r.CurrentIndex++
		return step, true
	}
	return Step{}, false
}

// Size returns the number of steps.
func (r *Recording) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.Steps)
}

// Inputs returns the recorded inputs in order.
func (r *Recording) Inputs() []builder.Input {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inputs := make([]builder.Input, 0, len(r.Steps))
	for _, step := range r.Steps {
		if step.Kind == StepInput {
			inputs = append(inputs, step.Input)
		}
	}
	return inputs
}

func (r *Recording) copySteps() []Step {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Step(nil), r.Steps...)
}

func (r *Recording) copyMinted() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.Minted...)
}

// metadata heads every recording file.
type metadata struct {
	SessionID   string
	Timestamp   time.Time
	Version     int
	StepCount   int
	MintedCount int
}

// Path returns the file a recording of sessionID is stored in.
func Path(directory, sessionID string) string {
	return filepath.Join(directory, sessionID+FileExt)
}

// SaveToFile writes the recording to a gzipped gob file in directory.
func (r *Recording) SaveToFile(directory string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := os.MkdirAll(directory, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	filename := Path(directory, r.SessionID)
	file, err := os.Create(filename)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	encoder := gob.NewEncoder(gzipWriter)

	meta := metadata{
		SessionID:   r.SessionID,
		Timestamp:   time.Now(),
		Version:     Version,
		StepCount:   len(r.Steps),
		MintedCount: len(r.Minted),
	}
	if err := encoder.Encode(&meta); err != nil {
		return "", fmt.Errorf("failed to encode metadata: %w", err)
	}
	if err := encoder.Encode(&r.Baseline); err != nil {
		return "", fmt.Errorf("failed to encode baseline: %w", err)
	}
	for i := range r.Steps {
		if err := encoder.Encode(&r.Steps[i]); err != nil {
			return "", fmt.Errorf("failed to encode step %d: %w", i, err)
		}
	}
	if len(r.Minted) > 0 {
		if err := encoder.Encode(r.Minted); err != nil {
			return "", fmt.Errorf("failed to encode minted ids: %w", err)
		}
	}
	if err := gzipWriter.Close(); err != nil {
		return "", fmt.Errorf("failed to flush recording: %w", err)
	}
	return filename, nil
}

// LoadFromFile reads a recording written by SaveToFile.
func LoadFromFile(filename string) (*Recording, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	gzipReader, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	decoder := gob.NewDecoder(gzipReader)

	var meta metadata
	if err := decoder.Decode(&meta); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	if meta.Version != Version {
		return nil, fmt.Errorf("unsupported replay version: %d", meta.Version)
	}

	var baseline Baseline
	if err := decoder.Decode(&baseline); err != nil {
		return nil, fmt.Errorf("failed to decode baseline: %w", err)
	}

	rec := NewRecording(meta.SessionID, baseline)
	for i := 0; i < meta.StepCount; i++ {
		var step Step
		if err := decoder.Decode(&step); err != nil {
			return nil, fmt.Errorf("failed to decode step %d: %w", i, err)
		}
		rec.Steps = append(rec.Steps, step)
	}
	if meta.MintedCount > 0 {
		if err := decoder.Decode(&rec.Minted); err != nil {
			return nil, fmt.Errorf("failed to decode minted ids: %w", err)
		}
	}
	return rec, nil
}
