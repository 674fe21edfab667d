package server

import (
	"encoding/json"

	"github.com/magefree/mage-deckbuilder-go/internal/builder"
	"github.com/magefree/mage-deckbuilder-go/internal/card"
	"github.com/magefree/mage-deckbuilder-go/internal/deck"
)

// Inbound message types.
const (
	MsgCreateSession = "create_session"
	MsgJoinSession   = "join_session"
	MsgInput         = "input"
	MsgSearch        = "search"
	MsgLoadDeck      = "load_deck"
	MsgExport        = "export"
	MsgRecordStart   = "record_start"
	MsgRecordSave    = "record_save"
)

// Outbound message types.
const (
	MsgState    = "state"
	MsgUpdate   = "update"
	MsgExported = "exported"
	MsgRecorded = "recorded"
	MsgError    = "error"
)

// Message is the envelope for every websocket frame.
type Message struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Event is an outbound message.
type Event struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// UpdateEvent pairs what an input did with the resulting state.
type UpdateEvent struct {
	Update builder.Update `json:"update"`
	State  builder.State  `json:"state"`
}

// LoadDeckRequest replaces the owned zones. Legacy quantity entries are
// accepted alongside instances and expanded.
type LoadDeckRequest struct {
	Deck            []card.DeckInstance   `json:"deck,omitempty"`
	Sideboard       []card.DeckInstance   `json:"sideboard,omitempty"`
	LegacyDeck      []card.LegacyDeckCard `json:"legacy_deck,omitempty"`
	LegacySideboard []card.LegacyDeckCard `json:"legacy_sideboard,omitempty"`
}

// ExportRequest selects the decklist format.
type ExportRequest struct {
	Format         deck.ExportFormat `json:"format"`
	IncludeHeaders bool              `json:"include_headers"`
}

// ExportResponse carries the decklist text.
type ExportResponse struct {
	Format deck.ExportFormat `json:"format"`
	Text   string            `json:"text"`
}

// RecordResponse reports where a recording was saved.
type RecordResponse struct {
	Path string `json:"path,omitempty"`
}

// ErrorResponse reports a rejected message.
type ErrorResponse struct {
	Request string `json:"request"`
	Error   string `json:"error"`
}
