package scryfall

import (
	"errors"
	"fmt"

	"github.com/magefree/mage-deckbuilder-go/internal/card"
)

// Card is the subset of a Scryfall card object the deck builder uses.
type Card struct {
	ID              string     `json:"id"`
	OracleID        string     `json:"oracle_id"`
	Name            string     `json:"name"`
	Layout          string     `json:"layout"`
	ImageURIs       *ImageURIs `json:"image_uris,omitempty"`
	ManaCost        string     `json:"mana_cost,omitempty"`
	CMC             float64    `json:"cmc"`
	TypeLine        string     `json:"type_line"`
	OracleText      string     `json:"oracle_text,omitempty"`
	Colors          []string   `json:"colors,omitempty"`
	ColorIdentity   []string   `json:"color_identity"`
	Power           string     `json:"power,omitempty"`
	Toughness       string     `json:"toughness,omitempty"`
	Loyalty         string     `json:"loyalty,omitempty"`
	SetCode         string     `json:"set"`
	CollectorNumber string     `json:"collector_number"`
	Rarity          string     `json:"rarity"`
	CardFaces       []CardFace `json:"card_faces,omitempty"`
}

// CardFace is one face of a multi-faced card.
type CardFace struct {
	Name       string     `json:"name"`
	ManaCost   string     `json:"mana_cost,omitempty"`
	TypeLine   string     `json:"type_line"`
	OracleText string     `json:"oracle_text,omitempty"`
	Colors     []string   `json:"colors,omitempty"`
	Power      string     `json:"power,omitempty"`
	Toughness  string     `json:"toughness,omitempty"`
	Loyalty    string     `json:"loyalty,omitempty"`
	ImageURIs  *ImageURIs `json:"image_uris,omitempty"`
}

// ImageURIs contains URLs for card images in various sizes.
type ImageURIs struct {
	Small  string `json:"small"`
	Normal string `json:"normal"`
	Large  string `json:"large"`
	PNG    string `json:"png"`
}

// SearchResult is one page of /cards/search.
type SearchResult struct {
	Object     string   `json:"object"`
	TotalCards int      `json:"total_cards"`
	HasMore    bool     `json:"has_more"`
	NextPage   string   `json:"next_page,omitempty"`
	Data       []Card   `json:"data"`
	Warnings   []string `json:"warnings,omitempty"`
}

// APIError represents an error response from the Scryfall API.
type APIError struct {
	Object   string   `json:"object"`
	Code     string   `json:"code"`
	Status   int      `json:"status"`
	Details  string   `json:"details"`
	Type     string   `json:"type,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Error implements the error interface for APIError.
func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("Scryfall API error (HTTP %d): %s", e.Status, e.Details)
	}
	return fmt.Sprintf("Scryfall API error (HTTP %d): %s", e.Status, e.Code)
}

// NotFoundError represents a 404 from the API. Searches with no matches
// are reported this way.
type NotFoundError struct {
	URL string
}

// Error implements the error interface for NotFoundError.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("resource not found: %s", e.URL)
}

// IsNotFound reports whether err wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// ToCatalog converts a Scryfall card to the catalog shape. Multi-faced cards
// without top-level images take the front face image.
func (c Card) ToCatalog() card.CatalogCard {
	out := card.CatalogCard{
		ID:              c.ID,
		OracleID:        c.OracleID,
		Name:            c.Name,
		ManaCost:        c.ManaCost,
		CMC:             c.CMC,
		TypeLine:        c.TypeLine,
		OracleText:      c.OracleText,
		Colors:          c.Colors,
		ColorIdentity:   c.ColorIdentity,
		Rarity:          c.Rarity,
		SetCode:         c.SetCode,
		CollectorNumber: c.CollectorNumber,
		Power:           c.Power,
		Toughness:       c.Toughness,
		Loyalty:         c.Loyalty,
	}
	if c.ImageURIs != nil {
		out.ImageURI = c.ImageURIs.Normal
	}
	for _, f := range c.CardFaces {
		face := card.Face{
			Name:       f.Name,
			ManaCost:   f.ManaCost,
			TypeLine:   f.TypeLine,
			OracleText: f.OracleText,
			Colors:     f.Colors,
			Power:      f.Power,
			Toughness:  f.Toughness,
			Loyalty:    f.Loyalty,
		}
		if f.ImageURIs != nil {
			face.ImageURI = f.ImageURIs.Normal
			if out.ImageURI == "" {
				out.ImageURI = f.ImageURIs.Normal
			}
		}
		out.Faces = append(out.Faces, face)
	}
	if out.ManaCost == "" && len(out.Faces) > 0 {
		out.ManaCost = out.Faces[0].ManaCost
	}
	if len(out.Colors) == 0 && len(out.Faces) > 0 {
		out.Colors = out.Faces[0].Colors
	}
	return out
}
