// Package catalog defines the search contract the collection zone is filled
// from, plus an in-memory source and a debounced search wrapper.
package catalog

import (
	"context"
	"strings"

	"github.com/magefree/mage-deckbuilder-go/internal/card"
)

// DefaultPageSize is used when a query does not set one.
const DefaultPageSize = 60

// SortField names a sortable card attribute.
type SortField string

const (
	SortName   SortField = "name"
	SortCMC    SortField = "cmc"
	SortRarity SortField = "rarity"
	SortSet    SortField = "set"
)

// Sort orders search results.
type Sort struct {
	Field SortField `json:"field" mapstructure:"field"`
	Desc  bool      `json:"desc,omitempty" mapstructure:"desc"`
}

// Filters narrow a search. Empty fields match everything.
type Filters struct {
	Colors []string `json:"colors,omitempty"`
	Types  []string `json:"types,omitempty"`
	Rarity []string `json:"rarity,omitempty"`
	Sets   []string `json:"sets,omitempty"`
	CMCMin *float64 `json:"cmc_min,omitempty"`
	CMCMax *float64 `json:"cmc_max,omitempty"`
}

// Query is one search request. Page is 1-based.
type Query struct {
	Text     string  `json:"text"`
	Filters  Filters `json:"filters"`
	Sort     Sort    `json:"sort"`
	Page     int     `json:"page,omitempty"`
	PageSize int     `json:"page_size,omitempty"`
}

// Normalized returns q with paging and sort defaults applied.
func (q Query) Normalized() Query {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	if q.Sort.Field == "" {
		q.Sort.Field = SortName
	}
	q.Text = strings.TrimSpace(q.Text)
	return q
}

// Offset returns the index of the first result on the query's page.
func (q Query) Offset() int {
	q = q.Normalized()
	return (q.Page - 1) * q.PageSize
}

// Page is one page of search results.
type Page struct {
	Results    []card.CatalogCard `json:"results"`
	TotalCount int                `json:"total_count"`
	HasMore    bool               `json:"has_more"`
}

// Source supplies catalog cards for the collection zone.
type Source interface {
	Search(ctx context.Context, q Query) (Page, error)
}

// rarityRank orders rarities from common up.
var rarityRank = map[string]int{
	"common":   0,
	"uncommon": 1,
	"rare":     2,
	"mythic":   3,
	"special":  4,
	"bonus":    5,
}

// RarityRank returns the sort rank of a rarity name.
func RarityRank(rarity string) int {
	if r, ok := rarityRank[strings.ToLower(rarity)]; ok {
		return r
	}
	return len(rarityRank)
}
