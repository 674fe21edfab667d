package catalog

import (
	"context"
	"sort"
	"strings"

	"github.com/magefree/mage-deckbuilder-go/internal/card"
)

// Memory is a Source over a fixed card list.
type Memory struct {
	cards []card.CatalogCard
}

// NewMemory creates a source over cards. The slice is copied.
func NewMemory(cards []card.CatalogCard) *Memory {
	return &Memory{cards: append([]card.CatalogCard(nil), cards...)}
}

// Search filters, sorts and pages the held cards.
func (m *Memory) Search(ctx context.Context, q Query) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	q = q.Normalized()

	matched := make([]card.CatalogCard, 0)
	for _, c := range m.cards {
		if Matches(c, q) {
			matched = append(matched, c)
		}
	}
	SortCards(matched, q.Sort)

	page := Page{TotalCount: len(matched)}
	start := q.Offset()
	if start >= len(matched) {
		page.Results = []card.CatalogCard{}
		return page, nil
	}
	end := min(start+q.PageSize, len(matched))
	page.Results = matched[start:end]
	page.HasMore = end < len(matched)
	return page, nil
}

// Matches reports whether c satisfies the query text and filters. Text
// matches name or oracle text, case-insensitively.
func Matches(c card.CatalogCard, q Query) bool {
	if q.Text != "" {
		text := strings.ToLower(q.Text)
		if !strings.Contains(strings.ToLower(c.Name), text) &&
			!strings.Contains(strings.ToLower(c.OracleText), text) {
			return false
		}
	}

	f := q.Filters
	if len(f.Colors) > 0 && !anyIn(c.Colors, f.Colors, colorless(c)) {
		return false
	}
	if len(f.Types) > 0 && !containsAny(c.TypeLine, f.Types) {
		return false
	}
	if len(f.Rarity) > 0 && !equalsAny(c.Rarity, f.Rarity) {
		return false
	}
	if len(f.Sets) > 0 && !equalsAny(c.SetCode, f.Sets) {
		return false
	}
	if f.CMCMin != nil && c.CMC < *f.CMCMin {
		return false
	}
	if f.CMCMax != nil && c.CMC > *f.CMCMax {
		return false
	}
	return true
}

// SortCards sorts cards in place. Ties fall back to name, then id.
func SortCards(cards []card.CatalogCard, s Sort) {
	compare := func(a, b card.CatalogCard) int {
		switch s.Field {
		case SortCMC:
			return compareFloat(a.CMC, b.CMC)
		case SortRarity:
			return RarityRank(a.Rarity) - RarityRank(b.Rarity)
		case SortSet:
			return strings.Compare(a.SetCode, b.SetCode)
		}
		return 0
	}
	sort.SliceStable(cards, func(i, j int) bool {
		a, b := cards[i], cards[j]
		c := compare(a, b)
		if c == 0 {
			c = strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		}
		if c == 0 {
			c = strings.Compare(a.ID, b.ID)
		}
		if s.Desc {
			return c > 0
		}
		return c < 0
	})
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func colorless(c card.CatalogCard) bool {
	return len(c.Colors) == 0
}

// anyIn matches colour filters; "C" selects colourless cards.
func anyIn(have, want []string, isColorless bool) bool {
	for _, w := range want {
		if strings.EqualFold(w, "C") && isColorless {
			return true
		}
		for _, h := range have {
			if strings.EqualFold(h, w) {
				return true
			}
		}
	}
	return false
}

func containsAny(s string, subs []string) bool {
	s = strings.ToLower(s)
	for _, sub := range subs {
		if strings.Contains(s, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}

func equalsAny(s string, options []string) bool {
	for _, o := range options {
		if strings.EqualFold(s, o) {
			return true
		}
	}
	return false
}
