package pgcatalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/magefree/mage-deckbuilder-go/internal/card"
)

// DefaultBatchSize is the number of cards written per transaction.
const DefaultBatchSize = 1000

// Card export columns, in file order.
const (
	colName = iota
	colSetCode
	colCardNumber
	colClassName
	colPower
	colToughness
	colStartingLoyalty
	colStartingDefense
	colManaValue
	colRarity
	colTypes
	colSubtypes
	colSupertypes
	colManaCosts
	colRules
	colBlack
	colBlue
	colGreen
	colRed
	colWhite
	colFrameColor
	colFrameStyle
	colVariousArt

	exportColumns
)

// ParseResult is the outcome of reading a card export.
type ParseResult struct {
	Cards   []card.CatalogCard
	Skipped int
}

// ParseCSV reads a card export with a header row. Rows with too few columns
// are skipped and counted.
func ParseCSV(r io.Reader) (ParseResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return ParseResult{}, fmt.Errorf("CSV file is empty")
		}
		return ParseResult{}, fmt.Errorf("failed to read CSV header: %w", err)
	}

	result := ParseResult{Cards: make([]card.CatalogCard, 0)}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return result, fmt.Errorf("failed to read CSV: %w", err)
		}
		if len(record) < exportColumns {
			result.Skipped++
			continue
		}
		result.Cards = append(result.Cards, recordToCard(record))
	}
	return result, nil
}

func recordToCard(record []string) card.CatalogCard {
	c := card.CatalogCard{
		ID:              cardID(record[colSetCode], record[colCardNumber]),
		Name:            record[colName],
		ManaCost:        record[colManaCosts],
		TypeLine:        buildTypeLine(record[colTypes], record[colSubtypes], record[colSupertypes]),
		OracleText:      record[colRules],
		Rarity:          strings.ToLower(record[colRarity]),
		SetCode:         strings.ToLower(record[colSetCode]),
		CollectorNumber: record[colCardNumber],
		Power:           record[colPower],
		Toughness:       record[colToughness],
		Loyalty:         record[colStartingLoyalty],
		Colors:          make([]string, 0, 5),
	}
	if manaValue, err := strconv.ParseFloat(record[colManaValue], 64); err == nil {
		c.CMC = manaValue
	}

	for _, col := range []struct {
		idx    int
		symbol string
	}{
		{colWhite, "W"},
		{colBlue, "U"},
		{colBlack, "B"},
		{colRed, "R"},
		{colGreen, "G"},
	} {
		if parseBool(record[col.idx]) {
			c.Colors = append(c.Colors, col.symbol)
		}
	}
	c.ColorIdentity = append([]string(nil), c.Colors...)
	return c
}

func cardID(setCode, number string) string {
	return strings.ToLower(setCode) + "-" + number
}

func parseBool(s string) bool {
	return strings.ToLower(s) == "true" || s == "1"
}

func buildTypeLine(types, subtypes, supertypes string) string {
	parts := []string{}
	if supertypes != "" {
		parts = append(parts, supertypes)
	}
	if types != "" {
		parts = append(parts, types)
	}

	result := strings.Join(parts, " ")
	if subtypes != "" {
		result += " — " + subtypes
	}
	return result
}

// ImportStats summarizes an import run.
type ImportStats struct {
	Imported int
	Failed   int
	Duration time.Duration
}

// Import upserts cards in batches, one transaction per batch. A failed batch
// is counted and the import continues with the next one.
func (s *Store) Import(ctx context.Context, cards []card.CatalogCard, batchSize int) (ImportStats, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	stats := ImportStats{}
	start := time.Now()

	for i := 0; i < len(cards); i += batchSize {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		end := min(i+batchSize, len(cards))
		batch := cards[i:end]

		if err := s.importBatch(ctx, batch); err != nil {
			s.logger.Warn("Failed to import batch",
				zap.Int("offset", i),
				zap.Int("size", len(batch)),
				zap.Error(err))
			stats.Failed += len(batch)
			continue
		}
		stats.Imported += len(batch)
		s.logger.Info("Import progress",
			zap.Int("imported", stats.Imported),
			zap.Int("total", len(cards)))
	}

	stats.Duration = time.Since(start)
	return stats, nil
}

const upsertCard = `
	INSERT INTO catalog_cards (
		id, oracle_id, name, mana_cost, cmc, type_line, oracle_text,
		colors, color_identity, rarity, set_code, collector_number,
		power, toughness, loyalty, image_uri
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	ON CONFLICT (id) DO UPDATE SET
		oracle_id = EXCLUDED.oracle_id,
		name = EXCLUDED.name,
		mana_cost = EXCLUDED.mana_cost,
		cmc = EXCLUDED.cmc,
		type_line = EXCLUDED.type_line,
		oracle_text = EXCLUDED.oracle_text,
		colors = EXCLUDED.colors,
		color_identity = EXCLUDED.color_identity,
		rarity = EXCLUDED.rarity,
		set_code = EXCLUDED.set_code,
		collector_number = EXCLUDED.collector_number,
		power = EXCLUDED.power,
		toughness = EXCLUDED.toughness,
		loyalty = EXCLUDED.loyalty,
		image_uri = EXCLUDED.image_uri,
		imported_at = NOW()`

func (s *Store) importBatch(ctx context.Context, batch []card.CatalogCard) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, c := range batch {
		_, err := tx.Exec(ctx, upsertCard,
			c.ID, c.OracleID, c.Name, c.ManaCost, c.CMC, c.TypeLine, c.OracleText,
			nonNil(c.Colors), nonNil(c.ColorIdentity), c.Rarity, c.SetCode, c.CollectorNumber,
			c.Power, c.Toughness, c.Loyalty, c.ImageURI,
		)
		if err != nil {
			return fmt.Errorf("failed to insert card %s: %w", c.Name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

// Truncate removes every stored card.
func (s *Store) Truncate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "TRUNCATE catalog_cards"); err != nil {
		return fmt.Errorf("failed to clear cards: %w", err)
	}
	return nil
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
