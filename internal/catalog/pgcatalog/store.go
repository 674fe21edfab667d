// Package pgcatalog is a catalog.Source over a local Postgres card table.
package pgcatalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/magefree/mage-deckbuilder-go/internal/card"
	"github.com/magefree/mage-deckbuilder-go/internal/catalog"
)

// Config configures the connection pool.
type Config struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// Store reads catalog cards from Postgres.
type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// Open connects to the database and verifies the connection.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return New(pool, logger), nil
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{pool: pool, logger: logger}
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Count returns the number of stored cards.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM catalog_cards").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cards: %w", err)
	}
	return n, nil
}

const cardColumns = `id, oracle_id, name, mana_cost, cmc, type_line, oracle_text,
	colors, color_identity, rarity, set_code, collector_number,
	power, toughness, loyalty, image_uri`

// Search implements catalog.Source.
func (s *Store) Search(ctx context.Context, q catalog.Query) (catalog.Page, error) {
	q = q.Normalized()
	where, args := buildWhere(q)

	var total int
	countSQL := "SELECT COUNT(*) FROM catalog_cards" + where
	if err := s.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return catalog.Page{}, fmt.Errorf("failed to count search results: %w", err)
	}

	pageSQL := fmt.Sprintf("SELECT %s FROM catalog_cards%s ORDER BY %s LIMIT $%d OFFSET $%d",
		cardColumns, where, orderBy(q.Sort), len(args)+1, len(args)+2)
	rows, err := s.pool.Query(ctx, pageSQL, append(args, q.PageSize, q.Offset())...)
	if err != nil {
		return catalog.Page{}, fmt.Errorf("failed to search cards: %w", err)
	}
	results, err := pgx.CollectRows(rows, scanCard)
	if err != nil {
		return catalog.Page{}, fmt.Errorf("failed to read search results: %w", err)
	}

	s.logger.Debug("Catalog query",
		zap.String("text", q.Text),
		zap.Int("page", q.Page),
		zap.Int("results", len(results)),
		zap.Int("total", total))

	return catalog.Page{
		Results:    results,
		TotalCount: total,
		HasMore:    q.Offset()+len(results) < total,
	}, nil
}

// Get returns one card by id.
func (s *Store) Get(ctx context.Context, id string) (card.CatalogCard, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+cardColumns+" FROM catalog_cards WHERE id = $1", id)
	if err != nil {
		return card.CatalogCard{}, fmt.Errorf("failed to get card %s: %w", id, err)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCard)
	if err != nil {
		return card.CatalogCard{}, fmt.Errorf("failed to get card %s: %w", id, err)
	}
	return c, nil
}

func scanCard(row pgx.CollectableRow) (card.CatalogCard, error) {
	var c card.CatalogCard
	err := row.Scan(
		&c.ID, &c.OracleID, &c.Name, &c.ManaCost, &c.CMC, &c.TypeLine, &c.OracleText,
		&c.Colors, &c.ColorIdentity, &c.Rarity, &c.SetCode, &c.CollectorNumber,
		&c.Power, &c.Toughness, &c.Loyalty, &c.ImageURI,
	)
	return c, err
}

// buildWhere renders the query's text and filters as a WHERE clause with
// positional arguments.
func buildWhere(q catalog.Query) (string, []any) {
	conds := make([]string, 0, 6)
	args := make([]any, 0, 6)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.Text != "" {
		p := arg("%" + escapeLike(q.Text) + "%")
		conds = append(conds, fmt.Sprintf("(name ILIKE %s OR oracle_text ILIKE %s)", p, p))
	}

	f := q.Filters
	if len(f.Colors) > 0 {
		colors := make([]string, 0, len(f.Colors))
		colorless := false
		for _, c := range f.Colors {
			if strings.EqualFold(c, "C") {
				colorless = true
				continue
			}
			colors = append(colors, strings.ToUpper(c))
		}
		parts := make([]string, 0, 2)
		if len(colors) > 0 {
			parts = append(parts, "colors && "+arg(colors))
		}
		if colorless {
			parts = append(parts, "cardinality(colors) = 0")
		}
		conds = append(conds, "("+strings.Join(parts, " OR ")+")")
	}
	if len(f.Types) > 0 {
		patterns := make([]string, 0, len(f.Types))
		for _, t := range f.Types {
			patterns = append(patterns, "%"+escapeLike(t)+"%")
		}
		conds = append(conds, "type_line ILIKE ANY("+arg(patterns)+")")
	}
	if len(f.Rarity) > 0 {
		conds = append(conds, "lower(rarity) = ANY("+arg(lower(f.Rarity))+")")
	}
	if len(f.Sets) > 0 {
		conds = append(conds, "lower(set_code) = ANY("+arg(lower(f.Sets))+")")
	}
	if f.CMCMin != nil {
		conds = append(conds, "cmc >= "+arg(*f.CMCMin))
	}
	if f.CMCMax != nil {
		conds = append(conds, "cmc <= "+arg(*f.CMCMax))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

const rarityOrder = `CASE lower(rarity) WHEN 'common' THEN 0 WHEN 'uncommon' THEN 1
	WHEN 'rare' THEN 2 WHEN 'mythic' THEN 3 WHEN 'special' THEN 4 WHEN 'bonus' THEN 5 ELSE 6 END`

func orderBy(s catalog.Sort) string {
	dir := "ASC"
	if s.Desc {
		dir = "DESC"
	}
	var primary string
	switch s.Field {
	case catalog.SortCMC:
		primary = "cmc"
	case catalog.SortRarity:
		primary = rarityOrder
	case catalog.SortSet:
		primary = "set_code"
	default:
		return fmt.Sprintf("lower(name) %s, id %s", dir, dir)
	}
	return fmt.Sprintf("%s %s, lower(name) %s, id %s", primary, dir, dir, dir)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func lower(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToLower(s))
	}
	return out
}
