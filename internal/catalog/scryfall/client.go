// Package scryfall is a catalog.Source backed by the Scryfall search API.
package scryfall

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/magefree/mage-deckbuilder-go/internal/card"
	"github.com/magefree/mage-deckbuilder-go/internal/catalog"
)

const (
	defaultBaseURL   = "https://api.scryfall.com"
	defaultUserAgent = "mage-deckbuilder/1.0"
	rateLimitDelay   = 100 * time.Millisecond // 10 req/sec
	requestTimeout   = 30 * time.Second
	maxRetries       = 3
	initialBackoff   = 1 * time.Second
	maxBackoff       = 16 * time.Second
)

// Config configures a Client.
type Config struct {
	BaseURL   string        `mapstructure:"base_url"`
	UserAgent string        `mapstructure:"user_agent"`
	RateLimit time.Duration `mapstructure:"rate_limit"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// Client is a Scryfall API client. The rate limiter is per client, so two
// clients never share request budget.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	userAgent   string
	backoff     time.Duration
	logger      *zap.Logger
}

// NewClient creates a Scryfall client. Zero config fields take defaults.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = rateLimitDelay
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = requestTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		rateLimiter: rate.NewLimiter(rate.Every(cfg.RateLimit), 1),
		userAgent:   cfg.UserAgent,
		backoff:     initialBackoff,
		logger:      logger,
	}
}

// GetCard retrieves a card by its Scryfall ID.
func (c *Client) GetCard(ctx context.Context, id string) (*Card, error) {
	u := fmt.Sprintf("%s/cards/%s", c.baseURL, url.PathEscape(id))

	var sc Card
	if err := c.doRequest(ctx, u, &sc); err != nil {
		return nil, fmt.Errorf("failed to get card %s: %w", id, err)
	}
	return &sc, nil
}

// SearchCards runs a raw Scryfall search expression.
func (c *Client) SearchCards(ctx context.Context, expr, order, dir string, page int) (*SearchResult, error) {
	params := url.Values{}
	params.Set("q", expr)
	if order != "" {
		params.Set("order", order)
	}
	if dir != "" {
		params.Set("dir", dir)
	}
	if page > 1 {
		params.Set("page", strconv.Itoa(page))
	}
	u := fmt.Sprintf("%s/cards/search?%s", c.baseURL, params.Encode())

	var result SearchResult
	if err := c.doRequest(ctx, u, &result); err != nil {
		return nil, fmt.Errorf("failed to search cards with query '%s': %w", expr, err)
	}
	return &result, nil
}

// Search implements catalog.Source. The API pages at a fixed 175 cards;
// the query's page size is ignored. A search with no matches returns an empty
// page rather than an error.
func (c *Client) Search(ctx context.Context, q catalog.Query) (catalog.Page, error) {
	q = q.Normalized()
	expr := BuildQuery(q)
	order, dir := sortParams(q.Sort)

	result, err := c.SearchCards(ctx, expr, order, dir, q.Page)
	if IsNotFound(err) {
		return catalog.Page{Results: []card.CatalogCard{}}, nil
	}
	if err != nil {
		return catalog.Page{}, err
	}

	page := catalog.Page{
		TotalCount: result.TotalCards,
		HasMore:    result.HasMore,
		Results:    make([]card.CatalogCard, 0, len(result.Data)),
	}
	for _, sc := range result.Data {
		page.Results = append(page.Results, sc.ToCatalog())
	}
	c.logger.Debug("Scryfall search",
		zap.String("q", expr),
		zap.Int("page", q.Page),
		zap.Int("results", len(page.Results)),
		zap.Int("total", page.TotalCount))
	return page, nil
}

// BuildQuery renders a catalog query as a Scryfall search expression.
func BuildQuery(q catalog.Query) string {
	parts := make([]string, 0, 8)
	if q.Text != "" {
		parts = append(parts, q.Text)
	}
	f := q.Filters
	if len(f.Colors) > 0 {
		parts = append(parts, "c:"+strings.ToLower(strings.Join(f.Colors, "")))
	}
	if len(f.Types) > 0 {
		parts = append(parts, orGroup("t", f.Types))
	}
	if len(f.Rarity) > 0 {
		parts = append(parts, orGroup("r", f.Rarity))
	}
	if len(f.Sets) > 0 {
		parts = append(parts, orGroup("s", f.Sets))
	}
	if f.CMCMin != nil {
		parts = append(parts, "cmc>="+strconv.FormatFloat(*f.CMCMin, 'f', -1, 64))
	}
	if f.CMCMax != nil {
		parts = append(parts, "cmc<="+strconv.FormatFloat(*f.CMCMax, 'f', -1, 64))
	}
	if len(parts) == 0 {
		// the API rejects empty searches
		return "*"
	}
	return strings.Join(parts, " ")
}

func orGroup(key string, values []string) string {
	terms := make([]string, 0, len(values))
	for _, v := range values {
		terms = append(terms, key+":"+strings.ToLower(v))
	}
	if len(terms) == 1 {
		return terms[0]
	}
	return "(" + strings.Join(terms, " or ") + ")"
}

func sortParams(s catalog.Sort) (order, dir string) {
	switch s.Field {
	case catalog.SortCMC:
		order = "cmc"
	case catalog.SortRarity:
		order = "rarity"
	case catalog.SortSet:
		order = "set"
	default:
		order = "name"
	}
	dir = "asc"
	if s.Desc {
		dir = "desc"
	}
	return order, dir
}

// doRequest performs an HTTP request with rate limiting and retry logic.
func (c *Client) doRequest(ctx context.Context, u string, result interface{}) error {
	var lastErr error
	backoff := c.backoff

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter error: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("HTTP request failed: %w", err)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if attempt < maxRetries {
				if err := sleep(ctx, backoff); err != nil {
					return err
				}
				backoff = min(backoff*2, maxBackoff)
				continue
			}
			return lastErr
		}

		retry, wait, err := c.handleResponse(resp, u, result)
		if !retry {
			return err
		}
		lastErr = err
		if attempt == maxRetries {
			break
		}
		if wait <= 0 {
			wait = backoff
		}
		c.logger.Warn("Scryfall rate limited, backing off",
			zap.Duration("wait", wait),
			zap.Int("attempt", attempt+1))
		if err := sleep(ctx, wait); err != nil {
			return err
		}
		backoff = min(backoff*2, maxBackoff)
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// handleResponse decodes resp into result. It reports whether the request
// should be retried and, for 429s, how long the server asked to wait.
func (c *Client) handleResponse(resp *http.Response, u string, result interface{}) (bool, time.Duration, error) {
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return false, 0, fmt.Errorf("failed to read response body: %w", err)
		}
		if err := json.Unmarshal(body, result); err != nil {
			return false, 0, fmt.Errorf("failed to parse JSON response: %w", err)
		}
		return false, 0, nil

	case http.StatusTooManyRequests:
		var wait time.Duration
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if secs, err := strconv.Atoi(retryAfter); err == nil {
				wait = time.Duration(secs) * time.Second
			}
		}
		return true, wait, fmt.Errorf("rate limited (HTTP 429)")

	case http.StatusNotFound:
		return false, 0, &NotFoundError{URL: u}

	default:
		body, _ := io.ReadAll(resp.Body)
		var apiErr APIError
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Details != "" {
			return false, 0, &apiErr
		}
		return false, 0, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
