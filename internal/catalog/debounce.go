package catalog

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bep/debounce"
	"go.uber.org/zap"
)

// DefaultSearchDelay is the quiet period before a debounced search runs.
const DefaultSearchDelay = 300 * time.Millisecond

// ErrSuperseded is returned to a caller whose search was replaced by a newer
// one before it completed.
var ErrSuperseded = errors.New("search superseded by a newer query")

type call struct {
	once sync.Once
	done chan struct{}
	page Page
	err  error
}

func newCall() *call {
	return &call{done: make(chan struct{})}
}

func (c *call) finish(page Page, err error) {
	c.once.Do(func() {
		c.page, c.err = page, err
		close(c.done)
	})
}

// Debouncer wraps a Source so that only the last of a burst of queries
// reaches it. A newer query supersedes the pending one and cancels a request
// already in flight.
type Debouncer struct {
	source    Source
	logger    *zap.Logger
	debounced func(func())

	mu      sync.Mutex
	current *call
	cancel  context.CancelFunc
}

// NewDebouncer wraps source with the given quiet period.
func NewDebouncer(source Source, delay time.Duration, logger *zap.Logger) *Debouncer {
	if delay <= 0 {
		delay = DefaultSearchDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Debouncer{
		source:    source,
		logger:    logger,
		debounced: debounce.New(delay),
	}
}

// Search schedules q and waits for its result. It returns ErrSuperseded if a
// later Search replaces it, or the context error if ctx ends first.
func (d *Debouncer) Search(ctx context.Context, q Query) (Page, error) {
	c := newCall()

	d.mu.Lock()
	d.supersedeLocked()
	d.current = c
	d.mu.Unlock()

	d.debounced(func() { d.run(c, q) })

	select {
	case <-c.done:
		return c.page, c.err
	case <-ctx.Done():
		d.mu.Lock()
		if d.current == c {
			d.current = nil
			if d.cancel != nil {
				d.cancel()
				d.cancel = nil
			}
		}
		d.mu.Unlock()
		c.finish(Page{}, ctx.Err())
		return Page{}, ctx.Err()
	}
}

// Stop cancels any pending or in-flight search.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.supersedeLocked()
}

func (d *Debouncer) supersedeLocked() {
	if d.current != nil {
		d.current.finish(Page{}, ErrSuperseded)
		d.current = nil
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}

func (d *Debouncer) run(c *call, q Query) {
	d.mu.Lock()
	if d.current != c {
		d.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.mu.Unlock()
	defer cancel()

	start := time.Now()
	page, err := d.source.Search(ctx, q)

	d.mu.Lock()
	if d.current == c {
		d.current = nil
		d.cancel = nil
	}
	d.mu.Unlock()

	if err != nil && ctx.Err() != nil {
		err = ErrSuperseded
	}
	if err != nil && !errors.Is(err, ErrSuperseded) {
		d.logger.Warn("Catalog search failed",
			zap.String("query", q.Text),
			zap.Error(err))
	} else if err == nil {
		d.logger.Debug("Catalog search completed",
			zap.String("query", q.Text),
			zap.Int("results", len(page.Results)),
			zap.Int("total", page.TotalCount),
			zap.Duration("took", time.Since(start)))
	}
	c.finish(page, err)
}
